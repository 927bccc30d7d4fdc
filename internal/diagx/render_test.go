package diagx

import (
	"bytes"
	"strings"
	"testing"
)

func TestResolveColorAbsoluteModes(t *testing.T) {
	if !ResolveColor(ColorOn, 0) {
		t.Fatal("ColorOn must always resolve true")
	}
	if ResolveColor(ColorOff, 0) {
		t.Fatal("ColorOff must always resolve false")
	}
}

func TestRenderWithoutColorHasNoEscapes(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, []Diagnostic{New(VerifierViolation, "bad jump target")}, false)
	out := buf.String()
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("expected no ANSI escapes, got %q", out)
	}
	if !strings.Contains(out, "bad jump target") {
		t.Fatalf("missing message in %q", out)
	}
}

func TestRenderIncludesLocationWhenSet(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, []Diagnostic{At(InternalInvariant, 2, 5, "unreachable")}, false)
	out := buf.String()
	if !strings.Contains(out, "fn#2 @5") {
		t.Fatalf("expected location in %q", out)
	}
}
