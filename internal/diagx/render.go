package diagx

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"golang.org/x/term"
)

// ColorMode mirrors the CLI's --color auto|on|off flag.
type ColorMode string

const (
	ColorAuto ColorMode = "auto"
	ColorOn   ColorMode = "on"
	ColorOff  ColorMode = "off"
)

var (
	errorColor = color.New(color.FgRed, color.Bold)
	warnColor  = color.New(color.FgYellow, color.Bold)
	infoColor  = color.New(color.FgCyan)
	codeColor  = color.New(color.Faint)
)

func severityColor(s Severity) *color.Color {
	switch s {
	case SevError:
		return errorColor
	case SevWarning:
		return warnColor
	default:
		return infoColor
	}
}

// ResolveColor decides whether output on fd should carry ANSI color,
// given the CLI's --color flag: "on"/"off" are absolute, "auto" follows
// fd's TTY-ness.
func ResolveColor(mode ColorMode, fd uintptr) bool {
	switch mode {
	case ColorOn:
		return true
	case ColorOff:
		return false
	default:
		return term.IsTerminal(int(fd))
	}
}

// Render writes one line per diagnostic to w. When enableColor is
// false, no ANSI escapes are emitted regardless of the colors
// configured above; callers resolve ColorAuto against TTY-ness before
// calling Render.
func Render(w io.Writer, items []Diagnostic, enableColor bool) {
	for _, d := range items {
		sevText := d.Severity.String()
		if enableColor {
			sevText = severityColor(d.Severity).Sprint(sevText)
		}
		codeText := fmt.Sprintf("[%s]", d.Code)
		if enableColor {
			codeText = codeColor.Sprint(codeText)
		}
		if d.Loc == NoLocation {
			fmt.Fprintf(w, "%s %s: %s\n", sevText, codeText, d.Message)
			continue
		}
		fmt.Fprintf(w, "%s %s fn#%d @%d: %s\n", sevText, codeText, d.Loc.Func, d.Loc.Offset, d.Message)
	}
}
