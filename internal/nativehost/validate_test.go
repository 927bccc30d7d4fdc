package nativehost

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeDecl(t *testing.T, dir, file, name string) {
	t.Helper()
	content := "name = \"" + name + "\"\n"
	if err := os.WriteFile(filepath.Join(dir, file), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", file, err)
	}
}

func TestValidateSearchPathsAcceptsRegisteredNative(t *testing.T) {
	dir := t.TempDir()
	writeDecl(t, dir, "log.native.toml", "std@log")

	r := Standard()
	if err := ValidateSearchPaths(context.Background(), r, []string{dir}); err != nil {
		t.Fatalf("ValidateSearchPaths: %v", err)
	}
}

func TestValidateSearchPathsRejectsUnresolvedNative(t *testing.T) {
	dir := t.TempDir()
	writeDecl(t, dir, "mystery.native.toml", "std@does-not-exist")

	r := Standard()
	if err := ValidateSearchPaths(context.Background(), r, []string{dir}); err == nil {
		t.Fatal("expected an unresolved-native error")
	}
}

func TestValidateSearchPathsIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("ignore me"), 0o644); err != nil {
		t.Fatalf("write README: %v", err)
	}
	r := Standard()
	if err := ValidateSearchPaths(context.Background(), r, []string{dir}); err != nil {
		t.Fatalf("ValidateSearchPaths: %v", err)
	}
}
