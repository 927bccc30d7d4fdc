package asm

import (
	"testing"

	"hlbc/internal/compiler"
	"hlbc/internal/hltypes"
	"hlbc/internal/interp"
)

const returnConstantSrc = `
(class Main (extern false)
  (method main (args) (ret I32)
    (return (+ (int 2) (int 3)))))
`

func TestParseReturnConstant(t *testing.T) {
	prog, err := Parse(returnConstantSrc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(prog.Decls) != 1 {
		t.Fatalf("expected 1 decl, got %d", len(prog.Decls))
	}
	class := prog.Decls[0].Class
	if class.Path != "Main" || class.Extern {
		t.Fatalf("class = %+v", class)
	}
	if len(class.Methods) != 1 || class.Methods[0].Name != "main" {
		t.Fatalf("methods = %+v", class.Methods)
	}
}

func TestParseAndCompileAndRunReturnConstant(t *testing.T) {
	prog, err := Parse(returnConstantSrc)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	mod, err := compiler.Compile(prog, "Main:main")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	result, err := interp.Run(mod, interp.NoNatives)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Kind != interp.VInt || result.Int != 5 {
		t.Fatalf("result = %+v, want Int(5)", result)
	}
}

func TestParseIfExpressionWithLocalsAndArgs(t *testing.T) {
	src := `
(class Main (extern false)
  (method choose (args (flag Bool)) (ret I32)
    (return (if I32 (local flag) (int 1) (int 2))))
  (method main (args) (ret I32)
    (return (int 0))))
`
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	// The entrypoint must take no arguments, so main is the entrypoint and
	// choose (the first method, function 0) is the one inspected.
	mod, err := compiler.Compile(prog, "Main:main")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(mod.Functions[0].Regs) == 0 {
		t.Fatal("expected at least one register for the `flag` argument")
	}
}

func TestParseExternNativeMethod(t *testing.T) {
	src := `
(class Std (extern true)
  (method log (args (x Any)) (ret Void) (native std log)))
`
	prog, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	class := prog.Decls[0].Class
	if !class.Extern {
		t.Fatal("expected extern class")
	}
	m := class.Methods[0]
	if m.Native == nil || m.Native.LibName != "std" || m.Native.FuncName != "log" {
		t.Fatalf("native marker = %+v", m.Native)
	}
	if len(m.Args) != 1 || m.Args[0].Var.Type.Tag != hltypes.Any {
		t.Fatalf("args = %+v", m.Args)
	}
}

func TestParseRejectsUnknownForm(t *testing.T) {
	if _, err := Parse("(class Main (extern false) (bogus))"); err == nil {
		t.Fatal("expected an error for an unknown class member form")
	}
}

func TestParseRejectsUndeclaredLocal(t *testing.T) {
	src := `
(class Main (extern false)
  (method main (args) (ret I32)
    (return (local missing))))
`
	if _, err := Parse(src); err == nil {
		t.Fatal("expected an error referencing an undeclared local")
	}
}
