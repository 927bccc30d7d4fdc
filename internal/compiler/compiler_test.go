package compiler

import (
	"testing"

	"hlbc/internal/bytecode"
	"hlbc/internal/hlast"
	"hlbc/internal/hltypes"
)

func intLit(v int32) hlast.Expr {
	return hlast.Expr{Kind: hlast.EConstInt, Type: hltypes.Basic(hltypes.I32), ConstInt: v}
}

func boolLit(v bool) hlast.Expr {
	return hlast.Expr{Kind: hlast.EConstBool, Type: hltypes.Basic(hltypes.Bool), ConstBool: v}
}

func ret(e hlast.Expr) hlast.Expr {
	return hlast.Expr{Kind: hlast.EReturn, Type: hltypes.Basic(hltypes.Void), Ret: &e}
}

func program(methodName string, ret hltypes.Type, body hlast.Expr) *hlast.Program {
	return &hlast.Program{Decls: []hlast.Decl{{
		Kind: hlast.DeclClass,
		Class: &hlast.ClassDecl{
			Path: "Main",
			Methods: []hlast.Method{{
				Name: methodName,
				Ret:  ret,
				Body: body,
			}},
		},
	}}}
}

func TestCompileReturnConstant(t *testing.T) {
	body := ret(intLit(42))
	mod, err := Compile(program("main", hltypes.Basic(hltypes.I32), body), "Main:main")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	fn := mod.Functions[0]
	if len(fn.Code) != 2 {
		t.Fatalf("expected 2 ops, got %d: %+v", len(fn.Code), fn.Code)
	}
	if fn.Code[0].Kind != bytecode.OpInt || fn.Code[0].Int.Value != 42 {
		t.Fatalf("op0 = %+v, want Int r0,42", fn.Code[0])
	}
	if fn.Code[1].Kind != bytecode.OpRet || fn.Code[1].Ret.Reg != fn.Code[0].Int.Dst {
		t.Fatalf("op1 = %+v, want Ret matching the int register", fn.Code[1])
	}
}

func TestCompileAddition(t *testing.T) {
	sum := hlast.Expr{Kind: hlast.EBinop, Type: hltypes.Basic(hltypes.I32), Op: hlast.OpAdd}
	two, three := intLit(2), intLit(3)
	sum.Left, sum.Right = &two, &three
	body := ret(sum)

	mod, err := Compile(program("main", hltypes.Basic(hltypes.I32), body), "Main:main")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	fn := mod.Functions[0]
	if len(fn.Code) != 4 {
		t.Fatalf("expected 4 ops, got %d: %+v", len(fn.Code), fn.Code)
	}
	wantKinds := []bytecode.OpKind{bytecode.OpInt, bytecode.OpInt, bytecode.OpAdd, bytecode.OpRet}
	for i, k := range wantKinds {
		if fn.Code[i].Kind != k {
			t.Fatalf("op%d kind = %v, want %v", i, fn.Code[i].Kind, k)
		}
	}
}

func TestCompileIfExpression(t *testing.T) {
	ifExpr := hlast.Expr{Kind: hlast.EIf, Type: hltypes.Basic(hltypes.I32)}
	cond := boolLit(true)
	thenE, elseE := intLit(1), intLit(2)
	ifExpr.Cond, ifExpr.Then, ifExpr.Else = &cond, &thenE, &elseE
	body := ret(ifExpr)

	mod, err := Compile(program("main", hltypes.Basic(hltypes.I32), body), "Main:main")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	fn := mod.Functions[0]
	// r0 is the result register, allocated before the condition:
	// Bool r1,true; JFalse r1,+3; Int r2,1; Mov r0,r2; JAlways +2; Int r3,2; Mov r0,r3; Ret r0
	if len(fn.Code) != 8 {
		t.Fatalf("expected 8 ops, got %d: %+v", len(fn.Code), fn.Code)
	}
	if fn.Code[1].Kind != bytecode.OpJFalse || fn.Code[1].Jump.Delta != 3 {
		t.Fatalf("JFalse delta = %+v, want +3", fn.Code[1].Jump)
	}
	if fn.Code[4].Kind != bytecode.OpJAlways || fn.Code[4].Jump.Delta != 2 {
		t.Fatalf("JAlways delta = %+v, want +2", fn.Code[4].Jump)
	}
	for _, idx := range []int{3, 6} {
		if fn.Code[idx].Kind != bytecode.OpMov {
			t.Fatalf("op%d = %+v, want Mov", idx, fn.Code[idx])
		}
	}
}

func TestCompileToAny(t *testing.T) {
	// Passing 7 to a callee whose parameter is Any coerces it via ToAny:
	// GetGlobal r0,sink; Int r1,7; ToAny r2,r1; CallN r3,r0,[r2].
	sinkType := hltypes.NewFun([]hltypes.Type{hltypes.Basic(hltypes.Any)}, hltypes.Basic(hltypes.Void))
	sink := hlast.Expr{Kind: hlast.EFieldStatic, Type: sinkType, ClassPath: "Std", FieldName: "sink"}
	call := hlast.Expr{Kind: hlast.ECall, Type: hltypes.Basic(hltypes.Void), Callee: &sink, Args: []hlast.Expr{intLit(7)}}

	mod, err := Compile(program("main", hltypes.Basic(hltypes.Void), call), "Main:main")
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	fn := mod.Functions[0]
	if fn.Code[1].Kind != bytecode.OpInt {
		t.Fatalf("op1 = %+v, want Int", fn.Code[1])
	}
	if fn.Regs[1].Tag != hltypes.I32 {
		t.Fatalf("r1 type = %v, want I32", fn.Regs[1])
	}
	if fn.Code[2].Kind != bytecode.OpToAny || fn.Code[2].ToAny.Src != 1 || fn.Regs[fn.Code[2].ToAny.Dst].Tag != hltypes.Any {
		t.Fatalf("op2 = %+v, want ToAny from r1 into an Any register", fn.Code[2])
	}
}

func TestCompileEntrypointMustBeNullaryFun(t *testing.T) {
	body := ret(intLit(1))
	arg := hlast.Var{ID: 1, Name: "n", Type: hltypes.Basic(hltypes.I32)}
	prog := &hlast.Program{Decls: []hlast.Decl{{
		Kind: hlast.DeclClass,
		Class: &hlast.ClassDecl{
			Path: "Main",
			Methods: []hlast.Method{{
				Name: "main",
				Args: []hlast.Param{{Var: arg}},
				Ret:  hltypes.Basic(hltypes.I32),
				Body: body,
			}},
		},
	}}}
	if _, err := Compile(prog, "Main:main"); err == nil {
		t.Fatal("expected error: entrypoint has an argument")
	}
}
