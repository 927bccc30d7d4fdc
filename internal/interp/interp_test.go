package interp

import (
	"testing"

	"hlbc/internal/bytecode"
	"hlbc/internal/hltypes"
)

func moduleWith(entryRet hltypes.Type, functions []bytecode.FunDecl, extraGlobals []hltypes.Type, natives []bytecode.NativeEntry) *bytecode.Module {
	globals := append([]hltypes.Type{hltypes.NewFun(nil, entryRet)}, extraGlobals...)
	return &bytecode.Module{
		Version:    1,
		Entrypoint: 0,
		Globals:    globals,
		Functions:  functions,
		Natives:    natives,
	}
}

func TestRunReturnsConstant(t *testing.T) {
	mod := moduleWith(hltypes.Basic(hltypes.I32), []bytecode.FunDecl{{
		Index: 0,
		Regs:  []hltypes.Type{hltypes.Basic(hltypes.I32)},
		Code:  []bytecode.Op{bytecode.Int(0, 42), bytecode.Ret(0)},
	}}, nil, nil)

	v, err := Run(mod, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v.Kind != VInt || v.Int != 42 {
		t.Fatalf("got %+v, want Int(42)", v)
	}
}

func TestRunAddition(t *testing.T) {
	mod := moduleWith(hltypes.Basic(hltypes.I32), []bytecode.FunDecl{{
		Index: 0,
		Regs:  []hltypes.Type{hltypes.Basic(hltypes.I32), hltypes.Basic(hltypes.I32), hltypes.Basic(hltypes.I32)},
		Code: []bytecode.Op{
			bytecode.Int(0, 2),
			bytecode.Int(1, 3),
			bytecode.Add(2, 0, 1),
			bytecode.Ret(2),
		},
	}}, nil, nil)

	v, err := Run(mod, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v.Int != 5 {
		t.Fatalf("got %d, want 5", v.Int)
	}
}

func TestRunUI8Wraparound(t *testing.T) {
	mod := moduleWith(hltypes.Basic(hltypes.UI8), []bytecode.FunDecl{{
		Index: 0,
		Regs:  []hltypes.Type{hltypes.Basic(hltypes.UI8), hltypes.Basic(hltypes.UI8), hltypes.Basic(hltypes.UI8)},
		Code: []bytecode.Op{
			bytecode.Int(0, 255),
			bytecode.Int(1, 1),
			bytecode.Add(2, 0, 1),
			bytecode.Ret(2),
		},
	}}, nil, nil)

	v, err := Run(mod, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v.Int != 0 {
		t.Fatalf("got %d, want 0 (255+1 mod 256)", v.Int)
	}
}

func TestRunCallsFixedArityFunction(t *testing.T) {
	helperType := hltypes.NewFun(nil, hltypes.Basic(hltypes.I32))
	mod := moduleWith(hltypes.Basic(hltypes.I32), []bytecode.FunDecl{
		{
			Index: 0,
			Regs:  []hltypes.Type{hltypes.Basic(hltypes.I32)},
			Code:  []bytecode.Op{bytecode.CallFixed(0, 1, nil), bytecode.Ret(0)},
		},
		{
			Index: 1,
			Regs:  []hltypes.Type{hltypes.Basic(hltypes.I32)},
			Code:  []bytecode.Op{bytecode.Int(0, 10), bytecode.Ret(0)},
		},
	}, []hltypes.Type{helperType}, nil)

	v, err := Run(mod, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v.Int != 10 {
		t.Fatalf("got %d, want 10", v.Int)
	}
}

func TestRunResolvesNative(t *testing.T) {
	nativeType := hltypes.NewFun(nil, hltypes.Basic(hltypes.I32))
	mod := moduleWith(hltypes.Basic(hltypes.I32), []bytecode.FunDecl{{
		Index: 0,
		Regs:  []hltypes.Type{hltypes.Basic(hltypes.I32)},
		Code:  []bytecode.Op{bytecode.CallFixed(0, 1, nil), bytecode.Ret(0)},
	}}, []hltypes.Type{nativeType}, []bytecode.NativeEntry{{Name: "host.answer", Global: 1}})

	loader := MapLoader{"host.answer": func(args []Value) Value {
		return Value{Kind: VInt, Int: 99}
	}}

	v, err := Run(mod, loader)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v.Int != 99 {
		t.Fatalf("got %d, want 99", v.Int)
	}
}

func TestRunUnresolvedNativeFailsAtBind(t *testing.T) {
	nativeType := hltypes.NewFun(nil, hltypes.Basic(hltypes.I32))
	mod := moduleWith(hltypes.Basic(hltypes.I32), []bytecode.FunDecl{{
		Index: 0,
		Regs:  []hltypes.Type{hltypes.Basic(hltypes.I32)},
		Code:  []bytecode.Op{bytecode.CallFixed(0, 1, nil), bytecode.Ret(0)},
	}}, []hltypes.Type{nativeType}, []bytecode.NativeEntry{{Name: "host.missing", Global: 1}})

	if _, err := Run(mod, nil); err == nil {
		t.Fatal("expected unresolved-native error")
	}
}

func TestRunToAnyBoxing(t *testing.T) {
	mod := moduleWith(hltypes.Basic(hltypes.Any), []bytecode.FunDecl{{
		Index: 0,
		Regs:  []hltypes.Type{hltypes.Basic(hltypes.I32), hltypes.Basic(hltypes.Any)},
		Code: []bytecode.Op{
			bytecode.Int(0, 7),
			bytecode.ToAny(1, 0),
			bytecode.Ret(1),
		},
	}}, nil, nil)

	v, err := Run(mod, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v.Kind != VAny || v.AnyVal.Int != 7 || v.AnyType.Tag != hltypes.I32 {
		t.Fatalf("got %+v, want Any(Int(7), I32)", v)
	}
}

func TestEqualStructuralAnyComparison(t *testing.T) {
	seven := Value{Kind: VInt, Int: 7}
	a := Value{Kind: VAny, AnyVal: &seven, AnyType: hltypes.Basic(hltypes.I32)}
	seven2 := Value{Kind: VInt, Int: 7}
	b := Value{Kind: VAny, AnyVal: &seven2, AnyType: hltypes.Basic(hltypes.I32)}
	if !Equal(a, b) {
		t.Fatal("structurally identical boxed Any values should be equal")
	}
}
