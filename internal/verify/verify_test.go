package verify

import (
	"testing"

	"hlbc/internal/bytecode"
	"hlbc/internal/hltypes"
)

func nullaryFunModule(regs []hltypes.Type, code []bytecode.Op) *bytecode.Module {
	return &bytecode.Module{
		Version:    1,
		Entrypoint: 0,
		Globals:    []hltypes.Type{hltypes.NewFun(nil, hltypes.Basic(hltypes.I32))},
		Functions: []bytecode.FunDecl{{
			Index: 0,
			Regs:  regs,
			Code:  code,
		}},
	}
}

func TestAcceptsReturnConstant(t *testing.T) {
	mod := nullaryFunModule(
		[]hltypes.Type{hltypes.Basic(hltypes.I32)},
		[]bytecode.Op{bytecode.Int(0, 42), bytecode.Ret(0)},
	)
	if err := Module(mod); err != nil {
		t.Fatalf("expected accept, got %v", err)
	}
}

func TestRejectsAddTypeMismatch(t *testing.T) {
	mod := nullaryFunModule(
		[]hltypes.Type{hltypes.Basic(hltypes.I32), hltypes.Basic(hltypes.UI8)},
		[]bytecode.Op{bytecode.Add(0, 0, 1), bytecode.Ret(0)},
	)
	if err := Module(mod); err == nil {
		t.Fatal("expected rejection: Add(UI8-typed r1) against I32 dst/arg")
	}
}

func TestRejectsOutOfRangeJump(t *testing.T) {
	mod := nullaryFunModule(
		[]hltypes.Type{hltypes.Basic(hltypes.Void)},
		[]bytecode.Op{bytecode.JAlways(9999), bytecode.Ret(0)},
	)
	if err := Module(mod); err == nil {
		t.Fatal("expected rejection: JAlways +9999 in a 2-op function")
	}
}

func TestAcceptsJAlwaysZeroDelta(t *testing.T) {
	// JAlways +0 targets pos+1, which is in range as long as it isn't the
	// last instruction; this case is accepted.
	mod := nullaryFunModule(
		[]hltypes.Type{hltypes.Basic(hltypes.I32)},
		[]bytecode.Op{bytecode.JAlways(0), bytecode.Ret(0)},
	)
	if err := Module(mod); err != nil {
		t.Fatalf("expected accept for in-range zero-delta jump, got %v", err)
	}
}

func TestRejectsMovTypeMismatch(t *testing.T) {
	mod := nullaryFunModule(
		[]hltypes.Type{hltypes.Basic(hltypes.I32), hltypes.Basic(hltypes.Bool)},
		[]bytecode.Op{bytecode.Mov(0, 1), bytecode.Ret(0)},
	)
	if err := Module(mod); err == nil {
		t.Fatal("expected rejection: Mov between mismatched types")
	}
}

func TestRejectsUI8IntOutOfRange(t *testing.T) {
	mod := nullaryFunModule(
		[]hltypes.Type{hltypes.Basic(hltypes.UI8)},
		[]bytecode.Op{bytecode.Int(0, 256)},
	)
	if err := Module(mod); err == nil {
		t.Fatal("expected rejection: UI8 register loaded with 256")
	}
}

func TestRejectsArgRegTypeMismatch(t *testing.T) {
	mod := &bytecode.Module{
		Globals: []hltypes.Type{hltypes.NewFun([]hltypes.Type{hltypes.Basic(hltypes.I32)}, hltypes.Basic(hltypes.Void))},
		Functions: []bytecode.FunDecl{{
			Index: 0,
			Regs:  []hltypes.Type{hltypes.Basic(hltypes.UI8)}, // should have been I32
			Code:  []bytecode.Op{bytecode.Ret(0)},
		}},
	}
	if err := Module(mod); err == nil {
		t.Fatal("expected rejection: argument register type doesn't match declared Fun arg type")
	}
}
