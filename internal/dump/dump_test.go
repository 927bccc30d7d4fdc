package dump

import (
	"strings"
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

func TestDumpReturnConstant(t *testing.T) {
	mod := nullaryFunModule(
		[]hltypes.Type{hltypes.Basic(hltypes.I32)},
		[]bytecode.Op{bytecode.Int(0, 42), bytecode.Ret(0)},
	)
	out := String(mod)
	if !strings.Contains(out, "int 0,42") {
		t.Fatalf("dump missing `int 0,42`:\n%s", out)
	}
	if !strings.Contains(out, "ret 0") {
		t.Fatalf("dump missing `ret 0`:\n%s", out)
	}
}

func TestDumpAddition(t *testing.T) {
	mod := nullaryFunModule(
		[]hltypes.Type{hltypes.Basic(hltypes.I32), hltypes.Basic(hltypes.I32), hltypes.Basic(hltypes.I32)},
		[]bytecode.Op{bytecode.Int(0, 2), bytecode.Int(1, 3), bytecode.Add(2, 0, 1), bytecode.Ret(2)},
	)
	out := String(mod)
	for _, want := range []string{"int 0,2", "int 1,3", "add 2,0,1", "ret 2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("dump missing `%s`:\n%s", want, out)
		}
	}
}

func TestDumpIfExpression(t *testing.T) {
	mod := nullaryFunModule(
		[]hltypes.Type{
			hltypes.Basic(hltypes.Bool),
			hltypes.Basic(hltypes.I32),
			hltypes.Basic(hltypes.I32),
			hltypes.Basic(hltypes.I32),
		},
		[]bytecode.Op{
			bytecode.BoolLit(0, true),
			bytecode.JFalse(0, 3),
			bytecode.Int(1, 1),
			bytecode.Mov(2, 1),
			bytecode.JAlways(2),
			bytecode.Int(3, 2),
			bytecode.Mov(2, 3),
			bytecode.Ret(2),
		},
	)
	out := String(mod)
	for _, want := range []string{"true 0", "jfalse 0,+3", "jalways +2", "mov 2,1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("dump missing `%s`:\n%s", want, out)
		}
	}
}

func TestDumpToAnyRegisterTable(t *testing.T) {
	mod := nullaryFunModule(
		[]hltypes.Type{hltypes.Basic(hltypes.I32), hltypes.Basic(hltypes.Any)},
		[]bytecode.Op{bytecode.Int(0, 7), bytecode.ToAny(1, 0)},
	)
	out := String(mod)
	if !strings.Contains(out, "r0 I32") || !strings.Contains(out, "r1 Any") {
		t.Fatalf("dump missing register table entries:\n%s", out)
	}
	if !strings.Contains(out, "toany 1,0") {
		t.Fatalf("dump missing `toany 1,0`:\n%s", out)
	}
}

func TestDumpNativeCallSection(t *testing.T) {
	mainType := hltypes.NewFun(nil, hltypes.Basic(hltypes.Void))
	nativeType := hltypes.NewFun([]hltypes.Type{hltypes.Basic(hltypes.Any)}, hltypes.Basic(hltypes.Void))
	mod := &bytecode.Module{
		Version:    1,
		Entrypoint: 0,
		Globals:    []hltypes.Type{mainType, nativeType},
		Natives:    []bytecode.NativeEntry{{Name: "std@log", Global: 1}},
		Functions: []bytecode.FunDecl{{
			Index: 0,
			Regs:  []hltypes.Type{hltypes.Basic(hltypes.Void), hltypes.Basic(hltypes.I32), hltypes.Basic(hltypes.Any)},
			Code: []bytecode.Op{
				bytecode.Int(1, 7),
				bytecode.ToAny(2, 1),
				bytecode.CallFixed(0, 1, []bytecode.RegID{2}),
				bytecode.Ret(0),
			},
		}},
	}
	out := String(mod)
	if !strings.Contains(out, "native std@log @1 : Fun(Any -> Void)") {
		t.Fatalf("dump missing native line:\n%s", out)
	}
	if !strings.Contains(out, "call 0,1,2") {
		t.Fatalf("dump missing `call 0,1,2`:\n%s", out)
	}
}

func TestDumpGlobalOpsUseRegisterThenGlobalOrder(t *testing.T) {
	mod := &bytecode.Module{
		Version:    1,
		Entrypoint: 0,
		Globals:    []hltypes.Type{hltypes.NewFun(nil, hltypes.Basic(hltypes.I32)), hltypes.Basic(hltypes.I32)},
		Functions: []bytecode.FunDecl{{
			Index: 0,
			Regs:  []hltypes.Type{hltypes.Basic(hltypes.I32)},
			Code: []bytecode.Op{
				bytecode.GetGlobal(0, 1),
				bytecode.SetGlobal(0, 1),
				bytecode.Ret(0),
			},
		}},
	}
	out := String(mod)
	if !strings.Contains(out, "global 0,1") {
		t.Fatalf("dump missing `global 0,1`:\n%s", out)
	}
	if !strings.Contains(out, "setglobal 0,1") {
		t.Fatalf("dump missing `setglobal 0,1`:\n%s", out)
	}
}

func TestDumpHeaderAndSectionCounts(t *testing.T) {
	mod := nullaryFunModule(
		[]hltypes.Type{hltypes.Basic(hltypes.I32)},
		[]bytecode.Op{bytecode.Int(0, 1), bytecode.Ret(0)},
	)
	out := String(mod)
	lines := strings.Split(out, "\n")
	if lines[0] != "hl v1" {
		t.Fatalf("header = %q, want `hl v1`", lines[0])
	}
	if lines[1] != "entry @0" {
		t.Fatalf("entry line = %q, want `entry @0`", lines[1])
	}
	if lines[2] != "1 globals" {
		t.Fatalf("globals count line = %q, want `1 globals`", lines[2])
	}
}
