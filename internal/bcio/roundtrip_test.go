package bcio

import (
	"bytes"
	"reflect"
	"testing"

	"hlbc/internal/bytecode"
	"hlbc/internal/hltypes"
)

func assertRoundTrip(t *testing.T, mod *bytecode.Module) []byte {
	t.Helper()
	encoded, err := Encode(mod)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(mod, decoded) {
		t.Fatalf("round-trip mismatch:\n got  %+v\n want %+v", decoded, mod)
	}
	reencoded, err := Encode(decoded)
	if err != nil {
		t.Fatalf("re-Encode: %v", err)
	}
	if !reflect.DeepEqual(encoded, reencoded) {
		t.Fatal("write(read(write(m))) produced different bytes than write(m)")
	}
	return encoded
}

func TestRoundTripReturnConstant(t *testing.T) {
	mod := &bytecode.Module{
		Version:    1,
		Entrypoint: 0,
		Globals:    []hltypes.Type{hltypes.NewFun(nil, hltypes.Basic(hltypes.I32))},
		Functions: []bytecode.FunDecl{{
			Index: 0,
			Regs:  []hltypes.Type{hltypes.Basic(hltypes.I32)},
			Code:  []bytecode.Op{bytecode.Int(0, 42), bytecode.Ret(0)},
		}},
	}
	assertRoundTrip(t, mod)
}

func TestRoundTripIfExpression(t *testing.T) {
	mod := &bytecode.Module{
		Version:    1,
		Entrypoint: 0,
		Globals:    []hltypes.Type{hltypes.NewFun(nil, hltypes.Basic(hltypes.I32))},
		Functions: []bytecode.FunDecl{{
			Index: 0,
			Regs: []hltypes.Type{
				hltypes.Basic(hltypes.Bool),
				hltypes.Basic(hltypes.I32),
				hltypes.Basic(hltypes.I32),
				hltypes.Basic(hltypes.I32),
			},
			Code: []bytecode.Op{
				bytecode.BoolLit(0, true),
				bytecode.JFalse(0, 3),
				bytecode.Int(1, 1),
				bytecode.Mov(2, 1),
				bytecode.JAlways(2),
				bytecode.Int(3, 2),
				bytecode.Mov(2, 3),
				bytecode.Ret(2),
			},
		}},
	}
	assertRoundTrip(t, mod)
}

func TestRoundTripNativeCallWithFunArgType(t *testing.T) {
	// Exercises a Fun-typed global with a non-empty arg list, forcing a
	// second Fun type-table entry distinct from the entrypoint's Fun([],Void).
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
	assertRoundTrip(t, mod)
}

func TestRoundTripWithFloatPool(t *testing.T) {
	mod := &bytecode.Module{
		Version:    1,
		Entrypoint: 0,
		Globals:    []hltypes.Type{hltypes.NewFun(nil, hltypes.Basic(hltypes.F64))},
		Floats:     []float64{3.5, -1.25},
		Functions: []bytecode.FunDecl{{
			Index: 0,
			Regs:  []hltypes.Type{hltypes.Basic(hltypes.F64)},
			Code:  []bytecode.Op{bytecode.Float(0, 1), bytecode.Ret(0)},
		}},
	}
	assertRoundTrip(t, mod)
}

func TestRoundTripLongFormBinOpWhenRegistersExceedThreeBits(t *testing.T) {
	mod := &bytecode.Module{
		Version:    1,
		Entrypoint: 0,
		Globals:    []hltypes.Type{hltypes.NewFun(nil, hltypes.Basic(hltypes.I32))},
		Functions: []bytecode.FunDecl{{
			Index: 0,
			Regs:  make([]hltypes.Type, 12),
			Code:  []bytecode.Op{bytecode.Add(10, 0, 1), bytecode.Ret(10)},
		}},
	}
	for i := range mod.Functions[0].Regs {
		mod.Functions[0].Regs[i] = hltypes.Basic(hltypes.I32)
	}
	encoded := assertRoundTrip(t, mod)
	// The long form is tag byte + 3 vint bytes (all regs fit one byte each).
	// Confirm it did not take the 2-byte compact path: Add's byte after the
	// header should be the plain tag 6 followed by regs 10, 0, 1, not a
	// high-bit-set compact byte.
	if !bytes.Contains(encoded, []byte{tagAdd, 10, 0, 1}) {
		t.Fatal("expected long-form Add tag byte in output")
	}
}
