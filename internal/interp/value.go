// Package interp implements a direct tree-walking-free interpreter: a
// tagged-value evaluator that runs verified functions over a register
// array, resolving globals and natives the way the teacher's vm.VM
// resolves its own MIR globals and runtime natives.
package interp

import (
	"fmt"

	"hlbc/internal/bytecode"
	"hlbc/internal/hltypes"
)

// Kind discriminates Value's populated field, a closed runtime value
// sum type.
type Kind uint8

const (
	VNull Kind = iota
	VInt
	VFloat
	VFun
	VBool
	VAny
	VNative
)

func (k Kind) String() string {
	switch k {
	case VNull:
		return "Null"
	case VInt:
		return "Int"
	case VFloat:
		return "Float"
	case VFun:
		return "Fun"
	case VBool:
		return "Bool"
	case VAny:
		return "Any"
	case VNative:
		return "NativeFun"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// NativeFunc is a host-provided handler bound to a native global at
// interpreter startup.
type NativeFunc func(args []Value) Value

// Value is the tagged runtime value. Exactly one of
// Int/Float/Fun/Bool/(AnyVal,AnyType)/Native is meaningful, selected by
// Kind.
type Value struct {
	Kind Kind

	Int   int32
	Float float64
	Fun   *bytecode.FunDecl
	Bool  bool

	AnyVal  *Value
	AnyType hltypes.Type

	Native NativeFunc
}

// Null is the shared zero/unit value.
var Null = Value{Kind: VNull}

// Default returns the default value for a register's declared type:
// Null for Void/Fun/Any, Int(0) for UI8/I32, Float(0) for F32/F64,
// Bool(false) for Bool.
func Default(t hltypes.Type) Value {
	switch t.Tag {
	case hltypes.UI8, hltypes.I32:
		return Value{Kind: VInt, Int: 0}
	case hltypes.F32, hltypes.F64:
		return Value{Kind: VFloat, Float: 0}
	case hltypes.Bool:
		return Value{Kind: VBool, Bool: false}
	default:
		return Null
	}
}

// String renders a value for logging and diagnostics; it is not part of
// the wire format.
func (v Value) String() string {
	switch v.Kind {
	case VNull:
		return "null"
	case VInt:
		return fmt.Sprintf("%d", v.Int)
	case VFloat:
		return fmt.Sprintf("%g", v.Float)
	case VBool:
		return fmt.Sprintf("%t", v.Bool)
	case VFun:
		return fmt.Sprintf("fun#%d", v.Fun.Index)
	case VNative:
		return "native"
	case VAny:
		return fmt.Sprintf("any(%s:%s)", v.AnyVal, v.AnyType)
	default:
		return "?"
	}
}

// Equal implements structural equality of the tagged value for
// Eq/NotEq.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case VNull:
		return true
	case VInt:
		return a.Int == b.Int
	case VFloat:
		return a.Float == b.Float
	case VBool:
		return a.Bool == b.Bool
	case VFun:
		return a.Fun == b.Fun
	case VNative:
		return false // distinct native closures are never structurally equal
	case VAny:
		if !hltypes.Equal(a.AnyType, b.AnyType) {
			return false
		}
		return Equal(*a.AnyVal, *b.AnyVal)
	default:
		return false
	}
}
