// Package hltypes defines the closed value-type universe of the
// bytecode module format: its eight variants, structural equality over
// them, and a textual rendering used only by diagnostics.
package hltypes

import (
	"fmt"
	"strings"
)

// Tag is the stable numeric discriminant for a value type, fixed by
// the on-wire format. Never reorder these.
type Tag uint8

const (
	Void Tag = 0
	UI8  Tag = 1
	I32  Tag = 2
	F32  Tag = 3
	F64  Tag = 4
	Bool Tag = 5
	Any  Tag = 6
	Fun  Tag = 7
)

// MaxFunArity bounds a Fun type's argument count so it fits a single
// byte on the wire.
const MaxFunArity = 255

// String renders a tag's mnemonic name.
func (t Tag) String() string {
	switch t {
	case Void:
		return "Void"
	case UI8:
		return "UI8"
	case I32:
		return "I32"
	case F32:
		return "F32"
	case F64:
		return "F64"
	case Bool:
		return "Bool"
	case Any:
		return "Any"
	case Fun:
		return "Fun"
	default:
		return fmt.Sprintf("Tag(%d)", uint8(t))
	}
}

// Type is a value in the closed type universe. For non-Fun tags, Args and
// Ret are unused. A Fun type's Args/Ret may themselves be Fun, but the
// universe is a DAG: construction never introduces a cycle because a Type
// value only ever embeds other already-built Type values.
type Type struct {
	Tag  Tag
	Args []Type
	Ret  Type
}

// Basic constructs a non-Fun leaf type. Calling Basic(Fun) is a
// programmer error; use NewFun instead.
func Basic(tag Tag) Type {
	if tag == Fun {
		panic("hltypes: Basic called with Fun tag, use NewFun")
	}
	return Type{Tag: tag}
}

// NewFun constructs a function type. It panics if arity exceeds
// MaxFunArity, enforcing the spec's arity invariant at construction time
// rather than deferring the check to the verifier or writer.
func NewFun(args []Type, ret Type) Type {
	if len(args) > MaxFunArity {
		panic(fmt.Sprintf("hltypes: Fun arity %d exceeds maximum %d", len(args), MaxFunArity))
	}
	cp := make([]Type, len(args))
	copy(cp, args)
	return Type{Tag: Fun, Args: cp, Ret: ret}
}

// IsNumeric reports whether t is one of the four numeric leaf types.
func (t Type) IsNumeric() bool {
	switch t.Tag {
	case UI8, I32, F32, F64:
		return true
	default:
		return false
	}
}

// Equal reports structural equality: two Fun types are equal iff their
// arities match and every corresponding argument and return type is equal,
// recursively. Leaf types are equal iff their tags match.
func Equal(a, b Type) bool {
	if a.Tag != b.Tag {
		return false
	}
	if a.Tag != Fun {
		return true
	}
	if len(a.Args) != len(b.Args) {
		return false
	}
	for i := range a.Args {
		if !Equal(a.Args[i], b.Args[i]) {
			return false
		}
	}
	return Equal(a.Ret, b.Ret)
}

// String renders a type for diagnostics, e.g. "Fun(I32, F64 -> Bool)".
func (t Type) String() string {
	if t.Tag != Fun {
		return t.Tag.String()
	}
	args := make([]string, len(t.Args))
	for i, a := range t.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("Fun(%s -> %s)", strings.Join(args, ", "), t.Ret.String())
}
