// Package hlast defines the typed AST node shapes the compiler consumes.
// The real front-end (name resolution, type inference) is an external
// collaborator out of scope for this module; hlast only carries the
// already-resolved tree shape the compiler lowers.
package hlast

import "hlbc/internal/hltypes"

// VarID is a variable's unique identity, stable for the life of the
// method it is declared in. Two Var values with the same ID denote the
// same local: the compiler interns a register per ID, not per
// syntactic occurrence.
type VarID uint32

// Var is a local variable: a unique id, a declared name (for
// diagnostics/dump only), and a resolved type.
type Var struct {
	ID   VarID
	Name string
	Type hltypes.Type
}

// BinOp enumerates the binary operators the minimum core lowers: only +
// and - are lowered directly; <= is lowered as a reversed Gte. Other
// operators are not in the minimum core and are rejected by the
// compiler as an unsupported construct.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpLe
)

// ExprKind discriminates Expr's populated fields.
type ExprKind int

const (
	EConstInt ExprKind = iota
	EConstFloat
	EConstBool
	ELocal
	EReturn
	EParen
	EBlock
	ECall
	EFieldStatic
	EIf
	EBinop
)

// Expr is a typed expression node. Every node carries its resolved
// Type; exactly the fields relevant to Kind are populated.
type Expr struct {
	Kind ExprKind
	Type hltypes.Type

	ConstInt   int32   // EConstInt
	ConstFloat float64 // EConstFloat
	ConstBool  bool    // EConstBool

	Var *Var // ELocal

	Ret *Expr // EReturn; nil means Return(None)

	Inner *Expr // EParen

	Block []Expr // EBlock

	Callee *Expr  // ECall
	Args   []Expr // ECall

	ClassPath string // EFieldStatic
	FieldName string // EFieldStatic

	Cond *Expr // EIf
	Then *Expr // EIf
	Else *Expr // EIf; nil means no else branch

	Op    BinOp // EBinop
	Left  *Expr // EBinop
	Right *Expr // EBinop
}

// Param is a method argument: its local variable and an optional literal
// default expression (must be a constant node or nil).
type Param struct {
	Var     Var
	Default *Expr // nil: no default. A default of "null" is represented as nil too.
}

// NativeMarker is the (libName, funcName) annotation on an extern
// class's static method.
type NativeMarker struct {
	LibName  string
	FuncName string
}

// Method is a static method declaration.
type Method struct {
	Name    string
	Args    []Param
	Ret     hltypes.Type
	Body    Expr          // ignored when Native != nil
	Native  *NativeMarker // non-nil for an extern method
}

// ClassDecl is a type declaration of kind "class". Extern classes
// declare natives instead of lowering method bodies.
type ClassDecl struct {
	Path    string // "ClassPath" used by EFieldStatic and native name construction
	Extern  bool
	Methods []Method
}

// DeclKind discriminates the top-level declarations a source file may
// contain.
type DeclKind int

const (
	DeclClass DeclKind = iota
	DeclTypeAlias
	DeclAbstract
	DeclEnum
	DeclInterface
)

// Decl is one top-level declaration. TypeAlias and Abstract carry no
// payload (they are ignored by the compiler); Enum and Interface are
// unsupported and must be rejected with a clear diagnostic.
type Decl struct {
	Kind  DeclKind
	Class *ClassDecl // only for DeclClass
	Name  string      // for diagnostics on unsupported kinds
}

// Program is the full input to the compiler: every top-level declaration
// in a compilation unit.
type Program struct {
	Decls []Decl
}
