// Package bytecode defines the module data model: the typed
// register-based instruction set and the module / function-declaration
// records. It mirrors the tagged sum layout the teacher's MIR
// instructions use (a Kind discriminant plus one populated payload
// struct per kind) rather than an interface hierarchy, since the
// instruction set is closed and exhaustively switched over everywhere
// it is consumed.
package bytecode

// RegID is a function-local index into a FunDecl's Regs.
type RegID uint32

// GlobalID is a module-wide index into a Module's Globals.
type GlobalID uint32

// OpKind discriminates an Op's populated payload field. Numeric values
// are for internal dispatch only; the on-wire tag byte is assigned by
// the writer, not by this enum's order.
type OpKind uint8

const (
	OpMov OpKind = iota
	OpInt
	OpFloat
	OpBoolTrue
	OpBoolFalse
	OpAdd
	OpSub
	OpIncr
	OpDecr
	OpCall0
	OpCall1
	OpCall2
	OpCall3
	OpCallN
	OpGetGlobal
	OpSetGlobal
	OpEq
	OpNotEq
	OpLt
	OpGte
	OpRet
	OpJTrue
	OpJFalse
	OpJNull
	OpJNotNull
	OpJAlways
	OpToAny
)

// String renders an OpKind's mnemonic, matching the textual dump format
// where applicable.
func (k OpKind) String() string {
	switch k {
	case OpMov:
		return "mov"
	case OpInt:
		return "int"
	case OpFloat:
		return "float"
	case OpBoolTrue:
		return "true"
	case OpBoolFalse:
		return "false"
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpIncr:
		return "incr"
	case OpDecr:
		return "decr"
	case OpCall0, OpCall1, OpCall2, OpCall3, OpCallN:
		return "call"
	case OpGetGlobal:
		return "global"
	case OpSetGlobal:
		return "setglobal"
	case OpEq:
		return "eq"
	case OpNotEq:
		return "noteq"
	case OpLt:
		return "lt"
	case OpGte:
		return "gte"
	case OpRet:
		return "ret"
	case OpJTrue:
		return "jtrue"
	case OpJFalse:
		return "jfalse"
	case OpJNull:
		return "jnull"
	case OpJNotNull:
		return "jnotnull"
	case OpJAlways:
		return "jalways"
	case OpToAny:
		return "toany"
	default:
		return "?"
	}
}

// MovOp copies a register's value: dst = src. Requires type(dst) == type(src).
type MovOp struct{ Dst, Src RegID }

// IntOp loads an integer literal. Value is kept as the full signed
// magnitude; the writer picks the 1-byte (u8) or 4-byte (i32) wire form
// based on whether it fits [0,255].
type IntOp struct {
	Dst   RegID
	Value int32
}

// FloatOp loads a float constant by index into the module's float pool.
type FloatOp struct {
	Dst     RegID
	PoolIdx int
}

// BoolOp loads a boolean literal (OpBoolTrue / OpBoolFalse carry no
// value field; the kind itself is the literal).
type BoolOp struct{ Dst RegID }

// BinOp is the shared shape of Add, Sub, Eq, NotEq, Lt, Gte: dst = a OP b.
type BinOp struct{ Dst, A, B RegID }

// UnaryOp is the shared shape of Incr and Decr: reg = reg +/- 1.
type UnaryOp struct{ Reg RegID }

// CallOp is the fixed-arity call form (Call0..Call3): the callee is a
// global slot (globals[Global] must be a Fun type), not a register.
type CallOp struct {
	Dst    RegID
	Global GlobalID
	Args   []RegID // len 0..3, matching the opcode kind
}

// CallNOp is the variable-arity call form used by the compiler's lowering
// of every source Call expression: the callee is a register holding a
// Fun value.
type CallNOp struct {
	Dst    RegID
	Callee RegID
	Args   []RegID
}

// GlobalOp is the shared shape of GetGlobal and SetGlobal.
type GlobalOp struct {
	Reg    RegID
	Global GlobalID
}

// RetOp terminates the current frame, yielding Reg's value to the caller.
type RetOp struct{ Reg RegID }

// JumpOp is the shared shape of the five jump opcodes. Reg is unused by
// JAlways. Delta is relative to the instruction immediately after the
// jump, so a forward jump can be patched once its target is known.
type JumpOp struct {
	Reg   RegID
	Delta int32
}

// ToAnyOp boxes Src into the dynamic Any representation, storing it in Dst
// along with Src's static type.
type ToAnyOp struct{ Dst, Src RegID }

// Op is one instruction. Exactly one payload field is meaningful,
// selected by Kind; the rest are zero values.
type Op struct {
	Kind OpKind

	Mov    MovOp
	Int    IntOp
	Float  FloatOp
	Bool   BoolOp
	Bin    BinOp
	Unary  UnaryOp
	Call   CallOp
	CallN  CallNOp
	Global GlobalOp
	Ret    RetOp
	Jump   JumpOp
	ToAny  ToAnyOp
}

// Mov builds an OpMov instruction.
func Mov(dst, src RegID) Op { return Op{Kind: OpMov, Mov: MovOp{Dst: dst, Src: src}} }

// Int builds an OpInt instruction.
func Int(dst RegID, value int32) Op { return Op{Kind: OpInt, Int: IntOp{Dst: dst, Value: value}} }

// Float builds an OpFloat instruction.
func Float(dst RegID, poolIdx int) Op {
	return Op{Kind: OpFloat, Float: FloatOp{Dst: dst, PoolIdx: poolIdx}}
}

// BoolLit builds an OpBoolTrue or OpBoolFalse instruction.
func BoolLit(dst RegID, v bool) Op {
	if v {
		return Op{Kind: OpBoolTrue, Bool: BoolOp{Dst: dst}}
	}
	return Op{Kind: OpBoolFalse, Bool: BoolOp{Dst: dst}}
}

// Add builds an OpAdd instruction.
func Add(dst, a, b RegID) Op { return Op{Kind: OpAdd, Bin: BinOp{Dst: dst, A: a, B: b}} }

// Sub builds an OpSub instruction.
func Sub(dst, a, b RegID) Op { return Op{Kind: OpSub, Bin: BinOp{Dst: dst, A: a, B: b}} }

// Eq builds an OpEq instruction.
func Eq(dst, a, b RegID) Op { return Op{Kind: OpEq, Bin: BinOp{Dst: dst, A: a, B: b}} }

// NotEq builds an OpNotEq instruction.
func NotEq(dst, a, b RegID) Op { return Op{Kind: OpNotEq, Bin: BinOp{Dst: dst, A: a, B: b}} }

// Lt builds an OpLt instruction.
func Lt(dst, a, b RegID) Op { return Op{Kind: OpLt, Bin: BinOp{Dst: dst, A: a, B: b}} }

// Gte builds an OpGte instruction.
func Gte(dst, a, b RegID) Op { return Op{Kind: OpGte, Bin: BinOp{Dst: dst, A: a, B: b}} }

// Incr builds an OpIncr instruction.
func Incr(reg RegID) Op { return Op{Kind: OpIncr, Unary: UnaryOp{Reg: reg}} }

// Decr builds an OpDecr instruction.
func Decr(reg RegID) Op { return Op{Kind: OpDecr, Unary: UnaryOp{Reg: reg}} }

// CallFixed builds a Call0..Call3 instruction; the kind is derived from
// len(args), which must be 0..3.
func CallFixed(dst RegID, global GlobalID, args []RegID) Op {
	var kind OpKind
	switch len(args) {
	case 0:
		kind = OpCall0
	case 1:
		kind = OpCall1
	case 2:
		kind = OpCall2
	case 3:
		kind = OpCall3
	default:
		panic("bytecode: CallFixed supports at most 3 arguments")
	}
	return Op{Kind: kind, Call: CallOp{Dst: dst, Global: global, Args: args}}
}

// CallN builds a variable-arity call instruction.
func CallN(dst, callee RegID, args []RegID) Op {
	return Op{Kind: OpCallN, CallN: CallNOp{Dst: dst, Callee: callee, Args: args}}
}

// GetGlobal builds an OpGetGlobal instruction.
func GetGlobal(reg RegID, global GlobalID) Op {
	return Op{Kind: OpGetGlobal, Global: GlobalOp{Reg: reg, Global: global}}
}

// SetGlobal builds an OpSetGlobal instruction.
func SetGlobal(reg RegID, global GlobalID) Op {
	return Op{Kind: OpSetGlobal, Global: GlobalOp{Reg: reg, Global: global}}
}

// Ret builds an OpRet instruction.
func Ret(reg RegID) Op { return Op{Kind: OpRet, Ret: RetOp{Reg: reg}} }

// JTrue builds a conditional jump taken when reg is true.
func JTrue(reg RegID, delta int32) Op { return Op{Kind: OpJTrue, Jump: JumpOp{Reg: reg, Delta: delta}} }

// JFalse builds a conditional jump taken when reg is false.
func JFalse(reg RegID, delta int32) Op {
	return Op{Kind: OpJFalse, Jump: JumpOp{Reg: reg, Delta: delta}}
}

// JNull builds a conditional jump taken when reg is Null.
func JNull(reg RegID, delta int32) Op { return Op{Kind: OpJNull, Jump: JumpOp{Reg: reg, Delta: delta}} }

// JNotNull builds a conditional jump taken when reg is not Null.
func JNotNull(reg RegID, delta int32) Op {
	return Op{Kind: OpJNotNull, Jump: JumpOp{Reg: reg, Delta: delta}}
}

// JAlways builds an unconditional jump.
func JAlways(delta int32) Op { return Op{Kind: OpJAlways, Jump: JumpOp{Delta: delta}} }

// ToAny builds an OpToAny instruction.
func ToAny(dst, src RegID) Op { return Op{Kind: OpToAny, ToAny: ToAnyOp{Dst: dst, Src: src}} }

// JumpTargetInRange reports whether a jump at instruction index pos with
// delta d lands inside [0, codeLen).
func JumpTargetInRange(pos int, d int32, codeLen int) bool {
	target := pos + 1 + int(d)
	return target >= 0 && target < codeLen
}
