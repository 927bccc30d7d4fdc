package interp

import (
	"fmt"

	"hlbc/internal/bytecode"
	"hlbc/internal/diagx"
	"hlbc/internal/hltypes"
)

// step executes one instruction against frame, returning (returnValue,
// true, nil) when the instruction is a Ret, or (_, false, nil) to keep
// running. A verified module never reaches the error path below; it
// exists only to turn an internal invariant violation into a
// diagnostic instead of a panic.
func (i *Interp) step(frame *Frame, op bytecode.Op) (Value, bool, error) {
	switch op.Kind {
	case bytecode.OpMov:
		frame.regs[op.Mov.Dst] = frame.regs[op.Mov.Src]

	case bytecode.OpInt:
		frame.regs[op.Int.Dst] = Value{Kind: VInt, Int: op.Int.Value}

	case bytecode.OpFloat:
		frame.regs[op.Float.Dst] = Value{Kind: VFloat, Float: i.mod.Floats[op.Float.PoolIdx]}

	case bytecode.OpBoolTrue:
		frame.regs[op.Bool.Dst] = Value{Kind: VBool, Bool: true}

	case bytecode.OpBoolFalse:
		frame.regs[op.Bool.Dst] = Value{Kind: VBool, Bool: false}

	case bytecode.OpAdd:
		frame.regs[op.Bin.Dst] = arith(frame.fn.Regs[op.Bin.Dst], frame.regs[op.Bin.A], frame.regs[op.Bin.B], addOp)

	case bytecode.OpSub:
		frame.regs[op.Bin.Dst] = arith(frame.fn.Regs[op.Bin.Dst], frame.regs[op.Bin.A], frame.regs[op.Bin.B], subOp)

	case bytecode.OpIncr:
		frame.regs[op.Unary.Reg] = arith(frame.fn.Regs[op.Unary.Reg], frame.regs[op.Unary.Reg], Value{Kind: VInt, Int: 1}, addOp)

	case bytecode.OpDecr:
		frame.regs[op.Unary.Reg] = arith(frame.fn.Regs[op.Unary.Reg], frame.regs[op.Unary.Reg], Value{Kind: VInt, Int: 1}, subOp)

	case bytecode.OpCall0, bytecode.OpCall1, bytecode.OpCall2, bytecode.OpCall3:
		v, err := i.doCallFixed(frame, op.Call)
		if err != nil {
			return Value{}, false, err
		}
		frame.regs[op.Call.Dst] = v

	case bytecode.OpCallN:
		v, err := i.doCallN(frame, op.CallN)
		if err != nil {
			return Value{}, false, err
		}
		frame.regs[op.CallN.Dst] = v

	case bytecode.OpGetGlobal:
		frame.regs[op.Global.Reg] = i.globals[op.Global.Global]

	case bytecode.OpSetGlobal:
		i.globals[op.Global.Global] = frame.regs[op.Global.Reg]

	case bytecode.OpEq:
		frame.regs[op.Bin.Dst] = Value{Kind: VBool, Bool: Equal(frame.regs[op.Bin.A], frame.regs[op.Bin.B])}

	case bytecode.OpNotEq:
		frame.regs[op.Bin.Dst] = Value{Kind: VBool, Bool: !Equal(frame.regs[op.Bin.A], frame.regs[op.Bin.B])}

	case bytecode.OpLt:
		lt, err := numericCompare(frame.regs[op.Bin.A], frame.regs[op.Bin.B])
		if err != nil {
			return Value{}, false, err
		}
		frame.regs[op.Bin.Dst] = Value{Kind: VBool, Bool: lt < 0}

	case bytecode.OpGte:
		cmp, err := numericCompare(frame.regs[op.Bin.A], frame.regs[op.Bin.B])
		if err != nil {
			return Value{}, false, err
		}
		frame.regs[op.Bin.Dst] = Value{Kind: VBool, Bool: cmp >= 0}

	case bytecode.OpRet:
		return frame.regs[op.Ret.Reg], true, nil

	case bytecode.OpJTrue:
		if frame.regs[op.Jump.Reg].Bool {
			frame.pc += int(op.Jump.Delta)
		}

	case bytecode.OpJFalse:
		if !frame.regs[op.Jump.Reg].Bool {
			frame.pc += int(op.Jump.Delta)
		}

	case bytecode.OpJNull:
		if frame.regs[op.Jump.Reg].Kind == VNull {
			frame.pc += int(op.Jump.Delta)
		}

	case bytecode.OpJNotNull:
		if frame.regs[op.Jump.Reg].Kind != VNull {
			frame.pc += int(op.Jump.Delta)
		}

	case bytecode.OpJAlways:
		frame.pc += int(op.Jump.Delta)

	case bytecode.OpToAny:
		src := frame.regs[op.ToAny.Src]
		frame.regs[op.ToAny.Dst] = Value{Kind: VAny, AnyVal: &src, AnyType: frame.fn.Regs[op.ToAny.Src]}

	default:
		return Value{}, false, diagx.New(diagx.InternalInvariant, fmt.Sprintf("unhandled opcode kind %d", op.Kind))
	}
	return Value{}, false, nil
}

func (i *Interp) doCallFixed(frame *Frame, c bytecode.CallOp) (Value, error) {
	callee := i.globals[c.Global]
	args := make([]Value, len(c.Args))
	for idx, r := range c.Args {
		args[idx] = frame.regs[r]
	}
	return i.invoke(callee, args)
}

func (i *Interp) doCallN(frame *Frame, c bytecode.CallNOp) (Value, error) {
	callee := frame.regs[c.Callee]
	args := make([]Value, len(c.Args))
	for idx, r := range c.Args {
		args[idx] = frame.regs[r]
	}
	return i.invoke(callee, args)
}

func (i *Interp) invoke(callee Value, args []Value) (Value, error) {
	switch callee.Kind {
	case VFun:
		return i.call(callee.Fun, args)
	case VNative:
		return callee.Native(args), nil
	default:
		return Value{}, diagx.New(diagx.InternalInvariant, fmt.Sprintf("call target has kind %s, expected Fun or NativeFun", callee.Kind))
	}
}

type binOpKind uint8

const (
	addOp binOpKind = iota
	subOp
)

// arith applies +/- with wraparound semantics chosen per destination
// type: UI8 wraps modulo 256, I32 wraps with two's-complement overflow
// (Go's native int32 arithmetic already does this), F32/F64 use IEEE
// 754 addition/subtraction.
func arith(dstType hltypes.Type, a, b Value, op binOpKind) Value {
	switch dstType.Tag {
	case hltypes.UI8:
		var r int32
		if op == addOp {
			r = a.Int + b.Int
		} else {
			r = a.Int - b.Int
		}
		return Value{Kind: VInt, Int: r & 0xFF}
	case hltypes.I32:
		var r int32
		if op == addOp {
			r = a.Int + b.Int
		} else {
			r = a.Int - b.Int
		}
		return Value{Kind: VInt, Int: r}
	case hltypes.F32:
		var r float64
		if op == addOp {
			r = a.Float + b.Float
		} else {
			r = a.Float - b.Float
		}
		return Value{Kind: VFloat, Float: float64(float32(r))}
	default: // F64
		var r float64
		if op == addOp {
			r = a.Float + b.Float
		} else {
			r = a.Float - b.Float
		}
		return Value{Kind: VFloat, Float: r}
	}
}

// numericCompare returns -1/0/1 for Lt/Gte's shared ordering logic. The
// verifier has already confirmed a and b carry the same numeric kind.
func numericCompare(a, b Value) (int, error) {
	switch a.Kind {
	case VInt:
		switch {
		case a.Int < b.Int:
			return -1, nil
		case a.Int > b.Int:
			return 1, nil
		default:
			return 0, nil
		}
	case VFloat:
		switch {
		case a.Float < b.Float:
			return -1, nil
		case a.Float > b.Float:
			return 1, nil
		default:
			return 0, nil
		}
	default:
		return 0, diagx.New(diagx.InternalInvariant, fmt.Sprintf("lt/gte operand has non-numeric kind %s", a.Kind))
	}
}
