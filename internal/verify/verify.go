// Package verify implements the per-function static type and jump
// checker. It runs once per function before the function is ever
// interpreted or serialized; the interpreter trusts a verified module
// and treats any shape mismatch it still encounters as an internal
// invariant violation.
package verify

import (
	"fmt"

	"hlbc/internal/bytecode"
	"hlbc/internal/diagx"
	"hlbc/internal/hltypes"
)

// Module verifies every function in mod, reporting the first violation
// encountered (in function order, then instruction order).
func Module(mod *bytecode.Module) error {
	for i := range mod.Functions {
		if err := Function(mod, i); err != nil {
			return err
		}
	}
	return nil
}

// Function verifies mod.Functions[fnIdx] in isolation.
func Function(mod *bytecode.Module, fnIdx int) error {
	fn := &mod.Functions[fnIdx]
	calleeType, ok := mod.Global(fn.Index)
	if !ok {
		return diagx.At(diagx.VerifierViolation, fnIdx, -1, fmt.Sprintf("function index %d references out-of-range global %d", fnIdx, fn.Index))
	}
	if calleeType.Tag != hltypes.Fun {
		return diagx.At(diagx.VerifierViolation, fnIdx, -1, fmt.Sprintf("globals[%d] has shape %s, expected Fun", fn.Index, calleeType))
	}
	if len(fn.Regs) < len(calleeType.Args) {
		return diagx.At(diagx.VerifierViolation, fnIdx, -1,
			fmt.Sprintf("len(regs)=%d is less than argument count %d", len(fn.Regs), len(calleeType.Args)))
	}
	for i, argT := range calleeType.Args {
		if !hltypes.Equal(fn.Regs[i], argT) {
			return diagx.At(diagx.VerifierViolation, fnIdx, -1,
				fmt.Sprintf("register %d has type %s, expected argument type %s", i, fn.Regs[i], argT))
		}
	}

	v := &funcVerifier{mod: mod, fn: fn, fnIdx: fnIdx, retType: calleeType.Ret}
	for pc, op := range fn.Code {
		if err := v.checkOp(pc, op); err != nil {
			return err
		}
	}
	return nil
}

type funcVerifier struct {
	mod     *bytecode.Module
	fn      *bytecode.FunDecl
	fnIdx   int
	retType hltypes.Type
}

func (v *funcVerifier) fail(pc int, format string, args ...any) error {
	return diagx.At(diagx.VerifierViolation, v.fnIdx, pc, fmt.Sprintf(format, args...))
}

func (v *funcVerifier) regType(pc int, r bytecode.RegID) (hltypes.Type, error) {
	if int(r) < 0 || int(r) >= len(v.fn.Regs) {
		return hltypes.Type{}, v.fail(pc, "register %d out of range (nRegs=%d)", r, len(v.fn.Regs))
	}
	return v.fn.Regs[r], nil
}

func (v *funcVerifier) globalType(pc int, g bytecode.GlobalID) (hltypes.Type, error) {
	t, ok := v.mod.Global(g)
	if !ok {
		return hltypes.Type{}, v.fail(pc, "global %d out of range", g)
	}
	return t, nil
}

func (v *funcVerifier) checkJumpTarget(pc int, delta int32) error {
	if !bytecode.JumpTargetInRange(pc, delta, len(v.fn.Code)) {
		return v.fail(pc, "jump target %d is out of range [0,%d)", pc+1+int(delta), len(v.fn.Code))
	}
	return nil
}

func (v *funcVerifier) checkOp(pc int, op bytecode.Op) error {
	switch op.Kind {
	case bytecode.OpMov:
		a, err := v.regType(pc, op.Mov.Dst)
		if err != nil {
			return err
		}
		b, err := v.regType(pc, op.Mov.Src)
		if err != nil {
			return err
		}
		if !hltypes.Equal(a, b) {
			return v.fail(pc, "mov: type(dst)=%s != type(src)=%s", a, b)
		}

	case bytecode.OpInt:
		rt, err := v.regType(pc, op.Int.Dst)
		if err != nil {
			return err
		}
		if rt.Tag == hltypes.UI8 {
			if op.Int.Value < 0 || op.Int.Value > 255 {
				return v.fail(pc, "int: value %d does not fit UI8 [0,255]", op.Int.Value)
			}
		} else if rt.Tag != hltypes.I32 {
			return v.fail(pc, "int: type(r)=%s, expected UI8 or I32", rt)
		}

	case bytecode.OpFloat:
		rt, err := v.regType(pc, op.Float.Dst)
		if err != nil {
			return err
		}
		if rt.Tag != hltypes.F32 && rt.Tag != hltypes.F64 {
			return v.fail(pc, "float: type(r)=%s, expected F32 or F64", rt)
		}
		if op.Float.PoolIdx < 0 || op.Float.PoolIdx >= len(v.mod.Floats) {
			return v.fail(pc, "float: pool index %d out of range", op.Float.PoolIdx)
		}

	case bytecode.OpBoolTrue, bytecode.OpBoolFalse:
		rt, err := v.regType(pc, op.Bool.Dst)
		if err != nil {
			return err
		}
		if rt.Tag != hltypes.Bool {
			return v.fail(pc, "bool: type(r)=%s, expected Bool", rt)
		}

	case bytecode.OpAdd, bytecode.OpSub:
		if err := v.checkArith(pc, op.Bin); err != nil {
			return err
		}

	case bytecode.OpIncr, bytecode.OpDecr:
		rt, err := v.regType(pc, op.Unary.Reg)
		if err != nil {
			return err
		}
		if rt.Tag != hltypes.UI8 && rt.Tag != hltypes.I32 {
			return v.fail(pc, "incr/decr: type(r)=%s, expected UI8 or I32", rt)
		}

	case bytecode.OpCall0, bytecode.OpCall1, bytecode.OpCall2, bytecode.OpCall3:
		if err := v.checkCallFixed(pc, op.Call); err != nil {
			return err
		}

	case bytecode.OpCallN:
		if err := v.checkCallN(pc, op.CallN); err != nil {
			return err
		}

	case bytecode.OpGetGlobal, bytecode.OpSetGlobal:
		if err := v.checkGlobalOp(pc, op.Global); err != nil {
			return err
		}

	case bytecode.OpEq, bytecode.OpNotEq, bytecode.OpLt, bytecode.OpGte:
		if err := v.checkCompare(pc, op.Bin); err != nil {
			return err
		}

	case bytecode.OpRet:
		rt, err := v.regType(pc, op.Ret.Reg)
		if err != nil {
			return err
		}
		if !hltypes.Equal(rt, v.retType) {
			return v.fail(pc, "ret: type(r)=%s, expected function return type %s", rt, v.retType)
		}

	case bytecode.OpJTrue, bytecode.OpJFalse:
		rt, err := v.regType(pc, op.Jump.Reg)
		if err != nil {
			return err
		}
		if rt.Tag != hltypes.Bool {
			return v.fail(pc, "jtrue/jfalse: type(r)=%s, expected Bool", rt)
		}
		if err := v.checkJumpTarget(pc, op.Jump.Delta); err != nil {
			return err
		}

	case bytecode.OpJNull, bytecode.OpJNotNull:
		if _, err := v.regType(pc, op.Jump.Reg); err != nil {
			return err
		}
		if err := v.checkJumpTarget(pc, op.Jump.Delta); err != nil {
			return err
		}

	case bytecode.OpJAlways:
		if err := v.checkJumpTarget(pc, op.Jump.Delta); err != nil {
			return err
		}

	case bytecode.OpToAny:
		rt, err := v.regType(pc, op.ToAny.Dst)
		if err != nil {
			return err
		}
		if rt.Tag != hltypes.Any {
			return v.fail(pc, "toany: type(dst)=%s, expected Any", rt)
		}
		if _, err := v.regType(pc, op.ToAny.Src); err != nil {
			return err
		}

	default:
		return v.fail(pc, "unknown opcode kind %d", op.Kind)
	}
	return nil
}

func (v *funcVerifier) checkArith(pc int, b bytecode.BinOp) error {
	rt, err := v.regType(pc, b.Dst)
	if err != nil {
		return err
	}
	if !rt.IsNumeric() {
		return v.fail(pc, "add/sub: type(r)=%s is not numeric", rt)
	}
	at, err := v.regType(pc, b.A)
	if err != nil {
		return err
	}
	bt, err := v.regType(pc, b.B)
	if err != nil {
		return err
	}
	if !hltypes.Equal(at, rt) || !hltypes.Equal(bt, rt) {
		return v.fail(pc, "add/sub: type(a)=%s, type(b)=%s, type(r)=%s must all match", at, bt, rt)
	}
	return nil
}

func (v *funcVerifier) checkCompare(pc int, b bytecode.BinOp) error {
	rt, err := v.regType(pc, b.Dst)
	if err != nil {
		return err
	}
	if rt.Tag != hltypes.Bool {
		return v.fail(pc, "eq/noteq/lt/gte: type(r)=%s, expected Bool", rt)
	}
	at, err := v.regType(pc, b.A)
	if err != nil {
		return err
	}
	bt, err := v.regType(pc, b.B)
	if err != nil {
		return err
	}
	if !hltypes.Equal(at, bt) {
		return v.fail(pc, "eq/noteq/lt/gte: type(a)=%s != type(b)=%s", at, bt)
	}
	return nil
}

func (v *funcVerifier) checkCallFixed(pc int, c bytecode.CallOp) error {
	ft, err := v.globalType(pc, c.Global)
	if err != nil {
		return err
	}
	if ft.Tag != hltypes.Fun {
		return v.fail(pc, "call: globals[%d] has shape %s, expected Fun", c.Global, ft)
	}
	if len(c.Args) != len(ft.Args) {
		return v.fail(pc, "call: %d arguments given, callee expects %d", len(c.Args), len(ft.Args))
	}
	for i, a := range c.Args {
		at, err := v.regType(pc, a)
		if err != nil {
			return err
		}
		if !hltypes.Equal(at, ft.Args[i]) {
			return v.fail(pc, "call: argument %d has type %s, expected %s", i, at, ft.Args[i])
		}
	}
	rt, err := v.regType(pc, c.Dst)
	if err != nil {
		return err
	}
	if !hltypes.Equal(rt, ft.Ret) {
		return v.fail(pc, "call: type(r)=%s, expected return type %s", rt, ft.Ret)
	}
	return nil
}

func (v *funcVerifier) checkCallN(pc int, c bytecode.CallNOp) error {
	ft, err := v.regType(pc, c.Callee)
	if err != nil {
		return err
	}
	if ft.Tag != hltypes.Fun {
		return v.fail(pc, "calln: type(callee)=%s, expected Fun", ft)
	}
	if len(c.Args) != len(ft.Args) {
		return v.fail(pc, "calln: %d arguments given, callee expects %d", len(c.Args), len(ft.Args))
	}
	for i, a := range c.Args {
		at, err := v.regType(pc, a)
		if err != nil {
			return err
		}
		if !hltypes.Equal(at, ft.Args[i]) {
			return v.fail(pc, "calln: argument %d has type %s, expected %s", i, at, ft.Args[i])
		}
	}
	rt, err := v.regType(pc, c.Dst)
	if err != nil {
		return err
	}
	if !hltypes.Equal(rt, ft.Ret) {
		return v.fail(pc, "calln: type(r)=%s, expected return type %s", rt, ft.Ret)
	}
	return nil
}

func (v *funcVerifier) checkGlobalOp(pc int, g bytecode.GlobalOp) error {
	gt, err := v.globalType(pc, g.Global)
	if err != nil {
		return err
	}
	rt, err := v.regType(pc, g.Reg)
	if err != nil {
		return err
	}
	if !hltypes.Equal(rt, gt) {
		return v.fail(pc, "getglobal/setglobal: type(r)=%s != globals[%d]=%s", rt, g.Global, gt)
	}
	return nil
}
