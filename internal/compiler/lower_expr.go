package compiler

import (
	"fmt"

	"hlbc/internal/bytecode"
	"hlbc/internal/diagx"
	"hlbc/internal/hlast"
	"hlbc/internal/hltypes"
)

// lowerExpr lowers one expression, returning the register holding its
// value. This is the per-expression-kind dispatch table for the
// lowering contract.
func (fb *funcBuilder) lowerExpr(e *hlast.Expr) (bytecode.RegID, error) {
	switch e.Kind {
	case hlast.EConstInt:
		r := fb.allocReg(hltypes.Basic(hltypes.I32))
		fb.emit(bytecode.Int(r, e.ConstInt))
		return r, nil

	case hlast.EConstFloat:
		idx := fb.c.internFloat(e.ConstFloat)
		r := fb.allocReg(hltypes.Basic(hltypes.F64))
		fb.emit(bytecode.Float(r, idx))
		return r, nil

	case hlast.EConstBool:
		r := fb.allocReg(hltypes.Basic(hltypes.Bool))
		fb.emit(bytecode.BoolLit(r, e.ConstBool))
		return r, nil

	case hlast.ELocal:
		return fb.regFor(e.Var), nil

	case hlast.EParen:
		return fb.lowerExpr(e.Inner)

	case hlast.EBlock:
		return fb.lowerBlock(e.Block)

	case hlast.EReturn:
		return fb.lowerReturn(e)

	case hlast.EFieldStatic:
		name := e.ClassPath + ":" + e.FieldName
		g := fb.c.internGlobal(name, e.Type)
		r := fb.allocReg(e.Type)
		fb.emit(bytecode.GetGlobal(r, g))
		return r, nil

	case hlast.ECall:
		return fb.lowerCall(e)

	case hlast.EIf:
		return fb.lowerIf(e)

	case hlast.EBinop:
		return fb.lowerBinop(e)

	default:
		return 0, diagx.New(diagx.UnsupportedConstruct, fmt.Sprintf("unsupported expression kind %d", e.Kind))
	}
}

func (fb *funcBuilder) lowerBlock(children []hlast.Expr) (bytecode.RegID, error) {
	if len(children) == 0 {
		return fb.allocReg(hltypes.Basic(hltypes.Void)), nil
	}
	var last bytecode.RegID
	for i := range children {
		r, err := fb.lowerExpr(&children[i])
		if err != nil {
			return 0, err
		}
		last = r
	}
	return last, nil
}

func (fb *funcBuilder) lowerReturn(e *hlast.Expr) (bytecode.RegID, error) {
	if e.Ret == nil {
		v := fb.allocReg(hltypes.Basic(hltypes.Void))
		fb.emit(bytecode.Ret(v))
		return v, nil
	}
	r, err := fb.lowerExpr(e.Ret)
	if err != nil {
		return 0, err
	}
	fb.emit(bytecode.Ret(r))
	return fb.allocReg(hltypes.Basic(hltypes.Void)), nil
}

func (fb *funcBuilder) lowerCall(e *hlast.Expr) (bytecode.RegID, error) {
	calleeReg, err := fb.lowerExpr(e.Callee)
	if err != nil {
		return 0, err
	}
	calleeType := e.Callee.Type
	if calleeType.Tag != hltypes.Fun {
		return 0, diagx.New(diagx.UnsupportedConstruct,
			fmt.Sprintf("call target has non-function type %s", calleeType))
	}
	if len(e.Args) != len(calleeType.Args) {
		return 0, diagx.New(diagx.UnsupportedConstruct,
			fmt.Sprintf("call has %d arguments, callee expects %d", len(e.Args), len(calleeType.Args)))
	}
	argRegs := make([]bytecode.RegID, len(e.Args))
	for i := range e.Args {
		argReg, err := fb.lowerExpr(&e.Args[i])
		if err != nil {
			return 0, err
		}
		coerced, err := fb.coerce(argReg, e.Args[i].Type, calleeType.Args[i])
		if err != nil {
			return 0, err
		}
		argRegs[i] = coerced
	}
	dst := fb.allocReg(calleeType.Ret)
	fb.emit(bytecode.CallN(dst, calleeReg, argRegs))
	return dst, nil
}

func (fb *funcBuilder) lowerIf(e *hlast.Expr) (bytecode.RegID, error) {
	result := fb.allocReg(e.Type)
	condReg, err := fb.lowerExpr(e.Cond)
	if err != nil {
		return 0, err
	}
	jf := fb.emit(bytecode.JFalse(condReg, 0))

	thenReg, err := fb.lowerExpr(e.Then)
	if err != nil {
		return 0, err
	}
	fb.emit(bytecode.Mov(result, thenReg))

	if e.Else != nil {
		ja := fb.emit(bytecode.JAlways(0))
		fb.patch(jf, fb.here())

		elseReg, err := fb.lowerExpr(e.Else)
		if err != nil {
			return 0, err
		}
		fb.emit(bytecode.Mov(result, elseReg))
		fb.patch(ja, fb.here())
	} else {
		fb.patch(jf, fb.here())
	}
	return result, nil
}

func (fb *funcBuilder) lowerBinop(e *hlast.Expr) (bytecode.RegID, error) {
	switch e.Op {
	case hlast.OpAdd, hlast.OpSub:
		a, err := fb.lowerExpr(e.Left)
		if err != nil {
			return 0, err
		}
		b, err := fb.lowerExpr(e.Right)
		if err != nil {
			return 0, err
		}
		r := fb.allocReg(e.Type)
		if e.Op == hlast.OpAdd {
			fb.emit(bytecode.Add(r, a, b))
		} else {
			fb.emit(bytecode.Sub(r, a, b))
		}
		return r, nil

	case hlast.OpLe:
		// a <= b lowers as Gte(r, b, a): operand order reversed, opcode is Gte.
		a, err := fb.lowerExpr(e.Left)
		if err != nil {
			return 0, err
		}
		b, err := fb.lowerExpr(e.Right)
		if err != nil {
			return 0, err
		}
		r := fb.allocReg(hltypes.Basic(hltypes.Bool))
		fb.emit(bytecode.Gte(r, b, a))
		return r, nil

	default:
		return 0, diagx.New(diagx.UnsupportedConstruct, fmt.Sprintf("binary operator %d is not in the minimum core", e.Op))
	}
}
