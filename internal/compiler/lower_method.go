package compiler

import (
	"fmt"

	"hlbc/internal/bytecode"
	"hlbc/internal/diagx"
	"hlbc/internal/hlast"
	"hlbc/internal/hltypes"
)

// compileMethod lowers one non-extern method into a FunDecl: argument
// registers and defaults, then the body.
func compileMethod(c *Compiler, m *hlast.Method, global bytecode.GlobalID) (bytecode.FunDecl, error) {
	fb := newFuncBuilder(c)

	argRegs := make([]bytecode.RegID, len(m.Args))
	for i := range m.Args {
		argRegs[i] = fb.allocReg(m.Args[i].Var.Type)
		fb.byVar[m.Args[i].Var.ID] = argRegs[i]
	}

	for i := range m.Args {
		def := m.Args[i].Default
		if def == nil {
			continue
		}
		if err := lowerDefault(fb, argRegs[i], def); err != nil {
			return bytecode.FunDecl{}, err
		}
	}

	if _, err := fb.lowerExpr(&m.Body); err != nil {
		return bytecode.FunDecl{}, err
	}

	if m.Ret.Tag == hltypes.Void {
		v := fb.allocReg(hltypes.Basic(hltypes.Void))
		fb.emit(bytecode.Ret(v))
	}

	return bytecode.FunDecl{Index: global, Regs: fb.regs, Code: fb.code}, nil
}

// lowerDefault emits "JNotNull(argReg, +1); <constant load>" for an
// argument with a literal default. The constant is loaded directly into
// argReg, not a fresh temporary, since the default initializes the
// argument's own slot.
func lowerDefault(fb *funcBuilder, argReg bytecode.RegID, def *hlast.Expr) error {
	site := fb.emit(bytecode.JNotNull(argReg, 0))
	switch def.Kind {
	case hlast.EConstInt:
		fb.emit(bytecode.Int(argReg, def.ConstInt))
	case hlast.EConstFloat:
		idx := fb.c.internFloat(def.ConstFloat)
		fb.emit(bytecode.Float(argReg, idx))
	case hlast.EConstBool:
		fb.emit(bytecode.BoolLit(argReg, def.ConstBool))
	default:
		return diagx.New(diagx.UnsupportedConstruct, fmt.Sprintf("argument default must be a literal constant, got kind %d", def.Kind))
	}
	fb.patch(site, fb.here())
	return nil
}
