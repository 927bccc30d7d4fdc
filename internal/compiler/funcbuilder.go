package compiler

import (
	"hlbc/internal/bytecode"
	"hlbc/internal/hlast"
	"hlbc/internal/hltypes"
)

// funcBuilder accumulates one function's registers and emitted opcodes
// while lowering its body. Registers are never freed within a
// function; regs grows monotonically.
type funcBuilder struct {
	c     *Compiler
	regs  []hltypes.Type
	byVar map[hlast.VarID]bytecode.RegID
	code  []bytecode.Op
}

func newFuncBuilder(c *Compiler) *funcBuilder {
	return &funcBuilder{c: c, byVar: make(map[hlast.VarID]bytecode.RegID)}
}

// allocReg allocates a fresh temporary register of type t. Temporaries
// are never entered into byVar; that map only tracks named locals, so
// allocating a temporary returns a register id without advancing the
// lookup map.
func (fb *funcBuilder) allocReg(t hltypes.Type) bytecode.RegID {
	id := bytecode.RegID(len(fb.regs))
	fb.regs = append(fb.regs, t)
	return id
}

// regFor returns the stable register for a local variable, allocating one
// on first reference.
func (fb *funcBuilder) regFor(v *hlast.Var) bytecode.RegID {
	if r, ok := fb.byVar[v.ID]; ok {
		return r
	}
	r := fb.allocReg(v.Type)
	fb.byVar[v.ID] = r
	return r
}

// emit appends op and returns its instruction index.
func (fb *funcBuilder) emit(op bytecode.Op) int {
	idx := len(fb.code)
	fb.code = append(fb.code, op)
	return idx
}

// patch writes a jump's delta so that it targets instruction index
// target, relative to the instruction after the jump.
func (fb *funcBuilder) patch(site int, target int) {
	d := int32(target - (site + 1))
	fb.code[site].Jump.Delta = d
}

// here returns the index the next emit call will use, the natural
// patch target for "jump to right after this point".
func (fb *funcBuilder) here() int {
	return len(fb.code)
}
