package compiler

import (
	"fmt"

	"hlbc/internal/bytecode"
	"hlbc/internal/diagx"
	"hlbc/internal/hltypes"
)

// coerce implements the lowering coercion contract: a no-op if the
// types already match, a ToAny box if the target is Any, and a fatal
// invalid-coercion diagnostic for anything else.
func (fb *funcBuilder) coerce(srcReg bytecode.RegID, srcType, target hltypes.Type) (bytecode.RegID, error) {
	if hltypes.Equal(srcType, target) {
		return srcReg, nil
	}
	if target.Tag == hltypes.Any {
		dst := fb.allocReg(hltypes.Basic(hltypes.Any))
		fb.emit(bytecode.ToAny(dst, srcReg))
		return dst, nil
	}
	return 0, diagx.New(diagx.InvalidCoercion,
		fmt.Sprintf("cannot coerce %s to %s", srcType, target))
}
