package bcio

import (
	"encoding/binary"
	"fmt"
	"math"

	"fortio.org/safecast"

	"hlbc/internal/bytecode"
	"hlbc/internal/diagx"
	"hlbc/internal/hltypes"
)

// magic is the 3-byte file signature.
var magic = [3]byte{'H', 'L', 'B'}

// Encode serializes mod to the on-wire module format.
func Encode(mod *bytecode.Module) ([]byte, error) {
	tt := newTypeTable()

	globalRefs := make([]int, len(mod.Globals))
	for i, t := range mod.Globals {
		globalRefs[i] = tt.ref(t)
	}
	funcRegRefs := make([][]int, len(mod.Functions))
	for fi := range mod.Functions {
		fn := &mod.Functions[fi]
		refs := make([]int, len(fn.Regs))
		for ri, t := range fn.Regs {
			refs[ri] = tt.ref(t)
		}
		funcRegRefs[fi] = refs
	}

	buf := make([]byte, 0, 256)
	buf = append(buf, magic[:]...)
	buf = append(buf, mod.Version)

	var err error
	for _, n := range []int{len(tt.records), len(mod.Globals), len(mod.Floats), len(mod.Natives), len(mod.Functions)} {
		if buf, err = appendVintFromInt(buf, n); err != nil {
			return nil, err
		}
	}
	if buf, err = appendVintFromInt(buf, int(mod.Entrypoint)); err != nil {
		return nil, err
	}

	if buf, err = writeTypesBlock(buf, tt); err != nil {
		return nil, err
	}
	for _, ref := range globalRefs {
		if buf, err = appendVintFromInt(buf, ref); err != nil {
			return nil, err
		}
	}
	for _, f := range mod.Floats {
		var b8 [8]byte
		binary.LittleEndian.PutUint64(b8[:], math.Float64bits(f))
		buf = append(buf, b8[:]...)
	}
	if buf, err = writeNativesBlock(buf, mod); err != nil {
		return nil, err
	}
	for fi := range mod.Functions {
		if buf, err = writeFunction(buf, &mod.Functions[fi], funcRegRefs[fi]); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func appendVintFromInt(buf []byte, v int) ([]byte, error) {
	i32, err := safecast.Convert[int32](v)
	if err != nil {
		return nil, diagx.New(diagx.WriterOverflow, fmt.Sprintf("value %d does not fit int32", v))
	}
	return EncodeVint(buf, i32)
}

func writeTypesBlock(buf []byte, tt *typeTable) ([]byte, error) {
	var err error
	for _, rec := range tt.records {
		if rec.tag != hltypes.Fun {
			buf = append(buf, byte(rec.tag))
			continue
		}
		buf = append(buf, byte(hltypes.Fun))
		argCount, convErr := safecast.Convert[uint8](len(rec.argRefs))
		if convErr != nil {
			return nil, diagx.New(diagx.WriterOverflow, fmt.Sprintf("fun type has %d args, exceeds 255", len(rec.argRefs)))
		}
		buf = append(buf, argCount)
		for _, a := range rec.argRefs {
			if buf, err = appendVintFromInt(buf, a); err != nil {
				return nil, err
			}
		}
		if buf, err = appendVintFromInt(buf, rec.retRef); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// writeNativesBlock extends the natives_block layout (nameLen, name,
// argCount) with a leading vint GlobalId per record. Without the
// leading id, nothing on the wire says which global a native binds to,
// so NativeEntry.Global could not be reconstructed on read and Encode
// followed by Decode would not reproduce the original module.
func writeNativesBlock(buf []byte, mod *bytecode.Module) ([]byte, error) {
	var err error
	for _, nat := range mod.Natives {
		if len(nat.Name) > 255 {
			return nil, diagx.New(diagx.WriterOverflow, fmt.Sprintf("native name %q exceeds 255 bytes", nat.Name))
		}
		gt, ok := mod.Global(nat.Global)
		if !ok || gt.Tag != hltypes.Fun {
			return nil, diagx.New(diagx.WriterOverflow, fmt.Sprintf("native %q is bound to global %d, which is not a Fun", nat.Name, nat.Global))
		}
		argCount, convErr := safecast.Convert[uint8](len(gt.Args))
		if convErr != nil {
			return nil, diagx.New(diagx.WriterOverflow, fmt.Sprintf("native %q has %d arguments, exceeds 255", nat.Name, len(gt.Args)))
		}
		if buf, err = appendVintFromInt(buf, int(nat.Global)); err != nil {
			return nil, err
		}
		buf = append(buf, byte(len(nat.Name)))
		buf = append(buf, []byte(nat.Name)...)
		buf = append(buf, argCount)
	}
	return buf, nil
}

func writeFunction(buf []byte, fn *bytecode.FunDecl, regRefs []int) ([]byte, error) {
	var err error
	if buf, err = appendVintFromInt(buf, int(fn.Index)); err != nil {
		return nil, err
	}
	if buf, err = appendVintFromInt(buf, len(fn.Regs)); err != nil {
		return nil, err
	}
	if buf, err = appendVintFromInt(buf, len(fn.Code)); err != nil {
		return nil, err
	}
	for _, ref := range regRefs {
		if buf, err = appendVintFromInt(buf, ref); err != nil {
			return nil, err
		}
	}
	for _, op := range fn.Code {
		if buf, err = encodeOp(buf, op); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func encodeOp(buf []byte, op bytecode.Op) ([]byte, error) {
	var err error
	switch op.Kind {
	case bytecode.OpMov:
		return appendRegs(buf, tagMov, op.Mov.Dst, op.Mov.Src)

	case bytecode.OpInt:
		v := op.Int.Value
		if v >= 0 && v <= 0xFF {
			buf = append(buf, tagIntU8)
			if buf, err = appendVintFromInt(buf, int(op.Int.Dst)); err != nil {
				return nil, err
			}
			return append(buf, byte(v)), nil
		}
		buf = append(buf, tagIntI32)
		if buf, err = appendVintFromInt(buf, int(op.Int.Dst)); err != nil {
			return nil, err
		}
		var b4 [4]byte
		binary.LittleEndian.PutUint32(b4[:], uint32(v))
		return append(buf, b4[:]...), nil

	case bytecode.OpFloat:
		buf = append(buf, tagFloat)
		if buf, err = appendVintFromInt(buf, int(op.Float.Dst)); err != nil {
			return nil, err
		}
		return appendVintFromInt(buf, op.Float.PoolIdx)

	case bytecode.OpBoolTrue:
		return appendReg(buf, tagBoolTrue, op.Bool.Dst)
	case bytecode.OpBoolFalse:
		return appendReg(buf, tagBoolFalse, op.Bool.Dst)

	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpEq, bytecode.OpNotEq, bytecode.OpLt, bytecode.OpGte:
		return encodeBinOp(buf, tagForBin(op.Kind), op.Bin)

	case bytecode.OpIncr:
		return appendReg(buf, tagIncr, op.Unary.Reg)
	case bytecode.OpDecr:
		return appendReg(buf, tagDecr, op.Unary.Reg)

	case bytecode.OpCall0, bytecode.OpCall1, bytecode.OpCall2, bytecode.OpCall3:
		return encodeCallFixed(buf, tagForCallFixed(op.Kind), op.Call)

	case bytecode.OpCallN:
		return encodeCallN(buf, op.CallN)

	case bytecode.OpGetGlobal:
		return encodeGlobalOp(buf, tagGetGlobal, op.Global)
	case bytecode.OpSetGlobal:
		return encodeGlobalOp(buf, tagSetGlobal, op.Global)

	case bytecode.OpRet:
		return appendReg(buf, tagRet, op.Ret.Reg)

	case bytecode.OpJTrue:
		return encodeJump(buf, tagJTrue, op.Jump, true)
	case bytecode.OpJFalse:
		return encodeJump(buf, tagJFalse, op.Jump, true)
	case bytecode.OpJNull:
		return encodeJump(buf, tagJNull, op.Jump, true)
	case bytecode.OpJNotNull:
		return encodeJump(buf, tagJNotNull, op.Jump, true)
	case bytecode.OpJAlways:
		return encodeJump(buf, tagJAlways, op.Jump, false)

	case bytecode.OpToAny:
		return appendRegs(buf, tagToAny, op.ToAny.Dst, op.ToAny.Src)

	default:
		return nil, diagx.New(diagx.InternalInvariant, fmt.Sprintf("writer: unhandled opcode kind %d", op.Kind))
	}
}

func tagForBin(kind bytecode.OpKind) byte {
	switch kind {
	case bytecode.OpAdd:
		return tagAdd
	case bytecode.OpSub:
		return tagSub
	case bytecode.OpEq:
		return tagEq
	case bytecode.OpNotEq:
		return tagNotEq
	case bytecode.OpLt:
		return tagLt
	default:
		return tagGte
	}
}

func appendReg(buf []byte, tag byte, r bytecode.RegID) ([]byte, error) {
	buf = append(buf, tag)
	return appendVintFromInt(buf, int(r))
}

func appendRegs(buf []byte, tag byte, a, b bytecode.RegID) ([]byte, error) {
	buf = append(buf, tag)
	var err error
	if buf, err = appendVintFromInt(buf, int(a)); err != nil {
		return nil, err
	}
	return appendVintFromInt(buf, int(b))
}

// encodeBinOp picks the compact two-byte register form when tag<64 and
// all three registers fit three bits, else the long tag+3×vint form.
// The compact form packs dst's low two bits into byte1's top bits and
// dst's high bit into byte0; testing (dst&4)!=0 rather than dst>4 for
// that high bit keeps dst==4 round-trippable.
func encodeBinOp(buf []byte, tag byte, b bytecode.BinOp) ([]byte, error) {
	if isBinaryOp(tag) && tag < 64 && b.Dst < 8 && b.A < 8 && b.B < 8 {
		high := byte(0)
		if b.Dst&4 != 0 {
			high = 1
		}
		byte0 := ((tag << 1) | 0x80) | high
		byte1 := ((byte(b.Dst) & 3) << 6) | (byte(b.A) << 3) | byte(b.B)
		return append(buf, byte0, byte1), nil
	}
	buf = append(buf, tag)
	var err error
	for _, r := range []bytecode.RegID{b.Dst, b.A, b.B} {
		if buf, err = appendVintFromInt(buf, int(r)); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func encodeCallFixed(buf []byte, tag byte, c bytecode.CallOp) ([]byte, error) {
	buf = append(buf, tag)
	var err error
	if buf, err = appendVintFromInt(buf, int(c.Dst)); err != nil {
		return nil, err
	}
	if buf, err = appendVintFromInt(buf, int(c.Global)); err != nil {
		return nil, err
	}
	for _, a := range c.Args {
		if buf, err = appendVintFromInt(buf, int(a)); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func encodeCallN(buf []byte, c bytecode.CallNOp) ([]byte, error) {
	buf = append(buf, tagCallN)
	var err error
	if buf, err = appendVintFromInt(buf, int(c.Dst)); err != nil {
		return nil, err
	}
	if buf, err = appendVintFromInt(buf, int(c.Callee)); err != nil {
		return nil, err
	}
	argCount, convErr := safecast.Convert[uint8](len(c.Args))
	if convErr != nil {
		return nil, diagx.New(diagx.WriterOverflow, fmt.Sprintf("calln: %d arguments exceeds 255", len(c.Args)))
	}
	buf = append(buf, argCount)
	for _, a := range c.Args {
		if buf, err = appendVintFromInt(buf, int(a)); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// encodeGlobalOp writes global before reg for both GetGlobal and
// SetGlobal, matching the verifier's symmetric treatment of the two.
func encodeGlobalOp(buf []byte, tag byte, g bytecode.GlobalOp) ([]byte, error) {
	buf = append(buf, tag)
	var err error
	if buf, err = appendVintFromInt(buf, int(g.Global)); err != nil {
		return nil, err
	}
	return appendVintFromInt(buf, int(g.Reg))
}

func encodeJump(buf []byte, tag byte, j bytecode.JumpOp, hasReg bool) ([]byte, error) {
	buf = append(buf, tag)
	var err error
	if hasReg {
		if buf, err = appendVintFromInt(buf, int(j.Reg)); err != nil {
			return nil, err
		}
	}
	return appendVintFromInt(buf, int(j.Delta))
}
