package bcio

import (
	"encoding/binary"
	"fmt"
	"math"

	"hlbc/internal/bytecode"
	"hlbc/internal/diagx"
	"hlbc/internal/hltypes"
)

// cursor walks a byte slice, tracking how much has been consumed so
// each decode step can report its own short-read error with context.
type cursor struct {
	buf []byte
	pos int
}

func (c *cursor) remaining() []byte { return c.buf[c.pos:] }

func (c *cursor) vint() (int32, error) {
	v, n, err := DecodeVint(c.remaining())
	if err != nil {
		return 0, err
	}
	c.pos += n
	return v, nil
}

func (c *cursor) vintInt() (int, error) {
	v, err := c.vint()
	return int(v), err
}

func (c *cursor) byte() (byte, error) {
	if c.pos >= len(c.buf) {
		return 0, diagx.New(diagx.InternalInvariant, "unexpected end of input")
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

func (c *cursor) take(n int) ([]byte, error) {
	if c.pos+n > len(c.buf) {
		return nil, diagx.New(diagx.InternalInvariant, fmt.Sprintf("need %d bytes, have %d", n, len(c.buf)-c.pos))
	}
	out := c.buf[c.pos : c.pos+n]
	c.pos += n
	return out, nil
}

// Decode parses the on-wire format produced by Encode back into a
// *bytecode.Module.
func Decode(data []byte) (*bytecode.Module, error) {
	c := &cursor{buf: data}
	magicBytes, err := c.take(3)
	if err != nil {
		return nil, err
	}
	if string(magicBytes) != string(magic[:]) {
		return nil, diagx.New(diagx.InternalInvariant, fmt.Sprintf("bad magic %q, want %q", magicBytes, magic[:]))
	}
	version, err := c.byte()
	if err != nil {
		return nil, err
	}

	nTypes, err := c.vintInt()
	if err != nil {
		return nil, err
	}
	nGlobals, err := c.vintInt()
	if err != nil {
		return nil, err
	}
	nFloats, err := c.vintInt()
	if err != nil {
		return nil, err
	}
	nNatives, err := c.vintInt()
	if err != nil {
		return nil, err
	}
	nFunctions, err := c.vintInt()
	if err != nil {
		return nil, err
	}
	entrypoint, err := c.vintInt()
	if err != nil {
		return nil, err
	}

	types, err := readTypesBlock(c, nTypes)
	if err != nil {
		return nil, err
	}

	var globals []hltypes.Type
	if nGlobals > 0 {
		globals = make([]hltypes.Type, nGlobals)
	}
	for i := 0; i < nGlobals; i++ {
		ref, err := c.vintInt()
		if err != nil {
			return nil, err
		}
		if globals[i], err = resolveTypeRef(types, ref); err != nil {
			return nil, err
		}
	}

	var floats []float64
	if nFloats > 0 {
		floats = make([]float64, nFloats)
	}
	for i := 0; i < nFloats; i++ {
		b8, err := c.take(8)
		if err != nil {
			return nil, err
		}
		floats[i] = math.Float64frombits(binary.LittleEndian.Uint64(b8))
	}

	natives, err := readNativesBlock(c, nNatives)
	if err != nil {
		return nil, err
	}

	var functions []bytecode.FunDecl
	if nFunctions > 0 {
		functions = make([]bytecode.FunDecl, nFunctions)
	}
	for i := 0; i < nFunctions; i++ {
		fn, err := readFunction(c, types)
		if err != nil {
			return nil, err
		}
		functions[i] = fn
	}

	return &bytecode.Module{
		Version:    version,
		Entrypoint: bytecode.GlobalID(entrypoint),
		Globals:    globals,
		Floats:     floats,
		Natives:    natives,
		Functions:  functions,
	}, nil
}

func readTypesBlock(c *cursor, n int) ([]hltypes.Type, error) {
	// A type record never references a later index (a Fun's arg/ret refs
	// always point to an earlier entry because the writer interns
	// nested types before the Fun itself), so a single forward pass
	// suffices.
	out := make([]hltypes.Type, n)
	for i := 0; i < n; i++ {
		tagByte, err := c.byte()
		if err != nil {
			return nil, err
		}
		tag := hltypes.Tag(tagByte)
		if tag != hltypes.Fun {
			out[i] = hltypes.Basic(tag)
			continue
		}
		argCount, err := c.byte()
		if err != nil {
			return nil, err
		}
		args := make([]hltypes.Type, argCount)
		for a := 0; a < int(argCount); a++ {
			ref, err := c.vintInt()
			if err != nil {
				return nil, err
			}
			if args[a], err = resolveTypeRef(out, ref); err != nil {
				return nil, err
			}
		}
		retRef, err := c.vintInt()
		if err != nil {
			return nil, err
		}
		ret, err := resolveTypeRef(out, retRef)
		if err != nil {
			return nil, err
		}
		out[i] = hltypes.NewFun(args, ret)
	}
	return out, nil
}

func readNativesBlock(c *cursor, n int) ([]bytecode.NativeEntry, error) {
	if n == 0 {
		return nil, nil
	}
	out := make([]bytecode.NativeEntry, n)
	for i := 0; i < n; i++ {
		global, err := c.vintInt()
		if err != nil {
			return nil, err
		}
		nameLen, err := c.byte()
		if err != nil {
			return nil, err
		}
		nameBytes, err := c.take(int(nameLen))
		if err != nil {
			return nil, err
		}
		if _, err := c.byte(); err != nil { // argCount, redundant with the Fun global's own arity
			return nil, err
		}
		out[i] = bytecode.NativeEntry{Name: string(nameBytes), Global: bytecode.GlobalID(global)}
	}
	return out, nil
}

func readFunction(c *cursor, types []hltypes.Type) (bytecode.FunDecl, error) {
	index, err := c.vintInt()
	if err != nil {
		return bytecode.FunDecl{}, err
	}
	nRegs, err := c.vintInt()
	if err != nil {
		return bytecode.FunDecl{}, err
	}
	nCode, err := c.vintInt()
	if err != nil {
		return bytecode.FunDecl{}, err
	}
	var regs []hltypes.Type
	if nRegs > 0 {
		regs = make([]hltypes.Type, nRegs)
	}
	for i := 0; i < nRegs; i++ {
		ref, err := c.vintInt()
		if err != nil {
			return bytecode.FunDecl{}, err
		}
		if regs[i], err = resolveTypeRef(types, ref); err != nil {
			return bytecode.FunDecl{}, err
		}
	}
	var code []bytecode.Op
	if nCode > 0 {
		code = make([]bytecode.Op, nCode)
	}
	for i := 0; i < nCode; i++ {
		op, err := decodeOp(c)
		if err != nil {
			return bytecode.FunDecl{}, err
		}
		code[i] = op
	}
	return bytecode.FunDecl{Index: bytecode.GlobalID(index), Regs: regs, Code: code}, nil
}

func decodeOp(c *cursor) (bytecode.Op, error) {
	b0, err := c.byte()
	if err != nil {
		return bytecode.Op{}, err
	}
	if b0&0x80 != 0 {
		return decodeCompactBinOp(c, b0)
	}
	switch b0 {
	case tagMov:
		a, b, err := twoRegs(c)
		return bytecode.Mov(a, b), err

	case tagIntU8:
		dst, err := regOperand(c)
		if err != nil {
			return bytecode.Op{}, err
		}
		v, err := c.byte()
		return bytecode.Int(dst, int32(v)), err

	case tagIntI32:
		dst, err := regOperand(c)
		if err != nil {
			return bytecode.Op{}, err
		}
		b4, err := c.take(4)
		if err != nil {
			return bytecode.Op{}, err
		}
		return bytecode.Int(dst, int32(binary.LittleEndian.Uint32(b4))), nil

	case tagFloat:
		dst, err := regOperand(c)
		if err != nil {
			return bytecode.Op{}, err
		}
		idx, err := c.vintInt()
		return bytecode.Float(dst, idx), err

	case tagBoolTrue:
		r, err := regOperand(c)
		return bytecode.BoolLit(r, true), err
	case tagBoolFalse:
		r, err := regOperand(c)
		return bytecode.BoolLit(r, false), err

	case tagAdd, tagSub, tagEq, tagNotEq, tagLt, tagGte:
		dst, a, b, err := threeRegs(c)
		return makeBinOp(b0, dst, a, b), err

	case tagIncr:
		r, err := regOperand(c)
		return bytecode.Incr(r), err
	case tagDecr:
		r, err := regOperand(c)
		return bytecode.Decr(r), err

	case tagCall0, tagCall1, tagCall2, tagCall3:
		return decodeCallFixed(c, b0)

	case tagCallN:
		return decodeCallN(c)

	case tagGetGlobal, tagSetGlobal:
		return decodeGlobalOp(c, b0)

	case tagRet:
		r, err := regOperand(c)
		return bytecode.Ret(r), err

	case tagJTrue, tagJFalse, tagJNull, tagJNotNull:
		return decodeConditionalJump(c, b0)
	case tagJAlways:
		delta, err := c.vint()
		return bytecode.JAlways(delta), err

	case tagToAny:
		a, b, err := twoRegs(c)
		return bytecode.ToAny(a, b), err

	default:
		return bytecode.Op{}, diagx.New(diagx.InternalInvariant, fmt.Sprintf("reader: unknown opcode tag %d", b0))
	}
}

func decodeCompactBinOp(c *cursor, b0 byte) (bytecode.Op, error) {
	tag := (b0 &^ 0x80) >> 1
	high := b0 & 1
	b1, err := c.byte()
	if err != nil {
		return bytecode.Op{}, err
	}
	dst := bytecode.RegID((high<<2)&4 | (b1>>6)&3)
	a := bytecode.RegID((b1 >> 3) & 7)
	b := bytecode.RegID(b1 & 7)
	return makeBinOp(tag, dst, a, b), nil
}

func makeBinOp(tag byte, dst, a, b bytecode.RegID) bytecode.Op {
	switch tag {
	case tagAdd:
		return bytecode.Add(dst, a, b)
	case tagSub:
		return bytecode.Sub(dst, a, b)
	case tagEq:
		return bytecode.Eq(dst, a, b)
	case tagNotEq:
		return bytecode.NotEq(dst, a, b)
	case tagLt:
		return bytecode.Lt(dst, a, b)
	default:
		return bytecode.Gte(dst, a, b)
	}
}

func regOperand(c *cursor) (bytecode.RegID, error) {
	v, err := c.vintInt()
	return bytecode.RegID(v), err
}

func twoRegs(c *cursor) (bytecode.RegID, bytecode.RegID, error) {
	a, err := regOperand(c)
	if err != nil {
		return 0, 0, err
	}
	b, err := regOperand(c)
	return a, b, err
}

func threeRegs(c *cursor) (bytecode.RegID, bytecode.RegID, bytecode.RegID, error) {
	dst, a, err := twoRegs(c)
	if err != nil {
		return 0, 0, 0, err
	}
	b, err := regOperand(c)
	return dst, a, b, err
}

func decodeCallFixed(c *cursor, tag byte) (bytecode.Op, error) {
	dst, err := regOperand(c)
	if err != nil {
		return bytecode.Op{}, err
	}
	g, err := c.vintInt()
	if err != nil {
		return bytecode.Op{}, err
	}
	n := map[byte]int{tagCall0: 0, tagCall1: 1, tagCall2: 2, tagCall3: 3}[tag]
	var args []bytecode.RegID
	if n > 0 {
		args = make([]bytecode.RegID, n)
	}
	for i := 0; i < n; i++ {
		if args[i], err = regOperand(c); err != nil {
			return bytecode.Op{}, err
		}
	}
	return bytecode.CallFixed(dst, bytecode.GlobalID(g), args), nil
}

func decodeCallN(c *cursor) (bytecode.Op, error) {
	dst, err := regOperand(c)
	if err != nil {
		return bytecode.Op{}, err
	}
	callee, err := regOperand(c)
	if err != nil {
		return bytecode.Op{}, err
	}
	argCount, err := c.byte()
	if err != nil {
		return bytecode.Op{}, err
	}
	var args []bytecode.RegID
	if argCount > 0 {
		args = make([]bytecode.RegID, argCount)
	}
	for i := range args {
		if args[i], err = regOperand(c); err != nil {
			return bytecode.Op{}, err
		}
	}
	return bytecode.CallN(dst, callee, args), nil
}

func decodeGlobalOp(c *cursor, tag byte) (bytecode.Op, error) {
	g, err := c.vintInt()
	if err != nil {
		return bytecode.Op{}, err
	}
	r, err := regOperand(c)
	if err != nil {
		return bytecode.Op{}, err
	}
	if tag == tagGetGlobal {
		return bytecode.GetGlobal(r, bytecode.GlobalID(g)), nil
	}
	return bytecode.SetGlobal(r, bytecode.GlobalID(g)), nil
}

func decodeConditionalJump(c *cursor, tag byte) (bytecode.Op, error) {
	r, err := regOperand(c)
	if err != nil {
		return bytecode.Op{}, err
	}
	delta, err := c.vint()
	if err != nil {
		return bytecode.Op{}, err
	}
	switch tag {
	case tagJTrue:
		return bytecode.JTrue(r, delta), nil
	case tagJFalse:
		return bytecode.JFalse(r, delta), nil
	case tagJNull:
		return bytecode.JNull(r, delta), nil
	default:
		return bytecode.JNotNull(r, delta), nil
	}
}
