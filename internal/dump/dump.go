// Package dump renders a *bytecode.Module as the fixed, line-oriented
// textual disassembly format. Dump is a pure function of the module;
// its tests check the exact text of individual lines, so every line's
// shape is load-bearing.
package dump

import (
	"fmt"
	"strconv"
	"strings"

	"hlbc/internal/bytecode"
)

// String renders mod's full textual disassembly.
func String(mod *bytecode.Module) string {
	var b strings.Builder
	fmt.Fprintf(&b, "hl v%d\n", mod.Version)
	fmt.Fprintf(&b, "entry @%d\n", mod.Entrypoint)

	fmt.Fprintf(&b, "%d globals\n", len(mod.Globals))
	for i, t := range mod.Globals {
		fmt.Fprintf(&b, "\t@%d : %s\n", i, t)
	}

	fmt.Fprintf(&b, "%d floats\n", len(mod.Floats))
	for i, f := range mod.Floats {
		fmt.Fprintf(&b, "\t@%d : %s\n", i, strconv.FormatFloat(f, 'g', -1, 64))
	}

	fmt.Fprintf(&b, "%d natives\n", len(mod.Natives))
	for _, n := range mod.Natives {
		t, _ := mod.Global(n.Global)
		fmt.Fprintf(&b, "\tnative %s @%d : %s\n", n.Name, n.Global, t)
	}

	fmt.Fprintf(&b, "%d functions\n", len(mod.Functions))
	for _, fn := range mod.Functions {
		dumpFunction(&b, mod, fn)
	}

	return b.String()
}

func dumpFunction(b *strings.Builder, mod *bytecode.Module, fn bytecode.FunDecl) {
	sig, _ := mod.Global(fn.Index)
	fmt.Fprintf(b, "\tfun %d : %s\n", fn.Index, sig)
	for i, t := range fn.Regs {
		fmt.Fprintf(b, "\t\tr%d %s\n", i, t)
	}
	for i, op := range fn.Code {
		fmt.Fprintf(b, "\t\t@%d %s\n", i, dumpOp(op))
	}
}

// dumpOp renders one instruction as "<mnemonic> <operands>", operands
// comma-joined with no surrounding spaces, e.g. `int 0,42`, `ret 0`.
func dumpOp(op bytecode.Op) string {
	switch op.Kind {
	case bytecode.OpMov:
		return join(op.Kind, op.Mov.Dst, op.Mov.Src)
	case bytecode.OpInt:
		return join(op.Kind, op.Int.Dst, op.Int.Value)
	case bytecode.OpFloat:
		return join(op.Kind, op.Float.Dst, op.Float.PoolIdx)
	case bytecode.OpBoolTrue, bytecode.OpBoolFalse:
		return join(op.Kind, op.Bool.Dst)
	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpEq, bytecode.OpNotEq, bytecode.OpLt, bytecode.OpGte:
		return join(op.Kind, op.Bin.Dst, op.Bin.A, op.Bin.B)
	case bytecode.OpIncr, bytecode.OpDecr:
		return join(op.Kind, op.Unary.Reg)
	case bytecode.OpCall0, bytecode.OpCall1, bytecode.OpCall2, bytecode.OpCall3:
		operands := []any{op.Call.Dst, op.Call.Global}
		for _, a := range op.Call.Args {
			operands = append(operands, a)
		}
		return join(op.Kind, operands...)
	case bytecode.OpCallN:
		operands := []any{op.CallN.Dst, op.CallN.Callee}
		for _, a := range op.CallN.Args {
			operands = append(operands, a)
		}
		return join(op.Kind, operands...)
	case bytecode.OpGetGlobal, bytecode.OpSetGlobal:
		return join(op.Kind, op.Global.Reg, op.Global.Global)
	case bytecode.OpRet:
		return join(op.Kind, op.Ret.Reg)
	case bytecode.OpJTrue, bytecode.OpJFalse, bytecode.OpJNull, bytecode.OpJNotNull:
		return fmt.Sprintf("%s %d,%s", op.Kind, op.Jump.Reg, signedDelta(op.Jump.Delta))
	case bytecode.OpJAlways:
		return fmt.Sprintf("%s %s", op.Kind, signedDelta(op.Jump.Delta))
	case bytecode.OpToAny:
		return join(op.Kind, op.ToAny.Dst, op.ToAny.Src)
	default:
		return op.Kind.String()
	}
}

func join(mnemonic bytecode.OpKind, operands ...any) string {
	parts := make([]string, len(operands))
	for i, o := range operands {
		parts[i] = fmt.Sprint(o)
	}
	return fmt.Sprintf("%s %s", mnemonic, strings.Join(parts, ","))
}

func signedDelta(d int32) string {
	if d >= 0 {
		return "+" + strconv.Itoa(int(d))
	}
	return strconv.Itoa(int(d))
}
