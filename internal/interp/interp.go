package interp

import (
	"fmt"

	"hlbc/internal/bytecode"
	"hlbc/internal/diagx"
	"hlbc/internal/hltypes"
	"hlbc/internal/verify"
)

// Interp holds one module's resolved global slots and runs its
// entrypoint: verify every function, bind globals and natives, resolve
// the entrypoint, then call it with no arguments.
type Interp struct {
	mod     *bytecode.Module
	globals []Value
}

// New verifies mod and binds its globals (function globals to VFun,
// native globals to the handler natives resolves, everything else to
// its default value).
func New(mod *bytecode.Module, natives Loader) (*Interp, error) {
	if err := verify.Module(mod); err != nil {
		return nil, err
	}
	if natives == nil {
		natives = NoNatives
	}

	globals := make([]Value, len(mod.Globals))
	for i, t := range mod.Globals {
		globals[i] = Default(t)
	}
	for i := range mod.Functions {
		fn := &mod.Functions[i]
		globals[fn.Index] = Value{Kind: VFun, Fun: fn}
	}
	for _, nat := range mod.Natives {
		handler, ok := natives.Resolve(nat.Name)
		if !ok {
			return nil, diagx.New(diagx.UnresolvedNative, fmt.Sprintf("native %q bound to global %d has no host handler", nat.Name, nat.Global))
		}
		globals[nat.Global] = Value{Kind: VNative, Native: handler}
	}

	return &Interp{mod: mod, globals: globals}, nil
}

// Run resolves the module's entrypoint global, which must be a
// Fun([], _) bound to a compiled function, and calls it with no
// arguments.
func (i *Interp) Run() (Value, error) {
	epType, ok := i.mod.Global(i.mod.Entrypoint)
	if !ok || epType.Tag != hltypes.Fun || len(epType.Args) != 0 {
		return Value{}, diagx.New(diagx.InternalInvariant, "entrypoint global is not a nullary Fun")
	}
	epVal := i.globals[i.mod.Entrypoint]
	if epVal.Kind != VFun {
		return Value{}, diagx.New(diagx.InternalInvariant, "entrypoint global did not resolve to a compiled function")
	}
	return i.call(epVal.Fun, nil)
}

// Run is the package-level convenience entrypoint: verify, bind,
// resolve, call.
func Run(mod *bytecode.Module, natives Loader) (Value, error) {
	ip, err := New(mod, natives)
	if err != nil {
		return Value{}, err
	}
	return ip.Run()
}

func (i *Interp) call(fn *bytecode.FunDecl, args []Value) (Value, error) {
	frame := newFrame(fn, args)
	for frame.pc < len(fn.Code) {
		op := fn.Code[frame.pc]
		frame.pc++
		ret, done, err := i.step(frame, op)
		if err != nil {
			return Value{}, err
		}
		if done {
			return ret, nil
		}
	}
	return Value{}, diagx.New(diagx.InternalInvariant, "function fell off the end of its code without a Ret")
}
