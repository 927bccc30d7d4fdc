// Package compiler lowers a type-checked hlast.Program into a
// bytecode.Module. Register allocation, jump patching, and coercion are
// all implemented here; the teacher's split of lowering across
// lower_expr_*.go files by expression kind is followed in
// lower_expr.go, lower_method.go, and coerce.go.
package compiler

import (
	"fmt"

	"hlbc/internal/bytecode"
	"hlbc/internal/diagx"
	"hlbc/internal/hlast"
	"hlbc/internal/hltypes"
	"hlbc/internal/intern"
)

// Compiler accumulates module-wide state (globals, float pool, natives,
// compiled functions) while lowering every class declaration in a
// program. It holds no AST-producer state; the AST it consumes is
// already fully typed.
type Compiler struct {
	globals   *intern.Table[string, hltypes.Type]
	floats    *intern.Table[float64, float64]
	natives   []bytecode.NativeEntry
	functions []bytecode.FunDecl
}

func newCompiler() *Compiler {
	return &Compiler{
		globals: intern.New[string, hltypes.Type](),
		floats:  intern.New[float64, float64](),
	}
}

// internGlobal returns the stable GlobalID for name, assigning it type t
// on first use.
func (c *Compiler) internGlobal(name string, t hltypes.Type) bytecode.GlobalID {
	id := c.globals.Intern(name, func() hltypes.Type { return t })
	return bytecode.GlobalID(id)
}

// internFloat returns the float pool index for v, deduplicating by value.
func (c *Compiler) internFloat(v float64) int {
	return c.floats.Intern(v, func() float64 { return v })
}

func methodFunType(m *hlast.Method) hltypes.Type {
	args := make([]hltypes.Type, len(m.Args))
	for i, p := range m.Args {
		args[i] = p.Var.Type
	}
	return hltypes.NewFun(args, m.Ret)
}

// Compile lowers every declaration in prog and resolves entrypointName to
// the module's entrypoint global. entrypointName follows the same
// "ClassPath:method" naming a static field reference would use.
func Compile(prog *hlast.Program, entrypointName string) (*bytecode.Module, error) {
	c := newCompiler()
	for i := range prog.Decls {
		d := &prog.Decls[i]
		switch d.Kind {
		case hlast.DeclClass:
			if err := c.compileClass(d.Class); err != nil {
				return nil, err
			}
		case hlast.DeclTypeAlias, hlast.DeclAbstract:
			// Type aliases and abstract declarations carry no code to lower.
		default:
			return nil, diagx.New(diagx.UnsupportedConstruct,
				fmt.Sprintf("declaration %q: enums, interfaces, and other kinds are not supported in the minimum core", d.Name))
		}
	}

	epID, ok := c.globals.Lookup(entrypointName)
	if !ok {
		return nil, diagx.New(diagx.UnsupportedConstruct,
			fmt.Sprintf("entrypoint %q was not declared by any compiled class", entrypointName))
	}
	epType := c.globals.Value(epID)
	if epType.Tag != hltypes.Fun || len(epType.Args) != 0 {
		return nil, diagx.New(diagx.UnsupportedConstruct,
			fmt.Sprintf("entrypoint %q must be a Fun([], _); got %s", entrypointName, epType))
	}

	return &bytecode.Module{
		Version:    1,
		Entrypoint: bytecode.GlobalID(epID),
		Globals:    c.globals.Values(),
		Floats:     c.floats.Values(),
		Natives:    c.natives,
		Functions:  c.functions,
	}, nil
}

// compileClass lowers one class declaration.
func (c *Compiler) compileClass(class *hlast.ClassDecl) error {
	if class.Extern {
		for i := range class.Methods {
			m := &class.Methods[i]
			if m.Native == nil {
				return diagx.New(diagx.UnsupportedConstruct,
					fmt.Sprintf("extern class %q method %q has no native marker", class.Path, m.Name))
			}
			name := m.Native.LibName + "@" + m.Native.FuncName
			ft := methodFunType(m)
			g := c.internGlobal(name, ft)
			c.natives = append(c.natives, bytecode.NativeEntry{Name: name, Global: g})
		}
		return nil
	}
	for i := range class.Methods {
		m := &class.Methods[i]
		name := class.Path + ":" + m.Name
		ft := methodFunType(m)
		g := c.internGlobal(name, ft)
		fd, err := compileMethod(c, m, g)
		if err != nil {
			return err
		}
		c.functions = append(c.functions, fd)
	}
	return nil
}
