package asm

import (
	"fmt"
	"strconv"

	"hlbc/internal/hlast"
	"hlbc/internal/hltypes"
)

// Parse reads src as a sequence of top-level (class ...) forms and
// returns the hlast.Program they describe.
func Parse(src string) (*hlast.Program, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	forms, err := parseAll(toks)
	if err != nil {
		return nil, err
	}
	b := &builder{}
	prog := &hlast.Program{}
	for _, f := range forms {
		d, err := b.buildDecl(f)
		if err != nil {
			return nil, err
		}
		prog.Decls = append(prog.Decls, d)
	}
	return prog, nil
}

// builder carries the monotonically increasing VarID counter, shared
// across every method in the source file. Two params named "x" in
// different methods are distinct variables with distinct ids.
type builder struct {
	nextVar hlast.VarID
}

func (b *builder) freshVar(name string, t hltypes.Type) *hlast.Var {
	v := &hlast.Var{ID: b.nextVar, Name: name, Type: t}
	b.nextVar++
	return v
}

func (b *builder) buildDecl(n node) (hlast.Decl, error) {
	l, ok := asList(n)
	if !ok {
		return hlast.Decl{}, fmt.Errorf("asm: top-level form must be a list, got %v", n)
	}
	kw, _ := l.head()
	switch kw {
	case "class":
		class, err := b.buildClass(l)
		if err != nil {
			return hlast.Decl{}, err
		}
		return hlast.Decl{Kind: hlast.DeclClass, Class: class}, nil
	case "typealias":
		return hlast.Decl{Kind: hlast.DeclTypeAlias, Name: requireName(l, 1)}, nil
	case "abstract":
		return hlast.Decl{Kind: hlast.DeclAbstract, Name: requireName(l, 1)}, nil
	case "enum":
		return hlast.Decl{Kind: hlast.DeclEnum, Name: requireName(l, 1)}, nil
	case "interface":
		return hlast.Decl{Kind: hlast.DeclInterface, Name: requireName(l, 1)}, nil
	default:
		return hlast.Decl{}, fmt.Errorf("asm: unknown top-level form %q on line %d", kw, l.line)
	}
}

func requireName(l list, idx int) string {
	if idx >= len(l.items) {
		return ""
	}
	if a, ok := asAtom(l.items[idx]); ok {
		return a.text
	}
	return ""
}

// buildClass parses `(class Path (extern bool) method...)`.
func (b *builder) buildClass(l list) (*hlast.ClassDecl, error) {
	if len(l.items) < 3 {
		return nil, fmt.Errorf("asm: `class` form on line %d needs a path and an (extern ...) clause", l.line)
	}
	path, ok := asAtom(l.items[1])
	if !ok {
		return nil, fmt.Errorf("asm: class path must be an atom on line %d", l.line)
	}
	externList, ok := asList(l.items[2])
	kw, _ := externList.head()
	if !ok || kw != "extern" || len(externList.items) != 2 {
		return nil, fmt.Errorf("asm: expected `(extern true|false)` on line %d", l.line)
	}
	externAtom, ok := asAtom(externList.items[1])
	if !ok {
		return nil, fmt.Errorf("asm: extern flag must be an atom on line %d", l.line)
	}
	extern := externAtom.text == "true"

	class := &hlast.ClassDecl{Path: path.text, Extern: extern}
	for _, m := range l.items[3:] {
		ml, ok := asList(m)
		if !ok {
			return nil, fmt.Errorf("asm: class member must be a `(method ...)` list on line %d", l.pos())
		}
		method, err := b.buildMethod(ml, extern)
		if err != nil {
			return nil, err
		}
		class.Methods = append(class.Methods, *method)
	}
	return class, nil
}

// buildMethod parses `(method name (args (n T) ...) (ret T) body-or-native)`.
func (b *builder) buildMethod(l list, extern bool) (*hlast.Method, error) {
	kw, _ := l.head()
	if kw != "method" || len(l.items) < 4 {
		return nil, fmt.Errorf("asm: expected `(method name (args ...) (ret T) ...)` on line %d", l.line)
	}
	nameAtom, ok := asAtom(l.items[1])
	if !ok {
		return nil, fmt.Errorf("asm: method name must be an atom on line %d", l.line)
	}

	argsList, ok := asList(l.items[2])
	if kw2, _ := argsList.head(); !ok || kw2 != "args" {
		return nil, fmt.Errorf("asm: expected `(args ...)` on line %d", l.line)
	}
	vars := map[string]*hlast.Var{}
	var params []hlast.Param
	for _, a := range argsList.items[1:] {
		pl, ok := asList(a)
		if !ok || len(pl.items) < 2 {
			return nil, fmt.Errorf("asm: malformed argument on line %d", argsList.line)
		}
		pname, _ := asAtom(pl.items[0])
		t, err := b.buildType(pl.items[1])
		if err != nil {
			return nil, err
		}
		v := b.freshVar(pname.text, t)
		vars[pname.text] = v
		p := hlast.Param{Var: *v}
		if len(pl.items) >= 3 {
			def, err := b.buildExpr(pl.items[2], vars)
			if err != nil {
				return nil, err
			}
			p.Default = &def
		}
		params = append(params, p)
	}

	retList, ok := asList(l.items[3])
	if kw3, _ := retList.head(); !ok || kw3 != "ret" || len(retList.items) != 2 {
		return nil, fmt.Errorf("asm: expected `(ret T)` on line %d", l.line)
	}
	retType, err := b.buildType(retList.items[1])
	if err != nil {
		return nil, err
	}

	m := &hlast.Method{Name: nameAtom.text, Args: params, Ret: retType}

	if extern {
		if len(l.items) != 5 {
			return nil, fmt.Errorf("asm: extern method %q on line %d must have exactly a `(native lib func)` body", nameAtom.text, l.line)
		}
		nativeList, ok := asList(l.items[4])
		kwN, _ := nativeList.head()
		if !ok || kwN != "native" || len(nativeList.items) != 3 {
			return nil, fmt.Errorf("asm: expected `(native lib func)` on line %d", l.line)
		}
		libAtom, _ := asAtom(nativeList.items[1])
		funcAtom, _ := asAtom(nativeList.items[2])
		m.Native = &hlast.NativeMarker{LibName: libAtom.text, FuncName: funcAtom.text}
		return m, nil
	}

	if len(l.items) != 5 {
		return nil, fmt.Errorf("asm: method %q on line %d must have exactly one body expression", nameAtom.text, l.line)
	}
	body, err := b.buildExpr(l.items[4], vars)
	if err != nil {
		return nil, err
	}
	m.Body = body
	return m, nil
}

var basicTypeNames = map[string]hltypes.Tag{
	"Void": hltypes.Void,
	"UI8":  hltypes.UI8,
	"I32":  hltypes.I32,
	"F32":  hltypes.F32,
	"F64":  hltypes.F64,
	"Bool": hltypes.Bool,
	"Any":  hltypes.Any,
}

// buildType parses a type reference: a basic type name, or
// `(fun (T...) T)` for a function type.
func (b *builder) buildType(n node) (hltypes.Type, error) {
	if a, ok := asAtom(n); ok {
		tag, ok := basicTypeNames[a.text]
		if !ok {
			return hltypes.Type{}, fmt.Errorf("asm: unknown type %q on line %d", a.text, a.line)
		}
		return hltypes.Basic(tag), nil
	}
	l, ok := asList(n)
	if !ok {
		return hltypes.Type{}, fmt.Errorf("asm: malformed type reference")
	}
	kw, _ := l.head()
	if kw != "fun" || len(l.items) != 3 {
		return hltypes.Type{}, fmt.Errorf("asm: expected `(fun (T...) T)` on line %d", l.line)
	}
	argsList, ok := asList(l.items[1])
	if !ok {
		return hltypes.Type{}, fmt.Errorf("asm: `fun`'s argument list must be a list on line %d", l.line)
	}
	args := make([]hltypes.Type, len(argsList.items))
	for i, an := range argsList.items {
		t, err := b.buildType(an)
		if err != nil {
			return hltypes.Type{}, err
		}
		args[i] = t
	}
	ret, err := b.buildType(l.items[2])
	if err != nil {
		return hltypes.Type{}, err
	}
	return hltypes.NewFun(args, ret), nil
}

// buildExpr dispatches on a form's leading keyword to build one
// hlast.Expr node. vars maps names visible in the enclosing method to
// their already-allocated *hlast.Var.
func (b *builder) buildExpr(n node, vars map[string]*hlast.Var) (hlast.Expr, error) {
	if a, ok := asAtom(n); ok {
		return hlast.Expr{}, fmt.Errorf("asm: bare atom %q is not a valid expression on line %d", a.text, a.line)
	}
	l, ok := asList(n)
	if !ok || len(l.items) == 0 {
		return hlast.Expr{}, fmt.Errorf("asm: empty expression")
	}
	kw, _ := l.head()
	switch kw {
	case "int":
		v, err := requireInt(l, 1)
		if err != nil {
			return hlast.Expr{}, err
		}
		return hlast.Expr{Kind: hlast.EConstInt, Type: hltypes.Basic(hltypes.I32), ConstInt: v}, nil

	case "float":
		v, err := requireFloat(l, 1)
		if err != nil {
			return hlast.Expr{}, err
		}
		return hlast.Expr{Kind: hlast.EConstFloat, Type: hltypes.Basic(hltypes.F64), ConstFloat: v}, nil

	case "bool":
		a, ok := asAtom(l.items[1])
		if !ok {
			return hlast.Expr{}, fmt.Errorf("asm: `bool` expects true|false on line %d", l.line)
		}
		return hlast.Expr{Kind: hlast.EConstBool, Type: hltypes.Basic(hltypes.Bool), ConstBool: a.text == "true"}, nil

	case "local":
		name := requireName(l, 1)
		v, ok := vars[name]
		if !ok {
			return hlast.Expr{}, fmt.Errorf("asm: undeclared local %q on line %d", name, l.line)
		}
		return hlast.Expr{Kind: hlast.ELocal, Type: v.Type, Var: v}, nil

	case "return":
		if len(l.items) == 1 {
			return hlast.Expr{Kind: hlast.EReturn}, nil
		}
		inner, err := b.buildExpr(l.items[1], vars)
		if err != nil {
			return hlast.Expr{}, err
		}
		return hlast.Expr{Kind: hlast.EReturn, Ret: &inner}, nil

	case "paren":
		inner, err := b.buildExpr(l.items[1], vars)
		if err != nil {
			return hlast.Expr{}, err
		}
		return hlast.Expr{Kind: hlast.EParen, Type: inner.Type, Inner: &inner}, nil

	case "block":
		children := make([]hlast.Expr, len(l.items)-1)
		for i, c := range l.items[1:] {
			e, err := b.buildExpr(c, vars)
			if err != nil {
				return hlast.Expr{}, err
			}
			children[i] = e
		}
		var t hltypes.Type
		if len(children) > 0 {
			t = children[len(children)-1].Type
		} else {
			t = hltypes.Basic(hltypes.Void)
		}
		return hlast.Expr{Kind: hlast.EBlock, Type: t, Block: children}, nil

	case "call":
		if len(l.items) < 2 {
			return hlast.Expr{}, fmt.Errorf("asm: `call` needs a callee on line %d", l.line)
		}
		callee, err := b.buildExpr(l.items[1], vars)
		if err != nil {
			return hlast.Expr{}, err
		}
		args := make([]hlast.Expr, len(l.items)-2)
		for i, an := range l.items[2:] {
			a, err := b.buildExpr(an, vars)
			if err != nil {
				return hlast.Expr{}, err
			}
			args[i] = a
		}
		retType := hltypes.Basic(hltypes.Void)
		if callee.Type.Tag == hltypes.Fun {
			retType = callee.Type.Ret
		}
		return hlast.Expr{Kind: hlast.ECall, Type: retType, Callee: &callee, Args: args}, nil

	case "field":
		if len(l.items) != 4 {
			return hlast.Expr{}, fmt.Errorf("asm: expected `(field Type ClassPath FieldName)` on line %d", l.line)
		}
		t, err := b.buildType(l.items[1])
		if err != nil {
			return hlast.Expr{}, err
		}
		classPath := requireName(l, 2)
		fieldName := requireName(l, 3)
		return hlast.Expr{Kind: hlast.EFieldStatic, Type: t, ClassPath: classPath, FieldName: fieldName}, nil

	case "if":
		if len(l.items) != 4 && len(l.items) != 5 {
			return hlast.Expr{}, fmt.Errorf("asm: expected `(if Type cond then [else])` on line %d", l.line)
		}
		t, err := b.buildType(l.items[1])
		if err != nil {
			return hlast.Expr{}, err
		}
		cond, err := b.buildExpr(l.items[2], vars)
		if err != nil {
			return hlast.Expr{}, err
		}
		then, err := b.buildExpr(l.items[3], vars)
		if err != nil {
			return hlast.Expr{}, err
		}
		e := hlast.Expr{Kind: hlast.EIf, Type: t, Cond: &cond, Then: &then}
		if len(l.items) == 5 {
			els, err := b.buildExpr(l.items[4], vars)
			if err != nil {
				return hlast.Expr{}, err
			}
			e.Else = &els
		}
		return e, nil

	case "+", "-":
		// The result type may be given explicitly as `(+ Type a b)`, or
		// omitted as `(+ a b)`, in which case it is taken from the left
		// operand once built.
		var explicitType *hltypes.Type
		operandStart := 1
		if len(l.items) == 4 {
			if a, ok := asAtom(l.items[1]); ok {
				if tag, ok := basicTypeNames[a.text]; ok {
					t := hltypes.Basic(tag)
					explicitType = &t
					operandStart = 2
				}
			}
		}
		if len(l.items) != operandStart+2 {
			return hlast.Expr{}, fmt.Errorf("asm: expected `(%s [Type] a b)` on line %d", kw, l.line)
		}
		left, err := b.buildExpr(l.items[operandStart], vars)
		if err != nil {
			return hlast.Expr{}, err
		}
		right, err := b.buildExpr(l.items[operandStart+1], vars)
		if err != nil {
			return hlast.Expr{}, err
		}
		t := left.Type
		if explicitType != nil {
			t = *explicitType
		}
		op := hlast.OpAdd
		if kw == "-" {
			op = hlast.OpSub
		}
		return hlast.Expr{Kind: hlast.EBinop, Type: t, Op: op, Left: &left, Right: &right}, nil

	case "<=":
		if len(l.items) != 3 {
			return hlast.Expr{}, fmt.Errorf("asm: expected `(<= a b)` on line %d", l.line)
		}
		left, err := b.buildExpr(l.items[1], vars)
		if err != nil {
			return hlast.Expr{}, err
		}
		right, err := b.buildExpr(l.items[2], vars)
		if err != nil {
			return hlast.Expr{}, err
		}
		return hlast.Expr{Kind: hlast.EBinop, Type: hltypes.Basic(hltypes.Bool), Op: hlast.OpLe, Left: &left, Right: &right}, nil

	default:
		return hlast.Expr{}, fmt.Errorf("asm: unknown expression form %q on line %d", kw, l.line)
	}
}

func requireInt(l list, idx int) (int32, error) {
	a, ok := asAtom(l.items[idx])
	if !ok {
		return 0, fmt.Errorf("asm: expected integer literal on line %d", l.line)
	}
	v, err := strconv.ParseInt(a.text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("asm: malformed integer %q on line %d: %w", a.text, a.line, err)
	}
	if v > 0x7FFFFFFF || v < -0x80000000 {
		return 0, fmt.Errorf("asm: integer literal %q on line %d overflows I32", a.text, a.line)
	}
	return int32(v), nil
}

func requireFloat(l list, idx int) (float64, error) {
	a, ok := asAtom(l.items[idx])
	if !ok {
		return 0, fmt.Errorf("asm: expected float literal on line %d", l.line)
	}
	v, err := strconv.ParseFloat(a.text, 64)
	if err != nil {
		return 0, fmt.Errorf("asm: malformed float %q on line %d: %w", a.text, a.line, err)
	}
	return v, nil
}
