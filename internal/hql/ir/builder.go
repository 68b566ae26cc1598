// Builder implements the IR Builder's lowering rules (spec.md §4.8): one
// function per canonical special form, dispatching on head symbol the same
// way the HQL-AST Lowerer and the teacher's ast_visitor.go do.
package ir

import (
	"strings"

	"github.com/hql-lang/hql/internal/hql/diagnostics"
	"github.com/hql-lang/hql/internal/hql/sexp"
)

// Config configures lowering decisions spec.md §4.8 leaves open.
type Config struct {
	// ObjectParamFunctions names functions that always use the
	// object-destructuring parameter-passing convention, even when none
	// of their declared parameters carries a trailing colon (spec.md
	// §4.8: "or the function name is in the system's 'object-parameter'
	// set"). Empty by default; callers populate it for known APIs that
	// require named-argument calling.
	ObjectParamFunctions map[string]bool

	// StdlibPrefixes lists specifier prefixes that resolve against HQL's
	// own standard library rather than the host's package ecosystem,
	// used to choose ImportDecl's default-vs-named specifier shape
	// (spec.md §4.8's "whether p begins with a standard-library URL
	// prefix"). Defaults to "hql:" when nil.
	StdlibPrefixes []string
}

// Builder lowers canonical, post-expansion HQL-AST forms into IR nodes.
type Builder struct {
	path string
	cfg  Config
}

// New returns a Builder that renders diagnostics against path.
func New(path string, cfg Config) *Builder {
	if cfg.StdlibPrefixes == nil {
		cfg.StdlibPrefixes = []string{"hql:"}
	}
	return &Builder{path: path, cfg: cfg}
}

// Build lowers a sequence of top-level HQL-AST forms into IR nodes. A
// top-level (do ...) form — produced by the syntax transformer's plural
// selective-import desugaring — splices its children into the result
// rather than nesting them under a Block.
func (b *Builder) Build(forms []sexp.SExp) ([]Node, error) {
	var out []Node
	for _, f := range forms {
		nodes, err := b.buildTop(f)
		if err != nil {
			return nil, err
		}
		out = append(out, nodes...)
	}
	return out, nil
}

func (b *Builder) buildTop(e sexp.SExp) ([]Node, error) {
	if head, ok := e.HeadSymbol(); ok && head == "do" {
		var out []Node
		for _, c := range e.Elems[1:] {
			nodes, err := b.buildTop(c)
			if err != nil {
				return nil, err
			}
			out = append(out, nodes...)
		}
		return out, nil
	}
	n, err := b.lowerStmt(e)
	if err != nil {
		return nil, err
	}
	return []Node{n}, nil
}

// lowerStmt lowers a form appearing in statement position: declarations
// pass through as-is; bare expressions are wrapped in ExpressionStmt.
func (b *Builder) lowerStmt(e sexp.SExp) (Node, error) {
	head, ok := e.HeadSymbol()
	if !ok {
		expr, err := b.lowerExpr(e)
		if err != nil {
			return nil, err
		}
		return &ExpressionStmt{Expr: expr}, nil
	}
	switch head {
	case "def":
		return b.lowerDef(e)
	case "export":
		return b.lowerExport(e)
	case "defenum":
		return b.lowerDefenum(e)
	case "import":
		return b.lowerImportSideEffect(e)
	default:
		expr, err := b.lowerExpr(e)
		if err != nil {
			return nil, err
		}
		return &ExpressionStmt{Expr: expr}, nil
	}
}

func (b *Builder) badNode(e sexp.SExp, msg string) error {
	return newError(diagnostics.CodeCodeGenBadNode, b.path, e.Pos, msg)
}

// --- def ---

func (b *Builder) lowerDef(e sexp.SExp) (Node, error) {
	if len(e.Elems) != 3 || e.Elems[1].Kind != sexp.KindSymbol {
		return nil, b.badNode(e, "def requires a name and a value")
	}
	name := camelCase(e.Elems[1].Sym)
	value := e.Elems[2]

	if head, ok := value.HeadSymbol(); ok && head == "import" && len(value.Elems) == 2 &&
		value.Elems[1].Kind == sexp.KindLiteral && value.Elems[1].LitType == sexp.LitString {
		return b.lowerNamedImport(name, value.Elems[1].Str), nil
	}
	if head, ok := value.HeadSymbol(); ok && head == "import-member" && len(value.Elems) == 3 &&
		value.Elems[1].Kind == sexp.KindLiteral && value.Elems[2].Kind == sexp.KindLiteral {
		return b.lowerMemberImport(name, value.Elems[1].Str, value.Elems[2].Str), nil
	}
	if head, ok := value.HeadSymbol(); ok && head == "fn" {
		fn, err := b.lowerFn(value, name)
		if err != nil {
			return nil, err
		}
		return &VariableDecl{ID: name, Init: fn, Kind: KindConst}, nil
	}

	init, err := b.lowerExpr(value)
	if err != nil {
		return nil, err
	}
	return &VariableDecl{ID: name, Init: init, Kind: KindConst}, nil
}

func (b *Builder) isStdlib(path string) bool {
	for _, p := range b.cfg.StdlibPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// lowerNamedImport handles (def x (import "p")) — a namespace/default
// binding depending on whether p is a standard-library specifier.
func (b *Builder) lowerNamedImport(local, path string) Node {
	kind := SpecifierDefault
	if b.isStdlib(path) {
		kind = SpecifierNamespace
	}
	return &ImportDecl{
		Source:     path,
		Specifiers: []ImportSpecifier{{Kind: kind, Local: local}},
	}
}

// lowerMemberImport handles (def x (import-member "p" "orig")) — a named
// specifier importing one member of the module.
func (b *Builder) lowerMemberImport(local, path, orig string) Node {
	return &ImportDecl{
		Source:     path,
		Specifiers: []ImportSpecifier{{Kind: SpecifierNamed, Imported: orig, Local: local}},
	}
}

func (b *Builder) lowerImportSideEffect(e sexp.SExp) (Node, error) {
	if len(e.Elems) != 2 || e.Elems[1].Kind != sexp.KindLiteral || e.Elems[1].LitType != sexp.LitString {
		return nil, b.badNode(e, "import requires a string path")
	}
	return &ImportDecl{Source: e.Elems[1].Str}, nil
}

// --- export ---

func (b *Builder) lowerExport(e sexp.SExp) (Node, error) {
	if len(e.Elems) != 3 || e.Elems[1].Kind != sexp.KindSymbol {
		return nil, newError(diagnostics.CodeCodeGenBadExport, b.path, e.Pos, "")
	}
	name := camelCase(e.Elems[1].Sym)
	decl, err := b.lowerDef(sexp.List([]sexp.SExp{sexp.Symbol("def", e.Pos), e.Elems[1], e.Elems[2]}, e.Pos))
	if err != nil {
		return nil, err
	}
	return &ExportDecl{
		Declaration: decl,
		Specifiers:  []ExportSpecifier{{Local: name, Exported: name}},
	}, nil
}

// --- defenum ---

func (b *Builder) lowerDefenum(e sexp.SExp) (Node, error) {
	if len(e.Elems) < 2 || e.Elems[1].Kind != sexp.KindSymbol {
		return nil, b.badNode(e, "defenum requires a name")
	}
	members := make([]EnumMember, 0, len(e.Elems)-2)
	for _, m := range e.Elems[2:] {
		if m.Kind != sexp.KindSymbol {
			return nil, b.badNode(e, "defenum members must be symbols")
		}
		members = append(members, EnumMember{Name: m.Sym, Init: &StringLit{Value: m.Sym}})
	}
	return &EnumDecl{ID: camelCase(e.Elems[1].Sym), Members: members}, nil
}

// --- fn ---

// lowerFn builds a FunctionDecl from a (fn (params…) body…) form. id is
// empty for a nameless function expression. IsAnonymous is always true:
// HQL's only function-literal surface form is (fn ...), since defn
// desugars into (def name (fn ...)) before the builder ever runs.
func (b *Builder) lowerFn(e sexp.SExp, id string) (*FunctionDecl, error) {
	if len(e.Elems) < 2 || e.Elems[1].Kind != sexp.KindList {
		return nil, b.badNode(e, "fn requires a parameter list")
	}
	rawParams := e.Elems[1].Elems
	params, named := b.parseParams(rawParams)
	useObjectParams := named || (id != "" && b.cfg.ObjectParamFunctions[id])

	body := make([]Node, 0, len(e.Elems)-2)
	for i, bform := range e.Elems[2:] {
		last := i == len(e.Elems)-3
		n, err := b.lowerBodyForm(bform, last)
		if err != nil {
			return nil, err
		}
		body = append(body, n)
	}

	fn := &FunctionDecl{ID: id, Body: body, IsAnonymous: true}
	if useObjectParams {
		pattern := &ObjectPattern{Props: make([]PatternProp, len(params))}
		for i, p := range params {
			pattern.Props[i] = PatternProp{Key: p.Name, Local: p.Name}
		}
		fn.Params = []Param{{Name: "params"}}
		fn.IsNamedParams = true
		destructure := &VariableDecl{Pattern: pattern, Init: &Identifier{Name: "params"}, Kind: KindConst}
		fn.Body = append([]Node{destructure}, fn.Body...)
	} else {
		fn.Params = params
	}
	return fn, nil
}

// parseParams normalizes the syntax transformer's parameter-list shape
// (bare symbols, or (name: Type) pairs for typed/named parameters) into
// Params, reporting whether any parameter is named (trailing colon).
func (b *Builder) parseParams(elems []sexp.SExp) ([]Param, bool) {
	params := make([]Param, 0, len(elems))
	named := false
	for _, p := range elems {
		switch {
		case p.Kind == sexp.KindSymbol:
			name := p.Sym
			if strings.HasSuffix(name, ":") {
				named = true
				name = strings.TrimSuffix(name, ":")
			}
			params = append(params, Param{Name: camelCase(name)})
		case p.Kind == sexp.KindList && len(p.Elems) == 2 && p.Elems[0].Kind == sexp.KindSymbol:
			name := strings.TrimSuffix(p.Elems[0].Sym, ":")
			named = true
			typeName := ""
			if p.Elems[1].Kind == sexp.KindSymbol {
				typeName = p.Elems[1].Sym
			}
			params = append(params, Param{Name: camelCase(name), TypeName: typeName})
		}
	}
	return params, named
}

// lowerBodyForm lowers one form in a function/let body. The final form in
// the body is wrapped in Return unless it is itself a statement already
// (def/export/defenum/import all lower to declarations, which render as
// statements with no implicit value).
func (b *Builder) lowerBodyForm(e sexp.SExp, isLast bool) (Node, error) {
	if head, ok := e.HeadSymbol(); ok {
		switch head {
		case "def", "export", "defenum", "import":
			return b.lowerStmt(e)
		}
	}
	expr, err := b.lowerExpr(e)
	if err != nil {
		return nil, err
	}
	if isLast {
		return &Return{Arg: expr}, nil
	}
	return &ExpressionStmt{Expr: expr}, nil
}

// --- let ---

func (b *Builder) lowerLet(e sexp.SExp) (Node, error) {
	if len(e.Elems) < 2 || e.Elems[1].Kind != sexp.KindList {
		return nil, newError(diagnostics.CodeCodeGenBadLet, b.path, e.Pos, "")
	}
	bindings := e.Elems[1].Elems
	if len(bindings)%2 != 0 {
		return nil, newError(diagnostics.CodeCodeGenBadLet, b.path, e.Pos, "")
	}
	var body []Node
	for i := 0; i < len(bindings); i += 2 {
		name := bindings[i]
		if name.Kind != sexp.KindSymbol {
			return nil, newError(diagnostics.CodeCodeGenBadLet, b.path, e.Pos, "")
		}
		init, err := b.lowerExpr(bindings[i+1])
		if err != nil {
			return nil, err
		}
		body = append(body, &VariableDecl{ID: camelCase(name.Sym), Init: init, Kind: KindConst})
	}
	for i, bform := range e.Elems[2:] {
		last := i == len(e.Elems)-3
		n, err := b.lowerBodyForm(bform, last)
		if err != nil {
			return nil, err
		}
		body = append(body, n)
	}
	return &Block{Body: body}, nil
}

// --- expressions ---

func (b *Builder) lowerExpr(e sexp.SExp) (Node, error) {
	switch e.Kind {
	case sexp.KindSymbol:
		return &Identifier{Name: camelCase(e.Sym)}, nil
	case sexp.KindLiteral:
		return b.lowerLiteral(e), nil
	}
	if e.IsEmptyList() {
		return &ArrayLit{}, nil
	}
	head, hasHead := e.HeadSymbol()
	if !hasHead {
		return nil, b.badNode(e, "call target must be an identifier")
	}
	switch head {
	case "+", "-", "*", "/":
		return b.lowerArithmetic(e)
	case "list", "vector":
		return b.lowerList(e)
	case "hash-map":
		return b.lowerHashMap(e)
	case "get":
		return b.lowerGet(e)
	case "js-get":
		return b.lowerJSGet(e)
	case "js-call":
		return b.lowerJSCall(e)
	case "let":
		return b.lowerLet(e)
	case "str":
		return b.lowerStr(e)
	case "new":
		return b.lowerNew(e)
	case "keyword":
		return b.lowerKeyword(e)
	case "fn":
		return b.lowerFn(e, "")
	default:
		return b.lowerCall(e)
	}
}

func (b *Builder) lowerLiteral(e sexp.SExp) Node {
	switch e.LitType {
	case sexp.LitString:
		return &StringLit{Value: e.Str}
	case sexp.LitNumber:
		return &NumericLit{Value: e.Num}
	case sexp.LitBool:
		return &BooleanLit{Value: e.Bool}
	default:
		return &NullLit{}
	}
}

func (b *Builder) lowerArithmetic(e sexp.SExp) (Node, error) {
	op, _ := e.HeadSymbol()
	args := e.Elems[1:]
	if len(args) == 0 {
		return nil, b.badNode(e, "arithmetic operator requires at least one argument")
	}
	first, err := b.lowerExpr(args[0])
	if err != nil {
		return nil, err
	}
	acc := first
	for _, a := range args[1:] {
		n, err := b.lowerExpr(a)
		if err != nil {
			return nil, err
		}
		acc = &Binary{Op: op, L: acc, R: n}
	}
	return acc, nil
}

func (b *Builder) lowerList(e sexp.SExp) (Node, error) {
	elems := make([]Node, 0, len(e.Elems)-1)
	for _, a := range e.Elems[1:] {
		n, err := b.lowerExpr(a)
		if err != nil {
			return nil, err
		}
		elems = append(elems, n)
	}
	return &ArrayLit{Elements: elems}, nil
}

func (b *Builder) lowerHashMap(e sexp.SExp) (Node, error) {
	kv := e.Elems[1:]
	if len(kv)%2 != 0 {
		return nil, newError(diagnostics.CodeCodeGenOddKV, b.path, e.Pos, "")
	}
	props := make([]Property, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		key, err := b.lowerExpr(kv[i])
		if err != nil {
			return nil, err
		}
		val, err := b.lowerExpr(kv[i+1])
		if err != nil {
			return nil, err
		}
		props = append(props, Property{Key: key, Value: val, Computed: true})
	}
	return &ObjectLit{Props: props}, nil
}

// lowerGet implements spec.md §4.8's literal rule: computed iff prop is a
// string literal. Target emission policy (dot vs. bracket) is the Target
// AST Emitter's concern, not this one's.
func (b *Builder) lowerGet(e sexp.SExp) (Node, error) {
	if len(e.Elems) != 3 {
		return nil, b.badNode(e, "get requires an object and a property")
	}
	obj, err := b.lowerExpr(e.Elems[1])
	if err != nil {
		return nil, err
	}
	prop, err := b.lowerExpr(e.Elems[2])
	if err != nil {
		return nil, err
	}
	computed := e.Elems[2].Kind == sexp.KindLiteral && e.Elems[2].LitType == sexp.LitString
	return &Member{Obj: obj, Prop: prop, Computed: computed}, nil
}

// lowerJSGet lowers the syntax transformer's (js-get obj "prop") dotted
// property-access form into a dot-style Member.
func (b *Builder) lowerJSGet(e sexp.SExp) (Node, error) {
	if len(e.Elems) != 3 || e.Elems[2].Kind != sexp.KindLiteral {
		return nil, b.badNode(e, "js-get requires an object and a literal property name")
	}
	obj, err := b.lowerExpr(e.Elems[1])
	if err != nil {
		return nil, err
	}
	return &Member{Obj: obj, Prop: &StringLit{Value: e.Elems[2].Str}, Computed: false}, nil
}

// lowerJSCall lowers the syntax transformer's (js-call obj "method" args…)
// dotted-call form into a Call whose callee is a dot-style Member.
func (b *Builder) lowerJSCall(e sexp.SExp) (Node, error) {
	if len(e.Elems) < 3 || e.Elems[2].Kind != sexp.KindLiteral {
		return nil, b.badNode(e, "js-call requires an object and a literal method name")
	}
	obj, err := b.lowerExpr(e.Elems[1])
	if err != nil {
		return nil, err
	}
	callee := &Member{Obj: obj, Prop: &StringLit{Value: e.Elems[2].Str}, Computed: false}
	args, err := b.lowerArgs(e.Elems[3:])
	if err != nil {
		return nil, err
	}
	return &Call{Callee: callee, Args: args}, nil
}

func (b *Builder) lowerStr(e sexp.SExp) (Node, error) {
	args := e.Elems[1:]
	if len(args) == 0 {
		return &StringLit{Value: ""}, nil
	}
	first, err := b.lowerExpr(args[0])
	if err != nil {
		return nil, err
	}
	acc := first
	for _, a := range args[1:] {
		n, err := b.lowerExpr(a)
		if err != nil {
			return nil, err
		}
		acc = &Binary{Op: "+", L: acc, R: n}
	}
	return acc, nil
}

// lowerNew implements the $new sentinel call: (new Ctor args…) becomes a
// CallExpression to the identifier $new with [Ctor, args…].
func (b *Builder) lowerNew(e sexp.SExp) (Node, error) {
	if len(e.Elems) < 2 {
		return nil, b.badNode(e, "new requires a constructor")
	}
	ctor, err := b.lowerExpr(e.Elems[1])
	if err != nil {
		return nil, err
	}
	args, err := b.lowerArgs(e.Elems[2:])
	if err != nil {
		return nil, err
	}
	return &Call{Callee: &Identifier{Name: "$new"}, Args: append([]Node{ctor}, args...)}, nil
}

func (b *Builder) lowerKeyword(e sexp.SExp) (Node, error) {
	if len(e.Elems) != 2 || e.Elems[1].Kind != sexp.KindSymbol {
		return nil, b.badNode(e, "keyword requires a symbol")
	}
	return &StringLit{Value: ":" + e.Elems[1].Sym}, nil
}

func (b *Builder) lowerArgs(elems []sexp.SExp) ([]Node, error) {
	args := make([]Node, 0, len(elems))
	for _, a := range elems {
		n, err := b.lowerExpr(a)
		if err != nil {
			return nil, err
		}
		args = append(args, n)
	}
	return args, nil
}

// lowerCall lowers a plain function call, applying named-argument folding
// when any argument is an identifier ending with ':' (spec.md §4.8).
func (b *Builder) lowerCall(e sexp.SExp) (Node, error) {
	callee, err := b.lowerExpr(e.Elems[0])
	if err != nil {
		return nil, err
	}
	rawArgs := e.Elems[1:]
	if hasNamedArg(rawArgs) {
		obj, err := b.lowerNamedArgs(e, rawArgs)
		if err != nil {
			return nil, err
		}
		return &Call{Callee: callee, Args: []Node{obj}, IsNamedArgs: true}, nil
	}
	args, err := b.lowerArgs(rawArgs)
	if err != nil {
		return nil, err
	}
	return &Call{Callee: callee, Args: args}, nil
}

func hasNamedArg(args []sexp.SExp) bool {
	for _, a := range args {
		if a.Kind == sexp.KindSymbol && strings.HasSuffix(a.Sym, ":") {
			return true
		}
	}
	return false
}

func (b *Builder) lowerNamedArgs(call sexp.SExp, args []sexp.SExp) (Node, error) {
	if len(args)%2 != 0 {
		return nil, b.badNode(call, "named-argument call requires name:value pairs")
	}
	props := make([]Property, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		key := args[i]
		if key.Kind != sexp.KindSymbol || !strings.HasSuffix(key.Sym, ":") {
			return nil, b.badNode(call, "named-argument call requires name:value pairs")
		}
		val, err := b.lowerExpr(args[i+1])
		if err != nil {
			return nil, err
		}
		name := camelCase(strings.TrimSuffix(key.Sym, ":"))
		props = append(props, Property{Key: &Identifier{Name: name}, Value: val})
	}
	return &ObjectLit{Props: props}, nil
}

// camelCase converts a hyphenated HQL identifier into a camelCase
// JavaScript identifier (spec.md §4.8's closing rule). Names without a
// hyphen pass through unchanged.
func camelCase(name string) string {
	if !strings.Contains(name, "-") {
		return name
	}
	parts := strings.Split(name, "-")
	var b strings.Builder
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i == 0 {
			b.WriteString(p)
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}
