package target

import (
	"regexp"

	"github.com/hql-lang/hql/internal/hql/diagnostics"
	"github.com/hql-lang/hql/internal/hql/ir"
)

// Language selects the target emission language, governing the type
// annotation policy (spec.md §4.9).
type Language int

const (
	JavaScript Language = iota
	TypeScript
)

// Config configures decisions spec.md §4.9 leaves to the host: which
// language to emit for, and (for TypeScript) how to render a parameter
// or return value with no declared type.
type Config struct {
	Lang Language

	// MissingAnnotationAsAny renders a missing TypeScript annotation as
	// "any" rather than omitting it entirely (spec.md §4.9: "missing
	// annotations are either omitted or emitted as `any` per
	// configuration"). Ignored when Lang is JavaScript (annotations are
	// always dropped there).
	MissingAnnotationAsAny bool

	// DotAllowList names properties that always render with dot notation
	// even when the IR marks the access computed (spec.md §4.9's "small
	// allow-list of common property names"). Defaults to a small set of
	// common JS built-in members when nil.
	DotAllowList map[string]bool
}

var defaultDotAllowList = map[string]bool{
	"length": true, "push": true, "pop": true, "map": true, "filter": true,
	"forEach": true, "reduce": true, "then": true, "catch": true, "finally": true,
	"toString": true, "join": true, "slice": true, "concat": true, "includes": true,
}

// identRE matches a JS identifier-shaped property name, per spec.md
// §4.9's dot-notation policy.
var identRE = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// Emitter lowers IR nodes into the target AST under one Config.
type Emitter struct {
	cfg Config
}

// New returns an Emitter configured per cfg, filling in the default
// dot-notation allow-list when the caller left it nil.
func New(cfg Config) *Emitter {
	if cfg.DotAllowList == nil {
		cfg.DotAllowList = defaultDotAllowList
	}
	return &Emitter{cfg: cfg}
}

// Emit lowers a sequence of top-level IR nodes into target statements.
func (em *Emitter) Emit(nodes []ir.Node) ([]Stmt, error) {
	out := make([]Stmt, 0, len(nodes))
	for _, n := range nodes {
		s, err := em.lowerStmt(n)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (em *Emitter) lowerBody(nodes []ir.Node) ([]Stmt, error) {
	out := make([]Stmt, 0, len(nodes))
	for _, n := range nodes {
		s, err := em.lowerStmt(n)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// --- statement-position lowering ---

func (em *Emitter) lowerStmt(n ir.Node) (Stmt, error) {
	switch v := n.(type) {
	case *ir.VariableDecl:
		return em.lowerVariableDecl(v)
	case *ir.FunctionDecl:
		return em.lowerFunctionStmt(v)
	case *ir.EnumDecl:
		return em.lowerEnumDecl(v)
	case *ir.ImportDecl:
		return em.lowerImportDecl(v), nil
	case *ir.ExportDecl:
		return em.lowerExportDecl(v)
	case *ir.Block:
		body, err := em.lowerBody(v.Body)
		if err != nil {
			return nil, err
		}
		return &SBlock{Body: body}, nil
	case *ir.Return:
		if v.Arg == nil {
			return &SReturn{}, nil
		}
		arg, err := em.lowerExpr(v.Arg)
		if err != nil {
			return nil, err
		}
		return &SReturn{Arg: arg}, nil
	case *ir.ExpressionStmt:
		expr, err := em.lowerExpr(v.Expr)
		if err != nil {
			return nil, err
		}
		return &SExpr{Expr: expr}, nil
	default:
		return nil, newError(diagnostics.CodeCodeGenBadNode, "target emitter: unhandled IR node in statement position")
	}
}

func (em *Emitter) lowerVariableDecl(v *ir.VariableDecl) (Stmt, error) {
	init, err := em.lowerExpr(v.Init)
	if err != nil {
		return nil, err
	}
	kind := "const"
	if v.Kind == ir.KindLet {
		kind = "let"
	}
	out := &SVariable{Kind: kind, Init: init}
	if v.Pattern != nil {
		out.Pattern = em.lowerObjectPattern(v.Pattern)
	} else {
		out.ID = v.ID
	}
	return out, nil
}

// lowerFunctionStmt implements spec.md §4.9's anonymous-function-
// assigned-to-a-name rule: every FunctionDecl this IR Builder produces
// has IsAnonymous set (see ir.FunctionDecl's doc comment), so a named one
// always becomes a const-bound function expression rather than a bare
// function declaration; only a FunctionDecl some other IR producer built
// with IsAnonymous=false renders as SFunctionDecl.
func (em *Emitter) lowerFunctionStmt(v *ir.FunctionDecl) (Stmt, error) {
	fn, err := em.lowerFunctionExpr(v)
	if err != nil {
		return nil, err
	}
	if v.ID == "" {
		return &SExpr{Expr: fn}, nil
	}
	if !v.IsAnonymous {
		return &SFunctionDecl{Name: v.ID, Params: fn.Params, Body: fn.Body, ReturnType: fn.ReturnType}, nil
	}
	return &SVariable{Kind: "const", ID: v.ID, Init: fn}, nil
}

func (em *Emitter) lowerFunctionExpr(v *ir.FunctionDecl) (*EFunction, error) {
	body, err := em.lowerBody(v.Body)
	if err != nil {
		return nil, err
	}
	params := make([]Param, len(v.Params))
	for i, p := range v.Params {
		params[i] = Param{Name: p.Name, Type: em.typeFor(p.TypeName)}
	}
	return &EFunction{Params: params, Body: body, ReturnType: em.typeAnnotation(v.ReturnType)}, nil
}

func (em *Emitter) lowerEnumDecl(v *ir.EnumDecl) (Stmt, error) {
	members := make([]SEnumMember, len(v.Members))
	for i, m := range v.Members {
		init, err := em.lowerExpr(m.Init)
		if err != nil {
			return nil, err
		}
		members[i] = SEnumMember{Name: m.Name, Init: init}
	}
	return &SEnumDecl{ID: v.ID, Members: members}, nil
}

func (em *Emitter) lowerImportDecl(v *ir.ImportDecl) Stmt {
	specs := make([]SImportSpecifier, len(v.Specifiers))
	for i, s := range v.Specifiers {
		specs[i] = SImportSpecifier{Kind: int(s.Kind), Imported: s.Imported, Local: s.Local}
	}
	return &SImportDecl{Source: v.Source, Specifiers: specs, IsLocal: v.IsLocal}
}

func (em *Emitter) lowerExportDecl(v *ir.ExportDecl) (Stmt, error) {
	out := &SExportDecl{Specifiers: make([]SExportSpecifier, len(v.Specifiers))}
	for i, s := range v.Specifiers {
		out.Specifiers[i] = SExportSpecifier{Local: s.Local, Exported: s.Exported}
	}
	if v.Declaration != nil {
		decl, err := em.lowerStmt(v.Declaration)
		if err != nil {
			return nil, err
		}
		out.Declaration = decl
	}
	return out, nil
}

func (em *Emitter) lowerObjectPattern(p *ir.ObjectPattern) *OPattern {
	out := &OPattern{Props: make([]OPatternProp, len(p.Props))}
	for i, prop := range p.Props {
		out.Props[i] = OPatternProp{Key: prop.Key, Local: prop.Local}
	}
	return out
}

// --- expression-position lowering ---

func (em *Emitter) lowerExpr(n ir.Node) (Expr, error) {
	switch v := n.(type) {
	case *ir.Identifier:
		return &EIdentifier{Name: v.Name}, nil
	case *ir.StringLit:
		return em.lowerStringLit(v.Value), nil
	case *ir.NumericLit:
		return &ENumber{Value: v.Value}, nil
	case *ir.BooleanLit:
		return &EBoolean{Value: v.Value}, nil
	case *ir.NullLit:
		return &ENull{}, nil
	case *ir.ArrayLit:
		elems := make([]Expr, len(v.Elements))
		for i, e := range v.Elements {
			el, err := em.lowerExpr(e)
			if err != nil {
				return nil, err
			}
			elems[i] = el
		}
		return &EArray{Elements: elems}, nil
	case *ir.ObjectLit:
		return em.lowerObjectLit(v)
	case *ir.Binary:
		l, err := em.lowerExpr(v.L)
		if err != nil {
			return nil, err
		}
		r, err := em.lowerExpr(v.R)
		if err != nil {
			return nil, err
		}
		return &EBinary{Op: v.Op, L: l, R: r}, nil
	case *ir.Member:
		return em.lowerMember(v)
	case *ir.Call:
		return em.lowerCall(v)
	case *ir.FunctionDecl:
		return em.lowerFunctionExpr(v)
	default:
		return nil, newError(diagnostics.CodeCodeGenBadNode, "target emitter: unhandled IR node in expression position")
	}
}

// lowerStringLit implements spec.md §4.9's template-vs-plain-string
// policy: a value containing "${" is emitted as a backtick template.
func (em *Emitter) lowerStringLit(value string) Expr {
	if containsTemplateEscape(value) {
		return &ETemplate{Value: value}
	}
	return &EString{Value: value}
}

func containsTemplateEscape(s string) bool {
	for i := 0; i+1 < len(s); i++ {
		if s[i] == '$' && s[i+1] == '{' {
			return true
		}
	}
	return false
}

func (em *Emitter) lowerObjectLit(v *ir.ObjectLit) (Expr, error) {
	props := make([]EProperty, len(v.Props))
	for i, p := range v.Props {
		key, err := em.lowerExpr(p.Key)
		if err != nil {
			return nil, err
		}
		val, err := em.lowerExpr(p.Value)
		if err != nil {
			return nil, err
		}
		props[i] = EProperty{Key: key, Value: val, Computed: p.Computed}
	}
	return &EObject{Props: props}, nil
}

// lowerCall rewrites the $new sentinel into ENew (spec.md §4.9) and lowers
// every other call into a plain ECall; named-argument folding already
// happened in the IR Builder (ir.Call.Args holds the single folded
// ObjectLit when IsNamedArgs is set), so there is nothing extra to do for
// that case here beyond lowering Args normally.
func (em *Emitter) lowerCall(v *ir.Call) (Expr, error) {
	args := make([]Expr, len(v.Args))
	for i, a := range v.Args {
		arg, err := em.lowerExpr(a)
		if err != nil {
			return nil, err
		}
		args[i] = arg
	}
	if id, ok := v.Callee.(*ir.Identifier); ok && id.Name == "$new" {
		if len(args) == 0 {
			return nil, newError(diagnostics.CodeCodeGenBadNode, "$new requires a constructor argument")
		}
		return &ENew{Callee: args[0], Args: args[1:]}, nil
	}
	callee, err := em.lowerExpr(v.Callee)
	if err != nil {
		return nil, err
	}
	return &ECall{Callee: callee, Args: args}, nil
}

// lowerMember implements spec.md §4.9's dot-vs-bracket policy: dot
// notation when the IR doesn't mark the access computed and the property
// is identifier-shaped, OR regardless of the computed flag when the
// property name is on the configured allow-list. Every other case
// renders as bracket/index access.
func (em *Emitter) lowerMember(v *ir.Member) (Expr, error) {
	obj, err := em.lowerExpr(v.Obj)
	if err != nil {
		return nil, err
	}
	if name, ok := dotCandidate(v.Prop); ok {
		if !v.Computed || em.cfg.DotAllowList[name] {
			return &EDot{Target: obj, Name: name}, nil
		}
	}
	prop, err := em.lowerExpr(v.Prop)
	if err != nil {
		return nil, err
	}
	return &EIndex{Target: obj, Index: prop}, nil
}

// dotCandidate reports whether prop is identifier-shaped (an Identifier
// node, or a StringLit whose value matches a JS identifier) and, if so,
// the property name to render after the dot.
func dotCandidate(prop ir.Node) (string, bool) {
	switch v := prop.(type) {
	case *ir.Identifier:
		return v.Name, true
	case *ir.StringLit:
		if identRE.MatchString(v.Value) {
			return v.Value, true
		}
	}
	return "", false
}

// --- type annotation policy ---

// typeAnnotation applies spec.md §4.9's TS/JS type-annotation policy to a
// present (possibly nil) IR TypeAnnotation.
func (em *Emitter) typeAnnotation(t *ir.TypeAnnotation) *string {
	if em.cfg.Lang == JavaScript {
		return nil
	}
	if t != nil {
		name := t.Name
		return &name
	}
	if em.cfg.MissingAnnotationAsAny {
		any := "any"
		return &any
	}
	return nil
}

// typeFor applies the same policy to a parameter's bare type name string
// (ir.Param.TypeName, empty when untyped).
func (em *Emitter) typeFor(name string) *string {
	if em.cfg.Lang == JavaScript {
		return nil
	}
	if name != "" {
		n := name
		return &n
	}
	if em.cfg.MissingAnnotationAsAny {
		any := "any"
		return &any
	}
	return nil
}
