// Package ir implements the IR Builder (spec.md §4.8): lowering canonical
// HQL-AST S-expressions into the closed set of typed IR node kinds spec.md
// §3 defines, including named-argument folding, object-pattern
// destructuring, the $new sentinel, and left-associated arithmetic.
//
// Grounded structurally on internal/transpiler/type_inference.go and
// types.go's node-kind-as-closed-union Go idiom (a marker interface
// implemented by tagged node structs), generalized from Vex's Go-shaped
// IR to spec.md §3's JS-shaped IR.
package ir

// Node is the marker interface every IR node kind implements, per spec.md
// §3's closed node-kind set.
type Node interface{ irNode() }

// DeclKind distinguishes a VariableDecl's binding keyword.
type DeclKind int

const (
	KindConst DeclKind = iota
	KindLet
)

func (k DeclKind) String() string {
	if k == KindLet {
		return "let"
	}
	return "const"
}

// --- Declarations ---

// VariableDecl's left-hand side is either a plain identifier (ID) or an
// object-destructuring pattern (Pattern, non-nil) — the latter produced
// only by the named-parameter lowering rule in spec.md §4.8 ("the body
// is prefixed by a VariableDecl whose left-hand side is ObjectPattern").
// Exactly one of ID/Pattern is set.
type VariableDecl struct {
	ID      string
	Pattern *ObjectPattern
	Init    Node
	Kind    DeclKind
}

func (*VariableDecl) irNode() {}

// Param is a function parameter: Name is always present; TypeName is set
// for a typed parameter (spec.md §4.3's "name: Type" surface form).
type Param struct {
	Name     string
	TypeName string // empty when untyped
}

type FunctionDecl struct {
	ID         string // empty for a nameless function expression
	Params     []Param
	Body       []Node
	ReturnType *TypeAnnotation // nil when untyped

	// IsAnonymous is true for every function built from HQL's (fn ...)
	// lambda syntax (the only function-literal surface form; defn
	// desugars into (def name (fn ...)) before the IR builder ever sees
	// it, per internal/hql/syntax's transformDefn). The target emitter
	// uses IsAnonymous together with whether ID is set to choose between
	// a "const x = function(){}" variable statement and a plain function
	// declaration, per spec.md §4.9.
	IsAnonymous bool

	// IsNamedParams is true when this function destructures its
	// arguments from a single synthetic "params" object, per spec.md
	// §4.8's named-parameter lowering rule. When true, Params holds the
	// single synthetic parameter and Body's first node is the
	// ObjectPattern-destructuring VariableDecl.
	IsNamedParams bool
}

func (*FunctionDecl) irNode() {}

type EnumMember struct {
	Name string
	Init Node // always a StringLit of the member's own name, per spec.md §4.8
}

type EnumDecl struct {
	ID      string
	Members []EnumMember
}

func (*EnumDecl) irNode() {}

// SpecifierKind distinguishes an ImportDecl/ExportDecl specifier shape.
type SpecifierKind int

const (
	SpecifierDefault SpecifierKind = iota
	SpecifierNamed
	SpecifierNamespace
)

type ImportSpecifier struct {
	Kind     SpecifierKind
	Imported string // original exported name; empty for Default/Namespace
	Local    string // local binding name
}

type ImportDecl struct {
	Source      string
	Specifiers  []ImportSpecifier
	IsLocal     bool
}

func (*ImportDecl) irNode() {}

type ExportSpecifier struct {
	Local    string
	Exported string // defaults to Local when re-exported under the same name
}

type ExportDecl struct {
	Declaration Node // e.g. the VariableDecl being exported; nil for a bare re-export
	Specifiers  []ExportSpecifier
}

func (*ExportDecl) irNode() {}

// --- Expressions ---

type Binary struct {
	Op   string
	L, R Node
}

func (*Binary) irNode() {}

type Call struct {
	Callee      Node
	Args        []Node
	IsNamedArgs bool
}

func (*Call) irNode() {}

type Member struct {
	Obj      Node
	Prop     Node
	Computed bool
}

func (*Member) irNode() {}

type Identifier struct{ Name string }

func (*Identifier) irNode() {}

type StringLit struct{ Value string }

func (*StringLit) irNode() {}

type NumericLit struct{ Value float64 }

func (*NumericLit) irNode() {}

type BooleanLit struct{ Value bool }

func (*BooleanLit) irNode() {}

type NullLit struct{}

func (*NullLit) irNode() {}

type ArrayLit struct{ Elements []Node }

func (*ArrayLit) irNode() {}

type Property struct {
	Key      Node // StringLit or Identifier
	Value    Node
	Computed bool
}

type ObjectLit struct{ Props []Property }

func (*ObjectLit) irNode() {}

// PatternProp is one field of an ObjectPattern destructuring binding.
type PatternProp struct {
	Key   string
	Local string // local binding name; equal to Key for shorthand {Key}
}

type ObjectPattern struct{ Props []PatternProp }

func (*ObjectPattern) irNode() {}

// --- Statements ---

type Block struct{ Body []Node }

func (*Block) irNode() {}

type Return struct{ Arg Node } // nil Arg renders a bare "return"

func (*Return) irNode() {}

type ExpressionStmt struct{ Expr Node }

func (*ExpressionStmt) irNode() {}

// --- Types ---

// TypeAnnotation is advisory, preserved only when emitting TypeScript
// (spec.md §3).
type TypeAnnotation struct{ Name string }

func (*TypeAnnotation) irNode() {}
