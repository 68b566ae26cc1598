package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hql-lang/hql/internal/hql/ir"
)

func emitOne(t *testing.T, cfg Config, n ir.Node) Stmt {
	t.Helper()
	out, err := New(cfg).Emit([]ir.Node{n})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("expected one statement, got %d", len(out))
	}
	return out[0]
}

func TestVariableDeclLowersToConstByDefault(t *testing.T) {
	s := emitOne(t, Config{}, &ir.VariableDecl{ID: "x", Init: &ir.NumericLit{Value: 1}, Kind: ir.KindConst})
	v, ok := s.(*SVariable)
	if !ok || v.Kind != "const" || v.ID != "x" {
		t.Fatalf("unexpected statement %+v", s)
	}
	n, ok := v.Init.(*ENumber)
	if !ok || n.Value != 1 {
		t.Fatalf("unexpected init %+v", v.Init)
	}
}

func TestVariableDeclHonorsLetKind(t *testing.T) {
	s := emitOne(t, Config{}, &ir.VariableDecl{ID: "x", Init: &ir.NumericLit{Value: 1}, Kind: ir.KindLet})
	v := s.(*SVariable)
	if v.Kind != "let" {
		t.Fatalf("expected let, got %q", v.Kind)
	}
}

func TestObjectPatternDestructureRendersPattern(t *testing.T) {
	pattern := &ir.ObjectPattern{Props: []ir.PatternProp{{Key: "w", Local: "w"}, {Key: "h", Local: "h"}}}
	s := emitOne(t, Config{}, &ir.VariableDecl{Pattern: pattern, Init: &ir.Identifier{Name: "params"}, Kind: ir.KindConst})
	v := s.(*SVariable)
	if v.Pattern == nil || len(v.Pattern.Props) != 2 || v.ID != "" {
		t.Fatalf("unexpected statement %+v", v)
	}
}

func TestAnonymousFunctionAssignedToNameBecomesConstVariable(t *testing.T) {
	fn := &ir.FunctionDecl{
		ID:          "area",
		IsAnonymous: true,
		Params:      []ir.Param{{Name: "w"}, {Name: "h"}},
		Body:        []ir.Node{&ir.Return{Arg: &ir.Binary{Op: "*", L: &ir.Identifier{Name: "w"}, R: &ir.Identifier{Name: "h"}}}},
	}
	s := emitOne(t, Config{}, &ir.VariableDecl{ID: "area", Init: fn, Kind: ir.KindConst})
	v, ok := s.(*SVariable)
	if !ok || v.ID != "area" {
		t.Fatalf("unexpected statement %+v", s)
	}
	if _, ok := v.Init.(*EFunction); !ok {
		t.Fatalf("expected EFunction init, got %T", v.Init)
	}
}

func TestNewSentinelRewritesToENew(t *testing.T) {
	call := &ir.Call{
		Callee: &ir.Identifier{Name: "$new"},
		Args:   []ir.Node{&ir.Identifier{Name: "Foo"}, &ir.NumericLit{Value: 1}},
	}
	s := emitOne(t, Config{}, &ir.ExpressionStmt{Expr: call})
	expr := s.(*SExpr).Expr
	n := require.New(t)
	ne, ok := expr.(*ENew)
	n.True(ok, "expected ENew, got %T", expr)
	callee, ok := ne.Callee.(*EIdentifier)
	n.True(ok, "unexpected constructor %+v", ne.Callee)
	n.Equal("Foo", callee.Name)
	n.Len(ne.Args, 1)
}

func TestMemberAccessUsesDotForIdentifierShapedStringProp(t *testing.T) {
	m := &ir.Member{Obj: &ir.Identifier{Name: "obj"}, Prop: &ir.StringLit{Value: "prop"}, Computed: false}
	s := emitOne(t, Config{}, &ir.ExpressionStmt{Expr: m})
	dot, ok := s.(*SExpr).Expr.(*EDot)
	if !ok || dot.Name != "prop" {
		t.Fatalf("expected dot access, got %+v", s.(*SExpr).Expr)
	}
}

func TestMemberAccessUsesBracketForComputedNonAllowListedProp(t *testing.T) {
	m := &ir.Member{Obj: &ir.Identifier{Name: "obj"}, Prop: &ir.StringLit{Value: "weird-name"}, Computed: true}
	s := emitOne(t, Config{}, &ir.ExpressionStmt{Expr: m})
	idx, ok := s.(*SExpr).Expr.(*EIndex)
	if !ok {
		t.Fatalf("expected bracket access, got %T", s.(*SExpr).Expr)
	}
	str, ok := idx.Index.(*EString)
	if !ok || str.Value != "weird-name" {
		t.Fatalf("unexpected index %+v", idx.Index)
	}
}

func TestMemberAccessAllowListForcesDotEvenWhenComputed(t *testing.T) {
	m := &ir.Member{Obj: &ir.Identifier{Name: "arr"}, Prop: &ir.StringLit{Value: "length"}, Computed: true}
	s := emitOne(t, Config{}, &ir.ExpressionStmt{Expr: m})
	dot, ok := s.(*SExpr).Expr.(*EDot)
	if !ok || dot.Name != "length" {
		t.Fatalf("expected allow-listed dot access, got %+v", s.(*SExpr).Expr)
	}
}

func TestStringLitWithInterpolationBecomesTemplate(t *testing.T) {
	s := emitOne(t, Config{}, &ir.ExpressionStmt{Expr: &ir.StringLit{Value: "hello ${name}"}})
	if _, ok := s.(*SExpr).Expr.(*ETemplate); !ok {
		t.Fatalf("expected ETemplate, got %T", s.(*SExpr).Expr)
	}
}

func TestPlainStringLitStaysDoubleQuoted(t *testing.T) {
	s := emitOne(t, Config{}, &ir.ExpressionStmt{Expr: &ir.StringLit{Value: "hello"}})
	if _, ok := s.(*SExpr).Expr.(*EString); !ok {
		t.Fatalf("expected EString, got %T", s.(*SExpr).Expr)
	}
}

func TestJavaScriptTargetDropsTypeAnnotations(t *testing.T) {
	fn := &ir.FunctionDecl{
		ID:          "f",
		IsAnonymous: true,
		Params:      []ir.Param{{Name: "x", TypeName: "number"}},
		ReturnType:  &ir.TypeAnnotation{Name: "number"},
		Body:        []ir.Node{&ir.Return{Arg: &ir.Identifier{Name: "x"}}},
	}
	s := emitOne(t, Config{Lang: JavaScript}, &ir.VariableDecl{ID: "f", Init: fn, Kind: ir.KindConst})
	ef := s.(*SVariable).Init.(*EFunction)
	if ef.ReturnType != nil || ef.Params[0].Type != nil {
		t.Fatalf("expected dropped annotations for JS target, got %+v", ef)
	}
}

func TestTypeScriptTargetPreservesDeclaredAnnotations(t *testing.T) {
	fn := &ir.FunctionDecl{
		ID:          "f",
		IsAnonymous: true,
		Params:      []ir.Param{{Name: "x", TypeName: "number"}},
		ReturnType:  &ir.TypeAnnotation{Name: "number"},
		Body:        []ir.Node{&ir.Return{Arg: &ir.Identifier{Name: "x"}}},
	}
	s := emitOne(t, Config{Lang: TypeScript}, &ir.VariableDecl{ID: "f", Init: fn, Kind: ir.KindConst})
	ef := s.(*SVariable).Init.(*EFunction)
	require.NotNil(t, ef.ReturnType)
	require.NotNil(t, ef.Params[0].Type)
	assert.Equal(t, "number", *ef.ReturnType)
	assert.Equal(t, "number", *ef.Params[0].Type)
}

func TestTypeScriptTargetFillsMissingAnnotationAsAny(t *testing.T) {
	fn := &ir.FunctionDecl{
		ID:          "f",
		IsAnonymous: true,
		Params:      []ir.Param{{Name: "x"}},
		Body:        []ir.Node{&ir.Return{Arg: &ir.Identifier{Name: "x"}}},
	}
	s := emitOne(t, Config{Lang: TypeScript, MissingAnnotationAsAny: true}, &ir.VariableDecl{ID: "f", Init: fn, Kind: ir.KindConst})
	ef := s.(*SVariable).Init.(*EFunction)
	if ef.Params[0].Type == nil || *ef.Params[0].Type != "any" {
		t.Fatalf("expected 'any' fallback, got %+v", ef.Params[0].Type)
	}
}

func TestEnumDeclLowersMembersWithStringInitializers(t *testing.T) {
	decl := &ir.EnumDecl{ID: "Color", Members: []ir.EnumMember{
		{Name: "Red", Init: &ir.StringLit{Value: "Red"}},
		{Name: "Blue", Init: &ir.StringLit{Value: "Blue"}},
	}}
	s := emitOne(t, Config{}, decl)
	enum, ok := s.(*SEnumDecl)
	if !ok || enum.ID != "Color" || len(enum.Members) != 2 {
		t.Fatalf("unexpected statement %+v", s)
	}
}

func TestNamedArgsCallLowersFoldedObjectArg(t *testing.T) {
	call := &ir.Call{
		Callee: &ir.Identifier{Name: "area"},
		Args: []ir.Node{&ir.ObjectLit{Props: []ir.Property{
			{Key: &ir.Identifier{Name: "w"}, Value: &ir.NumericLit{Value: 3}},
			{Key: &ir.Identifier{Name: "h"}, Value: &ir.NumericLit{Value: 4}},
		}}},
		IsNamedArgs: true,
	}
	s := emitOne(t, Config{}, &ir.ExpressionStmt{Expr: call})
	ecall, ok := s.(*SExpr).Expr.(*ECall)
	require.True(t, ok, "unexpected expr %+v", s.(*SExpr).Expr)
	require.Len(t, ecall.Args, 1)
	obj, ok := ecall.Args[0].(*EObject)
	require.True(t, ok, "expected folded object arg, got %+v", ecall.Args[0])
	assert.Len(t, obj.Props, 2)
}
