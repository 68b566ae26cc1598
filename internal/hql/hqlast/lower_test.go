package hqlast

import (
	"testing"

	"github.com/hql-lang/hql/internal/hql/sexp"
	"github.com/hql-lang/hql/internal/hql/token"
)

func sym(s string) sexp.SExp  { return sexp.Symbol(s, token.Position{}) }
func num(n float64) sexp.SExp { return sexp.Num(n, token.Position{}) }
func lst(elems ...sexp.SExp) sexp.SExp {
	return sexp.List(elems, token.Position{})
}

func TestLowerPassesThroughOrdinaryForms(t *testing.T) {
	forms := []sexp.SExp{lst(sym("def"), sym("x"), num(1))}
	out, err := Lower("t.hql", forms)
	if err != nil {
		t.Fatal(err)
	}
	if !sexp.EqualSeq(forms, out) {
		t.Fatal("expected forms to pass through unchanged")
	}
}

func TestLowerRejectsLeftoverMacroDefinition(t *testing.T) {
	forms := []sexp.SExp{lst(sym("defmacro"), sym("m"), lst(), num(1))}
	if _, err := Lower("t.hql", forms); err == nil {
		t.Fatal("expected error for a defmacro surviving to HQL-AST lowering")
	}
}

func TestLowerRejectsUnquoteOutsideQuasiquote(t *testing.T) {
	forms := []sexp.SExp{lst(sym("unquote"), sym("x"))}
	if _, err := Lower("t.hql", forms); err == nil {
		t.Fatal("expected error for unquote outside quasiquote")
	}
}

func TestLowerAllowsUnquoteInsideQuasiquote(t *testing.T) {
	forms := []sexp.SExp{lst(sym("quasiquote"), lst(sym("unquote"), sym("x")))}
	if _, err := Lower("t.hql", forms); err != nil {
		t.Fatal(err)
	}
}

func TestLowerAllowsReservedWordsInsideQuote(t *testing.T) {
	forms := []sexp.SExp{lst(sym("quote"), lst(sym("unquote"), sym("x")))}
	if _, err := Lower("t.hql", forms); err != nil {
		t.Fatal(err)
	}
}
