package parser

import (
	"testing"

	"github.com/hql-lang/hql/internal/hql/sexp"
)

func parse(t *testing.T, src string) []sexp.SExp {
	t.Helper()
	forms, err := ParseString(0, "test.hql", src)
	if err != nil {
		t.Fatalf("ParseString(%q) returned error: %v", src, err)
	}
	return forms
}

func TestParseAtoms(t *testing.T) {
	forms := parse(t, `"s" 1.5 true false nil sym`)
	if len(forms) != 6 {
		t.Fatalf("got %d forms, want 6", len(forms))
	}
	if forms[0].Kind != sexp.KindLiteral || forms[0].Str != "s" {
		t.Errorf("form 0: got %#v", forms[0])
	}
	if forms[1].Num != 1.5 {
		t.Errorf("form 1: got %v, want 1.5", forms[1].Num)
	}
	if !forms[2].Bool {
		t.Errorf("form 2: want true")
	}
	if forms[3].Bool {
		t.Errorf("form 3: want false")
	}
	if forms[4].LitType != sexp.LitNil {
		t.Errorf("form 4: want nil literal")
	}
	if forms[5].Sym != "sym" {
		t.Errorf("form 5: got %q, want sym", forms[5].Sym)
	}
}

func TestParseSetLiteralProducesMarkerList(t *testing.T) {
	forms := parse(t, `#[1 2 3]`)
	if len(forms) != 1 {
		t.Fatalf("got %d forms, want 1", len(forms))
	}
	root := forms[0]
	if root.Kind != sexp.KindList || len(root.Elems) != 4 {
		t.Fatalf("got %#v", root)
	}
	if root.Elems[0].Kind != sexp.KindSymbol || root.Elems[0].Sym != setLiteralHead {
		t.Fatalf("expected marker head %q, got %#v", setLiteralHead, root.Elems[0])
	}
	for i, want := range []float64{1, 2, 3} {
		if root.Elems[i+1].Num != want {
			t.Errorf("element %d: got %v, want %v", i, root.Elems[i+1].Num, want)
		}
	}
}

func TestParseNestedList(t *testing.T) {
	forms := parse(t, `(def x (+ 1 2))`)
	if len(forms) != 1 {
		t.Fatalf("got %d forms, want 1", len(forms))
	}
	root := forms[0]
	if root.Kind != sexp.KindList || len(root.Elems) != 3 {
		t.Fatalf("got %#v", root)
	}
	inner := root.Elems[2]
	if inner.Kind != sexp.KindList || len(inner.Elems) != 3 {
		t.Fatalf("inner: got %#v", inner)
	}
}

func TestParseEmptyListDistinctFromNil(t *testing.T) {
	forms := parse(t, `() nil`)
	if !forms[0].IsEmptyList() {
		t.Errorf("forms[0] should be an empty list")
	}
	if forms[1].LitType != sexp.LitNil {
		t.Errorf("forms[1] should be nil")
	}
	if sexp.Equal(forms[0], forms[1]) {
		t.Errorf("empty list must not equal nil")
	}
}

func TestParseQuasiquoteDesugars(t *testing.T) {
	forms := parse(t, "`(a ,b ,@c)")
	root := forms[0]
	if name, _ := root.HeadSymbol(); name != "quasiquote" {
		t.Fatalf("got head %v, want quasiquote", root)
	}
	inner := root.Elems[1]
	if inner.Kind != sexp.KindList || len(inner.Elems) != 3 {
		t.Fatalf("inner: got %#v", inner)
	}
	if name, _ := inner.Elems[1].HeadSymbol(); name != "unquote" {
		t.Errorf("got %v, want unquote", inner.Elems[1])
	}
	if name, _ := inner.Elems[2].HeadSymbol(); name != "unquote-splicing" {
		t.Errorf("got %v, want unquote-splicing", inner.Elems[2])
	}
}

func TestParseUnclosedListError(t *testing.T) {
	_, err := ParseString(0, "test.hql", "(def x 1")
	if err == nil {
		t.Fatal("expected ParseError for unclosed list")
	}
	if _, ok := err.(*ParseError); !ok {
		t.Fatalf("expected *ParseError, got %T", err)
	}
}

func TestParseUnexpectedCloseParenError(t *testing.T) {
	_, err := ParseString(0, "test.hql", "(def x 1))")
	if err == nil {
		t.Fatal("expected ParseError for unexpected ')'")
	}
}

func TestParseRoundTrip(t *testing.T) {
	src := `(defn area (w h) (* w h))`
	forms := parse(t, src)
	rendered := forms[0].String()
	reparsed := parse(t, rendered)
	if !sexp.Equal(forms[0], reparsed[0]) {
		t.Fatalf("round trip mismatch: %s vs %s", forms[0].String(), reparsed[0].String())
	}
}
