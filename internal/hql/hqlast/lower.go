// Package hqlast implements the HQL-AST Lowerer (spec.md §4.7): the
// one-to-one translation from canonical, fully macro-expanded
// S-expressions to the "HQL AST" spec.md §3 describes as sharing SExp's
// exact three-variant shape. Because HQL AST and SExp are structurally
// identical, Lower's job is validation, not transformation: every
// defmacro/macro/export-macro definition form must already be gone (the
// expander's Cleanup phase strips them), and no reserved-word form that
// only makes sense inside quoted data (unquote, unquote-splicing) may
// appear in live (non-quoted) position.
//
// Grounded on internal/transpiler/ast_visitor.go's switch-on-head-symbol
// dispatch shape, generalized to HQL's closed special-form set (spec.md
// §6).
package hqlast

import (
	"github.com/hql-lang/hql/internal/hql/diagnostics"
	"github.com/hql-lang/hql/internal/hql/sexp"
	"github.com/hql-lang/hql/internal/hql/token"
)

// TransformError reports that a form is not valid in the canonical core
// language reached after macro expansion, per spec.md §4.7.
type TransformError struct {
	diagnostics.Diagnostic
}

func (e *TransformError) Error() string { return e.Diagnostic.RenderText() }

func newError(path string, pos token.Position, name string) *TransformError {
	d := diagnostics.New(diagnostics.CodeTransformUnknownForm, diagnostics.SeverityError, path, int(pos.Line), int(pos.Column),
		map[string]any{"Name": name})
	return &TransformError{Diagnostic: d}
}

// leftoverMacroForms are definition-only forms that the expander's
// Cleanup phase is responsible for stripping; surviving to this stage is
// a lowering-pipeline bug, not user error, but we still report it as a
// TransformError rather than panicking.
var leftoverMacroForms = map[string]bool{
	"defmacro":    true,
	"macro":       true,
	"export-macro": true,
}

// Lower validates forms as the canonical post-expansion HQL AST and
// returns them unchanged (spec.md §3: "HQL AST: same three-variant shape
// as SExp"). path is used only for diagnostic rendering.
func Lower(path string, forms []sexp.SExp) ([]sexp.SExp, error) {
	for _, f := range forms {
		if err := validate(path, f, false); err != nil {
			return nil, err
		}
	}
	return forms, nil
}

// validate walks e, erroring on leftover macro-definition forms and on
// unquote/unquote-splicing appearing outside quoted data. inQuote is true
// while descending into the literal data of a (quote ...) or
// (quasiquote ...) form, where reserved words are just inert symbols.
func validate(path string, e sexp.SExp, inQuote bool) error {
	if e.Kind != sexp.KindList || e.IsEmptyList() {
		return nil
	}
	if head, ok := e.HeadSymbol(); ok {
		if !inQuote && leftoverMacroForms[head] {
			return newError(path, e.Pos, head)
		}
		if !inQuote && (head == "unquote" || head == "unquote-splicing") {
			return newError(path, e.Pos, head)
		}
		if head == "quote" {
			return validateChildren(path, e.Elems, true)
		}
		if head == "quasiquote" {
			return validateQuasiquoteBody(path, e.Elems)
		}
	}
	return validateChildren(path, e.Elems, inQuote)
}

func validateChildren(path string, elems []sexp.SExp, inQuote bool) error {
	for _, c := range elems {
		if err := validate(path, c, inQuote); err != nil {
			return err
		}
	}
	return nil
}

// validateQuasiquoteBody treats a quasiquote's immediate body as quoted
// data, but unquote/unquote-splicing subforms within it switch back to
// live validation (their argument is an ordinary expression).
func validateQuasiquoteBody(path string, elems []sexp.SExp) error {
	for _, c := range elems[1:] {
		if err := walkQuasiquote(path, c); err != nil {
			return err
		}
	}
	return nil
}

func walkQuasiquote(path string, e sexp.SExp) error {
	if e.Kind != sexp.KindList || e.IsEmptyList() {
		return nil
	}
	if head, ok := e.HeadSymbol(); ok {
		if head == "unquote" || head == "unquote-splicing" {
			return validateChildren(path, e.Elems[1:], false)
		}
	}
	for _, c := range e.Elems {
		if err := walkQuasiquote(path, c); err != nil {
			return err
		}
	}
	return nil
}
