package ir

import (
	"github.com/hql-lang/hql/internal/hql/diagnostics"
	"github.com/hql-lang/hql/internal/hql/token"
)

// Error reports a CodeGenError raised while lowering HQL-AST into IR, per
// spec.md §4.8/§7.
type Error struct {
	diagnostics.Diagnostic
}

func (e *Error) Error() string { return e.Diagnostic.RenderText() }

func newError(code diagnostics.Code, path string, pos token.Position, message string) *Error {
	d := diagnostics.New(code, diagnostics.SeverityError, path, int(pos.Line), int(pos.Column),
		map[string]any{"Message": message})
	return &Error{Diagnostic: d}
}
