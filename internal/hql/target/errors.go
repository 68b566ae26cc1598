package target

import "github.com/hql-lang/hql/internal/hql/diagnostics"

// Error reports a CodeGenError raised while emitting IR into the target
// AST, per spec.md §4.9/§7. IR nodes carry no source position (spec.md
// §3's IR node-kind table has no position fields), so unlike
// lexer/parser/ir's errors this renders with an empty file/line/col
// rather than a caret-pointed snippet — a direct consequence of IR being
// position-free by spec, not an oversight specific to this package.
type Error struct {
	diagnostics.Diagnostic
}

func (e *Error) Error() string { return e.Diagnostic.RenderText() }

func newError(code diagnostics.Code, message string) *Error {
	d := diagnostics.New(code, diagnostics.SeverityError, "", 0, 0, map[string]any{"Message": message})
	return &Error{Diagnostic: d}
}
