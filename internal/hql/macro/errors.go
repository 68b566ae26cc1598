package macro

import "fmt"

// Error reports a macro-system contract violation: empty/invalid macro
// names, wrong arity, unknown macros in macro-evaluation context,
// malformed quasiquote/cond/let shapes, or exceeded expansion depth, per
// spec.md §4.5/§4.6.
type Error struct {
	MacroName  string
	SourceFile string
	Cause      error
}

func (e *Error) Error() string {
	if e.SourceFile != "" {
		return fmt.Sprintf("macro error in %s (macro %q): %s", e.SourceFile, e.MacroName, e.causeText())
	}
	return fmt.Sprintf("macro error (macro %q): %s", e.MacroName, e.causeText())
}

func (e *Error) causeText() string {
	if e.Cause == nil {
		return "unspecified"
	}
	return e.Cause.Error()
}

func (e *Error) Unwrap() error { return e.Cause }

func newError(name, file string, cause error) *Error {
	return &Error{MacroName: name, SourceFile: file, Cause: cause}
}
