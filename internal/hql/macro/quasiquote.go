package macro

import (
	"fmt"
	"os"

	"github.com/hql-lang/hql/internal/hql/diagnostics"
	"github.com/hql-lang/hql/internal/hql/sexp"
	"github.com/hql-lang/hql/internal/hql/token"
)

// buildHygieneRenameMap scans a macro's raw (unevaluated) body for literal
// `let`-binding names introduced anywhere in its quasiquoted templates,
// never descending into unquote/unquote-splicing subforms (those hold
// call-site data, not template-introduced identifiers). Each distinct
// name found is assigned a gensym'd alias, per spec.md §4.6's "per-context
// rename map" — built once per macro invocation and applied to every
// quasiquote template that invocation evaluates, so a macro-introduced
// binding like a `let`'s temporary can never collide with a
// caller-supplied symbol of the same surface name (spec.md §8 scenario 3,
// the hygienic swap macro).
func buildHygieneRenameMap(body []sexp.SExp) map[string]string {
	names := make(map[string]bool)
	var scan func(e sexp.SExp)
	scan = func(e sexp.SExp) {
		if e.Kind != sexp.KindList {
			return
		}
		if head, ok := e.HeadSymbol(); ok {
			if head == "unquote" || head == "unquote-splicing" {
				return
			}
			if head == "let" && len(e.Elems) >= 2 && e.Elems[1].Kind == sexp.KindList {
				bindings := e.Elems[1].Elems
				for i := 0; i+1 < len(bindings); i += 2 {
					if bindings[i].Kind == sexp.KindSymbol {
						names[bindings[i].Sym] = true
					}
				}
			}
		}
		for _, c := range e.Elems {
			scan(c)
		}
	}
	for _, f := range body {
		scan(f)
	}
	if len(names) == 0 {
		return nil
	}
	out := make(map[string]string, len(names))
	for n := range names {
		out[n] = Gensym(n)
	}
	return out
}

// applyHygieneRename rewrites literal symbol occurrences per rename,
// without descending into unquote/unquote-splicing subforms — those will
// be substituted later with call-site values and must not be touched by
// the macro's own hygiene pass.
func applyHygieneRename(e sexp.SExp, rename map[string]string) sexp.SExp {
	if rename == nil {
		return e
	}
	switch e.Kind {
	case sexp.KindSymbol:
		if to, ok := rename[e.Sym]; ok {
			out := e
			out.Sym = to
			return out
		}
		return e
	case sexp.KindList:
		if head, ok := e.HeadSymbol(); ok && (head == "unquote" || head == "unquote-splicing") {
			return e
		}
		out := e
		out.Elems = make([]sexp.SExp, len(e.Elems))
		for i, c := range e.Elems {
			out.Elems[i] = applyHygieneRename(c, rename)
		}
		return out
	default:
		return e
	}
}

// evalQuasiquote walks a (pre-hygiene-renamed) quasiquote template,
// evaluating `unquote` forms and splicing `unquote-splicing` forms, per
// spec.md §4.6.
func (in *interp) evalQuasiquote(e sexp.SExp, env *Env) (sexp.SExp, error) {
	if e.Kind != sexp.KindList {
		return e, nil
	}
	if head, ok := e.HeadSymbol(); ok {
		switch head {
		case "unquote":
			if len(e.Elems) != 2 {
				return sexp.SExp{}, newError("unquote", "", fmt.Errorf("expected exactly 1 argument"))
			}
			v, err := in.eval(e.Elems[1], env)
			if err != nil {
				return sexp.SExp{}, err
			}
			return SExpFromValue(v), nil
		case "unquote-splicing":
			return sexp.SExp{}, newError("unquote-splicing", "", fmt.Errorf("unquote-splicing is not valid outside a list"))
		}
	}

	elems := make([]sexp.SExp, 0, len(e.Elems))
	for _, c := range e.Elems {
		if ch, ok := c.HeadSymbol(); ok && ch == "unquote-splicing" {
			if len(c.Elems) != 2 {
				return sexp.SExp{}, newError("unquote-splicing", "", fmt.Errorf("expected exactly 1 argument"))
			}
			v, err := in.eval(c.Elems[1], env)
			if err != nil {
				return sexp.SExp{}, err
			}
			items, ok := spliceItems(v)
			if !ok {
				warnSpliceNonList(c.Pos)
				elems = append(elems, SExpFromValue(v))
				continue
			}
			elems = append(elems, items...)
			continue
		}
		sub, err := in.evalQuasiquote(c, env)
		if err != nil {
			return sexp.SExp{}, err
		}
		elems = append(elems, sub)
	}
	out := e
	out.Elems = elems
	return out, nil
}

// warnSpliceNonList reports the spec.md §4.6 fallback behavior for
// unquote-splicing a value that is neither a list nor a captured &rest
// parameter: the value is inserted as a single element rather than
// spliced, and that substitution is surfaced as a non-fatal diagnostic
// on stderr, matching the macro expander's own MAX_ITERATIONS notice and
// the CLI's -verbose stderr convention (cmd/hqlc/main.go).
func warnSpliceNonList(pos token.Position) {
	d := diagnostics.New(diagnostics.CodeMacroSpliceNonList, diagnostics.SeverityWarning, "", int(pos.Line), int(pos.Column), nil)
	fmt.Fprintln(os.Stderr, d.RenderText())
}

func spliceItems(v Value) ([]sexp.SExp, bool) {
	switch v.Kind {
	case KindList:
		out := make([]sexp.SExp, len(v.List))
		for i, it := range v.List {
			out[i] = SExpFromValue(it)
		}
		return out, true
	case KindSExp:
		if v.SExp.Kind == sexp.KindList {
			return append([]sexp.SExp{}, v.SExp.Elems...), true
		}
	}
	return nil, false
}
