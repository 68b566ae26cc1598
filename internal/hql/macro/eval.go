// Package macro implements the Macro Registry and Expander (spec.md
// §4.5/§4.6): a small interpreter over S-expressions, hygienic
// quasiquote-based expansion, and the fixed-point expansion driver.
package macro

import (
	"fmt"

	"github.com/hql-lang/hql/internal/hql/sexp"
	"github.com/hql-lang/hql/internal/hql/token"
)

// MaxDepth bounds per-expression macro expansion recursion, per spec.md
// §4.6/§5.
const MaxDepth = 100

// interp evaluates one macro invocation's body against a Registry, with
// the per-invocation hygiene rename map built once and reused across
// every quasiquote the body evaluates.
type interp struct {
	registry    *Registry
	currentFile token.FileID
	renameMap   map[string]string
	depth       int
}

// MacroDef is a registered macro: its formal parameters, optional rest
// parameter, body forms, and the environment it closes over, per spec.md
// §3's Environment model.
type MacroDef struct {
	Name   string
	Params []string
	Rest   string // empty when the macro takes no &rest parameter
	Body   []sexp.SExp
	DefEnv *Env
}

// invoke runs def against args (unevaluated, per spec.md §4.6) and
// returns the resulting S-expression to splice into the caller's
// program.
func invoke(reg *Registry, def *MacroDef, args []sexp.SExp, currentFile token.FileID, pos token.Position) (sexp.SExp, error) {
	if def.Rest == "" && len(args) != len(def.Params) {
		return sexp.SExp{}, newError(def.Name, "", fmt.Errorf("expected %d arguments, got %d", len(def.Params), len(args)))
	}
	if def.Rest != "" && len(args) < len(def.Params) {
		return sexp.SExp{}, newError(def.Name, "", fmt.Errorf("expected at least %d arguments, got %d", len(def.Params), len(args)))
	}

	env := def.DefEnv.NewChild()
	for i, p := range def.Params {
		env.Define(p, ValueFromSExp(args[i]))
	}
	if def.Rest != "" {
		rest := append([]sexp.SExp{}, args[len(def.Params):]...)
		env.Define(def.Rest, SExpValue(sexp.SExp{Kind: sexp.KindList, Elems: rest, RestParameter: true, Pos: pos}))
	}

	in := &interp{registry: reg, currentFile: currentFile, renameMap: buildHygieneRenameMap(def.Body)}
	result, err := in.evalSeq(def.Body, env)
	if err != nil {
		return sexp.SExp{}, newError(def.Name, "", err)
	}
	return SExpFromValue(result), nil
}

func (in *interp) evalSeq(forms []sexp.SExp, env *Env) (Value, error) {
	result := NilValue()
	for _, f := range forms {
		v, err := in.eval(f, env)
		if err != nil {
			return Value{}, err
		}
		result = v
	}
	return result, nil
}

func (in *interp) eval(e sexp.SExp, env *Env) (Value, error) {
	switch e.Kind {
	case sexp.KindLiteral:
		return ValueFromSExp(e), nil
	case sexp.KindSymbol:
		if v, ok := env.Lookup(e.Sym); ok {
			return v, nil
		}
		return Value{}, newError(e.Sym, "", fmt.Errorf("undefined symbol %q in macro evaluation context", e.Sym))
	case sexp.KindList:
		if e.IsEmptyList() {
			return SExpValue(e), nil
		}
		if head, ok := e.HeadSymbol(); ok {
			switch head {
			case "quote":
				if len(e.Elems) != 2 {
					return Value{}, newError("quote", "", fmt.Errorf("expected exactly 1 argument"))
				}
				return SExpValue(e.Elems[1]), nil
			case "quasiquote":
				if len(e.Elems) != 2 {
					return Value{}, newError("quasiquote", "", fmt.Errorf("expected exactly 1 argument"))
				}
				renamed := applyHygieneRename(e.Elems[1], in.renameMap)
				out, err := in.evalQuasiquote(renamed, env)
				if err != nil {
					return Value{}, err
				}
				return SExpValue(out), nil
			case "if":
				return in.evalIf(e, env)
			case "cond":
				return in.evalCond(e, env)
			case "let":
				return in.evalLet(e, env)
			case "def", "defn", "fn":
				return NilValue(), nil
			case "unquote", "unquote-splicing":
				return Value{}, newError(head, "", fmt.Errorf("%s used outside quasiquote", head))
			}
		}
		return in.evalCall(e, env)
	}
	return NilValue(), nil
}

func (in *interp) evalIf(e sexp.SExp, env *Env) (Value, error) {
	if len(e.Elems) < 3 || len(e.Elems) > 4 {
		return Value{}, newError("if", "", fmt.Errorf("expected (if test then else?)"))
	}
	test, err := in.eval(e.Elems[1], env)
	if err != nil {
		return Value{}, err
	}
	if test.Truthy() {
		return in.eval(e.Elems[2], env)
	}
	if len(e.Elems) == 4 {
		return in.eval(e.Elems[3], env)
	}
	return NilValue(), nil
}

func (in *interp) evalCond(e sexp.SExp, env *Env) (Value, error) {
	for _, clause := range e.Elems[1:] {
		if clause.Kind != sexp.KindList || len(clause.Elems) != 2 {
			return Value{}, newError("cond", "", fmt.Errorf("clause of wrong shape, expected (test result)"))
		}
		test, err := in.eval(clause.Elems[0], env)
		if err != nil {
			return Value{}, err
		}
		if test.Truthy() {
			return in.eval(clause.Elems[1], env)
		}
	}
	return NilValue(), nil
}

func (in *interp) evalLet(e sexp.SExp, env *Env) (Value, error) {
	if len(e.Elems) < 2 || e.Elems[1].Kind != sexp.KindList {
		return Value{}, newError("let", "", fmt.Errorf("expected (let (bindings…) body…)"))
	}
	bindings := e.Elems[1].Elems
	if len(bindings)%2 != 0 {
		return Value{}, newError("let", "", fmt.Errorf("bindings of odd length"))
	}
	child := env.NewChild()
	for i := 0; i+1 < len(bindings); i += 2 {
		if bindings[i].Kind != sexp.KindSymbol {
			return Value{}, newError("let", "", fmt.Errorf("binding name must be a symbol"))
		}
		v, err := in.eval(bindings[i+1], child)
		if err != nil {
			return Value{}, err
		}
		child.Define(bindings[i].Sym, v)
	}
	return in.evalSeq(e.Elems[2:], child)
}

func (in *interp) evalCall(e sexp.SExp, env *Env) (Value, error) {
	head := e.Elems[0]
	if head.Kind == sexp.KindSymbol {
		if fnVal, ok := env.Lookup(head.Sym); ok {
			if fnVal.Kind != KindFn {
				return Value{}, newError(head.Sym, "", fmt.Errorf("%q is not callable", head.Sym))
			}
			args := make([]Value, 0, len(e.Elems)-1)
			for _, a := range e.Elems[1:] {
				v, err := in.eval(a, env)
				if err != nil {
					return Value{}, err
				}
				args = append(args, v)
			}
			return fnVal.Fn(args)
		}
		if in.registry != nil {
			if def, ok := in.registry.Get(head.Sym, in.currentFile); ok {
				if in.depth+1 > MaxDepth {
					return Value{}, newError(head.Sym, "", fmt.Errorf("exceeded MAX_DEPTH"))
				}
				expanded, err := invoke(in.registry, def, e.Elems[1:], in.currentFile, e.Pos)
				if err != nil {
					return Value{}, err
				}
				nested := &interp{registry: in.registry, currentFile: in.currentFile, renameMap: in.renameMap, depth: in.depth + 1}
				return nested.eval(expanded, env)
			}
		}
		return Value{}, newError(head.Sym, "", fmt.Errorf("unknown macro or function %q in macro evaluation context", head.Sym))
	}
	return Value{}, newError("", "", fmt.Errorf("call head must be a symbol"))
}
