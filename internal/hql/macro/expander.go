package macro

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/hql-lang/hql/internal/hql/sexp"
	"github.com/hql-lang/hql/internal/hql/token"
)

// MaxIterations bounds the fixed-point expansion driver's pass count, per
// spec.md §4.6/§5.
const MaxIterations = 100

// cacheCapacity is the bounded memoization cache's entry limit, per
// spec.md §4.6 ("an LRU-bounded cache keyed on the textual form of the
// input expression avoids re-expanding identical subtrees").
const cacheCapacity = 5000

// Expander drives macro collection and fixed-point expansion over one
// file's forms against a shared Registry, grounded on
// internal/transpiler/macro_expander.go's collect-then-expand shape.
type Expander struct {
	Registry *Registry
	cache    *lru.Cache[string, sexp.SExp]
}

// NewExpander creates an Expander sharing reg, with its own memoization
// cache (caches are not meaningfully shareable across distinct Registries
// since the same textual input can expand differently depending on which
// macros are in scope).
func NewExpander(reg *Registry) *Expander {
	cache, err := lru.New[string, sexp.SExp](cacheCapacity)
	if err != nil {
		// Only returns an error for a non-positive size, which cacheCapacity
		// never is.
		panic(err)
	}
	return &Expander{Registry: reg, cache: cache}
}

// Expand runs the Collection phase (registering defmacro/macro forms),
// the fixed-point expansion phase, and the Cleanup phase (dropping
// defmacro/macro forms from the result), per spec.md §4.6.
func (x *Expander) Expand(file token.FileID, forms []sexp.SExp) ([]sexp.SExp, error) {
	if err := x.collect(file, forms); err != nil {
		return nil, err
	}

	current := forms
	for i := 0; i < MaxIterations; i++ {
		next, changed, err := x.expandPass(file, current)
		if err != nil {
			return nil, err
		}
		if !changed {
			current = next
			break
		}
		current = next
		if i == MaxIterations-1 {
			fmt.Printf("hql: macro expansion in file %d did not reach a fixed point after %d iterations, returning partial result\n", file, MaxIterations)
		}
	}

	return cleanup(current), nil
}

// collect registers every top-level defmacro (system-wide) and macro
// (module-scoped) form found in forms, per spec.md §4.5's define_system /
// define_module operations. defmacro/macro bodies are not expanded
// themselves: a macro's own body is only evaluated when the macro is
// invoked (spec.md §4.6).
func (x *Expander) collect(file token.FileID, forms []sexp.SExp) error {
	for _, f := range forms {
		if f.Kind != sexp.KindList || len(f.Elems) == 0 {
			continue
		}
		head, ok := f.HeadSymbol()
		if !ok {
			continue
		}
		switch head {
		case "defmacro":
			def, name, err := parseMacroForm(head, f)
			if err != nil {
				return err
			}
			if err := x.Registry.DefineSystem(name, def); err != nil {
				return err
			}
		case "macro":
			def, name, err := parseMacroForm(head, f)
			if err != nil {
				return err
			}
			if err := x.Registry.DefineModule(file, name, def); err != nil {
				return err
			}
		case "export-macro":
			if len(f.Elems) != 2 || f.Elems[1].Kind != sexp.KindSymbol {
				return newError(head, "", fmt.Errorf("expected (export-macro name)"))
			}
			if err := x.Registry.Export(file, f.Elems[1].Sym); err != nil {
				return err
			}
		}
	}
	return nil
}

// parseMacroForm parses (defmacro name (params... &rest r?) body...) or
// the module-scoped (macro ...) equivalent into a MacroDef.
func parseMacroForm(keyword string, f sexp.SExp) (*MacroDef, string, error) {
	if len(f.Elems) < 3 {
		return nil, "", newError(keyword, "", fmt.Errorf("expected (%s name (params…) body…)", keyword))
	}
	nameForm := f.Elems[1]
	if nameForm.Kind != sexp.KindSymbol || nameForm.Sym == "" {
		return nil, "", newError(keyword, "", fmt.Errorf("macro name must be a non-empty symbol"))
	}
	paramsForm := f.Elems[2]
	if paramsForm.Kind != sexp.KindList {
		return nil, "", newError(nameForm.Sym, "", fmt.Errorf("macro parameter list must be a list"))
	}
	params := make([]string, 0, len(paramsForm.Elems))
	rest := ""
	for i := 0; i < len(paramsForm.Elems); i++ {
		p := paramsForm.Elems[i]
		if p.Kind != sexp.KindSymbol {
			return nil, "", newError(nameForm.Sym, "", fmt.Errorf("macro parameter must be a symbol"))
		}
		if p.Sym == "&rest" {
			if i+1 >= len(paramsForm.Elems) || paramsForm.Elems[i+1].Kind != sexp.KindSymbol {
				return nil, "", newError(nameForm.Sym, "", fmt.Errorf("&rest must be followed by a parameter name"))
			}
			rest = paramsForm.Elems[i+1].Sym
			break
		}
		params = append(params, p.Sym)
	}
	return &MacroDef{
		Name:   nameForm.Sym,
		Params: params,
		Rest:   rest,
		Body:   f.Elems[3:],
		DefEnv: Global(),
	}, nameForm.Sym, nil
}

// expandPass performs a single rewrite pass over forms, expanding every
// macro call it can see at this pass's depth. changed reports whether
// anything differed from the input, so the caller's fixed-point loop
// knows whether another pass is warranted.
func (x *Expander) expandPass(file token.FileID, forms []sexp.SExp) ([]sexp.SExp, bool, error) {
	out := make([]sexp.SExp, len(forms))
	changed := false
	for i, f := range forms {
		rewritten, err := x.expandOne(file, f, 0)
		if err != nil {
			return nil, false, err
		}
		out[i] = rewritten
		if !sexp.Equal(f, rewritten) {
			changed = true
		}
	}
	return out, changed, nil
}

func (x *Expander) expandOne(file token.FileID, e sexp.SExp, depth int) (sexp.SExp, error) {
	switch e.Kind {
	case sexp.KindLiteral, sexp.KindSymbol:
		return e, nil
	case sexp.KindList:
		if e.IsEmptyList() {
			return e, nil
		}
		if head, ok := e.HeadSymbol(); ok {
			switch head {
			case "defmacro", "macro", "export-macro":
				return e, nil
			case "quote":
				return e, nil
			}
			if def, ok := x.Registry.Get(head, file); ok {
				if depth+1 > MaxDepth {
					return sexp.SExp{}, newError(head, "", fmt.Errorf("exceeded MAX_DEPTH"))
				}
				cacheKeyStr := fmt.Sprintf("%d:%s", file, e.String())
				if cached, ok := x.cache.Get(cacheKeyStr); ok {
					return x.expandOne(file, cached, depth+1)
				}
				expanded, err := invoke(x.Registry, def, e.Elems[1:], file, e.Pos)
				if err != nil {
					return sexp.SExp{}, err
				}
				x.cache.Add(cacheKeyStr, expanded)
				return x.expandOne(file, expanded, depth+1)
			}
		}
		children := make([]sexp.SExp, len(e.Elems))
		for i, c := range e.Elems {
			rewritten, err := x.expandOne(file, c, depth)
			if err != nil {
				return sexp.SExp{}, err
			}
			children[i] = rewritten
		}
		out := e
		out.Elems = children
		return out, nil
	}
	return e, nil
}

// cleanup drops every defmacro/macro/export-macro definition form from
// the fully-expanded top-level sequence, per spec.md §4.6's Cleanup
// phase: definitions are registry side effects, not program output.
func cleanup(forms []sexp.SExp) []sexp.SExp {
	out := make([]sexp.SExp, 0, len(forms))
	for _, f := range forms {
		if f.Kind == sexp.KindList {
			if head, ok := f.HeadSymbol(); ok {
				if head == "defmacro" || head == "macro" || head == "export-macro" {
					continue
				}
			}
		}
		out = append(out, f)
	}
	return out
}
