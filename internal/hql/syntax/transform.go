// Package syntax implements the desugaring pass described in spec.md §4.3:
// surface S-expressions are rewritten into the canonical core forms the
// macro expander and HQL-AST lowerer expect. Every rewrite here is
// structural and purely local, matching the teacher's own preference for
// small, composable AST-to-AST rewrites (internal/transpiler/special_forms.go).
package syntax

import (
	"strings"

	"github.com/hql-lang/hql/internal/hql/sexp"
	"github.com/hql-lang/hql/internal/hql/token"
)

// Transform desugars a sequence of top-level forms.
func Transform(forms []sexp.SExp) []sexp.SExp {
	out := make([]sexp.SExp, len(forms))
	for i, f := range forms {
		out[i] = transformExpr(f)
	}
	return out
}

func transformExpr(e sexp.SExp) sexp.SExp {
	if e.Kind != sexp.KindList {
		return transformDottedSymbol(e)
	}
	if e.IsEmptyList() {
		return e
	}

	if head, ok := e.HeadSymbol(); ok {
		switch head {
		case "defn":
			return transformDefn(e)
		case "defenum":
			return transformDefenum(e)
		case "import":
			return transformImport(e)
		case "fn":
			return transformFn(e)
		case "hql/set-literal":
			return transformSetLiteral(e)
		}
		if strings.Contains(head, ".") && len(e.Elems) >= 1 {
			return transformDottedCall(e)
		}
	}

	// Property shorthand: ((expr) .prop) -> (js-get expr "prop")
	if len(e.Elems) == 2 && e.Elems[0].Kind == sexp.KindList &&
		e.Elems[1].Kind == sexp.KindSymbol && strings.HasPrefix(e.Elems[1].Sym, ".") && len(e.Elems[1].Sym) > 1 {
		obj := transformExpr(e.Elems[0])
		prop := strings.TrimPrefix(e.Elems[1].Sym, ".")
		return sexp.List([]sexp.SExp{
			sexp.Symbol("js-get", e.Pos),
			obj,
			sexp.Str(prop, e.Elems[1].Pos),
		}, e.Pos)
	}

	elems := make([]sexp.SExp, len(e.Elems))
	for i, c := range e.Elems {
		elems[i] = transformExpr(c)
	}
	out := e
	out.Elems = elems
	return out
}

// transformDottedSymbol rewrites a bare value-position dotted symbol
// (obj.prop, obj.a.b) into nested (js-get ...) forms, per spec.md §4.3.
func transformDottedSymbol(e sexp.SExp) sexp.SExp {
	if e.Kind != sexp.KindSymbol || !strings.Contains(e.Sym, ".") {
		return e
	}
	parts := strings.Split(e.Sym, ".")
	if len(parts) < 2 || parts[0] == "" {
		return e
	}
	result := sexp.Symbol(parts[0], e.Pos)
	for _, prop := range parts[1:] {
		if prop == "" {
			return e // not a clean dotted chain; leave as a plain symbol
		}
		result = sexp.List([]sexp.SExp{
			sexp.Symbol("js-get", e.Pos),
			result,
			sexp.Str(prop, e.Pos),
		}, e.Pos)
	}
	return result
}

// transformDottedCall rewrites (obj.method args…) head position calls into
// (js-call obj "method" args…), per spec.md §4.3.
func transformDottedCall(e sexp.SExp) sexp.SExp {
	head, _ := e.HeadSymbol()
	idx := strings.Index(head, ".")
	objName := head[:idx]
	method := head[idx+1:]
	args := make([]sexp.SExp, 0, len(e.Elems))
	for _, a := range e.Elems[1:] {
		args = append(args, transformExpr(a))
	}
	call := []sexp.SExp{
		sexp.Symbol("js-call", e.Pos),
		sexp.Symbol(objName, e.Elems[0].Pos),
		sexp.Str(method, e.Elems[0].Pos),
	}
	call = append(call, args...)
	return sexp.List(call, e.Pos)
}

// transformDefn rewrites (defn name (params…) body…) into
// (def name (fn (params…) body…)), per spec.md §4.3.
func transformDefn(e sexp.SExp) sexp.SExp {
	if len(e.Elems) < 3 {
		return transformPlainList(e)
	}
	name := e.Elems[1]
	params := transformParamList(e.Elems[2])
	body := make([]sexp.SExp, 0, len(e.Elems)-3)
	for _, b := range e.Elems[3:] {
		body = append(body, transformExpr(b))
	}
	fnElems := append([]sexp.SExp{sexp.Symbol("fn", e.Pos), params}, body...)
	fnForm := sexp.List(fnElems, e.Pos)
	return sexp.List([]sexp.SExp{sexp.Symbol("def", e.Pos), name, fnForm}, e.Pos)
}

// transformFn normalizes (fn (params…) body…) parameter lists the same way
// transformDefn does, without changing the def/fn split.
func transformFn(e sexp.SExp) sexp.SExp {
	if len(e.Elems) < 2 {
		return transformPlainList(e)
	}
	params := transformParamList(e.Elems[1])
	elems := make([]sexp.SExp, 0, len(e.Elems))
	elems = append(elems, e.Elems[0], params)
	for _, b := range e.Elems[2:] {
		elems = append(elems, transformExpr(b))
	}
	return sexp.List(elems, e.Pos)
}

// transformParamList merges an adjacent "name:" symbol with a following
// bare type symbol into a single (name: Type) pair, per spec.md §4.3's
// "typed parameter name: followed by type symbol" rule. Plain symbols and
// already-colon-suffixed symbols with no following type pass through
// unchanged.
func transformParamList(params sexp.SExp) sexp.SExp {
	if params.Kind != sexp.KindList {
		return params
	}
	var out []sexp.SExp
	for i := 0; i < len(params.Elems); i++ {
		p := params.Elems[i]
		if p.Kind == sexp.KindSymbol && strings.HasSuffix(p.Sym, ":") && i+1 < len(params.Elems) {
			next := params.Elems[i+1]
			if next.Kind == sexp.KindSymbol && !strings.HasSuffix(next.Sym, ":") {
				out = append(out, sexp.List([]sexp.SExp{p, next}, p.Pos))
				i++
				continue
			}
		}
		out = append(out, p)
	}
	return sexp.List(out, params.Pos)
}

// transformSetLiteral lowers the parser's `#[...]` marker list into
// (new Set (list ...)), matching the new/list core forms the IR builder
// already understands (spec.md's restored set-literal surface sugar).
func transformSetLiteral(e sexp.SExp) sexp.SExp {
	items := make([]sexp.SExp, 0, len(e.Elems)-1)
	for _, c := range e.Elems[1:] {
		items = append(items, transformExpr(c))
	}
	listForm := sexp.List(append([]sexp.SExp{sexp.Symbol("list", e.Pos)}, items...), e.Pos)
	return sexp.List([]sexp.SExp{sexp.Symbol("new", e.Pos), sexp.Symbol("Set", e.Pos), listForm}, e.Pos)
}

// transformDefenum accepts both (defenum Name A B C) and
// (defenum Name (A 0) (B 1)) surface forms and normalizes both to a bare
// member-name list, since the IR builder always uses the member's own name
// as its initializer regardless of an explicit value (spec.md §4.8).
func transformDefenum(e sexp.SExp) sexp.SExp {
	if len(e.Elems) < 2 {
		return e
	}
	elems := make([]sexp.SExp, 0, len(e.Elems))
	elems = append(elems, e.Elems[0], e.Elems[1])
	for _, m := range e.Elems[2:] {
		if m.Kind == sexp.KindList && len(m.Elems) >= 1 {
			elems = append(elems, m.Elems[0])
			continue
		}
		elems = append(elems, m)
	}
	return sexp.List(elems, e.Pos)
}

// transformImport normalizes the three accepted surface import forms
// (spec.md §6) into canonical (def x (import "path")) / (def x
// (import-member "path" "orig")) forms, plus side-effect (import "path")
// which is already canonical.
func transformImport(e sexp.SExp) sexp.SExp {
	if len(e.Elems) != 2 {
		return e
	}
	arg := e.Elems[1]

	// (import "path") — side-effect, already canonical.
	if arg.Kind == sexp.KindLiteral && arg.LitType == sexp.LitString {
		return e
	}

	// (import name from "path") — namespace import.
	if arg.Kind == sexp.KindList && len(arg.Elems) == 3 {
		if arg.Elems[0].Kind == sexp.KindSymbol && arg.Elems[1].IsSymbol("from") && arg.Elems[2].Kind == sexp.KindLiteral {
			return namespaceImportDef(arg.Elems[0], arg.Elems[2], e.Pos)
		}
	}

	// (import [a, b from "path"]) / (import [a as x, b from "path"]) —
	// selective import. The bracket form parses as an ordinary list since
	// '[' aliases to '(' (see lexer); members are space-separated symbols
	// (or "orig as alias" pairs) followed by "from" "path".
	if arg.Kind == sexp.KindList {
		return selectiveImportDefs(arg, e.Pos)
	}

	return e
}

func namespaceImportDef(name, path sexp.SExp, pos token.Position) sexp.SExp {
	importCall := sexp.List([]sexp.SExp{sexp.Symbol("import", pos), path}, pos)
	return sexp.List([]sexp.SExp{sexp.Symbol("def", pos), name, importCall}, pos)
}

func selectiveImportDefs(arg sexp.SExp, pos token.Position) sexp.SExp {
	// Find "from" keyword; everything before it is member specs, the form
	// right after it is the path string.
	fromIdx := -1
	for i, el := range arg.Elems {
		if el.IsSymbol("from") {
			fromIdx = i
			break
		}
	}
	if fromIdx < 0 || fromIdx+1 >= len(arg.Elems) {
		return arg
	}
	path := arg.Elems[fromIdx+1]
	members := arg.Elems[:fromIdx]

	defs := make([]sexp.SExp, 0, len(members))
	i := 0
	for i < len(members) {
		orig := members[i]
		local := orig
		if i+2 < len(members) && members[i+1].IsSymbol("as") {
			local = members[i+2]
			i += 3
		} else {
			i++
		}
		importMember := sexp.List([]sexp.SExp{
			sexp.Symbol("import-member", pos),
			path,
			sexp.Str(orig.Sym, orig.Pos),
		}, pos)
		defs = append(defs, sexp.List([]sexp.SExp{sexp.Symbol("def", pos), local, importMember}, pos))
	}

	if len(defs) == 1 {
		return defs[0]
	}
	body := append([]sexp.SExp{sexp.Symbol("do", pos)}, defs...)
	return sexp.List(body, pos)
}

// transformPlainList recursively transforms a list's children without any
// head-specific rewrite.
func transformPlainList(e sexp.SExp) sexp.SExp {
	elems := make([]sexp.SExp, len(e.Elems))
	for i, c := range e.Elems {
		elems[i] = transformExpr(c)
	}
	out := e
	out.Elems = elems
	return out
}
