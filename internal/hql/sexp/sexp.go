// Package sexp defines the S-expression tree shared by the parser's
// surface output, the macro expander's working representation, and (after
// the HQL-AST lowering validates it) the canonical core language.
//
// SExp intentionally has exactly three variants (spec.md §3): Literal,
// Symbol, and List. There is no dotted-pair notation and no separate
// "nil node" distinct from an empty list — an empty list and a nil
// literal are both legal and are distinct from each other.
package sexp

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hql-lang/hql/internal/hql/token"
)

// Kind distinguishes the three SExp variants.
type Kind int

const (
	KindLiteral Kind = iota
	KindSymbol
	KindList
)

// LitType distinguishes the four literal value types.
type LitType int

const (
	LitString LitType = iota
	LitNumber
	LitBool
	LitNil
)

// SExp is the shared three-variant tree node.
//
// Only the fields relevant to Kind are meaningful:
//   - KindLiteral: LitType, Str (string/bool text or raw number text), Num
//   - KindSymbol:  Sym
//   - KindList:    Elems
//
// RestParameter is an opaque flag, set by the macro expander, meaning "this
// list is a captured &rest argument list" — consumed only by
// unquote-splicing (spec.md §3).
type SExp struct {
	Kind Kind

	LitType LitType
	Str     string
	Num     float64
	Bool    bool

	Sym string

	Elems []SExp

	RestParameter bool

	Pos token.Position
}

func Str(s string, pos token.Position) SExp {
	return SExp{Kind: KindLiteral, LitType: LitString, Str: s, Pos: pos}
}

func Num(n float64, pos token.Position) SExp {
	return SExp{Kind: KindLiteral, LitType: LitNumber, Num: n, Pos: pos}
}

func Bool(b bool, pos token.Position) SExp {
	return SExp{Kind: KindLiteral, LitType: LitBool, Bool: b, Pos: pos}
}

func Nil(pos token.Position) SExp {
	return SExp{Kind: KindLiteral, LitType: LitNil, Pos: pos}
}

func Symbol(name string, pos token.Position) SExp {
	return SExp{Kind: KindSymbol, Sym: name, Pos: pos}
}

func List(elems []SExp, pos token.Position) SExp {
	return SExp{Kind: KindList, Elems: elems, Pos: pos}
}

func (e SExp) IsSymbol(name string) bool {
	return e.Kind == KindSymbol && e.Sym == name
}

func (e SExp) IsEmptyList() bool {
	return e.Kind == KindList && len(e.Elems) == 0
}

// Head returns the first element of a non-empty list, and ok=false for
// anything else.
func (e SExp) Head() (SExp, bool) {
	if e.Kind != KindList || len(e.Elems) == 0 {
		return SExp{}, false
	}
	return e.Elems[0], true
}

// HeadSymbol returns the name of the list's head symbol, if the list is
// non-empty and its head is a symbol.
func (e SExp) HeadSymbol() (string, bool) {
	h, ok := e.Head()
	if !ok || h.Kind != KindSymbol {
		return "", false
	}
	return h.Sym, true
}

// Equal performs the structural equality spec.md §8 requires for
// round-trip and fixed-point checks. RestParameter and Pos are not part of
// structural identity.
func Equal(a, b SExp) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindLiteral:
		if a.LitType != b.LitType {
			return false
		}
		switch a.LitType {
		case LitString:
			return a.Str == b.Str
		case LitNumber:
			return a.Num == b.Num
		case LitBool:
			return a.Bool == b.Bool
		case LitNil:
			return true
		}
		return false
	case KindSymbol:
		return a.Sym == b.Sym
	case KindList:
		if len(a.Elems) != len(b.Elems) {
			return false
		}
		for i := range a.Elems {
			if !Equal(a.Elems[i], b.Elems[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// EqualSeq compares two sequences of top-level forms for structural
// equality — used by the expander's fixed-point termination check.
func EqualSeq(a, b []SExp) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Clone deep-copies an SExp so callers can mutate a returned tree (e.g. for
// hygiene renaming) without aliasing the original.
func Clone(e SExp) SExp {
	out := e
	if e.Kind == KindList {
		out.Elems = make([]SExp, len(e.Elems))
		for i, c := range e.Elems {
			out.Elems[i] = Clone(c)
		}
	}
	return out
}

// String renders canonical HQL surface syntax, used for diagnostics,
// gensym-free round-trip tests, and the macro interpreter's "stringify"
// host function.
func (e SExp) String() string {
	switch e.Kind {
	case KindLiteral:
		switch e.LitType {
		case LitString:
			return strconv.Quote(e.Str)
		case LitNumber:
			return formatNumber(e.Num)
		case LitBool:
			if e.Bool {
				return "true"
			}
			return "false"
		case LitNil:
			return "nil"
		}
	case KindSymbol:
		return e.Sym
	case KindList:
		parts := make([]string, len(e.Elems))
		for i, c := range e.Elems {
			parts[i] = c.String()
		}
		return "(" + strings.Join(parts, " ") + ")"
	}
	return ""
}

func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

// MapSymbols returns a deep copy of e with every symbol whose name is a key
// in rename replaced by its mapped name. It is the core primitive the
// hygiene pass uses to apply a context's rename map.
func MapSymbols(e SExp, rename map[string]string) SExp {
	switch e.Kind {
	case KindSymbol:
		if to, ok := rename[e.Sym]; ok {
			out := e
			out.Sym = to
			return out
		}
		return e
	case KindList:
		out := e
		out.Elems = make([]SExp, len(e.Elems))
		for i, c := range e.Elems {
			out.Elems[i] = MapSymbols(c, rename)
		}
		return out
	default:
		return e
	}
}

func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "Literal"
	case KindSymbol:
		return "Symbol"
	case KindList:
		return "List"
	default:
		return "Unknown"
	}
}

func (e SExp) GoString() string {
	return fmt.Sprintf("SExp{%s %q}", e.Kind, e.String())
}
