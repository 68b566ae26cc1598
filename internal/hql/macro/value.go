package macro

import (
	"github.com/hql-lang/hql/internal/hql/sexp"
	"github.com/hql-lang/hql/internal/hql/token"
)

// Kind distinguishes the macro interpreter's tagged value union
// (spec.md §9's "dynamic value model inside the macro evaluator").
type Kind int

const (
	KindSExp Kind = iota
	KindNumber
	KindString
	KindBool
	KindNil
	KindList
	KindFn
)

// HostFn is a host-callable bound in an Environment (+, -, list, first,
// rest, = and friends), per spec.md §4.6.
type HostFn func(args []Value) (Value, error)

// Value is the explicit Value/SExp boundary type spec.md §9 asks for: the
// source language implicitly bridged JS and S-expression values; here that
// bridge is a single tagged union with explicit conversions in both
// directions (ValueFromSExp / SExpFromValue).
type Value struct {
	Kind Kind

	SExp sexp.SExp // KindSExp: an opaque, unevaluated S-expression (symbol or list)
	Num  float64    // KindNumber
	Str  string      // KindString
	Bool bool        // KindBool
	List []Value     // KindList
	Fn   HostFn       // KindFn
}

func NumberValue(n float64) Value { return Value{Kind: KindNumber, Num: n} }
func StringValue(s string) Value  { return Value{Kind: KindString, Str: s} }
func BoolValue(b bool) Value      { return Value{Kind: KindBool, Bool: b} }
func NilValue() Value             { return Value{Kind: KindNil} }
func ListValue(vs []Value) Value  { return Value{Kind: KindList, List: vs} }
func FnValue(fn HostFn) Value     { return Value{Kind: KindFn, Fn: fn} }
func SExpValue(e sexp.SExp) Value { return Value{Kind: KindSExp, SExp: e} }

// ValueFromSExp coerces a raw S-expression argument into its Value
// representation: literal nodes become their natural scalar Value kind,
// while symbols and lists remain opaque SExp data (macro arguments are
// passed unevaluated, per spec.md §4.6).
func ValueFromSExp(e sexp.SExp) Value {
	if e.Kind == sexp.KindLiteral {
		switch e.LitType {
		case sexp.LitString:
			return StringValue(e.Str)
		case sexp.LitNumber:
			return NumberValue(e.Num)
		case sexp.LitBool:
			return BoolValue(e.Bool)
		case sexp.LitNil:
			return NilValue()
		}
	}
	return SExpValue(e)
}

// SExpFromValue is the inverse conversion, used when a macro's evaluated
// result must be spliced back into the program as an S-expression.
func SExpFromValue(v Value) sexp.SExp {
	switch v.Kind {
	case KindNumber:
		return sexp.Num(v.Num, token.Position{})
	case KindString:
		return sexp.Str(v.Str, token.Position{})
	case KindBool:
		return sexp.Bool(v.Bool, token.Position{})
	case KindNil:
		return sexp.Nil(token.Position{})
	case KindSExp:
		return v.SExp
	case KindList:
		elems := make([]sexp.SExp, len(v.List))
		for i, e := range v.List {
			elems[i] = SExpFromValue(e)
		}
		return sexp.List(elems, token.Position{})
	default:
		return sexp.Nil(token.Position{})
	}
}

// Truthy implements the interpreter's notion of falsiness: only `false`
// and `nil` are falsy; everything else, including 0 and "", is truthy
// (matching the source language's JS-flavored macro evaluator rather than
// a Lisp-conventional "() is false" rule, since HQL has no dotted pairs).
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindNil:
		return false
	case KindSExp:
		return !(v.SExp.Kind == sexp.KindLiteral && v.SExp.LitType == sexp.LitNil)
	default:
		return true
	}
}
