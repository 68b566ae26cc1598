package macro

import (
	"fmt"
	"sync"

	"github.com/hql-lang/hql/internal/hql/sexp"
)

// Env is the nested lexical scope the macro interpreter evaluates
// against, per spec.md §3. System-wide macros live in the Registry, not
// here; Env only holds ordinary variable bindings (macro parameters and
// `let`/`def` introductions made during body evaluation).
type Env struct {
	parent *Env
	vars   map[string]Value
}

// NewChild creates a nested scope rooted at e.
func (e *Env) NewChild() *Env {
	return &Env{parent: e, vars: make(map[string]Value)}
}

// Define binds name in this scope (not the parent chain), matching `def`
// semantics inside the macro evaluator.
func (e *Env) Define(name string, v Value) {
	e.vars[name] = v
}

// Lookup walks the scope chain for name.
func (e *Env) Lookup(name string) (Value, bool) {
	for env := e; env != nil; env = env.parent {
		if v, ok := env.vars[name]; ok {
			return v, true
		}
	}
	return Value{}, false
}

var (
	globalOnce sync.Once
	globalEnv  *Env
	globalMu   sync.Mutex
)

// Global returns the process-wide root environment, initializing it with
// host functions on first use. Modeled as an explicit context handle with
// a single-initialization guard rather than relying on package-load
// order, per spec.md §9's "Global singleton Environment" design note.
func Global() *Env {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalOnce.Do(func() {
		globalEnv = newHostEnv()
	})
	return globalEnv
}

// ResetGlobal discards the singleton so the next Global() call
// reinitializes it. Exposed for tests and for hosts that want a clean
// process-wide macro environment between independent compilations.
func ResetGlobal() {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalOnce = sync.Once{}
	globalEnv = nil
}

func newHostEnv() *Env {
	e := &Env{vars: make(map[string]Value)}
	for name, fn := range hostFunctions() {
		e.Define(name, FnValue(fn))
	}
	return e
}

func hostFunctions() map[string]HostFn {
	return map[string]HostFn{
		"+":     hostArith(func(a, b float64) float64 { return a + b }, 0),
		"-":     hostSub,
		"*":     hostArith(func(a, b float64) float64 { return a * b }, 1),
		"/":     hostDiv,
		"=":     hostEquals,
		"list":  hostList,
		"first": hostFirst,
		"rest":  hostRest,
		"cons":  hostCons,
		"empty?": hostEmpty,
		"not":   hostNot,
		"gensym": hostGensym,
	}
}

func wantNumbers(args []Value) ([]float64, error) {
	nums := make([]float64, len(args))
	for i, a := range args {
		if a.Kind != KindNumber {
			return nil, fmt.Errorf("expected number argument, got kind %d", a.Kind)
		}
		nums[i] = a.Num
	}
	return nums, nil
}

func hostArith(op func(a, b float64) float64, identity float64) HostFn {
	return func(args []Value) (Value, error) {
		nums, err := wantNumbers(args)
		if err != nil {
			return Value{}, err
		}
		acc := identity
		if len(nums) > 0 {
			acc = nums[0]
			for _, n := range nums[1:] {
				acc = op(acc, n)
			}
		}
		return NumberValue(acc), nil
	}
}

func hostSub(args []Value) (Value, error) {
	nums, err := wantNumbers(args)
	if err != nil {
		return Value{}, err
	}
	if len(nums) == 0 {
		return NumberValue(0), nil
	}
	if len(nums) == 1 {
		return NumberValue(-nums[0]), nil
	}
	acc := nums[0]
	for _, n := range nums[1:] {
		acc -= n
	}
	return NumberValue(acc), nil
}

func hostDiv(args []Value) (Value, error) {
	nums, err := wantNumbers(args)
	if err != nil {
		return Value{}, err
	}
	if len(nums) == 0 {
		return NumberValue(1), nil
	}
	acc := nums[0]
	for _, n := range nums[1:] {
		acc /= n
	}
	return NumberValue(acc), nil
}

func hostEquals(args []Value) (Value, error) {
	if len(args) < 2 {
		return BoolValue(true), nil
	}
	first := args[0]
	for _, a := range args[1:] {
		if !valuesEqual(first, a) {
			return BoolValue(false), nil
		}
	}
	return BoolValue(true), nil
}

func valuesEqual(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNumber:
		return a.Num == b.Num
	case KindString:
		return a.Str == b.Str
	case KindBool:
		return a.Bool == b.Bool
	case KindNil:
		return true
	case KindSExp:
		return sexp.Equal(a.SExp, b.SExp)
	case KindList:
		if len(a.List) != len(b.List) {
			return false
		}
		for i := range a.List {
			if !valuesEqual(a.List[i], b.List[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func hostList(args []Value) (Value, error) {
	return ListValue(append([]Value{}, args...)), nil
}

func asSlice(v Value) ([]Value, bool) {
	switch v.Kind {
	case KindList:
		return v.List, true
	case KindSExp:
		if v.SExp.Kind == sexp.KindList {
			elems := make([]Value, len(v.SExp.Elems))
			for i, e := range v.SExp.Elems {
				elems[i] = ValueFromSExp(e)
			}
			return elems, true
		}
	}
	return nil, false
}

func hostFirst(args []Value) (Value, error) {
	if len(args) != 1 {
		return Value{}, fmt.Errorf("first: expected 1 argument, got %d", len(args))
	}
	items, ok := asSlice(args[0])
	if !ok || len(items) == 0 {
		return NilValue(), nil
	}
	return items[0], nil
}

func hostRest(args []Value) (Value, error) {
	if len(args) != 1 {
		return Value{}, fmt.Errorf("rest: expected 1 argument, got %d", len(args))
	}
	items, ok := asSlice(args[0])
	if !ok || len(items) <= 1 {
		return ListValue(nil), nil
	}
	return ListValue(append([]Value{}, items[1:]...)), nil
}

func hostCons(args []Value) (Value, error) {
	if len(args) != 2 {
		return Value{}, fmt.Errorf("cons: expected 2 arguments, got %d", len(args))
	}
	items, _ := asSlice(args[1])
	return ListValue(append([]Value{args[0]}, items...)), nil
}

func hostEmpty(args []Value) (Value, error) {
	if len(args) != 1 {
		return Value{}, fmt.Errorf("empty?: expected 1 argument, got %d", len(args))
	}
	items, ok := asSlice(args[0])
	return BoolValue(!ok || len(items) == 0), nil
}

func hostNot(args []Value) (Value, error) {
	if len(args) != 1 {
		return Value{}, fmt.Errorf("not: expected 1 argument, got %d", len(args))
	}
	return BoolValue(!args[0].Truthy()), nil
}

func hostGensym(args []Value) (Value, error) {
	prefix := ""
	if len(args) == 1 && args[0].Kind == KindString {
		prefix = args[0].Str
	}
	return StringValue(Gensym(prefix)), nil
}
