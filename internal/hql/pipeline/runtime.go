package pipeline

import (
	"github.com/hql-lang/hql/internal/hql/ir"
	"github.com/hql-lang/hql/internal/hql/target"
)

// StripRuntimeDecls implements spec.md §9's open question #2: the
// original REPL path strips function declarations whose names collide
// with ones a host runtime's own preamble already defines, working
// around that runtime's redeclaration rules. spec.md frames this as "a
// workaround for host-runtime redeclaration rules, not a compiler
// invariant" — so it is an optional, separately-invokable post-processing
// pass over a compiled Unit's IR and Target statements, not a pipeline
// stage. CompileFile/CompileProgram never call it; a caller targeting
// such a runtime opts in explicitly after compiling.
func StripRuntimeDecls(unit *Unit, reserved map[string]bool) {
	if len(reserved) == 0 {
		return
	}
	unit.IR = filterIRDecls(unit.IR, reserved)
	unit.Target = filterTargetStmts(unit.Target, reserved)
}

func filterIRDecls(nodes []ir.Node, reserved map[string]bool) []ir.Node {
	out := make([]ir.Node, 0, len(nodes))
	for _, n := range nodes {
		if name, ok := irFunctionName(n); ok && reserved[name] {
			continue
		}
		out = append(out, n)
	}
	return out
}

// irFunctionName reports the bound name of n when n is a top-level
// function-producing declaration: either a bare FunctionDecl (a named
// function appearing directly in statement position) or a VariableDecl
// whose initializer is a FunctionDecl (the shape every named (defn ...)/
// (def name (fn ...)) actually lowers to, per ir.FunctionDecl's own
// IsAnonymous-always-true doc comment).
func irFunctionName(n ir.Node) (string, bool) {
	switch v := n.(type) {
	case *ir.FunctionDecl:
		if v.ID != "" {
			return v.ID, true
		}
	case *ir.VariableDecl:
		if v.ID != "" {
			if _, ok := v.Init.(*ir.FunctionDecl); ok {
				return v.ID, true
			}
		}
	}
	return "", false
}

func filterTargetStmts(stmts []target.Stmt, reserved map[string]bool) []target.Stmt {
	out := make([]target.Stmt, 0, len(stmts))
	for _, s := range stmts {
		if name, ok := targetFunctionName(s); ok && reserved[name] {
			continue
		}
		out = append(out, s)
	}
	return out
}

func targetFunctionName(s target.Stmt) (string, bool) {
	switch v := s.(type) {
	case *target.SFunctionDecl:
		return v.Name, true
	case *target.SVariable:
		if v.ID != "" {
			if _, ok := v.Init.(*target.EFunction); ok {
				return v.ID, true
			}
		}
	}
	return "", false
}
