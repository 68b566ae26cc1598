package pipeline

import (
	"testing"

	"github.com/hql-lang/hql/internal/hql/ir"
	"github.com/hql-lang/hql/internal/hql/target"
)

func TestStripRuntimeDeclsRemovesReservedNamesFromIRAndTarget(t *testing.T) {
	unit := &Unit{
		IR: []ir.Node{
			&ir.VariableDecl{ID: "print", Init: &ir.FunctionDecl{ID: "print", IsAnonymous: true}, Kind: ir.KindConst},
			&ir.VariableDecl{ID: "x", Init: &ir.NumericLit{Value: 1}, Kind: ir.KindConst},
		},
		Target: []target.Stmt{
			&target.SVariable{Kind: "const", ID: "print", Init: &target.EFunction{}},
			&target.SVariable{Kind: "const", ID: "x", Init: &target.ENumber{Value: 1}},
		},
	}

	StripRuntimeDecls(unit, map[string]bool{"print": true})

	if len(unit.IR) != 1 || len(unit.Target) != 1 {
		t.Fatalf("expected one surviving IR node and one target statement, got %d/%d", len(unit.IR), len(unit.Target))
	}
	if unit.IR[0].(*ir.VariableDecl).ID != "x" {
		t.Fatalf("expected x to survive in IR, got %+v", unit.IR[0])
	}
	if unit.Target[0].(*target.SVariable).ID != "x" {
		t.Fatalf("expected x to survive in target, got %+v", unit.Target[0])
	}
}

func TestStripRuntimeDeclsNoOpWhenReservedEmpty(t *testing.T) {
	unit := &Unit{
		IR:     []ir.Node{&ir.VariableDecl{ID: "x", Init: &ir.NumericLit{Value: 1}, Kind: ir.KindConst}},
		Target: []target.Stmt{&target.SVariable{Kind: "const", ID: "x", Init: &target.ENumber{Value: 1}}},
	}
	StripRuntimeDecls(unit, nil)
	if len(unit.IR) != 1 || len(unit.Target) != 1 {
		t.Fatalf("expected no-op, got %d/%d", len(unit.IR), len(unit.Target))
	}
}
