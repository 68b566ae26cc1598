package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hql-lang/hql/internal/hql/ir"
	"github.com/hql-lang/hql/internal/hql/target"
)

func writeFile(t *testing.T, dir, name, src string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCompileFileLowersSimpleDef(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "main.hql", `(def x 1)`)

	c := NewBuilder().WithSourceDir(dir).Build()
	unit, err := c.CompileFile(entry)
	if err != nil {
		t.Fatal(err)
	}
	if len(unit.IR) != 1 {
		t.Fatalf("expected one IR node, got %d", len(unit.IR))
	}
	decl, ok := unit.IR[0].(*ir.VariableDecl)
	if !ok || decl.ID != "x" {
		t.Fatalf("unexpected IR %+v", unit.IR[0])
	}
	if len(unit.Target) != 1 {
		t.Fatalf("expected one target statement, got %d", len(unit.Target))
	}
}

func TestCompileProgramFollowsLocalImports(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "util.hql", `(export helper 42)`)
	entry := writeFile(t, dir, "main.hql", `(def local (import-member "./util.hql" "helper"))`)

	c := NewBuilder().WithSourceDir(dir).Build()
	result, err := c.CompileProgram(context.Background(), entry)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Units) != 2 {
		t.Fatalf("expected 2 units (util.hql then main.hql), got %d", len(result.Units))
	}
	if filepath.Base(result.Units[0].Path) != "util.hql" {
		t.Fatalf("expected util.hql to compile first (dependency order), got %s", result.Units[0].Path)
	}
	if filepath.Base(result.Units[1].Path) != "main.hql" {
		t.Fatalf("expected main.hql last, got %s", result.Units[1].Path)
	}
}

func TestCompileProgramCollectsExternalSpecifiers(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "main.hql", `(def x (import "npm:left-pad"))`)

	c := NewBuilder().WithSourceDir(dir).Build()
	result, err := c.CompileProgram(context.Background(), entry)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.External) != 1 || result.External[0] != "npm:left-pad" {
		t.Fatalf("unexpected external list %+v", result.External)
	}
}

func TestCompileProgramWiresCrossFileMacroImport(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "macros.hql", `
(macro double (x)
  (quasiquote (+ (unquote x) (unquote x))))
(export-macro double)
`)
	entry := writeFile(t, dir, "main.hql", `
(def local (import-member "./macros.hql" "double"))
(def y (double 21))
`)

	c := NewBuilder().WithSourceDir(dir).Build()
	result, err := c.CompileProgram(context.Background(), entry)
	if err != nil {
		t.Fatal(err)
	}
	main := result.Units[len(result.Units)-1]
	found := false
	for _, n := range main.IR {
		if decl, ok := n.(*ir.VariableDecl); ok && decl.ID == "y" {
			if _, ok := decl.Init.(*ir.Binary); ok {
				found = true
			}
		}
	}
	if !found {
		t.Fatalf("expected the imported macro to expand the (double 21) call, got %+v", main.IR)
	}
}

func TestCompileFileEmitsTypeScriptWhenConfigured(t *testing.T) {
	dir := t.TempDir()
	entry := writeFile(t, dir, "main.hql", `(def x 1)`)

	c := NewBuilder().WithSourceDir(dir).WithTargetConfig(target.Config{Lang: target.TypeScript}).Build()
	unit, err := c.CompileFile(entry)
	if err != nil {
		t.Fatal(err)
	}
	if len(unit.Target) != 1 {
		t.Fatalf("expected one statement, got %d", len(unit.Target))
	}
}

func TestFileTableAllocatesStableIDs(t *testing.T) {
	ft := newFileTable()
	a := ft.idFor("/a.hql")
	b := ft.idFor("/b.hql")
	if a == b {
		t.Fatal("expected distinct IDs for distinct paths")
	}
	if ft.idFor("/a.hql") != a {
		t.Fatal("expected idFor to be stable across calls")
	}
	if ft.IsProcessed("/a.hql") {
		t.Fatal("expected unprocessed before MarkProcessed")
	}
	ft.MarkProcessed("/a.hql")
	if !ft.IsProcessed("/a.hql") {
		t.Fatal("expected processed after MarkProcessed")
	}
}
