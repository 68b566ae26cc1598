package resolve

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hql-lang/hql/internal/hql/sexp"
)

// Tracker records which files have already been processed, matching the
// Macro Registry's mark_processed contract (spec.md §4.5's
// processed_files set). Passed in by the pipeline so the resolver never
// re-lexes/re-parses/re-expands a file already seen elsewhere in the
// import graph.
type Tracker interface {
	IsProcessed(path string) bool
	MarkProcessed(path string)
}

// Loader lexes, parses, and syntax-transforms a single source file,
// returning its canonical top-level forms.
type Loader func(path string) ([]sexp.SExp, error)

// FileNode is one compiled unit of the resolved import graph, in
// dependency-then-dependent (topological) order.
type FileNode struct {
	Path  string
	Forms []sexp.SExp
	// Imports are the local module specifiers this file references,
	// already resolved to absolute paths (external specifiers are kept
	// as their original specifier string and excluded from dependency
	// ordering).
	Imports []string
}

// Graph is the result of resolving an entry file's full local import
// closure: every reachable local file, in dependency order, plus any
// external specifiers referenced anywhere in the closure.
type Graph struct {
	Order     []*FileNode
	External  []string
	byPath    map[string]*FileNode
}

// BuildGraph walks the local import closure of entry, using load to
// lex/parse/syntax-transform each file and tracker to avoid reprocessing
// a file already marked elsewhere. Cycle detection mirrors the teacher's
// DFS in-progress/visited map style (internal/transpiler/packages/resolver.go).
func BuildGraph(ctx context.Context, r *Resolver, tracker Tracker, load Loader, entry string) (*Graph, error) {
	absEntry, err := filepath.Abs(entry)
	if err != nil {
		return nil, err
	}

	g := &Graph{byPath: make(map[string]*FileNode)}
	inProgress := make(map[string]bool)
	visited := make(map[string]bool)
	var stack []string
	externalSeen := make(map[string]bool)

	var visit func(path string) error
	visit = func(path string) error {
		if visited[path] {
			return nil
		}
		if inProgress[path] {
			return fmt.Errorf("import cycle detected: %s", formatCycle(append(stack, path)))
		}
		inProgress[path] = true
		stack = append(stack, path)

		forms, err := load(path)
		if err != nil {
			return err
		}
		if tracker != nil {
			tracker.MarkProcessed(path)
		}

		specifiers := ExtractImportSpecifiers(forms)
		node := &FileNode{Path: path, Forms: forms}
		importerDir := filepath.Dir(path)

		for _, spec := range specifiers {
			resolved, external, rerr := r.Resolve(ctx, importerDir, spec)
			if rerr != nil {
				return rerr
			}
			if external {
				if !externalSeen[resolved] {
					externalSeen[resolved] = true
					g.External = append(g.External, resolved)
				}
				continue
			}
			node.Imports = append(node.Imports, resolved)
			if tracker != nil && tracker.IsProcessed(resolved) {
				continue
			}
			if err := visit(resolved); err != nil {
				return err
			}
		}

		inProgress[path] = false
		visited[path] = true
		stack = stack[:len(stack)-1]
		g.byPath[path] = node
		g.Order = append(g.Order, node)
		return nil
	}

	if err := visit(absEntry); err != nil {
		return nil, err
	}
	return g, nil
}

func formatCycle(stack []string) string {
	names := make([]string, len(stack))
	for i, s := range stack {
		names[i] = filepath.Base(s)
	}
	return strings.Join(names, " -> ")
}

// ExtractImportSpecifiers statically scans a file's syntax-transformed
// top-level forms for (import "path"), (import-member "path" "orig"), and
// (def _ (import ...)) / (def _ (import-member ...)) shapes, returning
// every referenced module specifier. This mirrors
// internal/transpiler/packages/resolver.go's collectImports, generalized
// to the canonical forms the syntax transformer produces (see
// internal/hql/syntax).
func ExtractImportSpecifiers(forms []sexp.SExp) []string {
	var out []string
	seen := make(map[string]bool)
	var walk func(e sexp.SExp)
	walk = func(e sexp.SExp) {
		if e.Kind != sexp.KindList {
			return
		}
		if head, ok := e.HeadSymbol(); ok {
			switch head {
			case "import":
				if len(e.Elems) == 2 && e.Elems[1].Kind == sexp.KindLiteral && e.Elems[1].LitType == sexp.LitString {
					addSpecifier(&out, seen, e.Elems[1].Str)
				}
			case "import-member":
				if len(e.Elems) >= 2 && e.Elems[1].Kind == sexp.KindLiteral && e.Elems[1].LitType == sexp.LitString {
					addSpecifier(&out, seen, e.Elems[1].Str)
				}
			}
		}
		for _, c := range e.Elems {
			walk(c)
		}
	}
	for _, f := range forms {
		walk(f)
	}
	return out
}

func addSpecifier(out *[]string, seen map[string]bool, spec string) {
	if seen[spec] {
		return
	}
	seen[spec] = true
	*out = append(*out, spec)
}
