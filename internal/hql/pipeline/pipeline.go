// Package pipeline wires the Lexer, Parser, Syntax Transformer, Import
// Resolver, Macro Expander, IR Builder, and Target AST Emitter into the
// single ordered pass spec.md §4 describes, over one shared Macro
// Registry per compilation. Grounded on internal/transpiler/orchestrator.go's
// TranspilerBuilder/VexTranspiler builder pattern: a chainable Builder
// produces an immutable Compiler, and the Compiler exposes one
// entry-point method per unit of work (a single file, or a whole program
// rooted at an entry file).
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hql-lang/hql/internal/hql/hqlast"
	"github.com/hql-lang/hql/internal/hql/ir"
	"github.com/hql-lang/hql/internal/hql/macro"
	"github.com/hql-lang/hql/internal/hql/parser"
	"github.com/hql-lang/hql/internal/hql/resolve"
	"github.com/hql-lang/hql/internal/hql/sexp"
	"github.com/hql-lang/hql/internal/hql/syntax"
	"github.com/hql-lang/hql/internal/hql/target"
	"github.com/hql-lang/hql/internal/hql/token"
)

// Config collects the options spec.md leaves to the host program: which
// target language to emit, which lowering conventions to apply, and
// where to resolve bare module specifiers from.
type Config struct {
	SourceDir string
	WorkDir   string

	IR     ir.Config
	Target target.Config
}

// Builder assembles a Compiler, mirroring the teacher's
// TranspilerBuilder chainable With* methods.
type Builder struct {
	cfg Config
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) WithSourceDir(dir string) *Builder {
	b.cfg.SourceDir = dir
	return b
}

func (b *Builder) WithWorkDir(dir string) *Builder {
	b.cfg.WorkDir = dir
	return b
}

func (b *Builder) WithIRConfig(cfg ir.Config) *Builder {
	b.cfg.IR = cfg
	return b
}

func (b *Builder) WithTargetConfig(cfg target.Config) *Builder {
	b.cfg.Target = cfg
	return b
}

// Build constructs a Compiler ready to compile programs under cfg,
// wiring a fresh Macro Registry, Resolver, and file-ID table for the
// whole compilation.
func (b *Builder) Build() *Compiler {
	if b.cfg.WorkDir == "" {
		b.cfg.WorkDir = b.cfg.SourceDir
	}
	return &Compiler{
		cfg:      b.cfg,
		registry: macro.NewRegistry(),
		resolver: resolve.New(b.cfg.SourceDir, b.cfg.WorkDir),
		files:    newFileTable(),
	}
}

// Compiler runs the full L-P-S-I-X-H-G-T pipeline over one shared Macro
// Registry, per spec.md §3's single process-wide registry invariant.
type Compiler struct {
	cfg      Config
	registry *macro.Registry
	resolver *resolve.Resolver
	files    *fileTable
}

// Unit is one compiled file: its lowered IR and emitted target
// statements, keyed by absolute path.
type Unit struct {
	Path   string
	IR     []ir.Node
	Target []target.Stmt
}

// Result is the full output of compiling a program: every reachable
// local file's Unit, in dependency order, plus the external module
// specifiers (npm:, jsr:, http:, https:) referenced anywhere in the
// closure, left for the downstream bundler per spec.md §4.4/§1's
// Non-goals.
type Result struct {
	Units    []*Unit
	External []string
}

// CompileProgram resolves entry's full local import closure, expands
// macros file by file in dependency order (so an imported file's
// module-scoped macros are defined and exported before the importing
// file is expanded), and lowers every file through IR and target
// emission.
func (c *Compiler) CompileProgram(ctx context.Context, entry string) (*Result, error) {
	graph, err := resolve.BuildGraph(ctx, c.resolver, c.files, c.load, entry)
	if err != nil {
		return nil, err
	}

	units := make([]*Unit, 0, len(graph.Order))
	for _, node := range graph.Order {
		// node's dependencies appear earlier in graph.Order (BuildGraph's
		// post-order DFS), so every origin file this node imports from has
		// already been expanded and had its exports registered — wiring
		// this node's own macro imports before compiling it is what makes
		// a macro call inside node resolve through the Registry.
		c.wireMacroImports(ctx, node)
		unit, err := c.compileNode(node)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", node.Path, err)
		}
		units = append(units, unit)
	}

	return &Result{Units: units, External: graph.External}, nil
}

// CompileFile compiles a single file in isolation, without following its
// imports. Useful for tooling (e.g. `hqlc check`) that only needs one
// file's diagnostics rather than a whole program's output.
func (c *Compiler) CompileFile(path string) (*Unit, error) {
	forms, err := c.load(path)
	if err != nil {
		return nil, err
	}
	return c.compileForms(path, forms)
}

// load lexes, parses, and syntax-transforms path, satisfying
// resolve.Loader.
func (c *Compiler) load(path string) ([]sexp.SExp, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	src := string(content)
	file := c.files.idFor(path)
	forms, err := parser.ParseString(file, path, src)
	if err != nil {
		return nil, err
	}
	return syntax.Transform(forms), nil
}

func (c *Compiler) compileNode(node *resolve.FileNode) (*Unit, error) {
	return c.compileForms(node.Path, node.Forms)
}

func (c *Compiler) compileForms(path string, forms []sexp.SExp) (*Unit, error) {
	file := c.files.idFor(path)

	expanded, err := macro.NewExpander(c.registry).Expand(file, forms)
	if err != nil {
		return nil, err
	}

	lowered, err := hqlast.Lower(path, expanded)
	if err != nil {
		return nil, err
	}

	nodes, err := ir.New(path, c.cfg.IR).Build(lowered)
	if err != nil {
		return nil, err
	}

	stmts, err := target.New(c.cfg.Target).Emit(nodes)
	if err != nil {
		return nil, err
	}

	return &Unit{Path: path, IR: nodes, Target: stmts}, nil
}

// wireMacroImports additionally registers a Macro Registry import for
// every (def local (import-member "path" "orig")) specifier in node
// whose origin turns out to already hold an exported macro under that
// name. The canonical import forms are shared between value and macro
// imports (spec.md's surface syntax draws no distinction), so this must
// run before node's own forms are expanded but after every file it
// imports from has already been compiled — exactly the point
// CompileProgram's dependency-ordered loop calls it from — scanning
// node's raw forms for import-member specifiers and checking each
// origin's export table.
func (c *Compiler) wireMacroImports(ctx context.Context, node *resolve.FileNode) {
	to := c.files.idFor(node.Path)
	importerDir := filepath.Dir(node.Path)
	for _, spec := range resolve.ExtractImportSpecifiers(node.Forms) {
		if resolve.IsExternal(spec) {
			continue
		}
		abs, external, err := c.resolver.Resolve(ctx, importerDir, spec)
		if err != nil || external || !c.files.has(abs) {
			continue
		}
		from := c.files.idFor(abs)
		for _, name := range memberNamesOf(node.Forms, spec) {
			if c.registry.HasMacro(name, from) {
				_ = c.registry.Import(from, name, to, "")
			}
		}
	}
}

// memberNamesOf scans forms for (def _ (import-member spec orig)) and
// returns every orig named against the given module specifier.
func memberNamesOf(forms []sexp.SExp, spec string) []string {
	var out []string
	var walk func(e sexp.SExp)
	walk = func(e sexp.SExp) {
		if e.Kind != sexp.KindList {
			return
		}
		if head, ok := e.HeadSymbol(); ok && head == "import-member" {
			if len(e.Elems) >= 3 &&
				e.Elems[1].Kind == sexp.KindLiteral && e.Elems[1].LitType == sexp.LitString && e.Elems[1].Str == spec &&
				e.Elems[2].Kind == sexp.KindLiteral && e.Elems[2].LitType == sexp.LitString {
				out = append(out, e.Elems[2].Str)
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

// fileTable hands out a stable FileID per absolute path for every
// pipeline stage that needs one (the parser, the expander, the IR
// builder's diagnostics), and separately satisfies resolve.Tracker's
// string-path-keyed IsProcessed/MarkProcessed — the Macro Registry's own
// processed_files set (spec.md §3) is keyed on FileID, which a path only
// acquires once this table has allocated one, so the two bookkeeping
// concerns are merged here rather than duplicated.
type fileTable struct {
	mu        sync.Mutex
	ids       map[string]token.FileID
	next      token.FileID
	processed map[string]bool
}

func newFileTable() *fileTable {
	return &fileTable{ids: make(map[string]token.FileID), processed: make(map[string]bool)}
}

// idFor returns the stable FileID for path, allocating one on first use.
func (t *fileTable) idFor(path string) token.FileID {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id, ok := t.ids[path]; ok {
		return id
	}
	id := t.next
	t.next++
	t.ids[path] = id
	return id
}

func (t *fileTable) has(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.ids[path]
	return ok
}

// IsProcessed satisfies resolve.Tracker.
func (t *fileTable) IsProcessed(path string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.processed[path]
}

// MarkProcessed satisfies resolve.Tracker.
func (t *fileTable) MarkProcessed(path string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.processed[path] = true
}
