package macro

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/hql-lang/hql/internal/hql/sexp"
	"github.com/hql-lang/hql/internal/hql/token"
)

func sym(s string) sexp.SExp  { return sexp.Symbol(s, token.Position{}) }
func num(n float64) sexp.SExp { return sexp.Num(n, token.Position{}) }
func lst(elems ...sexp.SExp) sexp.SExp {
	return sexp.List(elems, token.Position{})
}

func TestRegistryDefineSystemRejectsEmptyName(t *testing.T) {
	r := NewRegistry()
	err := r.DefineSystem("", &MacroDef{})
	if err == nil {
		t.Fatal("expected error for empty macro name")
	}
}

func TestRegistrySanitizedAliasMirror(t *testing.T) {
	r := NewRegistry()
	def := &MacroDef{Name: "list-first"}
	if err := r.DefineSystem("list-first", def); err != nil {
		t.Fatal(err)
	}
	got, ok := r.Get("list_first", 0)
	if !ok || got != def {
		t.Fatal("expected sanitized underscore alias to resolve to the same macro")
	}
}

func TestRegistryModuleRedefinitionIsIdempotent(t *testing.T) {
	r := NewRegistry()
	fileA := token.FileID(1)
	first := &MacroDef{Name: "m"}
	second := &MacroDef{Name: "m"}
	if err := r.DefineModule(fileA, "m", first); err != nil {
		t.Fatal(err)
	}
	if err := r.DefineModule(fileA, "m", second); err != nil {
		t.Fatal(err)
	}
	got, _ := r.Get("m", fileA)
	if got != first {
		t.Fatal("redefining the same (file, name) pair should be a no-op, keeping the first definition")
	}
}

func TestRegistryExportRequiresPriorDefinition(t *testing.T) {
	r := NewRegistry()
	fileA := token.FileID(1)
	if err := r.Export(fileA, "nope"); err == nil {
		t.Fatal("expected error exporting an undefined macro")
	}
}

func TestRegistrySelfImportIsNoOp(t *testing.T) {
	r := NewRegistry()
	fileA := token.FileID(1)
	if err := r.Import(fileA, "m", fileA, ""); err != nil {
		t.Fatalf("self-import should succeed as a no-op, got %v", err)
	}
}

func TestRegistryImportRequiresExport(t *testing.T) {
	r := NewRegistry()
	fileA, fileB := token.FileID(1), token.FileID(2)
	if err := r.DefineModule(fileA, "m", &MacroDef{Name: "m"}); err != nil {
		t.Fatal(err)
	}
	if err := r.Import(fileA, "m", fileB, ""); err == nil {
		t.Fatal("expected error importing a non-exported macro")
	}
}

func TestRegistryImportWithAliasResolvesBack(t *testing.T) {
	r := NewRegistry()
	fileA, fileB := token.FileID(1), token.FileID(2)
	def := &MacroDef{Name: "m"}
	if err := r.DefineModule(fileA, "m", def); err != nil {
		t.Fatal(err)
	}
	if err := r.Export(fileA, "m"); err != nil {
		t.Fatal(err)
	}
	if err := r.Import(fileA, "m", fileB, "renamed"); err != nil {
		t.Fatal(err)
	}
	got, ok := r.Get("renamed", fileB)
	if !ok || got != def {
		t.Fatal("expected alias lookup to resolve back to the original macro")
	}
	if r.HasMacro("m", fileB) {
		t.Fatal("the unaliased original name should not be visible in the importing file")
	}
}

func TestRegistryLookupOrderSystemBeatsModule(t *testing.T) {
	r := NewRegistry()
	fileA := token.FileID(1)
	systemDef := &MacroDef{Name: "m"}
	moduleDef := &MacroDef{Name: "m"}
	if err := r.DefineSystem("m", systemDef); err != nil {
		t.Fatal(err)
	}
	if err := r.DefineModule(fileA, "m", moduleDef); err != nil {
		t.Fatal(err)
	}
	got, _ := r.Get("m", fileA)
	if got != systemDef {
		t.Fatal("system macros must take priority over module-scoped macros of the same name")
	}
}

func TestRegistryIsUserLevelMacro(t *testing.T) {
	r := NewRegistry()
	fileA := token.FileID(1)
	if err := r.DefineSystem("sys", &MacroDef{Name: "sys"}); err != nil {
		t.Fatal(err)
	}
	if err := r.DefineModule(fileA, "mod", &MacroDef{Name: "mod"}); err != nil {
		t.Fatal(err)
	}
	if r.IsUserLevelMacro("sys", fileA) {
		t.Fatal("system macros are not user-level")
	}
	if !r.IsUserLevelMacro("mod", fileA) {
		t.Fatal("module-defined macros are user-level in their own file")
	}
}

func TestRegistryProcessedFiles(t *testing.T) {
	r := NewRegistry()
	fileA := token.FileID(1)
	if r.IsProcessed(fileA) {
		t.Fatal("expected fileA to not be processed yet")
	}
	r.MarkProcessed(fileA)
	if !r.IsProcessed(fileA) {
		t.Fatal("expected fileA to be processed after MarkProcessed")
	}
}

func TestExpandArithmeticLowering(t *testing.T) {
	// (defmacro double (x) (quasiquote (+ (unquote x) (unquote x))))
	def := lst(sym("defmacro"), sym("double"), lst(sym("x")),
		lst(sym("quasiquote"), lst(sym("+"), lst(sym("unquote"), sym("x")), lst(sym("unquote"), sym("x")))))
	call := lst(sym("def"), sym("y"), lst(sym("double"), num(21)))

	x := NewExpander(NewRegistry())
	out, err := x.Expand(token.FileID(1), []sexp.SExp{def, call})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("expected defmacro to be stripped from output, got %d forms", len(out))
	}
	want := lst(sym("def"), sym("y"), lst(sym("+"), num(21), num(21)))
	if !sexp.Equal(out[0], want) {
		t.Fatalf("expected %s, got %s", want.String(), out[0].String())
	}
}

func TestExpandHygienicSwapMacro(t *testing.T) {
	// (defmacro swap (a b)
	//   (quasiquote (let (tmp (unquote a))
	//                 (set! (unquote a) (unquote b))
	//                 (set! (unquote b) tmp))))
	def := lst(sym("defmacro"), sym("swap"), lst(sym("a"), sym("b")),
		lst(sym("quasiquote"),
			lst(sym("let"), lst(sym("tmp"), lst(sym("unquote"), sym("a"))),
				lst(sym("set!"), lst(sym("unquote"), sym("a")), lst(sym("unquote"), sym("b"))),
				lst(sym("set!"), lst(sym("unquote"), sym("b")), sym("tmp")))))

	// Caller already has its own binding named tmp; a non-hygienic expansion
	// would have the macro's internal `tmp` collide with it.
	call := lst(sym("swap"), sym("tmp"), sym("other"))

	x := NewExpander(NewRegistry())
	out, err := x.Expand(token.FileID(1), []sexp.SExp{def, call})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("expected 1 form after cleanup, got %d", len(out))
	}
	letForm := out[0]
	if h, ok := letForm.HeadSymbol(); !ok || h != "let" {
		t.Fatalf("expected expansion to be a let-form, got %s", letForm.String())
	}
	bindingName := letForm.Elems[1].Elems[0].Sym
	if bindingName == "tmp" {
		t.Fatal("expected the macro's internal temporary to be renamed away from the caller's `tmp`")
	}
	// Every occurrence of the renamed binding inside the body must match,
	// and the caller's own `tmp` symbol (passed as an argument) must be
	// left untouched, appearing literally as `tmp` where `a` was substituted.
	firstSet := letForm.Elems[2]
	if firstSet.Elems[1].Sym != "tmp" {
		t.Fatalf("expected caller-supplied arg `tmp` unchanged, got %s", firstSet.Elems[1].Sym)
	}
	secondSet := letForm.Elems[3]
	if secondSet.Elems[2].Sym != bindingName {
		t.Fatal("expected final reference to the macro's temporary to use the renamed name")
	}
}

func TestExpandModuleScopedMacroWithAlias(t *testing.T) {
	fileA, fileB := token.FileID(1), token.FileID(2)
	def := lst(sym("macro"), sym("twice"), lst(sym("x")),
		lst(sym("quasiquote"), lst(sym("+"), lst(sym("unquote"), sym("x")), lst(sym("unquote"), sym("x")))))
	exportForm := lst(sym("export-macro"), sym("twice"))

	x := NewExpander(NewRegistry())
	if _, err := x.Expand(fileA, []sexp.SExp{def, exportForm}); err != nil {
		t.Fatal(err)
	}
	if err := x.Registry.Import(fileA, "twice", fileB, "dbl"); err != nil {
		t.Fatal(err)
	}

	call := lst(sym("def"), sym("y"), lst(sym("dbl"), num(5)))
	out, err := x.Expand(fileB, []sexp.SExp{call})
	if err != nil {
		t.Fatal(err)
	}
	want := lst(sym("def"), sym("y"), lst(sym("+"), num(5), num(5)))
	if !sexp.Equal(out[0], want) {
		t.Fatalf("expected %s, got %s", want.String(), out[0].String())
	}
}

func TestExpandQuasiquoteSplicingOverRest(t *testing.T) {
	// (defmacro list* (&rest items) (quasiquote (list (unquote-splicing items))))
	def := lst(sym("defmacro"), sym("list*"), lst(sym("&rest"), sym("items")),
		lst(sym("quasiquote"), lst(sym("list"), lst(sym("unquote-splicing"), sym("items")))))
	call := lst(sym("list*"), num(1), num(2), num(3))

	x := NewExpander(NewRegistry())
	out, err := x.Expand(token.FileID(1), []sexp.SExp{def, call})
	if err != nil {
		t.Fatal(err)
	}
	want := lst(sym("list"), num(1), num(2), num(3))
	if !sexp.Equal(out[0], want) {
		t.Fatalf("expected %s, got %s", want.String(), out[0].String())
	}
}

func TestExpandQuasiquoteSplicingNonListWarnsAndInsertsSingleElement(t *testing.T) {
	// (defmacro wrap-num (n) (quasiquote (list (unquote-splicing n))))
	// n is bound to a number, not a list, so splicing falls back to
	// inserting it as one element (spec.md §4.6) and must warn on stderr.
	def := lst(sym("defmacro"), sym("wrap-num"), lst(sym("n")),
		lst(sym("quasiquote"), lst(sym("list"), lst(sym("unquote-splicing"), sym("n")))))
	call := lst(sym("wrap-num"), num(42))

	origStderr := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stderr = w

	x := NewExpander(NewRegistry())
	out, expandErr := x.Expand(token.FileID(1), []sexp.SExp{def, call})

	w.Close()
	os.Stderr = origStderr
	captured, _ := io.ReadAll(r)

	if expandErr != nil {
		t.Fatal(expandErr)
	}
	want := lst(sym("list"), num(42))
	if !sexp.Equal(out[0], want) {
		t.Fatalf("expected the non-list value inserted as a single element, got %s", out[0].String())
	}
	if !strings.Contains(string(captured), "MACRO-SPLICE-NON-LIST") {
		t.Fatalf("expected a splice-non-list warning on stderr, got %q", captured)
	}
}

func TestExpandUnknownMacroNameIsLeftAsPlainCall(t *testing.T) {
	call := lst(sym("totally-undefined-thing"), num(1))
	x := NewExpander(NewRegistry())
	out, err := x.Expand(token.FileID(1), []sexp.SExp{call})
	if err != nil {
		t.Fatal(err)
	}
	if !sexp.Equal(out[0], call) {
		t.Fatal("a call to an unregistered name is ordinary program code, not a macro error")
	}
}

func TestExpandWrongArityIsMacroError(t *testing.T) {
	def := lst(sym("defmacro"), sym("one-arg"), lst(sym("x")), sym("x"))
	call := lst(sym("one-arg"), num(1), num(2))
	x := NewExpander(NewRegistry())
	if _, err := x.Expand(token.FileID(1), []sexp.SExp{def, call}); err == nil {
		t.Fatal("expected a MacroError for wrong argument count")
	}
}

func TestExpandIsIdempotentOnAlreadyExpandedForms(t *testing.T) {
	forms := []sexp.SExp{lst(sym("def"), sym("y"), lst(sym("+"), num(1), num(2)))}
	x := NewExpander(NewRegistry())
	out, err := x.Expand(token.FileID(1), forms)
	if err != nil {
		t.Fatal(err)
	}
	if !sexp.EqualSeq(out, forms) {
		t.Fatal("expanding forms with no macro calls should return them unchanged")
	}
}
