package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hql-lang/hql/internal/hql/pipeline"
	"github.com/hql-lang/hql/internal/hql/target"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	switch command {
	case "compile":
		compileCommand(os.Args[2:])
	case "check":
		checkCommand(os.Args[2:])
	case "run":
		runCommand(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "hqlc - the HQL to ECMAScript compiler\n\n")
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  hqlc compile -input <file.hql> [-ts] [-verbose]\n")
	fmt.Fprintf(os.Stderr, "  hqlc check -input <file.hql> [-verbose]\n")
	fmt.Fprintf(os.Stderr, "  hqlc run -input <file.hql>\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  compile  Resolve imports, expand macros, and print the emitted target AST as JSON\n")
	fmt.Fprintf(os.Stderr, "  check    Run the pipeline through IR/target emission, reporting diagnostics only\n")
	fmt.Fprintf(os.Stderr, "  run      Compile then hand off to an external JS/TS runner (not implemented)\n\n")
	fmt.Fprintf(os.Stderr, "Examples:\n")
	fmt.Fprintf(os.Stderr, "  hqlc compile -input example.hql\n")
	fmt.Fprintf(os.Stderr, "  hqlc check -input example.hql -verbose\n")
}

func compileCommand(args []string) {
	flags := flag.NewFlagSet("compile", flag.ExitOnError)
	var (
		inputFile = flags.String("input", "", "Input .hql file to compile")
		ts        = flags.Bool("ts", false, "Emit TypeScript type annotations instead of JavaScript")
		verbose   = flags.Bool("verbose", false, "Enable verbose output")
	)
	flags.Parse(args)

	if *inputFile == "" {
		fmt.Fprintf(os.Stderr, "Error: -input flag is required\n\n")
		printUsage()
		os.Exit(1)
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "🔄 Compiling: %s\n", *inputFile)
	}

	c := newCompiler(*inputFile, *ts)
	result, err := c.CompileProgram(context.Background(), *inputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Compile error: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "✅ Compiled %d file(s), %d external specifier(s)\n", len(result.Units), len(result.External))
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Error encoding output: %v\n", err)
		os.Exit(1)
	}
}

func checkCommand(args []string) {
	flags := flag.NewFlagSet("check", flag.ExitOnError)
	var (
		inputFile = flags.String("input", "", "Input .hql file to check")
		verbose   = flags.Bool("verbose", false, "Enable verbose output")
	)
	flags.Parse(args)

	if *inputFile == "" {
		fmt.Fprintf(os.Stderr, "Error: -input flag is required\n\n")
		printUsage()
		os.Exit(1)
	}

	if *verbose {
		fmt.Fprintf(os.Stderr, "🔎 Checking: %s\n", *inputFile)
	}

	c := newCompiler(*inputFile, false)
	if _, err := c.CompileProgram(context.Background(), *inputFile); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "✅ No errors found\n")
}

// runCommand hands off to an external JS/TS runner, which is out of
// scope for this compiler (spec.md §1's Non-goals: "executing emitted
// JavaScript"). It exists only so the CLI surface matches the shape
// `cmd/hqlc run ...` implies; it never actually executes anything.
func runCommand(args []string) {
	flags := flag.NewFlagSet("run", flag.ExitOnError)
	inputFile := flags.String("input", "", "Input .hql file to run")
	flags.Parse(args)

	if *inputFile == "" {
		fmt.Fprintf(os.Stderr, "Error: -input flag is required\n\n")
		printUsage()
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "hqlc run: executing emitted JavaScript is out of scope for this compiler.\n")
	fmt.Fprintf(os.Stderr, "Use `hqlc compile -input %s` and hand the output to a JS/TS runtime.\n", *inputFile)
	os.Exit(1)
}

func newCompiler(inputFile string, ts bool) *pipeline.Compiler {
	sourceDir := filepath.Dir(inputFile)
	workDir, _ := filepath.Abs(".")

	lang := target.JavaScript
	if ts {
		lang = target.TypeScript
	}

	return pipeline.NewBuilder().
		WithSourceDir(sourceDir).
		WithWorkDir(workDir).
		WithTargetConfig(target.Config{Lang: lang, MissingAnnotationAsAny: true}).
		Build()
}
