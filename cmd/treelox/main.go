// Command treelox is the CLI entry point for the treelox interpreter.
//
// Usage:
//
//	treelox tokens  <file> [--json]   Print tokens
//	treelox parse   <file>            Print AST as JSON
//	treelox resolve <file>            Print the resolver's distance map as JSON
//	treelox run     <file>            Run a source file
//	treelox repl                      Start interactive REPL (also the default)
//
// Global flags: --config <path> (default ~/.treelox.yml), --debug.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"treelox/internal/ast"
	"treelox/internal/config"
	"treelox/internal/diag"
	"treelox/internal/lexer"
	"treelox/internal/parser"
	"treelox/internal/resolver"
	"treelox/internal/runtime"
)

// Exit codes for file mode.
const (
	exitUsage   = 1
	exitStatic  = 65 // lex, parse or resolve errors
	exitRuntime = 70
)

// options holds the parsed command line.
type options struct {
	command    string
	file       string
	jsonMode   bool
	debug      bool
	configPath string
}

func main() {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		usage()
		os.Exit(exitUsage)
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitUsage)
	}
	logger := newLogger(cfg, opts.debug)

	switch opts.command {
	case "tokens":
		cmdTokens(readFile(opts.file), opts.jsonMode)
	case "parse":
		cmdParse(readFile(opts.file))
	case "resolve":
		cmdResolve(readFile(opts.file))
	case "run":
		cmdRun(readFile(opts.file), cfg, logger)
	case "repl":
		cmdRepl(cfg, logger)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  treelox tokens  <file> [--json]   Tokenize and print tokens")
	fmt.Fprintln(os.Stderr, "  treelox parse   <file>            Parse and print AST (JSON)")
	fmt.Fprintln(os.Stderr, "  treelox resolve <file>            Print resolved scope distances (JSON)")
	fmt.Fprintln(os.Stderr, "  treelox run     <file>            Run a source file")
	fmt.Fprintln(os.Stderr, "  treelox repl                      Start interactive REPL")
	fmt.Fprintln(os.Stderr, "Flags:")
	fmt.Fprintln(os.Stderr, "  --config <path>   configuration file (default ~/.treelox.yml)")
	fmt.Fprintln(os.Stderr, "  --debug           trace calls and resolution to stderr")
}

// parseArgs accepts flags anywhere on the line.
func parseArgs(args []string) (options, error) {
	var opts options
	var positional []string

	for idx := 0; idx < len(args); idx++ {
		arg := args[idx]
		switch {
		case arg == "--json":
			opts.jsonMode = true
		case arg == "--debug":
			opts.debug = true
		case arg == "--config":
			if idx+1 >= len(args) {
				return opts, errors.New("--config needs a path")
			}
			idx++
			opts.configPath = args[idx]
		case strings.HasPrefix(arg, "--config="):
			opts.configPath = strings.TrimPrefix(arg, "--config=")
		case strings.HasPrefix(arg, "-") && arg != "-":
			return opts, fmt.Errorf("unknown flag '%s'", arg)
		default:
			positional = append(positional, arg)
		}
	}

	if len(positional) == 0 {
		opts.command = "repl"
		return opts, nil
	}
	opts.command = positional[0]

	switch opts.command {
	case "tokens", "parse", "resolve", "run":
		if len(positional) < 2 {
			return opts, errors.New("missing file argument")
		}
		opts.file = positional[1]
	case "repl":
	default:
		return opts, fmt.Errorf("unknown command '%s'", opts.command)
	}
	return opts, nil
}

// loadConfig reads an explicit path strictly; the default path may be absent.
func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	defaultPath, err := config.DefaultPath()
	if err != nil {
		return config.Default(), nil
	}
	return config.LoadOrDefault(defaultPath)
}

func newLogger(cfg config.Config, debug bool) *slog.Logger {
	level := cfg.SlogLevel()
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func readFile(filename string) string {
	source, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot read file %s: %v\n", filename, err)
		os.Exit(exitUsage)
	}
	return string(source)
}

// frontEnd lexes and parses source, returning every diagnostic from both phases.
func frontEnd(source string) (*ast.File, []diag.Diagnostic) {
	tokens, lexDiags := lexer.New(source).Tokenize()
	if len(lexDiags) > 0 {
		return nil, lexDiags
	}
	return parser.New(tokens).ParseFile()
}

// ---- tokens command ----

func cmdTokens(source string, jsonMode bool) {
	tokens, diags := lexer.New(source).Tokenize()

	if jsonMode {
		printTokensJSON(os.Stdout, tokens, diags)
	} else {
		printTokensText(os.Stdout, tokens)
		printDiagsText(os.Stderr, diags)
	}

	if len(diags) > 0 {
		os.Exit(exitStatic)
	}
}

// ---- parse command ----

func cmdParse(source string) {
	tokens, lexDiags := lexer.New(source).Tokenize()
	file, parseDiags := parser.New(tokens).ParseFile()

	allDiags := append(lexDiags, parseDiags...)

	output := map[string]any{
		"ast":         ast.NodeToMap(file),
		"diagnostics": diagRecords(allDiags),
	}
	printJSON(os.Stdout, output)

	if len(allDiags) > 0 {
		os.Exit(exitStatic)
	}
}

// ---- resolve command ----

func cmdResolve(source string) {
	file, diags := frontEnd(source)
	if len(diags) > 0 {
		printDiagsText(os.Stderr, diags)
		os.Exit(exitStatic)
	}

	distances, errs := resolver.Resolve(file.Body)
	semantic := resolver.Errors(errs).Diagnostics()

	output := map[string]any{
		"distances":   distances,
		"diagnostics": diagRecords(semantic),
	}
	printJSON(os.Stdout, output)

	if len(semantic) > 0 {
		os.Exit(exitStatic)
	}
}

// ---- run command ----

func cmdRun(source string, cfg config.Config, logger *slog.Logger) {
	if cfg.Dump.Tokens {
		dumpTokens(os.Stderr, source)
	}

	file, diags := frontEnd(source)
	if len(diags) > 0 {
		printDiagsText(os.Stderr, diags)
		os.Exit(exitStatic)
	}

	if cfg.Dump.AST {
		printJSON(os.Stderr, ast.NodeToMap(file))
	}
	if cfg.Dump.Distances {
		dumpDistances(os.Stderr, file)
	}

	interp := runtime.NewInterpreter(os.Stdout, runtime.WithLogger(logger))
	err := interp.Run(file)

	var semantic resolver.Errors
	switch {
	case err == nil:
	case errors.As(err, &semantic):
		printDiagsText(os.Stderr, semantic.Diagnostics())
		os.Exit(exitStatic)
	default:
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitRuntime)
	}
}

// dumpTokens writes the token stream followed by any lexical diagnostics.
func dumpTokens(w io.Writer, source string) {
	tokens, diags := lexer.New(source).Tokenize()
	printTokensText(w, tokens)
	printDiagsText(w, diags)
}

// dumpDistances writes the distance map followed by any semantic errors.
// The errors are reported again when the program is run.
func dumpDistances(w io.Writer, file *ast.File) {
	distances, errs := resolver.Resolve(file.Body)
	printJSON(w, distances)
	printDiagsText(w, resolver.Errors(errs).Diagnostics())
}
