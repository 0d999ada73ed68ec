package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"treelox/internal/config"
	"treelox/internal/diag"
	"treelox/internal/resolver"
	"treelox/internal/runtime"
)

// ---- ANSI colors ----

const (
	colorReset = "\033[0m"
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorCyan  = "\033[36m"
	colorGray  = "\033[90m"
	colorBold  = "\033[1m"
)

// painter wraps text in ANSI colors when enabled.
type painter bool

func (p painter) paint(color, s string) string {
	if !p {
		return s
	}
	return color + s + colorReset
}

// ---- repl command ----

func cmdRepl(cfg config.Config, logger *slog.Logger) {
	colors := painter(cfg.REPL.Color)
	prompt := colors.paint(colorGreen, cfg.REPL.Prompt)
	continuation := colors.paint(colorGray, cfg.REPL.ContinuationPrompt)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:            prompt,
		HistoryFile:       cfg.REPL.HistoryFile,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline init failed: %v\n", err)
		os.Exit(exitUsage)
	}
	defer rl.Close()

	// Welcome banner
	fmt.Fprintf(rl.Stdout(), "%s %s\n\n",
		colors.paint(colorBold+colorCyan, "treelox REPL"),
		colors.paint(colorGray, "(type 'exit' or Ctrl+D to quit)"))

	interp := runtime.NewInterpreter(rl.Stdout(), runtime.WithLogger(logger))
	var accumulated strings.Builder
	braceDepth := 0

	for {
		// Update prompt based on multi-line state
		if braceDepth > 0 {
			rl.SetPrompt(continuation)
		} else {
			rl.SetPrompt(prompt)
		}

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if braceDepth > 0 {
					// Cancel multi-line input
					accumulated.Reset()
					braceDepth = 0
					continue
				}
				// Show hint instead of exiting
				fmt.Fprintf(rl.Stdout(), "\n%s\n", colors.paint(colorGray, "(use 'exit' or Ctrl+D to quit)"))
				continue
			}
			// Ctrl+D or a read failure ends the session
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(rl.Stdout())
			}
			break
		}

		// Exit command
		if braceDepth == 0 && strings.TrimSpace(line) == "exit" {
			break
		}

		// Count braces for multi-line input
		braceDepth += strings.Count(line, "{") - strings.Count(line, "}")
		accumulated.WriteString(line)
		accumulated.WriteString("\n")

		// If braces are unbalanced, keep reading
		if braceDepth > 0 {
			continue
		}
		braceDepth = 0

		source := accumulated.String()
		accumulated.Reset()

		// Skip empty input
		if strings.TrimSpace(source) == "" {
			continue
		}

		evalInput(rl.Stderr(), interp, source, colors)
	}
}

// evalInput runs one complete REPL input. Errors are reported and the
// session carries on; distances resolved so far stay loaded.
func evalInput(stderr io.Writer, interp *runtime.Interpreter, source string, colors painter) {
	file, diags := frontEnd(source)
	if len(diags) > 0 {
		printDiagsColored(stderr, diags, colors)
		return
	}

	distances, errs := resolver.Resolve(file.Body)
	if len(errs) > 0 {
		printDiagsColored(stderr, resolver.Errors(errs).Diagnostics(), colors)
		return
	}
	interp.Load(distances)

	for _, stmt := range file.Body {
		if _, err := interp.Interpret(stmt); err != nil {
			fmt.Fprintln(stderr, colors.paint(colorRed, "error: "+err.Error()))
			return
		}
	}
}

// printDiagsColored prints diagnostics with red color for REPL display.
func printDiagsColored(w io.Writer, diags []diag.Diagnostic, colors painter) {
	for _, d := range diags {
		fmt.Fprintln(w, colors.paint(colorRed, d.String()))
	}
}
