package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"treelox/internal/diag"
	"treelox/internal/token"
)

// diagRecord is the JSON shape of one diagnostic.
type diagRecord struct {
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Offset   int    `json:"offset"`
	Hint     string `json:"hint,omitempty"`
}

// tokenRecord is the JSON shape of one token.
type tokenRecord struct {
	Kind   string `json:"kind"`
	Lexeme string `json:"lexeme"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Offset int    `json:"offset"`
}

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "error: encoding JSON: %v\n", err)
		os.Exit(exitUsage)
	}
}

func printDiagsText(w io.Writer, diags []diag.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintln(w, d.String())
	}
}

func diagRecords(diags []diag.Diagnostic) []diagRecord {
	records := make([]diagRecord, 0, len(diags))
	for _, d := range diags {
		pos := d.Span.Start
		records = append(records, diagRecord{
			Code:     d.Code,
			Severity: d.Severity.String(),
			Message:  d.Message,
			Line:     pos.Line,
			Column:   pos.Column,
			Offset:   pos.Offset,
			Hint:     d.Hint,
		})
	}
	return records
}

func printTokensText(w io.Writer, tokens []token.Token) {
	for _, tok := range tokens {
		pos := tok.Span.Start
		fmt.Fprintf(w, "%4d:%-3d %-14s %q\n", pos.Line, pos.Column, tok.Kind, tok.Lexeme)
	}
}

func printTokensJSON(w io.Writer, tokens []token.Token, diags []diag.Diagnostic) {
	records := make([]tokenRecord, len(tokens))
	for i, tok := range tokens {
		pos := tok.Span.Start
		records[i] = tokenRecord{tok.Kind.String(), tok.Lexeme, pos.Line, pos.Column, pos.Offset}
	}
	printJSON(w, struct {
		Tokens      []tokenRecord `json:"tokens"`
		Diagnostics []diagRecord  `json:"diagnostics"`
	}{records, diagRecords(diags)})
}
