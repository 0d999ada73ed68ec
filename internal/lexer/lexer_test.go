package lexer

import (
	"strings"
	"testing"

	"treelox/internal/token"
)

func expectKinds(t *testing.T, source string, expected []token.Kind) []token.Token {
	t.Helper()
	l := New(source)
	tokens, diags := l.Tokenize()

	if len(diags) > 0 {
		t.Errorf("unexpected diagnostics: %v", diags)
	}
	if len(tokens) != len(expected) {
		t.Fatalf("expected %d tokens, got %d: %v", len(expected), len(tokens), tokens)
	}
	for i, exp := range expected {
		if tokens[i].Kind != exp {
			t.Errorf("token[%d]: expected %s, got %s (%q)", i, exp, tokens[i].Kind, tokens[i].Lexeme)
		}
	}
	return tokens
}

func TestTokenizeSimple(t *testing.T) {
	expectKinds(t, `var x = 1 + 2;`, []token.Kind{
		token.KW_VAR, token.IDENT, token.ASSIGN,
		token.NUMBER, token.PLUS, token.NUMBER, token.SEMICOLON, token.EOF,
	})
}

func TestTokenizeKeywords(t *testing.T) {
	expectKinds(t, `class else false fn for if nil print return self true var while and or`, []token.Kind{
		token.KW_CLASS, token.KW_ELSE, token.KW_FALSE, token.KW_FN,
		token.KW_FOR, token.KW_IF, token.KW_NIL, token.KW_PRINT,
		token.KW_RETURN, token.KW_SELF, token.KW_TRUE, token.KW_VAR,
		token.KW_WHILE, token.AND, token.OR,
		token.EOF,
	})
}

func TestTokenizeOperators(t *testing.T) {
	expectKinds(t, `= == != < <= > >= + - * / ! && ||`, []token.Kind{
		token.ASSIGN, token.EQ, token.NEQ,
		token.LT, token.LTE, token.GT, token.GTE,
		token.PLUS, token.MINUS, token.STAR, token.SLASH,
		token.BANG, token.AND, token.OR,
		token.EOF,
	})
}

func TestTokenizeDelimiters(t *testing.T) {
	expectKinds(t, `( ) { } , . ;`, []token.Kind{
		token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE,
		token.COMMA, token.DOT, token.SEMICOLON,
		token.EOF,
	})
}

func TestTokenizeAtIsSelf(t *testing.T) {
	tokens := expectKinds(t, `@.x`, []token.Kind{
		token.KW_SELF, token.DOT, token.IDENT, token.EOF,
	})
	if tokens[0].Lexeme != "@" {
		t.Errorf("expected lexeme '@', got %q", tokens[0].Lexeme)
	}
}

func TestTokenizeString(t *testing.T) {
	tokens := expectKinds(t, `"hello" "line1\nline2"`, []token.Kind{
		token.STRING, token.STRING, token.EOF,
	})
	if tokens[0].Lexeme != "hello" {
		t.Errorf("expected 'hello', got %q", tokens[0].Lexeme)
	}
	if tokens[1].Lexeme != "line1\nline2" {
		t.Errorf("expected string with newline, got %q", tokens[1].Lexeme)
	}
}

func TestTokenizeMultilineString(t *testing.T) {
	tokens := expectKinds(t, "\"a\nb\" x", []token.Kind{
		token.STRING, token.IDENT, token.EOF,
	})
	if tokens[1].Span.Start.Line != 2 {
		t.Errorf("expected 'x' on line 2, got %d", tokens[1].Span.Start.Line)
	}
}

func TestTokenizeNumbers(t *testing.T) {
	tokens := expectKinds(t, `123 3.14 0 42.`, []token.Kind{
		token.NUMBER, token.NUMBER, token.NUMBER, token.NUMBER, token.DOT, token.EOF,
	})
	if tokens[0].Lexeme != "123" {
		t.Errorf("token[0]: expected '123', got %q", tokens[0].Lexeme)
	}
	if tokens[1].Lexeme != "3.14" {
		t.Errorf("token[1]: expected '3.14', got %q", tokens[1].Lexeme)
	}
	if tokens[3].Lexeme != "42" {
		t.Errorf("token[3]: expected '42', got %q", tokens[3].Lexeme)
	}
}

func TestTokenizeComment(t *testing.T) {
	expectKinds(t, "x // this is a comment\ny", []token.Kind{
		token.IDENT, token.IDENT, token.EOF,
	})
}

func TestTokenizePositions(t *testing.T) {
	tokens := expectKinds(t, "var x = 1;\n  print x;", []token.Kind{
		token.KW_VAR, token.IDENT, token.ASSIGN, token.NUMBER, token.SEMICOLON,
		token.KW_PRINT, token.IDENT, token.SEMICOLON, token.EOF,
	})

	if tokens[0].Span.Start.Line != 1 || tokens[0].Span.Start.Column != 1 {
		t.Errorf("'var' position: expected 1:1, got %s", tokens[0].Span.Start)
	}
	if tokens[1].Span.Start.Line != 1 || tokens[1].Span.Start.Column != 5 {
		t.Errorf("'x' position: expected 1:5, got %s", tokens[1].Span.Start)
	}
	if tokens[5].Span.Start.Line != 2 || tokens[5].Span.Start.Column != 3 {
		t.Errorf("'print' position: expected 2:3, got %s", tokens[5].Span.Start)
	}
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		code   string
	}{
		{"unterminated string", `"abc`, "E1001"},
		{"bad escape", `"a\qb"`, "E1002"},
		{"lone ampersand", `a & b`, "E1003"},
		{"lone pipe", `a | b`, "E1003"},
		{"unexpected char", `#`, "E1003"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, diags := New(tt.source).Tokenize()
			if len(diags) == 0 {
				t.Fatal("expected a diagnostic")
			}
			if diags[0].Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, diags[0].Code)
			}
		})
	}
}

func TestTokenizeNonASCIICharacter(t *testing.T) {
	tokens, diags := New(`a é b`).Tokenize()
	if len(diags) != 1 {
		t.Fatalf("expected one diagnostic, got %d: %v", len(diags), diags)
	}
	if !strings.Contains(diags[0].Message, "'é'") {
		t.Errorf("expected message to name 'é', got %q", diags[0].Message)
	}
	want := []token.Kind{token.IDENT, token.ILLEGAL, token.IDENT, token.EOF}
	if len(tokens) != len(want) {
		t.Fatalf("expected %d tokens, got %v", len(want), tokens)
	}
	for i, kind := range want {
		if tokens[i].Kind != kind {
			t.Errorf("token[%d]: expected %s, got %s", i, kind, tokens[i].Kind)
		}
	}
	if tokens[1].Lexeme != "é" {
		t.Errorf("expected lexeme 'é', got %q", tokens[1].Lexeme)
	}
	if col := tokens[2].Span.Start.Column; col != 5 {
		t.Errorf("expected 'b' at column 5, got %d", col)
	}
}
