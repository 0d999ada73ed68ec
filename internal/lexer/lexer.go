// Package lexer implements the lexical analysis (tokenization) for treelox.
package lexer

import (
	"fmt"
	"unicode/utf8"

	"treelox/internal/diag"
	"treelox/internal/span"
	"treelox/internal/token"
)

// Lexer tokenizes source code into a sequence of tokens.
type Lexer struct {
	source string

	pos  int // current read position in source
	line int // current line (1-based)
	col  int // current column (1-based)

	diags []diag.Diagnostic
}

// New creates a new Lexer for the given source text.
func New(source string) *Lexer {
	return &Lexer{
		source: source,
		line:   1,
		col:    1,
	}
}

// Tokenize scans the entire source and returns all tokens and diagnostics.
// The token slice always ends with a single EOF token.
func (l *Lexer) Tokenize() ([]token.Token, []diag.Diagnostic) {
	var tokens []token.Token
	for {
		tok := l.nextToken()
		tokens = append(tokens, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return tokens, l.diags
}

// ---- internal helpers ----

func (l *Lexer) peek() byte {
	if l.pos >= len(l.source) {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekNext() byte {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

// advance consumes the current character and returns it.
func (l *Lexer) advance() byte {
	ch := l.source[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch
}

func (l *Lexer) curPos() span.Position {
	return span.Position{Offset: l.pos, Line: l.line, Column: l.col}
}

func (l *Lexer) makeSpan(start span.Position) span.Span {
	return span.Span{Start: start, End: l.curPos()}
}

func (l *Lexer) make(kind token.Kind, lexeme string, start span.Position) token.Token {
	return token.Token{Kind: kind, Lexeme: lexeme, Span: l.makeSpan(start)}
}

// skipTrivia skips whitespace, newlines and line comments.
func (l *Lexer) skipTrivia() {
	for l.pos < len(l.source) {
		switch ch := l.source[l.pos]; {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			l.advance()
		case ch == '/' && l.peekNext() == '/':
			for l.pos < len(l.source) && l.source[l.pos] != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *Lexer) addError(code string, s span.Span, msg string) {
	l.diags = append(l.diags, diag.Errorf(code, s, "%s", msg))
}

// ---- token reading ----

func (l *Lexer) nextToken() token.Token {
	l.skipTrivia()

	if l.pos >= len(l.source) {
		return token.Token{Kind: token.EOF, Lexeme: "", Span: l.makeSpan(l.curPos())}
	}

	start := l.curPos()
	ch := l.peek()

	switch {
	case ch == '"':
		return l.readString(start)
	case isDigit(ch):
		return l.readNumber(start)
	case isIdentStart(ch):
		return l.readIdentifier(start)
	}

	return l.readOperator(start)
}

// readString reads a double-quoted string literal. Strings may span lines.
func (l *Lexer) readString(start span.Position) token.Token {
	l.advance() // skip opening "
	var value []byte

	for l.pos < len(l.source) {
		ch := l.peek()
		if ch == '"' {
			l.advance()
			return l.make(token.STRING, string(value), start)
		}
		if ch == '\\' {
			l.advance()
			esc := l.peek()
			switch esc {
			case 'n':
				value = append(value, '\n')
			case 't':
				value = append(value, '\t')
			case '\\':
				value = append(value, '\\')
			case '"':
				value = append(value, '"')
			default:
				l.addError("E1002", l.makeSpan(start), fmt.Sprintf("unknown escape sequence: \\%c", esc))
				value = append(value, esc)
			}
			if l.pos < len(l.source) {
				l.advance()
			}
			continue
		}
		value = append(value, ch)
		l.advance()
	}

	l.addError("E1001", l.makeSpan(start), "unterminated string literal")
	return l.make(token.STRING, string(value), start)
}

// readNumber reads an integer or decimal literal; both become NUMBER.
func (l *Lexer) readNumber(start span.Position) token.Token {
	numStart := l.pos

	for l.pos < len(l.source) && isDigit(l.peek()) {
		l.advance()
	}
	if l.peek() == '.' && isDigit(l.peekNext()) {
		l.advance() // skip '.'
		for l.pos < len(l.source) && isDigit(l.peek()) {
			l.advance()
		}
	}

	return l.make(token.NUMBER, l.source[numStart:l.pos], start)
}

// readIdentifier reads an identifier or keyword.
func (l *Lexer) readIdentifier(start span.Position) token.Token {
	identStart := l.pos
	for l.pos < len(l.source) && isIdentPart(l.peek()) {
		l.advance()
	}
	lexeme := l.source[identStart:l.pos]
	return l.make(token.LookupIdent(lexeme), lexeme, start)
}

// twoChar consumes next if it matches and returns the matching kind.
func (l *Lexer) twoChar(next byte, matched, single token.Kind) token.Kind {
	if l.peek() == next {
		l.advance()
		return matched
	}
	return single
}

// readOperator reads an operator or delimiter token.
func (l *Lexer) readOperator(start span.Position) token.Token {
	from := l.pos
	ch := l.advance()

	var kind token.Kind
	switch ch {
	case '(':
		kind = token.LPAREN
	case ')':
		kind = token.RPAREN
	case '{':
		kind = token.LBRACE
	case '}':
		kind = token.RBRACE
	case ',':
		kind = token.COMMA
	case '.':
		kind = token.DOT
	case ';':
		kind = token.SEMICOLON
	case '+':
		kind = token.PLUS
	case '-':
		kind = token.MINUS
	case '*':
		kind = token.STAR
	case '/':
		kind = token.SLASH
	case '@':
		kind = token.KW_SELF
	case '!':
		kind = l.twoChar('=', token.NEQ, token.BANG)
	case '=':
		kind = l.twoChar('=', token.EQ, token.ASSIGN)
	case '<':
		kind = l.twoChar('=', token.LTE, token.LT)
	case '>':
		kind = l.twoChar('=', token.GTE, token.GT)
	case '&':
		if l.peek() != '&' {
			l.addError("E1003", l.makeSpan(start), "unexpected character: '&', did you mean '&&'?")
			return l.make(token.ILLEGAL, "&", start)
		}
		l.advance()
		kind = token.AND
	case '|':
		if l.peek() != '|' {
			l.addError("E1003", l.makeSpan(start), "unexpected character: '|', did you mean '||'?")
			return l.make(token.ILLEGAL, "|", start)
		}
		l.advance()
		kind = token.OR
	default:
		r, size := utf8.DecodeRuneInString(l.source[from:])
		// the rest of a multi-byte character shares one column
		l.pos = from + size
		lexeme := l.source[from:l.pos]
		if r == utf8.RuneError && size == 1 {
			l.addError("E1003", l.makeSpan(start), fmt.Sprintf("invalid UTF-8 byte 0x%02x", ch))
		} else {
			l.addError("E1003", l.makeSpan(start), fmt.Sprintf("unexpected character: '%c'", r))
		}
		return l.make(token.ILLEGAL, lexeme, start)
	}

	return l.make(kind, l.source[from:l.pos], start)
}

// ---- character classification ----

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}
