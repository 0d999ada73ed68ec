// Package parser implements the syntax analysis for treelox.
// It uses Pratt parsing for expressions and recursive descent for statements/declarations.
//
// Every variable-use site the parser builds (reads, assignment targets and the
// receiver keyword) is stamped with a fresh ast.RefID.
package parser

import (
	"fmt"
	"strconv"

	"treelox/internal/ast"
	"treelox/internal/diag"
	"treelox/internal/span"
	"treelox/internal/token"
)

// ============================================================
// Binding power (precedence) levels
// ============================================================

const (
	bpNone       = 0
	bpOr         = 10 // or ||
	bpAnd        = 20 // and &&
	bpEquality   = 30 // == !=
	bpComparison = 40 // < <= > >=
	bpAdditive   = 50 // + -
	bpMultiply   = 60 // * /
	bpPrefix     = 70 // ! -
	bpPostfix    = 80 // () .
)

// infixBP returns the left binding power for an infix/postfix operator.
func infixBP(kind token.Kind) int {
	switch kind {
	case token.OR:
		return bpOr
	case token.AND:
		return bpAnd
	case token.EQ, token.NEQ:
		return bpEquality
	case token.LT, token.LTE, token.GT, token.GTE:
		return bpComparison
	case token.PLUS, token.MINUS:
		return bpAdditive
	case token.STAR, token.SLASH:
		return bpMultiply
	case token.LPAREN, token.DOT:
		return bpPostfix
	default:
		return bpNone
	}
}

// ============================================================
// Parser
// ============================================================

// Parser performs syntax analysis on a stream of tokens.
type Parser struct {
	tokens []token.Token
	pos    int
	diags  []diag.Diagnostic
}

// New creates a new parser from a token slice.
func New(tokens []token.Token) *Parser {
	return &Parser{tokens: tokens, pos: 0}
}

// ParseFile parses the entire program and returns the AST root and diagnostics.
// Statements that failed to parse are dropped from the tree.
func (p *Parser) ParseFile() (*ast.File, []diag.Diagnostic) {
	file := &ast.File{}
	startPos := p.peek().Span.Start

	for !p.isAtEnd() {
		before := p.pos
		if stmt := p.declaration(); stmt != nil {
			file.Body = append(file.Body, stmt)
		}
		if p.pos == before {
			p.advance()
		}
	}

	file.Span = span.Span{Start: startPos, End: p.peek().Span.End}
	return file, p.diags
}

// ---- navigation helpers ----

func (p *Parser) peek() token.Token {
	if p.pos >= len(p.tokens) {
		return token.Token{Kind: token.EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekKind() token.Kind {
	return p.peek().Kind
}

func (p *Parser) advance() token.Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) check(kind token.Kind) bool {
	return p.peekKind() == kind
}

func (p *Parser) match(kinds ...token.Kind) bool {
	for _, k := range kinds {
		if p.check(k) {
			return true
		}
	}
	return false
}

func (p *Parser) expect(kind token.Kind) (token.Token, bool) {
	if p.check(kind) {
		return p.advance(), true
	}
	tok := p.peek()
	p.error("E2001", tok.Span, fmt.Sprintf("expected '%s', got '%s'", kind, tok.Kind))
	return tok, false
}

func (p *Parser) isAtEnd() bool {
	return p.peekKind() == token.EOF
}

func (p *Parser) error(code string, s span.Span, msg string) {
	p.diags = append(p.diags, diag.Errorf(code, s, "%s", msg))
}

// ============================================================
// Error recovery
// ============================================================

// synchronize skips tokens until a likely statement boundary.
func (p *Parser) synchronize() {
	for !p.isAtEnd() {
		if p.check(token.SEMICOLON) {
			p.advance()
			return
		}
		if p.check(token.RBRACE) {
			return
		}
		if p.match(token.KW_CLASS, token.KW_FN, token.KW_VAR, token.KW_FOR, token.KW_IF,
			token.KW_WHILE, token.KW_PRINT, token.KW_RETURN) {
			return
		}
		p.advance()
	}
}

// declaration parses one declaration in panic mode: if anything inside it
// reported an error, the partial node is discarded and the parser resyncs.
func (p *Parser) declaration() ast.Stmt {
	before := len(p.diags)
	stmt := p.parseDecl()
	if len(p.diags) > before {
		p.synchronize()
		return nil
	}
	return stmt
}

// ============================================================
// Declaration parsing
// ============================================================

func (p *Parser) parseDecl() ast.Stmt {
	switch p.peekKind() {
	case token.KW_CLASS:
		return p.parseClassDecl()
	case token.KW_FN:
		start := p.advance() // consume 'fn'
		return p.parseFunction(start.Span.Start)
	case token.KW_VAR:
		return p.parseVarDecl()
	default:
		return p.parseStmt()
	}
}

// parseClassDecl parses: class IDENT { method* }
func (p *Parser) parseClassDecl() *ast.ClassDecl {
	start := p.advance() // consume 'class'
	decl := &ast.ClassDecl{}

	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		return decl
	}
	decl.Name = nameTok.Lexeme

	if _, ok := p.expect(token.LBRACE); !ok {
		return decl
	}

	for !p.check(token.RBRACE) && !p.isAtEnd() {
		methodStart := p.peek().Span.Start
		if p.check(token.KW_FN) {
			p.advance()
		}
		if !p.check(token.IDENT) {
			tok := p.peek()
			p.error("E2003", tok.Span, fmt.Sprintf("expected method declaration, got '%s'", tok.Kind))
			return decl
		}
		decl.Methods = append(decl.Methods, p.parseFunction(methodStart))
	}

	p.expect(token.RBRACE)
	decl.Span = p.makeSpan(start.Span.Start)
	return decl
}

// parseFunction parses: IDENT ( params ) block. The 'fn' keyword, if any,
// has already been consumed.
func (p *Parser) parseFunction(start span.Position) *ast.FuncDecl {
	decl := &ast.FuncDecl{}

	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		return decl
	}
	decl.Name = nameTok.Lexeme
	decl.Params = p.parseParamList()
	decl.Body = p.parseBlock()
	decl.Span = p.makeSpan(start)
	return decl
}

// parseParamList parses: ( ident, ident, ... )
func (p *Parser) parseParamList() []string {
	var params []string

	if _, ok := p.expect(token.LPAREN); !ok {
		return params
	}

	if !p.check(token.RPAREN) {
		for {
			nameTok, ok := p.expect(token.IDENT)
			if !ok {
				return params
			}
			params = append(params, nameTok.Lexeme)
			if !p.check(token.COMMA) {
				break
			}
			p.advance() // consume ','
		}
	}

	p.expect(token.RPAREN)
	return params
}

// parseVarDecl parses: var IDENT [ = expr ] ;
func (p *Parser) parseVarDecl() *ast.VarDeclStmt {
	start := p.advance() // consume 'var'
	stmt := &ast.VarDeclStmt{}

	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		return stmt
	}
	stmt.Name = nameTok.Lexeme

	if p.check(token.ASSIGN) {
		p.advance()
		stmt.Init = p.parseExpr()
	}

	p.expect(token.SEMICOLON)
	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt
}

// ============================================================
// Statement parsing
// ============================================================

func (p *Parser) parseStmt() ast.Stmt {
	switch p.peekKind() {
	case token.KW_PRINT:
		return p.parsePrintStmt()
	case token.KW_RETURN:
		return p.parseReturnStmt()
	case token.KW_IF:
		return p.parseIfStmt()
	case token.KW_WHILE:
		return p.parseWhileStmt()
	case token.KW_FOR:
		return p.parseForStmt()
	case token.LBRACE:
		return p.parseBlock()
	default:
		return p.parseExprStmt()
	}
}

// parsePrintStmt parses: print expr ;
func (p *Parser) parsePrintStmt() *ast.PrintStmt {
	start := p.advance() // consume 'print'
	stmt := &ast.PrintStmt{Value: p.parseExpr()}
	p.expect(token.SEMICOLON)
	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt
}

// parseReturnStmt parses: return [expr] ;
func (p *Parser) parseReturnStmt() *ast.ReturnStmt {
	start := p.advance() // consume 'return'
	stmt := &ast.ReturnStmt{}

	if !p.check(token.SEMICOLON) {
		stmt.Value = p.parseExpr()
	}

	p.expect(token.SEMICOLON)
	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt
}

// parseIfStmt parses: if expr block [ else ( if ... | block ) ]
func (p *Parser) parseIfStmt() *ast.IfStmt {
	start := p.advance() // consume 'if'
	stmt := &ast.IfStmt{}

	stmt.Condition = p.parseExpr()
	stmt.Then = p.parseBlock()

	if p.check(token.KW_ELSE) {
		p.advance() // consume 'else'
		if p.check(token.KW_IF) {
			stmt.Else = p.parseIfStmt()
		} else {
			stmt.Else = p.parseBlock()
		}
	}

	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt
}

// parseWhileStmt parses: while expr block
func (p *Parser) parseWhileStmt() *ast.WhileStmt {
	start := p.advance() // consume 'while'
	stmt := &ast.WhileStmt{}
	stmt.Condition = p.parseExpr()
	stmt.Body = p.parseBlock()
	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt
}

// parseForStmt parses: for ( [init] ; [cond] ; [update] ) block
// and desugars it to { init; while cond { body; update; } }.
func (p *Parser) parseForStmt() ast.Stmt {
	start := p.advance() // consume 'for'

	if _, ok := p.expect(token.LPAREN); !ok {
		return nil
	}

	var init ast.Stmt
	switch {
	case p.check(token.SEMICOLON):
		p.advance()
	case p.check(token.KW_VAR):
		init = p.parseVarDecl()
	default:
		init = p.parseExprStmt()
	}

	var cond ast.Expr
	if !p.check(token.SEMICOLON) {
		cond = p.parseExpr()
	}
	p.expect(token.SEMICOLON)

	var update ast.Expr
	if !p.check(token.RPAREN) {
		update = p.parseExpr()
	}
	p.expect(token.RPAREN)

	body := p.parseBlock()
	whole := p.makeSpan(start.Span.Start)

	if cond == nil {
		cond = &ast.BoolLiteral{ExprBase: makeExprBase(whole.Start, whole.Start), Value: true}
	}

	loopBody := &ast.BlockStmt{StmtBase: ast.StmtBase{NodeBase: ast.NodeBase{Span: body.Span}}}
	loopBody.Stmts = append(loopBody.Stmts, body)
	if update != nil {
		loopBody.Stmts = append(loopBody.Stmts, &ast.ExprStmt{
			StmtBase: ast.StmtBase{NodeBase: ast.NodeBase{Span: update.GetSpan()}},
			Expr:     update,
		})
	}

	loop := &ast.WhileStmt{
		StmtBase:  ast.StmtBase{NodeBase: ast.NodeBase{Span: whole}},
		Condition: cond,
		Body:      loopBody,
	}

	outer := &ast.BlockStmt{StmtBase: ast.StmtBase{NodeBase: ast.NodeBase{Span: whole}}}
	if init != nil {
		outer.Stmts = append(outer.Stmts, init)
	}
	outer.Stmts = append(outer.Stmts, loop)
	return outer
}

// parseExprStmt parses: expr ;
func (p *Parser) parseExprStmt() *ast.ExprStmt {
	start := p.peek()
	stmt := &ast.ExprStmt{Expr: p.parseExpr()}
	p.expect(token.SEMICOLON)
	stmt.Span = p.makeSpan(start.Span.Start)
	return stmt
}

// parseBlock parses: { decl* }
func (p *Parser) parseBlock() *ast.BlockStmt {
	start := p.peek()
	block := &ast.BlockStmt{}

	if _, ok := p.expect(token.LBRACE); !ok {
		block.Span = p.makeSpan(start.Span.Start)
		return block
	}

	for !p.check(token.RBRACE) && !p.isAtEnd() {
		before := p.pos
		if stmt := p.declaration(); stmt != nil {
			block.Stmts = append(block.Stmts, stmt)
		}
		if p.pos == before {
			p.advance()
		}
	}

	p.expect(token.RBRACE)
	block.Span = p.makeSpan(start.Span.Start)
	return block
}

// ============================================================
// Expression parsing (Pratt / precedence climbing)
// ============================================================

// parseExpr parses a full expression including right-associative assignment.
func (p *Parser) parseExpr() ast.Expr {
	left := p.parseBinary(bpNone)
	if left == nil || !p.check(token.ASSIGN) {
		return left
	}

	eq := p.advance() // consume '='
	value := p.parseExpr()
	if value == nil {
		return nil
	}
	whole := makeExprBase(left.GetSpan().Start, value.GetSpan().End)

	switch target := left.(type) {
	case *ast.VariableExpr:
		return &ast.AssignExpr{ExprBase: whole, Name: target.Name, ID: ast.NextRefID(), Value: value}
	case *ast.GetExpr:
		return &ast.SetExpr{ExprBase: whole, Object: target.Object, Name: target.Name, Value: value}
	default:
		p.error("E2004", eq.Span, "invalid assignment target")
		return nil
	}
}

// parseBinary parses an expression with the given minimum binding power.
func (p *Parser) parseBinary(minBP int) ast.Expr {
	left := p.nud()
	for left != nil {
		bp := infixBP(p.peekKind())
		if bp <= minBP {
			break
		}
		left = p.led(left)
	}
	return left
}

// nud handles prefix (null denotation) parsing.
func (p *Parser) nud() ast.Expr {
	tok := p.peek()
	base := makeExprBase(tok.Span.Start, tok.Span.End)

	switch tok.Kind {
	case token.NUMBER:
		p.advance()
		val, err := strconv.ParseFloat(tok.Lexeme, 64)
		if err != nil {
			p.error("E2005", tok.Span, fmt.Sprintf("invalid number literal '%s'", tok.Lexeme))
			return nil
		}
		return &ast.NumberLiteral{ExprBase: base, Value: val}

	case token.STRING:
		p.advance()
		return &ast.StringLiteral{ExprBase: base, Value: tok.Lexeme}

	case token.KW_TRUE, token.KW_FALSE:
		p.advance()
		return &ast.BoolLiteral{ExprBase: base, Value: tok.Kind == token.KW_TRUE}

	case token.KW_NIL:
		p.advance()
		return &ast.NilLiteral{ExprBase: base}

	case token.KW_SELF:
		p.advance()
		return &ast.SelfExpr{ExprBase: base, ID: ast.NextRefID()}

	case token.IDENT:
		p.advance()
		return &ast.VariableExpr{ExprBase: base, Name: tok.Lexeme, ID: ast.NextRefID()}

	case token.LPAREN:
		p.advance() // consume '('
		expr := p.parseExpr()
		if expr == nil {
			return nil
		}
		if _, ok := p.expect(token.RPAREN); !ok {
			return nil
		}
		return expr

	case token.BANG, token.MINUS:
		p.advance()
		operand := p.parseBinary(bpPrefix)
		if operand == nil {
			return nil
		}
		return &ast.UnaryExpr{
			ExprBase: makeExprBase(tok.Span.Start, operand.GetSpan().End),
			Op:       tok.Kind,
			Operand:  operand,
		}

	default:
		p.error("E2002", tok.Span, fmt.Sprintf("expected expression, got '%s'", tok.Kind))
		return nil
	}
}

// led handles infix/postfix (left denotation) parsing.
func (p *Parser) led(left ast.Expr) ast.Expr {
	tok := p.peek()

	switch tok.Kind {
	case token.AND, token.OR:
		p.advance()
		right := p.parseBinary(infixBP(tok.Kind))
		if right == nil {
			return nil
		}
		return &ast.LogicalExpr{
			ExprBase: makeExprBase(left.GetSpan().Start, right.GetSpan().End),
			Op:       tok.Kind,
			Left:     left,
			Right:    right,
		}

	case token.PLUS, token.MINUS, token.STAR, token.SLASH,
		token.EQ, token.NEQ, token.LT, token.LTE, token.GT, token.GTE:
		p.advance()
		right := p.parseBinary(infixBP(tok.Kind))
		if right == nil {
			return nil
		}
		return &ast.BinaryExpr{
			ExprBase: makeExprBase(left.GetSpan().Start, right.GetSpan().End),
			Op:       tok.Kind,
			Left:     left,
			Right:    right,
		}

	case token.LPAREN:
		return p.parseCallExpr(left)

	case token.DOT:
		p.advance() // consume '.'
		nameTok, ok := p.expect(token.IDENT)
		if !ok {
			return nil
		}
		return &ast.GetExpr{
			ExprBase: makeExprBase(left.GetSpan().Start, nameTok.Span.End),
			Object:   left,
			Name:     nameTok.Lexeme,
		}

	default:
		return left
	}
}

// parseCallExpr parses: callee ( args )
func (p *Parser) parseCallExpr(callee ast.Expr) ast.Expr {
	p.advance() // consume '('
	var args []ast.Expr

	if !p.check(token.RPAREN) {
		for {
			arg := p.parseExpr()
			if arg == nil {
				return nil
			}
			args = append(args, arg)
			if !p.check(token.COMMA) {
				break
			}
			p.advance() // consume ','
		}
	}
	end, ok := p.expect(token.RPAREN)
	if !ok {
		return nil
	}

	return &ast.CallExpr{
		ExprBase: makeExprBase(callee.GetSpan().Start, end.Span.End),
		Callee:   callee,
		Args:     args,
	}
}

// ============================================================
// Span helpers
// ============================================================

func (p *Parser) prevEnd() span.Position {
	if p.pos > 0 && p.pos-1 < len(p.tokens) {
		return p.tokens[p.pos-1].Span.End
	}
	return p.peek().Span.Start
}

func (p *Parser) makeSpan(start span.Position) span.Span {
	return span.Span{Start: start, End: p.prevEnd()}
}

func makeExprBase(start, end span.Position) ast.ExprBase {
	return ast.ExprBase{NodeBase: ast.NodeBase{Span: span.Span{Start: start, End: end}}}
}
