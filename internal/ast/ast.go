// Package ast defines the abstract syntax tree for treelox.
//
// The tree is a closed set of node kinds. Each consumer (resolver, evaluator,
// JSON dump) dispatches with a type switch instead of a visitor interface.
package ast

import (
	"sync/atomic"

	"treelox/internal/span"
	"treelox/internal/token"
)

// ReceiverName is the implicit binding for the current instance inside methods.
const ReceiverName = "self"

// InitializerName is the method a class runs when it is called.
const InitializerName = "init"

// ============================================================
// Variable-use identity
// ============================================================

// RefID identifies one variable-use site. IDs are handed out once, at parse
// time, and never reused for the life of the process, so they survive node
// copies and can key the resolver's distance map across REPL inputs.
type RefID uint64

var lastRefID atomic.Uint64

// NextRefID returns a fresh, process-unique RefID.
func NextRefID() RefID {
	return RefID(lastRefID.Add(1))
}

// ============================================================
// Node interfaces
// ============================================================

// Node is the interface implemented by all AST nodes.
type Node interface {
	nodeNode()
	GetSpan() span.Span
}

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	exprNode()
}

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// ============================================================
// Base types
// ============================================================

// NodeBase provides the common Span field for all AST nodes.
type NodeBase struct {
	Span span.Span
}

func (n NodeBase) nodeNode()          {}
func (n NodeBase) GetSpan() span.Span { return n.Span }

// ExprBase is embedded by all expression nodes.
type ExprBase struct{ NodeBase }

func (ExprBase) exprNode() {}

// StmtBase is embedded by all statement nodes.
type StmtBase struct{ NodeBase }

func (StmtBase) stmtNode() {}

// File is the root of a parsed program.
type File struct {
	NodeBase
	Body []Stmt
}

// ============================================================
// Expressions
// ============================================================

// NumberLiteral represents a number literal.
type NumberLiteral struct {
	ExprBase
	Value float64
}

// StringLiteral represents a string literal.
type StringLiteral struct {
	ExprBase
	Value string
}

// BoolLiteral represents true or false.
type BoolLiteral struct {
	ExprBase
	Value bool
}

// NilLiteral represents nil.
type NilLiteral struct {
	ExprBase
}

// VariableExpr reads a named binding.
type VariableExpr struct {
	ExprBase
	Name string
	ID   RefID
}

// AssignExpr writes an existing named binding: name = value.
type AssignExpr struct {
	ExprBase
	Name  string
	ID    RefID
	Value Expr
}

// SelfExpr reads the receiver inside a method body.
type SelfExpr struct {
	ExprBase
	ID RefID
}

// UnaryExpr represents a unary operation: !x, -x.
type UnaryExpr struct {
	ExprBase
	Op      token.Kind
	Operand Expr
}

// BinaryExpr represents an arithmetic, comparison or equality operation.
type BinaryExpr struct {
	ExprBase
	Op    token.Kind
	Left  Expr
	Right Expr
}

// LogicalExpr represents a short-circuiting and/or.
type LogicalExpr struct {
	ExprBase
	Op    token.Kind // token.AND or token.OR
	Left  Expr
	Right Expr
}

// CallExpr represents a call: f(a, b).
type CallExpr struct {
	ExprBase
	Callee Expr
	Args   []Expr
}

// GetExpr represents property access: obj.name.
type GetExpr struct {
	ExprBase
	Object Expr
	Name   string
}

// SetExpr represents a property write: obj.name = value.
type SetExpr struct {
	ExprBase
	Object Expr
	Name   string
	Value  Expr
}

// ============================================================
// Statements
// ============================================================

// ExprStmt wraps an expression used as a statement.
type ExprStmt struct {
	StmtBase
	Expr Expr
}

// PrintStmt writes one formatted value to the output.
type PrintStmt struct {
	StmtBase
	Value Expr
}

// VarDeclStmt declares a variable: var x = expr;
type VarDeclStmt struct {
	StmtBase
	Name string
	Init Expr // may be nil; the variable starts as nil
}

// BlockStmt represents a block of statements: { ... }.
type BlockStmt struct {
	StmtBase
	Stmts []Stmt
}

// IfStmt represents an if/else chain. Else is nil, a *BlockStmt or an *IfStmt.
type IfStmt struct {
	StmtBase
	Condition Expr
	Then      *BlockStmt
	Else      Stmt
}

// WhileStmt represents a while loop.
type WhileStmt struct {
	StmtBase
	Condition Expr
	Body      *BlockStmt
}

// ReturnStmt represents a return statement.
type ReturnStmt struct {
	StmtBase
	Value Expr // may be nil
}

// FuncDecl declares a named function, or a method when it appears in a class.
// Body statements run directly in the call frame that holds the parameters.
type FuncDecl struct {
	StmtBase
	Name   string
	Params []string
	Body   *BlockStmt
}

// ClassDecl declares a class and its methods.
type ClassDecl struct {
	StmtBase
	Name    string
	Methods []*FuncDecl
}
