// Package resolver performs static scope analysis over a parsed program.
//
// It walks the tree once and records, for every variable-use site inside a
// local scope, how many environment hops separate the use from the frame that
// declares the name. Uses that match no local scope are left out of the map
// and looked up as globals at run time.
//
// Scopes are pushed at exactly the boundaries where the interpreter creates an
// environment:
//
//	block              one scope
//	function call      one scope holding the parameters and the body's declarations
//	method call        a receiver scope holding self, then the parameter scope
package resolver

import (
	"fmt"

	"treelox/internal/ast"
	"treelox/internal/span"
)

// Distances maps a variable-use site to its hop count.
type Distances map[ast.RefID]int

// FunctionType tracks what kind of function body is being resolved.
type FunctionType int

const (
	FunctionNone FunctionType = iota
	FunctionPlain
	FunctionMethod
)

// ClassType tracks whether resolution is inside a class body.
type ClassType int

const (
	ClassNone ClassType = iota
	ClassPlain
)

// Resolver holds the state for one resolution pass.
type Resolver struct {
	scopes          Stack[map[string]bool]
	distances       Distances
	errs            []*SemanticError
	currentFunction FunctionType
	currentClass    ClassType
	initializing    string // global whose initializer is being resolved
}

// Resolve analyzes stmts and returns the distance map together with every
// semantic error found. The statements are not modified, so resolving the
// same tree twice yields the same map.
func Resolve(stmts []ast.Stmt) (Distances, []*SemanticError) {
	r := &Resolver{
		scopes:    make(Stack[map[string]bool], 0),
		distances: make(Distances),
	}
	r.resolveStmts(stmts)
	return r.distances, r.errs
}

// ---- scope management ----

func (r *Resolver) beginScope() {
	r.scopes.Push(make(map[string]bool))
}

func (r *Resolver) endScope() {
	r.scopes.Pop()
}

func (r *Resolver) declare(name string, s span.Span) {
	if r.scopes.Empty() {
		return
	}
	scope := r.scopes.Peek()
	if _, ok := scope[name]; ok {
		r.report(DuplicateDeclaration, name, s)
		return
	}
	scope[name] = false
}

func (r *Resolver) define(name string) {
	if r.scopes.Empty() {
		return
	}
	r.scopes.Peek()[name] = true
}

func (r *Resolver) report(kind ErrorKind, name string, s span.Span) {
	r.errs = append(r.errs, &SemanticError{Kind: kind, Name: name, Span: s})
}

// resolveLocal records the hop count for the innermost scope declaring name
// and reports whether one was found.
func (r *Resolver) resolveLocal(id ast.RefID, name string, s span.Span, isRead bool) bool {
	innermost := len(r.scopes) - 1
	for i := innermost; i >= 0; i-- {
		initialized, ok := r.scopes[i][name]
		if !ok {
			continue
		}
		if isRead && i == innermost && !initialized {
			r.report(RecursiveVariableDeclaration, name, s)
		}
		r.distances[id] = innermost - i
		return true
	}
	return false
}

// ============================================================
// Statements
// ============================================================

func (r *Resolver) resolveStmts(stmts []ast.Stmt) {
	for _, stmt := range stmts {
		r.resolveStmt(stmt)
	}
}

func (r *Resolver) resolveStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		r.resolveExpr(s.Expr)
	case *ast.PrintStmt:
		r.resolveExpr(s.Value)
	case *ast.VarDeclStmt:
		r.declare(s.Name, s.Span)
		if s.Init != nil {
			r.resolveInitializer(s)
		}
		r.define(s.Name)
	case *ast.BlockStmt:
		r.resolveBlock(s)
	case *ast.IfStmt:
		r.resolveExpr(s.Condition)
		r.resolveBlock(s.Then)
		if s.Else != nil {
			r.resolveStmt(s.Else)
		}
	case *ast.WhileStmt:
		r.resolveExpr(s.Condition)
		r.resolveBlock(s.Body)
	case *ast.ReturnStmt:
		if r.currentFunction == FunctionNone {
			r.report(ReturnFromNonFunction, "", s.Span)
		}
		if s.Value != nil {
			r.resolveExpr(s.Value)
		}
	case *ast.FuncDecl:
		r.declare(s.Name, s.Span)
		r.define(s.Name)
		r.resolveFunction(s, FunctionPlain)
	case *ast.ClassDecl:
		r.resolveClass(s)
	default:
		panic(fmt.Sprintf("resolver: unhandled statement %T", stmt))
	}
}

// resolveInitializer resolves a variable's initializer. At global scope the
// name is not tracked in any scope, so a read of it is caught by name.
func (r *Resolver) resolveInitializer(decl *ast.VarDeclStmt) {
	if !r.scopes.Empty() {
		r.resolveExpr(decl.Init)
		return
	}
	enclosing := r.initializing
	r.initializing = decl.Name
	defer func() { r.initializing = enclosing }()
	r.resolveExpr(decl.Init)
}

func (r *Resolver) resolveBlock(block *ast.BlockStmt) {
	r.beginScope()
	defer r.endScope()
	r.resolveStmts(block.Stmts)
}

// resolveFunction resolves parameters and body in a single scope, mirroring
// the single call frame the interpreter creates.
func (r *Resolver) resolveFunction(fn *ast.FuncDecl, kind FunctionType) {
	enclosing := r.currentFunction
	r.currentFunction = kind
	defer func() { r.currentFunction = enclosing }()

	r.beginScope()
	defer r.endScope()

	for _, param := range fn.Params {
		r.declare(param, fn.Span)
		r.define(param)
	}
	r.resolveStmts(fn.Body.Stmts)
}

func (r *Resolver) resolveClass(decl *ast.ClassDecl) {
	enclosing := r.currentClass
	r.currentClass = ClassPlain
	defer func() { r.currentClass = enclosing }()

	r.declare(decl.Name, decl.Span)
	r.define(decl.Name)

	for _, method := range decl.Methods {
		// receiver frame created by binding
		r.beginScope()
		r.scopes.Peek()[ast.ReceiverName] = true
		r.resolveFunction(method, FunctionMethod)
		r.endScope()
	}
}

// ============================================================
// Expressions
// ============================================================

func (r *Resolver) resolveExpr(expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.NumberLiteral, *ast.StringLiteral, *ast.BoolLiteral, *ast.NilLiteral:
		// nothing to resolve
	case *ast.VariableExpr:
		if !r.resolveLocal(e.ID, e.Name, e.Span, true) && r.scopes.Empty() && e.Name == r.initializing {
			r.report(RecursiveVariableDeclaration, e.Name, e.Span)
		}
	case *ast.AssignExpr:
		r.resolveExpr(e.Value)
		r.resolveLocal(e.ID, e.Name, e.Span, false)
	case *ast.SelfExpr:
		if r.currentClass == ClassNone {
			r.report(UseOfReceiverOutsideMethod, ast.ReceiverName, e.Span)
			return
		}
		r.resolveLocal(e.ID, ast.ReceiverName, e.Span, true)
	case *ast.UnaryExpr:
		r.resolveExpr(e.Operand)
	case *ast.BinaryExpr:
		r.resolveExpr(e.Left)
		r.resolveExpr(e.Right)
	case *ast.LogicalExpr:
		r.resolveExpr(e.Left)
		r.resolveExpr(e.Right)
	case *ast.CallExpr:
		r.resolveExpr(e.Callee)
		for _, arg := range e.Args {
			r.resolveExpr(arg)
		}
	case *ast.GetExpr:
		r.resolveExpr(e.Object)
	case *ast.SetExpr:
		r.resolveExpr(e.Value)
		r.resolveExpr(e.Object)
	default:
		panic(fmt.Sprintf("resolver: unhandled expression %T", expr))
	}
}
