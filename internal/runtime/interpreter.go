package runtime

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"treelox/internal/ast"
	"treelox/internal/resolver"
	"treelox/internal/span"
	"treelox/internal/token"
)

// ============================================================
// Control flow signals
// ============================================================

// ExecSignal represents a control flow signal from statement execution.
type ExecSignal int

const (
	SigNone   ExecSignal = iota
	SigReturn            // return from function
)

// ExecResult carries a control flow signal and an optional value (for return).
type ExecResult struct {
	Signal ExecSignal
	Value  Value
}

var resultNone = ExecResult{Signal: SigNone}

// ============================================================
// Interpreter
// ============================================================

// Interpreter walks the AST and executes it.
//
// Environments are created at exactly the boundaries the resolver opens
// scopes: one per block (including each loop iteration), one per call
// holding the parameters, and one receiver frame per bound method.
type Interpreter struct {
	globals   *Environment
	env       *Environment
	distances resolver.Distances
	output    io.Writer
	logger    *slog.Logger
	start     time.Time
	callDepth int
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithLogger sets the logger used for debug tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Interpreter) { i.logger = logger }
}

// WithStartTime sets the instant clock() measures from.
func WithStartTime(start time.Time) Option {
	return func(i *Interpreter) { i.start = start }
}

// NewInterpreter creates a new interpreter that prints to output.
func NewInterpreter(output io.Writer, opts ...Option) *Interpreter {
	i := &Interpreter{
		distances: make(resolver.Distances),
		output:    output,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		start:     time.Now(),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.globals = NewEnvironment(nil)
	i.env = i.globals
	if err := RegisterBuiltins(i.globals, i.start); err != nil {
		// the globals frame is fresh, so a clash means the native table repeats a name
		panic(err)
	}
	return i
}

// Globals returns the global environment (useful for REPL).
func (i *Interpreter) Globals() *Environment {
	return i.globals
}

// Load merges resolver output. RefIDs are process-unique, so distances
// from earlier inputs stay valid.
func (i *Interpreter) Load(distances resolver.Distances) {
	for id, d := range distances {
		i.distances[id] = d
	}
}

// Run resolves the file and executes it, stopping at the first runtime
// error. Semantic errors are returned as resolver.Errors and nothing runs.
func (i *Interpreter) Run(file *ast.File) error {
	distances, errs := resolver.Resolve(file.Body)
	if len(errs) > 0 {
		return resolver.Errors(errs)
	}
	i.logger.Debug("resolved",
		slog.Int("statements", len(file.Body)),
		slog.Int("locals", len(distances)))
	i.Load(distances)

	for _, stmt := range file.Body {
		if _, err := i.Interpret(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Interpret executes one top-level statement. The Value is non-nil only
// when a return fired.
func (i *Interpreter) Interpret(stmt ast.Stmt) (Value, error) {
	result, err := i.execStmt(stmt)
	if err != nil {
		return nil, err
	}
	if result.Signal == SigReturn {
		return result.Value, nil
	}
	return nil, nil
}

// ============================================================
// Statement execution
// ============================================================

func (i *Interpreter) execStmt(stmt ast.Stmt) (ExecResult, error) {
	switch s := stmt.(type) {
	case *ast.ExprStmt:
		_, err := i.evalExpr(s.Expr)
		return resultNone, err

	case *ast.PrintStmt:
		val, err := i.evalExpr(s.Value)
		if err != nil {
			return resultNone, err
		}
		fmt.Fprintln(i.output, val.String())
		return resultNone, nil

	case *ast.VarDeclStmt:
		return i.execVarDecl(s)

	case *ast.ReturnStmt:
		var val Value = NilVal{}
		if s.Value != nil {
			v, err := i.evalExpr(s.Value)
			if err != nil {
				return resultNone, err
			}
			val = v
		}
		return ExecResult{Signal: SigReturn, Value: val}, nil

	case *ast.IfStmt:
		return i.execIf(s)

	case *ast.WhileStmt:
		return i.execWhile(s)

	case *ast.BlockStmt:
		return i.execStmts(s.Stmts, NewEnvironment(i.env))

	case *ast.FuncDecl:
		fn := NewFunction(s, i.env)
		if err := i.env.Define(s.Name, fn); err != nil {
			return resultNone, withSpan(err, s.GetSpan())
		}
		return resultNone, nil

	case *ast.ClassDecl:
		return i.execClassDecl(s)

	default:
		return resultNone, runtimeErr(stmt.GetSpan(), ErrInternal, "unhandled statement type: %T", stmt)
	}
}

func (i *Interpreter) execVarDecl(s *ast.VarDeclStmt) (ExecResult, error) {
	var val Value = NilVal{}
	if s.Init != nil {
		v, err := i.evalExpr(s.Init)
		if err != nil {
			return resultNone, err
		}
		val = v
	}
	if err := i.env.Define(s.Name, val); err != nil {
		return resultNone, withSpan(err, s.GetSpan())
	}
	return resultNone, nil
}

// execIf runs the chosen branch. An else-if recurses without a scope of its
// own; only the blocks open one.
func (i *Interpreter) execIf(s *ast.IfStmt) (ExecResult, error) {
	cond, err := i.evalExpr(s.Condition)
	if err != nil {
		return resultNone, err
	}
	if IsTruthy(cond) {
		return i.execStmt(s.Then)
	}
	if s.Else != nil {
		return i.execStmt(s.Else)
	}
	return resultNone, nil
}

func (i *Interpreter) execWhile(s *ast.WhileStmt) (ExecResult, error) {
	for {
		cond, err := i.evalExpr(s.Condition)
		if err != nil {
			return resultNone, err
		}
		if !IsTruthy(cond) {
			break
		}

		result, err := i.execStmt(s.Body)
		if err != nil {
			return resultNone, err
		}
		if result.Signal == SigReturn {
			return result, nil // propagate return
		}
	}
	return resultNone, nil
}

// execStmts runs stmts with env as the current environment and restores
// the previous one on the way out.
func (i *Interpreter) execStmts(stmts []ast.Stmt, env *Environment) (ExecResult, error) {
	prevEnv := i.env
	i.env = env
	defer func() { i.env = prevEnv }()

	for _, stmt := range stmts {
		result, err := i.execStmt(stmt)
		if err != nil {
			return resultNone, err
		}
		if result.Signal != SigNone {
			return result, nil // propagate signal
		}
	}
	return resultNone, nil
}

func (i *Interpreter) execClassDecl(s *ast.ClassDecl) (ExecResult, error) {
	methods := make(map[string]*Function, len(s.Methods))
	for _, m := range s.Methods {
		methods[m.Name] = NewMethod(m, i.env)
	}
	if err := i.env.Define(s.Name, NewClass(s.Name, methods)); err != nil {
		return resultNone, withSpan(err, s.GetSpan())
	}
	return resultNone, nil
}

// ============================================================
// Expression evaluation
// ============================================================

func (i *Interpreter) evalExpr(expr ast.Expr) (Value, error) {
	switch e := expr.(type) {
	case *ast.NumberLiteral:
		return NumberVal(e.Value), nil
	case *ast.StringLiteral:
		return StringVal(e.Value), nil
	case *ast.BoolLiteral:
		return BoolVal(e.Value), nil
	case *ast.NilLiteral:
		return NilVal{}, nil
	case *ast.VariableExpr:
		return i.lookupVariable(e.Name, e.ID, e.GetSpan())
	case *ast.SelfExpr:
		return i.lookupVariable(ast.ReceiverName, e.ID, e.GetSpan())
	case *ast.AssignExpr:
		return i.evalAssign(e)
	case *ast.UnaryExpr:
		return i.evalUnary(e)
	case *ast.BinaryExpr:
		return i.evalBinary(e)
	case *ast.LogicalExpr:
		return i.evalLogical(e)
	case *ast.CallExpr:
		return i.evalCall(e)
	case *ast.GetExpr:
		return i.evalGet(e)
	case *ast.SetExpr:
		return i.evalSet(e)
	default:
		return nil, runtimeErr(expr.GetSpan(), ErrInternal, "unhandled expression type: %T", expr)
	}
}

// lookupVariable reads a resolved local by distance, or a global by name.
func (i *Interpreter) lookupVariable(name string, id ast.RefID, s span.Span) (Value, error) {
	var (
		val Value
		err error
	)
	if distance, ok := i.distances[id]; ok {
		val, err = i.env.GetAt(name, distance)
	} else {
		val, err = i.globals.Get(name)
	}
	if err != nil {
		return nil, withSpan(err, s)
	}
	return val, nil
}

func (i *Interpreter) evalAssign(e *ast.AssignExpr) (Value, error) {
	val, err := i.evalExpr(e.Value)
	if err != nil {
		return nil, err
	}
	if distance, ok := i.distances[e.ID]; ok {
		err = i.env.AssignAt(e.Name, distance, val)
	} else {
		err = i.globals.Assign(e.Name, val)
	}
	if err != nil {
		return nil, withSpan(err, e.GetSpan())
	}
	return val, nil
}

func (i *Interpreter) evalUnary(e *ast.UnaryExpr) (Value, error) {
	operand, err := i.evalExpr(e.Operand)
	if err != nil {
		return nil, err
	}

	switch e.Op {
	case token.BANG:
		return BoolVal(!IsTruthy(operand)), nil
	case token.MINUS:
		if n, ok := operand.(NumberVal); ok {
			return -n, nil
		}
		return nil, runtimeErr(e.GetSpan(), ErrMismatchedType, "cannot negate value of type '%s'", operand.TypeName())
	default:
		return nil, runtimeErr(e.GetSpan(), ErrInternal, "unknown unary operator: %s", e.Op)
	}
}

func (i *Interpreter) evalBinary(e *ast.BinaryExpr) (Value, error) {
	left, err := i.evalExpr(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := i.evalExpr(e.Right)
	if err != nil {
		return nil, err
	}

	// Equality (works for all types)
	switch e.Op {
	case token.EQ:
		return BoolVal(ValuesEqual(left, right)), nil
	case token.NEQ:
		return BoolVal(!ValuesEqual(left, right)), nil
	}

	// String concatenation only when both sides are strings
	if e.Op == token.PLUS {
		ls, leftIsStr := left.(StringVal)
		rs, rightIsStr := right.(StringVal)
		if leftIsStr && rightIsStr {
			return ls + rs, nil
		}
	}

	l, leftOk := left.(NumberVal)
	r, rightOk := right.(NumberVal)
	if !leftOk || !rightOk {
		return nil, runtimeErr(e.GetSpan(), ErrMismatchedType,
			"cannot apply '%s' to '%s' and '%s'", e.Op, left.TypeName(), right.TypeName())
	}

	switch e.Op {
	case token.PLUS:
		return l + r, nil
	case token.MINUS:
		return l - r, nil
	case token.STAR:
		return l * r, nil
	case token.SLASH:
		return l / r, nil
	case token.LT:
		return BoolVal(l < r), nil
	case token.LTE:
		return BoolVal(l <= r), nil
	case token.GT:
		return BoolVal(l > r), nil
	case token.GTE:
		return BoolVal(l >= r), nil
	default:
		return nil, runtimeErr(e.GetSpan(), ErrInternal, "unknown binary operator: %s", e.Op)
	}
}

// evalLogical short-circuits and always yields a Bool.
func (i *Interpreter) evalLogical(e *ast.LogicalExpr) (Value, error) {
	left, err := i.evalExpr(e.Left)
	if err != nil {
		return nil, err
	}
	if e.Op == token.OR {
		if IsTruthy(left) {
			return BoolVal(true), nil // short-circuit
		}
	} else if !IsTruthy(left) {
		return BoolVal(false), nil // short-circuit
	}

	right, err := i.evalExpr(e.Right)
	if err != nil {
		return nil, err
	}
	return BoolVal(IsTruthy(right)), nil
}

// evalCall checks arity before evaluating any argument. Arguments are
// evaluated left to right in the caller's environment.
func (i *Interpreter) evalCall(e *ast.CallExpr) (Value, error) {
	callee, err := i.evalExpr(e.Callee)
	if err != nil {
		return nil, err
	}

	fn, ok := callee.(Callable)
	if !ok {
		return nil, runtimeErr(e.GetSpan(), ErrMismatchedType,
			"cannot call value of type '%s'", callee.TypeName())
	}
	if fn.Arity() != len(e.Args) {
		return nil, runtimeErr(e.GetSpan(), ErrWrongNumberOfArguments,
			"%s expects %d arguments, got %d", callee.String(), fn.Arity(), len(e.Args))
	}

	args := make([]Value, len(e.Args))
	for idx, argExpr := range e.Args {
		val, err := i.evalExpr(argExpr)
		if err != nil {
			return nil, err
		}
		args[idx] = val
	}

	i.callDepth++
	i.logger.Debug("call",
		slog.String("callee", callee.String()),
		slog.Int("argument-count", len(args)),
		slog.Int("depth", i.callDepth))
	result, err := fn.Call(i, args)
	i.callDepth--
	if err != nil {
		return nil, withSpan(err, e.GetSpan())
	}
	i.logger.Debug("return",
		slog.String("callee", callee.String()),
		slog.String("value", result.String()),
		slog.Int("depth", i.callDepth+1))
	return result, nil
}

func (i *Interpreter) evalGet(e *ast.GetExpr) (Value, error) {
	obj, err := i.evalExpr(e.Object)
	if err != nil {
		return nil, err
	}
	inst, ok := obj.(*Instance)
	if !ok {
		return nil, runtimeErr(e.GetSpan(), ErrNotForDotOperator,
			"cannot read property '%s' of value of type '%s'", e.Name, obj.TypeName())
	}
	val, err := inst.Get(e.Name)
	if err != nil {
		return nil, withSpan(err, e.GetSpan())
	}
	return val, nil
}

// evalSet overwrites the field and yields nil.
func (i *Interpreter) evalSet(e *ast.SetExpr) (Value, error) {
	obj, err := i.evalExpr(e.Object)
	if err != nil {
		return nil, err
	}
	inst, ok := obj.(*Instance)
	if !ok {
		return nil, runtimeErr(e.GetSpan(), ErrNotForDotOperator,
			"cannot set property '%s' on value of type '%s'", e.Name, obj.TypeName())
	}
	val, err := i.evalExpr(e.Value)
	if err != nil {
		return nil, err
	}
	inst.Set(e.Name, val)
	return NilVal{}, nil
}
