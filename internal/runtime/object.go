package runtime

import (
	"fmt"

	"treelox/internal/ast"
	"treelox/internal/span"
)

// Callable is implemented by every value that can appear before ( ).
type Callable interface {
	Value
	Arity() int
	Call(in *Interpreter, args []Value) (Value, error)
}

// ============================================================
// Functions
// ============================================================

// Function is a user-defined function or method together with its closure.
// A Function is never mutated after creation; Bind derives a new one.
type Function struct {
	Decl    *ast.FuncDecl
	Closure *Environment

	method bool // declared inside a class
	bound  bool // closure starts with a receiver frame
}

// NewFunction creates a plain function closed over env.
func NewFunction(decl *ast.FuncDecl, env *Environment) *Function {
	return &Function{Decl: decl, Closure: env}
}

// NewMethod creates an unbound method closed over env.
func NewMethod(decl *ast.FuncDecl, env *Environment) *Function {
	return &Function{Decl: decl, Closure: env, method: true}
}

func (f *Function) TypeName() string { return "function" }
func (f *Function) String() string   { return fmt.Sprintf("<fn %s>", f.Decl.Name) }

// Arity returns the number of declared parameters.
func (f *Function) Arity() int { return len(f.Decl.Params) }

// IsBound reports whether the function carries a receiver frame.
func (f *Function) IsBound() bool { return f.bound }

// Bind returns a copy of the method whose closure has one extra frame
// defining the receiver. f itself is left unchanged.
func (f *Function) Bind(inst *Instance) *Function {
	env := NewEnvironment(f.Closure)
	env.values[ast.ReceiverName] = inst
	return &Function{Decl: f.Decl, Closure: env, method: true, bound: true}
}

// Call runs the body in a single new frame holding the parameters.
func (f *Function) Call(in *Interpreter, args []Value) (Value, error) {
	if f.method && !f.bound {
		return nil, runtimeErr(span.Span{}, ErrUnboundMethod,
			"method '%s' called without a receiver", f.Decl.Name)
	}
	if len(args) != f.Arity() {
		return nil, runtimeErr(span.Span{}, ErrWrongNumberOfArguments,
			"%s() expects %d arguments, got %d", f.Decl.Name, f.Arity(), len(args))
	}

	frame := NewEnvironment(f.Closure)
	for idx, param := range f.Decl.Params {
		if err := frame.Define(param, args[idx]); err != nil {
			return nil, err
		}
	}

	result, err := in.execStmts(f.Decl.Body.Stmts, frame)
	if err != nil {
		return nil, err
	}
	if result.Signal == SigReturn {
		return result.Value, nil
	}
	return NilVal{}, nil
}

// NativeFunction is a function implemented in Go.
type NativeFunction struct {
	Name   string
	Params int
	Fn     func(args []Value) (Value, error)
}

func (n *NativeFunction) TypeName() string { return "native function" }
func (n *NativeFunction) String() string   { return fmt.Sprintf("<native fn %s>", n.Name) }
func (n *NativeFunction) Arity() int       { return n.Params }

func (n *NativeFunction) Call(_ *Interpreter, args []Value) (Value, error) {
	if len(args) != n.Params {
		return nil, runtimeErr(span.Span{}, ErrWrongNumberOfArguments,
			"%s() expects %d arguments, got %d", n.Name, n.Params, len(args))
	}
	return n.Fn(args)
}

// ============================================================
// Classes
// ============================================================

// Class holds a name and its method table. Methods are unbound and closed
// over the environment in effect at the class declaration.
type Class struct {
	Name    string
	Methods map[string]*Function
}

// NewClass creates a class from its method table.
func NewClass(name string, methods map[string]*Function) *Class {
	return &Class{Name: name, Methods: methods}
}

func (c *Class) TypeName() string { return "class" }
func (c *Class) String() string   { return fmt.Sprintf("<class %s>", c.Name) }

// FindMethod returns the unbound method with the given name.
func (c *Class) FindMethod(name string) (*Function, bool) {
	m, ok := c.Methods[name]
	return m, ok
}

// Arity is the initializer's arity, or zero without one.
func (c *Class) Arity() int {
	if init, ok := c.FindMethod(ast.InitializerName); ok {
		return init.Arity()
	}
	return 0
}

// Call constructs an instance and runs the initializer on it, if any.
// The result is always the new instance.
func (c *Class) Call(in *Interpreter, args []Value) (Value, error) {
	inst := NewInstance(c)
	if init, ok := c.FindMethod(ast.InitializerName); ok {
		if _, err := init.Bind(inst).Call(in, args); err != nil {
			return nil, err
		}
	} else if len(args) != 0 {
		return nil, runtimeErr(span.Span{}, ErrWrongNumberOfArguments,
			"%s() expects 0 arguments, got %d", c.Name, len(args))
	}
	return inst, nil
}

// ============================================================
// Instances
// ============================================================

// Instance is an object created by calling a class.
type Instance struct {
	Class  *Class
	fields map[string]Value
}

// NewInstance creates an instance with no fields.
func NewInstance(class *Class) *Instance {
	return &Instance{Class: class, fields: make(map[string]Value)}
}

func (inst *Instance) TypeName() string { return "instance" }
func (inst *Instance) String() string   { return fmt.Sprintf("<%s instance>", inst.Class.Name) }

// Get returns a field, or a method bound to inst. Fields shadow methods.
func (inst *Instance) Get(name string) (Value, error) {
	if val, ok := inst.fields[name]; ok {
		return val, nil
	}
	if method, ok := inst.Class.FindMethod(name); ok {
		return method.Bind(inst), nil
	}
	return nil, runtimeErr(span.Span{}, ErrNoFieldWithName,
		"'%s' instance has no field '%s'", inst.Class.Name, name)
}

// Set writes a field, replacing any previous value.
func (inst *Instance) Set(name string, value Value) {
	inst.fields[name] = value
}
