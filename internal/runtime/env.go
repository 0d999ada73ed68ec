package runtime

import "treelox/internal/span"

// Environment represents a variable scope with a parent chain.
//
// Frames only point outward, so a closure keeps exactly the frames it can
// reach alive and nothing else.
type Environment struct {
	values map[string]Value
	parent *Environment
}

// NewEnvironment creates a new environment with an optional parent scope.
func NewEnvironment(parent *Environment) *Environment {
	return &Environment{
		values: make(map[string]Value),
		parent: parent,
	}
}

// Parent returns the enclosing environment, nil for the global frame.
func (e *Environment) Parent() *Environment {
	return e.parent
}

// Define declares a new variable in this frame only.
func (e *Environment) Define(name string, value Value) error {
	if _, exists := e.values[name]; exists {
		return runtimeErr(span.Span{}, ErrDuplicateDeclaration, "'%s' is already declared in this scope", name)
	}
	e.values[name] = value
	return nil
}

// Get looks a name up in this frame only. It is the path for globals, which
// the resolver does not track.
func (e *Environment) Get(name string) (Value, error) {
	if val, exists := e.values[name]; exists {
		return val, nil
	}
	return nil, runtimeErr(span.Span{}, ErrUndefined, "undefined variable '%s'", name)
}

// Ancestor walks exactly distance parent links. It returns nil if the chain
// is shorter than that.
func (e *Environment) Ancestor(distance int) *Environment {
	env := e
	for hop := 0; hop < distance && env != nil; hop++ {
		env = env.parent
	}
	return env
}

// GetAt reads name from the frame distance hops up, without searching further.
func (e *Environment) GetAt(name string, distance int) (Value, error) {
	if env := e.Ancestor(distance); env != nil {
		if val, exists := env.values[name]; exists {
			return val, nil
		}
	}
	return nil, runtimeErr(span.Span{}, ErrInternal, "'%s' not found at distance %d", name, distance)
}

// Assign updates an existing binding, walking the chain outward.
func (e *Environment) Assign(name string, value Value) error {
	for env := e; env != nil; env = env.parent {
		if _, exists := env.values[name]; exists {
			env.values[name] = value
			return nil
		}
	}
	return runtimeErr(span.Span{}, ErrUndefined, "undefined variable '%s'", name)
}

// AssignAt updates name in the frame distance hops up.
func (e *Environment) AssignAt(name string, distance int, value Value) error {
	if env := e.Ancestor(distance); env != nil {
		if _, exists := env.values[name]; exists {
			env.values[name] = value
			return nil
		}
	}
	return runtimeErr(span.Span{}, ErrInternal, "'%s' not found at distance %d", name, distance)
}

// Depth returns the number of frames above this one.
func (e *Environment) Depth() int {
	depth := 0
	for env := e.parent; env != nil; env = env.parent {
		depth++
	}
	return depth
}
