package runtime

import (
	"fmt"
	"time"
)

// RegisterBuiltins adds the native functions to env. It fails if any of
// their names is already defined there.
// clock() reports milliseconds elapsed since start.
func RegisterBuiltins(env *Environment, start time.Time) error {
	natives := []*NativeFunction{
		{
			Name:   "clock",
			Params: 0,
			Fn: func(args []Value) (Value, error) {
				return NumberVal(float64(time.Since(start).Milliseconds())), nil
			},
		},
	}
	for _, fn := range natives {
		if err := env.Define(fn.Name, fn); err != nil {
			return fmt.Errorf("register builtin %s: %w", fn.Name, err)
		}
	}
	return nil
}
