// Package runtime implements the interpreter and runtime value system for treelox.
package runtime

import (
	"fmt"
	"math"
	"strconv"
)

// Value is the interface for all runtime values.
// String returns the form print writes.
type Value interface {
	TypeName() string
	String() string
}

// ---- Primitive values ----

// NilVal represents nil.
type NilVal struct{}

func (v NilVal) TypeName() string { return "nil" }
func (v NilVal) String() string   { return "Nil" }

// BoolVal represents a boolean value.
type BoolVal bool

func (v BoolVal) TypeName() string { return "bool" }
func (v BoolVal) String() string   { return strconv.FormatBool(bool(v)) }

// NumberVal represents a number. All numbers are float64.
type NumberVal float64

func (v NumberVal) TypeName() string { return "number" }
func (v NumberVal) String() string   { return formatNumber(float64(v)) }

// StringVal represents a string value. It prints quoted.
type StringVal string

func (v StringVal) TypeName() string { return "string" }
func (v StringVal) String() string   { return fmt.Sprintf("\"%s\"", string(v)) }

// formatNumber prints the shortest plain decimal that round-trips: 2, 0.5, 0.1.
func formatNumber(n float64) string {
	switch {
	case math.IsInf(n, 1):
		return "inf"
	case math.IsInf(n, -1):
		return "-inf"
	case math.IsNaN(n):
		return "NaN"
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// ---- Truthiness ----

// IsTruthy reports whether v counts as true. Only nil and false are falsy.
func IsTruthy(v Value) bool {
	switch val := v.(type) {
	case NilVal:
		return false
	case BoolVal:
		return bool(val)
	default:
		return true
	}
}

// ---- Equality ----

// ValuesEqual compares two values. Values of different kinds are never
// equal; functions, classes and instances compare by identity.
func ValuesEqual(a, b Value) bool {
	switch av := a.(type) {
	case NilVal:
		_, ok := b.(NilVal)
		return ok
	case BoolVal:
		bv, ok := b.(BoolVal)
		return ok && av == bv
	case NumberVal:
		bv, ok := b.(NumberVal)
		return ok && av == bv
	case StringVal:
		bv, ok := b.(StringVal)
		return ok && av == bv
	}
	// Reference equality for functions, classes and instances
	return a == b
}
