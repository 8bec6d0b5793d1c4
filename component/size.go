package component

import "fmt"

// Size is the serialized length of a value. A constant size holds for every
// value of the type; a dynamic size holds only for the value it was computed
// from.
type Size struct {
	n       int
	dynamic bool
}

// Constant returns a size shared by every value of a type.
func Constant(n int) Size {
	return Size{n: n}
}

// Dynamic returns a size that holds for one particular value.
func Dynamic(n int) Size {
	return Size{n: n, dynamic: true}
}

// Len returns the number of bytes.
func (s Size) Len() int {
	return s.n
}

// IsConstant reports whether s holds for every value of its type.
func (s Size) IsConstant() bool {
	return !s.dynamic
}

// Add combines two sizes. The result is constant only when both are.
func (s Size) Add(o Size) Size {
	return Size{n: s.n + o.n, dynamic: s.dynamic || o.dynamic}
}

// AddBytes adds n bytes whose count depends on the value, so the result is
// always dynamic.
func (s Size) AddBytes(n int) Size {
	return Dynamic(s.n + n)
}

func (s Size) String() string {
	if s.dynamic {
		return fmt.Sprintf("Dynamic(%d)", s.n)
	}
	return fmt.Sprintf("Constant(%d)", s.n)
}
