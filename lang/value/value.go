// Package value implements the tagged-union value model and heap object
// types shared by the compiler and the virtual machine: Null, Bool, Number
// and Object (a reference to one of the heap object kinds), together with
// the Environment scope chain and Upvalue cell used for closures.
//
// The design follows the teacher lineage's "narrow interface, concrete
// payload" style (see the machine/types split in mna/nenuphar) but is
// collapsed into a single package since the compiler, VM and host bridge all
// need the same concrete representation.
package value

import "fmt"

// Kind identifies which of the four Value tags a Value carries.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindObject:
		return "object"
	default:
		return "invalid"
	}
}

// Value is any value manipulated by the compiler and VM: Null, Bool, Number
// or an Object reference.
type Value interface {
	// Kind reports the value's tag.
	Kind() Kind
	// Truthy implements the language's truthiness rules: Null is false, Bool
	// is itself, Number is true iff non-zero, Object is true iff non-nil.
	Truthy() bool
	// String returns a human-readable representation, used by print and by
	// string coercion (e.g. the + operator's string-concatenation rule).
	String() string
}

// Null is the sole value of the Null tag.
type Null struct{}

// Nil is the single Null value; there is only ever one.
var Nil = Null{}

func (Null) Kind() Kind      { return KindNull }
func (Null) Truthy() bool    { return false }
func (Null) String() string  { return "null" }

// Bool is the Bool tag payload.
type Bool bool

const (
	True  = Bool(true)
	False = Bool(false)
)

func (b Bool) Kind() Kind     { return KindBool }
func (b Bool) Truthy() bool   { return bool(b) }
func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}

// Number is the Number tag payload: an IEEE-754 double.
type Number float64

func (n Number) Kind() Kind   { return KindNumber }
func (n Number) Truthy() bool { return n != 0 }
func (n Number) String() string {
	f := float64(n)
	if f == float64(int64(f)) && f < 1e15 && f > -1e15 {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

// Object is implemented by every heap-allocated value: String, Array, Dict,
// Class, Instance, Function, BoundMethod, Module, GlobalTable and Range.
type Object interface {
	Value
	// Type returns the short heap-object type name (e.g. "string", "array").
	Type() string
}

// Equal implements the language's equality rules: by tag then by payload,
// with Object equality being reference equality except for String, which
// compares by content (the interning scheme guarantees short strings of
// equal content already share one reference, but long strings do not, and
// content equality must hold regardless).
func Equal(x, y Value) bool {
	if x == nil || y == nil {
		return x == y
	}
	if x.Kind() != y.Kind() {
		return false
	}
	switch x.Kind() {
	case KindNull:
		return true
	case KindBool:
		return x.(Bool) == y.(Bool)
	case KindNumber:
		return x.(Number) == y.(Number)
	case KindObject:
		xs, xok := x.(*String)
		ys, yok := y.(*String)
		if xok && yok {
			return xs.s == ys.s
		}
		if xok != yok {
			return false
		}
		return x.(Object) == y.(Object)
	}
	return false
}

// Truthy is a free-function form of Value.Truthy for nil-safety.
func Truthy(v Value) bool {
	if v == nil {
		return false
	}
	return v.Truthy()
}

// ToString implements the string-conversion rule used by the + operator and
// by print: Null/Bool/Number/String render as above, other Objects render
// via their String method.
func ToString(v Value) string {
	if v == nil {
		return "null"
	}
	if s, ok := v.(*String); ok {
		return s.s
	}
	return v.String()
}

// TypeOf returns the short type name used in runtime error messages: an
// Object's own Type(), or the tag name for Null/Bool/Number.
func TypeOf(v Value) string {
	if v == nil {
		return "null"
	}
	if o, ok := v.(Object); ok {
		return o.Type()
	}
	return v.Kind().String()
}
