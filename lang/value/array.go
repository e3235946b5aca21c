package value

import "strings"

// Array is an ordered, 0-based, growable sequence of Values. Reading past
// the end yields Null; writing past the end grows the array, filling the
// gap with Null.
type Array struct {
	elems []Value
}

var _ Object = (*Array)(nil)

// NewArray returns an Array containing a copy of elems.
func NewArray(elems []Value) *Array {
	a := &Array{elems: make([]Value, len(elems))}
	copy(a.elems, elems)
	return a
}

func (a *Array) Kind() Kind   { return KindObject }
func (a *Array) Type() string { return "array" }
func (a *Array) Truthy() bool { return a != nil }
func (a *Array) Len() int     { return len(a.elems) }

func (a *Array) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, e := range a.elems {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(e.String())
	}
	b.WriteByte(']')
	return b.String()
}

// Get returns the element at i, or Nil if i is out of range.
func (a *Array) Get(i int) Value {
	if i < 0 || i >= len(a.elems) {
		return Nil
	}
	return a.elems[i]
}

// Set writes v at index i, growing the array (padding with Nil) if needed.
func (a *Array) Set(i int, v Value) {
	if i < 0 {
		return
	}
	for i >= len(a.elems) {
		a.elems = append(a.elems, Nil)
	}
	a.elems[i] = v
}

// Append adds v to the end of the array.
func (a *Array) Append(v Value) { a.elems = append(a.elems, v) }

// Elems returns the underlying slice; callers must not retain or mutate it
// beyond the array's own lifetime management.
func (a *Array) Elems() []Value { return a.elems }

type arrayIterator struct {
	a *Array
	i int
}

// Iterate returns an Iterator over the array's elements in order. Mutating
// the array's length during iteration yields implementation-defined but
// memory-safe results (no panics), consistent with a VM that stores
// iteration state in a single local slot rather than snapshotting.
func (a *Array) Iterate() Iterator { return &arrayIterator{a: a} }

func (it *arrayIterator) Next(p *Value) bool {
	if it.i >= len(it.a.elems) {
		return false
	}
	*p = it.a.elems[it.i]
	it.i++
	return true
}
func (it *arrayIterator) Done() {}
