package value

import "fmt"

// NativeFunc wraps a host Go function as a callable heap object, the
// runtime counterpart to the host bridge's delegate-to-callable conversion
// (spec.md §4.4 "For a native function: invoke directly with (vm, args)").
// Fn receives already-converted Values and returns a Value or an error; the
// VM translates a non-nil error into a script-level throw of a string built
// from the native error's message (spec.md §7).
type NativeFunc struct {
	Name string
	Fn   func(args []Value) (Value, error)
}

var _ Object = (*NativeFunc)(nil)

func (n *NativeFunc) Kind() Kind     { return KindObject }
func (n *NativeFunc) Type() string   { return "native function" }
func (n *NativeFunc) Truthy() bool   { return true }
func (n *NativeFunc) String() string { return fmt.Sprintf("<native %s>", n.Name) }
