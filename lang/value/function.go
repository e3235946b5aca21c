package value

import (
	"fmt"

	"github.com/mna/ember/lang/compiler"
)

// Module is the dynamic counterpart to a compiled program: its logical path,
// its top-level Environment, and (if non-nil) the set of exported names. A
// nil Exports set means "export everything defined at top level".
type Module struct {
	Path    string
	Env     *Environment
	Exports map[string]bool
}

var _ Object = (*Module)(nil)

func (m *Module) Kind() Kind     { return KindObject }
func (m *Module) Type() string   { return "module" }
func (m *Module) Truthy() bool   { return true }
func (m *Module) String() string { return fmt.Sprintf("module(%s)", m.Path) }

// Exported reports whether name is visible to importers.
func (m *Module) Exported(name string) bool {
	if m.Exports == nil {
		return true
	}
	return m.Exports[name]
}

// Get returns the exported value of name, or Null if name is unexported or
// undefined (per spec.md §4.4's module property-access rule).
func (m *Module) Get(name string) Value {
	if !m.Exported(name) {
		return Nil
	}
	if v, ok := m.Env.Get(name); ok {
		return v
	}
	return Nil
}

// Function is a closure over a FunctionPrototype: its defining environment
// (for module-level/top-level closures created directly from source rather
// than from a Closure opcode), its captured Upvalues, and - for methods -
// the bound instance and whether it is a class initializer.
type Function struct {
	Proto       *compiler.FunctionPrototype
	Upvalues    []*Upvalue
	Env         *Environment // enclosing environment, for dynamically-scoped lookups
	Bound       *Instance    // non-nil when this is a method closed over `this`
	IsInit      bool
	OwningClass *Class
}

var _ Object = (*Function)(nil)

func (f *Function) Kind() Kind   { return KindObject }
func (f *Function) Type() string { return "function" }
func (f *Function) Truthy() bool { return true }
func (f *Function) String() string {
	name := f.Proto.Name
	if name == "" {
		name = "anonymous"
	}
	return fmt.Sprintf("<function %s>", name)
}

// BoundMethod pairs an instance with a function, used when a method is
// extracted via GetProperty without being called immediately (e.g. stored
// to a variable or passed as a callback).
type BoundMethod struct {
	Receiver *Instance
	Method   *Function
}

var _ Object = (*BoundMethod)(nil)

func (b *BoundMethod) Kind() Kind   { return KindObject }
func (b *BoundMethod) Type() string { return "bound method" }
func (b *BoundMethod) Truthy() bool { return true }
func (b *BoundMethod) String() string {
	return fmt.Sprintf("<bound method %s>", b.Method.Proto.Name)
}

// Bind returns a Function that behaves like Method but with Bound set to
// recv, used both by GetProperty's bound-method materialization and by
// BoundMethod's own call path.
func (b *BoundMethod) Bind() *Function {
	bound := *b.Method
	bound.Bound = b.Receiver
	return &bound
}
