package value

// Environment is a named-binding scope with an optional parent, used for the
// dynamic lookups that back eval() ephemeral bindings and the top-level
// closures captured by module-level functions. It is distinct from the
// compiler's static local-slot/upvalue resolution, which handles ordinary
// function-body variables without any Environment at all; Environment only
// backs the small set of dynamically-scoped lookups spec.md §3/§6 call for
// (host-provided eval bindings, the root/global scope, `_G`).
type Environment struct {
	parent *Environment
	names  []string
	values map[string]Value
}

// NewEnvironment creates an Environment with the given parent (nil for a
// root environment).
func NewEnvironment(parent *Environment) *Environment {
	return &Environment{parent: parent, values: make(map[string]Value)}
}

// Root returns a new environment with no parent; used for the program's
// global scope.
func Root() *Environment { return NewEnvironment(nil) }

// Parent returns the enclosing environment, or nil for the root.
func (e *Environment) Parent() *Environment { return e.parent }

// Define always writes to this environment's own scope, shadowing any
// binding of the same name in an enclosing scope.
func (e *Environment) Define(name string, v Value) {
	if _, ok := e.values[name]; !ok {
		e.names = append(e.names, name)
	}
	e.values[name] = v
}

// Set walks up the parent chain looking for an existing binding of name and
// updates it in place; if none is found, it defines name in this (the
// innermost) scope, matching the teacher-style "implicit global creation on
// assignment" convenience.
func (e *Environment) Set(name string, v Value) {
	for env := e; env != nil; env = env.parent {
		if _, ok := env.values[name]; ok {
			env.values[name] = v
			return
		}
	}
	e.Define(name, v)
}

// Get walks up the parent chain and returns the value bound to name.
func (e *Environment) Get(name string) (Value, bool) {
	for env := e; env != nil; env = env.parent {
		if v, ok := env.values[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Names returns the names defined directly in this environment, in
// insertion order.
func (e *Environment) Names() []string {
	out := make([]string, len(e.names))
	copy(out, e.names)
	return out
}

// GlobalTable is a view Object that proxies reads/writes to a root
// Environment, bound into scripts under the name `_G`.
type GlobalTable struct {
	Root *Environment
}

var _ Object = (*GlobalTable)(nil)

func (g *GlobalTable) Kind() Kind     { return KindObject }
func (g *GlobalTable) Type() string   { return "global table" }
func (g *GlobalTable) Truthy() bool   { return true }
func (g *GlobalTable) String() string { return "_G" }

// Get proxies to the root environment.
func (g *GlobalTable) Get(name string) (Value, bool) { return g.Root.Get(name) }

// Set proxies to the root environment, always defining at the root (bypasses
// any intermediate scope, matching the `global` keyword's semantics).
func (g *GlobalTable) Set(name string, v Value) { g.Root.Define(name, v) }
