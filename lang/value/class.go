package value

import "fmt"

// Class is a runtime class value: its name, optional superclass, methods
// (regular and static) and static fields. Method lookup walks the
// superclass chain, first-found-wins (single inheritance).
type Class struct {
	Name         string
	Super        *Class
	Methods      map[string]*Function
	StaticMethods map[string]*Function
	StaticFields map[string]Value
}

var _ Object = (*Class)(nil)

// NewClass returns an empty class with the given name.
func NewClass(name string) *Class {
	return &Class{
		Name:          name,
		Methods:       make(map[string]*Function),
		StaticMethods: make(map[string]*Function),
		StaticFields:  make(map[string]Value),
	}
}

func (c *Class) Kind() Kind     { return KindObject }
func (c *Class) Type() string   { return "class" }
func (c *Class) Truthy() bool   { return true }
func (c *Class) String() string { return fmt.Sprintf("<class %s>", c.Name) }

// FindMethod walks this class then its ancestors for an instance method
// named name.
func (c *Class) FindMethod(name string) (*Function, bool) {
	for cl := c; cl != nil; cl = cl.Super {
		if m, ok := cl.Methods[name]; ok {
			return m, true
		}
	}
	return nil, false
}

// FindStaticMethod walks this class then its ancestors for a static method.
func (c *Class) FindStaticMethod(name string) (*Function, bool) {
	for cl := c; cl != nil; cl = cl.Super {
		if m, ok := cl.StaticMethods[name]; ok {
			return m, true
		}
	}
	return nil, false
}

// FindStaticField walks this class then its ancestors for a static field.
func (c *Class) FindStaticField(name string) (Value, bool) {
	for cl := c; cl != nil; cl = cl.Super {
		if v, ok := cl.StaticFields[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Initializer returns the class's own constructor: the method whose name
// equals the class name and whose IsInit flag is set. Inherited
// constructors are not used implicitly; a subclass without its own
// constructor has no initializer to run automatically.
func (c *Class) Initializer() (*Function, bool) {
	m, ok := c.Methods[c.Name]
	if !ok || !m.IsInit {
		return nil, false
	}
	return m, true
}

// Instance is an object created from a Class: a reference to its class plus
// a mapping of field name to Value.
type Instance struct {
	Class  *Class
	Fields map[string]Value
}

var _ Object = (*Instance)(nil)

// NewInstance returns a new, fieldless Instance of class.
func NewInstance(class *Class) *Instance {
	return &Instance{Class: class, Fields: make(map[string]Value)}
}

func (i *Instance) Kind() Kind   { return KindObject }
func (i *Instance) Type() string { return "instance" }
func (i *Instance) Truthy() bool { return true }
func (i *Instance) String() string {
	return fmt.Sprintf("<instance of %s>", i.Class.Name)
}

// GetField reads a field, falling back to a bound method from the class
// chain. The bool result is false if neither a field nor a method exists.
func (i *Instance) GetField(name string) (Value, bool) {
	if v, ok := i.Fields[name]; ok {
		return v, true
	}
	if m, ok := i.Class.FindMethod(name); ok {
		return &BoundMethod{Receiver: i, Method: m}, true
	}
	return nil, false
}

// SetField writes an instance field directly (fields are always
// instance-local; there is no notion of a "setter method" distinct from a
// plain field write).
func (i *Instance) SetField(name string, v Value) { i.Fields[name] = v }
