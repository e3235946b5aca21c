package compiler

// UpvalueDesc tells a Closure instruction how to populate one slot of a new
// closure's upvalue array: if IsLocal, capture the *enclosing* frame's local
// at Index; otherwise forward the enclosing function's own upvalue at Index.
type UpvalueDesc struct {
	IsLocal bool
	Index   uint16
}

// LocalDebug names a local slot for debugger/introspection use only; it has
// no effect on execution.
type LocalDebug struct {
	Name string
	Slot int
}

// LineEntry maps a byte offset in Code to a source line, used both for
// runtime error positions and for the debugger's breakpoint-to-offset
// mapping.
type LineEntry struct {
	Offset uint32
	Line   uint16
}

// ConstantTag identifies the kind of value stored in a Constants pool slot.
type ConstantTag uint8

const (
	ConstNull ConstantTag = iota
	ConstNumber
	ConstString
	ConstBool
	ConstProto
)

// Constant is one entry of a FunctionPrototype's constant pool. Constants
// are plain Go values (not runtime value.Value) so that this package has no
// dependency on the value package; the VM is responsible for turning a
// Constant into a runtime value the first time a module loads.
type Constant struct {
	Tag    ConstantTag
	Number float64
	String string
	Bool   bool
	Proto  *FunctionPrototype
}

// FunctionPrototype is the compile-time description of one function body
// (the top-level script is the body of an implicit outer function). It is
// created once, at compile time, and never mutated afterward.
type FunctionPrototype struct {
	Name         string // "" for the top-level/module body
	ClassName    string // owning class, if this prototype is a method
	Arity        int
	HasRest      bool
	RestName     string
	NumLocals    int // total local slots, including parameters and `this`
	MaxStack     int

	Code      []byte
	Constants []Constant
	Lines     []LineEntry

	Upvalues []UpvalueDesc
	Locals   []LocalDebug // debug-only

	// Exports is non-nil only for a module's top-level prototype: the set of
	// names declared with `export`. A nil map means "export everything"; this
	// field is only ever consulted for a prototype whose Name == "" (module
	// top level).
	Exports map[string]bool

	// Defaults maps a parameter slot index to the literal constant declared as
	// that parameter's default value, applied by the VM when it fills a new
	// frame's parameter slots (see vm.prepareSlots and the "default
	// parameter encoding" open question in spec.md §9: this implementation
	// encodes defaults as a parallel table rather than inline bytecode
	// sub-sequences, documented in DESIGN.md).
	Defaults map[int]Constant
}

// LineForOffset returns the source line associated with the instruction at
// or before byte offset pc, per the line table's offset->line mapping.
func (p *FunctionPrototype) LineForOffset(pc uint32) int {
	line := 0
	for _, e := range p.Lines {
		if e.Offset > pc {
			break
		}
		line = int(e.Line)
	}
	return line
}
