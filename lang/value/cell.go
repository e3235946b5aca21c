package value

// Upvalue is a cell that either points at a live slot on the VM's operand
// stack (open) or holds a captured copy (closed). Modeled as a standalone
// cell rather than a back-reference into the stack frame, per the teacher's
// machine/cell.go technique generalized with an explicit open/closed
// discriminant (the teacher's cell is always "closed": it is spilled eagerly
// at frame entry; this language instead needs open cells so that a local
// and its captors observe the same value for as long as the defining frame
// is alive, per spec.md §3's upvalue invariant).
type Upvalue struct {
	// stack, if non-nil, is the operand stack slice shared with the owning
	// Thread; index is the position of the captured slot within it. When
	// closed, stack is nil and closedValue holds the last observed value.
	stack      []Value
	index      int
	closedValue Value
}

// NewOpenUpvalue returns an Upvalue pointing at stack[index]; stack must be
// the operand stack slice of the frame that owns this local.
func NewOpenUpvalue(stack []Value, index int) *Upvalue {
	return &Upvalue{stack: stack, index: index}
}

// IsOpen reports whether the upvalue still points into a live frame's stack.
func (u *Upvalue) IsOpen() bool { return u.stack != nil }

// StackIndex returns the index into the owning frame's stack this upvalue
// observes while open. It is only meaningful while IsOpen is true.
func (u *Upvalue) StackIndex() int { return u.index }

// Get returns the upvalue's current value.
func (u *Upvalue) Get() Value {
	if u.stack != nil {
		return u.stack[u.index]
	}
	return u.closedValue
}

// Set writes through the upvalue to whichever of the stack slot or the
// closed cell currently backs it.
func (u *Upvalue) Set(v Value) {
	if u.stack != nil {
		u.stack[u.index] = v
		return
	}
	u.closedValue = v
}

// Close migrates the upvalue's current stack value into the cell and
// detaches it from the stack. Called when the owning frame returns for
// every open upvalue whose index is within that frame's range.
func (u *Upvalue) Close() {
	if u.stack == nil {
		return
	}
	u.closedValue = u.stack[u.index]
	u.stack = nil
}
