package compiler

import "github.com/mna/ember/lang/token"

// assignTarget abstracts the three assignable expression forms (bare
// identifier, member access, index access) plus the non-assignable
// "already evaluated" case, so a single postfix-parsing loop can defer
// emitting a read until it knows whether an assignment operator follows
// (spec.md §4.2's "assignment targets" list).
type assignTarget interface {
	// emitGet emits the code to produce this target's current value on top
	// of the stack, assuming any prerequisite sub-expressions (the base
	// object of a member/index target) are already on the stack.
	emitGet(c *Compiler)

	// emitSetDup emits the code to store the value currently on top of the
	// stack into this target, leaving that same value on top of the stack
	// afterward (assignment is an expression). For member/index targets the
	// object reference must already be beneath the value on the stack.
	emitSetDup(c *Compiler)

	// emitSetNoPush is like emitSetDup but does not guarantee the assigned
	// value remains on the stack; used by postfix ++/-- where the net stack
	// effect is handled by the caller.
	emitSetNoPush(c *Compiler)
}

// valueTarget represents an expression result that has already been fully
// emitted (a literal, a call result, a grouped sub-expression, `this`): its
// value is already on the stack and it cannot be assigned to.
type valueTarget struct{}

func (valueTarget) emitGet(c *Compiler) {}
func (valueTarget) emitSetDup(c *Compiler) {
	c.errorAt(c.peek().Pos, "invalid assignment target")
}
func (valueTarget) emitSetNoPush(c *Compiler) {
	c.errorAt(c.peek().Pos, "invalid assignment target")
}

// identifierTarget is a bare name, resolved local/upvalue/global at the
// point it is finally read or written (not at the point it is parsed).
type identifierTarget struct {
	name string
	pos  token.Pos
}

func (t identifierTarget) emitGet(c *Compiler) { c.namedVariableGet(t.name, t.pos) }

// Set opcodes for locals/upvalues/globals peek (do not pop) the stack, so
// the assigned value naturally remains on top after the store: no extra
// Dup is needed for emitSetDup, and emitSetNoPush simply pops the leftover
// copy the caller didn't want.
func (t identifierTarget) emitSetDup(c *Compiler) { c.namedVariableSet(t.name, t.pos) }
func (t identifierTarget) emitSetNoPush(c *Compiler) {
	c.namedVariableSet(t.name, t.pos)
	c.emitOp(Pop, t.pos)
}

// propertyTarget is `base.name`; by the time it is constructed, base's
// value (the object) is already on the stack (emitted by the postfix loop
// before wrapping the target), so emitGet/emitSet only need to emit the
// property opcode itself.
type propertyTarget struct {
	base assignTarget
	name string
	pos  token.Pos
}

func (t propertyTarget) emitGet(c *Compiler) {
	c.emitU16(GetProperty, uint16(c.constantString(t.name)), t.pos)
}

// SetProperty pops [object, value] and pushes value back, so assignment as
// an expression needs no extra bookkeeping.
func (t propertyTarget) emitSetDup(c *Compiler) {
	c.emitU16(SetProperty, uint16(c.constantString(t.name)), t.pos)
}
func (t propertyTarget) emitSetNoPush(c *Compiler) {
	c.emitU16(SetProperty, uint16(c.constantString(t.name)), t.pos)
	c.emitOp(Pop, t.pos)
}

// indexTarget is `base[index]`; both the object and the index expression
// are already on the stack by the time this target is constructed.
type indexTarget struct {
	base assignTarget
	pos  token.Pos
}

func (t indexTarget) emitGet(c *Compiler) { c.emitOp(GetIndex, t.pos) }

// SetIndex pops [object, index, value] and pushes value back.
func (t indexTarget) emitSetDup(c *Compiler) { c.emitOp(SetIndex, t.pos) }
func (t indexTarget) emitSetNoPush(c *Compiler) {
	c.emitOp(SetIndex, t.pos)
	c.emitOp(Pop, t.pos)
}

// superMarker is the bare `super` keyword, valid only directly followed by
// `.name` (super.NAME or super.NAME(args)); it is never a value on its own.
type superMarker struct{ pos token.Pos }

func (t superMarker) emitGet(c *Compiler) {
	c.errorAt(t.pos, "'super' must be followed by '.name'")
}
func (t superMarker) emitSetDup(c *Compiler) {
	c.errorAt(t.pos, "invalid assignment target")
}
func (t superMarker) emitSetNoPush(c *Compiler) {
	c.errorAt(t.pos, "invalid assignment target")
}

// superTarget is `super.name`, not (yet) called: This is pushed and
// GetSuper resolves name against the enclosing method's class's
// superclass. Not assignable.
type superTarget struct {
	name string
	pos  token.Pos
}

func (t superTarget) emitGet(c *Compiler) {
	if !c.fs.hasSuper {
		c.errorAt(t.pos, "'super' used outside of a subclass method")
	}
	c.emitOp(This, t.pos)
	c.emitU16(GetSuper, uint16(c.constantString(t.name)), t.pos)
}
func (t superTarget) emitSetDup(c *Compiler) {
	c.errorAt(t.pos, "invalid assignment target")
}
func (t superTarget) emitSetNoPush(c *Compiler) {
	c.errorAt(t.pos, "invalid assignment target")
}
