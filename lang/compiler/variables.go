package compiler

import "github.com/mna/ember/lang/token"

// declareVariable binds name to whatever value currently sits on top of the
// operand stack: a local slot inside any function scope (including a
// script/module's own nested blocks), or a Define[Root]Global into the
// enclosing dynamic environment when declared at a function's outermost
// scope (depth 0) — the only place a binding needs to be addressable by
// name at runtime (module exports, `import`, debugger/eval lookups).
func (c *Compiler) declareVariable(name string, pos token.Pos, forceRoot bool) {
	c.lastDeclaredName = name
	if forceRoot {
		c.emitU16(DefineRootGlobal, uint16(c.constantString(name)), pos)
		return
	}
	if c.fs.scopeDepth > 0 {
		c.fs.declareLocal(name)
		return
	}
	c.emitU16(DefineGlobal, uint16(c.constantString(name)), pos)
}

// namedVariableGet emits the load sequence for an identifier reference,
// resolving local -> upvalue -> global in that order.
func (c *Compiler) namedVariableGet(name string, pos token.Pos) {
	if slot, ok := c.fs.resolveLocal(name); ok {
		c.emitU8(GetLocal, uint8(slot), pos)
		return
	}
	if idx, ok := resolveUpvalue(c.fs, name); ok {
		c.emitU8(GetUpvalue, uint8(idx), pos)
		return
	}
	c.emitU16(GetGlobal, uint16(c.constantString(name)), pos)
}

// namedVariableSet emits the store sequence for an identifier assignment
// target, assuming the value to store is already on top of the stack.
func (c *Compiler) namedVariableSet(name string, pos token.Pos) {
	if slot, ok := c.fs.resolveLocal(name); ok {
		c.emitU8(SetLocal, uint8(slot), pos)
		return
	}
	if idx, ok := resolveUpvalue(c.fs, name); ok {
		c.emitU8(SetUpvalue, uint8(idx), pos)
		return
	}
	c.emitU16(SetGlobal, uint16(c.constantString(name)), pos)
}

// unwindLocalsTo emits Pop/CloseUpvalue for every local declared beyond
// target (counted from the end of fs.locals) without mutating fs.locals,
// used by break/continue to keep the stack balanced on an early exit from
// nested blocks without disturbing the compiler's view of still-active
// scopes.
func (c *Compiler) unwindLocalsTo(target int, pos token.Pos) {
	for i := len(c.fs.locals) - 1; i >= target; i-- {
		if c.fs.locals[i].isCaptured {
			c.emitOp(CloseUpvalue, pos)
		} else {
			c.emitOp(Pop, pos)
		}
	}
}
