package compiler

import (
	"github.com/mna/ember/lang/token"
)

// paramList parses `( ident [, ident]* [, ...ident] )`, declaring each
// parameter as a local slot of fs (slot 0 is already reserved in every
// function, holding `this` on methods and null elsewhere, so parameters
// start at slot 1). A trailing `name = literal` binds a compile-time constant
// default, recorded in proto.Defaults; a `...name` trailing parameter
// becomes the rest parameter.
func (c *Compiler) paramList() {
	c.expect(token.LPAREN, "after function name")
	for !c.check(token.RPAREN) && !c.check(token.EOF) {
		if c.match(token.ELLIPSIS) {
			name := c.expect(token.IDENT, "after '...'")
			c.fs.proto.HasRest = true
			c.fs.proto.RestName = name.Value.Raw
			c.fs.declareLocal(name.Value.Raw)
			break
		}
		name := c.expect(token.IDENT, "as parameter name")
		slot := c.fs.declareLocal(name.Value.Raw)
		c.fs.proto.Arity++
		if c.match(token.ASSIGN) {
			c.paramDefault(slot)
		}
		if !c.match(token.COMMA) {
			break
		}
	}
	c.expect(token.RPAREN, "after parameter list")
}

// paramDefault parses a compile-time-constant default value expression.
// Arbitrary expressions are intentionally not supported here: spec.md's
// default-parameter opcode encoding is left an open question, and this
// implementation resolves it with a side table of constants on the
// prototype rather than inline conditional bytecode (see DESIGN.md).
func (c *Compiler) paramDefault(slot int) {
	var k Constant
	switch {
	case c.check(token.NUMBER):
		t := c.advance()
		k = Constant{Tag: ConstNumber, Number: t.Value.Number}
	case c.check(token.STRING):
		t := c.advance()
		k = Constant{Tag: ConstString, String: t.Value.Raw}
	case c.match(token.TRUE):
		k = Constant{Tag: ConstBool, Bool: true}
	case c.match(token.FALSE):
		k = Constant{Tag: ConstBool, Bool: false}
	case c.match(token.NULL):
		k = Constant{Tag: ConstNull}
	default:
		c.errorAt(c.peek().Pos, "default parameter value must be a literal")
		return
	}
	if c.fs.proto.Defaults == nil {
		c.fs.proto.Defaults = make(map[int]Constant)
	}
	c.fs.proto.Defaults[slot] = k
}

// functionBody compiles params+braceBlock for a nested function of the
// given kind/name/className into a fresh funcState, emits an implicit
// `return null` if control falls off the end, and returns the finished
// prototype plus the caller's descriptor list for the Closure instruction.
func (c *Compiler) functionBody(kind funcKind, name, className string) (*FunctionPrototype, []UpvalueDesc) {
	parent := c.fs
	fs := newFuncState(parent, kind, name)
	fs.className = className
	fs.hasSuper = parent != nil && parent.hasSuper && className == parent.className
	c.fs = fs

	c.paramList()
	c.expect(token.LBRACE, "to start function body")
	c.fs.beginScope()
	c.block(func() bool { return c.check(token.RBRACE) })
	c.expect(token.RBRACE, "to close function body")

	pos := c.prevPos()
	if kind == kindInitializer {
		c.emitU8(GetLocal, 0, pos)
		c.emitOp(Return, pos)
	} else {
		c.emitOp(Null, pos)
		c.emitOp(Return, pos)
	}
	fs.proto.MaxStack = fs.maxStack
	if fs.proto.NumLocals < len(fs.locals) {
		fs.proto.NumLocals = len(fs.locals)
	}

	c.fs = parent
	return fs.proto, fs.proto.Upvalues
}

// emitClosure appends proto to the *enclosing* function's constant pool and
// emits the Closure instruction (proto index + upvalue descriptor list) so
// the compiled value ends up on top of the operand stack.
func (c *Compiler) emitClosure(proto *FunctionPrototype, pos token.Pos) {
	idx := c.fs.addConstant(Constant{Tag: ConstProto, Proto: proto})
	c.emitOp(Closure, pos)
	c.emitU16Raw(uint16(idx), pos)
	c.emitByte(byte(len(proto.Upvalues)), pos)
	for _, uv := range proto.Upvalues {
		if uv.IsLocal {
			c.emitByte(1, pos)
		} else {
			c.emitByte(0, pos)
		}
		c.emitU16Raw(uv.Index, pos)
	}
}

func (c *Compiler) funcDecl() {
	pos := c.peek().Pos
	c.advance() // 'func'
	name := c.expect(token.IDENT, "after 'func'")
	proto, _ := c.functionBody(kindFunction, name.Value.Raw, "")
	c.emitClosure(proto, pos)
	c.declareVariable(name.Value.Raw, pos, false)
}

// lambda compiles `(params) => expr` or `(params) => { block }` as an
// expression, leaving the closure value on the stack.
func (c *Compiler) lambda() {
	pos := c.peek().Pos
	parent := c.fs
	fs := newFuncState(parent, kindFunction, "")
	c.fs = fs
	c.paramList()
	c.expect(token.ARROW, "in lambda expression")
	if c.check(token.LBRACE) {
		c.advance()
		c.fs.beginScope()
		c.block(func() bool { return c.check(token.RBRACE) })
		c.expect(token.RBRACE, "to close lambda body")
		c.emitOp(Null, c.prevPos())
		c.emitOp(Return, c.prevPos())
	} else {
		c.expression()
		c.emitOp(Return, c.prevPos())
	}
	fs.proto.MaxStack = fs.maxStack
	if fs.proto.NumLocals < len(fs.locals) {
		fs.proto.NumLocals = len(fs.locals)
	}
	proto := fs.proto
	c.fs = parent
	c.emitClosure(proto, pos)
}

// argumentList parses `( expr [, expr]* )` and returns the argument count.
func (c *Compiler) argumentList() uint8 {
	c.expect(token.LPAREN, "to start argument list")
	var argc int
	for !c.check(token.RPAREN) && !c.check(token.EOF) {
		c.expression()
		argc++
		if argc > 255 {
			c.errorAt(c.peek().Pos, "too many arguments (max 255)")
		}
		if !c.match(token.COMMA) {
			break
		}
	}
	c.expect(token.RPAREN, "to close argument list")
	return uint8(argc)
}

// isLambdaAhead reports whether the upcoming "(" ... ")" is followed by
// "=>", distinguishing a lambda expression from a parenthesized expression,
// by scanning forward without consuming tokens.
func (c *Compiler) isLambdaAhead() bool {
	depth := 0
	for i := c.pos; i < len(c.toks); i++ {
		switch c.toks[i].Token {
		case token.LPAREN:
			depth++
		case token.RPAREN:
			depth--
			if depth == 0 {
				return i+1 < len(c.toks) && c.toks[i+1].Token == token.ARROW
			}
		case token.EOF:
			return false
		}
	}
	return false
}
