package compiler

import "github.com/mna/ember/lang/token"

// classDecl compiles `class Name [ : Super ] { members }`. Each member is
// either an instance method, a `static` method, or a `static name = expr`
// field. A method whose name equals the class name is the constructor
// (IsInit=true); spec.md §4.2.
func (c *Compiler) classDecl() {
	pos := c.peek().Pos
	c.advance() // 'class'
	name := c.expect(token.IDENT, "after 'class'")
	className := name.Value.Raw

	c.emitU16(Class, uint16(c.constantString(className)), pos)

	hasSuper := false
	if c.match(token.COLON) {
		superName := c.expect(token.IDENT, "as superclass name")
		if superName.Value.Raw == className {
			c.errorAt(superName.Pos, "a class cannot inherit from itself")
		}
		c.namedVariableGet(superName.Value.Raw, superName.Pos)
		c.emitOp(Inherit, superName.Pos)
		hasSuper = true
	}

	c.expect(token.LBRACE, "to start class body")
	for !c.check(token.RBRACE) && !c.check(token.EOF) {
		c.classMember(className, hasSuper)
	}
	c.expect(token.RBRACE, "to close class body")

	c.declareVariable(className, pos, false)
}

func (c *Compiler) classMember(className string, hasSuper bool) {
	static := c.match(token.STATIC)
	nameTok := c.expect(token.IDENT, "as member name")
	memberPos := nameTok.Pos
	memberName := nameTok.Value.Raw

	if static && c.check(token.ASSIGN) {
		c.advance()
		c.emitOp(Dup, memberPos)
		c.expression()
		c.emitU16(StaticField, uint16(c.constantString(memberName)), memberPos)
		return
	}

	kind := kindMethod
	if !static && memberName == className {
		kind = kindInitializer
	}

	c.emitOp(Dup, memberPos)
	savedHasSuper := hasSuper
	proto, _ := c.methodBody(kind, memberName, className, savedHasSuper)
	c.emitClosure(proto, memberPos)

	if static {
		c.emitU16(StaticMethod, uint16(c.constantString(memberName)), memberPos)
	} else {
		c.emitU16(Method, uint16(c.constantString(memberName)), memberPos)
	}
}

// methodBody is functionBody specialized for class members: it seeds
// hasSuper explicitly (functionBody's inherited-from-parent check does not
// apply at the class/method boundary, since the enclosing funcState here is
// whatever function/script contains the class declaration, not the class
// itself).
func (c *Compiler) methodBody(kind funcKind, name, className string, hasSuper bool) (*FunctionPrototype, []UpvalueDesc) {
	parent := c.fs
	fs := newFuncState(parent, kind, name)
	fs.className = className
	fs.hasSuper = hasSuper
	c.fs = fs

	c.paramList()
	c.expect(token.LBRACE, "to start method body")
	c.fs.beginScope()
	c.block(func() bool { return c.check(token.RBRACE) })
	c.expect(token.RBRACE, "to close method body")

	pos := c.prevPos()
	if kind == kindInitializer {
		c.emitU8(GetLocal, 0, pos)
		c.emitOp(Return, pos)
	} else {
		c.emitOp(Null, pos)
		c.emitOp(Return, pos)
	}
	fs.proto.ClassName = className
	fs.proto.MaxStack = fs.maxStack
	if fs.proto.NumLocals < len(fs.locals) {
		fs.proto.NumLocals = len(fs.locals)
	}

	c.fs = parent
	return fs.proto, fs.proto.Upvalues
}
