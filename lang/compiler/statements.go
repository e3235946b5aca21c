package compiler

import (
	"github.com/mna/ember/lang/token"
)

func (c *Compiler) statement() {
	switch c.peek().Token {
	case token.VAR:
		c.varDecl()
	case token.GLOBAL:
		c.globalDecl()
	case token.FUNC:
		c.funcDecl()
	case token.CLASS:
		c.classDecl()
	case token.ENUM:
		c.enumDecl()
	case token.IF:
		c.ifStmt()
	case token.WHILE:
		c.whileStmt()
	case token.FOR:
		c.forStmt()
	case token.TRY:
		c.tryStmt()
	case token.THROW:
		c.throwStmt()
	case token.RETURN:
		c.returnStmt()
	case token.BREAK:
		c.breakStmt()
	case token.CONTINUE:
		c.continueStmt()
	case token.IMPORT:
		c.importStmt()
	case token.EXPORT:
		c.exportStmt()
	case token.LBRACE:
		c.fs.beginScope()
		c.braceBlockBody()
		c.closeScope()
	default:
		c.exprStmt()
	}
}

// braceBlockBody compiles the statements of a `{ ... }` block assuming the
// scope and opening brace are already handled by the caller.
func (c *Compiler) braceBlockBody() {
	c.expect(token.LBRACE, "to start block")
	c.block(func() bool { return c.check(token.RBRACE) })
	c.expect(token.RBRACE, "to close block")
}

func (c *Compiler) varDecl() {
	pos := c.peek().Pos
	c.advance() // 'var'
	name := c.expect(token.IDENT, "after 'var'")
	if c.match(token.ASSIGN) {
		c.expression()
	} else {
		c.emitOp(Null, pos)
	}
	c.declareVariable(name.Value.Raw, pos, false)
}

// globalDecl compiles `global NAME [= expr]`, always binding into the root
// environment regardless of the current function nesting (spec.md §4.2).
func (c *Compiler) globalDecl() {
	pos := c.peek().Pos
	c.advance() // 'global'
	name := c.expect(token.IDENT, "after 'global'")
	if c.match(token.ASSIGN) {
		c.expression()
	} else {
		c.emitOp(Null, pos)
	}
	c.declareVariable(name.Value.Raw, pos, true)
}

// enumDecl compiles `enum Name { A, B, C }` into a Dict literal mapping each
// member to a sequential integer starting at 0, bound as Name.
func (c *Compiler) enumDecl() {
	pos := c.peek().Pos
	c.advance() // 'enum'
	name := c.expect(token.IDENT, "after 'enum'")
	c.expect(token.LBRACE, "to start enum body")
	c.emitOp(NewObject, pos)
	i := 0
	for !c.check(token.RBRACE) && !c.check(token.EOF) {
		member := c.expect(token.IDENT, "as enum member name")
		c.emitOp(Dup, member.Pos)
		c.emitU16(Const, uint16(c.constantNumber(float64(i))), member.Pos)
		c.emitU16(SetField, uint16(c.constantString(member.Value.Raw)), member.Pos)
		i++
		if !c.match(token.COMMA) {
			break
		}
	}
	c.expect(token.RBRACE, "to close enum body")
	c.declareVariable(name.Value.Raw, pos, false)
}

func (c *Compiler) ifStmt() {
	c.advance() // 'if'
	c.expression()

	thenJump := c.emitJump(JumpIfFalse, c.prevPos())
	c.emitOp(Pop, c.prevPos())
	c.statement()

	elseJump := c.emitJump(Jump, c.prevPos())
	c.patchJump(thenJump)
	c.emitOp(Pop, c.prevPos())

	if c.match(token.ELSE) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStmt() {
	c.advance() // 'while'
	loopStart := len(c.fs.proto.Code)
	loop := &loopState{enclosing: c.fs.loop, loopStart: loopStart, scopeDepth: c.fs.scopeDepth}
	c.fs.loop = loop

	c.expression()

	exitJump := c.emitJump(JumpIfFalse, c.prevPos())
	c.emitOp(Pop, c.prevPos())
	loop.continueTarget = loopStart
	loop.bodyLocalsBase = len(c.fs.locals)
	c.statement()
	c.emitLoop(loopStart, c.prevPos())

	c.patchJump(exitJump)
	c.emitOp(Pop, c.prevPos())
	for _, j := range loop.breakJumps {
		c.patchJump(j)
	}
	c.fs.loop = loop.enclosing
}

// forStmt compiles `for ident [, ident] in expr stmt` (the loop header may
// also be wrapped in parentheses), producing
// GetIter / ForIter[KV]Local / CloseIter per spec.md §4.2. The iterator
// state occupies its own hidden local slot immediately followed by the
// loop variable(s); ForIter[KV]Local's slot operand names that hidden
// iterator slot and the VM writes the produced element(s) into slot+1 (and
// slot+2 for the KV form) — see DESIGN.md for this resolved ambiguity.
func (c *Compiler) forStmt() {
	pos := c.peek().Pos
	c.advance() // 'for'
	paren := c.match(token.LPAREN)

	first := c.expect(token.IDENT, "as loop variable")
	second := ""
	isKV := false
	if c.match(token.COMMA) {
		s := c.expect(token.IDENT, "as second loop variable")
		second = s.Value.Raw
		isKV = true
	}
	c.expect(token.IN, "in for-in loop")

	c.fs.beginScope()
	iterSlot := c.fs.declareLocal("$iter")
	c.expression()
	if paren {
		c.expect(token.RPAREN, "after for-in iterable")
	}
	c.emitOp(GetIter, pos)

	c.fs.declareLocal(first.Value.Raw)
	c.emitOp(Null, pos)
	if isKV {
		c.fs.declareLocal(second)
		c.emitOp(Null, pos)
	}

	loop := &loopState{enclosing: c.fs.loop, scopeDepth: c.fs.scopeDepth, iterSlot: iterSlot, hasIter: true}
	c.fs.loop = loop
	loopStart := len(c.fs.proto.Code)
	loop.loopStart = loopStart
	loop.continueTarget = loopStart
	loop.bodyLocalsBase = len(c.fs.locals)

	var exitJump int
	if isKV {
		exitJump = c.emitU16U16ForIter(ForIterKVLocal, iterSlot, pos)
	} else {
		exitJump = c.emitU16U16ForIter(ForIterLocal, iterSlot, pos)
	}

	c.statement()
	c.emitLoop(loopStart, c.prevPos())
	c.patchJump(exitJump)
	c.emitU8(CloseIter, uint8(iterSlot), c.prevPos())

	for _, j := range loop.breakJumps {
		c.patchJump(j)
	}
	c.fs.loop = loop.enclosing
	c.closeScope()
}

// emitU16U16ForIter emits a ForIterLocal/ForIterKVLocal instruction (u8
// slot, u16 placeholder exit offset) and returns the code offset of the
// placeholder for later patchJump.
func (c *Compiler) emitU16U16ForIter(op Opcode, slot int, pos token.Pos) int {
	c.emitOp(op, pos)
	c.emitByte(byte(slot), pos)
	at := len(c.fs.proto.Code)
	c.emitByte(0xff, pos)
	c.emitByte(0xff, pos)
	return at
}

func (c *Compiler) breakStmt() {
	pos := c.peek().Pos
	c.advance()
	if c.fs.loop == nil {
		c.errorAt(pos, "'break' outside of a loop")
		return
	}
	loop := c.fs.loop
	c.unwindLocalsTo(loop.bodyLocalsBase, pos)
	if loop.hasIter {
		c.emitU8(CloseIter, uint8(loop.iterSlot), pos)
	}
	j := c.emitJump(Jump, pos)
	loop.breakJumps = append(loop.breakJumps, j)
}

func (c *Compiler) continueStmt() {
	pos := c.peek().Pos
	c.advance()
	if c.fs.loop == nil {
		c.errorAt(pos, "'continue' outside of a loop")
		return
	}
	loop := c.fs.loop
	c.unwindLocalsTo(loop.bodyLocalsBase, pos)
	c.emitLoop(loop.continueTarget, pos)
}

func (c *Compiler) returnStmt() {
	pos := c.peek().Pos
	c.advance()
	if c.fs.kind == kindScript {
		c.errorAt(pos, "'return' outside of a function")
	}
	if atStatementEnd(c) {
		if c.fs.kind == kindInitializer {
			c.emitU8(GetLocal, 0, pos)
		} else {
			c.emitOp(Null, pos)
		}
	} else {
		if c.fs.kind == kindInitializer {
			c.errorAt(pos, "cannot return a value from an initializer")
		}
		c.expression()
	}
	c.emitOp(Return, pos)
}

// atStatementEnd reports whether the token at the cursor cannot start an
// expression, i.e. a bare `return`/`throw` with no operand.
func atStatementEnd(c *Compiler) bool {
	switch c.peek().Token {
	case token.EOF, token.RBRACE, token.VAR, token.FUNC, token.CLASS, token.IF,
		token.WHILE, token.FOR, token.RETURN, token.BREAK, token.CONTINUE,
		token.IMPORT, token.EXPORT, token.TRY, token.THROW, token.ENUM, token.GLOBAL:
		return true
	}
	return false
}

func (c *Compiler) throwStmt() {
	pos := c.peek().Pos
	c.advance()
	c.expression()
	c.emitOp(Throw, pos)
}

// tryStmt compiles `try { ... } [catch name { ... }] [finally { ... }]`
// into SetupTry/EndTry/EndFinally per spec.md §4.2/§4.5.
func (c *Compiler) tryStmt() {
	pos := c.peek().Pos
	c.advance() // 'try'

	setupAt := len(c.fs.proto.Code)
	c.emitOp(SetupTry, pos)
	catchPlaceholder := len(c.fs.proto.Code)
	c.emitU16Raw(0xffff, pos)
	finallyPlaceholder := len(c.fs.proto.Code)
	c.emitU16Raw(0xffff, pos)
	catchVarSlotAt := len(c.fs.proto.Code)
	c.emitByte(0, pos)
	_ = setupAt

	c.fs.beginScope()
	c.braceBlockBody()
	c.closeScope()
	c.emitOp(EndTry, c.prevPos())
	afterTryJump := c.emitJump(Jump, c.prevPos())

	catchIP := len(c.fs.proto.Code)
	hasCatch := false
	catchVarSlot := 0
	if c.match(token.CATCH) {
		hasCatch = true
		c.fs.beginScope()
		if c.check(token.IDENT) {
			name := c.advance()
			catchVarSlot = c.fs.declareLocal(name.Value.Raw)
		} else {
			catchVarSlot = c.fs.declareLocal("$err")
		}
		c.braceBlockBody()
		c.closeScope()
	}
	c.patchJump(afterTryJump)

	finallyIP := -1
	if c.match(token.FINALLY) {
		finallyIP = len(c.fs.proto.Code)
		c.fs.beginScope()
		c.braceBlockBody()
		c.closeScope()
		c.emitOp(EndFinally, c.prevPos())
	}

	if !hasCatch && finallyIP < 0 {
		c.errorAt(pos, "'try' requires a 'catch' or 'finally' clause")
	}

	catchTarget := -1
	if hasCatch {
		catchTarget = catchIP
	}
	patchU16(c.fs.proto.Code, catchPlaceholder, catchTarget)
	patchU16(c.fs.proto.Code, finallyPlaceholder, finallyIP)
	c.fs.proto.Code[catchVarSlotAt] = byte(catchVarSlot)
}

func patchU16(code []byte, at int, v int) {
	if v < 0 {
		code[at] = 0xff
		code[at+1] = 0xff
		return
	}
	code[at] = byte(v >> 8)
	code[at+1] = byte(v)
}

func (c *Compiler) importStmt() {
	pos := c.peek().Pos
	c.advance() // 'import'
	pathTok := c.expect(token.STRING, "as module path")
	alias := pathTok.Value.Raw
	if c.match(token.AS) {
		aliasTok := c.expect(token.IDENT, "after 'as'")
		alias = aliasTok.Value.Raw
	}
	pathIdx := c.constantString(pathTok.Value.Raw)
	aliasIdx := c.constantString(alias)
	c.emitU16U16(Import, uint16(pathIdx), uint16(aliasIdx), pos)
	c.declareVariable(alias, pos, false)
}

// exportStmt compiles `export NAME` (marking an existing module-level
// binding as exported) or `export var NAME = expr` / `export func NAME...`
// (declaring and exporting in one statement).
func (c *Compiler) exportStmt() {
	c.advance() // 'export'
	if c.fs.enclosing != nil || c.fs.scopeDepth > 0 {
		c.errorAt(c.prevPos(), "'export' is only valid at module top level")
	}
	if c.exports == nil {
		c.exports = make(map[string]bool)
	}
	switch c.peek().Token {
	case token.VAR:
		c.varDecl()
		c.exports[c.lastDeclaredName] = true
	case token.FUNC:
		c.funcDecl()
		c.exports[c.lastDeclaredName] = true
	case token.CLASS:
		c.classDecl()
		c.exports[c.lastDeclaredName] = true
	default:
		name := c.expect(token.IDENT, "after 'export'")
		c.exports[name.Value.Raw] = true
	}
}

func (c *Compiler) exprStmt() {
	pos := c.peek().Pos
	c.expression()
	c.emitOp(Pop, pos)
}
