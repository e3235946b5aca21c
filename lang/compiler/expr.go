package compiler

import (
	"github.com/mna/ember/lang/lexer"
	"github.com/mna/ember/lang/token"
)

// precedence levels, lowest to highest.
const (
	precNone = iota
	precAssignment
	precTernary
	precNullCoalesce
	precOr
	precAnd
	precBitOr
	precBitXor
	precBitAnd
	precEquality
	precComparison
	precShift
	precAdditive
	precMultiplicative
	precUnary
	precPostfix
	precPrimary
)

type binOp struct {
	prec int
	op   Opcode
}

var binOps = map[token.Token]binOp{
	token.OROR:    {precOr, 0},
	token.ANDAND:  {precAnd, 0},
	token.PIPE:    {precBitOr, BitOr},
	token.CARET:   {precBitXor, BitXor},
	token.AMP:     {precBitAnd, BitAnd},
	token.EQ:      {precEquality, Eq},
	token.BANGEQ:  {precEquality, Ne},
	token.LT:      {precComparison, Lt},
	token.LE:      {precComparison, Le},
	token.GT:      {precComparison, Gt},
	token.GE:      {precComparison, Ge},
	token.SHL:     {precShift, Shl},
	token.SHR:     {precShift, Shr},
	token.PLUS:    {precAdditive, Add},
	token.MINUS:   {precAdditive, Sub},
	token.STAR:    {precMultiplicative, Mul},
	token.SLASH:   {precMultiplicative, Div},
	token.PERCENT: {precMultiplicative, Mod},
}

var compoundAssignOps = map[token.Token]Opcode{
	token.PLUSEQ:    Add,
	token.MINUSEQ:   Sub,
	token.STAREQ:    Mul,
	token.SLASHEQ:   Div,
	token.PERCENTEQ: Mod,
}

// expression compiles one full expression (the lowest precedence level),
// leaving exactly one value on the operand stack.
func (c *Compiler) expression() { c.parsePrecedence(precAssignment) }

func (c *Compiler) parsePrecedence(min int) {
	canAssign := min <= precAssignment
	c.unary(canAssign)

	for {
		tt := c.peek().Token
		if tt == token.QUESTION {
			if precTernary < min {
				break
			}
			c.ternary()
			continue
		}
		if tt == token.QQ {
			if precNullCoalesce < min {
				break
			}
			c.nullCoalesce()
			continue
		}
		b, ok := binOps[tt]
		if !ok || b.prec < min {
			break
		}
		pos := c.peek().Pos
		c.advance()
		switch tt {
		case token.OROR:
			c.logicalOr(pos)
		case token.ANDAND:
			c.logicalAnd(pos)
		default:
			c.parsePrecedence(b.prec + 1)
			c.emitOp(b.op, pos)
		}
	}
}

func (c *Compiler) logicalAnd(pos token.Pos) {
	endJump := c.emitJump(JumpIfFalse, pos)
	c.emitOp(Pop, pos)
	c.parsePrecedence(precAnd + 1)
	c.patchJump(endJump)
}

func (c *Compiler) logicalOr(pos token.Pos) {
	endJump := c.emitJump(JumpIfTrue, pos)
	c.emitOp(Pop, pos)
	c.parsePrecedence(precOr + 1)
	c.patchJump(endJump)
}

func (c *Compiler) nullCoalesce() {
	pos := c.peek().Pos
	c.advance() // '??'
	endJump := c.emitJump(JumpIfNotNull, pos)
	c.emitOp(Pop, pos)
	c.parsePrecedence(precNullCoalesce + 1)
	c.patchJump(endJump)
}

func (c *Compiler) ternary() {
	pos := c.peek().Pos
	c.advance() // '?'
	thenJump := c.emitJump(JumpIfFalse, pos)
	c.emitOp(Pop, pos)
	c.parsePrecedence(precAssignment)
	elseJump := c.emitJump(Jump, pos)
	c.expect(token.COLON, "in ternary expression")
	c.patchJump(thenJump)
	c.emitOp(Pop, pos)
	c.parsePrecedence(precTernary)
	c.patchJump(elseJump)
}

// unary compiles prefix operators (! - ~ ++ --) and falls through to
// postfix/primary.
func (c *Compiler) unary(canAssign bool) {
	switch c.peek().Token {
	case token.BANG:
		pos := c.advance().Pos
		c.parsePrecedence(precUnary)
		c.emitOp(Not, pos)
	case token.MINUS:
		pos := c.advance().Pos
		c.parsePrecedence(precUnary)
		c.emitOp(Neg, pos)
	case token.TILDE:
		pos := c.advance().Pos
		c.parsePrecedence(precUnary)
		c.emitOp(BitNot, pos)
	case token.INC, token.DEC:
		c.prefixIncDec()
	default:
		c.postfix(canAssign)
	}
}

func (c *Compiler) prefixIncDec() {
	tok := c.advance()
	delta := 1.0
	if tok.Token == token.DEC {
		delta = -1.0
	}
	target := c.parseAssignTarget()
	switch target.(type) {
	case propertyTarget:
		c.emitOp(Dup, tok.Pos)
	case indexTarget:
		c.emitOp(Dup2, tok.Pos)
	}
	target.emitGet(c)
	c.emitU16(Const, uint16(c.constantNumber(delta)), tok.Pos)
	c.emitOp(Add, tok.Pos)
	target.emitSetDup(c)
}

// postfix compiles a primary expression followed by any chain of `.name`,
// `[expr]`, `?.name`, `?[expr]`, `(args)`, or trailing `++`/`--`. When
// canAssign, an assignment operator immediately following the final
// accessor is handled here, matching spec.md §4.2's assignment-target
// grammar (identifier, member, index).
func (c *Compiler) postfix(canAssign bool) {
	target, isTarget := c.primaryTarget()
	if !isTarget {
		return
	}
	for {
		switch c.peek().Token {
		case token.DOT:
			c.advance()
			name := c.expect(token.IDENT, "after '.'")
			if _, ok := target.(superMarker); ok {
				target = superTarget{name: name.Value.Raw, pos: name.Pos}
				continue
			}
			target.emitGet(c)
			target = propertyTarget{base: target, name: name.Value.Raw, pos: name.Pos}
		case token.QDOT:
			c.advance()
			name := c.expect(token.IDENT, "after '?.'")
			target.emitGet(c)
			takeJump := c.emitJump(JumpIfNotNull, name.Pos)
			c.emitOp(Pop, name.Pos)
			c.emitOp(Null, name.Pos)
			endJump := c.emitJump(Jump, name.Pos)
			c.patchJump(takeJump)
			c.emitU16(GetProperty, uint16(c.constantString(name.Value.Raw)), name.Pos)
			c.patchJump(endJump)
			target = valueTarget{}
		case token.LBRACK:
			pos := c.advance().Pos
			target.emitGet(c)
			c.expression()
			c.expect(token.RBRACK, "after index expression")
			target = indexTarget{base: target, pos: pos}
		case token.QBRACK:
			pos := c.advance().Pos
			target.emitGet(c)
			takeJump := c.emitJump(JumpIfNotNull, pos)
			c.emitOp(Pop, pos)
			c.emitOp(Null, pos)
			endJump := c.emitJump(Jump, pos)
			c.patchJump(takeJump)
			c.expression()
			c.expect(token.RBRACK, "after index expression")
			c.emitOp(GetIndex, pos)
			c.patchJump(endJump)
			target = valueTarget{}
		case token.LPAREN:
			pos := c.peek().Pos
			target = c.call(target, pos)
		case token.INC, token.DEC:
			if !canAssign {
				return
			}
			op := c.advance()
			c.postIncDec(target, op)
			return
		default:
			if canAssign {
				if c.tryAssignment(target) {
					return
				}
			}
			target.emitGet(c)
			return
		}
	}
}

func (c *Compiler) postIncDec(target assignTarget, op lexer.Tok) {
	delta := 1.0
	if op.Token == token.DEC {
		delta = -1.0
	}
	target.emitGet(c)
	c.emitOp(Dup, op.Pos)
	c.emitU16(Const, uint16(c.constantNumber(delta)), op.Pos)
	c.emitOp(Add, op.Pos)
	target.emitSetNoPush(c)
}

// tryAssignment checks for `=` or a compound-assignment operator following
// target and, if present, compiles the assignment and returns true. On
// false, no tokens were consumed and the caller must still emit target's
// get sequence.
func (c *Compiler) tryAssignment(target assignTarget) bool {
	if c.check(token.ASSIGN) {
		pos := c.advance().Pos
		c.expression()
		target.emitSetDup(c)
		_ = pos
		return true
	}
	if op, ok := compoundAssignOps[c.peek().Token]; ok {
		pos := c.advance().Pos
		switch target.(type) {
		case propertyTarget:
			c.emitOp(Dup, pos)
		case indexTarget:
			c.emitOp(Dup2, pos)
		}
		target.emitGet(c)
		c.expression()
		c.emitOp(op, pos)
		target.emitSetDup(c)
		return true
	}
	return false
}

// parseAssignTarget parses exactly one postfix target chain (for prefix
// ++/-- ) without consuming a trailing call or assignment.
func (c *Compiler) parseAssignTarget() assignTarget {
	target, _ := c.primaryTarget()
	for {
		switch c.peek().Token {
		case token.DOT:
			c.advance()
			name := c.expect(token.IDENT, "after '.'")
			target.emitGet(c)
			target = propertyTarget{base: target, name: name.Value.Raw, pos: name.Pos}
		case token.LBRACK:
			pos := c.advance().Pos
			target.emitGet(c)
			c.expression()
			c.expect(token.RBRACK, "after index expression")
			target = indexTarget{base: target, pos: pos}
		default:
			return target
		}
	}
}

// call compiles `(args)` applied to target, fusing obj.method(args) into
// Invoke and super.method(args) into SuperInvoke per spec.md §4.2/§4.4.
func (c *Compiler) call(target assignTarget, pos token.Pos) assignTarget {
	switch t := target.(type) {
	case propertyTarget:
		// t.base's value is already on the stack: the postfix loop's DOT case
		// emits it before wrapping the target as propertyTarget (see
		// assigntarget.go's propertyTarget doc comment). Re-emitting it here
		// would push the receiver twice for a call that only consumes one.
		argc := c.argumentList()
		c.emitU16U8(Invoke, uint16(c.constantString(t.name)), argc, pos)
		return valueTarget{}
	case superTarget:
		c.emitOp(This, pos)
		argc := c.argumentList()
		c.emitU16U8(SuperInvoke, uint16(c.constantString(t.name)), argc, pos)
		return valueTarget{}
	default:
		target.emitGet(c)
		argc := c.argumentList()
		c.emitU8(Call, argc, pos)
		return valueTarget{}
	}
}
