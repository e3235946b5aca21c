package compiler

import (
	"github.com/mna/ember/lang/lexer"
	"github.com/mna/ember/lang/token"
)

// primaryTarget parses one primary expression and returns an assignTarget:
// a deferred identifier/property/index/super marker for the forms that can
// be assignment targets, or valueTarget once its (non-assignable) bytecode
// has already been emitted. The bool result is false only on a parse error
// where no progress was possible.
func (c *Compiler) primaryTarget() (assignTarget, bool) {
	tok := c.peek()
	pos := tok.Pos
	switch tok.Token {
	case token.NUMBER:
		c.advance()
		c.emitU16(Const, uint16(c.constantNumber(tok.Value.Number)), pos)
		return valueTarget{}, true
	case token.STRING:
		c.advance()
		c.compileString(tok)
		return valueTarget{}, true
	case token.TRUE:
		c.advance()
		c.emitOp(True, pos)
		return valueTarget{}, true
	case token.FALSE:
		c.advance()
		c.emitOp(False, pos)
		return valueTarget{}, true
	case token.NULL:
		c.advance()
		c.emitOp(Null, pos)
		return valueTarget{}, true
	case token.THIS:
		c.advance()
		if c.fs.kind != kindMethod && c.fs.kind != kindInitializer {
			c.errorAt(pos, "'this' used outside of a method")
		}
		c.emitOp(This, pos)
		return valueTarget{}, true
	case token.SUPER:
		c.advance()
		return superMarker{pos: pos}, true
	case token.IDENT:
		c.advance()
		return identifierTarget{name: tok.Value.Raw, pos: pos}, true
	case token.LBRACK:
		c.arrayLiteral()
		return valueTarget{}, true
	case token.LBRACE:
		c.dictLiteral()
		return valueTarget{}, true
	case token.LPAREN:
		if c.isLambdaAhead() {
			c.lambda()
			return valueTarget{}, true
		}
		c.advance()
		c.expression()
		c.expect(token.RPAREN, "after grouped expression")
		return valueTarget{}, true
	default:
		c.errorAt(pos, "expected expression, found "+tok.Token.String())
		c.advance()
		return nil, false
	}
}

func (c *Compiler) arrayLiteral() {
	pos := c.peek().Pos
	c.expect(token.LBRACK, "to start array literal")
	var n int
	for !c.check(token.RBRACK) && !c.check(token.EOF) {
		c.expression()
		n++
		if n > 65535 {
			c.errorAt(c.peek().Pos, "too many array elements")
		}
		if !c.match(token.COMMA) {
			break
		}
	}
	c.expect(token.RBRACK, "to close array literal")
	c.emitU16(NewArray, uint16(n), pos)
}

// dictLiteral compiles `{ key: value, ... }`, where key is either a bare
// identifier or a string literal, into NewObject followed by one
// Dup;value;SetField sequence per pair (spec.md §3's "Dict (also 'object
// literal')").
func (c *Compiler) dictLiteral() {
	pos := c.peek().Pos
	c.expect(token.LBRACE, "to start object literal")
	c.emitOp(NewObject, pos)
	for !c.check(token.RBRACE) && !c.check(token.EOF) {
		var key string
		var keyPos token.Pos
		switch {
		case c.check(token.IDENT):
			t := c.advance()
			key, keyPos = t.Value.Raw, t.Pos
		case c.check(token.STRING):
			t := c.advance()
			key, keyPos = stringLiteralText(t), t.Pos
		default:
			c.errorAt(c.peek().Pos, "expected object literal key")
			c.advance()
			continue
		}
		c.expect(token.COLON, "after object literal key")
		c.emitOp(Dup, keyPos)
		c.expression()
		c.emitU16(SetField, uint16(c.constantString(key)), keyPos)
		if !c.match(token.COMMA) {
			break
		}
	}
	c.expect(token.RBRACE, "to close object literal")
}

func stringLiteralText(t lexer.Tok) string {
	var s string
	for _, f := range t.Value.Fragments {
		if f.Expr == "" {
			s += f.Str
		}
	}
	return s
}

// compileString compiles a (possibly interpolated) string literal token,
// emitting plain Const(string) when it has no embedded expressions, or
// compiling each fragment and concatenating with BuildString N otherwise.
func (c *Compiler) compileString(tok lexer.Tok) {
	frags := tok.Value.Fragments
	if len(frags) == 0 {
		c.emitU16(Const, uint16(c.constantString("")), tok.Pos)
		return
	}
	if len(frags) == 1 && frags[0].Expr == "" {
		c.emitU16(Const, uint16(c.constantString(frags[0].Str)), tok.Pos)
		return
	}
	for _, f := range frags {
		if f.Expr == "" {
			c.emitU16(Const, uint16(c.constantString(f.Str)), tok.Pos)
			continue
		}
		c.compileInterpolationExpr(f.Expr, tok.Pos)
	}
	c.emitU16(BuildString, uint16(len(frags)), tok.Pos)
}

// compileInterpolationExpr lexes and compiles the source text of one {EXPR}
// fragment, temporarily redirecting the compiler's token cursor to the
// fragment's own token stream so it can still resolve locals/upvalues of
// the enclosing function.
func (c *Compiler) compileInterpolationExpr(src string, pos token.Pos) {
	lx := lexer.New(src)
	toks, err := lx.Tokens()
	if err != nil {
		c.errorAt(pos, "invalid interpolation expression: "+err.Error())
	}
	var filtered []lexer.Tok
	for _, t := range toks {
		if t.Token == token.NEWLINE || t.Token == token.SEMI {
			continue
		}
		filtered = append(filtered, t)
	}
	if len(filtered) == 0 || filtered[len(filtered)-1].Token != token.EOF {
		filtered = append(filtered, lexer.Tok{Token: token.EOF})
	}

	savedToks, savedPos := c.toks, c.pos
	c.toks, c.pos = filtered, 0
	c.expression()
	if !c.check(token.EOF) {
		c.errorAt(c.peek().Pos, "unexpected trailing tokens in interpolation expression")
	}
	c.toks, c.pos = savedToks, savedPos
}
