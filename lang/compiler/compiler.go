package compiler

import (
	"fmt"

	"github.com/mna/ember/lang/lexer"
	"github.com/mna/ember/lang/token"
)

// Compiler turns a token stream directly into a FunctionPrototype tree with
// no intermediate AST, performing scope analysis (locals/upvalues/globals)
// as statements and expressions are parsed. One Compiler compiles one
// source unit (script or module); nested function bodies are compiled
// in-line by pushing a new funcState.
type Compiler struct {
	toks []lexer.Tok
	pos  int
	errs ErrorList

	fs *funcState

	// exports is non-nil as soon as an `export` statement is seen at module
	// top level; its presence flips the top-level prototype from "export
	// everything" to "export only what's named".
	exports map[string]bool

	// lastDeclaredName records the name bound by the most recent
	// declareVariable call, so `export var/func/class ...` can mark it
	// exported without threading the name back through each *Decl method.
	lastDeclaredName string
}

// Compile lexes and compiles source into the top-level FunctionPrototype
// representing the implicit outer script/module function. Compile errors
// are collected and returned together as an ErrorList; a non-nil prototype
// is still returned (best-effort) so tooling can inspect partial output.
func Compile(source string) (*FunctionPrototype, error) {
	lx := lexer.New(source)
	toks, lexErr := lx.Tokens()
	c := &Compiler{}
	for _, t := range toks {
		if t.Token == token.NEWLINE || t.Token == token.SEMI {
			continue
		}
		c.toks = append(c.toks, t)
	}
	if len(c.toks) == 0 || c.toks[len(c.toks)-1].Token != token.EOF {
		c.toks = append(c.toks, lexer.Tok{Token: token.EOF})
	}

	c.fs = newFuncState(nil, kindScript, "")
	c.block(func() bool { return c.check(token.EOF) })
	c.emitOp(Return, c.prevPos())
	c.fs.proto.NumLocals = max(c.fs.proto.NumLocals, len(c.fs.locals))
	c.fs.proto.MaxStack = c.fs.maxStack
	if c.exports != nil {
		c.fs.proto.Exports = c.exports
	}

	var err error
	if lexErr != nil {
		c.errs = append(c.errs, &Error{Msg: lexErr.Error()})
	}
	if len(c.errs) > 0 {
		err = c.errs
	}
	return c.fs.proto, err
}

// CompileExpr lexes and compiles source as a single expression whose value
// becomes the Return operand, used by the host's eval() entry point
// (spec.md §6: "compiles expr as a function body with a single return").
// Unlike Compile, the returned prototype is kindFunction rather than
// kindScript, since a bare top-level `return` is otherwise rejected.
func CompileExpr(source string) (*FunctionPrototype, error) {
	lx := lexer.New(source)
	toks, lexErr := lx.Tokens()
	c := &Compiler{}
	for _, t := range toks {
		if t.Token == token.NEWLINE || t.Token == token.SEMI {
			continue
		}
		c.toks = append(c.toks, t)
	}
	if len(c.toks) == 0 || c.toks[len(c.toks)-1].Token != token.EOF {
		c.toks = append(c.toks, lexer.Tok{Token: token.EOF})
	}

	c.fs = newFuncState(nil, kindFunction, "")
	pos := c.peek().Pos
	c.expression()
	c.emitOp(Return, pos)
	if !c.check(token.EOF) {
		c.errorAt(c.peek().Pos, fmt.Sprintf("unexpected token %s after expression", c.peek().Token))
	}
	c.fs.proto.NumLocals = max(c.fs.proto.NumLocals, len(c.fs.locals))
	c.fs.proto.MaxStack = c.fs.maxStack

	var err error
	if lexErr != nil {
		c.errs = append(c.errs, &Error{Msg: lexErr.Error()})
	}
	if len(c.errs) > 0 {
		err = c.errs
	}
	return c.fs.proto, err
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// ---- token stream helpers ----

func (c *Compiler) peek() lexer.Tok  { return c.toks[c.pos] }
func (c *Compiler) prevPos() token.Pos {
	if c.pos == 0 {
		return c.toks[0].Pos
	}
	return c.toks[c.pos-1].Pos
}

func (c *Compiler) check(tt token.Token) bool { return c.peek().Token == tt }

func (c *Compiler) advance() lexer.Tok {
	t := c.toks[c.pos]
	if t.Token != token.EOF {
		c.pos++
	}
	return t
}

func (c *Compiler) match(tt token.Token) bool {
	if c.check(tt) {
		c.advance()
		return true
	}
	return false
}

func (c *Compiler) expect(tt token.Token, context string) lexer.Tok {
	if c.check(tt) {
		return c.advance()
	}
	c.errorAt(c.peek().Pos, fmt.Sprintf("expected %s %s, found %s", tt, context, c.peek().Token))
	return c.peek()
}

func (c *Compiler) errorAt(pos token.Pos, msg string) {
	c.errs = append(c.errs, &Error{Pos: pos, Msg: msg})
}

// synchronize skips tokens until a likely statement boundary, to avoid a
// cascade of spurious errors after one real syntax error.
func (c *Compiler) synchronize() {
	for !c.check(token.EOF) {
		switch c.peek().Token {
		case token.VAR, token.FUNC, token.CLASS, token.IF, token.WHILE, token.FOR,
			token.RETURN, token.TRY, token.THROW, token.IMPORT, token.EXPORT,
			token.RBRACE:
			return
		}
		c.advance()
	}
}

// block compiles statements until stop() reports true (either EOF or a
// closing brace), without its own scope (callers that need a new lexical
// scope open one first).
func (c *Compiler) block(stop func() bool) {
	for !stop() && !c.check(token.EOF) {
		before := c.pos
		c.statement()
		if c.pos == before {
			// Parser made no progress; avoid an infinite loop on unexpected input.
			c.errorAt(c.peek().Pos, fmt.Sprintf("unexpected token %s", c.peek().Token))
			c.advance()
			c.synchronize()
		}
	}
}

func (c *Compiler) braceBlock() {
	c.expect(token.LBRACE, "to start block")
	c.fs.beginScope()
	c.block(func() bool { return c.check(token.RBRACE) })
	c.closeScope()
	c.expect(token.RBRACE, "to close block")
}

// closeScope pops the compiler's current lexical scope, emitting
// CloseUpvalue for captured locals and Pop for the rest.
func (c *Compiler) closeScope() {
	popped := c.fs.endScope()
	pos := c.prevPos()
	for i := len(popped) - 1; i >= 0; i-- {
		if popped[i].isCaptured {
			c.emitOp(CloseUpvalue, pos)
		} else {
			c.emitOp(Pop, pos)
		}
	}
}
