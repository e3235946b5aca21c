package lexer

import (
	"strings"

	"github.com/mna/ember/lang/token"
)

// scanInterpolatedString scans a double-quoted string literal, splitting it
// into plain-text and {EXPR} fragments per the language's interpolation
// rules: `{{` and `\{` escape a literal brace, and a bare `{` opens an
// embedded expression that runs to its matching `}` (nesting braces and
// strings are tracked so that an expression containing its own object
// literal or nested interpolation does not terminate early).
func (l *Lexer) scanInterpolatedString() Tok {
	pos := l.pos()
	l.advance() // opening quote

	var frags []token.Fragment
	var plain strings.Builder

	flushPlain := func() {
		if plain.Len() > 0 {
			frags = append(frags, token.Fragment{Str: unquoteEscapes(plain.String())})
			plain.Reset()
		}
	}

	for {
		switch {
		case l.cur < 0 || l.cur == '\n':
			l.errorf(pos, "unterminated string literal")
			return Tok{Token: token.STRING, Pos: pos, Value: token.Value{Fragments: frags}}
		case l.cur == '"':
			l.advance()
			flushPlain()
			return Tok{Token: token.STRING, Pos: pos, Value: token.Value{Fragments: frags}}
		case l.cur == '\\':
			plain.WriteByte('\\')
			l.advance()
			if l.cur >= 0 {
				plain.WriteRune(l.cur)
				l.advance()
			}
		case l.cur == '{' && l.peekByte() == '{':
			plain.WriteByte('{')
			l.advance()
			l.advance()
		case l.cur == '}' && l.peekByte() == '}':
			plain.WriteByte('}')
			l.advance()
			l.advance()
		case l.cur == '{':
			flushPlain()
			expr := l.scanInterpolationExpr()
			frags = append(frags, token.Fragment{Expr: expr})
		default:
			plain.WriteRune(l.cur)
			l.advance()
		}
	}
}

// scanInterpolationExpr consumes a `{` EXPR `}` block (the opening brace has
// already been seen but not consumed) and returns the raw source text of
// EXPR, to be compiled as a nested expression by the compiler.
func (l *Lexer) scanInterpolationExpr() string {
	l.advance() // '{'
	start := l.off
	depth := 1
	for depth > 0 {
		switch {
		case l.cur < 0:
			l.errorf(l.pos(), "unterminated interpolation expression")
			return l.src[start:l.off]
		case l.cur == '{':
			depth++
			l.advance()
		case l.cur == '}':
			depth--
			if depth == 0 {
				text := l.src[start:l.off]
				l.advance() // closing '}'
				return text
			}
			l.advance()
		case l.cur == '"':
			// skip over a nested string literal so its braces are not counted.
			l.advance()
			for l.cur >= 0 && l.cur != '"' {
				if l.cur == '\\' {
					l.advance()
				}
				if l.cur >= 0 {
					l.advance()
				}
			}
			if l.cur == '"' {
				l.advance()
			}
		case l.cur == '\n':
			l.advance()
			l.bumpLine()
		default:
			l.advance()
		}
	}
	return l.src[start:l.off]
}
