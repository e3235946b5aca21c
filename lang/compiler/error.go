package compiler

import (
	"fmt"

	"github.com/mna/ember/lang/token"
)

// Error is a single compile-time diagnostic: an unexpected token, an invalid
// assignment target, an arity/jump overflow, or a misplaced super/this use.
// Mirrors the lexer's own Error in shape (message + position) so hosts can
// treat lex and compile errors uniformly.
type Error struct {
	Pos token.Pos
	Msg string
}

func (e *Error) Error() string {
	line, col := e.Pos.LineCol()
	return fmt.Sprintf("%d:%d: %s", line, col, e.Msg)
}

// ErrorList aggregates every Error recorded during a compile, implementing
// error so a compile that fails with N problems still returns one error
// value to the caller.
type ErrorList []*Error

func (l ErrorList) Error() string {
	if len(l) == 0 {
		return "no errors"
	}
	if len(l) == 1 {
		return l[0].Error()
	}
	return fmt.Sprintf("%s (and %d more error(s))", l[0].Error(), len(l)-1)
}
