package lexer_test

import (
	"testing"

	"github.com/mna/ember/lang/lexer"
	"github.com/mna/ember/lang/token"
	"github.com/stretchr/testify/require"
)

func tokens(t *testing.T, src string) []token.Token {
	t.Helper()
	toks, err := lexer.New(src).Tokens()
	require.NoError(t, err)
	kinds := make([]token.Token, len(toks))
	for i, tk := range toks {
		kinds[i] = tk.Token
	}
	return kinds
}

func TestScanBasics(t *testing.T) {
	got := tokens(t, "var x = 10 + y.z")
	require.Equal(t, []token.Token{
		token.VAR, token.IDENT, token.ASSIGN, token.NUMBER, token.PLUS,
		token.IDENT, token.DOT, token.IDENT, token.EOF,
	}, got)
}

func TestScanMultiCharOperators(t *testing.T) {
	got := tokens(t, "a == b != c <= d >= e && f || g ?? h ?. i ++ --")
	want := []token.Token{
		token.IDENT, token.EQ, token.IDENT, token.BANGEQ, token.IDENT, token.LE,
		token.IDENT, token.GE, token.IDENT, token.ANDAND, token.IDENT, token.OROR,
		token.IDENT, token.QQ, token.IDENT, token.QDOT, token.IDENT, token.INC,
		token.DEC, token.EOF,
	}
	require.Equal(t, want, got)
}

func TestScanComments(t *testing.T) {
	got := tokens(t, "1 // line comment\n/* block\n comment */ 2")
	require.Equal(t, []token.Token{token.NUMBER, token.NEWLINE, token.NUMBER, token.EOF}, got)
}

func TestScanInterpolatedString(t *testing.T) {
	toks, err := lexer.New(`"a{1+2}b{{c}}"`).Tokens()
	require.NoError(t, err)
	require.Equal(t, token.STRING, toks[0].Token)
	frags := toks[0].Value.Fragments
	require.Len(t, frags, 3)
	require.Equal(t, "a", frags[0].Str)
	require.Equal(t, "1+2", frags[1].Expr)
	require.Equal(t, "b{c}", frags[2].Str)
}

func TestUnterminatedString(t *testing.T) {
	_, err := lexer.New(`"abc`).Tokens()
	require.Error(t, err)
}

func TestNumberLiteral(t *testing.T) {
	toks, err := lexer.New("3.14 10 1e3 2.5e-2").Tokens()
	require.NoError(t, err)
	require.InDelta(t, 3.14, toks[0].Value.Number, 1e-9)
	require.InDelta(t, 10, toks[1].Value.Number, 1e-9)
	require.InDelta(t, 1000, toks[2].Value.Number, 1e-9)
	require.InDelta(t, 0.025, toks[3].Value.Number, 1e-9)
}

func TestKeywords(t *testing.T) {
	got := tokens(t, "func class if else while for in return try catch finally throw")
	want := []token.Token{
		token.FUNC, token.CLASS, token.IF, token.ELSE, token.WHILE, token.FOR,
		token.IN, token.RETURN, token.TRY, token.CATCH, token.FINALLY, token.THROW,
		token.EOF,
	}
	require.Equal(t, want, got)
}
