package compiler_test

import (
	"strings"
	"testing"

	"github.com/mna/ember/lang/compiler"
	"github.com/stretchr/testify/require"
)

func TestDisassembleSimpleArithmetic(t *testing.T) {
	proto, err := compiler.Compile("var x = 1 + 2\n")
	require.NoError(t, err)

	out := compiler.Disassemble(proto)
	require.Contains(t, out, "== <script>")
	require.Contains(t, out, "const")
	require.Contains(t, out, "add")
	require.Contains(t, out, "define_global")
}

func TestDisassembleJumpShowsTarget(t *testing.T) {
	proto, err := compiler.Compile("if true { var x = 1 } else { var y = 2 }\n")
	require.NoError(t, err)

	out := compiler.Disassemble(proto)
	require.Contains(t, out, "jump_if_false")
	require.Contains(t, out, "->")
}

func TestDisassembleClosureRecursesIntoNestedProto(t *testing.T) {
	proto, err := compiler.Compile(`
var adder = (n) => {
	return (x) => { return x + n }
}
`)
	require.NoError(t, err)

	out := compiler.Disassemble(proto)
	require.Contains(t, out, "closure")
	// The outer script, plus the lambda assigned to adder, plus the inner
	// lambda it returns: three prototype headers, each framed by a pair of
	// "==" markers. The inner lambda captures n, which sits in slot 1 of the
	// outer lambda (slot 0 is reserved in every function).
	require.Equal(t, 6, strings.Count(out, "=="))
	require.Contains(t, out, "[local 1]")
}

func TestDisassembleAnnotatesConstantIndices(t *testing.T) {
	proto, err := compiler.Compile(`var s = "hello"`)
	require.NoError(t, err)

	out := compiler.Disassemble(proto)
	require.Contains(t, out, `"hello"`)
}

func TestDisassembleLocalSlotsAnnotatedWithNames(t *testing.T) {
	proto, err := compiler.CompileExpr("(x) => x")
	require.NoError(t, err)

	// A bare lambda expression's own prototype is a nested ConstProto
	// constant of the CompileExpr wrapper; disassemble the wrapper so the
	// closure recursion reaches it and prints its named parameter slot.
	out := compiler.Disassemble(proto)
	require.Contains(t, out, "get_local")
}
