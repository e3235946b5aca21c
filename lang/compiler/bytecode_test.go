package compiler_test

import (
	"testing"

	"github.com/mna/ember/lang/compiler"
	"github.com/stretchr/testify/require"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	nested := &compiler.FunctionPrototype{
		Name:      "inner",
		Arity:     1,
		NumLocals: 1,
		Code:      []byte{byte(compiler.GetLocal), 0, byte(compiler.Return)},
		Constants: []compiler.Constant{{Tag: compiler.ConstNumber, Number: 3.5}},
		Lines:     []compiler.LineEntry{{Offset: 0, Line: 1}},
		Upvalues:  []compiler.UpvalueDesc{{IsLocal: true, Index: 0}},
	}
	p := &compiler.FunctionPrototype{
		Name:      "",
		Arity:     0,
		NumLocals: 2,
		Code:      []byte{byte(compiler.Const), 0, 0, byte(compiler.Pop), byte(compiler.Return)},
		Constants: []compiler.Constant{
			{Tag: compiler.ConstNull},
			{Tag: compiler.ConstBool, Bool: true},
			{Tag: compiler.ConstString, String: "hello"},
			{Tag: compiler.ConstProto, Proto: nested},
		},
		Lines: []compiler.LineEntry{{Offset: 0, Line: 1}, {Offset: 3, Line: 2}},
	}

	data := compiler.Save(p)
	require.Equal(t, []byte{'M', 'P', 'B', 'C'}, data[:4])
	require.Equal(t, byte(compiler.Version), data[4])

	got, err := compiler.Load(data)
	require.NoError(t, err)
	require.Equal(t, p.Arity, got.Arity)
	require.Equal(t, p.NumLocals, got.NumLocals)
	require.Equal(t, p.Code, got.Code)
	require.Equal(t, p.Lines, got.Lines)
	require.Len(t, got.Constants, 4)
	require.Equal(t, compiler.ConstNull, got.Constants[0].Tag)
	require.True(t, got.Constants[1].Bool)
	require.Equal(t, "hello", got.Constants[2].String)

	gotNested := got.Constants[3].Proto
	require.Equal(t, "inner", gotNested.Name)
	require.Equal(t, 1, gotNested.Arity)
	require.Equal(t, nested.Code, gotNested.Code)
	require.Equal(t, nested.Upvalues, gotNested.Upvalues)
	require.Len(t, gotNested.Constants, 1)
	require.InDelta(t, 3.5, gotNested.Constants[0].Number, 0)
}

func TestLoadRejectsBadMagic(t *testing.T) {
	_, err := compiler.Load([]byte{'X', 'X', 'X', 'X', compiler.Version})
	require.Error(t, err)
}

func TestLoadRejectsBadVersion(t *testing.T) {
	_, err := compiler.Load([]byte{'M', 'P', 'B', 'C', 99})
	require.Error(t, err)
}

func TestLoadRejectsTruncated(t *testing.T) {
	p := &compiler.FunctionPrototype{Code: []byte{byte(compiler.Return)}}
	data := compiler.Save(p)
	_, err := compiler.Load(data[:len(data)-2])
	require.Error(t, err)
}
