package value_test

import (
	"testing"

	"github.com/mna/ember/lang/value"
	"github.com/stretchr/testify/require"
)

func TestTruthy(t *testing.T) {
	require.False(t, value.Nil.Truthy())
	require.False(t, value.False.Truthy())
	require.True(t, value.True.Truthy())
	require.False(t, value.Number(0).Truthy())
	require.True(t, value.Number(1).Truthy())
	require.True(t, value.NewArray(nil).Truthy())
}

func TestEqualByTag(t *testing.T) {
	require.True(t, value.Equal(value.Nil, value.Nil))
	require.False(t, value.Equal(value.Number(0), value.False))
	require.True(t, value.Equal(value.Number(1), value.Number(1)))
	require.False(t, value.Equal(value.Number(1), value.Number(2)))
}

func TestShortStringInterning(t *testing.T) {
	value.ResetGlobalInternPool()
	a := value.NewString("hello")
	b := value.NewString("hello")
	require.True(t, a == b, "short strings with equal content must share a reference")
	require.True(t, value.Equal(a, b))
}

func TestLongStringContentEquality(t *testing.T) {
	long := make([]byte, 100)
	for i := range long {
		long[i] = 'x'
	}
	a := value.NewString(string(long))
	b := value.NewString(string(long))
	require.False(t, a == b, "long strings are unique instances")
	require.True(t, value.Equal(a, b), "but still compare equal by content")
}

func TestArrayOutOfRange(t *testing.T) {
	a := value.NewArray([]value.Value{value.Number(1)})
	require.Equal(t, value.Nil, a.Get(5))
	a.Set(3, value.Number(9))
	require.Equal(t, 4, a.Len())
	require.Equal(t, value.Nil, a.Get(1))
	require.Equal(t, value.Number(9), a.Get(3))
}

func TestDictInsertionOrder(t *testing.T) {
	d := value.NewDict(0)
	d.Set("c", value.Number(3))
	d.Set("a", value.Number(1))
	d.Set("b", value.Number(2))
	d.Set("a", value.Number(10)) // update, keeps original position
	require.Equal(t, []string{"c", "a", "b"}, d.Keys())

	var got []string
	it := d.Iterate()
	var v value.Value
	for it.Next(&v) {
		got = append(got, value.ToString(v))
	}
	require.Equal(t, []string{"c", "a", "b"}, got)
}

func TestEnvironmentScopeChain(t *testing.T) {
	root := value.Root()
	root.Define("x", value.Number(1))
	child := value.NewEnvironment(root)
	child.Define("y", value.Number(2))

	v, ok := child.Get("x")
	require.True(t, ok)
	require.Equal(t, value.Number(1), v)

	child.Set("x", value.Number(5))
	v, _ = root.Get("x")
	require.Equal(t, value.Number(5), v, "Set should walk up to the defining scope")

	child.Set("z", value.Number(9))
	_, ok = root.Get("z")
	require.False(t, ok, "undefined Set defines locally, not at root")
}

func TestUpvalueOpenThenClose(t *testing.T) {
	stack := make([]value.Value, 4)
	stack[1] = value.Number(42)
	uv := value.NewOpenUpvalue(stack, 1)
	require.Equal(t, value.Number(42), uv.Get())

	stack[1] = value.Number(43)
	require.Equal(t, value.Number(43), uv.Get(), "open upvalue observes live stack slot")

	uv.Close()
	stack[1] = value.Number(99)
	require.Equal(t, value.Number(43), uv.Get(), "closed upvalue keeps the last observed value")
}
