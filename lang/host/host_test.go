package host_test

import (
	"errors"
	"testing"

	"github.com/mna/ember/lang/host"
	"github.com/mna/ember/lang/value"
	"github.com/mna/ember/lang/vm"
	"github.com/stretchr/testify/require"
)

func TestToValuePrimitives(t *testing.T) {
	v, err := host.ToValue(42)
	require.NoError(t, err)
	require.Equal(t, value.Number(42), v)

	v, err = host.ToValue("hi")
	require.NoError(t, err)
	require.Equal(t, "hi", value.ToString(v))

	v, err = host.ToValue(nil)
	require.NoError(t, err)
	require.Equal(t, value.Nil, v)

	v, err = host.ToValue([]interface{}{1, "a", true})
	require.NoError(t, err)
	arr, ok := v.(*value.Array)
	require.True(t, ok)
	require.Equal(t, 3, arr.Len())
	require.Equal(t, value.Number(1), arr.Get(0))
}

func TestToValueRejectsUnknownType(t *testing.T) {
	_, err := host.ToValue(struct{ X int }{X: 1})
	require.Error(t, err)
}

func TestFromValueRoundTrip(t *testing.T) {
	d := value.NewDict(0)
	d.Set("a", value.Number(1))
	d.Set("b", value.NewString("x"))

	out, err := host.FromValue(d)
	require.NoError(t, err)
	m, ok := out.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, 1.0, m["a"])
	require.Equal(t, "x", m["b"])
}

func TestFunc1(t *testing.T) {
	double := host.Func1("double", func(a value.Value) (interface{}, error) {
		n, ok := a.(value.Number)
		if !ok {
			return nil, errors.New("double: expected a number")
		}
		return float64(n) * 2, nil
	})

	out, err := double.Fn([]value.Value{value.Number(21)})
	require.NoError(t, err)
	require.Equal(t, value.Number(42), out)

	_, err = double.Fn(nil)
	require.Error(t, err)
}

func TestWrapConvertsArgsAndResult(t *testing.T) {
	nf, err := host.Wrap("add", func(a, b float64) (float64, error) {
		return a + b, nil
	})
	require.NoError(t, err)

	out, err := nf.Fn([]value.Value{value.Number(2), value.Number(3)})
	require.NoError(t, err)
	require.Equal(t, value.Number(5), out)
}

func TestWrapPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	nf, err := host.Wrap("fails", func() (int, error) { return 0, boom })
	require.NoError(t, err)

	_, err = nf.Fn(nil)
	require.ErrorIs(t, err, boom)
}

func TestWrapRejectsVariadic(t *testing.T) {
	_, err := host.Wrap("bad", func(a ...int) int { return 0 })
	require.Error(t, err)
}

func TestDelegateCallsScriptFunction(t *testing.T) {
	globals := value.Root()
	th := vm.NewThread(globals)

	_, err := th.Run(`global add = (a, b) => { return a + b }`)
	require.NoError(t, err)

	fn, ok := globals.Get("add")
	require.True(t, ok)

	del := host.Delegate(th, fn)
	out, err := del(3.0, 4.0)
	require.NoError(t, err)
	require.Equal(t, 7.0, out)
}
