// Package host implements the bridge between host (Go) values/functions and
// script lang/value.Values: it converts primitive and composite Go values
// to and from Values, and builds delegate NativeFuncs that box/unbox
// arguments and return values around an arbitrary host function, per
// spec.md §4.4's "For a native function: invoke directly with (vm, args)"
// and Design Note 9's "delegate-to-callable bridge". Per spec.md §1, the
// higher-level host-facing convenience wrapper (a thin forwarding layer
// over vm.Thread's own entry points) is an external collaborator and is not
// implemented here; this package only does value conversion and callable
// construction.
package host

import (
	"fmt"
	"reflect"

	"github.com/mna/ember/lang/value"
	"github.com/mna/ember/lang/vm"
)

// ToValue converts a host Go value to its script Value counterpart. Nil
// becomes value.Nil; bool, every built-in integer/float kind, string,
// []any and map[string]any convert directly; an existing value.Value passes
// through unchanged; anything else is an error.
func ToValue(v interface{}) (value.Value, error) {
	switch vv := v.(type) {
	case nil:
		return value.Nil, nil
	case value.Value:
		return vv, nil
	case bool:
		return value.Bool(vv), nil
	case string:
		return value.NewString(vv), nil
	case int:
		return value.Number(vv), nil
	case int8:
		return value.Number(vv), nil
	case int16:
		return value.Number(vv), nil
	case int32:
		return value.Number(vv), nil
	case int64:
		return value.Number(vv), nil
	case uint:
		return value.Number(vv), nil
	case uint8:
		return value.Number(vv), nil
	case uint16:
		return value.Number(vv), nil
	case uint32:
		return value.Number(vv), nil
	case uint64:
		return value.Number(vv), nil
	case float32:
		return value.Number(vv), nil
	case float64:
		return value.Number(vv), nil
	case []interface{}:
		elems := make([]value.Value, len(vv))
		for i, e := range vv {
			ev, err := ToValue(e)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			elems[i] = ev
		}
		return value.NewArray(elems), nil
	case map[string]interface{}:
		d := value.NewDict(len(vv))
		for k, e := range vv {
			ev, err := ToValue(e)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			d.Set(k, ev)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("host: cannot convert %T to a script value", v)
	}
}

// FromValue converts a script Value back to a plain Go value: Null becomes
// nil, Bool/Number/String convert to their natural Go type, Array and Dict
// convert recursively to []interface{}/map[string]interface{}, and every
// other heap object (Function, Class, Instance, Module, …) is returned
// as-is so a host that round-trips callables through ToValue/FromValue
// keeps the original script reference.
func FromValue(v value.Value) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	switch vv := v.(type) {
	case value.Null:
		return nil, nil
	case value.Bool:
		return bool(vv), nil
	case value.Number:
		return float64(vv), nil
	case *value.String:
		return vv.Go(), nil
	case *value.Array:
		elems := vv.Elems()
		out := make([]interface{}, len(elems))
		for i, e := range elems {
			gv, err := FromValue(e)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = gv
		}
		return out, nil
	case *value.Dict:
		out := make(map[string]interface{}, vv.Len())
		for _, k := range vv.Keys() {
			sv, _ := vv.Get(k)
			gv, err := FromValue(sv)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out[k] = gv
		}
		return out, nil
	default:
		return v, nil
	}
}

// FuncVar wraps fn, which already uses the native calling convention
// ([]value.Value -> (value.Value, error)), as a named NativeFunc with no
// boxing overhead; used for host functions that want direct access to
// Values (e.g. a variadic print).
func FuncVar(name string, fn func(args []value.Value) (value.Value, error)) *value.NativeFunc {
	return &value.NativeFunc{Name: name, Fn: fn}
}

// Func0 wraps a zero-argument host function as a NativeFunc, the
// specialised fast path Design Note 9 calls for (avoiding reflection for
// the most common arities).
func Func0(name string, fn func() (interface{}, error)) *value.NativeFunc {
	return &value.NativeFunc{Name: name, Fn: func(args []value.Value) (value.Value, error) {
		if len(args) != 0 {
			return nil, fmt.Errorf("%s: expected 0 arguments, got %d", name, len(args))
		}
		out, err := fn()
		if err != nil {
			return nil, err
		}
		return ToValue(out)
	}}
}

// Func1 is Func0's one-argument counterpart.
func Func1(name string, fn func(a value.Value) (interface{}, error)) *value.NativeFunc {
	return &value.NativeFunc{Name: name, Fn: func(args []value.Value) (value.Value, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("%s: expected 1 argument, got %d", name, len(args))
		}
		out, err := fn(args[0])
		if err != nil {
			return nil, err
		}
		return ToValue(out)
	}}
}

// Func2 is Func0's two-argument counterpart.
func Func2(name string, fn func(a, b value.Value) (interface{}, error)) *value.NativeFunc {
	return &value.NativeFunc{Name: name, Fn: func(args []value.Value) (value.Value, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("%s: expected 2 arguments, got %d", name, len(args))
		}
		out, err := fn(args[0], args[1])
		if err != nil {
			return nil, err
		}
		return ToValue(out)
	}}
}

// errType and valueType let Wrap recognise a reflected host function's
// trailing `error` result and Value-typed parameters/results without
// needing the concrete value.Value interface value to compare against.
var (
	errType   = reflect.TypeOf((*error)(nil)).Elem()
	valueType = reflect.TypeOf((*value.Value)(nil)).Elem()
)

// Wrap builds a NativeFunc around an arbitrary host Go function using
// reflection: each script argument is converted to the function's declared
// parameter type via FromValue (or passed through unconverted if the
// parameter type is value.Value or satisfies it), and the function's
// results are converted back with ToValue. A trailing error result, if
// present, is propagated as a script throw (spec.md §7: "Host-native
// functions may raise; their exception is converted to a script-level
// throw"). This is the general fallback behind the Func0/Func1/Func2 fast
// paths, used when a host registers a function whose signature isn't one
// of those shapes.
func Wrap(name string, fn interface{}) (*value.NativeFunc, error) {
	fv := reflect.ValueOf(fn)
	ft := fv.Type()
	if ft.Kind() != reflect.Func {
		return nil, fmt.Errorf("host: Wrap(%q): %T is not a function", name, fn)
	}
	if ft.IsVariadic() {
		return nil, fmt.Errorf("host: Wrap(%q): variadic host functions are not supported, use FuncVar", name)
	}

	nout := ft.NumOut()
	hasErr := nout > 0 && ft.Out(nout-1).Implements(errType)
	nresult := nout
	if hasErr {
		nresult--
	}
	if nresult > 1 {
		return nil, fmt.Errorf("host: Wrap(%q): at most one non-error return value is supported", name)
	}

	return &value.NativeFunc{Name: name, Fn: func(args []value.Value) (value.Value, error) {
		if len(args) != ft.NumIn() {
			return nil, fmt.Errorf("%s: expected %d argument(s), got %d", name, ft.NumIn(), len(args))
		}
		in := make([]reflect.Value, ft.NumIn())
		for i := 0; i < ft.NumIn(); i++ {
			pt := ft.In(i)
			if pt == valueType || (pt.Kind() == reflect.Interface && reflect.TypeOf(args[i]).Implements(pt)) {
				in[i] = reflect.ValueOf(args[i])
				continue
			}
			gv, err := FromValue(args[i])
			if err != nil {
				return nil, fmt.Errorf("%s: argument %d: %w", name, i, err)
			}
			argVal := reflect.ValueOf(gv)
			if !argVal.IsValid() {
				argVal = reflect.Zero(pt)
			} else if !argVal.Type().AssignableTo(pt) {
				if argVal.Type().ConvertibleTo(pt) {
					argVal = argVal.Convert(pt)
				} else {
					return nil, fmt.Errorf("%s: argument %d: cannot use %s as %s", name, i, argVal.Type(), pt)
				}
			}
			in[i] = argVal
		}

		out := fv.Call(in)
		if hasErr {
			if errv := out[nout-1].Interface(); errv != nil {
				return nil, errv.(error)
			}
		}
		if nresult == 0 {
			return value.Nil, nil
		}
		return ToValue(out[0].Interface())
	}}, nil
}

// Delegate adapts a script-level callable into a plain Go function value
// with the signature func(args ...interface{}) (interface{}, error), so
// host code holding a Value obtained from a running script (a callback
// passed to a host API, for instance) can invoke it without importing
// lang/vm call machinery directly.
func Delegate(th *vm.Thread, callee value.Value) func(args ...interface{}) (interface{}, error) {
	return func(args ...interface{}) (interface{}, error) {
		vargs := make([]value.Value, len(args))
		for i, a := range args {
			v, err := ToValue(a)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i, err)
			}
			vargs[i] = v
		}
		result, err := th.Call(callee, vargs)
		if err != nil {
			return nil, err
		}
		return FromValue(result)
	}
}
