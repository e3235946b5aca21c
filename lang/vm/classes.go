package vm

import "github.com/mna/ember/lang/value"

// getProperty implements GetProperty/GetField and the non-fused half of
// `.name` access (spec.md §4.4): instance field-then-method lookup, class
// static-field-then-method-then-superclass lookup, and export-filtered
// module member access. Every other receiver kind is a runtime error: the
// language has no built-in properties on arrays/strings/dicts/ranges (those
// live in the out-of-scope standard library, spec.md §1).
func getProperty(receiver value.Value, name string) (value.Value, error) {
	switch r := receiver.(type) {
	case *value.Instance:
		if v, ok := r.GetField(name); ok {
			return v, nil
		}
		return nil, throwf("instance of %s has no field or method %q", r.Class.Name, name)
	case *value.Class:
		if v, ok := r.FindStaticField(name); ok {
			return v, nil
		}
		if m, ok := r.FindStaticMethod(name); ok {
			return m, nil
		}
		return nil, throwf("class %s has no static member %q", r.Name, name)
	case *value.Module:
		return r.Get(name), nil
	case *value.GlobalTable:
		if v, ok := r.Get(name); ok {
			return v, nil
		}
		return value.Nil, nil
	default:
		return nil, throwf("%s has no properties", value.TypeOf(receiver))
	}
}

// setProperty implements SetProperty/SetField: instance fields are always
// instance-local; class static-field writes land on that class directly
// (not walked up the superclass chain, unlike reads).
func setProperty(receiver value.Value, name string, v value.Value) error {
	switch r := receiver.(type) {
	case *value.Instance:
		r.SetField(name, v)
		return nil
	case *value.Class:
		r.StaticFields[name] = v
		return nil
	case *value.GlobalTable:
		r.Set(name, v)
		return nil
	default:
		return throwf("%s has no settable properties", value.TypeOf(receiver))
	}
}

// getIndex implements GetIndex: array/string-by-number, dict-by-string.
func getIndex(receiver, index value.Value) (value.Value, error) {
	switch r := receiver.(type) {
	case *value.Array:
		i, err := indexNumber(index)
		if err != nil {
			return nil, err
		}
		return r.Get(i), nil
	case *value.Dict:
		k, err := indexString(index)
		if err != nil {
			return nil, err
		}
		if v, ok := r.Get(k); ok {
			return v, nil
		}
		return value.Nil, nil
	case *value.String:
		i, err := indexNumber(index)
		if err != nil {
			return nil, err
		}
		s := r.Go()
		if i < 0 || i >= len(s) {
			return value.Nil, nil
		}
		return value.NewString(string(s[i])), nil
	default:
		return nil, throwf("%s is not indexable", value.TypeOf(receiver))
	}
}

// setIndex implements SetIndex: array writes grow (per value.Array.Set),
// dict writes insert-or-update.
func setIndex(receiver, index, v value.Value) error {
	switch r := receiver.(type) {
	case *value.Array:
		i, err := indexNumber(index)
		if err != nil {
			return err
		}
		if i < 0 {
			return throwf("negative array index %d", i)
		}
		r.Set(i, v)
		return nil
	case *value.Dict:
		k, err := indexString(index)
		if err != nil {
			return err
		}
		r.Set(k, v)
		return nil
	default:
		return throwf("%s does not support index assignment", value.TypeOf(receiver))
	}
}

func indexNumber(v value.Value) (int, error) {
	n, ok := v.(value.Number)
	if !ok {
		return 0, throwf("index must be a number, got %s", value.TypeOf(v))
	}
	return int(n), nil
}

func indexString(v value.Value) (string, error) {
	s, ok := v.(*value.String)
	if !ok {
		return "", throwf("key must be a string, got %s", value.TypeOf(v))
	}
	return s.Go(), nil
}

// invokeTarget resolves `receiver.name(...)` to a directly-callable Function
// plus its bound `this` (possibly nil), without materializing a BoundMethod
// object, per spec.md §4.2's Invoke/SuperInvoke fusion. direct is false when
// name instead resolves to a plain field/static value, which the caller
// should fall back to calling generically through callValue.
func invokeTarget(receiver value.Value, name string) (fn *value.Function, this value.Value, direct bool) {
	switch r := receiver.(type) {
	case *value.Instance:
		if _, isField := r.Fields[name]; isField {
			return nil, nil, false
		}
		if m, ok := r.Class.FindMethod(name); ok {
			return m, r, true
		}
	case *value.Class:
		if m, ok := r.FindStaticMethod(name); ok {
			return m, nil, true
		}
	}
	return nil, nil, false
}

// makeIterator converts the GetIter operand into an iterState, the runtime
// representation living in a for-in loop's reserved local slot.
func makeIterator(v value.Value) (*iterState, error) {
	it, ok := v.(value.Iterable)
	if !ok {
		return nil, throwf("%s is not iterable", value.TypeOf(v))
	}
	return &iterState{it: it.Iterate()}, nil
}
