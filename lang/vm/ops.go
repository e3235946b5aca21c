package vm

import (
	"github.com/mna/ember/lang/compiler"
	"github.com/mna/ember/lang/value"
)

// binaryOp implements the arithmetic/bitwise/comparison opcodes that take
// two operands (spec.md §4.3). Add is overloaded for string concatenation
// when either side is a string, matching the + operator's string-coercion
// rule documented on value.ToString; every other arithmetic/bitwise opcode
// requires both operands to be numbers.
func binaryOp(op compiler.Opcode, a, b value.Value) (value.Value, error) {
	switch op {
	case compiler.Add:
		if isString(a) || isString(b) {
			return value.NewString(value.ToString(a) + value.ToString(b)), nil
		}
		x, y, err := numbers(a, b)
		if err != nil {
			return nil, err
		}
		return value.Number(x + y), nil
	case compiler.Sub:
		x, y, err := numbers(a, b)
		if err != nil {
			return nil, err
		}
		return value.Number(x - y), nil
	case compiler.Mul:
		x, y, err := numbers(a, b)
		if err != nil {
			return nil, err
		}
		return value.Number(x * y), nil
	case compiler.Div:
		x, y, err := numbers(a, b)
		if err != nil {
			return nil, err
		}
		if y == 0 {
			return nil, throwf("division by zero")
		}
		return value.Number(x / y), nil
	case compiler.Mod:
		x, y, err := numbers(a, b)
		if err != nil {
			return nil, err
		}
		if y == 0 {
			return nil, throwf("division by zero")
		}
		return value.Number(intMod(x, y)), nil
	case compiler.BitAnd:
		x, y, err := ints(a, b)
		if err != nil {
			return nil, err
		}
		return value.Number(float64(x & y)), nil
	case compiler.BitOr:
		x, y, err := ints(a, b)
		if err != nil {
			return nil, err
		}
		return value.Number(float64(x | y)), nil
	case compiler.BitXor:
		x, y, err := ints(a, b)
		if err != nil {
			return nil, err
		}
		return value.Number(float64(x ^ y)), nil
	case compiler.Shl:
		x, y, err := ints(a, b)
		if err != nil {
			return nil, err
		}
		return value.Number(float64(x << uint(y))), nil
	case compiler.Shr:
		x, y, err := ints(a, b)
		if err != nil {
			return nil, err
		}
		return value.Number(float64(x >> uint(y))), nil
	case compiler.Eq:
		return value.Bool(value.Equal(a, b)), nil
	case compiler.Ne:
		return value.Bool(!value.Equal(a, b)), nil
	case compiler.Lt:
		return compare(a, b, func(c int) bool { return c < 0 })
	case compiler.Le:
		return compare(a, b, func(c int) bool { return c <= 0 })
	case compiler.Gt:
		return compare(a, b, func(c int) bool { return c > 0 })
	case compiler.Ge:
		return compare(a, b, func(c int) bool { return c >= 0 })
	case compiler.And:
		return value.Bool(value.Truthy(a) && value.Truthy(b)), nil
	case compiler.Or:
		return value.Bool(value.Truthy(a) || value.Truthy(b)), nil
	default:
		return nil, throwf("unsupported binary operator %s", op)
	}
}

func isString(v value.Value) bool { _, ok := v.(*value.String); return ok }

func numbers(a, b value.Value) (float64, float64, error) {
	x, ok := a.(value.Number)
	if !ok {
		return 0, 0, throwf("expected a number, got %s", value.TypeOf(a))
	}
	y, ok := b.(value.Number)
	if !ok {
		return 0, 0, throwf("expected a number, got %s", value.TypeOf(b))
	}
	return float64(x), float64(y), nil
}

func ints(a, b value.Value) (int64, int64, error) {
	x, y, err := numbers(a, b)
	if err != nil {
		return 0, 0, err
	}
	return int64(x), int64(y), nil
}

func intMod(x, y float64) float64 {
	xi, yi := int64(x), int64(y)
	return float64(xi % yi)
}

func compare(a, b value.Value, ok func(int) bool) (value.Value, error) {
	if as, aok := a.(*value.String); aok {
		bs, bok := b.(*value.String)
		if !bok {
			return nil, throwf("cannot compare string with %s", value.TypeOf(b))
		}
		c := 0
		switch {
		case as.Go() < bs.Go():
			c = -1
		case as.Go() > bs.Go():
			c = 1
		}
		return value.Bool(ok(c)), nil
	}
	x, y, err := numbers(a, b)
	if err != nil {
		return nil, err
	}
	c := 0
	switch {
	case x < y:
		c = -1
	case x > y:
		c = 1
	}
	return value.Bool(ok(c)), nil
}

func unaryNeg(v value.Value) (value.Value, error) {
	n, ok := v.(value.Number)
	if !ok {
		return nil, throwf("expected a number, got %s", value.TypeOf(v))
	}
	return -n, nil
}

func unaryBitNot(v value.Value) (value.Value, error) {
	n, ok := v.(value.Number)
	if !ok {
		return nil, throwf("expected a number, got %s", value.TypeOf(v))
	}
	return value.Number(float64(^int64(n))), nil
}
