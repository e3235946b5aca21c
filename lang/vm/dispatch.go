package vm

import (
	"strings"

	"github.com/mna/ember/lang/compiler"
	"github.com/mna/ember/lang/value"
)

// runFrame is the VM's fetch-decode loop: it executes fr's bytecode to
// completion (a Return), to an uncaught exception, or to cancellation. The
// overall control shape - decode one instruction, let it optionally set
// inFlightErr, then funnel every error through one post-switch handler
// search - follows the teacher's lang/machine.go run loop (its own
// inFlightErr/break-loop/post-loop handler search, there built around
// Starlark's binding errors rather than try/catch).
func (th *Thread) runFrame(fr *Frame) (value.Value, error) {
	for {
		if th.Debug != nil && th.Debug.BeforeInstruction(th, fr) {
			th.Debug.Resume(th)
		}
		if err := th.checkBudget(); err != nil {
			return nil, &CancelledError{Reason: err.Error()}
		}

		op := compiler.Opcode(fr.fn.Proto.Code[fr.pc])
		fr.pc++

		var inFlightErr error

		switch op {
		case compiler.Pop:
			fr.pop()
		case compiler.Dup:
			inFlightErr = fr.dup()
		case compiler.Dup2:
			n := len(fr.stack)
			a, b := fr.stack[n-2], fr.stack[n-1]
			if err := fr.push(a); err == nil {
				inFlightErr = fr.push(b)
			} else {
				inFlightErr = err
			}
		case compiler.Swap:
			n := len(fr.stack)
			fr.stack[n-1], fr.stack[n-2] = fr.stack[n-2], fr.stack[n-1]
		case compiler.SwapUnder:
			n := len(fr.stack)
			fr.stack[n-2], fr.stack[n-3] = fr.stack[n-3], fr.stack[n-2]
		case compiler.Rot3Under:
			n := len(fr.stack)
			top := fr.stack[n-1]
			fr.stack[n-1] = fr.stack[n-2]
			fr.stack[n-2] = fr.stack[n-3]
			fr.stack[n-3] = top

		case compiler.Const:
			idx := fr.readU16()
			inFlightErr = fr.push(constantToValue(fr.fn.Proto.Constants[idx]))
		case compiler.Null:
			inFlightErr = fr.push(value.Nil)
		case compiler.True:
			inFlightErr = fr.push(value.True)
		case compiler.False:
			inFlightErr = fr.push(value.False)

		case compiler.GetLocal:
			slot := fr.readU8()
			inFlightErr = fr.push(fr.stack[slot])
		case compiler.SetLocal:
			slot := fr.readU8()
			fr.stack[slot] = fr.peek()
		case compiler.GetGlobal:
			idx := fr.readU16()
			name := fr.constantString(idx)
			v, ok := fr.fn.Env.Get(name)
			if !ok {
				inFlightErr = throwf("undefined variable %q", name)
				break
			}
			inFlightErr = fr.push(v)
		case compiler.SetGlobal:
			idx := fr.readU16()
			fr.fn.Env.Set(fr.constantString(idx), fr.peek())
		case compiler.DefineGlobal:
			idx := fr.readU16()
			fr.fn.Env.Define(fr.constantString(idx), fr.pop())
		case compiler.DefineRootGlobal:
			idx := fr.readU16()
			th.Globals.Define(fr.constantString(idx), fr.pop())
		case compiler.GetUpvalue:
			idx := fr.readU8()
			inFlightErr = fr.push(fr.fn.Upvalues[idx].Get())
		case compiler.SetUpvalue:
			idx := fr.readU8()
			fr.fn.Upvalues[idx].Set(fr.peek())
		case compiler.CloseUpvalue:
			fr.closeUpvalueAt(len(fr.stack) - 1)
			fr.pop()

		case compiler.Add, compiler.Sub, compiler.Mul, compiler.Div, compiler.Mod,
			compiler.BitAnd, compiler.BitOr, compiler.BitXor, compiler.Shl, compiler.Shr,
			compiler.Eq, compiler.Ne, compiler.Lt, compiler.Le, compiler.Gt, compiler.Ge,
			compiler.And, compiler.Or:
			b, a := fr.pop(), fr.pop()
			v, err := binaryOp(op, a, b)
			if err != nil {
				inFlightErr = err
				break
			}
			inFlightErr = fr.push(v)
		case compiler.Neg:
			v, err := unaryNeg(fr.pop())
			if err != nil {
				inFlightErr = err
				break
			}
			inFlightErr = fr.push(v)
		case compiler.BitNot:
			v, err := unaryBitNot(fr.pop())
			if err != nil {
				inFlightErr = err
				break
			}
			inFlightErr = fr.push(v)
		case compiler.Not:
			inFlightErr = fr.push(value.Bool(!value.Truthy(fr.pop())))

		case compiler.Jump:
			d := fr.readI16()
			fr.pc += int(d)
		case compiler.JumpIfFalse:
			d := fr.readI16()
			if !value.Truthy(fr.peek()) {
				fr.pc += int(d)
			}
		case compiler.JumpIfTrue:
			d := fr.readI16()
			if value.Truthy(fr.peek()) {
				fr.pc += int(d)
			}
		case compiler.JumpIfNotNull:
			d := fr.readI16()
			if _, isNull := fr.peek().(value.Null); !isNull {
				fr.pc += int(d)
			}
		case compiler.Loop:
			d := fr.readU16()
			fr.pc -= int(d)

		case compiler.Call:
			argc := int(fr.readU8())
			args := append([]value.Value(nil), fr.popN(argc)...)
			callee := fr.pop()
			result, err := th.callValue(callee, args)
			if err != nil {
				inFlightErr = err
				break
			}
			inFlightErr = fr.push(result)
		case compiler.Return:
			// A script/module top-level body ends with a bare Return (no value
			// pushed ahead of it, since 'return' itself is rejected at that
			// scope) - only a function or method body's Return always has an
			// operand on the stack beneath it.
			if len(fr.stack) == 0 {
				return value.Nil, nil
			}
			return fr.pop(), nil
		case compiler.Closure:
			idx := fr.readU16()
			count := fr.readU8()
			for i := 0; i < int(count); i++ {
				fr.readU8()
				fr.readU16()
			}
			proto := fr.fn.Proto.Constants[idx].Proto
			inFlightErr = fr.push(makeClosure(fr, proto))

		case compiler.NewArray:
			n := int(fr.readU16())
			elems := append([]value.Value(nil), fr.popN(n)...)
			inFlightErr = fr.push(value.NewArray(elems))
		case compiler.NewObject:
			inFlightErr = fr.push(value.NewDict(4))
		case compiler.GetField:
			idx := fr.readU16()
			name := fr.constantString(idx)
			obj := fr.pop()
			d, ok := obj.(*value.Dict)
			if !ok {
				inFlightErr = throwf("%s has no field %q", value.TypeOf(obj), name)
				break
			}
			if v, ok := d.Get(name); ok {
				inFlightErr = fr.push(v)
			} else {
				inFlightErr = fr.push(value.Nil)
			}
		case compiler.SetField:
			idx := fr.readU16()
			name := fr.constantString(idx)
			v := fr.pop()
			obj := fr.pop()
			d, ok := obj.(*value.Dict)
			if !ok {
				inFlightErr = throwf("%s does not support field assignment", value.TypeOf(obj))
				break
			}
			d.Set(name, v)
		case compiler.GetIndex:
			idx := fr.pop()
			obj := fr.pop()
			v, err := getIndex(obj, idx)
			if err != nil {
				inFlightErr = err
				break
			}
			inFlightErr = fr.push(v)
		case compiler.SetIndex:
			v := fr.pop()
			idx := fr.pop()
			obj := fr.pop()
			if err := setIndex(obj, idx, v); err != nil {
				inFlightErr = err
				break
			}
			inFlightErr = fr.push(v)

		case compiler.Class:
			idx := fr.readU16()
			inFlightErr = fr.push(value.NewClass(fr.constantString(idx)))
		case compiler.Inherit:
			super := fr.pop()
			cls, _ := fr.pop().(*value.Class)
			sc, ok := super.(*value.Class)
			if !ok {
				inFlightErr = throwf("superclass must be a class, got %s", value.TypeOf(super))
				break
			}
			cls.Super = sc
			inFlightErr = fr.push(cls)
		case compiler.Method:
			idx := fr.readU16()
			name := fr.constantString(idx)
			fn, _ := fr.pop().(*value.Function)
			cls, _ := fr.pop().(*value.Class)
			fn.OwningClass = cls
			cls.Methods[name] = fn
		case compiler.StaticMethod:
			idx := fr.readU16()
			name := fr.constantString(idx)
			fn, _ := fr.pop().(*value.Function)
			cls, _ := fr.pop().(*value.Class)
			fn.OwningClass = cls
			cls.StaticMethods[name] = fn
		case compiler.StaticField:
			idx := fr.readU16()
			name := fr.constantString(idx)
			v := fr.pop()
			cls, _ := fr.pop().(*value.Class)
			cls.StaticFields[name] = v
		case compiler.GetProperty:
			idx := fr.readU16()
			obj := fr.pop()
			v, err := getProperty(obj, fr.constantString(idx))
			if err != nil {
				inFlightErr = err
				break
			}
			inFlightErr = fr.push(v)
		case compiler.SetProperty:
			idx := fr.readU16()
			v := fr.pop()
			obj := fr.pop()
			if err := setProperty(obj, fr.constantString(idx), v); err != nil {
				inFlightErr = err
				break
			}
			inFlightErr = fr.push(v)
		case compiler.GetSuper:
			idx := fr.readU16()
			name := fr.constantString(idx)
			this, _ := fr.pop().(*value.Instance)
			super := fr.fn.OwningClass.Super
			m, ok := super.FindMethod(name)
			if !ok {
				inFlightErr = throwf("superclass %s has no method %q", super.Name, name)
				break
			}
			bound := *m
			bound.Bound = this
			inFlightErr = fr.push(&bound)
		case compiler.Invoke:
			idx := fr.readU16()
			argc := int(fr.readU8())
			name := fr.constantString(idx)
			args := append([]value.Value(nil), fr.popN(argc)...)
			recv := fr.pop()
			result, err := th.invoke(recv, name, args)
			if err != nil {
				inFlightErr = err
				break
			}
			inFlightErr = fr.push(result)
		case compiler.SuperInvoke:
			idx := fr.readU16()
			argc := int(fr.readU8())
			name := fr.constantString(idx)
			args := append([]value.Value(nil), fr.popN(argc)...)
			this, _ := fr.pop().(*value.Instance)
			super := fr.fn.OwningClass.Super
			m, ok := super.FindMethod(name)
			if !ok {
				inFlightErr = throwf("superclass %s has no method %q", super.Name, name)
				break
			}
			bound := *m
			bound.Bound = this
			result, err := th.callFunction(&bound, args)
			if err != nil {
				inFlightErr = err
				break
			}
			inFlightErr = fr.push(result)

		case compiler.Import:
			pidx := fr.readU16()
			aidx := fr.readU16()
			_ = aidx
			mod, err := th.importModule(fr.constantString(pidx))
			if err != nil {
				inFlightErr = throwf("%s", err.Error())
				break
			}
			inFlightErr = fr.push(mod)
		case compiler.This:
			inFlightErr = fr.push(fr.stack[0])
		case compiler.BuildString:
			n := int(fr.readU16())
			parts := fr.popN(n)
			var b strings.Builder
			for _, p := range parts {
				b.WriteString(value.ToString(p))
			}
			inFlightErr = fr.push(value.NewString(b.String()))

		case compiler.GetIter:
			it, err := makeIterator(fr.pop())
			if err != nil {
				inFlightErr = err
				break
			}
			inFlightErr = fr.push(it)
		case compiler.ForIter:
			dist := int16(fr.readU16())
			st, _ := fr.peek().(*iterState)
			var v value.Value
			if st.it.Next(&v) {
				inFlightErr = fr.push(v)
			} else {
				st.it.Done()
				fr.pop()
				fr.pc += int(dist)
			}
		case compiler.ForIterKV:
			dist := int16(fr.readU16())
			st, _ := fr.peek().(*iterState)
			var k, v value.Value
			ok := false
			if kv, isKV := st.it.(value.KVIterator); isKV {
				ok = kv.NextKV(&k, &v)
			} else {
				ok = st.it.Next(&v)
				k = v
			}
			if ok {
				if err := fr.push(k); err == nil {
					inFlightErr = fr.push(v)
				} else {
					inFlightErr = err
				}
			} else {
				st.it.Done()
				fr.pop()
				fr.pc += int(dist)
			}
		case compiler.ForIterLocal:
			slot := int(fr.readU8())
			dist := fr.readI16()
			st, _ := fr.stack[slot].(*iterState)
			var v value.Value
			if st.it.Next(&v) {
				fr.stack[slot+1] = v
			} else {
				st.it.Done()
				fr.pc += int(dist)
			}
		case compiler.ForIterKVLocal:
			slot := int(fr.readU8())
			dist := fr.readI16()
			st, _ := fr.stack[slot].(*iterState)
			var k, v value.Value
			ok := false
			if kv, isKV := st.it.(value.KVIterator); isKV {
				ok = kv.NextKV(&k, &v)
			} else {
				ok = st.it.Next(&v)
				k = v
			}
			if ok {
				fr.stack[slot+1] = k
				fr.stack[slot+2] = v
			} else {
				st.it.Done()
				fr.pc += int(dist)
			}
		case compiler.CloseIter:
			slot := fr.readU8()
			if st, ok := fr.stack[slot].(*iterState); ok {
				st.it.Done()
			}

		case compiler.SetupTry:
			catchPC := absPC(fr.readU16())
			finallyPC := absPC(fr.readU16())
			catchSlot := int(fr.readU8())
			fr.handlers = append(fr.handlers, &tryHandler{
				catchPC: catchPC, finallyPC: finallyPC,
				catchSlot: catchSlot, stackBase: len(fr.stack),
			})
		case compiler.Throw:
			inFlightErr = &scriptThrow{Value: fr.pop()}
		case compiler.EndTry:
			if len(fr.handlers) > 0 {
				fr.handlers = fr.handlers[:len(fr.handlers)-1]
			}
		case compiler.EndFinally:
			if fr.pendingThrow != nil {
				v := *fr.pendingThrow
				fr.pendingThrow = nil
				inFlightErr = &scriptThrow{Value: v}
			}

		default:
			inFlightErr = throwf("illegal opcode %s", op)
		}

		if inFlightErr == nil {
			continue
		}
		if _, ok := inFlightErr.(*CancelledError); ok {
			return nil, inFlightErr
		}
		st, ok := inFlightErr.(*scriptThrow)
		if !ok {
			st = &scriptThrow{Value: value.NewString(inFlightErr.Error())}
		}
		if handleException(fr, st) {
			continue
		}
		return nil, st
	}
}

// absPC translates SetupTry's 0xffff "absent clause" sentinel to -1.
func absPC(v uint16) int {
	if v == 0xffff {
		return -1
	}
	return int(v)
}

// invoke resolves and calls recv.name(args...) in one step: a direct
// instance-method or static-method dispatch bypasses materializing a
// BoundMethod (spec.md §4.4's Invoke fusion); anything else (a field or
// static field holding a callable, a module function, ...) falls back to
// a plain property read followed by a generic call.
func (th *Thread) invoke(recv value.Value, name string, args []value.Value) (value.Value, error) {
	if fn, this, ok := invokeTarget(recv, name); ok {
		bound := *fn
		if this != nil {
			bound.Bound = this.(*value.Instance)
		}
		return th.callFunction(&bound, args)
	}
	callee, err := getProperty(recv, name)
	if err != nil {
		return nil, err
	}
	return th.callValue(callee, args)
}

func (th *Thread) importModule(path string) (*value.Module, error) {
	if mod, ok := th.CachedModule(path); ok {
		return mod, nil
	}
	if th.Load == nil {
		return nil, throwf("import: no module loader configured")
	}
	mod, err := th.Load(th, path)
	if err != nil {
		return nil, err
	}
	th.CacheModule(path, mod)
	return mod, nil
}
