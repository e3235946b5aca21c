package vm

import (
	"github.com/mna/ember/lang/compiler"
	"github.com/mna/ember/lang/value"
)

// callValue dispatches a Call/Invoke/SuperInvoke target to the right kind
// of callable (spec.md §4.4): a script Function, a BoundMethod, a Class
// (constructor call) or a host NativeFunc.
func (th *Thread) callValue(callee value.Value, args []value.Value) (value.Value, error) {
	switch c := callee.(type) {
	case *value.Function:
		return th.callFunction(c, args)
	case *value.BoundMethod:
		return th.callFunction(c.Bind(), args)
	case *value.Class:
		return th.construct(c, args)
	case *value.NativeFunc:
		v, err := c.Fn(args)
		if err != nil {
			return nil, throwf("%s", err.Error())
		}
		if v == nil {
			v = value.Nil
		}
		return v, nil
	default:
		return nil, throwf("%s is not callable", value.TypeOf(callee))
	}
}

// construct implements calling a Class directly: allocate a new Instance,
// run its own (non-inherited) initializer if it has one, and return the
// instance regardless of what the initializer's bytecode happens to leave
// on the stack (the compiler already forces every initializer to end with
// `GetLocal 0; Return`, so callFunction's own result is already `this`, but
// construct does not rely on that for the no-initializer case).
func (th *Thread) construct(class *value.Class, args []value.Value) (value.Value, error) {
	inst := value.NewInstance(class)
	init, ok := class.Initializer()
	if !ok {
		if len(args) > 0 {
			return nil, throwf("class %s has no constructor accepting %d argument(s)", class.Name, len(args))
		}
		return inst, nil
	}
	bound := *init
	bound.Bound = inst
	if _, err := th.callFunction(&bound, args); err != nil {
		return nil, err
	}
	return inst, nil
}

// prepareSlots builds the initial local-slot contents for a new frame: slot
// 0 is `this` (or Null), parameters follow, missing trailing arguments are
// padded with Null and then overridden by any compile-time default recorded
// for that slot (spec.md §9's resolution of the default-parameter encoding
// open question), and a rest parameter collects any argument beyond arity
// into an Array.
func prepareSlots(proto *compiler.FunctionPrototype, this value.Value, args []value.Value) ([]value.Value, error) {
	arity := proto.Arity
	n := len(args)
	if !proto.HasRest && n > arity {
		name := proto.Name
		if name == "" {
			name = "<anonymous>"
		}
		return nil, throwf("function %s accepts at most %d argument(s) (%d given)", name, arity, n)
	}

	restSlot := 1 + arity
	size := restSlot
	if proto.HasRest {
		size++
	}
	slots := make([]value.Value, size)
	if this != nil {
		slots[0] = this
	} else {
		slots[0] = value.Nil
	}
	for i := 0; i < arity; i++ {
		if i < n {
			slots[i+1] = args[i]
		} else {
			slots[i+1] = value.Nil
		}
	}
	if proto.HasRest {
		var extra []value.Value
		if n > arity {
			extra = args[arity:]
		}
		slots[restSlot] = value.NewArray(extra)
	}
	for slot, k := range proto.Defaults {
		if slot < len(slots) {
			if _, isNull := slots[slot].(value.Null); isNull || slots[slot] == nil {
				slots[slot] = constantToValue(k)
			}
		}
	}
	return slots, nil
}

// callFunction pushes a new frame for fn, runs it to completion (or to an
// uncaught exception/cancellation), and pops it again.
func (th *Thread) callFunction(fn *value.Function, args []value.Value) (value.Value, error) {
	var this value.Value
	if fn.Bound != nil {
		this = fn.Bound
	}
	slots, err := prepareSlots(fn.Proto, this, args)
	if err != nil {
		return nil, err
	}

	fr := newFrame(fn)
	fr.stack = append(fr.stack, slots...)

	if err := th.pushFrame(fr); err != nil {
		return nil, throwf("%s", err.Error())
	}

	result, rerr := th.runFrame(fr)
	if rerr != nil {
		if st, ok := rerr.(*scriptThrow); ok && st.Frames == nil {
			st.Frames = th.captureFrames()
		}
	}
	fr.closeUpvaluesFrom(0)
	th.popFrame()
	return result, rerr
}

// captureFrames snapshots the active call stack, outermost first, for
// attachment to an exception or error report.
func (th *Thread) captureFrames() []FrameInfo {
	out := make([]FrameInfo, len(th.callStack))
	for i, fr := range th.callStack {
		out[i] = FrameInfo{Function: frameName(fr), Line: fr.Line()}
	}
	return out
}

// makeClosure implements the Closure opcode: build the upvalue array from
// proto's descriptor list (capturing locals of the enclosing frame or
// forwarding the enclosing function's own upvalues) and wrap it around
// proto into a new Function value.
func makeClosure(enclosing *Frame, proto *compiler.FunctionPrototype) *value.Function {
	ups := make([]*value.Upvalue, len(proto.Upvalues))
	for i, d := range proto.Upvalues {
		if d.IsLocal {
			ups[i] = enclosing.upvalueFor(int(d.Index))
		} else {
			ups[i] = enclosing.fn.Upvalues[d.Index]
		}
	}
	fn := &value.Function{Proto: proto, Upvalues: ups, Env: enclosing.fn.Env}
	fn.IsInit = proto.ClassName != "" && proto.Name == proto.ClassName
	return fn
}

func constantToValue(c compiler.Constant) value.Value {
	switch c.Tag {
	case compiler.ConstNull:
		return value.Nil
	case compiler.ConstNumber:
		return value.Number(c.Number)
	case compiler.ConstString:
		return value.NewString(c.String)
	case compiler.ConstBool:
		return value.Bool(c.Bool)
	default:
		return value.Nil
	}
}
