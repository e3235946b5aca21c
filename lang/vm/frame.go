package vm

import (
	"fmt"

	"github.com/mna/ember/lang/value"
)

// stackCap is the fixed operand-stack capacity reserved for every frame.
//
// Locals and temporaries share one stack per frame (clox-style: a declared
// local's slot IS the stack position the variable's initializer already
// pushed, never a separately allocated array), so GetLocal/SetLocal index
// directly into fr.stack and CloseScope's Pop/CloseUpvalue sequence is
// simply popping that same stack. value.Upvalue captures an open upvalue as
// a (slice, index) pair that must keep observing live writes for as long as
// the frame exists, so the backing array must never move: fr.stack is
// preallocated at this fixed capacity and grown only by re-slicing, never by
// a reallocating append past it. The compiler's funcState.maxStack/curStack
// fields exist for this purpose but are never incremented by any emit call
// (see DESIGN.md); rather than retrofit push/pop accounting into every emit
// site, this fixed generous capacity is used instead, and exceeding it is a
// reported stack-overflow runtime error rather than silent reallocation.
const stackCap = 512

// tryHandler is one active try/catch/finally region within a frame, pushed
// by SetupTry and popped by EndTry when the try body completes, or by
// handleException when the handler fires. catchPC/finallyPC are
// absolute bytecode offsets, or -1 when that clause is absent.
type tryHandler struct {
	catchPC   int
	finallyPC int
	catchSlot int
	stackBase int // operand stack depth to restore to when the handler fires
}

// Frame is one active call: the closure being executed, its program
// counter, its unified locals+operand stack, and its active try/catch/
// finally regions.
type Frame struct {
	fn   *value.Function
	pc   int
	stack []value.Value

	// openUpvalues maps a stack-slot index to the Upvalue cell capturing it,
	// so repeated captures of the same local share one cell and
	// CloseUpvalue/frame-return can find it to close over the final value.
	openUpvalues map[int]*value.Upvalue

	handlers []*tryHandler

	// pendingThrow holds the in-flight exception value while a finally-only
	// handler's body executes (spec.md §4.5 case 4: "push a marker Value
	// carrying the exception and jump to finallyIP"). Modeled as a frame
	// field rather than a literal operand-stack marker object since nothing
	// in the value model otherwise needs a sentinel "exception in flight"
	// heap object; EndFinally consults it to decide whether to rethrow.
	pendingThrow *value.Value
}

func newFrame(fn *value.Function) *Frame {
	return &Frame{fn: fn, stack: make([]value.Value, 0, stackCap)}
}

func (fr *Frame) push(v value.Value) error {
	if len(fr.stack) >= stackCap {
		return fmt.Errorf("stack overflow in %s", frameName(fr))
	}
	fr.stack = append(fr.stack, v)
	return nil
}

func (fr *Frame) pop() value.Value {
	n := len(fr.stack) - 1
	v := fr.stack[n]
	fr.stack = fr.stack[:n]
	return v
}

func (fr *Frame) popN(n int) []value.Value {
	at := len(fr.stack) - n
	out := fr.stack[at:]
	fr.stack = fr.stack[:at]
	return out
}

func (fr *Frame) peek() value.Value { return fr.stack[len(fr.stack)-1] }

func (fr *Frame) dup() error { return fr.push(fr.peek()) }

func frameName(fr *Frame) string {
	if fr.fn.Proto.Name == "" {
		return "<script>"
	}
	return fr.fn.Proto.Name
}

// Line returns the source line of the frame's current instruction, used by
// RuntimeError and the debugger.
func (fr *Frame) Line() int { return fr.fn.Proto.LineForOffset(uint32(fr.pc)) }

// Function returns the closure this frame is executing.
func (fr *Frame) Function() *value.Function { return fr.fn }

// PC returns the frame's current bytecode offset.
func (fr *Frame) PC() int { return fr.pc }

// Locals exposes the frame's live stack slots, which double as its declared
// locals, for debugger inspection. Callers must not mutate the result.
func (fr *Frame) Locals() []value.Value { return fr.stack }

func (fr *Frame) upvalueFor(slot int) *value.Upvalue {
	if fr.openUpvalues == nil {
		fr.openUpvalues = make(map[int]*value.Upvalue)
	}
	if uv, ok := fr.openUpvalues[slot]; ok {
		return uv
	}
	uv := value.NewOpenUpvalue(fr.stack, slot)
	fr.openUpvalues[slot] = uv
	return uv
}

// closeUpvalueAt closes (if open) the upvalue capturing stack[slot], called
// when that local goes out of scope (CloseUpvalue opcode or frame return).
func (fr *Frame) closeUpvalueAt(slot int) {
	if uv, ok := fr.openUpvalues[slot]; ok {
		uv.Close()
		delete(fr.openUpvalues, slot)
	}
}

func (fr *Frame) readU8() uint8 {
	b := fr.fn.Proto.Code[fr.pc]
	fr.pc++
	return b
}

func (fr *Frame) readU16() uint16 {
	hi := fr.fn.Proto.Code[fr.pc]
	lo := fr.fn.Proto.Code[fr.pc+1]
	fr.pc += 2
	return uint16(hi)<<8 | uint16(lo)
}

// readI16 reads the same two bytes as readU16 but reinterprets them as a
// signed relative jump distance, per the compiler's patchJump encoding.
func (fr *Frame) readI16() int16 { return int16(fr.readU16()) }

func (fr *Frame) constantString(idx uint16) string {
	return fr.fn.Proto.Constants[idx].String
}

func (fr *Frame) closeUpvaluesFrom(slot int) {
	for s, uv := range fr.openUpvalues {
		if s >= slot {
			uv.Close()
			delete(fr.openUpvalues, s)
		}
	}
}
