package compiler

import "golang.org/x/exp/slices"

// funcKind distinguishes the handful of compile-time behaviors that differ
// between a plain function, a method, a class initializer and the implicit
// top-level script function.
type funcKind uint8

const (
	kindScript funcKind = iota
	kindFunction
	kindMethod
	kindInitializer
)

type localVar struct {
	name       string
	depth      int
	isCaptured bool
}

type loopState struct {
	enclosing      *loopState
	loopStart      int
	continueTarget int
	scopeDepth     int
	bodyLocalsBase int
	iterSlot       int
	hasIter        bool
	breakJumps     []int
}

// funcState is the compiler's per-function-body compilation context; one
// exists per nested function/method/lambda/script body being compiled, wired
// together through enclosing so upvalue resolution can walk outward.
type funcState struct {
	enclosing *funcState
	proto     *FunctionPrototype
	kind      funcKind
	className string // enclosing class name, valid for kindMethod/kindInitializer
	hasSuper  bool

	locals     []localVar
	scopeDepth int
	loop       *loopState

	maxStack     int
	curStack     int
	constantIdx  map[string]int // dedup string constants by raw text (not value semantics)
}

func newFuncState(enclosing *funcState, kind funcKind, name string) *funcState {
	fs := &funcState{
		enclosing:   enclosing,
		kind:        kind,
		proto:       &FunctionPrototype{Name: name},
		constantIdx: make(map[string]int),
	}
	// Slot 0 is always reserved: `this` for methods/initializers, otherwise an
	// unnamed slot that is simply never read.
	recv := ""
	if kind == kindMethod || kind == kindInitializer {
		recv = "this"
	}
	fs.locals = append(fs.locals, localVar{name: recv, depth: 0})
	return fs
}

func (fs *funcState) addConstant(c Constant) int {
	fs.proto.Constants = append(fs.proto.Constants, c)
	return len(fs.proto.Constants) - 1
}

// stringConstant returns the constant-pool index for s, deduplicating
// repeated identifier/literal names (globals, field names, method names all
// funnel through here).
func (fs *funcState) stringConstant(s string) int {
	if idx, ok := fs.constantIdx[s]; ok {
		return idx
	}
	idx := fs.addConstant(Constant{Tag: ConstString, String: s})
	fs.constantIdx[s] = idx
	return idx
}

func (fs *funcState) beginScope() { fs.scopeDepth++ }

// endScope removes the locals declared in the scope being left from
// fs.locals and returns them in declaration order. It emits no code: the
// caller (closeScope) emits one Pop or CloseUpvalue per returned local.
func (fs *funcState) endScope() []localVar {
	fs.scopeDepth--
	n := 0
	for n < len(fs.locals) && fs.locals[len(fs.locals)-1-n].depth > fs.scopeDepth {
		n++
	}
	popped := append([]localVar(nil), fs.locals[len(fs.locals)-n:]...)
	fs.locals = fs.locals[:len(fs.locals)-n]
	return popped
}

func (fs *funcState) declareLocal(name string) int {
	fs.locals = append(fs.locals, localVar{name: name, depth: fs.scopeDepth})
	slot := len(fs.locals) - 1
	if len(fs.locals) > fs.proto.NumLocals {
		fs.proto.NumLocals = len(fs.locals)
	}
	// Recorded for debugger/disassembler use only (LocalDebug): a slot can be
	// reused by an unrelated local once its original owner's scope closes, so
	// Locals may hold several entries for the same Slot; consumers look up by
	// slot and take the most recent entry, since scopes close in LIFO order.
	fs.proto.Locals = append(fs.proto.Locals, LocalDebug{Name: name, Slot: slot})
	return slot
}

// resolveLocal returns the slot index of name in this function only (no
// upvalue search), searching innermost-scope-first so shadowing resolves
// correctly.
func (fs *funcState) resolveLocal(name string) (int, bool) {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].name == name {
			return i, true
		}
	}
	return -1, false
}

// addUpvalue records (or reuses) an upvalue descriptor on fs pointing either
// at a local slot of the immediately enclosing function (isLocal=true) or at
// one of that function's own upvalues being forwarded (isLocal=false).
func (fs *funcState) addUpvalue(index int, isLocal bool) int {
	if i := slices.IndexFunc(fs.proto.Upvalues, func(uv UpvalueDesc) bool {
		return uv.IsLocal == isLocal && int(uv.Index) == index
	}); i >= 0 {
		return i
	}
	fs.proto.Upvalues = append(fs.proto.Upvalues, UpvalueDesc{IsLocal: isLocal, Index: uint16(index)})
	return len(fs.proto.Upvalues) - 1
}

// resolveUpvalue looks for name as a local in some enclosing function,
// recording forwarding descriptors in every intervening function, per
// spec.md §4.2's upvalue-resolution algorithm.
func resolveUpvalue(fs *funcState, name string) (int, bool) {
	if fs.enclosing == nil {
		return -1, false
	}
	if slot, ok := fs.enclosing.resolveLocal(name); ok {
		fs.enclosing.locals[slot].isCaptured = true
		return fs.addUpvalue(slot, true), true
	}
	if idx, ok := resolveUpvalue(fs.enclosing, name); ok {
		return fs.addUpvalue(idx, false), true
	}
	return -1, false
}
