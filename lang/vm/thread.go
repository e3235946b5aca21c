// Package vm implements the stack-based bytecode interpreter: it walks a
// compiler.FunctionPrototype's Code, maintaining one stack per active call
// frame that holds both its locals and its operands, and converts
// compiler.Constant values into their runtime lang/value counterparts each
// time a Const instruction executes. The fetch-decode loop and Thread/Frame split follow the
// teacher's lang/machine package (mna/nenuphar), adapted to this language's
// big-endian fixed-width operand encoding and its try/catch/finally and
// class/iterator opcodes.
package vm

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/dolthub/swiss"
	"github.com/mna/ember/lang/compiler"
	"github.com/mna/ember/lang/value"
)

// Thread is one logical execution context: its own call stack, step budget
// and I/O streams, plus its own module cache.
type Thread struct {
	// Name optionally identifies the thread for diagnostics/debugger use.
	Name string

	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader

	// MaxSteps bounds the number of bytecode instructions this thread will
	// execute before it is cancelled with a runtime error; <= 0 means no
	// limit. Mirrors the teacher's Thread.MaxSteps step-budget convention.
	MaxSteps int

	// MaxCallDepth bounds call-stack nesting; <= 0 means no limit.
	MaxCallDepth int

	// Load resolves an import path to a compiled, executed Module, used by
	// the Import opcode. A nil Load makes `import` always fail.
	Load func(th *Thread, path string) (*value.Module, error)

	// Globals is the root dynamic environment backing DefineGlobal/GetGlobal/
	// SetGlobal and the `_G` global table.
	Globals *value.Environment

	// Debug, if non-nil, is consulted before executing every instruction; see
	// lang/debug. It is an interface here (not a concrete type) to avoid a
	// vm<->debug import cycle.
	Debug Hook

	ctx       context.Context
	ctxCancel context.CancelFunc
	cancelled atomic.Bool
	steps     uint64
	maxSteps  uint64

	callStack []*Frame

	// moduleCache memoizes already-executed modules by import path so that
	// importing the same path twice returns the same Module (and runs its
	// top-level code only once), per spec.md §4.6's module-caching
	// requirement. Backed by the teacher's swiss.Map since path lookups are
	// pure string-keyed and never need insertion order.
	moduleCache *swiss.Map[string, *value.Module]

	moduleCacheHits, moduleCacheMisses atomic.Uint64
}

// Hook lets a debugger observe and pause execution between instructions,
// implemented by lang/debug.
type Hook interface {
	// BeforeInstruction is called with the about-to-execute frame and
	// instruction offset; it returns true to pause (the VM then blocks on
	// Resume).
	BeforeInstruction(th *Thread, fr *Frame) bool
	// Resume blocks until the debugger allows execution to continue.
	Resume(th *Thread)
}

// NewThread returns a ready-to-use Thread rooted at globals (a fresh root
// Environment if nil is passed).
func NewThread(globals *value.Environment) *Thread {
	if globals == nil {
		globals = value.Root()
	}
	th := &Thread{Globals: globals, moduleCache: swiss.NewMap[string, *value.Module](8)}
	th.init()
	return th
}

func (th *Thread) init() {
	if th.MaxSteps <= 0 {
		th.maxSteps--
	} else {
		th.maxSteps = uint64(th.MaxSteps)
	}
	if th.Stdout == nil {
		th.Stdout = os.Stdout
	}
	if th.Stderr == nil {
		th.Stderr = os.Stderr
	}
	if th.Stdin == nil {
		th.Stdin = os.Stdin
	}
	if th.ctx == nil {
		th.ctx = context.Background()
		th.ctxCancel = func() {}
	}
}

// Cancel asynchronously stops the thread; the next instruction boundary
// observes it and unwinds with a *CancelledError, which script try/catch
// cannot intercept.
func (th *Thread) Cancel() { th.cancelled.Store(true) }

// WithContext binds ctx to th: cancelling ctx cancels the thread.
func (th *Thread) WithContext(ctx context.Context) *Thread {
	ctx, cancel := context.WithCancel(ctx)
	th.ctx = ctx
	th.ctxCancel = cancel
	go func() {
		<-ctx.Done()
		th.cancelled.Store(true)
	}()
	return th
}

// CachedModule returns a previously executed module for path, if any.
func (th *Thread) CachedModule(path string) (*value.Module, bool) {
	mod, ok := th.moduleCache.Get(path)
	if ok {
		th.moduleCacheHits.Add(1)
	} else {
		th.moduleCacheMisses.Add(1)
	}
	return mod, ok
}

// CacheModule records mod as the executed result for path.
func (th *Thread) CacheModule(path string, mod *value.Module) { th.moduleCache.Put(path, mod) }

// ModuleCacheStats returns this thread's module-cache hit/miss counts, for
// host observability (see CacheStats for the compile/eval cache counters,
// which are process-wide rather than per-thread since compileCache/evalCache
// are shared across every Thread).
func (th *Thread) ModuleCacheStats() (hits, misses uint64) {
	return th.moduleCacheHits.Load(), th.moduleCacheMisses.Load()
}

// CallStack returns the thread's current frames, outermost first, used by
// RuntimeError and the debugger for backtraces.
func (th *Thread) CallStack() []*Frame { return th.callStack }

func (th *Thread) pushFrame(fr *Frame) error {
	if th.MaxCallDepth > 0 && len(th.callStack) >= th.MaxCallDepth {
		return fmt.Errorf("call stack depth exceeded (max %d)", th.MaxCallDepth)
	}
	th.callStack = append(th.callStack, fr)
	return nil
}

func (th *Thread) popFrame() {
	th.callStack = th.callStack[:len(th.callStack)-1]
}

func (th *Thread) checkBudget() error {
	th.steps++
	if th.MaxSteps > 0 && th.steps > uint64(th.MaxSteps) {
		return fmt.Errorf("thread cancelled: step budget (%d) exceeded", th.MaxSteps)
	}
	if th.cancelled.Load() {
		return fmt.Errorf("thread cancelled")
	}
	return nil
}

// MakeTopLevel wraps a compiled module/script prototype in the Function
// value Run expects, with no upvalues and a fresh top-level Environment
// parented at th.Globals (so module-level `var` declarations at depth 0
// remain name-addressable, per the compiler's "depth 0 always DefineGlobal"
// convention described in DESIGN.md).
func MakeTopLevel(proto *compiler.FunctionPrototype, env *value.Environment) *value.Function {
	return &value.Function{Proto: proto, Env: env}
}
