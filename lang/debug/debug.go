// Package debug implements the VM's in-process debugger hook: breakpoints,
// the stepping modes of spec.md §4.6 (Continue, StepIn, StepOver, StepOut,
// Pause), and pause/resume gating, exposed as a vm.Hook that a host
// subscribes to lang/vm's Thread.Debug field. It deliberately stops at the
// source-level protocol boundary: wire framing and JSON translation for a
// Debug-Adapter-style bridge are an external collaborator, per spec.md §1.
package debug

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mna/ember/lang/value"
	"github.com/mna/ember/lang/vm"
	"gopkg.in/yaml.v3"
)

// Mode selects how the debugger decides to pause at the next instruction
// boundary, per spec.md §4.6.
type Mode uint8

const (
	// Continue runs freely; only breakpoints can pause it.
	Continue Mode = iota
	// StepIn pauses at the very next instruction boundary, regardless of
	// call depth.
	StepIn
	// StepOver pauses at the next new source line at or above the depth
	// recorded when stepping began (it does not stop inside a call made from
	// that line).
	StepOver
	// StepOut pauses once the call stack unwinds below the depth recorded
	// when stepping began.
	StepOut
)

// Reason reports why the VM paused.
type Reason uint8

const (
	ReasonStep Reason = iota
	ReasonBreakpoint
	ReasonPauseRequest
)

func (r Reason) String() string {
	switch r {
	case ReasonStep:
		return "step"
	case ReasonBreakpoint:
		return "breakpoint"
	case ReasonPauseRequest:
		return "pause"
	default:
		return "unknown"
	}
}

// Breakpoint is one source-level pause point: a (file, line) pair plus an
// optional boolean guard expression evaluated in the paused frame's scope.
type Breakpoint struct {
	File      string
	Line      int
	Condition string
	Enabled   bool
}

type bpKey struct {
	file string
	line int
}

// StackFrame is a host-facing snapshot of one active call frame, independent
// of the VM's own internal vm.Frame type.
type StackFrame struct {
	Function string
	Line     int
	Locals   map[string]value.Value
}

// PauseEvent is delivered to Debugger.OnPause whenever the VM suspends.
type PauseEvent struct {
	Reason Reason
	Frames []StackFrame
}

// Debugger implements vm.Hook: the VM calls BeforeInstruction at every
// instruction boundary and, if it returns true, blocks in Resume until the
// host issues a stepping command. It is single-threaded-cooperative per
// spec.md §5: one Debugger is meant to watch one Thread at a time.
type Debugger struct {
	// OnPause, if non-nil, is invoked synchronously from BeforeInstruction
	// with the event describing the pause, before the VM blocks in Resume.
	OnPause func(*PauseEvent)

	mu          sync.Mutex
	breakpoints map[bpKey]*Breakpoint
	activeFile  string

	mode       Mode
	pauseDepth int
	lastLine   int
	wantPause  bool

	gate chan struct{}
}

var _ vm.Hook = (*Debugger)(nil)

// New returns a Debugger in free-running (Continue) mode with no
// breakpoints.
func New() *Debugger {
	return &Debugger{breakpoints: make(map[bpKey]*Breakpoint), mode: Continue, lastLine: -1}
}

// SetActiveFile records the logical file name that subsequent instruction
// boundaries are attributed to for breakpoint matching. A host re-issues
// this around each top-level Run/Import so that breakpoints set against a
// given file only fire while that file's code is executing; it is the
// simplification this single-Thread-oriented hook makes instead of
// threading a file name through every vm.Frame (see DESIGN.md).
func (d *Debugger) SetActiveFile(file string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.activeFile = file
}

// SetBreakpoint installs or replaces a breakpoint at file:line, with an
// optional condition expression (empty means unconditional).
func (d *Debugger) SetBreakpoint(file string, line int, condition string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.breakpoints[bpKey{file, line}] = &Breakpoint{File: file, Line: line, Condition: condition, Enabled: true}
}

// ClearBreakpoint removes the breakpoint at file:line, if any.
func (d *Debugger) ClearBreakpoint(file string, line int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.breakpoints, bpKey{file, line})
}

// ClearAllBreakpoints removes every installed breakpoint.
func (d *Debugger) ClearAllBreakpoints() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.breakpoints = make(map[bpKey]*Breakpoint)
}

// Breakpoints returns the installed breakpoints sorted by file, then line,
// for stable display in a host UI.
func (d *Debugger) Breakpoints() []Breakpoint {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Breakpoint, 0, len(d.breakpoints))
	for _, b := range d.breakpoints {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		return out[i].Line < out[j].Line
	})
	return out
}

// breakpointSeed is the shape of a YAML breakpoint table seed file, used for
// headless/CI debugging sessions that want a reproducible starting set of
// breakpoints without a live editor attached (spec.md §4.6's breakpoint
// table, seeded the way an editor's launch.json persists them).
type breakpointSeed struct {
	Breakpoints []struct {
		File      string `yaml:"file"`
		Line      int    `yaml:"line"`
		Condition string `yaml:"condition,omitempty"`
	} `yaml:"breakpoints"`
}

// LoadBreakpointsYAML parses data as a breakpoint-table seed file and
// installs every entry it describes.
func (d *Debugger) LoadBreakpointsYAML(data []byte) error {
	var seed breakpointSeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("parsing breakpoint seed: %w", err)
	}
	for _, b := range seed.Breakpoints {
		d.SetBreakpoint(b.File, b.Line, b.Condition)
	}
	return nil
}

// Continue releases a paused Thread to run freely until the next
// breakpoint.
func (d *Debugger) Continue() { d.release(Continue) }

// StepIn releases a paused Thread to run exactly one more instruction
// boundary, then pause again.
func (d *Debugger) StepIn() { d.release(StepIn) }

// StepOver releases a paused Thread to run until it reaches a new line at
// or above its current call depth.
func (d *Debugger) StepOver() { d.release(StepOver) }

// StepOut releases a paused Thread to run until its call stack unwinds
// below its current depth.
func (d *Debugger) StepOut() { d.release(StepOut) }

// RequestPause asynchronously arms a pause at the next instruction
// boundary of a freely running Thread (the host's "pause" button), without
// needing a gate to release.
func (d *Debugger) RequestPause() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.wantPause = true
}

func (d *Debugger) release(m Mode) {
	d.mu.Lock()
	d.mode = m
	gate := d.gate
	d.gate = nil
	d.mu.Unlock()
	if gate != nil {
		close(gate)
	}
}

// BeforeInstruction implements vm.Hook. It is consulted at every bytecode
// instruction boundary. StepIn and StepOut are decided on every
// instruction; StepOver and breakpoints only trigger when the current line
// differs from the line of the previous instruction.
func (d *Debugger) BeforeInstruction(th *vm.Thread, fr *vm.Frame) bool {
	d.mu.Lock()
	line := fr.Line()
	lineChanged := line != d.lastLine
	d.lastLine = line
	depth := len(th.CallStack())

	pause := false
	reason := ReasonStep
	if d.wantPause {
		pause = true
		reason = ReasonPauseRequest
		d.wantPause = false
	} else {
		switch d.mode {
		case StepIn:
			pause = true
		case StepOver:
			pause = lineChanged && depth <= d.pauseDepth
		case StepOut:
			pause = depth < d.pauseDepth
		}
	}

	var bp *Breakpoint
	if !pause && lineChanged {
		if b, ok := d.breakpoints[bpKey{d.activeFile, line}]; ok && b.Enabled {
			bp = b
		}
	}
	d.mu.Unlock()

	if bp != nil && d.evalCondition(th, fr, bp.Condition) {
		pause = true
		reason = ReasonBreakpoint
	}
	if !pause {
		return false
	}

	d.mu.Lock()
	d.pauseDepth = depth
	d.gate = make(chan struct{})
	d.mu.Unlock()

	if d.OnPause != nil {
		d.OnPause(&PauseEvent{Reason: reason, Frames: snapshot(th)})
	}
	return true
}

// Resume implements vm.Hook: it blocks until a stepping command releases the
// gate BeforeInstruction created.
func (d *Debugger) Resume(th *vm.Thread) {
	d.mu.Lock()
	gate := d.gate
	d.mu.Unlock()
	if gate != nil {
		<-gate
	}
}

// evalCondition reports whether a conditional breakpoint's guard expression
// evaluates truthy in fr's current scope, built from the frame's live
// locals (spec.md §4.6: "evaluate a compiled expression in the current
// frame's environment"). An empty condition is always true. Evaluation
// errors are treated as non-triggering rather than propagated, since a bad
// watch expression should not crash the debugged program.
func (d *Debugger) evalCondition(th *vm.Thread, fr *vm.Frame, condition string) bool {
	if condition == "" {
		return true
	}
	fn := fr.Function()
	parent := fn.Env
	if parent == nil {
		parent = th.Globals
	}
	env := value.NewEnvironment(parent)
	locals := fr.Locals()
	for _, ld := range fn.Proto.Locals {
		if ld.Slot >= 0 && ld.Slot < len(locals) {
			env.Define(ld.Name, locals[ld.Slot])
		}
	}
	v, err := th.Eval(condition, env)
	if err != nil {
		return false
	}
	return value.Truthy(v)
}

// snapshot captures th's current call stack as host-facing StackFrames,
// innermost first, for a PauseEvent.
func snapshot(th *vm.Thread) []StackFrame {
	stack := th.CallStack()
	out := make([]StackFrame, len(stack))
	for i, fr := range stack {
		fn := fr.Function()
		name := fn.Proto.Name
		if name == "" {
			name = "<script>"
		}
		locals := make(map[string]value.Value, len(fn.Proto.Locals))
		frameLocals := fr.Locals()
		for _, ld := range fn.Proto.Locals {
			if ld.Slot >= 0 && ld.Slot < len(frameLocals) {
				locals[ld.Name] = frameLocals[ld.Slot]
			}
		}
		out[len(stack)-1-i] = StackFrame{Function: name, Line: fr.Line(), Locals: locals}
	}
	return out
}
