package vm

import "github.com/mna/ember/lang/value"

// iterState is the hidden runtime object GetIter stores in a for-in loop's
// reserved iterator local slot (spec.md §4.4: "iterator state lives in a
// local slot"). It is never exposed to user code: no opcode reachable from
// source turns one back into a visible value.
type iterState struct {
	it value.Iterator
}

var _ value.Object = (*iterState)(nil)

func (s *iterState) Kind() value.Kind { return value.KindObject }
func (s *iterState) Type() string     { return "iterator state" }
func (s *iterState) Truthy() bool     { return true }
func (s *iterState) String() string   { return "<iterator state>" }
