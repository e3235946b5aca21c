package value

import "strings"

// dictEntry is one slot in a Dict's insertion-ordered storage.
type dictEntry struct {
	key   string
	value Value
	live  bool
}

// Dict is a mapping from string keys to Values (the language's "object
// literal" type) whose iteration order is always insertion order. No
// library map in the example pack preserves insertion order (the teacher's
// own Map type uses github.com/dolthub/swiss, which does not), so this is a
// hand-rolled index+slice structure; see DESIGN.md for the justification.
type Dict struct {
	index map[string]int // key -> index in entries
	order []dictEntry
}

var _ Object = (*Dict)(nil)

// NewDict returns an empty Dict with initial capacity for size entries.
func NewDict(size int) *Dict {
	return &Dict{index: make(map[string]int, size), order: make([]dictEntry, 0, size)}
}

func (d *Dict) Kind() Kind   { return KindObject }
func (d *Dict) Type() string { return "dict" }
func (d *Dict) Truthy() bool { return d != nil }

func (d *Dict) String() string {
	var b strings.Builder
	b.WriteByte('{')
	first := true
	for _, e := range d.order {
		if !e.live {
			continue
		}
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(e.key)
		b.WriteByte(':')
		b.WriteString(e.value.String())
	}
	b.WriteByte('}')
	return b.String()
}

// Len returns the number of live entries.
func (d *Dict) Len() int {
	n := 0
	for _, e := range d.order {
		if e.live {
			n++
		}
	}
	return n
}

// Get returns the value for key and whether it was found.
func (d *Dict) Get(key string) (Value, bool) {
	i, ok := d.index[key]
	if !ok || !d.order[i].live {
		return nil, false
	}
	return d.order[i].value, true
}

// Set inserts or updates key. New keys are appended to the insertion order;
// existing keys keep their original position.
func (d *Dict) Set(key string, v Value) {
	if i, ok := d.index[key]; ok && d.order[i].live {
		d.order[i].value = v
		return
	}
	d.index[key] = len(d.order)
	d.order = append(d.order, dictEntry{key: key, value: v, live: true})
}

// Delete removes key, if present.
func (d *Dict) Delete(key string) {
	if i, ok := d.index[key]; ok {
		d.order[i].live = false
		delete(d.index, key)
	}
}

// Keys returns the live keys in insertion order.
func (d *Dict) Keys() []string {
	keys := make([]string, 0, len(d.order))
	for _, e := range d.order {
		if e.live {
			keys = append(keys, e.key)
		}
	}
	return keys
}

type dictIterator struct {
	d *Dict
	i int
}

// Iterate yields the dict's keys (as *String) in insertion order.
func (d *Dict) Iterate() Iterator { return &dictIterator{d: d} }

func (it *dictIterator) advance() (dictEntry, bool) {
	for it.i < len(it.d.order) {
		e := it.d.order[it.i]
		it.i++
		if e.live {
			return e, true
		}
	}
	return dictEntry{}, false
}

func (it *dictIterator) Next(p *Value) bool {
	e, ok := it.advance()
	if !ok {
		return false
	}
	*p = NewString(e.key)
	return true
}

func (it *dictIterator) NextKV(k, v *Value) bool {
	e, ok := it.advance()
	if !ok {
		return false
	}
	*k = NewString(e.key)
	*v = e.value
	return true
}

func (it *dictIterator) Done() {}
