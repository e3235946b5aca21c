package value

// Iterator yields a finite or infinite sequence of Values to the VM's
// iterator-slot state machine (one designated local slot per active loop,
// per spec.md §4.4). Next reports whether another element was produced.
type Iterator interface {
	Next(p *Value) bool
	Done()
}

// KVIterator is implemented by iterators that can also yield key/value pairs
// (used by the for-in KV form over a Dict).
type KVIterator interface {
	Iterator
	NextKV(k, v *Value) bool
}

// Iterable is implemented by any Object that can produce an Iterator: Array,
// Dict and Range.
type Iterable interface {
	Object
	Iterate() Iterator
}
