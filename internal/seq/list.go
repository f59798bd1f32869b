// Package seq provides the ordered worklists used by the capture manager.
package seq

// node is one link of a List.
type node[T comparable] struct {
	value      T
	prev, next *node[T]
}

// List is an ordered sequence of distinct values with O(1) append and
// O(1) removal by identity.
//
// List is NOT safe for concurrent use.
type List[T comparable] struct {
	head, tail *node[T]
	index      map[T]*node[T]
}

// New creates an empty list.
func New[T comparable]() *List[T] {
	return &List[T]{index: make(map[T]*node[T])}
}

// Len returns the number of values in the list.
func (l *List[T]) Len() int {
	return len(l.index)
}

// Contains reports whether v is in the list.
func (l *List[T]) Contains(v T) bool {
	_, ok := l.index[v]
	return ok
}

// PushBack appends v at the tail.
// Returns false if v is already present (the list is left unchanged).
func (l *List[T]) PushBack(v T) bool {
	if _, ok := l.index[v]; ok {
		return false
	}
	n := &node[T]{value: v, prev: l.tail}
	if l.tail != nil {
		l.tail.next = n
	} else {
		l.head = n
	}
	l.tail = n
	l.index[v] = n
	return true
}

// Remove unlinks v. Returns false if v was not present.
func (l *List[T]) Remove(v T) bool {
	n, ok := l.index[v]
	if !ok {
		return false
	}
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev, n.next = nil, nil
	delete(l.index, v)
	return true
}

// Front returns the head value.
func (l *List[T]) Front() (T, bool) {
	if l.head == nil {
		var zero T
		return zero, false
	}
	return l.head.value, true
}

// Back returns the tail value.
func (l *List[T]) Back() (T, bool) {
	if l.tail == nil {
		var zero T
		return zero, false
	}
	return l.tail.value, true
}

// Prev returns the value linked before v.
// The second result is false if v is absent or is the head.
func (l *List[T]) Prev(v T) (T, bool) {
	var zero T
	n, ok := l.index[v]
	if !ok || n.prev == nil {
		return zero, false
	}
	return n.prev.value, true
}

// Snapshot returns the values in order. The slice is a copy; the list may be
// mutated while the caller walks it.
func (l *List[T]) Snapshot() []T {
	out := make([]T, 0, len(l.index))
	for n := l.head; n != nil; n = n.next {
		out = append(out, n.value)
	}
	return out
}

// Clear drops every value.
func (l *List[T]) Clear() {
	for n := l.head; n != nil; {
		next := n.next
		n.prev, n.next = nil, nil
		n = next
	}
	l.head, l.tail = nil, nil
	clear(l.index)
}
