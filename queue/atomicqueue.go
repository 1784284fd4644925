package queue

import (
	"sync/atomic"
)

type node[T any] struct {
	next atomic.Pointer[node[T]]
	item T
}

// AtomicQueue is a lock-free single-producer/single-consumer queue.
// Push and Pop calls may occur concurrently, but not two Push calls or
// two Pop calls. The zero value is an empty queue ready for use.
type AtomicQueue[T any] struct {
	writeHead atomic.Pointer[node[T]]
	readHead  atomic.Pointer[node[T]]
	size      atomic.Int64
}

// Push appends an item. Producer-side only.
func (q *AtomicQueue[T]) Push(item T) {
	q.size.Add(1)
	n := &node[T]{item: item}
	if old := q.writeHead.Load(); old != nil {
		old.next.Store(n)
	}
	// If the queue was empty the read head is nil; install the new node
	// as the front. A non-nil read head is never overwritten here, which
	// is what makes a concurrent Pop safe.
	q.readHead.CompareAndSwap(nil, n)
	q.writeHead.Store(n)
}

// Pop removes and returns the front item. Consumer-side only.
// The second return value is false if the queue was (transiently) empty.
func (q *AtomicQueue[T]) Pop() (T, bool) {
	return q.PopIf(func(T) bool { return true })
}

// PopIf removes the front item only if pred accepts it. If pred rejects,
// the queue is left unchanged and a subsequent Pop returns the same item.
// Consumer-side only.
func (q *AtomicQueue[T]) PopIf(pred func(item T) bool) (T, bool) {
	var zero T
	old := q.readHead.Swap(nil)
	if old == nil {
		// Nothing was taken, so nothing needs restoring. Writing nil
		// back here could overwrite the head a racing Push just
		// installed, losing that node.
		return zero, false
	}
	if !pred(old.item) {
		// A racing Push may have CASed the read head from nil to its new
		// node meanwhile; that node is still reachable through the chain
		// behind old (the write head was non-nil while we held old), so
		// restoring old as the front keeps every node reachable.
		q.readHead.Store(old)
		return zero, false
	}
	next := old.next.Load()
	// A concurrent Push may already have installed its node as the read
	// head; only transition from nil.
	q.readHead.CompareAndSwap(nil, next)
	if next == nil {
		// old was the last node, unless a Push replaced the write head
		// in the meantime.
		q.writeHead.CompareAndSwap(old, nil)
	}
	q.size.Add(-1)
	return old.item, true
}

// Each iterates over all queued items front to back. It must not run
// concurrently with Pop or PopIf.
func (q *AtomicQueue[T]) Each(fn func(item T) bool) {
	for n := q.readHead.Load(); n != nil; n = n.next.Load() {
		if !fn(n.item) {
			return
		}
	}
}

// Clear pops and discards all items. Consumer-side only.
func (q *AtomicQueue[T]) Clear() {
	for {
		if _, ok := q.Pop(); !ok {
			return
		}
	}
}

// Empty reports whether the queue appears empty.
func (q *AtomicQueue[T]) Empty() bool {
	return q.Len() == 0
}

// Len returns the approximate number of queued items. It is maintained by
// unordered atomic increments and is only suitable for diagnostics.
func (q *AtomicQueue[T]) Len() int {
	n := q.size.Load()
	if n < 0 {
		return 0
	}
	return int(n)
}
