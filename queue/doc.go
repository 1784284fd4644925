// Package queue provides a lock-free single-producer/single-consumer queue.
//
// AtomicQueue is a singly-linked list with two atomic head pointers: the
// write head (last pushed node) and the read head (logical front). Exactly
// one goroutine may push and exactly one may pop; a concurrent Push and Pop
// are safe, two concurrent Push or two concurrent Pop calls are not.
//
// # Guarantees
//
//   - No locks. One allocation per Push, nodes become garbage after a
//     successful Pop.
//   - FIFO order and exactly-once delivery under the SPSC contract.
//   - Len is a best-effort diagnostic counter, never used for correctness.
//
// # Usage
//
//	var q queue.AtomicQueue[int]
//	q.Push(1)
//	v, ok := q.Pop() // 1, true
//
// The zero value is ready to use.
package queue
