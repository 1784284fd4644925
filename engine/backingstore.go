package engine

import (
	"sync/atomic"

	"github.com/wippyai/port-runtime/errors"
)

// BackingStore is a block of buffer memory with either shared or exclusive
// ownership semantics. Shared stores stay accessible on both sides of a
// transfer; exclusive stores move wholesale. The reference count is
// diagnostic bookkeeping for how many context-bound views exist.
type BackingStore struct {
	data   []byte
	refs   atomic.Int64
	shared bool
}

// AllocBackingStore allocates an exclusively owned store of n bytes.
func AllocBackingStore(n int) *BackingStore {
	return &BackingStore{data: make([]byte, n)}
}

// NewSharedBackingStore allocates a store with shared ownership semantics.
func NewSharedBackingStore(n int) *BackingStore {
	return &BackingStore{data: make([]byte, n), shared: true}
}

// Bytes returns the underlying memory.
func (s *BackingStore) Bytes() []byte { return s.data }

// Len returns the store size in bytes.
func (s *BackingStore) Len() int { return len(s.data) }

// Shared reports whether the store has shared ownership semantics.
func (s *BackingStore) Shared() bool { return s.shared }

// Ref records a new view of the store.
func (s *BackingStore) Ref() { s.refs.Add(1) }

// Unref releases a view of the store.
func (s *BackingStore) Unref() { s.refs.Add(-1) }

// Refs returns the current view count.
func (s *BackingStore) Refs() int64 { return s.refs.Load() }

// Buffer is a context-bound view over a BackingStore. Transferring the
// buffer detaches the view: the backing memory moves on and any further
// access through this handle reports a detached error.
type Buffer struct {
	ctx      *Context
	store    *BackingStore
	detached atomic.Bool
}

// NewBuffer allocates an exclusively owned buffer of n bytes bound to the
// context.
func (c *Context) NewBuffer(n int) *Buffer {
	return c.AdoptStore(AllocBackingStore(n))
}

// NewSharedBuffer allocates a shared buffer of n bytes bound to the
// context.
func (c *Context) NewSharedBuffer(n int) *Buffer {
	return c.AdoptStore(NewSharedBackingStore(n))
}

// AdoptStore binds an existing backing store to the context as a new view.
func (c *Context) AdoptStore(store *BackingStore) *Buffer {
	store.Ref()
	return &Buffer{ctx: c, store: store}
}

// HostObjectKind identifies buffers to the value serializer.
func (b *Buffer) HostObjectKind() string { return "buffer" }

// Context returns the owning context.
func (b *Buffer) Context() *Context { return b.ctx }

// Shared reports whether the underlying store is shared.
func (b *Buffer) Shared() bool { return b.store.Shared() }

// Detached reports whether the buffer has been detached.
func (b *Buffer) Detached() bool { return b.detached.Load() }

// Len returns the buffer size, or 0 if detached.
func (b *Buffer) Len() int {
	if b.Detached() {
		return 0
	}
	return b.store.Len()
}

// Bytes returns the buffer memory. Accessing a detached buffer is a
// contract violation and reports a detached error.
func (b *Buffer) Bytes() ([]byte, error) {
	if b.Detached() {
		return nil, errors.Detached(errors.PhaseTransfer, "buffer")
	}
	return b.store.Bytes(), nil
}

// Store returns the underlying backing store for sharing. Fails if the
// buffer is detached.
func (b *Buffer) Store() (*BackingStore, error) {
	if b.Detached() {
		return nil, errors.Detached(errors.PhaseTransfer, "buffer")
	}
	return b.store, nil
}

// Detach severs the buffer from its backing store and returns the store
// for relocation. Shared buffers are never exclusively transferred and
// cannot be detached.
func (b *Buffer) Detach() (*BackingStore, error) {
	if b.store.Shared() {
		return nil, errors.New(errors.PhaseTransfer, errors.KindDataClone).
			Detail("shared buffers cannot be detached").
			Build()
	}
	if !b.detached.CompareAndSwap(false, true) {
		return nil, errors.Detached(errors.PhaseTransfer, "buffer")
	}
	b.store.Unref()
	return b.store, nil
}
