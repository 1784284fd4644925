package port

import (
	"sync"
	"sync/atomic"

	"github.com/wippyai/port-runtime/queue"
)

// PortData is the context-independent half of a port: it owns the
// incoming message queue and the sibling relationship, and survives a
// transfer between contexts while its wrapper does not.
type PortData struct {
	incoming queue.AtomicQueue[*Message]

	// mu serializes producers pushing into the incoming queue (the queue
	// itself is SPSC; the bound owner's context goroutine is the single
	// consumer) and guards owner hand-off.
	mu    sync.Mutex
	owner atomic.Pointer[Port]

	// siblingMu is shared between two entangled sides and protects both
	// sibling fields. When both it and mu are acquired, siblingMu comes
	// first.
	siblingMu atomic.Pointer[sync.Mutex]
	sibling   *PortData
}

func newPortData() *PortData {
	d := &PortData{}
	d.siblingMu.Store(&sync.Mutex{})
	return d
}

// entangleData turns a and b into siblings. Not thread-safe: the caller
// must guarantee neither side is exposed to concurrent use yet.
func entangleData(a, b *PortData) {
	shared := &sync.Mutex{}
	a.siblingMu.Store(shared)
	b.siblingMu.Store(shared)
	a.sibling = b
	b.sibling = a
}

// AddToIncomingQueue pushes a message and wakes the bound owner, if any.
// Safe from any goroutine at any time; with no owner the message simply
// waits.
func (d *PortData) AddToIncomingQueue(msg *Message) {
	d.mu.Lock()
	d.incoming.Push(msg)
	owner := d.owner.Load()
	d.mu.Unlock()

	if owner != nil {
		owner.triggerAsync()
	}
}

// Disentangle removes any sibling relation. Thread-safe and idempotent;
// safe to call concurrently from both sides. The former sibling (and this
// side) each receive a close sentinel so their bound ports observe the
// shutdown.
func (d *PortData) Disentangle() {
	shared := d.siblingMu.Load()
	shared.Lock()
	d.mu.Lock()
	sib := d.sibling
	d.sibling = nil
	if sib != nil {
		sib.sibling = nil
	}
	// Fresh mutex for any later entanglement of this side.
	d.siblingMu.Store(&sync.Mutex{})
	d.mu.Unlock()
	shared.Unlock()

	d.AddToIncomingQueue(NewCloseMessage())
	if sib != nil {
		sib.AddToIncomingQueue(NewCloseMessage())
	}
}

// deliverToSibling hands a message to the entangled side's incoming
// queue. Returns false (message dropped) when there is no sibling.
func (d *PortData) deliverToSibling(msg *Message) bool {
	shared := d.siblingMu.Load()
	shared.Lock()
	sib := d.sibling
	if sib == nil {
		shared.Unlock()
		return false
	}
	sib.AddToIncomingQueue(msg)
	shared.Unlock()
	return true
}

// hasSibling reports whether this side is currently entangled.
func (d *PortData) hasSibling() bool {
	shared := d.siblingMu.Load()
	shared.Lock()
	defer shared.Unlock()
	return d.sibling != nil
}

// discardQueue drops all queued messages. Called on the consumer side
// during teardown.
func (d *PortData) discardQueue() {
	d.incoming.Clear()
}
