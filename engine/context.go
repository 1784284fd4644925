package engine

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Context is an isolated execution context: a named callback queue drained
// by a single goroutine. It models the event loop the messaging core
// treats as an external collaborator: the core only needs "schedule a
// callback on the context's own thread".
type Context struct {
	name string

	mu        sync.Mutex
	callbacks []func()

	wake   chan struct{}
	done   chan struct{}
	closed atomic.Bool
}

// NewContext creates a context. Call Run on a dedicated goroutine to
// process callbacks, or drain manually in tests via DrainCallbacks.
func NewContext(name string) *Context {
	return &Context{
		name: name,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Name returns the context name.
func (c *Context) Name() string { return c.name }

// Post schedules fn to run on the context's goroutine. Safe from any
// goroutine, including after Close (the callback is then dropped).
func (c *Context) Post(fn func()) {
	if c.closed.Load() {
		Logger().Debug("callback posted to closed context dropped",
			zap.String("context", c.name))
		return
	}
	c.mu.Lock()
	c.callbacks = append(c.callbacks, fn)
	c.mu.Unlock()
	c.Wake()
}

// Wake notifies the context that work is available. Idempotent: multiple
// wakes before the loop observes one coalesce.
func (c *Context) Wake() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Run drains callbacks until Close is called. It belongs on the context's
// own goroutine.
func (c *Context) Run() {
	for {
		select {
		case <-c.wake:
			c.DrainCallbacks()
		case <-c.done:
			c.DrainCallbacks()
			return
		}
	}
}

// DrainCallbacks runs all currently queued callbacks. It belongs on the
// context's own goroutine; exposed for tests that drive the loop manually.
func (c *Context) DrainCallbacks() {
	for {
		c.mu.Lock()
		pending := c.callbacks
		c.callbacks = nil
		c.mu.Unlock()
		if len(pending) == 0 {
			return
		}
		for _, fn := range pending {
			fn()
		}
	}
}

// Close stops the run loop. Queued callbacks run one final time; later
// posts are dropped.
func (c *Context) Close() {
	if c.closed.CompareAndSwap(false, true) {
		close(c.done)
	}
}

// Async wraps a callback with an idempotent cross-goroutine wake, in the
// shape of a libuv async handle: any number of Send calls before the
// callback fires coalesce into one invocation on the context's goroutine.
type Async struct {
	ctx     *Context
	fn      func()
	pending atomic.Bool
	closed  atomic.Bool
}

// NewAsync creates an async handle invoking fn on the context's goroutine.
func (c *Context) NewAsync(fn func()) *Async {
	return &Async{ctx: c, fn: fn}
}

// Send triggers the callback. Safe from any goroutine; idempotent while a
// trigger is pending.
func (a *Async) Send() {
	if a.closed.Load() {
		return
	}
	if !a.pending.CompareAndSwap(false, true) {
		return
	}
	a.ctx.Post(func() {
		a.pending.Store(false)
		if a.closed.Load() {
			return
		}
		a.fn()
	})
}

// Close releases the handle; further Sends are no-ops.
func (a *Async) Close() {
	a.closed.Store(true)
}
