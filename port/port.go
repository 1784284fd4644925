package port

import (
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/port-runtime/engine"
)

// Port is the context-bound wrapper over a PortData. It binds the data to
// one execution context's wake mechanism and exposes the messaging
// surface: post, start/stop, receive, detach, close.
//
// Lifecycle: New binds the port stopped; Start switches it to receiving;
// Detach separates the wrapper from its data without destroying the data;
// Close is terminal.
type Port struct {
	ctx   *engine.Context
	async *engine.Async

	mu        sync.Mutex
	data      *PortData
	receiving bool
	closed    bool
	onMessage func(value any)
	onClose   func()
}

// New creates a port with fresh data, bound to ctx and initially stopped.
func New(ctx *engine.Context) *Port {
	return NewWithData(ctx, newPortData())
}

// NewWithData binds existing port data (e.g. received through a transfer)
// to ctx. If messages are already queued, the context is woken so they
// are delivered once the port starts.
func NewWithData(ctx *engine.Context, data *PortData) *Port {
	p := &Port{ctx: ctx, data: data}
	p.async = ctx.NewAsync(p.onMessageDrain)
	data.owner.Store(p)
	if !data.incoming.Empty() {
		p.async.Send()
	}
	return p
}

// Pair creates two entangled ports, one bound to each context. Both start
// stopped.
func Pair(ctxA, ctxB *engine.Context) (*Port, *Port) {
	a := New(ctxA)
	b := New(ctxB)
	Entangle(a, b)
	return a, b
}

// Entangle connects the sending side of each port to the receiving side
// of the other. Not thread-safe: call before either port is exposed to
// concurrent use.
func Entangle(a, b *Port) {
	entangleData(a.data, b.data)
}

// HostObjectKind identifies ports to the value serializer.
func (p *Port) HostObjectKind() string { return "port" }

// Context returns the bound execution context.
func (p *Port) Context() *engine.Context { return p.ctx }

// SetOnMessage installs the delivery handler invoked by the drain loop
// for each received value. Install before Start.
func (p *Port) SetOnMessage(fn func(value any)) {
	p.mu.Lock()
	p.onMessage = fn
	p.mu.Unlock()
}

// SetOnClose installs a callback invoked once when the port closes.
func (p *Port) SetOnClose(fn func()) {
	p.mu.Lock()
	p.onClose = fn
	p.mu.Unlock()
}

// IsDetached reports whether the wrapper no longer holds data, either
// detached for transfer or closed.
func (p *Port) IsDetached() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data == nil
}

// PostMessage serializes value with its transfer list and delivers it to
// the entangled sibling. With no sibling, or on a closed/detached port,
// the value is still serialized (transfers included, so listed resources
// detach), then silently discarded. Serialization failures, including the
// self-transfer error, are returned and nothing is sent.
func (p *Port) PostMessage(value any, transfer []Transferable) error {
	msg := new(Message)
	if err := msg.Serialize(p.ctx, value, transfer, p); err != nil {
		return err
	}

	p.mu.Lock()
	d := p.data
	p.mu.Unlock()

	if d == nil {
		Logger().Debug("message posted on detached port discarded",
			zap.String("context", p.ctx.Name()))
		return nil
	}
	if !d.deliverToSibling(msg) {
		Logger().Debug("message posted without sibling dropped",
			zap.String("context", p.ctx.Name()))
	}
	return nil
}

// Start switches the port to receiving mode and schedules delivery of any
// queued messages.
func (p *Port) Start() {
	p.mu.Lock()
	p.receiving = true
	d := p.data
	p.mu.Unlock()
	if d != nil && !d.incoming.Empty() {
		p.async.Send()
	}
}

// Stop leaves receiving mode. Messages keep queueing unread.
func (p *Port) Stop() {
	p.mu.Lock()
	p.receiving = false
	p.mu.Unlock()
}

// ReceiveMessage pops one message and deserializes it into the bound
// context. With onlyIfReceiving set, a stopped port reports no message,
// except for the close sentinel, which is always honored and closes the
// port (reported as no message). Consumer-side only.
func (p *Port) ReceiveMessage(onlyIfReceiving bool) (any, bool, error) {
	p.mu.Lock()
	d := p.data
	receiving := p.receiving
	p.mu.Unlock()
	if d == nil {
		return nil, false, nil
	}

	msg, ok := d.incoming.PopIf(func(m *Message) bool {
		return m.IsCloseMessage() || !onlyIfReceiving || receiving
	})
	if !ok {
		return nil, false, nil
	}
	if msg.IsCloseMessage() {
		p.Close()
		return nil, false, nil
	}

	value, err := msg.Deserialize(p.ctx)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

// Drain synchronously delivers every queued message to the handler,
// ignoring the receiving flag. Consumer-side only.
func (p *Port) Drain() {
	for {
		value, ok, err := p.ReceiveMessage(false)
		if err != nil {
			Logger().Warn("message dropped during drain",
				zap.String("context", p.ctx.Name()),
				zap.Error(err))
			continue
		}
		if !ok {
			return
		}
		p.deliver(value)
	}
}

// onMessageDrain is the wake callback: while in receiving mode it pops
// and delivers messages until the queue is empty or the port closes
// mid-drain.
func (p *Port) onMessageDrain() {
	for {
		p.mu.Lock()
		done := p.closed || p.data == nil
		p.mu.Unlock()
		if done {
			return
		}

		value, ok, err := p.ReceiveMessage(true)
		if err != nil {
			Logger().Warn("incoming message dropped",
				zap.String("context", p.ctx.Name()),
				zap.Error(err))
			continue
		}
		if !ok {
			return
		}
		p.deliver(value)
	}
}

func (p *Port) deliver(value any) {
	p.mu.Lock()
	handler := p.onMessage
	p.mu.Unlock()
	if handler != nil {
		handler(value)
	}
}

// Detach disassociates the wrapper from its data and returns the data for
// relocation to another wrapper or context. The data keeps its queue
// contents and sibling relationship. Returns nil if already detached or
// closed.
func (p *Port) Detach() *PortData {
	p.mu.Lock()
	d := p.data
	p.data = nil
	p.receiving = false
	p.mu.Unlock()

	if d == nil {
		return nil
	}
	d.owner.Store(nil)
	p.async.Close()
	return d
}

// Close disentangles, releases the wake handle, and marks the wrapper
// unusable. Idempotent; safe while the sibling closes concurrently.
func (p *Port) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.receiving = false
	d := p.data
	p.data = nil
	onClose := p.onClose
	p.mu.Unlock()

	if d != nil {
		d.owner.Store(nil)
		d.Disentangle()
		d.discardQueue()
	}
	p.async.Close()

	if onClose != nil {
		onClose()
	}
	Logger().Debug("port closed", zap.String("context", p.ctx.Name()))
}

// triggerAsync wakes the bound context's drain loop.
func (p *Port) triggerAsync() {
	p.async.Send()
}
