package port

import (
	"fmt"

	"github.com/wippyai/port-runtime/engine"
	"github.com/wippyai/port-runtime/errors"
)

// refKind locates a host-object reference in one of the message's
// resource lists.
type refKind uint8

const (
	refArrayBuffer refKind = iota
	refSharedBuffer
	refPort
	refCodeUnit
)

type resourceRef struct {
	kind  refKind
	index int
}

// Message is a single communication envelope: a serialized payload plus
// the resources captured from the value graph and the transfer list. A
// Message with an empty payload is the close sentinel: the last item a
// receiving port will ever see on its queue.
//
// A Message is immutable once serialized and may be deserialized at most
// once.
type Message struct {
	payload []byte
	refs    []resourceRef

	// Exclusively owned backing stores: transferred first, then copies
	// of non-transferred exclusive buffers found in the graph.
	arrayBuffers []*engine.BackingStore
	// Shared stores referenced by both sides.
	sharedStores []*engine.BackingStore
	// Transferred port datas, owned wholesale by the message.
	ports []*PortData
	// Code unit handles (shareable).
	codeUnits []*engine.CodeUnit

	serialized bool
	consumed   bool
}

// NewMessage creates a message over an existing payload. An empty payload
// makes a close message.
func NewMessage(payload []byte) *Message {
	return &Message{payload: payload, serialized: len(payload) > 0}
}

// NewCloseMessage creates the close sentinel.
func NewCloseMessage() *Message {
	return &Message{}
}

// IsCloseMessage reports whether this message tells the receiving port to
// close itself.
func (m *Message) IsCloseMessage() bool {
	return len(m.payload) == 0
}

// Ports returns the port datas transferred with this message.
func (m *Message) Ports() []*PortData {
	return m.ports
}

// Serialize deep-serializes value into the message payload, capturing the
// transfer list. Each transferred buffer is detached from its source and
// its backing store handed to the message; each transferred port's data
// is detached and moved wholesale. Shared buffers encountered in the
// value graph are registered as shared references. If source is listed in
// its own transfer list, serialization fails with a self-transfer error
// and nothing is transferred.
func (m *Message) Serialize(ctx *engine.Context, value any, transfer []Transferable, source *Port) error {
	if m.serialized {
		return errors.InvalidState(errors.PhaseSerialize, "message already serialized")
	}

	var bufCount, portCount, unitCount int
	plan := make(map[any]resourceRef, len(transfer))
	for _, t := range transfer {
		switch t.kind {
		case TransferKindBuffer:
			b := t.buffer
			if b.Detached() {
				return errors.Detached(errors.PhaseTransfer, "buffer in transfer list")
			}
			if b.Shared() {
				return errors.New(errors.PhaseTransfer, errors.KindDataClone).
					Detail("shared buffers are not transferable").
					Build()
			}
			if _, dup := plan[b]; dup {
				return errors.New(errors.PhaseTransfer, errors.KindDataClone).
					Detail("duplicate buffer in transfer list").
					Build()
			}
			plan[b] = resourceRef{refArrayBuffer, bufCount}
			bufCount++

		case TransferKindPort:
			p := t.port
			if p == source {
				return errors.SelfTransfer()
			}
			if p.IsDetached() {
				return errors.Detached(errors.PhaseTransfer, "port in transfer list")
			}
			if _, dup := plan[p]; dup {
				return errors.New(errors.PhaseTransfer, errors.KindDataClone).
					Detail("duplicate port in transfer list").
					Build()
			}
			plan[p] = resourceRef{refPort, portCount}
			portCount++

		case TransferKindCodeUnit:
			if _, dup := plan[t.unit]; dup {
				continue
			}
			plan[t.unit] = resourceRef{refCodeUnit, unitCount}
			unitCount++

		default:
			return errors.New(errors.PhaseTransfer, errors.KindDataClone).
				Detail("transfer list entry is neither a buffer, a port, nor a code unit").
				Build()
		}
	}

	// Reserve the planned list slots; commit fills them after the payload
	// serialized successfully. Graph-only resources append behind them.
	m.arrayBuffers = make([]*engine.BackingStore, bufCount)
	m.ports = make([]*PortData, portCount)
	m.codeUnits = make([]*engine.CodeUnit, unitCount)

	delegate := &serializeDelegate{msg: m, plan: plan}
	payload, err := engine.SerializeValue(value, delegate)
	if err != nil {
		// Nothing was detached yet; the caller's handles stay valid.
		return err
	}

	// Commit: detach every transferred resource, in transfer-list order.
	for _, t := range transfer {
		switch t.kind {
		case TransferKindBuffer:
			store, err := t.buffer.Detach()
			if err != nil {
				return err
			}
			m.arrayBuffers[plan[t.buffer].index] = store
		case TransferKindPort:
			data := t.port.Detach()
			if data == nil {
				return errors.Detached(errors.PhaseTransfer, "port in transfer list")
			}
			m.ports[plan[t.port].index] = data
		case TransferKindCodeUnit:
			m.codeUnits[plan[t.unit].index] = t.unit
		}
	}

	m.payload = payload
	m.serialized = true
	return nil
}

// Deserialize reconstructs the value in the destination context,
// rebinding every captured resource: backing stores become context-local
// buffers, transferred port datas are wrapped in new ports bound to ctx,
// code units pass through by handle. May be called at most once, and only
// after Serialize completed.
func (m *Message) Deserialize(ctx *engine.Context) (any, error) {
	if m.IsCloseMessage() {
		return nil, errors.InvalidState(errors.PhaseDeserialize, "close message carries no value")
	}
	if !m.serialized {
		return nil, errors.InvalidState(errors.PhaseDeserialize, "message was never serialized")
	}
	if m.consumed {
		return nil, errors.InvalidState(errors.PhaseDeserialize, "message already deserialized")
	}
	m.consumed = true

	buffers := make([]*engine.Buffer, len(m.arrayBuffers))
	for i, store := range m.arrayBuffers {
		buffers[i] = ctx.AdoptStore(store)
	}
	shared := make([]*engine.Buffer, len(m.sharedStores))
	for i, store := range m.sharedStores {
		shared[i] = ctx.AdoptStore(store)
	}
	ports := make([]*Port, len(m.ports))
	for i, data := range m.ports {
		ports[i] = NewWithData(ctx, data)
	}

	reader := &deserializeDelegate{
		msg:     m,
		buffers: buffers,
		shared:  shared,
		ports:   ports,
	}
	return engine.DeserializeValue(m.payload, reader)
}

// serializeDelegate records host objects found in the value graph.
type serializeDelegate struct {
	msg  *Message
	plan map[any]resourceRef
}

func (d *serializeDelegate) WriteHostObject(obj any) (uint32, error) {
	if r, ok := d.plan[obj]; ok {
		return d.addRef(r), nil
	}

	switch o := obj.(type) {
	case *engine.Buffer:
		if o.Detached() {
			return 0, errors.Detached(errors.PhaseSerialize, "buffer")
		}
		store, err := o.Store()
		if err != nil {
			return 0, err
		}
		var r resourceRef
		if o.Shared() {
			r = resourceRef{refSharedBuffer, len(d.msg.sharedStores)}
			d.msg.sharedStores = append(d.msg.sharedStores, store)
		} else {
			// Exclusive buffer not listed for transfer: clone the bytes.
			clone := engine.AllocBackingStore(store.Len())
			copy(clone.Bytes(), store.Bytes())
			r = resourceRef{refArrayBuffer, len(d.msg.arrayBuffers)}
			d.msg.arrayBuffers = append(d.msg.arrayBuffers, clone)
		}
		d.plan[o] = r
		return d.addRef(r), nil

	case *Port:
		// A port reachable from the value graph must be listed in the
		// transfer list; it was not, or we would have found it above.
		return 0, errors.New(errors.PhaseSerialize, errors.KindDataClone).
			Detail("port found in message but not listed in transfer list").
			Build()

	case *engine.CodeUnit:
		r := resourceRef{refCodeUnit, len(d.msg.codeUnits)}
		d.msg.codeUnits = append(d.msg.codeUnits, o)
		d.plan[o] = r
		return d.addRef(r), nil

	default:
		return 0, errors.Unclonable(errors.PhaseSerialize, nil, fmt.Sprintf("%T", obj))
	}
}

func (d *serializeDelegate) addRef(r resourceRef) uint32 {
	d.msg.refs = append(d.msg.refs, r)
	return uint32(len(d.msg.refs) - 1)
}

// deserializeDelegate resolves payload references against the rebuilt
// context-local wrappers.
type deserializeDelegate struct {
	msg     *Message
	buffers []*engine.Buffer
	shared  []*engine.Buffer
	ports   []*Port
}

func (d *deserializeDelegate) ReadHostObject(index uint32) (any, error) {
	if int(index) >= len(d.msg.refs) {
		return nil, errors.New(errors.PhaseDeserialize, errors.KindNotFound).
			Detail("host object reference %d out of range", index).
			Build()
	}
	r := d.msg.refs[index]
	switch r.kind {
	case refArrayBuffer:
		return d.buffers[r.index], nil
	case refSharedBuffer:
		return d.shared[r.index], nil
	case refPort:
		return d.ports[r.index], nil
	case refCodeUnit:
		return d.msg.codeUnits[r.index], nil
	}
	return nil, errors.New(errors.PhaseDeserialize, errors.KindInvalidData).
		Detail("unknown resource kind %d", r.kind).
		Build()
}
