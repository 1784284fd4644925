package port

import (
	"github.com/wippyai/port-runtime/engine"
)

// TransferKind discriminates the Transferable variant.
type TransferKind uint8

const (
	// TransferKindBuffer moves an exclusive buffer's backing store.
	TransferKindBuffer TransferKind = iota + 1
	// TransferKindPort moves a port's data wholesale into the message.
	TransferKindPort
	// TransferKindCodeUnit records a compiled code unit handle; the
	// handle itself is shareable, so the sender keeps access.
	TransferKindCodeUnit
)

// Transferable is a tagged variant naming one resource in a transfer
// list. The per-kind ownership rules are checked exhaustively during
// Message.Serialize.
type Transferable struct {
	kind   TransferKind
	buffer *engine.Buffer
	port   *Port
	unit   *engine.CodeUnit
}

// TransferBuffer lists an exclusive buffer for ownership transfer.
func TransferBuffer(b *engine.Buffer) Transferable {
	return Transferable{kind: TransferKindBuffer, buffer: b}
}

// TransferPort lists a port for ownership transfer.
func TransferPort(p *Port) Transferable {
	return Transferable{kind: TransferKindPort, port: p}
}

// TransferCodeUnit lists a compiled code unit.
func TransferCodeUnit(u *engine.CodeUnit) Transferable {
	return Transferable{kind: TransferKindCodeUnit, unit: u}
}

// Kind returns the variant discriminant.
func (t Transferable) Kind() TransferKind { return t.kind }
