// Package port implements entangled message ports for in-process
// cross-thread messaging.
//
// # Model
//
// A Port is the context-bound half of a communication channel; its
// PortData is the context-independent half, owning the incoming message
// queue and the sibling relationship. Entangling two PortData objects
// connects the sending side of each to the receiving side of the other.
//
//	PostMessage(value, transfer)
//	    │ serialize + capture transferables
//	    ▼
//	Message ──push──► sibling PortData incoming queue ──wake──► OnMessage
//	                                                            │ drain
//	                                                            ▼
//	                                                 Deserialize + handler
//
// # Ownership Transfer
//
// A transfer list entry is a tagged Transferable: an exclusive buffer, a
// port, or a compiled code unit. Transferred buffers are detached from the
// sender; transferred ports have their PortData detached and moved
// wholesale into the Message. Listing the posting port in its own transfer
// list fails with a DataClone-style self-transfer error and produces no
// message. Shared buffers encountered in the value graph are registered as
// shared references instead of moving.
//
// # Close Protocol
//
// A Message with an empty payload is the close sentinel: the last item a
// receiver will ever see on a queue. Disentangling enqueues the sentinel
// on both former siblings so each bound port shuts down cleanly, even if
// its data is mid-transfer and only bound to a context later.
//
// # Concurrency
//
// Posting is safe from any goroutine. Receiving (ReceiveMessage, Drain,
// the OnMessage drain loop) belongs to the owning context's goroutine,
// which is the single consumer of the incoming queue. Entangle is a
// setup-phase operation; Disentangle and Close are safe from either side,
// concurrently, with a fixed shared-then-local lock order.
package port
