// Package portruntime provides an in-process cross-thread messaging core.
//
// Two isolated execution contexts, each running on its own goroutine with
// its own callback loop, exchange structured values and transferable
// resources through entangled message ports. A companion tag-length binary
// codec persists internal object graphs across a snapshot boundary.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct
// responsibilities:
//
//	portruntime/       Root package with host-boundary interfaces
//	├── queue/         Lock-free single-producer/single-consumer queue
//	├── port/          Message envelopes, port data, entangled ports
//	├── engine/        Host value codec, backing stores, code units,
//	│                  execution contexts with async wake
//	├── snapshot/      Tag-length snapshot codec and external references
//	├── errors/        Structured error types for debugging
//	└── cmd/portrun/   Demo CLI with an interactive monitor
//
// # Quick Start
//
// Create two contexts, entangle a port pair, and exchange a message:
//
//	ctxA := engine.NewContext("a")
//	ctxB := engine.NewContext("b")
//	go ctxA.Run()
//	go ctxB.Run()
//
//	p1, p2 := port.Pair(ctxA, ctxB)
//	p2.SetOnMessage(func(value any) { fmt.Println(value) })
//	p2.Start()
//
//	err := p1.PostMessage(map[string]any{"hello": 1}, nil)
//
// The value arrives in ctxB's callback loop and is delivered to p2's
// message handler, deserialized against ctxB.
//
// # Thread Safety
//
// The queue is safe for exactly one concurrent producer and one concurrent
// consumer. Port posting is safe from any goroutine; receiving belongs to
// the owning context's goroutine. Entangle is a setup-phase operation;
// Disentangle and Close are safe from either side at any time.
//
// # Ownership Transfer
//
// Buffers, ports, and compiled code units listed in a transfer list move
// wholly to the receiving side. The sender's handle is detached at
// serialization time and any further use reports a detached error.
package portruntime
