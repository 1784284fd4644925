// Package engine provides the host-side collaborators of the messaging
// core: value serialization, buffer backing stores, compiled code units,
// and execution contexts with an async wake primitive.
//
// # Value Serialization
//
// Structured values are plain Go graphs: nil, booleans, integers, floats,
// strings, byte slices, slices, and string-keyed maps, plus host objects
// (buffers, ports, code units). SerializeValue deep-encodes such a graph
// to msgpack bytes, replacing every host object with an indexed reference
// recorded through a delegate. DeserializeValue reverses the process,
// resolving references through a reader delegate bound to the destination
// context.
//
// For symmetry across the boundary, integers deserialize as int64 (uint64
// for values above the int64 range) and floats as float64.
//
// Values the serializer cannot represent (functions, channels, arbitrary
// structs) fail with an unclonable error naming the offending path.
//
// # Contexts and Wakes
//
// A Context owns a callback queue drained by its own goroutine (Run). Post
// schedules a callback from any goroutine; Async wraps a callback with an
// idempotent wake so multiple triggers before the wakeup fires coalesce
// into one invocation.
//
// # Code Units
//
// An Engine compiles WebAssembly bytes into CodeUnits via wazero. A
// CodeUnit is a context-independent handle: it travels inside messages and
// re-links (instantiates) in the destination context. Exported function
// identifiers are registered with the snapshot external-reference registry
// so reloaded snapshots can validate function references.
package engine
