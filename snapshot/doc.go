// Package snapshot provides a self-describing tag-length binary codec for
// persisting internal object graphs across a save/restore boundary.
//
// # Format
//
// A snapshot is a flat sequence of tagged records. Every value is preceded
// by a one-byte type tag; strings carry a Uint64 length before their raw
// bytes. Named entries bracket nested groups:
//
//	EntryStart, String(name), ...fields..., EntryEnd
//
// Entries may nest. On read, each operation first consumes and validates
// the expected tag.
//
// # Error Accumulation
//
// Read and write passes never abort on the first structural problem.
// Mismatched tags, wrong entry names, and truncated input are recorded as
// human-readable strings prefixed with the current entry path, e.g.
//
//	At root:child: Unexpected tag 8 (expected 3)
//
// and the failing operation reports no value. Callers inspect Errors()
// after a full pass to decide success or failure; no partial record is
// ever returned as if valid.
//
// # External References
//
// The package also hosts a process-global registry of stable identifiers
// (per named source unit) used to validate and relocate function
// references when a snapshot is reloaded. The flattened list is built on
// first request and the per-unit lists are cleared, a one-shot
// consumption.
package snapshot
