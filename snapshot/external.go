package snapshot

import (
	"sort"
	"sync"
)

// ExternalReferences collects, per named source unit, stable pointer-sized
// identifiers used to validate and relocate function references when a
// snapshot is reloaded.
//
// The flattened list is assembled on the first List call; the per-unit
// lists are cleared in the process, so registration is effectively frozen
// at that point.
type ExternalReferences struct {
	mu     sync.Mutex
	units  map[string][]uintptr
	merged []uintptr
	frozen bool
}

var externalRefs = &ExternalReferences{units: make(map[string][]uintptr)}

// Register records identifiers under the given source unit id.
// Registering the same id twice extends the unit's list.
func Register(id string, refs ...uintptr) {
	externalRefs.register(id, refs...)
}

// List returns all registered identifiers as one flattened list, ordered
// by unit id. The first call consumes the per-unit lists.
func List() []uintptr {
	return externalRefs.list()
}

func (e *ExternalReferences) register(id string, refs ...uintptr) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.frozen {
		return
	}
	e.units[id] = append(e.units[id], refs...)
}

func (e *ExternalReferences) list() []uintptr {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.frozen {
		return e.merged
	}

	ids := make([]string, 0, len(e.units))
	for id := range e.units {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		e.merged = append(e.merged, e.units[id]...)
		delete(e.units, id)
	}
	e.frozen = true
	return e.merged
}

// resetForTesting clears the global registry state.
func resetForTesting() {
	externalRefs.mu.Lock()
	defer externalRefs.mu.Unlock()
	externalRefs.units = make(map[string][]uintptr)
	externalRefs.merged = nil
	externalRefs.frozen = false
}
