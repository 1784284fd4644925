package engine

import (
	"context"
	"hash/fnv"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/port-runtime/errors"
	"github.com/wippyai/port-runtime/snapshot"
)

// Engine compiles and links code units. It wraps a wazero runtime shared
// by every context in the process.
type Engine struct {
	runtime wazero.Runtime
}

// NewEngine creates an engine backed by a wazero runtime.
func NewEngine(ctx context.Context) *Engine {
	return &Engine{runtime: wazero.NewRuntime(ctx)}
}

// Close releases the underlying runtime and all compiled units.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// CodeUnit is a compiled WebAssembly module handle. It is context
// independent: messages carry it as an opaque handle and the receiving
// side re-links it against its own context.
type CodeUnit struct {
	name     string
	source   []byte
	compiled wazero.CompiledModule
}

// Compile compiles WebAssembly bytes into a CodeUnit. Stable identifiers
// for the unit's exported functions are registered with the snapshot
// external-reference registry.
func (e *Engine) Compile(ctx context.Context, name string, source []byte) (*CodeUnit, error) {
	compiled, err := e.runtime.CompileModule(ctx, source)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseCompile, errors.KindInvalidData, err, "wasm compilation failed")
	}

	exports := compiled.ExportedFunctions()
	refs := make([]uintptr, 0, len(exports))
	for fnName := range exports {
		refs = append(refs, exportID(name, fnName))
	}
	snapshot.Register("wasm:"+name, refs...)

	Logger().Debug("compiled code unit",
		zap.String("unit", name),
		zap.Int("exports", len(exports)))

	return &CodeUnit{name: name, source: source, compiled: compiled}, nil
}

// HostObjectKind identifies code units to the value serializer.
func (u *CodeUnit) HostObjectKind() string { return "code-unit" }

// Name returns the unit's source name.
func (u *CodeUnit) Name() string { return u.name }

// Source returns the original module bytes.
func (u *CodeUnit) Source() []byte { return u.source }

// Compiled returns the underlying compiled module.
func (u *CodeUnit) Compiled() wazero.CompiledModule { return u.compiled }

// Instantiate links the unit into a runnable module instance under the
// given instance name.
func (u *CodeUnit) Instantiate(ctx context.Context, e *Engine, instanceName string) (api.Module, error) {
	mod, err := e.runtime.InstantiateModule(ctx, u.compiled,
		wazero.NewModuleConfig().WithName(instanceName))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseCompile, errors.KindInvalidData, err, "module instantiation failed")
	}
	return mod, nil
}

// exportID derives a stable pointer-sized identifier for an exported
// function, used to validate function references across a snapshot
// reload.
func exportID(unit, fn string) uintptr {
	h := fnv.New64a()
	h.Write([]byte(unit))
	h.Write([]byte{'#'})
	h.Write([]byte(fn))
	return uintptr(h.Sum64())
}
