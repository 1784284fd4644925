package engine

import (
	"context"
	"testing"
)

// smallest valid wasm module: magic + version, no sections
var emptyModule = []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

func TestEngine_CompileAndInstantiate(t *testing.T) {
	ctx := context.Background()
	eng := NewEngine(ctx)
	defer eng.Close(ctx)

	unit, err := eng.Compile(ctx, "empty", emptyModule)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if unit.Name() != "empty" {
		t.Errorf("Name = %q", unit.Name())
	}
	if unit.HostObjectKind() != "code-unit" {
		t.Errorf("HostObjectKind = %q", unit.HostObjectKind())
	}

	mod, err := unit.Instantiate(ctx, eng, "empty-instance")
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	if mod.Name() != "empty-instance" {
		t.Errorf("instance name = %q", mod.Name())
	}
}

func TestEngine_CompileRejectsGarbage(t *testing.T) {
	ctx := context.Background()
	eng := NewEngine(ctx)
	defer eng.Close(ctx)

	if _, err := eng.Compile(ctx, "bad", []byte("not wasm")); err == nil {
		t.Fatal("Compile accepted invalid bytes")
	}
}

func TestExportID_Stable(t *testing.T) {
	a := exportID("unit", "fn")
	b := exportID("unit", "fn")
	if a != b {
		t.Fatal("exportID not deterministic")
	}
	if exportID("unit", "other") == a {
		t.Fatal("exportID collides across function names")
	}
	if exportID("other", "fn") == a {
		t.Fatal("exportID collides across unit names")
	}
}
