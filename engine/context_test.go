package engine

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestContext_PostRunsCallbacks(t *testing.T) {
	ctx := NewContext("worker")
	defer ctx.Close()
	go ctx.Run()

	done := make(chan int, 3)
	for i := 0; i < 3; i++ {
		i := i
		ctx.Post(func() { done <- i })
	}
	for i := 0; i < 3; i++ {
		select {
		case got := <-done:
			if got != i {
				t.Fatalf("callback order: got %d, want %d", got, i)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("callback never ran")
		}
	}
}

func TestContext_PostAfterCloseDropped(t *testing.T) {
	ctx := NewContext("worker")
	ctx.Close()
	ran := atomic.Bool{}
	ctx.Post(func() { ran.Store(true) })
	ctx.DrainCallbacks()
	if ran.Load() {
		t.Fatal("callback posted after Close ran")
	}
}

func TestContext_WakeIdempotent(t *testing.T) {
	ctx := NewContext("worker")
	// Many wakes with no consumer must not block.
	for i := 0; i < 100; i++ {
		ctx.Wake()
	}
}

func TestAsync_Coalesces(t *testing.T) {
	ctx := NewContext("worker")
	var fired atomic.Int32
	async := ctx.NewAsync(func() { fired.Add(1) })

	// Multiple sends before the loop runs collapse into one invocation.
	for i := 0; i < 10; i++ {
		async.Send()
	}
	ctx.DrainCallbacks()
	if got := fired.Load(); got != 1 {
		t.Fatalf("callback fired %d times, want 1", got)
	}

	// A send after the callback fired triggers again.
	async.Send()
	ctx.DrainCallbacks()
	if got := fired.Load(); got != 2 {
		t.Fatalf("callback fired %d times, want 2", got)
	}
}

func TestAsync_SendFromManyGoroutines(t *testing.T) {
	ctx := NewContext("worker")
	defer ctx.Close()
	go ctx.Run()

	var fired atomic.Int32
	async := ctx.NewAsync(func() { fired.Add(1) })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				async.Send()
			}
		}()
	}
	wg.Wait()

	deadline := time.After(2 * time.Second)
	for fired.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("async callback never fired")
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func TestAsync_ClosedSendIsNoop(t *testing.T) {
	ctx := NewContext("worker")
	var fired atomic.Int32
	async := ctx.NewAsync(func() { fired.Add(1) })
	async.Close()
	async.Send()
	ctx.DrainCallbacks()
	if fired.Load() != 0 {
		t.Fatal("closed async handle fired")
	}
}

func TestBuffer_DetachSemantics(t *testing.T) {
	ctx := NewContext("test")
	buf := ctx.NewBuffer(16)

	data, err := buf.Bytes()
	if err != nil || len(data) != 16 {
		t.Fatalf("Bytes = %v, %v", data, err)
	}

	store, err := buf.Detach()
	if err != nil {
		t.Fatalf("Detach: %v", err)
	}
	if store.Len() != 16 {
		t.Fatalf("store length = %d", store.Len())
	}

	if _, err := buf.Bytes(); err == nil {
		t.Fatal("Bytes on detached buffer succeeded")
	}
	if _, err := buf.Detach(); err == nil {
		t.Fatal("second Detach succeeded")
	}
}

func TestBuffer_SharedCannotDetach(t *testing.T) {
	ctx := NewContext("test")
	buf := ctx.NewSharedBuffer(8)
	if _, err := buf.Detach(); err == nil {
		t.Fatal("Detach on shared buffer succeeded")
	}
	// Still usable.
	if _, err := buf.Bytes(); err != nil {
		t.Fatalf("Bytes after failed Detach: %v", err)
	}
}

func TestBackingStore_RefCounting(t *testing.T) {
	store := NewSharedBackingStore(4)
	ctxA := NewContext("a")
	ctxB := NewContext("b")
	a := ctxA.AdoptStore(store)
	b := ctxB.AdoptStore(store)
	if store.Refs() != 2 {
		t.Fatalf("Refs = %d, want 2", store.Refs())
	}

	// Both views share the same memory.
	bytesA, _ := a.Bytes()
	bytesA[0] = 0xAB
	bytesB, _ := b.Bytes()
	if bytesB[0] != 0xAB {
		t.Fatal("shared store views do not alias")
	}
}
