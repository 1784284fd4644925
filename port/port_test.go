package port

import (
	stderrors "errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/wippyai/port-runtime/engine"
	"github.com/wippyai/port-runtime/errors"
)

func TestPort_PostReceive(t *testing.T) {
	ctxA := engine.NewContext("a")
	ctxB := engine.NewContext("b")
	p1, p2 := Pair(ctxA, ctxB)

	if err := p1.PostMessage(map[string]any{"hello": 1}, nil); err != nil {
		t.Fatalf("PostMessage: %v", err)
	}

	value, ok, err := p2.ReceiveMessage(false)
	if err != nil || !ok {
		t.Fatalf("ReceiveMessage = %v, %v, %v", value, ok, err)
	}
	want := map[string]any{"hello": int64(1)}
	if !reflect.DeepEqual(value, want) {
		t.Fatalf("value = %#v, want %#v", value, want)
	}

	// Queue drained.
	if _, ok, _ := p2.ReceiveMessage(false); ok {
		t.Fatal("second receive returned a message")
	}
}

func TestPort_PostWithoutSiblingIsSilentlyDropped(t *testing.T) {
	ctx := engine.NewContext("a")
	p := New(ctx)

	if err := p.PostMessage("into the void", nil); err != nil {
		t.Fatalf("PostMessage without sibling failed: %v", err)
	}
	if _, ok, _ := p.ReceiveMessage(false); ok {
		t.Fatal("dropped message became receivable")
	}
}

func TestPort_StopQueuesMessages(t *testing.T) {
	ctxA := engine.NewContext("a")
	ctxB := engine.NewContext("b")
	p1, p2 := Pair(ctxA, ctxB)

	// p2 is stopped (never started): onlyIfReceiving honors that.
	if err := p1.PostMessage(1, nil); err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	if _, ok, _ := p2.ReceiveMessage(true); ok {
		t.Fatal("stopped port delivered a message")
	}

	p2.Start()
	if value, ok, _ := p2.ReceiveMessage(true); !ok || value != int64(1) {
		t.Fatalf("receive after Start = %v, %v", value, ok)
	}

	p2.Stop()
	if err := p1.PostMessage(2, nil); err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	if _, ok, _ := p2.ReceiveMessage(true); ok {
		t.Fatal("stopped port delivered a message")
	}
	// Without the flag the queued message is available.
	if value, ok, _ := p2.ReceiveMessage(false); !ok || value != int64(2) {
		t.Fatalf("unconditional receive = %v, %v", value, ok)
	}
}

func TestPort_CloseSendsCloseSentinel(t *testing.T) {
	ctxA := engine.NewContext("a")
	ctxB := engine.NewContext("b")
	p1, p2 := Pair(ctxA, ctxB)

	closed := false
	p2.SetOnClose(func() { closed = true })

	p1.Close()

	// Next pop on the receiving side observes the sentinel and closes the
	// port instead of delivering a value, even while stopped.
	if _, ok, err := p2.ReceiveMessage(true); ok || err != nil {
		t.Fatalf("ReceiveMessage = %v, %v", ok, err)
	}
	if !closed {
		t.Fatal("close sentinel did not close the receiving port")
	}
	if !p2.IsDetached() {
		t.Fatal("closed port still holds data")
	}
}

func TestPort_ConcurrentCloseBothSides(t *testing.T) {
	for i := 0; i < 500; i++ {
		ctxA := engine.NewContext("a")
		ctxB := engine.NewContext("b")
		p1, p2 := Pair(ctxA, ctxB)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); p1.Close() }()
		go func() { defer wg.Done(); p2.Close() }()
		wg.Wait()

		if !p1.IsDetached() || !p2.IsDetached() {
			t.Fatal("port survived concurrent close")
		}
	}
}

func TestPortData_DisentangleIdempotent(t *testing.T) {
	a := newPortData()
	b := newPortData()
	entangleData(a, b)

	a.Disentangle()
	a.Disentangle()
	b.Disentangle()

	if a.hasSibling() || b.hasSibling() {
		t.Fatal("sibling relation survived disentangle")
	}
	if a.deliverToSibling(NewCloseMessage()) {
		t.Fatal("delivery succeeded after disentangle")
	}
}

func TestPortData_ConcurrentDisentangleStress(t *testing.T) {
	for i := 0; i < 2000; i++ {
		a := newPortData()
		b := newPortData()
		entangleData(a, b)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); a.Disentangle() }()
		go func() { defer wg.Done(); b.Disentangle() }()
		wg.Wait()

		if a.hasSibling() || b.hasSibling() {
			t.Fatal("sibling relation survived concurrent disentangle")
		}
	}
}

func TestPort_DetachKeepsDataAlive(t *testing.T) {
	ctxA := engine.NewContext("a")
	ctxB := engine.NewContext("b")
	ctxC := engine.NewContext("c")
	p1, p2 := Pair(ctxA, ctxB)

	// Messages sent while the data is unbound wait in the queue.
	data := p2.Detach()
	if data == nil {
		t.Fatal("Detach returned nil")
	}
	if !p2.IsDetached() {
		t.Fatal("wrapper still bound after Detach")
	}
	if err := p1.PostMessage("queued", nil); err != nil {
		t.Fatalf("PostMessage: %v", err)
	}

	// Rebinding in another context delivers the queued message.
	p3 := NewWithData(ctxC, data)
	value, ok, err := p3.ReceiveMessage(false)
	if err != nil || !ok || value != "queued" {
		t.Fatalf("ReceiveMessage after rebind = %v, %v, %v", value, ok, err)
	}
}

func TestPort_TransferRelocatesLiveChannel(t *testing.T) {
	ctxX := engine.NewContext("x")
	ctxY := engine.NewContext("y")
	ctxZ := engine.NewContext("z")

	p1, p2 := Pair(ctxX, ctxY) // transfer channel
	q1, q2 := Pair(ctxX, ctxZ) // channel whose end gets shipped

	// Ship q1's end over p1 to context Y.
	err := p1.PostMessage(map[string]any{"port": q1}, []Transferable{TransferPort(q1)})
	if err != nil {
		t.Fatalf("PostMessage: %v", err)
	}
	if !q1.IsDetached() {
		t.Fatal("transferred port still bound in source context")
	}

	value, ok, err := p2.ReceiveMessage(false)
	if err != nil || !ok {
		t.Fatalf("ReceiveMessage = %v, %v", ok, err)
	}
	relocated := value.(map[string]any)["port"].(*Port)
	if relocated.Context() != ctxY {
		t.Fatal("relocated port bound to wrong context")
	}

	// The channel still works end to end.
	if err := q2.PostMessage("ping", nil); err != nil {
		t.Fatalf("PostMessage on remote end: %v", err)
	}
	got, ok, err := relocated.ReceiveMessage(false)
	if err != nil || !ok || got != "ping" {
		t.Fatalf("relocated receive = %v, %v, %v", got, ok, err)
	}
}

func TestPort_PostOnClosedPortStillSerializesTransfers(t *testing.T) {
	ctx := engine.NewContext("a")
	p := New(ctx)
	p.Close()

	buf := ctx.NewBuffer(1)
	if err := p.PostMessage(nil, []Transferable{TransferBuffer(buf)}); err != nil {
		t.Fatalf("PostMessage on closed port: %v", err)
	}
	// The listed buffer was still detached before the silent discard.
	if !buf.Detached() {
		t.Fatal("transfer list ignored on closed port")
	}
}

func TestPort_SelfTransferViaPostMessage(t *testing.T) {
	ctxA := engine.NewContext("a")
	ctxB := engine.NewContext("b")
	p1, p2 := Pair(ctxA, ctxB)

	err := p1.PostMessage(42, []Transferable{TransferPort(p1)})
	if err == nil {
		t.Fatal("PostMessage accepted a self-transfer")
	}
	if !stderrors.Is(err, &errors.Error{Phase: errors.PhaseTransfer, Kind: errors.KindSelfTransfer}) {
		t.Fatalf("error = %v", err)
	}
	// No message was delivered.
	if _, ok, _ := p2.ReceiveMessage(false); ok {
		t.Fatal("self-transfer delivered a message")
	}
}

// End-to-end: two contexts on their own goroutines, wake-driven delivery.
func TestPort_EndToEndAcrossContexts(t *testing.T) {
	ctxX := engine.NewContext("x")
	ctxY := engine.NewContext("y")
	defer ctxX.Close()
	defer ctxY.Close()
	go ctxX.Run()
	go ctxY.Run()

	p1, p2 := Pair(ctxX, ctxY)

	received := make(chan any, 1)
	p2.SetOnMessage(func(value any) { received <- value })
	p2.Start()

	if err := p1.PostMessage(map[string]any{"hello": 1}, nil); err != nil {
		t.Fatalf("PostMessage: %v", err)
	}

	select {
	case value := <-received:
		want := map[string]any{"hello": int64(1)}
		if !reflect.DeepEqual(value, want) {
			t.Fatalf("value = %#v, want %#v", value, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message never delivered")
	}

	// Self-transfer fails and nothing reaches the other side.
	if err := p1.PostMessage(42, []Transferable{TransferPort(p1)}); err == nil {
		t.Fatal("self-transfer accepted")
	}
	select {
	case value := <-received:
		t.Fatalf("unexpected delivery after failed post: %#v", value)
	case <-time.After(100 * time.Millisecond):
	}
}

// Messages posted from many goroutines must all arrive; the per-data lock
// serializes producers onto the SPSC queue.
func TestPort_ManyProducersOneConsumer(t *testing.T) {
	ctxA := engine.NewContext("a")
	ctxB := engine.NewContext("b")
	defer ctxB.Close()
	go ctxB.Run()

	p1, p2 := Pair(ctxA, ctxB)

	const producers = 8
	const perProducer = 200
	received := make(chan any, producers*perProducer)
	p2.SetOnMessage(func(value any) { received <- value })
	p2.Start()

	var wg sync.WaitGroup
	for g := 0; g < producers; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				if err := p1.PostMessage("m", nil); err != nil {
					t.Errorf("PostMessage: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	deadline := time.After(5 * time.Second)
	for i := 0; i < producers*perProducer; i++ {
		select {
		case <-received:
		case <-deadline:
			t.Fatalf("only %d of %d messages delivered", i, producers*perProducer)
		}
	}
}
