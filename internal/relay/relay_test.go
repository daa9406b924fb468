package relay

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"RGBStd/internal/codec"
	"RGBStd/internal/containers"
	"RGBStd/internal/containers/containerstest"
	"RGBStd/internal/types"
)

// newTestNode creates a started node on a random localhost port.
func newTestNode(t *testing.T) *Node {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	n, err := NewNode(Config{PrivateKey: priv, ListenAddr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	if err := n.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	t.Cleanup(func() { n.Close() })

	return n
}

func testContext(t *testing.T) context.Context {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	return ctx
}

func TestSendReceive(t *testing.T) {
	receiver := newTestNode(t)
	sender := newTestNode(t)

	var (
		mu       sync.Mutex
		received []containers.TransferID
		from     Peer
	)

	receiver.OnTransfer(func(_ context.Context, p Peer, id containers.TransferID, _ *containers.Consignment) error {
		mu.Lock()
		defer mu.Unlock()

		received = append(received, id)
		from = p

		return nil
	})

	c := containerstest.Sample(containerstest.Options{Bundles: 2, PerBundle: 2, Extensions: 1})

	id, err := sender.Send(testContext(t), receiver.Addr(), c)
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	want, _ := c.TransferID()
	if id != want {
		t.Fatal("send returned a different id")
	}

	mu.Lock()
	defer mu.Unlock()

	if len(received) != 1 || received[0] != want {
		t.Fatalf("received %v", received)
	}

	if !from.PublicKey.Equal(sender.PublicKey()) {
		t.Fatal("handler saw the wrong peer key")
	}
}

func TestSendRejected(t *testing.T) {
	receiver := newTestNode(t)
	sender := newTestNode(t)

	receiver.OnTransfer(func(context.Context, Peer, containers.TransferID, *containers.Consignment) error {
		return errors.New("unknown contract")
	})

	c := containerstest.Sample(containerstest.Options{Bundles: 1, PerBundle: 1})

	_, err := sender.Send(testContext(t), receiver.Addr(), c)
	if !errors.Is(err, ErrRejected) || !strings.Contains(err.Error(), "unknown contract") {
		t.Fatalf("expected rejection, got %v", err)
	}
}

func TestSendWithoutHandler(t *testing.T) {
	receiver := newTestNode(t)
	sender := newTestNode(t)

	c := containerstest.Sample(containerstest.Options{Bundles: 1, PerBundle: 1})

	if _, err := sender.Send(testContext(t), receiver.Addr(), c); !errors.Is(err, ErrRejected) {
		t.Fatalf("expected rejection, got %v", err)
	}
}

func TestReceiveIDMismatch(t *testing.T) {
	n := newTestNode(t)
	n.OnTransfer(func(context.Context, Peer, containers.TransferID, *containers.Consignment) error {
		t.Error("handler must not run on a mismatching id")
		return nil
	})

	c := containerstest.Sample(containerstest.Options{Bundles: 1, PerBundle: 1})
	payload := mustEncode(t, c)

	request := &envelope{kind: types.EnvelopeKindTransfer, id: containers.TransferID{1}, payload: payload}
	reply := n.receive(Peer{Address: "test"}, request.marshal())

	if reply.kind != types.EnvelopeKindReject || !strings.Contains(reply.reason, ErrIDMismatch.Error()) {
		t.Fatalf("expected id mismatch rejection, got %s %q", reply.kind, reply.reason)
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	in := &envelope{
		kind:    types.EnvelopeKindReject,
		id:      containers.TransferID{9, 8, 7},
		payload: []byte{1, 2, 3},
		reason:  "bad",
	}

	out, err := unmarshalEnvelope(in.marshal())
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if out.kind != in.kind || out.id != in.id || string(out.payload) != string(in.payload) || out.reason != in.reason {
		t.Fatalf("got %+v", out)
	}

	if _, err := unmarshalEnvelope([]byte{0xff, 0xff, 0xff, 0x7f}); err == nil {
		t.Fatal("expected error for garbage")
	}
}

func mustEncode(t *testing.T, c *containers.Consignment) []byte {
	t.Helper()

	data, err := codec.Encode(c)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	return data
}

func TestDuplicateTransferAcknowledged(t *testing.T) {
	n := newTestNode(t)

	calls := 0
	n.OnTransfer(func(context.Context, Peer, containers.TransferID, *containers.Consignment) error {
		calls++
		return nil
	})

	c := containerstest.Sample(containerstest.Options{Bundles: 1, PerBundle: 1})
	id, _ := c.TransferID()
	request := &envelope{kind: types.EnvelopeKindTransfer, id: id, payload: mustEncode(t, c)}

	for i := 0; i < 3; i++ {
		if reply := n.receive(Peer{Address: "test"}, request.marshal()); reply.kind != types.EnvelopeKindAck {
			t.Fatalf("delivery %d: got %s %q", i, reply.kind, reply.reason)
		}
	}

	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
}

func TestRejectedTransferRetried(t *testing.T) {
	n := newTestNode(t)

	calls := 0
	n.OnTransfer(func(context.Context, Peer, containers.TransferID, *containers.Consignment) error {
		calls++
		if calls == 1 {
			return errors.New("busy")
		}
		return nil
	})

	c := containerstest.Sample(containerstest.Options{Bundles: 1, PerBundle: 1})
	id, _ := c.TransferID()
	request := &envelope{kind: types.EnvelopeKindTransfer, id: id, payload: mustEncode(t, c)}

	if reply := n.receive(Peer{Address: "test"}, request.marshal()); reply.kind != types.EnvelopeKindReject {
		t.Fatalf("first delivery: got %s", reply.kind)
	}

	if reply := n.receive(Peer{Address: "test"}, request.marshal()); reply.kind != types.EnvelopeKindAck {
		t.Fatalf("retry: got %s %q", reply.kind, reply.reason)
	}
}

func TestConcurrentDeliveryHandledOnce(t *testing.T) {
	n := newTestNode(t)

	entered := make(chan struct{})
	unblock := make(chan struct{})

	var calls atomic.Int32
	n.OnTransfer(func(context.Context, Peer, containers.TransferID, *containers.Consignment) error {
		if calls.Add(1) == 1 {
			close(entered)
			<-unblock
		}
		return nil
	})

	c := containerstest.Sample(containerstest.Options{Bundles: 1, PerBundle: 1})
	id, _ := c.TransferID()
	request := (&envelope{kind: types.EnvelopeKindTransfer, id: id, payload: mustEncode(t, c)}).marshal()

	first := make(chan *envelope, 1)
	go func() { first <- n.receive(Peer{Address: "a"}, request) }()

	<-entered

	reply := n.receive(Peer{Address: "b"}, request)
	if reply.kind != types.EnvelopeKindReject || reply.reason != ErrInFlight.Error() {
		t.Fatalf("concurrent delivery: got %s %q", reply.kind, reply.reason)
	}

	close(unblock)

	if reply := <-first; reply.kind != types.EnvelopeKindAck {
		t.Fatalf("first delivery: got %s %q", reply.kind, reply.reason)
	}

	if reply := n.receive(Peer{Address: "b"}, request); reply.kind != types.EnvelopeKindAck {
		t.Fatalf("later delivery: got %s %q", reply.kind, reply.reason)
	}

	if got := calls.Load(); got != 1 {
		t.Fatalf("handler ran %d times, want 1", got)
	}
}

func TestRecentClaims(t *testing.T) {
	r := newRecent(time.Millisecond)
	defer r.close()

	id := containers.TransferID{4}

	if got := r.claim(id); got != claimed {
		t.Fatalf("first claim: got %d", got)
	}

	if got := r.claim(id); got != inFlight {
		t.Fatalf("second claim: got %d", got)
	}

	r.release(id)

	if got := r.claim(id); got != claimed {
		t.Fatalf("claim after release: got %d", got)
	}

	r.accept(id)

	if got := r.claim(id); got != accepted {
		t.Fatalf("claim after accept: got %d", got)
	}

	time.Sleep(5 * time.Millisecond)
	r.cleanup()

	r.mu.Lock()
	n := len(r.seen)
	r.mu.Unlock()

	if n != 0 {
		t.Fatalf("cleanup kept %d entries", n)
	}

	if got := r.claim(id); got != claimed {
		t.Fatalf("claim after expiry: got %d", got)
	}
}
