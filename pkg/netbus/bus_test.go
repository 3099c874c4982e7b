package netbus_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/trustmesh/node/pkg/netbus"
	"github.com/trustmesh/node/pkg/obs"
	"github.com/stretchr/testify/require"
)

func TestBus_DeliversToRegisteredAddress(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := netbus.New(4)
	var mu sync.Mutex
	var received []byte

	done := make(chan struct{})
	b.Register(ctx, "worker.a", func(_ context.Context, env netbus.Envelope) {
		mu.Lock()
		received = env.Payload
		mu.Unlock()
		close(done)
	})

	require.NoError(t, b.Send(ctx, netbus.Envelope{To: "worker.a", Payload: []byte("hello")}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []byte("hello"), received)
}

func TestBus_SendToUnknownAddressErrors(t *testing.T) {
	b := netbus.New(4)
	err := b.Send(context.Background(), netbus.Envelope{To: "ghost"})
	require.Error(t, err)
}

func TestBus_FIFOWithinWorker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := netbus.New(8)
	var mu sync.Mutex
	var order []int
	allDone := make(chan struct{})

	count := 0
	b.Register(ctx, "worker.fifo", func(_ context.Context, env netbus.Envelope) {
		mu.Lock()
		order = append(order, int(env.Payload[0]))
		count++
		if count == 5 {
			close(allDone)
		}
		mu.Unlock()
	})

	for i := 0; i < 5; i++ {
		require.NoError(t, b.Send(ctx, netbus.Envelope{To: "worker.fifo", Payload: []byte{byte(i)}}))
	}

	select {
	case <-allDone:
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestBus_SendDroppingDropsWhenFull(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := netbus.New(1)
	block := make(chan struct{})
	b.RegisterDropping(ctx, "worker.drop", 1, func(_ context.Context, _ netbus.Envelope) {
		<-block
	})

	require.True(t, b.SendDropping(netbus.Envelope{To: "worker.drop", Payload: []byte{1}}))
	// First message now occupies the handler (blocked on <-block); the
	// mailbox itself has capacity 1, so the second send fills it...
	require.True(t, b.SendDropping(netbus.Envelope{To: "worker.drop", Payload: []byte{2}}))
	// ...and the third has nowhere to go.
	require.False(t, b.SendDropping(netbus.Envelope{To: "worker.drop", Payload: []byte{3}}))

	close(block)
}

func TestBus_DispatchWithDisabledObserverStillDelivers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	provider, err := obs.New(ctx, &obs.Config{Enabled: false})
	require.NoError(t, err)

	b := netbus.New(4)
	b.SetObserver(provider)

	done := make(chan struct{})
	b.Register(ctx, "worker.obs", func(_ context.Context, _ netbus.Envelope) {
		close(done)
	})

	require.NoError(t, b.Send(ctx, netbus.Envelope{To: "worker.obs", Payload: []byte("x")}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery with observer attached")
	}
}

func TestBus_StopWaitsForWorkers(t *testing.T) {
	b := netbus.New(1)
	ctx := context.Background()
	b.Register(ctx, "worker.stop", func(_ context.Context, _ netbus.Envelope) {})
	b.Stop()
	err := b.Send(context.Background(), netbus.Envelope{To: "worker.stop"})
	require.Error(t, err)
}
