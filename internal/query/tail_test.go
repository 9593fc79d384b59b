package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ollystack/otell/internal/model"
)

func TestBroadcasterDeliversToSubscribers(t *testing.T) {
	b := NewBroadcaster()
	recCh, _, cancel := b.Subscribe()
	defer cancel()

	b.Publish(model.LogRecord{Ts: 1, Body: "hi"})

	select {
	case rec := <-recCh:
		require.Equal(t, "hi", rec.Body)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published record")
	}
}

func TestBroadcasterClosesLaggingSubscriber(t *testing.T) {
	b := NewBroadcaster()
	recCh, lagged, cancel := b.Subscribe()
	defer cancel()

	// Fill the subscriber's buffer without ever reading it.
	for i := 0; i < tailBufferSize+10; i++ {
		b.Publish(model.LogRecord{Ts: int64(i)})
	}

	select {
	case <-lagged:
	case <-time.After(time.Second):
		t.Fatal("expected lagged channel to close")
	}

	// The channel is closed, but the records already buffered in it are
	// still delivered before the receive reports closed.
	for i := 0; i < tailBufferSize; i++ {
		_, ok := <-recCh
		require.True(t, ok)
	}
	_, ok := <-recCh
	require.False(t, ok)
}

func TestBroadcasterCancelUnregisters(t *testing.T) {
	b := NewBroadcaster()
	_, _, cancel := b.Subscribe()
	cancel()

	b.mu.Lock()
	n := len(b.subs)
	b.mu.Unlock()
	require.Equal(t, 0, n)
}
