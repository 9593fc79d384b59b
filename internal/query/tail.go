package query

import (
	"sync"

	"github.com/ollystack/otell/internal/model"
)

const tailBufferSize = 1024

// Broadcaster fans out committed log records to /v1/tail subscribers. It
// is the only cross-task shared mutable state beyond the store itself,
// and is protected entirely by channel operations and one mutex guarding
// the subscriber set.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan model.LogRecord]chan struct{}
}

// NewBroadcaster constructs an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan model.LogRecord]chan struct{})}
}

// Publish fans rec out to every live subscriber. A subscriber whose
// buffer is full is considered lagging: it is closed with its lagged
// signal set rather than blocking the writer or silently dropping
// records for other subscribers.
func (b *Broadcaster) Publish(rec model.LogRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch, lagged := range b.subs {
		select {
		case ch <- rec:
		default:
			close(lagged)
			close(ch)
			delete(b.subs, ch)
		}
	}
}

// Subscribe registers a new subscriber and returns its record channel,
// a channel that is closed if the subscriber starts lagging, and a
// cancel func to unregister cleanly.
func (b *Broadcaster) Subscribe() (ch <-chan model.LogRecord, lagged <-chan struct{}, cancel func()) {
	recCh := make(chan model.LogRecord, tailBufferSize)
	laggedCh := make(chan struct{})

	b.mu.Lock()
	b.subs[recCh] = laggedCh
	b.mu.Unlock()

	cancelFn := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[recCh]; ok {
			delete(b.subs, recCh)
			close(recCh)
		}
	}
	return recCh, laggedCh, cancelFn
}
