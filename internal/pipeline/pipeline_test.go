package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestPipeline(t *testing.T, cfg Config, flush FlushFunc[int]) *Pipeline[int] {
	t.Helper()
	return New("test", cfg, flush, zap.NewNop())
}

func TestPipelineFlushesOnSize(t *testing.T) {
	var mu sync.Mutex
	var batches [][]int

	p := newTestPipeline(t, Config{BatchSize: 3, FlushInterval: time.Hour, EnqueueTimeout: time.Second},
		func(ctx context.Context, batch []int) error {
			mu.Lock()
			defer mu.Unlock()
			cp := append([]int(nil), batch...)
			batches = append(batches, cp)
			return nil
		})

	go p.Run(context.Background())
	for i := 0; i < 3; i++ {
		require.NoError(t, p.Enqueue(context.Background(), i))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(batches) == 1
	}, time.Second, 5*time.Millisecond)

	p.Stop()
}

func TestPipelineFlushesOnTimer(t *testing.T) {
	var mu sync.Mutex
	flushed := 0

	p := newTestPipeline(t, Config{BatchSize: 100, FlushInterval: 20 * time.Millisecond, EnqueueTimeout: time.Second},
		func(ctx context.Context, batch []int) error {
			mu.Lock()
			defer mu.Unlock()
			flushed += len(batch)
			return nil
		})

	go p.Run(context.Background())
	require.NoError(t, p.Enqueue(context.Background(), 1))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return flushed == 1
	}, time.Second, 5*time.Millisecond)

	p.Stop()
}

func TestPipelineRetriesOnceThenDrops(t *testing.T) {
	var mu sync.Mutex
	attempts := 0

	p := newTestPipeline(t, Config{BatchSize: 1, FlushInterval: time.Hour, EnqueueTimeout: time.Second},
		func(ctx context.Context, batch []int) error {
			mu.Lock()
			defer mu.Unlock()
			attempts++
			return errors.New("db down")
		})

	go p.Run(context.Background())
	require.NoError(t, p.Enqueue(context.Background(), 1))
	p.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 2, attempts)
}

func TestPipelineEnqueueTimesOutWhenFull(t *testing.T) {
	p := newTestPipeline(t, Config{BatchSize: 1, FlushInterval: time.Hour, EnqueueTimeout: 10 * time.Millisecond},
		func(ctx context.Context, batch []int) error { return nil })

	// No writer goroutine draining: fill the channel to its capacity
	// (BatchSize*4, since the requested QueueCapacity of 0 is below the
	// floor), then expect the next Enqueue to time out.
	for i := 0; i < 4; i++ {
		require.NoError(t, p.Enqueue(context.Background(), i))
	}
	err := p.Enqueue(context.Background(), 99)
	require.ErrorIs(t, err, ErrFull)
}

func TestPipelineDrainsOnStop(t *testing.T) {
	var mu sync.Mutex
	var total int

	p := newTestPipeline(t, Config{BatchSize: 1000, FlushInterval: time.Hour, EnqueueTimeout: time.Second},
		func(ctx context.Context, batch []int) error {
			mu.Lock()
			defer mu.Unlock()
			total += len(batch)
			return nil
		})

	go p.Run(context.Background())
	for i := 0; i < 10; i++ {
		require.NoError(t, p.Enqueue(context.Background(), i))
	}
	p.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 10, total)
}
