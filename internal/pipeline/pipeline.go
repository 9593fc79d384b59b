// Package pipeline implements the bounded, back-pressured write path that
// sits between the OTLP decoder and the store: one bounded channel and one
// writer goroutine per signal, flushing on size or time, generalized from
// the teacher's internal/batcher (size/time flush trigger, per-name
// Prometheus metrics) into a channel-based producer/consumer model with
// explicit back-pressure instead of the teacher's unbounded mutex-guarded
// slice.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// ErrFull is returned by Enqueue when the channel is at capacity and the
// enqueue timeout elapses before room frees up.
var ErrFull = errors.New("pipeline: queue full")

var (
	batchSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "otell_pipeline_batch_size",
			Help:    "Size of batches when flushed",
			Buckets: []float64{10, 50, 100, 500, 1000, 2048, 5000},
		},
		[]string{"signal"},
	)
	flushCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otell_pipeline_flushes_total",
			Help: "Total number of batch flushes",
		},
		[]string{"signal", "reason"},
	)
	flushErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otell_pipeline_flush_errors_total",
			Help: "Total number of flush errors",
		},
		[]string{"signal"},
	)
	batchesDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otell_pipeline_batches_dropped_total",
			Help: "Total number of batches dropped after exhausting retries",
		},
		[]string{"signal"},
	)
	queueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "otell_pipeline_queue_depth",
			Help: "Number of records currently buffered in the channel",
		},
		[]string{"signal"},
	)
)

// FlushFunc persists one batch. Returning an error triggers one retry;
// a second failure drops the batch.
type FlushFunc[T any] func(ctx context.Context, batch []T) error

// Config parameterizes a Pipeline's batching behavior.
type Config struct {
	BatchSize      int
	FlushInterval  time.Duration
	QueueCapacity  int
	EnqueueTimeout time.Duration
}

// Pipeline is a bounded multi-producer, single-consumer batching write
// path for one telemetry signal.
type Pipeline[T any] struct {
	signal string
	cfg    Config
	flush  FlushFunc[T]
	logger *zap.Logger

	queue chan T
	done  chan struct{}
}

// New constructs a Pipeline for the named signal ("logs", "spans",
// "metrics") but does not start its writer goroutine; call Run in its own
// goroutine.
func New[T any](signal string, cfg Config, flush FlushFunc[T], logger *zap.Logger) *Pipeline[T] {
	if cfg.QueueCapacity < cfg.BatchSize*4 {
		cfg.QueueCapacity = cfg.BatchSize * 4
	}
	return &Pipeline[T]{
		signal: signal,
		cfg:    cfg,
		flush:  flush,
		logger: logger,
		queue:  make(chan T, cfg.QueueCapacity),
		done:   make(chan struct{}),
	}
}

// Enqueue pushes one record onto the queue, blocking up to the configured
// enqueue timeout before returning ErrFull. It never blocks indefinitely:
// a caller that receives ErrFull should reject the ingest request (503 /
// RESOURCE_EXHAUSTED) rather than retry synchronously.
func (p *Pipeline[T]) Enqueue(ctx context.Context, rec T) error {
	timeout := p.cfg.EnqueueTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case p.queue <- rec:
		queueDepth.WithLabelValues(p.signal).Set(float64(len(p.queue)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrFull
	}
}

// Run drains the queue until it is closed by Stop, batching on size or
// time. It is meant to be run in its own goroutine and returns once the
// final batch has been flushed.
func (p *Pipeline[T]) Run(ctx context.Context) {
	batch := make([]T, 0, p.cfg.BatchSize)
	ticker := time.NewTicker(p.cfg.FlushInterval)
	defer ticker.Stop()

	flushReason := func(reason string) {
		if len(batch) == 0 {
			return
		}
		p.flushBatch(ctx, batch, reason)
		batch = make([]T, 0, p.cfg.BatchSize)
	}

	for {
		select {
		case rec, ok := <-p.queue:
			if !ok {
				flushReason("shutdown")
				close(p.done)
				return
			}
			if len(batch) == 0 {
				ticker.Reset(p.cfg.FlushInterval)
			}
			batch = append(batch, rec)
			queueDepth.WithLabelValues(p.signal).Set(float64(len(p.queue)))
			if len(batch) >= p.cfg.BatchSize {
				flushReason("size")
			}
		case <-ticker.C:
			flushReason("timer")
		}
	}
}

func (p *Pipeline[T]) flushBatch(ctx context.Context, batch []T, reason string) {
	err := p.flush(ctx, batch)
	if err != nil {
		p.logger.Warn("flush failed, retrying once",
			zap.String("signal", p.signal), zap.String("reason", reason), zap.Error(err))
		err = p.flush(ctx, batch)
	}
	if err != nil {
		flushErrors.WithLabelValues(p.signal).Inc()
		batchesDropped.WithLabelValues(p.signal).Inc()
		p.logger.Error("dropping batch after retry failure",
			zap.String("signal", p.signal), zap.Int("size", len(batch)), zap.Error(err))
		return
	}
	flushCount.WithLabelValues(p.signal, reason).Inc()
	batchSize.WithLabelValues(p.signal).Observe(float64(len(batch)))
}

// Stop closes the queue and blocks until the writer goroutine has drained
// and flushed any remaining batch. Total drain time is bounded by roughly
// 2x the flush interval plus one commit.
func (p *Pipeline[T]) Stop() {
	close(p.queue)
	<-p.done
}

// Depth reports the number of records currently buffered.
func (p *Pipeline[T]) Depth() int {
	return len(p.queue)
}
