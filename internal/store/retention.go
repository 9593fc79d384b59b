package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const retentionInterval = 60 * time.Second

// sizeCapTables is the deletion order for the size-cap pass: metric
// points first (highest volume, least individually valuable), then logs,
// then spans.
var sizeCapTables = []string{"metric_points", "logs", "spans"}

var tableTsColumn = map[string]string{
	"logs":          "ts",
	"spans":         "start_ts",
	"metric_points": "ts",
}

// RunRetention runs the TTL and size-cap passes once every retentionInterval
// until ctx is cancelled. Grounded on the pack's DuckDB CleanupOldData
// pattern, extended with the size-cap loop.
func (s *Store) RunRetention(ctx context.Context, ttl time.Duration, maxBytes int64) {
	ticker := time.NewTicker(retentionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			spanCtx, span := s.tracer.Start(ctx, "store.retention", "retention.sweep")
			if err := s.sweepTTL(spanCtx, ttl); err != nil {
				span.RecordError(err)
				s.logger.Error("retention: ttl sweep failed", zap.Error(err))
			}
			if err := s.sweepSizeCap(spanCtx, maxBytes); err != nil {
				span.RecordError(err)
				s.logger.Error("retention: size-cap sweep failed", zap.Error(err))
			}
			span.End()
		}
	}
}

// sweepTTL deletes rows older than now-ttl from logs, spans (by start_ts)
// and metric_points, under an exclusive writeLock so it never races a bulk
// insert. span_events and span_links rows are not deleted by this sweep.
func (s *Store) sweepTTL(ctx context.Context, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-ttl).UnixNano()

	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	for _, table := range sizeCapTables {
		col := tableTsColumn[table]
		query := fmt.Sprintf("DELETE FROM %s WHERE %s < ?", table, col)
		result, err := s.db.ExecContext(ctx, query, cutoff)
		if err != nil {
			return fmt.Errorf("store: ttl sweep %s: %w", table, err)
		}
		if rows, _ := result.RowsAffected(); rows > 0 {
			s.logger.Info("retention: ttl sweep", zap.String("table", table), zap.Int64("rows", rows))
		}
	}
	return nil
}

// sweepSizeCap repeatedly deletes the oldest 10% of metric_points, then
// logs, then spans, re-checking the file size after each table, until the
// DB is under maxBytes or a max of 10 iterations has run.
func (s *Store) sweepSizeCap(ctx context.Context, maxBytes int64) error {
	if maxBytes <= 0 {
		return nil
	}
	for i := 0; i < 10; i++ {
		if s.SizeBytes() <= maxBytes {
			return nil
		}
		shrank := false
		for _, table := range sizeCapTables {
			if s.SizeBytes() <= maxBytes {
				return nil
			}
			rows, err := s.deleteOldestFraction(ctx, table, 0.10)
			if err != nil {
				return err
			}
			if rows > 0 {
				shrank = true
				s.logger.Info("retention: size-cap sweep",
					zap.String("table", table), zap.Int64("rows", rows), zap.Int("iteration", i))
			}
		}
		if !shrank {
			return nil
		}
	}
	return nil
}

// deleteOldestFraction deletes the oldest frac of table's rows, ordered by
// its timestamp column, under an exclusive writeLock.
func (s *Store) deleteOldestFraction(ctx context.Context, table string, frac float64) (int64, error) {
	col := tableTsColumn[table]

	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	var total int64
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&total); err != nil {
		return 0, fmt.Errorf("store: size-cap count %s: %w", table, err)
	}
	n := int64(float64(total) * frac)
	if n <= 0 {
		return 0, nil
	}

	query := fmt.Sprintf(`
		DELETE FROM %s WHERE %s IN (
			SELECT %s FROM %s ORDER BY %s ASC LIMIT ?
		)`, table, col, col, table, col)
	result, err := s.db.ExecContext(ctx, query, n)
	if err != nil {
		return 0, fmt.Errorf("store: size-cap delete %s: %w", table, err)
	}
	rows, _ := result.RowsAffected()
	return rows, nil
}
