package store

import (
	"context"
	"fmt"
)

var statusTables = []string{"logs", "spans", "metric_points"}

// Status reports the DB path, on-disk size, per-table row counts, and the
// oldest/newest timestamp across logs, spans, and metric_points.
func (s *Store) Status(ctx context.Context) (*StatusResponse, error) {
	resp := &StatusResponse{
		DBPath:    s.path,
		SizeBytes: s.SizeBytes(),
		RowCounts: make(map[string]int64, len(statusTables)),
	}

	for _, table := range statusTables {
		var count int64
		query := fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
		if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
			return nil, fmt.Errorf("store: status: count %s: %w", table, err)
		}
		resp.RowCounts[table] = count
	}

	var oldest, newest *int64
	err := s.db.QueryRowContext(ctx, `
		SELECT MIN(ts), MAX(ts) FROM (
			SELECT ts FROM logs
			UNION ALL
			SELECT start_ts AS ts FROM spans
			UNION ALL
			SELECT ts FROM metric_points
		)`).Scan(&oldest, &newest)
	if err != nil {
		return nil, fmt.Errorf("store: status: ts range: %w", err)
	}
	resp.OldestTs, resp.NewestTs = oldest, newest

	return resp, nil
}
