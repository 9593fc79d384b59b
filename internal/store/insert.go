package store

import (
	"context"
	"fmt"

	"github.com/ollystack/otell/internal/model"
)

// InsertLogs writes one batch of LogRecords in a single transaction,
// grounded on the teacher's prepared-statement-inside-one-transaction
// batch insert idiom.
func (s *Store) InsertLogs(ctx context.Context, recs []model.LogRecord) error {
	if len(recs) == 0 {
		return nil
	}
	s.writeLock.RLock()
	defer s.writeLock.RUnlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: insert logs: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO logs (ts, service, severity, trace_id, span_id, body, attrs_json, attrs_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("store: insert logs: prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range recs {
		_, err = stmt.ExecContext(ctx,
			r.Ts, nullableString(r.Service), int32(r.Severity),
			nullableID(r.TraceID), nullableID(r.SpanID),
			r.Body, r.Attrs.JSON(), r.Attrs.FlatText(),
		)
		if err != nil {
			return fmt.Errorf("store: insert logs: exec: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: insert logs: commit: %w", err)
	}
	return nil
}

// InsertSpans writes one batch of SpanRecords plus their child events and
// links, all in a single transaction.
func (s *Store) InsertSpans(ctx context.Context, recs []model.SpanRecord) error {
	if len(recs) == 0 {
		return nil
	}
	s.writeLock.RLock()
	defer s.writeLock.RUnlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: insert spans: begin tx: %w", err)
	}
	defer tx.Rollback()

	spanStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO spans (trace_id, span_id, parent_span_id, service, name, kind,
			start_ts, end_ts, status, status_message, attrs_json, attrs_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("store: insert spans: prepare span: %w", err)
	}
	defer spanStmt.Close()

	eventStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO span_events (trace_id, span_id, seq, ts, name, attrs_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("store: insert spans: prepare event: %w", err)
	}
	defer eventStmt.Close()

	linkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO span_links (trace_id, span_id, seq, link_trace_id, link_span_id, attrs_json)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("store: insert spans: prepare link: %w", err)
	}
	defer linkStmt.Close()

	for _, r := range recs {
		_, err = spanStmt.ExecContext(ctx,
			r.TraceID, r.SpanID, nullableID(r.ParentSpanID), nullableString(r.Service),
			r.Name, int32(r.Kind), r.StartTs, r.EndTs, int32(r.Status), r.StatusMessage,
			r.Attrs.JSON(), r.Attrs.FlatText(),
		)
		if err != nil {
			return fmt.Errorf("store: insert spans: exec span: %w", err)
		}
		for i, e := range r.Events {
			_, err = eventStmt.ExecContext(ctx, r.TraceID, r.SpanID, i, e.Ts, e.Name, e.Attrs.JSON())
			if err != nil {
				return fmt.Errorf("store: insert spans: exec event: %w", err)
			}
		}
		for i, l := range r.Links {
			_, err = linkStmt.ExecContext(ctx, r.TraceID, r.SpanID, i, l.TraceID, l.SpanID, l.Attrs.JSON())
			if err != nil {
				return fmt.Errorf("store: insert spans: exec link: %w", err)
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: insert spans: commit: %w", err)
	}
	return nil
}

// InsertMetrics writes one batch of (already-expanded) MetricPoints.
func (s *Store) InsertMetrics(ctx context.Context, recs []model.MetricPoint) error {
	if len(recs) == 0 {
		return nil
	}
	s.writeLock.RLock()
	defer s.writeLock.RUnlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: insert metrics: begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO metric_points (name, service, ts, value, kind, stat, attrs_json, attrs_text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("store: insert metrics: prepare: %w", err)
	}
	defer stmt.Close()

	for _, m := range recs {
		_, err = stmt.ExecContext(ctx,
			m.Name, nullableString(m.Service), m.Ts, m.Value, int32(m.Kind), m.Stat,
			m.Attrs.JSON(), m.Attrs.FlatText(),
		)
		if err != nil {
			return fmt.Errorf("store: insert metrics: exec: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: insert metrics: commit: %w", err)
	}
	return nil
}

func nullableString(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

func nullableID(id string) interface{} {
	if id == "" {
		return nil
	}
	return id
}
