package store

import (
	"context"
	"fmt"

	"github.com/ollystack/otell/internal/model"
)

type spanRow struct {
	traceID, spanID, parentSpanID string
	service                       *string
	name                          string
	kind, status                  int32
	startTs, endTs                int64
	statusMessage                 string
	attrsJSON                     string
}

func (s *Store) fetchSpans(ctx context.Context, where string, args []interface{}) ([]spanRow, error) {
	query := fmt.Sprintf(`
		SELECT trace_id, span_id, parent_span_id, service, name, kind, start_ts, end_ts,
		       status, status_message, attrs_json
		FROM spans WHERE %s ORDER BY start_ts ASC, span_id ASC`, where)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: fetch spans: %w", err)
	}
	defer rows.Close()

	var out []spanRow
	for rows.Next() {
		var r spanRow
		var parentSpanID, service *string
		if err := rows.Scan(&r.traceID, &r.spanID, &parentSpanID, &service, &r.name, &r.kind,
			&r.startTs, &r.endTs, &r.status, &r.statusMessage, &r.attrsJSON); err != nil {
			return nil, fmt.Errorf("store: fetch spans: scan: %w", err)
		}
		if parentSpanID != nil {
			r.parentSpanID = *parentSpanID
		}
		r.service = service
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) fetchEvents(ctx context.Context, traceID, spanID string) ([]SpanEventOut, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, name, attrs_json FROM span_events
		WHERE trace_id = ? AND span_id = ? ORDER BY seq ASC`, traceID, spanID)
	if err != nil {
		return nil, fmt.Errorf("store: fetch events: %w", err)
	}
	defer rows.Close()
	var out []SpanEventOut
	for rows.Next() {
		var e SpanEventOut
		var attrsJSON string
		if err := rows.Scan(&e.Ts, &e.Name, &attrsJSON); err != nil {
			return nil, fmt.Errorf("store: fetch events: scan: %w", err)
		}
		e.Attrs = decodeAttrsJSON(attrsJSON)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) fetchLinks(ctx context.Context, traceID, spanID string) ([]SpanLinkOut, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT link_trace_id, link_span_id, attrs_json FROM span_links
		WHERE trace_id = ? AND span_id = ? ORDER BY seq ASC`, traceID, spanID)
	if err != nil {
		return nil, fmt.Errorf("store: fetch links: %w", err)
	}
	defer rows.Close()
	var out []SpanLinkOut
	for rows.Next() {
		var l SpanLinkOut
		var attrsJSON string
		if err := rows.Scan(&l.TraceID, &l.SpanID, &attrsJSON); err != nil {
			return nil, fmt.Errorf("store: fetch links: scan: %w", err)
		}
		l.Attrs = decodeAttrsJSON(attrsJSON)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) toSpanOut(ctx context.Context, r spanRow, withChildren bool) (SpanOut, error) {
	out := SpanOut{
		TraceID: r.traceID, SpanID: r.spanID, ParentSpanID: r.parentSpanID,
		Service: r.service, Name: r.name, Kind: model.SpanKind(r.kind).String(),
		StartTs: r.startTs, EndTs: r.endTs, Status: model.SpanStatus(r.status).String(),
		StatusMessage: r.statusMessage, Attrs: decodeAttrsJSON(r.attrsJSON),
	}
	if !withChildren {
		return out, nil
	}
	events, err := s.fetchEvents(ctx, r.traceID, r.spanID)
	if err != nil {
		return out, err
	}
	links, err := s.fetchLinks(ctx, r.traceID, r.spanID)
	if err != nil {
		return out, err
	}
	out.Events, out.Links = events, links
	return out, nil
}

// Traces aggregates spans into trace summaries within the filter window.
func (s *Store) Traces(ctx context.Context, req TracesRequest) (*TracesResponse, error) {
	cols := filterCols{ts: "start_ts", service: "service", traceID: "trace_id", attrsJSON: "attrs_json"}
	where, args := buildWhere(req.Filter, cols)
	spans, err := s.fetchSpans(ctx, where, args)
	if err != nil {
		return nil, err
	}

	byTrace := make(map[string][]spanRow)
	var order []string
	for _, sp := range spans {
		if _, ok := byTrace[sp.traceID]; !ok {
			order = append(order, sp.traceID)
		}
		byTrace[sp.traceID] = append(byTrace[sp.traceID], sp)
	}

	summaries := make([]TraceSummary, 0, len(order))
	for _, tid := range order {
		group := byTrace[tid]
		var root *spanRow
		minStart, maxEnd := group[0].startTs, group[0].endTs
		hasError := false
		for i := range group {
			sp := &group[i]
			if sp.startTs < minStart {
				minStart = sp.startTs
			}
			if sp.endTs > maxEnd {
				maxEnd = sp.endTs
			}
			if model.SpanStatus(sp.status) == model.StatusError {
				hasError = true
			}
			if sp.parentSpanID == "" {
				if root == nil || sp.startTs < root.startTs {
					root = sp
				}
			}
		}
		status := "ok"
		if hasError {
			status = "error"
		}
		var rootOut *SpanOut
		if root != nil {
			o, err := s.toSpanOut(ctx, *root, false)
			if err != nil {
				return nil, err
			}
			rootOut = &o
		}
		summaries = append(summaries, TraceSummary{
			TraceID: tid, RootSpan: rootOut, Duration: maxEnd - minStart,
			SpanCount: len(group), Status: status,
		})
	}

	limit := req.Filter.Limit
	if limit > 0 && limit < len(summaries) {
		summaries = summaries[:limit]
	}
	return &TracesResponse{Traces: summaries}, nil
}

// Trace reconstructs one trace: every span ordered by (start_ts, span_id),
// plus logs attached per the requested LogsPolicy.
func (s *Store) Trace(ctx context.Context, req TraceRequest) (*TraceResponse, error) {
	spans, err := s.fetchSpans(ctx, "trace_id = ?", []interface{}{req.TraceID})
	if err != nil {
		return nil, err
	}
	if len(spans) == 0 {
		return &TraceResponse{Found: false}, nil
	}

	if req.Root != "" {
		spans = subtree(spans, req.Root)
	}

	out := make([]SpanOut, 0, len(spans))
	for _, sp := range spans {
		o, err := s.toSpanOut(ctx, sp, true)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}

	resp := &TraceResponse{Found: true, Spans: out}
	logs, truncated, err := s.logsForTrace(ctx, req.TraceID, req.Logs, model.LogCtxLimit)
	if err != nil {
		return nil, err
	}
	resp.Logs, resp.Truncated = logs, truncated
	return resp, nil
}

// subtree filters spans to root and its transitive descendants.
func subtree(spans []spanRow, root string) []spanRow {
	keep := map[string]bool{root: true}
	changed := true
	for changed {
		changed = false
		for _, sp := range spans {
			if keep[sp.parentSpanID] && !keep[sp.spanID] {
				keep[sp.spanID] = true
				changed = true
			}
		}
	}
	out := make([]spanRow, 0, len(spans))
	for _, sp := range spans {
		if keep[sp.spanID] {
			out = append(out, sp)
		}
	}
	return out
}

// Span looks up a single span and its related logs.
func (s *Store) Span(ctx context.Context, req SpanRequest) (*SpanResponse, error) {
	spans, err := s.fetchSpans(ctx, "trace_id = ? AND span_id = ?", []interface{}{req.TraceID, req.SpanID})
	if err != nil {
		return nil, err
	}
	if len(spans) == 0 {
		return &SpanResponse{Found: false}, nil
	}
	out, err := s.toSpanOut(ctx, spans[0], true)
	if err != nil {
		return nil, err
	}
	resp := &SpanResponse{Found: true, Span: &out}

	logs, truncated, err := s.logsForSpan(ctx, req.TraceID, req.SpanID, req.Logs, model.SpanLogCtxLimit)
	if err != nil {
		return nil, err
	}
	resp.Logs, resp.Truncated = logs, truncated
	return resp, nil
}

func (s *Store) logsForTrace(ctx context.Context, traceID string, policy model.LogsPolicy, boundedLimit int) ([]LogOut, bool, error) {
	if policy == model.LogsNone {
		return nil, false, nil
	}
	limit := -1
	if policy == model.LogsBounded {
		limit = boundedLimit
	}
	return s.queryRelatedLogs(ctx, "trace_id = ?", []interface{}{traceID}, limit)
}

func (s *Store) logsForSpan(ctx context.Context, traceID, spanID string, policy model.LogsPolicy, boundedLimit int) ([]LogOut, bool, error) {
	if policy == model.LogsNone {
		return nil, false, nil
	}
	limit := -1
	if policy == model.LogsBounded {
		limit = boundedLimit
	}
	return s.queryRelatedLogs(ctx, "trace_id = ? AND span_id = ?", []interface{}{traceID, spanID}, limit)
}

func (s *Store) queryRelatedLogs(ctx context.Context, where string, args []interface{}, limit int) ([]LogOut, bool, error) {
	query := fmt.Sprintf(`
		SELECT ts, service, severity, trace_id, span_id, body, attrs_json
		FROM logs WHERE %s ORDER BY ts ASC, trace_id ASC, span_id ASC`, where)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("store: related logs: %w", err)
	}
	defer rows.Close()

	var out []LogOut
	for rows.Next() {
		var l LogOut
		var service, traceID, spanID *string
		var attrsJSON string
		if err := rows.Scan(&l.Ts, &service, &l.Severity, &traceID, &spanID, &l.Body, &attrsJSON); err != nil {
			return nil, false, fmt.Errorf("store: related logs: scan: %w", err)
		}
		l.Service = service
		if traceID != nil {
			l.TraceID = *traceID
		}
		if spanID != nil {
			l.SpanID = *spanID
		}
		l.Attrs = decodeAttrsJSON(attrsJSON)
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	truncated := false
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
		truncated = true
	}
	return out, truncated, nil
}
