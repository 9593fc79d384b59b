package store

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ollystack/otell/internal/model"
)

type logRow struct {
	ts        int64
	service   *string
	severity  model.Severity
	traceID   string
	spanID    string
	body      string
	attrsJSON string
	attrsText string
}

func (s *Store) fetchLogs(ctx context.Context, f Filter) ([]logRow, error) {
	cols := filterCols{ts: "ts", service: "service", traceID: "trace_id", spanID: "span_id", severity: "severity", attrsJSON: "attrs_json"}
	where, args := buildWhere(f, cols)
	query := fmt.Sprintf(`
		SELECT ts, service, severity, trace_id, span_id, body, attrs_json, attrs_text
		FROM logs WHERE %s ORDER BY ts ASC, trace_id ASC, span_id ASC`, where)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: fetch logs: %w", err)
	}
	defer rows.Close()

	var out []logRow
	for rows.Next() {
		var r logRow
		var service, traceID, spanID *string
		if err := rows.Scan(&r.ts, &service, &r.severity, &traceID, &spanID, &r.body, &r.attrsJSON, &r.attrsText); err != nil {
			return nil, fmt.Errorf("store: fetch logs: scan: %w", err)
		}
		r.service = service
		if traceID != nil {
			r.traceID = *traceID
		}
		if spanID != nil {
			r.spanID = *spanID
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Search implements the regex/fixed substring search over body and the
// flat attrs_text representation, with optional context windows and
// summary stats, per the deterministic (ts, trace_id, span_id) ordering.
func (s *Store) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	logs, err := s.fetchLogs(ctx, req.Filter)
	if err != nil {
		return nil, err
	}

	matchFn, err := buildMatcher(req.Pattern, req.Fixed, req.IgnoreCase)
	if err != nil {
		return nil, fmt.Errorf("bad request: invalid pattern: %w", err)
	}

	var matchIdx []int
	for i, r := range logs {
		if matchFn(r.body) || matchFn(r.attrsText) {
			matchIdx = append(matchIdx, i)
		}
	}

	resp := &SearchResponse{TotalMatches: len(matchIdx)}
	if req.CountOnly {
		return resp, nil
	}

	if req.IncludeStats {
		byService := map[string]int{}
		bySeverity := map[string]int{}
		for _, i := range matchIdx {
			svc := "unknown"
			if logs[i].service != nil {
				svc = *logs[i].service
			}
			byService[svc]++
			bySeverity[severityLabel(logs[i].severity)]++
		}
		resp.ByService = byService
		resp.BySeverity = bySeverity
	}

	limit := req.Filter.Limit
	if limit <= 0 || limit > len(matchIdx) {
		limit = len(matchIdx)
	}
	pageIdx := matchIdx[:limit]

	included := make(map[int]string, len(pageIdx))
	for _, i := range pageIdx {
		included[i] = "match"
	}

	safetyLimit := req.Filter.Limit * 10
	if safetyLimit <= 0 {
		safetyLimit = 10
	}

	switch {
	case req.ContextSeconds > 0:
		deltaNs := int64(req.ContextSeconds * 1e9)
		for _, i := range pageIdx {
			if len(included) >= safetyLimit {
				break
			}
			lo, hi := logs[i].ts-deltaNs, logs[i].ts+deltaNs
			for j := range logs {
				if logs[j].ts < lo || logs[j].ts > hi {
					continue
				}
				if _, ok := included[j]; !ok {
					included[j] = "context"
					if len(included) >= safetyLimit {
						break
					}
				}
			}
		}
	case req.ContextLines > 0:
		for _, i := range pageIdx {
			if len(included) >= safetyLimit {
				break
			}
			for k := 1; k <= req.ContextLines && i-k >= 0 && len(included) < safetyLimit; k++ {
				if _, ok := included[i-k]; !ok {
					included[i-k] = "context"
				}
			}
			for k := 1; k <= req.ContextLines && i+k < len(logs) && len(included) < safetyLimit; k++ {
				if _, ok := included[i+k]; !ok {
					included[i+k] = "context"
				}
			}
		}
	}

	idxs := make([]int, 0, len(included))
	for i := range included {
		idxs = append(idxs, i)
	}
	sort.Ints(idxs)
	if req.Filter.Sort == model.SortTsDesc {
		reverseInts(idxs)
	}

	resp.Records = make([]LogOut, 0, len(idxs))
	for _, i := range idxs {
		resp.Records = append(resp.Records, toLogOut(logs[i], included[i]))
	}
	return resp, nil
}

func buildMatcher(pattern string, fixed, ignoreCase bool) (func(string) bool, error) {
	if fixed {
		needle := pattern
		if ignoreCase {
			needle = strings.ToLower(needle)
		}
		return func(s string) bool {
			if ignoreCase {
				s = strings.ToLower(s)
			}
			return strings.Contains(s, needle)
		}, nil
	}
	expr := pattern
	if ignoreCase {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	return re.MatchString, nil
}

func reverseInts(xs []int) {
	for i, j := 0, len(xs)-1; i < j; i, j = i+1, j-1 {
		xs[i], xs[j] = xs[j], xs[i]
	}
}

func severityLabel(sev model.Severity) string {
	switch {
	case sev == model.SeverityUnset:
		return "unset"
	case sev < model.SeverityDebug:
		return "trace"
	case sev < model.SeverityInfo:
		return "debug"
	case sev < model.SeverityWarn:
		return "info"
	case sev < model.SeverityError:
		return "warn"
	case sev < model.SeverityFatal:
		return "error"
	default:
		return "fatal"
	}
}

func toLogOut(r logRow, role string) LogOut {
	return LogOut{
		Ts: r.ts, Service: r.service, Severity: r.severity,
		TraceID: r.traceID, SpanID: r.spanID, Body: r.body,
		Attrs: decodeAttrsJSON(r.attrsJSON), Role: role,
	}
}

func decodeAttrsJSON(raw string) map[string]interface{} {
	if raw == "" || raw == "{}" {
		return nil
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil
	}
	return m
}
