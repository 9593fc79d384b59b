package store

import (
	"context"
	"fmt"
	"math"
	"sort"
)

type pointRow struct {
	ts      int64
	service *string
	value   float64
	attrs   map[string]interface{}
}

// Metrics selects points for a named metric within the filter window,
// optionally grouping by service or one attribute key, and aggregates
// each group with the requested statistic. Percentiles use linear
// interpolation over the sorted in-window sample.
func (s *Store) Metrics(ctx context.Context, req MetricsRequest) (*MetricsResponse, error) {
	f := req.Filter
	if req.Service != "" {
		svc := req.Service
		f.Service = &svc
	}
	cols := filterCols{ts: "ts", service: "service", attrsJSON: "attrs_json"}
	where, args := buildWhere(f, cols)
	where = "name = ? AND (" + where + ")"
	args = append([]interface{}{req.Name}, args...)

	query := fmt.Sprintf(`SELECT ts, service, value, attrs_json FROM metric_points WHERE %s`, where)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: metrics: %w", err)
	}
	defer rows.Close()

	var points []pointRow
	for rows.Next() {
		var p pointRow
		var service *string
		var attrsJSON string
		if err := rows.Scan(&p.ts, &service, &p.value, &attrsJSON); err != nil {
			return nil, fmt.Errorf("store: metrics: scan: %w", err)
		}
		p.service = service
		p.attrs = decodeAttrsJSON(attrsJSON)
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	groups := make(map[string][]float64)
	var order []string
	for _, p := range points {
		key := groupKey(p, req.GroupBy)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], p.value)
	}
	sort.Strings(order)

	out := make([]MetricGroup, 0, len(order))
	for _, key := range order {
		values := groups[key]
		if len(values) == 0 {
			continue
		}
		v, err := aggregate(values, req.Agg)
		if err != nil {
			return nil, err
		}
		out = append(out, MetricGroup{GroupKey: key, Value: v, Samples: len(values)})
	}

	return &MetricsResponse{Points: len(points), Groups: out}, nil
}

func groupKey(p pointRow, groupBy string) string {
	switch groupBy {
	case "":
		return ""
	case "service":
		if p.service == nil {
			return "unknown"
		}
		return *p.service
	default:
		if v, ok := p.attrs[groupBy]; ok {
			return fmt.Sprintf("%v", v)
		}
		return "unknown"
	}
}

// aggregate computes one of avg|count|min|max|p50|p95|p99 over values.
func aggregate(values []float64, agg string) (float64, error) {
	switch agg {
	case "count":
		return float64(len(values)), nil
	case "avg":
		return sum(values) / float64(len(values)), nil
	case "min":
		return minOf(values), nil
	case "max":
		return maxOf(values), nil
	case "p50":
		return percentile(values, 0.50), nil
	case "p95":
		return percentile(values, 0.95), nil
	case "p99":
		return percentile(values, 0.99), nil
	default:
		return 0, fmt.Errorf("bad request: unknown agg %q", agg)
	}
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// percentile returns the q-quantile of values using linear interpolation
// between the closest ranks: the continuous 1-indexed rank r = q*n is
// computed directly against the sorted sample, so a rank that lands
// exactly on an integer (as q=0.95, n=100 does) returns that sample with
// no interpolation.
func percentile(values []float64, q float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	r := q * float64(n)
	if r < 1 {
		r = 1
	}
	if r > float64(n) {
		r = float64(n)
	}
	lo, hi := int(math.Floor(r)), int(math.Ceil(r))
	if lo == hi {
		return sorted[lo-1]
	}
	frac := r - float64(lo)
	return sorted[lo-1] + frac*(sorted[hi-1]-sorted[lo-1])
}

// MetricsList returns distinct metric names with their occurrence counts
// within the filter window, most frequent first.
func (s *Store) MetricsList(ctx context.Context, req MetricsListRequest) (*MetricsListResponse, error) {
	cols := filterCols{ts: "ts", service: "service", attrsJSON: "attrs_json"}
	where, args := buildWhere(req.Filter, cols)
	query := fmt.Sprintf(`
		SELECT name, COUNT(*) AS c FROM metric_points WHERE %s
		GROUP BY name ORDER BY c DESC, name ASC`, where)
	if req.Filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", req.Filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: metrics list: %w", err)
	}
	defer rows.Close()

	var out []MetricNameCount
	for rows.Next() {
		var m MetricNameCount
		if err := rows.Scan(&m.Name, &m.Count); err != nil {
			return nil, fmt.Errorf("store: metrics list: scan: %w", err)
		}
		out = append(out, m)
	}
	return &MetricsListResponse{Metrics: out}, rows.Err()
}
