package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ollystack/otell/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func svc(s string) *string { return &s }

func TestIngestAndSearchByService(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertLogs(ctx, []model.LogRecord{
		{Ts: 1000, Service: svc("api"), Body: "context deadline exceeded", Attrs: model.Attrs{}},
		{Ts: 2000, Service: svc("db"), Body: "ok", Attrs: model.Attrs{}},
	}))

	apiSvc := "api"
	resp, err := s.Search(ctx, SearchRequest{
		Pattern: "deadline",
		Filter:  Filter{Service: &apiSvc, Limit: 100},
	})
	require.NoError(t, err)
	require.Equal(t, 1, resp.TotalMatches)
	require.Len(t, resp.Records, 1)
	require.Equal(t, "context deadline exceeded", resp.Records[0].Body)

	dbSvc := "db"
	resp, err = s.Search(ctx, SearchRequest{
		Pattern: "deadline",
		Filter:  Filter{Service: &dbSvc, Limit: 100},
	})
	require.NoError(t, err)
	require.Equal(t, 0, resp.TotalMatches)
}

func TestSearchRegexVsFixed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertLogs(ctx, []model.LogRecord{
		{Ts: 1, Body: "err.or", Attrs: model.Attrs{}},
		{Ts: 2, Body: "errXor", Attrs: model.Attrs{}},
	}))

	regexResp, err := s.Search(ctx, SearchRequest{Pattern: "err.or", Filter: Filter{Limit: 100}})
	require.NoError(t, err)
	require.Equal(t, 2, regexResp.TotalMatches)

	fixedResp, err := s.Search(ctx, SearchRequest{Pattern: "err.or", Fixed: true, Filter: Filter{Limit: 100}})
	require.NoError(t, err)
	require.Equal(t, 1, fixedResp.TotalMatches)
	require.Equal(t, "err.or", fixedResp.Records[0].Body)
}

func TestSearchContextLines(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	recs := []model.LogRecord{
		{Ts: 100, Service: svc("api"), Body: "one", Attrs: model.Attrs{}},
		{Ts: 200, Service: svc("api"), Body: "two", Attrs: model.Attrs{}},
		{Ts: 300, Service: svc("api"), Body: "hit", Attrs: model.Attrs{}},
		{Ts: 400, Service: svc("api"), Body: "four", Attrs: model.Attrs{}},
		{Ts: 500, Service: svc("api"), Body: "five", Attrs: model.Attrs{}},
	}
	require.NoError(t, s.InsertLogs(ctx, recs))

	resp, err := s.Search(ctx, SearchRequest{
		Pattern:      "hit",
		ContextLines: 1,
		Filter:       Filter{Limit: 100},
	})
	require.NoError(t, err)
	require.Len(t, resp.Records, 3)
	require.Equal(t, int64(200), resp.Records[0].Ts)
	require.Equal(t, "context", resp.Records[0].Role)
	require.Equal(t, int64(300), resp.Records[1].Ts)
	require.Equal(t, "match", resp.Records[1].Role)
	require.Equal(t, int64(400), resp.Records[2].Ts)
	require.Equal(t, "context", resp.Records[2].Role)
}

func TestTraceReconstruction(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	traceID := "aa"
	require.NoError(t, s.InsertSpans(ctx, []model.SpanRecord{
		{TraceID: traceID, SpanID: "root", StartTs: 10, EndTs: 20, Status: model.StatusError, Name: "root", Attrs: model.Attrs{}},
		{TraceID: traceID, SpanID: "a", ParentSpanID: "root", StartTs: 11, EndTs: 15, Name: "a", Attrs: model.Attrs{}},
		{TraceID: traceID, SpanID: "b", ParentSpanID: "root", StartTs: 16, EndTs: 19, Name: "b", Attrs: model.Attrs{}},
	}))

	resp, err := s.Trace(ctx, TraceRequest{TraceID: traceID, Logs: model.LogsNone})
	require.NoError(t, err)
	require.True(t, resp.Found)
	require.Len(t, resp.Spans, 3)
	require.Equal(t, []string{"root", "a", "b"}, []string{resp.Spans[0].SpanID, resp.Spans[1].SpanID, resp.Spans[2].SpanID})

	traces, err := s.Traces(ctx, TracesRequest{Filter: Filter{Limit: 100}})
	require.NoError(t, err)
	require.Len(t, traces.Traces, 1)
	summary := traces.Traces[0]
	require.Equal(t, int64(10), summary.Duration)
	require.Equal(t, 3, summary.SpanCount)
	require.Equal(t, "error", summary.Status)
	require.NotNil(t, summary.RootSpan)
	require.Equal(t, "root", summary.RootSpan.SpanID)
}

func TestMetricsP95LinearInterpolation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	points := make([]model.MetricPoint, 0, 100)
	for i := 1; i <= 100; i++ {
		points = append(points, model.MetricPoint{
			Name: "http.server.duration", Service: svc("api"),
			Ts: int64(i), Value: float64(i), Attrs: model.Attrs{},
		})
	}
	require.NoError(t, s.InsertMetrics(ctx, points))

	resp, err := s.Metrics(ctx, MetricsRequest{
		Name: "http.server.duration", GroupBy: "service", Agg: "p95",
		Filter: Filter{Limit: 1000},
	})
	require.NoError(t, err)
	require.Equal(t, 100, resp.Points)
	require.Len(t, resp.Groups, 1)
	require.Equal(t, "api", resp.Groups[0].GroupKey)
	require.Equal(t, 95.0, resp.Groups[0].Value)
	require.Equal(t, 100, resp.Groups[0].Samples)
}

func TestRetentionTTL(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UnixNano()
	hour := time.Hour.Nanoseconds()
	require.NoError(t, s.InsertLogs(ctx, []model.LogRecord{
		{Ts: now - 2*hour, Body: "old", Attrs: model.Attrs{}},
		{Ts: now - 30*int64(time.Minute), Body: "recent", Attrs: model.Attrs{}},
	}))

	require.NoError(t, s.sweepTTL(ctx, time.Hour))

	resp, err := s.Search(ctx, SearchRequest{Pattern: ".", Filter: Filter{Limit: 100}})
	require.NoError(t, err)
	require.Len(t, resp.Records, 1)
	require.Equal(t, "recent", resp.Records[0].Body)
}

func TestStatusReportsRowCountsAndTsRange(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertLogs(ctx, []model.LogRecord{
		{Ts: 100, Body: "a", Attrs: model.Attrs{}},
		{Ts: 200, Body: "b", Attrs: model.Attrs{}},
	}))

	resp, err := s.Status(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), resp.RowCounts["logs"])
	require.NotNil(t, resp.OldestTs)
	require.NotNil(t, resp.NewestTs)
	require.Equal(t, int64(100), *resp.OldestTs)
	require.Equal(t, int64(200), *resp.NewestTs)
	require.True(t, *resp.OldestTs <= *resp.NewestTs)
}

func TestSearchAttrFiltersMatchDottedKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.InsertLogs(ctx, []model.LogRecord{
		{Ts: 1, Body: "slow query", Attrs: model.Attrs{"db.system": model.StringValue("postgres"), "http.status_code": model.StringValue("500")}},
		{Ts: 2, Body: "slow query", Attrs: model.Attrs{"db.system": model.StringValue("redis")}},
	}))

	resp, err := s.Search(ctx, SearchRequest{
		Pattern: "slow",
		Filter:  Filter{Limit: 100, AttrFilters: map[string]string{"db.system": "postgres"}},
	})
	require.NoError(t, err)
	require.Equal(t, 1, resp.TotalMatches)
	require.Equal(t, "postgres", resp.Records[0].Attrs["db.system"])

	resp, err = s.Search(ctx, SearchRequest{
		Pattern: "slow",
		Filter:  Filter{Limit: 100, AttrFilters: map[string]string{"http.status_code": "500"}},
	})
	require.NoError(t, err)
	require.Equal(t, 1, resp.TotalMatches)
}

func TestSearchCountOnlyMatchesFullPageCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	recs := make([]model.LogRecord, 0, 20)
	for i := 0; i < 20; i++ {
		recs = append(recs, model.LogRecord{Ts: int64(i), Body: "needle here", Attrs: model.Attrs{}})
	}
	require.NoError(t, s.InsertLogs(ctx, recs))

	countResp, err := s.Search(ctx, SearchRequest{Pattern: "needle", CountOnly: true, Filter: Filter{Limit: 5}})
	require.NoError(t, err)

	fullResp, err := s.Search(ctx, SearchRequest{Pattern: "needle", Filter: Filter{Limit: 1000}})
	require.NoError(t, err)

	require.Equal(t, countResp.TotalMatches, len(fullResp.Records))
}
