package store

import "github.com/ollystack/otell/internal/model"

// Filter is the envelope shared by every query operation: an optional
// time window, optional service/trace/span/severity narrowing, and zero or
// more attribute glob filters.
type Filter struct {
	Since       *int64          `json:"since,omitempty"`
	Until       *int64          `json:"until,omitempty"`
	Service     *string         `json:"service,omitempty"`
	TraceID     *string         `json:"trace_id,omitempty"`
	SpanID      *string         `json:"span_id,omitempty"`
	SeverityGTE *model.Severity `json:"severity_gte,omitempty"`
	AttrFilters map[string]string `json:"attr_filters,omitempty"` // key -> glob
	Sort        model.Sort      `json:"sort"`
	Limit       int             `json:"limit"`
}

// LogOut is one log row rendered into a query response.
type LogOut struct {
	Ts       int64                  `json:"ts"`
	Service  *string                `json:"service,omitempty"`
	Severity model.Severity         `json:"severity"`
	TraceID  string                 `json:"trace_id,omitempty"`
	SpanID   string                 `json:"span_id,omitempty"`
	Body     string                 `json:"body"`
	Attrs    map[string]interface{} `json:"attrs,omitempty"`
	Role     string                 `json:"role,omitempty"` // "match" | "context", search only
}

// SpanOut is one span row rendered into a query response.
type SpanOut struct {
	TraceID       string                 `json:"trace_id"`
	SpanID        string                 `json:"span_id"`
	ParentSpanID  string                 `json:"parent_span_id,omitempty"`
	Service       *string                `json:"service,omitempty"`
	Name          string                 `json:"name"`
	Kind          string                 `json:"kind"`
	StartTs       int64                  `json:"start_ts"`
	EndTs         int64                  `json:"end_ts"`
	Status        string                 `json:"status"`
	StatusMessage string                 `json:"status_message,omitempty"`
	Attrs         map[string]interface{} `json:"attrs,omitempty"`
	Events        []SpanEventOut         `json:"events,omitempty"`
	Links         []SpanLinkOut          `json:"links,omitempty"`
}

type SpanEventOut struct {
	Ts    int64                  `json:"ts"`
	Name  string                 `json:"name"`
	Attrs map[string]interface{} `json:"attrs,omitempty"`
}

type SpanLinkOut struct {
	TraceID string                 `json:"trace_id"`
	SpanID  string                 `json:"span_id"`
	Attrs   map[string]interface{} `json:"attrs,omitempty"`
}

// SearchRequest is the input to Search.
type SearchRequest struct {
	Pattern        string  `json:"pattern"`
	Fixed          bool    `json:"fixed,omitempty"`
	IgnoreCase     bool    `json:"ignore_case,omitempty"`
	CountOnly      bool    `json:"count_only,omitempty"`
	IncludeStats   bool    `json:"include_stats,omitempty"`
	ContextLines   int     `json:"context_lines,omitempty"`
	ContextSeconds float64 `json:"context_seconds,omitempty"`
	Filter         Filter  `json:"filter"`
}

// SearchResponse is the output of Search.
type SearchResponse struct {
	TotalMatches int               `json:"total_matches"`
	Records      []LogOut          `json:"records,omitempty"`
	ByService    map[string]int    `json:"by_service,omitempty"`
	BySeverity   map[string]int    `json:"by_severity,omitempty"`
	Handle       model.QueryHandle `json:"handle,omitempty"`
}

// TracesRequest is the input to Traces (trace summaries over a window).
type TracesRequest struct {
	Filter Filter `json:"filter"`
}

// TraceSummary is one trace's aggregate row in a TracesResponse.
type TraceSummary struct {
	TraceID   string  `json:"trace_id"`
	RootSpan  *SpanOut `json:"root_span,omitempty"`
	Duration  int64   `json:"duration"`
	SpanCount int     `json:"span_count"`
	Status    string  `json:"status"`
}

type TracesResponse struct {
	Traces []TraceSummary    `json:"traces"`
	Handle model.QueryHandle `json:"handle,omitempty"`
}

// LogsPolicy controls how much log context a Trace/Span query attaches.
type LogsPolicy = model.LogsPolicy

// TraceRequest is the input to Trace (full reconstruction of one trace).
type TraceRequest struct {
	TraceID string              `json:"trace_id"`
	Root    string              `json:"root,omitempty"`
	Logs    model.LogsPolicy    `json:"logs"`
}

type TraceResponse struct {
	Found     bool              `json:"found"`
	Spans     []SpanOut         `json:"spans,omitempty"`
	Logs      []LogOut          `json:"logs,omitempty"`
	Truncated bool              `json:"truncated,omitempty"`
	Handle    model.QueryHandle `json:"handle,omitempty"`
}

// SpanRequest is the input to Span (single span lookup).
type SpanRequest struct {
	TraceID string           `json:"trace_id"`
	SpanID  string           `json:"span_id"`
	Logs    model.LogsPolicy `json:"logs"`
}

type SpanResponse struct {
	Found     bool              `json:"found"`
	Span      *SpanOut          `json:"span,omitempty"`
	Logs      []LogOut          `json:"logs,omitempty"`
	Truncated bool              `json:"truncated,omitempty"`
	Handle    model.QueryHandle `json:"handle,omitempty"`
}

// MetricsRequest is the input to Metrics (aggregation over a named
// metric's points).
type MetricsRequest struct {
	Name    string `json:"name"`
	Service string `json:"service,omitempty"`
	GroupBy string `json:"group_by,omitempty"` // "service" or an attribute key
	Agg     string `json:"agg"`                // avg|count|min|max|p50|p95|p99
	Filter  Filter `json:"filter"`
}

type MetricGroup struct {
	GroupKey string  `json:"group_key"`
	Value    float64 `json:"value"`
	Samples  int     `json:"samples"`
}

type MetricsResponse struct {
	Points int               `json:"points"`
	Groups []MetricGroup     `json:"groups"`
	Handle model.QueryHandle `json:"handle,omitempty"`
}

// MetricsListRequest is the input to MetricsList.
type MetricsListRequest struct {
	Filter Filter `json:"filter"`
}

type MetricNameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type MetricsListResponse struct {
	Metrics []MetricNameCount `json:"metrics"`
	Handle  model.QueryHandle `json:"handle,omitempty"`
}

// StatusResponse reports store-level health for /v1/status.
type StatusResponse struct {
	DBPath     string            `json:"db_path"`
	SizeBytes  int64             `json:"size_bytes"`
	RowCounts  map[string]int64  `json:"row_counts"`
	OldestTs   *int64            `json:"oldest_ts,omitempty"`
	NewestTs   *int64            `json:"newest_ts,omitempty"`
	Handle     model.QueryHandle `json:"handle,omitempty"`
}
