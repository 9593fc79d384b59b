package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ollystack/otell/internal/query"
	"github.com/ollystack/otell/internal/store"
)

// stdout is overridden in tests; production always writes to os.Stdout.
var stdout io.Writer = os.Stdout

// renderHuman prints a short tabular rendering of resp, matching the
// ID/NAME/... tabwriter idiom used by the pack's registry CLI.
func renderHuman(resp query.Response) {
	w := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	switch {
	case resp.Search != nil:
		renderSearch(w, resp.Search)
	case resp.Traces != nil:
		renderTraces(w, resp.Traces)
	case resp.Trace != nil:
		renderTrace(w, resp.Trace)
	case resp.Span != nil:
		renderSpan(w, resp.Span)
	case resp.Metrics != nil:
		renderMetrics(w, resp.Metrics)
	case resp.MetricsList != nil:
		renderMetricsList(w, resp.MetricsList)
	case resp.Status != nil:
		renderStatus(w, resp.Status)
	default:
		fmt.Fprintln(w, "ok")
	}
	if resp.Handle != "" {
		fmt.Fprintf(w, "\nhandle\t%s\n", resp.Handle)
	}
}

func formatTs(ns int64) string {
	return time.Unix(0, ns).UTC().Format(time.RFC3339Nano)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func renderSearch(w io.Writer, r *store.SearchResponse) {
	fmt.Fprintf(w, "total_matches\t%d\n", r.TotalMatches)
	if len(r.Records) == 0 {
		return
	}
	fmt.Fprintln(w, "TS\tSERVICE\tSEVERITY\tBODY")
	for _, rec := range r.Records {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", formatTs(rec.Ts), deref(rec.Service), rec.Severity, truncate(rec.Body, 120))
	}
}

func renderTraces(w io.Writer, r *store.TracesResponse) {
	fmt.Fprintln(w, "TRACE_ID\tSPANS\tDURATION_MS\tSTATUS")
	for _, t := range r.Traces {
		fmt.Fprintf(w, "%s\t%d\t%.2f\t%s\n", t.TraceID, t.SpanCount, float64(t.Duration)/1e6, t.Status)
	}
}

func renderTrace(w io.Writer, r *store.TraceResponse) {
	fmt.Fprintf(w, "found\t%t\n", r.Found)
	fmt.Fprintf(w, "truncated\t%t\n", r.Truncated)
	if !r.Found {
		return
	}
	fmt.Fprintln(w, "SPAN_ID\tPARENT\tNAME\tKIND\tSTATUS\tDURATION_MS")
	for _, s := range r.Spans {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%.2f\n", s.SpanID, s.ParentSpanID, s.Name, s.Kind, s.Status, float64(s.EndTs-s.StartTs)/1e6)
	}
}

func renderSpan(w io.Writer, r *store.SpanResponse) {
	fmt.Fprintf(w, "found\t%t\n", r.Found)
	if !r.Found || r.Span == nil {
		return
	}
	s := r.Span
	fmt.Fprintf(w, "span_id\t%s\n", s.SpanID)
	fmt.Fprintf(w, "name\t%s\n", s.Name)
	fmt.Fprintf(w, "kind\t%s\n", s.Kind)
	fmt.Fprintf(w, "status\t%s\n", s.Status)
	fmt.Fprintf(w, "duration_ms\t%.2f\n", float64(s.EndTs-s.StartTs)/1e6)
}

func renderMetrics(w io.Writer, r *store.MetricsResponse) {
	fmt.Fprintf(w, "points\t%d\n", r.Points)
	fmt.Fprintln(w, "GROUP\tVALUE\tSAMPLES")
	for _, g := range r.Groups {
		fmt.Fprintf(w, "%s\t%.4f\t%d\n", g.GroupKey, g.Value, g.Samples)
	}
}

func renderMetricsList(w io.Writer, r *store.MetricsListResponse) {
	fmt.Fprintln(w, "NAME\tCOUNT")
	for _, m := range r.Metrics {
		fmt.Fprintf(w, "%s\t%d\n", m.Name, m.Count)
	}
}

func renderStatus(w io.Writer, r *store.StatusResponse) {
	fmt.Fprintf(w, "db_path\t%s\n", r.DBPath)
	fmt.Fprintf(w, "size_bytes\t%d\n", r.SizeBytes)
	for table, count := range r.RowCounts {
		fmt.Fprintf(w, "rows[%s]\t%d\n", table, count)
	}
	if r.OldestTs != nil {
		fmt.Fprintf(w, "oldest\t%s\n", formatTs(*r.OldestTs))
	}
	if r.NewestTs != nil {
		fmt.Fprintf(w, "newest\t%s\n", formatTs(*r.NewestTs))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
