package cli

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ollystack/otell/internal/model"
	"github.com/ollystack/otell/internal/query"
	"github.com/ollystack/otell/internal/store"
)

// filterFlags are the Filter fields every query subcommand shares.
type filterFlags struct {
	service     string
	since       string
	until       string
	limit       int
	sortDesc    bool
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.service, "service", "", "restrict to one service.name")
	cmd.Flags().StringVar(&f.since, "since", "", "lower time bound, RFC3339 or unix nanoseconds")
	cmd.Flags().StringVar(&f.until, "until", "", "upper time bound, RFC3339 or unix nanoseconds")
	cmd.Flags().IntVar(&f.limit, "limit", 100, "maximum rows returned")
	cmd.Flags().BoolVar(&f.sortDesc, "desc", false, "sort newest-first instead of oldest-first")
}

func (f *filterFlags) toFilter() (store.Filter, error) {
	var filter store.Filter
	if f.service != "" {
		filter.Service = &f.service
	}
	if f.since != "" {
		ts, err := parseTimeArg(f.since)
		if err != nil {
			return filter, usageErrorf("--since: %w", err)
		}
		filter.Since = &ts
	}
	if f.until != "" {
		ts, err := parseTimeArg(f.until)
		if err != nil {
			return filter, usageErrorf("--until: %w", err)
		}
		filter.Until = &ts
	}
	filter.Limit = f.limit
	if f.sortDesc {
		filter.Sort = model.SortTsDesc
	}
	return filter, nil
}

func newSearchCmd(g *globalFlags) *cobra.Command {
	var f filterFlags
	var fixed, ignoreCase, countOnly bool
	var contextLines int

	cmd := &cobra.Command{
		Use:   "search <pattern>",
		Short: "search log bodies and attributes by regex or fixed substring",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := f.toFilter()
			if err != nil {
				return err
			}
			req := query.Request{Op: query.OpSearch, Search: &store.SearchRequest{
				Pattern:      args[0],
				Fixed:        fixed,
				IgnoreCase:   ignoreCase,
				CountOnly:    countOnly,
				ContextLines: contextLines,
				Filter:       filter,
			}}
			resp, err := dispatchRemote(g, req)
			if err != nil {
				return err
			}
			return printResponse(g, resp)
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&fixed, "fixed", false, "treat pattern as a literal substring, not a regex")
	cmd.Flags().BoolVar(&ignoreCase, "ignore-case", false, "case-insensitive match")
	cmd.Flags().BoolVar(&countOnly, "count-only", false, "return only the total match count")
	cmd.Flags().IntVar(&contextLines, "context", 0, "lines of surrounding context per match")
	return cmd
}

func newTracesCmd(g *globalFlags) *cobra.Command {
	var f filterFlags
	cmd := &cobra.Command{
		Use:   "traces",
		Short: "list trace summaries within a time window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := f.toFilter()
			if err != nil {
				return err
			}
			resp, err := dispatchRemote(g, query.Request{Op: query.OpTraces, Traces: &store.TracesRequest{Filter: filter}})
			if err != nil {
				return err
			}
			return printResponse(g, resp)
		},
	}
	f.register(cmd)
	return cmd
}

func newTraceCmd(g *globalFlags) *cobra.Command {
	var root, logs string
	cmd := &cobra.Command{
		Use:   "trace <trace_id>",
		Short: "reconstruct one trace: every span plus related logs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := query.Request{Op: query.OpTrace, Trace: &store.TraceRequest{
				TraceID: args[0],
				Root:    root,
				Logs:    model.ParseLogsPolicy(logs),
			}}
			resp, err := dispatchRemote(g, req)
			if err != nil {
				return err
			}
			return printResponse(g, resp)
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "optional span ID whose subtree is returned")
	cmd.Flags().StringVar(&logs, "logs", "bounded", "attached log context: none|bounded|all")
	return cmd
}

func newSpanCmd(g *globalFlags) *cobra.Command {
	var logs string
	cmd := &cobra.Command{
		Use:   "span <trace_id> <span_id>",
		Short: "look up a single span plus its related logs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := query.Request{Op: query.OpSpan, Span: &store.SpanRequest{
				TraceID: args[0],
				SpanID:  args[1],
				Logs:    model.ParseLogsPolicy(logs),
			}}
			resp, err := dispatchRemote(g, req)
			if err != nil {
				return err
			}
			return printResponse(g, resp)
		},
	}
	cmd.Flags().StringVar(&logs, "logs", "bounded", "attached log context: none|bounded|all")
	return cmd
}

func newMetricsCmd(g *globalFlags) *cobra.Command {
	var f filterFlags
	var service, groupBy, agg string

	cmd := &cobra.Command{
		Use:   "metrics [<name>|list]",
		Short: "aggregate a named metric, or list known metric names",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := f.toFilter()
			if err != nil {
				return err
			}
			if len(args) == 0 || args[0] == "list" {
				resp, err := dispatchRemote(g, query.Request{Op: query.OpMetricsList, MetricsList: &store.MetricsListRequest{Filter: filter}})
				if err != nil {
					return err
				}
				return printResponse(g, resp)
			}
			req := query.Request{Op: query.OpMetrics, Metrics: &store.MetricsRequest{
				Name:    args[0],
				Service: service,
				GroupBy: groupBy,
				Agg:     agg,
				Filter:  filter,
			}}
			resp, err := dispatchRemote(g, req)
			if err != nil {
				return err
			}
			return printResponse(g, resp)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&service, "metric-service", "", "restrict aggregation to one service")
	cmd.Flags().StringVar(&groupBy, "group-by", "", `"service" or an attribute key`)
	cmd.Flags().StringVar(&agg, "agg", "avg", "avg|count|min|max|p50|p95|p99")
	return cmd
}

func newStatusCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "report store path, size, row counts, and timestamp range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := dispatchRemote(g, query.Request{Op: query.OpStatus})
			if err != nil {
				return err
			}
			return printResponse(g, resp)
		},
	}
}

func newHandleCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "handle <base64>",
		Short: "re-run the request a previously returned handle encodes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := query.Request{Op: query.OpResolveHandle, Handle: model.QueryHandle(args[0])}
			resp, err := dispatchRemote(g, req)
			if err != nil {
				return err
			}
			return printResponse(g, resp)
		},
	}
}

// parseTimeArg accepts either RFC3339 or raw unix nanoseconds.
func parseTimeArg(s string) (int64, error) {
	if ns, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ns, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return 0, err
	}
	return t.UnixNano(), nil
}
