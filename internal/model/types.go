// Package model defines the typed domain records that flow from the OTLP
// decoder through the write pipeline into the store, and the envelopes the
// query dispatcher speaks.
package model

// SpanKind mirrors the OTLP span kind enum, degrading unknown values to
// Internal.
type SpanKind int

const (
	SpanKindInternal SpanKind = iota
	SpanKindServer
	SpanKindClient
	SpanKindProducer
	SpanKindConsumer
)

func (k SpanKind) String() string {
	switch k {
	case SpanKindServer:
		return "server"
	case SpanKindClient:
		return "client"
	case SpanKindProducer:
		return "producer"
	case SpanKindConsumer:
		return "consumer"
	default:
		return "internal"
	}
}

// SpanStatus mirrors the OTLP span status code enum, degrading unknown
// values to Unset.
type SpanStatus int

const (
	StatusUnset SpanStatus = iota
	StatusOk
	StatusError
)

func (s SpanStatus) String() string {
	switch s {
	case StatusOk:
		return "ok"
	case StatusError:
		return "error"
	default:
		return "unset"
	}
}

// MetricKind classifies a MetricPoint's originating OTLP metric shape.
type MetricKind int

const (
	MetricGauge MetricKind = iota
	MetricSumCumulative
	MetricSumDelta
	MetricHistogram
	MetricSummary
)

func (k MetricKind) String() string {
	switch k {
	case MetricSumCumulative:
		return "sum_cumulative"
	case MetricSumDelta:
		return "sum_delta"
	case MetricHistogram:
		return "histogram"
	case MetricSummary:
		return "summary"
	default:
		return "gauge"
	}
}

// LogRecord is one ingested OTLP log line, immutable once stored.
type LogRecord struct {
	Ts       int64    // nanoseconds since Unix epoch, UTC
	Service  *string  // nil when resource has no service.name
	Severity Severity // 0 = unset
	TraceID  string   // 32 lowercase hex chars, or ""
	SpanID   string   // 16 lowercase hex chars, or ""
	Body     string
	Attrs    Attrs
}

// AttrsText returns the flat key=value scan form used for substring search.
func (r *LogRecord) AttrsText() string { return r.Attrs.FlatText() }

// SpanEvent is one timestamped event attached to a span.
type SpanEvent struct {
	Ts    int64
	Name  string
	Attrs Attrs
}

// SpanLink references another span, with its own attributes.
type SpanLink struct {
	TraceID string
	SpanID  string
	Attrs   Attrs
}

// SpanRecord is one ingested OTLP span, immutable once stored.
type SpanRecord struct {
	TraceID       string
	SpanID        string
	ParentSpanID  string // "" when root
	Service       *string
	Name          string
	Kind          SpanKind
	StartTs       int64
	EndTs         int64
	Status        SpanStatus
	StatusMessage string
	Attrs         Attrs
	Events        []SpanEvent
	Links         []SpanLink
}

// MetricPoint is one flattened metric data point; histograms and summaries
// expand into several MetricPoints sharing a Name but distinguished by Stat.
type MetricPoint struct {
	Name    string
	Service *string
	Ts      int64
	Value   float64
	Attrs   Attrs
	Kind    MetricKind
	Stat    string // "" (gauge/sum), "count", "sum", "bucket_le", or "q" (summary quantile)
}

// Sort determines query result ordering.
type Sort int

const (
	SortTsAsc Sort = iota
	SortTsDesc
)

// QueryHandle is an opaque base64 token wrapping the canonical JSON of the
// request that produced a response, for deterministic replay.
type QueryHandle string

// LogsPolicy controls how much log context a Trace/Span query attaches.
type LogsPolicy int

const (
	LogsNone LogsPolicy = iota
	LogsBounded
	LogsAll
)

// LogCtxLimit bounds the number of logs attached under LogsBounded for a
// trace query; SpanLogCtxLimit is the tighter per-span bound.
const (
	LogCtxLimit     = 50
	SpanLogCtxLimit = 30
)

func (p LogsPolicy) String() string {
	switch p {
	case LogsNone:
		return "none"
	case LogsAll:
		return "all"
	default:
		return "bounded"
	}
}

// ParseLogsPolicy maps the CLI/query-string spellings ("none", "bounded",
// "all") onto a LogsPolicy, defaulting to LogsBounded for "" or anything
// unrecognized.
func ParseLogsPolicy(s string) LogsPolicy {
	switch s {
	case "none":
		return LogsNone
	case "all":
		return LogsAll
	default:
		return LogsBounded
	}
}
