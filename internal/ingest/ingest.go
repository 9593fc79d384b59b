// Package ingest implements the gRPC and HTTP OTLP receivers: decode via
// internal/otlp, enqueue into internal/pipeline, tee to internal/forward,
// and report back an OTLP partial-success response built from the
// decoder's rejection tally. Grounded on the teacher's
// internal/handler/otlp.go dual-transport shape (same
// decode-then-write-then-record-metrics structure, same promauto metric
// names generalized to the otell_ingest_* namespace), with tenant/rate-
// limit concerns dropped per this repo's scope.
package ingest

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	collectorlogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	collectormetricspb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	collectortracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"

	"github.com/ollystack/otell/internal/forward"
	"github.com/ollystack/otell/internal/model"
	"github.com/ollystack/otell/internal/otlp"
	"github.com/ollystack/otell/internal/pipeline"
	"github.com/ollystack/otell/internal/selfobserve"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otell_ingest_requests_total",
			Help: "Total number of ingest requests received",
		},
		[]string{"signal", "protocol", "status"},
	)
	requestLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "otell_ingest_latency_seconds",
			Help:    "Ingest request processing latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"signal", "protocol"},
	)
	recordsAccepted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otell_ingest_records_accepted_total",
			Help: "Total number of accepted telemetry records",
		},
		[]string{"signal"},
	)
	recordsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otell_ingest_records_rejected_total",
			Help: "Total number of rejected telemetry records",
		},
		[]string{"signal", "reason"},
	)
	forwardErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otell_ingest_forward_errors_total",
			Help: "Total number of forwarding failures to the upstream OTLP endpoint",
		},
		[]string{"signal"},
	)
)

// Ingestor is the shared core behind both gRPC and HTTP OTLP receivers: it
// decodes a request, enqueues the resulting records, and optionally tees
// the original request upstream.
type Ingestor struct {
	Logs    *pipeline.Pipeline[model.LogRecord]
	Spans   *pipeline.Pipeline[model.SpanRecord]
	Metrics *pipeline.Pipeline[model.MetricPoint]

	Forwarder *forward.Forwarder
	Tracer    *selfobserve.Tracer
	Logger    *zap.Logger
}

// IngestLogs decodes, enqueues, and tees req, returning an OTLP response
// whose partial-success field carries the rejected-record count.
func (in *Ingestor) IngestLogs(ctx context.Context, req *collectorlogspb.ExportLogsServiceRequest, protocol string) (*collectorlogspb.ExportLogsServiceResponse, error) {
	ctx, span := in.Tracer.Start(ctx, "ingest.logs", "ingest.logs")
	defer span.End()

	start := time.Now()
	result := otlp.DecodeLogs(req)

	accepted := 0
	for _, rec := range result.Records {
		if err := in.Logs.Enqueue(ctx, rec); err != nil {
			requestsTotal.WithLabelValues("logs", protocol, "rejected").Inc()
			requestLatency.WithLabelValues("logs", protocol).Observe(time.Since(start).Seconds())
			return nil, err
		}
		accepted++
	}
	recordsAccepted.WithLabelValues("logs").Add(float64(accepted))
	in.recordRejections("logs", result.Rejections)

	if in.Forwarder != nil {
		if err := in.Forwarder.ForwardLogs(ctx, req); err != nil {
			forwardErrors.WithLabelValues("logs").Inc()
			in.Logger.Warn("forward logs failed", zap.Error(err))
		}
	}

	requestsTotal.WithLabelValues("logs", protocol, "success").Inc()
	requestLatency.WithLabelValues("logs", protocol).Observe(time.Since(start).Seconds())

	return &collectorlogspb.ExportLogsServiceResponse{
		PartialSuccess: partialSuccessLogs(result.Rejections),
	}, nil
}

// IngestSpans decodes, enqueues, and tees req.
func (in *Ingestor) IngestSpans(ctx context.Context, req *collectortracepb.ExportTraceServiceRequest, protocol string) (*collectortracepb.ExportTraceServiceResponse, error) {
	ctx, span := in.Tracer.Start(ctx, "ingest.spans", "ingest.spans")
	defer span.End()

	start := time.Now()
	result := otlp.DecodeSpans(req)

	accepted := 0
	for _, rec := range result.Records {
		if err := in.Spans.Enqueue(ctx, rec); err != nil {
			requestsTotal.WithLabelValues("traces", protocol, "rejected").Inc()
			requestLatency.WithLabelValues("traces", protocol).Observe(time.Since(start).Seconds())
			return nil, err
		}
		accepted++
	}
	recordsAccepted.WithLabelValues("traces").Add(float64(accepted))
	in.recordRejections("traces", result.Rejections)

	if in.Forwarder != nil {
		if err := in.Forwarder.ForwardTraces(ctx, req); err != nil {
			forwardErrors.WithLabelValues("traces").Inc()
			in.Logger.Warn("forward traces failed", zap.Error(err))
		}
	}

	requestsTotal.WithLabelValues("traces", protocol, "success").Inc()
	requestLatency.WithLabelValues("traces", protocol).Observe(time.Since(start).Seconds())

	return &collectortracepb.ExportTraceServiceResponse{
		PartialSuccess: partialSuccessSpans(result.Rejections),
	}, nil
}

// IngestMetrics decodes, enqueues, and tees req.
func (in *Ingestor) IngestMetrics(ctx context.Context, req *collectormetricspb.ExportMetricsServiceRequest, protocol string) (*collectormetricspb.ExportMetricsServiceResponse, error) {
	ctx, span := in.Tracer.Start(ctx, "ingest.metrics", "ingest.metrics")
	defer span.End()

	start := time.Now()
	result := otlp.DecodeMetrics(req)

	accepted := 0
	for _, rec := range result.Records {
		if err := in.Metrics.Enqueue(ctx, rec); err != nil {
			requestsTotal.WithLabelValues("metrics", protocol, "rejected").Inc()
			requestLatency.WithLabelValues("metrics", protocol).Observe(time.Since(start).Seconds())
			return nil, err
		}
		accepted++
	}
	recordsAccepted.WithLabelValues("metrics").Add(float64(accepted))
	in.recordRejections("metrics", result.Rejections)

	if in.Forwarder != nil {
		if err := in.Forwarder.ForwardMetrics(ctx, req); err != nil {
			forwardErrors.WithLabelValues("metrics").Inc()
			in.Logger.Warn("forward metrics failed", zap.Error(err))
		}
	}

	requestsTotal.WithLabelValues("metrics", protocol, "success").Inc()
	requestLatency.WithLabelValues("metrics", protocol).Observe(time.Since(start).Seconds())

	return &collectormetricspb.ExportMetricsServiceResponse{
		PartialSuccess: partialSuccessMetrics(result.Rejections),
	}, nil
}

func (in *Ingestor) recordRejections(signal string, rejections *otlp.Rejections) {
	for _, e := range rejections.Errors() {
		recordsRejected.WithLabelValues(signal, e.Kind.String()).Add(float64(e.Count))
	}
}

func partialSuccessLogs(r *otlp.Rejections) *collectorlogspb.ExportLogsPartialSuccess {
	if r.Total() == 0 {
		return nil
	}
	return &collectorlogspb.ExportLogsPartialSuccess{
		RejectedLogRecords: int64(r.Total()),
		ErrorMessage:       rejectionSummary(r),
	}
}

func partialSuccessSpans(r *otlp.Rejections) *collectortracepb.ExportTracePartialSuccess {
	if r.Total() == 0 {
		return nil
	}
	return &collectortracepb.ExportTracePartialSuccess{
		RejectedSpans: int64(r.Total()),
		ErrorMessage:  rejectionSummary(r),
	}
}

func partialSuccessMetrics(r *otlp.Rejections) *collectormetricspb.ExportMetricsPartialSuccess {
	if r.Total() == 0 {
		return nil
	}
	return &collectormetricspb.ExportMetricsPartialSuccess{
		RejectedDataPoints: int64(r.Total()),
		ErrorMessage:       rejectionSummary(r),
	}
}

func rejectionSummary(r *otlp.Rejections) string {
	summary := ""
	for i, e := range r.Errors() {
		if i > 0 {
			summary += "; "
		}
		summary += e.Error()
	}
	return summary
}
