package selfobserve

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/ollystack/otell/internal/config"
)

const shutdownGrace = 5 * time.Second

// Tracer wraps the OTel SDK's tracer provider with otell-specific helpers
// for tagging ingest and retention spans. Grounded on the pack's
// bc-dunia-mcpdrill internal/otel/tracer.go, trimmed to the one exporter
// choice otell needs (OTLP, not the stdout/debug exporter that repo also
// offers, since otell has no interactive debug mode).
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// New builds a Tracer. It is a genuine no-op (NoopTracerProvider) unless
// cfg.SelfObserve is "store" or "both", or cfg.OTelExporterEndpoint (config
// key otel_exporter_otlp_endpoint, env OTELL_OTEL_EXPORTER_OTLP_ENDPOINT) is
// set. The export destination is that endpoint if set, else otell's own OTLP
// gRPC ingest address (a loopback self-export). An unprefixed
// OTEL_EXPORTER_OTLP_ENDPOINT neither enables export nor changes its
// destination.
func New(ctx context.Context, cfg *config.Config, serviceName, serviceVersion string) (*Tracer, error) {
	if cfg.SelfObserve == "off" && cfg.OTelExporterEndpoint == "" {
		tp := noop.NewTracerProvider()
		return &Tracer{tracer: tp.Tracer(serviceName)}, nil
	}

	endpoint := cfg.OTelExporterEndpoint
	if endpoint == "" {
		endpoint = cfg.OTLPGRPCAddr
	}

	exporter, err := newExporter(ctx, cfg.OTelExporterProtocol, endpoint)
	if err != nil {
		return nil, fmt.Errorf("selfobserve: exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes("",
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("selfobserve: resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return &Tracer{provider: provider, tracer: provider.Tracer(serviceName)}, nil
}

func newExporter(ctx context.Context, protocol, endpoint string) (sdktrace.SpanExporter, error) {
	switch protocol {
	case "", "grpc":
		return otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(endpoint), otlptracegrpc.WithInsecure())
	case "http", "http/protobuf":
		return otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
	default:
		return nil, fmt.Errorf("unsupported otel_exporter_otlp_protocol %q", protocol)
	}
}

// Start begins a span named name tagged with an otell.component attribute.
// A nil *Tracer (self-observe never configured) is a no-op, so callers
// never need to branch on whether self-observe is enabled.
func (t *Tracer) Start(ctx context.Context, component, name string) (context.Context, trace.Span) {
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("otell.component", component)))
}

// Shutdown flushes and closes the underlying exporter, if any.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t == nil || t.provider == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownGrace)
	defer cancel()
	return t.provider.Shutdown(shutdownCtx)
}
