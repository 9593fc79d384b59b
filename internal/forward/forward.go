// Package forward implements the optional OTLP tee: when configured, every
// accepted ingest request is also replayed to an upstream OTLP endpoint.
// Grounded on the teacher's dual-transport ingest shape (internal/handler),
// generalized into its own outbound leg, and on the OTel SDK's own
// otlptracegrpc exporter for the gRPC dial/compression/header conventions.
package forward

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/proto"

	collectorlogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	collectormetricspb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	collectortracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"

	"github.com/ollystack/otell/internal/config"
)

// Forwarder tees accepted OTLP requests to one upstream endpoint. A nil
// *Forwarder is valid and a no-op, so callers never need to branch on
// whether forwarding is configured.
type Forwarder struct {
	endpoint    string
	protocol    string // grpc|http
	compression string // none|gzip
	headers     map[string]string
	timeout     time.Duration
	logger      *zap.Logger

	conn          *grpc.ClientConn
	logsClient    collectorlogspb.LogsServiceClient
	traceClient   collectortracepb.TraceServiceClient
	metricsClient collectormetricspb.MetricsServiceClient

	httpClient *http.Client
}

// New builds a Forwarder from cfg, or returns (nil, nil) when forwarding is
// not configured.
func New(cfg *config.Config, logger *zap.Logger) (*Forwarder, error) {
	if cfg.ForwardOTLPEndpoint == "" {
		return nil, nil
	}

	f := &Forwarder{
		endpoint:    cfg.ForwardOTLPEndpoint,
		protocol:    cfg.ForwardOTLPProtocol,
		compression: cfg.ForwardOTLPCompression,
		headers:     parseHeaders(cfg.ForwardOTLPHeaders),
		timeout:     cfg.ForwardOTLPTimeout,
		logger:      logger,
	}

	switch f.protocol {
	case "grpc":
		conn, err := grpc.NewClient(f.endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if err != nil {
			return nil, fmt.Errorf("forward: dial %s: %w", f.endpoint, err)
		}
		f.conn = conn
		f.logsClient = collectorlogspb.NewLogsServiceClient(conn)
		f.traceClient = collectortracepb.NewTraceServiceClient(conn)
		f.metricsClient = collectormetricspb.NewMetricsServiceClient(conn)
	case "http":
		f.httpClient = &http.Client{Timeout: f.timeout}
	default:
		return nil, fmt.Errorf("forward: unknown protocol %q", f.protocol)
	}
	return f, nil
}

func parseHeaders(raw []string) map[string]string {
	headers := make(map[string]string, len(raw))
	for _, h := range raw {
		k, v, ok := strings.Cut(h, "=")
		if !ok {
			continue
		}
		headers[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return headers
}

// Close releases the forwarder's upstream connection, if any.
func (f *Forwarder) Close() error {
	if f == nil || f.conn == nil {
		return nil
	}
	return f.conn.Close()
}

// ForwardLogs tees an accepted logs request upstream. Failures are
// returned to the caller to count and log, never to fail the original
// ingest request.
func (f *Forwarder) ForwardLogs(ctx context.Context, req *collectorlogspb.ExportLogsServiceRequest) error {
	if f == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	if f.protocol == "grpc" {
		_, err := f.logsClient.Export(ctx, req)
		return err
	}
	return f.postHTTP(ctx, "/v1/logs", req)
}

// ForwardTraces tees an accepted traces request upstream.
func (f *Forwarder) ForwardTraces(ctx context.Context, req *collectortracepb.ExportTraceServiceRequest) error {
	if f == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	if f.protocol == "grpc" {
		_, err := f.traceClient.Export(ctx, req)
		return err
	}
	return f.postHTTP(ctx, "/v1/traces", req)
}

// ForwardMetrics tees an accepted metrics request upstream.
func (f *Forwarder) ForwardMetrics(ctx context.Context, req *collectormetricspb.ExportMetricsServiceRequest) error {
	if f == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	if f.protocol == "grpc" {
		_, err := f.metricsClient.Export(ctx, req)
		return err
	}
	return f.postHTTP(ctx, "/v1/metrics", req)
}

func (f *Forwarder) postHTTP(ctx context.Context, path string, msg proto.Message) error {
	body, err := proto.Marshal(msg)
	if err != nil {
		return fmt.Errorf("forward: marshal: %w", err)
	}

	if f.compression == "gzip" {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(body); err != nil {
			return fmt.Errorf("forward: gzip: %w", err)
		}
		if err := gz.Close(); err != nil {
			return fmt.Errorf("forward: gzip: %w", err)
		}
		body = buf.Bytes()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("forward: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-protobuf")
	if f.compression == "gzip" {
		req.Header.Set("Content-Encoding", "gzip")
	}
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("forward: post %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("forward: post %s: status %s", path, resp.Status)
	}
	return nil
}
