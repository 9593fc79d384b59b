package ingest

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	collectorlogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	collectormetricspb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	collectortracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"

	"github.com/ollystack/otell/internal/pipeline"
)

// RegisterGRPC wires in onto a *grpc.Server as all three OTLP services.
// OTLP's LogsService, TraceService, and MetricsService each declare a
// method literally named Export with a different signature, which Go
// cannot satisfy with same-named methods on one receiver; each gets its
// own thin receiver here instead.
func RegisterGRPC(server *grpc.Server, in *Ingestor) {
	collectorlogspb.RegisterLogsServiceServer(server, &logsServer{in: in})
	collectortracepb.RegisterTraceServiceServer(server, &traceServer{in: in})
	collectormetricspb.RegisterMetricsServiceServer(server, &metricsServer{in: in})
}

type logsServer struct {
	collectorlogspb.UnimplementedLogsServiceServer
	in *Ingestor
}

func (s *logsServer) Export(ctx context.Context, req *collectorlogspb.ExportLogsServiceRequest) (*collectorlogspb.ExportLogsServiceResponse, error) {
	resp, err := s.in.IngestLogs(ctx, req, "grpc")
	if err != nil {
		return nil, grpcStatus(err)
	}
	return resp, nil
}

type traceServer struct {
	collectortracepb.UnimplementedTraceServiceServer
	in *Ingestor
}

func (s *traceServer) Export(ctx context.Context, req *collectortracepb.ExportTraceServiceRequest) (*collectortracepb.ExportTraceServiceResponse, error) {
	resp, err := s.in.IngestSpans(ctx, req, "grpc")
	if err != nil {
		return nil, grpcStatus(err)
	}
	return resp, nil
}

type metricsServer struct {
	collectormetricspb.UnimplementedMetricsServiceServer
	in *Ingestor
}

func (s *metricsServer) Export(ctx context.Context, req *collectormetricspb.ExportMetricsServiceRequest) (*collectormetricspb.ExportMetricsServiceResponse, error) {
	resp, err := s.in.IngestMetrics(ctx, req, "grpc")
	if err != nil {
		return nil, grpcStatus(err)
	}
	return resp, nil
}

func grpcStatus(err error) error {
	if errors.Is(err, pipeline.ErrFull) {
		return status.Error(codes.ResourceExhausted, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
