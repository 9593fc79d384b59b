package cli

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/ollystack/otell/internal/config"
	"github.com/ollystack/otell/internal/forward"
	"github.com/ollystack/otell/internal/ingest"
	"github.com/ollystack/otell/internal/model"
	"github.com/ollystack/otell/internal/pipeline"
	"github.com/ollystack/otell/internal/query"
	"github.com/ollystack/otell/internal/selfobserve"
	"github.com/ollystack/otell/internal/store"
)

const shutdownDeadline = 5 * time.Second

// newRunCmd builds the `run` subcommand: the full daemon. Grounded on the
// teacher's cmd/gateway/main.go run() (load config, wire writer, start
// gRPC/HTTP/metrics servers as goroutines, wait on signal or error
// channel, graceful shutdown), extended with otell's query transports,
// retention loop, and self-observe.
func newRunCmd(g *globalFlags) *cobra.Command {
	var dbPath, otlpGRPCAddr, otlpHTTPAddr, queryTCPAddr, queryHTTPAddr, queryUDSPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "start the OTLP ingest and query daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			cfg, err := config.Load(g.cfgFile, flags)
			if err != nil {
				return usageErrorf("load config: %w", err)
			}
			return runDaemon(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&dbPath, "db-path", "", "DuckDB file path")
	flags.StringVar(&otlpGRPCAddr, "otlp-grpc-addr", "", "OTLP gRPC listen address")
	flags.StringVar(&otlpHTTPAddr, "otlp-http-addr", "", "OTLP HTTP listen address")
	flags.StringVar(&queryTCPAddr, "query-tcp-addr", "", "query line-JSON TCP listen address")
	flags.StringVar(&queryHTTPAddr, "query-http-addr", "", "query HTTP listen address")
	flags.StringVar(&queryUDSPath, "query-uds-path", "", "query line-JSON unix socket path")
	return cmd
}

func runDaemon(ctx context.Context, cfg *config.Config) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("starting otell",
		zap.String("db_path", cfg.DBPath),
		zap.String("otlp_grpc_addr", cfg.OTLPGRPCAddr),
		zap.String("otlp_http_addr", cfg.OTLPHTTPAddr),
		zap.String("query_tcp_addr", cfg.QueryTCPAddr),
		zap.String("query_http_addr", cfg.QueryHTTPAddr),
	)

	st, err := store.Open(cfg.DBPath, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	tracer, err := selfobserve.New(ctx, cfg, "otell", "1")
	if err != nil {
		return fmt.Errorf("build tracer: %w", err)
	}
	st.SetTracer(tracer)

	broadcaster := query.NewBroadcaster()

	logsPipeline := pipeline.New[model.LogRecord]("logs", pipeline.Config{
		BatchSize: cfg.WriteBatchSize, FlushInterval: time.Duration(cfg.WriteFlushMs) * time.Millisecond, EnqueueTimeout: cfg.EnqueueTimeout,
	}, func(ctx context.Context, batch []model.LogRecord) error {
		if err := st.InsertLogs(ctx, batch); err != nil {
			return err
		}
		for _, rec := range batch {
			broadcaster.Publish(rec)
		}
		return nil
	}, logger)

	spansPipeline := pipeline.New[model.SpanRecord]("spans", pipeline.Config{
		BatchSize: cfg.WriteBatchSize, FlushInterval: time.Duration(cfg.WriteFlushMs) * time.Millisecond, EnqueueTimeout: cfg.EnqueueTimeout,
	}, st.InsertSpans, logger)

	metricsPipeline := pipeline.New[model.MetricPoint]("metrics", pipeline.Config{
		BatchSize: cfg.WriteBatchSize, FlushInterval: time.Duration(cfg.WriteFlushMs) * time.Millisecond, EnqueueTimeout: cfg.EnqueueTimeout,
	}, st.InsertMetrics, logger)

	fwd, err := forward.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("build forwarder: %w", err)
	}
	if fwd != nil {
		defer fwd.Close()
	}

	ingestor := &ingest.Ingestor{
		Logs: logsPipeline, Spans: spansPipeline, Metrics: metricsPipeline,
		Forwarder: fwd, Tracer: tracer, Logger: logger,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go logsPipeline.Run(ctx)
	go spansPipeline.Run(ctx)
	go metricsPipeline.Run(ctx)
	go st.RunRetention(ctx, cfg.RetentionTTL, cfg.RetentionMaxBytes)

	errCh := make(chan error, 8)

	go func() { errCh <- serveGRPC(ctx, cfg.OTLPGRPCAddr, ingestor) }()
	go func() { errCh <- serveOTLPHTTP(ctx, cfg.OTLPHTTPAddr, ingestor) }()

	dispatcher := &query.Dispatcher{Store: st}
	lineServer := &query.LineServer{Dispatcher: dispatcher, Logger: logger}
	go func() { errCh <- lineServer.ServeTCP(ctx, cfg.QueryTCPAddr) }()
	if cfg.QueryUDSPath != "" {
		go func() { errCh <- lineServer.ServeUDS(ctx, cfg.QueryUDSPath) }()
	}
	go func() { errCh <- serveQueryHTTP(ctx, cfg.QueryHTTPAddr, dispatcher, broadcaster, logger) }()

	if cfg.SelfObserve == "both" {
		go func() { errCh <- selfobserve.ServeMetrics(ctx, cfg.MetricsAddr, logger) }()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", zap.Error(err))
		}
	}

	cancel()
	logsPipeline.Stop()
	spansPipeline.Stop()
	metricsPipeline.Stop()
	if err := tracer.Shutdown(context.Background()); err != nil {
		logger.Warn("tracer shutdown", zap.Error(err))
	}

	time.Sleep(shutdownDeadline)
	logger.Info("shutdown complete")
	return nil
}

func serveGRPC(ctx context.Context, addr string, in *ingest.Ingestor) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("otlp grpc listen: %w", err)
	}
	server := grpc.NewServer(
		grpc.MaxRecvMsgSize(16*1024*1024),
		grpc.MaxSendMsgSize(16*1024*1024),
	)
	ingest.RegisterGRPC(server, in)

	go func() {
		<-ctx.Done()
		server.GracefulStop()
	}()
	return server.Serve(lis)
}

func serveOTLPHTTP(ctx context.Context, addr string, in *ingest.Ingestor) error {
	mux := http.NewServeMux()
	ingest.RegisterHTTP(mux, in)
	server := &http.Server{Addr: addr, Handler: mux, ReadTimeout: 30 * time.Second, WriteTimeout: 30 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownDeadline)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()
	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func serveQueryHTTP(ctx context.Context, addr string, d *query.Dispatcher, tail *query.Broadcaster, logger *zap.Logger) error {
	engine := query.NewHTTPHandler(d, tail, logger)
	server := &http.Server{Addr: addr, Handler: engine}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownDeadline)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()
	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
