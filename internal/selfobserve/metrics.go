// Package selfobserve exposes the process's own operation: a Prometheus
// /metrics endpoint and, when enabled, OTel self-export of its own spans.
// Generalized from the teacher's startMetricsServer in cmd/gateway/main.go.
package selfobserve

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ServeMetrics binds a plain promhttp.Handler() at /metrics on addr until
// ctx is cancelled. The run command calls it only when OTELL_SELF_OBSERVE is
// "both"; under "store" only the Tracer's spans are exported, and these
// Prometheus metrics are neither served nor stored.
func ServeMetrics(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("selfobserve: metrics server shutdown", zap.Error(err))
		}
	}()

	logger.Info("selfobserve: metrics server listening", zap.String("addr", addr))
	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
