package watcher

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const metricsShutdownTimeout = 5 * time.Second

// metricsServer serves the watcher's Prometheus registry plus a health
// endpoint on its own HTTP port.
type metricsServer struct {
	logger     *zap.Logger
	httpServer *http.Server
}

func newMetricsServer(port int, registry *prometheus.Registry, logger *zap.Logger) *metricsServer {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return &metricsServer{
		logger: logger,
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}
}

func (ms *metricsServer) Start(ctx context.Context) error {
	ms.logger.Sugar().Infow("Starting metrics server",
		zap.String("addr", ms.httpServer.Addr),
	)
	go func() {
		if err := ms.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			ms.logger.Sugar().Errorw("Metrics server failed", zap.Error(err))
		}
	}()
	return nil
}

func (ms *metricsServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
	defer cancel()
	return ms.httpServer.Shutdown(ctx)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"healthy"}`))
}
