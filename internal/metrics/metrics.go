package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "antinuke"

var (
	EventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_received_total",
		Help:      "Destructive gateway events received, by category",
	}, []string{"category"})

	EventsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_skipped_total",
		Help:      "Events not tracked, by reason",
	}, []string{"reason"})

	AttributionMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "attribution_misses_total",
		Help:      "Events whose responsible actor could not be resolved from the audit log",
	})

	Violations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "violations_total",
		Help:      "Detected threshold violations, by category",
	}, []string{"category"})

	Mitigations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "mitigations_total",
		Help:      "Mitigation attempts, by result",
	}, []string{"result"})

	ConfigMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "config_mutations_total",
		Help:      "Settings mutations, by result",
	}, []string{"result"})

	TrackedBuckets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "tracked_buckets",
		Help:      "Actor buckets currently held by the tracker",
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "event_queue_depth",
		Help:      "Jobs waiting in the event loop",
	})

	JobLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "job_duration_seconds",
		Help:      "Time spent running one event loop job, platform calls included",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
	})

	RESTLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "rest_request_duration_seconds",
		Help:      "Discord REST round trips, by HTTP method",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	}, []string{"method"})

	GatewayLatency = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "gateway_heartbeat_seconds",
		Help:      "Last measured gateway heartbeat latency",
	})
)

// Serve exposes /metrics on addr until ctx is cancelled
func Serve(ctx context.Context, addr string, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics server listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server stopped", zap.Error(err))
	}
}
