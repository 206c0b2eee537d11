package yacs

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusCollector exposes per-kind operation counts, errors and
// latency distributions on an HTTP /metrics endpoint.
type PrometheusCollector struct {
	operations *prometheus.CounterVec
	errors     prometheus.Counter
	latency    *prometheus.HistogramVec
	server     *http.Server
}

func NewPrometheusCollector(port int) *PrometheusCollector {
	registry := prometheus.NewRegistry()
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "yacs_operations_total",
		Help: "Completed operations by kind.",
	}, []string{"op"})
	errors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "yacs_errors_total",
		Help: "Failed operations.",
	})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "yacs_operation_latency_seconds",
		Help:    "Operation latency by kind.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
	}, []string{"op"})
	registry.MustRegister(operations, errors, latency)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			Warnf("prometheus endpoint failed: %s", err)
		}
	}()
	return &PrometheusCollector{
		operations: operations,
		errors:     errors,
		latency:    latency,
		server:     server,
	}
}

func (self *PrometheusCollector) Collect(ctx *StressContext, op *Operation,
	result *OperationResult, startNanos, endNanos int64) {

	kind := op.Kind.String()
	self.operations.WithLabelValues(kind).Inc()
	if !result.Success {
		self.errors.Inc()
		return
	}
	self.latency.WithLabelValues(kind).
		Observe(float64(endNanos-startNanos) / float64(time.Second))
}

func (self *PrometheusCollector) Close() error {
	return self.server.Close()
}
