package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusProvider implements the Provider interface using Prometheus.
// Each provider owns its registry so multiple instances never collide
// on metric registration.
type PrometheusProvider struct {
	registry           *prometheus.Registry
	operationDuration  *prometheus.HistogramVec
	operationTotal     *prometheus.CounterVec
	operationsInFlight prometheus.Gauge
	cacheHits          *prometheus.CounterVec
	cacheMisses        *prometheus.CounterVec
}

// NewPrometheusProvider creates a new Prometheus metrics provider.
func NewPrometheusProvider(namespace string) *PrometheusProvider {
	if namespace == "" {
		namespace = "resourcespec"
	}

	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &PrometheusProvider{
		registry: registry,
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Engine operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"resource", "operation", "status"},
		),
		operationTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of engine operations",
			},
			[]string{"resource", "operation", "status"},
		),
		operationsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "operations_in_flight",
				Help:      "Current number of operations being processed",
			},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of count cache hits",
			},
			[]string{"provider"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of count cache misses",
			},
			[]string{"provider"},
		),
	}
}

// RecordOperation implements Provider interface
func (p *PrometheusProvider) RecordOperation(resource, operation, status string, duration time.Duration) {
	p.operationDuration.WithLabelValues(resource, operation, status).Observe(duration.Seconds())
	p.operationTotal.WithLabelValues(resource, operation, status).Inc()
}

// IncOperationsInFlight implements Provider interface
func (p *PrometheusProvider) IncOperationsInFlight() {
	p.operationsInFlight.Inc()
}

// DecOperationsInFlight implements Provider interface
func (p *PrometheusProvider) DecOperationsInFlight() {
	p.operationsInFlight.Dec()
}

// RecordCacheHit implements Provider interface
func (p *PrometheusProvider) RecordCacheHit(provider string) {
	p.cacheHits.WithLabelValues(provider).Inc()
}

// RecordCacheMiss implements Provider interface
func (p *PrometheusProvider) RecordCacheMiss(provider string) {
	p.cacheMisses.WithLabelValues(provider).Inc()
}

// Handler implements Provider interface
func (p *PrometheusProvider) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
