package metrics

import (
	"net/http"
	"time"
)

// Provider defines the interface for metric collection
type Provider interface {
	// RecordOperation records one engine operation with its outcome
	RecordOperation(resource, operation, status string, duration time.Duration)

	// IncOperationsInFlight increments the in-flight operations gauge
	IncOperationsInFlight()

	// DecOperationsInFlight decrements the in-flight operations gauge
	DecOperationsInFlight()

	// RecordCacheHit records a count cache hit
	RecordCacheHit(provider string)

	// RecordCacheMiss records a count cache miss
	RecordCacheMiss(provider string)

	// Handler returns an HTTP handler for exposing metrics
	Handler() http.Handler
}

// NoOpProvider is a no-op implementation of Provider
type NoOpProvider struct{}

func (n *NoOpProvider) RecordOperation(resource, operation, status string, duration time.Duration) {}
func (n *NoOpProvider) IncOperationsInFlight()                                                     {}
func (n *NoOpProvider) DecOperationsInFlight()                                                     {}
func (n *NoOpProvider) RecordCacheHit(provider string)                                             {}
func (n *NoOpProvider) RecordCacheMiss(provider string)                                            {}
func (n *NoOpProvider) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "metrics provider not configured", http.StatusNotFound)
	})
}
