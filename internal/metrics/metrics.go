// Package metrics holds the Prometheus collectors shared by the feedback
// subsystem and the HTTP layer.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups every collector the service exports.
type Metrics struct {
	FeedbackOperations *prometheus.CounterVec
	FeedbackLatency    *prometheus.HistogramVec
	RealtimeEvents     *prometheus.CounterVec
	RealtimeDropped    prometheus.Counter
	ActiveViews        prometheus.Gauge
	HTTPRequests       *prometheus.CounterVec
}

var (
	instance        *Metrics
	instanceOnce    sync.Once
	defaultRegistry = prometheus.DefaultRegisterer
)

// Get returns the process-wide collectors, registering them on first use.
func Get() *Metrics {
	instanceOnce.Do(func() {
		factory := promauto.With(defaultRegistry)
		instance = &Metrics{
			FeedbackOperations: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "feedback_operations_total",
				Help: "Feedback store operations by operation and result",
			}, []string{"operation", "result"}),
			FeedbackLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "feedback_operation_duration_seconds",
				Help:    "Time taken by feedback store operations",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			}, []string{"operation"}),
			RealtimeEvents: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "feedback_realtime_events_total",
				Help: "Inserted rows delivered to views by source",
			}, []string{"source"}),
			RealtimeDropped: factory.NewCounter(prometheus.CounterOpts{
				Name: "feedback_realtime_dropped_total",
				Help: "Realtime rows dropped because a subscriber buffer was full",
			}),
			ActiveViews: factory.NewGauge(prometheus.GaugeOpts{
				Name: "feedback_active_views",
				Help: "Currently mounted feedback views",
			}),
			HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "HTTP requests by method, route and status",
			}, []string{"method", "route", "status"}),
		}
	})
	return instance
}

// ResetForTesting swaps in a fresh registry so tests can assert on counters
// without colliding with earlier registrations.
func ResetForTesting() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	defaultRegistry = reg
	instance = nil
	instanceOnce = sync.Once{}
	return reg
}
