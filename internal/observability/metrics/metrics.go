// Package metrics registers the service's Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deliveryhub_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "deliveryhub_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	validationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deliveryhub_location_validation_failures_total",
		Help: "Location payloads rejected by the validator, by offending field",
	}, []string{"field"})

	lifecycleOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deliveryhub_lifecycle_operations_total",
		Help: "Source and destination operations by kind and result",
	}, []string{"role", "operation", "result"})

	orphanSweeps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deliveryhub_orphan_sweeps_total",
		Help: "Orphan location sweeps by result",
	}, []string{"result"})

	orphansDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "deliveryhub_orphan_locations_deleted_total",
		Help: "Locations removed because nothing referenced them",
	})

	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deliveryhub_login_attempts_total",
		Help: "Login attempts by result",
	}, []string{"result"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// ObserveValidationFailure counts a rejected location payload
func ObserveValidationFailure(field string) {
	if field == "" {
		field = "unknown"
	}
	validationFailures.WithLabelValues(field).Inc()
}

// ObserveLifecycle counts a source/destination operation
func ObserveLifecycle(role, operation, result string) {
	lifecycleOperations.WithLabelValues(role, operation, result).Inc()
}

// ObserveOrphanSweep records one sweeper pass
func ObserveOrphanSweep(result string, deleted int64) {
	orphanSweeps.WithLabelValues(result).Inc()
	if deleted > 0 {
		orphansDeleted.Add(float64(deleted))
	}
}

// ObserveLogin counts a login attempt
func ObserveLogin(result string) {
	loginAttempts.WithLabelValues(result).Inc()
}
