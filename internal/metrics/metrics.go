package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "liondance"

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests currently being processed",
		},
	)

	// Business metrics
	eventsWrittenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_written_total",
			Help:      "Total number of event writes",
		},
		[]string{"op"}, // create, update, delete
	)

	eventsPublishedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of events that transitioned from draft to published",
		},
	)

	contactMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contact_messages_total",
			Help:      "Total number of contact form submissions",
		},
		[]string{"status"}, // sent, invalid, failed
	)

	loginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Total number of OAuth login attempts",
		},
		[]string{"status"}, // success, not_staff, failed
	)

	orphanedObjectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orphaned_objects_total",
			Help:      "Storage objects whose deletion failed, by outcome of the latest attempt",
		},
		[]string{"outcome"}, // recorded, resolved, retry_failed
	)
)

// RecordHTTPRequest records HTTP RED metrics for one request.
func RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// TrackInFlight increments the in-flight gauge and returns the matching decrement.
func TrackInFlight() func() {
	httpRequestsInFlight.Inc()
	return httpRequestsInFlight.Dec
}

// RecordEventWrite increments the event write counter for op.
func RecordEventWrite(op string) {
	eventsWrittenTotal.WithLabelValues(op).Inc()
}

// RecordEventPublished increments the publish transition counter.
func RecordEventPublished() {
	eventsPublishedTotal.Inc()
}

// RecordContactMessage increments the contact counter for status.
func RecordContactMessage(status string) {
	contactMessagesTotal.WithLabelValues(status).Inc()
}

// RecordLogin increments the login counter for status.
func RecordLogin(status string) {
	loginsTotal.WithLabelValues(status).Inc()
}

// RecordOrphanedObject increments the orphaned object counter for outcome.
func RecordOrphanedObject(outcome string) {
	orphanedObjectsTotal.WithLabelValues(outcome).Inc()
}

// Handler returns the Prometheus metrics handler
func Handler() http.Handler {
	return promhttp.Handler()
}
