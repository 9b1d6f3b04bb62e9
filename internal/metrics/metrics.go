package metrics

import (
	"regexp"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// RequestDuration tracks HTTP request duration in seconds by method, path, status.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// RequestTotal counts HTTP requests by method, path, status.
	RequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// EntriesRecorded counts persisted audit entries by subject type and action.
	EntriesRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_entries_recorded_total",
			Help: "Total number of audit entries persisted",
		},
		[]string{"subject_type", "action"},
	)

	// EntriesSuppressed counts blank payloads filtered before the store.
	EntriesSuppressed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_entries_suppressed_total",
			Help: "Total number of blank payloads suppressed without a write",
		},
	)

	// EntriesStored is the number of entries in the store by subject type,
	// refreshed periodically by the stats job.
	EntriesStored = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "audit_entries_stored",
			Help: "Number of audit entries currently stored by subject type",
		},
		[]string{"subject_type"},
	)
)

var (
	subjectPathSegment = regexp.MustCompile(`^(/subjects/[^/]+)/[^/]+`)
	initOnce           sync.Once
)

func init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestDuration, RequestTotal, EntriesRecorded, EntriesSuppressed, EntriesStored)
	})
}

// NormalizePath reduces cardinality by replacing the subject id path segment
// with {id}. E.g. /subjects/order/42/entries -> /subjects/order/{id}/entries.
func NormalizePath(path string) string {
	return subjectPathSegment.ReplaceAllString(path, "$1/{id}")
}

// RecordRequest records duration and count for an HTTP request. Call from middleware with method, path, statusCode, duration.
func RecordRequest(method, path string, statusCode int, durationSeconds float64) {
	path = NormalizePath(path)
	status := strconv.Itoa(statusCode)
	RequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
	RequestTotal.WithLabelValues(method, path, status).Inc()
}

// IncEntriesRecorded increments the persisted-entries counter.
func IncEntriesRecorded(subjectType, action string) {
	EntriesRecorded.WithLabelValues(subjectType, action).Inc()
}

// IncEntriesSuppressed increments the suppressed-payloads counter.
func IncEntriesSuppressed() {
	EntriesSuppressed.Inc()
}

// SetEntriesStored sets the stored-entries gauge for one subject type.
func SetEntriesStored(subjectType string, n int) {
	EntriesStored.WithLabelValues(subjectType).Set(float64(n))
}
