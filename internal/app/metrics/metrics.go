package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the control-plane-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	appWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "control_plane",
			Subsystem: "apps",
			Name:      "writes_total",
			Help:      "Total number of app write attempts.",
		},
		[]string{"operation", "status"},
	)

	validationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "control_plane",
			Subsystem: "apps",
			Name:      "validation_failures_total",
			Help:      "Validation violations surfaced to callers, by rule.",
		},
		[]string{"code"},
	)

	cascadedProcesses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "control_plane",
			Subsystem: "apps",
			Name:      "cascaded_processes_total",
			Help:      "Processes forced to a new version by enable_ssh changes.",
		},
	)

	cascadeFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "control_plane",
			Subsystem: "apps",
			Name:      "cascade_failures_total",
			Help:      "Process version cascades that failed part way.",
		},
	)

	visibilityLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "control_plane",
			Subsystem: "visibility",
			Name:      "scope_lookups_total",
			Help:      "Visibility scope resolutions, by source.",
		},
		[]string{"source"},
	)
)

func init() {
	Registry.MustRegister(appWrites, validationFailures, cascadedProcesses, cascadeFailures, visibilityLookups)
}

// RecordAppWrite counts one write attempt outcome.
func RecordAppWrite(operation, status string) {
	appWrites.WithLabelValues(operation, status).Inc()
}

// RecordValidationFailure counts one surfaced violation.
func RecordValidationFailure(code string) {
	validationFailures.WithLabelValues(code).Inc()
}

// RecordCascadedProcesses counts processes moved to a new version.
func RecordCascadedProcesses(n int) {
	cascadedProcesses.Add(float64(n))
}

// RecordCascadeFailure counts one partial cascade.
func RecordCascadeFailure() {
	cascadeFailures.Inc()
}

// RecordVisibilityLookup counts one scope resolution. Source is "store" or
// "cache".
func RecordVisibilityLookup(source string) {
	visibilityLookups.WithLabelValues(source).Inc()
}

// Handler serves the registry over HTTP.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
