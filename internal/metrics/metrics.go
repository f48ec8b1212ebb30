// Package metrics provides Prometheus metrics for permsync.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PermissionTransitionsTotal tracks permission changes that mutated the store
	PermissionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "permsync",
			Subsystem: "permissions",
			Name:      "transitions_total",
			Help:      "Total number of permission transitions by kind and target permission",
		},
		[]string{"provider", "kind", "permission"},
	)

	// RemoteFetchesTotal tracks object fetches from remote providers
	RemoteFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "permsync",
			Subsystem: "remote",
			Name:      "fetches_total",
			Help:      "Total number of remote object fetches by outcome",
		},
		[]string{"provider", "kind", "status"},
	)

	// RemoteRequestsTotal tracks raw provider API calls
	RemoteRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "permsync",
			Subsystem: "remote",
			Name:      "requests_total",
			Help:      "Total number of provider API requests by operation and outcome",
		},
		[]string{"provider", "operation", "status"},
	)

	// WorkflowSignalsTotal tracks launches and signals sent to the workflow runtime
	WorkflowSignalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "permsync",
			Subsystem: "workflow",
			Name:      "signals_total",
			Help:      "Total number of workflow launch/stop messages by outcome",
		},
		[]string{"type", "status"},
	)

	// AncestorCacheLookupsTotal tracks memoized ancestor lookups
	AncestorCacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "permsync",
			Subsystem: "hierarchy",
			Name:      "cache_lookups_total",
			Help:      "Total number of ancestor cache lookups by result",
		},
		[]string{"result"},
	)

	// HTTPRequestsTotal tracks inbound API requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "permsync",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of API requests by route and status code",
		},
		[]string{"method", "route", "status_code"},
	)
)

// Status labels.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Handler returns the HTTP handler serving the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Outcome returns StatusSuccess for a nil error and StatusError otherwise.
func Outcome(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}
