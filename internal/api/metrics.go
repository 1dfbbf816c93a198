package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portalgate_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)
	authzDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portalgate_authz_decisions_total",
			Help: "Authorization decisions by outcome and reason.",
		},
		[]string{"mode", "outcome", "reason"},
	)
	portalCallErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portalgate_portal_call_errors_total",
			Help: "Failed portal API calls by error code.",
		},
		[]string{"code"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, authzDecisionsTotal, portalCallErrors)
}

// MetricsHandler returns the Prometheus metrics HTTP handler.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
