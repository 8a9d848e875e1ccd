// Package middleware provides the HTTP middleware shared by the match
// services: request IDs, Prometheus instrumentation and request timeouts.
package middleware

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/pkg/metrics"
)

// Metrics instruments next with the HTTP collectors of m. Requests are
// labelled by route so that run IDs do not each get their own series.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		routed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := prometheus.Labels{"path": routeLabel(r.URL.Path)}
			h := promhttp.InstrumentHandlerCounter(
				m.HTTPRequestsTotal.MustCurryWith(route),
				promhttp.InstrumentHandlerDuration(m.HTTPRequestDuration.MustCurryWith(route), next),
			)
			h.ServeHTTP(w, r)
		})
		return promhttp.InstrumentHandlerInFlight(m.HTTPRequestsInFlight, routed)
	}
}

// routeLabel collapses the variable segment of /api/v1/runs/{id}.
func routeLabel(path string) string {
	const runs = "/api/v1/runs/"
	if rest, ok := strings.CutPrefix(path, runs); ok && rest != "" {
		return runs + "{id}"
	}
	return path
}
