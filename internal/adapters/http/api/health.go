package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/soe/pkg/metrics"
)

func metricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}

// handleHealth serves GET /healthz. Clients asking for Prometheus text get
// the metrics exposition; everyone else gets a JSON status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	accept := r.Header.Get("Accept")
	if containsAny(accept, "application/openmetrics-text", "text/plain") {
		metricsHandler().ServeHTTP(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
