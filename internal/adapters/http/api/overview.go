package api

import (
	"errors"
	"math"
	"net/http"

	"github.com/okian/soe/internal/domain/scoring"
)

// handleOverview serves GET /api/overview, the data behind the dashboard.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	const op = "api.overview"
	ov, err := s.deps.Overview(r.Context())
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

type weightsResponse struct {
	scoring.Weights
	Sum        float64 `json:"sum"`
	Normalized bool    `json:"normalized"`
}

func newWeightsResponse(w scoring.Weights) weightsResponse {
	return weightsResponse{Weights: w, Sum: w.Sum(), Normalized: w.Normalized()}
}

func (s *Server) handleGetWeights(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newWeightsResponse(s.deps.Weights()))
}

// handlePutWeights serves PUT /api/weights. Weights that do not sum to 1
// are accepted; the response reports the sum.
func (s *Server) handlePutWeights(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_weights"
	var weights scoring.Weights
	if err := s.decodeJSON(w, r, op, &weights); err != nil {
		s.fail(w, r, err)
		return
	}
	for _, v := range []float64{weights.Uptime, weights.ErrorRate, weights.ResourceEfficiency, weights.Throughput} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			s.fail(w, r, WrapKind(op, ErrBadRequest, errors.New("weights must be finite")))
			return
		}
	}
	s.deps.SetWeights(r.Context(), weights)
	writeJSON(w, http.StatusOK, newWeightsResponse(weights))
}

// handleAlerts serves GET /api/alerts.
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Alerts())
}
