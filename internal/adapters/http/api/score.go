package api

import (
	"net/http"
	"strconv"

	"github.com/okian/soe/internal/domain/scoring"
)

type scoreRequest struct {
	Metrics *scoring.Metrics `json:"metrics"`
	Weights *scoring.Weights `json:"weights,omitempty"`
}

type scoreResponse struct {
	scoring.Result
	Breakdown *scoring.Breakdown `json:"breakdown,omitempty"`
}

// handleScore serves POST /api/score. The result is not stored.
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.score"
	var req scoreRequest
	if err := s.decodeJSON(w, r, op, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.Metrics == nil {
		s.fail(w, r, WrapKind(op, ErrBadRequest, errMissingMetrics))
		return
	}

	resp := scoreResponse{Result: s.deps.Score(*req.Metrics, req.Weights)}
	if err := resp.Finite(); err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	if detail, _ := strconv.ParseBool(r.URL.Query().Get("detail")); detail {
		b := scoring.Categories(*req.Metrics)
		if err := b.Finite(); err != nil {
			s.fail(w, r, Wrap(op, err))
			return
		}
		resp.Breakdown = &b
	}
	writeJSON(w, http.StatusOK, resp)
}
