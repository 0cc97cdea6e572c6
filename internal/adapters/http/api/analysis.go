package api

import (
	"net/http"
	"strconv"

	"github.com/okian/soe/internal/domain/model"
)

// handleRequestAnalysis serves POST /api/snapshots/{id}/analysis. The
// analysis runs in the background; a pending record answers 202.
func (s *Server) handleRequestAnalysis(w http.ResponseWriter, r *http.Request) {
	const op = "api.request_analysis"
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))

	rec, err := s.deps.RequestAnalysis(r.Context(), r.PathValue("id"), refresh)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, analysisStatus(rec), rec)
}

// handleGetAnalysis serves GET /api/snapshots/{id}/analysis.
func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_analysis"
	rec, err := s.deps.Analysis(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func analysisStatus(rec model.AnalysisRecord) int {
	if rec.Status == model.AnalysisPending {
		return http.StatusAccepted
	}
	return http.StatusOK
}
