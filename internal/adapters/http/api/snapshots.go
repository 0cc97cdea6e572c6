package api

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"mime"
	"net/http"
	"net/url"

	"github.com/gowebpki/jcs"

	"github.com/okian/soe/internal/domain/ingest"
	"github.com/okian/soe/internal/domain/model"
	"github.com/okian/soe/internal/domain/scoring"
)

type snapshotRequest struct {
	Name    string           `json:"name"`
	Metrics *scoring.Metrics `json:"metrics"`
}

// handleListSnapshots serves GET /api/snapshots, oldest first. The ETag is
// the SHA-256 of the canonical JSON form of the history.
func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_snapshots"
	history, err := s.deps.History(r.Context())
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	if history == nil {
		history = []model.Snapshot{}
	}

	body, err := json.Marshal(history)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	tag, err := etag(body)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	w.Header().Set("ETag", tag)
	w.Header().Set("Cache-Control", "no-cache")
	if match := r.Header.Get("If-None-Match"); match != "" && match == tag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func etag(body []byte) (string, error) {
	canonical, err := jcs.Transform(body)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return `"` + hex.EncodeToString(sum[:]) + `"`, nil
}

// handleCreateSnapshot serves POST /api/snapshots. It accepts a JSON body
// {name, metrics} or the dashboard's entry form.
func (s *Server) handleCreateSnapshot(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_snapshot"

	var draft ingest.Draft
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mt {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		values, err := s.parseForm(w, r, mt)
		if err != nil {
			s.fail(w, r, WrapKind(op, ErrBadRequest, err))
			return
		}
		d, err := ingest.ParseForm(values)
		if err != nil {
			s.fail(w, r, Wrap(op, err))
			return
		}
		draft = d
	default:
		var req snapshotRequest
		if err := s.decodeJSON(w, r, op, &req); err != nil {
			s.fail(w, r, err)
			return
		}
		if req.Metrics == nil {
			s.fail(w, r, WrapKind(op, ErrBadRequest, errMissingMetrics))
			return
		}
		draft = ingest.Draft{Name: req.Name, Metrics: *req.Metrics}
	}

	snap, err := s.deps.SaveSnapshot(r.Context(), draft.Name, draft.Metrics)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	w.Header().Set("Location", "/api/snapshots/"+snap.ID)
	writeJSON(w, http.StatusCreated, snap)
}

// parseForm reads the entry form fields from a urlencoded or multipart body.
func (s *Server) parseForm(w http.ResponseWriter, r *http.Request, mediaType string) (url.Values, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	if mediaType != "multipart/form-data" {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		return r.PostForm, nil
	}
	if err := r.ParseMultipartForm(s.maxBody); err != nil {
		return nil, err
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()
	return url.Values(r.MultipartForm.Value), nil
}

// handleGetSnapshot serves GET /api/snapshots/{id}.
func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_snapshot"
	snap, err := s.deps.Snapshot(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
