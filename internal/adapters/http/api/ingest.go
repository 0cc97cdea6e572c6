package api

import (
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
)

const uploadField = "file"

type urlRequest struct {
	URL string `json:"url"`
}

// handleIngest serves POST /api/ingest. The body is either a multipart
// upload in the "file" field or a raw document whose format follows the
// Content-Type. ?save=true stores the parsed snapshot; otherwise the
// document is only scored.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	const op = "api.ingest"
	save, _ := strconv.ParseBool(r.URL.Query().Get("save"))
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)

	var (
		body        io.Reader = r.Body
		contentType           = r.Header.Get("Content-Type")
		filename              = r.URL.Query().Get("filename")
	)
	if mt, _, _ := mime.ParseMediaType(contentType); mt == "multipart/form-data" {
		file, header, err := r.FormFile(uploadField)
		if err != nil {
			s.fail(w, r, WrapKind(op, ErrBadRequest, err))
			return
		}
		defer file.Close()
		body = file
		filename = header.Filename
		contentType = header.Header.Get("Content-Type")
	}

	res, err := s.deps.Ingest(r.Context(), contentType, filename, body, save)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	status := http.StatusOK
	if res.Snapshot != nil {
		status = http.StatusCreated
	}
	writeJSON(w, status, res)
}

// handleIngestURL serves POST /api/ingest/url: the AI estimates metrics for
// a public site. Nothing is stored.
func (s *Server) handleIngestURL(w http.ResponseWriter, r *http.Request) {
	const op = "api.ingest_url"
	var req urlRequest
	if err := s.decodeJSON(w, r, op, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		s.fail(w, r, WrapKind(op, ErrBadRequest, errMissingURL))
		return
	}

	est, err := s.deps.EstimateFromURL(r.Context(), req.URL)
	if err != nil {
		s.fail(w, r, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, est)
}
