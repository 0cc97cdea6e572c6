// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	service "github.com/okian/soe/internal/app"
	"github.com/okian/soe/internal/domain/alerts"
	"github.com/okian/soe/internal/domain/model"
	"github.com/okian/soe/internal/domain/scoring"
	"github.com/okian/soe/internal/domain/types"
	"github.com/okian/soe/pkg/logger"
)

const (
	defaultMaxBodyBytes = 1 << 20
	defaultAIRate       = 10
	defaultAIBurst      = 5
)

// Dependencies required by HTTP handlers. *service.Service satisfies it.
type Dependencies interface {
	Score(m scoring.Metrics, w *scoring.Weights) scoring.Result
	Weights() scoring.Weights
	SetWeights(ctx context.Context, w scoring.Weights)

	SaveSnapshot(ctx context.Context, name string, m scoring.Metrics) (model.Snapshot, error)
	History(ctx context.Context) ([]model.Snapshot, error)
	Snapshot(ctx context.Context, id string) (model.Snapshot, error)
	Overview(ctx context.Context) (types.Overview, error)

	RequestAnalysis(ctx context.Context, id string, refresh bool) (model.AnalysisRecord, error)
	Analysis(ctx context.Context, id string) (model.AnalysisRecord, error)

	Ingest(ctx context.Context, contentType, filename string, body io.Reader, save bool) (service.IngestResult, error)
	EstimateFromURL(ctx context.Context, url string) (model.Estimate, error)

	Alerts() []alerts.Alert
}

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// Option configures a Server.
type Option func(*Server)

// WithMaxBodyBytes bounds request bodies, uploads included.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// WithAIRateLimit sets the per-client limit of AI-backed endpoints in
// requests per minute.
func WithAIRateLimit(perMinute, burst int) Option {
	return func(s *Server) {
		if perMinute > 0 {
			s.aiRate = perMinute
		}
		if burst > 0 {
			s.aiBurst = burst
		}
	}
}

// WithLiveUpdates mounts h at /ws.
func WithLiveUpdates(h http.Handler) Option {
	return func(s *Server) {
		s.live = h
	}
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps  Dependencies
	stats StatsProvider
	live  http.Handler

	maxBody int64
	aiRate  int
	aiBurst int
	limiter *RateLimiter

	logger logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:    deps,
		stats:   statsProvider,
		maxBody: defaultMaxBodyBytes,
		aiRate:  defaultAIRate,
		aiBurst: defaultAIBurst,
		logger:  logger.Get().Named("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.limiter = NewRateLimiter(s.aiRate, s.aiBurst)
	return s
}

// Register attaches all HTTP routes to mux. The rate limiter's cleanup loop
// runs until ctx is done.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	go s.limiter.Run(ctx)

	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.handleHealth, "healthz"))
	mux.Handle("GET /metrics", metricsHandler())
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.handleStats, "stats"))
	mux.HandleFunc("GET /dashboard", s.handleDashboard)

	mux.HandleFunc("POST /api/score", MetricsMiddleware(s.handleScore, "score"))
	mux.HandleFunc("GET /api/weights", MetricsMiddleware(s.handleGetWeights, "weights"))
	mux.HandleFunc("PUT /api/weights", MetricsMiddleware(s.handlePutWeights, "weights"))
	mux.HandleFunc("GET /api/overview", MetricsMiddleware(s.handleOverview, "overview"))
	mux.HandleFunc("GET /api/alerts", MetricsMiddleware(s.handleAlerts, "alerts"))

	mux.HandleFunc("GET /api/snapshots", MetricsMiddleware(s.handleListSnapshots, "snapshots"))
	mux.HandleFunc("POST /api/snapshots", MetricsMiddleware(s.handleCreateSnapshot, "snapshots"))
	mux.HandleFunc("GET /api/snapshots/{id}", MetricsMiddleware(s.handleGetSnapshot, "snapshot"))

	mux.HandleFunc("POST /api/snapshots/{id}/analysis",
		MetricsMiddleware(s.limiter.Limit(s.handleRequestAnalysis), "analysis"))
	mux.HandleFunc("GET /api/snapshots/{id}/analysis", MetricsMiddleware(s.handleGetAnalysis, "analysis"))

	mux.HandleFunc("POST /api/ingest", MetricsMiddleware(s.handleIngest, "ingest"))
	mux.HandleFunc("POST /api/ingest/url",
		MetricsMiddleware(s.limiter.Limit(s.handleIngestURL), "ingest_url"))

	if s.live != nil {
		mux.Handle("GET /ws", s.live)
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeJSON encodes v before committing the status so an encode failure
// still reaches the client as an error document.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		status = http.StatusInternalServerError
		buf.Reset()
		_ = json.NewEncoder(&buf).Encode(errorResponse{Code: "internal_error", Message: "encode response: " + err.Error()})
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// fail classifies err and writes it. Server-side failures are logged.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed",
			logger.String("path", r.URL.Path),
			logger.Int("status", status),
			logger.Error(err))
	}
	writeError(w, status, code, err)
}

// decodeJSON reads a single JSON document from the request body.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, op string, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err := dec.Decode(v); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}
