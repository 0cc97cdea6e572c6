package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/okian/soe/internal/adapters/ai"
	"github.com/okian/soe/internal/adapters/mq/queue"
	service "github.com/okian/soe/internal/app"
	"github.com/okian/soe/internal/domain/ingest"
	"github.com/okian/soe/internal/domain/insight"
	"github.com/okian/soe/internal/domain/scoring"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrUnavailable  = errors.New("unavailable")

	errMissingMetrics = errors.New("missing metrics")
	errMissingURL     = errors.New("missing url")
)

// Error carries the failing handler operation and an error kind that can be
// matched with errors.Is.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil && e.Kind != nil:
		return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
	case e.Err != nil:
		return e.Op + ": " + e.Err.Error()
	case e.Kind != nil:
		return e.Op + ": " + e.Kind.Error()
	default:
		return e.Op
	}
}

func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// Wrap annotates err with op.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// NewKind returns an error of kind raised by op.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// WrapKind annotates err with op and kind.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// classify maps an error from the service layer to a status and error code.
func classify(err error) (int, string) {
	var status *ai.StatusError
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, ingest.ErrInvalidField),
		errors.Is(err, ingest.ErrNoMetrics),
		errors.Is(err, insight.ErrInvalidURL):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, scoring.ErrNonFinite):
		return http.StatusUnprocessableEntity, "unrepresentable_score"
	case errors.Is(err, ingest.ErrUnsupported):
		return http.StatusUnsupportedMediaType, "unsupported_format"
	case errors.Is(err, ErrNotFound), errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, ErrBackpressure), errors.Is(err, service.ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, insight.ErrNotConfigured):
		return http.StatusServiceUnavailable, "ai_not_configured"
	case errors.Is(err, ErrUnavailable), errors.Is(err, queue.ErrStopped):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, insight.ErrMalformed), errors.As(err, &status):
		return http.StatusBadGateway, "ai_error"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
