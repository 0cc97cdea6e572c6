package insight

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/okian/soe/internal/domain/model"
	"github.com/okian/soe/pkg/logger"
	"github.com/okian/soe/pkg/tracing"
)

// Estimator infers plausible metrics for a public site.
type Estimator struct {
	base
}

// NewEstimator creates an Estimator. A nil generator behaves as unconfigured.
func NewEstimator(gen Generator, opts ...Option) *Estimator {
	return &Estimator{base: newBase(gen, "estimator", opts)}
}

// NormalizeURL validates raw and adds an https scheme to bare hosts.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	host := u.Hostname()
	if host == "" || (!strings.Contains(host, ".") && host != "localhost") {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return u.String(), nil
}

// Estimate asks the generator, grounded with web search, for metrics of the
// site at raw. Errors wrap ErrInvalidURL, ErrNotConfigured or ErrMalformed,
// or are the generator's own.
func (e *Estimator) Estimate(ctx context.Context, raw string) (model.Estimate, error) {
	target, err := NormalizeURL(raw)
	if err != nil {
		return model.Estimate{}, err
	}
	ctx, span := tracing.Start(ctx, "insight.estimate", attribute.String("url", target))
	defer span.End()

	text, err := e.gen.Generate(ctx, Request{Prompt: BuildEstimatePrompt(target), Search: true})
	if err != nil {
		e.logger.Error(ctx, "url analysis failed", logger.String("url", target), logger.Error(err))
		return model.Estimate{}, fmt.Errorf("estimate %s: %w", target, err)
	}
	est, err := ParseEstimate(text)
	if err != nil {
		e.logger.Warn(ctx, "url analysis unparsable", logger.String("url", target), logger.Error(err))
		return model.Estimate{}, err
	}
	return est, nil
}
