// Package ai holds the HTTP clients for the text generation services used by
// the insight package, plus rate limiting and retry decorators.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/okian/soe/internal/domain/insight"
	"github.com/okian/soe/pkg/logger"
)

// Providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Defaults applied by New.
const (
	DefaultGeminiModel = "gemini-2.5-flash"
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultTimeout     = 30 * time.Second
)

// ErrEmptyResponse is returned when the service answers without any text.
var ErrEmptyResponse = errors.New("empty ai response")

// ErrUnknownProvider is returned by New for unsupported providers.
var ErrUnknownProvider = errors.New("unknown ai provider")

// StatusError is a non-2xx answer from the service.
type StatusError struct {
	Provider string
	Code     int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Provider, e.Code, e.Body)
}

// Temporary reports whether retrying may succeed.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Config selects and tunes a generator.
type Config struct {
	Provider          string
	APIKey            string
	Model             string
	BaseURL           string
	Timeout           time.Duration
	RequestsPerMinute int
	Burst             int
	MaxRetries        int
}

// New builds the configured generator chain: client, then retries, then the
// rate limiter in front. Without an API key the chain is insight.Unconfigured.
func New(cfg Config) (insight.Generator, error) {
	log := logger.Get().Named("ai")
	if strings.TrimSpace(cfg.APIKey) == "" {
		log.Warn(context.Background(), "no ai api key configured, insights disabled")
		return insight.Unconfigured{}, nil
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	httpClient := &http.Client{Timeout: cfg.Timeout}

	var g insight.Generator
	switch strings.ToLower(cfg.Provider) {
	case ProviderGemini, "":
		g = NewGeminiClient(cfg.APIKey, WithModel(cfg.Model), WithBaseURL(cfg.BaseURL), WithHTTPClient(httpClient))
	case ProviderOpenAI:
		g = NewOpenAIClient(cfg.APIKey, WithModel(cfg.Model), WithBaseURL(cfg.BaseURL), WithHTTPClient(httpClient))
	default:
		return nil, fmt.Errorf("%q: %w", cfg.Provider, ErrUnknownProvider)
	}

	if cfg.MaxRetries > 0 {
		g = NewRetrying(g, cfg.MaxRetries)
	}
	if cfg.RequestsPerMinute > 0 {
		g = NewLimited(g, cfg.RequestsPerMinute, cfg.Burst)
	}
	return g, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, insight.ErrNotConfigured):
		return "unconfigured"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
