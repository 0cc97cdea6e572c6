// Package insight turns SOE scores into AI-written narratives and estimates
// metrics for public URLs. Every AI failure degrades to a placeholder; the
// score itself is never affected.
package insight

import (
	"context"
	"errors"
)

// Sentinel errors.
var (
	ErrNotConfigured = errors.New("ai generator not configured")
	ErrMalformed     = errors.New("malformed ai response")
	ErrInvalidURL    = errors.New("invalid url")
)

// Placeholder texts shown when the AI service cannot be used.
const (
	UnconfiguredSummary = "API Key not configured. Unable to generate AI insights. Please configure your environment variables."
	ServiceErrorSummary = "AI analysis unavailable due to a service error."
)

// Request is one generation call.
type Request struct {
	Prompt string
	// Search grounds the answer with web search when the provider supports it.
	Search bool
}

// Generator is the external (prompt) -> text service.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// Unconfigured is a Generator that always reports ErrNotConfigured.
type Unconfigured struct{}

// Generate implements Generator.
func (Unconfigured) Generate(context.Context, Request) (string, error) {
	return "", ErrNotConfigured
}
