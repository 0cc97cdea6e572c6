package ai

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/okian/soe/internal/domain/insight"
)

// Limited throttles calls to the wrapped generator. Callers block until a
// token is available or their context ends.
type Limited struct {
	next    insight.Generator
	limiter *rate.Limiter
}

// NewLimited allows perMinute calls per minute with the given burst.
func NewLimited(next insight.Generator, perMinute, burst int) *Limited {
	if burst <= 0 {
		burst = 1
	}
	return &Limited{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60), burst),
	}
}

// Generate implements insight.Generator.
func (l *Limited) Generate(ctx context.Context, r insight.Request) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("ai rate limit: %w", err)
	}
	return l.next.Generate(ctx, r)
}
