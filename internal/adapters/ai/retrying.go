package ai

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/okian/soe/internal/domain/insight"
	"github.com/okian/soe/pkg/logger"
)

// Retrying retries transient generator failures with exponential backoff.
type Retrying struct {
	next     insight.Generator
	tries    uint
	initial  time.Duration
	maxDelay time.Duration
	log      logger.Logger
}

// NewRetrying makes up to maxRetries extra attempts after the first failure.
func NewRetrying(next insight.Generator, maxRetries int) *Retrying {
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &Retrying{
		next:     next,
		tries:    uint(maxRetries) + 1,
		initial:  500 * time.Millisecond,
		maxDelay: 5 * time.Second,
		log:      logger.Get().Named("ai"),
	}
}

// Generate implements insight.Generator.
func (r *Retrying) Generate(ctx context.Context, req insight.Request) (string, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initial
	b.MaxInterval = r.maxDelay

	op := func() (string, error) {
		text, err := r.next.Generate(ctx, req)
		if err != nil && !retryable(err) {
			return "", backoff.Permanent(err)
		}
		return text, err
	}
	notify := func(err error, wait time.Duration) {
		r.log.Warn(ctx, "ai request failed, retrying", logger.Error(err), logger.Duration("wait", wait))
	}

	return backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(r.tries),
		backoff.WithNotify(notify),
	)
}

func retryable(err error) bool {
	if errors.Is(err, insight.ErrNotConfigured) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}
