package service

import (
	"errors"

	"github.com/okian/soe/internal/domain/insight"
)

// Sentinel kinds returned by the service.
var (
	ErrNotFound     = errors.New("not found")
	ErrBackpressure = errors.New("analysis queue is full")
	ErrNotStarted   = errors.New("service not started")

	// ErrNotConfigured is returned when an operation needs the AI service and
	// no credential is configured.
	ErrNotConfigured = insight.ErrNotConfigured
)
