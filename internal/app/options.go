package service

import (
	"time"

	"github.com/okian/soe/internal/adapters/repository"
	"github.com/okian/soe/internal/domain/alerts"
	"github.com/okian/soe/internal/domain/insight"
	"github.com/okian/soe/internal/domain/scoring"
	"github.com/okian/soe/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of analysis workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of pending analysis jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize bounds how many in-flight analysis requests are tracked.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithHistoryPoints sets how many snapshots the overview chart shows.
func WithHistoryPoints(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historyPoints = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStore sets the snapshot store. Defaults to an in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithGenerator sets the AI text generator. Defaults to unconfigured.
func WithGenerator(gen insight.Generator) Option {
	return func(s *Service) {
		if gen != nil {
			s.gen = gen
		}
	}
}

// WithAlerts sets the alert engine evaluated on every saved snapshot.
func WithAlerts(engine *alerts.Engine) Option {
	return func(s *Service) {
		if engine != nil {
			s.alerts = engine
		}
	}
}

// WithPublisher sets the sink for live dashboard events.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithWeights sets the initial weight configuration.
func WithWeights(w scoring.Weights) Option {
	return func(s *Service) {
		s.initialWeights = w
	}
}

// WithClock overrides the wall clock used for scoring and analysis timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
