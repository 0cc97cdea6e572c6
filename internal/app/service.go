// Package service is the application facade behind the HTTP API: it scores
// metrics, keeps the snapshot history, runs AI analysis in the background
// and evaluates alert rules.
package service

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/soe/internal/adapters/mq/queue"
	"github.com/okian/soe/internal/adapters/mq/worker"
	"github.com/okian/soe/internal/adapters/repository"
	"github.com/okian/soe/internal/domain/alerts"
	"github.com/okian/soe/internal/domain/dedupe"
	"github.com/okian/soe/internal/domain/insight"
	"github.com/okian/soe/internal/domain/model"
	"github.com/okian/soe/internal/domain/scoring"
	"github.com/okian/soe/internal/domain/types"
	"github.com/okian/soe/pkg/logger"
	"github.com/okian/soe/pkg/metrics"
)

// Service implements the API dependencies for the SOE dashboard.
type Service struct {
	mu sync.RWMutex

	store     repository.Store
	gen       insight.Generator
	analyzer  *insight.Analyzer
	estimator *insight.Estimator
	alerts    *alerts.Engine
	publisher Publisher
	deduper   dedupe.Deduper
	queue     *queue.InMemoryQueue
	pool      *worker.Pool

	scorer         scoring.Engine
	initialWeights scoring.Weights
	weights        atomic.Pointer[scoring.Weights]

	analysesMu sync.RWMutex
	analyses   map[string]model.AnalysisRecord

	workerCount   int
	queueSize     int
	dedupeSize    int
	historyPoints int
	now           func() time.Time

	started bool
	logger  logger.Logger
}

// New constructs a Service. Components are usable immediately; Start only
// launches the analysis workers.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:    min(runtime.NumCPU(), 4),
		queueSize:      256,
		dedupeSize:     10000,
		historyPoints:  types.DefaultChartPoints,
		initialWeights: scoring.DefaultWeights(),
		gen:            insight.Unconfigured{},
		publisher:      nopPublisher{},
		analyses:       make(map[string]model.AnalysisRecord),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewBlobStore(repository.NewMemoryBlob(), repository.WithClock(s.now))
	}

	s.scorer = scoring.Engine{Now: s.now}
	w := s.initialWeights
	s.weights.Store(&w)
	if !w.Normalized() {
		s.logger.Warn(context.Background(), "weights do not sum to 1, overall scores may leave the 0-100 range",
			logger.Float64("sum", w.Sum()))
	}

	s.analyzer = insight.NewAnalyzer(s.gen, insight.WithClock(s.now))
	s.estimator = insight.NewEstimator(s.gen, insight.WithClock(s.now))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.analyzer, s)
	return s
}

// Start launches the analysis worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting soe service...")
	s.pool.Start(context.WithoutCancel(ctx))
	s.started = true
	s.logger.Info(ctx, "soe service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Bool("aiConfigured", s.AIConfigured()),
	)
	return nil
}

// Stop drains pending analyses, waits for webhook deliveries and closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping soe service...")

	if err := s.pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool did not drain", logger.Error(err))
	}
	if s.alerts != nil {
		s.alerts.Wait()
	}
	if closer, ok := s.store.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			s.logger.Error(ctx, "error closing store", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "soe service stopped")
}

// AIConfigured reports whether an AI credential is set.
func (s *Service) AIConfigured() bool {
	_, unconfigured := s.gen.(insight.Unconfigured)
	return !unconfigured
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	ctx := context.Background()
	queueLen := s.queue.Len(ctx)

	s.analysesMu.RLock()
	analyses := len(s.analyses)
	s.analysesMu.RUnlock()

	metrics.UpdateQueueSize(queueLen)
	metrics.UpdateWorkerCount(s.pool.Size())

	return map[string]interface{}{
		"started":           started,
		"workerCount":       s.pool.Size(),
		"queueSize":         s.queueSize,
		"queueLength":       queueLen,
		"dedupeSize":        s.dedupeSize,
		"analysesInFlight":  s.deduper.Size(),
		"analysesStored":    analyses,
		"analysesProcessed": s.pool.Processed(),
		"aiConfigured":      s.AIConfigured(),
		"weights":           s.Weights(),
	}
}
