package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/okian/soe/internal/adapters/repository"
	"github.com/okian/soe/internal/domain/alerts"
	"github.com/okian/soe/internal/domain/ingest"
	"github.com/okian/soe/internal/domain/model"
	"github.com/okian/soe/internal/domain/scoring"
	"github.com/okian/soe/internal/domain/types"
	"github.com/okian/soe/pkg/logger"
	"github.com/okian/soe/pkg/metrics"
)

// Score computes a result for m. A nil w uses the current weights. Score is
// stateless and never fails.
func (s *Service) Score(m scoring.Metrics, w *scoring.Weights) scoring.Result {
	start := time.Now()
	weights := s.Weights()
	if w != nil {
		weights = *w
	}
	res := s.scorer.Score(m, weights)
	metrics.RecordScoreComputed(float64(time.Since(start).Microseconds()) / 1000)
	return res
}

// Weights returns the current weight configuration.
func (s *Service) Weights() scoring.Weights {
	return *s.weights.Load()
}

// SetWeights replaces the weights used for new scores. Weights that do not
// sum to 1 are accepted with a warning.
func (s *Service) SetWeights(ctx context.Context, w scoring.Weights) {
	s.weights.Store(&w)
	if !w.Normalized() {
		s.logger.Warn(ctx, "weights do not sum to 1, overall scores may leave the 0-100 range",
			logger.Float64("sum", w.Sum()))
	}
	s.logger.Info(ctx, "weights updated",
		logger.Float64("uptime", w.Uptime),
		logger.Float64("errorRate", w.ErrorRate),
		logger.Float64("resourceEfficiency", w.ResourceEfficiency),
		logger.Float64("throughput", w.Throughput))
	s.publisher.Publish(ctx, EventWeightsUpdated, w)
}

// SaveSnapshot scores m with the current weights and appends it to history.
// A blank name falls back to the default snapshot name.
func (s *Service) SaveSnapshot(ctx context.Context, name string, m scoring.Metrics) (model.Snapshot, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = ingest.DefaultName
	}

	res := s.Score(m, nil)
	if err := res.Finite(); err != nil {
		return model.Snapshot{}, fmt.Errorf("save snapshot %q: %w", name, err)
	}
	snap, err := s.store.Append(ctx, name, m, res)
	if err != nil {
		s.logger.Error(ctx, "failed to save snapshot", logger.String("name", name), logger.Error(err))
		return model.Snapshot{}, fmt.Errorf("save snapshot %q: %w", name, err)
	}

	metrics.UpdateSnapshotScores(snap.Name, snap.Score.Overall, snap.Score.Categories.AsMap())
	s.logger.Info(ctx, "snapshot saved",
		logger.String("id", snap.ID),
		logger.String("name", snap.Name),
		logger.Float64("overall", snap.Score.Overall))

	s.publisher.Publish(ctx, EventSnapshotSaved, snap)
	if s.alerts != nil {
		s.alerts.Evaluate(ctx, snap)
	}
	return snap, nil
}

// History returns every snapshot, oldest first.
func (s *Service) History(ctx context.Context) ([]model.Snapshot, error) {
	return s.store.LoadAll(ctx)
}

// Snapshot returns one snapshot by id.
func (s *Service) Snapshot(ctx context.Context, id string) (model.Snapshot, error) {
	snap, err := s.store.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Snapshot{}, fmt.Errorf("snapshot %q: %w", id, ErrNotFound)
	}
	return snap, err
}

// Latest returns the most recent snapshot.
func (s *Service) Latest(ctx context.Context) (model.Snapshot, error) {
	history, err := s.History(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}
	if len(history) == 0 {
		return model.Snapshot{}, fmt.Errorf("history is empty: %w", ErrNotFound)
	}
	return history[len(history)-1], nil
}

// Overview builds the dashboard view of the current history.
func (s *Service) Overview(ctx context.Context) (types.Overview, error) {
	history, err := s.History(ctx)
	if err != nil {
		return types.Overview{}, err
	}
	return types.BuildOverview(history, s.historyPoints), nil
}

// Alerts returns firing and recently resolved alerts, newest first.
func (s *Service) Alerts() []alerts.Alert {
	if s.alerts == nil {
		return []alerts.Alert{}
	}
	return s.alerts.Active()
}
