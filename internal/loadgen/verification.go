package loadgen

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/okian/soe/internal/domain/scoring"
	"github.com/okian/soe/pkg/logger"
)

// ErrMismatch reports stored scores that disagree with a local recomputation.
var ErrMismatch = errors.New("score mismatch")

// verifySamples recomputes every saved sample locally with the service's
// current weights and compares it with what the service stored. Each stored
// snapshot is also read back by id.
func verifySamples(ctx context.Context, cfg *Config, samples []Sample, stats *Stats) error {
	log := logger.Get().Named("loadgen")
	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)

	var w scoring.Weights
	if err := client.getJSON(ctx, "/api/weights", &w); err != nil {
		return fmt.Errorf("fetch weights: %w", err)
	}

	for i := range samples {
		s := &samples[i]
		if s.ID == "" {
			continue
		}
		want := scoring.Score(s.Metrics, w)

		var stored snapshotBody
		if err := client.getJSON(ctx, "/api/snapshots/"+s.ID, &stored); err != nil {
			stats.Mismatches++
			log.Warn(ctx, "snapshot not readable", logger.String("id", s.ID), logger.Error(err))
			continue
		}

		stats.Verified++
		if stored.Score.Overall != want.Overall || stored.Score.Categories != want.Categories || s.Overall != want.Overall {
			stats.Mismatches++
			log.Warn(ctx, "stored score differs from local score",
				logger.String("id", s.ID),
				logger.Float64("stored", stored.Score.Overall),
				logger.Float64("expected", want.Overall))
		}
	}

	displayTopSystems(samples, cfg.Verbose)

	if stats.Mismatches > 0 {
		return fmt.Errorf("%d of %d snapshots: %w", stats.Mismatches, stats.Verified, ErrMismatch)
	}
	log.Info(ctx, "result verification completed", logger.Int("verified", stats.Verified))
	return nil
}

// displayTopSystems logs the best-scoring samples.
func displayTopSystems(samples []Sample, verbose bool) {
	saved := make([]Sample, 0, len(samples))
	for _, s := range samples {
		if s.ID != "" {
			saved = append(saved, s)
		}
	}
	if len(saved) == 0 {
		return
	}
	sort.Slice(saved, func(i, j int) bool { return saved[i].Overall > saved[j].Overall })

	log := logger.Get().Named("loadgen")
	topN := min(10, len(saved))
	for i := range topN {
		log.Info(context.Background(), "top system",
			logger.Int("rank", i+1),
			logger.String("name", saved[i].Name),
			logger.Float64("overall", saved[i].Overall))
	}

	if verbose {
		log.Info(context.Background(), "score statistics",
			logger.Float64("average", averageScore(saved)),
			logger.Float64("maximum", saved[0].Overall),
			logger.Float64("minimum", saved[len(saved)-1].Overall))
	}
}

func averageScore(samples []Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		sum += s.Overall
	}
	return sum / float64(len(samples))
}
