// Package loadgen drives a running SOE service with generated snapshots and
// checks that every stored score matches a local recomputation.
package loadgen

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/soe/pkg/logger"
)

// Run executes a complete load run.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("loadgen")

	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	log.Info(ctx, "starting soe load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("samples", cfg.NumSamples),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout))

	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)
	if err := client.getJSON(ctx, "/healthz", nil); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	samples := generateSamples(ctx, cfg.NumSamples, stats)
	submitSamples(ctx, cfg, samples, stats)

	verifyErr := verifySamples(ctx, cfg, samples, stats)

	if cfg.OutputFile != "" {
		if err := saveSamples(ctx, cfg.OutputFile, samples); err != nil {
			log.Warn(ctx, "failed to save samples to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	if verifyErr != nil {
		return stats, fmt.Errorf("result verification failed: %w", verifyErr)
	}
	if stats.SamplesFailed > 0 {
		return stats, fmt.Errorf("%d of %d submissions failed", stats.SamplesFailed, stats.SamplesSubmitted)
	}
	return stats, nil
}

// saveSamples writes the generated samples and their scores as JSON.
func saveSamples(ctx context.Context, filename string, samples []Sample) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(samples, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return err
	}
	logger.Get().Info(ctx, "samples saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(stats *Stats) {
	var successRate, perSecond float64
	if stats.SamplesSubmitted > 0 {
		successRate = float64(stats.SamplesSaved) / float64(stats.SamplesSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		perSecond = float64(stats.SamplesSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("samplesGenerated", stats.SamplesGenerated),
		logger.Int("samplesSubmitted", stats.SamplesSubmitted),
		logger.Int("samplesSaved", stats.SamplesSaved),
		logger.Int("samplesFailed", stats.SamplesFailed),
		logger.Int("verified", stats.Verified),
		logger.Int("mismatches", stats.Mismatches),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("samplesPerSecond", perSecond))
}
