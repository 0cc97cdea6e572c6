package repository

import (
	"time"

	"github.com/okian/soe/internal/domain/model"
	"github.com/okian/soe/internal/domain/scoring"
)

// FallbackName is the system name used by the built-in sample history.
const FallbackName = "Production-US-East"

// Fallback returns the sample history shown when nothing is stored yet:
// two snapshots of one system taken two days and one day before now.
// Their scores are fixed sample values, not recomputed from the metrics.
func Fallback(now time.Time) []model.Snapshot {
	now = now.UTC()
	older := now.Add(-48 * time.Hour)
	newer := now.Add(-24 * time.Hour)

	olderMetrics := scoring.Metrics{
		Uptime:            99.99,
		ErrorRate:         0.01,
		CPUUtilization:    45,
		MemoryUtilization: 60,
		Throughput:        1200,
		ResponseTime:      120,
	}
	newerMetrics := scoring.Metrics{
		Uptime:            99.5,
		ErrorRate:         0.5,
		CPUUtilization:    75,
		MemoryUtilization: 80,
		Throughput:        1150,
		ResponseTime:      200,
	}

	return []model.Snapshot{
		{
			ID:        "1",
			Name:      FallbackName,
			Timestamp: older,
			Metrics:   olderMetrics,
			Score: scoring.Result{
				Overall:    98,
				Categories: scoring.CategoryScores{Availability: 100, Reliability: 99, Efficiency: 95, Performance: 98},
				Metrics:    olderMetrics,
				Trend:      scoring.TrendStable,
				Timestamp:  older,
			},
		},
		{
			ID:        "2",
			Name:      FallbackName,
			Timestamp: newer,
			Metrics:   newerMetrics,
			Score: scoring.Result{
				Overall:    88,
				Categories: scoring.CategoryScores{Availability: 95, Reliability: 90, Efficiency: 80, Performance: 87},
				Metrics:    newerMetrics,
				Trend:      scoring.TrendDown,
				Timestamp:  newer,
			},
		},
	}
}
