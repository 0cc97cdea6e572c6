package loadgen

import (
	"context"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/okian/soe/internal/domain/scoring"
	"github.com/okian/soe/pkg/logger"
)

// Profile ranges. Most systems are healthy, a few degraded, rare outliers.
const (
	caseHealthy  = 0
	caseBusy     = 1
	caseDegraded = 2
	caseIdle     = 3
	caseOutlier  = 4
	profileCount = 8
)

// generateSamples creates n samples with unique system names.
func generateSamples(ctx context.Context, n int, stats *Stats) []Sample {
	samples := make([]Sample, n)
	for i := range samples {
		samples[i] = Sample{
			Name:    "loadgen-" + uuid.NewString()[:8],
			Metrics: generateMetrics(),
		}
	}
	stats.SamplesGenerated = n
	logger.Get().Info(ctx, "generated samples", logger.Int("count", n))
	return samples
}

func between(lo, hi float64) float64 {
	return lo + rand.Float64()*(hi-lo)
}

// generateMetrics draws one metrics set from a weighted profile mix.
func generateMetrics() scoring.Metrics {
	switch rand.IntN(profileCount) {
	case caseBusy:
		return scoring.Metrics{
			Uptime:            between(99, 100),
			ErrorRate:         between(0.1, 1),
			CPUUtilization:    between(70, 95),
			MemoryUtilization: between(65, 90),
			Throughput:        between(1500, 4000),
			ResponseTime:      between(150, 400),
		}
	case caseDegraded:
		return scoring.Metrics{
			Uptime:            between(94, 99),
			ErrorRate:         between(1, 6),
			CPUUtilization:    between(50, 100),
			MemoryUtilization: between(50, 100),
			Throughput:        between(100, 900),
			ResponseTime:      between(300, 1500),
		}
	case caseIdle:
		return scoring.Metrics{
			Uptime:            between(99.5, 100),
			ErrorRate:         between(0, 0.2),
			CPUUtilization:    between(2, 30),
			MemoryUtilization: between(5, 35),
			Throughput:        between(10, 300),
			ResponseTime:      between(20, 100),
		}
	case caseOutlier:
		return scoring.Metrics{
			Uptime:            between(80, 100),
			ErrorRate:         between(0, 20),
			CPUUtilization:    between(0, 100),
			MemoryUtilization: between(0, 100),
			Throughput:        between(0, 10000),
			ResponseTime:      between(0, 5000),
		}
	default: // caseHealthy and the remaining weight
		return scoring.Metrics{
			Uptime:            between(99.9, 100),
			ErrorRate:         between(0, 0.1),
			CPUUtilization:    between(40, 70),
			MemoryUtilization: between(40, 75),
			Throughput:        between(800, 1500),
			ResponseTime:      between(50, 150),
		}
	}
}
