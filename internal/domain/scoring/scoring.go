// Package scoring computes the System Operational Efficiency (SOE) score
// from raw operational metrics.
//
// Scoring is a total function: out-of-range or negative inputs are not
// rejected, they flow through the formulas and may produce scores outside
// the nominal 0-100 range. Only availability is clamped on both ends;
// reliability and efficiency are floored at zero, performance and the
// overall score are not clamped at all.
package scoring

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrNonFinite marks a score that is infinite or NaN and so cannot be
// encoded as JSON.
var ErrNonFinite = errors.New("score is not a finite number")

// Category formula constants.
const (
	availabilityFloorUptime = 95.0
	availabilitySlope       = 20.0

	reliabilitySlope = 20.0

	efficiencyBandLow     = 40.0
	efficiencyBandHigh    = 75.0
	efficiencyUnderBase   = 80.0
	efficiencyUnderSlope  = 1.5
	efficiencySaturSlope  = 3.0
	throughputBaselineRPS = 1000.0
	latencyBaselineMs     = 50.0
	latencySlope          = 0.5
	throughputBlend       = 0.6
	latencyBlend          = 0.4

	maxScore = 100.0
)

// Trend tags a result relative to history. The engine only emits TrendStable.
type Trend string

// Trend values.
const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// Metrics is the raw input of a score.
type Metrics struct {
	Uptime            float64 `json:"uptime" yaml:"uptime"`
	ErrorRate         float64 `json:"errorRate" yaml:"errorRate"`
	CPUUtilization    float64 `json:"cpuUtilization" yaml:"cpuUtilization"`
	MemoryUtilization float64 `json:"memoryUtilization" yaml:"memoryUtilization"`
	Throughput        float64 `json:"throughput" yaml:"throughput"`
	ResponseTime      float64 `json:"responseTime" yaml:"responseTime"`
}

// Weights combines category scores into the overall score. Weights are
// expected to sum to 1 but this is never enforced.
type Weights struct {
	Uptime             float64 `json:"uptime" yaml:"uptime"`
	ErrorRate          float64 `json:"errorRate" yaml:"errorRate"`
	ResourceEfficiency float64 `json:"resourceEfficiency" yaml:"resourceEfficiency"`
	Throughput         float64 `json:"throughput" yaml:"throughput"`
}

// DefaultWeights returns the stock weight configuration.
func DefaultWeights() Weights {
	return Weights{
		Uptime:             0.35,
		ErrorRate:          0.25,
		ResourceEfficiency: 0.20,
		Throughput:         0.20,
	}
}

// Sum returns the weight total.
func (w Weights) Sum() float64 {
	return w.Uptime + w.ErrorRate + w.ResourceEfficiency + w.Throughput
}

// Normalized reports whether the weights sum to 1 within a small tolerance.
func (w Weights) Normalized() bool {
	return math.Abs(w.Sum()-1) < 1e-9
}

// CategoryScores holds the four rounded category scores.
type CategoryScores struct {
	Availability float64 `json:"availability"`
	Reliability  float64 `json:"reliability"`
	Efficiency   float64 `json:"efficiency"`
	Performance  float64 `json:"performance"`
}

// AsMap returns the scores keyed by category name.
func (c CategoryScores) AsMap() map[string]float64 {
	return map[string]float64{
		"availability": c.Availability,
		"reliability":  c.Reliability,
		"efficiency":   c.Efficiency,
		"performance":  c.Performance,
	}
}

// Result is the output of a score computation.
type Result struct {
	Overall    float64        `json:"overallScore"`
	Categories CategoryScores `json:"categoryScores"`
	Metrics    Metrics        `json:"metrics"`
	Trend      Trend          `json:"trend"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Breakdown exposes the unrounded intermediate values of a score.
type Breakdown struct {
	Availability    float64 `json:"availability"`
	Reliability     float64 `json:"reliability"`
	Efficiency      float64 `json:"efficiency"`
	Performance     float64 `json:"performance"`
	ResourceAverage float64 `json:"resourceAverage"`
	ThroughputScore float64 `json:"throughputScore"`
	LatencyScore    float64 `json:"latencyScore"`
}

// Overall returns the unrounded weighted sum of the category scores.
func (b Breakdown) Overall(w Weights) float64 {
	return b.Availability*w.Uptime +
		b.Reliability*w.ErrorRate +
		b.Efficiency*w.ResourceEfficiency +
		b.Performance*w.Throughput
}

// Categories computes the unrounded category scores of m.
func Categories(m Metrics) Breakdown {
	availability := math.Max(0, math.Min(maxScore, (m.Uptime-availabilityFloorUptime)*availabilitySlope))

	// No upper clamp: a negative error rate scores above 100.
	reliability := math.Max(0, maxScore-m.ErrorRate*reliabilitySlope)

	avg := (m.CPUUtilization + m.MemoryUtilization) / 2
	var efficiency float64
	switch {
	case avg >= efficiencyBandLow && avg <= efficiencyBandHigh:
		efficiency = maxScore
	case avg < efficiencyBandLow:
		efficiency = efficiencyUnderBase - (efficiencyBandLow-avg)*efficiencyUnderSlope
	default:
		efficiency = maxScore - (avg-efficiencyBandHigh)*efficiencySaturSlope
	}
	efficiency = math.Max(0, efficiency)

	throughputScore := math.Min(maxScore, m.Throughput/throughputBaselineRPS*maxScore)
	latencyScore := math.Max(0, maxScore-(m.ResponseTime-latencyBaselineMs)*latencySlope)

	return Breakdown{
		Availability:    availability,
		Reliability:     reliability,
		Efficiency:      efficiency,
		Performance:     throughputScore*throughputBlend + latencyScore*latencyBlend,
		ResourceAverage: avg,
		ThroughputScore: throughputScore,
		LatencyScore:    latencyScore,
	}
}

// metricNames lists the JSON names of the Metrics fields in field order.
var metricNames = [...]string{"uptime", "errorRate", "cpuUtilization", "memoryUtilization", "throughput", "responseTime"}

// inputs records which metrics fed a non-finite value.
type inputs [len(metricNames) + 1]bool

func (in *inputs) mark(v float64, fields ...int) {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		for _, f := range fields {
			in[f] = true
		}
	}
}

func (in inputs) names() []string {
	var out []string
	for i, set := range in[:len(metricNames)] {
		if set {
			out = append(out, metricNames[i])
		}
	}
	if in[len(metricNames)] {
		out = append(out, "weights")
	}
	return out
}

// NonFinite returns the metrics behind any score in r that JSON cannot
// carry (infinite or NaN). "weights" is reported when only the overall
// score overflowed. The result is nil when every score is finite.
func (r Result) NonFinite() []string {
	var in inputs
	in.mark(r.Categories.Availability, 0)
	in.mark(r.Categories.Reliability, 1)
	in.mark(r.Categories.Efficiency, 2, 3)
	in.mark(r.Categories.Performance, 4, 5)
	if n := in.names(); len(n) > 0 {
		return n
	}
	in.mark(r.Overall, len(metricNames))
	return in.names()
}

// NonFinite is Result.NonFinite for the unrounded values.
func (b Breakdown) NonFinite() []string {
	var in inputs
	in.mark(b.Availability, 0)
	in.mark(b.Reliability, 1)
	in.mark(b.Efficiency, 2, 3)
	in.mark(b.ResourceAverage, 2, 3)
	in.mark(b.Performance, 4, 5)
	in.mark(b.ThroughputScore, 4)
	in.mark(b.LatencyScore, 5)
	return in.names()
}

// Finite returns an error wrapping ErrNonFinite that names the metrics
// behind any non-finite score in r.
func (r Result) Finite() error {
	return nonFinite(r.NonFinite())
}

// Finite is Result.Finite for the unrounded values.
func (b Breakdown) Finite() error {
	return nonFinite(b.NonFinite())
}

func nonFinite(names []string) error {
	if len(names) == 0 {
		return nil
	}
	return fmt.Errorf("%w: check %s", ErrNonFinite, strings.Join(names, ", "))
}

// Round rounds half toward positive infinity, the rounding used for every
// stored and displayed score.
func Round(x float64) float64 {
	return math.Floor(x + 0.5)
}

// Engine scores metrics with an injectable clock.
type Engine struct {
	Now func() time.Time
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

// Score computes the SOE result of m under w.
func (e Engine) Score(m Metrics, w Weights) Result {
	b := Categories(m)
	return Result{
		Overall: Round(b.Overall(w)),
		Categories: CategoryScores{
			Availability: Round(b.Availability),
			Reliability:  Round(b.Reliability),
			Efficiency:   Round(b.Efficiency),
			Performance:  Round(b.Performance),
		},
		Metrics:   m,
		Trend:     TrendStable,
		Timestamp: e.now(),
	}
}

// Score computes the SOE result of m under w using the wall clock.
func Score(m Metrics, w Weights) Result {
	return Engine{}.Score(m, w)
}

// ScoreDefault computes the SOE result of m under DefaultWeights.
func ScoreDefault(m Metrics) Result {
	return Score(m, DefaultWeights())
}
