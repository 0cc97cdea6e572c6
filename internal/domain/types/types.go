// Package types contains read shapes served to the dashboard.
package types

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/okian/soe/internal/domain/model"
	"github.com/okian/soe/internal/domain/scoring"
)

// DefaultChartPoints is the number of trailing snapshots charted.
const DefaultChartPoints = 10

// Band is the colour band of an overall score.
type Band string

// Bands.
const (
	BandSuccess Band = "success"
	BandAccent  Band = "accent"
	BandDanger  Band = "danger"
)

// BandFor maps an overall score to its display band.
func BandFor(overall float64) Band {
	switch {
	case overall > 90:
		return BandSuccess
	case overall > 75:
		return BandAccent
	default:
		return BandDanger
	}
}

// KPI is one headline card.
type KPI struct {
	Title   string  `json:"title"`
	Value   float64 `json:"value"`
	Unit    string  `json:"unit"`
	Subtext string  `json:"subtext"`
}

// ChartPoint is one point of the score trend chart.
type ChartPoint struct {
	Label      string    `json:"name"`
	Timestamp  time.Time `json:"timestamp"`
	Score      float64   `json:"score"`
	Uptime     float64   `json:"uptime"`
	Throughput float64   `json:"throughput"`
}

// CategoryBar is one bar of the category breakdown.
type CategoryBar struct {
	Name  string  `json:"name"`
	Value float64 `json:"val"`
}

// Overview is everything the dashboard renders for the current snapshot.
type Overview struct {
	Current     *model.Snapshot `json:"current"`
	Band        Band            `json:"band,omitempty"`
	KPIs        []KPI           `json:"kpis"`
	Chart       []ChartPoint    `json:"chart"`
	Categories  []CategoryBar   `json:"categories"`
	HistorySize int             `json:"historySize"`
}

// BuildOverview derives the dashboard view from history. The current
// snapshot is the last one; points bounds the chart length.
func BuildOverview(history []model.Snapshot, points int) Overview {
	if points <= 0 {
		points = DefaultChartPoints
	}
	ov := Overview{
		KPIs:        []KPI{},
		Chart:       ChartFor(history, points),
		Categories:  []CategoryBar{},
		HistorySize: len(history),
	}
	if len(history) == 0 {
		return ov
	}

	current := history[len(history)-1]
	ov.Current = &current
	ov.Band = BandFor(current.Score.Overall)
	ov.KPIs = KPIsFor(current.Metrics)
	c := current.Score.Categories
	ov.Categories = []CategoryBar{
		{Name: "Avail", Value: c.Availability},
		{Name: "Reli", Value: c.Reliability},
		{Name: "Eff", Value: c.Efficiency},
		{Name: "Perf", Value: c.Performance},
	}
	return ov
}

// ChartFor returns the trailing points of history, oldest first.
func ChartFor(history []model.Snapshot, points int) []ChartPoint {
	start := 0
	if len(history) > points {
		start = len(history) - points
	}
	out := make([]ChartPoint, 0, len(history)-start)
	for _, s := range history[start:] {
		out = append(out, ChartPoint{
			Label:      s.Timestamp.UTC().Format("2006-01-02"),
			Timestamp:  s.Timestamp,
			Score:      s.Score.Overall,
			Uptime:     s.Metrics.Uptime,
			Throughput: s.Metrics.Throughput,
		})
	}
	return out
}

// KPIsFor builds the four headline cards of m.
func KPIsFor(m scoring.Metrics) []KPI {
	return []KPI{
		{Title: "Availability", Value: m.Uptime, Unit: "%", Subtext: "Target: 99.99%"},
		{
			Title:   "Reliability",
			Value:   math.Round((100-m.ErrorRate)*100) / 100,
			Unit:    "%",
			Subtext: fmt.Sprintf("Error Rate: %s%%", num(m.ErrorRate)),
		},
		{
			Title:   "Resource Eff.",
			Value:   scoring.Round((m.CPUUtilization + m.MemoryUtilization) / 2),
			Unit:    "%",
			Subtext: fmt.Sprintf("CPU: %s%% | MEM: %s%%", num(m.CPUUtilization), num(m.MemoryUtilization)),
		},
		{
			Title:   "Performance",
			Value:   m.Throughput,
			Unit:    "rps",
			Subtext: fmt.Sprintf("Latency: %sms", num(m.ResponseTime)),
		},
	}
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
