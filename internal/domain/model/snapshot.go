// Package model contains domain models passed between layers.
package model

import (
	"time"

	"github.com/okian/soe/internal/domain/scoring"
)

// Snapshot is a named, timestamped pairing of raw metrics and their score.
// Snapshots are append-only: once saved they are never mutated or deleted.
type Snapshot struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Timestamp time.Time       `json:"timestamp"` // save instant, not metric time
	Metrics   scoring.Metrics `json:"metrics"`
	Score     scoring.Result  `json:"score"`
}

// Estimate is a metrics record inferred from a public URL.
type Estimate struct {
	Name    string          `json:"name"`
	Summary string          `json:"summary"`
	Metrics scoring.Metrics `json:"metrics"`
}
