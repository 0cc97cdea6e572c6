package loadgen

import (
	"time"

	"github.com/okian/soe/internal/domain/scoring"
)

// Config holds configuration for a load run.
type Config struct {
	BaseURL    string        // Base URL of the service
	NumSamples int           // Number of snapshots to submit
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	OutputFile string        // Output file for generated samples
	Verbose    bool          // Enable verbose logging
}

// Sample is one generated metrics set and what the service answered for it.
type Sample struct {
	Name    string          `json:"name"`
	Metrics scoring.Metrics `json:"metrics"`

	ID      string                 `json:"id,omitempty"`
	Overall float64                `json:"overallScore,omitempty"`
	Scores  scoring.CategoryScores `json:"categoryScores"`
	Status  int                    `json:"-"`
}

// Stats holds run statistics.
type Stats struct {
	SamplesGenerated int
	SamplesSubmitted int
	SamplesSaved     int
	SamplesFailed    int
	Verified         int
	Mismatches       int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
