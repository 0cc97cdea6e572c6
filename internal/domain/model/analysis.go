package model

import (
	"time"

	"github.com/okian/soe/internal/domain/scoring"
)

// Impact grades a recommendation.
type Impact string

// Impact levels.
const (
	ImpactHigh   Impact = "High"
	ImpactMedium Impact = "Medium"
	ImpactLow    Impact = "Low"
)

// Valid reports whether i is one of the known levels.
func (i Impact) Valid() bool {
	switch i {
	case ImpactHigh, ImpactMedium, ImpactLow:
		return true
	}
	return false
}

// Advice is a single recommendation.
type Advice struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Impact      Impact `json:"impact"`
}

// Analysis is the narrative produced for a score.
type Analysis struct {
	Summary         string   `json:"summary"`
	Strengths       []string `json:"strengths"`
	Weaknesses      []string `json:"weaknesses"`
	Recommendations []Advice `json:"recommendations"`
}

// Empty returns an analysis with non-nil, empty lists.
func Empty() Analysis {
	return Analysis{Strengths: []string{}, Weaknesses: []string{}, Recommendations: []Advice{}}
}

// AnalysisStatus describes how an analysis was obtained.
type AnalysisStatus string

// Analysis statuses.
const (
	AnalysisPending      AnalysisStatus = "pending"
	AnalysisReady        AnalysisStatus = "ready"
	AnalysisUnconfigured AnalysisStatus = "unconfigured" // no AI credential
	AnalysisFailed       AnalysisStatus = "failed"       // AI service error
	AnalysisMalformed    AnalysisStatus = "malformed"    // AI reply did not parse
)

// Terminal reports whether no further work will change the record.
func (s AnalysisStatus) Terminal() bool {
	return s != AnalysisPending
}

// AnalysisRecord tracks the analysis of one snapshot.
type AnalysisRecord struct {
	SnapshotID  string         `json:"snapshotId"`
	Status      AnalysisStatus `json:"status"`
	Analysis    Analysis       `json:"analysis"`
	RequestedAt time.Time      `json:"requestedAt"`
	CompletedAt *time.Time     `json:"completedAt,omitempty"`
}

// AnalysisJob asks the worker pool to analyse one saved snapshot.
type AnalysisJob struct {
	SnapshotID  string
	Result      scoring.Result
	RequestedAt time.Time
}
