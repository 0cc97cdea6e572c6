package insight

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/okian/soe/internal/domain/model"
	"github.com/okian/soe/internal/domain/scoring"
	"github.com/okian/soe/pkg/logger"
	"github.com/okian/soe/pkg/metrics"
	"github.com/okian/soe/pkg/tracing"
)

// Option configures an Analyzer or Estimator.
type Option func(*base)

type base struct {
	gen    Generator
	now    func() time.Time
	logger logger.Logger
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(b *base) {
		if now != nil {
			b.now = now
		}
	}
}

func newBase(gen Generator, name string, opts []Option) base {
	if gen == nil {
		gen = Unconfigured{}
	}
	b := base{gen: gen, now: time.Now, logger: logger.Get().Named(name)}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// Analyzer produces narratives for scores.
type Analyzer struct {
	base
}

// NewAnalyzer creates an Analyzer. A nil generator behaves as unconfigured.
func NewAnalyzer(gen Generator, opts ...Option) *Analyzer {
	return &Analyzer{base: newBase(gen, "insight", opts)}
}

// ServiceErrorAnalysis is the analysis shown when the AI service fails.
func ServiceErrorAnalysis() model.Analysis {
	a := model.Empty()
	a.Summary = ServiceErrorSummary
	a.Recommendations = []model.Advice{{
		Title:       "Check Connection",
		Description: "Ensure API key is valid",
		Impact:      model.ImpactHigh,
	}}
	return a
}

// UnconfiguredAnalysis is the analysis shown when no AI credential is set.
func UnconfiguredAnalysis() model.Analysis {
	a := model.Empty()
	a.Summary = UnconfiguredSummary
	return a
}

// Analyze asks the generator for a narrative of r. It never fails: every
// generator or parse error is reflected in the record status.
func (a *Analyzer) Analyze(ctx context.Context, snapshotID string, r scoring.Result) (rec model.AnalysisRecord) {
	ctx, span := tracing.Start(ctx, "insight.analyze", attribute.String("snapshot.id", snapshotID))
	defer span.End()

	rec = model.AnalysisRecord{SnapshotID: snapshotID, RequestedAt: a.now().UTC()}
	defer func() {
		done := a.now().UTC()
		rec.CompletedAt = &done
		metrics.RecordAnalysis(string(rec.Status))
		span.SetAttributes(attribute.String("analysis.status", string(rec.Status)))
	}()

	text, err := a.gen.Generate(ctx, Request{Prompt: BuildAnalysisPrompt(r)})
	switch {
	case errors.Is(err, ErrNotConfigured):
		rec.Status = model.AnalysisUnconfigured
		rec.Analysis = UnconfiguredAnalysis()
		return rec
	case err != nil:
		a.logger.Error(ctx, "ai analysis failed", logger.String("snapshotID", snapshotID), logger.Error(err))
		span.SetStatus(codes.Error, err.Error())
		rec.Status = model.AnalysisFailed
		rec.Analysis = ServiceErrorAnalysis()
		return rec
	}

	analysis, err := ParseAnalysis(text)
	if err != nil {
		a.logger.Warn(ctx, "ai analysis unparsable", logger.String("snapshotID", snapshotID), logger.Error(err))
		rec.Status = model.AnalysisMalformed
		rec.Analysis = model.Empty()
		return rec
	}
	rec.Status = model.AnalysisReady
	rec.Analysis = analysis
	return rec
}
