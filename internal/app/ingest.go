package service

import (
	"context"
	"io"

	"go.opentelemetry.io/otel/attribute"

	"github.com/okian/soe/internal/domain/ingest"
	"github.com/okian/soe/internal/domain/model"
	"github.com/okian/soe/internal/domain/scoring"
	"github.com/okian/soe/pkg/logger"
	"github.com/okian/soe/pkg/tracing"
)

// IngestResult is a parsed upload and, when saved, the stored snapshot.
type IngestResult struct {
	Format   ingest.Format   `json:"format"`
	Draft    ingest.Draft    `json:"draft"`
	Score    scoring.Result  `json:"score"`
	Snapshot *model.Snapshot `json:"snapshot,omitempty"`
}

// Ingest parses an uploaded metrics document. With save set the draft is
// scored and appended to history; otherwise it is only previewed.
func (s *Service) Ingest(ctx context.Context, contentType, filename string, body io.Reader, save bool) (IngestResult, error) {
	ctx, span := tracing.Start(ctx, "service.ingest",
		attribute.String("content_type", contentType),
		attribute.String("filename", filename))
	defer span.End()

	draft, format, err := ingest.Parse(contentType, filename, body)
	if err != nil {
		span.RecordError(err)
		s.logger.Warn(ctx, "ingest rejected", logger.String("filename", filename), logger.Error(err))
		return IngestResult{}, err
	}

	res := IngestResult{Format: format, Draft: draft, Score: s.Score(draft.Metrics, nil)}
	if err := res.Score.Finite(); err != nil {
		span.RecordError(err)
		return IngestResult{}, err
	}
	if !save {
		return res, nil
	}
	snap, err := s.SaveSnapshot(ctx, draft.Name, draft.Metrics)
	if err != nil {
		return IngestResult{}, err
	}
	res.Snapshot = &snap
	res.Score = snap.Score
	return res, nil
}

// EstimateFromURL asks the AI service to estimate metrics for a public site.
// Errors wrap insight.ErrInvalidURL, ErrNotConfigured or insight.ErrMalformed.
func (s *Service) EstimateFromURL(ctx context.Context, url string) (model.Estimate, error) {
	return s.estimator.Estimate(ctx, url)
}
