package service

import (
	"context"
	"fmt"

	"github.com/okian/soe/internal/adapters/mq/queue"
	"github.com/okian/soe/internal/domain/model"
	"github.com/okian/soe/pkg/logger"
	"github.com/okian/soe/pkg/metrics"
)

// RequestAnalysis schedules an AI analysis of snapshot id and returns its
// record. A finished record is returned as is unless refresh is set. A request
// for a snapshot whose analysis is already running returns the pending record.
func (s *Service) RequestAnalysis(ctx context.Context, id string, refresh bool) (model.AnalysisRecord, error) {
	snap, err := s.Snapshot(ctx, id)
	if err != nil {
		return model.AnalysisRecord{}, err
	}

	prev, hasPrev := s.analysis(id)
	if hasPrev && prev.Status.Terminal() && !refresh {
		return prev, nil
	}

	if s.deduper.SeenAndRecord(ctx, id) {
		metrics.RecordAnalysisDuplicate()
		if hasPrev && !prev.Status.Terminal() {
			return prev, nil
		}
		return model.AnalysisRecord{SnapshotID: id, Status: model.AnalysisPending, Analysis: model.Empty()}, nil
	}

	pending := model.AnalysisRecord{
		SnapshotID:  id,
		Status:      model.AnalysisPending,
		Analysis:    model.Empty(),
		RequestedAt: s.now().UTC(),
	}
	s.putAnalysis(pending)

	job := queue.Job{SnapshotID: id, Result: snap.Score, RequestedAt: pending.RequestedAt}
	if !s.queue.Enqueue(ctx, job) {
		s.deduper.Unrecord(ctx, id)
		if hasPrev {
			s.putAnalysis(prev)
		} else {
			s.dropAnalysis(id)
		}
		if s.queue.IsClosed() {
			return model.AnalysisRecord{}, queue.ErrStopped
		}
		s.logger.Warn(ctx, "analysis queue full", logger.String("snapshotID", id))
		return model.AnalysisRecord{}, fmt.Errorf("analysis of %q: %w", id, ErrBackpressure)
	}

	s.logger.Debug(ctx, "analysis requested", logger.String("snapshotID", id), logger.Bool("refresh", refresh))
	return pending, nil
}

// Analysis returns the latest analysis record of snapshot id.
func (s *Service) Analysis(ctx context.Context, id string) (model.AnalysisRecord, error) {
	if rec, ok := s.analysis(id); ok {
		return rec, nil
	}
	if _, err := s.Snapshot(ctx, id); err != nil {
		return model.AnalysisRecord{}, err
	}
	return model.AnalysisRecord{}, fmt.Errorf("analysis of %q was never requested: %w", id, ErrNotFound)
}

// Complete stores a finished record. It is the worker pool's sink.
func (s *Service) Complete(ctx context.Context, rec model.AnalysisRecord) error {
	s.putAnalysis(rec)
	s.deduper.Unrecord(ctx, rec.SnapshotID)
	s.publisher.Publish(ctx, EventAnalysisCompleted, rec)
	return nil
}

func (s *Service) analysis(id string) (model.AnalysisRecord, bool) {
	s.analysesMu.RLock()
	defer s.analysesMu.RUnlock()
	rec, ok := s.analyses[id]
	return rec, ok
}

func (s *Service) putAnalysis(rec model.AnalysisRecord) {
	s.analysesMu.Lock()
	s.analyses[rec.SnapshotID] = rec
	s.analysesMu.Unlock()
}

func (s *Service) dropAnalysis(id string) {
	s.analysesMu.Lock()
	delete(s.analyses, id)
	s.analysesMu.Unlock()
}
