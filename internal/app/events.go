package service

import "context"

// Live event kinds pushed to dashboard clients.
const (
	EventSnapshotSaved     = "snapshot.saved"
	EventAnalysisCompleted = "analysis.completed"
	EventWeightsUpdated    = "weights.updated"
)

// Publisher fans events out to live clients. Publish must not block.
type Publisher interface {
	Publish(ctx context.Context, kind string, payload any)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, any) {}
