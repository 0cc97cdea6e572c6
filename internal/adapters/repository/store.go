// Package repository persists the snapshot history behind a pluggable blob backend.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/okian/soe/internal/domain/model"
	"github.com/okian/soe/internal/domain/scoring"
	"github.com/okian/soe/pkg/logger"
	"github.com/okian/soe/pkg/metrics"
	"github.com/okian/soe/pkg/tracing"
)

// Store provides read/append access to the snapshot history.
type Store interface {
	// LoadAll returns every stored snapshot in insertion order. When nothing
	// usable is stored the fallback set is returned instead.
	LoadAll(ctx context.Context) ([]model.Snapshot, error)
	// Append stores a new snapshot and returns it with its id and save time.
	Append(ctx context.Context, name string, m scoring.Metrics, score scoring.Result) (model.Snapshot, error)
	// Get returns the snapshot with the given id or ErrNotFound.
	Get(ctx context.Context, id string) (model.Snapshot, error)
}

// Blob is a single-key byte store.
type Blob interface {
	// Get returns ErrNotFound when the key was never written.
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Close() error
}

// BlobStore keeps the whole history as one JSON array under a single key.
type BlobStore struct {
	mu       sync.Mutex
	blob     Blob
	key      string
	now      func() time.Time
	newID    func() string
	fallback []model.Snapshot
	log      logger.Logger
}

var _ Store = (*BlobStore)(nil)

// NewBlobStore wraps blob with snapshot history semantics.
func NewBlobStore(blob Blob, opts ...Option) *BlobStore {
	s := &BlobStore{
		blob:  blob,
		key:   DefaultKey,
		now:   time.Now,
		newID: uuid.NewString,
		log:   logger.Get().Named("repository"),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.fallback = Fallback(s.now())
	return s
}

// Close releases the underlying backend.
func (s *BlobStore) Close() error {
	return s.blob.Close()
}

// LoadAll implements Store.LoadAll. Backend and decode failures degrade to
// the fallback set; only context cancellation is reported.
func (s *BlobStore) LoadAll(ctx context.Context) ([]model.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	history, err := s.read(ctx)
	if err != nil {
		metrics.RecordStorageFallback()
		s.log.Warn(ctx, "history unreadable, using fallback", logger.String("key", s.key), logger.Error(err))
		return s.fallbackCopy(), nil
	}
	return history, nil
}

// Get implements Store.Get.
func (s *BlobStore) Get(ctx context.Context, id string) (model.Snapshot, error) {
	all, err := s.LoadAll(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}
	for _, snap := range all {
		if snap.ID == id {
			return snap, nil
		}
	}
	return model.Snapshot{}, fmt.Errorf("snapshot %q: %w", id, ErrNotFound)
}

// Append implements Store.Append. The stored history is read, extended and
// written back as a whole while holding the store lock.
func (s *BlobStore) Append(ctx context.Context, name string, m scoring.Metrics, score scoring.Result) (model.Snapshot, error) {
	ctx, span := tracing.Start(ctx, "repository.append", attribute.String("snapshot.name", name))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return model.Snapshot{}, err
	}

	snap := model.Snapshot{
		ID:        s.newID(),
		Name:      name,
		Timestamp: s.now().UTC(),
		Metrics:   m,
		Score:     score,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	history, err := s.read(ctx)
	if err != nil {
		span.RecordError(err)
		return model.Snapshot{}, fmt.Errorf("read history: %w", err)
	}
	history = append(history, snap)
	data, err := json.Marshal(history)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("encode history: %w", err)
	}

	start := time.Now()
	err = s.blob.Put(ctx, s.key, data)
	metrics.RecordStorageLatency("put", float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		metrics.RecordStorageError("put")
		span.RecordError(err)
		return model.Snapshot{}, fmt.Errorf("write history: %w", err)
	}

	metrics.RecordSnapshotSaved()
	s.log.Debug(ctx, "snapshot appended",
		logger.String("id", snap.ID),
		logger.String("name", snap.Name),
		logger.Int("history_size", len(history)))
	return snap, nil
}

// read must be called with s.mu held. A missing key yields the fallback
// set; backend failures and undecodable blobs are returned as errors so
// that Append never overwrites history it could not read.
func (s *BlobStore) read(ctx context.Context) ([]model.Snapshot, error) {
	start := time.Now()
	data, err := s.blob.Get(ctx, s.key)
	metrics.RecordStorageLatency("get", float64(time.Since(start).Microseconds())/1000)

	switch {
	case errors.Is(err, ErrNotFound):
		return s.fallbackCopy(), nil
	case err != nil:
		metrics.RecordStorageError("get")
		return nil, err
	}

	var history []model.Snapshot
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("%w: %d bytes: %w", ErrCorrupt, len(data), err)
	}
	if history == nil {
		return nil, fmt.Errorf("%w: %d bytes", ErrCorrupt, len(data))
	}
	return history, nil
}

func (s *BlobStore) fallbackCopy() []model.Snapshot {
	out := make([]model.Snapshot, len(s.fallback))
	copy(out, s.fallback)
	return out
}
