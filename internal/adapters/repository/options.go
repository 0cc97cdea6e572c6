package repository

import "time"

// DefaultKey is the blob key holding the snapshot history.
const DefaultKey = "soe_app_data"

// Option applies a configuration option to the BlobStore.
type Option func(*BlobStore)

// WithKey sets the blob key the history is stored under.
func WithKey(key string) Option {
	return func(s *BlobStore) {
		if key != "" {
			s.key = key
		}
	}
}

// WithClock sets the clock used for save timestamps and the fallback set.
func WithClock(now func() time.Time) Option {
	return func(s *BlobStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides snapshot id generation.
func WithIDGenerator(next func() string) Option {
	return func(s *BlobStore) {
		if next != nil {
			s.newID = next
		}
	}
}
