package storage

import (
	"context"
	"time"
)

// SentRecord is one delivered news item. URL is the store key and should be
// normalized by the caller.
type SentRecord struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Country     string    `json:"country,omitempty"`
	Source      string    `json:"source,omitempty"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	RunID       string    `json:"run_id,omitempty"`
	SentAt      time.Time `json:"sent_at"`
}

// SentStore remembers delivered items across runs so they are not sent twice.
type SentStore interface {
	IsSent(ctx context.Context, url string) (bool, error)
	MarkAsSent(ctx context.Context, rec SentRecord) error
	// Cleanup drops records older than the store TTL.
	Cleanup(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (map[string]int, error)
	Recent(ctx context.Context, limit int) ([]SentRecord, error)
	Close() error
}
