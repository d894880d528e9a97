// Package deadletter persists envelopes the consumer rejected or could not
// route, so operators can inspect and replay them. Retention is owned by the
// database operator.
package deadletter

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Entry is one rejected message together with the reason it was rejected.
type Entry struct {
	Subject       string
	CorrelationID string
	Reason        string
	Data          []byte
	ReceivedAt    time.Time
}

// Store saves dead-lettered entries.
type Store interface {
	Save(ctx context.Context, entry Entry) error
}

// LogStore is the fallback used when no dead-letter database is configured.
// Entries are logged at warn level and otherwise dropped.
type LogStore struct{}

func (LogStore) Save(_ context.Context, entry Entry) error {
	log.Warn().
		Str("subject", entry.Subject).
		Str("correlation_id", entry.CorrelationID).
		Str("reason", entry.Reason).
		Int("size", len(entry.Data)).
		Msg("dead-lettered message (no store configured)")
	return nil
}
