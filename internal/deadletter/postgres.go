package deadletter

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists dead-lettered messages in a single table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the dead-letter database and verifies the
// connection.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to dead-letter database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping dead-letter database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema creates the dead_letter table if it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS dead_letter (
            id             UUID PRIMARY KEY,
            subject        TEXT NOT NULL,
            correlation_id TEXT NOT NULL,
            reason         TEXT NOT NULL,
            data           BYTEA NOT NULL,
            received_at    TIMESTAMPTZ NOT NULL
        )
    `)
	if err != nil {
		return fmt.Errorf("create dead_letter table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, entry Entry) error {
	_, err := s.pool.Exec(ctx, `
        INSERT INTO dead_letter (id, subject, correlation_id, reason, data, received_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `,
		uuid.New(), entry.Subject, entry.CorrelationID, entry.Reason, entry.Data, entry.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("insert dead-letter entry: %w", err)
	}
	return nil
}

// Ping reports whether the database is reachable, for readiness checks.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}
