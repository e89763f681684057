package events

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProcessedTracker remembers vendor webhook deliveries by (provider, event id).
// CuraGenesis redelivers until it sees a 2xx, so the webhook checks here
// before touching an account and records the event once the update lands.
type ProcessedTracker interface {
	AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, provider, eventID string) (bool, error)
}

const (
	processedLookupSQL = `SELECT 1 FROM processed_events WHERE provider = $1 AND event_id = $2`
	processedInsertSQL = `INSERT INTO processed_events (provider, event_id) VALUES ($1, $2) ON CONFLICT (provider, event_id) DO NOTHING`
)

type processedDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ProcessedStore is the Postgres ProcessedTracker backing the webhook when
// DATABASE_URL is set.
type ProcessedStore struct {
	db processedDB
}

func NewProcessedStore(pool *pgxpool.Pool) *ProcessedStore {
	if pool == nil {
		panic("events: pgx pool required")
	}
	return newProcessedStoreWithExec(pool)
}

func newProcessedStoreWithExec(db processedDB) *ProcessedStore {
	if db == nil {
		panic("events: exec required")
	}
	return &ProcessedStore{db: db}
}

func (s *ProcessedStore) AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	var one int
	err := s.db.QueryRow(ctx, processedLookupSQL, provider, eventID).Scan(&one)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("events: lookup %s event %s: %w", provider, eventID, err)
	}
	return true, nil
}

// MarkProcessed reports false when a concurrent delivery of the same event
// already recorded it.
func (s *ProcessedStore) MarkProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	ct, err := s.db.Exec(ctx, processedInsertSQL, provider, eventID)
	if err != nil {
		return false, fmt.Errorf("events: record %s event %s: %w", provider, eventID, err)
	}
	return ct.RowsAffected() == 1, nil
}
