package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// Event is a versioned domain event written to the outbox.
type Event interface {
	EventType() string
}

// Execer is satisfied by pgx pools, connections and transactions.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var (
	errMissingAggregate = errors.New("events: aggregate id is required")
	errNilEvent         = errors.New("events: event required")
)

// AppendEvent writes evt to the outbox through exec, which is usually the
// transaction that produced the state change.
func AppendEvent(ctx context.Context, exec Execer, aggregateID string, evt Event) (uuid.UUID, error) {
	if exec == nil {
		return uuid.Nil, fmt.Errorf("events: exec required")
	}
	eventType, data, err := encode(aggregateID, evt)
	if err != nil {
		return uuid.Nil, err
	}
	id := uuid.New()
	query := `
		INSERT INTO outbox (id, aggregate_id, type, payload)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := exec.Exec(ctx, query, id, strings.TrimSpace(aggregateID), eventType, data); err != nil {
		return uuid.Nil, fmt.Errorf("events: insert outbox: %w", err)
	}
	return id, nil
}

func encode(aggregateID string, evt Event) (string, []byte, error) {
	if strings.TrimSpace(aggregateID) == "" {
		return "", nil, errMissingAggregate
	}
	if evt == nil {
		return "", nil, errNilEvent
	}
	eventType := strings.TrimSpace(evt.EventType())
	if eventType == "" {
		return "", nil, fmt.Errorf("events: event type missing")
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return "", nil, fmt.Errorf("events: marshal payload: %w", err)
	}
	return eventType, data, nil
}
