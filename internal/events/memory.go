package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryOutbox is an in-process outbox used when no database is configured.
type MemoryOutbox struct {
	mu      sync.Mutex
	entries []memoryEntry
}

type memoryEntry struct {
	OutboxEntry
	delivered bool
}

func NewMemoryOutbox() *MemoryOutbox {
	return &MemoryOutbox{}
}

// Append records evt for later delivery.
func (o *MemoryOutbox) Append(aggregateID string, evt Event) (uuid.UUID, error) {
	eventType, data, err := encode(aggregateID, evt)
	if err != nil {
		return uuid.Nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	id := uuid.New()
	o.entries = append(o.entries, memoryEntry{OutboxEntry: OutboxEntry{
		ID:          id,
		AggregateID: aggregateID,
		Type:        eventType,
		Payload:     data,
		CreatedAt:   time.Now().UTC(),
	}})
	return id, nil
}

// Discard removes an undelivered entry and reports whether it was found.
func (o *MemoryOutbox) Discard(id uuid.UUID) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.entries {
		if o.entries[i].ID == id && !o.entries[i].delivered {
			o.entries = append(o.entries[:i], o.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Insert matches OutboxStore.Insert.
func (o *MemoryOutbox) Insert(_ context.Context, aggregateID string, evt Event) (uuid.UUID, error) {
	return o.Append(aggregateID, evt)
}

func (o *MemoryOutbox) FetchPending(_ context.Context, limit int32) ([]OutboxEntry, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []OutboxEntry
	for _, e := range o.entries {
		if e.delivered {
			continue
		}
		out = append(out, e.OutboxEntry)
		if limit > 0 && int32(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

func (o *MemoryOutbox) MarkDelivered(_ context.Context, id uuid.UUID) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.entries {
		if o.entries[i].ID == id && !o.entries[i].delivered {
			o.entries[i].delivered = true
			return true, nil
		}
	}
	return false, nil
}

// Pending returns undelivered entries of the given type; an empty type matches all.
func (o *MemoryOutbox) Pending(eventType string) []OutboxEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []OutboxEntry
	for _, e := range o.entries {
		if !e.delivered && (eventType == "" || e.Type == eventType) {
			out = append(out, e.OutboxEntry)
		}
	}
	return out
}

// MemoryProcessedStore dedupes webhook events in process.
type MemoryProcessedStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryProcessedStore() *MemoryProcessedStore {
	return &MemoryProcessedStore{seen: make(map[string]struct{})}
}

func (s *MemoryProcessedStore) AlreadyProcessed(_ context.Context, provider, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[provider+"\x00"+eventID]
	return ok, nil
}

func (s *MemoryProcessedStore) MarkProcessed(_ context.Context, provider, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := provider + "\x00" + eventID
	if _, ok := s.seen[key]; ok {
		return false, nil
	}
	s.seen[key] = struct{}{}
	return true, nil
}
