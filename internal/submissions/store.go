package submissions

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/practice-crm/internal/accounts"
	"github.com/wolfman30/practice-crm/internal/events"
)

// Store persists submissions. Resolve applies the submission update, the
// account status change and the outbox event atomically.
type Store interface {
	LatestForAccount(ctx context.Context, accountID string) (*Submission, error)
	CreatePending(ctx context.Context, sub *Submission) error
	Resolve(ctx context.Context, res Resolution) (*Submission, error)
	Get(ctx context.Context, id string) (*Submission, error)
	ListByAccount(ctx context.Context, accountID string, limit int) ([]*Submission, error)
	ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*Submission, error)
	HasSubmissions(ctx context.Context, accountID string) (bool, error)
}

// AccountWriter reconciles account status after a dispatch.
type AccountWriter interface {
	ReconcileDispatch(ctx context.Context, id string, status accounts.Status, vendorUserID *string) error
}

// EventAppender queues outbox events. Discard drops an entry that was
// appended but whose surrounding write failed.
type EventAppender interface {
	Append(aggregateID string, evt events.Event) (uuid.UUID, error)
	Discard(id uuid.UUID) bool
}

// MemoryStore backs local development and tests when no database is configured.
type MemoryStore struct {
	mu       sync.Mutex
	subs     map[string]*Submission
	order    []string
	accounts AccountWriter
	outbox   EventAppender
}

func NewMemoryStore(accts AccountWriter, outbox EventAppender) *MemoryStore {
	return &MemoryStore{
		subs:     make(map[string]*Submission),
		accounts: accts,
		outbox:   outbox,
	}
}

func (s *MemoryStore) LatestForAccount(_ context.Context, accountID string) (*Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *Submission
	for _, id := range s.order {
		sub := s.subs[id]
		if sub.AccountID != accountID {
			continue
		}
		if latest == nil || !sub.CreatedAt.Before(latest.CreatedAt) {
			latest = sub
		}
	}
	if latest == nil {
		return nil, nil
	}
	return clone(latest), nil
}

func (s *MemoryStore) CreatePending(_ context.Context, sub *Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := clone(sub)
	cp.Status = StatusPending
	s.subs[cp.ID] = cp
	s.order = append(s.order, cp.ID)
	return nil
}

func (s *MemoryStore) Resolve(ctx context.Context, res Resolution) (*Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[res.SubmissionID]
	if !ok {
		return nil, ErrSubmissionNotFound
	}
	if sub.Status != StatusPending {
		return nil, ErrSubmissionResolved
	}

	resolved := clone(sub)
	resolvedAt := res.ResolvedAt
	resolved.Status = res.Status
	resolved.HTTPCode = res.HTTPCode
	resolved.ResponsePayload = res.Response
	resolved.ErrorMessage = res.ErrorMessage
	resolved.ResolvedAt = &resolvedAt

	// Outbox first: it is the only write that can be taken back.
	var eventID uuid.UUID
	if s.outbox != nil {
		id, err := s.outbox.Append(res.AccountID, res.Event)
		if err != nil {
			return nil, err
		}
		eventID = id
	}
	if s.accounts != nil {
		if err := s.accounts.ReconcileDispatch(ctx, res.AccountID, res.AccountStatus, res.VendorUserID); err != nil {
			if s.outbox != nil {
				s.outbox.Discard(eventID)
			}
			return nil, err
		}
	}
	s.subs[res.SubmissionID] = resolved
	return clone(resolved), nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[id]
	if !ok {
		return nil, ErrSubmissionNotFound
	}
	return clone(sub), nil
}

func (s *MemoryStore) ListByAccount(_ context.Context, accountID string, limit int) ([]*Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*Submission{}
	for i := len(s.order) - 1; i >= 0; i-- {
		sub := s.subs[s.order[i]]
		if sub.AccountID == accountID {
			out = append(out, clone(sub))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ListStalePending(_ context.Context, createdBefore time.Time, limit int) ([]*Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*Submission{}
	for _, id := range s.order {
		sub := s.subs[id]
		if sub.Status == StatusPending && sub.CreatedAt.Before(createdBefore) {
			out = append(out, clone(sub))
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) HasSubmissions(_ context.Context, accountID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if sub.AccountID == accountID {
			return true, nil
		}
	}
	return false, nil
}

func clone(sub *Submission) *Submission {
	cp := *sub
	return &cp
}
