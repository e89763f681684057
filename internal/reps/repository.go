package reps

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/practice-crm/internal/documents"
	"github.com/wolfman30/practice-crm/internal/events"
)

// Repository persists reps. CreateInvited writes the rep, its onboarding
// document stubs and the invite event together.
type Repository interface {
	CorpEmailTaken(ctx context.Context, email string) (bool, error)
	CreateInvited(ctx context.Context, rep *Rep, docs []documents.Document, evt events.RepInvitedV1) error
	GetByID(ctx context.Context, id string) (*Rep, error)
	Activate(ctx context.Context, id string, at time.Time) (*Rep, error)
	List(ctx context.Context, status Status) ([]*Rep, error)
}

// DocumentCreator stores document stubs.
type DocumentCreator interface {
	Create(ctx context.Context, doc *documents.Document) error
}

// EventAppender queues outbox events.
type EventAppender interface {
	Append(aggregateID string, evt events.Event) (uuid.UUID, error)
}

// MemoryRepository backs local development and tests when no database is configured.
type MemoryRepository struct {
	mu     sync.Mutex
	reps   map[string]*Rep
	docs   DocumentCreator
	outbox EventAppender
}

func NewMemoryRepository(docs DocumentCreator, outbox EventAppender) *MemoryRepository {
	return &MemoryRepository{reps: make(map[string]*Rep), docs: docs, outbox: outbox}
}

func (r *MemoryRepository) CorpEmailTaken(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rep := range r.reps {
		if strings.EqualFold(rep.CorpEmail, email) {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepository) CreateInvited(ctx context.Context, rep *Rep, docs []documents.Document, evt events.RepInvitedV1) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.reps {
		if strings.EqualFold(existing.CorpEmail, rep.CorpEmail) {
			return ErrCorpEmailTaken
		}
	}
	cp := *rep
	r.reps[cp.ID] = &cp
	if r.docs != nil {
		for i := range docs {
			if err := r.docs.Create(ctx, &docs[i]); err != nil {
				return err
			}
		}
	}
	if r.outbox != nil {
		if _, err := r.outbox.Append(rep.ID, evt); err != nil {
			return err
		}
	}
	return nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*Rep, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep, ok := r.reps[id]
	if !ok {
		return nil, ErrRepNotFound
	}
	cp := *rep
	return &cp, nil
}

func (r *MemoryRepository) Activate(_ context.Context, id string, at time.Time) (*Rep, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep, ok := r.reps[id]
	if !ok {
		return nil, ErrRepNotFound
	}
	if rep.ActivatedAt == nil {
		rep.ActivatedAt = &at
	}
	rep.Status = StatusActive
	rep.UpdatedAt = at
	cp := *rep
	return &cp, nil
}

func (r *MemoryRepository) List(_ context.Context, status Status) ([]*Rep, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*Rep{}
	for _, rep := range r.reps {
		if status != "" && rep.Status != status {
			continue
		}
		cp := *rep
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
