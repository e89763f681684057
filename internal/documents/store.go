package documents

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store persists document metadata.
type Store interface {
	Create(ctx context.Context, doc *Document) error
	Get(ctx context.Context, id string) (*Document, error)
	ListByRep(ctx context.Context, repID string) ([]*Document, error)
	MarkUploaded(ctx context.Context, id, key, contentType string, size int64, at time.Time) (*Document, error)
}

// MemoryStore backs local development and tests when no database is configured.
type MemoryStore struct {
	mu   sync.Mutex
	docs map[string]*Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]*Document)}
}

func (s *MemoryStore) Create(_ context.Context, doc *Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *doc
	s.docs[cp.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	cp := *doc
	return &cp, nil
}

func (s *MemoryStore) ListByRep(_ context.Context, repID string) ([]*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*Document{}
	for _, doc := range s.docs {
		if doc.RepID == repID {
			cp := *doc
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Kind < out[j].Kind
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) MarkUploaded(_ context.Context, id, key, contentType string, size int64, at time.Time) (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	doc.Status = StatusUploaded
	doc.S3Key = &key
	doc.ContentType = &contentType
	doc.SizeBytes = size
	doc.UploadedAt = &at
	cp := *doc
	return &cp, nil
}
