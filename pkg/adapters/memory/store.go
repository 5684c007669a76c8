package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/aretw0/chaptree/pkg/domain"
)

// Store implements ports.DocumentStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Document
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Document),
	}
}

// Save persists the document in memory.
// Forests are immutable, so copying the document header is enough for isolation.
func (s *Store) Save(ctx context.Context, doc *domain.Document) error {
	copied := *doc

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[doc.ID] = &copied
	return nil
}

// Load retrieves the document from memory.
func (s *Store) Load(ctx context.Context, documentID string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.data[documentID]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}

	// Copy on read so the caller can't replace the stored revision by pointer.
	ret := *doc
	return &ret, nil
}

// Delete removes the document.
func (s *Store) Delete(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, documentID)
	return nil
}

// List returns stored document IDs in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}
