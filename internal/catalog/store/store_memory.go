package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	id "unearthify/pkg/domain"
	"unearthify/pkg/platform/sentinel"
)

type docKey struct {
	kind string
	id   id.RecordID
}

// InMemoryStore keeps documents in a map for tests and local runs.
type InMemoryStore struct {
	mu   sync.RWMutex
	docs map[docKey]Document
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{docs: make(map[docKey]Document)}
}

// List returns documents oldest first, matching the Postgres ordering.
func (s *InMemoryStore) List(_ context.Context, kind string) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Document, 0)
	for k, doc := range s.docs {
		if k.kind == kind {
			out = append(out, cloneDoc(doc))
		}
	}
	slices.SortFunc(out, func(a, b Document) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return out, nil
}

func (s *InMemoryStore) Get(_ context.Context, kind string, recordID id.RecordID) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[docKey{kind, recordID}]
	if !ok {
		return Document{}, fmt.Errorf("%s record not found: %w", kind, sentinel.ErrNotFound)
	}
	return cloneDoc(doc), nil
}

func (s *InMemoryStore) Insert(_ context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := docKey{doc.Kind, doc.ID}
	if _, exists := s.docs[key]; exists {
		return fmt.Errorf("%s record exists: %w", doc.Kind, sentinel.ErrAlreadyUsed)
	}
	s.docs[key] = cloneDoc(doc)
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := docKey{doc.Kind, doc.ID}
	existing, ok := s.docs[key]
	if !ok {
		return fmt.Errorf("%s record not found: %w", doc.Kind, sentinel.ErrNotFound)
	}
	doc.CreatedAt = existing.CreatedAt
	s.docs[key] = cloneDoc(doc)
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, kind string, recordID id.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := docKey{kind, recordID}
	if _, ok := s.docs[key]; !ok {
		return fmt.Errorf("%s record not found: %w", kind, sentinel.ErrNotFound)
	}
	delete(s.docs, key)
	return nil
}

func (s *InMemoryStore) Count(_ context.Context, kind string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for k := range s.docs {
		if k.kind == kind {
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) CountByStatus(_ context.Context, kind string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int)
	for k, doc := range s.docs {
		if k.kind == kind {
			counts[doc.Status]++
		}
	}
	return counts, nil
}

func cloneDoc(doc Document) Document {
	doc.Body = slices.Clone(doc.Body)
	return doc
}
