package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

type entry struct {
	data        []byte
	contentType string
}

// MemoryStore keeps blobs in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]entry)}
}

func (s *MemoryStore) Put(_ context.Context, key, contentType string, body io.Reader, _ int64) (Object, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return Object{}, fmt.Errorf("read blob body: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = entry{data: data, contentType: contentType}
	return Object{Key: key, ContentType: contentType, Size: int64(len(data))}, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (io.ReadCloser, Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.blobs[key]
	if !ok {
		return nil, Object{}, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(e.data)), Object{Key: key, ContentType: e.contentType, Size: int64(len(e.data))}, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}
