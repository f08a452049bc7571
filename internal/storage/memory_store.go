package storage

import (
	"context"
	"sync"

	"github.com/devghori1264/aerophoenix/showcase/internal/models"
)

// MemoryStore keeps everything in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	pages map[string]models.PageSnapshot
	views map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pages: make(map[string]models.PageSnapshot),
		views: make(map[string]int64),
	}
}

func (s *MemoryStore) SavePage(ctx context.Context, p *models.PageSnapshot) error {
	cp := *p
	cp.HTML = append([]byte(nil), p.HTML...)
	s.mu.Lock()
	s.pages[p.Key] = cp
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) GetPage(ctx context.Context, key string) (*models.PageSnapshot, error) {
	s.mu.RLock()
	p, ok := s.pages[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *MemoryStore) DeletePage(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.pages, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) IncrementViews(ctx context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[id]++
	return s.views[id], nil
}

func (s *MemoryStore) Views(ctx context.Context, id string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.views[id], nil
}

func (s *MemoryStore) Close() error { return nil }
