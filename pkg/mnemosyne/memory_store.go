package mnemosyne

import (
	"context"
	"sync"

	"github.com/argos-watch/argos/pkg/domain"
)

// MemoryStore keeps tracked-container records in process memory.
type MemoryStore struct {
	mu   sync.Mutex
	recs map[domain.ContainerID]domain.TrackedContainer
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		recs: make(map[domain.ContainerID]domain.TrackedContainer),
	}
}

func (s *MemoryStore) Get(ctx context.Context, id domain.ContainerID) (*domain.TrackedContainer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.recs[id]
	if !ok {
		return nil, ErrNotTracked
	}
	return &rec, nil
}

func (s *MemoryStore) Put(ctx context.Context, rec domain.TrackedContainer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.recs[rec.ID] = rec
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id domain.ContainerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.recs, id)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]domain.TrackedContainer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := make([]domain.TrackedContainer, 0, len(s.recs))
	for _, rec := range s.recs {
		list = append(list, rec)
	}
	return list, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
