package out

import (
	"context"
	"maps"
	"slices"
	"sync"

	scheduleout "confsched/internal/modules/schedule/port/out"
	apperrors "confsched/internal/platform/errors"
)

// MemoryStore is a volatile Store. Values are copied on the way in and out.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	sets  map[string]map[string]struct{}
	ints  map[string]map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs: map[string][]byte{},
		sets:  map[string]map[string]struct{}{},
		ints:  map[string]map[string]int{},
	}
}

var _ scheduleout.Store = (*MemoryStore)(nil)

func (s *MemoryStore) ReadBlob(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return slices.Clone(data), nil
}

func (s *MemoryStore) WriteBlob(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = slices.Clone(data)
	return nil
}

func (s *MemoryStore) ReadStringSet(_ context.Context, key string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := maps.Clone(s.sets[key])
	if set == nil {
		set = map[string]struct{}{}
	}
	return set, nil
}

func (s *MemoryStore) WriteStringSet(_ context.Context, key string, set map[string]struct{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets[key] = maps.Clone(set)
	return nil
}

func (s *MemoryStore) ReadIntMap(_ context.Context, key string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	values := maps.Clone(s.ints[key])
	if values == nil {
		values = map[string]int{}
	}
	return values, nil
}

func (s *MemoryStore) WriteIntMap(_ context.Context, key string, values map[string]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ints[key] = maps.Clone(values)
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	delete(s.sets, key)
	delete(s.ints, key)
	return nil
}
