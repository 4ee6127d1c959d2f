package blob

import (
	"context"
	"sync"

	"ourtextscores/internal/domain/catalog"
)

// MemoryStore keeps objects in process memory. Intended for tests.
type MemoryStore struct {
	mu   sync.RWMutex
	objs map[string][]byte
}

func NewMemory() *MemoryStore {
	return &MemoryStore{objs: make(map[string][]byte)}
}

func memKey(bucket, key string) string { return bucket + "\x00" + key }

func (s *MemoryStore) Put(_ context.Context, bucket, key string, data []byte, contentType string) (catalog.StorageLocator, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	s.objs[memKey(bucket, key)] = cp
	return catalog.StorageLocator{
		Bucket:      bucket,
		Key:         key,
		Size:        int64(len(data)),
		ContentType: contentType,
	}, nil
}

func (s *MemoryStore) Get(_ context.Context, loc catalog.StorageLocator) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objs[memKey(loc.Bucket, loc.Key)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (s *MemoryStore) Delete(_ context.Context, loc catalog.StorageLocator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memKey(loc.Bucket, loc.Key)
	if _, ok := s.objs[k]; !ok {
		return ErrNotFound
	}
	delete(s.objs, k)
	return nil
}

func (s *MemoryStore) Exists(_ context.Context, loc catalog.StorageLocator) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objs[memKey(loc.Bucket, loc.Key)]
	return ok, nil
}

// Len reports the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objs)
}
