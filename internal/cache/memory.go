package cache

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps entries in process. It is meant for a single instance
// (development, tests); sessions are lost on restart.
type MemoryStore struct {
	mu sync.Mutex
	c  *gocache.Cache
}

func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	return &MemoryStore{c: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func expiration(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return gocache.NoExpiration
	}
	return ttl
}

func (s *MemoryStore) SetHash(_ context.Context, key string, fields map[string]string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.Set(key, maps.Clone(fields), expiration(ttl))
	return nil
}

func (s *MemoryStore) getHash(key string) (map[string]string, bool) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, false
	}
	fields, ok := v.(map[string]string)
	return fields, ok
}

func (s *MemoryStore) GetHash(_ context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fields, ok := s.getHash(key)
	if !ok {
		return nil, ErrNotFound
	}
	return maps.Clone(fields), nil
}

func (s *MemoryStore) TakeHashIf(_ context.Context, key, field, want string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fields, ok := s.getHash(key)
	if !ok {
		return nil, ErrNotFound
	}
	if fields[field] != want {
		return nil, ErrMismatch
	}
	s.c.Delete(key)
	return fields, nil
}

func (s *MemoryStore) SetList(_ context.Context, key string, values []string, ttl time.Duration) error {
	if len(values) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.Set(key, slices.Clone(values), expiration(ttl))
	return nil
}

func (s *MemoryStore) GetList(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.c.Get(key)
	if !ok {
		return nil, ErrNotFound
	}
	values, ok := v.([]string)
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(values), nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		s.c.Delete(k)
	}
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c.Flush()
	return nil
}
