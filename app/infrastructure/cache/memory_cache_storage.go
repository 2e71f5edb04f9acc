package cache

import (
	"context"
	"slices"
	"sync"

	"inspectra.app/offline-gateway/app/domain/offlinecache"
)

// MemoryCacheStorage keeps every cache in process memory.
type MemoryCacheStorage struct {
	mu     sync.RWMutex
	order  []string
	caches map[string]*MemoryCache
}

func NewMemoryCacheStorage() *MemoryCacheStorage {
	return &MemoryCacheStorage{caches: make(map[string]*MemoryCache)}
}

func (s *MemoryCacheStorage) Open(ctx context.Context, name string) (offlinecache.Cache, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.caches[name]; ok {
		return c, nil
	}
	c := &MemoryCache{name: name, entries: make(map[string]*offlinecache.Response)}
	s.caches[name] = c
	s.order = append(s.order, name)
	return c, nil
}

func (s *MemoryCacheStorage) Has(ctx context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.caches[name]
	return ok, nil
}

func (s *MemoryCacheStorage) Delete(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.caches[name]; !ok {
		return false, nil
	}
	delete(s.caches, name)
	s.order = slices.DeleteFunc(s.order, func(n string) bool { return n == name })
	return true, nil
}

func (s *MemoryCacheStorage) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order), nil
}

func (s *MemoryCacheStorage) Match(ctx context.Context, key string) (*offlinecache.Response, bool, error) {
	s.mu.RLock()
	caches := make([]*MemoryCache, 0, len(s.order))
	for _, name := range s.order {
		caches = append(caches, s.caches[name])
	}
	s.mu.RUnlock()

	for _, c := range caches {
		if resp, ok, _ := c.Match(ctx, key); ok {
			return resp, true, nil
		}
	}
	return nil, false, nil
}

// MemoryCache is a single named bucket. Entries are copied on the way in and
// on the way out.
type MemoryCache struct {
	name    string
	mu      sync.RWMutex
	order   []string
	entries map[string]*offlinecache.Response
}

func (c *MemoryCache) Name() string { return c.name }

func (c *MemoryCache) Match(ctx context.Context, key string) (*offlinecache.Response, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	resp, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	return resp.Clone(), true, nil
}

func (c *MemoryCache) Put(ctx context.Context, key string, resp *offlinecache.Response) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		c.order = append(c.order, key)
	}
	c.entries[key] = resp.Clone()
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; !ok {
		return false, nil
	}
	delete(c.entries, key)
	c.order = slices.DeleteFunc(c.order, func(k string) bool { return k == key })
	return true, nil
}

func (c *MemoryCache) Keys(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.order), nil
}
