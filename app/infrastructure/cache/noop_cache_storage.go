package cache

import (
	"context"

	"inspectra.app/offline-gateway/app/domain/offlinecache"
)

// NoOpCacheStorage never holds anything; used when the configured backend is
// unreachable so requests still reach the network.
type NoOpCacheStorage struct{}

// Open returns a cache that discards every write
func (n *NoOpCacheStorage) Open(ctx context.Context, name string) (offlinecache.Cache, error) {
	return noOpCache{name: name}, nil
}

// Has always returns false
func (n *NoOpCacheStorage) Has(ctx context.Context, name string) (bool, error) {
	return false, nil
}

// Delete is a no-op implementation
func (n *NoOpCacheStorage) Delete(ctx context.Context, name string) (bool, error) {
	return false, nil
}

// Keys always returns no caches
func (n *NoOpCacheStorage) Keys(ctx context.Context) ([]string, error) {
	return nil, nil
}

// Match always misses
func (n *NoOpCacheStorage) Match(ctx context.Context, key string) (*offlinecache.Response, bool, error) {
	return nil, false, nil
}

type noOpCache struct {
	name string
}

func (c noOpCache) Name() string { return c.name }

func (c noOpCache) Match(ctx context.Context, key string) (*offlinecache.Response, bool, error) {
	return nil, false, nil
}

func (c noOpCache) Put(ctx context.Context, key string, resp *offlinecache.Response) error {
	return nil
}

func (c noOpCache) Delete(ctx context.Context, key string) (bool, error) {
	return false, nil
}

func (c noOpCache) Keys(ctx context.Context) ([]string, error) {
	return nil, nil
}
