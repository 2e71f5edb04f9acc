package cache

import (
	"context"
	"fmt"
	"strings"

	"inspectra.app/offline-gateway/app/domain/offlinecache"
	"inspectra.app/offline-gateway/app/utils/logger"
	"inspectra.app/offline-gateway/config/environment_variables"
)

// Backend bundles the cache storage with the activation lock that matches its
// scope: a redsync mutex when caches are shared through Redis, an in-process
// lock otherwise.
type Backend struct {
	Storage offlinecache.CacheStorage
	Locker  offlinecache.Locker
	closeFn func() error
	// degraded is set when the configured backend was unreachable at startup.
	degraded string
}

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthCheck reports whether the configured cache backend is serving.
func (b *Backend) HealthCheck(ctx context.Context) error {
	if b.degraded != "" {
		return fmt.Errorf("%s cache unavailable, caching disabled", b.degraded)
	}
	if hc, ok := b.Storage.(healthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (b *Backend) Close() error {
	if b.closeFn == nil {
		return nil
	}
	return b.closeFn()
}

// NewCacheBackend creates the backend selected by CACHE_TYPE. Unreachable
// remote backends degrade to NoOpCacheStorage.
func NewCacheBackend() *Backend {
	cacheType := strings.ToLower(environment_variables.EnvironmentVariables.CACHE_TYPE)
	prefix := environment_variables.EnvironmentVariables.CACHE_KEY_PREFIX

	switch cacheType {
	case "redis":
		client, err := NewRedisClient()
		if err != nil {
			logger.GetLogger().WithField("error_code", "8b2e4f61-d3a7-49c0-b5e8-1f6c9a3d7e20").
				Errorf("redis cache unavailable, caching disabled: %v", err)
			return degradedBackend(cacheType)
		}
		storage := NewRedisCacheStorage(client, prefix)
		return &Backend{Storage: storage, Locker: storage, closeFn: storage.Close}
	case "valkey":
		client, err := NewValkeyClient()
		if err != nil {
			logger.GetLogger().WithField("error_code", "d9c3a7e2-5f18-4b6d-a0e4-7c2b8f1d5a93").
				Errorf("valkey cache unavailable, caching disabled: %v", err)
			return degradedBackend(cacheType)
		}
		storage := NewValkeyCacheStorage(client, prefix)
		return &Backend{Storage: storage, Locker: NewLocalLocker(), closeFn: storage.Close}
	case "none", "noop":
		return noOpBackend()
	default:
		return &Backend{Storage: NewMemoryCacheStorage(), Locker: NewLocalLocker()}
	}
}

func noOpBackend() *Backend {
	return &Backend{Storage: &NoOpCacheStorage{}, Locker: NewLocalLocker()}
}

func degradedBackend(cacheType string) *Backend {
	b := noOpBackend()
	b.degraded = cacheType
	return b
}

func ProvideCacheStorage(b *Backend) offlinecache.CacheStorage {
	return b.Storage
}

func ProvideLocker(b *Backend) offlinecache.Locker {
	return b.Locker
}

// CacheSummary describes one named cache.
type CacheSummary struct {
	Name    string `json:"name"`
	Entries int    `json:"entries"`
}

// Summarize lists every cache with its entry count.
func Summarize(ctx context.Context, storage offlinecache.CacheStorage) ([]CacheSummary, error) {
	names, err := storage.Keys(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]CacheSummary, 0, len(names))
	for _, name := range names {
		c, err := storage.Open(ctx, name)
		if err != nil {
			return nil, err
		}
		keys, err := c.Keys(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, CacheSummary{Name: name, Entries: len(keys)})
	}
	return out, nil
}
