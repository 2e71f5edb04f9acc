package infrastructure

import (
	"github.com/google/wire"
	"inspectra.app/offline-gateway/app/domain/offlinecache"
	"inspectra.app/offline-gateway/app/infrastructure/cache"
	"inspectra.app/offline-gateway/app/infrastructure/origin"
)

var InfrastructureProvider = wire.NewSet(
	cache.NewCacheBackend,
	cache.ProvideCacheStorage,
	cache.ProvideLocker,
	origin.NewClient,
	wire.Bind(new(offlinecache.Fetcher), new(*origin.Client)),
)
