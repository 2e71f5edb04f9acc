package offlinecache

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"
	"inspectra.app/offline-gateway/app/utils/logger"
	"k8s.io/utils/clock"
)

type Dependencies struct {
	Storage   CacheStorage
	Network   Fetcher
	Clients   Clients
	Lifecycle Lifecycle
	Clock     clock.Clock
	Metrics   *Metrics
}

// Worker applies the offline caching policy for one cache version. Each
// handler returns only once the work it started has finished, except for
// background revalidations, which Settle waits for.
type Worker struct {
	config    Config
	storage   CacheStorage
	network   Fetcher
	clients   Clients
	lifecycle Lifecycle
	clock     clock.Clock
	metrics   *Metrics

	background sync.WaitGroup
}

func NewWorker(config Config, deps Dependencies) *Worker {
	if deps.Clock == nil {
		deps.Clock = clock.RealClock{}
	}
	return &Worker{
		config:    config.withDefaults(),
		storage:   deps.Storage,
		network:   deps.Network,
		clients:   deps.Clients,
		lifecycle: deps.Lifecycle,
		clock:     deps.Clock,
		metrics:   deps.Metrics,
	}
}

func (w *Worker) Config() Config {
	return w.config
}

func (w *Worker) Version() string {
	return w.config.Version
}

func (w *Worker) log() *logrus.Entry {
	return logger.GetLogger().WithField("worker_version", w.config.Version)
}

// OnInstall pre-caches the app shell. Individual asset failures are logged
// and never fail the install.
func (w *Worker) OnInstall(ctx context.Context) error {
	w.precacheShell(ctx)
	if w.lifecycle != nil {
		if err := w.lifecycle.SkipWaiting(ctx); err != nil {
			return fmt.Errorf("skip waiting: %w", err)
		}
	}
	return nil
}

func (w *Worker) precacheShell(ctx context.Context) {
	shell, err := w.storage.Open(ctx, w.config.ShellCacheName())
	if err != nil {
		w.log().WithField("error_code", "0f3b6a55-8d0e-4b1c-9a47-61d2c3e5f7a8").
			Warnf("install: failed to open shell cache: %v", err)
		return
	}

	var wg sync.WaitGroup
	for _, asset := range w.config.ShellAssets {
		wg.Add(1)
		go func(asset string) {
			defer wg.Done()
			if err := w.precacheAsset(ctx, shell, asset); err != nil {
				w.log().WithField("error_code", "6e0a3c21-47f9-4d8b-b2a5-9c1f0e7d3b64").
					Warnf("install: failed to cache %s: %v", asset, err)
			}
		}(asset)
	}
	wg.Wait()
}

func (w *Worker) precacheAsset(ctx context.Context, shell Cache, asset string) error {
	ref, err := w.config.Origin.Parse(asset)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref.String(), nil)
	if err != nil {
		return err
	}
	resp, err := w.network.Fetch(ctx, req)
	if err != nil {
		return err
	}
	if !resp.Cacheable() {
		return fmt.Errorf("unexpected response: status %d, type %s", resp.Status, resp.Type)
	}
	return shell.Put(ctx, cacheKey(ref), resp.forStorage(w.clock.Now()))
}

// OnActivate removes caches of other versions, purges API entries from the
// runtime cache and claims every open client.
func (w *Worker) OnActivate(ctx context.Context) error {
	w.deleteStaleCaches(ctx)
	w.purgeAPIEntries(ctx)
	if err := w.clients.Claim(ctx, w.config.Version); err != nil {
		return fmt.Errorf("claim clients: %w", err)
	}
	return nil
}

func (w *Worker) deleteStaleCaches(ctx context.Context) {
	names, err := w.storage.Keys(ctx)
	if err != nil {
		w.log().WithField("error_code", "b1d7e2f4-3a6c-4e90-8f15-2c7a9d0b6e31").
			Warnf("activate: failed to list caches: %v", err)
		return
	}
	current := map[string]struct{}{
		w.config.ShellCacheName():   {},
		w.config.RuntimeCacheName(): {},
	}
	for _, name := range names {
		if _, ok := current[name]; ok {
			continue
		}
		if _, err := w.storage.Delete(ctx, name); err != nil {
			w.log().WithField("error_code", "4c8f1a93-e6d2-47b5-a0c3-8b9e5f2d1a76").
				Warnf("activate: failed to delete cache %s: %v", name, err)
			continue
		}
		w.log().Infof("activate: deleted stale cache %s", name)
	}
}

func (w *Worker) purgeAPIEntries(ctx context.Context) {
	runtime, err := w.storage.Open(ctx, w.config.RuntimeCacheName())
	if err != nil {
		w.log().WithField("error_code", "e7a2c5d8-1f4b-4936-b8e0-5d3c7a9f2b14").
			Warnf("activate: failed to open runtime cache: %v", err)
		return
	}
	keys, err := runtime.Keys(ctx)
	if err != nil {
		w.log().WithField("error_code", "92f6b3e1-0c7d-4a58-9e24-7b1d5c8a3f60").
			Warnf("activate: failed to list runtime entries: %v", err)
		return
	}
	for _, key := range keys {
		if !w.config.IsAPIKey(key) {
			continue
		}
		if _, err := runtime.Delete(ctx, key); err != nil {
			w.log().WithField("error_code", "3d5e8b27-a9f1-4c60-b7d3-1e4f6a2c9b85").
				Warnf("activate: failed to delete api entry %s: %v", key, err)
			continue
		}
		w.log().Infof("activate: removed api entry %s from runtime cache", key)
	}
}

// OnMessage handles messages posted directly to the worker.
func (w *Worker) OnMessage(ctx context.Context, msg Message) error {
	switch msg.Type {
	case MessageSkipWaiting:
		if w.lifecycle == nil {
			return nil
		}
		return w.lifecycle.SkipWaiting(ctx)
	default:
		w.log().Debugf("message: ignoring %q", msg.Type)
		return nil
	}
}

// Settle blocks until every background revalidation has finished.
func (w *Worker) Settle() {
	w.background.Wait()
}
