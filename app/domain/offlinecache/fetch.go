package offlinecache

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

// NoStoreHeaders are forced on API requests and on the responses handed back
// for them.
var NoStoreHeaders = map[string]string{
	"Cache-Control": "no-cache, no-store, must-revalidate",
	"Pragma":        "no-cache",
	"Expires":       "0",
}

type route int

const (
	routeToNetwork route = iota
	routeToNetworkNoStore
	routeToCacheFirst
)

// OnFetch answers a request issued by the page.
func (w *Worker) OnFetch(ctx context.Context, req *http.Request) (*Response, error) {
	target := w.resolve(req.URL)
	if target != req.URL {
		req = withURL(ctx, req, target)
	}
	switch w.classify(req.Method, target) {
	case routeToNetworkNoStore:
		w.metrics.fetch(routeNetworkOnly)
		return w.fetchNoStore(ctx, req, target)
	case routeToCacheFirst:
		return w.fetchCacheFirst(ctx, req, target)
	default:
		w.metrics.fetch(routePassThrough)
		return w.network.Fetch(ctx, req)
	}
}

func (w *Worker) resolve(u *url.URL) *url.URL {
	if u.IsAbs() {
		return u
	}
	return w.config.Origin.ResolveReference(u)
}

func (w *Worker) classify(method string, target *url.URL) route {
	if method != http.MethodGet {
		return routeToNetwork
	}
	if !sameOrigin(w.config.Origin, target) {
		return routeToNetwork
	}
	if w.config.IsAPIPath(target.Path) {
		return routeToNetworkNoStore
	}
	return routeToCacheFirst
}

func withURL(ctx context.Context, req *http.Request, u *url.URL) *http.Request {
	out := req.Clone(ctx)
	out.URL = u
	out.Host = u.Host
	out.RequestURI = ""
	return out
}

func sameOrigin(a, b *url.URL) bool {
	return a.Scheme == b.Scheme && a.Host == b.Host
}

func cacheKey(u *url.URL) string {
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	return c.String()
}

func (w *Worker) fetchNoStore(ctx context.Context, req *http.Request, target *url.URL) (*Response, error) {
	busted := *target
	q := busted.Query()
	q.Set(CacheBustParam, strconv.FormatInt(w.clock.Now().UnixMilli(), 10))
	busted.RawQuery = q.Encode()

	out := withURL(ctx, req, &busted)
	for k, v := range NoStoreHeaders {
		out.Header.Set(k, v)
	}

	resp, err := w.network.Fetch(ctx, out)
	if err != nil {
		return nil, err
	}
	if resp.Header == nil {
		resp.Header = http.Header{}
	}
	for k, v := range NoStoreHeaders {
		resp.Header.Set(k, v)
	}
	return resp, nil
}

func (w *Worker) fetchCacheFirst(ctx context.Context, req *http.Request, target *url.URL) (*Response, error) {
	key := cacheKey(target)
	cached, found, err := w.storage.Match(ctx, key)
	if err != nil {
		w.log().WithField("error_code", "5a9c2e7f-b3d1-4f68-8a04-c6e1d9b7f253").
			Warnf("fetch: cache lookup failed for %s: %v", key, err)
		found = false
	}
	if found {
		w.metrics.fetch(routeCacheHit)
		w.revalidate(ctx, req, key)
		return cached, nil
	}

	w.metrics.fetch(routeCacheMiss)
	resp, err := w.network.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Cacheable() {
		w.store(ctx, key, resp)
	}
	return resp, nil
}

// revalidate refreshes key from the network without holding up the caller.
func (w *Worker) revalidate(ctx context.Context, req *http.Request, key string) {
	bg := context.WithoutCancel(ctx)
	refresh := req.Clone(bg)
	w.background.Add(1)
	go func() {
		defer w.background.Done()
		resp, err := w.network.Fetch(bg, refresh)
		if err != nil {
			w.metrics.revalidation("failed")
			w.log().Debugf("fetch: background refresh of %s failed: %v", key, err)
			return
		}
		if !resp.Cacheable() {
			w.metrics.revalidation("skipped")
			return
		}
		w.store(bg, key, resp)
		w.metrics.revalidation("updated")
	}()
}

func (w *Worker) store(ctx context.Context, key string, resp *Response) {
	runtime, err := w.storage.Open(ctx, w.config.RuntimeCacheName())
	if err != nil {
		w.log().WithField("error_code", "c4e81f3a-6b2d-4970-a5e8-3f9b1d7c0e42").
			Warnf("fetch: failed to open runtime cache: %v", err)
		return
	}
	if err := runtime.Put(ctx, key, resp.forStorage(w.clock.Now())); err != nil {
		w.log().WithField("error_code", "71b3d9e5-2c8a-4f06-9d1e-8a5c4b2f7e39").
			Warnf("fetch: failed to cache %s: %v", key, err)
	}
}
