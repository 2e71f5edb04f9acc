package offlinecache_test

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"inspectra.app/offline-gateway/app/domain/offlinecache"
	"inspectra.app/offline-gateway/app/infrastructure/cache"
	"inspectra.app/offline-gateway/app/utils/duplex"
	testingclock "k8s.io/utils/clock/testing"
)

var errOffline = errors.New("network unreachable")

const origin = "https://app.example.com"

type fakeNetwork struct {
	mu        sync.Mutex
	responses map[string]*offlinecache.Response
	failures  map[string]error
	requests  []*http.Request
	gate      chan struct{}
}

func newFakeNetwork() *fakeNetwork {
	return &fakeNetwork{
		responses: make(map[string]*offlinecache.Response),
		failures:  make(map[string]error),
	}
}

func (n *fakeNetwork) serve(path, body string) {
	n.serveStatus(path, http.StatusOK, body)
}

func (n *fakeNetwork) serveStatus(path string, status int, body string) {
	n.serveWithHeader(path, status, body, http.Header{"Content-Type": []string{"text/plain"}})
}

func (n *fakeNetwork) serveWithHeader(path string, status int, body string, header http.Header) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.failures, path)
	n.responses[path] = &offlinecache.Response{
		Status: status,
		Header: header,
		Body:   []byte(body),
		Type:   offlinecache.ResponseTypeBasic,
	}
}

func (n *fakeNetwork) fail(path string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures[path] = err
}

// hold makes every Fetch block until the returned release func is called.
func (n *fakeNetwork) hold() (release func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.gate = make(chan struct{})
	gate := n.gate
	return func() { close(gate) }
}

func (n *fakeNetwork) Fetch(ctx context.Context, req *http.Request) (*offlinecache.Response, error) {
	n.mu.Lock()
	n.requests = append(n.requests, req)
	gate := n.gate
	n.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if err, ok := n.failures[req.URL.Path]; ok {
		return nil, err
	}
	resp, ok := n.responses[req.URL.Path]
	if !ok {
		return &offlinecache.Response{URL: req.URL.String(), Status: http.StatusNotFound, Type: offlinecache.ResponseTypeBasic}, nil
	}
	out := resp.Clone()
	out.URL = req.URL.String()
	return out, nil
}

func (n *fakeNetwork) recorded() []*http.Request {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*http.Request(nil), n.requests...)
}

type countingLifecycle struct {
	mu    sync.Mutex
	calls int
}

func (l *countingLifecycle) SkipWaiting(context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	return nil
}

func (l *countingLifecycle) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

const testScope = "scope_alice"

// scriptedClient answers REQUEST_SYNC with a fixed reply, or not at all when
// reply is nil.
type scriptedClient struct {
	id     string
	scope  string
	reply  *offlinecache.Message
	posted chan offlinecache.Message
}

func newScriptedClient(id string, reply *offlinecache.Message) *scriptedClient {
	return newScopedClient(id, testScope, reply)
}

func newScopedClient(id, scope string, reply *offlinecache.Message) *scriptedClient {
	return &scriptedClient{id: id, scope: scope, reply: reply, posted: make(chan offlinecache.Message, 4)}
}

func (c *scriptedClient) ID() string { return c.id }

func (c *scriptedClient) PostMessage(ctx context.Context, msg offlinecache.Message, transfer *duplex.Port[offlinecache.Message]) error {
	c.posted <- msg
	if c.reply != nil && transfer != nil {
		reply := *c.reply
		go func() { _ = transfer.Post(context.Background(), reply) }()
	}
	return nil
}

type fakeClients struct {
	mu         sync.Mutex
	clients    []offlinecache.Client
	lastOpts   offlinecache.MatchOptions
	claimedBy  []string
	claimError error
}

func (f *fakeClients) MatchAll(ctx context.Context, opts offlinecache.MatchOptions) ([]offlinecache.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastOpts = opts
	var out []offlinecache.Client
	for _, c := range f.clients {
		if sc, ok := c.(*scriptedClient); ok && sc.scope != opts.Scope {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeClients) Claim(ctx context.Context, controller string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claimedBy = append(f.claimedBy, controller)
	return f.claimError
}

// faultyStorage wraps a memory storage and fails the operations whose error
// field is set.
type faultyStorage struct {
	*cache.MemoryCacheStorage

	mu      sync.Mutex
	openErr error
	keysErr error
	putErr  error
}

func (s *faultyStorage) failOpen(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openErr = err
}

func (s *faultyStorage) failKeys(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keysErr = err
}

func (s *faultyStorage) failPut(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putErr = err
}

func (s *faultyStorage) Open(ctx context.Context, name string) (offlinecache.Cache, error) {
	s.mu.Lock()
	openErr, putErr := s.openErr, s.putErr
	s.mu.Unlock()
	if openErr != nil {
		return nil, openErr
	}
	c, err := s.MemoryCacheStorage.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return faultyCache{Cache: c, putErr: putErr}, nil
}

func (s *faultyStorage) Keys(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	keysErr := s.keysErr
	s.mu.Unlock()
	if keysErr != nil {
		return nil, keysErr
	}
	return s.MemoryCacheStorage.Keys(ctx)
}

type faultyCache struct {
	offlinecache.Cache
	putErr error
}

func (c faultyCache) Put(ctx context.Context, key string, resp *offlinecache.Response) error {
	if c.putErr != nil {
		return c.putErr
	}
	return c.Cache.Put(ctx, key, resp)
}

var errStorage = errors.New("storage unavailable")

type harness struct {
	worker    *offlinecache.Worker
	storage   *cache.MemoryCacheStorage
	faults    *faultyStorage
	network   *fakeNetwork
	clients   *fakeClients
	lifecycle *countingLifecycle
	clock     *testingclock.FakeClock
}

func newHarness(t *testing.T, version string) *harness {
	t.Helper()
	originURL, err := url.Parse(origin)
	require.NoError(t, err)

	storage := cache.NewMemoryCacheStorage()
	h := &harness{
		storage:   storage,
		faults:    &faultyStorage{MemoryCacheStorage: storage},
		network:   newFakeNetwork(),
		clients:   &fakeClients{},
		lifecycle: &countingLifecycle{},
		clock:     testingclock.NewFakeClock(time.UnixMilli(1_700_000_000_000)),
	}
	h.worker = offlinecache.NewWorker(offlinecache.Config{
		Version: version,
		Origin:  originURL,
	}, offlinecache.Dependencies{
		Storage:   h.faults,
		Network:   h.network,
		Clients:   h.clients,
		Lifecycle: h.lifecycle,
		Clock:     h.clock,
	})
	return h
}

func get(t *testing.T, rawURL string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, rawURL, nil)
	require.NoError(t, err)
	return req
}

func (h *harness) cached(t *testing.T, cacheName, key string) (*offlinecache.Response, bool) {
	t.Helper()
	c, err := h.storage.Open(context.Background(), cacheName)
	require.NoError(t, err)
	resp, ok, err := c.Match(context.Background(), key)
	require.NoError(t, err)
	return resp, ok
}
