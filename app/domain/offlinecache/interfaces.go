package offlinecache

import (
	"context"
	"net/http"

	"inspectra.app/offline-gateway/app/utils/duplex"
)

// Cache is one named bucket of request URL -> response.
type Cache interface {
	Name() string
	Match(ctx context.Context, key string) (*Response, bool, error)
	Put(ctx context.Context, key string, resp *Response) error
	Delete(ctx context.Context, key string) (bool, error)
	Keys(ctx context.Context) ([]string, error)
}

// CacheStorage owns every named cache for the origin. It is shared by all
// worker versions.
type CacheStorage interface {
	// Open returns the named cache, creating it if needed.
	Open(ctx context.Context, name string) (Cache, error)
	Has(ctx context.Context, name string) (bool, error)
	Delete(ctx context.Context, name string) (bool, error)
	// Keys lists cache names in creation order.
	Keys(ctx context.Context) ([]string, error)
	// Match looks key up in every cache, in creation order.
	Match(ctx context.Context, key string) (*Response, bool, error)
}

// Fetcher is the network boundary.
type Fetcher interface {
	Fetch(ctx context.Context, req *http.Request) (*Response, error)
}

type ClientType string

const ClientTypeWindow ClientType = "window"

type MatchOptions struct {
	IncludeUncontrolled bool
	Type                ClientType
	// Scope limits matches to clients of one browser session. Clients are
	// never matched across scopes.
	Scope string
}

// Client is a page instance the worker can message.
type Client interface {
	ID() string
	PostMessage(ctx context.Context, msg Message, transfer *duplex.Port[Message]) error
}

type Clients interface {
	MatchAll(ctx context.Context, opts MatchOptions) ([]Client, error)
	// Claim makes controller the controller of every open client.
	Claim(ctx context.Context, controller string) error
}

// Lifecycle is the host side of the waiting-to-active transition.
type Lifecycle interface {
	SkipWaiting(ctx context.Context) error
}

// Locker serialises activation across processes sharing one CacheStorage.
type Locker interface {
	Lock(ctx context.Context, name string) (unlock func(), err error)
}
