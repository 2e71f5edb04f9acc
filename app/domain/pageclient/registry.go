// Package pageclient tracks page instances connected to the gateway and
// carries worker messages to them.
package pageclient

import (
	"context"
	"errors"
	"sync"
	"time"

	"inspectra.app/offline-gateway/app/domain/offlinecache"
	"inspectra.app/offline-gateway/app/utils/duplex"
	"inspectra.app/offline-gateway/app/utils/idgen"
	"inspectra.app/offline-gateway/app/utils/logger"
	"k8s.io/utils/clock"
)

var (
	ErrClientGone  = errors.New("pageclient: client disconnected")
	ErrUnknownPort = errors.New("pageclient: unknown or already answered port")
	ErrNoScope     = errors.New("pageclient: client scope is required")
)

const eventBuffer = 8

// Envelope is what a page receives: the message plus the id of the port it
// should answer on, if one was transferred.
type Envelope struct {
	offlinecache.Message
	Port string `json:"port,omitempty"`
}

type ClientInfo struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Controller  string    `json:"controller,omitempty"`
	ConnectedAt time.Time `json:"connected_at"`
}

type Registry struct {
	mu      sync.RWMutex
	order   []string
	clients map[string]*PageClient
	ports   map[string]*duplex.Port[offlinecache.Message]
	clock   clock.PassiveClock

	// controller is given to pages connecting after a claim.
	controller string
}

func NewRegistry(clk clock.Clock) *Registry {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Registry{
		clients: make(map[string]*PageClient),
		ports:   make(map[string]*duplex.Port[offlinecache.Message]),
		clock:   clk,
	}
}

// Connect registers a page loaded from url by the browser session scope. It
// is controlled by the last worker to claim clients, if any.
func (r *Registry) Connect(url, scope string) (*PageClient, error) {
	if scope == "" {
		return nil, ErrNoScope
	}
	id, err := idgen.GenerateClientID()
	if err != nil {
		return nil, err
	}
	c := &PageClient{
		id:          id,
		url:         url,
		scope:       scope,
		connectedAt: r.clock.Now(),
		events:      make(chan Envelope, eventBuffer),
		gone:        make(chan struct{}),
		registry:    r,
	}
	r.mu.Lock()
	c.controller = r.controller
	r.clients[id] = c
	r.order = append(r.order, id)
	r.mu.Unlock()
	logger.GetLogger().Debugf("pageclient: %s connected from %s", id, url)
	return c, nil
}

// Disconnect forgets the client. Pending posts to it fail with ErrClientGone.
func (r *Registry) Disconnect(id string) {
	r.mu.Lock()
	c, ok := r.clients[id]
	if ok {
		delete(r.clients, id)
		for i, v := range r.order {
			if v == id {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}
	r.mu.Unlock()
	if ok {
		c.closeOnce.Do(func() { close(c.gone) })
		logger.GetLogger().Debugf("pageclient: %s disconnected", id)
	}
}

func (r *Registry) MatchAll(ctx context.Context, opts offlinecache.MatchOptions) ([]offlinecache.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]offlinecache.Client, 0, len(r.order))
	for _, id := range r.order {
		c := r.clients[id]
		if c.scope != opts.Scope {
			continue
		}
		if !opts.IncludeUncontrolled && c.controller == "" {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *Registry) Claim(ctx context.Context, controller string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.controller = controller
	for _, c := range r.clients {
		c.controller = controller
	}
	return nil
}

func (r *Registry) List() []ClientInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ClientInfo, 0, len(r.order))
	for _, id := range r.order {
		c := r.clients[id]
		out = append(out, ClientInfo{ID: c.id, URL: c.url, Controller: c.controller, ConnectedAt: c.connectedAt})
	}
	return out
}

// Reply delivers a page's answer on a previously transferred port. Each port
// accepts a single reply.
func (r *Registry) Reply(ctx context.Context, portID string, msg offlinecache.Message) error {
	r.mu.Lock()
	port, ok := r.ports[portID]
	delete(r.ports, portID)
	r.mu.Unlock()
	if !ok {
		return ErrUnknownPort
	}
	return port.Post(ctx, msg)
}

func (r *Registry) addPort(port *duplex.Port[offlinecache.Message]) (string, error) {
	id, err := idgen.GeneratePortID()
	if err != nil {
		return "", err
	}
	r.mu.Lock()
	r.ports[id] = port
	r.mu.Unlock()
	go func() {
		<-port.Done()
		r.dropPort(id)
	}()
	return id, nil
}

func (r *Registry) dropPort(id string) {
	r.mu.Lock()
	delete(r.ports, id)
	r.mu.Unlock()
}

func (r *Registry) PendingPorts() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ports)
}

// PageClient is one connected page instance.
type PageClient struct {
	id          string
	url         string
	scope       string
	controller  string
	connectedAt time.Time
	events      chan Envelope
	gone        chan struct{}
	closeOnce   sync.Once
	registry    *Registry
}

func (c *PageClient) ID() string { return c.id }

// Events yields the envelopes posted to this client, in order.
func (c *PageClient) Events() <-chan Envelope { return c.events }

// Gone is closed once the client has disconnected.
func (c *PageClient) Gone() <-chan struct{} { return c.gone }

func (c *PageClient) PostMessage(ctx context.Context, msg offlinecache.Message, transfer *duplex.Port[offlinecache.Message]) error {
	select {
	case <-c.gone:
		return ErrClientGone
	default:
	}
	env := Envelope{Message: msg}
	if transfer != nil {
		id, err := c.registry.addPort(transfer)
		if err != nil {
			return err
		}
		env.Port = id
	}
	select {
	case c.events <- env:
		return nil
	case <-c.gone:
		if env.Port != "" {
			c.registry.dropPort(env.Port)
		}
		return ErrClientGone
	case <-ctx.Done():
		if env.Port != "" {
			c.registry.dropPort(env.Port)
		}
		return ctx.Err()
	}
}
