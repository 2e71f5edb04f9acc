package offlinecache

import (
	"context"
	"net/http"
	"sync"
	"time"

	"inspectra.app/offline-gateway/app/utils/logger"
	"k8s.io/utils/clock"
)

type WorkerState string

const (
	WorkerStateInstalling WorkerState = "installing"
	WorkerStateInstalled  WorkerState = "installed"
	WorkerStateActivating WorkerState = "activating"
	WorkerStateActivated  WorkerState = "activated"
	WorkerStateRedundant  WorkerState = "redundant"
)

const activationLockName = "offline:activation"

type hostedWorker struct {
	worker      *Worker
	state       WorkerState
	skipWaiting bool
	installedAt time.Time
	activatedAt time.Time
}

// hostLifecycle is the Lifecycle handed to a hosted worker; its SkipWaiting
// only ever promotes that worker.
type hostLifecycle struct {
	registration *Registration
	hosted       *hostedWorker
}

func (l hostLifecycle) SkipWaiting(ctx context.Context) error {
	return l.registration.skipWaitingFor(ctx, l.hosted)
}

type WorkerStatus struct {
	Version     string      `json:"version"`
	State       WorkerState `json:"state"`
	InstalledAt *time.Time  `json:"installed_at,omitempty"`
	ActivatedAt *time.Time  `json:"activated_at,omitempty"`
}

type RegistrationStatus struct {
	Installing *WorkerStatus `json:"installing,omitempty"`
	Waiting    *WorkerStatus `json:"waiting,omitempty"`
	Active     *WorkerStatus `json:"active,omitempty"`
}

// Registration hosts worker versions and drives their lifecycle: at most one
// worker installing, one waiting and one active.
type Registration struct {
	mu         sync.Mutex
	installing *hostedWorker
	waiting    *hostedWorker
	active     *hostedWorker

	locker  Locker
	network Fetcher
	clock   clock.Clock
}

func NewRegistration(locker Locker, network Fetcher, clk clock.Clock) *Registration {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Registration{
		locker:  locker,
		network: network,
		clock:   clk,
	}
}

// Register installs w and activates it when it asked to skip waiting or when
// nothing is active yet.
func (r *Registration) Register(ctx context.Context, w *Worker) error {
	r.mu.Lock()
	if r.installing != nil {
		r.mu.Unlock()
		return ErrInstallInProgress
	}
	h := &hostedWorker{worker: w, state: WorkerStateInstalling}
	r.installing = h
	w.lifecycle = hostLifecycle{registration: r, hosted: h}
	r.mu.Unlock()

	if err := w.OnInstall(ctx); err != nil {
		r.mu.Lock()
		h.state = WorkerStateRedundant
		r.installing = nil
		r.mu.Unlock()
		return err
	}

	r.mu.Lock()
	r.installing = nil
	if r.waiting != nil {
		r.waiting.state = WorkerStateRedundant
	}
	h.state = WorkerStateInstalled
	h.installedAt = r.clock.Now()
	r.waiting = h
	activate := h.skipWaiting || r.active == nil
	r.mu.Unlock()

	logger.GetLogger().Infof("registration: worker %s installed", w.Version())
	if !activate {
		return nil
	}
	return r.activateWaiting(ctx)
}

// SkipWaiting promotes whichever worker is waiting.
func (r *Registration) SkipWaiting(ctx context.Context) error {
	return r.activateWaiting(ctx)
}

func (r *Registration) skipWaitingFor(ctx context.Context, h *hostedWorker) error {
	r.mu.Lock()
	switch {
	case r.installing == h:
		h.skipWaiting = true
		r.mu.Unlock()
		return nil
	case r.waiting == h:
		r.mu.Unlock()
		return r.activateWaiting(ctx)
	default:
		r.mu.Unlock()
		return nil
	}
}

func (r *Registration) activateWaiting(ctx context.Context) error {
	unlock, err := r.locker.Lock(ctx, activationLockName)
	if err != nil {
		return err
	}
	defer unlock()

	r.mu.Lock()
	h := r.waiting
	if h == nil {
		r.mu.Unlock()
		return nil
	}
	r.waiting = nil
	h.state = WorkerStateActivating
	previous := r.active
	r.mu.Unlock()

	activateErr := h.worker.OnActivate(ctx)

	r.mu.Lock()
	if previous != nil {
		previous.state = WorkerStateRedundant
	}
	h.state = WorkerStateActivated
	h.activatedAt = r.clock.Now()
	r.active = h
	r.mu.Unlock()

	if activateErr != nil {
		logger.GetLogger().WithField("error_code", "a6f2d8c1-5e3b-4097-b4c9-0d7e1a8f3b52").
			Warnf("registration: worker %s activated with errors: %v", h.worker.Version(), activateErr)
		return activateErr
	}
	logger.GetLogger().Infof("registration: worker %s activated", h.worker.Version())
	return nil
}

// Active returns the worker controlling requests, or nil.
func (r *Registration) Active() *Worker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return nil
	}
	return r.active.worker
}

func (r *Registration) Status() RegistrationStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RegistrationStatus{
		Installing: r.installing.status(),
		Waiting:    r.waiting.status(),
		Active:     r.active.status(),
	}
}

func (h *hostedWorker) status() *WorkerStatus {
	if h == nil {
		return nil
	}
	s := &WorkerStatus{Version: h.worker.Version(), State: h.state}
	if !h.installedAt.IsZero() {
		t := h.installedAt
		s.InstalledAt = &t
	}
	if !h.activatedAt.IsZero() {
		t := h.activatedAt
		s.ActivatedAt = &t
	}
	return s
}

// Fetch delivers a fetch event to the active worker. Without one the request
// goes straight to the network.
func (r *Registration) Fetch(ctx context.Context, req *http.Request) (*Response, error) {
	if w := r.Active(); w != nil {
		return w.OnFetch(ctx, req)
	}
	return r.network.Fetch(ctx, req)
}

// DispatchSync fires a background-sync tag registered by scope on the active
// worker.
func (r *Registration) DispatchSync(ctx context.Context, scope, tag string) error {
	w := r.Active()
	if w == nil {
		return ErrNoActiveWorker
	}
	return w.OnSync(ctx, scope, tag)
}

// PostMessage delivers a direct message to the waiting worker if there is
// one, otherwise to the active worker.
func (r *Registration) PostMessage(ctx context.Context, msg Message) error {
	r.mu.Lock()
	target := r.waiting
	if target == nil {
		target = r.active
	}
	r.mu.Unlock()
	if target == nil {
		return ErrNoActiveWorker
	}
	return target.worker.OnMessage(ctx, msg)
}

// Settle waits for background work of every hosted worker.
func (r *Registration) Settle() {
	r.mu.Lock()
	hosted := []*hostedWorker{r.installing, r.waiting, r.active}
	r.mu.Unlock()
	for _, h := range hosted {
		if h != nil {
			h.worker.Settle()
		}
	}
}
