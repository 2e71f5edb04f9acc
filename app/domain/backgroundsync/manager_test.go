package backgroundsync

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/mileusna/crontab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"inspectra.app/offline-gateway/app/domain/query"
	testingclock "k8s.io/utils/clock/testing"
)

type memoryRepository struct {
	mu            sync.Mutex
	nextID        uint
	registrations map[uint]Registration
	attempts      []Attempt
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{registrations: make(map[uint]Registration)}
}

func (r *memoryRepository) Create(ctx context.Context, reg *Registration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	reg.ID = r.nextID
	r.registrations[reg.ID] = *reg
	return nil
}

func (r *memoryRepository) Update(ctx context.Context, reg *Registration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registrations[reg.ID] = *reg
	return nil
}

func (r *memoryRepository) FindByID(ctx context.Context, id uint) (*Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.registrations[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return &reg, nil
}

func (r *memoryRepository) FindByFilter(ctx context.Context, filter RegistrationFilter, p *query.Pagination) ([]*Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Registration, 0)
	for id := uint(1); id <= r.nextID; id++ {
		reg, ok := r.registrations[id]
		if !ok {
			continue
		}
		if filter.Scope != nil && reg.Scope != *filter.Scope {
			continue
		}
		if filter.Tag != nil && reg.Tag != *filter.Tag {
			continue
		}
		if len(filter.States) > 0 && !slices.Contains(filter.States, reg.State) {
			continue
		}
		if filter.DueBefore != nil && reg.NextAttemptAt.After(*filter.DueBefore) {
			continue
		}
		out = append(out, &reg)
	}
	return out, nil
}

func (r *memoryRepository) Claim(ctx context.Context, id uint) (*Registration, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.registrations[id]
	if !ok || reg.State != StatePending {
		return nil, false, nil
	}
	reg.State = StateFiring
	reg.Attempts++
	r.registrations[id] = reg
	return &reg, true, nil
}

func (r *memoryRepository) CreateAttempt(ctx context.Context, a *Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.ID = uint(len(r.attempts) + 1)
	r.attempts = append(r.attempts, *a)
	return nil
}

func (r *memoryRepository) FindAttempts(ctx context.Context, registrationID uint) ([]*Attempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Attempt, 0)
	for i := range r.attempts {
		if r.attempts[i].RegistrationID == registrationID {
			a := r.attempts[i]
			out = append(out, &a)
		}
	}
	return out, nil
}

const testScope = "scope_alice"

type scriptedDispatcher struct {
	mu      sync.Mutex
	results []error
	tags    []string
	scopes  []string
}

func (d *scriptedDispatcher) DispatchSync(ctx context.Context, scope, tag string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tags = append(d.tags, tag)
	d.scopes = append(d.scopes, scope)
	if len(d.results) == 0 {
		return nil
	}
	err := d.results[0]
	d.results = d.results[1:]
	return err
}

func (d *scriptedDispatcher) calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tags)
}

var errRejected = errors.New("sync partially failed")

func newTestManager(results ...error) (*Manager, *memoryRepository, *scriptedDispatcher, *testingclock.FakeClock) {
	repo := newMemoryRepository()
	dispatcher := &scriptedDispatcher{results: results}
	clk := testingclock.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))
	return NewManager(repo, dispatcher, clk, Config{}), repo, dispatcher, clk
}

func TestRegisterFiresImmediately(t *testing.T) {
	m, repo, dispatcher, _ := newTestManager()
	ctx := context.Background()

	reg, err := m.Register(ctx, testScope, "sync-inspections")
	require.NoError(t, err)
	m.Settle()

	assert.Equal(t, []string{"sync-inspections"}, dispatcher.tags)
	stored, attempts, err := m.Get(ctx, testScope, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, stored.State)
	assert.Equal(t, 1, stored.Attempts)
	require.Len(t, attempts, 1)
	assert.Equal(t, OutcomeCompleted, attempts[0].Outcome)
	assert.False(t, attempts[0].LastChance)
	assert.Len(t, repo.attempts, 1)
}

func TestRegisterRejectsEmptyTag(t *testing.T) {
	m, _, _, _ := newTestManager()

	_, err := m.Register(context.Background(), testScope, "")
	assert.ErrorIs(t, err, ErrEmptyTag)
}

func TestRegisterRejectsEmptyScope(t *testing.T) {
	m, _, dispatcher, _ := newTestManager()

	_, err := m.Register(context.Background(), "", "sync-inspections")
	assert.ErrorIs(t, err, ErrEmptyScope)
	assert.Zero(t, dispatcher.calls())
}

func TestRegistrationsAreKeptPerScope(t *testing.T) {
	m, _, dispatcher, _ := newTestManager(errRejected, errRejected)
	ctx := context.Background()

	alice, err := m.Register(ctx, "scope_alice", "sync-inspections")
	require.NoError(t, err)
	m.Settle()
	bob, err := m.Register(ctx, "scope_bob", "sync-inspections")
	require.NoError(t, err)
	m.Settle()

	assert.NotEqual(t, alice.ID, bob.ID)
	assert.Equal(t, []string{"scope_alice", "scope_bob"}, dispatcher.scopes)

	regs, err := m.List(ctx, "scope_bob", nil)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, bob.ID, regs[0].ID)

	_, _, err = m.Get(ctx, "scope_bob", alice.ID)
	assert.ErrorIs(t, err, ErrRegistrationNotFound)
	_, _, err = m.Get(ctx, "", alice.ID)
	assert.ErrorIs(t, err, ErrRegistrationNotFound)

	fired, err := m.RunDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, fired)
}

func TestRegisterReusesOpenRegistration(t *testing.T) {
	m, _, dispatcher, _ := newTestManager(errRejected, nil)
	ctx := context.Background()

	first, err := m.Register(ctx, testScope, "sync-inspections")
	require.NoError(t, err)
	m.Settle()

	second, err := m.Register(ctx, testScope, "sync-inspections")
	require.NoError(t, err)
	m.Settle()

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, dispatcher.calls())
	regs, err := m.List(ctx, testScope, nil)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, StateCompleted, regs[0].State)
}

func TestRejectedSyncIsRetriedWithBackoff(t *testing.T) {
	m, _, dispatcher, clk := newTestManager(errRejected, errRejected, errRejected)
	ctx := context.Background()
	start := clk.Now()

	reg, err := m.Register(ctx, testScope, "sync-inspections")
	require.NoError(t, err)
	m.Settle()

	stored, _, err := m.Get(ctx, testScope, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, StatePending, stored.State)
	assert.Equal(t, start.Add(5*time.Minute), stored.NextAttemptAt)
	assert.Equal(t, errRejected.Error(), stored.LastError)

	clk.Step(4 * time.Minute)
	fired, err := m.RunDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, fired)

	clk.Step(time.Minute)
	fired, err = m.RunDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fired)

	stored, _, err = m.Get(ctx, testScope, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, StatePending, stored.State)
	assert.Equal(t, clk.Now().Add(15*time.Minute), stored.NextAttemptAt)

	clk.Step(15 * time.Minute)
	fired, err = m.RunDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fired)

	stored, attempts, err := m.Get(ctx, testScope, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, StateFailed, stored.State)
	assert.Equal(t, 3, stored.Attempts)
	require.Len(t, attempts, 3)
	assert.False(t, attempts[1].LastChance)
	assert.True(t, attempts[2].LastChance)
	for _, a := range attempts {
		assert.Equal(t, OutcomeRejected, a.Outcome)
	}
	assert.Equal(t, 3, dispatcher.calls())

	clk.Step(time.Hour)
	fired, err = m.RunDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, fired)
}

func TestFireSkipsRegistrationsThatAreNotPending(t *testing.T) {
	m, repo, dispatcher, clk := newTestManager()
	ctx := context.Background()
	reg := &Registration{Scope: testScope, Tag: "sync-inspections", State: StateCompleted, NextAttemptAt: clk.Now()}
	require.NoError(t, repo.Create(ctx, reg))

	require.NoError(t, m.Fire(ctx, reg.ID))
	assert.Zero(t, dispatcher.calls())
}

func TestRecoverResetsFiringRegistrations(t *testing.T) {
	m, repo, dispatcher, clk := newTestManager()
	ctx := context.Background()
	reg := &Registration{Scope: testScope, Tag: "sync-inspections", State: StateFiring, Attempts: 1, NextAttemptAt: clk.Now().Add(-time.Hour)}
	require.NoError(t, repo.Create(ctx, reg))

	require.NoError(t, m.Recover(ctx))
	fired, err := m.RunDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fired)
	assert.Equal(t, 1, dispatcher.calls())

	stored, _, err := m.Get(ctx, testScope, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, stored.State)
	assert.Equal(t, 2, stored.Attempts)
}

func TestRetryDelay(t *testing.T) {
	m := NewManager(newMemoryRepository(), &scriptedDispatcher{}, nil, Config{RetryBase: time.Minute, MaxAttempts: 4})

	assert.Equal(t, time.Duration(0), m.retryDelay(0))
	assert.Equal(t, time.Minute, m.retryDelay(1))
	assert.Equal(t, 3*time.Minute, m.retryDelay(2))
	assert.Equal(t, 9*time.Minute, m.retryDelay(3))
}

func TestStartSchedulesJob(t *testing.T) {
	m, _, _, _ := newTestManager()
	ctab := crontab.New()
	defer ctab.Shutdown()

	assert.NoError(t, m.Start(context.Background(), ctab))
}
