package backgroundsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mileusna/crontab"
	"inspectra.app/offline-gateway/app/domain/query"
	"inspectra.app/offline-gateway/app/utils/logger"
	"inspectra.app/offline-gateway/config/environment_variables"
	"k8s.io/apimachinery/pkg/util/wait"
	"k8s.io/utils/clock"
)

const (
	DefaultMaxAttempts = 3
	DefaultRetryBase   = 5 * time.Minute
	RetryFactor        = 3.0
)

var (
	ErrEmptyTag             = errors.New("backgroundsync: tag must not be empty")
	ErrEmptyScope           = errors.New("backgroundsync: client scope must not be empty")
	ErrRegistrationNotFound = errors.New("backgroundsync: registration not found")
)

// Dispatcher delivers a sync event for tag to the active worker, which asks a
// client of scope to replay its queue.
type Dispatcher interface {
	DispatchSync(ctx context.Context, scope, tag string) error
}

type Config struct {
	MaxAttempts int
	RetryBase   time.Duration
}

func NewConfigFromEnvironment() Config {
	return Config{
		MaxAttempts: environment_variables.EnvironmentVariables.SYNC_MAX_ATTEMPTS,
		RetryBase:   environment_variables.EnvironmentVariables.SYNC_RETRY_BASE,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.RetryBase <= 0 {
		c.RetryBase = DefaultRetryBase
	}
	return c
}

// Manager persists sync registrations and fires them until the worker
// accepts them or they run out of attempts.
type Manager struct {
	repo       Repository
	dispatcher Dispatcher
	clock      clock.Clock
	config     Config

	background sync.WaitGroup
}

func NewManager(repo Repository, dispatcher Dispatcher, clk clock.Clock, config Config) *Manager {
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Manager{
		repo:       repo,
		dispatcher: dispatcher,
		clock:      clk,
		config:     config.withDefaults(),
	}
}

// Register records a sync request for tag by scope and fires it in the
// background. An open registration for the same scope and tag is reused.
func (m *Manager) Register(ctx context.Context, scope, tag string) (*Registration, error) {
	if scope == "" {
		return nil, ErrEmptyScope
	}
	if tag == "" {
		return nil, ErrEmptyTag
	}
	existing, err := m.repo.FindByFilter(ctx, RegistrationFilter{
		Scope:  &scope,
		Tag:    &tag,
		States: []State{StatePending, StateFiring},
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("find registrations: %w", err)
	}

	var reg *Registration
	if len(existing) > 0 {
		reg = existing[0]
		if reg.State == StateFiring {
			return reg, nil
		}
	} else {
		now := m.clock.Now()
		reg = &Registration{
			Scope:         scope,
			Tag:           tag,
			State:         StatePending,
			NextAttemptAt: now,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := m.repo.Create(ctx, reg); err != nil {
			return nil, fmt.Errorf("create registration: %w", err)
		}
		logger.GetLogger().Infof("backgroundsync: registered %q (id %d)", tag, reg.ID)
	}

	bg := context.WithoutCancel(ctx)
	id := reg.ID
	m.background.Add(1)
	go func() {
		defer m.background.Done()
		if err := m.Fire(bg, id); err != nil {
			logger.GetLogger().WithField("error_code", "8e3f1b6d-2c9a-4d57-b0e4-6a1c7f9d2e38").
				Warnf("backgroundsync: firing registration %d failed: %v", id, err)
		}
	}()
	return reg, nil
}

// Fire runs one attempt of the registration. Rejections by the worker are
// recorded and scheduled for retry, they are not returned as errors.
func (m *Manager) Fire(ctx context.Context, id uint) error {
	reg, claimed, err := m.repo.Claim(ctx, id)
	if err != nil {
		return fmt.Errorf("claim registration: %w", err)
	}
	if !claimed {
		return nil
	}

	lastChance := reg.Attempts >= m.config.MaxAttempts
	log := logger.GetLogger().WithField("sync_tag", reg.Tag).WithField("attempt", reg.Attempts)
	if lastChance {
		log.Info("backgroundsync: last chance")
	}

	attempt := &Attempt{
		RegistrationID: reg.ID,
		Tag:            reg.Tag,
		Number:         reg.Attempts,
		LastChance:     lastChance,
		StartedAt:      m.clock.Now(),
	}
	dispatchErr := m.dispatcher.DispatchSync(ctx, reg.Scope, reg.Tag)
	attempt.FinishedAt = m.clock.Now()

	switch {
	case dispatchErr == nil:
		attempt.Outcome = OutcomeCompleted
		reg.State = StateCompleted
		reg.LastError = ""
		log.Info("backgroundsync: completed")
	case lastChance:
		attempt.Outcome = OutcomeRejected
		attempt.Error = dispatchErr.Error()
		reg.State = StateFailed
		reg.LastError = dispatchErr.Error()
		log.WithField("error_code", "c2a7e9f4-1b3d-4a86-9f05-d8e6b4c1a3f7").
			Warnf("backgroundsync: giving up: %v", dispatchErr)
	default:
		attempt.Outcome = OutcomeRejected
		attempt.Error = dispatchErr.Error()
		reg.State = StatePending
		reg.LastError = dispatchErr.Error()
		reg.NextAttemptAt = attempt.FinishedAt.Add(m.retryDelay(reg.Attempts))
		log.Warnf("backgroundsync: rejected, retrying at %s: %v", reg.NextAttemptAt.Format(time.RFC3339), dispatchErr)
	}
	reg.UpdatedAt = attempt.FinishedAt

	if err := m.repo.CreateAttempt(ctx, attempt); err != nil {
		log.WithField("error_code", "5f8b2d1e-7a4c-4e93-b6d0-3c9e1f7a2b54").
			Warnf("backgroundsync: failed to record attempt: %v", err)
	}
	if err := m.repo.Update(ctx, reg); err != nil {
		return fmt.Errorf("update registration: %w", err)
	}
	return nil
}

// retryDelay is the wait after the given number of rejected attempts:
// base, base*3, base*9 and so on.
func (m *Manager) retryDelay(attempts int) time.Duration {
	backoff := wait.Backoff{
		Duration: m.config.RetryBase,
		Factor:   RetryFactor,
		Steps:    m.config.MaxAttempts,
	}
	var delay time.Duration
	for i := 0; i < attempts; i++ {
		delay = backoff.Step()
	}
	return delay
}

// RunDue fires every pending registration whose retry time has come and
// returns how many were fired.
func (m *Manager) RunDue(ctx context.Context) (int, error) {
	now := m.clock.Now()
	due, err := m.repo.FindByFilter(ctx, RegistrationFilter{
		States:    []State{StatePending},
		DueBefore: &now,
	}, nil)
	if err != nil {
		return 0, fmt.Errorf("find due registrations: %w", err)
	}
	fired := 0
	for _, reg := range due {
		if err := m.Fire(ctx, reg.ID); err != nil {
			logger.GetLogger().WithField("error_code", "a94d6c2b-3e1f-4b78-8d5a-0f7c2e9b6d13").
				Warnf("backgroundsync: firing registration %d failed: %v", reg.ID, err)
			continue
		}
		fired++
	}
	return fired, nil
}

// Recover returns registrations left firing by a previous process to pending.
func (m *Manager) Recover(ctx context.Context) error {
	stuck, err := m.repo.FindByFilter(ctx, RegistrationFilter{States: []State{StateFiring}}, nil)
	if err != nil {
		return err
	}
	now := m.clock.Now()
	for _, reg := range stuck {
		reg.State = StatePending
		reg.NextAttemptAt = now
		reg.UpdatedAt = now
		if err := m.repo.Update(ctx, reg); err != nil {
			return err
		}
		logger.GetLogger().Infof("backgroundsync: recovered registration %d (%s)", reg.ID, reg.Tag)
	}
	return nil
}

func (m *Manager) Start(ctx context.Context, ctab *crontab.Crontab) error {
	if err := m.Recover(ctx); err != nil {
		logger.GetLogger().WithField("error_code", "e61b9f3a-4d2c-4a07-b8e5-7c1d3f6a9e20").
			Warnf("backgroundsync: recover failed: %v", err)
	}
	return ctab.AddJob("* * * * *", func() {
		if _, err := m.RunDue(ctx); err != nil {
			logger.GetLogger().WithField("error_code", "3b7e2a9c-6f1d-4c58-a0b4-e9d5f2c8a163").
				Warnf("backgroundsync: cron run failed: %v", err)
		}
	})
}

// List returns the registrations made by scope.
func (m *Manager) List(ctx context.Context, scope string, p *query.Pagination) ([]*Registration, error) {
	if scope == "" {
		return nil, ErrEmptyScope
	}
	return m.repo.FindByFilter(ctx, RegistrationFilter{Scope: &scope}, p)
}

// Get returns a registration of scope with its attempts. Registrations of
// other scopes are reported as ErrRegistrationNotFound.
func (m *Manager) Get(ctx context.Context, scope string, id uint) (*Registration, []*Attempt, error) {
	reg, err := m.repo.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if scope == "" || reg.Scope != scope {
		return nil, nil, ErrRegistrationNotFound
	}
	attempts, err := m.repo.FindAttempts(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return reg, attempts, nil
}

// Settle waits for fires started by Register.
func (m *Manager) Settle() {
	m.background.Wait()
}
