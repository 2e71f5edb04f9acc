package backgroundsync

import (
	"context"
	"time"

	"inspectra.app/offline-gateway/app/domain/query"
)

type State string

const (
	StatePending   State = "pending"
	StateFiring    State = "firing"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeRejected  Outcome = "rejected"
)

// Registration is one deferred-sync request for a tag, made by the pages of
// one client scope.
type Registration struct {
	ID            uint      `json:"id"`
	Scope         string    `json:"-"`
	Tag           string    `json:"tag"`
	State         State     `json:"state"`
	Attempts      int       `json:"attempts"`
	NextAttemptAt time.Time `json:"next_attempt_at"`
	LastError     string    `json:"last_error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Attempt is the audit record of one firing.
type Attempt struct {
	ID             uint      `json:"id"`
	RegistrationID uint      `json:"registration_id"`
	Tag            string    `json:"tag"`
	Number         int       `json:"number"`
	LastChance     bool      `json:"last_chance"`
	Outcome        Outcome   `json:"outcome"`
	Error          string    `json:"error,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

type RegistrationFilter struct {
	Scope     *string
	Tag       *string
	States    []State
	DueBefore *time.Time
}

type Repository interface {
	Create(ctx context.Context, r *Registration) error
	Update(ctx context.Context, r *Registration) error
	FindByID(ctx context.Context, id uint) (*Registration, error)
	FindByFilter(ctx context.Context, filter RegistrationFilter, p *query.Pagination) ([]*Registration, error)
	// Claim moves a pending registration to firing and counts the attempt.
	// It reports false when the registration was not pending.
	Claim(ctx context.Context, id uint) (*Registration, bool, error)
	CreateAttempt(ctx context.Context, a *Attempt) error
	FindAttempts(ctx context.Context, registrationID uint) ([]*Attempt, error)
}
