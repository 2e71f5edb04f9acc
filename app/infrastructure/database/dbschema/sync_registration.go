package dbschema

import (
	"time"

	"inspectra.app/offline-gateway/app/domain/backgroundsync"
	"inspectra.app/offline-gateway/app/infrastructure/database"
)

func init() {
	database.RegisterSchemaForAutoMigrate(SyncRegistration{}, SyncAttempt{})
}

type SyncRegistration struct {
	BaseModel
	Scope         string    `gorm:"size:64;not null;default:'';index:idx_sync_tag_state"`
	Tag           string    `gorm:"size:255;not null;index:idx_sync_tag_state"`
	State         string    `gorm:"size:32;not null;index:idx_sync_tag_state;index:idx_sync_state_next"`
	Attempts      int       `gorm:"not null;default:0"`
	NextAttemptAt time.Time `gorm:"index:idx_sync_state_next"`
	LastError     string    `gorm:"type:text"`
}

func (SyncRegistration) TableName() string {
	return "sync_registrations"
}

func NewSchemaSyncRegistration(r *backgroundsync.Registration) *SyncRegistration {
	return &SyncRegistration{
		BaseModel: BaseModel{
			ID:        r.ID,
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		},
		Scope:         r.Scope,
		Tag:           r.Tag,
		State:         string(r.State),
		Attempts:      r.Attempts,
		NextAttemptAt: r.NextAttemptAt.UTC(),
		LastError:     r.LastError,
	}
}

func (s *SyncRegistration) EtoD() *backgroundsync.Registration {
	return &backgroundsync.Registration{
		ID:            s.ID,
		Scope:         s.Scope,
		Tag:           s.Tag,
		State:         backgroundsync.State(s.State),
		Attempts:      s.Attempts,
		NextAttemptAt: s.NextAttemptAt,
		LastError:     s.LastError,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

// SyncAttempt is the audit trail of every firing.
type SyncAttempt struct {
	BaseModel
	RegistrationID uint   `gorm:"not null;index"`
	Tag            string `gorm:"size:255;not null"`
	Number         int    `gorm:"not null"`
	LastChance     bool
	Outcome        string `gorm:"size:32;not null"`
	Error          string `gorm:"type:text"`
	StartedAt      time.Time
	FinishedAt     time.Time
}

func (SyncAttempt) TableName() string {
	return "sync_attempts"
}

func NewSchemaSyncAttempt(a *backgroundsync.Attempt) *SyncAttempt {
	return &SyncAttempt{
		BaseModel: BaseModel{
			ID: a.ID,
		},
		RegistrationID: a.RegistrationID,
		Tag:            a.Tag,
		Number:         a.Number,
		LastChance:     a.LastChance,
		Outcome:        string(a.Outcome),
		Error:          a.Error,
		StartedAt:      a.StartedAt,
		FinishedAt:     a.FinishedAt,
	}
}

func (a *SyncAttempt) EtoD() *backgroundsync.Attempt {
	return &backgroundsync.Attempt{
		ID:             a.ID,
		RegistrationID: a.RegistrationID,
		Tag:            a.Tag,
		Number:         a.Number,
		LastChance:     a.LastChance,
		Outcome:        backgroundsync.Outcome(a.Outcome),
		Error:          a.Error,
		StartedAt:      a.StartedAt,
		FinishedAt:     a.FinishedAt,
	}
}
