package syncrepo

import (
	"context"
	"errors"

	domain "inspectra.app/offline-gateway/app/domain/backgroundsync"
	"inspectra.app/offline-gateway/app/domain/query"
	"inspectra.app/offline-gateway/app/infrastructure/database/dbschema"
	"inspectra.app/offline-gateway/app/utils/functional"

	"gorm.io/gorm"
	"gorm.io/plugin/dbresolver"
)

type SyncGormRepository struct {
	db *gorm.DB
}

func NewSyncGormRepository(db *gorm.DB) domain.Repository {
	return &SyncGormRepository{
		db: db,
	}
}

// Create implements backgroundsync.Repository.
func (repo *SyncGormRepository) Create(ctx context.Context, r *domain.Registration) error {
	model := dbschema.NewSchemaSyncRegistration(r)
	if err := repo.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	r.ID = model.ID
	r.CreatedAt = model.CreatedAt
	r.UpdatedAt = model.UpdatedAt
	return nil
}

// Update implements backgroundsync.Repository.
func (repo *SyncGormRepository) Update(ctx context.Context, r *domain.Registration) error {
	model := dbschema.NewSchemaSyncRegistration(r)
	return repo.db.WithContext(ctx).Save(model).Error
}

// FindByID implements backgroundsync.Repository.
func (repo *SyncGormRepository) FindByID(ctx context.Context, id uint) (*domain.Registration, error) {
	var model dbschema.SyncRegistration
	if err := repo.db.WithContext(ctx).Clauses(dbresolver.Write).First(&model, id).Error; err != nil {
		return nil, err
	}
	return model.EtoD(), nil
}

// FindByFilter implements backgroundsync.Repository.
func (repo *SyncGormRepository) FindByFilter(ctx context.Context, filter domain.RegistrationFilter, p *query.Pagination) ([]*domain.Registration, error) {
	sql := repo.db.WithContext(ctx).Clauses(dbresolver.Write).Model(&dbschema.SyncRegistration{})
	if filter.Scope != nil {
		sql = sql.Where("scope = ?", *filter.Scope)
	}
	if filter.Tag != nil {
		sql = sql.Where("tag = ?", *filter.Tag)
	}
	if len(filter.States) > 0 {
		states := functional.Distinct(functional.Map(filter.States, func(s domain.State) string {
			return string(s)
		}))
		sql = sql.Where("state IN ?", states)
	}
	if filter.DueBefore != nil {
		sql = sql.Where("next_attempt_at <= ?", filter.DueBefore.UTC())
	}
	sql = paginate(sql, p)
	var rows []*dbschema.SyncRegistration
	if err := sql.Find(&rows).Error; err != nil {
		return nil, err
	}
	return functional.Map(rows, func(item *dbschema.SyncRegistration) *domain.Registration {
		return item.EtoD()
	}), nil
}

// Claim implements backgroundsync.Repository.
func (repo *SyncGormRepository) Claim(ctx context.Context, id uint) (*domain.Registration, bool, error) {
	var claimed *domain.Registration
	err := repo.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&dbschema.SyncRegistration{}).
			Where("id = ? AND state = ?", id, string(domain.StatePending)).
			Updates(map[string]interface{}{
				"state":    string(domain.StateFiring),
				"attempts": gorm.Expr("attempts + ?", 1),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}
		var model dbschema.SyncRegistration
		if err := tx.First(&model, id).Error; err != nil {
			return err
		}
		claimed = model.EtoD()
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return claimed, claimed != nil, nil
}

// CreateAttempt implements backgroundsync.Repository.
func (repo *SyncGormRepository) CreateAttempt(ctx context.Context, a *domain.Attempt) error {
	model := dbschema.NewSchemaSyncAttempt(a)
	if err := repo.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	a.ID = model.ID
	return nil
}

// FindAttempts implements backgroundsync.Repository.
func (repo *SyncGormRepository) FindAttempts(ctx context.Context, registrationID uint) ([]*domain.Attempt, error) {
	var rows []*dbschema.SyncAttempt
	err := repo.db.WithContext(ctx).
		Where("registration_id = ?", registrationID).
		Order("number").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return functional.Map(rows, func(item *dbschema.SyncAttempt) *domain.Attempt {
		return item.EtoD()
	}), nil
}

func paginate(sql *gorm.DB, p *query.Pagination) *gorm.DB {
	if p == nil {
		return sql.Order("id")
	}
	if p.Limit != nil {
		sql = sql.Limit(*p.Limit)
	}
	if p.After != nil {
		if p.Descending() {
			sql = sql.Where("id < ?", *p.After)
		} else {
			sql = sql.Where("id > ?", *p.After)
		}
	}
	if p.Descending() {
		return sql.Order("id DESC")
	}
	return sql.Order("id")
}
