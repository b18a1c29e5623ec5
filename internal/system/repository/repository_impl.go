package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/qualitrace/qualitrace/internal/system/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, system *domain.System) error {
	return r.db.WithContext(ctx).Create(system).Error
}

func (r *repository) Get(ctx context.Context, companyID, id snowflake.ID) (*domain.System, error) {
	var system domain.System
	err := r.db.WithContext(ctx).
		First(&system, "id = ? AND company_id = ?", id, companyID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSystemNotFound
		}
		return nil, err
	}
	return &system, nil
}

func (r *repository) List(ctx context.Context, companyID snowflake.ID) ([]domain.System, error) {
	var systems []domain.System
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at ASC, id ASC").
		Find(&systems).Error
	if err != nil {
		return nil, err
	}
	return systems, nil
}

func (r *repository) Update(ctx context.Context, system *domain.System) error {
	return r.db.WithContext(ctx).
		Model(&domain.System{}).
		Where("id = ? AND company_id = ?", system.ID, system.CompanyID).
		Updates(map[string]any{
			"name":              system.Name,
			"description":       system.Description,
			"vendor":            system.Vendor,
			"version":           system.Version,
			"gamp_category":     system.GampCategory,
			"criticality":       system.Criticality,
			"validation_status": system.ValidationStatus,
			"updated_at":        system.UpdatedAt,
		}).Error
}

func (r *repository) Delete(ctx context.Context, companyID, id snowflake.ID) error {
	result := r.db.WithContext(ctx).
		Delete(&domain.System{}, "id = ? AND company_id = ?", id, companyID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrSystemNotFound
	}
	return nil
}
