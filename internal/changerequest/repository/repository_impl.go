package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/qualitrace/qualitrace/internal/changerequest/domain"
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

func (r *repository) Create(ctx context.Context, cr *domain.ChangeRequest) error {
	return r.db.WithContext(ctx).Create(cr).Error
}

func (r *repository) Get(ctx context.Context, companyID, id snowflake.ID) (*domain.ChangeRequest, error) {
	var cr domain.ChangeRequest
	err := r.db.WithContext(ctx).
		First(&cr, "id = ? AND company_id = ?", id, companyID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrChangeRequestNotFound
		}
		return nil, err
	}
	return &cr, nil
}

func (r *repository) List(ctx context.Context, companyID snowflake.ID) ([]domain.ChangeRequest, error) {
	var requests []domain.ChangeRequest
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at DESC, id DESC").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *repository) UpdateStatusIfCurrent(ctx context.Context, cr *domain.ChangeRequest, currentStatus string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.ChangeRequest{}).
		Where("id = ? AND company_id = ? AND status = ?", cr.ID, cr.CompanyID, currentStatus).
		Updates(map[string]any{
			"status":         cr.Status,
			"approver_id":    cr.ApproverID,
			"approved_at":    cr.ApprovedAt,
			"implemented_at": cr.ImplementedAt,
			"updated_at":     cr.UpdatedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
