package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/qualitrace/qualitrace/internal/validationproject/domain"
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

func (r *repository) Create(ctx context.Context, project *domain.ValidationProject) error {
	return r.db.WithContext(ctx).Create(project).Error
}

func (r *repository) Get(ctx context.Context, companyID, id snowflake.ID) (*domain.ValidationProject, error) {
	var project domain.ValidationProject
	err := r.db.WithContext(ctx).
		First(&project, "id = ? AND company_id = ?", id, companyID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, err
	}
	return &project, nil
}

func (r *repository) List(ctx context.Context, companyID snowflake.ID) ([]domain.ValidationProject, error) {
	var projects []domain.ValidationProject
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at DESC, id DESC").
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *repository) Update(ctx context.Context, project *domain.ValidationProject) error {
	return r.db.WithContext(ctx).
		Model(&domain.ValidationProject{}).
		Where("id = ? AND company_id = ?", project.ID, project.CompanyID).
		Updates(map[string]any{
			"name":        project.Name,
			"description": project.Description,
			"progress":    project.Progress,
			"updated_at":  project.UpdatedAt,
		}).Error
}

func (r *repository) UpdateStatusIfCurrent(ctx context.Context, project *domain.ValidationProject, currentStatus string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.ValidationProject{}).
		Where("id = ? AND company_id = ? AND status = ?", project.ID, project.CompanyID, currentStatus).
		Updates(map[string]any{
			"status":           project.Status,
			"approver_id":      project.ApproverID,
			"approved_at":      project.ApprovedAt,
			"rejection_reason": project.RejectionReason,
			"completion_date":  project.CompletionDate,
			"updated_at":       project.UpdatedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
