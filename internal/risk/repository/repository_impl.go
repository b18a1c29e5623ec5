package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/qualitrace/qualitrace/internal/risk/domain"
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

func (r *repository) Create(ctx context.Context, assessment *domain.RiskAssessment) error {
	return r.db.WithContext(ctx).Create(assessment).Error
}

func (r *repository) Get(ctx context.Context, companyID, id snowflake.ID) (*domain.RiskAssessment, error) {
	var assessment domain.RiskAssessment
	err := r.db.WithContext(ctx).
		First(&assessment, "id = ? AND company_id = ?", id, companyID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrAssessmentNotFound
		}
		return nil, err
	}
	return &assessment, nil
}

func (r *repository) List(ctx context.Context, companyID snowflake.ID) ([]domain.RiskAssessment, error) {
	var assessments []domain.RiskAssessment
	err := r.db.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at DESC, id DESC").
		Find(&assessments).Error
	if err != nil {
		return nil, err
	}
	return assessments, nil
}

func (r *repository) UpdateFactorsIfStatus(ctx context.Context, assessment *domain.RiskAssessment, fromStatus []string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.RiskAssessment{}).
		Where("id = ? AND company_id = ? AND status IN ?", assessment.ID, assessment.CompanyID, fromStatus).
		Updates(map[string]any{
			"probability":   assessment.Probability,
			"severity":      assessment.Severity,
			"detectability": assessment.Detectability,
			"risk_score":    assessment.RiskScore,
			"risk_level":    assessment.RiskLevel,
			"updated_at":    assessment.UpdatedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) UpdateStatusIfCurrent(ctx context.Context, assessment *domain.RiskAssessment, currentStatus string) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.RiskAssessment{}).
		Where("id = ? AND company_id = ? AND status = ?", assessment.ID, assessment.CompanyID, currentStatus).
		Updates(map[string]any{
			"status":           assessment.Status,
			"approver_id":      assessment.ApproverID,
			"approved_at":      assessment.ApprovedAt,
			"rejection_reason": assessment.RejectionReason,
			"updated_at":       assessment.UpdatedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) CreateMitigation(ctx context.Context, action *domain.MitigationAction) error {
	return r.db.WithContext(ctx).Create(action).Error
}

func (r *repository) GetMitigation(ctx context.Context, companyID, id snowflake.ID) (*domain.MitigationAction, error) {
	var action domain.MitigationAction
	err := r.db.WithContext(ctx).
		First(&action, "id = ? AND company_id = ?", id, companyID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMitigationNotFound
		}
		return nil, err
	}
	return &action, nil
}

func (r *repository) UpdateMitigation(ctx context.Context, action *domain.MitigationAction) error {
	return r.db.WithContext(ctx).
		Model(&domain.MitigationAction{}).
		Where("id = ? AND company_id = ?", action.ID, action.CompanyID).
		Updates(map[string]any{
			"status":       action.Status,
			"completed_at": action.CompletedAt,
			"updated_at":   action.UpdatedAt,
		}).Error
}

func (r *repository) ListMitigations(ctx context.Context, companyID, riskID snowflake.ID) ([]domain.MitigationAction, error) {
	var actions []domain.MitigationAction
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND risk_id = ?", companyID, riskID).
		Order("created_at ASC, id ASC").
		Find(&actions).Error
	if err != nil {
		return nil, err
	}
	return actions, nil
}
