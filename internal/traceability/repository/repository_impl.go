package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/qualitrace/qualitrace/internal/traceability/domain"
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

func (r *repository) CreateRequirement(ctx context.Context, req *domain.Requirement) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *repository) GetRequirement(ctx context.Context, companyID, id snowflake.ID) (*domain.Requirement, error) {
	var req domain.Requirement
	err := r.db.WithContext(ctx).
		First(&req, "id = ? AND company_id = ?", id, companyID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRequirementNotFound
		}
		return nil, err
	}
	return &req, nil
}

func (r *repository) ListRequirements(ctx context.Context, companyID snowflake.ID, projectID *snowflake.ID) ([]domain.Requirement, error) {
	var reqs []domain.Requirement
	stmt := r.db.WithContext(ctx).Where("company_id = ?", companyID)
	if projectID != nil {
		stmt = stmt.Where("project_id = ?", *projectID)
	}
	if err := stmt.Order("code ASC, id ASC").Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *repository) CreateTestCase(ctx context.Context, tc *domain.TestCase) error {
	return r.db.WithContext(ctx).Create(tc).Error
}

func (r *repository) GetTestCase(ctx context.Context, companyID, id snowflake.ID) (*domain.TestCase, error) {
	var tc domain.TestCase
	err := r.db.WithContext(ctx).
		First(&tc, "id = ? AND company_id = ?", id, companyID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrTestCaseNotFound
		}
		return nil, err
	}
	return &tc, nil
}

func (r *repository) ListTestCases(ctx context.Context, companyID snowflake.ID, projectID *snowflake.ID) ([]domain.TestCase, error) {
	var cases []domain.TestCase
	stmt := r.db.WithContext(ctx).Where("company_id = ?", companyID)
	if projectID != nil {
		stmt = stmt.Where("project_id = ?", *projectID)
	}
	if err := stmt.Order("code ASC, id ASC").Find(&cases).Error; err != nil {
		return nil, err
	}
	return cases, nil
}

func (r *repository) UpdateTestCase(ctx context.Context, tc *domain.TestCase) error {
	return r.db.WithContext(ctx).
		Model(&domain.TestCase{}).
		Where("id = ? AND company_id = ?", tc.ID, tc.CompanyID).
		Updates(map[string]any{
			"status":      tc.Status,
			"result":      tc.Result,
			"executed_by": tc.ExecutedBy,
			"executed_at": tc.ExecutedAt,
			"updated_at":  tc.UpdatedAt,
		}).Error
}

func (r *repository) CreateLink(ctx context.Context, link *domain.RTMLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *repository) GetLink(ctx context.Context, companyID, id snowflake.ID) (*domain.RTMLink, error) {
	var link domain.RTMLink
	err := r.db.WithContext(ctx).
		First(&link, "id = ? AND company_id = ?", id, companyID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLinkNotFound
		}
		return nil, err
	}
	return &link, nil
}

func (r *repository) DeleteLink(ctx context.Context, companyID, id snowflake.ID) error {
	result := r.db.WithContext(ctx).
		Delete(&domain.RTMLink{}, "id = ? AND company_id = ?", id, companyID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrLinkNotFound
	}
	return nil
}

func (r *repository) ListLinks(ctx context.Context, companyID snowflake.ID, projectID *snowflake.ID) ([]domain.RTMLink, error) {
	var links []domain.RTMLink
	stmt := r.db.WithContext(ctx).Where("rtm_links.company_id = ?", companyID)
	if projectID != nil {
		stmt = stmt.
			Joins("JOIN requirements ON requirements.id = rtm_links.requirement_id").
			Where("requirements.project_id = ?", *projectID)
	}
	if err := stmt.Order("rtm_links.created_at ASC, rtm_links.id ASC").Find(&links).Error; err != nil {
		return nil, err
	}
	return links, nil
}

func (r *repository) LinkRows(ctx context.Context, companyID snowflake.ID, projectID *snowflake.ID) ([]domain.LinkRow, error) {
	var rows []domain.LinkRow
	query := `SELECT l.id AS link_id, l.requirement_id, l.test_case_id, t.result
		 FROM rtm_links l
		 JOIN test_cases t ON t.id = l.test_case_id
		 WHERE l.company_id = ?`
	args := []any{companyID}
	if projectID != nil {
		query += ` AND EXISTS (
			SELECT 1 FROM requirements q
			WHERE q.id = l.requirement_id AND q.project_id = ?)`
		args = append(args, *projectID)
	}
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
