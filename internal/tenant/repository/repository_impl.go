package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/qualitrace/qualitrace/internal/tenant/domain"
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

func (r *repository) CreateCompany(ctx context.Context, company domain.Company) error {
	return r.db.WithContext(ctx).Create(&company).Error
}

func (r *repository) GetCompany(ctx context.Context, id snowflake.ID) (*domain.Company, error) {
	var company domain.Company
	if err := r.db.WithContext(ctx).First(&company, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCompanyNotFound
		}
		return nil, err
	}
	return &company, nil
}

func (r *repository) GetDefaultCompany(ctx context.Context) (*domain.Company, error) {
	var company domain.Company
	if err := r.db.WithContext(ctx).First(&company, "is_default = ?", true).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCompanyNotFound
		}
		return nil, err
	}
	return &company, nil
}

func (r *repository) AddMembership(ctx context.Context, m domain.UserCompanyMembership) error {
	return r.db.WithContext(ctx).Create(&m).Error
}

func (r *repository) GetMembership(ctx context.Context, userID, companyID snowflake.ID) (*domain.UserCompanyMembership, error) {
	var m domain.UserCompanyMembership
	err := r.db.WithContext(ctx).
		First(&m, "user_id = ? AND company_id = ?", userID, companyID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMembershipNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *repository) ListMembershipsByUser(ctx context.Context, userID snowflake.ID) ([]domain.UserCompanyMembership, error) {
	var memberships []domain.UserCompanyMembership
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&memberships).Error
	if err != nil {
		return nil, err
	}
	return memberships, nil
}

func (r *repository) CountMembershipsByUser(ctx context.Context, userID snowflake.ID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.UserCompanyMembership{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

func (r *repository) ClearPrimary(ctx context.Context, userID snowflake.ID) error {
	return r.db.WithContext(ctx).
		Model(&domain.UserCompanyMembership{}).
		Where("user_id = ? AND is_primary = ?", userID, true).
		Update("is_primary", false).Error
}

func (r *repository) SetPrimary(ctx context.Context, membershipID snowflake.ID) error {
	return r.db.WithContext(ctx).
		Model(&domain.UserCompanyMembership{}).
		Where("id = ?", membershipID).
		Update("is_primary", true).Error
}

func (r *repository) DeleteMembership(ctx context.Context, membershipID snowflake.ID) error {
	return r.db.WithContext(ctx).
		Delete(&domain.UserCompanyMembership{}, "id = ?", membershipID).Error
}

func (r *repository) ListCompaniesByUser(ctx context.Context, userID snowflake.ID) ([]domain.CompanyListItem, error) {
	var items []domain.CompanyListItem
	err := r.db.WithContext(ctx).Raw(
		`SELECT c.id, c.name, c.slug, m.role, m.is_primary, c.created_at
		 FROM companies c
		 JOIN user_company_memberships m ON m.company_id = c.id
		 WHERE m.user_id = ?
		 ORDER BY c.created_at ASC`,
		userID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
