// Package seed bootstraps a default company and admin user so a fresh
// self-hosted install is usable without manual setup.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/qualitrace/qualitrace/internal/auth/domain"
	"github.com/qualitrace/qualitrace/internal/auth/password"
	tenantdomain "github.com/qualitrace/qualitrace/internal/tenant/domain"
	"gorm.io/gorm"
)

const (
	defaultCompanyName   = "Main"
	defaultCompanySlug   = "main"
	defaultAdminEmail    = "admin@qualitrace.local"
	defaultAdminPassword = "admin"
	defaultAdminDisplay  = "Qualitrace Admin"
)

// EnsureDefaultCompany seeds the default company for startup bootstrap.
func EnsureDefaultCompany(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := ensureDefaultCompanyTx(ctx, tx, node, 0)
		return err
	})
}

// EnsureDefaultCompanyWithID seeds the default company under a fixed ID,
// used when DEFAULT_COMPANY pins the tenant for single-company installs.
func EnsureDefaultCompanyWithID(db *gorm.DB, id int64) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := ensureDefaultCompanyTx(ctx, tx, node, snowflake.ID(id))
		return err
	})
}

// EnsureDefaultCompanyAndAdmin seeds the default company plus an owner
// login for OSS mode.
func EnsureDefaultCompanyAndAdmin(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		company, err := ensureDefaultCompanyTx(ctx, tx, node, 0)
		if err != nil {
			return err
		}

		var user authdomain.User
		err = tx.WithContext(ctx).
			Where("email = ?", defaultAdminEmail).
			First(&user).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			hashed, err := password.Hash(defaultAdminPassword)
			if err != nil {
				return err
			}
			now := time.Now().UTC()
			user = authdomain.User{
				ID:           node.Generate(),
				Email:        defaultAdminEmail,
				DisplayName:  defaultAdminDisplay,
				PasswordHash: &hashed,
				IsDefault:    true,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := tx.WithContext(ctx).Create(&user).Error; err != nil {
				return err
			}
		}

		var membership tenantdomain.UserCompanyMembership
		err = tx.WithContext(ctx).
			Where("company_id = ? AND user_id = ?", company.ID, user.ID).
			First(&membership).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := time.Now().UTC()
		membership = tenantdomain.UserCompanyMembership{
			ID:        node.Generate(),
			CompanyID: company.ID,
			UserID:    user.ID,
			Role:      tenantdomain.RoleOwner,
			IsPrimary: true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.WithContext(ctx).Create(&membership).Error
	})
}

func ensureDefaultCompanyTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, id snowflake.ID) (*tenantdomain.Company, error) {
	var company tenantdomain.Company
	err := tx.WithContext(ctx).
		Where("is_default = ?", true).
		First(&company).Error
	if err == nil {
		return &company, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if id == 0 {
		id = node.Generate()
	}
	now := time.Now().UTC()
	company = tenantdomain.Company{
		ID:        id,
		Name:      defaultCompanyName,
		Slug:      defaultCompanySlug,
		IsDefault: true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&company).Error; err != nil {
		return nil, err
	}
	return &company, nil
}
