package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// CompanyListItem is a membership-joined row returned by ListCompaniesByUser.
type CompanyListItem struct {
	ID        snowflake.ID
	Name      string
	Slug      string
	Role      string
	IsPrimary bool
	CreatedAt time.Time
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateCompany(ctx context.Context, company Company) error
	GetCompany(ctx context.Context, id snowflake.ID) (*Company, error)
	GetDefaultCompany(ctx context.Context) (*Company, error)

	AddMembership(ctx context.Context, m UserCompanyMembership) error
	GetMembership(ctx context.Context, userID, companyID snowflake.ID) (*UserCompanyMembership, error)
	ListMembershipsByUser(ctx context.Context, userID snowflake.ID) ([]UserCompanyMembership, error)
	CountMembershipsByUser(ctx context.Context, userID snowflake.ID) (int64, error)
	ClearPrimary(ctx context.Context, userID snowflake.ID) error
	SetPrimary(ctx context.Context, membershipID snowflake.ID) error
	DeleteMembership(ctx context.Context, membershipID snowflake.ID) error

	ListCompaniesByUser(ctx context.Context, userID snowflake.ID) ([]CompanyListItem, error)
}
