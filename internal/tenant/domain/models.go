// Package domain contains persistence models for the tenant service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Company represents a tenant. Every regulated entity in the system carries
// exactly one company id and is never visible outside its owning company.
type Company struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name      string            `gorm:"type:text;not null" json:"name"`
	Slug      string            `gorm:"type:text;not null;uniqueIndex:ux_companies_slug" json:"slug"`
	IsDefault bool              `gorm:"column:is_default" json:"is_default"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Company) TableName() string { return "companies" }

// UserCompanyMembership associates a user with a company. At most one
// membership per user carries the primary flag; it marks the active tenant.
type UserCompanyMembership struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_memberships_company_user,priority:1" json:"company_id"`
	UserID    snowflake.ID `gorm:"not null;index;uniqueIndex:ux_memberships_company_user,priority:2;uniqueIndex:ux_memberships_user_primary,where:is_primary" json:"user_id"`
	Role      string       `gorm:"type:text;not null" json:"role"`
	// The partial index on UserID makes two primary rows per user impossible
	// even under concurrent switches; the switch transaction clears the old
	// flag before setting the new one.
	IsPrimary bool `gorm:"column:is_primary;not null" json:"is_primary"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (UserCompanyMembership) TableName() string { return "user_company_memberships" }
