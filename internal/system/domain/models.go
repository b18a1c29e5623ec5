// Package domain contains persistence models for the system registry.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// GAMP5 software categories. Category 2 was retired by the guideline and is
// deliberately absent.
const (
	GampCategoryInfrastructure = 1
	GampCategoryNonConfigured  = 3
	GampCategoryConfigured     = 4
	GampCategoryCustom         = 5
)

// ValidGampCategory reports whether category is one of {1,3,4,5}.
func ValidGampCategory(category int) bool {
	switch category {
	case GampCategoryInfrastructure, GampCategoryNonConfigured, GampCategoryConfigured, GampCategoryCustom:
		return true
	}
	return false
}

const (
	CriticalityLow    = "low"
	CriticalityMedium = "medium"
	CriticalityHigh   = "high"
)

// ValidCriticality reports whether criticality is a known level.
func ValidCriticality(criticality string) bool {
	switch criticality {
	case CriticalityLow, CriticalityMedium, CriticalityHigh:
		return true
	}
	return false
}

// Validation statuses. Informational only: no transition guards apply beyond
// enum membership.
const (
	ValidationNotStarted          = "not_started"
	ValidationInProgress          = "in_progress"
	ValidationValidated           = "validated"
	ValidationExpired             = "expired"
	ValidationPendingRevalidation = "pending_revalidation"
)

// ValidValidationStatus reports whether status is a known validation status.
func ValidValidationStatus(status string) bool {
	switch status {
	case ValidationNotStarted, ValidationInProgress, ValidationValidated, ValidationExpired, ValidationPendingRevalidation:
		return true
	}
	return false
}

// System is a computerized system under GxP control.
type System struct {
	ID               snowflake.ID      `gorm:"primaryKey" json:"id"`
	CompanyID        snowflake.ID      `gorm:"not null;index" json:"company_id"`
	Name             string            `gorm:"type:text;not null" json:"name"`
	Description      string            `gorm:"type:text" json:"description"`
	Vendor           string            `gorm:"type:text" json:"vendor"`
	Version          string            `gorm:"type:text" json:"version"`
	GampCategory     int               `gorm:"not null" json:"gamp_category"`
	Criticality      string            `gorm:"type:text;not null" json:"criticality"`
	ValidationStatus string            `gorm:"type:text;not null" json:"validation_status"`
	Metadata         datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt        time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (System) TableName() string { return "systems" }
