// Package domain contains the validation project model and its workflow
// contract.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Project statuses.
const (
	StatusDraft     = "draft"
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// ValidStatus reports whether status is a known project status.
func ValidStatus(status string) bool {
	switch status {
	case StatusDraft, StatusPending, StatusApproved, StatusRejected, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// ValidationProject is a validation effort for one system, moving through
// draft, pending, approved and completed, with rejected re-enterable via
// resubmission.
type ValidationProject struct {
	ID              snowflake.ID      `gorm:"primaryKey" json:"id"`
	CompanyID       snowflake.ID      `gorm:"not null;index" json:"company_id"`
	SystemID        *snowflake.ID     `gorm:"index" json:"system_id,omitempty"`
	Name            string            `gorm:"type:text;not null" json:"name"`
	Description     string            `gorm:"type:text" json:"description"`
	Status          string            `gorm:"type:text;not null" json:"status"`
	Progress        int               `gorm:"not null;default:0" json:"progress"`
	OwnerID         snowflake.ID      `gorm:"not null" json:"owner_id"`
	ApproverID      *snowflake.ID     `json:"approver_id,omitempty"`
	ApprovedAt      *time.Time        `json:"approved_at,omitempty"`
	RejectionReason *string           `gorm:"type:text" json:"rejection_reason,omitempty"`
	CompletionDate  *time.Time        `json:"completion_date,omitempty"`
	Metadata        datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (ValidationProject) TableName() string { return "validation_projects" }
