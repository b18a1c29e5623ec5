// Package domain contains the change request model and its linear workflow.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Change request statuses. The workflow is a strict line through the first
// five; rejected is terminal and reachable only by direct edit, never by
// Advance.
const (
	StatusPending    = "pending"
	StatusInReview   = "in_review"
	StatusApproved   = "approved"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusRejected   = "rejected"
)

// successor is the fixed transition table consumed by Advance. Statuses
// absent from the map have no successor.
var successor = map[string]string{
	StatusPending:    StatusInReview,
	StatusInReview:   StatusApproved,
	StatusApproved:   StatusInProgress,
	StatusInProgress: StatusCompleted,
}

// NextStatus returns the successor of status, or false when the workflow
// ends there.
func NextStatus(status string) (string, bool) {
	next, ok := successor[status]
	return next, ok
}

// Priorities.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// ValidPriority reports whether priority is a known level.
func ValidPriority(priority string) bool {
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

// ChangeRequest tracks a controlled change against a validated system.
type ChangeRequest struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id"`
	CompanyID     snowflake.ID      `gorm:"not null;index" json:"company_id"`
	SystemID      *snowflake.ID     `gorm:"index" json:"system_id,omitempty"`
	Title         string            `gorm:"type:text;not null" json:"title"`
	Description   string            `gorm:"type:text" json:"description"`
	Status        string            `gorm:"type:text;not null" json:"status"`
	Priority      string            `gorm:"type:text;not null" json:"priority"`
	GxpImpact     bool              `gorm:"column:gxp_impact;not null" json:"gxp_impact"`
	RequesterID   snowflake.ID      `gorm:"not null" json:"requester_id"`
	ApproverID    *snowflake.ID     `json:"approver_id,omitempty"`
	ApprovedAt    *time.Time        `json:"approved_at,omitempty"`
	ImplementedAt *time.Time        `json:"implemented_at,omitempty"`
	Metadata      datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (ChangeRequest) TableName() string { return "change_requests" }
