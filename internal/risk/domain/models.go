// Package domain contains the risk assessment models and the pure scorer.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Assessment types.
const (
	AssessmentTypeIRA = "IRA" // initial risk assessment
	AssessmentTypeFRA = "FRA" // functional risk assessment
)

// ValidAssessmentType reports whether t is IRA or FRA.
func ValidAssessmentType(t string) bool {
	return t == AssessmentTypeIRA || t == AssessmentTypeFRA
}

// Assessment workflow statuses.
const (
	StatusDraft     = "draft"
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCompleted = "completed"
)

// RiskAssessment carries three factors and the score and level derived from
// them. Score and level are recomputed on every factor change, never cached
// across mutations.
type RiskAssessment struct {
	ID              snowflake.ID      `gorm:"primaryKey" json:"id"`
	CompanyID       snowflake.ID      `gorm:"not null;index" json:"company_id"`
	SystemID        *snowflake.ID     `gorm:"index" json:"system_id,omitempty"`
	ProjectID       *snowflake.ID     `gorm:"index" json:"project_id,omitempty"`
	Title           string            `gorm:"type:text;not null" json:"title"`
	Description     string            `gorm:"type:text" json:"description"`
	AssessmentType  string            `gorm:"type:text;not null" json:"assessment_type"`
	Probability     int               `gorm:"not null" json:"probability"`
	Severity        int               `gorm:"not null" json:"severity"`
	Detectability   int               `gorm:"not null" json:"detectability"`
	RiskScore       int               `gorm:"not null" json:"risk_score"`
	RiskLevel       string            `gorm:"type:text;not null" json:"risk_level"`
	Status          string            `gorm:"type:text;not null" json:"status"`
	AssessorID      snowflake.ID      `gorm:"not null" json:"assessor_id"`
	ApproverID      *snowflake.ID     `json:"approver_id,omitempty"`
	ApprovedAt      *time.Time        `json:"approved_at,omitempty"`
	RejectionReason *string           `gorm:"type:text" json:"rejection_reason,omitempty"`
	Metadata        datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (RiskAssessment) TableName() string { return "risk_assessments" }

// Mitigation action statuses. Not a guarded workflow, only pending/completed.
const (
	MitigationPending   = "pending"
	MitigationCompleted = "completed"
)

// MitigationAction tracks remediation of an open high or critical risk.
type MitigationAction struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	CompanyID   snowflake.ID  `gorm:"not null;index" json:"company_id"`
	RiskID      snowflake.ID  `gorm:"not null;index" json:"risk_id"`
	Description string        `gorm:"type:text;not null" json:"description"`
	Status      string        `gorm:"type:text;not null" json:"status"`
	OwnerID     *snowflake.ID `json:"owner_id,omitempty"`
	DueDate     *time.Time    `json:"due_date,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	CreatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (MitigationAction) TableName() string { return "mitigation_actions" }
