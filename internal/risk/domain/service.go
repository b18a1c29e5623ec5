package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type CreateAssessmentRequest struct {
	SystemID       *snowflake.ID
	ProjectID      *snowflake.ID
	Title          string
	Description    string
	AssessmentType string
	Probability    int
	Severity       int
	Detectability  int
}

type UpdateFactorsRequest struct {
	Probability   int
	Severity      int
	Detectability int
}

type AddMitigationRequest struct {
	RiskID      snowflake.ID
	Description string
	OwnerID     *snowflake.ID
	DueDate     *time.Time
}

type Service interface {
	Create(ctx context.Context, assessorID snowflake.ID, req CreateAssessmentRequest) (*RiskAssessment, error)
	Get(ctx context.Context, id snowflake.ID) (*RiskAssessment, error)
	List(ctx context.Context) ([]RiskAssessment, error)

	// UpdateFactors replaces the three factors and recomputes score and level
	// in the same write. Factors are only mutable while the assessment is in
	// draft or rejected.
	UpdateFactors(ctx context.Context, id snowflake.ID, req UpdateFactorsRequest) (*RiskAssessment, error)

	Submit(ctx context.Context, id snowflake.ID) (*RiskAssessment, error)
	Approve(ctx context.Context, id, approverID snowflake.ID) (*RiskAssessment, error)
	Reject(ctx context.Context, id, approverID snowflake.ID, reason string) (*RiskAssessment, error)
	Complete(ctx context.Context, id snowflake.ID) (*RiskAssessment, error)

	AddMitigation(ctx context.Context, req AddMitigationRequest) (*MitigationAction, error)
	CompleteMitigation(ctx context.Context, id snowflake.ID) (*MitigationAction, error)
	ListMitigations(ctx context.Context, riskID snowflake.ID) ([]MitigationAction, error)
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, assessment *RiskAssessment) error
	Get(ctx context.Context, companyID, id snowflake.ID) (*RiskAssessment, error)
	List(ctx context.Context, companyID snowflake.ID) ([]RiskAssessment, error)

	// UpdateFactorsIfStatus rewrites factors, score and level only when the
	// persisted status still matches fromStatus; returns false on a lost race.
	UpdateFactorsIfStatus(ctx context.Context, assessment *RiskAssessment, fromStatus []string) (bool, error)
	// UpdateStatusIfCurrent applies the status write only when the persisted
	// status still equals assessment's pre-read status; returns false on a
	// lost race.
	UpdateStatusIfCurrent(ctx context.Context, assessment *RiskAssessment, currentStatus string) (bool, error)

	CreateMitigation(ctx context.Context, action *MitigationAction) error
	GetMitigation(ctx context.Context, companyID, id snowflake.ID) (*MitigationAction, error)
	UpdateMitigation(ctx context.Context, action *MitigationAction) error
	ListMitigations(ctx context.Context, companyID, riskID snowflake.ID) ([]MitigationAction, error)
}

var (
	ErrInvalidTitle          = errors.New("invalid_title")
	ErrInvalidFactor         = errors.New("factor_out_of_range")
	ErrInvalidAssessmentType = errors.New("invalid_assessment_type")
	ErrInvalidReason         = errors.New("missing_rejection_reason")
	ErrInvalidDescription    = errors.New("invalid_description")
	ErrAssessmentNotFound    = errors.New("risk_assessment_not_found")
	ErrMitigationNotFound    = errors.New("mitigation_action_not_found")
	ErrMitigationCompleted   = errors.New("mitigation_already_completed")
	ErrMissingCompany        = errors.New("missing_company_context")
)
