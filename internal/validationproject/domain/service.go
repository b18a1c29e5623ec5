package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type CreateProjectRequest struct {
	SystemID    *snowflake.ID
	Name        string
	Description string
}

type UpdateProjectRequest struct {
	Name        *string
	Description *string
	Progress    *int
}

type Service interface {
	Create(ctx context.Context, ownerID snowflake.ID, req CreateProjectRequest) (*ValidationProject, error)
	Get(ctx context.Context, id snowflake.ID) (*ValidationProject, error)
	List(ctx context.Context) ([]ValidationProject, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateProjectRequest) (*ValidationProject, error)

	// Submit moves draft or rejected to pending and clears any prior
	// rejection reason.
	Submit(ctx context.Context, id snowflake.ID) (*ValidationProject, error)
	// Approve moves pending to approved, recording approver and time.
	Approve(ctx context.Context, id, approverID snowflake.ID) (*ValidationProject, error)
	// Reject moves pending to rejected. The reason is mandatory.
	Reject(ctx context.Context, id, approverID snowflake.ID, reason string) (*ValidationProject, error)
	// Complete moves approved to completed, recording the completion date.
	Complete(ctx context.Context, id snowflake.ID) (*ValidationProject, error)
	// Cancel moves draft or pending to cancelled.
	Cancel(ctx context.Context, id snowflake.ID) (*ValidationProject, error)
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, project *ValidationProject) error
	Get(ctx context.Context, companyID, id snowflake.ID) (*ValidationProject, error)
	List(ctx context.Context, companyID snowflake.ID) ([]ValidationProject, error)
	Update(ctx context.Context, project *ValidationProject) error
	// UpdateStatusIfCurrent applies the status write only when the persisted
	// status still equals currentStatus; returns false on a lost race.
	UpdateStatusIfCurrent(ctx context.Context, project *ValidationProject, currentStatus string) (bool, error)
}

var (
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidReason   = errors.New("missing_rejection_reason")
	ErrInvalidProgress = errors.New("progress_out_of_range")
	ErrProjectNotFound = errors.New("validation_project_not_found")
	ErrMissingCompany  = errors.New("missing_company_context")
)
