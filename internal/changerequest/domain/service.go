package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type CreateChangeRequestRequest struct {
	SystemID    *snowflake.ID
	Title       string
	Description string
	Priority    string
	GxpImpact   bool
}

type Service interface {
	Create(ctx context.Context, requesterID snowflake.ID, req CreateChangeRequestRequest) (*ChangeRequest, error)
	Get(ctx context.Context, id snowflake.ID) (*ChangeRequest, error)
	List(ctx context.Context) ([]ChangeRequest, error)

	// Advance moves the change request to the successor of its current
	// status. Entering approved records approver and time; entering completed
	// records the implementation time. A status without a successor yields a
	// TransitionError.
	Advance(ctx context.Context, id, actorID snowflake.ID) (*ChangeRequest, error)
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, cr *ChangeRequest) error
	Get(ctx context.Context, companyID, id snowflake.ID) (*ChangeRequest, error)
	List(ctx context.Context, companyID snowflake.ID) ([]ChangeRequest, error)
	// UpdateStatusIfCurrent applies the status write only when the persisted
	// status still equals currentStatus; returns false on a lost race.
	UpdateStatusIfCurrent(ctx context.Context, cr *ChangeRequest, currentStatus string) (bool, error)
}

var (
	ErrInvalidTitle          = errors.New("invalid_title")
	ErrInvalidPriority       = errors.New("invalid_priority")
	ErrChangeRequestNotFound = errors.New("change_request_not_found")
	ErrMissingCompany        = errors.New("missing_company_context")
)
