package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type CreateSystemRequest struct {
	Name             string
	Description      string
	Vendor           string
	Version          string
	GampCategory     int
	Criticality      string
	ValidationStatus string
}

type UpdateSystemRequest struct {
	Name             *string
	Description      *string
	Vendor           *string
	Version          *string
	GampCategory     *int
	Criticality      *string
	ValidationStatus *string
}

type Service interface {
	Create(ctx context.Context, req CreateSystemRequest) (*System, error)
	Get(ctx context.Context, id snowflake.ID) (*System, error)
	List(ctx context.Context) ([]System, error)
	Update(ctx context.Context, id snowflake.ID, req UpdateSystemRequest) (*System, error)
	Delete(ctx context.Context, id snowflake.ID) error
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, system *System) error
	Get(ctx context.Context, companyID, id snowflake.ID) (*System, error)
	List(ctx context.Context, companyID snowflake.ID) ([]System, error)
	Update(ctx context.Context, system *System) error
	Delete(ctx context.Context, companyID, id snowflake.ID) error
}

var (
	ErrInvalidName             = errors.New("invalid_name")
	ErrInvalidGampCategory     = errors.New("invalid_gamp_category")
	ErrInvalidCriticality      = errors.New("invalid_criticality")
	ErrInvalidValidationStatus = errors.New("invalid_validation_status")
	ErrSystemNotFound          = errors.New("system_not_found")
	ErrMissingCompany          = errors.New("missing_company_context")
)
