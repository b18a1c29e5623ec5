package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type CreateDocumentRequest struct {
	ProjectID    *snowflake.ID
	SystemID     *snowflake.ID
	Title        string
	DocumentType string
	Content      string
	FileRef      string
}

type UpdateContentRequest struct {
	Title         *string
	Content       *string
	FileRef       *string
	ChangeSummary string
}

type Service interface {
	Create(ctx context.Context, authorID snowflake.ID, req CreateDocumentRequest) (*Document, error)
	Get(ctx context.Context, id snowflake.ID) (*Document, error)
	List(ctx context.Context) ([]Document, error)

	// UpdateContent snapshots the current title, content, file reference and
	// version into the version log, then applies the edit and bumps the
	// version. If the snapshot write fails, the edit does not proceed.
	UpdateContent(ctx context.Context, id, editorID snowflake.ID, req UpdateContentRequest) (*Document, error)
	ListVersions(ctx context.Context, documentID snowflake.ID) ([]DocumentVersion, error)

	Submit(ctx context.Context, id snowflake.ID) (*Document, error)
	Approve(ctx context.Context, id, approverID snowflake.ID) (*Document, error)
	Reject(ctx context.Context, id, approverID snowflake.ID, reason string) (*Document, error)
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, doc *Document) error
	Get(ctx context.Context, companyID, id snowflake.ID) (*Document, error)
	List(ctx context.Context, companyID snowflake.ID) ([]Document, error)
	UpdateContent(ctx context.Context, doc *Document) error
	// UpdateStatusIfCurrent applies the status write only when the persisted
	// status still equals currentStatus; returns false on a lost race.
	UpdateStatusIfCurrent(ctx context.Context, doc *Document, currentStatus string) (bool, error)

	InsertVersion(ctx context.Context, version *DocumentVersion) error
	ListVersions(ctx context.Context, companyID, documentID snowflake.ID) ([]DocumentVersion, error)
}

var (
	ErrInvalidTitle     = errors.New("invalid_title")
	ErrInvalidType      = errors.New("invalid_document_type")
	ErrInvalidReason    = errors.New("missing_rejection_reason")
	ErrDocumentNotFound = errors.New("document_not_found")
	ErrMissingCompany   = errors.New("missing_company_context")
)
