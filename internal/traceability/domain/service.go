package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type CreateRequirementRequest struct {
	ProjectID   *snowflake.ID
	Code        string
	Title       string
	Description string
	Type        string
}

type CreateTestCaseRequest struct {
	ProjectID *snowflake.ID
	Code      string
	Title     string
}

type RecordResultRequest struct {
	Result     string
	ExecutedBy snowflake.ID
}

// CoverageScope narrows coverage computation. Zero value means whole company.
type CoverageScope struct {
	ProjectID *snowflake.ID
}

type Service interface {
	CreateRequirement(ctx context.Context, req CreateRequirementRequest) (*Requirement, error)
	GetRequirement(ctx context.Context, id snowflake.ID) (*Requirement, error)
	ListRequirements(ctx context.Context, projectID *snowflake.ID) ([]Requirement, error)

	CreateTestCase(ctx context.Context, req CreateTestCaseRequest) (*TestCase, error)
	GetTestCase(ctx context.Context, id snowflake.ID) (*TestCase, error)
	ListTestCases(ctx context.Context, projectID *snowflake.ID) ([]TestCase, error)
	// RecordResult stores a test execution outcome.
	RecordResult(ctx context.Context, id snowflake.ID, req RecordResultRequest) (*TestCase, error)

	// AddLink creates one requirement-to-test-case link. Duplicates within a
	// company fail on the unique index, never by pre-check.
	AddLink(ctx context.Context, requirementID, testCaseID, createdBy snowflake.ID) (*RTMLink, error)
	RemoveLink(ctx context.Context, linkID snowflake.ID) error
	ListLinks(ctx context.Context, scope CoverageScope) ([]RTMLink, error)
	Coverage(ctx context.Context, scope CoverageScope) (*CoverageStats, error)
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateRequirement(ctx context.Context, req *Requirement) error
	GetRequirement(ctx context.Context, companyID, id snowflake.ID) (*Requirement, error)
	ListRequirements(ctx context.Context, companyID snowflake.ID, projectID *snowflake.ID) ([]Requirement, error)

	CreateTestCase(ctx context.Context, tc *TestCase) error
	GetTestCase(ctx context.Context, companyID, id snowflake.ID) (*TestCase, error)
	ListTestCases(ctx context.Context, companyID snowflake.ID, projectID *snowflake.ID) ([]TestCase, error)
	UpdateTestCase(ctx context.Context, tc *TestCase) error

	CreateLink(ctx context.Context, link *RTMLink) error
	GetLink(ctx context.Context, companyID, id snowflake.ID) (*RTMLink, error)
	DeleteLink(ctx context.Context, companyID, id snowflake.ID) error
	ListLinks(ctx context.Context, companyID snowflake.ID, projectID *snowflake.ID) ([]RTMLink, error)

	// LinkRows returns every link in scope joined with its test case result,
	// the raw input of coverage computation.
	LinkRows(ctx context.Context, companyID snowflake.ID, projectID *snowflake.ID) ([]LinkRow, error)
}

// LinkRow is one RTM link joined with the execution result of its test case.
type LinkRow struct {
	LinkID        snowflake.ID
	RequirementID snowflake.ID
	TestCaseID    snowflake.ID
	Result        *string
}

var (
	ErrInvalidCode            = errors.New("invalid_code")
	ErrInvalidTitle           = errors.New("invalid_title")
	ErrInvalidRequirementType = errors.New("invalid_requirement_type")
	ErrInvalidResult          = errors.New("invalid_result")
	ErrRequirementNotFound    = errors.New("requirement_not_found")
	ErrTestCaseNotFound       = errors.New("test_case_not_found")
	ErrLinkNotFound           = errors.New("rtm_link_not_found")
	ErrDuplicateLink          = errors.New("rtm_link_exists")
	ErrDuplicateCode          = errors.New("requirement_code_exists")
	ErrMissingCompany         = errors.New("missing_company_context")
)
