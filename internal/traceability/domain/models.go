// Package domain contains the traceability matrix models: requirements, test
// cases and the links between them.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Requirement types.
const (
	RequirementTypeUser       = "user"
	RequirementTypeFunctional = "functional"
	RequirementTypeDesign     = "design"
	RequirementTypeRegulatory = "regulatory"
)

// ValidRequirementType reports whether t is a known requirement type.
func ValidRequirementType(t string) bool {
	switch t {
	case RequirementTypeUser, RequirementTypeFunctional, RequirementTypeDesign, RequirementTypeRegulatory:
		return true
	}
	return false
}

// Requirement statuses. Informational, not transition-guarded.
const (
	RequirementStatusDraft    = "draft"
	RequirementStatusApproved = "approved"
	RequirementStatusRetired  = "retired"
)

// Test case execution results.
const (
	ResultPassed  = "passed"
	ResultFailed  = "failed"
	ResultBlocked = "blocked"
)

// ValidResult reports whether result is a known execution result.
func ValidResult(result string) bool {
	switch result {
	case ResultPassed, ResultFailed, ResultBlocked:
		return true
	}
	return false
}

// Requirement is the source side of traceability. Its code is unique within
// company and project scope. Requirements without a project are scoped to the
// company alone; the composite index cannot enforce that because SQL treats
// NULL project ids as distinct, so a partial index covers the NULL case.
type Requirement struct {
	ID          snowflake.ID      `gorm:"primaryKey" json:"id"`
	CompanyID   snowflake.ID      `gorm:"not null;index;uniqueIndex:ux_requirements_company_project_code,priority:1;uniqueIndex:ux_requirements_company_code_noproject,priority:1,where:project_id IS NULL" json:"company_id"`
	ProjectID   *snowflake.ID     `gorm:"index;uniqueIndex:ux_requirements_company_project_code,priority:2" json:"project_id,omitempty"`
	Code        string            `gorm:"type:text;not null;uniqueIndex:ux_requirements_company_project_code,priority:3;uniqueIndex:ux_requirements_company_code_noproject,priority:2" json:"code"`
	Title       string            `gorm:"type:text;not null" json:"title"`
	Description string            `gorm:"type:text" json:"description"`
	Type        string            `gorm:"type:text;not null" json:"type"`
	Status      string            `gorm:"type:text;not null" json:"status"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Requirement) TableName() string { return "requirements" }

// TestCase verifies one or more requirements. Result stays null until the
// case has been executed.
type TestCase struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	CompanyID  snowflake.ID      `gorm:"not null;index" json:"company_id"`
	ProjectID  *snowflake.ID     `gorm:"index" json:"project_id,omitempty"`
	Code       string            `gorm:"type:text;not null" json:"code"`
	Title      string            `gorm:"type:text;not null" json:"title"`
	Status     string            `gorm:"type:text;not null" json:"status"`
	Result     *string           `gorm:"type:text" json:"result,omitempty"`
	ExecutedBy *snowflake.ID     `json:"executed_by,omitempty"`
	ExecutedAt *time.Time        `json:"executed_at,omitempty"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (TestCase) TableName() string { return "test_cases" }

// RTMLink joins a requirement to a verifying test case. The database enforces
// one link per (requirement, test case) pair within a company.
type RTMLink struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID     snowflake.ID `gorm:"not null;index;uniqueIndex:ux_rtm_links_company_req_tc,priority:1" json:"company_id"`
	RequirementID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_rtm_links_company_req_tc,priority:2" json:"requirement_id"`
	TestCaseID    snowflake.ID `gorm:"not null;index;uniqueIndex:ux_rtm_links_company_req_tc,priority:3" json:"test_case_id"`
	CreatedBy     snowflake.ID `gorm:"not null" json:"created_by"`
	CreatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (RTMLink) TableName() string { return "rtm_links" }

// CoverageStats summarizes traceability for a company or project scope.
type CoverageStats struct {
	TotalLinks          int `json:"total_links"`
	CoveredRequirements int `json:"covered_requirements"`
	TestedRequirements  int `json:"tested_requirements"`
	PassedLinks         int `json:"passed_links"`
	FailedLinks         int `json:"failed_links"`
}
