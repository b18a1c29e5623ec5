package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

const (
	RoleOwner      = "owner"
	RoleAdmin      = "admin"
	RoleQAApprover = "qa_approver" // approve/reject workflow transitions
	RoleMember     = "member"      // read-only / limited
)

// ValidRole reports whether role is one of the membership roles.
func ValidRole(role string) bool {
	switch role {
	case RoleOwner, RoleAdmin, RoleQAApprover, RoleMember:
		return true
	}
	return false
}

type Service interface {
	CreateCompany(ctx context.Context, userID snowflake.ID, req CreateCompanyRequest) (*CompanyResponse, error)
	GetCompany(ctx context.Context, id snowflake.ID) (*Company, error)
	ListCompaniesByUser(ctx context.Context, userID snowflake.ID) ([]CompanyListItem, error)

	// ActiveCompany resolves the user's active tenant: the membership flagged
	// primary, or the oldest membership when no flag is set.
	ActiveCompany(ctx context.Context, userID snowflake.ID) (*UserCompanyMembership, error)
	SwitchActiveCompany(ctx context.Context, userID, companyID snowflake.ID) error
	AddMembership(ctx context.Context, userID, companyID snowflake.ID, role string, setPrimary bool) (*UserCompanyMembership, error)
	RemoveMembership(ctx context.Context, userID, companyID snowflake.ID) error
}

type CreateCompanyRequest struct {
	Name string
}

type CompanyResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

var (
	ErrInvalidName        = errors.New("invalid_name")
	ErrInvalidUser        = errors.New("invalid_user")
	ErrInvalidCompany     = errors.New("invalid_company")
	ErrInvalidRole        = errors.New("invalid_role")
	ErrCompanyNotFound    = errors.New("company_not_found")
	ErrMembershipNotFound = errors.New("membership_not_found")
	ErrMembershipExists   = errors.New("membership_exists")
	ErrNoMembership       = errors.New("user_has_no_membership")
	// ErrLastMembership guards the invariant that every user retains at least
	// one tenant.
	ErrLastMembership = errors.New("cannot_remove_last_membership")
)
