// Package authorization enforces role-based access per company using casbin.
package authorization

import (
	"context"
	"errors"
)

// Objects guarded by the enforcer.
const (
	ObjectValidationProject = "validation_project"
	ObjectChangeRequest     = "change_request"
	ObjectDocument          = "document"
	ObjectRiskAssessment    = "risk_assessment"
	ObjectMitigationAction  = "mitigation_action"
	ObjectRequirement       = "requirement"
	ObjectTestCase          = "test_case"
	ObjectRTMLink           = "rtm_link"
	ObjectSystem            = "system"
	ObjectMembership        = "membership"
	ObjectCompany           = "company"
	ObjectAuditLog          = "audit_log"
)

// Actions. View/create/update/delete are shared verbs; workflow verbs are
// object-specific because their role requirements differ.
const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"

	ActionProjectSubmit   = "validation_project.submit"
	ActionProjectApprove  = "validation_project.approve"
	ActionProjectReject   = "validation_project.reject"
	ActionProjectComplete = "validation_project.complete"
	ActionProjectCancel   = "validation_project.cancel"

	ActionChangeAdvance = "change_request.advance"
	ActionChangeApprove = "change_request.approve"

	ActionDocumentSubmit  = "document.submit"
	ActionDocumentApprove = "document.approve"
	ActionDocumentReject  = "document.reject"

	ActionRiskSubmit   = "risk_assessment.submit"
	ActionRiskApprove  = "risk_assessment.approve"
	ActionRiskReject   = "risk_assessment.reject"
	ActionRiskComplete = "risk_assessment.complete"

	ActionMembershipManage = "membership.manage"
	ActionAuditLogView     = "audit_log.view"
)

type Service interface {
	// Authorize returns nil when actor may perform action on object within
	// the company, ErrForbidden otherwise. Actor is "user:<id>" or "system".
	Authorize(ctx context.Context, actor string, companyID string, object string, action string) error
}

var (
	ErrInvalidActor   = errors.New("invalid_actor")
	ErrInvalidCompany = errors.New("invalid_company")
	ErrInvalidObject  = errors.New("invalid_object")
	ErrInvalidAction  = errors.New("invalid_action")
	ErrForbidden      = errors.New("forbidden")
)
