package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/qualitrace/qualitrace/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, actor string, companyID string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	companyID = strings.TrimSpace(companyID)
	if companyID == "" {
		return ErrInvalidCompany
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, actorType, actorID, err := s.resolveActor(ctx, actor, companyID)
	if err != nil {
		s.auditDenied(ctx, actorType, actorID, companyID, object, action)
		return err
	}

	domain := fmt.Sprintf("company:%s", companyID)
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, actorType, actorID, companyID, object, action)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) resolveActor(ctx context.Context, actor string, companyID string) (string, string, string, *string, error) {
	if actor == "system" {
		return actor, "role:system", "system", nil, nil
	}
	if strings.HasPrefix(actor, "user:") {
		userIDRaw := strings.TrimPrefix(actor, "user:")
		userID, err := snowflake.ParseString(userIDRaw)
		if err != nil || userID == 0 {
			return "", "", "", nil, ErrInvalidActor
		}
		userIDStr := userID.String()
		parsedCompanyID, err := snowflake.ParseString(companyID)
		if err != nil || parsedCompanyID == 0 {
			return actor, "", "user", &userIDStr, ErrInvalidCompany
		}
		role, err := s.roleForUser(ctx, parsedCompanyID, userID)
		if err != nil {
			return actor, "", "user", &userIDStr, err
		}
		roleName := fmt.Sprintf("role:%s", strings.ToLower(role))
		return actor, roleName, "user", &userIDStr, nil
	}
	return "", "", "", nil, ErrInvalidActor
}

func (s *ServiceImpl) roleForUser(ctx context.Context, companyID snowflake.ID, userID snowflake.ID) (string, error) {
	var row struct {
		Role string `gorm:"column:role"`
	}
	if err := s.db.WithContext(ctx).Raw(
		`SELECT role
		 FROM user_company_memberships
		 WHERE company_id = ? AND user_id = ?
		 LIMIT 1`,
		companyID,
		userID,
	).Scan(&row).Error; err != nil {
		return "", err
	}

	role := strings.TrimSpace(row.Role)
	if role == "" {
		return "", ErrForbidden
	}
	return role, nil
}

func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, actorType string, actorID *string, companyID string, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	parsedCompanyID, err := snowflake.ParseString(companyID)
	if err != nil || parsedCompanyID == 0 {
		return
	}
	targetID := "capability"
	entry := auditdomain.Entry{
		CompanyID:  &parsedCompanyID,
		ActorType:  actorType,
		ActorID:    actorID,
		Action:     "authorization.denied",
		TargetType: "authorization",
		TargetID:   &targetID,
		NewValues: map[string]any{
			"object": object,
			"action": action,
		},
	}
	if err := s.auditSvc.Record(ctx, entry); err != nil {
		s.log.Warn("failed to record authorization denial", zap.Error(err))
	}
}

var viewableObjects = []string{
	ObjectValidationProject,
	ObjectChangeRequest,
	ObjectDocument,
	ObjectRiskAssessment,
	ObjectMitigationAction,
	ObjectRequirement,
	ObjectTestCase,
	ObjectRTMLink,
	ObjectSystem,
	ObjectCompany,
}

var editableObjects = []string{
	ObjectValidationProject,
	ObjectChangeRequest,
	ObjectDocument,
	ObjectRiskAssessment,
	ObjectMitigationAction,
	ObjectRequirement,
	ObjectTestCase,
	ObjectRTMLink,
	ObjectSystem,
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	var policies [][]string

	// Members read everything in their company.
	for _, object := range viewableObjects {
		policies = append(policies, []string{"role:member", object, ActionView})
	}

	// QA approvers review: everything a member can, plus approval verbs.
	for _, object := range viewableObjects {
		policies = append(policies, []string{"role:qa_approver", object, ActionView})
	}
	policies = append(policies,
		[]string{"role:qa_approver", ObjectValidationProject, ActionProjectApprove},
		[]string{"role:qa_approver", ObjectValidationProject, ActionProjectReject},
		[]string{"role:qa_approver", ObjectChangeRequest, ActionChangeApprove},
		[]string{"role:qa_approver", ObjectDocument, ActionDocumentApprove},
		[]string{"role:qa_approver", ObjectDocument, ActionDocumentReject},
		[]string{"role:qa_approver", ObjectRiskAssessment, ActionRiskApprove},
		[]string{"role:qa_approver", ObjectRiskAssessment, ActionRiskReject},
	)

	// Admins author and drive workflows but do not approve their own work.
	for _, object := range viewableObjects {
		policies = append(policies, []string{"role:admin", object, ActionView})
	}
	for _, object := range editableObjects {
		policies = append(policies,
			[]string{"role:admin", object, ActionCreate},
			[]string{"role:admin", object, ActionUpdate},
			[]string{"role:admin", object, ActionDelete},
		)
	}
	policies = append(policies,
		[]string{"role:admin", ObjectValidationProject, ActionProjectSubmit},
		[]string{"role:admin", ObjectValidationProject, ActionProjectComplete},
		[]string{"role:admin", ObjectValidationProject, ActionProjectCancel},
		[]string{"role:admin", ObjectChangeRequest, ActionChangeAdvance},
		[]string{"role:admin", ObjectDocument, ActionDocumentSubmit},
		[]string{"role:admin", ObjectRiskAssessment, ActionRiskSubmit},
		[]string{"role:admin", ObjectRiskAssessment, ActionRiskComplete},
		[]string{"role:admin", ObjectAuditLog, ActionAuditLogView},
	)

	// Owners hold every admin and approver capability plus membership admin.
	for _, object := range viewableObjects {
		policies = append(policies, []string{"role:owner", object, ActionView})
	}
	for _, object := range editableObjects {
		policies = append(policies,
			[]string{"role:owner", object, ActionCreate},
			[]string{"role:owner", object, ActionUpdate},
			[]string{"role:owner", object, ActionDelete},
		)
	}
	policies = append(policies,
		[]string{"role:owner", ObjectValidationProject, ActionProjectSubmit},
		[]string{"role:owner", ObjectValidationProject, ActionProjectApprove},
		[]string{"role:owner", ObjectValidationProject, ActionProjectReject},
		[]string{"role:owner", ObjectValidationProject, ActionProjectComplete},
		[]string{"role:owner", ObjectValidationProject, ActionProjectCancel},
		[]string{"role:owner", ObjectChangeRequest, ActionChangeAdvance},
		[]string{"role:owner", ObjectChangeRequest, ActionChangeApprove},
		[]string{"role:owner", ObjectDocument, ActionDocumentSubmit},
		[]string{"role:owner", ObjectDocument, ActionDocumentApprove},
		[]string{"role:owner", ObjectDocument, ActionDocumentReject},
		[]string{"role:owner", ObjectRiskAssessment, ActionRiskSubmit},
		[]string{"role:owner", ObjectRiskAssessment, ActionRiskApprove},
		[]string{"role:owner", ObjectRiskAssessment, ActionRiskReject},
		[]string{"role:owner", ObjectRiskAssessment, ActionRiskComplete},
		[]string{"role:owner", ObjectMembership, ActionMembershipManage},
		[]string{"role:owner", ObjectCompany, ActionUpdate},
		[]string{"role:owner", ObjectAuditLog, ActionAuditLogView},
	)

	// System subject for automated processes.
	for _, object := range viewableObjects {
		policies = append(policies,
			[]string{"role:system", object, ActionView},
			[]string{"role:system", object, ActionCreate},
			[]string{"role:system", object, ActionUpdate},
		)
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
