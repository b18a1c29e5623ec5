package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/qualitrace/qualitrace/internal/audit/domain"
	"github.com/qualitrace/qualitrace/internal/clock"
	"github.com/qualitrace/qualitrace/internal/companyctx"
	obsmetrics "github.com/qualitrace/qualitrace/internal/observability/metrics"
	"github.com/qualitrace/qualitrace/internal/traceability/domain"
	pkgdb "github.com/qualitrace/qualitrace/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Audit   auditdomain.Service `optional:"true"`
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	audit   auditdomain.Service
	metrics *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &service{
		db:      p.DB,
		log:     p.Log.Named("traceability.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		audit:   p.Audit,
		metrics: p.Metrics,
	}
}

func (s *service) CreateRequirement(ctx context.Context, req domain.CreateRequirementRequest) (*domain.Requirement, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingCompany
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, domain.ErrInvalidCode
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}
	reqType := req.Type
	if reqType == "" {
		reqType = domain.RequirementTypeFunctional
	}
	if !domain.ValidRequirementType(reqType) {
		return nil, domain.ErrInvalidRequirementType
	}

	now := s.clock.Now()
	requirement := &domain.Requirement{
		ID:          s.genID.Generate(),
		CompanyID:   companyID,
		ProjectID:   req.ProjectID,
		Code:        code,
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Type:        reqType,
		Status:      domain.RequirementStatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.CreateRequirement(ctx, requirement); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateCode
		}
		return nil, err
	}

	s.recordAudit(ctx, "requirement.created", "requirement", requirement.ID, nil, map[string]any{
		"code":  requirement.Code,
		"title": requirement.Title,
		"type":  requirement.Type,
	})
	return requirement, nil
}

func (s *service) GetRequirement(ctx context.Context, id snowflake.ID) (*domain.Requirement, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingCompany
	}
	return s.repo.GetRequirement(ctx, companyID, id)
}

func (s *service) ListRequirements(ctx context.Context, projectID *snowflake.ID) ([]domain.Requirement, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingCompany
	}
	return s.repo.ListRequirements(ctx, companyID, projectID)
}

func (s *service) CreateTestCase(ctx context.Context, req domain.CreateTestCaseRequest) (*domain.TestCase, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingCompany
	}

	code := strings.TrimSpace(req.Code)
	if code == "" {
		return nil, domain.ErrInvalidCode
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}

	now := s.clock.Now()
	tc := &domain.TestCase{
		ID:        s.genID.Generate(),
		CompanyID: companyID,
		ProjectID: req.ProjectID,
		Code:      code,
		Title:     title,
		Status:    "draft",
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.CreateTestCase(ctx, tc); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "test_case.created", "test_case", tc.ID, nil, map[string]any{
		"code":  tc.Code,
		"title": tc.Title,
	})
	return tc, nil
}

func (s *service) GetTestCase(ctx context.Context, id snowflake.ID) (*domain.TestCase, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingCompany
	}
	return s.repo.GetTestCase(ctx, companyID, id)
}

func (s *service) ListTestCases(ctx context.Context, projectID *snowflake.ID) ([]domain.TestCase, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingCompany
	}
	return s.repo.ListTestCases(ctx, companyID, projectID)
}

func (s *service) RecordResult(ctx context.Context, id snowflake.ID, req domain.RecordResultRequest) (*domain.TestCase, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingCompany
	}
	if !domain.ValidResult(req.Result) {
		return nil, domain.ErrInvalidResult
	}

	tc, err := s.repo.GetTestCase(ctx, companyID, id)
	if err != nil {
		return nil, err
	}

	var old map[string]any
	if tc.Result != nil {
		old = map[string]any{"result": *tc.Result}
	}

	now := s.clock.Now()
	result := req.Result
	tc.Result = &result
	tc.Status = "executed"
	tc.ExecutedBy = &req.ExecutedBy
	tc.ExecutedAt = &now
	tc.UpdatedAt = now

	if err := s.repo.UpdateTestCase(ctx, tc); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "test_case.result_recorded", "test_case", tc.ID, old, map[string]any{
		"result": result,
	})
	return tc, nil
}

func (s *service) AddLink(ctx context.Context, requirementID, testCaseID, createdBy snowflake.ID) (*domain.RTMLink, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingCompany
	}

	// Both endpoints must resolve inside the caller's tenant; a reference to
	// another tenant's row reads as not-found.
	if _, err := s.repo.GetRequirement(ctx, companyID, requirementID); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetTestCase(ctx, companyID, testCaseID); err != nil {
		return nil, err
	}

	link := &domain.RTMLink{
		ID:            s.genID.Generate(),
		CompanyID:     companyID,
		RequirementID: requirementID,
		TestCaseID:    testCaseID,
		CreatedBy:     createdBy,
		CreatedAt:     s.clock.Now(),
	}

	// Uniqueness rides on the index, not a pre-check, so racing duplicates
	// cannot slip through.
	if err := s.repo.CreateLink(ctx, link); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateLink
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordRTMLinkMutation(ctx, "add")
	}
	s.recordAudit(ctx, "rtm_link.created", "rtm_link", link.ID, nil, map[string]any{
		"requirement_id": requirementID.String(),
		"test_case_id":   testCaseID.String(),
	})
	return link, nil
}

func (s *service) RemoveLink(ctx context.Context, linkID snowflake.ID) error {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return domain.ErrMissingCompany
	}

	link, err := s.repo.GetLink(ctx, companyID, linkID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteLink(ctx, companyID, linkID); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordRTMLinkMutation(ctx, "remove")
	}
	s.recordAudit(ctx, "rtm_link.removed", "rtm_link", link.ID, map[string]any{
		"requirement_id": link.RequirementID.String(),
		"test_case_id":   link.TestCaseID.String(),
	}, nil)
	return nil
}

func (s *service) ListLinks(ctx context.Context, scope domain.CoverageScope) ([]domain.RTMLink, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingCompany
	}
	return s.repo.ListLinks(ctx, companyID, scope.ProjectID)
}

func (s *service) Coverage(ctx context.Context, scope domain.CoverageScope) (*domain.CoverageStats, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingCompany
	}

	rows, err := s.repo.LinkRows(ctx, companyID, scope.ProjectID)
	if err != nil {
		return nil, err
	}

	stats := &domain.CoverageStats{TotalLinks: len(rows)}
	covered := make(map[snowflake.ID]struct{})
	tested := make(map[snowflake.ID]struct{})
	for _, row := range rows {
		covered[row.RequirementID] = struct{}{}
		if row.Result == nil {
			continue
		}
		switch *row.Result {
		case domain.ResultPassed:
			stats.PassedLinks++
			tested[row.RequirementID] = struct{}{}
		case domain.ResultFailed:
			stats.FailedLinks++
			tested[row.RequirementID] = struct{}{}
		}
	}
	stats.CoveredRequirements = len(covered)
	stats.TestedRequirements = len(tested)
	return stats, nil
}

func (s *service) recordAudit(ctx context.Context, action, targetType string, targetID snowflake.ID, oldValues, newValues map[string]any) {
	if s.audit == nil {
		return
	}
	target := targetID.String()
	entry := auditdomain.Entry{
		Action:     action,
		TargetType: targetType,
		TargetID:   &target,
		OldValues:  oldValues,
		NewValues:  newValues,
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.log.Warn("failed to record audit entry", zap.String("action", action), zap.Error(err))
	}
}
