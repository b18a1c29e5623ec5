package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/qualitrace/qualitrace/internal/audit/domain"
	"github.com/qualitrace/qualitrace/internal/auditcontext"
	"github.com/qualitrace/qualitrace/internal/clock"
	"github.com/qualitrace/qualitrace/internal/companyctx"
	"github.com/qualitrace/qualitrace/internal/events"
	obsmetrics "github.com/qualitrace/qualitrace/internal/observability/metrics"
	"github.com/qualitrace/qualitrace/internal/risk/domain"
	"github.com/qualitrace/qualitrace/internal/workflow"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const entityName = "risk_assessment"

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Repo      domain.Repository
	Audit     auditdomain.Service `optional:"true"`
	Publisher events.Publisher    `optional:"true"`
	Metrics   *obsmetrics.Metrics `optional:"true"`
}

type service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	repo      domain.Repository
	audit     auditdomain.Service
	publisher events.Publisher
	metrics   *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &service{
		db:        p.DB,
		log:       p.Log.Named("risk.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		audit:     p.Audit,
		publisher: p.Publisher,
		metrics:   p.Metrics,
	}
}

func (s *service) Create(ctx context.Context, assessorID snowflake.ID, req domain.CreateAssessmentRequest) (*domain.RiskAssessment, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingCompany
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}
	if !domain.ValidAssessmentType(req.AssessmentType) {
		return nil, domain.ErrInvalidAssessmentType
	}
	if !domain.ValidFactor(req.Probability) || !domain.ValidFactor(req.Severity) || !domain.ValidFactor(req.Detectability) {
		return nil, domain.ErrInvalidFactor
	}

	score := domain.Score(req.Probability, req.Severity, req.Detectability)
	now := s.clock.Now()
	assessment := &domain.RiskAssessment{
		ID:             s.genID.Generate(),
		CompanyID:      companyID,
		SystemID:       req.SystemID,
		ProjectID:      req.ProjectID,
		Title:          title,
		Description:    strings.TrimSpace(req.Description),
		AssessmentType: req.AssessmentType,
		Probability:    req.Probability,
		Severity:       req.Severity,
		Detectability:  req.Detectability,
		RiskScore:      score,
		RiskLevel:      domain.Level(score),
		Status:         domain.StatusDraft,
		AssessorID:     assessorID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(ctx, assessment); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "risk_assessment.created", assessment.ID, nil, map[string]any{
		"title":           assessment.Title,
		"assessment_type": assessment.AssessmentType,
		"risk_score":      assessment.RiskScore,
		"risk_level":      assessment.RiskLevel,
	})
	return assessment, nil
}

func (s *service) Get(ctx context.Context, id snowflake.ID) (*domain.RiskAssessment, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingCompany
	}
	return s.repo.Get(ctx, companyID, id)
}

func (s *service) List(ctx context.Context) ([]domain.RiskAssessment, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingCompany
	}
	return s.repo.List(ctx, companyID)
}

func (s *service) UpdateFactors(ctx context.Context, id snowflake.ID, req domain.UpdateFactorsRequest) (*domain.RiskAssessment, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingCompany
	}
	if !domain.ValidFactor(req.Probability) || !domain.ValidFactor(req.Severity) || !domain.ValidFactor(req.Detectability) {
		return nil, domain.ErrInvalidFactor
	}

	assessment, err := s.repo.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}

	editable := assessment.Status == domain.StatusDraft || assessment.Status == domain.StatusRejected
	if !editable {
		return nil, workflow.NewTransitionError(entityName, assessment.Status, assessment.Status)
	}

	old := map[string]any{
		"probability":   assessment.Probability,
		"severity":      assessment.Severity,
		"detectability": assessment.Detectability,
		"risk_score":    assessment.RiskScore,
		"risk_level":    assessment.RiskLevel,
	}

	assessment.Probability = req.Probability
	assessment.Severity = req.Severity
	assessment.Detectability = req.Detectability
	assessment.RiskScore = domain.Score(req.Probability, req.Severity, req.Detectability)
	assessment.RiskLevel = domain.Level(assessment.RiskScore)
	assessment.UpdatedAt = s.clock.Now()

	updated, err := s.repo.UpdateFactorsIfStatus(ctx, assessment, []string{domain.StatusDraft, domain.StatusRejected})
	if err != nil {
		return nil, err
	}
	if !updated {
		if s.metrics != nil {
			s.metrics.RecordTransitionConflict(ctx, entityName)
		}
		return nil, workflow.ErrConflict
	}

	if s.metrics != nil {
		s.metrics.RecordRiskRecompute(ctx, assessment.RiskLevel)
	}
	s.recordAudit(ctx, "risk_assessment.factors_updated", assessment.ID, old, map[string]any{
		"probability":   assessment.Probability,
		"severity":      assessment.Severity,
		"detectability": assessment.Detectability,
		"risk_score":    assessment.RiskScore,
		"risk_level":    assessment.RiskLevel,
	})
	return assessment, nil
}

func (s *service) Submit(ctx context.Context, id snowflake.ID) (*domain.RiskAssessment, error) {
	return s.transition(ctx, id, domain.StatusPending, func(a *domain.RiskAssessment) error {
		if a.Status != domain.StatusDraft && a.Status != domain.StatusRejected {
			return workflow.NewTransitionError(entityName, a.Status, domain.StatusPending)
		}
		a.RejectionReason = nil
		return nil
	})
}

func (s *service) Approve(ctx context.Context, id, approverID snowflake.ID) (*domain.RiskAssessment, error) {
	return s.transition(ctx, id, domain.StatusApproved, func(a *domain.RiskAssessment) error {
		if a.Status != domain.StatusPending {
			return workflow.NewTransitionError(entityName, a.Status, domain.StatusApproved)
		}
		now := s.clock.Now()
		a.ApproverID = &approverID
		a.ApprovedAt = &now
		return nil
	})
}

func (s *service) Reject(ctx context.Context, id, approverID snowflake.ID, reason string) (*domain.RiskAssessment, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.ErrInvalidReason
	}
	return s.transition(ctx, id, domain.StatusRejected, func(a *domain.RiskAssessment) error {
		if a.Status != domain.StatusPending {
			return workflow.NewTransitionError(entityName, a.Status, domain.StatusRejected)
		}
		now := s.clock.Now()
		a.ApproverID = &approverID
		a.ApprovedAt = &now
		a.RejectionReason = &reason
		return nil
	})
}

func (s *service) Complete(ctx context.Context, id snowflake.ID) (*domain.RiskAssessment, error) {
	return s.transition(ctx, id, domain.StatusCompleted, func(a *domain.RiskAssessment) error {
		if a.Status != domain.StatusApproved {
			return workflow.NewTransitionError(entityName, a.Status, domain.StatusCompleted)
		}
		return nil
	})
}

// transition runs the shared read-guard-write cycle. mutate validates the
// pre-read status and applies side effects; the write is conditional on the
// pre-read status still being current.
func (s *service) transition(ctx context.Context, id snowflake.ID, toStatus string, mutate func(*domain.RiskAssessment) error) (*domain.RiskAssessment, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingCompany
	}

	assessment, err := s.repo.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}

	fromStatus := assessment.Status
	if err := mutate(assessment); err != nil {
		return nil, err
	}
	assessment.Status = toStatus
	assessment.UpdatedAt = s.clock.Now()

	updated, err := s.repo.UpdateStatusIfCurrent(ctx, assessment, fromStatus)
	if err != nil {
		return nil, err
	}
	if !updated {
		if s.metrics != nil {
			s.metrics.RecordTransitionConflict(ctx, entityName)
		}
		return nil, workflow.ErrConflict
	}

	if s.metrics != nil {
		s.metrics.RecordWorkflowTransition(ctx, entityName, toStatus)
	}
	s.recordAudit(ctx, "risk_assessment.status_changed", assessment.ID,
		map[string]any{"status": fromStatus},
		map[string]any{"status": toStatus},
	)
	s.publishStatusChange(ctx, assessment, fromStatus, toStatus)
	return assessment, nil
}

func (s *service) AddMitigation(ctx context.Context, req domain.AddMitigationRequest) (*domain.MitigationAction, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingCompany
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, domain.ErrInvalidDescription
	}

	// The risk must exist in the caller's tenant before remediation can be
	// attached to it.
	if _, err := s.repo.Get(ctx, companyID, req.RiskID); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	action := &domain.MitigationAction{
		ID:          s.genID.Generate(),
		CompanyID:   companyID,
		RiskID:      req.RiskID,
		Description: description,
		Status:      domain.MitigationPending,
		OwnerID:     req.OwnerID,
		DueDate:     req.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateMitigation(ctx, action); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "mitigation_action.created", action.ID, nil, map[string]any{
		"risk_id":     action.RiskID.String(),
		"description": action.Description,
	})
	return action, nil
}

func (s *service) CompleteMitigation(ctx context.Context, id snowflake.ID) (*domain.MitigationAction, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingCompany
	}

	action, err := s.repo.GetMitigation(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if action.Status == domain.MitigationCompleted {
		return nil, domain.ErrMitigationCompleted
	}

	now := s.clock.Now()
	action.Status = domain.MitigationCompleted
	action.CompletedAt = &now
	action.UpdatedAt = now

	if err := s.repo.UpdateMitigation(ctx, action); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "mitigation_action.completed", action.ID,
		map[string]any{"status": domain.MitigationPending},
		map[string]any{"status": domain.MitigationCompleted},
	)
	return action, nil
}

func (s *service) ListMitigations(ctx context.Context, riskID snowflake.ID) ([]domain.MitigationAction, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingCompany
	}
	return s.repo.ListMitigations(ctx, companyID, riskID)
}

func (s *service) publishStatusChange(ctx context.Context, a *domain.RiskAssessment, from, to string) {
	if s.publisher == nil {
		return
	}
	event := events.StatusChangeEvent{
		Topic:      events.TopicRiskStatusChanged,
		CompanyID:  a.CompanyID,
		EntityType: entityName,
		EntityID:   a.ID,
		From:       from,
		To:         to,
		OccurredAt: s.clock.Now(),
	}
	if _, actorID := auditcontext.ActorFromContext(ctx); actorID != "" {
		event.ActorID = actorID
	}
	s.publisher.Publish(ctx, event)
}

func (s *service) recordAudit(ctx context.Context, action string, targetID snowflake.ID, oldValues, newValues map[string]any) {
	if s.audit == nil {
		return
	}
	target := targetID.String()
	entry := auditdomain.Entry{
		Action:     action,
		TargetType: entityName,
		TargetID:   &target,
		OldValues:  oldValues,
		NewValues:  newValues,
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.log.Warn("failed to record audit entry", zap.String("action", action), zap.Error(err))
	}
}
