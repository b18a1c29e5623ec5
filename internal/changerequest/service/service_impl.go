package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/qualitrace/qualitrace/internal/audit/domain"
	"github.com/qualitrace/qualitrace/internal/auditcontext"
	"github.com/qualitrace/qualitrace/internal/changerequest/domain"
	"github.com/qualitrace/qualitrace/internal/clock"
	"github.com/qualitrace/qualitrace/internal/companyctx"
	"github.com/qualitrace/qualitrace/internal/events"
	obsmetrics "github.com/qualitrace/qualitrace/internal/observability/metrics"
	"github.com/qualitrace/qualitrace/internal/workflow"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const entityName = "change_request"

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
		log:       p.Log.Named("changerequest.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		audit:     p.Audit,
		publisher: p.Publisher,
		metrics:   p.Metrics,
	}
}

func (s *service) Create(ctx context.Context, requesterID snowflake.ID, req domain.CreateChangeRequestRequest) (*domain.ChangeRequest, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingCompany
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}

	priority := req.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	if !domain.ValidPriority(priority) {
		return nil, domain.ErrInvalidPriority
	}

	now := s.clock.Now()
	cr := &domain.ChangeRequest{
		ID:          s.genID.Generate(),
		CompanyID:   companyID,
		SystemID:    req.SystemID,
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Status:      domain.StatusPending,
		Priority:    priority,
		GxpImpact:   req.GxpImpact,
		RequesterID: requesterID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, cr); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "change_request.created", cr.ID, nil, map[string]any{
		"title":      cr.Title,
		"status":     cr.Status,
		"priority":   cr.Priority,
		"gxp_impact": cr.GxpImpact,
	})
	return cr, nil
}

func (s *service) Get(ctx context.Context, id snowflake.ID) (*domain.ChangeRequest, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingCompany
	}
	return s.repo.Get(ctx, companyID, id)
}

func (s *service) List(ctx context.Context) ([]domain.ChangeRequest, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingCompany
	}
	return s.repo.List(ctx, companyID)
}

func (s *service) Advance(ctx context.Context, id, actorID snowflake.ID) (*domain.ChangeRequest, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingCompany
	}

	cr, err := s.repo.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}

	fromStatus := cr.Status
	toStatus, ok := domain.NextStatus(fromStatus)
	if !ok {
		return nil, workflow.NewTransitionError(entityName, fromStatus, "")
	}

	now := s.clock.Now()
	switch toStatus {
	case domain.StatusApproved:
		cr.ApproverID = &actorID
		cr.ApprovedAt = &now
	case domain.StatusCompleted:
		cr.ImplementedAt = &now
	}
	cr.Status = toStatus
	cr.UpdatedAt = now

	updated, err := s.repo.UpdateStatusIfCurrent(ctx, cr, fromStatus)
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
	s.recordAudit(ctx, "change_request.status_changed", cr.ID,
		map[string]any{"status": fromStatus},
		map[string]any{"status": toStatus},
	)
	s.publishStatusChange(ctx, cr, fromStatus, toStatus)
	return cr, nil
}

func (s *service) publishStatusChange(ctx context.Context, cr *domain.ChangeRequest, from, to string) {
	if s.publisher == nil {
		return
	}
	event := events.StatusChangeEvent{
		Topic:      events.TopicChangeRequestStatusChanged,
		CompanyID:  cr.CompanyID,
		EntityType: entityName,
		EntityID:   cr.ID,
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
