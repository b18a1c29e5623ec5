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
	"github.com/qualitrace/qualitrace/internal/validationproject/domain"
	"github.com/qualitrace/qualitrace/internal/workflow"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const entityName = "validation_project"

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
		log:       p.Log.Named("validationproject.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		audit:     p.Audit,
		publisher: p.Publisher,
		metrics:   p.Metrics,
	}
}

func (s *service) Create(ctx context.Context, ownerID snowflake.ID, req domain.CreateProjectRequest) (*domain.ValidationProject, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingCompany
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	now := s.clock.Now()
	project := &domain.ValidationProject{
		ID:          s.genID.Generate(),
		CompanyID:   companyID,
		SystemID:    req.SystemID,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Status:      domain.StatusDraft,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, project); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "validation_project.created", project.ID, nil, map[string]any{
		"name":   project.Name,
		"status": project.Status,
	})
	return project, nil
}

func (s *service) Get(ctx context.Context, id snowflake.ID) (*domain.ValidationProject, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingCompany
	}
	return s.repo.Get(ctx, companyID, id)
}

func (s *service) List(ctx context.Context) ([]domain.ValidationProject, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingCompany
	}
	return s.repo.List(ctx, companyID)
}

func (s *service) Update(ctx context.Context, id snowflake.ID, req domain.UpdateProjectRequest) (*domain.ValidationProject, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingCompany
	}

	project, err := s.repo.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}

	old := map[string]any{
		"name":     project.Name,
		"progress": project.Progress,
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		project.Name = name
	}
	if req.Description != nil {
		project.Description = strings.TrimSpace(*req.Description)
	}
	if req.Progress != nil {
		if *req.Progress < 0 || *req.Progress > 100 {
			return nil, domain.ErrInvalidProgress
		}
		project.Progress = *req.Progress
	}
	project.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, project); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "validation_project.updated", project.ID, old, map[string]any{
		"name":     project.Name,
		"progress": project.Progress,
	})
	return project, nil
}

func (s *service) Submit(ctx context.Context, id snowflake.ID) (*domain.ValidationProject, error) {
	return s.transition(ctx, id, domain.StatusPending, func(p *domain.ValidationProject) error {
		if p.Status != domain.StatusDraft && p.Status != domain.StatusRejected {
			return workflow.NewTransitionError(entityName, p.Status, domain.StatusPending)
		}
		// Resubmission wipes the previous review outcome.
		p.RejectionReason = nil
		return nil
	})
}

func (s *service) Approve(ctx context.Context, id, approverID snowflake.ID) (*domain.ValidationProject, error) {
	return s.transition(ctx, id, domain.StatusApproved, func(p *domain.ValidationProject) error {
		if p.Status != domain.StatusPending {
			return workflow.NewTransitionError(entityName, p.Status, domain.StatusApproved)
		}
		now := s.clock.Now()
		p.ApproverID = &approverID
		p.ApprovedAt = &now
		return nil
	})
}

func (s *service) Reject(ctx context.Context, id, approverID snowflake.ID, reason string) (*domain.ValidationProject, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.ErrInvalidReason
	}
	return s.transition(ctx, id, domain.StatusRejected, func(p *domain.ValidationProject) error {
		if p.Status != domain.StatusPending {
			return workflow.NewTransitionError(entityName, p.Status, domain.StatusRejected)
		}
		now := s.clock.Now()
		p.ApproverID = &approverID
		p.ApprovedAt = &now
		p.RejectionReason = &reason
		return nil
	})
}

func (s *service) Complete(ctx context.Context, id snowflake.ID) (*domain.ValidationProject, error) {
	return s.transition(ctx, id, domain.StatusCompleted, func(p *domain.ValidationProject) error {
		if p.Status != domain.StatusApproved {
			return workflow.NewTransitionError(entityName, p.Status, domain.StatusCompleted)
		}
		now := s.clock.Now()
		p.CompletionDate = &now
		return nil
	})
}

func (s *service) Cancel(ctx context.Context, id snowflake.ID) (*domain.ValidationProject, error) {
	return s.transition(ctx, id, domain.StatusCancelled, func(p *domain.ValidationProject) error {
		if p.Status != domain.StatusDraft && p.Status != domain.StatusPending {
			return workflow.NewTransitionError(entityName, p.Status, domain.StatusCancelled)
		}
		return nil
	})
}

// transition runs the read-guard-write cycle shared by all status moves. The
// final write is conditional on the pre-read status so two racing calls can
// never both succeed.
func (s *service) transition(ctx context.Context, id snowflake.ID, toStatus string, mutate func(*domain.ValidationProject) error) (*domain.ValidationProject, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingCompany
	}

	project, err := s.repo.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}

	fromStatus := project.Status
	if err := mutate(project); err != nil {
		return nil, err
	}
	project.Status = toStatus
	project.UpdatedAt = s.clock.Now()

	updated, err := s.repo.UpdateStatusIfCurrent(ctx, project, fromStatus)
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
	s.recordAudit(ctx, "validation_project.status_changed", project.ID,
		map[string]any{"status": fromStatus},
		map[string]any{"status": toStatus},
	)
	s.publishStatusChange(ctx, project, fromStatus, toStatus)
	return project, nil
}

func (s *service) publishStatusChange(ctx context.Context, p *domain.ValidationProject, from, to string) {
	if s.publisher == nil {
		return
	}
	event := events.StatusChangeEvent{
		Topic:      events.TopicProjectStatusChanged,
		CompanyID:  p.CompanyID,
		EntityType: entityName,
		EntityID:   p.ID,
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
