package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/qualitrace/qualitrace/internal/audit/domain"
	"github.com/qualitrace/qualitrace/internal/auditcontext"
	"github.com/qualitrace/qualitrace/internal/clock"
	"github.com/qualitrace/qualitrace/internal/companyctx"
	"github.com/qualitrace/qualitrace/internal/document/domain"
	"github.com/qualitrace/qualitrace/internal/events"
	obsmetrics "github.com/qualitrace/qualitrace/internal/observability/metrics"
	"github.com/qualitrace/qualitrace/internal/workflow"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const entityName = "document"

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
		log:       p.Log.Named("document.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		repo:      p.Repo,
		audit:     p.Audit,
		publisher: p.Publisher,
		metrics:   p.Metrics,
	}
}

func (s *service) Create(ctx context.Context, authorID snowflake.ID, req domain.CreateDocumentRequest) (*domain.Document, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingCompany
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}
	if !domain.ValidType(req.DocumentType) {
		return nil, domain.ErrInvalidType
	}

	now := s.clock.Now()
	doc := &domain.Document{
		ID:           s.genID.Generate(),
		CompanyID:    companyID,
		ProjectID:    req.ProjectID,
		SystemID:     req.SystemID,
		Title:        title,
		DocumentType: req.DocumentType,
		Content:      req.Content,
		FileRef:      strings.TrimSpace(req.FileRef),
		Version:      domain.InitialVersion,
		Status:       domain.StatusDraft,
		AuthorID:     authorID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "document.created", doc.ID, nil, map[string]any{
		"title":         doc.Title,
		"document_type": doc.DocumentType,
		"version":       doc.Version,
		"status":        doc.Status,
	})
	return doc, nil
}

func (s *service) Get(ctx context.Context, id snowflake.ID) (*domain.Document, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingCompany
	}
	return s.repo.Get(ctx, companyID, id)
}

func (s *service) List(ctx context.Context) ([]domain.Document, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingCompany
	}
	return s.repo.List(ctx, companyID)
}

func (s *service) UpdateContent(ctx context.Context, id, editorID snowflake.ID, req domain.UpdateContentRequest) (*domain.Document, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingCompany
	}

	var updated *domain.Document
	var priorVersion string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		doc, err := repo.Get(ctx, companyID, id)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		priorVersion = doc.Version

		// Snapshot first. A failure here rolls the transaction back and the
		// live row never mutates: history completeness wins over availability.
		snapshot := &domain.DocumentVersion{
			ID:            s.genID.Generate(),
			CompanyID:     doc.CompanyID,
			DocumentID:    doc.ID,
			Version:       doc.Version,
			Title:         doc.Title,
			Content:       doc.Content,
			FileRef:       doc.FileRef,
			EditorID:      editorID,
			ChangeSummary: strings.TrimSpace(req.ChangeSummary),
			CreatedAt:     now,
		}
		if err := repo.InsertVersion(ctx, snapshot); err != nil {
			return err
		}

		if req.Title != nil {
			title := strings.TrimSpace(*req.Title)
			if title == "" {
				return domain.ErrInvalidTitle
			}
			doc.Title = title
		}
		if req.Content != nil {
			doc.Content = *req.Content
		}
		if req.FileRef != nil {
			doc.FileRef = strings.TrimSpace(*req.FileRef)
		}
		doc.Version = domain.NextVersion(doc.Version)
		doc.UpdatedAt = now

		if err := repo.UpdateContent(ctx, doc); err != nil {
			return err
		}
		updated = doc
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "document.content_updated", updated.ID,
		map[string]any{"version": priorVersion},
		map[string]any{"version": updated.Version, "change_summary": req.ChangeSummary},
	)
	return updated, nil
}

func (s *service) ListVersions(ctx context.Context, documentID snowflake.ID) ([]domain.DocumentVersion, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingCompany
	}
	// NotFound for cross-tenant and nonexistent documents alike.
	if _, err := s.repo.Get(ctx, companyID, documentID); err != nil {
		return nil, err
	}
	return s.repo.ListVersions(ctx, companyID, documentID)
}

func (s *service) Submit(ctx context.Context, id snowflake.ID) (*domain.Document, error) {
	return s.transition(ctx, id, domain.StatusPending, func(d *domain.Document) error {
		if d.Status != domain.StatusDraft {
			return workflow.NewTransitionError(entityName, d.Status, domain.StatusPending)
		}
		return nil
	})
}

func (s *service) Approve(ctx context.Context, id, approverID snowflake.ID) (*domain.Document, error) {
	return s.transition(ctx, id, domain.StatusApproved, func(d *domain.Document) error {
		if d.Status != domain.StatusPending {
			return workflow.NewTransitionError(entityName, d.Status, domain.StatusApproved)
		}
		now := s.clock.Now()
		d.ApprovedBy = &approverID
		d.ApprovedAt = &now
		return nil
	})
}

func (s *service) Reject(ctx context.Context, id, approverID snowflake.ID, reason string) (*domain.Document, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.ErrInvalidReason
	}
	doc, err := s.transition(ctx, id, domain.StatusRejected, func(d *domain.Document) error {
		if d.Status != domain.StatusPending {
			return workflow.NewTransitionError(entityName, d.Status, domain.StatusRejected)
		}
		now := s.clock.Now()
		d.ApprovedBy = &approverID
		d.ApprovedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "document.rejected", doc.ID, nil, map[string]any{"reason": reason})
	return doc, nil
}

func (s *service) transition(ctx context.Context, id snowflake.ID, toStatus string, mutate func(*domain.Document) error) (*domain.Document, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingCompany
	}

	doc, err := s.repo.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}

	fromStatus := doc.Status
	if err := mutate(doc); err != nil {
		return nil, err
	}
	doc.Status = toStatus
	doc.UpdatedAt = s.clock.Now()

	updated, err := s.repo.UpdateStatusIfCurrent(ctx, doc, fromStatus)
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
	s.recordAudit(ctx, "document.status_changed", doc.ID,
		map[string]any{"status": fromStatus},
		map[string]any{"status": toStatus},
	)
	s.publishStatusChange(ctx, doc, fromStatus, toStatus)
	return doc, nil
}

func (s *service) publishStatusChange(ctx context.Context, d *domain.Document, from, to string) {
	if s.publisher == nil {
		return
	}
	event := events.StatusChangeEvent{
		Topic:      events.TopicDocumentStatusChanged,
		CompanyID:  d.CompanyID,
		EntityType: entityName,
		EntityID:   d.ID,
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
