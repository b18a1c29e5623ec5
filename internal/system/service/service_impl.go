package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/qualitrace/qualitrace/internal/audit/domain"
	"github.com/qualitrace/qualitrace/internal/clock"
	"github.com/qualitrace/qualitrace/internal/companyctx"
	"github.com/qualitrace/qualitrace/internal/system/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
	Audit auditdomain.Service `optional:"true"`
}

type service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
	audit auditdomain.Service
}

func NewService(p Params) domain.Service {
	return &service{
		db:    p.DB,
		log:   p.Log.Named("system.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		audit: p.Audit,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateSystemRequest) (*domain.System, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingCompany
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if !domain.ValidGampCategory(req.GampCategory) {
		return nil, domain.ErrInvalidGampCategory
	}

	criticality := req.Criticality
	if criticality == "" {
		criticality = domain.CriticalityMedium
	}
	if !domain.ValidCriticality(criticality) {
		return nil, domain.ErrInvalidCriticality
	}

	validationStatus := req.ValidationStatus
	if validationStatus == "" {
		validationStatus = domain.ValidationNotStarted
	}
	if !domain.ValidValidationStatus(validationStatus) {
		return nil, domain.ErrInvalidValidationStatus
	}

	now := s.clock.Now()
	system := &domain.System{
		ID:               s.genID.Generate(),
		CompanyID:        companyID,
		Name:             name,
		Description:      strings.TrimSpace(req.Description),
		Vendor:           strings.TrimSpace(req.Vendor),
		Version:          strings.TrimSpace(req.Version),
		GampCategory:     req.GampCategory,
		Criticality:      criticality,
		ValidationStatus: validationStatus,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Create(ctx, system); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "system.created", system.ID, nil, map[string]any{
		"name":              system.Name,
		"gamp_category":     system.GampCategory,
		"criticality":       system.Criticality,
		"validation_status": system.ValidationStatus,
	})
	return system, nil
}

func (s *service) Get(ctx context.Context, id snowflake.ID) (*domain.System, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingCompany
	}
	return s.repo.Get(ctx, companyID, id)
}

func (s *service) List(ctx context.Context) ([]domain.System, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingCompany
	}
	return s.repo.List(ctx, companyID)
}

func (s *service) Update(ctx context.Context, id snowflake.ID, req domain.UpdateSystemRequest) (*domain.System, error) {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrMissingCompany
	}

	system, err := s.repo.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}

	old := map[string]any{
		"name":              system.Name,
		"gamp_category":     system.GampCategory,
		"criticality":       system.Criticality,
		"validation_status": system.ValidationStatus,
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		system.Name = name
	}
	if req.Description != nil {
		system.Description = strings.TrimSpace(*req.Description)
	}
	if req.Vendor != nil {
		system.Vendor = strings.TrimSpace(*req.Vendor)
	}
	if req.Version != nil {
		system.Version = strings.TrimSpace(*req.Version)
	}
	if req.GampCategory != nil {
		if !domain.ValidGampCategory(*req.GampCategory) {
			return nil, domain.ErrInvalidGampCategory
		}
		system.GampCategory = *req.GampCategory
	}
	if req.Criticality != nil {
		if !domain.ValidCriticality(*req.Criticality) {
			return nil, domain.ErrInvalidCriticality
		}
		system.Criticality = *req.Criticality
	}
	if req.ValidationStatus != nil {
		if !domain.ValidValidationStatus(*req.ValidationStatus) {
			return nil, domain.ErrInvalidValidationStatus
		}
		system.ValidationStatus = *req.ValidationStatus
	}
	system.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, system); err != nil {
		return nil, err
	}

	s.recordAudit(ctx, "system.updated", system.ID, old, map[string]any{
		"name":              system.Name,
		"gamp_category":     system.GampCategory,
		"criticality":       system.Criticality,
		"validation_status": system.ValidationStatus,
	})
	return system, nil
}

func (s *service) Delete(ctx context.Context, id snowflake.ID) error {
	companyID, ok := companyctx.CompanyIDFromContext(ctx)
	if !ok {
		return domain.ErrMissingCompany
	}

	if err := s.repo.Delete(ctx, companyID, id); err != nil {
		return err
	}

	s.recordAudit(ctx, "system.deleted", id, nil, nil)
	return nil
}

func (s *service) recordAudit(ctx context.Context, action string, targetID snowflake.ID, oldValues, newValues map[string]any) {
	if s.audit == nil {
		return
	}
	target := targetID.String()
	entry := auditdomain.Entry{
		Action:     action,
		TargetType: "system",
		TargetID:   &target,
		OldValues:  oldValues,
		NewValues:  newValues,
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.log.Warn("failed to record audit entry", zap.String("action", action), zap.Error(err))
	}
}
