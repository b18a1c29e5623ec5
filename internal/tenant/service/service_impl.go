package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	auditdomain "github.com/qualitrace/qualitrace/internal/audit/domain"
	"github.com/qualitrace/qualitrace/internal/clock"
	"github.com/qualitrace/qualitrace/internal/tenant/domain"
	pkgdb "github.com/qualitrace/qualitrace/pkg/db"
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
		log:   p.Log.Named("tenant.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
		audit: p.Audit,
	}
}

func (s *service) CreateCompany(ctx context.Context, userID snowflake.ID, req domain.CreateCompanyRequest) (*domain.CompanyResponse, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	now := s.clock.Now()
	company := domain.Company{
		ID:        s.genID.Generate(),
		Name:      name,
		Slug:      slug.Make(name),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateCompany(ctx, company); err != nil {
			return err
		}

		// The creator becomes the owner. Clear any existing primary flag so
		// the new company becomes their active tenant.
		if err := repo.ClearPrimary(ctx, userID); err != nil {
			return err
		}
		member := domain.UserCompanyMembership{
			ID:        s.genID.Generate(),
			CompanyID: company.ID,
			UserID:    userID,
			Role:      domain.RoleOwner,
			IsPrimary: true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return repo.AddMembership(ctx, member)
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, company.ID, "company.created", "company", company.ID.String(), nil, map[string]any{
		"name": company.Name,
		"slug": company.Slug,
	})

	return &domain.CompanyResponse{
		ID:   company.ID.String(),
		Name: company.Name,
		Slug: company.Slug,
	}, nil
}

func (s *service) GetCompany(ctx context.Context, id snowflake.ID) (*domain.Company, error) {
	if id == 0 {
		return nil, domain.ErrInvalidCompany
	}
	return s.repo.GetCompany(ctx, id)
}

func (s *service) ListCompaniesByUser(ctx context.Context, userID snowflake.ID) ([]domain.CompanyListItem, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}
	return s.repo.ListCompaniesByUser(ctx, userID)
}

func (s *service) ActiveCompany(ctx context.Context, userID snowflake.ID) (*domain.UserCompanyMembership, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}

	memberships, err := s.repo.ListMembershipsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(memberships) == 0 {
		return nil, domain.ErrNoMembership
	}

	for i := range memberships {
		if memberships[i].IsPrimary {
			return &memberships[i], nil
		}
	}
	// Degenerate single-company case never needs a flag; fall back to the
	// oldest membership.
	return &memberships[0], nil
}

func (s *service) SwitchActiveCompany(ctx context.Context, userID, companyID snowflake.ID) error {
	if userID == 0 {
		return domain.ErrInvalidUser
	}
	if companyID == 0 {
		return domain.ErrInvalidCompany
	}

	var previous *snowflake.ID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		target, err := repo.GetMembership(ctx, userID, companyID)
		if err != nil {
			return err
		}

		memberships, err := repo.ListMembershipsByUser(ctx, userID)
		if err != nil {
			return err
		}
		for i := range memberships {
			if memberships[i].IsPrimary {
				previous = &memberships[i].CompanyID
			}
		}

		// Both writes commit together or neither does; no state with zero or
		// two primary memberships is ever observable.
		if err := repo.ClearPrimary(ctx, userID); err != nil {
			return err
		}
		return repo.SetPrimary(ctx, target.ID)
	})
	if err != nil {
		return err
	}

	old := map[string]any{}
	if previous != nil {
		old["company_id"] = previous.String()
	}
	s.recordAudit(ctx, companyID, "tenant.switched", "membership", userID.String(), old, map[string]any{
		"company_id": companyID.String(),
	})
	return nil
}

func (s *service) AddMembership(ctx context.Context, userID, companyID snowflake.ID, role string, setPrimary bool) (*domain.UserCompanyMembership, error) {
	if userID == 0 {
		return nil, domain.ErrInvalidUser
	}
	if companyID == 0 {
		return nil, domain.ErrInvalidCompany
	}
	if role == "" {
		role = domain.RoleMember
	}
	if !domain.ValidRole(role) {
		return nil, domain.ErrInvalidRole
	}

	now := s.clock.Now()
	membership := domain.UserCompanyMembership{
		ID:        s.genID.Generate(),
		CompanyID: companyID,
		UserID:    userID,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if _, err := repo.GetCompany(ctx, companyID); err != nil {
			return err
		}

		count, err := repo.CountMembershipsByUser(ctx, userID)
		if err != nil {
			return err
		}

		// A user's first membership is always primary, regardless of the
		// caller's argument.
		membership.IsPrimary = setPrimary || count == 0
		if membership.IsPrimary {
			if err := repo.ClearPrimary(ctx, userID); err != nil {
				return err
			}
		}

		if err := repo.AddMembership(ctx, membership); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				return domain.ErrMembershipExists
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, companyID, "membership.added", "membership", membership.ID.String(), nil, map[string]any{
		"user_id": userID.String(),
		"role":    role,
		"primary": membership.IsPrimary,
	})
	return &membership, nil
}

func (s *service) RemoveMembership(ctx context.Context, userID, companyID snowflake.ID) error {
	if userID == 0 {
		return domain.ErrInvalidUser
	}
	if companyID == 0 {
		return domain.ErrInvalidCompany
	}

	var removed domain.UserCompanyMembership
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		target, err := repo.GetMembership(ctx, userID, companyID)
		if err != nil {
			return err
		}

		memberships, err := repo.ListMembershipsByUser(ctx, userID)
		if err != nil {
			return err
		}
		if len(memberships) <= 1 {
			return domain.ErrLastMembership
		}

		if err := repo.DeleteMembership(ctx, target.ID); err != nil {
			return err
		}

		// Removing the primary membership promotes the oldest remaining one,
		// so the user always keeps an active tenant.
		if target.IsPrimary {
			for i := range memberships {
				if memberships[i].ID != target.ID {
					if err := repo.SetPrimary(ctx, memberships[i].ID); err != nil {
						return err
					}
					break
				}
			}
		}

		removed = *target
		return nil
	})
	if err != nil {
		return err
	}

	s.recordAudit(ctx, companyID, "membership.removed", "membership", removed.ID.String(), map[string]any{
		"user_id": userID.String(),
		"role":    removed.Role,
		"primary": removed.IsPrimary,
	}, nil)
	return nil
}

func (s *service) recordAudit(ctx context.Context, companyID snowflake.ID, action, targetType, targetID string, oldValues, newValues map[string]any) {
	if s.audit == nil {
		return
	}
	entry := auditdomain.Entry{
		CompanyID:  &companyID,
		Action:     action,
		TargetType: targetType,
		TargetID:   &targetID,
		OldValues:  oldValues,
		NewValues:  newValues,
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.log.Warn("failed to record audit entry", zap.String("action", action), zap.Error(err))
	}
}
