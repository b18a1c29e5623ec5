package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/qualitrace/qualitrace/internal/clock"
	"github.com/qualitrace/qualitrace/internal/tenant/domain"
	"github.com/qualitrace/qualitrace/internal/tenant/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTenantService(t *testing.T) (domain.Service, *snowflake.Node, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Company{}, &domain.UserCompanyMembership{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
		Repo:  repository.NewRepository(db),
	})
	return svc, node, db
}

func TestCreateCompanyMakesCreatorPrimaryOwner(t *testing.T) {
	svc, node, _ := setupTenantService(t)
	ctx := context.Background()
	userID := node.Generate()

	resp, err := svc.CreateCompany(ctx, userID, domain.CreateCompanyRequest{Name: "Acme Pharma"})
	require.NoError(t, err)
	assert.Equal(t, "acme-pharma", resp.Slug)

	active, err := svc.ActiveCompany(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, resp.ID, active.CompanyID.String())
	assert.Equal(t, domain.RoleOwner, active.Role)
	assert.True(t, active.IsPrimary)
}

func TestSwitchActiveCompanyKeepsOnePrimary(t *testing.T) {
	svc, node, db := setupTenantService(t)
	ctx := context.Background()
	userID := node.Generate()

	first, err := svc.CreateCompany(ctx, userID, domain.CreateCompanyRequest{Name: "Site One"})
	require.NoError(t, err)
	second, err := svc.CreateCompany(ctx, userID, domain.CreateCompanyRequest{Name: "Site Two"})
	require.NoError(t, err)

	// Creating the second company moved the primary flag there.
	active, err := svc.ActiveCompany(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.CompanyID.String())

	firstID, err := snowflake.ParseString(first.ID)
	require.NoError(t, err)
	require.NoError(t, svc.SwitchActiveCompany(ctx, userID, firstID))

	active, err = svc.ActiveCompany(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, active.CompanyID.String())

	// Exactly one membership may hold the primary flag.
	var primaries int64
	require.NoError(t, db.Model(&domain.UserCompanyMembership{}).
		Where("user_id = ? AND is_primary = ?", userID, true).
		Count(&primaries).Error)
	assert.EqualValues(t, 1, primaries)
}

func TestSwitchToCompanyWithoutMembership(t *testing.T) {
	svc, node, _ := setupTenantService(t)
	ctx := context.Background()
	userID := node.Generate()

	_, err := svc.CreateCompany(ctx, userID, domain.CreateCompanyRequest{Name: "Home Site"})
	require.NoError(t, err)

	strangerID := node.Generate()
	other, err := svc.CreateCompany(ctx, strangerID, domain.CreateCompanyRequest{Name: "Other Site"})
	require.NoError(t, err)

	otherID, err := snowflake.ParseString(other.ID)
	require.NoError(t, err)
	err = svc.SwitchActiveCompany(ctx, userID, otherID)
	assert.ErrorIs(t, err, domain.ErrMembershipNotFound)
}

func TestAddMembershipDuplicate(t *testing.T) {
	svc, node, _ := setupTenantService(t)
	ctx := context.Background()
	ownerID := node.Generate()

	company, err := svc.CreateCompany(ctx, ownerID, domain.CreateCompanyRequest{Name: "QA Site"})
	require.NoError(t, err)
	companyID, err := snowflake.ParseString(company.ID)
	require.NoError(t, err)

	memberID := node.Generate()
	first, err := svc.AddMembership(ctx, memberID, companyID, domain.RoleQAApprover, false)
	require.NoError(t, err)
	// First membership is forced primary regardless of the flag.
	assert.True(t, first.IsPrimary)

	_, err = svc.AddMembership(ctx, memberID, companyID, domain.RoleMember, false)
	assert.ErrorIs(t, err, domain.ErrMembershipExists)
}

func TestRemoveLastMembershipRefused(t *testing.T) {
	svc, node, _ := setupTenantService(t)
	ctx := context.Background()
	userID := node.Generate()

	company, err := svc.CreateCompany(ctx, userID, domain.CreateCompanyRequest{Name: "Only Site"})
	require.NoError(t, err)
	companyID, err := snowflake.ParseString(company.ID)
	require.NoError(t, err)

	err = svc.RemoveMembership(ctx, userID, companyID)
	assert.ErrorIs(t, err, domain.ErrLastMembership)
}

func TestRemovePrimaryMembershipPromotesAnother(t *testing.T) {
	svc, node, _ := setupTenantService(t)
	ctx := context.Background()
	userID := node.Generate()

	first, err := svc.CreateCompany(ctx, userID, domain.CreateCompanyRequest{Name: "Alpha"})
	require.NoError(t, err)
	second, err := svc.CreateCompany(ctx, userID, domain.CreateCompanyRequest{Name: "Beta"})
	require.NoError(t, err)

	// Beta is primary; remove it and Alpha must take over.
	secondID, err := snowflake.ParseString(second.ID)
	require.NoError(t, err)
	require.NoError(t, svc.RemoveMembership(ctx, userID, secondID))

	active, err := svc.ActiveCompany(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, active.CompanyID.String())
	assert.True(t, active.IsPrimary)
}

func TestAddMembershipValidatesRole(t *testing.T) {
	svc, node, _ := setupTenantService(t)
	ctx := context.Background()
	ownerID := node.Generate()

	company, err := svc.CreateCompany(ctx, ownerID, domain.CreateCompanyRequest{Name: "Role Site"})
	require.NoError(t, err)
	companyID, err := snowflake.ParseString(company.ID)
	require.NoError(t, err)

	_, err = svc.AddMembership(ctx, node.Generate(), companyID, "superuser", false)
	assert.ErrorIs(t, err, domain.ErrInvalidRole)
}

func TestSchemaRejectsSecondPrimaryMembership(t *testing.T) {
	_, node, db := setupTenantService(t)
	userID := node.Generate()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	first := domain.UserCompanyMembership{
		ID: node.Generate(), CompanyID: node.Generate(), UserID: userID,
		Role: domain.RoleMember, IsPrimary: true, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, db.Create(&first).Error)

	// A rival switch committing a second primary row must hit the partial
	// unique index, not rely on application ordering.
	second := domain.UserCompanyMembership{
		ID: node.Generate(), CompanyID: node.Generate(), UserID: userID,
		Role: domain.RoleMember, IsPrimary: true, CreatedAt: now, UpdatedAt: now,
	}
	assert.Error(t, db.Create(&second).Error)

	second.IsPrimary = false
	assert.NoError(t, db.Create(&second).Error)
}
