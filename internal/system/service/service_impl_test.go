package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/qualitrace/qualitrace/internal/clock"
	"github.com/qualitrace/qualitrace/internal/companyctx"
	"github.com/qualitrace/qualitrace/internal/system/domain"
	"github.com/qualitrace/qualitrace/internal/system/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupSystemService(t *testing.T) (domain.Service, *snowflake.Node, context.Context) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.System{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
		Repo:  repository.NewRepository(db),
	})

	ctx := companyctx.WithCompanyID(context.Background(), node.Generate())
	return svc, node, ctx
}

func TestCreateSystemDefaults(t *testing.T) {
	svc, _, ctx := setupSystemService(t)

	system, err := svc.Create(ctx, domain.CreateSystemRequest{
		Name:         "Chromatography Data System",
		GampCategory: domain.GampCategoryCustom,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.CriticalityMedium, system.Criticality)
	assert.Equal(t, domain.ValidationNotStarted, system.ValidationStatus)
}

func TestCreateSystemRejectsRetiredGampCategory(t *testing.T) {
	svc, _, ctx := setupSystemService(t)

	_, err := svc.Create(ctx, domain.CreateSystemRequest{
		Name:         "Legacy spreadsheet",
		GampCategory: 2,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidGampCategory)
}

func TestUpdateSystemPatchSemantics(t *testing.T) {
	svc, _, ctx := setupSystemService(t)

	system, err := svc.Create(ctx, domain.CreateSystemRequest{
		Name:         "LIMS",
		Vendor:       "LabWare",
		GampCategory: domain.GampCategoryConfigured,
	})
	require.NoError(t, err)

	crit := domain.CriticalityHigh
	updated, err := svc.Update(ctx, system.ID, domain.UpdateSystemRequest{Criticality: &crit})
	require.NoError(t, err)
	assert.Equal(t, domain.CriticalityHigh, updated.Criticality)
	// Untouched fields survive the patch.
	assert.Equal(t, "LabWare", updated.Vendor)
	assert.Equal(t, "LIMS", updated.Name)
}

func TestDeleteSystem(t *testing.T) {
	svc, node, ctx := setupSystemService(t)

	system, err := svc.Create(ctx, domain.CreateSystemRequest{
		Name:         "ERP",
		GampCategory: domain.GampCategoryConfigured,
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, system.ID))
	_, err = svc.Get(ctx, system.ID)
	assert.ErrorIs(t, err, domain.ErrSystemNotFound)

	// Deleting from another tenant never touches the row.
	otherCtx := companyctx.WithCompanyID(context.Background(), node.Generate())
	err = svc.Delete(otherCtx, system.ID)
	assert.ErrorIs(t, err, domain.ErrSystemNotFound)
}
