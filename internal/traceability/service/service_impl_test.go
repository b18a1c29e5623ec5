package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/qualitrace/qualitrace/internal/clock"
	"github.com/qualitrace/qualitrace/internal/companyctx"
	"github.com/qualitrace/qualitrace/internal/traceability/domain"
	"github.com/qualitrace/qualitrace/internal/traceability/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTraceabilityService(t *testing.T) (domain.Service, *snowflake.Node, context.Context) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Requirement{}, &domain.TestCase{}, &domain.RTMLink{}))

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

func seedPair(t *testing.T, svc domain.Service, ctx context.Context) (*domain.Requirement, *domain.TestCase) {
	t.Helper()
	req, err := svc.CreateRequirement(ctx, domain.CreateRequirementRequest{
		Code:  "URS-001",
		Title: "System shall timestamp all records",
		Type:  "functional",
	})
	require.NoError(t, err)
	tc, err := svc.CreateTestCase(ctx, domain.CreateTestCaseRequest{
		Code:  "TC-001",
		Title: "Verify audit timestamps",
	})
	require.NoError(t, err)
	return req, tc
}

func TestDuplicateLinkRejected(t *testing.T) {
	svc, node, ctx := setupTraceabilityService(t)
	req, tc := seedPair(t, svc, ctx)
	createdBy := node.Generate()

	_, err := svc.AddLink(ctx, req.ID, tc.ID, createdBy)
	require.NoError(t, err)

	_, err = svc.AddLink(ctx, req.ID, tc.ID, createdBy)
	assert.ErrorIs(t, err, domain.ErrDuplicateLink)
}

func TestSamePairAllowedAcrossTenants(t *testing.T) {
	svc, node, ctx := setupTraceabilityService(t)
	reqA, tcA := seedPair(t, svc, ctx)

	_, err := svc.AddLink(ctx, reqA.ID, tcA.ID, node.Generate())
	require.NoError(t, err)

	// An identical requirement/test-case pair under another company links fine.
	otherCtx := companyctx.WithCompanyID(context.Background(), node.Generate())
	reqB, tcB := seedPair(t, svc, otherCtx)
	_, err = svc.AddLink(otherCtx, reqB.ID, tcB.ID, node.Generate())
	require.NoError(t, err)
}

func TestAddLinkRequiresBothEndpointsInTenant(t *testing.T) {
	svc, node, ctx := setupTraceabilityService(t)
	req, _ := seedPair(t, svc, ctx)

	otherCtx := companyctx.WithCompanyID(context.Background(), node.Generate())
	_, foreignTC := seedPair(t, svc, otherCtx)

	_, err := svc.AddLink(ctx, req.ID, foreignTC.ID, node.Generate())
	assert.ErrorIs(t, err, domain.ErrTestCaseNotFound)
}

func TestDuplicateRequirementCode(t *testing.T) {
	svc, _, ctx := setupTraceabilityService(t)

	_, err := svc.CreateRequirement(ctx, domain.CreateRequirementRequest{
		Code: "URS-010", Title: "first", Type: "functional",
	})
	require.NoError(t, err)

	_, err = svc.CreateRequirement(ctx, domain.CreateRequirementRequest{
		Code: "URS-010", Title: "second", Type: "functional",
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateCode)
}

func TestDuplicateRequirementCodeScopedByProject(t *testing.T) {
	svc, node, ctx := setupTraceabilityService(t)
	projectID := node.Generate()

	_, err := svc.CreateRequirement(ctx, domain.CreateRequirementRequest{
		Code: "URS-020", Title: "unscoped", Type: "functional",
	})
	require.NoError(t, err)

	// The same code under a project is a different scope.
	_, err = svc.CreateRequirement(ctx, domain.CreateRequirementRequest{
		Code: "URS-020", Title: "scoped", Type: "functional", ProjectID: &projectID,
	})
	require.NoError(t, err)

	_, err = svc.CreateRequirement(ctx, domain.CreateRequirementRequest{
		Code: "URS-020", Title: "scoped again", Type: "functional", ProjectID: &projectID,
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateCode)

	_, err = svc.CreateRequirement(ctx, domain.CreateRequirementRequest{
		Code: "URS-020", Title: "unscoped again", Type: "functional",
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateCode)
}

func TestRecordResult(t *testing.T) {
	svc, node, ctx := setupTraceabilityService(t)
	_, tc := seedPair(t, svc, ctx)
	executor := node.Generate()

	_, err := svc.RecordResult(ctx, tc.ID, domain.RecordResultRequest{Result: "maybe", ExecutedBy: executor})
	assert.ErrorIs(t, err, domain.ErrInvalidResult)

	updated, err := svc.RecordResult(ctx, tc.ID, domain.RecordResultRequest{Result: domain.ResultPassed, ExecutedBy: executor})
	require.NoError(t, err)
	require.NotNil(t, updated.Result)
	assert.Equal(t, domain.ResultPassed, *updated.Result)
	require.NotNil(t, updated.ExecutedBy)
	assert.Equal(t, executor, *updated.ExecutedBy)
	assert.NotNil(t, updated.ExecutedAt)
}

func TestCoverageCounts(t *testing.T) {
	svc, node, ctx := setupTraceabilityService(t)
	createdBy := node.Generate()

	reqCovered, tcPassed := seedPair(t, svc, ctx)
	tcFailed, err := svc.CreateTestCase(ctx, domain.CreateTestCaseRequest{Code: "TC-002", Title: "failing case"})
	require.NoError(t, err)
	tcUnexecuted, err := svc.CreateTestCase(ctx, domain.CreateTestCaseRequest{Code: "TC-003", Title: "pending case"})
	require.NoError(t, err)

	reqLinkedOnly, err := svc.CreateRequirement(ctx, domain.CreateRequirementRequest{
		Code: "URS-002", Title: "linked but untested", Type: "functional",
	})
	require.NoError(t, err)

	// Uncovered requirement: created, never linked.
	_, err = svc.CreateRequirement(ctx, domain.CreateRequirementRequest{
		Code: "URS-003", Title: "uncovered", Type: "functional",
	})
	require.NoError(t, err)

	_, err = svc.AddLink(ctx, reqCovered.ID, tcPassed.ID, createdBy)
	require.NoError(t, err)
	_, err = svc.AddLink(ctx, reqCovered.ID, tcFailed.ID, createdBy)
	require.NoError(t, err)
	_, err = svc.AddLink(ctx, reqLinkedOnly.ID, tcUnexecuted.ID, createdBy)
	require.NoError(t, err)

	_, err = svc.RecordResult(ctx, tcPassed.ID, domain.RecordResultRequest{Result: domain.ResultPassed, ExecutedBy: createdBy})
	require.NoError(t, err)
	_, err = svc.RecordResult(ctx, tcFailed.ID, domain.RecordResultRequest{Result: domain.ResultFailed, ExecutedBy: createdBy})
	require.NoError(t, err)

	stats, err := svc.Coverage(ctx, domain.CoverageScope{})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalLinks)
	assert.Equal(t, 2, stats.CoveredRequirements)
	// Only the requirement whose linked case ran counts as tested.
	assert.Equal(t, 1, stats.TestedRequirements)
	assert.Equal(t, 1, stats.PassedLinks)
	assert.Equal(t, 1, stats.FailedLinks)
}
