package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/qualitrace/qualitrace/internal/changerequest/domain"
	"github.com/qualitrace/qualitrace/internal/changerequest/repository"
	"github.com/qualitrace/qualitrace/internal/clock"
	"github.com/qualitrace/qualitrace/internal/companyctx"
	"github.com/qualitrace/qualitrace/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupChangeRequestService(t *testing.T) (domain.Service, *snowflake.Node, context.Context) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.ChangeRequest{}))

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

func TestAdvanceWalksThePipeline(t *testing.T) {
	svc, node, ctx := setupChangeRequestService(t)
	requesterID := node.Generate()
	actorID := node.Generate()

	cr, err := svc.Create(ctx, requesterID, domain.CreateChangeRequestRequest{
		Title:     "Upgrade LIMS to v12",
		Priority:  domain.PriorityHigh,
		GxpImpact: true,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, cr.Status)

	// pending -> in_review: no approval side effects yet
	cr, err = svc.Advance(ctx, cr.ID, actorID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInReview, cr.Status)
	assert.Nil(t, cr.ApproverID)
	assert.Nil(t, cr.ImplementedAt)

	// in_review -> approved: records the approver
	cr, err = svc.Advance(ctx, cr.ID, actorID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, cr.Status)
	require.NotNil(t, cr.ApproverID)
	assert.Equal(t, actorID, *cr.ApproverID)
	assert.NotNil(t, cr.ApprovedAt)
	assert.Nil(t, cr.ImplementedAt)

	// approved -> in_progress
	cr, err = svc.Advance(ctx, cr.ID, actorID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, cr.Status)

	// in_progress -> completed: records implementation time
	cr, err = svc.Advance(ctx, cr.ID, actorID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, cr.Status)
	assert.NotNil(t, cr.ImplementedAt)
}

func TestAdvanceFromCompletedFails(t *testing.T) {
	svc, node, ctx := setupChangeRequestService(t)
	actorID := node.Generate()

	cr, err := svc.Create(ctx, node.Generate(), domain.CreateChangeRequestRequest{
		Title:    "Patch chromatography firmware",
		Priority: domain.PriorityMedium,
	})
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		cr, err = svc.Advance(ctx, cr.ID, actorID)
		require.NoError(t, err)
	}
	require.Equal(t, domain.StatusCompleted, cr.Status)

	_, err = svc.Advance(ctx, cr.ID, actorID)
	var terr *workflow.TransitionError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, domain.StatusCompleted, terr.From)
	assert.Empty(t, terr.To)
}

func TestCreateValidation(t *testing.T) {
	svc, node, ctx := setupChangeRequestService(t)

	_, err := svc.Create(ctx, node.Generate(), domain.CreateChangeRequestRequest{Title: " ", Priority: domain.PriorityLow})
	assert.ErrorIs(t, err, domain.ErrInvalidTitle)

	_, err = svc.Create(ctx, node.Generate(), domain.CreateChangeRequestRequest{Title: "valid", Priority: "urgent-ish"})
	assert.ErrorIs(t, err, domain.ErrInvalidPriority)
}

// rivalRepository lands a competing status write between the service's read
// and its conditional update, like two reviewers advancing at once.
type rivalRepository struct {
	domain.Repository
	db          *gorm.DB
	rivalStatus string
	armed       bool
}

func (r *rivalRepository) Get(ctx context.Context, companyID, id snowflake.ID) (*domain.ChangeRequest, error) {
	cr, err := r.Repository.Get(ctx, companyID, id)
	if err != nil || !r.armed {
		return cr, err
	}
	r.armed = false
	err = r.db.WithContext(ctx).
		Model(&domain.ChangeRequest{}).
		Where("id = ?", id).
		Update("status", r.rivalStatus).Error
	return cr, err
}

func TestConcurrentAdvanceOnlyOneWins(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.ChangeRequest{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	rival := &rivalRepository{Repository: repository.NewRepository(db), db: db}
	svc := NewService(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
		Repo:  rival,
	})
	ctx := companyctx.WithCompanyID(context.Background(), node.Generate())

	cr, err := svc.Create(ctx, node.Generate(), domain.CreateChangeRequestRequest{
		Title:    "Patch OS on LIMS host",
		Priority: domain.PriorityMedium,
	})
	require.NoError(t, err)

	rival.rivalStatus = domain.StatusInReview
	rival.armed = true
	_, err = svc.Advance(ctx, cr.ID, node.Generate())
	assert.ErrorIs(t, err, workflow.ErrConflict)

	var persisted domain.ChangeRequest
	require.NoError(t, db.First(&persisted, "id = ?", cr.ID).Error)
	assert.Equal(t, domain.StatusInReview, persisted.Status)
}
