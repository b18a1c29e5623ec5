package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/qualitrace/qualitrace/internal/clock"
	"github.com/qualitrace/qualitrace/internal/companyctx"
	"github.com/qualitrace/qualitrace/internal/validationproject/domain"
	"github.com/qualitrace/qualitrace/internal/validationproject/repository"
	"github.com/qualitrace/qualitrace/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupProjectService(t *testing.T) (domain.Service, *snowflake.Node, context.Context) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.ValidationProject{}))

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

func TestSubmitFromDraftClearsRejectionReason(t *testing.T) {
	svc, node, ctx := setupProjectService(t)
	ownerID := node.Generate()

	project, err := svc.Create(ctx, ownerID, domain.CreateProjectRequest{Name: "LIMS validation"})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, project.Status)

	project, err = svc.Submit(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, project.Status)

	approverID := node.Generate()
	project, err = svc.Reject(ctx, project.ID, approverID, "missing IQ protocol")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, project.Status)
	require.NotNil(t, project.RejectionReason)
	assert.Equal(t, "missing IQ protocol", *project.RejectionReason)

	// Resubmission from rejected wipes the recorded reason.
	project, err = svc.Submit(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, project.Status)
	assert.Nil(t, project.RejectionReason)
}

func TestApproveOnlyFromPending(t *testing.T) {
	svc, node, ctx := setupProjectService(t)
	ownerID := node.Generate()
	approverID := node.Generate()

	project, err := svc.Create(ctx, ownerID, domain.CreateProjectRequest{Name: "ERP validation"})
	require.NoError(t, err)

	_, err = svc.Approve(ctx, project.ID, approverID)
	require.Error(t, err)
	var terr *workflow.TransitionError
	require.True(t, errors.As(err, &terr))
	assert.Equal(t, domain.StatusDraft, terr.From)
	assert.Equal(t, domain.StatusApproved, terr.To)

	// The failed transition must not have touched the row.
	got, err := svc.Get(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, got.Status)

	_, err = svc.Submit(ctx, project.ID)
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, project.ID, approverID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, approved.Status)
	require.NotNil(t, approved.ApproverID)
	assert.Equal(t, approverID, *approved.ApproverID)
	assert.NotNil(t, approved.ApprovedAt)
}

func TestRejectRequiresReason(t *testing.T) {
	svc, node, ctx := setupProjectService(t)

	project, err := svc.Create(ctx, node.Generate(), domain.CreateProjectRequest{Name: "MES validation"})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, project.ID)
	require.NoError(t, err)

	_, err = svc.Reject(ctx, project.ID, node.Generate(), "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidReason)
}

func TestCompleteOnlyFromApproved(t *testing.T) {
	svc, node, ctx := setupProjectService(t)
	approverID := node.Generate()

	project, err := svc.Create(ctx, node.Generate(), domain.CreateProjectRequest{Name: "CDS validation"})
	require.NoError(t, err)

	_, err = svc.Complete(ctx, project.ID)
	var terr *workflow.TransitionError
	require.True(t, errors.As(err, &terr))

	_, err = svc.Submit(ctx, project.ID)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, project.ID, approverID)
	require.NoError(t, err)

	completed, err := svc.Complete(ctx, project.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, completed.Status)
	assert.NotNil(t, completed.CompletionDate)

	// completed is terminal
	_, err = svc.Cancel(ctx, completed.ID)
	require.True(t, errors.As(err, &terr))
}

func TestCancelFromDraftAndPending(t *testing.T) {
	svc, node, ctx := setupProjectService(t)

	draft, err := svc.Create(ctx, node.Generate(), domain.CreateProjectRequest{Name: "draft cancel"})
	require.NoError(t, err)
	cancelled, err := svc.Cancel(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)

	pending, err := svc.Create(ctx, node.Generate(), domain.CreateProjectRequest{Name: "pending cancel"})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, pending.ID)
	require.NoError(t, err)
	cancelled, err = svc.Cancel(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
}

func TestCrossTenantReadsReportNotFound(t *testing.T) {
	svc, node, ctx := setupProjectService(t)

	project, err := svc.Create(ctx, node.Generate(), domain.CreateProjectRequest{Name: "tenant A project"})
	require.NoError(t, err)

	otherCtx := companyctx.WithCompanyID(context.Background(), node.Generate())
	_, err = svc.Get(otherCtx, project.ID)
	assert.ErrorIs(t, err, domain.ErrProjectNotFound)
}

func TestUpdateProgressBounds(t *testing.T) {
	svc, node, ctx := setupProjectService(t)

	project, err := svc.Create(ctx, node.Generate(), domain.CreateProjectRequest{Name: "progress"})
	require.NoError(t, err)

	bad := 101
	_, err = svc.Update(ctx, project.ID, domain.UpdateProjectRequest{Progress: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidProgress)

	ok := 40
	updated, err := svc.Update(ctx, project.ID, domain.UpdateProjectRequest{Progress: &ok})
	require.NoError(t, err)
	assert.Equal(t, 40, updated.Progress)
}

// rivalRepository lands a competing status write between the service's read
// and its conditional update, like a second approver racing the first.
type rivalRepository struct {
	domain.Repository
	db          *gorm.DB
	rivalStatus string
	armed       bool
}

func (r *rivalRepository) Get(ctx context.Context, companyID, id snowflake.ID) (*domain.ValidationProject, error) {
	project, err := r.Repository.Get(ctx, companyID, id)
	if err != nil || !r.armed {
		return project, err
	}
	r.armed = false
	err = r.db.WithContext(ctx).
		Model(&domain.ValidationProject{}).
		Where("id = ?", id).
		Update("status", r.rivalStatus).Error
	return project, err
}

func TestConcurrentApprovalOnlyOneWins(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.ValidationProject{}))

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

	project, err := svc.Create(ctx, node.Generate(), domain.CreateProjectRequest{Name: "racing"})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, project.ID)
	require.NoError(t, err)

	rival.rivalStatus = domain.StatusApproved
	rival.armed = true
	_, err = svc.Approve(ctx, project.ID, node.Generate())
	assert.ErrorIs(t, err, workflow.ErrConflict)

	// The rival's approval is the one that stuck.
	var persisted domain.ValidationProject
	require.NoError(t, db.First(&persisted, "id = ?", project.ID).Error)
	assert.Equal(t, domain.StatusApproved, persisted.Status)
}
