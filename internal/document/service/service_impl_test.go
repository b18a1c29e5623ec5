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
	"github.com/qualitrace/qualitrace/internal/document/domain"
	"github.com/qualitrace/qualitrace/internal/document/repository"
	"github.com/qualitrace/qualitrace/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupDocumentService(t *testing.T) (domain.Service, *snowflake.Node, context.Context) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Document{}, &domain.DocumentVersion{}))

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

func TestNextVersion(t *testing.T) {
	assert.Equal(t, "1.1", domain.NextVersion("1.0"))
	assert.Equal(t, "1.10", domain.NextVersion("1.9"))
	assert.Equal(t, "2.1", domain.NextVersion("2.0"))
	assert.Equal(t, domain.InitialVersion, domain.NextVersion("garbage"))
}

func TestUpdateContentSnapshotsPriorVersion(t *testing.T) {
	svc, node, ctx := setupDocumentService(t)
	authorID := node.Generate()
	editorID := node.Generate()

	doc, err := svc.Create(ctx, authorID, domain.CreateDocumentRequest{
		Title:        "User Requirements Specification",
		DocumentType: domain.TypeURS,
		Content:      "original body",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.InitialVersion, doc.Version)

	newContent := "revised body"
	updated, err := svc.UpdateContent(ctx, doc.ID, editorID, domain.UpdateContentRequest{
		Content:       &newContent,
		ChangeSummary: "tightened acceptance criteria",
	})
	require.NoError(t, err)
	assert.Equal(t, "1.1", updated.Version)
	assert.Equal(t, "revised body", updated.Content)

	versions, err := svc.ListVersions(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, versions, 1)

	// The snapshot holds the state as it was before the edit.
	snap := versions[0]
	assert.Equal(t, domain.InitialVersion, snap.Version)
	assert.Equal(t, "original body", snap.Content)
	assert.Equal(t, "User Requirements Specification", snap.Title)
	assert.Equal(t, editorID, snap.EditorID)
	assert.Equal(t, "tightened acceptance criteria", snap.ChangeSummary)

	// A second edit appends, never rewrites.
	thirdContent := "third body"
	updated, err = svc.UpdateContent(ctx, doc.ID, editorID, domain.UpdateContentRequest{Content: &thirdContent})
	require.NoError(t, err)
	assert.Equal(t, "1.2", updated.Version)

	versions, err = svc.ListVersions(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 2)
}

func TestDocumentApprovalWorkflow(t *testing.T) {
	svc, node, ctx := setupDocumentService(t)
	approverID := node.Generate()

	doc, err := svc.Create(ctx, node.Generate(), domain.CreateDocumentRequest{
		Title:        "IQ Protocol",
		DocumentType: domain.TypeIQ,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDraft, doc.Status)

	_, err = svc.Approve(ctx, doc.ID, approverID)
	var terr *workflow.TransitionError
	require.True(t, errors.As(err, &terr))

	doc, err = svc.Submit(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, doc.Status)

	doc, err = svc.Approve(ctx, doc.ID, approverID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, doc.Status)
	require.NotNil(t, doc.ApprovedBy)
	assert.Equal(t, approverID, *doc.ApprovedBy)
}

func TestDocumentRejectRequiresReason(t *testing.T) {
	svc, node, ctx := setupDocumentService(t)

	doc, err := svc.Create(ctx, node.Generate(), domain.CreateDocumentRequest{
		Title:        "OQ Protocol",
		DocumentType: domain.TypeOQ,
	})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, doc.ID)
	require.NoError(t, err)

	_, err = svc.Reject(ctx, doc.ID, node.Generate(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidReason)

	rejected, err := svc.Reject(ctx, doc.ID, node.Generate(), "traceability table incomplete")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRejected, rejected.Status)
}

func TestCreateDocumentRejectsUnknownType(t *testing.T) {
	svc, node, ctx := setupDocumentService(t)

	_, err := svc.Create(ctx, node.Generate(), domain.CreateDocumentRequest{
		Title:        "mystery",
		DocumentType: "memo",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidType)
}

func TestListVersionsScopedToTenant(t *testing.T) {
	svc, node, ctx := setupDocumentService(t)

	doc, err := svc.Create(ctx, node.Generate(), domain.CreateDocumentRequest{
		Title:        "SOP-001",
		DocumentType: domain.TypeSOP,
	})
	require.NoError(t, err)

	otherCtx := companyctx.WithCompanyID(context.Background(), node.Generate())
	_, err = svc.ListVersions(otherCtx, doc.ID)
	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}

// rivalRepository lands a competing status write between the service's read
// and its conditional update, like a second approver racing the first.
type rivalRepository struct {
	domain.Repository
	db          *gorm.DB
	rivalStatus string
	armed       bool
}

func (r *rivalRepository) Get(ctx context.Context, companyID, id snowflake.ID) (*domain.Document, error) {
	doc, err := r.Repository.Get(ctx, companyID, id)
	if err != nil || !r.armed {
		return doc, err
	}
	r.armed = false
	err = r.db.WithContext(ctx).
		Model(&domain.Document{}).
		Where("id = ?", id).
		Update("status", r.rivalStatus).Error
	return doc, err
}

func TestConcurrentDocumentApprovalOnlyOneWins(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Document{}, &domain.DocumentVersion{}))

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

	doc, err := svc.Create(ctx, node.Generate(), domain.CreateDocumentRequest{
		Title:        "PQ Protocol",
		DocumentType: domain.TypePQ,
	})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, doc.ID)
	require.NoError(t, err)

	rival.rivalStatus = domain.StatusApproved
	rival.armed = true
	_, err = svc.Approve(ctx, doc.ID, node.Generate())
	assert.ErrorIs(t, err, workflow.ErrConflict)

	var persisted domain.Document
	require.NoError(t, db.First(&persisted, "id = ?", doc.ID).Error)
	assert.Equal(t, domain.StatusApproved, persisted.Status)
}
