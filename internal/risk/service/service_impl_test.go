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
	"github.com/qualitrace/qualitrace/internal/risk/domain"
	"github.com/qualitrace/qualitrace/internal/risk/repository"
	"github.com/qualitrace/qualitrace/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupRiskService(t *testing.T) (domain.Service, *snowflake.Node, context.Context) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.RiskAssessment{}, &domain.MitigationAction{}))

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

func createAssessment(t *testing.T, svc domain.Service, ctx context.Context, node *snowflake.Node, p, s, d int) *domain.RiskAssessment {
	t.Helper()
	assessment, err := svc.Create(ctx, node.Generate(), domain.CreateAssessmentRequest{
		Title:          "Data integrity risk",
		AssessmentType: domain.AssessmentTypeIRA,
		Probability:    p,
		Severity:       s,
		Detectability:  d,
	})
	require.NoError(t, err)
	return assessment
}

func TestCreateComputesScoreAndLevel(t *testing.T) {
	svc, node, ctx := setupRiskService(t)

	assessment := createAssessment(t, svc, ctx, node, 8, 8, 8)
	assert.Equal(t, 512, assessment.RiskScore)
	assert.Equal(t, domain.LevelCritical, assessment.RiskLevel)
	assert.Equal(t, domain.StatusDraft, assessment.Status)
}

func TestCreateRejectsOutOfRangeFactors(t *testing.T) {
	svc, node, ctx := setupRiskService(t)

	_, err := svc.Create(ctx, node.Generate(), domain.CreateAssessmentRequest{
		Title:          "bad factors",
		AssessmentType: domain.AssessmentTypeFRA,
		Probability:    0,
		Severity:       5,
		Detectability:  5,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidFactor)
}

func TestUpdateFactorsRecomputesScore(t *testing.T) {
	svc, node, ctx := setupRiskService(t)
	assessment := createAssessment(t, svc, ctx, node, 2, 3, 4)
	require.Equal(t, 24, assessment.RiskScore)
	require.Equal(t, domain.LevelLow, assessment.RiskLevel)

	updated, err := svc.UpdateFactors(ctx, assessment.ID, domain.UpdateFactorsRequest{
		Probability:   5,
		Severity:      5,
		Detectability: 8,
	})
	require.NoError(t, err)
	assert.Equal(t, 200, updated.RiskScore)
	assert.Equal(t, domain.LevelHigh, updated.RiskLevel)
}

func TestFactorsImmutableAfterSubmit(t *testing.T) {
	svc, node, ctx := setupRiskService(t)
	assessment := createAssessment(t, svc, ctx, node, 2, 3, 4)

	_, err := svc.Submit(ctx, assessment.ID)
	require.NoError(t, err)

	_, err = svc.UpdateFactors(ctx, assessment.ID, domain.UpdateFactorsRequest{
		Probability: 9, Severity: 9, Detectability: 9,
	})
	var terr *workflow.TransitionError
	require.True(t, errors.As(err, &terr))

	// Factors become editable again after a rejection.
	_, err = svc.Reject(ctx, assessment.ID, node.Generate(), "detectability overstated")
	require.NoError(t, err)

	updated, err := svc.UpdateFactors(ctx, assessment.ID, domain.UpdateFactorsRequest{
		Probability: 9, Severity: 9, Detectability: 9,
	})
	require.NoError(t, err)
	assert.Equal(t, 729, updated.RiskScore)
	assert.Equal(t, domain.LevelCritical, updated.RiskLevel)
}

func TestRiskApprovalWorkflow(t *testing.T) {
	svc, node, ctx := setupRiskService(t)
	assessment := createAssessment(t, svc, ctx, node, 5, 5, 5)
	approverID := node.Generate()

	_, err := svc.Complete(ctx, assessment.ID)
	var terr *workflow.TransitionError
	require.True(t, errors.As(err, &terr))

	_, err = svc.Submit(ctx, assessment.ID)
	require.NoError(t, err)
	approved, err := svc.Approve(ctx, assessment.ID, approverID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, approved.Status)
	require.NotNil(t, approved.ApproverID)
	assert.Equal(t, approverID, *approved.ApproverID)

	completed, err := svc.Complete(ctx, assessment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, completed.Status)
}

func TestMitigationLifecycle(t *testing.T) {
	svc, node, ctx := setupRiskService(t)
	assessment := createAssessment(t, svc, ctx, node, 5, 5, 5)

	action, err := svc.AddMitigation(ctx, domain.AddMitigationRequest{
		RiskID:      assessment.ID,
		Description: "Enable audit trail review SOP",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.MitigationPending, action.Status)

	done, err := svc.CompleteMitigation(ctx, action.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.MitigationCompleted, done.Status)
	assert.NotNil(t, done.CompletedAt)

	_, err = svc.CompleteMitigation(ctx, action.ID)
	assert.ErrorIs(t, err, domain.ErrMitigationCompleted)

	actions, err := svc.ListMitigations(ctx, assessment.ID)
	require.NoError(t, err)
	assert.Len(t, actions, 1)
}

// rivalRepository lands a competing status write between the service's read
// and its conditional update, like a second approver racing the first.
type rivalRepository struct {
	domain.Repository
	db          *gorm.DB
	rivalStatus string
	armed       bool
}

func (r *rivalRepository) Get(ctx context.Context, companyID, id snowflake.ID) (*domain.RiskAssessment, error) {
	assessment, err := r.Repository.Get(ctx, companyID, id)
	if err != nil || !r.armed {
		return assessment, err
	}
	r.armed = false
	err = r.db.WithContext(ctx).
		Model(&domain.RiskAssessment{}).
		Where("id = ?", id).
		Update("status", r.rivalStatus).Error
	return assessment, err
}

func TestConcurrentAssessmentApprovalOnlyOneWins(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.RiskAssessment{}, &domain.MitigationAction{}))

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

	assessment, err := svc.Create(ctx, node.Generate(), domain.CreateAssessmentRequest{
		Title:          "Racing assessment",
		AssessmentType: domain.AssessmentTypeIRA,
		Probability:    5,
		Severity:       5,
		Detectability:  5,
	})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, assessment.ID)
	require.NoError(t, err)

	rival.rivalStatus = domain.StatusApproved
	rival.armed = true
	_, err = svc.Approve(ctx, assessment.ID, node.Generate())
	assert.ErrorIs(t, err, workflow.ErrConflict)

	var persisted domain.RiskAssessment
	require.NoError(t, db.First(&persisted, "id = ?", assessment.ID).Error)
	assert.Equal(t, domain.StatusApproved, persisted.Status)
}
