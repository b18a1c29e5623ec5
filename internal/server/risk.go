package server

import (
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/qualitrace/qualitrace/internal/authorization"
	riskdomain "github.com/qualitrace/qualitrace/internal/risk/domain"
)

type CreateAssessmentRequest struct {
	SystemID       string `json:"system_id"`
	ProjectID      string `json:"project_id"`
	Title          string `json:"title"`
	Description    string `json:"description"`
	AssessmentType string `json:"assessment_type"`
	Probability    int    `json:"probability"`
	Severity       int    `json:"severity"`
	Detectability  int    `json:"detectability"`
}

type UpdateFactorsRequest struct {
	Probability   int `json:"probability"`
	Severity      int `json:"severity"`
	Detectability int `json:"detectability"`
}

type AddMitigationRequest struct {
	Description string     `json:"description"`
	OwnerID     string     `json:"owner_id"`
	DueDate     *time.Time `json:"due_date"`
}

func (s *Server) CreateAssessment(c *gin.Context) {
	if !s.authorize(c, authorization.ObjectRiskAssessment, authorization.ActionCreate) {
		return
	}
	userID, ok := s.currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	var req CreateAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	systemID, err := parseOptionalID(req.SystemID)
	if err != nil {
		AbortWithError(c, newValidationError("system_id", "invalid_id", "invalid system id"))
		return
	}
	projectID, err := parseOptionalID(req.ProjectID)
	if err != nil {
		AbortWithError(c, newValidationError("project_id", "invalid_id", "invalid project id"))
		return
	}

	assessment, err := s.riskSvc.Create(c.Request.Context(), userID, riskdomain.CreateAssessmentRequest{
		SystemID:       systemID,
		ProjectID:      projectID,
		Title:          req.Title,
		Description:    req.Description,
		AssessmentType: req.AssessmentType,
		Probability:    req.Probability,
		Severity:       req.Severity,
		Detectability:  req.Detectability,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, assessment)
}

func (s *Server) GetAssessment(c *gin.Context) {
	if !s.authorize(c, authorization.ObjectRiskAssessment, authorization.ActionView) {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	assessment, err := s.riskSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, assessment)
}

func (s *Server) ListAssessments(c *gin.Context) {
	if !s.authorize(c, authorization.ObjectRiskAssessment, authorization.ActionView) {
		return
	}

	assessments, err := s.riskSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"risk_assessments": assessments})
}

func (s *Server) UpdateAssessmentFactors(c *gin.Context) {
	if !s.authorize(c, authorization.ObjectRiskAssessment, authorization.ActionUpdate) {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateFactorsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	assessment, err := s.riskSvc.UpdateFactors(c.Request.Context(), id, riskdomain.UpdateFactorsRequest{
		Probability:   req.Probability,
		Severity:      req.Severity,
		Detectability: req.Detectability,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, assessment)
}

func (s *Server) SubmitAssessment(c *gin.Context) {
	s.assessmentTransition(c, authorization.ActionRiskSubmit, func(id, _ snowflake.ID) (*riskdomain.RiskAssessment, error) {
		return s.riskSvc.Submit(c.Request.Context(), id)
	})
}

func (s *Server) ApproveAssessment(c *gin.Context) {
	s.assessmentTransition(c, authorization.ActionRiskApprove, func(id, userID snowflake.ID) (*riskdomain.RiskAssessment, error) {
		return s.riskSvc.Approve(c.Request.Context(), id, userID)
	})
}

func (s *Server) RejectAssessment(c *gin.Context) {
	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	s.assessmentTransition(c, authorization.ActionRiskReject, func(id, userID snowflake.ID) (*riskdomain.RiskAssessment, error) {
		return s.riskSvc.Reject(c.Request.Context(), id, userID, req.Reason)
	})
}

func (s *Server) CompleteAssessment(c *gin.Context) {
	s.assessmentTransition(c, authorization.ActionRiskComplete, func(id, _ snowflake.ID) (*riskdomain.RiskAssessment, error) {
		return s.riskSvc.Complete(c.Request.Context(), id)
	})
}

func (s *Server) assessmentTransition(c *gin.Context, action string, fn func(id, userID snowflake.ID) (*riskdomain.RiskAssessment, error)) {
	if !s.authorize(c, authorization.ObjectRiskAssessment, action) {
		return
	}
	userID, ok := s.currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	assessment, err := fn(id, userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, assessment)
}

func (s *Server) AddMitigation(c *gin.Context) {
	if !s.authorize(c, authorization.ObjectMitigationAction, authorization.ActionCreate) {
		return
	}
	riskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req AddMitigationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	ownerID, err := parseOptionalID(req.OwnerID)
	if err != nil {
		AbortWithError(c, newValidationError("owner_id", "invalid_id", "invalid owner id"))
		return
	}

	action, err := s.riskSvc.AddMitigation(c.Request.Context(), riskdomain.AddMitigationRequest{
		RiskID:      riskID,
		Description: req.Description,
		OwnerID:     ownerID,
		DueDate:     req.DueDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, action)
}

func (s *Server) CompleteMitigation(c *gin.Context) {
	if !s.authorize(c, authorization.ObjectMitigationAction, authorization.ActionUpdate) {
		return
	}
	id, ok := parseIDParam(c, "mitigationId")
	if !ok {
		return
	}

	action, err := s.riskSvc.CompleteMitigation(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, action)
}

func (s *Server) ListMitigations(c *gin.Context) {
	if !s.authorize(c, authorization.ObjectMitigationAction, authorization.ActionView) {
		return
	}
	riskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	actions, err := s.riskSvc.ListMitigations(c.Request.Context(), riskID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"mitigation_actions": actions})
}
