package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/qualitrace/qualitrace/internal/authorization"
	tracedomain "github.com/qualitrace/qualitrace/internal/traceability/domain"
)

type CreateRequirementRequest struct {
	ProjectID   string `json:"project_id"`
	Code        string `json:"code"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

type CreateTestCaseRequest struct {
	ProjectID string `json:"project_id"`
	Code      string `json:"code"`
	Title     string `json:"title"`
}

type RecordResultRequest struct {
	Result string `json:"result"`
}

type AddLinkRequest struct {
	RequirementID string `json:"requirement_id"`
	TestCaseID    string `json:"test_case_id"`
}

func (s *Server) CreateRequirement(c *gin.Context) {
	if !s.authorize(c, authorization.ObjectRequirement, authorization.ActionCreate) {
		return
	}
	var req CreateRequirementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	projectID, err := parseOptionalID(req.ProjectID)
	if err != nil {
		AbortWithError(c, newValidationError("project_id", "invalid_id", "invalid project id"))
		return
	}

	requirement, err := s.traceabilitySvc.CreateRequirement(c.Request.Context(), tracedomain.CreateRequirementRequest{
		ProjectID:   projectID,
		Code:        req.Code,
		Title:       req.Title,
		Description: req.Description,
		Type:        req.Type,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, requirement)
}

func (s *Server) ListRequirements(c *gin.Context) {
	if !s.authorize(c, authorization.ObjectRequirement, authorization.ActionView) {
		return
	}
	projectID, err := parseOptionalID(c.Query("project_id"))
	if err != nil {
		AbortWithError(c, newValidationError("project_id", "invalid_id", "invalid project id"))
		return
	}

	requirements, err := s.traceabilitySvc.ListRequirements(c.Request.Context(), projectID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requirements": requirements})
}

func (s *Server) CreateTestCase(c *gin.Context) {
	if !s.authorize(c, authorization.ObjectTestCase, authorization.ActionCreate) {
		return
	}
	var req CreateTestCaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	projectID, err := parseOptionalID(req.ProjectID)
	if err != nil {
		AbortWithError(c, newValidationError("project_id", "invalid_id", "invalid project id"))
		return
	}

	tc, err := s.traceabilitySvc.CreateTestCase(c.Request.Context(), tracedomain.CreateTestCaseRequest{
		ProjectID: projectID,
		Code:      req.Code,
		Title:     req.Title,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tc)
}

func (s *Server) ListTestCases(c *gin.Context) {
	if !s.authorize(c, authorization.ObjectTestCase, authorization.ActionView) {
		return
	}
	projectID, err := parseOptionalID(c.Query("project_id"))
	if err != nil {
		AbortWithError(c, newValidationError("project_id", "invalid_id", "invalid project id"))
		return
	}

	cases, err := s.traceabilitySvc.ListTestCases(c.Request.Context(), projectID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"test_cases": cases})
}

func (s *Server) RecordTestResult(c *gin.Context) {
	if !s.authorize(c, authorization.ObjectTestCase, authorization.ActionUpdate) {
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
	var req RecordResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	tc, err := s.traceabilitySvc.RecordResult(c.Request.Context(), id, tracedomain.RecordResultRequest{
		Result:     req.Result,
		ExecutedBy: userID,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, tc)
}

func (s *Server) AddRTMLink(c *gin.Context) {
	if !s.authorize(c, authorization.ObjectRTMLink, authorization.ActionCreate) {
		return
	}
	userID, ok := s.currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	var req AddLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	requirementID, ok := parseIDField(c, req.RequirementID, "requirement_id")
	if !ok {
		return
	}
	testCaseID, ok := parseIDField(c, req.TestCaseID, "test_case_id")
	if !ok {
		return
	}

	link, err := s.traceabilitySvc.AddLink(c.Request.Context(), requirementID, testCaseID, userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, link)
}

func (s *Server) RemoveRTMLink(c *gin.Context) {
	if !s.authorize(c, authorization.ObjectRTMLink, authorization.ActionDelete) {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := s.traceabilitySvc.RemoveLink(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

func (s *Server) ListRTMLinks(c *gin.Context) {
	if !s.authorize(c, authorization.ObjectRTMLink, authorization.ActionView) {
		return
	}
	projectID, err := parseOptionalID(c.Query("project_id"))
	if err != nil {
		AbortWithError(c, newValidationError("project_id", "invalid_id", "invalid project id"))
		return
	}

	links, err := s.traceabilitySvc.ListLinks(c.Request.Context(), tracedomain.CoverageScope{ProjectID: projectID})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"links": links})
}

func (s *Server) RTMCoverage(c *gin.Context) {
	if !s.authorize(c, authorization.ObjectRTMLink, authorization.ActionView) {
		return
	}
	projectID, err := parseOptionalID(c.Query("project_id"))
	if err != nil {
		AbortWithError(c, newValidationError("project_id", "invalid_id", "invalid project id"))
		return
	}

	stats, err := s.traceabilitySvc.Coverage(c.Request.Context(), tracedomain.CoverageScope{ProjectID: projectID})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
