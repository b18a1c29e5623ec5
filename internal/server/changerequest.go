package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	crdomain "github.com/qualitrace/qualitrace/internal/changerequest/domain"
	"github.com/qualitrace/qualitrace/internal/authorization"
)

type CreateChangeRequestRequest struct {
	SystemID    string `json:"system_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	GxpImpact   bool   `json:"gxp_impact"`
}

func (s *Server) CreateChangeRequest(c *gin.Context) {
	if !s.authorize(c, authorization.ObjectChangeRequest, authorization.ActionCreate) {
		return
	}
	userID, ok := s.currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	var req CreateChangeRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	systemID, err := parseOptionalID(req.SystemID)
	if err != nil {
		AbortWithError(c, newValidationError("system_id", "invalid_id", "invalid system id"))
		return
	}

	cr, err := s.changeRequestSvc.Create(c.Request.Context(), userID, crdomain.CreateChangeRequestRequest{
		SystemID:    systemID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		GxpImpact:   req.GxpImpact,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cr)
}

func (s *Server) GetChangeRequest(c *gin.Context) {
	if !s.authorize(c, authorization.ObjectChangeRequest, authorization.ActionView) {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	cr, err := s.changeRequestSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cr)
}

func (s *Server) ListChangeRequests(c *gin.Context) {
	if !s.authorize(c, authorization.ObjectChangeRequest, authorization.ActionView) {
		return
	}

	crs, err := s.changeRequestSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"change_requests": crs})
}

// AdvanceChangeRequest moves a change request one step along its pipeline.
// Entering the approved stage is its own privilege; every other step rides on
// the advance verb.
func (s *Server) AdvanceChangeRequest(c *gin.Context) {
	userID, ok := s.currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	cr, err := s.changeRequestSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	action := authorization.ActionChangeAdvance
	if next, ok := crdomain.NextStatus(cr.Status); ok && next == crdomain.StatusApproved {
		action = authorization.ActionChangeApprove
	}
	if !s.authorize(c, authorization.ObjectChangeRequest, action) {
		return
	}

	cr, err = s.changeRequestSvc.Advance(c.Request.Context(), id, userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cr)
}
