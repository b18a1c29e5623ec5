package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/qualitrace/qualitrace/internal/authorization"
	projectdomain "github.com/qualitrace/qualitrace/internal/validationproject/domain"
)

type CreateProjectRequest struct {
	SystemID    string `json:"system_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type UpdateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Progress    *int    `json:"progress"`
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) CreateProject(c *gin.Context) {
	if !s.authorize(c, authorization.ObjectValidationProject, authorization.ActionCreate) {
		return
	}
	userID, ok := s.currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	systemID, err := parseOptionalID(req.SystemID)
	if err != nil {
		AbortWithError(c, newValidationError("system_id", "invalid_id", "invalid system id"))
		return
	}

	project, err := s.projectSvc.Create(c.Request.Context(), userID, projectdomain.CreateProjectRequest{
		SystemID:    systemID,
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, project)
}

func (s *Server) GetProject(c *gin.Context) {
	if !s.authorize(c, authorization.ObjectValidationProject, authorization.ActionView) {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	project, err := s.projectSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (s *Server) ListProjects(c *gin.Context) {
	if !s.authorize(c, authorization.ObjectValidationProject, authorization.ActionView) {
		return
	}

	projects, err := s.projectSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"validation_projects": projects})
}

func (s *Server) UpdateProject(c *gin.Context) {
	if !s.authorize(c, authorization.ObjectValidationProject, authorization.ActionUpdate) {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	project, err := s.projectSvc.Update(c.Request.Context(), id, projectdomain.UpdateProjectRequest{
		Name:        req.Name,
		Description: req.Description,
		Progress:    req.Progress,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}

func (s *Server) SubmitProject(c *gin.Context) {
	s.projectTransition(c, authorization.ActionProjectSubmit, func(id, _ snowflake.ID) (*projectdomain.ValidationProject, error) {
		return s.projectSvc.Submit(c.Request.Context(), id)
	})
}

func (s *Server) ApproveProject(c *gin.Context) {
	s.projectTransition(c, authorization.ActionProjectApprove, func(id, userID snowflake.ID) (*projectdomain.ValidationProject, error) {
		return s.projectSvc.Approve(c.Request.Context(), id, userID)
	})
}

func (s *Server) RejectProject(c *gin.Context) {
	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	s.projectTransition(c, authorization.ActionProjectReject, func(id, userID snowflake.ID) (*projectdomain.ValidationProject, error) {
		return s.projectSvc.Reject(c.Request.Context(), id, userID, req.Reason)
	})
}

func (s *Server) CompleteProject(c *gin.Context) {
	s.projectTransition(c, authorization.ActionProjectComplete, func(id, _ snowflake.ID) (*projectdomain.ValidationProject, error) {
		return s.projectSvc.Complete(c.Request.Context(), id)
	})
}

func (s *Server) CancelProject(c *gin.Context) {
	s.projectTransition(c, authorization.ActionProjectCancel, func(id, _ snowflake.ID) (*projectdomain.ValidationProject, error) {
		return s.projectSvc.Cancel(c.Request.Context(), id)
	})
}

func (s *Server) projectTransition(c *gin.Context, action string, fn func(id, userID snowflake.ID) (*projectdomain.ValidationProject, error)) {
	if !s.authorize(c, authorization.ObjectValidationProject, action) {
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

	project, err := fn(id, userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, project)
}
