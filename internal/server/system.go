package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/qualitrace/qualitrace/internal/authorization"
	systemdomain "github.com/qualitrace/qualitrace/internal/system/domain"
)

type CreateSystemRequest struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	Vendor           string `json:"vendor"`
	Version          string `json:"version"`
	GampCategory     int    `json:"gamp_category"`
	Criticality      string `json:"criticality"`
	ValidationStatus string `json:"validation_status"`
}

type UpdateSystemRequest struct {
	Name             *string `json:"name"`
	Description      *string `json:"description"`
	Vendor           *string `json:"vendor"`
	Version          *string `json:"version"`
	GampCategory     *int    `json:"gamp_category"`
	Criticality      *string `json:"criticality"`
	ValidationStatus *string `json:"validation_status"`
}

func (s *Server) CreateSystem(c *gin.Context) {
	if !s.authorize(c, authorization.ObjectSystem, authorization.ActionCreate) {
		return
	}
	var req CreateSystemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	system, err := s.systemSvc.Create(c.Request.Context(), systemdomain.CreateSystemRequest{
		Name:             req.Name,
		Description:      req.Description,
		Vendor:           req.Vendor,
		Version:          req.Version,
		GampCategory:     req.GampCategory,
		Criticality:      req.Criticality,
		ValidationStatus: req.ValidationStatus,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, system)
}

func (s *Server) GetSystem(c *gin.Context) {
	if !s.authorize(c, authorization.ObjectSystem, authorization.ActionView) {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	system, err := s.systemSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, system)
}

func (s *Server) ListSystems(c *gin.Context) {
	if !s.authorize(c, authorization.ObjectSystem, authorization.ActionView) {
		return
	}

	systems, err := s.systemSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"systems": systems})
}

func (s *Server) UpdateSystem(c *gin.Context) {
	if !s.authorize(c, authorization.ObjectSystem, authorization.ActionUpdate) {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req UpdateSystemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	system, err := s.systemSvc.Update(c.Request.Context(), id, systemdomain.UpdateSystemRequest{
		Name:             req.Name,
		Description:      req.Description,
		Vendor:           req.Vendor,
		Version:          req.Version,
		GampCategory:     req.GampCategory,
		Criticality:      req.Criticality,
		ValidationStatus: req.ValidationStatus,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, system)
}

func (s *Server) DeleteSystem(c *gin.Context) {
	if !s.authorize(c, authorization.ObjectSystem, authorization.ActionDelete) {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := s.systemSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
