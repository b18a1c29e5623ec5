package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/qualitrace/qualitrace/internal/authorization"
	tenantdomain "github.com/qualitrace/qualitrace/internal/tenant/domain"
)

type CreateCompanyRequest struct {
	Name string `json:"name"`
}

func (s *Server) CreateCompany(c *gin.Context) {
	userID, ok := s.currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req CreateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.tenantSvc.CreateCompany(c.Request.Context(), userID, tenantdomain.CreateCompanyRequest{
		Name: req.Name,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (s *Server) ListUserCompanies(c *gin.Context) {
	userID, ok := s.currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	items, err := s.tenantSvc.ListCompaniesByUser(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"companies": items})
}

// SwitchCompany makes the target company the caller's active tenant.
func (s *Server) SwitchCompany(c *gin.Context) {
	userID, ok := s.currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	companyID, ok := parseIDParam(c, "companyId")
	if !ok {
		return
	}

	if err := s.tenantSvc.SwitchActiveCompany(c.Request.Context(), userID, companyID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"active_company_id": companyID.String()})
}

type AddMembershipRequest struct {
	UserID     string `json:"user_id"`
	Role       string `json:"role"`
	SetPrimary bool   `json:"set_primary"`
}

func (s *Server) AddMembership(c *gin.Context) {
	if !s.authorize(c, authorization.ObjectMembership, authorization.ActionMembershipManage) {
		return
	}
	companyID, ok := s.currentCompanyID(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}

	var req AddMembershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	userID, ok := parseIDField(c, req.UserID, "user_id")
	if !ok {
		return
	}

	membership, err := s.tenantSvc.AddMembership(c.Request.Context(), userID, companyID, req.Role, req.SetPrimary)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, membership)
}

func (s *Server) RemoveMembership(c *gin.Context) {
	if !s.authorize(c, authorization.ObjectMembership, authorization.ActionMembershipManage) {
		return
	}
	companyID, ok := s.currentCompanyID(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return
	}
	userID, ok := parseIDParam(c, "userId")
	if !ok {
		return
	}

	if err := s.tenantSvc.RemoveMembership(c.Request.Context(), userID, companyID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}
