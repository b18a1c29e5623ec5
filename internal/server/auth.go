package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/qualitrace/qualitrace/internal/audit/domain"
	authdomain "github.com/qualitrace/qualitrace/internal/auth/domain"
	tenantdomain "github.com/qualitrace/qualitrace/internal/tenant/domain"
)

type SignupRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	CompanyName string `json:"company_name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	user, err := s.authSvc.CreateUser(c.Request.Context(), authdomain.CreateUserRequest{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	companyName := strings.TrimSpace(req.CompanyName)
	if companyName == "" {
		companyName = user.DisplayName
	}
	if _, err := s.tenantSvc.CreateCompany(c.Request.Context(), user.ID, tenantdomain.CreateCompanyRequest{Name: companyName}); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":           user.ID.String(),
		"email":        user.Email,
		"display_name": user.DisplayName,
	})
}

func (s *Server) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	email := strings.TrimSpace(req.Email)
	result, err := s.authSvc.Login(c.Request.Context(), authdomain.LoginRequest{
		Email:     email,
		Password:  req.Password,
		UserAgent: c.Request.UserAgent(),
		IPAddress: c.ClientIP(),
	})
	if err != nil {
		if s.auditSvc != nil {
			_ = s.auditSvc.Record(c.Request.Context(), auditdomain.Entry{
				ActorType:  "user",
				Action:     "user.login_failed",
				TargetType: "user",
				NewValues:  map[string]any{"email": email},
			})
		}
		AbortWithError(c, err)
		return
	}

	s.setSessionCookie(c, result.RawToken, result.ExpiresAt)

	if s.auditSvc != nil {
		userID := result.UserID.String()
		_ = s.auditSvc.Record(c.Request.Context(), auditdomain.Entry{
			ActorType:  "user",
			ActorID:    &userID,
			Action:     "user.login",
			TargetType: "user",
			TargetID:   &userID,
			NewValues:  map[string]any{"email": email},
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":    result.UserID.String(),
		"expires_at": result.ExpiresAt,
	})
}

func (s *Server) Logout(c *gin.Context) {
	sid, err := c.Cookie(sessionCookieName)
	if err == nil && strings.TrimSpace(sid) != "" {
		if err := s.authSvc.Logout(c.Request.Context(), sid); err != nil {
			AbortWithError(c, err)
			return
		}
	}
	s.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) Me(c *gin.Context) {
	userID, ok := s.currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	companies, err := s.tenantSvc.ListCompaniesByUser(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":   userID.String(),
		"companies": companies,
	})
}
