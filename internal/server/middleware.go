package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/qualitrace/qualitrace/internal/auditcontext"
	"github.com/qualitrace/qualitrace/internal/companyctx"
)

const (
	sessionCookieName = "qualitrace_session"
	sessionCookiePath = "/"

	contextUserIDKey    = "user_id"
	contextCompanyIDKey = "company_id"
)

func (s *Server) setSessionCookie(c *gin.Context, rawToken string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookieName, rawToken, maxAge, sessionCookiePath, "", s.cfg.AuthCookieSecure, true)
}

func (s *Server) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookieName, "", -1, sessionCookiePath, "", s.cfg.AuthCookieSecure, true)
}

// AuthRequired authenticates the session cookie and stores the user id on the
// gin context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := c.Cookie(sessionCookieName)
		if err != nil || strings.TrimSpace(sid) == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		session, err := s.authSvc.Authenticate(c.Request.Context(), sid)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextUserIDKey, session.UserID)
		ctx := auditcontext.WithActor(c.Request.Context(), "user", session.UserID.String())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// CompanyContext resolves the caller's active company and threads it through
// the request context. Tenant scoping rides on this value; handlers never see
// a request without it.
func (s *Server) CompanyContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := s.currentUserID(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		membership, err := s.tenantSvc.ActiveCompany(c.Request.Context(), userID)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextCompanyIDKey, membership.CompanyID)
		ctx := companyctx.WithCompanyID(c.Request.Context(), membership.CompanyID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func (s *Server) currentUserID(c *gin.Context) (snowflake.ID, bool) {
	value, exists := c.Get(contextUserIDKey)
	if !exists {
		return 0, false
	}
	userID, ok := value.(snowflake.ID)
	return userID, ok && userID != 0
}

func (s *Server) currentCompanyID(c *gin.Context) (snowflake.ID, bool) {
	value, exists := c.Get(contextCompanyIDKey)
	if !exists {
		return 0, false
	}
	companyID, ok := value.(snowflake.ID)
	return companyID, ok && companyID != 0
}

// authorize checks the caller's role against object/action in their active
// company. A denial maps to 403.
func (s *Server) authorize(c *gin.Context, object, action string) bool {
	userID, ok := s.currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return false
	}
	companyID, ok := s.currentCompanyID(c)
	if !ok {
		AbortWithError(c, ErrForbidden)
		return false
	}

	actor := fmt.Sprintf("user:%s", userID.String())
	if err := s.authzSvc.Authorize(c.Request.Context(), actor, companyID.String(), object, action); err != nil {
		AbortWithError(c, err)
		return false
	}
	return true
}

func parseIDParam(c *gin.Context, name string) (snowflake.ID, bool) {
	raw := strings.TrimSpace(c.Param(name))
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		AbortWithError(c, newValidationError(name, "invalid_id", "invalid id"))
		return 0, false
	}
	return id, true
}

func parseIDField(c *gin.Context, raw, field string) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		AbortWithError(c, newValidationError(field, "invalid_id", "invalid id"))
		return 0, false
	}
	return id, true
}

func parseOptionalID(raw string) (*snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		return nil, ErrInvalidRequest
	}
	return &id, nil
}
