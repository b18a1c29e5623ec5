package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	auditdomain "github.com/qualitrace/qualitrace/internal/audit/domain"
	authdomain "github.com/qualitrace/qualitrace/internal/auth/domain"
	"github.com/qualitrace/qualitrace/internal/authorization"
	changerequestdomain "github.com/qualitrace/qualitrace/internal/changerequest/domain"
	documentdomain "github.com/qualitrace/qualitrace/internal/document/domain"
	riskdomain "github.com/qualitrace/qualitrace/internal/risk/domain"
	systemdomain "github.com/qualitrace/qualitrace/internal/system/domain"
	tenantdomain "github.com/qualitrace/qualitrace/internal/tenant/domain"
	traceabilitydomain "github.com/qualitrace/qualitrace/internal/traceability/domain"
	validationprojectdomain "github.com/qualitrace/qualitrace/internal/validationproject/domain"
	"github.com/qualitrace/qualitrace/internal/workflow"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	From    string            `json:"from,omitempty"`
	To      string            `json:"to,omitempty"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal_error")
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	// Illegal transitions surface the current and attempted status so the
	// caller can re-read and retry deliberately.
	var tErr *workflow.TransitionError
	if errors.As(err, &tErr) {
		return http.StatusConflict, errorPayload{
			Type:    "transition_error",
			Message: tErr.Error(),
			From:    tErr.From,
			To:      tErr.To,
		}
	}

	if isValidationError(err) {
		code := validationErrorCode(err)
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(code),
					Code:    code,
					Message: validationErrorMessage(code),
				},
			},
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized),
		errors.Is(err, authdomain.ErrInvalidCredentials),
		errors.Is(err, authdomain.ErrInvalidSession),
		errors.Is(err, authdomain.ErrSessionExpired),
		errors.Is(err, authdomain.ErrSessionRevoked):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, authorization.ErrForbidden),
		errors.Is(err, tenantdomain.ErrNoMembership):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: conflictMessage(err),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return true
	case errors.Is(err, tenantdomain.ErrInvalidName),
		errors.Is(err, tenantdomain.ErrInvalidUser),
		errors.Is(err, tenantdomain.ErrInvalidCompany),
		errors.Is(err, tenantdomain.ErrInvalidRole):
		return true
	case errors.Is(err, systemdomain.ErrInvalidName),
		errors.Is(err, systemdomain.ErrInvalidGampCategory),
		errors.Is(err, systemdomain.ErrInvalidCriticality),
		errors.Is(err, systemdomain.ErrInvalidValidationStatus):
		return true
	case errors.Is(err, riskdomain.ErrInvalidTitle),
		errors.Is(err, riskdomain.ErrInvalidFactor),
		errors.Is(err, riskdomain.ErrInvalidAssessmentType),
		errors.Is(err, riskdomain.ErrInvalidReason),
		errors.Is(err, riskdomain.ErrInvalidDescription):
		return true
	case errors.Is(err, validationprojectdomain.ErrInvalidName),
		errors.Is(err, validationprojectdomain.ErrInvalidReason),
		errors.Is(err, validationprojectdomain.ErrInvalidProgress):
		return true
	case errors.Is(err, changerequestdomain.ErrInvalidTitle),
		errors.Is(err, changerequestdomain.ErrInvalidPriority):
		return true
	case errors.Is(err, documentdomain.ErrInvalidTitle),
		errors.Is(err, documentdomain.ErrInvalidType),
		errors.Is(err, documentdomain.ErrInvalidReason):
		return true
	case errors.Is(err, traceabilitydomain.ErrInvalidCode),
		errors.Is(err, traceabilitydomain.ErrInvalidTitle),
		errors.Is(err, traceabilitydomain.ErrInvalidRequirementType),
		errors.Is(err, traceabilitydomain.ErrInvalidResult):
		return true
	case errors.Is(err, auditdomain.ErrInvalidPageToken),
		errors.Is(err, auditdomain.ErrInvalidTimeRange),
		errors.Is(err, auditdomain.ErrInvalidAction),
		errors.Is(err, auditdomain.ErrInvalidCompany):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, workflow.ErrConflict),
		errors.Is(err, tenantdomain.ErrLastMembership),
		errors.Is(err, tenantdomain.ErrMembershipExists),
		errors.Is(err, traceabilitydomain.ErrDuplicateLink),
		errors.Is(err, traceabilitydomain.ErrDuplicateCode),
		errors.Is(err, riskdomain.ErrMitigationCompleted),
		errors.Is(err, authdomain.ErrUserExists):
		return true
	default:
		return false
	}
}

func conflictMessage(err error) string {
	switch {
	case errors.Is(err, workflow.ErrConflict):
		return "status changed concurrently"
	case errors.Is(err, tenantdomain.ErrLastMembership):
		return "cannot remove the user's only membership"
	case errors.Is(err, traceabilitydomain.ErrDuplicateLink):
		return "requirement is already linked to this test case"
	default:
		return "conflict"
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, tenantdomain.ErrCompanyNotFound),
		errors.Is(err, tenantdomain.ErrMembershipNotFound),
		errors.Is(err, systemdomain.ErrSystemNotFound),
		errors.Is(err, riskdomain.ErrAssessmentNotFound),
		errors.Is(err, riskdomain.ErrMitigationNotFound),
		errors.Is(err, validationprojectdomain.ErrProjectNotFound),
		errors.Is(err, changerequestdomain.ErrChangeRequestNotFound),
		errors.Is(err, documentdomain.ErrDocumentNotFound),
		errors.Is(err, traceabilitydomain.ErrRequirementNotFound),
		errors.Is(err, traceabilitydomain.ErrTestCaseNotFound),
		errors.Is(err, traceabilitydomain.ErrLinkNotFound),
		errors.Is(err, authdomain.ErrUserNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorCode(err error) string {
	if errors.Is(err, ErrInvalidRequest) {
		return "invalid_request"
	}
	return err.Error()
}

func validationErrorField(code string) string {
	if code == "invalid_request" {
		return "request"
	}
	if strings.HasPrefix(code, "invalid_") {
		return strings.TrimPrefix(code, "invalid_")
	}
	if strings.HasPrefix(code, "missing_") {
		return strings.TrimPrefix(code, "missing_")
	}
	return ""
}

func validationErrorMessage(code string) string {
	switch code {
	case "invalid_request":
		return "invalid request"
	case "missing_rejection_reason":
		return "rejection reason is required"
	case "factor_out_of_range":
		return "factors must be between 1 and 10"
	default:
		return "invalid value"
	}
}

// classifyErrorForLog downgrades expected client errors so request logs stay
// honest about server health.
func classifyErrorForLog(err error) (string, string) {
	switch {
	case err == nil:
		return "", ""
	case asValidationErrors(err) != nil, isValidationError(err):
		return "client_error", validationErrorCode(err)
	case workflow.IsTransitionError(err):
		return "conflict", "transition_error"
	case isConflictError(err):
		return "conflict", "conflict"
	case isNotFoundError(err):
		return "not_found", "not_found"
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrForbidden), errors.Is(err, authorization.ErrForbidden):
		return "denied", "denied"
	default:
		return "server_error", "internal_error"
	}
}
