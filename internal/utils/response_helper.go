package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/careloop/intake-review-api/internal/claims"
	"github.com/careloop/intake-review-api/internal/dao"
	"github.com/careloop/intake-review-api/internal/lifecycle"
	"github.com/careloop/intake-review-api/internal/models"
)

// SendSuccessResponse sends a successful JSON response
func SendSuccessResponse(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// SendErrorResponse sends an error JSON response
func SendErrorResponse(c *gin.Context, statusCode int, errCode, message, details string) {
	c.JSON(statusCode, models.ErrorResponse{
		Code:    errCode,
		Message: message,
		Details: details,
	})
}

// SendCreatedResponse sends a 201 Created response
func SendCreatedResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

// SendOKResponse sends a 200 OK response
func SendOKResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

// SendNoContentResponse sends a 204 No Content response
func SendNoContentResponse(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// SendBadRequestError sends a 400 Bad Request error
func SendBadRequestError(c *gin.Context, message, details string) {
	SendErrorResponse(c, http.StatusBadRequest, models.ErrCodeBadRequest, message, details)
}

// SendValidationError sends a 400 Validation error
func SendValidationError(c *gin.Context, message string) {
	SendErrorResponse(c, http.StatusBadRequest, models.ErrCodeValidationError, message, "")
}

// SendUnauthorizedError sends a 401 Unauthorized error
func SendUnauthorizedError(c *gin.Context, message string) {
	SendErrorResponse(c, http.StatusUnauthorized, models.ErrCodeUnauthorized, message, "")
}

// SendForbiddenError sends a 403 Forbidden error
func SendForbiddenError(c *gin.Context, message string) {
	SendErrorResponse(c, http.StatusForbidden, models.ErrCodeForbidden, message, "")
}

// SendNotFoundError sends a 404 Not Found error
func SendNotFoundError(c *gin.Context, message string) {
	SendErrorResponse(c, http.StatusNotFound, models.ErrCodeNotFound, message, "")
}

// SendConflictError sends a 409 Conflict error
func SendConflictError(c *gin.Context, errCode, message string) {
	SendErrorResponse(c, http.StatusConflict, errCode, message, "")
}

// SendInternalServerError sends a 500 Internal Server error
func SendInternalServerError(c *gin.Context, message, details string) {
	SendErrorResponse(c, http.StatusInternalServerError, models.ErrCodeInternalError, message, details)
}

// SendDomainError maps engine errors to typed API responses, so callers can
// tell "try again elsewhere" (contention) from "not allowed" (validation)
// from "not found".
func SendDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, dao.ErrRequestNotFound):
		SendErrorResponse(c, http.StatusNotFound, models.ErrCodeRequestNotFound, "Intake request not found", "")
	case errors.Is(err, claims.ErrAlreadyClaimed):
		SendErrorResponse(c, http.StatusConflict, models.ErrCodeAlreadyClaimed, "Request is claimed by another reviewer", "")
	case errors.Is(err, claims.ErrNotClaimable):
		SendErrorResponse(c, http.StatusConflict, models.ErrCodeConflict, "Request is not claimable", err.Error())
	case errors.Is(err, claims.ErrNotClaimHolder):
		SendErrorResponse(c, http.StatusConflict, models.ErrCodeConflict, "Reviewer does not hold the claim", "")
	case errors.Is(err, lifecycle.ErrStaleVersion):
		SendErrorResponse(c, http.StatusConflict, models.ErrCodeConflict, "Request changed concurrently, re-read and retry", "")
	case lifecycle.IsIllegalTransition(err):
		SendErrorResponse(c, http.StatusConflict, models.ErrCodeInvalidTransition, "Transition not allowed", err.Error())
	case lifecycle.IsGuardFailure(err):
		SendErrorResponse(c, http.StatusForbidden, models.ErrCodeForbidden, "Transition not permitted for this actor", err.Error())
	default:
		SendInternalServerError(c, "Operation failed", err.Error())
	}
}

// GetOrgIDFromContext returns the org ID set by the header middleware
func GetOrgIDFromContext(c *gin.Context) string {
	if v, ok := c.Get("orgID"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetActorIDFromContext returns the actor ID set by the header middleware
func GetActorIDFromContext(c *gin.Context) string {
	if v, ok := c.Get("actorID"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// SetContextValue stores a value on the gin context
func SetContextValue(c *gin.Context, key string, value interface{}) {
	c.Set(key, value)
}
