package models

import (
	"net/http"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// NewErrorResponse creates a new error response
func NewErrorResponse(code, message, details string) *ErrorResponse {
	return &ErrorResponse{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Common error codes
const (
	ErrCodeBadRequest        = "BAD_REQUEST"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeInternalError     = "INTERNAL_ERROR"
	ErrCodeDatabaseError     = "DATABASE_ERROR"
	ErrCodeValidationError   = "VALIDATION_ERROR"
	ErrCodeRequestNotFound   = "REQUEST_NOT_FOUND"
	ErrCodeAlreadyClaimed    = "ALREADY_CLAIMED"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	ErrCodeRequestBlocked    = "REQUEST_BLOCKED"
)

// HTTPStatusForErrorCode returns the appropriate HTTP status code for an error code
func HTTPStatusForErrorCode(code string) int {
	switch code {
	case ErrCodeBadRequest, ErrCodeValidationError:
		return http.StatusBadRequest
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden, ErrCodeRequestBlocked:
		return http.StatusForbidden
	case ErrCodeNotFound, ErrCodeRequestNotFound:
		return http.StatusNotFound
	case ErrCodeConflict, ErrCodeAlreadyClaimed, ErrCodeInvalidTransition:
		return http.StatusConflict
	case ErrCodeInternalError, ErrCodeDatabaseError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// SuccessResponse represents a standard success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewSuccessResponse creates a new success response
func NewSuccessResponse(message string, data interface{}) *SuccessResponse {
	return &SuccessResponse{
		Message: message,
		Data:    data,
	}
}

// RequestStatus lists the intake request lifecycle statuses
type RequestStatus string

const (
	// StatusDraft indicates a submitted request that has not entered checkout
	StatusDraft RequestStatus = "draft"
	// StatusPendingPayment indicates checkout has started but payment is not captured
	StatusPendingPayment RequestStatus = "pending_payment"
	// StatusPaid indicates payment is captured and the request is queued for review
	StatusPaid RequestStatus = "paid"
	// StatusInReview indicates a reviewer currently holds the claim
	StatusInReview RequestStatus = "in_review"
	// StatusPendingInfo indicates the reviewer is waiting on the patient
	StatusPendingInfo RequestStatus = "pending_info"
	// StatusApproved indicates the reviewer approved the request
	StatusApproved RequestStatus = "approved"
	// StatusDeclined indicates the request was declined by a reviewer or safety block
	StatusDeclined RequestStatus = "declined"
	// StatusCompleted indicates fulfilment close-out after a decision
	StatusCompleted RequestStatus = "completed"
	// StatusCancelled indicates the patient cancelled before payment
	StatusCancelled RequestStatus = "cancelled"
	// StatusExpired indicates the issued certificate passed its end date
	StatusExpired RequestStatus = "expired"
)

// IsTerminal reports whether no further transitions are possible from the status
func (s RequestStatus) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// IsValidStatus reports whether the string names a known lifecycle status
func IsValidStatus(status string) bool {
	switch RequestStatus(status) {
	case StatusDraft, StatusPendingPayment, StatusPaid, StatusInReview,
		StatusPendingInfo, StatusApproved, StatusDeclined, StatusCompleted,
		StatusCancelled, StatusExpired:
		return true
	}
	return false
}
