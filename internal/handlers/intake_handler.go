package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/careloop/intake-review-api/internal/models"
	"github.com/careloop/intake-review-api/internal/service"
	"github.com/careloop/intake-review-api/internal/utils"
)

// IntakeServiceInterface defines the service surface the intake handler needs
type IntakeServiceInterface interface {
	Submit(ctx context.Context, apiRequest *models.IntakeAPIRequest, patientID, orgID string) (*service.SubmissionResult, error)
	GetRequest(ctx context.Context, requestID, orgID string) (*models.IntakeRequest, error)
	GetAuditTrail(ctx context.Context, requestID, orgID string) ([]models.AuditEvent, error)
	StartCheckout(ctx context.Context, requestID, orgID, patientID string) (*models.IntakeRequest, error)
	ConfirmPayment(ctx context.Context, requestID, orgID string) (*models.IntakeRequest, error)
	Cancel(ctx context.Context, requestID, orgID, patientID string) (*models.IntakeRequest, error)
	PatientResponded(ctx context.Context, requestID, orgID, patientID string) (*models.IntakeRequest, error)
	Complete(ctx context.Context, requestID, orgID string) (*models.IntakeRequest, error)
}

// IntakeHandler handles the patient-facing intake request endpoints
type IntakeHandler struct {
	service IntakeServiceInterface
}

// NewIntakeHandler creates a new intake handler
func NewIntakeHandler(service IntakeServiceInterface) *IntakeHandler {
	return &IntakeHandler{service: service}
}

// SubmitRequest handles POST /requests
func (h *IntakeHandler) SubmitRequest(c *gin.Context) {
	orgID := utils.GetOrgIDFromContext(c)
	patientID := utils.GetActorIDFromContext(c)
	if patientID == "" {
		utils.SendUnauthorizedError(c, "Actor ID header is required")
		return
	}

	var apiRequest models.IntakeAPIRequest
	if err := c.ShouldBindJSON(&apiRequest); err != nil {
		utils.SendBadRequestError(c, "Invalid request payload", err.Error())
		return
	}

	result, err := h.service.Submit(c.Request.Context(), &apiRequest, patientID, orgID)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}

	response := result.Request.ToAPIResponse()
	response.RedFlags = result.RedFlags
	utils.SendCreatedResponse(c, response)
}

// GetRequest handles GET /requests/:id
func (h *IntakeHandler) GetRequest(c *gin.Context) {
	orgID := utils.GetOrgIDFromContext(c)
	requestID := c.Param("id")

	request, err := h.service.GetRequest(c.Request.Context(), requestID, orgID)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}

	utils.SendOKResponse(c, request.ToAPIResponse())
}

// GetAuditTrail handles GET /requests/:id/audit
func (h *IntakeHandler) GetAuditTrail(c *gin.Context) {
	orgID := utils.GetOrgIDFromContext(c)
	requestID := c.Param("id")

	events, err := h.service.GetAuditTrail(c.Request.Context(), requestID, orgID)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}

	utils.SendOKResponse(c, gin.H{
		"requestId": requestID,
		"events":    events,
	})
}

// StartCheckout handles POST /requests/:id/checkout
func (h *IntakeHandler) StartCheckout(c *gin.Context) {
	orgID := utils.GetOrgIDFromContext(c)
	patientID := utils.GetActorIDFromContext(c)
	requestID := c.Param("id")

	request, err := h.service.StartCheckout(c.Request.Context(), requestID, orgID, patientID)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}

	utils.SendOKResponse(c, request.ToAPIResponse())
}

// ConfirmPayment handles POST /requests/:id/payment
func (h *IntakeHandler) ConfirmPayment(c *gin.Context) {
	orgID := utils.GetOrgIDFromContext(c)
	requestID := c.Param("id")

	request, err := h.service.ConfirmPayment(c.Request.Context(), requestID, orgID)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}

	utils.SendOKResponse(c, request.ToAPIResponse())
}

// CancelRequest handles POST /requests/:id/cancel
func (h *IntakeHandler) CancelRequest(c *gin.Context) {
	orgID := utils.GetOrgIDFromContext(c)
	patientID := utils.GetActorIDFromContext(c)
	requestID := c.Param("id")

	request, err := h.service.Cancel(c.Request.Context(), requestID, orgID, patientID)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}

	utils.SendOKResponse(c, request.ToAPIResponse())
}

// PatientResponded handles POST /requests/:id/response
func (h *IntakeHandler) PatientResponded(c *gin.Context) {
	orgID := utils.GetOrgIDFromContext(c)
	patientID := utils.GetActorIDFromContext(c)
	requestID := c.Param("id")

	request, err := h.service.PatientResponded(c.Request.Context(), requestID, orgID, patientID)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}

	utils.SendOKResponse(c, request.ToAPIResponse())
}

// CompleteRequest handles POST /requests/:id/complete
func (h *IntakeHandler) CompleteRequest(c *gin.Context) {
	orgID := utils.GetOrgIDFromContext(c)
	requestID := c.Param("id")

	request, err := h.service.Complete(c.Request.Context(), requestID, orgID)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}

	utils.SendOKResponse(c, request.ToAPIResponse())
}
