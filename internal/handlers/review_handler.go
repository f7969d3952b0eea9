package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/careloop/intake-review-api/internal/models"
	"github.com/careloop/intake-review-api/internal/utils"
)

// ReviewServiceInterface defines the service surface the review handler needs
type ReviewServiceInterface interface {
	Claim(ctx context.Context, requestID, orgID, reviewerID string) (*models.IntakeRequest, error)
	ReleaseClaim(ctx context.Context, requestID, orgID, reviewerID string) error
	Decide(ctx context.Context, requestID, orgID, reviewerID, decision string) (*models.IntakeRequest, error)
	RequestInfo(ctx context.Context, requestID, orgID, reviewerID string) (*models.IntakeRequest, error)
}

// ReviewHandler handles the reviewer-facing endpoints
type ReviewHandler struct {
	service ReviewServiceInterface
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(service ReviewServiceInterface) *ReviewHandler {
	return &ReviewHandler{service: service}
}

// ClaimRequest handles POST /requests/:id/claim
func (h *ReviewHandler) ClaimRequest(c *gin.Context) {
	orgID := utils.GetOrgIDFromContext(c)
	reviewerID := utils.GetActorIDFromContext(c)
	requestID := c.Param("id")

	if reviewerID == "" {
		utils.SendUnauthorizedError(c, "Actor ID header is required")
		return
	}

	request, err := h.service.Claim(c.Request.Context(), requestID, orgID, reviewerID)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}

	utils.SendOKResponse(c, request.ToAPIResponse())
}

// ReleaseClaim handles DELETE /requests/:id/claim
func (h *ReviewHandler) ReleaseClaim(c *gin.Context) {
	orgID := utils.GetOrgIDFromContext(c)
	reviewerID := utils.GetActorIDFromContext(c)
	requestID := c.Param("id")

	if reviewerID == "" {
		utils.SendUnauthorizedError(c, "Actor ID header is required")
		return
	}

	if err := h.service.ReleaseClaim(c.Request.Context(), requestID, orgID, reviewerID); err != nil {
		utils.SendDomainError(c, err)
		return
	}

	utils.SendNoContentResponse(c)
}

// DecideRequest handles POST /requests/:id/decision
func (h *ReviewHandler) DecideRequest(c *gin.Context) {
	orgID := utils.GetOrgIDFromContext(c)
	reviewerID := utils.GetActorIDFromContext(c)
	requestID := c.Param("id")

	if reviewerID == "" {
		utils.SendUnauthorizedError(c, "Actor ID header is required")
		return
	}

	var apiRequest models.DecisionAPIRequest
	if err := c.ShouldBindJSON(&apiRequest); err != nil {
		utils.SendBadRequestError(c, "Invalid decision payload", err.Error())
		return
	}

	if apiRequest.Decision != "approve" && apiRequest.Decision != "decline" {
		utils.SendValidationError(c, "Decision must be approve or decline")
		return
	}

	request, err := h.service.Decide(c.Request.Context(), requestID, orgID, reviewerID, apiRequest.Decision)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}

	utils.SendOKResponse(c, request.ToAPIResponse())
}

// RequestMoreInfo handles POST /requests/:id/info-request
func (h *ReviewHandler) RequestMoreInfo(c *gin.Context) {
	orgID := utils.GetOrgIDFromContext(c)
	reviewerID := utils.GetActorIDFromContext(c)
	requestID := c.Param("id")

	if reviewerID == "" {
		utils.SendUnauthorizedError(c, "Actor ID header is required")
		return
	}

	request, err := h.service.RequestInfo(c.Request.Context(), requestID, orgID, reviewerID)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}

	utils.SendOKResponse(c, request.ToAPIResponse())
}
