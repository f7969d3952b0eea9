package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/careloop/intake-review-api/internal/claims"
	"github.com/careloop/intake-review-api/internal/models"
	"github.com/careloop/intake-review-api/internal/monitor"
	"github.com/careloop/intake-review-api/internal/utils"
)

// QueueServiceInterface defines the service surface the queue handler needs
type QueueServiceInterface interface {
	ListQueue(ctx context.Context, limit, offset int) ([]models.IntakeRequest, error)
}

// HealthChecker computes the current review queue health
type HealthChecker interface {
	CheckHealth(ctx context.Context) (monitor.QueueHealth, error)
}

// ClaimStatisticsProvider reports the current claim age buckets
type ClaimStatisticsProvider interface {
	Statistics(ctx context.Context) (claims.Statistics, error)
}

// QueueHandler handles the review queue endpoints
type QueueHandler struct {
	service QueueServiceInterface
	health  HealthChecker
	claims  ClaimStatisticsProvider
}

// NewQueueHandler creates a new queue handler
func NewQueueHandler(service QueueServiceInterface, health HealthChecker, claims ClaimStatisticsProvider) *QueueHandler {
	return &QueueHandler{
		service: service,
		health:  health,
		claims:  claims,
	}
}

// ListQueue handles GET /queue
func (h *QueueHandler) ListQueue(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "25"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	requests, err := h.service.ListQueue(c.Request.Context(), limit, offset)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}

	responses := make([]*models.IntakeAPIResponse, 0, len(requests))
	for i := range requests {
		responses = append(responses, requests[i].ToAPIResponse())
	}

	utils.SendOKResponse(c, gin.H{
		"items":  responses,
		"limit":  limit,
		"offset": offset,
		"count":  len(responses),
	})
}

// GetQueueHealth handles GET /queue/health
func (h *QueueHandler) GetQueueHealth(c *gin.Context) {
	health, err := h.health.CheckHealth(c.Request.Context())
	if err != nil {
		utils.SendInternalServerError(c, "Queue health check failed", err.Error())
		return
	}

	utils.SendOKResponse(c, health)
}

// GetClaimStatistics handles GET /queue/claims
func (h *QueueHandler) GetClaimStatistics(c *gin.Context) {
	stats, err := h.claims.Statistics(c.Request.Context())
	if err != nil {
		utils.SendInternalServerError(c, "Claim statistics failed", err.Error())
		return
	}

	utils.SendOKResponse(c, stats)
}
