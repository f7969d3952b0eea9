// Package router wires the HTTP routes and shared middleware.
package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/careloop/intake-review-api/internal/handlers"
)

const (
	headerOrgID   = "X-Org-Id"
	headerActorID = "X-Actor-Id"
	defaultOrgID  = "default-org"
)

// Setup creates the gin engine with all routes registered
func Setup(
	intakeHandler *handlers.IntakeHandler,
	reviewHandler *handlers.ReviewHandler,
	queueHandler *handlers.QueueHandler,
	healthHandler gin.HandlerFunc,
	logger *logrus.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogger(logger))
	engine.Use(identityHeaders())

	engine.GET("/health", healthHandler)

	v1 := engine.Group("/api/v1")
	{
		requests := v1.Group("/requests")
		{
			requests.POST("", intakeHandler.SubmitRequest)
			requests.GET("/:id", intakeHandler.GetRequest)
			requests.GET("/:id/audit", intakeHandler.GetAuditTrail)
			requests.POST("/:id/checkout", intakeHandler.StartCheckout)
			requests.POST("/:id/payment", intakeHandler.ConfirmPayment)
			requests.POST("/:id/cancel", intakeHandler.CancelRequest)
			requests.POST("/:id/response", intakeHandler.PatientResponded)
			requests.POST("/:id/complete", intakeHandler.CompleteRequest)

			requests.POST("/:id/claim", reviewHandler.ClaimRequest)
			requests.DELETE("/:id/claim", reviewHandler.ReleaseClaim)
			requests.POST("/:id/decision", reviewHandler.DecideRequest)
			requests.POST("/:id/info-request", reviewHandler.RequestMoreInfo)
		}

		queue := v1.Group("/queue")
		{
			queue.GET("", queueHandler.ListQueue)
			queue.GET("/health", queueHandler.GetQueueHealth)
			queue.GET("/claims", queueHandler.GetClaimStatistics)
		}
	}

	return engine
}

// identityHeaders extracts the caller identity headers into the request
// context. The org ID falls back to the single-tenant default.
func identityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		orgID := c.GetHeader(headerOrgID)
		if orgID == "" {
			orgID = defaultOrgID
		}
		c.Set("orgID", orgID)
		c.Set("actorID", c.GetHeader(headerActorID))
		c.Next()
	}
}

func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"client_ip":   c.ClientIP(),
		})

		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Error("Request failed")
		} else {
			entry.Info("Request completed")
		}
	}
}
