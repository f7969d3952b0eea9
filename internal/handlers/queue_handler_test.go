package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/careloop/intake-review-api/internal/claims"
	"github.com/careloop/intake-review-api/internal/models"
	"github.com/careloop/intake-review-api/internal/monitor"
)

func newQueueRouter(svc QueueServiceInterface, health HealthChecker, stats ClaimStatisticsProvider) *gin.Engine {
	handler := NewQueueHandler(svc, health, stats)

	engine := gin.New()
	group := engine.Group("/api/v1/queue", identity("org-1", "reviewer-1"))
	group.GET("", handler.ListQueue)
	group.GET("/health", handler.GetQueueHealth)
	group.GET("/claims", handler.GetClaimStatistics)
	return engine
}

func TestListQueue_DefaultPaging(t *testing.T) {
	svc := &mockQueueService{}
	svc.On("ListQueue", mock.Anything, 25, 0).Return([]models.IntakeRequest{
		*queuedRequest("REQ-1"),
		*queuedRequest("REQ-2"),
	}, nil)

	engine := newQueueRouter(svc, &mockHealthChecker{}, &mockClaimStatistics{})
	recorder := performRequest(t, engine, http.MethodGet, "/api/v1/queue", nil)

	require.Equal(t, http.StatusOK, recorder.Code)

	var body struct {
		Items  []models.IntakeAPIResponse `json:"items"`
		Limit  int                        `json:"limit"`
		Offset int                        `json:"offset"`
		Count  int                        `json:"count"`
	}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, 25, body.Limit)
	assert.Equal(t, 0, body.Offset)
	assert.Equal(t, 2, body.Count)
	require.Len(t, body.Items, 2)
	assert.Equal(t, "REQ-1", body.Items[0].ID)
	svc.AssertExpectations(t)
}

func TestListQueue_ExplicitPaging(t *testing.T) {
	svc := &mockQueueService{}
	svc.On("ListQueue", mock.Anything, 5, 10).Return([]models.IntakeRequest{}, nil)

	engine := newQueueRouter(svc, &mockHealthChecker{}, &mockClaimStatistics{})
	recorder := performRequest(t, engine, http.MethodGet, "/api/v1/queue?limit=5&offset=10", nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	svc.AssertExpectations(t)
}

func TestListQueue_StoreError(t *testing.T) {
	svc := &mockQueueService{}
	svc.On("ListQueue", mock.Anything, 25, 0).Return(nil, errors.New("connection refused"))

	engine := newQueueRouter(svc, &mockHealthChecker{}, &mockClaimStatistics{})
	recorder := performRequest(t, engine, http.MethodGet, "/api/v1/queue", nil)

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Equal(t, models.ErrCodeInternalError, decodeError(t, recorder).Code)
}

func TestGetQueueHealth_OK(t *testing.T) {
	health := &mockHealthChecker{}
	health.On("CheckHealth", mock.Anything).Return(monitor.QueueHealth{
		QueueSize:                 7,
		OldestUnclaimedAgeMinutes: 150,
		SLABreached:               true,
		Healthy:                   false,
	}, nil)

	engine := newQueueRouter(&mockQueueService{}, health, &mockClaimStatistics{})
	recorder := performRequest(t, engine, http.MethodGet, "/api/v1/queue/health", nil)

	require.Equal(t, http.StatusOK, recorder.Code)

	var body monitor.QueueHealth
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, 7, body.QueueSize)
	assert.Equal(t, int64(150), body.OldestUnclaimedAgeMinutes)
	assert.True(t, body.SLABreached)
	assert.False(t, body.Healthy)
}

func TestGetQueueHealth_Error(t *testing.T) {
	health := &mockHealthChecker{}
	health.On("CheckHealth", mock.Anything).Return(monitor.QueueHealth{}, errors.New("timeout"))

	engine := newQueueRouter(&mockQueueService{}, health, &mockClaimStatistics{})
	recorder := performRequest(t, engine, http.MethodGet, "/api/v1/queue/health", nil)

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}

func TestGetClaimStatistics_OK(t *testing.T) {
	stats := &mockClaimStatistics{}
	stats.On("Statistics", mock.Anything).Return(claims.Statistics{Active: 4, Warning: 2, Stale: 1}, nil)

	engine := newQueueRouter(&mockQueueService{}, &mockHealthChecker{}, stats)
	recorder := performRequest(t, engine, http.MethodGet, "/api/v1/queue/claims", nil)

	require.Equal(t, http.StatusOK, recorder.Code)

	var body claims.Statistics
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &body))
	assert.Equal(t, claims.Statistics{Active: 4, Warning: 2, Stale: 1}, body)
}

func TestGetClaimStatistics_Error(t *testing.T) {
	stats := &mockClaimStatistics{}
	stats.On("Statistics", mock.Anything).Return(claims.Statistics{}, errors.New("timeout"))

	engine := newQueueRouter(&mockQueueService{}, &mockHealthChecker{}, stats)
	recorder := performRequest(t, engine, http.MethodGet, "/api/v1/queue/claims", nil)

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}
