package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/careloop/intake-review-api/internal/claims"
	"github.com/careloop/intake-review-api/internal/models"
	"github.com/careloop/intake-review-api/internal/monitor"
	"github.com/careloop/intake-review-api/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// identity injects the org and actor the way the router middleware does
func identity(orgID, actorID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("orgID", orgID)
		c.Set("actorID", actorID)
		c.Next()
	}
}

func performRequest(t *testing.T, engine *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(data)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	recorder := httptest.NewRecorder()
	engine.ServeHTTP(recorder, req)
	return recorder
}

func decodeError(t *testing.T, recorder *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var response models.ErrorResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &response))
	return response
}

type mockIntakeService struct {
	mock.Mock
}

func (m *mockIntakeService) Submit(ctx context.Context, apiRequest *models.IntakeAPIRequest, patientID, orgID string) (*service.SubmissionResult, error) {
	args := m.Called(ctx, apiRequest, patientID, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SubmissionResult), args.Error(1)
}

func (m *mockIntakeService) GetRequest(ctx context.Context, requestID, orgID string) (*models.IntakeRequest, error) {
	args := m.Called(ctx, requestID, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.IntakeRequest), args.Error(1)
}

func (m *mockIntakeService) GetAuditTrail(ctx context.Context, requestID, orgID string) ([]models.AuditEvent, error) {
	args := m.Called(ctx, requestID, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AuditEvent), args.Error(1)
}

func (m *mockIntakeService) StartCheckout(ctx context.Context, requestID, orgID, patientID string) (*models.IntakeRequest, error) {
	args := m.Called(ctx, requestID, orgID, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.IntakeRequest), args.Error(1)
}

func (m *mockIntakeService) ConfirmPayment(ctx context.Context, requestID, orgID string) (*models.IntakeRequest, error) {
	args := m.Called(ctx, requestID, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.IntakeRequest), args.Error(1)
}

func (m *mockIntakeService) Cancel(ctx context.Context, requestID, orgID, patientID string) (*models.IntakeRequest, error) {
	args := m.Called(ctx, requestID, orgID, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.IntakeRequest), args.Error(1)
}

func (m *mockIntakeService) PatientResponded(ctx context.Context, requestID, orgID, patientID string) (*models.IntakeRequest, error) {
	args := m.Called(ctx, requestID, orgID, patientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.IntakeRequest), args.Error(1)
}

func (m *mockIntakeService) Complete(ctx context.Context, requestID, orgID string) (*models.IntakeRequest, error) {
	args := m.Called(ctx, requestID, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.IntakeRequest), args.Error(1)
}

type mockReviewService struct {
	mock.Mock
}

func (m *mockReviewService) Claim(ctx context.Context, requestID, orgID, reviewerID string) (*models.IntakeRequest, error) {
	args := m.Called(ctx, requestID, orgID, reviewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.IntakeRequest), args.Error(1)
}

func (m *mockReviewService) ReleaseClaim(ctx context.Context, requestID, orgID, reviewerID string) error {
	args := m.Called(ctx, requestID, orgID, reviewerID)
	return args.Error(0)
}

func (m *mockReviewService) Decide(ctx context.Context, requestID, orgID, reviewerID, decision string) (*models.IntakeRequest, error) {
	args := m.Called(ctx, requestID, orgID, reviewerID, decision)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.IntakeRequest), args.Error(1)
}

func (m *mockReviewService) RequestInfo(ctx context.Context, requestID, orgID, reviewerID string) (*models.IntakeRequest, error) {
	args := m.Called(ctx, requestID, orgID, reviewerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.IntakeRequest), args.Error(1)
}

type mockQueueService struct {
	mock.Mock
}

func (m *mockQueueService) ListQueue(ctx context.Context, limit, offset int) ([]models.IntakeRequest, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.IntakeRequest), args.Error(1)
}

type mockHealthChecker struct {
	mock.Mock
}

func (m *mockHealthChecker) CheckHealth(ctx context.Context) (monitor.QueueHealth, error) {
	args := m.Called(ctx)
	return args.Get(0).(monitor.QueueHealth), args.Error(1)
}

type mockClaimStatistics struct {
	mock.Mock
}

func (m *mockClaimStatistics) Statistics(ctx context.Context) (claims.Statistics, error) {
	args := m.Called(ctx)
	return args.Get(0).(claims.Statistics), args.Error(1)
}

func queuedRequest(requestID string) *models.IntakeRequest {
	return &models.IntakeRequest{
		RequestID:     requestID,
		PatientID:     "patient-1",
		ServiceType:   "weight_management",
		CurrentStatus: string(models.StatusPaid),
		RiskTier:      "low",
		SafetyOutcome: "ALLOW",
		CreatedTime:   1700000000000,
		UpdatedTime:   1700000000000,
		OrgID:         "org-1",
	}
}
