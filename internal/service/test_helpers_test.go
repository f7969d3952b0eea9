package service

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/careloop/intake-review-api/internal/claims"
	"github.com/careloop/intake-review-api/internal/clock"
	"github.com/careloop/intake-review-api/internal/database"
	"github.com/careloop/intake-review-api/internal/lifecycle"
	"github.com/careloop/intake-review-api/internal/models"
	"github.com/careloop/intake-review-api/internal/safety"
	"github.com/careloop/intake-review-api/internal/service/mocks"
)

// TestSetup contains common test dependencies
type TestSetup struct {
	RequestStore   *mocks.MockRequestStore
	AuditStore     *mocks.MockAuditStore
	LifecycleStore *mocks.MockLifecycleStore
	ClaimStore     *mocks.MockClaimStore
	AuditSink      *mocks.RecordingAuditSink
	AlertSink      *mocks.RecordingAlertSink
	DBMock         sqlmock.Sqlmock
	Clock          clock.Fixed
	Service        *IntakeService
	Logger         *logrus.Logger
}

// NewTestSetup wires an IntakeService against mocks and a fixed clock
func NewTestSetup(t *testing.T, rules []safety.Rule) *TestSetup {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	mockDB, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	db := database.NewWithDB(sqlx.NewDb(mockDB, "mysql"), logger)

	set, err := safety.NewRuleSet(1, rules)
	require.NoError(t, err)

	clk := clock.Fixed{Instant: time.Date(2026, time.March, 14, 10, 0, 0, 0, time.UTC)}
	auditSink := &mocks.RecordingAuditSink{}
	alertSink := &mocks.RecordingAlertSink{}

	requestStore := &mocks.MockRequestStore{}
	auditStore := &mocks.MockAuditStore{}
	lifecycleStore := &mocks.MockLifecycleStore{}
	claimStore := &mocks.MockClaimStore{}

	engine := safety.NewEngine(safety.StaticRuleProvider{Set: set}, auditSink, clk, logger)
	stateMachine := lifecycle.NewStateMachine(lifecycleStore, auditSink, clk, logger)
	claimManager := claims.NewManager(claimStore, auditSink, alertSink, clk, claims.Config{
		Timeout:          30 * time.Minute,
		WarningThreshold: 20 * time.Minute,
	}, logger)

	svc := NewIntakeService(requestStore, auditStore, engine, stateMachine, claimManager,
		db, clk, 90*24*time.Hour, logger)

	return &TestSetup{
		RequestStore:   requestStore,
		AuditStore:     auditStore,
		LifecycleStore: lifecycleStore,
		ClaimStore:     claimStore,
		AuditSink:      auditSink,
		AlertSink:      alertSink,
		DBMock:         dbMock,
		Clock:          clk,
		Service:        svc,
		Logger:         logger,
	}
}

// NewValidSubmission returns an intake payload that passes every default rule
func NewValidSubmission() *models.IntakeAPIRequest {
	return &models.IntakeAPIRequest{
		ServiceType: "weight_management",
		Answers: map[string]interface{}{
			"pregnant": false,
			"bmi":      32.5,
			"age":      41,
		},
	}
}

// DefaultTestRules returns the weight management rules used across tests
func DefaultTestRules() []safety.Rule {
	return []safety.Rule{
		{
			RuleID:      "wm-pregnancy",
			ServiceType: "weight_management",
			Priority:    10,
			Knockout:    true,
			Severity:    safety.SeverityCritical,
			Reason:      "Pregnancy is an absolute contraindication",
			Condition:   safety.Condition{Field: "pregnant", Operator: "equals", Value: true},
		},
		{
			RuleID:      "wm-low-bmi",
			ServiceType: "weight_management",
			Priority:    20,
			Severity:    safety.SeverityHigh,
			Reason:      "BMI below treatment threshold",
			Condition:   safety.Condition{Field: "bmi", Operator: "lt", Value: 27},
		},
	}
}
