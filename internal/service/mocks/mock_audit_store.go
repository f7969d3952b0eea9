package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/careloop/intake-review-api/internal/database"
	"github.com/careloop/intake-review-api/internal/models"
)

// MockAuditStore is a mock implementation of the service AuditStore
type MockAuditStore struct {
	mock.Mock
}

func (m *MockAuditStore) CreateWithTx(ctx context.Context, tx *database.Transaction, event *models.AuditEvent) error {
	args := m.Called(ctx, tx, event)
	return args.Error(0)
}

func (m *MockAuditStore) GetByRequestID(ctx context.Context, requestID, orgID string) ([]models.AuditEvent, error) {
	args := m.Called(ctx, requestID, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.AuditEvent), args.Error(1)
}
