package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/careloop/intake-review-api/internal/dao"
	"github.com/careloop/intake-review-api/internal/models"
)

// MockLifecycleStore is a mock implementation of the state machine RequestStore
type MockLifecycleStore struct {
	mock.Mock
}

func (m *MockLifecycleStore) GetByID(ctx context.Context, requestID, orgID string) (*models.IntakeRequest, error) {
	args := m.Called(ctx, requestID, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.IntakeRequest), args.Error(1)
}

func (m *MockLifecycleStore) UpdateStatus(ctx context.Context, requestID, orgID, fromStatus, toStatus string, updatedTime int64, claim dao.ClaimUpdate) (bool, error) {
	args := m.Called(ctx, requestID, orgID, fromStatus, toStatus, updatedTime, claim)
	return args.Bool(0), args.Error(1)
}
