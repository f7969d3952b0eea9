package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/careloop/intake-review-api/internal/database"
	"github.com/careloop/intake-review-api/internal/models"
)

// MockRequestStore is a mock implementation of the service RequestStore
type MockRequestStore struct {
	mock.Mock
}

func (m *MockRequestStore) CreateWithTx(ctx context.Context, tx *database.Transaction, request *models.IntakeRequest) error {
	args := m.Called(ctx, tx, request)
	return args.Error(0)
}

func (m *MockRequestStore) GetByID(ctx context.Context, requestID, orgID string) (*models.IntakeRequest, error) {
	args := m.Called(ctx, requestID, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.IntakeRequest), args.Error(1)
}

func (m *MockRequestStore) ListUnclaimed(ctx context.Context, limit, offset int) ([]models.IntakeRequest, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.IntakeRequest), args.Error(1)
}

func (m *MockRequestStore) ListApprovedExpiring(ctx context.Context, cutoff int64) ([]models.IntakeRequest, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.IntakeRequest), args.Error(1)
}
