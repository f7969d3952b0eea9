package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/careloop/intake-review-api/internal/models"
)

// MockMonitorStore is a mock implementation of the queue monitor Store
type MockMonitorStore struct {
	mock.Mock
}

func (m *MockMonitorStore) CountUnclaimed(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockMonitorStore) OldestUnclaimed(ctx context.Context) (*models.IntakeRequest, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.IntakeRequest), args.Error(1)
}
