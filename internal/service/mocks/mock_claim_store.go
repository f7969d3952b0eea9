package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/careloop/intake-review-api/internal/models"
)

// MockClaimStore is a mock implementation of the claim manager Store
type MockClaimStore struct {
	mock.Mock
}

func (m *MockClaimStore) GetByID(ctx context.Context, requestID, orgID string) (*models.IntakeRequest, error) {
	args := m.Called(ctx, requestID, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.IntakeRequest), args.Error(1)
}

func (m *MockClaimStore) AtomicClaim(ctx context.Context, requestID, orgID, reviewerID string, claimedAt, staleBefore int64) (bool, error) {
	args := m.Called(ctx, requestID, orgID, reviewerID, claimedAt, staleBefore)
	return args.Bool(0), args.Error(1)
}

func (m *MockClaimStore) ReleaseClaim(ctx context.Context, requestID, orgID, reviewerID string, updatedTime int64) (bool, error) {
	args := m.Called(ctx, requestID, orgID, reviewerID, updatedTime)
	return args.Bool(0), args.Error(1)
}

func (m *MockClaimStore) ReleaseClaimsOlderThan(ctx context.Context, cutoff, updatedTime int64) (int64, error) {
	args := m.Called(ctx, cutoff, updatedTime)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockClaimStore) ListStaleClaims(ctx context.Context, cutoff int64) ([]models.IntakeRequest, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.IntakeRequest), args.Error(1)
}

func (m *MockClaimStore) ListClaimed(ctx context.Context) ([]models.IntakeRequest, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.IntakeRequest), args.Error(1)
}
