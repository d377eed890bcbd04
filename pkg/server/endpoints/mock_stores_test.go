package endpoints

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/doodlesbykumbi/saasgate/pkg/model"
)

// MockHealthStore implements store.HealthStore for testing using testify/mock
type MockHealthStore struct {
	mock.Mock
}

func (m *MockHealthStore) CheckConnectivity(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockRecentAuditor implements RecentAuditor for testing using testify/mock
type MockRecentAuditor struct {
	mock.Mock
}

func (m *MockRecentAuditor) Recent(ctx context.Context, msgID string, limit int) ([]model.AuditMessage, error) {
	args := m.Called(ctx, msgID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AuditMessage), args.Error(1)
}

// MockPinger stands in for the Redis-backed revoker.
type MockPinger struct {
	mock.Mock
}

func (m *MockPinger) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
