package testutils

import (
	"context"
	"time"

	"streamqa/internal/core/domain"

	"github.com/stretchr/testify/mock"
)

// MockStateRepository is a testify double of ports.StateRepository.
type MockStateRepository struct {
	mock.Mock
}

func (m *MockStateRepository) Get(ctx context.Context) (domain.ServerState, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.ServerState), args.Error(1)
}

func (m *MockStateRepository) SetCondition(ctx context.Context, condition domain.NetworkCondition, bitrate int) (domain.ServerState, error) {
	args := m.Called(ctx, condition, bitrate)
	return args.Get(0).(domain.ServerState), args.Error(1)
}

func (m *MockStateRepository) Reset(ctx context.Context, state domain.ServerState) error {
	args := m.Called(ctx, state)
	return args.Error(0)
}

// MockNetworkMetrics is a testify double of ports.NetworkMetrics.
type MockNetworkMetrics struct {
	mock.Mock
}

func (m *MockNetworkMetrics) ObserveDelay(condition string, applied time.Duration) {
	m.Called(condition, applied)
}

func (m *MockNetworkMetrics) ConditionChanged(from, to string, bitrate int) {
	m.Called(from, to, bitrate)
}

// MockAssetService is a testify double of ports.AssetService.
type MockAssetService struct {
	mock.Mock
}

func (m *MockAssetService) Manifest() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockAssetService) Segment(index int) ([]byte, error) {
	args := m.Called(index)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockAssetService) SegmentCount() int {
	args := m.Called()
	return args.Int(0)
}

// MockSleeper records simulated delays handed to services.Sleeper.
type MockSleeper struct {
	mock.Mock
}

func (m *MockSleeper) Sleep(ctx context.Context, d time.Duration) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

// Durations returns the delays passed to Sleep, in call order.
func (m *MockSleeper) Durations() []time.Duration {
	var out []time.Duration
	for _, call := range m.Calls {
		if call.Method == "Sleep" {
			out = append(out, call.Arguments.Get(1).(time.Duration))
		}
	}
	return out
}
