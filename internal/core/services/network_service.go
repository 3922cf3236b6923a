package services

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"streamqa/internal/core/domain"
	"streamqa/internal/core/ports"

	"go.uber.org/zap"
)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// ContextSleep is the default Sleeper.
func ContextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type NetworkServiceOptions struct {
	SimulateDelay bool
	Seed          int64 // 0 seeds from the clock
	Sleep         Sleeper
	Metrics       ports.NetworkMetrics
	Logger        *zap.SugaredLogger
}

type NetworkService struct {
	repo          ports.StateRepository
	simulateDelay bool
	sleep         Sleeper
	metrics       ports.NetworkMetrics
	logger        *zap.SugaredLogger

	randMu sync.Mutex
	rand   *rand.Rand
}

func NewNetworkService(repo ports.StateRepository, opts NetworkServiceOptions) *NetworkService {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if opts.Sleep == nil {
		opts.Sleep = ContextSleep
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}

	return &NetworkService{
		repo:          repo,
		simulateDelay: opts.SimulateDelay,
		sleep:         opts.Sleep,
		metrics:       opts.Metrics,
		logger:        opts.Logger,
		rand:          rand.New(rand.NewSource(seed)),
	}
}

// SampleDelay draws latency ± uniform(-jitter, jitter), clamped at zero.
func (s *NetworkService) SampleDelay(profile domain.NetworkProfile) time.Duration {
	delay := profile.Latency
	if profile.Jitter > 0 {
		s.randMu.Lock()
		offset := time.Duration(s.rand.Int63n(int64(2*profile.Jitter)+1)) - profile.Jitter
		s.randMu.Unlock()
		delay += offset
	}
	if delay < 0 {
		return 0
	}
	return delay
}

func (s *NetworkService) ApplyDelay(ctx context.Context) (time.Duration, error) {
	state, err := s.repo.Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load server state: %w", err)
	}
	return s.applyDelay(ctx, state)
}

func (s *NetworkService) applyDelay(ctx context.Context, state domain.ServerState) (time.Duration, error) {
	profile, err := state.Condition.Profile()
	if err != nil {
		return 0, err
	}

	delay := s.SampleDelay(profile)
	if s.simulateDelay {
		if err := s.sleep(ctx, delay); err != nil {
			return 0, err
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveDelay(state.Condition.String(), delay)
	}
	return delay, nil
}

// Health applies the simulated delay and reports it in the snapshot.
func (s *NetworkService) Health(ctx context.Context) (domain.HealthSnapshot, error) {
	state, err := s.repo.Get(ctx)
	if err != nil {
		return domain.HealthSnapshot{}, fmt.Errorf("failed to load server state: %w", err)
	}

	delay, err := s.applyDelay(ctx, state)
	if err != nil {
		return domain.HealthSnapshot{}, err
	}
	return domain.NewHealthSnapshot(state, delay), nil
}

// SetCondition switches the simulated network. Unknown conditions leave the state untouched.
func (s *NetworkService) SetCondition(ctx context.Context, raw string) (domain.ServerState, error) {
	condition, err := domain.ParseCondition(raw)
	if err != nil {
		s.logger.Warnw("rejected network condition", "condition", raw)
		return domain.ServerState{}, err
	}
	profile, err := condition.Profile()
	if err != nil {
		return domain.ServerState{}, err
	}

	previous, err := s.repo.Get(ctx)
	if err != nil {
		return domain.ServerState{}, fmt.Errorf("failed to load server state: %w", err)
	}

	state, err := s.repo.SetCondition(ctx, condition, profile.Bitrate)
	if err != nil {
		return domain.ServerState{}, fmt.Errorf("failed to store network condition: %w", err)
	}

	if s.metrics != nil {
		s.metrics.ConditionChanged(previous.Condition.String(), state.Condition.String(), state.Bitrate)
	}
	s.logger.Infow("network condition changed",
		"from", previous.Condition,
		"to", state.Condition,
		"bitrate", state.Bitrate,
	)
	return state, nil
}

func (s *NetworkService) State(ctx context.Context) (domain.ServerState, error) {
	return s.repo.Get(ctx)
}
