package memory

import (
	"context"
	"sync"

	"streamqa/internal/core/domain"
	"streamqa/internal/core/ports"
)

type MemoryStateRepository struct {
	state domain.ServerState
	mu    sync.RWMutex
}

func NewMemoryStateRepository(initial domain.ServerState) ports.StateRepository {
	return &MemoryStateRepository{
		state: initial,
	}
}

func (r *MemoryStateRepository) Get(ctx context.Context) (domain.ServerState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.state, nil
}

func (r *MemoryStateRepository) SetCondition(ctx context.Context, condition domain.NetworkCondition, bitrate int) (domain.ServerState, error) {
	if !condition.Valid() {
		return domain.ServerState{}, domain.ErrInvalidCondition
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.Condition = condition
	r.state.Bitrate = bitrate
	return r.state, nil
}

func (r *MemoryStateRepository) Reset(ctx context.Context, state domain.ServerState) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state = state
	return nil
}
