package memory

import (
	"context"
	"sync"
	"testing"

	"streamqa/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStateRepository_SetCondition(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStateRepository(domain.InitialServerState(domain.ConditionNormal))

	state, err := repo.SetCondition(ctx, domain.ConditionTerrible, 500)
	require.NoError(t, err)
	assert.Equal(t, domain.ConditionTerrible, state.Condition)
	assert.Equal(t, 500, state.Bitrate)

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, state, got)
}

func TestMemoryStateRepository_RejectsUnknownCondition(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStateRepository(domain.InitialServerState(domain.ConditionPoor))

	_, err := repo.SetCondition(ctx, "bogus", 1)
	assert.ErrorIs(t, err, domain.ErrInvalidCondition)

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ConditionPoor, got.Condition)
	assert.Equal(t, 1200, got.Bitrate)
}

func TestMemoryStateRepository_Reset(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStateRepository(domain.InitialServerState(domain.ConditionNormal))

	_, err := repo.SetCondition(ctx, domain.ConditionPoor, 1200)
	require.NoError(t, err)

	initial := domain.InitialServerState(domain.ConditionNormal)
	require.NoError(t, repo.Reset(ctx, initial))

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, initial, got)
}

func TestMemoryStateRepository_ConcurrentWrites(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStateRepository(domain.InitialServerState(domain.ConditionNormal))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c := domain.Conditions[i%len(domain.Conditions)]
			p, _ := c.Profile()
			_, _ = repo.SetCondition(ctx, c, p.Bitrate)
			_, _ = repo.Get(ctx)
		}(i)
	}
	wg.Wait()

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	p, err := got.Condition.Profile()
	require.NoError(t, err)
	assert.Equal(t, p.Bitrate, got.Bitrate, "condition and bitrate must change together")
}
