package redis

import (
	"context"
	"fmt"
	"strconv"

	"streamqa/internal/core/domain"
	"streamqa/internal/core/ports"

	"github.com/redis/go-redis/v9"
)

const (
	fieldCondition = "condition"
	fieldViewers   = "viewers"
	fieldBitrate   = "bitrate"
)

// RedisStateRepository keeps ServerState in a single Redis hash so that several
// mock server processes can share one network condition.
type RedisStateRepository struct {
	client *redis.Client
	key    string
}

func NewRedisStateRepository(client *redis.Client, key string) ports.StateRepository {
	if key == "" {
		key = "streamqa:server_state"
	}
	return &RedisStateRepository{
		client: client,
		key:    key,
	}
}

func (r *RedisStateRepository) Get(ctx context.Context) (domain.ServerState, error) {
	fields, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return domain.ServerState{}, fmt.Errorf("failed to read server state from Redis: %w", err)
	}
	return stateFromHash(fields)
}

func (r *RedisStateRepository) SetCondition(ctx context.Context, condition domain.NetworkCondition, bitrate int) (domain.ServerState, error) {
	if !condition.Valid() {
		return domain.ServerState{}, domain.ErrInvalidCondition
	}

	// One HSET keeps condition and bitrate consistent for concurrent readers.
	if err := r.client.HSet(ctx, r.key,
		fieldCondition, string(condition),
		fieldBitrate, bitrate,
	).Err(); err != nil {
		return domain.ServerState{}, fmt.Errorf("failed to update server state in Redis: %w", err)
	}

	return r.Get(ctx)
}

func (r *RedisStateRepository) Reset(ctx context.Context, state domain.ServerState) error {
	if err := r.client.HSet(ctx, r.key, stateToHash(state)).Err(); err != nil {
		return fmt.Errorf("failed to reset server state in Redis: %w", err)
	}
	return nil
}

func stateToHash(state domain.ServerState) map[string]interface{} {
	return map[string]interface{}{
		fieldCondition: string(state.Condition),
		fieldViewers:   state.Viewers,
		fieldBitrate:   state.Bitrate,
	}
}

func stateFromHash(fields map[string]string) (domain.ServerState, error) {
	if len(fields) == 0 {
		return domain.ServerState{}, fmt.Errorf("server state not initialised")
	}

	condition, err := domain.ParseCondition(fields[fieldCondition])
	if err != nil {
		return domain.ServerState{}, err
	}

	viewers, err := strconv.Atoi(fields[fieldViewers])
	if err != nil {
		return domain.ServerState{}, fmt.Errorf("invalid viewers value %q: %w", fields[fieldViewers], err)
	}

	bitrate, err := strconv.Atoi(fields[fieldBitrate])
	if err != nil {
		return domain.ServerState{}, fmt.Errorf("invalid bitrate value %q: %w", fields[fieldBitrate], err)
	}

	return domain.ServerState{
		Condition: condition,
		Viewers:   viewers,
		Bitrate:   bitrate,
	}, nil
}
