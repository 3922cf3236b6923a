package repositories

import (
	"context"

	"streamqa/internal/core/domain"
	"streamqa/internal/core/ports"
	"streamqa/internal/infrastructure/repositories/memory"
	redisrepo "streamqa/internal/infrastructure/repositories/redis"
	"streamqa/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RepositoryFactory creates repositories with fallback support
type RepositoryFactory struct {
	useRedis    bool
	redisClient *redis.Client
	redisKey    string
	logger      *zap.SugaredLogger
}

// NewRepositoryFactory creates a new repository factory. When Redis is enabled
// but unreachable the factory falls back to in-memory storage.
func NewRepositoryFactory(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (*RepositoryFactory, error) {
	factory := &RepositoryFactory{
		useRedis: cfg.Redis.Enabled,
		redisKey: cfg.Redis.Key,
		logger:   logger,
	}

	if cfg.Redis.Enabled {
		client, err := redisrepo.NewRedisClient(
			ctx,
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.PoolSize,
			logger,
		)
		if err != nil {
			logger.Warnw("failed to connect to Redis, falling back to memory state",
				"error", err,
			)
			factory.useRedis = false
		} else {
			factory.redisClient = client
			logger.Info("using Redis state repository")
		}
	}

	if !factory.useRedis {
		logger.Info("using memory state repository")
	}

	return factory, nil
}

// CreateStateRepository returns a repository seeded with the initial state.
func (f *RepositoryFactory) CreateStateRepository(ctx context.Context, initial domain.ServerState) (ports.StateRepository, error) {
	if f.useRedis && f.redisClient != nil {
		repo := redisrepo.NewRedisStateRepository(f.redisClient, f.redisKey)
		if err := repo.Reset(ctx, initial); err != nil {
			return nil, err
		}
		return repo, nil
	}
	return memory.NewMemoryStateRepository(initial), nil
}

// UsesRedis reports whether state is kept in Redis rather than in memory.
func (f *RepositoryFactory) UsesRedis() bool {
	return f.useRedis && f.redisClient != nil
}

// Close closes Redis connection if used
func (f *RepositoryFactory) Close() error {
	if f.redisClient != nil {
		err := redisrepo.CloseRedisClient(f.redisClient)
		f.redisClient = nil
		return err
	}
	return nil
}

// HealthCheck checks Redis connection health
func (f *RepositoryFactory) HealthCheck(ctx context.Context) error {
	if f.UsesRedis() {
		return f.redisClient.Ping(ctx).Err()
	}
	return nil
}
