package cache

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/hwmix/backend/internal/domain/shared"
	"github.com/hwmix/backend/internal/infrastructure/config"
)

// NewIdempotencyStore creates an idempotency store based on configuration.
// When Redis is enabled it is tried first; if unavailable the store falls
// back to in-memory with a warning, since single-instance deployments do
// not need shared state.
func NewIdempotencyStore(cfg config.RedisConfig, logger *zap.Logger) (shared.IdempotencyStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if !cfg.Enabled {
		logger.Info("using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(), nil
	}

	store, err := NewRedisIdempotencyStore(RedisConfig{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err != nil {
		logger.Warn("Redis unavailable, falling back to in-memory idempotency store",
			zap.Error(err),
		)
		return NewInMemoryIdempotencyStore(), nil
	}

	logger.Info("using Redis idempotency store", zap.String("addr", cfg.Addr()))
	return store, nil
}

// NewRequiredRedisStore creates a Redis store and fails if Redis is unreachable.
// Use this in multi-instance deployments where shared idempotency state is mandatory.
func NewRequiredRedisStore(cfg config.RedisConfig) (shared.IdempotencyStore, error) {
	store, err := NewRedisIdempotencyStore(RedisConfig{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("Redis required for idempotency but unavailable: %w", err)
	}
	return store, nil
}
