package cache

import (
	"context"
	"fmt"

	"github.com/erp/costing/internal/domain/shared"
	"github.com/erp/costing/internal/infrastructure/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Factory builds the idempotency store and the product costing cache from
// configuration. Both share one Redis client when Redis is enabled and reachable.
type Factory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
	client                *redis.Client
	connectErr            error
	connected             bool
}

// FactoryOption is a functional option for configuring the factory
type FactoryOption func(*Factory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *Factory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory stores when Redis is unavailable.
// Default is true.
func WithInMemoryFallback(allow bool) FactoryOption {
	return func(f *Factory) {
		f.allowInMemoryFallback = allow
	}
}

// NewFactory creates a new factory
func NewFactory(cfg config.RedisConfig, opts ...FactoryOption) *Factory {
	f := &Factory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// redisClient connects once and returns nil when Redis is disabled
func (f *Factory) redisClient() (*redis.Client, error) {
	if !f.redisConfig.Enabled {
		return nil, nil
	}
	if !f.connected {
		f.client, f.connectErr = NewRedisClient(f.redisConfig)
		f.connected = true
	}
	return f.client, f.connectErr
}

// CreateIdempotencyStore returns a Redis store, or an in-memory one when Redis
// is disabled or unreachable and fallback is allowed
func (f *Factory) CreateIdempotencyStore() (shared.IdempotencyStore, error) {
	client, err := f.redisClient()
	if client != nil {
		f.logger.Info("Using Redis idempotency store")
		return NewRedisIdempotencyStoreWithClient(client, ""), nil
	}
	if err != nil {
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("redis required for idempotency but unavailable: %w", err)
		}
		f.logger.Warn("Redis unavailable, falling back to in-memory idempotency store. "+
			"Receipt retries are only deduplicated within this instance.",
			zap.Error(err))
	}
	return NewInMemoryIdempotencyStore(), nil
}

// CreateProductCostingCache returns an L1 cache, tiered over Redis when useRedis is set and Redis is available
func (f *Factory) CreateProductCostingCache(cacheCfg CacheConfig, useRedis bool) (*TieredProductCostingCache, error) {
	l1 := NewInMemoryProductCostingCache(
		WithInMemoryConfig(cacheCfg),
		WithInMemoryLogger(f.logger),
	)
	opts := []TieredCacheOption{WithTieredConfig(cacheCfg), WithTieredLogger(f.logger)}

	if useRedis {
		client, err := f.redisClient()
		switch {
		case client != nil:
			opts = append(opts,
				WithL2(NewRedisProductCostingCache(client, cacheCfg, f.logger)),
				WithInvalidator(NewRedisCostingInvalidator(client,
					WithInvalidatorChannel(cacheCfg.PubSubChannel),
					WithInvalidatorLogger(f.logger))),
			)
			f.logger.Info("Using tiered product costing cache")
		case err != nil && !f.allowInMemoryFallback:
			_ = l1.Close()
			return nil, fmt.Errorf("redis required for product costing cache but unavailable: %w", err)
		case err != nil:
			f.logger.Warn("Redis unavailable, product costing cache is local to this instance", zap.Error(err))
		}
	}
	return NewTieredProductCostingCache(l1, opts...), nil
}

// Ping checks the shared Redis client; it is a no-op when Redis is disabled
func (f *Factory) Ping(ctx context.Context) error {
	client, err := f.redisClient()
	if err != nil {
		return err
	}
	if client == nil {
		return nil
	}
	return client.Ping(ctx).Err()
}

// Close releases the shared Redis client
func (f *Factory) Close() error {
	if f.client != nil {
		return f.client.Close()
	}
	return nil
}
