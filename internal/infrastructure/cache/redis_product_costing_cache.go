package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/erp/costing/internal/domain/inventory"
	"github.com/erp/costing/internal/domain/shared/strategy"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RedisProductCostingCache is the shared L2 product costing cache
type RedisProductCostingCache struct {
	client *redis.Client
	config CacheConfig
	logger *zap.Logger
}

// cachedProductCosting is the Redis wire form of a configuration
type cachedProductCosting struct {
	TenantID     uuid.UUID       `json:"tenant_id"`
	ProductID    uuid.UUID       `json:"product_id"`
	CostMethod   string          `json:"cost_method"`
	StandardCost decimal.Decimal `json:"standard_cost"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// NewRedisProductCostingCache creates a cache over a shared client; the caller closes the client
func NewRedisProductCostingCache(client *redis.Client, config CacheConfig, logger *zap.Logger) *RedisProductCostingCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisProductCostingCache{client: client, config: config, logger: logger}
}

func (c *RedisProductCostingCache) key(tenantID, productID uuid.UUID) string {
	return c.config.KeyPrefix + productKey(tenantID, productID)
}

// Get returns a cached configuration, or nil on a miss
func (c *RedisProductCostingCache) Get(ctx context.Context, tenantID, productID uuid.UUID) (*inventory.ProductCosting, error) {
	key := c.key(tenantID, productID)

	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product costing from cache: %w", err)
	}

	var cached cachedProductCosting
	if err := json.Unmarshal(data, &cached); err != nil {
		c.logger.Warn("Dropping corrupted product costing cache entry", zap.String("key", key), zap.Error(err))
		_ = c.client.Del(ctx, key)
		return nil, nil
	}
	return &inventory.ProductCosting{
		TenantID:     cached.TenantID,
		ProductID:    cached.ProductID,
		CostMethod:   strategy.CostMethod(cached.CostMethod),
		StandardCost: cached.StandardCost,
		UpdatedAt:    cached.UpdatedAt,
	}, nil
}

// Set caches a configuration; a zero ttl uses the configured L2 TTL
func (c *RedisProductCostingCache) Set(ctx context.Context, costing *inventory.ProductCosting, ttl time.Duration) error {
	if costing == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = c.config.L2TTL
	}

	data, err := json.Marshal(cachedProductCosting{
		TenantID:     costing.TenantID,
		ProductID:    costing.ProductID,
		CostMethod:   string(costing.CostMethod),
		StandardCost: costing.StandardCost,
		UpdatedAt:    costing.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal product costing: %w", err)
	}

	if err := c.client.Set(ctx, c.key(costing.TenantID, costing.ProductID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set product costing in cache: %w", err)
	}
	return nil
}

// Delete drops a cached configuration
func (c *RedisProductCostingCache) Delete(ctx context.Context, tenantID, productID uuid.UUID) error {
	if err := c.client.Del(ctx, c.key(tenantID, productID)).Err(); err != nil {
		return fmt.Errorf("failed to delete product costing from cache: %w", err)
	}
	return nil
}

// Close is a no-op; the client is shared
func (c *RedisProductCostingCache) Close() error {
	return nil
}

// Ensure RedisProductCostingCache implements ProductCostingCache
var _ ProductCostingCache = (*RedisProductCostingCache)(nil)
