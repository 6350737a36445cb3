package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/erp/costing/internal/domain/inventory"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TieredProductCostingCache reads L1 then L2 and invalidates L1 on every
// instance through Pub/Sub. L2 and the invalidator are optional; L2 errors
// degrade to misses so a Redis outage falls back to the database.
type TieredProductCostingCache struct {
	l1          *InMemoryProductCostingCache
	l2          ProductCostingCache
	invalidator Invalidator
	config      CacheConfig
	logger      *zap.Logger

	l1Hits   int64
	l1Misses int64
	l2Hits   int64
	l2Misses int64
}

// TieredCacheOption is a functional option for configuring the cache
type TieredCacheOption func(*TieredProductCostingCache)

// WithTieredConfig sets the cache configuration
func WithTieredConfig(config CacheConfig) TieredCacheOption {
	return func(c *TieredProductCostingCache) {
		c.config = config
	}
}

// WithTieredLogger sets the logger for the cache
func WithTieredLogger(logger *zap.Logger) TieredCacheOption {
	return func(c *TieredProductCostingCache) {
		c.logger = logger
	}
}

// WithL2 adds a shared second tier
func WithL2(l2 ProductCostingCache) TieredCacheOption {
	return func(c *TieredProductCostingCache) {
		c.l2 = l2
	}
}

// WithInvalidator broadcasts deletes to other instances
func WithInvalidator(invalidator Invalidator) TieredCacheOption {
	return func(c *TieredProductCostingCache) {
		c.invalidator = invalidator
	}
}

// NewTieredProductCostingCache creates a tiered cache over l1
func NewTieredProductCostingCache(l1 *InMemoryProductCostingCache, opts ...TieredCacheOption) *TieredProductCostingCache {
	c := &TieredProductCostingCache{
		l1:     l1,
		config: DefaultCacheConfig(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// StartInvalidationSubscription blocks applying remote invalidations to L1
func (c *TieredProductCostingCache) StartInvalidationSubscription(ctx context.Context) error {
	if c.invalidator == nil {
		return nil
	}
	return c.invalidator.Subscribe(ctx, c.handleInvalidation)
}

func (c *TieredProductCostingCache) handleInvalidation(msg InvalidationMessage) {
	switch msg.Action {
	case InvalidationActionUpdated:
		_ = c.l1.Delete(context.Background(), msg.TenantID, msg.ProductID)
	case InvalidationActionInvalidateAll:
		c.l1.InvalidateAll()
		c.logger.Info("Invalidated all product costing L1 entries")
	default:
		c.logger.Warn("Unknown invalidation action", zap.String("action", string(msg.Action)))
	}
}

// Get retrieves a configuration from L1, then L2
func (c *TieredProductCostingCache) Get(ctx context.Context, tenantID, productID uuid.UUID) (*inventory.ProductCosting, error) {
	costing, _ := c.l1.Get(ctx, tenantID, productID)
	if costing != nil {
		atomic.AddInt64(&c.l1Hits, 1)
		return costing, nil
	}
	atomic.AddInt64(&c.l1Misses, 1)

	if c.l2 == nil {
		return nil, nil
	}

	costing, err := c.l2.Get(ctx, tenantID, productID)
	if err != nil {
		c.logger.Warn("L2 product costing cache unavailable",
			zap.String("product_id", productID.String()),
			zap.Error(err))
		atomic.AddInt64(&c.l2Misses, 1)
		return nil, nil
	}
	if costing == nil {
		atomic.AddInt64(&c.l2Misses, 1)
		return nil, nil
	}

	atomic.AddInt64(&c.l2Hits, 1)
	_ = c.l1.Set(ctx, costing, c.config.L1TTL)
	return costing, nil
}

// Set writes both tiers; ttl applies to L2, L1 keeps its own shorter TTL
func (c *TieredProductCostingCache) Set(ctx context.Context, costing *inventory.ProductCosting, ttl time.Duration) error {
	_ = c.l1.Set(ctx, costing, c.config.L1TTL)
	if c.l2 == nil {
		return nil
	}
	if err := c.l2.Set(ctx, costing, ttl); err != nil {
		c.logger.Warn("Failed to write product costing to L2 cache", zap.Error(err))
	}
	return nil
}

// Delete drops the entry from both tiers and tells other instances to drop theirs
func (c *TieredProductCostingCache) Delete(ctx context.Context, tenantID, productID uuid.UUID) error {
	_ = c.l1.Delete(ctx, tenantID, productID)

	if c.l2 != nil {
		if err := c.l2.Delete(ctx, tenantID, productID); err != nil {
			c.logger.Warn("Failed to delete product costing from L2 cache", zap.Error(err))
		}
	}

	if c.invalidator != nil {
		if err := c.invalidator.Publish(ctx, InvalidationMessage{
			Action:    InvalidationActionUpdated,
			TenantID:  tenantID,
			ProductID: productID,
		}); err != nil {
			c.logger.Warn("Failed to broadcast product costing invalidation", zap.Error(err))
		}
	}
	return nil
}

// Close stops the invalidator and both tiers
func (c *TieredProductCostingCache) Close() error {
	if c.invalidator != nil {
		_ = c.invalidator.Close()
	}
	if c.l2 != nil {
		_ = c.l2.Close()
	}
	return c.l1.Close()
}

// TieredStats holds per-tier hit counts
type TieredStats struct {
	L1Hits   int64
	L1Misses int64
	L2Hits   int64
	L2Misses int64
}

// GetStats returns per-tier hit counts
func (c *TieredProductCostingCache) GetStats() TieredStats {
	return TieredStats{
		L1Hits:   atomic.LoadInt64(&c.l1Hits),
		L1Misses: atomic.LoadInt64(&c.l1Misses),
		L2Hits:   atomic.LoadInt64(&c.l2Hits),
		L2Misses: atomic.LoadInt64(&c.l2Misses),
	}
}

// Ensure TieredProductCostingCache implements ProductCostingCache
var _ ProductCostingCache = (*TieredProductCostingCache)(nil)
