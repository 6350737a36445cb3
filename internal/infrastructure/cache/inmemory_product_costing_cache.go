package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/erp/costing/internal/domain/inventory"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultCleanupInterval = 30 * time.Second

// InMemoryProductCostingCache is the per-instance L1 product costing cache
type InMemoryProductCostingCache struct {
	entries sync.Map // map[string]*cacheEntry[inventory.ProductCosting]
	config  CacheConfig
	logger  *zap.Logger
	stopCh  chan struct{}
	stopped int32

	hits   int64
	misses int64
}

type cacheEntry[T any] struct {
	value     *T
	expiresAt time.Time
}

func (e *cacheEntry[T]) isExpired() bool {
	return time.Now().After(e.expiresAt)
}

// InMemoryCacheOption is a functional option for configuring the cache
type InMemoryCacheOption func(*InMemoryProductCostingCache)

// WithInMemoryConfig sets the cache configuration
func WithInMemoryConfig(config CacheConfig) InMemoryCacheOption {
	return func(c *InMemoryProductCostingCache) {
		c.config = config
	}
}

// WithInMemoryLogger sets the logger for the cache
func WithInMemoryLogger(logger *zap.Logger) InMemoryCacheOption {
	return func(c *InMemoryProductCostingCache) {
		c.logger = logger
	}
}

// NewInMemoryProductCostingCache creates the cache and starts its expiry sweeper
func NewInMemoryProductCostingCache(opts ...InMemoryCacheOption) *InMemoryProductCostingCache {
	c := &InMemoryProductCostingCache{
		config: DefaultCacheConfig(),
		logger: zap.NewNop(),
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	go c.cleanupExpired()
	return c
}

// Get returns a cached configuration, or nil when absent or expired
func (c *InMemoryProductCostingCache) Get(_ context.Context, tenantID, productID uuid.UUID) (*inventory.ProductCosting, error) {
	key := productKey(tenantID, productID)
	if value, ok := c.entries.Load(key); ok {
		entry := value.(*cacheEntry[inventory.ProductCosting])
		if !entry.isExpired() {
			atomic.AddInt64(&c.hits, 1)
			return entry.value, nil
		}
		c.entries.Delete(key)
	}
	atomic.AddInt64(&c.misses, 1)
	return nil, nil
}

// Set caches a configuration; a zero ttl uses the configured L1 TTL
func (c *InMemoryProductCostingCache) Set(_ context.Context, costing *inventory.ProductCosting, ttl time.Duration) error {
	if costing == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = c.config.L1TTL
	}

	copied := *costing
	c.entries.Store(productKey(costing.TenantID, costing.ProductID), &cacheEntry[inventory.ProductCosting]{
		value:     &copied,
		expiresAt: time.Now().Add(ttl),
	})
	return nil
}

// Delete drops a cached configuration
func (c *InMemoryProductCostingCache) Delete(_ context.Context, tenantID, productID uuid.UUID) error {
	c.entries.Delete(productKey(tenantID, productID))
	c.logger.Debug("Invalidated product costing in L1 cache",
		zap.String("tenant_id", tenantID.String()),
		zap.String("product_id", productID.String()))
	return nil
}

// InvalidateAll drops every cached configuration
func (c *InMemoryProductCostingCache) InvalidateAll() {
	c.entries.Range(func(key, _ any) bool {
		c.entries.Delete(key)
		return true
	})
}

// Close stops the sweeper
func (c *InMemoryProductCostingCache) Close() error {
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
	return nil
}

// GetStats returns hit and miss counts
func (c *InMemoryProductCostingCache) GetStats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

// Count returns the number of stored entries, expired ones included until swept
func (c *InMemoryProductCostingCache) Count() int {
	n := 0
	c.entries.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func (c *InMemoryProductCostingCache) cleanupExpired() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *InMemoryProductCostingCache) sweep() {
	c.entries.Range(func(key, value any) bool {
		if value.(*cacheEntry[inventory.ProductCosting]).isExpired() {
			c.entries.Delete(key)
		}
		return true
	})
}

// Ensure InMemoryProductCostingCache implements ProductCostingCache
var _ ProductCostingCache = (*InMemoryProductCostingCache)(nil)
