package cache

import (
	"context"
	"time"

	"github.com/erp/costing/internal/domain/inventory"
	"github.com/google/uuid"
)

// ProductCostingCache stores product costing configuration by (tenant, product).
// Get returns nil, nil on a miss.
type ProductCostingCache interface {
	Get(ctx context.Context, tenantID, productID uuid.UUID) (*inventory.ProductCosting, error)
	Set(ctx context.Context, costing *inventory.ProductCosting, ttl time.Duration) error
	Delete(ctx context.Context, tenantID, productID uuid.UUID) error
	Close() error
}

// CacheConfig holds product costing cache settings
type CacheConfig struct {
	// L1TTL bounds how long an instance may serve a configuration after another instance changed it
	L1TTL time.Duration
	// L2TTL is the shared Redis entry lifetime
	L2TTL time.Duration
	// KeyPrefix namespaces Redis keys
	KeyPrefix string
	// PubSubChannel carries invalidations between instances
	PubSubChannel string
}

// DefaultCacheConfig returns the default product costing cache configuration
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		L1TTL:         5 * time.Minute,
		L2TTL:         30 * time.Minute,
		KeyPrefix:     "costing:product:",
		PubSubChannel: "costing:product:invalidate",
	}
}

func productKey(tenantID, productID uuid.UUID) string {
	return tenantID.String() + ":" + productID.String()
}
