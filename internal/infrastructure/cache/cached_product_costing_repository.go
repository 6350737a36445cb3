package cache

import (
	"context"

	"github.com/erp/costing/internal/domain/inventory"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CachedProductCostingRepository is a read-through decorator over the product costing table.
// Misses are not cached, so a product configured later is picked up on the next read.
type CachedProductCostingRepository struct {
	next   inventory.ProductCostingRepository
	cache  ProductCostingCache
	logger *zap.Logger
}

// NewCachedProductCostingRepository wraps next with cache
func NewCachedProductCostingRepository(next inventory.ProductCostingRepository, cache ProductCostingCache, logger *zap.Logger) *CachedProductCostingRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachedProductCostingRepository{next: next, cache: cache, logger: logger}
}

// FindByProduct serves from cache and falls back to the repository
func (r *CachedProductCostingRepository) FindByProduct(ctx context.Context, tenantID, productID uuid.UUID) (*inventory.ProductCosting, error) {
	if cached, err := r.cache.Get(ctx, tenantID, productID); err == nil && cached != nil {
		return cached, nil
	}

	costing, err := r.next.FindByProduct(ctx, tenantID, productID)
	if err != nil {
		return nil, err
	}
	if err := r.cache.Set(ctx, costing, 0); err != nil {
		r.logger.Warn("Failed to cache product costing",
			zap.String("product_id", productID.String()),
			zap.Error(err))
	}
	return costing, nil
}

// Save writes through and invalidates, so the next read on any instance reloads
func (r *CachedProductCostingRepository) Save(ctx context.Context, costing *inventory.ProductCosting) error {
	if err := r.next.Save(ctx, costing); err != nil {
		return err
	}
	if err := r.cache.Delete(ctx, costing.TenantID, costing.ProductID); err != nil {
		r.logger.Warn("Failed to invalidate product costing",
			zap.String("product_id", costing.ProductID.String()),
			zap.Error(err))
	}
	return nil
}

// Ensure CachedProductCostingRepository implements ProductCostingRepository
var _ inventory.ProductCostingRepository = (*CachedProductCostingRepository)(nil)
