package persistence

import (
	"context"
	"errors"

	"github.com/erp/costing/internal/domain/inventory"
	"github.com/erp/costing/internal/domain/shared"
	"github.com/erp/costing/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProductCostingRepository implements the product costing catalog using GORM
type GormProductCostingRepository struct {
	db *gorm.DB
}

// NewGormProductCostingRepository creates a new GormProductCostingRepository
func NewGormProductCostingRepository(db *gorm.DB) *GormProductCostingRepository {
	return &GormProductCostingRepository{db: db}
}

// FindByProduct returns the costing configuration of a product
func (r *GormProductCostingRepository) FindByProduct(ctx context.Context, tenantID, productID uuid.UUID) (*inventory.ProductCosting, error) {
	var model models.ProductCostingModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_id = ?", tenantID, productID).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Save creates or replaces the configuration of a product
func (r *GormProductCostingRepository) Save(ctx context.Context, costing *inventory.ProductCosting) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"cost_method", "standard_cost", "updated_at"}),
		}).
		Create(models.ProductCostingModelFromDomain(costing)).Error
}

// Ensure GormProductCostingRepository implements ProductCostingRepository
var _ inventory.ProductCostingRepository = (*GormProductCostingRepository)(nil)
