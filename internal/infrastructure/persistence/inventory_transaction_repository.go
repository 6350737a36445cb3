package persistence

import (
	"context"

	"github.com/erp/costing/internal/domain/inventory"
	"github.com/erp/costing/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormInventoryTransactionRepository implements the append-only movement log using GORM
type GormInventoryTransactionRepository struct {
	db *gorm.DB
}

// NewGormInventoryTransactionRepository creates a new GormInventoryTransactionRepository
func NewGormInventoryTransactionRepository(db *gorm.DB) *GormInventoryTransactionRepository {
	return &GormInventoryTransactionRepository{db: db}
}

// Create appends a movement
func (r *GormInventoryTransactionRepository) Create(ctx context.Context, tx *inventory.InventoryTransaction) error {
	if err := r.db.WithContext(ctx).Create(models.InventoryTransactionModelFromDomain(tx)).Error; err != nil {
		return translateError(err)
	}
	return nil
}

// FindByBatch lists the movements of a batch in the order they were written
func (r *GormInventoryTransactionRepository) FindByBatch(ctx context.Context, tenantID, batchID uuid.UUID) ([]inventory.InventoryTransaction, error) {
	var rows []models.InventoryTransactionModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND batch_id = ?", tenantID, batchID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	txs := make([]inventory.InventoryTransaction, len(rows))
	for i := range rows {
		txs[i] = *rows[i].ToDomain()
	}
	return txs, nil
}

// Ensure GormInventoryTransactionRepository implements InventoryTransactionRepository
var _ inventory.InventoryTransactionRepository = (*GormInventoryTransactionRepository)(nil)
