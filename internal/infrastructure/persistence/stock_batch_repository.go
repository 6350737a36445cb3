package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/costing/internal/domain/inventory"
	"github.com/erp/costing/internal/domain/shared/strategy"
	"github.com/erp/costing/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockBatchRepository implements the batch ledger store using GORM.
// Row locks use SELECT ... FOR UPDATE and only hold inside a transaction.
type GormStockBatchRepository struct {
	db *gorm.DB
}

// NewGormStockBatchRepository creates a new GormStockBatchRepository
func NewGormStockBatchRepository(db *gorm.DB) *GormStockBatchRepository {
	return &GormStockBatchRepository{db: db}
}

// FindByID finds a batch by id without locking
func (r *GormStockBatchRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*inventory.StockBatch, error) {
	var model models.StockBatchModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, inventory.NewBatchNotFoundError(id)
		}
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindByIdentity finds a batch by (tenant, product, warehouse, batch number)
func (r *GormStockBatchRepository) FindByIdentity(ctx context.Context, tenantID, productID, warehouseID uuid.UUID, batchNumber string) (*inventory.StockBatch, error) {
	var model models.StockBatchModel
	err := r.identity(r.db.WithContext(ctx), tenantID, productID, warehouseID, batchNumber).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, inventory.ErrBatchNotFound
		}
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// FindActive returns active batches with positive quantity, oldest first or newest first.
// Ties on received_at are broken by creation time and id so the order is stable.
func (r *GormStockBatchRepository) FindActive(ctx context.Context, tenantID, productID, warehouseID uuid.UUID, order strategy.BatchOrder) ([]inventory.StockBatch, error) {
	direction := "ASC"
	if order == strategy.BatchOrderNewestFirst {
		direction = "DESC"
	}

	var rows []models.StockBatchModel
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND product_id = ? AND warehouse_id = ?", tenantID, productID, warehouseID).
		Where("status = ? AND quantity > 0", string(inventory.BatchStatusActive)).
		Order("received_at " + direction).
		Order("created_at " + direction).
		Order("id " + direction).
		Find(&rows).Error
	if err != nil {
		return nil, translateError(err)
	}

	batches := make([]inventory.StockBatch, len(rows))
	for i := range rows {
		batches[i] = *rows[i].ToDomain()
	}
	return batches, nil
}

// LockByID loads a batch and holds an exclusive row lock on it until the transaction ends
func (r *GormStockBatchRepository) LockByID(ctx context.Context, tenantID, id uuid.UUID) (*inventory.StockBatch, error) {
	var model models.StockBatchModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, inventory.NewBatchNotFoundError(id)
		}
		return nil, translateError(err)
	}
	return model.ToDomain(), nil
}

// Upsert inserts a new batch or merges the receipt into the batch with the same identity.
// The merge adds quantity, reactivates a depleted batch and keeps the stored unit cost.
// The unique index on the identity columns arbitrates concurrent receipts.
func (r *GormStockBatchRepository) Upsert(ctx context.Context, receipt inventory.BatchReceipt) (*inventory.StockBatch, error) {
	now := time.Now().UTC()
	model := newStockBatchModel(receipt, now)

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "tenant_id"},
				{Name: "product_id"},
				{Name: "warehouse_id"},
				{Name: "batch_number"},
			},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   gorm.Expr("stock_batches.quantity + excluded.quantity"),
				"status":     string(inventory.BatchStatusActive),
				"updated_at": now,
			}),
		}).
		Create(model).Error
	if err != nil {
		return nil, translateError(err)
	}

	var stored models.StockBatchModel
	err = r.identity(r.db.WithContext(ctx), receipt.TenantID, receipt.ProductID, receipt.WarehouseID, receipt.BatchNumber).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&stored).Error
	if err != nil {
		return nil, translateError(err)
	}
	return stored.ToDomain(), nil
}

// Insert creates a new batch and reports created=false, without touching the stored
// batch, when the identity is already taken
func (r *GormStockBatchRepository) Insert(ctx context.Context, receipt inventory.BatchReceipt) (*inventory.StockBatch, bool, error) {
	model := newStockBatchModel(receipt, time.Now().UTC())

	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "tenant_id"},
				{Name: "product_id"},
				{Name: "warehouse_id"},
				{Name: "batch_number"},
			},
			DoNothing: true,
		}).
		Create(model)
	if result.Error != nil {
		return nil, false, translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, false, nil
	}
	return model.ToDomain(), true, nil
}

func newStockBatchModel(receipt inventory.BatchReceipt, now time.Time) *models.StockBatchModel {
	receivedAt := receipt.Metadata.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = now
	}
	return &models.StockBatchModel{
		BaseModel: models.BaseModel{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		TenantID:    receipt.TenantID,
		ProductID:   receipt.ProductID,
		WarehouseID: receipt.WarehouseID,
		BatchNumber: receipt.BatchNumber,
		Quantity:    receipt.Quantity,
		UnitCost:    receipt.UnitCost,
		Status:      string(inventory.BatchStatusActive),
		ReceivedAt:  receivedAt.UTC(),
		Branch:      receipt.Metadata.Branch,
		ExpiryDate:  receipt.Metadata.ExpiryDate,
	}
}

// Save persists quantity and status of a batch loaded with LockByID
func (r *GormStockBatchRepository) Save(ctx context.Context, batch *inventory.StockBatch) error {
	result := r.db.WithContext(ctx).
		Model(&models.StockBatchModel{}).
		Where("tenant_id = ? AND id = ?", batch.TenantID, batch.ID).
		Updates(map[string]any{
			"quantity":   batch.Quantity,
			"status":     string(batch.Status),
			"updated_at": batch.UpdatedAt,
		})
	if result.Error != nil {
		return translateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return inventory.NewBatchNotFoundError(batch.ID)
	}
	return nil
}

func (r *GormStockBatchRepository) identity(db *gorm.DB, tenantID, productID, warehouseID uuid.UUID, batchNumber string) *gorm.DB {
	return db.Where(
		"tenant_id = ? AND product_id = ? AND warehouse_id = ? AND batch_number = ?",
		tenantID, productID, warehouseID, batchNumber,
	)
}

// Ensure GormStockBatchRepository implements StockBatchRepository
var _ inventory.StockBatchRepository = (*GormStockBatchRepository)(nil)
