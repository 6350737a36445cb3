package models

import (
	"time"

	"github.com/erp/costing/internal/domain/inventory"
	"github.com/erp/costing/internal/domain/shared/strategy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StockBatchModel is the persistence model for the StockBatch entity.
// The composite unique index makes concurrent receipts of the same lot merge instead of duplicating.
type StockBatchModel struct {
	BaseModel
	TenantID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_stock_batches_identity,priority:1;index:idx_stock_batches_active,priority:1"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_stock_batches_identity,priority:2;index:idx_stock_batches_active,priority:2"`
	WarehouseID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_stock_batches_identity,priority:3;index:idx_stock_batches_active,priority:3"`
	BatchNumber string          `gorm:"type:varchar(50);not null;uniqueIndex:uq_stock_batches_identity,priority:4"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitCost    decimal.Decimal `gorm:"type:decimal(18,6);not null"`
	Status      string          `gorm:"type:varchar(20);not null;index:idx_stock_batches_active,priority:4"`
	ReceivedAt  time.Time       `gorm:"not null;index:idx_stock_batches_active,priority:5"`
	Branch      string          `gorm:"type:varchar(100)"`
	ExpiryDate  *time.Time      `gorm:"type:date"`
}

// TableName returns the table name for GORM
func (StockBatchModel) TableName() string {
	return "stock_batches"
}

// ToDomain converts the persistence model to a domain StockBatch entity
func (m *StockBatchModel) ToDomain() *inventory.StockBatch {
	return &inventory.StockBatch{
		BaseEntity:  m.BaseModel.ToDomain(),
		TenantID:    m.TenantID,
		ProductID:   m.ProductID,
		WarehouseID: m.WarehouseID,
		BatchNumber: m.BatchNumber,
		Quantity:    m.Quantity,
		UnitCost:    m.UnitCost,
		Status:      inventory.BatchStatus(m.Status),
		ReceivedAt:  m.ReceivedAt,
		Branch:      m.Branch,
		ExpiryDate:  m.ExpiryDate,
	}
}

// FromDomain populates the persistence model from a domain StockBatch entity
func (m *StockBatchModel) FromDomain(b *inventory.StockBatch) {
	m.FromDomainBaseEntity(b.BaseEntity)
	m.TenantID = b.TenantID
	m.ProductID = b.ProductID
	m.WarehouseID = b.WarehouseID
	m.BatchNumber = b.BatchNumber
	m.Quantity = b.Quantity
	m.UnitCost = b.UnitCost
	m.Status = string(b.Status)
	m.ReceivedAt = b.ReceivedAt
	m.Branch = b.Branch
	m.ExpiryDate = b.ExpiryDate
}

// StockBatchModelFromDomain creates a new persistence model from a domain StockBatch entity
func StockBatchModelFromDomain(b *inventory.StockBatch) *StockBatchModel {
	m := &StockBatchModel{}
	m.FromDomain(b)
	return m
}

// InventoryTransactionModel is the persistence model for one batch movement
type InventoryTransactionModel struct {
	TenantModel
	BatchID         uuid.UUID                 `gorm:"type:uuid;not null;index:idx_inv_mv_batch"`
	ProductID       uuid.UUID                 `gorm:"type:uuid;not null;index:idx_inv_mv_product"`
	WarehouseID     uuid.UUID                 `gorm:"type:uuid;not null"`
	BatchNumber     string                    `gorm:"type:varchar(50);not null"`
	TransactionType inventory.TransactionType `gorm:"type:varchar(30);not null"`
	Quantity        decimal.Decimal           `gorm:"type:decimal(18,4);not null"`
	UnitCost        decimal.Decimal           `gorm:"type:decimal(18,6);not null"`
	TotalCost       decimal.Decimal           `gorm:"type:decimal(18,6);not null"`
	BalanceBefore   decimal.Decimal           `gorm:"type:decimal(18,4);not null"`
	BalanceAfter    decimal.Decimal           `gorm:"type:decimal(18,4);not null"`
	SourceType      inventory.SourceType      `gorm:"type:varchar(30);not null;index:idx_inv_mv_source"`
	SourceID        string                    `gorm:"type:varchar(100);index:idx_inv_mv_source"`
	Reason          string                    `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (InventoryTransactionModel) TableName() string {
	return "inventory_movements"
}

// ToDomain converts the persistence model to a domain InventoryTransaction entity
func (m *InventoryTransactionModel) ToDomain() *inventory.InventoryTransaction {
	return &inventory.InventoryTransaction{
		BaseEntity:      m.BaseModel.ToDomain(),
		TenantID:        m.TenantID,
		BatchID:         m.BatchID,
		ProductID:       m.ProductID,
		WarehouseID:     m.WarehouseID,
		BatchNumber:     m.BatchNumber,
		TransactionType: m.TransactionType,
		Quantity:        m.Quantity,
		UnitCost:        m.UnitCost,
		TotalCost:       m.TotalCost,
		BalanceBefore:   m.BalanceBefore,
		BalanceAfter:    m.BalanceAfter,
		SourceType:      m.SourceType,
		SourceID:        m.SourceID,
		Reason:          m.Reason,
	}
}

// InventoryTransactionModelFromDomain creates a new persistence model from a domain movement
func InventoryTransactionModelFromDomain(t *inventory.InventoryTransaction) *InventoryTransactionModel {
	m := &InventoryTransactionModel{
		BatchID:         t.BatchID,
		ProductID:       t.ProductID,
		WarehouseID:     t.WarehouseID,
		BatchNumber:     t.BatchNumber,
		TransactionType: t.TransactionType,
		Quantity:        t.Quantity,
		UnitCost:        t.UnitCost,
		TotalCost:       t.TotalCost,
		BalanceBefore:   t.BalanceBefore,
		BalanceAfter:    t.BalanceAfter,
		SourceType:      t.SourceType,
		SourceID:        t.SourceID,
		Reason:          t.Reason,
	}
	m.FromDomainBaseEntity(t.BaseEntity)
	m.TenantID = t.TenantID
	return m
}

// ProductCostingModel stores the costing configuration of one product
type ProductCostingModel struct {
	TenantID     uuid.UUID       `gorm:"type:uuid;primaryKey"`
	ProductID    uuid.UUID       `gorm:"type:uuid;primaryKey"`
	CostMethod   string          `gorm:"type:varchar(30);not null"`
	StandardCost decimal.Decimal `gorm:"type:decimal(18,6);not null"`
	UpdatedAt    time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductCostingModel) TableName() string {
	return "product_costings"
}

// ToDomain converts the persistence model to a domain ProductCosting.
// The stored method is kept verbatim; resolution to the fallback happens on use.
func (m *ProductCostingModel) ToDomain() *inventory.ProductCosting {
	return &inventory.ProductCosting{
		TenantID:     m.TenantID,
		ProductID:    m.ProductID,
		CostMethod:   strategy.CostMethod(m.CostMethod),
		StandardCost: m.StandardCost,
		UpdatedAt:    m.UpdatedAt,
	}
}

// ProductCostingModelFromDomain creates a new persistence model from a domain ProductCosting
func ProductCostingModelFromDomain(p *inventory.ProductCosting) *ProductCostingModel {
	return &ProductCostingModel{
		TenantID:     p.TenantID,
		ProductID:    p.ProductID,
		CostMethod:   string(p.CostMethod),
		StandardCost: p.StandardCost,
		UpdatedAt:    p.UpdatedAt,
	}
}

// BatchNumberSequenceModel is the per-tenant, per-day counter behind synthesized batch numbers
type BatchNumberSequenceModel struct {
	TenantID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	Day       string    `gorm:"type:varchar(8);primaryKey"`
	LastValue int64     `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (BatchNumberSequenceModel) TableName() string {
	return "batch_number_sequences"
}

// CostingCommitModel marks a consumption reference as applied
type CostingCommitModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	TenantID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:uq_costing_commits_ref,priority:1"`
	SourceType  string          `gorm:"type:varchar(30);not null;uniqueIndex:uq_costing_commits_ref,priority:2"`
	SourceID    string          `gorm:"type:varchar(100);not null;uniqueIndex:uq_costing_commits_ref,priority:3"`
	LineRef     string          `gorm:"type:varchar(100);not null;uniqueIndex:uq_costing_commits_ref,priority:4"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null"`
	WarehouseID uuid.UUID       `gorm:"type:uuid;not null"`
	CostMethod  string          `gorm:"type:varchar(30);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TotalCost   decimal.Decimal `gorm:"type:decimal(18,6);not null"`
	CommittedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CostingCommitModel) TableName() string {
	return "costing_commits"
}

// CostingCommitModelFromDomain creates a new persistence model from a commit record
func CostingCommitModelFromDomain(r *inventory.CommitRecord) *CostingCommitModel {
	return &CostingCommitModel{
		ID:          r.ID,
		TenantID:    r.TenantID,
		SourceType:  string(r.Ref.SourceType),
		SourceID:    r.Ref.SourceID,
		LineRef:     r.Ref.LineRef,
		ProductID:   r.ProductID,
		WarehouseID: r.WarehouseID,
		CostMethod:  string(r.Method),
		Quantity:    r.Quantity,
		TotalCost:   r.TotalCost,
		CommittedAt: r.CommittedAt,
	}
}
