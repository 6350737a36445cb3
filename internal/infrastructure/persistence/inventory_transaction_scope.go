package persistence

import (
	"context"

	"github.com/erp/costing/internal/application/costing"
	"github.com/erp/costing/internal/domain/inventory"
	"gorm.io/gorm"
)

// GormTransactionScope implements costing.TransactionScope using GORM transactions.
// Batch locks taken inside Execute are released when the transaction commits or rolls back.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction.
// Lock-wait failures surfacing from BEGIN or COMMIT are translated like those from statements.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos costing.TransactionalRepositories) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
	return translateError(err)
}

// gormTransactionalRepositories provides access to all repositories within a transaction
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// BatchRepo returns the stock batch repository scoped to the current transaction
func (r *gormTransactionalRepositories) BatchRepo() inventory.StockBatchRepository {
	return NewGormStockBatchRepository(r.tx)
}

// TransactionRepo returns the movement log scoped to the current transaction
func (r *gormTransactionalRepositories) TransactionRepo() inventory.InventoryTransactionRepository {
	return NewGormInventoryTransactionRepository(r.tx)
}

// SequenceRepo returns the batch number sequence scoped to the current transaction
func (r *gormTransactionalRepositories) SequenceRepo() inventory.BatchNumberSequence {
	return NewGormBatchNumberSequence(r.tx)
}

// CommitLedger returns the consumption reference ledger scoped to the current transaction
func (r *gormTransactionalRepositories) CommitLedger() inventory.CommitLedger {
	return NewGormCommitLedger(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ costing.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ costing.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
