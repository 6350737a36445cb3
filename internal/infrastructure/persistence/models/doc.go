// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer free
// from ORM concerns; repositories convert between the two with ToDomain/FromDomain.
//
// Tables:
//   - stock_batches: the batch ledger, unique on (tenant_id, product_id, warehouse_id, batch_number)
//   - inventory_movements: append-only movement log
//   - product_costings: cost method and standard cost per product
//   - batch_number_sequences: per-tenant daily counters for synthesized batch numbers
//   - costing_commits: applied consumption references, unique per source line
package models

// All returns the ledger models in dependency order, for AutoMigrate in tests
func All() []any {
	return []any{
		&StockBatchModel{},
		&InventoryTransactionModel{},
		&ProductCostingModel{},
		&BatchNumberSequenceModel{},
		&CostingCommitModel{},
	}
}
