package costing

import (
	"time"

	"github.com/erp/costing/internal/domain/inventory"
	"github.com/erp/costing/internal/domain/shared/strategy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceiveRequest describes stock arriving at a warehouse
type ReceiveRequest struct {
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
	Quantity    decimal.Decimal
	UnitCost    decimal.Decimal
	// BatchNumber is optional; an empty value synthesizes one
	BatchNumber string
	Metadata    inventory.BatchMetadata
	// SourceType defaults to PURCHASE_ORDER
	SourceType inventory.SourceType
	SourceID   string
}

// CommittedLine is one applied batch decrement
type CommittedLine struct {
	BatchID       uuid.UUID             `json:"batch_id"`
	BatchNumber   string                `json:"batch_number"`
	QuantityTaken decimal.Decimal       `json:"quantity_taken"`
	Remaining     decimal.Decimal       `json:"remaining"`
	Status        inventory.BatchStatus `json:"status"`
}

// CommitResult reports what a commit applied
type CommitResult struct {
	Method    strategy.CostMethod `json:"method"`
	Reference string              `json:"reference,omitempty"`
	// Skipped is true for pooled methods, whose commits never touch batches
	Skipped   bool                `json:"skipped"`
	Committed decimal.Decimal     `json:"committed_quantity"`
	Lines     []CommittedLine     `json:"lines"`
}

// BatchResponse is the list view of a batch
type BatchResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   uuid.UUID       `json:"product_id"`
	WarehouseID uuid.UUID       `json:"warehouse_id"`
	BatchNumber string          `json:"batch_number"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	Status      string          `json:"status"`
	ReceivedAt  time.Time       `json:"received_at"`
	Branch      string          `json:"branch,omitempty"`
	ExpiryDate  *time.Time      `json:"expiry_date,omitempty"`
}

// ToBatchResponse converts a domain batch to its response view
func ToBatchResponse(b *inventory.StockBatch) BatchResponse {
	return BatchResponse{
		ID:          b.ID,
		ProductID:   b.ProductID,
		WarehouseID: b.WarehouseID,
		BatchNumber: b.BatchNumber,
		Quantity:    b.Quantity,
		UnitCost:    b.UnitCost,
		Status:      b.Status.String(),
		ReceivedAt:  b.ReceivedAt,
		Branch:      b.Branch,
		ExpiryDate:  b.ExpiryDate,
	}
}

// ToBatchResponses converts a slice of domain batches
func ToBatchResponses(batches []inventory.StockBatch) []BatchResponse {
	out := make([]BatchResponse, len(batches))
	for i := range batches {
		out[i] = ToBatchResponse(&batches[i])
	}
	return out
}

// MovementResponse is the view of one movement
type MovementResponse struct {
	ID              uuid.UUID       `json:"id"`
	TransactionType string          `json:"transaction_type"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitCost        decimal.Decimal `json:"unit_cost"`
	TotalCost       decimal.Decimal `json:"total_cost"`
	BalanceBefore   decimal.Decimal `json:"balance_before"`
	BalanceAfter    decimal.Decimal `json:"balance_after"`
	SourceType      string          `json:"source_type"`
	SourceID        string          `json:"source_id,omitempty"`
	Reason          string          `json:"reason,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// ToMovementResponses converts movements to their response views
func ToMovementResponses(txs []inventory.InventoryTransaction) []MovementResponse {
	out := make([]MovementResponse, len(txs))
	for i, t := range txs {
		out[i] = MovementResponse{
			ID:              t.ID,
			TransactionType: t.TransactionType.String(),
			Quantity:        t.Quantity,
			UnitCost:        t.UnitCost,
			TotalCost:       t.TotalCost,
			BalanceBefore:   t.BalanceBefore,
			BalanceAfter:    t.BalanceAfter,
			SourceType:      t.SourceType.String(),
			SourceID:        t.SourceID,
			Reason:          t.Reason,
			CreatedAt:       t.CreatedAt,
		}
	}
	return out
}
