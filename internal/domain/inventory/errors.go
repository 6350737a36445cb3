package inventory

import (
	"errors"
	"fmt"

	"github.com/erp/costing/internal/domain/shared"
	"github.com/erp/costing/internal/domain/shared/strategy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Error codes raised by the batch ledger and costing engine
const (
	CodeBatchNotFound      = "BATCH_NOT_FOUND"
	CodeInvariantViolation = "INVARIANT_VIOLATION"
	CodeContention         = "CONTENTION"
	CodeInsufficientStock  = "INSUFFICIENT_STOCK"
	CodeDuplicateCommit    = "DUPLICATE_COMMIT"
	CodeInvalidQuantity    = "INVALID_QUANTITY"
	CodeInvalidCost        = "INVALID_COST"

	// CodeBatchNumberExhausted is raised when synthesis keeps colliding with existing batch numbers
	CodeBatchNumberExhausted = "BATCH_NUMBER_EXHAUSTED"
)

var (
	// ErrInvalidMethod is raised only by strict parsing of a product's cost method
	ErrInvalidMethod = strategy.ErrInvalidCostMethod
	// ErrBatchNotFound means a batch targeted by a mutation no longer exists
	ErrBatchNotFound = shared.NewDomainError(CodeBatchNotFound, "Batch not found")
	// ErrInvariantViolation means a decrement would drive a batch below zero
	ErrInvariantViolation = shared.NewDomainError(CodeInvariantViolation, "Batch quantity invariant violated")
	// ErrContention means a lock could not be acquired in time; the caller may retry
	ErrContention = shared.NewDomainError(CodeContention, "Batch is locked by a concurrent transaction")
	// ErrInsufficientAllocation is surfaced by callers that refuse to post a partial cost
	ErrInsufficientAllocation = shared.NewDomainError(CodeInsufficientStock, "Active batches do not cover the requested quantity")
	// ErrDuplicateCommit means a consumption reference was already committed
	ErrDuplicateCommit = shared.NewDomainError(CodeDuplicateCommit, "Consumption has already been committed")
	// ErrInvalidQuantity is returned for non-positive quantities
	ErrInvalidQuantity = shared.NewDomainError(CodeInvalidQuantity, "Quantity must be positive")
	// ErrInvalidCost is returned for negative costs
	ErrInvalidCost = shared.NewDomainError(CodeInvalidCost, "Cost cannot be negative")
	// ErrBatchNumberExhausted means no free synthesized batch number was found for the day
	ErrBatchNumberExhausted = shared.NewDomainError(CodeBatchNumberExhausted, "No free batch number left to synthesize")
)

// NewBatchNotFoundError reports a missing batch id. It also matches shared.ErrNotFound.
func NewBatchNotFoundError(batchID uuid.UUID) error {
	return shared.WrapDomainError(CodeBatchNotFound, fmt.Sprintf("Batch %s", batchID), shared.ErrNotFound)
}

// NewInvariantViolation reports a decrement larger than the locked quantity
func NewInvariantViolation(batchNumber string, requested, available decimal.Decimal) error {
	return shared.NewDomainError(CodeInvariantViolation, fmt.Sprintf(
		"Batch %s: decrement of %s exceeds remaining quantity %s",
		batchNumber, requested.String(), available.String(),
	))
}

// NewBatchMismatchError reports an allocation line pointing at a batch of another product or warehouse
func NewBatchMismatchError(batchNumber string, productID, warehouseID uuid.UUID) error {
	return shared.NewDomainError(CodeInvariantViolation, fmt.Sprintf(
		"Batch %s does not belong to product %s in warehouse %s",
		batchNumber, productID, warehouseID,
	))
}

// NewContentionError wraps a lock-wait failure reported by the store
func NewContentionError(cause error) error {
	return shared.WrapDomainError(CodeContention, ErrContention.Message, cause)
}

// NewInsufficientAllocationError reports a shortfall the caller decided to block on
func NewInsufficientAllocationError(requested, allocated decimal.Decimal) error {
	return shared.NewDomainError(CodeInsufficientStock, fmt.Sprintf(
		"Active batches cover %s of the requested %s",
		allocated.String(), requested.String(),
	))
}

// NewDuplicateCommitError reports a replayed consumption reference
func NewDuplicateCommitError(ref ConsumptionRef, cause error) error {
	return shared.WrapDomainError(CodeDuplicateCommit, fmt.Sprintf(
		"Consumption %s has already been committed", ref.String(),
	), cause)
}

// IsRetryable reports whether the whole valuate and commit cycle may be re-attempted
func IsRetryable(err error) bool {
	return errors.Is(err, ErrContention)
}
