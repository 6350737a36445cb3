package costing

import (
	"context"

	"github.com/erp/costing/internal/domain/inventory"
)

// TransactionScope provides transactional access to the ledger repositories.
// Every repository handed to fn shares one database transaction, so row locks taken
// through BatchRepo are held until fn returns.
type TransactionScope interface {
	// Execute runs fn within a database transaction.
	// If fn returns an error, the transaction is rolled back; otherwise it is committed.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the ledger repositories within a transaction
type TransactionalRepositories interface {
	// BatchRepo returns the stock batch repository scoped to the current transaction
	BatchRepo() inventory.StockBatchRepository
	// TransactionRepo returns the movement log scoped to the current transaction
	TransactionRepo() inventory.InventoryTransactionRepository
	// SequenceRepo returns the batch number sequence scoped to the current transaction
	SequenceRepo() inventory.BatchNumberSequence
	// CommitLedger returns the consumption reference ledger scoped to the current transaction
	CommitLedger() inventory.CommitLedger
}

// NoOpTransactionScope runs fn directly against the given repositories without a transaction.
// Useful for tests with in-memory fakes.
type NoOpTransactionScope struct {
	batchRepo       inventory.StockBatchRepository
	transactionRepo inventory.InventoryTransactionRepository
	sequenceRepo    inventory.BatchNumberSequence
	commitLedger    inventory.CommitLedger
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories
func NewNoOpTransactionScope(
	batchRepo inventory.StockBatchRepository,
	transactionRepo inventory.InventoryTransactionRepository,
	sequenceRepo inventory.BatchNumberSequence,
	commitLedger inventory.CommitLedger,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		batchRepo:       batchRepo,
		transactionRepo: transactionRepo,
		sequenceRepo:    sequenceRepo,
		commitLedger:    commitLedger,
	}
}

// Execute runs the function without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// BatchRepo returns the stock batch repository
func (s *NoOpTransactionScope) BatchRepo() inventory.StockBatchRepository {
	return s.batchRepo
}

// TransactionRepo returns the movement log
func (s *NoOpTransactionScope) TransactionRepo() inventory.InventoryTransactionRepository {
	return s.transactionRepo
}

// SequenceRepo returns the batch number sequence
func (s *NoOpTransactionScope) SequenceRepo() inventory.BatchNumberSequence {
	return s.sequenceRepo
}

// CommitLedger returns the consumption reference ledger
func (s *NoOpTransactionScope) CommitLedger() inventory.CommitLedger {
	return s.commitLedger
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
