package persistence

import (
	"context"

	"github.com/erp/costing/internal/domain/inventory"
	"github.com/erp/costing/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCommitLedger records applied consumption references in costing_commits.
// The unique index on (tenant, source type, source id, line) rejects replays.
type GormCommitLedger struct {
	db *gorm.DB
}

// NewGormCommitLedger creates a new GormCommitLedger
func NewGormCommitLedger(db *gorm.DB) *GormCommitLedger {
	return &GormCommitLedger{db: db}
}

// Record inserts the marker, returning ErrDuplicateCommit if it already exists
func (l *GormCommitLedger) Record(ctx context.Context, record *inventory.CommitRecord) error {
	err := l.db.WithContext(ctx).Create(models.CostingCommitModelFromDomain(record)).Error
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return inventory.NewDuplicateCommitError(record.Ref, err)
	}
	return translateError(err)
}

// Ensure GormCommitLedger implements CommitLedger
var _ inventory.CommitLedger = (*GormCommitLedger)(nil)
