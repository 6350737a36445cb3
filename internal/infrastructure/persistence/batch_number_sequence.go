package persistence

import (
	"context"
	"time"

	"github.com/erp/costing/internal/domain/inventory"
	"github.com/erp/costing/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBatchNumberSequence hands out per-tenant daily counters.
// The increment is an upsert on the counter row, so concurrent receipts serialize on
// that row and never observe the same value.
type GormBatchNumberSequence struct {
	db *gorm.DB
}

// NewGormBatchNumberSequence creates a new GormBatchNumberSequence
func NewGormBatchNumberSequence(db *gorm.DB) *GormBatchNumberSequence {
	return &GormBatchNumberSequence{db: db}
}

// Next increments and returns the counter for the tenant and the UTC day of day
func (s *GormBatchNumberSequence) Next(ctx context.Context, tenantID uuid.UUID, day time.Time) (int64, error) {
	key := day.UTC().Format("20060102")
	now := time.Now().UTC()

	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "day"}},
			DoUpdates: clause.Assignments(map[string]any{
				"last_value": gorm.Expr("batch_number_sequences.last_value + 1"),
				"updated_at": now,
			}),
		}).
		Create(&models.BatchNumberSequenceModel{
			TenantID:  tenantID,
			Day:       key,
			LastValue: 1,
			UpdatedAt: now,
		}).Error
	if err != nil {
		return 0, translateError(err)
	}

	var row models.BatchNumberSequenceModel
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ? AND day = ?", tenantID, key).
		First(&row).Error; err != nil {
		return 0, translateError(err)
	}
	return row.LastValue, nil
}

// Ensure GormBatchNumberSequence implements BatchNumberSequence
var _ inventory.BatchNumberSequence = (*GormBatchNumberSequence)(nil)
