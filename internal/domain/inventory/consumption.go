package inventory

import (
	"fmt"
	"time"

	"github.com/erp/costing/internal/domain/shared"
	"github.com/erp/costing/internal/domain/shared/strategy"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ConsumptionRef identifies one physical consumption event, such as one sale line
type ConsumptionRef struct {
	SourceType SourceType
	SourceID   string
	LineRef    string
}

// IsZero reports whether no reference was supplied
func (r ConsumptionRef) IsZero() bool {
	return r.SourceType == "" && r.SourceID == "" && r.LineRef == ""
}

// String renders the reference as TYPE/id#line
func (r ConsumptionRef) String() string {
	if r.LineRef == "" {
		return fmt.Sprintf("%s/%s", r.SourceType, r.SourceID)
	}
	return fmt.Sprintf("%s/%s#%s", r.SourceType, r.SourceID, r.LineRef)
}

// CommitRecord is the durable marker that a consumption reference has been applied
type CommitRecord struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Ref         ConsumptionRef
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
	Method      strategy.CostMethod
	Quantity    decimal.Decimal
	TotalCost   decimal.Decimal
	CommittedAt time.Time
}

// NewCommitRecord builds the marker for an allocation
func NewCommitRecord(ref ConsumptionRef, alloc *strategy.CostAllocation, quantity decimal.Decimal) *CommitRecord {
	return &CommitRecord{
		ID:          uuid.New(),
		TenantID:    alloc.TenantID,
		Ref:         ref,
		ProductID:   alloc.ProductID,
		WarehouseID: alloc.WarehouseID,
		Method:      alloc.Method,
		Quantity:    quantity,
		TotalCost:   alloc.TotalCost,
		CommittedAt: time.Now(),
	}
}

// Validate checks a non-zero reference names a known source document
func (r ConsumptionRef) Validate() error {
	if !r.SourceType.IsValid() {
		return shared.NewDomainError("INVALID_SOURCE_TYPE", "Invalid source type")
	}
	if r.SourceID == "" {
		return shared.NewDomainError("INVALID_INPUT", "Source id is required for a consumption reference")
	}
	return nil
}

// MovementSource returns the source recorded on movements written by the commit
func (r ConsumptionRef) MovementSource() (SourceType, string) {
	if r.IsZero() {
		return SourceTypeUnreferenced, ""
	}
	return r.SourceType, r.String()
}
