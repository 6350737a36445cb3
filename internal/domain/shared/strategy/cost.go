package strategy

import (
	"context"
	"strings"
	"time"

	"github.com/erp/costing/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CostMethod represents the inventory costing method configured on a product
type CostMethod string

const (
	CostMethodFIFO            CostMethod = "fifo"
	CostMethodLIFO            CostMethod = "lifo"
	CostMethodWeightedAverage CostMethod = "weighted_average"
	CostMethodStandard        CostMethod = "standard"
)

// DefaultCostMethod is applied when a product carries no method or an unknown one
const DefaultCostMethod = CostMethodWeightedAverage

// DefaultUnitCostPrecision is the number of decimal places unit costs are reported at
const DefaultUnitCostPrecision int32 = 6

// ErrInvalidCostMethod is reserved for strict parsing of a malformed configuration value.
// Valuation never returns it because unknown methods fall back to DefaultCostMethod.
var ErrInvalidCostMethod = shared.NewDomainError("INVALID_COST_METHOD", "Invalid cost method")

// String returns the string representation of the cost method
func (m CostMethod) String() string {
	return string(m)
}

// IsValid returns true if the cost method is one of the supported methods
func (m CostMethod) IsValid() bool {
	switch m {
	case CostMethodFIFO, CostMethodLIFO, CostMethodWeightedAverage, CostMethodStandard:
		return true
	default:
		return false
	}
}

// UsesBatches reports whether the method allocates against specific batches
func (m CostMethod) UsesBatches() bool {
	return m == CostMethodFIFO || m == CostMethodLIFO
}

// AllCostMethods returns all supported cost methods
func AllCostMethods() []CostMethod {
	return []CostMethod{
		CostMethodFIFO,
		CostMethodLIFO,
		CostMethodWeightedAverage,
		CostMethodStandard,
	}
}

// ParseCostMethod parses a configured value strictly.
func ParseCostMethod(value string) (CostMethod, error) {
	method := CostMethod(strings.ToLower(strings.TrimSpace(value)))
	if !method.IsValid() {
		return "", shared.NewDomainError(ErrInvalidCostMethod.Code, "Invalid cost method: "+value)
	}
	return method, nil
}

// ResolveCostMethod maps any configured value onto a supported method.
// Missing or unrecognized values resolve to DefaultCostMethod.
func ResolveCostMethod(value string) CostMethod {
	method, err := ParseCostMethod(value)
	if err != nil {
		return DefaultCostMethod
	}
	return method
}

// BatchOrder is the acquisition-time order in which active batches are walked
type BatchOrder string

const (
	BatchOrderOldestFirst BatchOrder = "oldest_first"
	BatchOrderNewestFirst BatchOrder = "newest_first"
)

// CostBatch is the costing view of an active batch
type CostBatch struct {
	ID          uuid.UUID
	BatchNumber string
	Quantity    decimal.Decimal
	UnitCost    decimal.Decimal
	ReceivedAt  time.Time
}

// BatchSource is the batch-query capability a costing strategy reads from.
// Implementations return only active batches with positive quantity.
type BatchSource interface {
	ActiveBatches(ctx context.Context, order BatchOrder) ([]CostBatch, error)
}

// BatchSourceFunc adapts a function to BatchSource
type BatchSourceFunc func(ctx context.Context, order BatchOrder) ([]CostBatch, error)

// ActiveBatches implements BatchSource
func (f BatchSourceFunc) ActiveBatches(ctx context.Context, order BatchOrder) ([]CostBatch, error) {
	return f(ctx, order)
}

// CostContext provides context for cost calculation
type CostContext struct {
	TenantID     uuid.UUID
	ProductID    uuid.UUID
	WarehouseID  uuid.UUID
	Quantity     decimal.Decimal
	StandardCost decimal.Decimal
	Precision    int32
}

// UnitCostPrecision returns the configured precision or the default
func (c CostContext) UnitCostPrecision() int32 {
	if c.Precision <= 0 {
		return DefaultUnitCostPrecision
	}
	return c.Precision
}

// BatchUsage is one line of a FIFO/LIFO allocation
type BatchUsage struct {
	BatchID       uuid.UUID       `json:"batch_id"`
	BatchNumber   string          `json:"batch_number"`
	QuantityTaken decimal.Decimal `json:"quantity_taken"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	LineCost      decimal.Decimal `json:"line_cost"`
}

// CostAllocation is the transient result of a valuation.
// For batch methods TotalCost is always the exact sum of the LineCost values.
type CostAllocation struct {
	TenantID          uuid.UUID       `json:"tenant_id"`
	ProductID         uuid.UUID       `json:"product_id"`
	WarehouseID       uuid.UUID       `json:"warehouse_id"`
	Method            CostMethod      `json:"method"`
	RequestedQuantity decimal.Decimal `json:"requested_quantity"`
	AllocatedQuantity decimal.Decimal `json:"allocated_quantity"`
	Shortfall         decimal.Decimal `json:"shortfall"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
	TotalCost         decimal.Decimal `json:"total_cost"`
	BatchesUsed       []BatchUsage    `json:"batches_used"`
}

// HasShortfall reports whether fewer units were found than requested
func (a *CostAllocation) HasShortfall() bool {
	return a.Shortfall.IsPositive()
}

// LineCostTotal sums the line costs of the allocation
func (a *CostAllocation) LineCostTotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range a.BatchesUsed {
		total = total.Add(line.LineCost)
	}
	return total
}

// CostingStrategy values a quantity of one product at one warehouse
type CostingStrategy interface {
	Strategy
	// Method returns the costing method implemented by this strategy
	Method() CostMethod
	// Allocate values costCtx.Quantity without mutating any batch
	Allocate(ctx context.Context, costCtx CostContext, source BatchSource) (*CostAllocation, error)
}
