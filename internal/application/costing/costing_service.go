package costing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/costing/internal/domain/inventory"
	"github.com/erp/costing/internal/domain/shared"
	"github.com/erp/costing/internal/domain/shared/strategy"
	"github.com/erp/costing/internal/infrastructure/logger"
	"github.com/erp/costing/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StrategyResolver dispatches a cost method to its strategy
type StrategyResolver interface {
	Resolve(method strategy.CostMethod) (strategy.CostingStrategy, error)
}

// Options tunes the costing service
type Options struct {
	// UnitCostPrecision is the number of decimal places unit and pooled costs are rounded to
	UnitCostPrecision int32
	// ClampTolerance is the largest overshoot a commit may clamp away as rounding dust
	ClampTolerance decimal.Decimal
	// DefaultMethod applies to products with no costing configuration or an unrecognized method
	DefaultMethod strategy.CostMethod
	// BatchNumberPrefix prefixes synthesized batch numbers
	BatchNumberPrefix string
	// BlockOnShortfall rejects commits of allocations that did not cover the requested quantity
	BlockOnShortfall bool
	// Now returns the current time; nil means time.Now
	Now func() time.Time
}

// CostingService values consumption against the batch ledger and commits the result.
// Valuation never mutates batches; every mutation happens inside one transaction scope.
type CostingService struct {
	batches    inventory.StockBatchRepository
	movements  inventory.InventoryTransactionRepository
	catalog    inventory.ProductCostingRepository
	txScope    TransactionScope
	strategies StrategyResolver
	opts       Options
	metrics    *telemetry.CostingMetrics
	logger     *zap.Logger
}

// NewCostingService creates a new CostingService
func NewCostingService(
	batches inventory.StockBatchRepository,
	movements inventory.InventoryTransactionRepository,
	catalog inventory.ProductCostingRepository,
	txScope TransactionScope,
	strategies StrategyResolver,
	opts Options,
	log *zap.Logger,
) *CostingService {
	if log == nil {
		log = zap.NewNop()
	}
	if !opts.DefaultMethod.IsValid() {
		opts.DefaultMethod = strategy.DefaultCostMethod
	}
	return &CostingService{
		batches:    batches,
		movements:  movements,
		catalog:    catalog,
		txScope:    txScope,
		strategies: strategies,
		opts:       opts,
		logger:     log,
	}
}

// SetMetrics sets the costing metrics (optional)
func (s *CostingService) SetMetrics(metrics *telemetry.CostingMetrics) {
	s.metrics = metrics
}

func (s *CostingService) log(ctx context.Context) *zap.Logger {
	return logger.WithTraceContext(ctx, s.logger)
}

func (s *CostingService) ledger(repos TransactionalRepositories) *BatchLedger {
	return NewBatchLedger(repos, LedgerOptions{
		ClampTolerance:    s.opts.ClampTolerance,
		BatchNumberPrefix: s.opts.BatchNumberPrefix,
		Now:               s.opts.Now,
	}, s.logger)
}

// ProductCosting returns the costing configuration of a product.
// A product missing from the catalog is costed with the default method.
func (s *CostingService) ProductCosting(ctx context.Context, tenantID, productID uuid.UUID) (*inventory.ProductCosting, error) {
	product, err := s.catalog.FindByProduct(ctx, tenantID, productID)
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("failed to load product costing: %w", err)
	}
	return &inventory.ProductCosting{
		TenantID:     tenantID,
		ProductID:    productID,
		CostMethod:   s.opts.DefaultMethod,
		StandardCost: decimal.Zero,
	}, nil
}

// ConfigureProduct stores a product's costing configuration.
// Unlike valuation, the method is parsed strictly here.
func (s *CostingService) ConfigureProduct(
	ctx context.Context,
	tenantID, productID uuid.UUID,
	method string,
	standardCost decimal.Decimal,
) (*inventory.ProductCosting, error) {
	product, err := inventory.NewProductCosting(tenantID, productID, method, standardCost)
	if err != nil {
		return nil, err
	}
	if err := s.catalog.Save(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to save product costing: %w", err)
	}
	s.log(ctx).Info("Product costing configured",
		logger.UUID("product_id", productID),
		zap.String("cost_method", product.CostMethod.String()),
		logger.Decimal("standard_cost", standardCost),
	)
	return product, nil
}

// resolveMethod maps the stored method onto the closed set, falling back to the default
func (s *CostingService) resolveMethod(method strategy.CostMethod) strategy.CostMethod {
	if method.IsValid() {
		return method
	}
	return s.opts.DefaultMethod
}

func (s *CostingService) batchSource(tenantID, productID, warehouseID uuid.UUID) strategy.BatchSource {
	return strategy.BatchSourceFunc(func(ctx context.Context, order strategy.BatchOrder) ([]strategy.CostBatch, error) {
		batches, err := s.batches.FindActive(ctx, tenantID, productID, warehouseID, order)
		if err != nil {
			return nil, err
		}
		out := make([]strategy.CostBatch, len(batches))
		for i := range batches {
			out[i] = batches[i].CostBatch()
		}
		return out, nil
	})
}

// Valuate prices quantity of product at warehouseID with the product's cost method.
// It reads the ledger without locking and never mutates it. A shortfall is reported
// in the allocation, not as an error.
func (s *CostingService) Valuate(
	ctx context.Context,
	product *inventory.ProductCosting,
	warehouseID uuid.UUID,
	quantity decimal.Decimal,
) (*strategy.CostAllocation, error) {
	if product == nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Product costing configuration is required")
	}
	method := s.resolveMethod(product.CostMethod)

	ctx, span := telemetry.StartServiceSpan(ctx, "costing", "valuate")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, product.TenantID.String(),
		telemetry.SpanAttrProductID, product.ProductID.String(),
		telemetry.SpanAttrWarehouseID, warehouseID.String(),
		telemetry.SpanAttrCostMethod, method.String(),
		telemetry.SpanAttrQuantity, quantity.String(),
	)

	costStrategy, err := s.strategies.Resolve(method)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to resolve cost strategy: %w", err)
	}

	alloc, err := costStrategy.Allocate(ctx, strategy.CostContext{
		TenantID:     product.TenantID,
		ProductID:    product.ProductID,
		WarehouseID:  warehouseID,
		Quantity:     quantity,
		StandardCost: product.StandardCost,
		Precision:    s.opts.UnitCostPrecision,
	}, s.batchSource(product.TenantID, product.ProductID, warehouseID))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to allocate cost: %w", err)
	}

	s.metrics.RecordValuation(ctx, alloc.Method.String())
	telemetry.SetAttributes(span, telemetry.SpanAttrTotalCost, alloc.TotalCost.String())

	fields := append(logger.Stock(product.TenantID, product.ProductID, warehouseID),
		zap.String("cost_method", alloc.Method.String()),
		logger.Decimal("requested", alloc.RequestedQuantity),
		logger.Decimal("allocated", alloc.AllocatedQuantity),
		logger.Decimal("total_cost", alloc.TotalCost),
	)
	if alloc.HasShortfall() {
		s.metrics.RecordShortfall(ctx, alloc.Method.String())
		telemetry.SetAttributes(span, telemetry.SpanAttrShortfall, alloc.Shortfall.String())
		s.log(ctx).Warn("Valuation shortfall", append(fields, logger.Decimal("shortfall", alloc.Shortfall))...)
	} else {
		s.log(ctx).Debug("Valuation computed", fields...)
	}

	telemetry.SetOK(span)
	return alloc, nil
}

// ValuateProduct loads the product's costing configuration and values quantity with it
func (s *CostingService) ValuateProduct(
	ctx context.Context,
	tenantID, productID, warehouseID uuid.UUID,
	quantity decimal.Decimal,
) (*strategy.CostAllocation, error) {
	product, err := s.ProductCosting(ctx, tenantID, productID)
	if err != nil {
		return nil, err
	}
	return s.Valuate(ctx, product, warehouseID, quantity)
}

// Commit applies a batch allocation to the ledger. Every line is re-read under a row lock
// and decremented in allocation order; all lines and their movements commit together or not
// at all. Allocations from pooled methods are acknowledged without touching any batch.
//
// A non-zero ref is recorded in the same transaction, so replaying it fails with
// ErrDuplicateCommit instead of consuming the batches twice.
func (s *CostingService) Commit(
	ctx context.Context,
	alloc *strategy.CostAllocation,
	ref inventory.ConsumptionRef,
) (*CommitResult, error) {
	if alloc == nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Allocation is required")
	}
	start := time.Now()

	ctx, span := telemetry.StartServiceSpan(ctx, "costing", "commit")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, alloc.TenantID.String(),
		telemetry.SpanAttrProductID, alloc.ProductID.String(),
		telemetry.SpanAttrWarehouseID, alloc.WarehouseID.String(),
		telemetry.SpanAttrCostMethod, alloc.Method.String(),
		"batches", len(alloc.BatchesUsed),
	)

	result := &CommitResult{
		Method:    alloc.Method,
		Committed: decimal.Zero,
		Lines:     []CommittedLine{},
	}
	if !ref.IsZero() {
		if err := ref.Validate(); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		result.Reference = ref.String()
		telemetry.SetAttributes(span, telemetry.SpanAttrSourceRef, result.Reference)
	}

	if alloc.Method.UsesBatches() && alloc.HasShortfall() && s.opts.BlockOnShortfall {
		err := inventory.NewInsufficientAllocationError(alloc.RequestedQuantity, alloc.AllocatedQuantity)
		telemetry.RecordError(span, err)
		s.metrics.RecordCommit(ctx, telemetry.CommitResultFailed, time.Since(start))
		return nil, err
	}

	if !alloc.Method.UsesBatches() || len(alloc.BatchesUsed) == 0 {
		result.Skipped = true
		s.metrics.RecordCommit(ctx, telemetry.CommitResultSkipped, time.Since(start))
		telemetry.SetOK(span)
		return result, nil
	}

	var err error
	telemetry.WithProfilingLabels(ctx, telemetry.OperationLabels("costing.commit", alloc.Method.String()), func(ctx context.Context) {
		err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			if !ref.IsZero() {
				record := inventory.NewCommitRecord(ref, alloc, alloc.AllocatedQuantity)
				if err := repos.CommitLedger().Record(ctx, record); err != nil {
					return err
				}
			}

			ledger := s.ledger(repos)
			lines := make([]CommittedLine, 0, len(alloc.BatchesUsed))
			committed := decimal.Zero
			for _, usage := range alloc.BatchesUsed {
				batch, taken, err := ledger.DecrementBatch(
					ctx, alloc.TenantID, alloc.ProductID, alloc.WarehouseID, usage.BatchID, usage.QuantityTaken, ref,
				)
				if err != nil {
					return err
				}
				telemetry.AddEvent(span, "batch.decremented",
					telemetry.SpanAttrBatchNumber, batch.BatchNumber,
					"taken", taken.String(),
				)
				lines = append(lines, CommittedLine{
					BatchID:       batch.ID,
					BatchNumber:   batch.BatchNumber,
					QuantityTaken: taken,
					Remaining:     batch.Quantity,
					Status:        batch.Status,
				})
				committed = committed.Add(taken)
			}
			result.Lines = lines
			result.Committed = committed
			return nil
		})
	})
	if err != nil {
		outcome := commitOutcome(err)
		s.metrics.RecordCommit(ctx, outcome, time.Since(start))
		telemetry.RecordError(span, err)
		s.log(ctx).Warn("Commit rejected",
			logger.UUID("product_id", alloc.ProductID),
			zap.String("cost_method", alloc.Method.String()),
			zap.String("outcome", outcome),
			zap.String("reference", result.Reference),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.RecordCommit(ctx, telemetry.CommitResultCommitted, time.Since(start))
	s.log(ctx).Info("Allocation committed",
		logger.UUID("product_id", alloc.ProductID),
		zap.String("cost_method", alloc.Method.String()),
		zap.Int("batches", len(result.Lines)),
		logger.Decimal("quantity", result.Committed),
		zap.String("reference", result.Reference),
	)
	telemetry.SetOK(span)
	return result, nil
}

func commitOutcome(err error) string {
	switch {
	case errors.Is(err, inventory.ErrContention):
		return telemetry.CommitResultContended
	case errors.Is(err, inventory.ErrDuplicateCommit):
		return telemetry.CommitResultDuplicate
	default:
		return telemetry.CommitResultFailed
	}
}

// Receive merges incoming stock into the ledger and records the INBOUND movement.
// A receipt matching an existing batch identity adds to it and keeps its unit cost.
func (s *CostingService) Receive(ctx context.Context, tenantID uuid.UUID, req ReceiveRequest) (*inventory.StockBatch, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "costing", "receive")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrProductID, req.ProductID.String(),
		telemetry.SpanAttrWarehouseID, req.WarehouseID.String(),
		telemetry.SpanAttrQuantity, req.Quantity.String(),
	)

	sourceType := req.SourceType
	if sourceType == "" {
		sourceType = inventory.SourceTypePurchaseOrder
	}
	if !sourceType.IsValid() {
		err := shared.NewDomainError("INVALID_SOURCE_TYPE", "Invalid source type")
		telemetry.RecordError(span, err)
		return nil, err
	}

	receipt := inventory.BatchReceipt{
		TenantID:    tenantID,
		ProductID:   req.ProductID,
		WarehouseID: req.WarehouseID,
		BatchNumber: req.BatchNumber,
		Quantity:    req.Quantity,
		UnitCost:    req.UnitCost,
		Metadata:    req.Metadata,
	}
	if err := receipt.Validate(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var batch *inventory.StockBatch
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		batch, err = s.ledger(repos).UpsertBatch(ctx, receipt, sourceType, req.SourceID)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.metrics.RecordReceipt(ctx)
	telemetry.SetAttributes(span, telemetry.SpanAttrBatchNumber, batch.BatchNumber)
	s.log(ctx).Info("Batch received",
		zap.String("batch_number", batch.BatchNumber),
		logger.Decimal("quantity", req.Quantity),
		logger.Decimal("unit_cost", batch.UnitCost),
		logger.Decimal("on_hand", batch.Quantity),
	)
	telemetry.SetOK(span)
	return batch, nil
}

// Adjust applies a signed manual correction to one batch, such as a stock count difference
func (s *CostingService) Adjust(
	ctx context.Context,
	tenantID, batchID uuid.UUID,
	delta decimal.Decimal,
	reason string,
) (*inventory.StockBatch, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "costing", "adjust")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrBatchID, batchID.String(),
		telemetry.SpanAttrQuantity, delta.String(),
	)

	if delta.IsZero() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Adjustment cannot be zero")
	}
	if reason == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "Adjustment reason is required")
	}

	var batch *inventory.StockBatch
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		batch, err = s.ledger(repos).AdjustBatch(ctx, tenantID, batchID, delta, reason)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.log(ctx).Info("Batch adjusted",
		zap.String("batch_number", batch.BatchNumber),
		logger.Decimal("delta", delta),
		logger.Decimal("on_hand", batch.Quantity),
		zap.String("reason", reason),
	)
	telemetry.SetOK(span)
	return batch, nil
}

// ActiveBatches lists the batches valuation would draw from, in the given order
func (s *CostingService) ActiveBatches(
	ctx context.Context,
	tenantID, productID, warehouseID uuid.UUID,
	order strategy.BatchOrder,
) ([]inventory.StockBatch, error) {
	if order != strategy.BatchOrderNewestFirst {
		order = strategy.BatchOrderOldestFirst
	}
	batches, err := s.batches.FindActive(ctx, tenantID, productID, warehouseID, order)
	if err != nil {
		return nil, fmt.Errorf("failed to list active batches: %w", err)
	}
	return batches, nil
}

// BatchMovements returns the movement log of one batch, oldest first
func (s *CostingService) BatchMovements(ctx context.Context, tenantID, batchID uuid.UUID) ([]inventory.InventoryTransaction, error) {
	if _, err := s.batches.FindByID(ctx, tenantID, batchID); err != nil {
		return nil, err
	}
	return s.movements.FindByBatch(ctx, tenantID, batchID)
}
