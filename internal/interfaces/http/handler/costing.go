package handler

import (
	"strings"
	"time"

	"github.com/erp/costing/internal/application/costing"
	"github.com/erp/costing/internal/domain/inventory"
	"github.com/erp/costing/internal/domain/shared"
	"github.com/erp/costing/internal/domain/shared/strategy"
	"github.com/erp/costing/internal/infrastructure/logger"
	"github.com/erp/costing/internal/interfaces/http/dto"
	"github.com/erp/costing/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// IdempotencyKeyHeader lets a client retry a receipt without double-counting stock
const IdempotencyKeyHeader = "Idempotency-Key"

const maxIdempotencyKeyLength = 200

// CostingHandler exposes the costing engine over HTTP
type CostingHandler struct {
	BaseHandler
	service        *costing.CostingService
	idempotency    shared.IdempotencyStore
	idempotencyTTL time.Duration
}

// NewCostingHandler creates a new CostingHandler.
// A nil idempotency store disables Idempotency-Key handling on receipts.
func NewCostingHandler(service *costing.CostingService, store shared.IdempotencyStore, ttl time.Duration) *CostingHandler {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CostingHandler{
		service:        service,
		idempotency:    store,
		idempotencyTTL: ttl,
	}
}

// Valuate godoc
// @ID           valuateCosting
// @Summary      Quote the cost of consuming a quantity
// @Description  Prices the quantity with the product's cost method without touching the ledger.
// @Description  A shortfall is reported in the allocation, not as an error.
// @Tags         costing
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        request body dto.ValuationRequest true "Valuation request"
// @Success      200 {object} APIResponse[strategy.CostAllocation]
// @Failure      400 {object} ErrorResponse
// @Router       /costing/valuations [post]
func (h *CostingHandler) Valuate(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	var req dto.ValuationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	productID := uuid.MustParse(req.ProductID)
	warehouseID := uuid.MustParse(req.WarehouseID)
	quantity := parseDecimal(req.Quantity)

	var (
		alloc *strategy.CostAllocation
		err   error
	)
	if req.CostMethod != "" {
		var product *inventory.ProductCosting
		product, err = inventory.NewProductCosting(tenantID, productID, req.CostMethod, parseDecimal(req.StandardCost))
		if err == nil {
			alloc, err = h.service.Valuate(c.Request.Context(), product, warehouseID, quantity)
		}
	} else {
		alloc, err = h.service.ValuateProduct(c.Request.Context(), tenantID, productID, warehouseID, quantity)
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, alloc)
}

// Commit godoc
// @ID           commitCosting
// @Summary      Apply a quoted allocation
// @Description  Decrements every batch line of the allocation in one transaction. A source reference
// @Description  makes the commit exactly-once; replaying it returns 409 ERR_DUPLICATE_COMMIT.
// @Description  409 ERR_CONTENTION is retryable: quote again and commit the new allocation.
// @Tags         costing
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        request body dto.CommitRequest true "Commit request"
// @Success      200 {object} APIResponse[costing.CommitResult]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /costing/commits [post]
func (h *CostingHandler) Commit(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	var req dto.CommitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	alloc := req.Allocation
	if alloc.TenantID == uuid.Nil {
		alloc.TenantID = tenantID
	}
	if alloc.TenantID != tenantID {
		h.Error(c, dto.GetHTTPStatus(dto.ErrCodeInvalidInput), dto.ErrCodeInvalidInput,
			"Allocation was quoted for a different tenant")
		return
	}

	result, err := h.service.Commit(c.Request.Context(), alloc, req.Ref())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, result)
}

// Receive godoc
// @ID           receiveCosting
// @Summary      Receive stock into a batch
// @Description  Creates a batch or adds to the batch with the same number. An Idempotency-Key header
// @Description  makes retries safe; a reused key returns 409 ERR_DUPLICATE_REQUEST.
// @Tags         costing
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        Idempotency-Key header string false "Client retry key"
// @Param        request body dto.ReceiptRequest true "Receipt request"
// @Success      201 {object} APIResponse[costing.BatchResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Router       /costing/receipts [post]
func (h *CostingHandler) Receive(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	var req dto.ReceiptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	expiry, err := parseOptionalDateTime(req.ExpiryDate)
	if err != nil {
		h.BadRequest(c, "Invalid expiry_date format, use RFC3339 or YYYY-MM-DD")
		return
	}
	receivedAt, err := parseOptionalDateTime(req.ReceivedAt)
	if err != nil {
		h.BadRequest(c, "Invalid received_at format, use RFC3339 or YYYY-MM-DD")
		return
	}

	key, claimed, ok := h.claimIdempotencyKey(c, tenantID)
	if !ok {
		return
	}

	receive := costing.ReceiveRequest{
		ProductID:   uuid.MustParse(req.ProductID),
		WarehouseID: uuid.MustParse(req.WarehouseID),
		Quantity:    parseDecimal(req.Quantity),
		UnitCost:    parseDecimal(req.UnitCost),
		BatchNumber: strings.TrimSpace(req.BatchNumber),
		Metadata: inventory.BatchMetadata{
			Branch:     req.Branch,
			ExpiryDate: expiry,
		},
		SourceType: inventory.SourceType(req.SourceType),
		SourceID:   req.SourceID,
	}
	if receivedAt != nil {
		receive.Metadata.ReceivedAt = *receivedAt
	}

	batch, err := h.service.Receive(c.Request.Context(), tenantID, receive)
	if err != nil {
		if claimed {
			h.releaseIdempotencyKey(c, key)
		}
		h.HandleError(c, err)
		return
	}

	h.Created(c, costing.ToBatchResponse(batch))
}

// claimIdempotencyKey marks the request's Idempotency-Key as used.
// ok is false when a response has already been written.
func (h *CostingHandler) claimIdempotencyKey(c *gin.Context, tenantID uuid.UUID) (key string, claimed, ok bool) {
	raw := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	if raw == "" || h.idempotency == nil {
		return "", false, true
	}
	if len(raw) > maxIdempotencyKeyLength {
		h.BadRequest(c, "Idempotency-Key is too long")
		return "", false, false
	}

	key = tenantID.String() + ":" + raw
	fresh, err := h.idempotency.MarkProcessed(c.Request.Context(), key, h.idempotencyTTL)
	if err != nil {
		h.HandleError(c, err)
		return "", false, false
	}
	if !fresh {
		h.Conflict(c, dto.ErrCodeDuplicateRequest, "A receipt with this Idempotency-Key was already processed")
		return "", false, false
	}
	return key, true, true
}

func (h *CostingHandler) releaseIdempotencyKey(c *gin.Context, key string) {
	if err := h.idempotency.Release(c.Request.Context(), key); err != nil {
		logger.FromContext(c.Request.Context()).Warn("Failed to release idempotency key",
			zap.String("key", key), zap.Error(err))
	}
}

// Adjust godoc
// @ID           adjustCostingBatch
// @Summary      Adjust a batch quantity
// @Description  Applies a signed correction to one batch. A result below zero is rejected with 422.
// @Tags         costing
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Batch ID" format(uuid)
// @Param        request body dto.AdjustmentRequest true "Adjustment request"
// @Success      200 {object} APIResponse[costing.BatchResponse]
// @Failure      404 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /costing/batches/{id}/adjustments [post]
func (h *CostingHandler) Adjust(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	batchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid batch ID format")
		return
	}

	var req dto.AdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	batch, err := h.service.Adjust(c.Request.Context(), tenantID, batchID, parseDecimal(req.Delta), strings.TrimSpace(req.Reason))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, costing.ToBatchResponse(batch))
}

// ListBatches godoc
// @ID           listCostingBatches
// @Summary      List active batches
// @Description  Lists the batches valuation would draw from, oldest first (fifo) or newest first (lifo)
// @Tags         costing
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        product_id query string true "Product ID" format(uuid)
// @Param        warehouse_id query string true "Warehouse ID" format(uuid)
// @Param        order query string false "Walk order" Enums(fifo, lifo)
// @Success      200 {object} APIResponse[[]costing.BatchResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /costing/batches [get]
func (h *CostingHandler) ListBatches(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	var query dto.BatchListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	batches, err := h.service.ActiveBatches(c.Request.Context(), tenantID,
		uuid.MustParse(query.ProductID), uuid.MustParse(query.WarehouseID), query.BatchOrder())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessList(c, costing.ToBatchResponses(batches), len(batches))
}

// BatchMovements godoc
// @ID           listCostingBatchMovements
// @Summary      List a batch's movements
// @Tags         costing
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        id path string true "Batch ID" format(uuid)
// @Success      200 {object} APIResponse[[]costing.MovementResponse]
// @Failure      404 {object} ErrorResponse
// @Router       /costing/batches/{id}/movements [get]
func (h *CostingHandler) BatchMovements(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	batchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid batch ID format")
		return
	}

	movements, err := h.service.BatchMovements(c.Request.Context(), tenantID, batchID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessList(c, costing.ToMovementResponses(movements), len(movements))
}

// GetProduct godoc
// @ID           getCostingProduct
// @Summary      Get a product's costing configuration
// @Description  Products never configured report the default cost method and no updated_at
// @Tags         costing
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        product_id path string true "Product ID" format(uuid)
// @Success      200 {object} APIResponse[dto.ProductCostingResponse]
// @Router       /costing/products/{product_id} [get]
func (h *CostingHandler) GetProduct(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	product, err := h.service.ProductCosting(c.Request.Context(), tenantID, productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.ToProductCostingResponse(product))
}

// ConfigureProduct godoc
// @ID           configureCostingProduct
// @Summary      Configure a product's cost method
// @Tags         costing
// @Accept       json
// @Produce      json
// @Param        X-Tenant-ID header string true "Tenant ID"
// @Param        product_id path string true "Product ID" format(uuid)
// @Param        request body dto.ProductCostingRequest true "Costing configuration"
// @Success      200 {object} APIResponse[dto.ProductCostingResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /costing/products/{product_id} [put]
func (h *CostingHandler) ConfigureProduct(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	productID, err := uuid.Parse(c.Param("product_id"))
	if err != nil {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	var req dto.ProductCostingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	product, err := h.service.ConfigureProduct(c.Request.Context(), tenantID, productID,
		req.CostMethod, parseDecimal(req.StandardCost))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.ToProductCostingResponse(product))
}

func (h *CostingHandler) tenant(c *gin.Context) (uuid.UUID, bool) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, "Tenant identification required")
		return uuid.Nil, false
	}
	return tenantID, true
}

// parseDecimal parses a value already checked by the decimal validator; empty is zero
func parseDecimal(value string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseOptionalDateTime accepts RFC3339 or a bare YYYY-MM-DD date; empty is nil
func parseOptionalDateTime(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
