package logger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Decimal logs a decimal as its exact string form
func Decimal(key string, value decimal.Decimal) zap.Field {
	return zap.String(key, value.String())
}

// UUID logs a uuid as a string
func UUID(key string, value uuid.UUID) zap.Field {
	return zap.String(key, value.String())
}

// Stock returns the identifying fields of a product held at a warehouse
func Stock(tenantID, productID, warehouseID uuid.UUID) []zap.Field {
	return []zap.Field{
		UUID("tenant_id", tenantID),
		UUID("product_id", productID),
		UUID("warehouse_id", warehouseID),
	}
}
