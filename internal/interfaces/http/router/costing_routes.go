package router

import (
	"github.com/erp/costing/internal/interfaces/http/handler"
)

// NewCostingRoutes lays out the /costing API group
func NewCostingRoutes(h *handler.CostingHandler) *DomainGroup {
	costing := NewDomainGroup("costing", "/costing")
	costing.POST("/valuations", h.Valuate).
		POST("/commits", h.Commit).
		POST("/receipts", h.Receive)

	costing.Group("batches", "/batches").
		GET("", h.ListBatches).
		POST("/:id/adjustments", h.Adjust).
		GET("/:id/movements", h.BatchMovements)

	costing.Group("products", "/products").
		GET("/:product_id", h.GetProduct).
		PUT("/:product_id", h.ConfigureProduct)

	return costing
}

// NewSystemRoutes lays out the /system API group
func NewSystemRoutes(h *handler.SystemHandler) *DomainGroup {
	return NewDomainGroup("system", "/system").
		GET("/info", h.GetSystemInfo).
		GET("/ping", h.Ping)
}
