package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vinylhouse/labelapi/internal/service"
	"github.com/vinylhouse/labelapi/pkg/errors"
)

const maxBulkItems = 500

// HandleInventoryReport handles GET /v1/admin/inventory
func HandleInventoryReport(inventory *service.InventoryService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := inventory.Report(c.Request.Context())
		if err != nil {
			writeError(c, logger, err)
			return
		}

		products := make([]ProductResponse, 0, len(report.Rows))
		for _, row := range report.Rows {
			p := toProductResponse(row.Product)
			sold := row.Sold
			p.Sold = &sold
			products = append(products, p)
		}
		c.JSON(http.StatusOK, gin.H{
			"products":       products,
			"sales_since":    formatTime(report.SalesSince),
			"sales_degraded": report.SalesDegraded,
		})
	}
}

// BulkInventoryRequest is the body of POST /inventory/bulk
type BulkInventoryRequest struct {
	Items []BulkInventoryItem `json:"items" binding:"required"`
}

type BulkInventoryItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  *int  `json:"quantity"`
}

type BulkFailureResponse struct {
	ProductID int64  `json:"product_id"`
	Error     string `json:"error"`
	Code      string `json:"code"`
}

// HandleBulkInventory handles POST /v1/admin/inventory/bulk. Each item is
// applied independently; the response lists what was applied and what failed.
func HandleBulkInventory(inventory *service.InventoryService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req BulkInventoryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body: "+err.Error())
			return
		}
		if len(req.Items) > maxBulkItems {
			badRequest(c, "too many items (max "+strconv.Itoa(maxBulkItems)+")")
			return
		}

		updates := make([]service.QuantityUpdate, 0, len(req.Items))
		for i, item := range req.Items {
			if item.Quantity == nil {
				writeError(c, logger, errors.NewValidation("items["+strconv.Itoa(i)+"].quantity", "quantity is required"))
				return
			}
			updates = append(updates, service.QuantityUpdate{ProductID: item.ProductID, Quantity: *item.Quantity})
		}

		result := inventory.ApplyBulk(c.Request.Context(), updates)

		failed := make([]BulkFailureResponse, 0, len(result.Failed))
		for _, f := range result.Failed {
			code := errorCode(f.Err)
			msg := f.Err.Error()
			if code == "internal" {
				logger.Error("Bulk inventory item failed", zap.Int64("product_id", f.ProductID), zap.Error(f.Err))
				msg = "internal error"
			}
			failed = append(failed, BulkFailureResponse{ProductID: f.ProductID, Error: msg, Code: code})
		}

		applied := result.Applied
		if applied == nil {
			applied = []int64{}
		}
		products := make([]ProductResponse, 0, len(applied))
		if len(applied) > 0 {
			fresh, err := inventory.Products(c.Request.Context(), applied)
			if err != nil {
				// The writes already happened; report them without the refreshed rows
				logger.Warn("Failed to reload products after bulk update", zap.Error(err))
			}
			for _, p := range fresh {
				products = append(products, toProductResponse(p))
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"applied":  applied,
			"failed":   failed,
			"products": products,
		})
	}
}

// TrackingToggleRequest is the body of PATCH /products/:id/tracking
type TrackingToggleRequest struct {
	Enabled *bool `json:"enabled"`
}

// HandleSetProductTracking handles PATCH /v1/admin/products/:id/tracking
func HandleSetProductTracking(inventory *service.InventoryService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := productIDParam(c)
		if !ok {
			return
		}

		var req TrackingToggleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body: "+err.Error())
			return
		}
		if req.Enabled == nil {
			badRequest(c, "enabled is required")
			return
		}

		p, err := inventory.SetTracking(c.Request.Context(), id, *req.Enabled)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, toProductResponse(p))
	}
}

// AdjustStockRequest is the body of POST /products/:id/adjust
type AdjustStockRequest struct {
	Delta int `json:"delta"`
}

// HandleAdjustStock handles POST /v1/admin/products/:id/adjust
func HandleAdjustStock(inventory *service.InventoryService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := productIDParam(c)
		if !ok {
			return
		}

		var req AdjustStockRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body: "+err.Error())
			return
		}

		p, err := inventory.AdjustStock(c.Request.Context(), id, req.Delta)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, toProductResponse(p))
	}
}

func productIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "invalid product id")
		return 0, false
	}
	return id, true
}
