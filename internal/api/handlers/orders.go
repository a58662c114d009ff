package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vinylhouse/labelapi/internal/domain"
	"github.com/vinylhouse/labelapi/internal/repository"
	"github.com/vinylhouse/labelapi/internal/service"
)

// resolveOrderID accepts a numeric order id or an order number, with the
// same fallback as the read endpoint
func resolveOrderID(ctx context.Context, orders *service.OrderService, ref string) (int64, error) {
	order, err := orders.ResolveOrder(ctx, ref)
	if err != nil {
		return 0, err
	}
	return order.ID, nil
}

// HandleListOrders handles GET /v1/admin/orders
func HandleListOrders(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := repository.OrderFilter{
			Status:            domain.OrderStatus(c.Query("status")),
			FulfillmentStatus: domain.FulfillmentStatus(c.Query("fulfillment_status")),
			Limit:             50,
		}
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				badRequest(c, "limit must be a number")
				return
			}
			filter.Limit = n
		}
		if v := c.Query("offset"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				badRequest(c, "offset must be a number")
				return
			}
			filter.Offset = n
		}

		list, err := orders.ListOrders(c.Request.Context(), filter)
		if err != nil {
			writeError(c, logger, err)
			return
		}

		resp := make([]OrderResponse, 0, len(list))
		for _, o := range list {
			resp = append(resp, toOrderResponse(o))
		}
		c.JSON(http.StatusOK, gin.H{
			"orders": resp,
			"limit":  filter.Limit,
			"offset": filter.Offset,
		})
	}
}

// HandleGetOrder handles GET /v1/admin/orders/:id
func HandleGetOrder(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		detail, err := orders.GetOrder(c.Request.Context(), c.Param("id"))
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, toOrderDetailResponse(detail))
	}
}

// ChangeFieldRequest is the body of PATCH /orders/:id/status
type ChangeFieldRequest struct {
	Field string `json:"field" binding:"required"`
	Value string `json:"value" binding:"required"`
}

// HandleChangeOrderField handles PATCH /v1/admin/orders/:id/status
func HandleChangeOrderField(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ChangeFieldRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body: "+err.Error())
			return
		}

		id, err := resolveOrderID(c.Request.Context(), orders, c.Param("id"))
		if err != nil {
			writeError(c, logger, err)
			return
		}

		order, err := orders.ApplyFieldChange(c.Request.Context(), id, req.Field, req.Value)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, toOrderResponse(order))
	}
}

// TrackingRequest is the body of PUT /orders/:id/tracking. An empty
// tracking_number clears tracking.
type TrackingRequest struct {
	TrackingNumber string `json:"tracking_number"`
	TrackingURL    string `json:"tracking_url"`
}

// HandleAttachTracking handles PUT /v1/admin/orders/:id/tracking
func HandleAttachTracking(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TrackingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body: "+err.Error())
			return
		}

		id, err := resolveOrderID(c.Request.Context(), orders, c.Param("id"))
		if err != nil {
			writeError(c, logger, err)
			return
		}

		order, err := orders.AttachTracking(c.Request.Context(), id, req.TrackingNumber, req.TrackingURL)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, toOrderResponse(order))
	}
}

// ReconcileRequest is the optional body of POST /orders/:id/reconcile-payment
type ReconcileRequest struct {
	SessionID string `json:"session_id"`
}

// HandleReconcilePayment handles POST /v1/admin/orders/:id/reconcile-payment
func HandleReconcilePayment(orders *service.OrderService, reconciler *service.Reconciler, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ReconcileRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c, "invalid request body: "+err.Error())
				return
			}
		}

		id, err := resolveOrderID(c.Request.Context(), orders, c.Param("id"))
		if err != nil {
			writeError(c, logger, err)
			return
		}

		result, err := reconciler.Reconcile(c.Request.Context(), id, req.SessionID)
		if err != nil {
			writeError(c, logger, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"order":                 toOrderResponse(result.Order),
			"changed":               result.Changed,
			"fields":                result.Update.Fields(),
			"remote_payment_status": result.RemoteState,
		})
	}
}

// NotesRequest is the body of PATCH /orders/:id/notes. An empty string clears the notes.
type NotesRequest struct {
	InternalNotes *string `json:"internal_notes"`
}

// HandleUpdateNotes handles PATCH /v1/admin/orders/:id/notes
func HandleUpdateNotes(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req NotesRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body: "+err.Error())
			return
		}
		if req.InternalNotes == nil {
			badRequest(c, "internal_notes is required")
			return
		}

		id, err := resolveOrderID(c.Request.Context(), orders, c.Param("id"))
		if err != nil {
			writeError(c, logger, err)
			return
		}

		order, err := orders.UpdateInternalNotes(c.Request.Context(), id, *req.InternalNotes)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, toOrderResponse(order))
	}
}

// ItemFulfillmentRequest is the body of PATCH /orders/:id/items/:itemId
type ItemFulfillmentRequest struct {
	FulfillmentStatus string `json:"fulfillment_status" binding:"required"`
}

// HandleSetItemFulfillment handles PATCH /v1/admin/orders/:id/items/:itemId
func HandleSetItemFulfillment(orders *service.OrderService, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		itemID, err := strconv.ParseInt(c.Param("itemId"), 10, 64)
		if err != nil || itemID <= 0 {
			badRequest(c, "invalid item id")
			return
		}

		var req ItemFulfillmentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request body: "+err.Error())
			return
		}

		id, err := resolveOrderID(c.Request.Context(), orders, c.Param("id"))
		if err != nil {
			writeError(c, logger, err)
			return
		}

		item, err := orders.SetItemFulfillment(c.Request.Context(), id, itemID, req.FulfillmentStatus)
		if err != nil {
			writeError(c, logger, err)
			return
		}
		c.JSON(http.StatusOK, toOrderItemResponse(item))
	}
}
