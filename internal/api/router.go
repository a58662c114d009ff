package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vinylhouse/labelapi/internal/api/handlers"
	"github.com/vinylhouse/labelapi/internal/api/middleware"
	"github.com/vinylhouse/labelapi/internal/config"
	"github.com/vinylhouse/labelapi/internal/metrics"
	"github.com/vinylhouse/labelapi/internal/service"
)

// Services are the back-office services the router exposes
type Services struct {
	Orders     *service.OrderService
	Reconciler *service.Reconciler
	Inventory  *service.InventoryService
}

// NewRouter creates and configures the Gin router. gatherer backs /metrics
// and may be nil to leave the endpoint out.
func NewRouter(cfg *config.Config, svc Services, collector *metrics.Collector, gatherer prometheus.Gatherer, logger *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if collector == nil {
		collector = metrics.NewNop()
	}

	router := gin.New()

	// Middleware
	router.Use(customRecovery(logger))
	router.Use(loggingMiddleware(logger))
	router.Use(metricsMiddleware(collector))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service": "Label back-office API",
			"endpoints": []string{
				"GET /health",
				"GET /metrics",
				"GET /v1/admin/orders",
				"GET /v1/admin/orders/:id",
				"PATCH /v1/admin/orders/:id/status",
				"PUT /v1/admin/orders/:id/tracking",
				"POST /v1/admin/orders/:id/reconcile-payment",
				"PATCH /v1/admin/orders/:id/notes",
				"PATCH /v1/admin/orders/:id/items/:itemId",
				"GET /v1/admin/inventory",
				"POST /v1/admin/inventory/bulk",
				"PATCH /v1/admin/products/:id/tracking",
				"POST /v1/admin/products/:id/adjust",
			},
		})
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/v1")
	{
		adminRoutes := v1.Group("/admin")
		adminRoutes.Use(middleware.AdminAuthMiddleware(cfg.Admin, logger))
		{
			adminRoutes.GET("/orders", handlers.HandleListOrders(svc.Orders, logger))
			adminRoutes.GET("/orders/:id", handlers.HandleGetOrder(svc.Orders, logger))
			adminRoutes.PATCH("/orders/:id/status", handlers.HandleChangeOrderField(svc.Orders, logger))
			adminRoutes.PUT("/orders/:id/tracking", handlers.HandleAttachTracking(svc.Orders, logger))
			adminRoutes.POST("/orders/:id/reconcile-payment", handlers.HandleReconcilePayment(svc.Orders, svc.Reconciler, logger))
			adminRoutes.PATCH("/orders/:id/notes", handlers.HandleUpdateNotes(svc.Orders, logger))
			adminRoutes.PATCH("/orders/:id/items/:itemId", handlers.HandleSetItemFulfillment(svc.Orders, logger))

			adminRoutes.GET("/inventory", handlers.HandleInventoryReport(svc.Inventory, logger))
			adminRoutes.POST("/inventory/bulk", handlers.HandleBulkInventory(svc.Inventory, logger))
			adminRoutes.PATCH("/products/:id/tracking", handlers.HandleSetProductTracking(svc.Inventory, logger))
			adminRoutes.POST("/products/:id/adjust", handlers.HandleAdjustStock(svc.Inventory, logger))
		}
	}

	return router
}

// customRecovery is a custom recovery middleware that logs panics
func customRecovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("Panic recovered",
			zap.Any("error", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// metricsMiddleware records request latency by route template
func metricsMiddleware(collector *metrics.Collector) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		collector.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
