package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vinylhouse/labelapi/internal/config"
	"github.com/vinylhouse/labelapi/internal/domain"
	"github.com/vinylhouse/labelapi/internal/repository"
	"github.com/vinylhouse/labelapi/internal/repository/postgres"
	"github.com/vinylhouse/labelapi/internal/service"
)

// Usage: go run ./cmd/list-orders [-status shipped] [-fulfillment partial] [-limit 100]
func main() {
	status := flag.String("status", "", "filter by order status")
	fulfillment := flag.String("fulfillment", "", "filter by fulfillment status")
	limit := flag.Int("limit", 100, "maximum number of orders")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	repos := postgres.NewRepositories(db, logger)
	orders := service.NewOrderService(repos, nil, nil, logger)

	list, err := orders.ListOrders(context.Background(), repository.OrderFilter{
		Status:            domain.OrderStatus(*status),
		FulfillmentStatus: domain.FulfillmentStatus(*fulfillment),
		Limit:             *limit,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to list orders: %v\n", err)
		os.Exit(1)
	}

	if len(list) == 0 {
		fmt.Println("No orders found.")
		return
	}

	for i, o := range list {
		fmt.Printf("Order #%d:\n", i+1)
		fmt.Printf("  ID: %d\n", o.ID)
		fmt.Printf("  Number: %s\n", o.OrderNumber)
		fmt.Printf("  Status: %s\n", o.Status)
		fmt.Printf("  Payment: %s\n", o.PaymentStatus)
		fmt.Printf("  Fulfillment: %s\n", o.FulfillmentStatus)
		fmt.Printf("  Total: %s %s\n", decimal.New(o.Total, -2).StringFixed(2), o.Currency)
		if o.TrackingNumber != nil {
			fmt.Printf("  Tracking: %s\n", *o.TrackingNumber)
		}
		if o.ShippedAt != nil {
			fmt.Printf("  Shipped: %s\n", o.ShippedAt.Format("2006-01-02 15:04"))
		}
		if o.DeliveredAt != nil {
			fmt.Printf("  Delivered: %s\n", o.DeliveredAt.Format("2006-01-02 15:04"))
		}
		fmt.Printf("  Created: %s\n", o.CreatedAt.Format("2006-01-02 15:04"))
		fmt.Println()
	}
	fmt.Printf("Found %d order(s)\n", len(list))
}
