package main

import (
	"context"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vinylhouse/labelapi/internal/config"
	"github.com/vinylhouse/labelapi/internal/repository/postgres"
	"github.com/vinylhouse/labelapi/internal/service"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run cmd/find-order/main.go <order_number|order_id>")
		fmt.Println("Example: go run cmd/find-order/main.go VH-1042")
		os.Exit(1)
	}
	ref := os.Args[1]

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

	orders := service.NewOrderService(postgres.NewRepositories(db, logger), nil, nil, logger)
	detail, err := orders.GetOrder(context.Background(), ref)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Order %s: %v\n", ref, err)
		os.Exit(1)
	}

	o := detail.Order
	money := func(minor int64) string { return decimal.New(minor, -2).StringFixed(2) + " " + o.Currency }

	fmt.Printf("Order %s (id %d)\n", o.OrderNumber, o.ID)
	fmt.Printf("  Status:      %s\n", o.Status)
	fmt.Printf("  Payment:     %s\n", o.PaymentStatus)
	fmt.Printf("  Fulfillment: %s\n", o.FulfillmentStatus)
	fmt.Printf("  Total:       %s (subtotal %s, tax %s, shipping %s, discount %s)\n",
		money(o.Total), money(o.Subtotal), money(o.Tax), money(o.Shipping), money(o.Discount))
	if o.TrackingNumber != nil {
		fmt.Printf("  Tracking:    %s\n", *o.TrackingNumber)
	}
	if o.PaymentSessionID != nil {
		fmt.Printf("  Session:     %s\n", *o.PaymentSessionID)
	}
	fmt.Printf("  Created:     %s\n", o.CreatedAt.Format("2006-01-02 15:04"))
	if o.ShippedAt != nil {
		fmt.Printf("  Shipped:     %s\n", o.ShippedAt.Format("2006-01-02 15:04"))
	}
	if o.DeliveredAt != nil {
		fmt.Printf("  Delivered:   %s\n", o.DeliveredAt.Format("2006-01-02 15:04"))
	}

	fmt.Println("\nItems:")
	for _, it := range detail.Items {
		fmt.Printf("  #%d %dx %s [%s] %s - %s\n", it.ID, it.Quantity, it.ProductName, it.Format, money(it.UnitPrice), it.FulfillmentStatus)
	}

	if len(detail.Events) > 0 {
		fmt.Println("\nHistory:")
		for _, e := range detail.Events {
			fmt.Printf("  %s %s %v\n", e.CreatedAt.Format("2006-01-02 15:04:05"), e.EventType, e.EventData)
		}
	}
}
