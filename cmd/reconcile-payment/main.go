package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/vinylhouse/labelapi/internal/config"
	"github.com/vinylhouse/labelapi/internal/payment"
	"github.com/vinylhouse/labelapi/internal/repository/postgres"
	"github.com/vinylhouse/labelapi/internal/service"
	"github.com/vinylhouse/labelapi/pkg/errors"
)

// Pulls the payment processor's state for one order into the database.
func main() {
	sessionFlag := flag.String("session", "", "checkout session id (defaults to the one stored on the order)")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Println("Usage: go run cmd/reconcile-payment/main.go [--session cs_...] <order_number|order_id>")
		fmt.Println("Example: go run cmd/reconcile-payment/main.go VH-1042")
		os.Exit(1)
	}
	ref := strings.TrimSpace(flag.Arg(0))

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
	reconciler := service.NewReconciler(repos, payment.NewClient(cfg.Payment, nil, logger), cfg.Payment.Timeout, nil, nil, logger)

	ctx := context.Background()
	detail, err := orders.GetOrder(ctx, ref)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Order %s: %v\n", ref, err)
		os.Exit(1)
	}

	result, err := reconciler.Reconcile(ctx, detail.Order.ID, *sessionFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Reconciliation failed: %v\n", err)
		if errors.IsRetryable(err) {
			fmt.Fprintln(os.Stderr, "The processor could not be reached; the order was not changed. Try again later.")
		}
		os.Exit(1)
	}

	o := result.Order
	fmt.Printf("Order %s (id %d)\n", o.OrderNumber, o.ID)
	fmt.Printf("  Processor state: %s\n", result.RemoteState)
	fmt.Printf("  Payment status:  %s\n", o.PaymentStatus)
	fmt.Printf("  Order status:    %s\n", o.Status)
	if result.Changed {
		fmt.Printf("Updated fields: %s\n", strings.Join(result.Update.Fields(), ", "))
	} else {
		fmt.Println("Already up to date.")
	}
}
