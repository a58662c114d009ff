package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/vinylhouse/labelapi/internal/config"
	"github.com/vinylhouse/labelapi/internal/domain"
	"github.com/vinylhouse/labelapi/internal/repository/postgres"
	"github.com/vinylhouse/labelapi/internal/service"
)

// Prints the inventory report: stock level and trailing sales per product.
func main() {
	level := flag.String("level", "", "only show products at this stock level (out, low, good, not_tracked)")
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
	inventory := service.NewInventoryService(repos, nil, service.InventoryOptions{
		BulkConcurrency: cfg.BulkConcurrency,
		SalesWindow:     cfg.SalesWindow(),
	}, nil, logger)

	report, err := inventory.Report(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build inventory report: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Sales since %s\n", report.SalesSince.Format("2006-01-02"))
	if report.SalesDegraded {
		fmt.Println("(sales figures unavailable, showing 0)")
	}
	fmt.Println()
	fmt.Printf("%-8s %-40s %-6s %-12s %6s %6s\n", "ID", "TITLE", "FORMAT", "LEVEL", "QTY", "SOLD")

	shown := 0
	for _, row := range report.Rows {
		if *level != "" && row.Level != domain.StockLevel(*level) {
			continue
		}
		shown++
		fmt.Printf("%-8d %-40.40s %-6s %-12s %6d %6d\n",
			row.Product.ID, row.Product.Title, row.Product.Format, row.Level, row.Product.InventoryQuantity, row.Sold)
	}
	fmt.Printf("\n%d product(s)\n", shown)
}
