package domain

// LowStockThreshold is the exclusive upper bound of the "low" stock level
const LowStockThreshold = 10

// Classify derives the stock level of a product from its tracking flag and quantity
func Classify(p Product) StockLevel {
	switch {
	case !p.InventoryTracking:
		return StockNotTracked
	case p.InventoryQuantity <= 0:
		return StockOut
	case p.InventoryQuantity < LowStockThreshold:
		return StockLow
	default:
		return StockGood
	}
}

// WithTracking returns a copy of p with tracking toggled. The quantity is kept
// so re-enabling tracking resumes from the last known count.
func (p Product) WithTracking(enabled bool) Product {
	p.InventoryTracking = enabled
	return p
}
