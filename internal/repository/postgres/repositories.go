package postgres

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/vinylhouse/labelapi/internal/repository"
)

// NewRepositories wires every postgres-backed repository onto one pool
func NewRepositories(db *sql.DB, logger *zap.Logger) *repository.Repositories {
	return &repository.Repositories{
		Order:      NewOrderRepository(db, logger),
		OrderItem:  NewOrderItemRepository(db, logger),
		Product:    NewProductRepository(db, logger),
		OrderEvent: NewOrderEventRepository(db, logger),
	}
}
