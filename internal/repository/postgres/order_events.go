package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vinylhouse/labelapi/internal/domain"
)

type orderEventRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOrderEventRepository creates a new order history repository
func NewOrderEventRepository(db *sql.DB, logger *zap.Logger) *orderEventRepository {
	return &orderEventRepository{
		db:     db,
		logger: logger,
	}
}

func (r *orderEventRepository) Create(ctx context.Context, event *domain.OrderEvent) error {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	var payload []byte
	if event.EventData != nil {
		var err error
		if payload, err = json.Marshal(event.EventData); err != nil {
			return err
		}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO order_events (id, order_id, event_type, event_data, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		event.ID, event.OrderID, event.EventType, payload, event.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to record order event",
			zap.Int64("order_id", event.OrderID),
			zap.String("event_type", event.EventType),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (r *orderEventRepository) GetByOrderID(ctx context.Context, orderID int64) ([]*domain.OrderEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, order_id, event_type, event_data, created_at
		FROM order_events
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC`, orderID)
	if err != nil {
		r.logger.Error("Failed to load order history", zap.Int64("order_id", orderID), zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var events []*domain.OrderEvent
	for rows.Next() {
		var event domain.OrderEvent
		var payload []byte
		if err := rows.Scan(&event.ID, &event.OrderID, &event.EventType, &payload, &event.CreatedAt); err != nil {
			return nil, err
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &event.EventData); err != nil {
				return nil, err
			}
		}
		events = append(events, &event)
	}
	return events, rows.Err()
}
