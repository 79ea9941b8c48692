package kitchen

import (
	"context"
	"fmt"
	"time"

	"tableside/internal/database"
	"tableside/internal/logger"
	"tableside/internal/messaging"
	"tableside/internal/models"
)

// DefaultInterval is how long an order sits in each status before the
// simulated kitchen moves it forward.
const DefaultInterval = 30 * time.Second

// Service drives order progression: every interval it advances each
// non-terminal order one status step and publishes the change. Progression is
// server-side and survives restarts because it reads the persisted status on
// every pass.
type Service struct {
	db        *database.DB
	publisher *messaging.Publisher
	logger    *logger.Logger
	interval  time.Duration
}

// New creates a kitchen service. A non-positive interval falls back to
// DefaultInterval. publisher may be nil, in which case status events are not
// emitted.
func New(db *database.DB, publisher *messaging.Publisher, log *logger.Logger, interval time.Duration) *Service {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Service{db: db, publisher: publisher, logger: log, interval: interval}
}

// Run advances orders until ctx is cancelled
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("kitchen_started", "", "Kitchen progression started",
		map[string]any{"interval": s.interval.String()})

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("kitchen_stopped", "", "Kitchen progression stopped", nil)
			return ctx.Err()
		case <-ticker.C:
			s.advanceAll(ctx)
		}
	}
}

// advanceAll moves every active order one step. A failure on one order is
// logged and does not stop the others.
func (s *Service) advanceAll(ctx context.Context) {
	requestID := logger.GenerateRequestID()

	orders, err := s.activeOrders(ctx)
	if err != nil {
		s.logger.Error("db_query_failed", requestID, "Failed to load active orders", err, nil)
		return
	}

	for _, o := range orders {
		if err := s.advance(ctx, &o, requestID); err != nil {
			s.logger.Error("order_advance_failed", requestID,
				fmt.Sprintf("Failed to advance order %s", o.Number), err,
				map[string]any{"order_id": o.ID, "status": o.Status})
		}
	}
}

func (s *Service) activeOrders(ctx context.Context) ([]models.Order, error) {
	rows, err := s.db.Query(ctx, database.GetActiveOrdersSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query active orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.Number, &o.TableID, &o.Status, &o.TotalPrice, &o.CreatedAt, &o.EstimatedReadyAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (s *Service) advance(ctx context.Context, o *models.Order, requestID string) error {
	next, ok := o.Status.Next()
	if !ok {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, database.UpdateOrderStatusSQL, next, o.ID); err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if _, err := tx.Exec(ctx, database.InsertOrderStatusLogSQL, o.ID, next, "kitchen-service", nil); err != nil {
		return fmt.Errorf("failed to record status change: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit status change: %w", err)
	}

	old := o.Status
	o.Status = next

	s.logger.Info("order_advanced", requestID,
		fmt.Sprintf("Order %s moved from %s to %s", o.Number, old, next),
		map[string]any{"order_id": o.ID, "old_status": old, "new_status": next})

	s.publishStatusEvent(ctx, o, old, requestID)
	return nil
}

func (s *Service) publishStatusEvent(ctx context.Context, o *models.Order, old models.OrderStatus, requestID string) {
	if s.publisher == nil {
		return
	}
	event := models.StatusUpdateMessage{
		OrderID:          o.ID,
		OrderNumber:      o.Number,
		TableID:          o.TableID,
		OldStatus:        old,
		NewStatus:        o.Status,
		ChangedBy:        "kitchen-service",
		Timestamp:        time.Now().UTC(),
		EstimatedReadyAt: o.EstimatedReadyAt,
	}
	if err := s.publisher.PublishStatusEvent(ctx, event); err != nil {
		s.logger.Error("event_publish_failed", requestID, "Failed to publish status event", err,
			map[string]any{"order_id": o.ID})
	}
}
