package admin

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"tableside/internal/database"
	"tableside/internal/logger"
	"tableside/internal/messaging"
	"tableside/internal/models"
)

// ErrNotFound marks lookups that matched nothing
var ErrNotFound = errors.New("not found")

// ErrInvalidTransition is returned when a status change skips ahead,
// moves backwards or leaves a terminal status.
var ErrInvalidTransition = errors.New("invalid status transition")

// Service backs the staff area: catalog and table management plus the
// order board.
type Service struct {
	db        *database.DB
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// NewService creates an admin service. publisher may be nil, in which case
// status events are not emitted.
func NewService(db *database.DB, publisher *messaging.Publisher, log *logger.Logger) *Service {
	return &Service{db: db, publisher: publisher, logger: log}
}

// --- categories ---

func (s *Service) ListCategories(ctx context.Context) ([]models.Category, error) {
	rows, err := s.db.Query(ctx, database.GetCategoriesSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *Service) GetCategory(ctx context.Context, id int) (*models.Category, error) {
	var c models.Category
	err := s.db.QueryRow(ctx, database.GetCategoryByIDSQL, id).Scan(
		&c.ID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query category: %w", err)
	}
	return &c, nil
}

func (s *Service) CreateCategory(ctx context.Context, c *models.Category) error {
	err := s.db.QueryRow(ctx, database.InsertCategorySQL, c.Name, c.Description).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("failed to insert category: %w", err)
	}
	return nil
}

func (s *Service) UpdateCategory(ctx context.Context, c *models.Category) error {
	tag, err := s.db.Exec(ctx, database.UpdateCategorySQL, c.Name, c.Description, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) DeleteCategory(ctx context.Context, id int) error {
	tag, err := s.db.Exec(ctx, database.DeleteCategorySQL, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- menu items ---

// ListMenuItems returns the full catalog, unavailable items included. Staff
// see everything; the customer menu filters availability itself.
func (s *Service) ListMenuItems(ctx context.Context) ([]models.MenuItem, error) {
	rows, err := s.db.Query(ctx, database.GetMenuItemsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query menu items: %w", err)
	}
	defer rows.Close()

	items := []models.MenuItem{}
	for rows.Next() {
		var item models.MenuItem
		if err := rows.Scan(
			&item.ID, &item.Name, &item.Description, &item.Price, &item.ImageURL,
			&item.CategoryID, &item.Tags, &item.Available, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Service) CreateMenuItem(ctx context.Context, item *models.MenuItem) error {
	err := s.db.QueryRow(ctx, database.InsertMenuItemSQL,
		item.Name, item.Description, item.Price, item.ImageURL,
		item.CategoryID, item.Tags, item.Available,
	).Scan(&item.ID)
	if err != nil {
		return fmt.Errorf("failed to insert menu item: %w", err)
	}
	return nil
}

func (s *Service) UpdateMenuItem(ctx context.Context, item *models.MenuItem) error {
	tag, err := s.db.Exec(ctx, database.UpdateMenuItemSQL,
		item.Name, item.Description, item.Price, item.ImageURL,
		item.CategoryID, item.Tags, item.Available, item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update menu item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) DeleteMenuItem(ctx context.Context, id int) error {
	tag, err := s.db.Exec(ctx, database.DeleteMenuItemSQL, id)
	if err != nil {
		return fmt.Errorf("failed to delete menu item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- tables ---

func (s *Service) ListTables(ctx context.Context) ([]models.Table, error) {
	rows, err := s.db.Query(ctx, database.GetTablesSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	tables := []models.Table{}
	for rows.Next() {
		var t models.Table
		if err := rows.Scan(&t.ID, &t.Number, &t.Section, &t.Seats, &t.Status, &t.QRCode, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan table: %w", err)
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func (s *Service) CreateTable(ctx context.Context, t *models.Table) error {
	_, err := s.db.Exec(ctx, database.InsertTableSQL,
		t.ID, t.Number, t.Section, t.Seats, t.Status, t.QRCode,
	)
	if err != nil {
		return fmt.Errorf("failed to insert table: %w", err)
	}
	return nil
}

func (s *Service) UpdateTable(ctx context.Context, t *models.Table) error {
	tag, err := s.db.Exec(ctx, database.UpdateTableSQL,
		t.Number, t.Section, t.Seats, t.Status, t.QRCode, t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update table: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) DeleteTable(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, database.DeleteTableSQL, id)
	if err != nil {
		return fmt.Errorf("failed to delete table: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// --- orders ---

// ListOrders returns the order board, optionally filtered by status
func (s *Service) ListOrders(ctx context.Context, status *models.OrderStatus) ([]models.Order, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if status != nil {
		rows, err = s.db.Query(ctx, database.GetOrdersByStatusSQL, *status)
	} else {
		rows, err = s.db.Query(ctx, database.GetAllOrdersSQL)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.Number, &o.TableID, &o.Status, &o.TotalPrice, &o.CreatedAt, &o.EstimatedReadyAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// UpdateOrderStatus moves one order to target after validating the
// transition, records the change and publishes a status event.
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID int, target models.OrderStatus, changedBy, requestID string) (*models.Order, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var o models.Order
	err = tx.QueryRow(ctx, database.GetOrderByIDSQL, orderID).Scan(
		&o.ID, &o.Number, &o.TableID, &o.Status, &o.TotalPrice, &o.CreatedAt, &o.EstimatedReadyAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	if !o.Status.CanTransitionTo(target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, target)
	}

	if _, err := tx.Exec(ctx, database.UpdateOrderStatusSQL, target, o.ID); err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	if _, err := tx.Exec(ctx, database.InsertOrderStatusLogSQL, o.ID, target, changedBy, nil); err != nil {
		return nil, fmt.Errorf("failed to record status change: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit status change: %w", err)
	}

	old := o.Status
	o.Status = target

	s.logger.Info("order_status_updated", requestID,
		fmt.Sprintf("Order %s moved from %s to %s", o.Number, old, target),
		map[string]any{"order_id": o.ID, "old_status": old, "new_status": target, "changed_by": changedBy})

	s.publishStatusEvent(ctx, &o, old, changedBy, requestID)

	return &o, nil
}

func (s *Service) publishStatusEvent(ctx context.Context, o *models.Order, old models.OrderStatus, changedBy, requestID string) {
	if s.publisher == nil {
		return
	}
	event := models.StatusUpdateMessage{
		OrderID:          o.ID,
		OrderNumber:      o.Number,
		TableID:          o.TableID,
		OldStatus:        old,
		NewStatus:        o.Status,
		ChangedBy:        changedBy,
		Timestamp:        time.Now().UTC(),
		EstimatedReadyAt: o.EstimatedReadyAt,
	}
	if err := s.publisher.PublishStatusEvent(ctx, event); err != nil {
		// The change is already committed; a lost event only delays displays
		s.logger.Error("event_publish_failed", requestID, "Failed to publish status event", err,
			map[string]any{"order_id": o.ID})
	}
}

// HealthCheck reports whether the database is reachable
func (s *Service) HealthCheck(ctx context.Context) bool {
	return s.db.Ping(ctx) == nil
}
