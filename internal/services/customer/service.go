package customer

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"tableside/internal/cart"
	"tableside/internal/checkout"
	"tableside/internal/database"
	"tableside/internal/logger"
	"tableside/internal/messaging"
	"tableside/internal/models"
)

// ErrNotFound marks lookups that matched nothing
var ErrNotFound = checkout.ErrNotFound

// MenuResponse is the customer menu payload
type MenuResponse struct {
	Categories []models.Category `json:"categories"`
	Items      []models.MenuItem `json:"items"`
}

// Service backs the customer flow: menu browsing, table resolution, the
// session cart and order submission.
type Service struct {
	db        *database.DB
	carts     *cart.Store
	orders    checkout.OrderStore
	publisher *messaging.Publisher
	logger    *logger.Logger

	workflows *workflowRegistry
}

// NewService creates a customer service. publisher may be nil, in which case
// status events are not emitted.
func NewService(db *database.DB, carts *cart.Store, orders checkout.OrderStore, publisher *messaging.Publisher, log *logger.Logger) *Service {
	return &Service{
		db:        db,
		carts:     carts,
		orders:    orders,
		publisher: publisher,
		logger:    log,
		workflows: newWorkflowRegistry(orders, log),
	}
}

// GetMenu returns the catalog, optionally filtered to one category. Only
// available items are shown to customers.
func (s *Service) GetMenu(ctx context.Context, categoryID *int) (*MenuResponse, error) {
	categories, err := s.getCategories(ctx)
	if err != nil {
		return nil, err
	}

	var rows pgx.Rows
	if categoryID != nil {
		rows, err = s.db.Query(ctx, database.GetMenuItemsByCategorySQL, *categoryID)
	} else {
		rows, err = s.db.Query(ctx, database.GetMenuItemsSQL)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query menu items: %w", err)
	}
	defer rows.Close()

	items := []models.MenuItem{}
	for rows.Next() {
		var item models.MenuItem
		if err := scanMenuItem(rows, &item); err != nil {
			return nil, err
		}
		if item.Available {
			items = append(items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read menu items: %w", err)
	}

	return &MenuResponse{Categories: categories, Items: items}, nil
}

// GetMenuItem returns one catalog item by identifier
func (s *Service) GetMenuItem(ctx context.Context, id int) (*models.MenuItem, error) {
	var item models.MenuItem
	err := scanMenuItem(s.db.QueryRow(ctx, database.GetMenuItemByIDSQL, id), &item)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query menu item: %w", err)
	}
	return &item, nil
}

// GetTable resolves a table by its QR identifier
func (s *Service) GetTable(ctx context.Context, id string) (*models.Table, error) {
	return s.orders.GetTable(ctx, id)
}

// GetOrderDetail reads one order with its lines, history and, best effort,
// its resolved table. A table lookup miss degrades the display rather than
// failing the request.
func (s *Service) GetOrderDetail(ctx context.Context, orderID int, requestID string) (*models.OrderDetailResponse, error) {
	var o models.Order
	err := s.db.QueryRow(ctx, database.GetOrderByIDSQL, orderID).Scan(
		&o.ID, &o.Number, &o.TableID, &o.Status, &o.TotalPrice, &o.CreatedAt, &o.EstimatedReadyAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	rows, err := s.db.Query(ctx, database.GetOrderItemsSQL, o.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l models.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.MenuItemID, &l.Name, &l.Quantity, &l.Price, &l.SpecialInstructions); err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		o.Items = append(o.Items, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read order lines: %w", err)
	}

	detail := &models.OrderDetailResponse{Order: o}

	if table, err := s.GetTable(ctx, o.TableID); err == nil {
		detail.Table = table
	} else {
		s.logger.Debug("table_lookup_miss", requestID,
			fmt.Sprintf("Table %s not resolved for order %d, showing raw identifier", o.TableID, o.ID),
			map[string]any{"table_id": o.TableID, "order_id": o.ID})
	}

	history, err := s.orderHistory(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	detail.History = history

	return detail, nil
}

func (s *Service) getCategories(ctx context.Context) ([]models.Category, error) {
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

func (s *Service) orderHistory(ctx context.Context, orderID int) ([]models.OrderStatusHistory, error) {
	rows, err := s.db.Query(ctx, database.GetOrderStatusHistorySQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order history: %w", err)
	}
	defer rows.Close()

	var history []models.OrderStatusHistory
	for rows.Next() {
		var h models.OrderStatusHistory
		if err := rows.Scan(&h.Status, &h.ChangedBy, &h.ChangedAt, &h.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

func scanMenuItem(row pgx.Row, item *models.MenuItem) error {
	return row.Scan(
		&item.ID, &item.Name, &item.Description, &item.Price, &item.ImageURL,
		&item.CategoryID, &item.Tags, &item.Available, &item.CreatedAt, &item.UpdatedAt,
	)
}

// HealthCheck reports whether the database is reachable
func (s *Service) HealthCheck(ctx context.Context) bool {
	return s.db.Ping(ctx) == nil
}
