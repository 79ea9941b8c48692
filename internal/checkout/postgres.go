package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"tableside/internal/database"
	"tableside/internal/models"
)

// PostgresStore implements OrderStore on top of the shared pgx pool. The
// order row, line batch and initial status log entries are written in one
// transaction, so a failed line batch never leaves an orphaned order behind.
type PostgresStore struct {
	db *database.DB
}

// NewPostgresStore creates a PostgresStore
func NewPostgresStore(db *database.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// GetTable resolves a table record by its QR identifier
func (s *PostgresStore) GetTable(ctx context.Context, tableID string) (*models.Table, error) {
	var t models.Table
	err := s.db.QueryRow(ctx, database.GetTableByIDSQL, tableID).Scan(
		&t.ID, &t.Number, &t.Section, &t.Seats, &t.Status, &t.QRCode, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query table: %w", err)
	}
	return &t, nil
}

// FindOrderByIdempotencyKey returns the order previously created under key
func (s *PostgresStore) FindOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var o models.Order
	err := s.db.QueryRow(ctx, database.GetOrderByIdempotencyKeySQL, key).Scan(
		&o.ID, &o.Number, &o.TableID, &o.Status, &o.TotalPrice, &o.CreatedAt, &o.EstimatedReadyAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query order by idempotency key: %w", err)
	}

	lines, err := s.orderLines(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = lines
	return &o, nil
}

// CreateOrder writes the order row and its line batch in one transaction
func (s *PostgresStore) CreateOrder(ctx context.Context, order *models.Order, lines []models.OrderLine, idempotencyKey string) (*models.Order, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	number, err := nextOrderNumber(ctx, tx)
	if err != nil {
		return nil, err
	}

	var key *string
	if idempotencyKey != "" {
		key = &idempotencyKey
	}

	created := *order
	created.Number = number
	err = tx.QueryRow(ctx, database.InsertOrderSQL,
		number, order.TableID, order.Status, order.TotalPrice, key, order.EstimatedReadyAt,
	).Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	for _, line := range lines {
		_, err = tx.Exec(ctx, database.InsertOrderItemSQL,
			created.ID, line.MenuItemID, line.Name, line.Quantity, line.Price, line.SpecialInstructions)
		if err != nil {
			return nil, fmt.Errorf("failed to insert order line for item %d: %w", line.MenuItemID, err)
		}
	}

	// Log the submission as pending then confirmed so the history shows the
	// full progression from the start.
	for _, st := range []models.OrderStatus{models.StatusPending, models.StatusConfirmed} {
		_, err = tx.Exec(ctx, database.InsertOrderStatusLogSQL,
			created.ID, st, "customer-service", nil)
		if err != nil {
			return nil, fmt.Errorf("failed to insert status log: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	created.Items = make([]models.OrderLine, len(lines))
	copy(created.Items, lines)
	for i := range created.Items {
		created.Items[i].OrderID = created.ID
	}
	return &created, nil
}

func (s *PostgresStore) orderLines(ctx context.Context, orderID int) ([]models.OrderLine, error) {
	rows, err := s.db.Query(ctx, database.GetOrderItemsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order lines: %w", err)
	}
	defer rows.Close()

	var lines []models.OrderLine
	for rows.Next() {
		var l models.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.MenuItemID, &l.Name, &l.Quantity, &l.Price, &l.SpecialInstructions); err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func nextOrderNumber(ctx context.Context, tx pgx.Tx) (string, error) {
	today := time.Now().UTC()
	prefix := fmt.Sprintf("ORD_%s_%%", today.Format("20060102"))

	var sequence int
	if err := tx.QueryRow(ctx, database.GetNextOrderSequenceSQL, prefix).Scan(&sequence); err != nil {
		return "", fmt.Errorf("failed to compute order sequence: %w", err)
	}
	return models.GenerateOrderNumber(today, sequence), nil
}
