package checkout

import (
	"context"
	"errors"

	"tableside/internal/models"
)

// ErrNotFound is returned by store lookups that match nothing
var ErrNotFound = errors.New("not found")

// OrderStore is the persistence boundary of the submission workflow. The
// workflow only depends on these operation shapes, never on the wire
// protocol behind them.
type OrderStore interface {
	// GetTable resolves a table record by its QR identifier
	GetTable(ctx context.Context, tableID string) (*models.Table, error)

	// FindOrderByIdempotencyKey returns the order previously created under
	// key, or ErrNotFound
	FindOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)

	// CreateOrder persists the order row and its line batch atomically and
	// returns the stored order with its database-assigned ID, number and
	// creation timestamp filled in. idempotencyKey may be empty.
	CreateOrder(ctx context.Context, order *models.Order, lines []models.OrderLine, idempotencyKey string) (*models.Order, error)
}
