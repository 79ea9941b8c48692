// Package checkout implements the order submission workflow: it converts a
// session cart into a persisted order plus its line batch.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"tableside/internal/cart"
	"tableside/internal/logger"
	"tableside/internal/models"
)

// State is the submission workflow state
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// EstimatedReadyOffset is added to the submission time to produce the
// estimated-ready timestamp.
const EstimatedReadyOffset = 20 * time.Minute

var (
	// ErrEmptyCart guards submission of a cart with no lines
	ErrEmptyCart = errors.New("cart is empty")

	// ErrSubmissionInProgress rejects re-entrant submission attempts
	ErrSubmissionInProgress = errors.New("submission already in progress")
)

// Workflow owns one session's submission sequence. Submit runs the two-step
// write through the store; the store makes it atomic.
type Workflow struct {
	store  OrderStore
	logger *logger.Logger

	mu    sync.Mutex
	state State
}

// NewWorkflow creates a workflow in the Idle state
func NewWorkflow(store OrderStore, log *logger.Logger) *Workflow {
	return &Workflow{
		store:  store,
		logger: log,
		state:  StateIdle,
	}
}

// State returns the current workflow state
func (w *Workflow) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Submit persists the session's cart as an order. The cart is read as a
// locked snapshot and, on success, fully reset under the store lock, so a
// concurrent cart mutation from the same session never races the write. On
// failure the cart is left untouched so the diner can retry.
//
// idempotencyKey, when non-empty, deduplicates retries of the same
// submission: the order already created under that key is returned instead
// of a duplicate.
func (w *Workflow) Submit(ctx context.Context, carts *cart.Store, sessionID, idempotencyKey, requestID string) (*models.Order, error) {
	snapshot := carts.Snapshot(sessionID)
	if snapshot.IsEmpty() {
		// Submission of an empty cart is a no-op; the workflow stays idle.
		return nil, ErrEmptyCart
	}

	w.mu.Lock()
	if w.state == StateSubmitting {
		w.mu.Unlock()
		return nil, ErrSubmissionInProgress
	}
	w.state = StateSubmitting
	w.mu.Unlock()

	order, err := w.submit(ctx, carts, sessionID, &snapshot, idempotencyKey, requestID)

	w.mu.Lock()
	if err != nil {
		w.state = StateFailed
	} else {
		w.state = StateSucceeded
	}
	w.mu.Unlock()

	return order, err
}

func (w *Workflow) submit(ctx context.Context, carts *cart.Store, sessionID string, c *cart.Cart, idempotencyKey, requestID string) (*models.Order, error) {
	if idempotencyKey != "" {
		existing, err := w.store.FindOrderByIdempotencyKey(ctx, idempotencyKey)
		if err == nil {
			w.logger.Info("order_deduplicated", requestID,
				fmt.Sprintf("Returning existing order %s for idempotency key", existing.Number),
				map[string]any{"order_id": existing.ID, "order_number": existing.Number})
			resetCart(carts, sessionID)
			return existing, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("failed to check idempotency key: %w", err)
		}
	}

	// Table resolution is best-effort: a miss degrades the display but never
	// blocks the order.
	tableID := c.TableID
	if tableID != "" {
		if _, err := w.store.GetTable(ctx, tableID); err != nil {
			w.logger.Error("table_lookup_failed", requestID,
				fmt.Sprintf("Could not resolve table %s, proceeding with raw identifier", tableID),
				err, map[string]any{"table_id": tableID})
		}
	}

	now := time.Now().UTC()
	readyAt := now.Add(EstimatedReadyOffset)

	order := &models.Order{
		TableID:          tableID,
		Status:           models.StatusConfirmed,
		TotalPrice:       c.TotalPrice,
		EstimatedReadyAt: &readyAt,
	}

	lines := make([]models.OrderLine, 0, len(c.Lines))
	for _, l := range c.Lines {
		var instructions *string
		if l.SpecialInstructions != "" {
			s := l.SpecialInstructions
			instructions = &s
		}
		lines = append(lines, models.OrderLine{
			MenuItemID:          l.MenuItemID,
			Name:                l.Name,
			Quantity:            l.Quantity,
			Price:               l.Price,
			SpecialInstructions: instructions,
		})
	}

	created, err := w.store.CreateOrder(ctx, order, lines, idempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("failed to persist order: %w", err)
	}

	w.logger.Info("order_created", requestID,
		fmt.Sprintf("Order %s created for table %s", created.Number, tableID),
		map[string]any{
			"order_id":     created.ID,
			"order_number": created.Number,
			"table_id":     tableID,
			"total_price":  created.TotalPrice,
			"line_count":   len(lines),
		})

	resetCart(carts, sessionID)
	return created, nil
}

// resetCart clears the session's cart under the store lock
func resetCart(carts *cart.Store, sessionID string) {
	carts.Mutate(sessionID, func(c *cart.Cart) error {
		c.Reset()
		return nil
	})
}
