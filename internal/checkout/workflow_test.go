package checkout

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"tableside/internal/cart"
	"tableside/internal/logger"
	"tableside/internal/models"
)

// fakeStore is a hand-written OrderStore double
type fakeStore struct {
	mu sync.Mutex

	tables map[string]*models.Table
	orders []*models.Order
	byKey  map[string]*models.Order

	failCreate  error
	createCalls int
	blockCreate chan struct{} // when set, CreateOrder waits until closed
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tables: map[string]*models.Table{
			"T1": {ID: "T1", Number: 1, Section: "Main", Seats: 4, Status: models.TableAvailable},
		},
		byKey: make(map[string]*models.Order),
	}
}

func (f *fakeStore) GetTable(ctx context.Context, tableID string) (*models.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tables[tableID]; ok {
		return t, nil
	}
	return nil, ErrNotFound
}

func (f *fakeStore) FindOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.byKey[key]; ok {
		return o, nil
	}
	return nil, ErrNotFound
}

func (f *fakeStore) CreateOrder(ctx context.Context, order *models.Order, lines []models.OrderLine, idempotencyKey string) (*models.Order, error) {
	if f.blockCreate != nil {
		<-f.blockCreate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.failCreate != nil {
		// Atomic write: on failure nothing is persisted
		return nil, f.failCreate
	}

	created := *order
	created.ID = len(f.orders) + 1
	created.Number = models.GenerateOrderNumber(time.Now().UTC(), created.ID)
	created.Items = append([]models.OrderLine(nil), lines...)
	f.orders = append(f.orders, &created)
	if idempotencyKey != "" {
		f.byKey[idempotencyKey] = &created
	}
	return &created, nil
}

const testSession = "session-1"

func seededCarts(t *testing.T) *cart.Store {
	t.Helper()
	carts := cart.NewStore()
	err := carts.Mutate(testSession, func(c *cart.Cart) error {
		c.SetTable("T1")
		if err := c.AddItem(models.MenuItem{ID: 1, Name: "Crispy Calamari", Price: 12.99}, 2, ""); err != nil {
			return err
		}
		return c.AddItem(models.MenuItem{ID: 5, Name: "Garlic Mashed Potatoes", Price: 5.99}, 1, "no butter")
	})
	if err != nil {
		t.Fatalf("failed to seed cart: %v", err)
	}
	return carts
}

func TestSubmit_Success(t *testing.T) {
	store := newFakeStore()
	wf := NewWorkflow(store, logger.New("test"))
	carts := seededCarts(t)

	order, err := wf.Submit(context.Background(), carts, testSession, "", "req-1")
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	if order.Status != models.StatusConfirmed {
		t.Errorf("expected status confirmed, got %s", order.Status)
	}
	if math.Abs(order.TotalPrice-31.97) > 1e-9 {
		t.Errorf("expected total price 31.97, got %.2f", order.TotalPrice)
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected 2 order lines, got %d", len(order.Items))
	}
	if order.Items[0].Quantity != 2 || math.Abs(order.Items[0].Price-12.99) > 1e-9 {
		t.Errorf("line 0 mismatch: %+v", order.Items[0])
	}
	if order.Items[1].Quantity != 1 || math.Abs(order.Items[1].Price-5.99) > 1e-9 {
		t.Errorf("line 1 mismatch: %+v", order.Items[1])
	}
	if order.Items[1].SpecialInstructions == nil || *order.Items[1].SpecialInstructions != "no butter" {
		t.Errorf("instructions not carried to order line: %+v", order.Items[1])
	}
	if order.EstimatedReadyAt == nil {
		t.Error("expected estimated ready timestamp to be set")
	}

	// Successful submission fully resets the cart, table included
	if got := carts.Snapshot(testSession); !got.IsEmpty() || got.TableID != "" {
		t.Errorf("cart not reset after submission: lines=%d table=%q", len(got.Lines), got.TableID)
	}
	if wf.State() != StateSucceeded {
		t.Errorf("expected state succeeded, got %s", wf.State())
	}
}

func TestSubmit_EmptyCartIsNoop(t *testing.T) {
	store := newFakeStore()
	wf := NewWorkflow(store, logger.New("test"))

	_, err := wf.Submit(context.Background(), cart.NewStore(), testSession, "", "req-1")
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
	if store.createCalls != 0 {
		t.Errorf("empty cart must not reach the store, got %d calls", store.createCalls)
	}
	if wf.State() != StateIdle {
		t.Errorf("workflow must stay idle, got %s", wf.State())
	}
}

func TestSubmit_PersistenceFailureLeavesCartUntouched(t *testing.T) {
	store := newFakeStore()
	store.failCreate = errors.New("connection reset")
	wf := NewWorkflow(store, logger.New("test"))
	carts := seededCarts(t)

	_, err := wf.Submit(context.Background(), carts, testSession, "", "req-1")
	if err == nil {
		t.Fatal("expected submission error")
	}

	got := carts.Snapshot(testSession)
	if got.IsEmpty() || got.TableID != "T1" || got.TotalItems != 3 {
		t.Errorf("failed submission must not touch the cart: lines=%d table=%q items=%d",
			len(got.Lines), got.TableID, got.TotalItems)
	}
	if len(store.orders) != 0 {
		t.Errorf("atomic write must leave no partial order, found %d", len(store.orders))
	}
	if wf.State() != StateFailed {
		t.Errorf("expected state failed, got %s", wf.State())
	}

	// A fresh attempt after failure is allowed and succeeds
	store.failCreate = nil
	if _, err := wf.Submit(context.Background(), carts, testSession, "", "req-2"); err != nil {
		t.Fatalf("retry after failure returned error: %v", err)
	}
	if got := carts.Snapshot(testSession); !got.IsEmpty() {
		t.Error("cart not cleared after successful retry")
	}
}

func TestSubmit_UnknownTableProceedsBestEffort(t *testing.T) {
	store := newFakeStore()
	wf := NewWorkflow(store, logger.New("test"))
	carts := seededCarts(t)
	carts.Mutate(testSession, func(c *cart.Cart) error {
		c.SetTable("T99")
		return nil
	})

	order, err := wf.Submit(context.Background(), carts, testSession, "", "req-1")
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if order.TableID != "T99" {
		t.Errorf("expected raw table identifier carried through, got %q", order.TableID)
	}
}

func TestSubmit_RejectsReentrantSubmission(t *testing.T) {
	store := newFakeStore()
	store.blockCreate = make(chan struct{})
	wf := NewWorkflow(store, logger.New("test"))
	carts := seededCarts(t)

	firstDone := make(chan error, 1)
	go func() {
		_, err := wf.Submit(context.Background(), carts, testSession, "", "req-1")
		firstDone <- err
	}()

	// Wait until the first submission is inside the store call
	for wf.State() != StateSubmitting {
		time.Sleep(time.Millisecond)
	}

	_, err := wf.Submit(context.Background(), carts, testSession, "", "req-2")
	if !errors.Is(err, ErrSubmissionInProgress) {
		t.Fatalf("expected ErrSubmissionInProgress, got %v", err)
	}

	close(store.blockCreate)
	if err := <-firstDone; err != nil {
		t.Fatalf("first submission failed: %v", err)
	}
	if store.createCalls != 1 {
		t.Errorf("expected exactly one store call, got %d", store.createCalls)
	}
}

func TestSubmit_IdempotentRetryReturnsExistingOrder(t *testing.T) {
	store := newFakeStore()
	wf := NewWorkflow(store, logger.New("test"))

	first, err := wf.Submit(context.Background(), seededCarts(t), testSession, "key-1", "req-1")
	if err != nil {
		t.Fatalf("first submission failed: %v", err)
	}

	retry, err := wf.Submit(context.Background(), seededCarts(t), testSession, "key-1", "req-2")
	if err != nil {
		t.Fatalf("idempotent retry failed: %v", err)
	}
	if retry.ID != first.ID {
		t.Errorf("retry created a duplicate order: %d != %d", retry.ID, first.ID)
	}
	if len(store.orders) != 1 {
		t.Errorf("expected a single persisted order, got %d", len(store.orders))
	}
}

// Submission reads a locked snapshot and resets under the store lock, so
// cart mutations racing the submit never corrupt the written order.
func TestSubmit_ConcurrentCartMutationStaysConsistent(t *testing.T) {
	store := newFakeStore()
	wf := NewWorkflow(store, logger.New("test"))
	carts := seededCarts(t)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			carts.Mutate(testSession, func(c *cart.Cart) error {
				return c.AddItem(models.MenuItem{ID: 7, Name: "Iced Tea", Price: 2.99}, 1, "")
			})
		}
	}()

	order, err := wf.Submit(context.Background(), carts, testSession, "", "req-1")
	<-done
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	// The order must reflect one coherent cart state: its total equals the
	// sum of its own lines, whichever snapshot the submission saw.
	sum := 0.0
	for _, l := range order.Items {
		sum += l.Price * float64(l.Quantity)
	}
	if math.Abs(order.TotalPrice-sum) > 1e-9 {
		t.Errorf("order total %.2f does not match its lines (%.2f)", order.TotalPrice, sum)
	}
}
