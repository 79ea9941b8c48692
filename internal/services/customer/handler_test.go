package customer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tableside/internal/cart"
	"tableside/internal/checkout"
	"tableside/internal/logger"
	"tableside/internal/models"
)

// fakeOrderStore backs PlaceOrder tests without a database
type fakeOrderStore struct {
	failCreate error
	created    []*models.Order
}

func (f *fakeOrderStore) GetTable(ctx context.Context, tableID string) (*models.Table, error) {
	if tableID == "T1" {
		return &models.Table{ID: "T1", Number: 1, Section: "Main", Seats: 4, Status: models.TableAvailable}, nil
	}
	return nil, checkout.ErrNotFound
}

func (f *fakeOrderStore) FindOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	return nil, checkout.ErrNotFound
}

func (f *fakeOrderStore) CreateOrder(ctx context.Context, order *models.Order, lines []models.OrderLine, idempotencyKey string) (*models.Order, error) {
	if f.failCreate != nil {
		return nil, f.failCreate
	}
	created := *order
	created.ID = len(f.created) + 1
	created.Number = models.GenerateOrderNumber(time.Now().UTC(), created.ID)
	created.Items = append([]models.OrderLine(nil), lines...)
	f.created = append(f.created, &created)
	return &created, nil
}

func newTestHandler(orders checkout.OrderStore) (*Handler, *cart.Store) {
	log := logger.New("test")
	carts := cart.NewStore()
	service := NewService(nil, carts, orders, nil, log)
	return NewHandler(service, log), carts
}

func withSession(req *http.Request) *http.Request {
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "test-session"})
	return req
}

func seedCart(t *testing.T, carts *cart.Store) {
	t.Helper()
	err := carts.Mutate("test-session", func(c *cart.Cart) error {
		c.SetTable("T1")
		if err := c.AddItem(models.MenuItem{ID: 1, Name: "Crispy Calamari", Price: 12.99}, 2, ""); err != nil {
			return err
		}
		return c.AddItem(models.MenuItem{ID: 5, Name: "Garlic Mashed Potatoes", Price: 5.99}, 1, "")
	})
	if err != nil {
		t.Fatalf("failed to seed cart: %v", err)
	}
}

func TestGetCart_EmptySession(t *testing.T) {
	handler, _ := newTestHandler(&fakeOrderStore{})
	mux := handler.SetupRoutes()

	req := withSession(httptest.NewRequest(http.MethodGet, "/cart", nil))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got cart.Cart
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.TotalItems != 0 || got.TotalPrice != 0 {
		t.Errorf("expected empty cart, got %+v", got)
	}
}

func TestUpdateCartItem_QuantityAndInstructions(t *testing.T) {
	handler, carts := newTestHandler(&fakeOrderStore{})
	mux := handler.SetupRoutes()
	seedCart(t, carts)

	body := strings.NewReader(`{"quantity": 4, "special_instructions": "extra crispy"}`)
	req := withSession(httptest.NewRequest(http.MethodPatch, "/cart/items/1", body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	snap := carts.Snapshot("test-session")
	if snap.Lines[0].Quantity != 4 || snap.Lines[0].SpecialInstructions != "extra crispy" {
		t.Errorf("update not applied: %+v", snap.Lines[0])
	}
	if snap.TotalItems != 5 {
		t.Errorf("totals not recomputed, got %d", snap.TotalItems)
	}
}

func TestUpdateCartItem_RejectsZeroQuantity(t *testing.T) {
	handler, carts := newTestHandler(&fakeOrderStore{})
	mux := handler.SetupRoutes()
	seedCart(t, carts)

	body := strings.NewReader(`{"quantity": 0}`)
	req := withSession(httptest.NewRequest(http.MethodPatch, "/cart/items/1", body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if snap := carts.Snapshot("test-session"); snap.Lines[0].Quantity != 2 {
		t.Errorf("rejected update must not change the cart, got quantity %d", snap.Lines[0].Quantity)
	}
}

func TestRemoveCartItem_AbsentSucceeds(t *testing.T) {
	handler, carts := newTestHandler(&fakeOrderStore{})
	mux := handler.SetupRoutes()
	seedCart(t, carts)

	req := withSession(httptest.NewRequest(http.MethodDelete, "/cart/items/999", nil))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for absent item, got %d", rec.Code)
	}
	if snap := carts.Snapshot("test-session"); snap.TotalItems != 3 {
		t.Errorf("absent removal changed totals: %d", snap.TotalItems)
	}
}

func TestClearCart_KeepsTable(t *testing.T) {
	handler, carts := newTestHandler(&fakeOrderStore{})
	mux := handler.SetupRoutes()
	seedCart(t, carts)

	req := withSession(httptest.NewRequest(http.MethodDelete, "/cart", nil))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	snap := carts.Snapshot("test-session")
	if !snap.IsEmpty() || snap.TableID != "T1" {
		t.Errorf("clear semantics violated: lines=%d table=%q", len(snap.Lines), snap.TableID)
	}
}

func TestPlaceOrder_Success(t *testing.T) {
	store := &fakeOrderStore{}
	handler, carts := newTestHandler(store)
	mux := handler.SetupRoutes()
	seedCart(t, carts)

	req := withSession(httptest.NewRequest(http.MethodPost, "/orders", nil))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var order models.Order
	if err := json.Unmarshal(rec.Body.Bytes(), &order); err != nil {
		t.Fatalf("failed to decode order: %v", err)
	}
	if order.Status != models.StatusConfirmed {
		t.Errorf("expected confirmed, got %s", order.Status)
	}
	if len(order.Items) != 2 {
		t.Errorf("expected 2 lines, got %d", len(order.Items))
	}
	if snap := carts.Snapshot("test-session"); !snap.IsEmpty() {
		t.Error("cart not emptied after placing order")
	}
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	handler, _ := newTestHandler(&fakeOrderStore{})
	mux := handler.SetupRoutes()

	req := withSession(httptest.NewRequest(http.MethodPost, "/orders", nil))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty cart, got %d", rec.Code)
	}
}

func TestResolveScan(t *testing.T) {
	handler, _ := newTestHandler(&fakeOrderStore{})
	mux := handler.SetupRoutes()

	body := strings.NewReader(`{"decoded": "https://tableside.example.com/menu/T7"}`)
	req := httptest.NewRequest(http.MethodPost, "/scan", body)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		TableID string `json:"table_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.TableID != "T7" {
		t.Errorf("expected table T7, got %q", resp.TableID)
	}
}

func TestWithLogging_PropagatesRequestID(t *testing.T) {
	handler, _ := newTestHandler(&fakeOrderStore{})

	var first, second string
	wrapped := handler.withLogging(func(w http.ResponseWriter, r *http.Request) {
		first = requestIDFrom(r.Context())
		second = requestIDFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	wrapped(rec, httptest.NewRequest(http.MethodGet, "/menu", nil))

	if first == "" {
		t.Fatal("request id missing from context")
	}
	if first != second {
		t.Errorf("request id not stable within a request: %q vs %q", first, second)
	}
}

func TestResolveScan_BadPayload(t *testing.T) {
	handler, _ := newTestHandler(&fakeOrderStore{})
	mux := handler.SetupRoutes()

	body := strings.NewReader(`{"decoded": "https://example.com/not/a/table"}`)
	req := httptest.NewRequest(http.MethodPost, "/scan", body)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
