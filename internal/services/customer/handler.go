package customer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"tableside/internal/cart"
	"tableside/internal/checkout"
	"tableside/internal/logger"
	"tableside/internal/models"
	"tableside/internal/qrcode"
)

const sessionCookie = "tableside_session"

type requestIDKey struct{}

// requestIDFrom returns the request identifier minted by withLogging,
// generating a fresh one for callers outside the middleware.
func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return logger.GenerateRequestID()
}

// Handler exposes the customer HTTP API
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a customer handler
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

// SetupRoutes sets up the HTTP routes
func (h *Handler) SetupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /scan", h.withLogging(h.ResolveScan))
	mux.HandleFunc("GET /menu", h.withLogging(h.GetMenu))
	mux.HandleFunc("GET /tables/{id}", h.withLogging(h.GetTable))

	mux.HandleFunc("GET /cart", h.withLogging(h.GetCart))
	mux.HandleFunc("POST /cart/items", h.withLogging(h.AddCartItem))
	mux.HandleFunc("PATCH /cart/items/{id}", h.withLogging(h.UpdateCartItem))
	mux.HandleFunc("DELETE /cart/items/{id}", h.withLogging(h.RemoveCartItem))
	mux.HandleFunc("POST /cart/table", h.withLogging(h.SetCartTable))
	mux.HandleFunc("DELETE /cart", h.withLogging(h.ClearCart))

	mux.HandleFunc("POST /orders", h.withLogging(h.PlaceOrder))
	mux.HandleFunc("GET /orders/{id}", h.withLogging(h.GetOrder))

	mux.HandleFunc("GET /health", h.HealthCheck)

	return mux
}

// ResolveScan handles POST /scan: it maps a decoded QR payload to a table
func (h *Handler) ResolveScan(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	var req struct {
		Decoded string `json:"decoded"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON format", requestID)
		return
	}

	tableID := qrcode.TableIDFromScan(req.Decoded)
	if tableID == "" {
		h.writeErrorResponse(w, http.StatusBadRequest, "QR payload carries no table identifier", requestID)
		return
	}

	response := map[string]any{"table_id": tableID}

	// A directory miss degrades the display but still lets the diner proceed
	if table, err := h.service.GetTable(r.Context(), tableID); err == nil {
		response["table"] = table
	} else if errors.Is(err, ErrNotFound) {
		h.logger.Debug("table_lookup_miss", requestID,
			fmt.Sprintf("Scanned table %s not in directory", tableID),
			map[string]any{"table_id": tableID})
	} else {
		h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}

	h.writeJSON(w, http.StatusOK, response)
}

// GetMenu handles GET /menu with an optional ?category= filter
func (h *Handler) GetMenu(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	var categoryID *int
	if raw := r.URL.Query().Get("category"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			h.writeErrorResponse(w, http.StatusBadRequest, "Invalid category identifier", requestID)
			return
		}
		categoryID = &id
	}

	menu, err := h.service.GetMenu(r.Context(), categoryID)
	if err != nil {
		h.logger.Error("db_query_failed", requestID, "Failed to load menu", err, nil)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}

	h.writeJSON(w, http.StatusOK, menu)
}

// GetTable handles GET /tables/{id}
func (h *Handler) GetTable(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	table, err := h.service.GetTable(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeErrorResponse(w, http.StatusNotFound, "Table not found", requestID)
		} else {
			h.logger.Error("db_query_failed", requestID, "Failed to load table", err, nil)
			h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, table)
}

// GetCart handles GET /cart
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	sessionID := h.session(w, r)
	snapshot := h.service.carts.Snapshot(sessionID)
	h.writeJSON(w, http.StatusOK, snapshot)
}

// AddCartItem handles POST /cart/items
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())
	sessionID := h.session(w, r)

	var req struct {
		MenuItemID          int    `json:"menu_item_id"`
		Quantity            int    `json:"quantity"`
		SpecialInstructions string `json:"special_instructions"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON format", requestID)
		return
	}
	if req.Quantity < 1 {
		h.writeErrorResponse(w, http.StatusBadRequest, "Quantity must be at least 1", requestID)
		return
	}

	item, err := h.service.GetMenuItem(r.Context(), req.MenuItemID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeErrorResponse(w, http.StatusNotFound, "Menu item not found", requestID)
		} else {
			h.logger.Error("db_query_failed", requestID, "Failed to load menu item", err, nil)
			h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
		}
		return
	}
	if !item.Available {
		h.writeErrorResponse(w, http.StatusConflict, "Menu item is currently unavailable", requestID)
		return
	}

	err = h.service.carts.Mutate(sessionID, func(c *cart.Cart) error {
		return c.AddItem(*item, req.Quantity, req.SpecialInstructions)
	})
	if err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, err.Error(), requestID)
		return
	}

	h.writeJSON(w, http.StatusOK, h.service.carts.Snapshot(sessionID))
}

// UpdateCartItem handles PATCH /cart/items/{id}: quantity and/or instructions
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())
	sessionID := h.session(w, r)

	menuItemID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid item identifier", requestID)
		return
	}

	var req struct {
		Quantity            *int    `json:"quantity"`
		SpecialInstructions *string `json:"special_instructions"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON format", requestID)
		return
	}

	err = h.service.carts.Mutate(sessionID, func(c *cart.Cart) error {
		if req.Quantity != nil {
			if err := c.UpdateQuantity(menuItemID, *req.Quantity); err != nil {
				return err
			}
		}
		if req.SpecialInstructions != nil {
			c.UpdateInstructions(menuItemID, *req.SpecialInstructions)
		}
		return nil
	})
	if err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, err.Error(), requestID)
		return
	}

	h.writeJSON(w, http.StatusOK, h.service.carts.Snapshot(sessionID))
}

// RemoveCartItem handles DELETE /cart/items/{id}. Removing an absent line
// succeeds: the end state is the same.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())
	sessionID := h.session(w, r)

	menuItemID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid item identifier", requestID)
		return
	}

	h.service.carts.Mutate(sessionID, func(c *cart.Cart) error {
		c.RemoveItem(menuItemID)
		return nil
	})

	h.writeJSON(w, http.StatusOK, h.service.carts.Snapshot(sessionID))
}

// SetCartTable handles POST /cart/table
func (h *Handler) SetCartTable(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())
	sessionID := h.session(w, r)

	var req struct {
		TableID string `json:"table_id"`
	}
	if err := parseJSONBody(r, &req); err != nil || req.TableID == "" {
		h.writeErrorResponse(w, http.StatusBadRequest, "table_id is required", requestID)
		return
	}

	h.service.carts.Mutate(sessionID, func(c *cart.Cart) error {
		c.SetTable(req.TableID)
		return nil
	})

	h.writeJSON(w, http.StatusOK, h.service.carts.Snapshot(sessionID))
}

// ClearCart handles DELETE /cart. The table association survives so the
// diner can keep ordering.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sessionID := h.session(w, r)

	h.service.carts.Mutate(sessionID, func(c *cart.Cart) error {
		c.Clear()
		return nil
	})

	h.writeJSON(w, http.StatusOK, h.service.carts.Snapshot(sessionID))
}

// PlaceOrder handles POST /orders: it submits the session cart
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())
	sessionID := h.session(w, r)

	idempotencyKey := r.Header.Get("Idempotency-Key")
	wf := h.service.workflows.forSession(sessionID)

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	order, err := wf.Submit(ctx, h.service.carts, sessionID, idempotencyKey, requestID)
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrEmptyCart):
			h.writeErrorResponse(w, http.StatusBadRequest, "Cart is empty", requestID)
		case errors.Is(err, checkout.ErrSubmissionInProgress):
			h.writeErrorResponse(w, http.StatusConflict, "Submission already in progress", requestID)
		default:
			h.logger.Error("order_creation_failed", requestID, "Failed to create order", err, nil)
			h.writeErrorResponse(w, http.StatusInternalServerError,
				"Could not place the order, please try again", requestID)
		}
		return
	}

	h.publishConfirmation(ctx, order, requestID)
	h.writeJSON(w, http.StatusCreated, order)
}

// GetOrder handles GET /orders/{id}: the order status presentation
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	orderID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid order identifier", requestID)
		return
	}

	detail, err := h.service.GetOrderDetail(r.Context(), orderID, requestID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeErrorResponse(w, http.StatusNotFound, "Order not found", requestID)
		} else {
			h.logger.Error("db_query_failed", requestID, "Failed to load order", err, nil)
			h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
		}
		return
	}

	h.writeJSON(w, http.StatusOK, detail)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	healthy := h.service.HealthCheck(r.Context())

	response := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "customer-service",
		"healthy":   healthy,
	}
	status := http.StatusOK
	if !healthy {
		response["status"] = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, response)
}

func (h *Handler) publishConfirmation(ctx context.Context, order *models.Order, requestID string) {
	if h.service.publisher == nil {
		return
	}
	event := models.StatusUpdateMessage{
		OrderID:          order.ID,
		OrderNumber:      order.Number,
		TableID:          order.TableID,
		OldStatus:        models.StatusPending,
		NewStatus:        order.Status,
		ChangedBy:        "customer-service",
		Timestamp:        time.Now().UTC(),
		EstimatedReadyAt: order.EstimatedReadyAt,
	}
	if err := h.service.publisher.PublishStatusEvent(ctx, event); err != nil {
		// The order is already persisted; a lost event only delays displays
		h.logger.Error("event_publish_failed", requestID, "Failed to publish order confirmation", err,
			map[string]any{"order_id": order.ID})
	}
}

// session returns the session identifier, minting a cookie on first contact
func (h *Handler) session(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(sessionCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	sessionID := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sessionID
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("response_encoding_failed", "", "Failed to encode response", err, nil)
	}
}

func (h *Handler) writeErrorResponse(w http.ResponseWriter, statusCode int, message, requestID string) {
	h.writeJSON(w, statusCode, map[string]any{
		"error":      message,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"request_id": requestID,
	})
}

func parseJSONBody(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

// withLogging wraps a handler with request/response logging. It mints the
// request identifier once and carries it in the context, so the wrapped
// handler's entries correlate with request_started/request_completed.
func (h *Handler) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := logger.GenerateRequestID()
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, requestID))

		h.logger.Debug("request_started",
			requestID,
			fmt.Sprintf("%s %s", r.Method, r.URL.Path),
			map[string]any{
				"method":      r.Method,
				"path":        r.URL.Path,
				"remote_addr": r.RemoteAddr,
			})

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		h.logger.Debug("request_completed",
			requestID,
			fmt.Sprintf("%s %s - %d", r.Method, r.URL.Path, rw.statusCode),
			map[string]any{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status_code": rw.statusCode,
				"duration_ms": time.Since(start).Milliseconds(),
			})
	}
}

// responseWriter captures the status code for logging
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
