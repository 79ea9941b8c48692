package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"tableside/internal/logger"
	"tableside/internal/models"
)

type requestIDKey struct{}

// requestIDFrom returns the request identifier minted by withLogging,
// generating a fresh one for callers outside the middleware.
func requestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return logger.GenerateRequestID()
}

// Handler exposes the staff HTTP API
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates an admin handler
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

// SetupRoutes sets up the HTTP routes
func (h *Handler) SetupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /categories", h.withLogging(h.ListCategories))
	mux.HandleFunc("POST /categories", h.withLogging(h.CreateCategory))
	mux.HandleFunc("PUT /categories/{id}", h.withLogging(h.UpdateCategory))
	mux.HandleFunc("DELETE /categories/{id}", h.withLogging(h.DeleteCategory))

	mux.HandleFunc("GET /menu-items", h.withLogging(h.ListMenuItems))
	mux.HandleFunc("POST /menu-items", h.withLogging(h.CreateMenuItem))
	mux.HandleFunc("PUT /menu-items/{id}", h.withLogging(h.UpdateMenuItem))
	mux.HandleFunc("DELETE /menu-items/{id}", h.withLogging(h.DeleteMenuItem))

	mux.HandleFunc("GET /tables", h.withLogging(h.ListTables))
	mux.HandleFunc("POST /tables", h.withLogging(h.CreateTable))
	mux.HandleFunc("PUT /tables/{id}", h.withLogging(h.UpdateTable))
	mux.HandleFunc("DELETE /tables/{id}", h.withLogging(h.DeleteTable))

	mux.HandleFunc("GET /orders", h.withLogging(h.ListOrders))
	mux.HandleFunc("PATCH /orders/{id}/status", h.withLogging(h.UpdateOrderStatus))

	mux.HandleFunc("GET /health", h.HealthCheck)

	return mux
}

// ListCategories handles GET /categories
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.logger.Error("db_query_failed", requestID, "Failed to list categories", err, nil)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}
	h.writeJSON(w, http.StatusOK, categories)
}

// CreateCategory handles POST /categories
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	var c models.Category
	if err := parseJSONBody(r, &c); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON format", requestID)
		return
	}
	if c.Name == "" {
		h.writeErrorResponse(w, http.StatusBadRequest, "Category name is required", requestID)
		return
	}

	if err := h.service.CreateCategory(r.Context(), &c); err != nil {
		h.logger.Error("db_query_failed", requestID, "Failed to create category", err, nil)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}
	h.writeJSON(w, http.StatusCreated, c)
}

// UpdateCategory handles PUT /categories/{id}
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid category identifier", requestID)
		return
	}

	var c models.Category
	if err := parseJSONBody(r, &c); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON format", requestID)
		return
	}
	c.ID = id
	if c.Name == "" {
		h.writeErrorResponse(w, http.StatusBadRequest, "Category name is required", requestID)
		return
	}

	if err := h.service.UpdateCategory(r.Context(), &c); err != nil {
		h.respondServiceError(w, err, "category", requestID)
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

// DeleteCategory handles DELETE /categories/{id}
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid category identifier", requestID)
		return
	}

	if err := h.service.DeleteCategory(r.Context(), id); err != nil {
		h.respondServiceError(w, err, "category", requestID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListMenuItems handles GET /menu-items
func (h *Handler) ListMenuItems(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	items, err := h.service.ListMenuItems(r.Context())
	if err != nil {
		h.logger.Error("db_query_failed", requestID, "Failed to list menu items", err, nil)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}
	h.writeJSON(w, http.StatusOK, items)
}

// CreateMenuItem handles POST /menu-items
func (h *Handler) CreateMenuItem(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	var item models.MenuItem
	if err := parseJSONBody(r, &item); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON format", requestID)
		return
	}
	if err := validateMenuItem(&item); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, err.Error(), requestID)
		return
	}

	if err := h.service.CreateMenuItem(r.Context(), &item); err != nil {
		h.logger.Error("db_query_failed", requestID, "Failed to create menu item", err, nil)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}
	h.writeJSON(w, http.StatusCreated, item)
}

// UpdateMenuItem handles PUT /menu-items/{id}
func (h *Handler) UpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid item identifier", requestID)
		return
	}

	var item models.MenuItem
	if err := parseJSONBody(r, &item); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON format", requestID)
		return
	}
	item.ID = id
	if err := validateMenuItem(&item); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, err.Error(), requestID)
		return
	}

	if err := h.service.UpdateMenuItem(r.Context(), &item); err != nil {
		h.respondServiceError(w, err, "menu item", requestID)
		return
	}
	h.writeJSON(w, http.StatusOK, item)
}

// DeleteMenuItem handles DELETE /menu-items/{id}
func (h *Handler) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid item identifier", requestID)
		return
	}

	if err := h.service.DeleteMenuItem(r.Context(), id); err != nil {
		h.respondServiceError(w, err, "menu item", requestID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTables handles GET /tables
func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	tables, err := h.service.ListTables(r.Context())
	if err != nil {
		h.logger.Error("db_query_failed", requestID, "Failed to list tables", err, nil)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}
	h.writeJSON(w, http.StatusOK, tables)
}

// CreateTable handles POST /tables
func (h *Handler) CreateTable(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	var t models.Table
	if err := parseJSONBody(r, &t); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON format", requestID)
		return
	}
	if err := validateTable(&t); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, err.Error(), requestID)
		return
	}

	if err := h.service.CreateTable(r.Context(), &t); err != nil {
		h.logger.Error("db_query_failed", requestID, "Failed to create table", err, nil)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}
	h.writeJSON(w, http.StatusCreated, t)
}

// UpdateTable handles PUT /tables/{id}
func (h *Handler) UpdateTable(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	var t models.Table
	if err := parseJSONBody(r, &t); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON format", requestID)
		return
	}
	t.ID = r.PathValue("id")
	if err := validateTable(&t); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, err.Error(), requestID)
		return
	}

	if err := h.service.UpdateTable(r.Context(), &t); err != nil {
		h.respondServiceError(w, err, "table", requestID)
		return
	}
	h.writeJSON(w, http.StatusOK, t)
}

// DeleteTable handles DELETE /tables/{id}
func (h *Handler) DeleteTable(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	if err := h.service.DeleteTable(r.Context(), r.PathValue("id")); err != nil {
		h.respondServiceError(w, err, "table", requestID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListOrders handles GET /orders with an optional ?status= filter
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	var status *models.OrderStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := models.OrderStatus(raw)
		if !s.Valid() {
			h.writeErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("Unknown status %q", raw), requestID)
			return
		}
		status = &s
	}

	orders, err := h.service.ListOrders(r.Context(), status)
	if err != nil {
		h.logger.Error("db_query_failed", requestID, "Failed to list orders", err, nil)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}
	h.writeJSON(w, http.StatusOK, orders)
}

// UpdateOrderStatus handles PATCH /orders/{id}/status
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	requestID := requestIDFrom(r.Context())

	orderID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid order identifier", requestID)
		return
	}

	var req struct {
		Status    string `json:"status"`
		ChangedBy string `json:"changed_by"`
	}
	if err := parseJSONBody(r, &req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid JSON format", requestID)
		return
	}

	target := models.OrderStatus(req.Status)
	if !target.Valid() {
		h.writeErrorResponse(w, http.StatusBadRequest, fmt.Sprintf("Unknown status %q", req.Status), requestID)
		return
	}
	changedBy := req.ChangedBy
	if changedBy == "" {
		changedBy = "admin-service"
	}

	order, err := h.service.UpdateOrderStatus(r.Context(), orderID, target, changedBy, requestID)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			h.writeErrorResponse(w, http.StatusNotFound, "Order not found", requestID)
		case errors.Is(err, ErrInvalidTransition):
			h.writeErrorResponse(w, http.StatusConflict, err.Error(), requestID)
		default:
			h.logger.Error("db_query_failed", requestID, "Failed to update order status", err, nil)
			h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
		}
		return
	}
	h.writeJSON(w, http.StatusOK, order)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	healthy := h.service.HealthCheck(r.Context())

	response := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "admin-service",
		"healthy":   healthy,
	}
	status := http.StatusOK
	if !healthy {
		response["status"] = "unhealthy"
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, response)
}

func validateMenuItem(item *models.MenuItem) error {
	if item.Name == "" {
		return errors.New("item name is required")
	}
	if item.Price <= 0 {
		return errors.New("item price must be positive")
	}
	return nil
}

func validateTable(t *models.Table) error {
	if t.ID == "" {
		return errors.New("table identifier is required")
	}
	if t.Seats < 1 {
		return errors.New("table must seat at least one guest")
	}
	if t.Status == "" {
		t.Status = models.TableAvailable
	} else if !models.ValidTableStatus(string(t.Status)) {
		return fmt.Errorf("unknown table status %q", t.Status)
	}
	return nil
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error, entity, requestID string) {
	if errors.Is(err, ErrNotFound) {
		h.writeErrorResponse(w, http.StatusNotFound, fmt.Sprintf("Unknown %s", entity), requestID)
		return
	}
	h.logger.Error("db_query_failed", requestID, fmt.Sprintf("Failed to modify %s", entity), err, nil)
	h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
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
			fmt.Sprintf("%s %s -> %d", r.Method, r.URL.Path, rw.statusCode),
			map[string]any{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      rw.statusCode,
				"duration_ms": time.Since(start).Milliseconds(),
			})
	}
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
