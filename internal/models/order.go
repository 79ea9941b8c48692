package models

import (
	"fmt"
	"time"
)

// OrderStatus is the lifecycle state of a placed order
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// statusSequence is the canonical forward progression. cancelled sits outside
// the sequence and is reachable from any non-terminal state.
var statusSequence = []OrderStatus{
	StatusPending,
	StatusConfirmed,
	StatusPreparing,
	StatusReady,
	StatusDelivered,
}

// Valid reports whether s is a known order status
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusReady, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions are possible
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Next returns the next status along the forward sequence. The second return
// is false when s is terminal or unknown.
func (s OrderStatus) Next() (OrderStatus, bool) {
	if s.IsTerminal() {
		return s, false
	}
	for i, st := range statusSequence {
		if st == s && i < len(statusSequence)-1 {
			return statusSequence[i+1], true
		}
	}
	return s, false
}

// CanTransitionTo reports whether moving from s to target is allowed: one
// step forward, or to cancelled from any non-terminal state.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	if s.IsTerminal() || !target.Valid() {
		return false
	}
	if target == StatusCancelled {
		return true
	}
	next, ok := s.Next()
	return ok && next == target
}

// Order is a placed order. ID is assigned by the database on insert; Number
// is the human-facing ORD_YYYYMMDD_NNN identifier.
type Order struct {
	ID               int         `json:"id"`
	Number           string      `json:"number"`
	TableID          string      `json:"table_id"`
	Status           OrderStatus `json:"status"`
	TotalPrice       float64     `json:"total_price"`
	CreatedAt        time.Time   `json:"created_at"`
	EstimatedReadyAt *time.Time  `json:"estimated_ready_at,omitempty"`
	Items            []OrderLine `json:"items,omitempty"`
}

// OrderLine is the persisted record of one menu item within a placed order.
// Name and Price are snapshots taken at order time.
type OrderLine struct {
	ID                  int     `json:"id,omitempty"`
	OrderID             int     `json:"order_id,omitempty"`
	MenuItemID          int     `json:"menu_item_id"`
	Name                string  `json:"name"`
	Quantity            int     `json:"quantity"`
	Price               float64 `json:"price"`
	SpecialInstructions *string `json:"special_instructions,omitempty"`
}

// OrderStatusHistory is one entry of the append-only status log
type OrderStatusHistory struct {
	Status    OrderStatus `json:"status"`
	ChangedBy string      `json:"changed_by"`
	ChangedAt time.Time   `json:"timestamp"`
	Notes     *string     `json:"notes,omitempty"`
}

// OrderDetailResponse is the order status presentation payload
type OrderDetailResponse struct {
	Order   Order                `json:"order"`
	Table   *Table               `json:"table,omitempty"`
	History []OrderStatusHistory `json:"history,omitempty"`
}

// GenerateOrderNumber formats an order number as ORD_YYYYMMDD_NNN
func GenerateOrderNumber(date time.Time, sequence int) string {
	return fmt.Sprintf("ORD_%s_%03d", date.Format("20060102"), sequence)
}
