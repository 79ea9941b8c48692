package models

import "time"

// StatusUpdateMessage is the event published to the status fanout exchange
// whenever an order's status changes.
type StatusUpdateMessage struct {
	OrderID          int         `json:"order_id"`
	OrderNumber      string      `json:"order_number"`
	TableID          string      `json:"table_id"`
	OldStatus        OrderStatus `json:"old_status"`
	NewStatus        OrderStatus `json:"new_status"`
	ChangedBy        string      `json:"changed_by"`
	Timestamp        time.Time   `json:"timestamp"`
	EstimatedReadyAt *time.Time  `json:"estimated_ready_at,omitempty"`
}
