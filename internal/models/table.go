package models

import "time"

// TableStatus is the occupancy state of a physical table
type TableStatus string

const (
	TableAvailable   TableStatus = "available"
	TableOccupied    TableStatus = "occupied"
	TableReserved    TableStatus = "reserved"
	TableMaintenance TableStatus = "maintenance"
)

// Table is one physical table; its ID is the opaque identifier encoded in
// the table's QR code.
type Table struct {
	ID        string      `json:"id"`
	Number    int         `json:"number"`
	Section   string      `json:"section"`
	Seats     int         `json:"seats"`
	Status    TableStatus `json:"status"`
	QRCode    *string     `json:"qr_code,omitempty"`
	CreatedAt time.Time   `json:"created_at,omitempty"`
	UpdatedAt time.Time   `json:"updated_at,omitempty"`
}

// ValidTableStatus reports whether s is a known table status
func ValidTableStatus(s string) bool {
	switch TableStatus(s) {
	case TableAvailable, TableOccupied, TableReserved, TableMaintenance:
		return true
	}
	return false
}
