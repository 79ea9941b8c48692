package models

import "time"

// Category groups menu items on the customer menu
type Category struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// MenuItem is one orderable item from the catalog. It is read-only from the
// customer's perspective; the admin area owns mutation.
type MenuItem struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Price       float64   `json:"price"`
	ImageURL    *string   `json:"image_url,omitempty"`
	CategoryID  *int      `json:"category_id,omitempty"`
	Tags        []string  `json:"tags"`
	Available   bool      `json:"available"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}
