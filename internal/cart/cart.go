// Package cart implements the per-session cart state machine: line items
// keyed by menu item, with totals recomputed after every structural change.
package cart

import (
	"errors"

	"tableside/internal/models"
)

// ErrInvalidQuantity is returned when a mutation would leave a line with a
// quantity below one.
var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// Line is one menu item's accumulated selection within a cart. Name and
// Price are copied from the catalog at add time.
type Line struct {
	MenuItemID          int     `json:"menu_item_id"`
	Name                string  `json:"name"`
	Price               float64 `json:"price"`
	Quantity            int     `json:"quantity"`
	SpecialInstructions string  `json:"special_instructions,omitempty"`
}

// Cart holds a session's selections. The zero value is an empty cart.
// A cart is owned by a single session and is not safe for concurrent use;
// Store serializes access per session.
type Cart struct {
	Lines      []Line  `json:"items"`
	TableID    string  `json:"table_id,omitempty"`
	TotalItems int     `json:"total_items"`
	TotalPrice float64 `json:"total_price"`
}

// AddItem merges quantity into an existing line for the same menu item, or
// appends a new line. Newly supplied instructions replace the previous ones
// only when non-empty.
func (c *Cart) AddItem(item models.MenuItem, quantity int, instructions string) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	for i := range c.Lines {
		if c.Lines[i].MenuItemID == item.ID {
			c.Lines[i].Quantity += quantity
			if instructions != "" {
				c.Lines[i].SpecialInstructions = instructions
			}
			c.recompute()
			return nil
		}
	}

	c.Lines = append(c.Lines, Line{
		MenuItemID:          item.ID,
		Name:                item.Name,
		Price:               item.Price,
		Quantity:            quantity,
		SpecialInstructions: instructions,
	})
	c.recompute()
	return nil
}

// RemoveItem deletes the line for menuItemID. Removing an absent item is a
// no-op, not an error.
func (c *Cart) RemoveItem(menuItemID int) {
	for i := range c.Lines {
		if c.Lines[i].MenuItemID == menuItemID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			c.recompute()
			return
		}
	}
}

// UpdateQuantity replaces the quantity of the line for menuItemID. A missing
// line is a no-op.
func (c *Cart) UpdateQuantity(menuItemID, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	for i := range c.Lines {
		if c.Lines[i].MenuItemID == menuItemID {
			c.Lines[i].Quantity = quantity
			c.recompute()
			return nil
		}
	}
	return nil
}

// UpdateInstructions replaces the special instructions of the line for
// menuItemID. Totals are never affected. A missing line is a no-op.
func (c *Cart) UpdateInstructions(menuItemID int, instructions string) {
	for i := range c.Lines {
		if c.Lines[i].MenuItemID == menuItemID {
			c.Lines[i].SpecialInstructions = instructions
			return
		}
	}
}

// Clear empties the lines and zeroes the totals. The table association is
// kept so the diner can keep ordering from the same table.
func (c *Cart) Clear() {
	c.Lines = nil
	c.recompute()
}

// Reset empties the cart completely, including the table association. Used
// after a successful order submission.
func (c *Cart) Reset() {
	c.Lines = nil
	c.TableID = ""
	c.recompute()
}

// SetTable associates the cart with a table identifier
func (c *Cart) SetTable(tableID string) {
	c.TableID = tableID
}

// IsEmpty reports whether the cart has no lines
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// recompute derives both aggregates from the line slice. Totals are never
// patched incrementally.
func (c *Cart) recompute() {
	totalItems := 0
	totalPrice := 0.0
	for _, line := range c.Lines {
		totalItems += line.Quantity
		totalPrice += line.Price * float64(line.Quantity)
	}
	c.TotalItems = totalItems
	c.TotalPrice = totalPrice
}
