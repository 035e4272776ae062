package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Channel represents the availability of an item for one order type
type Channel struct {
	OrderTypeID int  `json:"order_type_id"`
	IsAvailable bool `json:"is_available"`
}

// MenuItem represents a catalog entry with its per-channel availability
type MenuItem struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	CategoryName string          `json:"category_name"`
	IsPublished  bool            `json:"is_published"`
	IsArchived   bool            `json:"is_archived"`
	Channels     []Channel       `json:"channels"`
	UpdatedAt    time.Time       `json:"-"`
}

// Orderable reports whether the item may be added to a cart at all
func (m MenuItem) Orderable() bool {
	return m.IsPublished && !m.IsArchived
}

// AvailableFor reports the channel flag for t. Items without a row for the
// channel are treated as available.
func (m MenuItem) AvailableFor(t OrderType) bool {
	for _, c := range m.Channels {
		if c.OrderTypeID == t.ID() {
			return c.IsAvailable
		}
	}
	return true
}

// PricePence returns the unit price in pence
func (m MenuItem) PricePence() Pence {
	return PenceFromDecimal(m.Price)
}

// ChannelStatus is the response body of a channel availability update
type ChannelStatus struct {
	ItemID      int64 `json:"item_id"`
	OrderTypeID int   `json:"order_type_id"`
	IsAvailable bool  `json:"is_available"`
}

// AddOn represents an optional extra that can be attached to an ordered item
type AddOn struct {
	ID    int64           `json:"add_on_id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// CreateMenuItemRequest represents the request to add a catalog item
type CreateMenuItemRequest struct {
	ItemName     string           `json:"item_name" validate:"required,max=100"`
	UnitCost     *decimal.Decimal `json:"unit_cost" validate:"required,gte=0"`
	CategoryName string           `json:"category_name" validate:"required,max=50"`
	IsPublished  *bool            `json:"is_published,omitempty"`
}

// UpdateMenuItemRequest represents a partial price/publish/archive update
type UpdateMenuItemRequest struct {
	UnitCost    *decimal.Decimal `json:"unit_cost,omitempty" validate:"omitempty,gte=0"`
	IsPublished *bool            `json:"is_published,omitempty"`
	IsArchived  *bool            `json:"is_archived,omitempty"`
}

// Empty reports whether the request changes nothing
func (r UpdateMenuItemRequest) Empty() bool {
	return r.UnitCost == nil && r.IsPublished == nil && r.IsArchived == nil
}

// UpdateChannelRequest represents a channel availability toggle
type UpdateChannelRequest struct {
	IsAvailable *bool `json:"is_available" validate:"required"`
}
