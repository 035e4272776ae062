package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// WasteEntry represents discarded stock. Name and category are snapshots so
// the entry survives later catalog changes.
type WasteEntry struct {
	ID           int64           `json:"id"`
	StaffID      int64           `json:"staff_id"`
	ItemID       *int64          `json:"item_id"`
	ItemName     string          `json:"item_name"`
	CategoryName string          `json:"category_name"`
	Quantity     int             `json:"qty"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
	RecordedBy   string          `json:"recorded_by"`
	RecordedAt   time.Time       `json:"recorded_at"`
}

// Cost returns quantity × unit cost
func (w WasteEntry) Cost() decimal.Decimal {
	return w.UnitCost.Mul(decimal.NewFromInt(int64(w.Quantity)))
}

// CreateWasteRequest represents the request to record waste
type CreateWasteRequest struct {
	StaffID      int64            `json:"staff_id" validate:"required,gt=0"`
	ItemID       *int64           `json:"item_id,omitempty" validate:"omitempty,gt=0"`
	ItemName     string           `json:"item_name" validate:"required,max=100"`
	CategoryName string           `json:"category_name" validate:"required,max=50"`
	Quantity     int              `json:"quantity" validate:"required,min=1"`
	UnitCost     *decimal.Decimal `json:"unit_cost" validate:"required,gte=0"`
}
