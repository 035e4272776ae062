package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the status of an order. Orders are only stored
// once paid, so no draft state exists server-side.
type OrderStatus string

const (
	StatusPaid OrderStatus = "paid"
)

// PaymentMethod represents how an order was paid
type PaymentMethod string

const (
	PaymentCard PaymentMethod = "card"
	PaymentCash PaymentMethod = "cash"
	PaymentQR   PaymentMethod = "qr"
)

// Valid reports whether m is a known payment method
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCard, PaymentCash, PaymentQR:
		return true
	default:
		return false
	}
}

// OrderedItem represents a line of a stored order. Name and price are
// joined from the catalog when read.
type OrderedItem struct {
	ItemID   int64           `json:"item_id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"qty"`
	AddOns   []AddOn         `json:"add_ons,omitempty"`
}

// Payment represents the payment breakdown of an order
type Payment struct {
	Total         decimal.Decimal `json:"total"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	VATAmount     decimal.Decimal `json:"vat_amount"`
	ServiceAmount decimal.Decimal `json:"service_amount"`
	Method        PaymentMethod   `json:"method"`
}

// Order represents a paid customer order
type Order struct {
	ID           int64         `json:"order_id"`
	CustomerName string        `json:"customer_name"`
	OrderType    OrderType     `json:"order_type"`
	Status       OrderStatus   `json:"status"`
	PaidAt       time.Time     `json:"paid_at"`
	CreatedAt    time.Time     `json:"created_at"`
	StaffID      int64         `json:"staff_id"`
	CreatedBy    string        `json:"created_by"`
	TableID      *int64        `json:"table_id,omitempty"`
	Items        []OrderedItem `json:"items"`
	Payment      *Payment      `json:"payment"`
}

// CreateOrderItem represents one requested line
type CreateOrderItem struct {
	ItemID   int64   `json:"item_id" validate:"required,gt=0"`
	Quantity int     `json:"quantity" validate:"required,min=1"`
	AddOnIDs []int64 `json:"add_on_ids,omitempty" validate:"omitempty,dive,gt=0"`
}

// CreateOrderRequest represents the request to store a completed order
type CreateOrderRequest struct {
	CustomerName  string            `json:"customer_name" validate:"required,max=100"`
	OrderType     OrderType         `json:"order_type" validate:"required,oneof=takeaway eat_in"`
	StaffID       int64             `json:"staff_id" validate:"required,gt=0"`
	PaymentMethod PaymentMethod     `json:"payment_method" validate:"required,oneof=card cash qr"`
	TableID       *int64            `json:"table_id,omitempty" validate:"omitempty,gt=0"`
	Total         *decimal.Decimal  `json:"total" validate:"required,gte=0"`
	Subtotal      *decimal.Decimal  `json:"subtotal" validate:"required,gte=0"`
	VATAmount     *decimal.Decimal  `json:"vat_amount" validate:"required,gte=0"`
	ServiceAmount *decimal.Decimal  `json:"service_amount" validate:"required,gte=0"`
	Items         []CreateOrderItem `json:"items" validate:"required,min=1,dive"`
}

// ReconciliationRequest represents an end-of-day cash count
type ReconciliationRequest struct {
	StaffID     int64            `json:"staff_id" validate:"required,gt=0"`
	CountedCash *decimal.Decimal `json:"counted_cash" validate:"required,gte=0"`
}

// Reconciliation compares expected cash takings with the counted drawer
type Reconciliation struct {
	Date         string          `json:"date"`
	CashOrders   int             `json:"cash_orders"`
	ExpectedCash decimal.Decimal `json:"expected_cash"`
	CountedCash  decimal.Decimal `json:"counted_cash"`
	Discrepancy  decimal.Decimal `json:"discrepancy"`
}
