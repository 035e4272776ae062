package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TicketLine represents one line of a kitchen ticket
type TicketLine struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// OrderPaidMessage is published after an order has been committed
type OrderPaidMessage struct {
	OrderID       int64           `json:"order_id"`
	CustomerName  string          `json:"customer_name"`
	OrderType     OrderType       `json:"order_type"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	Total         decimal.Decimal `json:"total"`
	StaffName     string          `json:"staff_name"`
	Items         []TicketLine    `json:"items"`
	PaidAt        time.Time       `json:"paid_at"`
}

// NewOrderPaidMessage builds the event for a stored order
func NewOrderPaidMessage(o *Order) *OrderPaidMessage {
	msg := &OrderPaidMessage{
		OrderID:      o.ID,
		CustomerName: o.CustomerName,
		OrderType:    o.OrderType,
		StaffName:    o.CreatedBy,
		PaidAt:       o.PaidAt,
		Items:        make([]TicketLine, 0, len(o.Items)),
	}
	if o.Payment != nil {
		msg.PaymentMethod = o.Payment.Method
		msg.Total = o.Payment.Total
	}
	for _, it := range o.Items {
		msg.Items = append(msg.Items, TicketLine{Name: it.Name, Quantity: it.Quantity})
	}
	return msg
}

// OrderPaidRoutingKey returns the topic key for a paid order,
// e.g. order.paid.eat_in.
func OrderPaidRoutingKey(t OrderType) string {
	return "order.paid." + string(t)
}
