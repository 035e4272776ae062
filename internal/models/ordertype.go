package models

import (
	"fmt"
	"strings"
)

// OrderType represents the channel an order is placed through. It is shared
// by catalog channel availability and ordering.
type OrderType string

const (
	OrderTypeTakeaway OrderType = "takeaway"
	OrderTypeEatIn    OrderType = "eat_in"
)

// OrderTypes lists every channel in id order.
var OrderTypes = []OrderType{OrderTypeTakeaway, OrderTypeEatIn}

// ID returns the numeric id stored in menu_channel_statuses.order_type_id,
// or 0 for an unknown type.
func (t OrderType) ID() int {
	switch t {
	case OrderTypeTakeaway:
		return 1
	case OrderTypeEatIn:
		return 2
	default:
		return 0
	}
}

// Valid reports whether t is a known order type
func (t OrderType) Valid() bool {
	return t.ID() != 0
}

// HasServiceCharge reports whether orders of this type pay service
func (t OrderType) HasServiceCharge() bool {
	return t == OrderTypeEatIn
}

// Label returns a human readable channel name
func (t OrderType) Label() string {
	switch t {
	case OrderTypeTakeaway:
		return "Takeaway"
	case OrderTypeEatIn:
		return "Eat In"
	default:
		return string(t)
	}
}

// OrderTypeFromID maps a stored channel id back to its OrderType
func OrderTypeFromID(id int) (OrderType, error) {
	for _, t := range OrderTypes {
		if t.ID() == id {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown order type id %d", id)
}

// ParseOrderType validates a wire value
func ParseOrderType(s string) (OrderType, error) {
	t := OrderType(s)
	if !t.Valid() {
		return "", fmt.Errorf("order_type must be one of: takeaway, eat_in")
	}
	return t, nil
}

// ParseOrderTypes parses a comma separated list such as "takeaway,eat_in".
// An empty string yields nil, meaning every channel.
func ParseOrderTypes(list string) ([]OrderType, error) {
	if strings.TrimSpace(list) == "" {
		return nil, nil
	}

	var out []OrderType
	for _, part := range strings.Split(list, ",") {
		t, err := ParseOrderType(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// Includes reports whether t is in types. An empty list includes everything.
func Includes(types []OrderType, t OrderType) bool {
	if len(types) == 0 {
		return true
	}
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}
