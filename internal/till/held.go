package till

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"bakery-pos/internal/models"
	"bakery-pos/internal/till/store"
)

var (
	ErrEmptyCart      = errors.New("cart is empty")
	ErrConfirmReplace = errors.New("active cart is not empty: confirm replacing it")
	ErrHeldNotFound   = errors.New("held order not found")
)

// HeldOrder is a parked cart waiting to be resumed
type HeldOrder struct {
	ID           string           `json:"id"`
	CustomerName string           `json:"customer_name,omitempty"`
	Cart         []CartEntry      `json:"cart"`
	OrderType    models.OrderType `json:"order_type,omitempty"`
	HeldAt       time.Time        `json:"held_at"`
	HeldBy       string           `json:"held_by"`
}

// ItemCount returns the number of units in the held cart
func (h HeldOrder) ItemCount() int {
	n := 0
	for _, e := range h.Cart {
		n += e.Quantity
	}
	return n
}

// HeldQueue is the device-local list of held orders, newest first. Every
// change rewrites the whole list in the store.
type HeldQueue struct {
	mu     sync.Mutex
	orders []HeldOrder
	store  store.Store
	clock  Clock
}

// LoadHeldQueue restores the queue saved in s
func LoadHeldQueue(s store.Store, clock Clock) (*HeldQueue, error) {
	q := &HeldQueue{store: s, clock: clock}
	if _, err := store.Load(s, store.KeyHeldOrders, &q.orders); err != nil {
		return nil, fmt.Errorf("load held orders: %w", err)
	}
	return q, nil
}

// List returns a copy of the queue
func (q *HeldQueue) List() []HeldOrder {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]HeldOrder(nil), q.orders...)
}

// Hold parks the contents of cart and clears it
func (q *HeldQueue) Hold(cart *Cart, customerName, staffName string) (*HeldOrder, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entries, orderType := cart.Snapshot()
	if len(entries) == 0 {
		return nil, ErrEmptyCart
	}

	held := HeldOrder{
		ID:           "HOLD-" + uuid.NewString(),
		CustomerName: customerName,
		Cart:         entries,
		OrderType:    orderType,
		HeldAt:       q.clock.Now().UTC(),
		HeldBy:       staffName,
	}
	next := append([]HeldOrder{held}, q.orders...)
	if err := q.persist(next); err != nil {
		return nil, err
	}

	cart.Clear()
	return &held, nil
}

// Resume replaces the active cart with a held order and removes it from the
// queue. A non-empty cart is only replaced when confirmReplace is set.
func (q *HeldQueue) Resume(id string, cart *Cart, confirmReplace bool) (*HeldOrder, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("%s: %w", id, ErrHeldNotFound)
	}
	if !cart.Empty() && !confirmReplace {
		return nil, ErrConfirmReplace
	}

	held := q.orders[i]
	if err := q.persist(without(q.orders, i)); err != nil {
		return nil, err
	}

	cart.Replace(held.Cart, held.OrderType)
	return &held, nil
}

// Discard removes a held order without resuming it
func (q *HeldQueue) Discard(id string) (*HeldOrder, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.indexOf(id)
	if i < 0 {
		return nil, fmt.Errorf("%s: %w", id, ErrHeldNotFound)
	}
	held := q.orders[i]
	if err := q.persist(without(q.orders, i)); err != nil {
		return nil, err
	}
	return &held, nil
}

func (q *HeldQueue) indexOf(id string) int {
	for i, h := range q.orders {
		if h.ID == id {
			return i
		}
	}
	return -1
}

// persist writes next and adopts it only once the write succeeded
func (q *HeldQueue) persist(next []HeldOrder) error {
	if err := store.Save(q.store, store.KeyHeldOrders, next); err != nil {
		return fmt.Errorf("save held orders: %w", err)
	}
	q.orders = next
	return nil
}

func without(orders []HeldOrder, i int) []HeldOrder {
	out := make([]HeldOrder, 0, len(orders)-1)
	out = append(out, orders[:i]...)
	return append(out, orders[i+1:]...)
}
