package till

import (
	"sync"
	"time"

	"bakery-pos/internal/models"
)

// DefaultUndoWindow is how long a removed line can be restored
const DefaultUndoWindow = 3 * time.Second

// CartEntry is one line of the order being built. Item is a snapshot taken
// when the line was added.
type CartEntry struct {
	Item     models.MenuItem `json:"item"`
	Quantity int             `json:"qty"`
}

// removedEntry remembers where a line sat so undo puts it back in place
type removedEntry struct {
	entry CartEntry
	index int
}

// Cart is the working set of lines for one order. It is safe for use from
// the payment timers and the console at once.
type Cart struct {
	mu        sync.Mutex
	entries   []CartEntry
	orderType models.OrderType
	trash     *Tombstone[removedEntry]
	clock     Clock
}

func NewCart(clock Clock, undoWindow time.Duration) *Cart {
	if undoWindow <= 0 {
		undoWindow = DefaultUndoWindow
	}
	return &Cart{
		entries: []CartEntry{},
		trash:   NewTombstone[removedEntry](undoWindow),
		clock:   clock,
	}
}

func (c *Cart) indexOf(itemID int64) int {
	for i, e := range c.entries {
		if e.Item.ID == itemID {
			return i
		}
	}
	return -1
}

// Add puts one of item in the cart. Items that are unpublished, archived or
// switched off for the chosen order type are ignored.
func (c *Cart) Add(item models.MenuItem) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	c.trash.Sweep(now)

	if !item.Orderable() {
		return false
	}
	if c.orderType != "" && !item.AvailableFor(c.orderType) {
		return false
	}

	// A buried line for the same item would come back as a duplicate.
	if r, ok := c.trash.Peek(now); ok && r.entry.Item.ID == item.ID {
		c.trash.Clear()
	}

	if i := c.indexOf(item.ID); i >= 0 {
		c.entries[i].Quantity++
		return true
	}
	c.entries = append(c.entries, CartEntry{Item: item, Quantity: 1})
	return true
}

// SetQuantity overwrites the quantity of a line. Zero or less removes it.
func (c *Cart) SetQuantity(itemID int64, qty int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setQuantity(itemID, qty)
}

func (c *Cart) setQuantity(itemID int64, qty int) bool {
	c.trash.Sweep(c.clock.Now())

	i := c.indexOf(itemID)
	if i < 0 {
		return false
	}
	if qty <= 0 {
		return c.remove(i)
	}
	c.entries[i].Quantity = qty
	return true
}

// AdjustQuantity adds delta to a line's quantity
func (c *Cart) AdjustQuantity(itemID int64, delta int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(itemID)
	if i < 0 {
		return false
	}
	return c.setQuantity(itemID, c.entries[i].Quantity+delta)
}

// Remove takes a line out of the cart, keeping it for Undo during the undo
// window.
func (c *Cart) Remove(itemID int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.trash.Sweep(c.clock.Now())
	i := c.indexOf(itemID)
	if i < 0 {
		return false
	}
	return c.remove(i)
}

func (c *Cart) remove(i int) bool {
	c.trash.Bury(removedEntry{entry: c.entries[i], index: i}, c.clock.Now())
	c.entries = append(c.entries[:i], c.entries[i+1:]...)
	return true
}

// Undo restores the most recently removed line if the window is still open
func (c *Cart) Undo() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.trash.Restore(c.clock.Now())
	if !ok {
		return false
	}
	i := r.index
	if i > len(c.entries) {
		i = len(c.entries)
	}
	c.entries = append(c.entries, CartEntry{})
	copy(c.entries[i+1:], c.entries[i:])
	c.entries[i] = r.entry
	return true
}

// Pending returns the line that Undo would restore
func (c *Cart) Pending() (CartEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.trash.Peek(c.clock.Now())
	return r.entry, ok
}

// Entries returns a copy of the active lines
func (c *Cart) Entries() []CartEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.trash.Sweep(c.clock.Now())
	return append([]CartEntry(nil), c.entries...)
}

// Empty reports whether the cart has no active lines
func (c *Cart) Empty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries) == 0
}

// OrderType returns the chosen channel, or "" before one is chosen
func (c *Cart) OrderType() models.OrderType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.orderType
}

// SetOrderType chooses the channel. Lines already in the cart are kept.
func (c *Cart) SetOrderType(t models.OrderType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orderType = t
}

// Totals prices the active lines
func (c *Cart) Totals(rates Rates) Totals {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.trash.Sweep(c.clock.Now())
	return ComputeTotals(c.entries, rates, c.orderType)
}

// Snapshot returns the lines and order type together
func (c *Cart) Snapshot() ([]CartEntry, models.OrderType) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.trash.Sweep(c.clock.Now())
	return append([]CartEntry(nil), c.entries...), c.orderType
}

// Replace swaps in entries and orderType wholesale, dropping any undo slot
func (c *Cart) Replace(entries []CartEntry, orderType models.OrderType) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = append([]CartEntry{}, entries...)
	c.orderType = orderType
	c.trash.Clear()
}

// Clear empties the cart and forgets the order type
func (c *Cart) Clear() {
	c.Replace(nil, "")
}
