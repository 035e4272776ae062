package till

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"bakery-pos/internal/models"
)

// MenuSource loads the catalog from the back office
type MenuSource interface {
	MenuItems(ctx context.Context) ([]models.MenuItem, error)
}

// Catalog caches the menu on the till. Refreshes may finish out of order;
// a response older than the last one applied is dropped.
type Catalog struct {
	mu      sync.RWMutex
	items   []models.MenuItem
	applied uint64
	issued  atomic.Uint64
}

func NewCatalog() *Catalog {
	return &Catalog{}
}

// Refresh loads the menu from src. It reports false when a newer refresh
// had already been applied.
func (c *Catalog) Refresh(ctx context.Context, src MenuSource) (bool, error) {
	seq := c.issued.Add(1)
	items, err := src.MenuItems(ctx)
	if err != nil {
		return false, err
	}
	return c.apply(seq, items), nil
}

func (c *Catalog) apply(seq uint64, items []models.MenuItem) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if seq <= c.applied {
		return false
	}
	c.applied = seq
	c.items = items
	return true
}

// Find returns the cached item with id
func (c *Catalog) Find(id int64) (models.MenuItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, it := range c.items {
		if it.ID == id {
			return it, true
		}
	}
	return models.MenuItem{}, false
}

// Orderable returns the items that can be sold on orderType grouped by
// category. An empty orderType ignores channel flags.
func (c *Catalog) Orderable(orderType models.OrderType) []models.MenuItem {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []models.MenuItem
	for _, it := range c.items {
		if !it.Orderable() {
			continue
		}
		if orderType != "" && !it.AvailableFor(orderType) {
			continue
		}
		out = append(out, it)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CategoryName != out[j].CategoryName {
			return out[i].CategoryName < out[j].CategoryName
		}
		return out[i].Name < out[j].Name
	})
	return out
}
