package till

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"bakery-pos/internal/models"
)

// fakeClock fires timers synchronously from Advance
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 18, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// Advance moves time forward, firing due timers in order
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *fakeTimer
		for _, t := range c.timers {
			if t.stopped || t.fired || t.at.After(target) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		next.fired = true
		if next.at.After(c.now) {
			c.now = next.at
		}
		c.mu.Unlock()

		next.f()
	}
}

// lastTimer returns the most recently scheduled timer
func (c *fakeClock) lastTimer() *fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timers[len(c.timers)-1]
}

func menuItem(id int64, name, price string) models.MenuItem {
	return models.MenuItem{
		ID:           id,
		Name:         name,
		Price:        decimal.RequireFromString(price),
		CategoryName: "Pastry",
		IsPublished:  true,
		Channels: []models.Channel{
			{OrderTypeID: 1, IsAvailable: true},
			{OrderTypeID: 2, IsAvailable: true},
		},
	}
}

var (
	croissant = menuItem(1, "Croissant", "2.50")
	flatWhite = menuItem(2, "Flat White", "1.80")
	sourdough = menuItem(3, "Sourdough Loaf", "4.20")
)

func rates(vat, service string) Rates {
	return Rates{VAT: decimal.RequireFromString(vat), Service: decimal.RequireFromString(service)}
}
