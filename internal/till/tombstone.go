package till

import "time"

// Tombstone holds one removed value for a fixed window so it can be
// restored. Burying a new value replaces the previous one.
type Tombstone[T any] struct {
	value     T
	deletedAt time.Time
	ttl       time.Duration
	set       bool
}

func NewTombstone[T any](ttl time.Duration) *Tombstone[T] {
	return &Tombstone[T]{ttl: ttl}
}

// Bury stores v as removed at now
func (t *Tombstone[T]) Bury(v T, now time.Time) {
	t.value = v
	t.deletedAt = now
	t.set = true
}

// Peek returns the buried value while the window is open
func (t *Tombstone[T]) Peek(now time.Time) (T, bool) {
	t.Sweep(now)
	return t.value, t.set
}

// Restore returns the buried value and empties the slot. It reports false
// once the window has passed.
func (t *Tombstone[T]) Restore(now time.Time) (T, bool) {
	v, ok := t.Peek(now)
	if ok {
		t.Clear()
	}
	return v, ok
}

// Sweep discards an expired value and reports whether it did
func (t *Tombstone[T]) Sweep(now time.Time) bool {
	if t.set && now.Sub(t.deletedAt) >= t.ttl {
		t.Clear()
		return true
	}
	return false
}

// Clear empties the slot
func (t *Tombstone[T]) Clear() {
	var zero T
	t.value = zero
	t.deletedAt = time.Time{}
	t.set = false
}
