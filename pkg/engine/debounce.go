package engine

import (
	"sync"
	"time"
)

// DefaultDebounceInterval is the minimum spacing between runs of the same
// operation.
const DefaultDebounceInterval = time.Second

// Debounce rate-limits operations by name. The host fires message events
// liberally (received, rendered, edited) and several of them can land for the
// same reply; only the first within the interval should reconcile.
type Debounce struct {
	mu       sync.Mutex
	last     map[string]time.Time
	interval time.Duration
	now      func() time.Time
}

// NewDebounce creates a guard with the given minimum interval. A non-positive
// interval falls back to DefaultDebounceInterval.
func NewDebounce(interval time.Duration) *Debounce {
	if interval <= 0 {
		interval = DefaultDebounceInterval
	}
	return &Debounce{
		last:     make(map[string]time.Time),
		interval: interval,
		now:      time.Now,
	}
}

// Allow reports whether op may run now, and records the run if so.
func (d *Debounce) Allow(op string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if prev, ok := d.last[op]; ok && now.Sub(prev) < d.interval {
		return false
	}
	d.last[op] = now
	return true
}

// Reset clears the recorded run for op so the next Allow succeeds.
func (d *Debounce) Reset(op string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.last, op)
}
