package live

import (
	"sync"
	"time"
)

// Position is a rider's last reported location on an order.
type Position struct {
	OrderID string    `json:"order_id"`
	RiderID string    `json:"rider_id,omitempty"`
	Lat     float64   `json:"lat"`
	Lng     float64   `json:"lng"`
	At      time.Time `json:"at"`
}

// Tracker keeps the last known rider position per order, per vendor.
type Tracker struct {
	mu        sync.RWMutex
	positions map[string]map[string]Position
	maxAge    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewTracker returns a Tracker that hides positions older than maxAge and
// drops them on a later Update. A zero maxAge keeps positions until Forget.
func NewTracker(maxAge time.Duration) *Tracker {
	return &Tracker{
		positions: make(map[string]map[string]Position),
		maxAge:    maxAge,
		now:       time.Now,
	}
}

// Update records p, stamping it with the current time when At is zero, and
// returns p with that timestamp. A frame older than the stored one is dropped.
func (t *Tracker) Update(vendorID string, p Position) Position {
	if p.At.IsZero() {
		p.At = t.now()
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sweepLocked()

	orders := t.positions[vendorID]
	if orders == nil {
		orders = make(map[string]Position)
		t.positions[vendorID] = orders
	}
	// Out-of-order frames must not move the rider backwards.
	if prev, ok := orders[p.OrderID]; ok && prev.At.After(p.At) {
		return p
	}
	orders[p.OrderID] = p
	return p
}

func (t *Tracker) Last(vendorID, orderID string) (Position, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, ok := t.positions[vendorID][orderID]
	if !ok {
		return Position{}, false
	}
	if t.maxAge > 0 && t.now().Sub(p.At) > t.maxAge {
		return Position{}, false
	}
	return p, true
}

// Forget drops an order, typically once it reaches a final status.
func (t *Tracker) Forget(vendorID, orderID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	orders := t.positions[vendorID]
	delete(orders, orderID)
	if len(orders) == 0 {
		delete(t.positions, vendorID)
	}
}

// Len returns the number of stored positions across all vendors.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, orders := range t.positions {
		n += len(orders)
	}
	return n
}

func (t *Tracker) sweepLocked() {
	now := t.now()
	if t.maxAge <= 0 || now.Sub(t.lastSweep) < t.maxAge/4 {
		return
	}
	t.lastSweep = now
	for vendorID, orders := range t.positions {
		for orderID, p := range orders {
			if now.Sub(p.At) > t.maxAge {
				delete(orders, orderID)
			}
		}
		if len(orders) == 0 {
			delete(t.positions, vendorID)
		}
	}
}
