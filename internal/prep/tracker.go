package prep

import (
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"cafe-board-backend/internal/channel"
	"cafe-board-backend/internal/model"
)

// Emitter is the outbound slice of the live update channel.
type Emitter interface {
	Emit(event string, payload any)
	Connected() bool
}

// Tracker keeps the advisory per-order, per-item "prepared" flags. Flags are
// keyed by item index, since items have no id of their own and the backend
// never reorders them. There is no authoritative server copy: local toggles
// win immediately, remote updates overwrite unconditionally, and two staff
// toggling the same item near-simultaneously settle on whichever event
// arrives last.
//
// Flags live in an expiring cache so entries for orders that left the board
// long ago age out on their own.
type Tracker struct {
	mu      sync.Mutex
	flags   *gocache.Cache
	emitter Emitter
}

// PreparedItem pairs an order item with its position and prepared flag.
type PreparedItem struct {
	Index    int  `json:"index"`
	Prepared bool `json:"prepared"`
	model.OrderItem
}

// NewTracker creates a tracker whose flags expire after ttl. emitter may be
// nil for a board with no live channel.
func NewTracker(emitter Emitter, ttl time.Duration) *Tracker {
	return &Tracker{
		flags:   gocache.New(ttl, 10*time.Minute),
		emitter: emitter,
	}
}

// get returns a mutable copy of the flag map for an order.
func (t *Tracker) get(orderID string) map[int]bool {
	m := make(map[int]bool)
	if v, found := t.flags.Get(orderID); found {
		for k, b := range v.(map[int]bool) {
			m[k] = b
		}
	}
	return m
}

// Toggle flips the local flag for (orderID, itemIndex) and returns the new
// value. The flip always applies locally; the echo to other screens is sent
// only while the channel is connected, and a disconnected channel means the
// echo is skipped entirely: no queue, no retry, no error.
func (t *Tracker) Toggle(orderID string, itemIndex int) bool {
	t.mu.Lock()
	m := t.get(orderID)
	next := !m[itemIndex]
	m[itemIndex] = next
	t.flags.Set(orderID, m, gocache.DefaultExpiration)
	t.mu.Unlock()

	if t.emitter != nil && t.emitter.Connected() {
		t.emitter.Emit(channel.EventItemPreparationToggle, channel.PreparationUpdate{
			OrderID:    orderID,
			ItemIndex:  itemIndex,
			IsPrepared: next,
		})
	}
	return next
}

// ApplyRemote overwrites the local flag with a value pushed from another
// staff screen. Last writer wins; there is no version reconciliation.
func (t *Tracker) ApplyRemote(u channel.PreparationUpdate) {
	t.mu.Lock()
	defer t.mu.Unlock()
	m := t.get(u.OrderID)
	m[u.ItemIndex] = u.IsPrepared
	t.flags.Set(u.OrderID, m, gocache.DefaultExpiration)
}

// Prepared returns the flag for a single item.
func (t *Tracker) Prepared(orderID string, itemIndex int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if v, found := t.flags.Get(orderID); found {
		return v.(map[int]bool)[itemIndex]
	}
	return false
}

// Forget drops all flags for an order.
func (t *Tracker) Forget(orderID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.flags.Delete(orderID)
}

// SortedItems returns the order's items stable-partitioned: every unprepared
// item before every prepared one, with the original relative order preserved
// inside each half. It is a partition, not a sort; equal flags never
// reorder.
func (t *Tracker) SortedItems(orderID string, items []model.OrderItem) []PreparedItem {
	t.mu.Lock()
	var flags map[int]bool
	if v, found := t.flags.Get(orderID); found {
		flags = v.(map[int]bool)
	}
	t.mu.Unlock()

	result := make([]PreparedItem, 0, len(items))
	for i, item := range items {
		if !flags[i] {
			result = append(result, PreparedItem{Index: i, Prepared: false, OrderItem: item})
		}
	}
	for i, item := range items {
		if flags[i] {
			result = append(result, PreparedItem{Index: i, Prepared: true, OrderItem: item})
		}
	}
	return result
}
