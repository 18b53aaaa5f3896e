package board

import (
	"context"
	"sync"

	"cafe-board-backend/internal/backend"
	"cafe-board-backend/internal/model"
)

// Fetcher is the slice of the backend client the store depends on.
type Fetcher interface {
	FetchOrders(ctx context.Context, q backend.OrderQuery) (*backend.OrdersPage, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) error
}

// Store is the single source of truth for the order list currently shown,
// plus its pagination metadata and last fetch error. A successful fetch
// replaces the whole list; push events and gesture completions patch it
// incrementally through Apply.
//
// Fetch responses are guarded by a version counter: the counter advances on
// every fetch issuance and on every incremental mutation, and a response is
// applied only if the counter has not moved since its request was issued.
// A page that raced a newer fetch or an interleaved push event is discarded,
// so push-driven changes are never silently undone by a slow response.
type Store struct {
	mu     sync.Mutex
	client Fetcher

	orders     []model.Order
	pagination backend.Pagination
	query      backend.OrderQuery
	version    uint64
	lastErr    string
}

// NewStore creates a store with the given initial filter.
func NewStore(client Fetcher, initial backend.OrderQuery) *Store {
	if initial.Status == "" {
		initial.Status = model.StatusProcessing
	}
	if initial.Page <= 0 {
		initial.Page = 1
	}
	return &Store{client: client, query: initial}
}

// Fetch issues a filtered page request and, on success, replaces the list
// and pagination. On failure the previous list is preserved and a
// user-facing error string is recorded. Stale responses are dropped.
func (s *Store) Fetch(ctx context.Context, q backend.OrderQuery) error {
	if q.Page <= 0 {
		q.Page = 1
	}

	s.mu.Lock()
	s.version++
	issued := s.version
	s.query = q
	s.mu.Unlock()

	page, err := s.client.FetchOrders(ctx, q)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.version != issued {
		// Superseded by a newer fetch or by push events that arrived while
		// this request was in flight. Applying the page now would undo them.
		return nil
	}

	if err != nil {
		s.lastErr = "failed to fetch orders"
		return err
	}

	s.orders = append([]model.Order(nil), page.Orders...)
	s.pagination = page.Pagination
	s.lastErr = ""
	return nil
}

// Refetch re-issues the fetch with the current filter, used to resynchronize
// after a failed optimistic update.
func (s *Store) Refetch(ctx context.Context) error {
	s.mu.Lock()
	q := s.query
	s.mu.Unlock()
	return s.Fetch(ctx, q)
}

// UpdateStatus issues the status mutation for an order. It deliberately does
// not mutate local state; the gesture layer owns the optimistic update and
// rollback around this call.
func (s *Store) UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) error {
	return s.client.UpdateOrderStatus(ctx, orderID, status)
}

// Apply runs mutate under the store lock and installs its result. The
// current status view is passed in so event folding always reads the filter
// value at apply time, never one captured at subscription time.
func (s *Store) Apply(mutate func(view model.OrderStatus, orders []model.Order) []model.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = mutate(s.query.Status, s.orders)
	s.version++
}

// RemoveOrder drops the order with the given id, reporting whether it was
// present.
func (s *Store) RemoveOrder(orderID string) bool {
	removed := false
	s.Apply(func(_ model.OrderStatus, orders []model.Order) []model.Order {
		for i := range orders {
			if orders[i].ID == orderID {
				removed = true
				return append(orders[:i], orders[i+1:]...)
			}
		}
		return orders
	})
	return removed
}

// Get returns a copy of the order with the given id.
func (s *Store) Get(orderID string) (model.Order, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.orders {
		if s.orders[i].ID == orderID {
			return s.orders[i], true
		}
	}
	return model.Order{}, false
}

// Contains reports whether an order with the given id is in the list.
func (s *Store) Contains(orderID string) bool {
	_, ok := s.Get(orderID)
	return ok
}

// Snapshot returns a copy of the current list, the pagination metadata and
// the last fetch error (empty when the last fetch succeeded).
func (s *Store) Snapshot() ([]model.Order, backend.Pagination, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	orders := append([]model.Order(nil), s.orders...)
	return orders, s.pagination, s.lastErr
}

// StatusView returns the status filter currently displayed.
func (s *Store) StatusView() model.OrderStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query.Status
}

// Query returns the active filter.
func (s *Store) Query() backend.OrderQuery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// SetError records a user-facing error string without touching the list.
func (s *Store) SetError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = msg
}
