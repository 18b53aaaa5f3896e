package board

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cafe-board-backend/internal/backend"
	"cafe-board-backend/internal/model"
)

// fakeClient is a scriptable backend client.
type fakeClient struct {
	fetch  func(ctx context.Context, q backend.OrderQuery) (*backend.OrdersPage, error)
	update func(ctx context.Context, orderID string, status model.OrderStatus) error
}

func (f *fakeClient) FetchOrders(ctx context.Context, q backend.OrderQuery) (*backend.OrdersPage, error) {
	if f.fetch == nil {
		return nil, backend.ErrUnavailable
	}
	return f.fetch(ctx, q)
}

func (f *fakeClient) UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) error {
	if f.update == nil {
		return nil
	}
	return f.update(ctx, orderID, status)
}

func order(id string, status model.OrderStatus) model.Order {
	return model.Order{
		ID:        id,
		Status:    status,
		Items:     []model.OrderItem{{Name: "espresso", Quantity: 1}},
		CreatedAt: time.Now().UTC(),
	}
}

func processingQuery() backend.OrderQuery {
	return backend.OrderQuery{Status: model.StatusProcessing, Page: 1, Limit: 20}
}

func TestFetch_ReplacesListAndPagination(t *testing.T) {
	client := &fakeClient{
		fetch: func(_ context.Context, q backend.OrderQuery) (*backend.OrdersPage, error) {
			assert.Equal(t, model.StatusProcessing, q.Status)
			return &backend.OrdersPage{
				Orders:     []model.Order{order("1", model.StatusProcessing), order("2", model.StatusProcessing)},
				Pagination: backend.Pagination{CurrentPage: 1, TotalPages: 3, TotalCount: 42, HasNextPage: true},
			}, nil
		},
	}
	store := NewStore(client, processingQuery())

	require.NoError(t, store.Fetch(context.Background(), processingQuery()))

	orders, pagination, errStr := store.Snapshot()
	assert.Len(t, orders, 2)
	assert.Equal(t, 42, pagination.TotalCount)
	assert.Empty(t, errStr)
}

func TestFetch_FailurePreservesPreviousList(t *testing.T) {
	calls := 0
	client := &fakeClient{
		fetch: func(_ context.Context, _ backend.OrderQuery) (*backend.OrdersPage, error) {
			calls++
			if calls == 1 {
				return &backend.OrdersPage{Orders: []model.Order{order("1", model.StatusProcessing)}}, nil
			}
			return nil, backend.ErrUnavailable
		},
	}
	store := NewStore(client, processingQuery())

	require.NoError(t, store.Fetch(context.Background(), processingQuery()))
	err := store.Fetch(context.Background(), processingQuery())
	require.Error(t, err)

	orders, _, errStr := store.Snapshot()
	assert.Len(t, orders, 1, "last-known-good list must survive a failed fetch")
	assert.Equal(t, "failed to fetch orders", errStr)
}

func TestFetch_StaleResponseIsDiscarded(t *testing.T) {
	release := make(chan struct{})
	client := &fakeClient{
		fetch: func(_ context.Context, _ backend.OrderQuery) (*backend.OrdersPage, error) {
			<-release
			// The slow page does not contain the order that was pushed while
			// the request was in flight.
			return &backend.OrdersPage{Orders: []model.Order{order("1", model.StatusProcessing)}}, nil
		},
	}
	store := NewStore(client, processingQuery())

	done := make(chan error, 1)
	go func() { done <- store.Fetch(context.Background(), processingQuery()) }()

	// A push event lands while the fetch is in flight.
	time.Sleep(20 * time.Millisecond)
	store.Apply(func(_ model.OrderStatus, orders []model.Order) []model.Order {
		return append(orders, order("7", model.StatusProcessing))
	})

	close(release)
	require.NoError(t, <-done)

	orders, _, _ := store.Snapshot()
	require.Len(t, orders, 1)
	assert.Equal(t, "7", orders[0].ID, "the pushed order must survive; the stale page is dropped")
}

func TestFetch_NewerFetchWinsOverOlder(t *testing.T) {
	releaseFirst := make(chan struct{})
	calls := 0
	client := &fakeClient{
		fetch: func(_ context.Context, _ backend.OrderQuery) (*backend.OrdersPage, error) {
			calls++
			if calls == 1 {
				<-releaseFirst
				return &backend.OrdersPage{Orders: []model.Order{order("old", model.StatusProcessing)}}, nil
			}
			return &backend.OrdersPage{Orders: []model.Order{order("new", model.StatusProcessing)}}, nil
		},
	}
	store := NewStore(client, processingQuery())

	done := make(chan error, 1)
	go func() { done <- store.Fetch(context.Background(), processingQuery()) }()
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, store.Fetch(context.Background(), processingQuery()))
	close(releaseFirst)
	require.NoError(t, <-done)

	orders, _, _ := store.Snapshot()
	require.Len(t, orders, 1)
	assert.Equal(t, "new", orders[0].ID)
}

func TestRemoveOrder(t *testing.T) {
	store := NewStore(&fakeClient{}, processingQuery())
	store.Apply(func(_ model.OrderStatus, orders []model.Order) []model.Order {
		return append(orders, order("1", model.StatusProcessing), order("2", model.StatusProcessing))
	})

	assert.True(t, store.RemoveOrder("1"))
	assert.False(t, store.RemoveOrder("1"))
	assert.False(t, store.Contains("1"))
	assert.True(t, store.Contains("2"))
}

func TestSnapshot_ReturnsCopy(t *testing.T) {
	store := NewStore(&fakeClient{}, processingQuery())
	store.Apply(func(_ model.OrderStatus, orders []model.Order) []model.Order {
		return append(orders, order("1", model.StatusProcessing))
	})

	orders, _, _ := store.Snapshot()
	orders[0].ID = "mutated"

	got, ok := store.Get("1")
	require.True(t, ok)
	assert.Equal(t, "1", got.ID)
}
