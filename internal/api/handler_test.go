package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"cafe-board-backend/config"
	"cafe-board-backend/internal/backend"
	"cafe-board-backend/internal/board"
	"cafe-board-backend/internal/gesture"
	"cafe-board-backend/internal/model"
	"cafe-board-backend/internal/prep"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeFetcher serves a fixed page and records status mutations.
type fakeFetcher struct {
	mu      sync.Mutex
	page    *backend.OrdersPage
	fetchEr error
	updates []string
}

func (f *fakeFetcher) FetchOrders(_ context.Context, _ backend.OrderQuery) (*backend.OrdersPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetchEr != nil {
		return nil, f.fetchEr
	}
	return f.page, nil
}

func (f *fakeFetcher) UpdateOrderStatus(_ context.Context, orderID string, status model.OrderStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, fmt.Sprintf("%s:%s", orderID, status))
	return nil
}

func (f *fakeFetcher) recordedUpdates() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.updates...)
}

func (f *fakeFetcher) failFetches(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchEr = err
}

type fixture struct {
	router  *gin.Engine
	store   *board.Store
	fetcher *fakeFetcher
	db      *gorm.DB
}

func newFixture(t *testing.T, orders []model.Order, webpushOptions *webpush.Options) *fixture {
	t.Helper()

	fetcher := &fakeFetcher{page: &backend.OrdersPage{
		Orders:     orders,
		Pagination: backend.Pagination{CurrentPage: 1, TotalPages: 1, TotalCount: len(orders)},
	}}
	store := board.NewStore(fetcher, backend.OrderQuery{Status: model.StatusProcessing, Page: 1, Limit: 20})
	require.NoError(t, store.Refetch(context.Background()))

	gestures := gesture.NewTracker(store, 10*time.Millisecond, 10*time.Millisecond)
	t.Cleanup(gestures.Stop)
	prepTracker := prep.NewTracker(nil, time.Hour)

	gdb, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(&model.PushSubscription{}))
	t.Cleanup(func() {
		gdb.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.PushSubscription{})
	})

	h := NewHandler(store, gestures, prepTracker, gdb, webpushOptions, 20)
	cfg := &config.ServerConfig{RateLimitPerSec: 1000, RateLimitBurst: 1000, CacheTTLSeconds: 1}
	return &fixture{router: NewRouter(cfg, h), store: store, fetcher: fetcher, db: gdb}
}

func (f *fixture) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func testOrders() []model.Order {
	return []model.Order{
		{ID: "1", Status: model.StatusProcessing, CustomerName: "Mia",
			Items: []model.OrderItem{{Name: "latte", Quantity: 1}, {Name: "scone", Quantity: 2}}},
		{ID: "2", Status: model.StatusProcessing, CustomerName: "Theo"},
	}
}

func TestGetBoard_ReturnsSnapshotWithGestureState(t *testing.T) {
	f := newFixture(t, testOrders(), nil)

	w := f.do(http.MethodGet, "/api/board/orders", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp boardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Orders, 2)
	assert.Equal(t, "1", resp.Orders[0].ID)
	assert.Equal(t, 0.0, resp.Orders[0].DragProgress)
	assert.False(t, resp.Orders[0].Completing)
	assert.Equal(t, 2, resp.Pagination.TotalCount)
	assert.Empty(t, resp.Error)
}

func TestPostRefresh_RejectsUnknownView(t *testing.T) {
	f := newFixture(t, testOrders(), nil)

	w := f.do(http.MethodPost, "/api/board/refresh", gin.H{"status": "cancelled"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostRefresh_FailureKeepsListAndReportsError(t *testing.T) {
	f := newFixture(t, testOrders(), nil)
	f.fetcher.failFetches(backend.ErrUnavailable)

	w := f.do(http.MethodPost, "/api/board/refresh", gin.H{"status": "completed"})
	require.Equal(t, http.StatusBadGateway, w.Code)

	var resp boardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Orders, 2, "a failed refresh leaves the previous list standing")
	assert.NotEmpty(t, resp.Error)
}

func TestPostDrag_UpdatesProgress(t *testing.T) {
	f := newFixture(t, testOrders(), nil)

	w := f.do(http.MethodPost, "/api/board/orders/1/drag", gin.H{"progress": 0.4})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"orderId":"1","progress":0.4}`, w.Body.String())

	w = f.do(http.MethodGet, "/api/board/orders", nil)
	var resp boardResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0.4, resp.Orders[0].DragProgress)
}

func TestPostDrag_UnknownOrder(t *testing.T) {
	f := newFixture(t, testOrders(), nil)

	w := f.do(http.MethodPost, "/api/board/orders/999/drag", gin.H{"progress": 0.4})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPostDragEnd_PastThresholdCompletes(t *testing.T) {
	f := newFixture(t, testOrders(), nil)

	w := f.do(http.MethodPost, "/api/board/orders/1/drag/end", gin.H{"ratio": 0.9})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"orderId":"1","completing":true}`, w.Body.String())

	assert.Eventually(t, func() bool { return !f.store.Contains("1") },
		time.Second, 5*time.Millisecond, "the card leaves the board once the backend confirms")
	assert.Contains(t, f.fetcher.recordedUpdates(), "1:completed")
}

func TestPostDragEnd_BelowThresholdSnapsBack(t *testing.T) {
	f := newFixture(t, testOrders(), nil)

	w := f.do(http.MethodPost, "/api/board/orders/1/drag/end", gin.H{"ratio": 0.5})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"orderId":"1","completing":false}`, w.Body.String())
	assert.True(t, f.store.Contains("1"))
	assert.Empty(t, f.fetcher.recordedUpdates())
}

func TestPostReopen(t *testing.T) {
	f := newFixture(t, testOrders(), nil)

	w := f.do(http.MethodPost, "/api/board/orders/1/reopen", nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	assert.Eventually(t, func() bool { return len(f.fetcher.recordedUpdates()) == 1 },
		time.Second, 5*time.Millisecond)
	assert.Equal(t, "1:processing", f.fetcher.recordedUpdates()[0])
}

func TestGetItems_PartitionReflectsToggles(t *testing.T) {
	f := newFixture(t, testOrders(), nil)

	w := f.do(http.MethodPost, "/api/board/orders/1/items/0/toggle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"orderId":"1","itemIndex":0,"isPrepared":true}`, w.Body.String())

	w = f.do(http.MethodGet, "/api/board/orders/1/items", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Items []prep.PreparedItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 2)
	assert.Equal(t, "scone", resp.Items[0].Name)
	assert.False(t, resp.Items[0].Prepared)
	assert.Equal(t, "latte", resp.Items[1].Name)
	assert.True(t, resp.Items[1].Prepared)
}

func TestPostItemToggle_IndexOutOfRange(t *testing.T) {
	f := newFixture(t, testOrders(), nil)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/board/orders/1/items/5/toggle", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/api/board/orders/1/items/x/toggle", nil).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/api/board/orders/999/items/0/toggle", nil).Code)
}

func TestSubscriptionLifecycle(t *testing.T) {
	f := newFixture(t, nil, nil)
	sub := gin.H{"endpoint": "https://push.example/abc", "p256dh": "key", "auth": "secret", "label": "counter tablet"}

	assert.Equal(t, http.StatusCreated, f.do(http.MethodPut, "/api/subscriptions", sub).Code)

	w := f.do(http.MethodGet, "/api/subscriptions?endpoint=https%3A%2F%2Fpush.example%2Fabc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, true, got["subscribed"])
	assert.Equal(t, "counter tablet", got["label"])

	// Re-subscribing the same endpoint replaces, never duplicates.
	sub["label"] = "kitchen display"
	assert.Equal(t, http.StatusCreated, f.do(http.MethodPut, "/api/subscriptions", sub).Code)
	var count int64
	f.db.Model(&model.PushSubscription{}).Count(&count)
	assert.EqualValues(t, 1, count)

	assert.Equal(t, http.StatusNoContent,
		f.do(http.MethodDelete, "/api/subscriptions", gin.H{"endpoint": "https://push.example/abc"}).Code)
	assert.Equal(t, http.StatusNotFound,
		f.do(http.MethodGet, "/api/subscriptions?endpoint=https%3A%2F%2Fpush.example%2Fabc", nil).Code)
}

func TestPutSubscription_BadRequest(t *testing.T) {
	f := newFixture(t, nil, nil)

	w := f.do(http.MethodPut, "/api/subscriptions", gin.H{"endpoint": "https://push.example/abc"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid request"}`, w.Body.String())
}

func TestGetVAPIDPublicKey(t *testing.T) {
	f := newFixture(t, nil, &webpush.Options{VAPIDPublicKey: "public-key"})
	w := f.do(http.MethodGet, "/api/vapid_public_key", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"public_key":"public-key"}`, w.Body.String())
}

func TestGetVAPIDPublicKey_Unconfigured(t *testing.T) {
	f := newFixture(t, nil, nil)
	assert.Equal(t, http.StatusServiceUnavailable, f.do(http.MethodGet, "/api/vapid_public_key", nil).Code)
}
