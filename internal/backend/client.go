package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-resty/resty/v2"

	"cafe-board-backend/config"
	"cafe-board-backend/internal/model"
)

var (
	ErrThrottled   = errors.New("too many requests")
	ErrUnavailable = errors.New("backend unavailable")
	ErrNotFound    = errors.New("order not found")
)

// Client talks to the cafe backend's staff order API.
type Client struct {
	http *resty.Client
}

// NewClient creates a client for the given backend configuration.
func NewClient(cfg *config.BackendConfig) *Client {
	c := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout)
	if cfg.Token != "" {
		c.SetAuthToken(cfg.Token)
	}
	return &Client{http: c}
}

// FetchOrders retrieves one filtered page of orders.
func (c *Client) FetchOrders(ctx context.Context, q OrderQuery) (*OrdersPage, error) {
	params := map[string]string{
		"status": string(q.Status),
		"page":   strconv.Itoa(q.Page),
		"limit":  strconv.Itoa(q.Limit),
	}
	if q.SearchTerm != "" {
		params["searchTerm"] = q.SearchTerm
	}
	if q.StartDate != "" {
		params["startDate"] = q.StartDate
	}
	if q.EndDate != "" {
		params["endDate"] = q.EndDate
	}

	var body ordersResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&body).
		Get("/orders/staff/all")
	if err != nil {
		return nil, fmt.Errorf("fetch orders request failed: %w", err)
	}

	if err := classifyStatus(resp.StatusCode()); err != nil {
		return nil, err
	}
	if !body.Success {
		return nil, fmt.Errorf("backend rejected order fetch: %s", body.Message)
	}

	return &OrdersPage{Orders: body.Orders, Pagination: body.Pagination}, nil
}

// UpdateOrderStatus issues the status mutation for a single order. It does
// not touch any local state; optimistic updates and rollback belong to the
// caller.
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) error {
	var body statusResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"status": string(status)}).
		SetResult(&body).
		Put(fmt.Sprintf("/orders/staff/%s/status", orderID))
	if err != nil {
		return fmt.Errorf("status update request failed: %w", err)
	}

	if err := classifyStatus(resp.StatusCode()); err != nil {
		return err
	}
	if !body.Success {
		return fmt.Errorf("backend rejected status update: %s", body.Message)
	}
	return nil
}

func classifyStatus(code int) error {
	switch {
	case code == http.StatusOK || code == http.StatusCreated:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusTooManyRequests:
		return ErrThrottled
	case code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: status %d", ErrUnavailable, code)
	default:
		return fmt.Errorf("unexpected status %d", code)
	}
}
