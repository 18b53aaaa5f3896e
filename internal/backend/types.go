package backend

import "cafe-board-backend/internal/model"

// OrderQuery shapes the GET /orders/staff/all request. Status is the active
// board view; the remaining fields narrow the page server-side.
type OrderQuery struct {
	Status     model.OrderStatus
	Page       int
	Limit      int
	SearchTerm string
	StartDate  string
	EndDate    string
}

// Pagination is the paging metadata the backend returns alongside a page.
type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalCount  int  `json:"totalCount"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

// OrdersPage is one page of orders plus its pagination metadata.
type OrdersPage struct {
	Orders     []model.Order
	Pagination Pagination
}

// ordersResponse models the backend's order listing payload.
type ordersResponse struct {
	Success    bool          `json:"success"`
	Message    string        `json:"message"`
	Orders     []model.Order `json:"orders"`
	Pagination Pagination    `json:"pagination"`
}

// statusResponse models the backend's status mutation payload.
type statusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
