package model

import "time"

// OrderStatus is the closed set of order states known to the backend.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusCompleted  OrderStatus = "completed"
	StatusCancelled  OrderStatus = "cancelled"
)

// Valid reports whether s is one of the known order states.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// OrderItem is a single line of an order. Items carry no id of their own;
// their position within Order.Items is their identity, and the backend never
// reorders or removes items after order creation.
type OrderItem struct {
	Name        string   `json:"name"`
	Quantity    int      `json:"quantity"`
	Ingredients []string `json:"ingredients,omitempty"`
	Options     []string `json:"options,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

// Order represents a single cafe order as delivered by the backend. Customer
// and payment metadata are pass-through fields; the board never interprets
// them, only displays them.
type Order struct {
	ID            string      `json:"id"`
	Status        OrderStatus `json:"status"`
	Items         []OrderItem `json:"items"`
	CreatedAt     time.Time   `json:"createdAt"`
	CustomerName  string      `json:"customerName,omitempty"`
	OrderType     string      `json:"orderType,omitempty"`
	TableNumber   *int        `json:"tableNumber,omitempty"`
	PaymentMethod string      `json:"paymentMethod,omitempty"`
	TotalAmount   float64     `json:"totalAmount,omitempty"`
}
