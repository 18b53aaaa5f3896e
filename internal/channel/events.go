package channel

import (
	"encoding/json"
	"fmt"

	"cafe-board-backend/internal/model"
)

// Named events carried over the live update channel.
const (
	EventNewOrder              = "newOrder"
	EventOrderUpdate           = "orderUpdate"
	EventItemPreparationUpdate = "itemPreparationUpdate"
	EventItemPreparationToggle = "itemPreparationToggle"
)

// Envelope is the wire frame: an event name plus its raw payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// PreparationUpdate is the payload of itemPreparationUpdate and
// itemPreparationToggle events.
type PreparationUpdate struct {
	OrderID    string `json:"orderId"`
	ItemIndex  int    `json:"itemIndex"`
	IsPrepared bool   `json:"isPrepared"`
}

// DecodeOrder parses the payload of a newOrder or orderUpdate event.
func DecodeOrder(data json.RawMessage) (model.Order, error) {
	var order model.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return model.Order{}, fmt.Errorf("malformed order payload: %w", err)
	}
	if order.ID == "" {
		return model.Order{}, fmt.Errorf("order payload missing id")
	}
	return order, nil
}

// DecodePreparationUpdate parses the payload of an itemPreparationUpdate
// event.
func DecodePreparationUpdate(data json.RawMessage) (PreparationUpdate, error) {
	var u PreparationUpdate
	if err := json.Unmarshal(data, &u); err != nil {
		return PreparationUpdate{}, fmt.Errorf("malformed preparation payload: %w", err)
	}
	if u.OrderID == "" {
		return PreparationUpdate{}, fmt.Errorf("preparation payload missing orderId")
	}
	if u.ItemIndex < 0 {
		return PreparationUpdate{}, fmt.Errorf("preparation payload has negative itemIndex")
	}
	return u, nil
}
