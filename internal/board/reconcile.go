package board

import (
	"encoding/json"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"

	"cafe-board-backend/internal/channel"
	"cafe-board-backend/internal/model"
)

// PrepTracker is the slice of the preparation tracker the reconciler needs.
type PrepTracker interface {
	ApplyRemote(u channel.PreparationUpdate)
	Forget(orderID string)
}

// GestureTracker lets the reconciler clear drag state for orders that a push
// event evicted from the board.
type GestureTracker interface {
	Forget(orderID string)
}

// Notifier receives accepted new orders for staff alerting.
type Notifier interface {
	Dispatch(order model.Order)
}

// Reconciler folds inbound channel events into the store so the list always
// reflects "orders currently matching the active status view". The channel
// promises no ordering between events, so every handler is written against
// the list as it is, not as the event sequence implies it should be.
type Reconciler struct {
	store    *Store
	ch       channel.Channel
	prep     PrepTracker
	gestures GestureTracker
	notifier Notifier
	key      string
}

// NewReconciler wires the reconciler to its collaborators. prep, gestures
// and notifier may be nil.
func NewReconciler(store *Store, ch channel.Channel, prep PrepTracker, gestures GestureTracker, notifier Notifier) *Reconciler {
	return &Reconciler{
		store:    store,
		ch:       ch,
		prep:     prep,
		gestures: gestures,
		notifier: notifier,
		key:      "board-" + uuid.NewString(),
	}
}

// Start registers the event handlers. The registration key is unique per
// reconciler instance, so a restart never leaves a duplicate subscription
// delivering events twice.
func (r *Reconciler) Start() {
	r.ch.On(channel.EventNewOrder, r.key, r.handleNewOrder)
	r.ch.On(channel.EventOrderUpdate, r.key, r.handleOrderUpdate)
	r.ch.On(channel.EventItemPreparationUpdate, r.key, r.handlePreparationUpdate)
}

// Stop balances Start.
func (r *Reconciler) Stop() {
	r.ch.Off(channel.EventNewOrder, r.key)
	r.ch.Off(channel.EventOrderUpdate, r.key)
	r.ch.Off(channel.EventItemPreparationUpdate, r.key)
}

// matchesView reports whether an order with the given status belongs on the
// given view. pending and cancelled orders belong on no view.
func matchesView(status, view model.OrderStatus) bool {
	return (view == model.StatusProcessing || view == model.StatusCompleted) && status == view
}

func (r *Reconciler) handleNewOrder(data json.RawMessage) {
	order, err := channel.DecodeOrder(data)
	if err != nil {
		logger.Warningf("Ignoring newOrder event: %v", err)
		return
	}

	appended := false
	r.store.Apply(func(view model.OrderStatus, orders []model.Order) []model.Order {
		if !matchesView(order.Status, view) {
			return orders
		}
		for i := range orders {
			if orders[i].ID == order.ID {
				// Duplicate delivery, or the order arrived via a fetch page
				// first. Either way it is already here.
				return orders
			}
		}
		appended = true
		return append(orders, order)
	})

	if appended {
		logger.Infof("New order %s appended to board", order.ID)
	}
	// Staff want the new-order nudge even when the screen is on the
	// completed view, so notification does not depend on acceptance.
	if order.Status == model.StatusProcessing && r.notifier != nil {
		r.notifier.Dispatch(order)
	}
}

func (r *Reconciler) handleOrderUpdate(data json.RawMessage) {
	order, err := channel.DecodeOrder(data)
	if err != nil {
		logger.Warningf("Ignoring orderUpdate event: %v", err)
		return
	}

	removed := false
	r.store.Apply(func(view model.OrderStatus, orders []model.Order) []model.Order {
		match := matchesView(order.Status, view)
		for i := range orders {
			if orders[i].ID != order.ID {
				continue
			}
			if match {
				// Replace in place; the card keeps its position.
				orders[i] = order
				return orders
			}
			// Moved off this view, including cancellations, which belong on
			// no view at all.
			removed = true
			return append(orders[:i], orders[i+1:]...)
		}
		if match {
			// Just became visible, e.g. a pending order entering processing.
			return append(orders, order)
		}
		return orders
	})

	if removed {
		if r.gestures != nil {
			r.gestures.Forget(order.ID)
		}
		if r.prep != nil {
			r.prep.Forget(order.ID)
		}
		logger.Infof("Order %s left the %s view (now %s)", order.ID, r.store.StatusView(), order.Status)
	}
}

func (r *Reconciler) handlePreparationUpdate(data json.RawMessage) {
	update, err := channel.DecodePreparationUpdate(data)
	if err != nil {
		logger.Warningf("Ignoring itemPreparationUpdate event: %v", err)
		return
	}
	if r.prep != nil {
		r.prep.ApplyRemote(update)
	}
}
