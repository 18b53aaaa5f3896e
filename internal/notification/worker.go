package notification

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"cafe-board-backend/internal/model"
)

// Sender defines the interface for sending a web push notification.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is the real Sender backed by the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool fans new-order alerts out to every subscribed staff device.
type WorkerPool struct {
	size    int
	jobs    chan model.Order
	db      *gorm.DB
	webpush *webpush.Options
	sender  Sender
}

// NewWorkerPool creates a worker pool of the given size.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan model.Order, size*4),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	logger.Infof("Notification worker %d started", id)
	for {
		select {
		case order := <-wp.jobs:
			wp.notifyOrder(ctx, order)
		case <-ctx.Done():
			logger.Infof("Notification worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues an alert for a new order. The caller is the channel's read
// pump, so a full queue drops the alert instead of stalling event delivery.
func (wp *WorkerPool) Dispatch(order model.Order) {
	select {
	case wp.jobs <- order:
	default:
		logger.Warningf("Notification queue full, dropping alert for order %s", order.ID)
	}
}

// notifyOrder fetches every subscription and sends the new-order alert.
func (wp *WorkerPool) notifyOrder(ctx context.Context, order model.Order) {
	var subscriptions []model.PushSubscription
	if err := wp.db.WithContext(ctx).Find(&subscriptions).Error; err != nil {
		logger.Errorf("Error fetching subscriptions for order %s: %v", order.ID, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	itemCount := 0
	for _, item := range order.Items {
		if item.Quantity > 0 {
			itemCount += item.Quantity
		} else {
			itemCount++
		}
	}

	message := fmt.Sprintf("New order #%s — %d item(s)", order.ID, itemCount)
	if order.CustomerName != "" {
		message = fmt.Sprintf("New order #%s from %s — %d item(s)", order.ID, order.CustomerName, itemCount)
	}

	logger.Infof("Sending %d notifications for order %s", len(subscriptions), order.ID)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, []byte(message))
	}
}

// sendNotification sends a single web push notification, pruning the
// subscription when the push service reports it gone.
func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		logger.Errorf("Error sending notification to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		logger.Infof("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			logger.Errorf("Failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
