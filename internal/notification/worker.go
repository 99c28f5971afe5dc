package notification

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"tortoise-backend/internal/metrics"
	"tortoise-backend/internal/model"
)

// Sender abstracts the web push delivery so tests can fake it.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender delivers through the webpush library.
type WebPushSender struct{}

func (WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Alert is one notification to fan out to a device's subscribers.
type Alert struct {
	DeviceID string
	Message  string
}

// WorkerPool fans device alerts out to subscribed endpoints on a fixed
// number of worker goroutines.
type WorkerPool struct {
	size    int
	jobs    chan Alert
	subs    *SubscriptionStore
	options *webpush.Options
	sender  Sender
}

// NewWorkerPool creates a worker pool over the subscription store.
func NewWorkerPool(size int, subs *SubscriptionStore, options *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Alert, size),
		subs:    subs,
		options: options,
		sender:  WebPushSender{},
	}
}

// WithSender swaps the delivery implementation, for tests.
func (wp *WorkerPool) WithSender(s Sender) *WorkerPool {
	wp.sender = s
	return wp
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// Dispatch queues an alert for delivery.
func (wp *WorkerPool) Dispatch(a Alert) {
	wp.jobs <- a
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	slog.Debug("notification worker started", "worker", id)
	for {
		select {
		case alert := <-wp.jobs:
			wp.deliver(ctx, alert)
		case <-ctx.Done():
			slog.Debug("notification worker shutting down", "worker", id)
			return
		}
	}
}

func (wp *WorkerPool) deliver(ctx context.Context, alert Alert) {
	subs, err := wp.subs.ForDevice(ctx, alert.DeviceID)
	if err != nil {
		slog.Error("failed to load subscriptions", "device", alert.DeviceID, "error", err)
		return
	}
	if len(subs) == 0 {
		return
	}

	slog.Info("sending notifications", "device", alert.DeviceID, "count", len(subs))
	for _, sub := range subs {
		wp.send(ctx, sub, []byte(alert.Message))
	}
}

func (wp *WorkerPool) send(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.options)
	if err != nil {
		metrics.NotificationsSent.WithLabelValues("error").Inc()
		slog.Error("failed to send notification", "endpoint", sub.Endpoint, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		metrics.NotificationsSent.WithLabelValues("expired").Inc()
		slog.Info("deleting expired subscription", "endpoint", sub.Endpoint)
		if err := wp.subs.Delete(ctx, sub.Endpoint); err != nil {
			slog.Error("failed to delete expired subscription", "endpoint", sub.Endpoint, "error", err)
		}
		return
	}
	metrics.NotificationsSent.WithLabelValues("ok").Inc()
}

// AlertFor inspects a repository change and decides whether subscribers
// should hear about it: a device coming back in stock, or a new usable
// offer appearing on it.
func AlertFor(e model.Device, prev *model.Device) (Alert, bool) {
	if prev == nil {
		return Alert{}, false
	}
	if prev.Stock == 0 && e.Stock > 0 {
		return Alert{DeviceID: e.ID, Message: fmt.Sprintf("%s is back in stock", e.Name)}, true
	}
	if countActiveOffers(e) > countActiveOffers(*prev) {
		return Alert{DeviceID: e.ID, Message: fmt.Sprintf("New offer on %s", e.Name)}, true
	}
	return Alert{}, false
}

func countActiveOffers(d model.Device) int {
	n := 0
	for _, o := range d.Offers {
		if o.IsActive {
			n++
		}
	}
	return n
}
