package api

import (
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"tortoise-backend/internal/lease"
	"tortoise-backend/internal/notification"
	"tortoise-backend/internal/repo"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	devices *repo.Repository
	leases  *lease.Recorder
	subs    *notification.SubscriptionStore
	webpush *webpush.Options
	now     func() time.Time
}

// NewHandler creates a new API handler.
func NewHandler(devices *repo.Repository, leases *lease.Recorder, subs *notification.SubscriptionStore, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		devices: devices,
		leases:  leases,
		subs:    subs,
		webpush: webpushOptions,
		now:     func() time.Time { return time.Now().UTC() },
	}
}
