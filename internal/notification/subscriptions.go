package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"tortoise-backend/internal/kv"
	"tortoise-backend/internal/model"
)

// SubscriptionStore keeps push subscriptions in the shared keyspace,
// one record per endpoint.
type SubscriptionStore struct {
	store kv.Store
}

// NewSubscriptionStore wraps the keyspace.
func NewSubscriptionStore(store kv.Store) *SubscriptionStore {
	return &SubscriptionStore{store: store}
}

// Put creates or replaces the subscription for its endpoint.
func (s *SubscriptionStore) Put(ctx context.Context, sub model.PushSubscription) error {
	if sub.Endpoint == "" {
		return fmt.Errorf("subscription endpoint is required")
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("encode subscription: %w", err)
	}
	if err := s.store.Set(ctx, kv.SubscriptionKey(sub.Endpoint), raw); err != nil {
		return fmt.Errorf("persist subscription: %w", err)
	}
	return nil
}

// Get returns the subscription for an endpoint.
func (s *SubscriptionStore) Get(ctx context.Context, endpoint string) (model.PushSubscription, bool, error) {
	raw, found, err := s.store.Get(ctx, kv.SubscriptionKey(endpoint))
	if err != nil || !found {
		return model.PushSubscription{}, false, err
	}
	var sub model.PushSubscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return model.PushSubscription{}, false, fmt.Errorf("decode subscription: %w", err)
	}
	return sub, true, nil
}

// Delete removes the subscription for an endpoint, if any.
func (s *SubscriptionStore) Delete(ctx context.Context, endpoint string) error {
	return s.store.Delete(ctx, kv.SubscriptionKey(endpoint))
}

// ForDevice returns every subscription watching the given device.
func (s *SubscriptionStore) ForDevice(ctx context.Context, deviceID string) ([]model.PushSubscription, error) {
	records, err := s.store.List(ctx, kv.PrefixSubscription)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}

	var subs []model.PushSubscription
	for key, raw := range records {
		var sub model.PushSubscription
		if err := json.Unmarshal(raw, &sub); err != nil {
			slog.Warn("skipping malformed subscription record", "key", key, "error", err)
			continue
		}
		for _, id := range sub.DeviceIDs {
			if id == deviceID {
				subs = append(subs, sub)
				break
			}
		}
	}
	return subs, nil
}
