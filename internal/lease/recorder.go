package lease

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"tortoise-backend/internal/kv"
	"tortoise-backend/internal/metrics"
	"tortoise-backend/internal/model"
	"tortoise-backend/internal/pricing"
	"tortoise-backend/internal/repo"
)

// Recorder appends lease orders to the persisted order log and serves
// the dashboard aggregations over it. Orders are append-only: nothing in
// this system ever mutates or deletes one, and an order outlives the
// device it references.
type Recorder struct {
	store   kv.Store
	devices *repo.Repository
	now     func() time.Time
}

// NewRecorder builds a recorder over the shared keyspace.
func NewRecorder(store kv.Store, devices *repo.Repository) *Recorder {
	return &Recorder{
		store:   store,
		devices: devices,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the recorder clock, for tests.
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now
	return r
}

// Lease records a rental of the given device: it takes one unit of
// stock (clamped at zero), resolves the effective price at this instant,
// and appends a pending order snapshotting the device's name and brand.
// The decrement runs as a single repository mutation, so concurrent
// lease requests each take their own unit. If the order cannot be
// persisted the taken unit is returned, so the two writes cannot drift
// apart within this process.
func (r *Recorder) Lease(ctx context.Context, deviceID string) (model.LeaseOrder, error) {
	d, applied, err := r.devices.AdjustStock(ctx, deviceID, -1)
	if err != nil {
		return model.LeaseOrder{}, fmt.Errorf("lease %s: %w", deviceID, err)
	}

	now := r.now()
	effective := pricing.EffectivePrice(d, now)
	order := model.LeaseOrder{
		ID:             fmt.Sprintf("lease-%d-%s", now.UnixMilli(), uuid.NewString()),
		DeviceID:       d.ID,
		DeviceName:     d.Name,
		DeviceBrand:    d.Brand,
		MonthlyRental:  effective,
		EffectivePrice: pricing.EmployeeNet(effective),
		Status:         model.OrderPending,
		CreatedAt:      now,
	}

	if err := r.append(ctx, order); err != nil {
		// Put the taken unit back rather than leave a decrement with no
		// order. Negating the applied delta undoes exactly this call,
		// even when the clamp absorbed it.
		if applied != 0 {
			if _, _, rbErr := r.devices.AdjustStock(ctx, deviceID, -applied); rbErr != nil {
				slog.Error("stock rollback failed after order append failure",
					"device", deviceID, "error", rbErr)
			}
		}
		return model.LeaseOrder{}, err
	}

	metrics.LeasesRecorded.Inc()
	return order, nil
}

// Orders returns the full order log, oldest first. Malformed records are
// skipped, never fatal.
func (r *Recorder) Orders(ctx context.Context) ([]model.LeaseOrder, error) {
	records, err := r.store.List(ctx, kv.PrefixOrder)
	if err != nil {
		return nil, fmt.Errorf("load orders: %w", err)
	}

	orders := make([]model.LeaseOrder, 0, len(records))
	for key, raw := range records {
		var o model.LeaseOrder
		if err := json.Unmarshal(raw, &o); err != nil {
			slog.Warn("skipping malformed order record", "key", key, "error", err)
			continue
		}
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
	return orders, nil
}

func (r *Recorder) append(ctx context.Context, o model.LeaseOrder) error {
	raw, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode order %s: %w", o.ID, err)
	}
	if err := r.store.Set(ctx, kv.OrderKey(o.ID), raw); err != nil {
		return fmt.Errorf("persist order %s: %w", o.ID, err)
	}
	return nil
}
