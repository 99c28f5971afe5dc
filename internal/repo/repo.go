package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"tortoise-backend/internal/kv"
	"tortoise-backend/internal/metrics"
	"tortoise-backend/internal/model"
)

// ErrNotFound is returned by mutating operations when the addressed
// device or offer does not exist. Read operations report absence through
// their ok result instead.
var ErrNotFound = errors.New("not found")

// Repository is the single in-process owner of the device collection.
// Every mutation serializes through its mutex, persists the affected
// record to the keyspace, and is broadcast to watchers. Construct one
// per process and inject it; consumers must never share storage keys
// behind its back except through the poller.
type Repository struct {
	store kv.Store
	now   func() time.Time

	mu       sync.RWMutex
	devices  []model.Device // insertion order
	watchers map[int]chan Event
	nextID   int
}

// New builds a repository over the given keyspace and loads the existing
// device records. A record that fails to decode is skipped with a
// warning rather than failing the load.
func New(ctx context.Context, store kv.Store) (*Repository, error) {
	r := &Repository{
		store:    store,
		now:      func() time.Time { return time.Now().UTC() },
		watchers: make(map[int]chan Event),
	}

	records, err := store.List(ctx, kv.PrefixDevice)
	if err != nil {
		return nil, fmt.Errorf("load devices: %w", err)
	}
	for key, raw := range records {
		var d model.Device
		if err := json.Unmarshal(raw, &d); err != nil {
			slog.Warn("skipping malformed device record", "key", key, "error", err)
			continue
		}
		r.devices = append(r.devices, d)
	}
	// Creation order is the display order. Per-record keys do not keep
	// it, so restore it from the timestamps.
	sort.Slice(r.devices, func(i, j int) bool {
		if r.devices[i].CreatedAt.Equal(r.devices[j].CreatedAt) {
			return r.devices[i].ID < r.devices[j].ID
		}
		return r.devices[i].CreatedAt.Before(r.devices[j].CreatedAt)
	})
	return r, nil
}

// WithClock replaces the repository clock, for tests.
func (r *Repository) WithClock(now func() time.Time) *Repository {
	r.now = now
	return r
}

// GetAll returns a snapshot of every device in insertion order.
func (r *Repository) GetAll(_ context.Context) []model.Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Device, len(r.devices))
	for i, d := range r.devices {
		out[i] = d.Clone()
	}
	return out
}

// GetByID returns a snapshot of one device. A missing id is reported
// through ok, not as an error.
func (r *Repository) GetByID(_ context.Context, id string) (model.Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i := r.indexOf(id); i >= 0 {
		return r.devices[i].Clone(), true
	}
	return model.Device{}, false
}

// Create assigns an id and timestamps, appends the device and persists it.
func (r *Repository) Create(ctx context.Context, d model.Device) (model.Device, error) {
	now := r.now()
	d.ID = "dev_" + uuid.NewString()
	d.Version = 1
	d.CreatedAt = now
	d.UpdatedAt = now
	if d.Stock < 0 {
		d.Stock = 0
	}
	if d.Offers == nil {
		d.Offers = []model.Offer{}
	}
	for i := range d.Offers {
		if d.Offers[i].ID == "" {
			d.Offers[i].ID = "off_" + uuid.NewString()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.persist(ctx, d); err != nil {
		return model.Device{}, err
	}
	r.devices = append(r.devices, d)
	metrics.RepositoryMutations.WithLabelValues("create").Inc()
	r.broadcast(Event{Op: OpCreated, Device: d.Clone()})
	return d.Clone(), nil
}

// Update applies the set fields of patch to an existing device. The
// update timestamp refreshes even for an empty patch.
func (r *Repository) Update(ctx context.Context, id string, p Patch) (model.Device, error) {
	return r.mutate(ctx, id, "update", func(d *model.Device) error {
		p.apply(d)
		return nil
	})
}

// Delete removes a device. Deleting a missing id is a no-op.
func (r *Repository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return nil
	}
	if err := r.store.Delete(ctx, kv.DeviceKey(id)); err != nil {
		return fmt.Errorf("delete device %s: %w", id, err)
	}
	removed := r.devices[i]
	r.devices = append(r.devices[:i], r.devices[i+1:]...)
	metrics.RepositoryMutations.WithLabelValues("delete").Inc()
	r.broadcast(Event{Op: OpDeleted, Device: removed.Clone()})
	return nil
}

// SetStock sets the stock count to exactly quantity, clamped at zero.
func (r *Repository) SetStock(ctx context.Context, id string, quantity int) (model.Device, error) {
	return r.mutate(ctx, id, "set_stock", func(d *model.Device) error {
		if quantity < 0 {
			quantity = 0
		}
		d.Stock = quantity
		return nil
	})
}

// AdjustStock adds delta to the stock count, clamped at zero. The read
// and the write happen inside one mutation, so concurrent adjustments
// never collapse into each other. The second return value is the change
// actually applied after clamping, which a caller can negate to undo
// exactly what this call did.
func (r *Repository) AdjustStock(ctx context.Context, id string, delta int) (model.Device, int, error) {
	applied := 0
	d, err := r.mutate(ctx, id, "adjust_stock", func(d *model.Device) error {
		next := d.Stock + delta
		if next < 0 {
			next = 0
		}
		applied = next - d.Stock
		d.Stock = next
		return nil
	})
	return d, applied, err
}

// AddOffer assigns the offer an id and appends it to the device.
// Date validity is not checked here; expiry is a pricing-time concern.
func (r *Repository) AddOffer(ctx context.Context, deviceID string, o model.Offer) (model.Device, error) {
	o.ID = "off_" + uuid.NewString()
	return r.mutate(ctx, deviceID, "add_offer", func(d *model.Device) error {
		d.Offers = append(d.Offers, o)
		return nil
	})
}

// RemoveOffer filters the offer out of the device. A missing offer is a
// no-op; a missing device is ErrNotFound.
func (r *Repository) RemoveOffer(ctx context.Context, deviceID, offerID string) (model.Device, error) {
	return r.mutate(ctx, deviceID, "remove_offer", func(d *model.Device) error {
		kept := d.Offers[:0]
		for _, o := range d.Offers {
			if o.ID != offerID {
				kept = append(kept, o)
			}
		}
		d.Offers = kept
		return nil
	})
}

// ToggleOffer flips the active flag of one offer. Both the device and
// the offer must exist.
func (r *Repository) ToggleOffer(ctx context.Context, deviceID, offerID string) (model.Device, error) {
	return r.mutate(ctx, deviceID, "toggle_offer", func(d *model.Device) error {
		for i := range d.Offers {
			if d.Offers[i].ID == offerID {
				d.Offers[i].IsActive = !d.Offers[i].IsActive
				return nil
			}
		}
		return fmt.Errorf("offer %s on device %s: %w", offerID, deviceID, ErrNotFound)
	})
}

// mutate runs fn against a copy of the device, bumps the version and
// update timestamp, persists, and only then commits the copy to the
// in-memory collection. A failed persist leaves memory untouched.
func (r *Repository) mutate(ctx context.Context, id, op string, fn func(*model.Device) error) (model.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return model.Device{}, fmt.Errorf("device %s: %w", id, ErrNotFound)
	}

	updated := r.devices[i].Clone()
	if err := fn(&updated); err != nil {
		return model.Device{}, err
	}
	updated.Version++
	updated.UpdatedAt = r.now()

	if err := r.persist(ctx, updated); err != nil {
		return model.Device{}, err
	}

	prev := r.devices[i]
	r.devices[i] = updated
	metrics.RepositoryMutations.WithLabelValues(op).Inc()
	r.broadcast(Event{Op: OpUpdated, Device: updated.Clone(), Prev: cloned(prev)})
	return updated.Clone(), nil
}

func (r *Repository) persist(ctx context.Context, d model.Device) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode device %s: %w", d.ID, err)
	}
	if err := r.store.Set(ctx, kv.DeviceKey(d.ID), raw); err != nil {
		return fmt.Errorf("persist device %s: %w", d.ID, err)
	}
	return nil
}

// indexOf must be called with the mutex held.
func (r *Repository) indexOf(id string) int {
	for i := range r.devices {
		if r.devices[i].ID == id {
			return i
		}
	}
	return -1
}

func cloned(d model.Device) *model.Device {
	c := d.Clone()
	return &c
}
