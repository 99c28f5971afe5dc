package repo

import (
	"log/slog"

	"tortoise-backend/internal/model"
)

// Op describes what happened to a device.
type Op string

const (
	OpCreated Op = "created"
	OpUpdated Op = "updated"
	OpDeleted Op = "deleted"
	// OpExternal marks a change another process made to shared storage,
	// discovered by the poller.
	OpExternal Op = "external"
)

// Event is delivered to watchers after a mutation has been persisted.
// Prev is the record before the change where one existed.
type Event struct {
	Op     Op
	Device model.Device
	Prev   *model.Device
}

const watchBuffer = 16

// Watch registers a change listener. The returned cancel func must be
// called when the listener goes away; events are dropped, not queued
// without bound, when a listener falls behind.
func (r *Repository) Watch() (<-chan Event, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextID
	r.nextID++
	ch := make(chan Event, watchBuffer)
	r.watchers[id] = ch

	cancel := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, ok := r.watchers[id]; ok {
			delete(r.watchers, id)
			close(ch)
		}
	}
	return ch, cancel
}

// broadcast must be called with the mutex held.
func (r *Repository) broadcast(e Event) {
	for id, ch := range r.watchers {
		select {
		case ch <- e:
		default:
			slog.Warn("dropping change event for slow watcher", "watcher", id, "op", e.Op, "device", e.Device.ID)
		}
	}
}

// Versions returns the current id→version map, used by the poller to
// detect writes from other processes.
func (r *Repository) Versions() map[string]int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]int64, len(r.devices))
	for _, d := range r.devices {
		out[d.ID] = d.Version
	}
	return out
}

// ApplyExternal folds a device state observed in shared storage into the
// in-memory collection without persisting it back, and announces it to
// watchers. Called by the poller only.
func (r *Repository) ApplyExternal(d model.Device) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.indexOf(d.ID); i >= 0 {
		prev := r.devices[i]
		r.devices[i] = d.Clone()
		r.broadcast(Event{Op: OpExternal, Device: d.Clone(), Prev: cloned(prev)})
		return
	}
	r.devices = append(r.devices, d.Clone())
	r.broadcast(Event{Op: OpExternal, Device: d.Clone()})
}

// DropExternal removes a device another process deleted from storage.
func (r *Repository) DropExternal(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return
	}
	removed := r.devices[i]
	r.devices = append(r.devices[:i], r.devices[i+1:]...)
	r.broadcast(Event{Op: OpDeleted, Device: removed.Clone()})
}
