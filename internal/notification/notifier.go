package notification

import (
	"context"

	"tortoise-backend/internal/repo"
)

// Notifier bridges repository change events to the worker pool.
type Notifier struct {
	pool *WorkerPool
}

// NewNotifier wraps a started worker pool.
func NewNotifier(pool *WorkerPool) *Notifier {
	return &Notifier{pool: pool}
}

// Run consumes events until the context is cancelled or the channel
// closes. External changes count too: a restock done by another process
// should still wake up this process's subscribers.
func (n *Notifier) Run(ctx context.Context, events <-chan repo.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if e.Op != repo.OpUpdated && e.Op != repo.OpExternal {
				continue
			}
			if alert, ok := AlertFor(e.Device, e.Prev); ok {
				n.pool.Dispatch(alert)
			}
		}
	}
}
