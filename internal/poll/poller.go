package poll

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"tortoise-backend/config"
	"tortoise-backend/internal/kv"
	"tortoise-backend/internal/metrics"
	"tortoise-backend/internal/model"
	"tortoise-backend/internal/repo"
)

// Service periodically re-reads the shared keyspace and folds writes
// made by other processes into the repository, which rebroadcasts them
// to in-process watchers. The storage layer has no change feed, so this
// stands in for one; the cadence is configuration, not a contract.
type Service struct {
	cfg     *config.SyncConfig
	store   kv.Store
	devices *repo.Repository
}

// NewService creates the sync poller.
func NewService(cfg *config.SyncConfig, store kv.Store, devices *repo.Repository) *Service {
	return &Service{cfg: cfg, store: store, devices: devices}
}

// Run executes sync cycles until the context is cancelled.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		slog.Info("storage sync is disabled, not starting")
		return
	}
	slog.Info("starting storage sync", "interval", s.cfg.Interval)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("storage sync shutting down")
			return
		case <-timer.C:
			s.SyncOnce(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

// SyncOnce performs one reconciliation pass. Records with a version
// ahead of the in-memory copy were written elsewhere and are applied;
// records missing from storage were deleted elsewhere and are dropped.
func (s *Service) SyncOnce(ctx context.Context) {
	records, err := s.store.List(ctx, kv.PrefixDevice)
	if err != nil {
		slog.Warn("sync cycle failed to list device records", "error", err)
		return
	}

	known := s.devices.Versions()
	seen := make(map[string]bool, len(records))
	for key, raw := range records {
		var d model.Device
		if err := json.Unmarshal(raw, &d); err != nil {
			slog.Warn("sync skipping malformed device record", "key", key, "error", err)
			continue
		}
		seen[d.ID] = true
		if v, ok := known[d.ID]; !ok || d.Version > v {
			s.devices.ApplyExternal(d)
		}
	}
	for id := range known {
		if !seen[id] {
			s.devices.DropExternal(id)
		}
	}
	metrics.PollCycles.Inc()
}
