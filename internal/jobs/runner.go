package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"tortoise-backend/config"
	"tortoise-backend/internal/kv"
	"tortoise-backend/internal/lease"
	"tortoise-backend/internal/pricing"
	"tortoise-backend/internal/repo"
)

// Runner schedules background maintenance work. Jobs only read the
// device collection and order log; they never mutate either.
type Runner struct {
	cron    *cron.Cron
	store   kv.Store
	devices *repo.Repository
	leases  *lease.Recorder
	now     func() time.Time
}

// NewRunner creates a job runner over the shared keyspace.
func NewRunner(store kv.Store, devices *repo.Repository, leases *lease.Recorder) *Runner {
	return &Runner{
		cron:    cron.New(),
		store:   store,
		devices: devices,
		leases:  leases,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Start registers the configured schedules and begins running them.
func (r *Runner) Start(cfg *config.JobsConfig) error {
	if !cfg.Enabled {
		slog.Info("scheduled jobs are disabled, not starting")
		return nil
	}

	if _, err := r.cron.AddFunc(cfg.TrendSnapshotSpec, func() {
		r.runWithRecovery("trend_snapshot", r.SnapshotTrend)
	}); err != nil {
		return fmt.Errorf("schedule trend snapshot: %w", err)
	}
	if _, err := r.cron.AddFunc(cfg.ExpiredOfferScanSpec, func() {
		r.runWithRecovery("expired_offer_scan", r.ReportExpiredOffers)
	}); err != nil {
		return fmt.Errorf("schedule expired offer scan: %w", err)
	}

	r.cron.Start()
	slog.Info("scheduled jobs started",
		"trend_snapshot", cfg.TrendSnapshotSpec,
		"expired_offer_scan", cfg.ExpiredOfferScanSpec)
	return nil
}

// Stop halts the scheduler and waits for running jobs to finish.
func (r *Runner) Stop() {
	<-r.cron.Stop().Done()
}

func (r *Runner) runWithRecovery(name string, job func(context.Context) error) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("job panicked", "job", name, "panic", rec)
		}
	}()

	slog.Info("starting job", "job", name)
	if err := job(context.Background()); err != nil {
		slog.Error("job failed", "job", name, "error", err)
		return
	}
	slog.Info("job completed", "job", name)
}

// SnapshotTrend persists yesterday-inclusive 7-day trend data under its
// own key, keeping chart history around even if the order log is ever
// pruned.
func (r *Runner) SnapshotTrend(ctx context.Context) error {
	now := r.now()
	points, err := r.leases.Trend(ctx, now, 7)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(points)
	if err != nil {
		return fmt.Errorf("encode trend snapshot: %w", err)
	}
	key := kv.PrefixTrendSnap + now.Format("2006-01-02")
	if err := r.store.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("persist trend snapshot: %w", err)
	}
	return nil
}

// ReportExpiredOffers logs devices carrying offers that are still
// toggled on past their expiry date, so suppliers can clean them up.
// Expired offers are harmless to pricing but clutter the portal.
func (r *Runner) ReportExpiredOffers(ctx context.Context) error {
	now := r.now()
	for _, d := range r.devices.GetAll(ctx) {
		expired := 0
		for _, o := range d.Offers {
			if o.IsActive && !pricing.Qualifies(o, now) {
				expired++
			}
		}
		if expired > 0 {
			slog.Info("device has active offers past expiry",
				"device", d.ID, "name", d.Name, "count", expired)
		}
	}
	return nil
}
