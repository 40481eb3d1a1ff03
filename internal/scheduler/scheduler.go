// Package scheduler wires up the periodic triggers: the fetch cycle, the
// premium alert fan-out, and nightly maintenance.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"jobalert_bot/internal/alert"
	"jobalert_bot/internal/config"
	"jobalert_bot/internal/source"
	"jobalert_bot/internal/storage"
)

// Scheduler owns the cron entries. The fetch and alert triggers are
// independent and may overlap; writes stay safe because job inserts and
// ledger appends are idempotent at the storage layer.
type Scheduler struct {
	cron     *cron.Cron
	store    storage.Storage
	adapters []source.Adapter
	driver   *alert.Driver
	cfg      *config.Config
	log      *slog.Logger
}

// New creates a Scheduler.
func New(store storage.Storage, adapters []source.Adapter, driver *alert.Driver, cfg *config.Config, log *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		store:    store,
		adapters: adapters,
		driver:   driver,
		cfg:      cfg,
		log:      log,
	}
}

// Start registers the cron entries and starts the scheduler. The first
// fetch runs immediately so the store is populated without waiting for
// the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	fetchSpec := fmt.Sprintf("@every %ds", int(s.cfg.FetchInterval.Seconds()))
	if _, err := s.cron.AddFunc(fetchSpec, func() { s.RunFetchCycle(ctx) }); err != nil {
		return fmt.Errorf("add fetch entry: %w", err)
	}

	alertSpec := fmt.Sprintf("@every %ds", int(s.cfg.AlertInterval.Seconds()))
	if _, err := s.cron.AddFunc(alertSpec, func() { s.driver.BroadcastAlerts(ctx, s.cfg.AlertInterval) }); err != nil {
		return fmt.Errorf("add alert entry: %w", err)
	}

	if _, err := s.cron.AddFunc("@daily", func() { s.RunMaintenance(ctx) }); err != nil {
		return fmt.Errorf("add maintenance entry: %w", err)
	}

	s.cron.Start()
	s.log.Info("scheduler started", "fetch", fetchSpec, "alerts", alertSpec)

	go s.RunFetchCycle(ctx)

	return nil
}

// Stop stops the scheduler. Running entries are left to finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.log.Info("scheduler stopped")
}

// RunFetchCycle fans out over all feed adapters and stores the results.
func (s *Scheduler) RunFetchCycle(ctx context.Context) {
	jobs := source.FetchAll(ctx, s.adapters, s.log)
	if len(jobs) == 0 {
		s.log.Info("fetch cycle complete", "fetched", 0)
		return
	}

	inserted, err := s.store.InsertJobs(ctx, jobs)
	if err != nil {
		s.log.Error("insert jobs", "error", err)
		return
	}
	s.log.Info("fetch cycle complete", "fetched", len(jobs), "new", inserted)
}

// RunMaintenance removes jobs past the retention age and restores the
// daily free-tier quota.
func (s *Scheduler) RunMaintenance(ctx context.Context) {
	deleted, err := s.store.CleanupJobs(ctx, time.Now().UTC().Add(-s.cfg.RetentionAge()))
	if err != nil {
		s.log.Error("cleanup jobs", "error", err)
	} else {
		s.log.Info("cleaned up old jobs", "deleted", deleted)
	}

	reset, err := s.store.ResetFreeCredits(ctx, s.cfg.FreeTierQuota)
	if err != nil {
		s.log.Error("reset free credits", "error", err)
	} else {
		s.log.Info("reset free credits", "users", reset)
	}
}
