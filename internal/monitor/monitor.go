// Package monitor runs the daemon's collection loop: refresh every battery,
// publish the reports, store them and prune old history.
package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/cptspacemanspiff/battery-monitor/internal/battery"
	"github.com/cptspacemanspiff/battery-monitor/internal/metrics"
	"github.com/cptspacemanspiff/battery-monitor/internal/status"
	"github.com/cptspacemanspiff/battery-monitor/internal/storage"
)

// Store is the history the monitor writes.
type Store interface {
	InsertSnapshots(snaps []storage.Snapshot) error
	InsertSleepEvent(e storage.SleepEvent) error
	DeleteOlderThan(before int64) (int64, error)
}

// Options configures Run.
type Options struct {
	Interval        time.Duration
	CleanupInterval time.Duration
	Retention       time.Duration
	// Wake delivers resume events; nil disables wake handling.
	Wake <-chan storage.SleepEvent
}

// Monitor owns the battery handles between collections.
type Monitor struct {
	mgr      *battery.Manager
	store    Store
	cache    *status.Cache
	metrics  *metrics.Metrics
	log      *slog.Logger
	storeLog *slog.Logger

	batteries []*battery.Battery
}

// New builds a monitor. batteryLog and storeLog carry the daemon's topics.
func New(mgr *battery.Manager, store Store, cache *status.Cache, m *metrics.Metrics, batteryLog, storeLog *slog.Logger) *Monitor {
	return &Monitor{mgr: mgr, store: store, cache: cache, metrics: m, log: batteryLog, storeLog: storeLog}
}

// Collect refreshes every battery and publishes the new reports. The first
// call, and any call after a refresh failure, re-enumerates the batteries
// so hot-plugged or removed packs are picked up.
func (m *Monitor) Collect(ctx context.Context, now time.Time) error {
	if m.batteries != nil {
		if err := m.mgr.RefreshAll(m.batteries); err != nil {
			m.log.Warn("refresh failed, re-enumerating", "err", err)
			m.metrics.CollectionFailed("refresh")
			m.batteries = nil
		}
	}
	if m.batteries == nil {
		bats, err := m.mgr.Batteries(ctx)
		if err != nil {
			m.metrics.CollectionFailed("enumerate")
			m.cache.Update(nil, now)
			m.metrics.Observe(nil)
			return err
		}
		m.batteries = bats
	}

	reports := make([]battery.Report, len(m.batteries))
	snaps := make([]storage.Snapshot, len(m.batteries))
	for i, b := range m.batteries {
		reports[i] = b.Report()
		snaps[i] = storage.Snapshot{Timestamp: now.Unix(), Index: i, Report: reports[i]}
		m.log.Info("sample", "index", i, "battery", reports[i])
	}

	m.cache.Update(reports, now)
	m.metrics.Observe(reports)
	if err := m.store.InsertSnapshots(snaps); err != nil {
		m.metrics.CollectionFailed("store")
		m.storeLog.Error("store snapshots", "err", err)
		return err
	}
	return nil
}

// RecordWake stores a completed sleep cycle.
func (m *Monitor) RecordWake(ev storage.SleepEvent) {
	if err := m.store.InsertSleepEvent(ev); err != nil {
		m.storeLog.Error("store sleep event", "err", err)
		return
	}
	m.storeLog.Info("stored sleep event", "type", ev.Type, "sleep", ev.SleepTime, "wake", ev.WakeTime)
}

// Cleanup deletes history older than retention.
func (m *Monitor) Cleanup(now time.Time, retention time.Duration) {
	cutoff := now.Add(-retention).Unix()
	deleted, err := m.store.DeleteOlderThan(cutoff)
	if err != nil {
		m.storeLog.Error("cleanup failed", "err", err)
		return
	}
	m.storeLog.Info("cleanup complete", "deleted", deleted, "cutoff", cutoff)
}

// Run collects immediately, then on every tick and every wake, until ctx
// is done.
func (m *Monitor) Run(ctx context.Context, opts Options) {
	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()
	cleanup := time.NewTicker(opts.CleanupInterval)
	defer cleanup.Stop()

	m.collect(ctx)
	m.Cleanup(time.Now(), opts.Retention)

	for {
		select {
		case <-ticker.C:
			m.collect(ctx)
		case ev := <-opts.Wake:
			m.log.Info("wake signal received, refreshing batteries")
			m.RecordWake(ev)
			m.collect(ctx)
		case <-cleanup.C:
			m.Cleanup(time.Now(), opts.Retention)
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) collect(ctx context.Context) {
	if err := m.Collect(ctx, time.Now()); err != nil {
		m.log.Debug("collect failed", "err", err)
	}
}
