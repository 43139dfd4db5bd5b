// Package status holds the daemon's most recent battery reports, shared by
// the D-Bus service, the HTTP API and the collection loop.
package status

import (
	"sync"
	"time"

	"github.com/cptspacemanspiff/battery-monitor/internal/battery"
	"github.com/cptspacemanspiff/battery-monitor/internal/storage"
)

// History is the stored collection Restore reads from.
type History interface {
	LatestSnapshots() ([]storage.Snapshot, error)
}

// Cache is safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	reports []battery.Report
	updated time.Time
}

// Update replaces the cached reports.
func (c *Cache) Update(reports []battery.Report, at time.Time) {
	cp := make([]battery.Report, len(reports))
	copy(cp, reports)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports = cp
	c.updated = at
}

// Reports returns a copy of the cached reports in battery index order and
// the time they were collected. The slice is empty, never nil, before the
// first update.
func (c *Cache) Reports() ([]battery.Report, time.Time) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cp := make([]battery.Report, len(c.reports))
	copy(cp, c.reports)
	return cp, c.updated
}

// Report returns the cached report for battery index i.
func (c *Cache) Report(i int) (battery.Report, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i < 0 || i >= len(c.reports) {
		return battery.Report{}, false
	}
	return c.reports[i], true
}

// Restore seeds a cache that has never been updated with the last stored
// collection, so readers get the last known state after a daemon restart.
// It reports how many batteries were restored.
func (c *Cache) Restore(h History) (int, error) {
	snaps, err := h.LatestSnapshots()
	if err != nil {
		return 0, err
	}
	if len(snaps) == 0 {
		return 0, nil
	}
	reports := make([]battery.Report, len(snaps))
	for i, s := range snaps {
		reports[i] = s.Report
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.updated.IsZero() {
		return 0, nil
	}
	c.reports = reports
	c.updated = time.Unix(snaps[0].Timestamp, 0)
	return len(reports), nil
}
