package battery

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the source reports no batteries.
	ErrNotFound = errors.New("no battery found")
	// ErrNotRefreshable is returned by Manager.Refresh for devices that
	// cannot re-read their state.
	ErrNotRefreshable = errors.New("battery device cannot be refreshed")
)

// Source enumerates the batteries present on the host, one Device per
// physical battery.
type Source interface {
	Devices(ctx context.Context) ([]Device, error)
}

// Manager hands out Batteries from a Source and re-synchronizes them with
// the OS on request.
type Manager struct {
	src Source
}

// NewManager returns a Manager reading devices from src.
func NewManager(src Source) *Manager {
	return &Manager{src: src}
}

// Batteries wraps every device the source currently reports.
func (m *Manager) Batteries(ctx context.Context) ([]*Battery, error) {
	devs, err := m.src.Devices(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate batteries: %w", err)
	}
	if len(devs) == 0 {
		return nil, ErrNotFound
	}
	batteries := make([]*Battery, 0, len(devs))
	for _, d := range devs {
		batteries = append(batteries, New(d))
	}
	return batteries, nil
}

// Refresh re-reads b's device in place. Accessor calls made afterwards see
// the new state.
func (m *Manager) Refresh(b *Battery) error {
	if b == nil || b.device() == nil {
		return fmt.Errorf("refresh battery: %w", ErrNotFound)
	}
	if err := b.refresh(); err != nil {
		return fmt.Errorf("refresh battery: %w", err)
	}
	return nil
}

// RefreshAll refreshes every battery and joins the failures.
func (m *Manager) RefreshAll(batteries []*Battery) error {
	var errs []error
	for i, b := range batteries {
		if err := m.Refresh(b); err != nil {
			errs = append(errs, fmt.Errorf("battery %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
