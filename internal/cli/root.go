// Package cli implements the battery command-line interface using Cobra.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cptspacemanspiff/battery-monitor/internal/battery"
	"github.com/cptspacemanspiff/battery-monitor/internal/dbus"
	"github.com/cptspacemanspiff/battery-monitor/internal/platform"
	"github.com/cptspacemanspiff/battery-monitor/internal/storage"
)

// daemonClient is what the --daemon and history commands need from the
// running daemon.
type daemonClient interface {
	Batteries(ctx context.Context) ([]battery.Report, error)
	History(ctx context.Context, from, to int64) ([]storage.Snapshot, error)
	SleepEvents(ctx context.Context, from, to int64) ([]storage.SleepEvent, error)
	Close() error
}

// app carries the dependencies shared by every subcommand.
type app struct {
	backend string
	source  func(backend string) (battery.Source, error)
	dial    func() (daemonClient, error)
	now     func() time.Time
}

func defaultApp() *app {
	return &app{
		source: platform.NewSource,
		dial: func() (daemonClient, error) {
			return dbus.Dial()
		},
		now: time.Now,
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "battery",
		Short: "Inspect laptop batteries",
		Long: `battery reads the state of every battery on this machine: charge,
health, energy, power draw and time estimates.

History commands talk to a running battery-monitor-daemon over D-Bus.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.backend, "backend", "auto",
		"battery backend: auto, sysfs, upower, ioreg, acpiconf or wmi")

	root.AddCommand(
		newListCmd(a),
		newShowCmd(a),
		newHistoryCmd(a),
		newSleepCmd(a),
	)
	return root
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	root := newRootCmd(defaultApp())
	root.Version = version

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// batteries reads every battery through the configured backend.
func (a *app) batteries(ctx context.Context) ([]*battery.Battery, error) {
	src, err := a.source(a.backend)
	if err != nil {
		return nil, err
	}
	return battery.NewManager(src).Batteries(ctx)
}

// reports returns one report per battery, read from the hardware or, with
// fromDaemon, from the daemon's latest collection.
func (a *app) reports(ctx context.Context, fromDaemon bool) ([]battery.Report, error) {
	if fromDaemon {
		c, err := a.dial()
		if err != nil {
			return nil, err
		}
		defer c.Close()

		reports, err := c.Batteries(ctx)
		if err != nil {
			return nil, err
		}
		if len(reports) == 0 {
			return nil, fmt.Errorf("daemon has no reports: %w", battery.ErrNotFound)
		}
		return reports, nil
	}

	bats, err := a.batteries(ctx)
	if err != nil {
		return nil, err
	}
	reports := make([]battery.Report, len(bats))
	for i, b := range bats {
		reports[i] = b.Report()
	}
	return reports, nil
}
