// Package native reads battery levels through github.com/distatus/battery,
// which talks to the OS battery API directly (IOKit on macOS, the ACPI
// ioctl on FreeBSD and DragonFly).
//
// The library covers energy, rate, voltage and state only. Backends add
// identity strings, temperature, cycle count and firmware time estimates
// from their own OS tool.
package native

import (
	"errors"
	"fmt"
	"math"

	distbattery "github.com/distatus/battery"

	"github.com/cptspacemanspiff/battery-monitor/internal/battery"
)

// Reading is one battery in mWh, mW and mV.
type Reading struct {
	Energy           uint32
	EnergyFull       uint32
	EnergyFullDesign uint32
	EnergyRate       uint32
	Voltage          uint32
	State            battery.State
}

// Tests replace these.
var (
	getAll = distbattery.GetAll
	get    = distbattery.Get
)

// ReadAll reads every battery in OS order. A battery the library could only
// read in part is kept with the unreadable values left at zero.
func ReadAll() ([]Reading, error) {
	bats, err := getAll()
	var perBattery distbattery.Errors
	if err != nil && !errors.As(err, &perBattery) {
		return nil, fmt.Errorf("read batteries: %w", err)
	}

	readings := make([]Reading, 0, len(bats))
	for i, b := range bats {
		if i < len(perBattery) && !usable(perBattery[i]) {
			return nil, fmt.Errorf("read battery %d: %w", i, perBattery[i])
		}
		readings = append(readings, convert(b))
	}
	return readings, nil
}

// Read reads the battery at idx.
func Read(idx int) (Reading, error) {
	b, err := get(idx)
	var fatal distbattery.ErrFatal
	if errors.As(err, &fatal) && errors.Is(fatal.Err, distbattery.ErrNotFound) {
		return Reading{}, fmt.Errorf("battery %d: %w", idx, battery.ErrNotFound)
	}
	if !usable(err) {
		return Reading{}, fmt.Errorf("read battery %d: %w", idx, err)
	}
	return convert(b), nil
}

func usable(err error) bool {
	if err == nil {
		return true
	}
	var partial distbattery.ErrPartial
	return errors.As(err, &partial)
}

func convert(b *distbattery.Battery) Reading {
	if b == nil {
		return Reading{}
	}
	r := Reading{
		Energy:           round(b.Current),
		EnergyFull:       round(b.Full),
		EnergyFullDesign: round(b.Design),
		EnergyRate:       round(math.Abs(b.ChargeRate)),
	}
	// Volts; some firmware reports only the design voltage.
	volts := b.Voltage
	if volts <= 0 {
		volts = b.DesignVoltage
	}
	r.Voltage = round(volts * 1000)
	r.State = state(b.State.Raw, r.Energy, r.EnergyFull)
	return r
}

// state maps the library's OS-agnostic state. Idle means on AC power
// without charging, which is Full at the top of the charge.
func state(s distbattery.AgnosticState, energy, full uint32) battery.State {
	switch s {
	case distbattery.Charging:
		return battery.StateCharging
	case distbattery.Discharging:
		return battery.StateDischarging
	case distbattery.Full:
		return battery.StateFull
	case distbattery.Empty:
		return battery.StateEmpty
	case distbattery.Idle:
		if full > 0 && energy >= full {
			return battery.StateFull
		}
		return battery.StateUnknown
	default:
		return battery.StateUnknown
	}
}

func round(v float64) uint32 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	if v >= math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(math.Round(v))
}
