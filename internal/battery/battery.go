// Package battery exposes instantaneous battery telemetry through a
// platform-independent facade over a per-OS Device.
package battery

import (
	"fmt"
	"time"
)

// Battery is a read-only view of one physical battery. Every accessor asks
// the wrapped device at call time; consecutive calls may differ if the
// device was refreshed in between.
type Battery struct {
	dev Device
}

// New wraps dev. The Battery becomes the device's sole owner.
func New(dev Device) *Battery {
	return &Battery{dev: dev}
}

// Percentage is the state of charge in the 0..100 range.
func (b *Battery) Percentage() float32 { return b.dev.Percentage() }

// Energy is the energy currently stored, in mWh.
func (b *Battery) Energy() uint32 { return b.dev.Energy() }

// EnergyFull is the energy held when the battery is considered full, in mWh.
// It drifts below EnergyFullDesign as the battery ages.
func (b *Battery) EnergyFull() uint32 { return b.dev.EnergyFull() }

// EnergyFullDesign is the manufacturer's full-charge energy, in mWh.
func (b *Battery) EnergyFullDesign() uint32 { return b.dev.EnergyFullDesign() }

// EnergyRate is the charge or discharge power, in mW.
func (b *Battery) EnergyRate() uint32 { return b.dev.EnergyRate() }

// Voltage is the terminal voltage, in mV.
func (b *Battery) Voltage() uint32 { return b.dev.Voltage() }

// Capacity is the battery health (EnergyFull / EnergyFullDesign) in the
// 0..100 range.
func (b *Battery) Capacity() float32 { return b.dev.Capacity() }

// State is the charging state. Idle batteries on AC power that report
// neither charging nor discharging are StateUnknown or StateFull.
func (b *Battery) State() State { return b.dev.State() }

// Technology is the battery chemistry. macOS always reports
// TechnologyUnknown.
func (b *Battery) Technology() Technology { return b.dev.Technology() }

// Temperature is in °C. FreeBSD never reports it.
func (b *Battery) Temperature() (float32, bool) { return b.dev.Temperature() }

// CycleCount is the number of charge/discharge cycles. FreeBSD never
// reports it.
func (b *Battery) CycleCount() (uint32, bool) { return b.dev.CycleCount() }

// Vendor is the manufacturer name, absent when the firmware leaves it blank.
func (b *Battery) Vendor() (string, bool) { return b.dev.Vendor() }

// Model is the battery model name.
func (b *Battery) Model() (string, bool) { return b.dev.Model() }

// SerialNumber is the pack serial number. Many vendors leave it blank.
func (b *Battery) SerialNumber() (string, bool) { return b.dev.SerialNumber() }

// TimeToFull is present only while charging. It is an instant estimate and
// may vary a lot between calls; callers aggregate samples themselves.
func (b *Battery) TimeToFull() (time.Duration, bool) { return b.dev.TimeToFull() }

// TimeToEmpty is present only while discharging, with the same caveats as
// TimeToFull.
func (b *Battery) TimeToEmpty() (time.Duration, bool) { return b.dev.TimeToEmpty() }

// String renders the diagnostic record.
func (b *Battery) String() string {
	return b.Report().String()
}

// GoString makes %#v print the diagnostic record instead of the device.
func (b *Battery) GoString() string {
	return fmt.Sprintf("battery.%s", b.Report().String())
}

func (b *Battery) device() Device {
	return b.dev
}

// refresh re-reads the wrapped device in place.
func (b *Battery) refresh() error {
	r, ok := b.dev.(Refresher)
	if !ok {
		return ErrNotRefreshable
	}
	return r.Refresh()
}
