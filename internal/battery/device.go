package battery

import "time"

// Device is the per-platform capability set behind a Battery. Units are
// mWh for energy, mW for rate, mV for voltage and °C for temperature.
// Optional values use the comma-ok form: false means the platform cannot
// report the value right now.
type Device interface {
	Percentage() float32
	Energy() uint32
	EnergyFull() uint32
	EnergyFullDesign() uint32
	EnergyRate() uint32
	Voltage() uint32
	Capacity() float32
	State() State
	Technology() Technology
	Temperature() (float32, bool)
	CycleCount() (uint32, bool)
	Vendor() (string, bool)
	Model() (string, bool)
	SerialNumber() (string, bool)
	TimeToFull() (time.Duration, bool)
	TimeToEmpty() (time.Duration, bool)
}

// Refresher is implemented by devices that hold a snapshot of OS state and
// can re-read it in place.
type Refresher interface {
	Refresh() error
}
