// Package batterytest provides an in-memory battery.Device for tests.
package batterytest

import (
	"context"
	"time"

	"github.com/cptspacemanspiff/battery-monitor/internal/battery"
)

// Values is the snapshot a Device reports. Nil pointers are absent values.
type Values struct {
	Percentage       float32
	Energy           uint32
	EnergyFull       uint32
	EnergyFullDesign uint32
	EnergyRate       uint32
	Voltage          uint32
	Capacity         float32
	State            battery.State
	Technology       battery.Technology
	Temperature      *float32
	CycleCount       *uint32
	Vendor           *string
	Model            *string
	SerialNumber     *string
	TimeToFull       *time.Duration
	TimeToEmpty      *time.Duration
}

// Device reports Values and counts accessor calls. Refresh applies Next
// when it is set.
type Device struct {
	Values Values
	Next   func() (Values, error)

	Calls     map[string]int
	Refreshes int
}

// New returns a Device reporting v.
func New(v Values) *Device {
	return &Device{Values: v, Calls: make(map[string]int)}
}

func (d *Device) hit(name string) {
	if d.Calls == nil {
		d.Calls = make(map[string]int)
	}
	d.Calls[name]++
}

func (d *Device) Percentage() float32 {
	d.hit("percentage")
	return d.Values.Percentage
}

func (d *Device) Energy() uint32 {
	d.hit("energy")
	return d.Values.Energy
}

func (d *Device) EnergyFull() uint32 {
	d.hit("energy_full")
	return d.Values.EnergyFull
}

func (d *Device) EnergyFullDesign() uint32 {
	d.hit("energy_full_design")
	return d.Values.EnergyFullDesign
}

func (d *Device) EnergyRate() uint32 {
	d.hit("energy_rate")
	return d.Values.EnergyRate
}

func (d *Device) Voltage() uint32 {
	d.hit("voltage")
	return d.Values.Voltage
}

func (d *Device) Capacity() float32 {
	d.hit("capacity")
	return d.Values.Capacity
}

func (d *Device) State() battery.State {
	d.hit("state")
	return d.Values.State
}

func (d *Device) Technology() battery.Technology {
	d.hit("technology")
	return d.Values.Technology
}

func (d *Device) Temperature() (float32, bool) {
	d.hit("temperature")
	return deref(d.Values.Temperature)
}

func (d *Device) CycleCount() (uint32, bool) {
	d.hit("cycle_count")
	return deref(d.Values.CycleCount)
}

func (d *Device) Vendor() (string, bool) {
	d.hit("vendor")
	return deref(d.Values.Vendor)
}

func (d *Device) Model() (string, bool) {
	d.hit("model")
	return deref(d.Values.Model)
}

func (d *Device) SerialNumber() (string, bool) {
	d.hit("serial_number")
	return deref(d.Values.SerialNumber)
}

func (d *Device) TimeToFull() (time.Duration, bool) {
	d.hit("time_to_full")
	return deref(d.Values.TimeToFull)
}

func (d *Device) TimeToEmpty() (time.Duration, bool) {
	d.hit("time_to_empty")
	return deref(d.Values.TimeToEmpty)
}

// Refresh implements battery.Refresher.
func (d *Device) Refresh() error {
	d.Refreshes++
	if d.Next == nil {
		return nil
	}
	v, err := d.Next()
	if err != nil {
		return err
	}
	d.Values = v
	return nil
}

func deref[T any](p *T) (T, bool) {
	if p == nil {
		var zero T
		return zero, false
	}
	return *p, true
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Source is a battery.Source over a fixed device list.
type Source struct {
	Devs []battery.Device
	Err  error
}

func (s *Source) Devices(context.Context) ([]battery.Device, error) {
	return s.Devs, s.Err
}

// Laptop is a typical discharging laptop battery.
func Laptop() Values {
	return Values{
		Percentage:       80,
		Energy:           40000,
		EnergyFull:       50000,
		EnergyFullDesign: 57000,
		EnergyRate:       8000,
		Voltage:          12400,
		Capacity:         battery.HealthPercent(50000, 57000),
		State:            battery.StateDischarging,
		Technology:       battery.LithiumIon,
		Temperature:      Ptr[float32](31.5),
		CycleCount:       Ptr[uint32](212),
		Vendor:           Ptr("SMP"),
		Model:            Ptr("5B10W13930"),
		SerialNumber:     Ptr("1234"),
		TimeToEmpty:      Ptr(5 * time.Hour),
	}
}
