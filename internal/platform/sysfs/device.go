package sysfs

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cptspacemanspiff/battery-monitor/internal/battery"
)

// Device is a snapshot of one /sys/class/power_supply/<name> battery.
type Device struct {
	dir string

	percentage       float32
	energy           uint32
	energyFull       uint32
	energyFullDesign uint32
	energyRate       uint32
	voltage          uint32
	capacity         float32
	state            battery.State
	technology       battery.Technology
	temperature      *float32
	cycleCount       *uint32
	vendor           string
	model            string
	serial           string
	timeToFull       *time.Duration
	timeToEmpty      *time.Duration
}

// Open reads the battery at dir.
func Open(dir string) (*Device, error) {
	d := &Device{dir: dir}
	if err := d.Refresh(); err != nil {
		return nil, err
	}
	return d, nil
}

// Name is the kernel name of the supply, e.g. BAT0.
func (d *Device) Name() string {
	return filepath.Base(d.dir)
}

// Refresh re-reads the battery attributes. On error the previous snapshot
// is kept.
func (d *Device) Refresh() error {
	if _, err := os.Stat(d.dir); err != nil {
		return fmt.Errorf("battery %s: %w", d.Name(), err)
	}
	p, err := readProps(d.dir)
	if err != nil {
		return fmt.Errorf("battery %s: %w", d.Name(), err)
	}
	next := snapshot(p, isACOnline)
	next.dir = d.dir
	*d = next
	return nil
}

func snapshot(p props, acOnline func() bool) Device {
	var d Device

	voltageUV, _ := p.int("VOLTAGE_NOW", "voltage_now")
	designUV, ok := p.int("VOLTAGE_MIN_DESIGN", "voltage_min_design")
	if !ok || designUV <= 0 {
		designUV = voltageUV
	}
	d.voltage = toMilli(voltageUV)

	if energy, ok := p.int("ENERGY_NOW", "energy_now"); ok {
		d.energy = toMilli(energy)
		full, _ := p.int("ENERGY_FULL", "energy_full")
		design, _ := p.int("ENERGY_FULL_DESIGN", "energy_full_design")
		d.energyFull = toMilli(full)
		d.energyFullDesign = toMilli(design)
	} else {
		charge, _ := p.int("CHARGE_NOW", "charge_now")
		full, _ := p.int("CHARGE_FULL", "charge_full")
		design, _ := p.int("CHARGE_FULL_DESIGN", "charge_full_design")
		d.energy = chargeToMilliWh(charge, designUV)
		d.energyFull = chargeToMilliWh(full, designUV)
		d.energyFullDesign = chargeToMilliWh(design, designUV)
	}

	// If power_now isn't reported, compute from voltage * current.
	if power, ok := p.int("POWER_NOW", "power_now"); ok && power != 0 {
		d.energyRate = toMilli(abs(power))
	} else if current, ok := p.int("CURRENT_NOW", "current_now"); ok {
		d.energyRate = chargeToMilliWh(abs(current), voltageUV)
	}

	capacityPct, hasCapacity := p.int("CAPACITY", "capacity")
	if d.energyFull > 0 {
		d.percentage = battery.ChargePercent(d.energy, d.energyFull)
	} else if hasCapacity {
		d.percentage = battery.ClampPercent(float32(capacityPct))
	}
	d.capacity = battery.HealthPercent(d.energyFull, d.energyFullDesign)

	status := p.get("STATUS", "status")
	d.state = battery.ParseState(status)
	// Some firmware reports "Discharging" or "Not charging" at full capacity
	// while on AC power. Detect this and correct to Full.
	atTop := d.percentage >= 100 || capacityPct >= 100
	if (d.state == battery.StateDischarging || status == "Not charging") && atTop && acOnline() {
		d.state = battery.StateFull
	}

	d.technology = battery.ParseTechnology(p.get("TECHNOLOGY", "technology"))

	// temp is in tenths of a degree.
	if temp, ok := p.int("TEMP", "temp"); ok {
		c := float32(temp) / 10
		d.temperature = &c
	}
	if cycles, ok := p.int("CYCLE_COUNT", "cycle_count"); ok && cycles > 0 {
		c := uint32(cycles)
		d.cycleCount = &c
	}

	d.vendor = p.get("MANUFACTURER", "manufacturer")
	d.model = p.get("MODEL_NAME", "model_name")
	d.serial = p.get("SERIAL_NUMBER", "serial_number")

	if secs, ok := p.int("TIME_TO_FULL_NOW", "time_to_full_now"); ok {
		d.timeToFull = gate(battery.GateTimeToFull(d.state, time.Duration(secs)*time.Second))
	} else {
		d.timeToFull = gate(battery.EstimateTimeToFull(d.state, d.energy, d.energyFull, d.energyRate))
	}
	if secs, ok := p.int("TIME_TO_EMPTY_NOW", "time_to_empty_now"); ok {
		d.timeToEmpty = gate(battery.GateTimeToEmpty(d.state, time.Duration(secs)*time.Second))
	} else {
		d.timeToEmpty = gate(battery.EstimateTimeToEmpty(d.state, d.energy, d.energyRate))
	}

	return d
}

// toMilli converts a micro-unit sysfs value.
func toMilli(micro int64) uint32 {
	if micro <= 0 {
		return 0
	}
	return uint32(micro / 1000)
}

// chargeToMilliWh converts µAh (or µA) at voltageUV to mWh (or mW).
func chargeToMilliWh(microAmp, voltageUV int64) uint32 {
	if microAmp <= 0 || voltageUV <= 0 {
		return 0
	}
	return uint32(microAmp * (voltageUV / 1000) / 1_000_000)
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func gate(d time.Duration, ok bool) *time.Duration {
	if !ok {
		return nil
	}
	return &d
}

func (d *Device) Percentage() float32      { return d.percentage }
func (d *Device) Energy() uint32           { return d.energy }
func (d *Device) EnergyFull() uint32       { return d.energyFull }
func (d *Device) EnergyFullDesign() uint32 { return d.energyFullDesign }
func (d *Device) EnergyRate() uint32       { return d.energyRate }
func (d *Device) Voltage() uint32          { return d.voltage }
func (d *Device) Capacity() float32        { return d.capacity }
func (d *Device) State() battery.State     { return d.state }

func (d *Device) Technology() battery.Technology { return d.technology }

func (d *Device) Temperature() (float32, bool) {
	if d.temperature == nil {
		return 0, false
	}
	return *d.temperature, true
}

func (d *Device) CycleCount() (uint32, bool) {
	if d.cycleCount == nil {
		return 0, false
	}
	return *d.cycleCount, true
}

func (d *Device) Vendor() (string, bool)       { return d.vendor, d.vendor != "" }
func (d *Device) Model() (string, bool)        { return d.model, d.model != "" }
func (d *Device) SerialNumber() (string, bool) { return d.serial, d.serial != "" }

func (d *Device) TimeToFull() (time.Duration, bool) {
	if d.timeToFull == nil {
		return 0, false
	}
	return *d.timeToFull, true
}

func (d *Device) TimeToEmpty() (time.Duration, bool) {
	if d.timeToEmpty == nil {
		return 0, false
	}
	return *d.timeToEmpty, true
}
