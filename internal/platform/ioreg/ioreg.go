// Package ioreg reads macOS batteries. Energy, rate, voltage and state come
// from IOKit through the native package; identity, temperature, cycle count
// and the SMC time estimates are read from the AppleSmartBattery node with
// the ioreg tool.
//
// IOKit does not expose the cell chemistry, so Technology is always
// TechnologyUnknown.
package ioreg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/cptspacemanspiff/battery-monitor/internal/battery"
	"github.com/cptspacemanspiff/battery-monitor/internal/platform/native"
)

// unknownMinutes is what the SMC reports for an unavailable estimate.
const unknownMinutes = 65535

// Tests replace these.
var (
	readAll = native.ReadAll
	read    = native.Read
)

// query runs ioreg; tests replace it.
var query = func(ctx context.Context) ([]byte, error) {
	out, err := exec.CommandContext(ctx, "ioreg", "-rn", "AppleSmartBattery").Output()
	if err != nil {
		return nil, fmt.Errorf("run ioreg: %w", err)
	}
	return out, nil
}

// Source enumerates AppleSmartBattery entries.
type Source struct{}

func (Source) Devices(ctx context.Context) ([]battery.Device, error) {
	readings, err := readAll()
	if err != nil {
		return nil, err
	}
	if len(readings) == 0 {
		return nil, nil
	}
	out, err := query(ctx)
	if err != nil {
		return nil, err
	}
	entries := parseEntries(out)

	devs := make([]battery.Device, 0, len(readings))
	for i, r := range readings {
		var props map[string]string
		if i < len(entries) {
			props = entries[i]
		}
		devs = append(devs, &Device{index: i, snap: parse(r, props)})
	}
	return devs, nil
}

// parseEntries splits ioreg output into one property map per
// AppleSmartBattery node. Nested dictionaries are kept as raw text.
func parseEntries(out []byte) []map[string]string {
	var entries []map[string]string
	var cur map[string]string

	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimLeft(strings.TrimSpace(sc.Text()), "| ")
		switch {
		case strings.HasPrefix(line, "+-o AppleSmartBattery"):
			cur = map[string]string{}
			entries = append(entries, cur)
		case cur != nil && strings.HasPrefix(line, `"`):
			key, value, ok := strings.Cut(line, "=")
			if !ok {
				continue
			}
			key = strings.Trim(strings.TrimSpace(key), `"`)
			cur[key] = strings.TrimSpace(value)
		}
	}
	return entries
}

type snapshot struct {
	percentage       float32
	energy           uint32
	energyFull       uint32
	energyFullDesign uint32
	energyRate       uint32
	voltage          uint32
	capacity         float32
	state            battery.State
	temperature      *float32
	cycleCount       *uint32
	vendor           string
	model            string
	serial           string
	timeToFull       *time.Duration
	timeToEmpty      *time.Duration
}

func parse(r native.Reading, props map[string]string) snapshot {
	s := snapshot{
		energy:           r.Energy,
		energyFull:       r.EnergyFull,
		energyFullDesign: r.EnergyFullDesign,
		energyRate:       r.EnergyRate,
		voltage:          r.Voltage,
		state:            r.State,
		percentage:       battery.ChargePercent(r.Energy, r.EnergyFull),
		capacity:         battery.HealthPercent(r.EnergyFull, r.EnergyFullDesign),
	}

	// Temperature is in hundredths of a degree.
	if t, ok := intValue(props, "Temperature"); ok && t > 0 {
		c := float32(t) / 100
		s.temperature = &c
	}
	if n, ok := intValue(props, "CycleCount"); ok && n >= 0 {
		c := uint32(n)
		s.cycleCount = &c
	}

	s.vendor = stringValue(props, "Manufacturer")
	s.model = stringValue(props, "DeviceName")
	s.serial = stringValue(props, "BatterySerialNumber")
	if s.serial == "" {
		s.serial = stringValue(props, "Serial")
	}

	s.timeToFull = minutes(props, "AvgTimeToFull", func(d time.Duration) (time.Duration, bool) {
		return battery.GateTimeToFull(s.state, d)
	})
	if s.timeToFull == nil {
		s.timeToFull = ptr(battery.EstimateTimeToFull(s.state, s.energy, s.energyFull, s.energyRate))
	}
	s.timeToEmpty = minutes(props, "AvgTimeToEmpty", func(d time.Duration) (time.Duration, bool) {
		return battery.GateTimeToEmpty(s.state, d)
	})
	if s.timeToEmpty == nil {
		s.timeToEmpty = ptr(battery.EstimateTimeToEmpty(s.state, s.energy, s.energyRate))
	}

	return s
}

func minutes(props map[string]string, key string, gate func(time.Duration) (time.Duration, bool)) *time.Duration {
	m, ok := intValue(props, key)
	if !ok || m <= 0 || m == unknownMinutes {
		return nil
	}
	return ptr(gate(time.Duration(m) * time.Minute))
}

func ptr(d time.Duration, ok bool) *time.Duration {
	if !ok {
		return nil
	}
	return &d
}

// intValue parses a numeric property. Negative values are printed as
// unsigned 64-bit two's complement.
func intValue(props map[string]string, key string) (int64, bool) {
	raw, ok := props[key]
	if !ok {
		return 0, false
	}
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return v, true
	}
	if u, err := strconv.ParseUint(raw, 10, 64); err == nil {
		return int64(u), true
	}
	return 0, false
}

func stringValue(props map[string]string, key string) string {
	raw, ok := props[key]
	if !ok || !strings.HasPrefix(raw, `"`) {
		return ""
	}
	s, err := strconv.Unquote(raw)
	if err != nil {
		return strings.Trim(raw, `"`)
	}
	return strings.TrimSpace(s)
}

// Device is a snapshot of one AppleSmartBattery node.
type Device struct {
	index int
	snap  snapshot
}

// Refresh re-reads this battery.
func (d *Device) Refresh() error {
	out, err := query(context.Background())
	if err != nil {
		return err
	}
	entries := parseEntries(out)
	if d.index >= len(entries) {
		return fmt.Errorf("AppleSmartBattery %d: %w", d.index, battery.ErrNotFound)
	}
	r, err := read(d.index)
	if err != nil {
		return err
	}
	d.snap = parse(r, entries[d.index])
	return nil
}

func (d *Device) Percentage() float32      { return d.snap.percentage }
func (d *Device) Energy() uint32           { return d.snap.energy }
func (d *Device) EnergyFull() uint32       { return d.snap.energyFull }
func (d *Device) EnergyFullDesign() uint32 { return d.snap.energyFullDesign }
func (d *Device) EnergyRate() uint32       { return d.snap.energyRate }
func (d *Device) Voltage() uint32          { return d.snap.voltage }
func (d *Device) Capacity() float32        { return d.snap.capacity }
func (d *Device) State() battery.State     { return d.snap.state }

// Technology is always TechnologyUnknown on macOS.
func (d *Device) Technology() battery.Technology { return battery.TechnologyUnknown }

func (d *Device) Temperature() (float32, bool) {
	if d.snap.temperature == nil {
		return 0, false
	}
	return *d.snap.temperature, true
}

func (d *Device) CycleCount() (uint32, bool) {
	if d.snap.cycleCount == nil {
		return 0, false
	}
	return *d.snap.cycleCount, true
}

func (d *Device) Vendor() (string, bool)       { return d.snap.vendor, d.snap.vendor != "" }
func (d *Device) Model() (string, bool)        { return d.snap.model, d.snap.model != "" }
func (d *Device) SerialNumber() (string, bool) { return d.snap.serial, d.snap.serial != "" }

func (d *Device) TimeToFull() (time.Duration, bool) {
	if d.snap.timeToFull == nil {
		return 0, false
	}
	return *d.snap.timeToFull, true
}

func (d *Device) TimeToEmpty() (time.Duration, bool) {
	if d.snap.timeToEmpty == nil {
		return 0, false
	}
	return *d.snap.timeToEmpty, true
}
