// Package acpiconf reads FreeBSD batteries. Energy, rate, voltage and state
// come from the ACPI ioctl through the native package; chemistry, identity
// strings and the firmware remaining time are read from acpiconf(8).
//
// The ACPI battery interface has no temperature or cycle count, so those
// are always absent.
package acpiconf

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

// Tests replace these.
var (
	readAll = native.ReadAll
	read    = native.Read
)

// run executes a command and returns stdout; tests replace it.
var run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", name, err)
	}
	return out, nil
}

// Source enumerates ACPI battery units.
type Source struct{}

func (Source) Devices(ctx context.Context) ([]battery.Device, error) {
	readings, err := readAll()
	if err != nil {
		return nil, err
	}
	devs := make([]battery.Device, 0, len(readings))
	for i, r := range readings {
		info, err := unitInfo(ctx, i)
		if err != nil {
			return nil, err
		}
		devs = append(devs, &Device{unit: i, snap: parse(r, info)})
	}
	return devs, nil
}

// unitInfo runs acpiconf -i for one unit.
func unitInfo(ctx context.Context, unit int) (map[string]string, error) {
	out, err := run(ctx, "acpiconf", "-i", strconv.Itoa(unit))
	if err != nil {
		return nil, fmt.Errorf("battery unit %d: %w", unit, err)
	}
	info := parseInfo(out)
	if info["State"] == "not present" {
		return nil, fmt.Errorf("battery unit %d: %w", unit, battery.ErrNotFound)
	}
	return info, nil
}

// parseInfo reads the "Key:<tabs>value" lines of acpiconf -i.
func parseInfo(out []byte) map[string]string {
	info := make(map[string]string)
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		info[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return info
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
	technology       battery.Technology
	vendor           string
	model            string
	serial           string
	timeToFull       *time.Duration
	timeToEmpty      *time.Duration
}

func parse(r native.Reading, info map[string]string) snapshot {
	s := snapshot{
		energy:           r.Energy,
		energyFull:       r.EnergyFull,
		energyFullDesign: r.EnergyFullDesign,
		energyRate:       r.EnergyRate,
		voltage:          r.Voltage,
		state:            r.State,
		percentage:       battery.ChargePercent(r.Energy, r.EnergyFull),
		capacity:         battery.HealthPercent(r.EnergyFull, r.EnergyFullDesign),
		technology:       battery.ParseTechnology(info["Type"]),
		vendor:           info["OEM info"],
		model:            info["Model number"],
		serial:           info["Serial number"],
	}

	s.timeToFull = ptr(battery.EstimateTimeToFull(s.state, s.energy, s.energyFull, s.energyRate))
	if d, ok := remainingTime(info["Remaining time"]); ok {
		s.timeToEmpty = ptr(battery.GateTimeToEmpty(s.state, d))
	} else {
		s.timeToEmpty = ptr(battery.EstimateTimeToEmpty(s.state, s.energy, s.energyRate))
	}
	return s
}

// remainingTime parses "h:mm".
func remainingTime(v string) (time.Duration, bool) {
	h, m, ok := strings.Cut(v, ":")
	if !ok {
		return 0, false
	}
	hours, err1 := strconv.Atoi(h)
	mins, err2 := strconv.Atoi(m)
	if err1 != nil || err2 != nil || hours < 0 || mins < 0 {
		return 0, false
	}
	return time.Duration(hours)*time.Hour + time.Duration(mins)*time.Minute, true
}

func ptr(d time.Duration, ok bool) *time.Duration {
	if !ok {
		return nil
	}
	return &d
}

// Device is a snapshot of one ACPI battery unit.
type Device struct {
	unit int
	snap snapshot
}

// Refresh re-reads this unit.
func (d *Device) Refresh() error {
	info, err := unitInfo(context.Background(), d.unit)
	if err != nil {
		return err
	}
	r, err := read(d.unit)
	if err != nil {
		return err
	}
	d.snap = parse(r, info)
	return nil
}

func (d *Device) Percentage() float32            { return d.snap.percentage }
func (d *Device) Energy() uint32                 { return d.snap.energy }
func (d *Device) EnergyFull() uint32             { return d.snap.energyFull }
func (d *Device) EnergyFullDesign() uint32       { return d.snap.energyFullDesign }
func (d *Device) EnergyRate() uint32             { return d.snap.energyRate }
func (d *Device) Voltage() uint32                { return d.snap.voltage }
func (d *Device) Capacity() float32              { return d.snap.capacity }
func (d *Device) State() battery.State           { return d.snap.state }
func (d *Device) Technology() battery.Technology { return d.snap.technology }

// Temperature is always absent on FreeBSD.
func (d *Device) Temperature() (float32, bool) { return 0, false }

// CycleCount is always absent on FreeBSD.
func (d *Device) CycleCount() (uint32, bool) { return 0, false }

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
