// Package wmi reads Windows batteries from WMI: Win32_Battery for the
// charge level and status, and the root\WMI battery classes for energy,
// rate and identity.
package wmi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cptspacemanspiff/battery-monitor/internal/battery"
)

// record joins the WMI rows describing one battery. The root\WMI classes
// are matched to Win32_Battery by position.
type record struct {
	Battery win32Battery
	Status  *batteryStatus
	Full    *batteryFullChargedCapacity
	Static  *batteryStaticData
	Cycles  *batteryCycleCount
}

type win32Battery struct {
	DeviceID                 string
	Name                     string
	Chemistry                uint16
	BatteryStatus            uint16
	EstimatedChargeRemaining uint16
	EstimatedRunTime         uint32
	DesignVoltage            uint64
}

type batteryStatus struct {
	InstanceName      string
	RemainingCapacity uint32
	ChargeRate        int32
	DischargeRate     int32
	Voltage           uint32
	PowerOnline       bool
	Charging          bool
	Discharging       bool
}

type batteryFullChargedCapacity struct {
	InstanceName        string
	FullChargedCapacity uint32
}

type batteryStaticData struct {
	InstanceName     string
	DesignedCapacity uint32
	ManufactureName  string
	SerialNumber     string
	DeviceName       string
}

type batteryCycleCount struct {
	InstanceName string
	CycleCount   uint32
}

// EstimatedRunTime while on AC power.
const runTimeOnAC = 71582788

// Source enumerates Win32_Battery instances.
type Source struct{}

func (Source) Devices(ctx context.Context) ([]battery.Device, error) {
	recs, err := query(ctx)
	if err != nil {
		return nil, err
	}
	devs := make([]battery.Device, 0, len(recs))
	for i, r := range recs {
		devs = append(devs, &Device{index: i, snap: parse(r)})
	}
	return devs, nil
}

// join pairs each Win32_Battery row with the root\WMI rows at the same
// position.
func join(bats []win32Battery, status []batteryStatus, full []batteryFullChargedCapacity,
	static []batteryStaticData, cycles []batteryCycleCount) []record {
	recs := make([]record, len(bats))
	for i, b := range bats {
		recs[i].Battery = b
		if i < len(status) {
			recs[i].Status = &status[i]
		}
		if i < len(full) {
			recs[i].Full = &full[i]
		}
		if i < len(static) {
			recs[i].Static = &static[i]
		}
		if i < len(cycles) {
			recs[i].Cycles = &cycles[i]
		}
	}
	return recs
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
	cycleCount       *uint32
	vendor           string
	model            string
	serial           string
	timeToFull       *time.Duration
	timeToEmpty      *time.Duration
}

func parse(r record) snapshot {
	s := snapshot{
		percentage: battery.ClampPercent(float32(r.Battery.EstimatedChargeRemaining)),
		voltage:    uint32(r.Battery.DesignVoltage),
		state:      parseStatus(r.Battery.BatteryStatus),
		technology: parseChemistry(r.Battery.Chemistry),
		model:      strings.TrimSpace(r.Battery.Name),
	}

	if st := r.Status; st != nil {
		s.energy = st.RemainingCapacity
		if st.Voltage > 0 {
			s.voltage = st.Voltage
		}
		switch {
		case st.Charging && st.ChargeRate > 0:
			s.energyRate = uint32(st.ChargeRate)
			s.state = battery.StateCharging
		case st.Discharging && st.DischargeRate > 0:
			s.energyRate = uint32(st.DischargeRate)
			s.state = battery.StateDischarging
		}
	}
	if r.Full != nil {
		s.energyFull = r.Full.FullChargedCapacity
	}
	if r.Static != nil {
		s.energyFullDesign = r.Static.DesignedCapacity
		s.vendor = strings.TrimSpace(r.Static.ManufactureName)
		s.serial = strings.TrimSpace(r.Static.SerialNumber)
		if name := strings.TrimSpace(r.Static.DeviceName); name != "" {
			s.model = name
		}
	}
	if r.Cycles != nil && r.Cycles.CycleCount > 0 {
		c := r.Cycles.CycleCount
		s.cycleCount = &c
	}

	if s.energyFull > 0 && r.Status != nil {
		s.percentage = battery.ChargePercent(s.energy, s.energyFull)
	} else if s.energyFull > 0 {
		s.energy = uint32(float64(s.energyFull) * float64(s.percentage) / 100)
	}
	if s.state == battery.StateCharging && s.percentage >= 100 {
		s.state = battery.StateFull
	}
	s.capacity = battery.HealthPercent(s.energyFull, s.energyFullDesign)

	s.timeToFull = ptr(battery.EstimateTimeToFull(s.state, s.energy, s.energyFull, s.energyRate))
	if rt := r.Battery.EstimatedRunTime; rt > 0 && rt != runTimeOnAC {
		s.timeToEmpty = ptr(battery.GateTimeToEmpty(s.state, time.Duration(rt)*time.Minute))
	} else {
		s.timeToEmpty = ptr(battery.EstimateTimeToEmpty(s.state, s.energy, s.energyRate))
	}
	return s
}

// parseStatus maps Win32_Battery.BatteryStatus: 1 discharging, 2 on AC,
// 3 fully charged, 4 low, 5 critical, 6-9 charging, 10 undefined,
// 11 partially charged.
func parseStatus(code uint16) battery.State {
	switch code {
	case 1, 4:
		return battery.StateDischarging
	case 5:
		return battery.StateEmpty
	case 3:
		return battery.StateFull
	case 6, 7, 8, 9:
		return battery.StateCharging
	default:
		return battery.StateUnknown
	}
}

// parseChemistry maps Win32_Battery.Chemistry.
func parseChemistry(code uint16) battery.Technology {
	switch code {
	case 3:
		return battery.LeadAcid
	case 4:
		return battery.NickelCadmium
	case 5:
		return battery.NickelMetalHydride
	case 6:
		return battery.LithiumIon
	case 8:
		return battery.LithiumPolymer
	default:
		return battery.TechnologyUnknown
	}
}

func ptr(d time.Duration, ok bool) *time.Duration {
	if !ok {
		return nil
	}
	return &d
}

// Device is a snapshot of one Win32_Battery instance.
type Device struct {
	index int
	snap  snapshot
}

// Refresh queries WMI again and re-reads this battery.
func (d *Device) Refresh() error {
	recs, err := query(context.Background())
	if err != nil {
		return err
	}
	if d.index >= len(recs) {
		return fmt.Errorf("Win32_Battery %d: %w", d.index, battery.ErrNotFound)
	}
	d.snap = parse(recs[d.index])
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

// Temperature is not exposed by the WMI battery classes.
func (d *Device) Temperature() (float32, bool) { return 0, false }

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
