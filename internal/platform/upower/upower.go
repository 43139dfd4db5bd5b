// Package upower reads batteries from the UPower daemon over the D-Bus
// system bus.
package upower

import (
	"context"
	"fmt"
	"math"
	"time"

	godbus "github.com/godbus/dbus/v5"

	"github.com/cptspacemanspiff/battery-monitor/internal/battery"
)

const (
	busName     = "org.freedesktop.UPower"
	objPath     = "/org/freedesktop/UPower"
	deviceIface = "org.freedesktop.UPower.Device"

	// UPower device type for a laptop battery.
	typeBattery = 2
)

// bus is the subset of D-Bus calls the package needs.
type bus interface {
	EnumerateDevices(ctx context.Context) ([]godbus.ObjectPath, error)
	GetAll(ctx context.Context, path godbus.ObjectPath) (map[string]godbus.Variant, error)
}

type systemBus struct {
	conn *godbus.Conn
}

func (b systemBus) EnumerateDevices(ctx context.Context) ([]godbus.ObjectPath, error) {
	var paths []godbus.ObjectPath
	err := b.conn.Object(busName, objPath).
		CallWithContext(ctx, busName+".EnumerateDevices", 0).
		Store(&paths)
	if err != nil {
		return nil, fmt.Errorf("enumerate upower devices: %w", err)
	}
	return paths, nil
}

func (b systemBus) GetAll(ctx context.Context, path godbus.ObjectPath) (map[string]godbus.Variant, error) {
	var props map[string]godbus.Variant
	err := b.conn.Object(busName, path).
		CallWithContext(ctx, "org.freedesktop.DBus.Properties.GetAll", 0, deviceIface).
		Store(&props)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return props, nil
}

// Source enumerates power-supply batteries known to UPower.
type Source struct {
	bus bus
}

// NewSource connects to the system bus.
func NewSource() (*Source, error) {
	conn, err := godbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect system bus: %w", err)
	}
	return &Source{bus: systemBus{conn: conn}}, nil
}

func (s *Source) Devices(ctx context.Context) ([]battery.Device, error) {
	paths, err := s.bus.EnumerateDevices(ctx)
	if err != nil {
		return nil, err
	}

	var devs []battery.Device
	for _, path := range paths {
		props, err := s.bus.GetAll(ctx, path)
		if err != nil {
			return nil, err
		}
		if uintProp(props, "Type") != typeBattery || !boolProp(props, "PowerSupply") {
			continue
		}
		devs = append(devs, &Device{bus: s.bus, path: path, snap: parse(props)})
	}
	return devs, nil
}

// Device is a snapshot of one UPower battery object.
type Device struct {
	bus  bus
	path godbus.ObjectPath
	snap snapshot
}

// Refresh re-reads the device properties.
func (d *Device) Refresh() error {
	props, err := d.bus.GetAll(context.Background(), d.path)
	if err != nil {
		return err
	}
	d.snap = parse(props)
	return nil
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
	temperature      float32
	hasTemperature   bool
	cycleCount       uint32
	hasCycleCount    bool
	vendor           string
	model            string
	serial           string
	timeToFull       time.Duration
	hasTimeToFull    bool
	timeToEmpty      time.Duration
	hasTimeToEmpty   bool
}

// parse converts UPower's Wh/W/V doubles to mWh/mW/mV.
func parse(props map[string]godbus.Variant) snapshot {
	s := snapshot{
		percentage:       battery.ClampPercent(float32(floatProp(props, "Percentage"))),
		energy:           milli(floatProp(props, "Energy")),
		energyFull:       milli(floatProp(props, "EnergyFull")),
		energyFullDesign: milli(floatProp(props, "EnergyFullDesign")),
		energyRate:       milli(math.Abs(floatProp(props, "EnergyRate"))),
		voltage:          milli(floatProp(props, "Voltage")),
		state:            parseState(uintProp(props, "State")),
		technology:       parseTechnology(uintProp(props, "Technology")),
		vendor:           stringProp(props, "Vendor"),
		model:            stringProp(props, "Model"),
		serial:           stringProp(props, "Serial"),
	}

	// Capacity is 0 when the design energy is unknown; use the shared rule.
	if c, ok := props["Capacity"]; ok && s.energyFullDesign > 0 {
		s.capacity = battery.ClampPercent(float32(toFloat(c.Value())))
	} else {
		s.capacity = battery.HealthPercent(s.energyFull, s.energyFullDesign)
	}

	// UPower reports 0 for an unknown temperature.
	if t := floatProp(props, "Temperature"); t != 0 {
		s.temperature, s.hasTemperature = float32(t), true
	}
	// ChargeCycles is -1 (or 0 on old daemons) when unknown.
	if c, ok := props["ChargeCycles"]; ok {
		if n := toFloat(c.Value()); n > 0 {
			s.cycleCount, s.hasCycleCount = uint32(n), true
		}
	}

	s.timeToFull, s.hasTimeToFull = battery.GateTimeToFull(s.state,
		time.Duration(floatProp(props, "TimeToFull"))*time.Second)
	s.timeToEmpty, s.hasTimeToEmpty = battery.GateTimeToEmpty(s.state,
		time.Duration(floatProp(props, "TimeToEmpty"))*time.Second)

	return s
}

// UPower device states: 1 charging, 2 discharging, 3 empty, 4 fully
// charged, 5 pending charge, 6 pending discharge.
func parseState(v uint32) battery.State {
	switch v {
	case 1:
		return battery.StateCharging
	case 2:
		return battery.StateDischarging
	case 3:
		return battery.StateEmpty
	case 4:
		return battery.StateFull
	default:
		return battery.StateUnknown
	}
}

func parseTechnology(v uint32) battery.Technology {
	switch v {
	case 1:
		return battery.LithiumIon
	case 2:
		return battery.LithiumPolymer
	case 3:
		return battery.LithiumIronPhosphate
	case 4:
		return battery.LeadAcid
	case 5:
		return battery.NickelCadmium
	case 6:
		return battery.NickelMetalHydride
	default:
		return battery.TechnologyUnknown
	}
}

func milli(v float64) uint32 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	return uint32(math.Round(v * 1000))
}

func floatProp(props map[string]godbus.Variant, name string) float64 {
	v, ok := props[name]
	if !ok {
		return 0
	}
	return toFloat(v.Value())
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	case int32:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	default:
		return 0
	}
}

func uintProp(props map[string]godbus.Variant, name string) uint32 {
	f := floatProp(props, name)
	if f < 0 {
		return 0
	}
	return uint32(f)
}

func boolProp(props map[string]godbus.Variant, name string) bool {
	v, ok := props[name]
	if !ok {
		return false
	}
	b, _ := v.Value().(bool)
	return b
}

func stringProp(props map[string]godbus.Variant, name string) string {
	v, ok := props[name]
	if !ok {
		return ""
	}
	s, _ := v.Value().(string)
	return s
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

func (d *Device) Temperature() (float32, bool) { return d.snap.temperature, d.snap.hasTemperature }
func (d *Device) CycleCount() (uint32, bool)   { return d.snap.cycleCount, d.snap.hasCycleCount }
func (d *Device) Vendor() (string, bool)       { return d.snap.vendor, d.snap.vendor != "" }
func (d *Device) Model() (string, bool)        { return d.snap.model, d.snap.model != "" }
func (d *Device) SerialNumber() (string, bool) { return d.snap.serial, d.snap.serial != "" }

func (d *Device) TimeToFull() (time.Duration, bool) {
	return d.snap.timeToFull, d.snap.hasTimeToFull
}

func (d *Device) TimeToEmpty() (time.Duration, bool) {
	return d.snap.timeToEmpty, d.snap.hasTimeToEmpty
}
