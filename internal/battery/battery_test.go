package battery_test

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cptspacemanspiff/battery-monitor/internal/battery"
	"github.com/cptspacemanspiff/battery-monitor/internal/battery/batterytest"
)

var fieldOrder = []string{
	"vendor", "model", "serial_number", "technology",
	"state", "capacity", "temperature", "percentage", "cycle_count",
	"energy", "energy_full", "energy_full_design", "energy_rate", "voltage",
	"time_to_full", "time_to_empty",
}

func TestBattery_ForwardsEveryAccessor(t *testing.T) {
	v := batterytest.Laptop()
	b := battery.New(batterytest.New(v))

	assert.Equal(t, v.Percentage, b.Percentage())
	assert.Equal(t, v.Energy, b.Energy())
	assert.Equal(t, v.EnergyFull, b.EnergyFull())
	assert.Equal(t, v.EnergyFullDesign, b.EnergyFullDesign())
	assert.Equal(t, v.EnergyRate, b.EnergyRate())
	assert.Equal(t, v.Voltage, b.Voltage())
	assert.Equal(t, v.Capacity, b.Capacity())
	assert.Equal(t, battery.StateDischarging, b.State())
	assert.Equal(t, battery.LithiumIon, b.Technology())

	temp, ok := b.Temperature()
	require.True(t, ok)
	assert.Equal(t, float32(31.5), temp)

	cycles, ok := b.CycleCount()
	require.True(t, ok)
	assert.Equal(t, uint32(212), cycles)

	vendor, ok := b.Vendor()
	require.True(t, ok)
	assert.Equal(t, "SMP", vendor)

	_, ok = b.TimeToFull()
	assert.False(t, ok)
	tte, ok := b.TimeToEmpty()
	require.True(t, ok)
	assert.Equal(t, 5*time.Hour, tte)
}

func TestBattery_ChargingScenario(t *testing.T) {
	b := battery.New(batterytest.New(batterytest.Values{
		Percentage: 55,
		State:      battery.StateCharging,
		TimeToFull: batterytest.Ptr(25 * time.Minute),
	}))

	assert.Equal(t, float32(55), b.Percentage())
	assert.Equal(t, battery.StateCharging, b.State())

	ttf, ok := b.TimeToFull()
	require.True(t, ok)
	assert.Equal(t, 25*time.Minute, ttf)

	_, ok = b.TimeToEmpty()
	assert.False(t, ok)
}

func TestBattery_DoesNotCache(t *testing.T) {
	dev := batterytest.New(batterytest.Values{Percentage: 40})
	b := battery.New(dev)

	assert.Equal(t, float32(40), b.Percentage())
	dev.Values.Percentage = 41
	assert.Equal(t, float32(41), b.Percentage())
	assert.Equal(t, 2, dev.Calls["percentage"])
}

func TestReport_QueriesEachAccessorOnce(t *testing.T) {
	dev := batterytest.New(batterytest.Laptop())
	b := battery.New(dev)

	_ = b.Report()

	require.Len(t, dev.Calls, len(fieldOrder))
	for _, name := range fieldOrder {
		assert.Equal(t, 1, dev.Calls[name], "calls to %s", name)
	}
}

func TestReport_FieldOrder(t *testing.T) {
	r := battery.New(batterytest.New(batterytest.Laptop())).Report()

	var names []string
	for _, f := range r.Fields() {
		names = append(names, f.Name)
	}
	assert.Equal(t, fieldOrder, names)
}

func TestReport_StableAcrossCalls(t *testing.T) {
	b := battery.New(batterytest.New(batterytest.Laptop()))

	first := b.Report()
	second := b.Report()

	assert.Equal(t, first, second)
	assert.Equal(t, first.Fields(), second.Fields())
	assert.Equal(t, b.String(), b.String())
}

func TestReport_AbsentVendorRendersMarker(t *testing.T) {
	v := batterytest.Laptop()
	v.Vendor = nil
	b := battery.New(batterytest.New(v))

	_, ok := b.Vendor()
	assert.False(t, ok)

	fields := b.Report().Fields()
	require.Equal(t, "vendor", fields[0].Name)
	assert.Equal(t, battery.AbsentMarker, fields[0].Value)
	assert.NotEmpty(t, fields[0].Value)
	assert.Contains(t, b.String(), "vendor: <none>")
}

func TestReport_String(t *testing.T) {
	b := battery.New(batterytest.New(batterytest.Values{
		Vendor:           batterytest.Ptr("ACME"),
		Technology:       battery.LithiumPolymer,
		State:            battery.StateFull,
		Capacity:         100,
		Percentage:       100,
		Energy:           50000,
		EnergyFull:       50000,
		EnergyFullDesign: 50000,
		Voltage:          12600,
	}))

	want := `Battery{vendor: "ACME", model: <none>, serial_number: <none>, technology: lithium-polymer, ` +
		`state: full, capacity: 100, temperature: <none>, percentage: 100, cycle_count: <none>, ` +
		`energy: 50000, energy_full: 50000, energy_full_design: 50000, energy_rate: 0, voltage: 12600, ` +
		`time_to_full: <none>, time_to_empty: <none>}`
	assert.Equal(t, want, b.String())
	assert.Equal(t, want, fmt.Sprint(b))
}

func TestReport_JSON(t *testing.T) {
	v := batterytest.Laptop()
	v.SerialNumber = nil
	r := battery.New(batterytest.New(v)).Report()

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Nil(t, raw["serial_number"])
	assert.Equal(t, "discharging", raw["state"])
	assert.Equal(t, "lithium-ion", raw["technology"])
	assert.Equal(t, float64(5*3600), raw["time_to_empty"])
	assert.Nil(t, raw["time_to_full"])

	var decoded battery.Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, r, decoded)
}

func TestReport_YAML(t *testing.T) {
	r := battery.New(batterytest.New(batterytest.Laptop())).Report()

	data, err := yaml.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(data), "state: discharging\n")
	assert.Contains(t, string(data), "time_to_full: null\n")

	var node yaml.Node
	require.NoError(t, yaml.Unmarshal(data, &node))
	mapping := node.Content[0]
	var keys []string
	for i := 0; i < len(mapping.Content); i += 2 {
		keys = append(keys, mapping.Content[i].Value)
	}
	assert.Equal(t, fieldOrder, keys)

	var decoded battery.Report
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	assert.Equal(t, r, decoded)
}
