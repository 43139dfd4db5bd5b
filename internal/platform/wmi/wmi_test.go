package wmi

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cptspacemanspiff/battery-monitor/internal/battery"
)

func laptopRecords() []record {
	return join(
		[]win32Battery{{
			DeviceID:                 "1234SMP5B10",
			Name:                     "DELL 1234",
			Chemistry:                6,
			BatteryStatus:            1,
			EstimatedChargeRemaining: 80,
			EstimatedRunTime:         150,
			DesignVoltage:            11400,
		}},
		[]batteryStatus{{RemainingCapacity: 40000, DischargeRate: 10000, Voltage: 12000, Discharging: true}},
		[]batteryFullChargedCapacity{{FullChargedCapacity: 50000}},
		[]batteryStaticData{{DesignedCapacity: 57000, ManufactureName: "SMP", SerialNumber: "1234", DeviceName: "5B10W13930"}},
		[]batteryCycleCount{{CycleCount: 212}},
	)
}

func stubQuery(t *testing.T, recs *[]record) {
	t.Helper()
	orig := query
	query = func(context.Context) ([]record, error) { return *recs, nil }
	t.Cleanup(func() { query = orig })
}

func TestDevices_JoinsWMIClasses(t *testing.T) {
	recs := laptopRecords()
	stubQuery(t, &recs)

	devs, err := Source{}.Devices(context.Background())
	require.NoError(t, err)
	require.Len(t, devs, 1)
	b := battery.New(devs[0])

	assert.Equal(t, uint32(40000), b.Energy())
	assert.Equal(t, uint32(50000), b.EnergyFull())
	assert.Equal(t, uint32(57000), b.EnergyFullDesign())
	assert.Equal(t, uint32(10000), b.EnergyRate())
	assert.Equal(t, uint32(12000), b.Voltage())
	assert.InDelta(t, 80, b.Percentage(), 0.001)
	assert.Equal(t, battery.HealthPercent(50000, 57000), b.Capacity())
	assert.Equal(t, battery.StateDischarging, b.State())
	assert.Equal(t, battery.LithiumIon, b.Technology())

	cycles, ok := b.CycleCount()
	require.True(t, ok)
	assert.Equal(t, uint32(212), cycles)
	model, _ := b.Model()
	assert.Equal(t, "5B10W13930", model)
	vendor, _ := b.Vendor()
	assert.Equal(t, "SMP", vendor)

	tte, ok := b.TimeToEmpty()
	require.True(t, ok)
	assert.Equal(t, 150*time.Minute, tte)
	_, ok = b.TimeToFull()
	assert.False(t, ok)
	_, ok = b.Temperature()
	assert.False(t, ok)
}

func TestParse_Win32BatteryOnly(t *testing.T) {
	s := parse(record{Battery: win32Battery{
		Name:                     "Primary",
		Chemistry:                2,
		BatteryStatus:            6,
		EstimatedChargeRemaining: 40,
		EstimatedRunTime:         runTimeOnAC,
		DesignVoltage:            11400,
	}})

	assert.Equal(t, float32(40), s.percentage)
	assert.Equal(t, battery.StateCharging, s.state)
	assert.Equal(t, battery.TechnologyUnknown, s.technology)
	assert.Equal(t, uint32(11400), s.voltage)
	assert.Equal(t, "Primary", s.model)
	assert.Equal(t, float32(100), s.capacity, "unknown design energy reports full health")
	assert.Nil(t, s.timeToEmpty)
	assert.Nil(t, s.timeToFull)
	assert.Nil(t, s.cycleCount)
}

func TestDevice_Refresh(t *testing.T) {
	recs := laptopRecords()
	stubQuery(t, &recs)

	m := battery.NewManager(Source{})
	bats, err := m.Batteries(context.Background())
	require.NoError(t, err)

	recs[0].Status.RemainingCapacity = 45000
	require.NoError(t, m.Refresh(bats[0]))
	assert.Equal(t, uint32(45000), bats[0].Energy())

	recs = nil
	assert.ErrorIs(t, m.Refresh(bats[0]), battery.ErrNotFound)
	assert.Equal(t, uint32(45000), bats[0].Energy())
}

func TestParseStatusAndChemistry(t *testing.T) {
	assert.Equal(t, battery.StateFull, parseStatus(3))
	assert.Equal(t, battery.StateEmpty, parseStatus(5))
	assert.Equal(t, battery.StateCharging, parseStatus(8))
	assert.Equal(t, battery.StateUnknown, parseStatus(2))
	assert.Equal(t, battery.LithiumPolymer, parseChemistry(8))
	assert.Equal(t, battery.NickelMetalHydride, parseChemistry(5))
	assert.Equal(t, battery.TechnologyUnknown, parseChemistry(1))
}
