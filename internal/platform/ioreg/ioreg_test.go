package ioreg

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cptspacemanspiff/battery-monitor/internal/battery"
	"github.com/cptspacemanspiff/battery-monitor/internal/platform/native"
)

const appleSilicon = `+-o AppleSmartBattery  <class AppleSmartBattery, id 0x100000a1b, registered, matched, active, busy 0 (0 ms), retain 7>
    {
      "AppleRawCurrentCapacity" = 4000
      "AppleRawMaxCapacity" = 5000
      "DesignCapacity" = 5500
      "Voltage" = 12600
      "Amperage" = 18446744073709550616
      "CycleCount" = 150
      "Temperature" = 3050
      "AvgTimeToEmpty" = 65535
      "AvgTimeToFull" = 65535
      "Manufacturer" = "SMP"
      "DeviceName" = "bq20z451"
      "BatterySerialNumber" = "D865"
      "LegacyBatteryInfo" = {"Amperage"=18446744073709550616,"Flags"=4,"Capacity"=5000}
    }
`

const intelCharging = `+-o AppleSmartBattery  <class AppleSmartBattery, id 0x1000002a1, registered, matched, active, busy 0 (0 ms), retain 6>
  | {
  |   "CurrentCapacity" = 3000
  |   "MaxCapacity" = 6000
  |   "AvgTimeToFull" = 75
  |   "AvgTimeToEmpty" = 65535
  | }
`

var (
	discharging = native.Reading{
		Energy: 50400, EnergyFull: 63000, EnergyFullDesign: 69300,
		EnergyRate: 12600, Voltage: 12600, State: battery.StateDischarging,
	}
	charging = native.Reading{
		Energy: 33000, EnergyFull: 66000, EnergyFullDesign: 66000,
		EnergyRate: 22000, Voltage: 11000, State: battery.StateCharging,
	}
)

type fakeHost struct {
	out      string
	queryErr error
	readings []native.Reading
	readErr  error
}

func stub(t *testing.T, h *fakeHost) {
	t.Helper()
	origQuery, origReadAll, origRead := query, readAll, read
	query = func(context.Context) ([]byte, error) {
		if h.queryErr != nil {
			return nil, h.queryErr
		}
		return []byte(h.out), nil
	}
	readAll = func() ([]native.Reading, error) {
		if h.readErr != nil {
			return nil, h.readErr
		}
		return h.readings, nil
	}
	read = func(idx int) (native.Reading, error) {
		if h.readErr != nil {
			return native.Reading{}, h.readErr
		}
		if idx >= len(h.readings) {
			return native.Reading{}, fmt.Errorf("battery %d: %w", idx, battery.ErrNotFound)
		}
		return h.readings[idx], nil
	}
	t.Cleanup(func() { query, readAll, read = origQuery, origReadAll, origRead })
}

func TestDevices_AppleSilicon(t *testing.T) {
	stub(t, &fakeHost{out: appleSilicon, readings: []native.Reading{discharging}})

	devs, err := Source{}.Devices(context.Background())
	require.NoError(t, err)
	require.Len(t, devs, 1)
	b := battery.New(devs[0])

	assert.Equal(t, uint32(12600), b.Voltage())
	assert.Equal(t, uint32(50400), b.Energy())
	assert.Equal(t, uint32(63000), b.EnergyFull())
	assert.Equal(t, uint32(69300), b.EnergyFullDesign())
	assert.Equal(t, uint32(12600), b.EnergyRate())
	assert.InDelta(t, 80, b.Percentage(), 0.001)
	assert.InDelta(t, 90.91, b.Capacity(), 0.01)
	assert.Equal(t, battery.StateDischarging, b.State())
	assert.Equal(t, battery.TechnologyUnknown, b.Technology())

	temp, ok := b.Temperature()
	require.True(t, ok)
	assert.Equal(t, float32(30.5), temp)

	cycles, ok := b.CycleCount()
	require.True(t, ok)
	assert.Equal(t, uint32(150), cycles)

	vendor, _ := b.Vendor()
	model, _ := b.Model()
	serial, _ := b.SerialNumber()
	assert.Equal(t, "SMP", vendor)
	assert.Equal(t, "bq20z451", model)
	assert.Equal(t, "D865", serial)

	tte, ok := b.TimeToEmpty()
	require.True(t, ok, "unknown SMC estimate falls back to energy/rate")
	assert.Equal(t, 4*time.Hour, tte)
	_, ok = b.TimeToFull()
	assert.False(t, ok)
}

func TestDevices_IntelCharging(t *testing.T) {
	stub(t, &fakeHost{out: intelCharging, readings: []native.Reading{charging}})

	devs, err := Source{}.Devices(context.Background())
	require.NoError(t, err)
	require.Len(t, devs, 1)
	b := battery.New(devs[0])

	assert.Equal(t, battery.StateCharging, b.State())
	assert.InDelta(t, 50, b.Percentage(), 0.001)
	assert.Equal(t, float32(100), b.Capacity())

	ttf, ok := b.TimeToFull()
	require.True(t, ok)
	assert.Equal(t, 75*time.Minute, ttf, "SMC estimate wins over energy/rate")

	_, ok = b.Vendor()
	assert.False(t, ok)
	_, ok = b.Temperature()
	assert.False(t, ok)
	_, ok = b.CycleCount()
	assert.False(t, ok)
}

func TestDevices_ReadingWithoutRegistryNode(t *testing.T) {
	stub(t, &fakeHost{out: "", readings: []native.Reading{charging}})

	devs, err := Source{}.Devices(context.Background())
	require.NoError(t, err)
	require.Len(t, devs, 1)
	b := battery.New(devs[0])

	assert.Equal(t, uint32(33000), b.Energy())
	ttf, ok := b.TimeToFull()
	require.True(t, ok)
	assert.Equal(t, 90*time.Minute, ttf, "estimated from energy/rate")
	_, ok = b.Model()
	assert.False(t, ok)
}

func TestDevices_NoBattery(t *testing.T) {
	stub(t, &fakeHost{out: appleSilicon})

	_, err := battery.NewManager(Source{}).Batteries(context.Background())
	assert.ErrorIs(t, err, battery.ErrNotFound)
}

func TestDevices_ReadError(t *testing.T) {
	readErr := errors.New("IOServiceGetMatchingServices failed")
	stub(t, &fakeHost{out: appleSilicon, readErr: readErr})

	_, err := Source{}.Devices(context.Background())
	assert.ErrorIs(t, err, readErr)
}

func TestDevice_Refresh(t *testing.T) {
	h := &fakeHost{out: appleSilicon, readings: []native.Reading{discharging}}
	stub(t, h)

	m := battery.NewManager(Source{})
	bats, err := m.Batteries(context.Background())
	require.NoError(t, err)
	b := bats[0]

	h.out, h.readings = intelCharging, []native.Reading{charging}
	require.NoError(t, m.Refresh(b))
	assert.Equal(t, battery.StateCharging, b.State())
	assert.Equal(t, uint32(33000), b.Energy())

	h.queryErr = errors.New("ioreg: not found")
	assert.ErrorIs(t, m.Refresh(b), h.queryErr)
	assert.Equal(t, battery.StateCharging, b.State(), "failed refresh keeps the last snapshot")

	h.queryErr, h.out = nil, ""
	assert.ErrorIs(t, m.Refresh(b), battery.ErrNotFound)

	h.out, h.readings = appleSilicon, nil
	assert.ErrorIs(t, m.Refresh(b), battery.ErrNotFound)
}

func TestIntValue_TwosComplement(t *testing.T) {
	props := map[string]string{"Amperage": "18446744073709551615", "Voltage": "12000", "Bad": "x"}

	v, ok := intValue(props, "Amperage")
	require.True(t, ok)
	assert.Equal(t, int64(-1), v)

	_, ok = intValue(props, "Bad")
	assert.False(t, ok)
	_, ok = intValue(props, "Missing")
	assert.False(t, ok)
}
