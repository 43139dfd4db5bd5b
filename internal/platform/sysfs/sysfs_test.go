package sysfs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cptspacemanspiff/battery-monitor/internal/battery"
)

func setTestSysfsRoot(t *testing.T) string {
	t.Helper()

	root := t.TempDir()
	oldRoot := sysfsRoot
	sysfsRoot = root
	t.Cleanup(func() {
		sysfsRoot = oldRoot
	})

	return root
}

func writeTestFile(t *testing.T, path, contents string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func writeUevent(t *testing.T, root, name string, lines ...string) string {
	t.Helper()

	dir := filepath.Join(root, "class/power_supply", name)
	writeTestFile(t, filepath.Join(dir, "uevent"), strings.Join(append(lines, ""), "\n"))
	return dir
}

func TestOpen_ParsesEnergyUevent(t *testing.T) {
	root := setTestSysfsRoot(t)
	dir := writeUevent(t, root, "BAT0",
		"POWER_SUPPLY_TYPE=Battery",
		"POWER_SUPPLY_STATUS=Discharging",
		"POWER_SUPPLY_TECHNOLOGY=Li-poly",
		"POWER_SUPPLY_CYCLE_COUNT=212",
		"POWER_SUPPLY_VOLTAGE_NOW=12400000",
		"POWER_SUPPLY_POWER_NOW=8000000",
		"POWER_SUPPLY_ENERGY_NOW=40000000",
		"POWER_SUPPLY_ENERGY_FULL=50000000",
		"POWER_SUPPLY_ENERGY_FULL_DESIGN=57000000",
		"POWER_SUPPLY_CAPACITY=79",
		"POWER_SUPPLY_MANUFACTURER=SMP",
		"POWER_SUPPLY_MODEL_NAME=5B10W13930",
		"POWER_SUPPLY_SERIAL_NUMBER= 1234 ",
	)

	d, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if d.Name() != "BAT0" {
		t.Fatalf("Name() = %q, want BAT0", d.Name())
	}
	if d.Energy() != 40000 || d.EnergyFull() != 50000 || d.EnergyFullDesign() != 57000 {
		t.Fatalf("energy = %d/%d/%d, want 40000/50000/57000", d.Energy(), d.EnergyFull(), d.EnergyFullDesign())
	}
	if d.EnergyRate() != 8000 {
		t.Fatalf("EnergyRate() = %d, want 8000", d.EnergyRate())
	}
	if d.Voltage() != 12400 {
		t.Fatalf("Voltage() = %d, want 12400", d.Voltage())
	}
	if d.Percentage() != 80 {
		t.Fatalf("Percentage() = %v, want 80 (energy based)", d.Percentage())
	}
	if got, want := d.Capacity(), battery.HealthPercent(50000, 57000); got != want {
		t.Fatalf("Capacity() = %v, want %v", got, want)
	}
	if d.State() != battery.StateDischarging {
		t.Fatalf("State() = %v, want discharging", d.State())
	}
	if d.Technology() != battery.LithiumPolymer {
		t.Fatalf("Technology() = %v, want lithium-polymer", d.Technology())
	}
	if c, ok := d.CycleCount(); !ok || c != 212 {
		t.Fatalf("CycleCount() = %d, %v, want 212, true", c, ok)
	}
	if _, ok := d.Temperature(); ok {
		t.Fatal("Temperature() present, want absent")
	}
	if v, ok := d.Vendor(); !ok || v != "SMP" {
		t.Fatalf("Vendor() = %q, %v", v, ok)
	}
	if s, ok := d.SerialNumber(); !ok || s != "1234" {
		t.Fatalf("SerialNumber() = %q, %v, want trimmed 1234", s, ok)
	}
	if tte, ok := d.TimeToEmpty(); !ok || tte != 5*time.Hour {
		t.Fatalf("TimeToEmpty() = %v, %v, want 5h", tte, ok)
	}
	if _, ok := d.TimeToFull(); ok {
		t.Fatal("TimeToFull() present while discharging")
	}
}

func TestOpen_ChargeUeventConvertsToEnergy(t *testing.T) {
	root := setTestSysfsRoot(t)
	dir := writeUevent(t, root, "BAT1",
		"POWER_SUPPLY_TYPE=Battery",
		"POWER_SUPPLY_STATUS=Charging",
		"POWER_SUPPLY_VOLTAGE_MIN_DESIGN=11000000",
		"POWER_SUPPLY_VOLTAGE_NOW=12000000",
		"POWER_SUPPLY_CURRENT_NOW=-2000000",
		"POWER_SUPPLY_CHARGE_NOW=2000000",
		"POWER_SUPPLY_CHARGE_FULL=4000000",
		"POWER_SUPPLY_CHARGE_FULL_DESIGN=5000000",
		"POWER_SUPPLY_TEMP=315",
	)

	d, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	// 2000000 µAh * 11000 mV / 1e6 = 22000 mWh
	if d.Energy() != 22000 || d.EnergyFull() != 44000 || d.EnergyFullDesign() != 55000 {
		t.Fatalf("energy = %d/%d/%d, want 22000/44000/55000", d.Energy(), d.EnergyFull(), d.EnergyFullDesign())
	}
	// |current| * voltage_now = 2000000 µA * 12000 mV / 1e6 = 24000 mW
	if d.EnergyRate() != 24000 {
		t.Fatalf("EnergyRate() = %d, want 24000", d.EnergyRate())
	}
	if d.Percentage() != 50 {
		t.Fatalf("Percentage() = %v, want 50", d.Percentage())
	}
	if d.Capacity() != 80 {
		t.Fatalf("Capacity() = %v, want 80", d.Capacity())
	}
	if temp, ok := d.Temperature(); !ok || temp != 31.5 {
		t.Fatalf("Temperature() = %v, %v, want 31.5", temp, ok)
	}
	// (44000-22000) / 24000 h = 55 min
	if ttf, ok := d.TimeToFull(); !ok || ttf != 55*time.Minute {
		t.Fatalf("TimeToFull() = %v, %v, want 55m", ttf, ok)
	}
	if _, ok := d.TimeToEmpty(); ok {
		t.Fatal("TimeToEmpty() present while charging")
	}
	if _, ok := d.Vendor(); ok {
		t.Fatal("Vendor() present, want absent")
	}
}

func TestOpen_AttributeFilesWithoutUevent(t *testing.T) {
	root := setTestSysfsRoot(t)
	dir := filepath.Join(root, "class/power_supply/BAT0")
	writeTestFile(t, filepath.Join(dir, "type"), "Battery\n")
	writeTestFile(t, filepath.Join(dir, "status"), "Unknown\n")
	writeTestFile(t, filepath.Join(dir, "capacity"), "64\n")

	d, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if d.Percentage() != 64 {
		t.Fatalf("Percentage() = %v, want 64 from capacity file", d.Percentage())
	}
	if d.State() != battery.StateUnknown {
		t.Fatalf("State() = %v, want unknown", d.State())
	}
	if d.Capacity() != 100 {
		t.Fatalf("Capacity() = %v, want 100 when design energy unknown", d.Capacity())
	}
}

func TestOpen_ClampsOutOfRangePercent(t *testing.T) {
	root := setTestSysfsRoot(t)
	dir := writeUevent(t, root, "BAT0",
		"POWER_SUPPLY_STATUS=Charging",
		"POWER_SUPPLY_ENERGY_NOW=52000000",
		"POWER_SUPPLY_ENERGY_FULL=50000000",
		"POWER_SUPPLY_ENERGY_FULL_DESIGN=45000000",
	)

	d, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if d.Percentage() != 100 {
		t.Fatalf("Percentage() = %v, want clamped 100", d.Percentage())
	}
	if d.Capacity() != 100 {
		t.Fatalf("Capacity() = %v, want clamped 100", d.Capacity())
	}
}

func TestOpen_CorrectsStatusToFullWhenACOnline(t *testing.T) {
	root := setTestSysfsRoot(t)
	dir := writeUevent(t, root, "BAT0",
		"POWER_SUPPLY_STATUS=Discharging",
		"POWER_SUPPLY_CAPACITY=100",
	)
	writeTestFile(t, filepath.Join(root, "class/power_supply/AC0/type"), "Mains\n")
	writeTestFile(t, filepath.Join(root, "class/power_supply/AC0/online"), "1\n")

	d, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if d.State() != battery.StateFull {
		t.Fatalf("State() = %v, want full", d.State())
	}
}

func TestOpen_LeavesStatusWhenACOffline(t *testing.T) {
	root := setTestSysfsRoot(t)
	dir := writeUevent(t, root, "BAT0",
		"POWER_SUPPLY_STATUS=Discharging",
		"POWER_SUPPLY_CAPACITY=100",
	)
	writeTestFile(t, filepath.Join(root, "class/power_supply/AC0/type"), "Mains\n")
	writeTestFile(t, filepath.Join(root, "class/power_supply/AC0/online"), "0\n")

	d, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if d.State() != battery.StateDischarging {
		t.Fatalf("State() = %v, want discharging", d.State())
	}
}

func TestRefresh_RereadsInPlace(t *testing.T) {
	root := setTestSysfsRoot(t)
	dir := writeUevent(t, root, "BAT0",
		"POWER_SUPPLY_STATUS=Discharging",
		"POWER_SUPPLY_CAPACITY=61",
	)

	d, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	b := battery.New(d)
	if b.Percentage() != 61 {
		t.Fatalf("Percentage() = %v, want 61", b.Percentage())
	}

	writeUevent(t, root, "BAT0",
		"POWER_SUPPLY_STATUS=Discharging",
		"POWER_SUPPLY_CAPACITY=60",
	)
	// The snapshot only changes on refresh.
	if b.Percentage() != 61 {
		t.Fatalf("Percentage() before refresh = %v, want 61", b.Percentage())
	}
	if err := battery.NewManager(Source{}).Refresh(b); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if b.Percentage() != 60 {
		t.Fatalf("Percentage() after refresh = %v, want 60", b.Percentage())
	}
}

func TestRefresh_RemovedBatteryKeepsSnapshot(t *testing.T) {
	root := setTestSysfsRoot(t)
	dir := writeUevent(t, root, "BAT0", "POWER_SUPPLY_CAPACITY=42")

	d, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("remove battery: %v", err)
	}

	err = d.Refresh()
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Refresh() error = %v, want not-exist", err)
	}
	if d.Percentage() != 42 {
		t.Fatalf("Percentage() = %v, want previous 42", d.Percentage())
	}
}

func TestSource_EnumeratesSystemBatteries(t *testing.T) {
	root := setTestSysfsRoot(t)
	writeUevent(t, root, "BAT1", "POWER_SUPPLY_TYPE=Battery", "POWER_SUPPLY_CAPACITY=20")
	writeUevent(t, root, "BAT0", "POWER_SUPPLY_TYPE=Battery", "POWER_SUPPLY_CAPACITY=10")
	writeUevent(t, root, "AC", "POWER_SUPPLY_TYPE=Mains", "POWER_SUPPLY_ONLINE=1")
	writeUevent(t, root, "hidpp_battery_0", "POWER_SUPPLY_TYPE=Battery", "POWER_SUPPLY_SCOPE=Device")

	devs, err := Source{}.Devices(context.Background())
	if err != nil {
		t.Fatalf("Devices() error = %v", err)
	}
	if len(devs) != 2 {
		t.Fatalf("len(Devices()) = %d, want 2", len(devs))
	}
	if devs[0].(*Device).Name() != "BAT0" || devs[1].(*Device).Name() != "BAT1" {
		t.Fatalf("devices = %s, %s, want BAT0, BAT1", devs[0].(*Device).Name(), devs[1].(*Device).Name())
	}
	if devs[0].Percentage() != 10 {
		t.Fatalf("BAT0 Percentage() = %v, want 10", devs[0].Percentage())
	}
}

func TestSource_MissingPowerSupplyDir(t *testing.T) {
	_ = setTestSysfsRoot(t)

	_, err := Source{}.Devices(context.Background())
	if err == nil {
		t.Fatal("Devices() error = nil, want read error")
	}
	if !strings.Contains(err.Error(), "read power_supply") {
		t.Fatalf("Devices() error = %q, want contains %q", err.Error(), "read power_supply")
	}
}
