//go:build windows

package wmi

import (
	"context"
	"fmt"

	"github.com/yusufpapurcu/wmi"
)

const wmiNamespace = `root\WMI`

// query reads Win32_Battery and the matching root\WMI rows. The optional
// root\WMI classes are missing on some firmware; their errors are ignored.
var query = func(ctx context.Context) ([]record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var bats []win32Battery
	if err := wmi.Query("SELECT DeviceID, Name, Chemistry, BatteryStatus, EstimatedChargeRemaining, EstimatedRunTime, DesignVoltage FROM Win32_Battery", &bats); err != nil {
		return nil, fmt.Errorf("wmi Win32_Battery query failed: %w", err)
	}
	if len(bats) == 0 {
		return nil, nil
	}

	var (
		status []batteryStatus
		full   []batteryFullChargedCapacity
		static []batteryStaticData
		cycles []batteryCycleCount
	)
	_ = wmi.QueryNamespace("SELECT * FROM BatteryStatus", &status, wmiNamespace)
	_ = wmi.QueryNamespace("SELECT * FROM BatteryFullChargedCapacity", &full, wmiNamespace)
	_ = wmi.QueryNamespace("SELECT * FROM BatteryStaticData", &static, wmiNamespace)
	_ = wmi.QueryNamespace("SELECT * FROM BatteryCycleCount", &cycles, wmiNamespace)

	return join(bats, status, full, static, cycles), nil
}
