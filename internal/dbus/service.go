package dbus

import (
	"encoding/json"
	"fmt"
	"time"

	godbus "github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/cptspacemanspiff/battery-monitor/internal/battery"
	"github.com/cptspacemanspiff/battery-monitor/internal/storage"
)

const (
	BusName   = "org.gnome.BatteryMonitor"
	ObjPath   = "/org/gnome/BatteryMonitor"
	IfaceName = "org.gnome.BatteryMonitor"
)

const introspectXML = `
<node>
  <interface name="` + IfaceName + `">
    <method name="GetBatteries">
      <arg direction="out" type="s" name="json"/>
    </method>
    <method name="GetHistory">
      <arg direction="in" type="x" name="from_epoch"/>
      <arg direction="in" type="x" name="to_epoch"/>
      <arg direction="out" type="s" name="json"/>
    </method>
    <method name="GetSleepEvents">
      <arg direction="in" type="x" name="from_epoch"/>
      <arg direction="in" type="x" name="to_epoch"/>
      <arg direction="out" type="s" name="json"/>
    </method>
  </interface>
` + introspect.IntrospectDataString + `
</node>`

// Store is the history the service reads.
type Store interface {
	SnapshotsInRange(from, to int64) ([]storage.Snapshot, error)
	SleepEventsInRange(from, to int64) ([]storage.SleepEvent, error)
}

// Latest supplies the most recent reports in battery index order.
type Latest interface {
	Reports() ([]battery.Report, time.Time)
}

// Service exposes the battery monitor over D-Bus.
type Service struct {
	store  Store
	latest Latest
}

// NewService creates a new D-Bus service.
func NewService(store Store, latest Latest) *Service {
	return &Service{store: store, latest: latest}
}

// Export registers the service on the session bus.
func (s *Service) Export() (*godbus.Conn, error) {
	conn, err := godbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}

	conn.Export(s, ObjPath, IfaceName)
	conn.Export(introspect.Introspectable(introspectXML), ObjPath, "org.freedesktop.DBus.Introspectable")

	reply, err := conn.RequestName(BusName, godbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("request name: %w", err)
	}
	if reply != godbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return nil, fmt.Errorf("name %s already taken", BusName)
	}

	return conn, nil
}

// GetBatteries returns the latest report of every battery as a JSON array.
func (s *Service) GetBatteries() (string, *godbus.Error) {
	reports, _ := s.latest.Reports()
	return marshal(reports)
}

// GetHistory returns stored snapshots in a time range as JSON.
func (s *Service) GetHistory(fromEpoch, toEpoch int64) (string, *godbus.Error) {
	if err := storage.ValidateRange(fromEpoch, toEpoch); err != nil {
		return "", godbus.MakeFailedError(err)
	}
	snaps, err := s.store.SnapshotsInRange(fromEpoch, toEpoch)
	if err != nil {
		return "", godbus.MakeFailedError(fmt.Errorf("read history: %w", err))
	}
	if snaps == nil {
		snaps = []storage.Snapshot{}
	}
	return marshal(snaps)
}

// GetSleepEvents returns sleep events in a time range as JSON.
func (s *Service) GetSleepEvents(fromEpoch, toEpoch int64) (string, *godbus.Error) {
	if err := storage.ValidateRange(fromEpoch, toEpoch); err != nil {
		return "", godbus.MakeFailedError(err)
	}
	events, err := s.store.SleepEventsInRange(fromEpoch, toEpoch)
	if err != nil {
		return "", godbus.MakeFailedError(fmt.Errorf("read sleep events: %w", err))
	}
	if events == nil {
		events = []storage.SleepEvent{}
	}
	return marshal(events)
}

func marshal(v any) (string, *godbus.Error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", godbus.MakeFailedError(err)
	}
	return string(data), nil
}
