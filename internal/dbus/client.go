package dbus

import (
	"context"
	"encoding/json"
	"fmt"

	godbus "github.com/godbus/dbus/v5"

	"github.com/cptspacemanspiff/battery-monitor/internal/battery"
	"github.com/cptspacemanspiff/battery-monitor/internal/storage"
)

// caller is the part of godbus.BusObject the client uses.
type caller interface {
	CallWithContext(ctx context.Context, method string, flags godbus.Flags, args ...any) *godbus.Call
}

// Client talks to a running battery-monitor-daemon.
type Client struct {
	conn *godbus.Conn
	obj  caller
}

// Dial connects to the daemon on the session bus.
func Dial() (*Client, error) {
	conn, err := godbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("connect session bus: %w", err)
	}
	return &Client{conn: conn, obj: conn.Object(BusName, ObjPath)}, nil
}

// Close releases the shared session bus connection reference.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Batteries returns the daemon's latest reports.
func (c *Client) Batteries(ctx context.Context) ([]battery.Report, error) {
	var reports []battery.Report
	if err := c.call(ctx, "GetBatteries", &reports); err != nil {
		return nil, err
	}
	return reports, nil
}

// History returns the snapshots stored between from and to (unix seconds).
func (c *Client) History(ctx context.Context, from, to int64) ([]storage.Snapshot, error) {
	var snaps []storage.Snapshot
	if err := c.call(ctx, "GetHistory", &snaps, from, to); err != nil {
		return nil, err
	}
	return snaps, nil
}

// SleepEvents returns the sleep events overlapping [from, to].
func (c *Client) SleepEvents(ctx context.Context, from, to int64) ([]storage.SleepEvent, error) {
	var events []storage.SleepEvent
	if err := c.call(ctx, "GetSleepEvents", &events, from, to); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Client) call(ctx context.Context, method string, out any, args ...any) error {
	var payload string
	if err := c.obj.CallWithContext(ctx, IfaceName+"."+method, 0, args...).Store(&payload); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("decode %s reply: %w", method, err)
	}
	return nil
}
