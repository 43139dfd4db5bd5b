package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/cptspacemanspiff/battery-monitor/internal/battery"
)

const schema = `
CREATE TABLE IF NOT EXISTS battery_snapshots (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp INTEGER NOT NULL,
	battery_index INTEGER NOT NULL,
	vendor TEXT,
	model TEXT,
	serial_number TEXT,
	technology TEXT NOT NULL,
	state TEXT NOT NULL,
	capacity REAL NOT NULL,
	temperature REAL,
	percentage REAL NOT NULL,
	cycle_count INTEGER,
	energy_mwh INTEGER NOT NULL,
	energy_full_mwh INTEGER NOT NULL,
	energy_full_design_mwh INTEGER NOT NULL,
	energy_rate_mw INTEGER NOT NULL,
	voltage_mv INTEGER NOT NULL,
	time_to_full_secs INTEGER,
	time_to_empty_secs INTEGER
);
CREATE INDEX IF NOT EXISTS idx_snapshot_ts ON battery_snapshots(timestamp);

CREATE TABLE IF NOT EXISTS sleep_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sleep_time INTEGER NOT NULL,
	wake_time INTEGER NOT NULL,
	type TEXT NOT NULL DEFAULT 'unknown'
);
CREATE INDEX IF NOT EXISTS idx_sleep_ts ON sleep_events(sleep_time);
`

const snapshotColumns = `timestamp, battery_index, vendor, model, serial_number, technology, state,
	capacity, temperature, percentage, cycle_count, energy_mwh, energy_full_mwh,
	energy_full_design_mwh, energy_rate_mw, voltage_mv, time_to_full_secs, time_to_empty_secs`

// Snapshot is one stored battery report.
type Snapshot struct {
	Timestamp int64          `json:"timestamp"`
	Index     int            `json:"index"`
	Report    battery.Report `json:"report"`
}

// SleepEvent records a sleep/wake cycle.
type SleepEvent struct {
	SleepTime int64  `json:"sleep_time"`
	WakeTime  int64  `json:"wake_time"`
	Type      string `json:"type"` // "suspend", "shutdown", or "unknown"
}

// DB wraps a SQLite database for battery history.
type DB struct {
	db *sql.DB
}

// Open opens or creates the SQLite database at the given path.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

func insertSnapshot(tx *sql.Tx, s Snapshot) error {
	r := s.Report
	_, err := tx.Exec(
		"INSERT INTO battery_snapshots ("+snapshotColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		s.Timestamp, s.Index,
		nullable(r.Vendor), nullable(r.Model), nullable(r.SerialNumber),
		r.Technology.String(), r.State.String(),
		r.Capacity, nullable(r.Temperature), r.Percentage, nullable(r.CycleCount),
		r.Energy, r.EnergyFull, r.EnergyFullDesign, r.EnergyRate, r.Voltage,
		seconds(r.TimeToFull), seconds(r.TimeToEmpty),
	)
	return err
}

// InsertSnapshots stores one collection's snapshots in a single transaction.
func (d *DB) InsertSnapshots(snaps []Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	for _, s := range snaps {
		if err := insertSnapshot(tx, s); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// LatestSnapshots returns every battery's snapshot from the most recent
// collection, ordered by battery index.
func (d *DB) LatestSnapshots() ([]Snapshot, error) {
	return d.querySnapshots(
		"SELECT "+snapshotColumns+" FROM battery_snapshots WHERE timestamp = (SELECT MAX(timestamp) FROM battery_snapshots) ORDER BY battery_index",
	)
}

// SnapshotsInRange returns snapshots within the given time range.
func (d *DB) SnapshotsInRange(from, to int64) ([]Snapshot, error) {
	return d.querySnapshots(
		"SELECT "+snapshotColumns+" FROM battery_snapshots WHERE timestamp >= ? AND timestamp <= ? ORDER BY timestamp, battery_index",
		from, to,
	)
}

func (d *DB) querySnapshots(query string, args ...any) ([]Snapshot, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var snaps []Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}

func scanSnapshot(rows *sql.Rows) (Snapshot, error) {
	var (
		s                     Snapshot
		vendor, model, serial sql.Null[string]
		technology, state     string
		temperature           sql.Null[float64]
		cycleCount            sql.Null[int64]
		timeToFull, timeToEmp sql.Null[int64]
	)
	r := &s.Report
	err := rows.Scan(
		&s.Timestamp, &s.Index, &vendor, &model, &serial, &technology, &state,
		&r.Capacity, &temperature, &r.Percentage, &cycleCount,
		&r.Energy, &r.EnergyFull, &r.EnergyFullDesign, &r.EnergyRate, &r.Voltage,
		&timeToFull, &timeToEmp,
	)
	if err != nil {
		return Snapshot{}, err
	}

	r.Vendor = value(vendor, func(v string) string { return v })
	r.Model = value(model, func(v string) string { return v })
	r.SerialNumber = value(serial, func(v string) string { return v })
	r.Technology = battery.ParseTechnology(technology)
	r.State = battery.ParseState(state)
	r.Temperature = value(temperature, func(v float64) float32 { return float32(v) })
	r.CycleCount = value(cycleCount, func(v int64) uint32 { return uint32(v) })
	r.TimeToFull = value(timeToFull, func(v int64) time.Duration { return time.Duration(v) * time.Second })
	r.TimeToEmpty = value(timeToEmp, func(v int64) time.Duration { return time.Duration(v) * time.Second })
	return s, nil
}

// nullable stores an absent value as NULL.
func nullable[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}

func seconds(d *time.Duration) any {
	if d == nil {
		return nil
	}
	return int64(math.Round(d.Seconds()))
}

func value[S, T any](n sql.Null[S], conv func(S) T) *T {
	if !n.Valid {
		return nil
	}
	v := conv(n.V)
	return &v
}

// InsertSleepEvent inserts a sleep event.
func (d *DB) InsertSleepEvent(s SleepEvent) error {
	if s.WakeTime < s.SleepTime {
		return errors.New("sleep event wakes before it sleeps")
	}
	_, err := d.db.Exec(
		"INSERT INTO sleep_events (sleep_time, wake_time, type) VALUES (?, ?, ?)",
		s.SleepTime, s.WakeTime, s.Type,
	)
	return err
}

// SleepEventsInRange returns sleep events overlapping the given time range.
func (d *DB) SleepEventsInRange(from, to int64) ([]SleepEvent, error) {
	rows, err := d.db.Query(
		"SELECT sleep_time, wake_time, type FROM sleep_events WHERE wake_time >= ? AND sleep_time <= ? ORDER BY sleep_time",
		from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []SleepEvent
	for rows.Next() {
		var e SleepEvent
		if err := rows.Scan(&e.SleepTime, &e.WakeTime, &e.Type); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
