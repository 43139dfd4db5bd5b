package battery

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"
)

// AbsentMarker is how Fields and String render an optional value the
// device could not report.
const AbsentMarker = "<none>"

// Report is the diagnostic record of one battery: the result of calling
// every accessor once. Absent optionals are nil.
type Report struct {
	// static info
	Vendor       *string
	Model        *string
	SerialNumber *string
	Technology   Technology

	// common information
	State       State
	Capacity    float32
	Temperature *float32
	Percentage  float32
	CycleCount  *uint32

	// energy stats
	Energy           uint32
	EnergyFull       uint32
	EnergyFullDesign uint32
	EnergyRate       uint32
	Voltage          uint32

	// charge stats
	TimeToFull  *time.Duration
	TimeToEmpty *time.Duration
}

// Field is one labelled entry of a Report.
type Field struct {
	Name  string
	Value string
}

// Report queries every accessor exactly once.
func (b *Battery) Report() Report {
	return Report{
		Vendor:       optional[string](b.Vendor()),
		Model:        optional[string](b.Model()),
		SerialNumber: optional[string](b.SerialNumber()),
		Technology:   b.Technology(),

		State:       b.State(),
		Capacity:    b.Capacity(),
		Temperature: optional[float32](b.Temperature()),
		Percentage:  b.Percentage(),
		CycleCount:  optional[uint32](b.CycleCount()),

		Energy:           b.Energy(),
		EnergyFull:       b.EnergyFull(),
		EnergyFullDesign: b.EnergyFullDesign(),
		EnergyRate:       b.EnergyRate(),
		Voltage:          b.Voltage(),

		TimeToFull:  optional[time.Duration](b.TimeToFull()),
		TimeToEmpty: optional[time.Duration](b.TimeToEmpty()),
	}
}

func optional[T any](v T, ok bool) *T {
	if !ok {
		return nil
	}
	return &v
}

// Fields lists the record in its fixed order.
func (r Report) Fields() []Field {
	return r.fields(strconv.Quote)
}

func (r Report) fields(text func(string) string) []Field {
	return []Field{
		{"vendor", render(r.Vendor, text)},
		{"model", render(r.Model, text)},
		{"serial_number", render(r.SerialNumber, text)},
		{"technology", r.Technology.String()},

		{"state", r.State.String()},
		{"capacity", formatFloat(r.Capacity)},
		{"temperature", render(r.Temperature, formatFloat)},
		{"percentage", formatFloat(r.Percentage)},
		{"cycle_count", render(r.CycleCount, formatUint)},

		{"energy", formatUint(r.Energy)},
		{"energy_full", formatUint(r.EnergyFull)},
		{"energy_full_design", formatUint(r.EnergyFullDesign)},
		{"energy_rate", formatUint(r.EnergyRate)},
		{"voltage", formatUint(r.Voltage)},

		{"time_to_full", render(r.TimeToFull, time.Duration.String)},
		{"time_to_empty", render(r.TimeToEmpty, time.Duration.String)},
	}
}

// String renders the record as "Battery{name: value, ...}" in Fields order.
func (r Report) String() string {
	var sb strings.Builder
	sb.WriteString("Battery{")
	for i, f := range r.Fields() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.Name)
		sb.WriteString(": ")
		sb.WriteString(f.Value)
	}
	sb.WriteString("}")
	return sb.String()
}

// LogValue implements slog.LogValuer.
func (r Report) LogValue() slog.Value {
	fields := r.fields(func(s string) string { return s })
	attrs := make([]slog.Attr, 0, len(fields))
	for _, f := range fields {
		attrs = append(attrs, slog.String(f.Name, f.Value))
	}
	return slog.GroupValue(attrs...)
}

func render[T any](v *T, format func(T) string) string {
	if v == nil {
		return AbsentMarker
	}
	return format(*v)
}

func formatFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'f', -1, 32)
}

func formatUint(u uint32) string {
	return strconv.FormatUint(uint64(u), 10)
}

// wireReport is the JSON/YAML shape of a Report. Field order matches
// Fields; durations are whole seconds.
type wireReport struct {
	Vendor       *string    `json:"vendor" yaml:"vendor"`
	Model        *string    `json:"model" yaml:"model"`
	SerialNumber *string    `json:"serial_number" yaml:"serial_number"`
	Technology   Technology `json:"technology" yaml:"technology"`

	State       State    `json:"state" yaml:"state"`
	Capacity    float32  `json:"capacity" yaml:"capacity"`
	Temperature *float32 `json:"temperature" yaml:"temperature"`
	Percentage  float32  `json:"percentage" yaml:"percentage"`
	CycleCount  *uint32  `json:"cycle_count" yaml:"cycle_count"`

	Energy           uint32 `json:"energy" yaml:"energy"`
	EnergyFull       uint32 `json:"energy_full" yaml:"energy_full"`
	EnergyFullDesign uint32 `json:"energy_full_design" yaml:"energy_full_design"`
	EnergyRate       uint32 `json:"energy_rate" yaml:"energy_rate"`
	Voltage          uint32 `json:"voltage" yaml:"voltage"`

	TimeToFull  *int64 `json:"time_to_full" yaml:"time_to_full"`
	TimeToEmpty *int64 `json:"time_to_empty" yaml:"time_to_empty"`
}

func (r Report) wire() wireReport {
	return wireReport{
		Vendor:           r.Vendor,
		Model:            r.Model,
		SerialNumber:     r.SerialNumber,
		Technology:       r.Technology,
		State:            r.State,
		Capacity:         r.Capacity,
		Temperature:      r.Temperature,
		Percentage:       r.Percentage,
		CycleCount:       r.CycleCount,
		Energy:           r.Energy,
		EnergyFull:       r.EnergyFull,
		EnergyFullDesign: r.EnergyFullDesign,
		EnergyRate:       r.EnergyRate,
		Voltage:          r.Voltage,
		TimeToFull:       toSeconds(r.TimeToFull),
		TimeToEmpty:      toSeconds(r.TimeToEmpty),
	}
}

func (w wireReport) report() Report {
	return Report{
		Vendor:           w.Vendor,
		Model:            w.Model,
		SerialNumber:     w.SerialNumber,
		Technology:       w.Technology,
		State:            w.State,
		Capacity:         w.Capacity,
		Temperature:      w.Temperature,
		Percentage:       w.Percentage,
		CycleCount:       w.CycleCount,
		Energy:           w.Energy,
		EnergyFull:       w.EnergyFull,
		EnergyFullDesign: w.EnergyFullDesign,
		EnergyRate:       w.EnergyRate,
		Voltage:          w.Voltage,
		TimeToFull:       fromSeconds(w.TimeToFull),
		TimeToEmpty:      fromSeconds(w.TimeToEmpty),
	}
}

func toSeconds(d *time.Duration) *int64 {
	if d == nil {
		return nil
	}
	s := int64(math.Round(d.Seconds()))
	return &s
}

func fromSeconds(s *int64) *time.Duration {
	if s == nil {
		return nil
	}
	d := time.Duration(*s) * time.Second
	return &d
}

// MarshalJSON encodes the record with snake_case keys, null for absent
// values and durations in whole seconds.
func (r Report) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.wire())
}

// UnmarshalJSON decodes the MarshalJSON form.
func (r *Report) UnmarshalJSON(data []byte) error {
	var w wireReport
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode battery report: %w", err)
	}
	*r = w.report()
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (r Report) MarshalYAML() (any, error) {
	return r.wire(), nil
}

// UnmarshalYAML implements the yaml.v3 obsolete-style unmarshaler.
func (r *Report) UnmarshalYAML(unmarshal func(any) error) error {
	var w wireReport
	if err := unmarshal(&w); err != nil {
		return err
	}
	*r = w.report()
	return nil
}
