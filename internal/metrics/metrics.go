// Package metrics exports battery reports as Prometheus gauges.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cptspacemanspiff/battery-monitor/internal/battery"
)

const namespace = "battery"

var states = []battery.State{
	battery.StateUnknown,
	battery.StateCharging,
	battery.StateDischarging,
	battery.StateEmpty,
	battery.StateFull,
}

// Metrics owns a private registry so tests and multiple daemons do not
// collide on the default one.
type Metrics struct {
	reg *prometheus.Registry

	percentage  *prometheus.GaugeVec
	capacity    *prometheus.GaugeVec
	energy      *prometheus.GaugeVec
	energyFull  *prometheus.GaugeVec
	energyRate  *prometheus.GaugeVec
	voltage     *prometheus.GaugeVec
	temperature *prometheus.GaugeVec
	state       *prometheus.GaugeVec

	collections prometheus.Counter
	errors      *prometheus.CounterVec
}

func gauge(f promauto.Factory, name, help string, labels ...string) *prometheus.GaugeVec {
	return f.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      name,
		Help:      help,
	}, append([]string{"index"}, labels...))
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg:         reg,
		percentage:  gauge(f, "percentage", "State of charge in percent."),
		capacity:    gauge(f, "capacity_percent", "Battery health: full energy relative to design energy."),
		energy:      gauge(f, "energy_wh", "Stored energy in watt-hours."),
		energyFull:  gauge(f, "energy_full_wh", "Energy when fully charged in watt-hours."),
		energyRate:  gauge(f, "energy_rate_w", "Charge or discharge power in watts."),
		voltage:     gauge(f, "voltage_v", "Battery voltage in volts."),
		temperature: gauge(f, "temperature_celsius", "Battery temperature in degrees Celsius."),
		state:       gauge(f, "state", "1 for the battery's current state, 0 otherwise.", "state"),
		collections: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collections_total",
			Help:      "Total collection cycles.",
		}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collection_errors_total",
			Help:      "Total collection failures by stage.",
		}, []string{"stage"}),
	}
}

// Observe replaces every gauge with the values in reports. Batteries that
// disappeared and absent temperatures are removed.
func (m *Metrics) Observe(reports []battery.Report) {
	for _, v := range []*prometheus.GaugeVec{
		m.percentage, m.capacity, m.energy, m.energyFull,
		m.energyRate, m.voltage, m.temperature, m.state,
	} {
		v.Reset()
	}

	for i, r := range reports {
		idx := strconv.Itoa(i)
		m.percentage.WithLabelValues(idx).Set(float64(r.Percentage))
		m.capacity.WithLabelValues(idx).Set(float64(r.Capacity))
		m.energy.WithLabelValues(idx).Set(float64(r.Energy) / 1000)
		m.energyFull.WithLabelValues(idx).Set(float64(r.EnergyFull) / 1000)
		m.energyRate.WithLabelValues(idx).Set(float64(r.EnergyRate) / 1000)
		m.voltage.WithLabelValues(idx).Set(float64(r.Voltage) / 1000)
		if r.Temperature != nil {
			m.temperature.WithLabelValues(idx).Set(float64(*r.Temperature))
		}
		for _, s := range states {
			v := 0.0
			if s == r.State {
				v = 1
			}
			m.state.WithLabelValues(idx, s.String()).Set(v)
		}
	}
	m.collections.Inc()
}

// CollectionFailed counts a failed stage ("enumerate", "refresh", "store").
func (m *Metrics) CollectionFailed(stage string) {
	m.errors.WithLabelValues(stage).Inc()
}

// Registry exposes the private registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
