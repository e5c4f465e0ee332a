// Package metrics counts per-run parse outcomes on a private Prometheus
// registry that can be dumped in textfile-collector format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters of one run.
type Metrics struct {
	reg *prometheus.Registry

	Lines    prometheus.Counter
	Skipped  *prometheus.CounterVec
	Records  prometheus.Counter
	Rows     prometheus.Counter
	Missing  prometheus.Counter
	Sessions prometheus.Gauge
}

// New registers a fresh set of collectors.
func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		Lines: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heatlog_lines_total",
			Help: "Input lines read.",
		}),
		Skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "heatlog_lines_skipped_total",
			Help: "Input lines skipped, by reason.",
		}, []string{"reason"}),
		Records: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heatlog_records_total",
			Help: "Heatmon records accepted.",
		}),
		Rows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heatlog_rows_total",
			Help: "Table rows written.",
		}),
		Missing: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heatlog_missing_readings_total",
			Help: "Readings reported as null.",
		}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "heatlog_sessions",
			Help: "Sessions produced by the run.",
		}),
	}
	m.reg.MustRegister(m.Lines, m.Skipped, m.Records, m.Rows, m.Missing, m.Sessions)
	return m
}

// Registry exposes the collectors for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Skip counts one skipped line.
func (m *Metrics) Skip(reason string) {
	m.Skipped.WithLabelValues(reason).Inc()
}

// WriteFile writes the current values in the node-exporter textfile format.
func (m *Metrics) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}
