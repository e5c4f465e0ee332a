// Package sensor turns heatmon daemon log lines into timestamped
// per-device temperature readings.
package sensor

import "time"

// Reading is one device/temperature pair taken from a log line.
type Reading struct {
	Device string   // e.g. "sensor1"
	Temp   *float64 // nil when the daemon reported null (sensor fault)
}

// Missing reports whether the daemon failed to report a temperature.
func (r Reading) Missing() bool {
	return r.Temp == nil
}

// Record is a parsed log line: one timestamp and its readings in the order
// they appeared. Readings may be empty.
type Record struct {
	Time     time.Time
	Readings []Reading
}

// Row is a single output table row. A record with n readings becomes n rows.
type Row struct {
	Time   time.Time
	Device string
	Temp   *float64
}

// Rows flattens the record into table rows, preserving reading order.
func (r Record) Rows() []Row {
	rows := make([]Row, 0, len(r.Readings))
	for _, rd := range r.Readings {
		rows = append(rows, Row{Time: r.Time, Device: rd.Device, Temp: rd.Temp})
	}
	return rows
}

// Float returns a pointer to v, for building readings in code and tests.
func Float(v float64) *float64 {
	return &v
}
