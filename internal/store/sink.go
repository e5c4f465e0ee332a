package store

import (
	"errors"
	"strconv"
	"time"

	"github.com/luki/heatlog/internal/sensor"
)

const (
	timeLayout = "2006-01-02T15:04:05"
)

// Header is the column layout shared by every sink.
var Header = []string{"datetime", "device", "temperature"}

var (
	ErrUnknownSink = errors.New("unknown sink")
	ErrNoSession   = errors.New("no session table open")
)

// Sink persists one table per session. Open starts the table for a session
// and finishes the previous one, which is never written again.
type Sink interface {
	Open(session int) error
	WriteBatch(rows []sensor.Row) error
	Close() error
	// Location names where a session's table lives (file path or table name).
	Location(session int) string
	Name() string
}

// FormatTemp renders a temperature for output; missing values are empty.
func FormatTemp(t *float64) string {
	if t == nil {
		return ""
	}
	return strconv.FormatFloat(*t, 'f', -1, 64)
}

// FormatTime renders a row timestamp.
func FormatTime(t time.Time) string {
	return t.Format(timeLayout)
}

func formatRow(r sensor.Row) []string {
	return []string{FormatTime(r.Time), r.Device, FormatTemp(r.Temp)}
}
