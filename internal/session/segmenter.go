// Package session splits an ordered stream of records into sessions
// separated by gaps longer than a cutoff.
package session

import (
	"time"

	"github.com/luki/heatlog/internal/sensor"
)

// DefaultCutoff is the gap that starts a new session.
const DefaultCutoff = 20 * time.Minute

// Segmenter assigns session indexes to records in input order. It owns the
// per-run state; use one Segmenter per run.
type Segmenter struct {
	cutoff  time.Duration
	prev    time.Time
	hasPrev bool
	index   int
}

// New returns a segmenter positioned at session 0. A non-positive cutoff
// falls back to DefaultCutoff.
func New(cutoff time.Duration) *Segmenter {
	if cutoff <= 0 {
		cutoff = DefaultCutoff
	}
	return &Segmenter{cutoff: cutoff}
}

// Assign places rec into a session and returns the session index and the
// record's rows. started is true when rec opened a new session.
//
// A session starts only when the gap to the previous record is strictly
// greater than the cutoff; clock steps backwards never split. Records with
// no readings still advance the previous timestamp.
func (s *Segmenter) Assign(rec sensor.Record) (index int, rows []sensor.Row, started bool) {
	if s.hasPrev && rec.Time.Sub(s.prev) > s.cutoff {
		s.index++
		started = true
	}
	s.prev = rec.Time
	s.hasPrev = true
	return s.index, rec.Rows(), started
}

// Index returns the current session index.
func (s *Segmenter) Index() int {
	return s.index
}

// Previous returns the timestamp of the last assigned record.
func (s *Segmenter) Previous() (time.Time, bool) {
	return s.prev, s.hasPrev
}

// Cutoff returns the configured gap.
func (s *Segmenter) Cutoff() time.Duration {
	return s.cutoff
}
