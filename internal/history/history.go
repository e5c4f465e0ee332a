// Package history holds per-device temperature series with min/peak/avg
// statistics. Missing readings are kept as gaps and ignored by the stats.
package history

import (
	"math"
	"time"

	"github.com/luki/heatlog/internal/sensor"
)

// Point is a single data point in a device series.
type Point struct {
	Temp    float64
	Time    time.Time
	Missing bool
}

// Buffer stores the readings of one device. A Max of 0 means unbounded;
// otherwise it behaves as a ring buffer.
type Buffer struct {
	Points []Point
	Max    int // capacity, 0 for unbounded
	Min    float64
	Peak   float64
	Gaps   int // missing readings seen
}

// NewBuffer creates a new history buffer with the given capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{
		Points: make([]Point, 0, capacity),
		Max:    capacity,
		Min:    math.MaxFloat64,
		Peak:   -math.MaxFloat64,
	}
}

func (b *Buffer) push(p Point) {
	if b.Max > 0 && len(b.Points) >= b.Max {
		copy(b.Points, b.Points[1:])
		b.Points[len(b.Points)-1] = p
		return
	}
	b.Points = append(b.Points, p)
}

// Push adds a temperature reading.
func (b *Buffer) Push(temp float64, t time.Time) {
	b.push(Point{Temp: temp, Time: t})
	if temp < b.Min {
		b.Min = temp
	}
	if temp > b.Peak {
		b.Peak = temp
	}
}

// PushMissing records a fault at t.
func (b *Buffer) PushMissing(t time.Time) {
	b.push(Point{Time: t, Missing: true})
	b.Gaps++
}

// HasData reports whether at least one real temperature was recorded.
func (b *Buffer) HasData() bool {
	return b.Peak >= b.Min
}

// Last returns the most recent real temperature, or 0 if none.
func (b *Buffer) Last() float64 {
	for i := len(b.Points) - 1; i >= 0; i-- {
		if !b.Points[i].Missing {
			return b.Points[i].Temp
		}
	}
	return 0
}

// Avg returns the average over stored real temperatures.
func (b *Buffer) Avg() float64 {
	sum, n := 0.0, 0
	for _, p := range b.Points {
		if p.Missing {
			continue
		}
		sum += p.Temp
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// LastN returns the last n real temperature values.
func (b *Buffer) LastN(n int) []float64 {
	if n <= 0 {
		return nil
	}
	var vals []float64
	for _, p := range b.LastNPoints(n) {
		if !p.Missing {
			vals = append(vals, p.Temp)
		}
	}
	return vals
}

// LastNPoints returns the last n Points, gaps included.
func (b *Buffer) LastNPoints(n int) []Point {
	if n <= 0 || len(b.Points) == 0 {
		return nil
	}
	start := len(b.Points) - n
	if start < 0 {
		start = 0
	}
	out := make([]Point, len(b.Points[start:]))
	copy(out, b.Points[start:])
	return out
}

// Sample returns at most n points spread evenly over the whole series,
// always keeping the first and last point.
func (b *Buffer) Sample(n int) []Point {
	if n <= 0 || len(b.Points) == 0 {
		return nil
	}
	if len(b.Points) <= n {
		return b.LastNPoints(len(b.Points))
	}
	if n == 1 {
		return []Point{b.Points[len(b.Points)-1]}
	}
	out := make([]Point, n)
	last := len(b.Points) - 1
	for i := range out {
		out[i] = b.Points[i*last/(n-1)]
	}
	return out
}

// At returns the reading nearest to t.
func (b *Buffer) At(t time.Time) (Point, bool) {
	if len(b.Points) == 0 {
		return Point{}, false
	}
	best := b.Points[0]
	bestDiff := absDuration(best.Time.Sub(t))
	for _, p := range b.Points[1:] {
		diff := absDuration(p.Time.Sub(t))
		if diff < bestDiff {
			best, bestDiff = p, diff
		}
		if p.Time.After(t) && diff > bestDiff {
			break
		}
	}
	return best, true
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// Store manages series for all devices, remembering first-seen order.
type Store struct {
	Data     map[string]*Buffer
	Order    []string
	Capacity int
}

// NewStore creates a new store with the given per-device capacity.
func NewStore(capacity int) *Store {
	return &Store{
		Data:     make(map[string]*Buffer),
		Capacity: capacity,
	}
}

// FromRows builds an unbounded store from table rows.
func FromRows(rows []sensor.Row) *Store {
	s := NewStore(0)
	for _, r := range rows {
		s.Record(r.Device, r.Temp, r.Time)
	}
	return s
}

// Record adds a reading for the given device; a nil temp is a gap.
func (s *Store) Record(device string, temp *float64, t time.Time) {
	b, ok := s.Data[device]
	if !ok {
		b = NewBuffer(s.Capacity)
		s.Data[device] = b
		s.Order = append(s.Order, device)
	}
	if temp == nil {
		b.PushMissing(t)
		return
	}
	b.Push(*temp, t)
}

// Get returns the buffer for a device, or nil.
func (s *Store) Get(device string) *Buffer {
	return s.Data[device]
}

// Len returns the number of distinct devices.
func (s *Store) Len() int {
	return len(s.Order)
}

// Span returns the earliest and latest timestamps across all devices.
func (s *Store) Span() (first, last time.Time) {
	for _, b := range s.Data {
		for _, p := range b.Points {
			if first.IsZero() || p.Time.Before(first) {
				first = p.Time
			}
			if p.Time.After(last) {
				last = p.Time
			}
		}
	}
	return first, last
}

// Range returns the lowest minimum and highest peak across devices.
// ok is false when no device has a real reading.
func (s *Store) Range() (lo, hi float64, ok bool) {
	lo, hi = math.MaxFloat64, -math.MaxFloat64
	for _, b := range s.Data {
		if !b.HasData() {
			continue
		}
		ok = true
		lo = math.Min(lo, b.Min)
		hi = math.Max(hi, b.Peak)
	}
	return lo, hi, ok
}
