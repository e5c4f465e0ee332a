package sensor

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultMarker  = "heatmon"
	DefaultExclude = "ERROR"

	// stampWidth covers "Jan _2 15:04:05" at the start of a syslog line.
	stampWidth = 15
)

var (
	deviceRe = regexp.MustCompile(`"A"\s*:\s*"([^"]*)"`)
	tempRe   = regexp.MustCompile(`"T"\s*:\s*([^}]*?)\s*}`)

	// numberRe accepts plain decimal literals only; ParseFloat alone would
	// also take NaN, Inf and hex floats.
	numberRe = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
)

// Parser extracts records from heatmon log lines. It holds no per-run state
// and may be shared.
type Parser struct {
	Marker  string           // a record must contain this
	Exclude string           // a record must not contain this; empty disables
	Now     func() time.Time // supplies the year; defaults to time.Now
}

// NewParser returns a parser for the given markers. An empty marker falls
// back to DefaultMarker.
func NewParser(marker, exclude string) *Parser {
	if marker == "" {
		marker = DefaultMarker
	}
	return &Parser{Marker: marker, Exclude: exclude, Now: time.Now}
}

// IsRecord reports whether the line passes the inclusion and exclusion filters.
func (p *Parser) IsRecord(line string) bool {
	if !strings.Contains(line, p.Marker) {
		return false
	}
	if p.Exclude != "" && strings.Contains(line, p.Exclude) {
		return false
	}
	return true
}

// Parse turns one line into a Record. It returns ErrNotRecord for filtered
// lines, ErrMalformedTimestamp for a bad date prefix and ErrMalformedRecord
// when devices and temperatures do not pair up.
func (p *Parser) Parse(line string) (Record, error) {
	if !p.IsRecord(line) {
		return Record{}, ErrNotRecord
	}

	if len(line) < stampWidth {
		return Record{}, fmt.Errorf("%w: line too short", ErrMalformedTimestamp)
	}
	ts, err := ParseStamp(line[:stampWidth], p.year())
	if err != nil {
		return Record{}, err
	}

	devices := deviceRe.FindAllStringSubmatch(line, -1)
	temps := tempRe.FindAllStringSubmatch(line, -1)
	if len(devices) != len(temps) {
		return Record{}, fmt.Errorf("%w: %d devices, %d temperatures",
			ErrMalformedRecord, len(devices), len(temps))
	}

	readings := make([]Reading, 0, len(devices))
	for i := range devices {
		temp, err := parseTemp(temps[i][1])
		if err != nil {
			return Record{}, err
		}
		readings = append(readings, Reading{Device: devices[i][1], Temp: temp})
	}

	return Record{Time: ts, Readings: readings}, nil
}

func (p *Parser) year() int {
	if p.Now == nil {
		return time.Now().Year()
	}
	return p.Now().Year()
}

func parseTemp(raw string) (*float64, error) {
	if raw == "null" {
		return nil, nil
	}
	if !numberRe.MatchString(raw) {
		return nil, fmt.Errorf("%w: temperature %q", ErrMalformedRecord, raw)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%w: temperature %q", ErrMalformedRecord, raw)
	}
	return &v, nil
}
