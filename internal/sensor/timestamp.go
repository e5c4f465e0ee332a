package sensor

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var monthAbbrev = map[string]time.Month{
	"jan": time.January,
	"feb": time.February,
	"mar": time.March,
	"apr": time.April,
	"may": time.May,
	"jun": time.June,
	"jul": time.July,
	"aug": time.August,
	"sep": time.September,
	"oct": time.October,
	"nov": time.November,
	"dec": time.December,
}

// ParseStamp parses a syslog-style "Jan _2 15:04:05" stamp. The log format
// carries no year, so the caller supplies one (normally the wall-clock year;
// logs that cross a year boundary are therefore dated wrongly).
func ParseStamp(stamp string, year int) (time.Time, error) {
	fields := strings.Fields(stamp)
	if len(fields) != 3 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrMalformedTimestamp, stamp)
	}

	day, err := atoi(fields[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: day %q", ErrMalformedTimestamp, fields[1])
	}

	clock := strings.Split(fields[2], ":")
	if len(clock) != 3 {
		return time.Time{}, fmt.Errorf("%w: clock %q", ErrMalformedTimestamp, fields[2])
	}
	var hms [3]int
	for i, part := range clock {
		v, err := atoi(part)
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: clock %q", ErrMalformedTimestamp, fields[2])
		}
		hms[i] = v
	}

	return Normalize(fields[0], day, hms[0], hms[1], hms[2], year)
}

// Normalize validates the fields and builds a local time.
func Normalize(month string, day, hour, minute, second, year int) (time.Time, error) {
	m, ok := monthAbbrev[strings.ToLower(month)]
	if !ok {
		return time.Time{}, fmt.Errorf("%w: month %q", ErrMalformedTimestamp, month)
	}
	if day < 1 || day > daysIn(m, year) {
		return time.Time{}, fmt.Errorf("%w: day %d of %s %d", ErrMalformedTimestamp, day, m, year)
	}
	if hour > 23 || minute > 59 || second > 59 {
		return time.Time{}, fmt.Errorf("%w: %02d:%02d:%02d", ErrMalformedTimestamp, hour, minute, second)
	}
	return time.Date(year, m, day, hour, minute, second, 0, time.Local), nil
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// atoi accepts plain decimal digits only, so signs and blanks are rejected.
func atoi(s string) (int, error) {
	if s == "" || len(s) > 4 {
		return 0, strconv.ErrSyntax
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.Atoi(s)
}
