// Package duration parses the wait and delay values envrefresh accepts on
// the command line and in its config file.
package duration

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	Day  = 24 * time.Hour
	Week = 7 * Day
)

// calendarPart matches the leading day and week components of a value such
// as "1w2d6h". Anything after them is left to time.ParseDuration.
var calendarPart = regexp.MustCompile(`^(?:(\d+)w)?(?:(\d+)d)?`)

// Parse reads a duration such as "90s", "15m", "1h30m", "2d" or "1w2d12h".
// Weeks and days must come first and in that order. "0" is zero and
// negative values are rejected.
func Parse(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if s == "0" {
		return 0, nil
	}

	m := calendarPart.FindStringSubmatch(s)
	var total time.Duration
	for i, unit := range []time.Duration{Week, Day} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		total += time.Duration(n) * unit
	}

	if rest := s[len(m[0]):]; rest != "" {
		d, err := time.ParseDuration(rest)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q (units: s, m, h, d, w)", s)
		}
		total += d
	}
	if total < 0 {
		return 0, fmt.Errorf("invalid duration %q: must not be negative", s)
	}
	return total, nil
}

// ParseMinutes is Parse, except that a bare integer counts minutes.
func ParseMinutes(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		if n < 0 {
			return 0, fmt.Errorf("invalid duration %q: must not be negative", s)
		}
		return time.Duration(n) * time.Minute, nil
	}
	return Parse(s)
}
