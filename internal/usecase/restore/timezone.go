package restore

import (
	"fmt"
	"strings"
	"time"

	"github.com/bnema/envrefresh/internal/domain"
)

// localLayouts are the accepted timezone-naive restore point formats.
var localLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
}

// isUTC reports whether the zone identifier names UTC literally.
func isUTC(tz string) bool {
	switch strings.ToUpper(strings.TrimSpace(tz)) {
	case "UTC", "ETC/UTC", "Z", "GMT", "ETC/GMT":
		return true
	default:
		return false
	}
}

// ResolveInstant interprets localDateTime as wall time in zone tz and
// returns the UTC instant. UTC zones take the literal value as-is.
func ResolveInstant(localDateTime, tz string) (time.Time, error) {
	value := strings.TrimSpace(localDateTime)
	if value == "" {
		return time.Time{}, domain.NewValidationError("resolve restore point", "", fmt.Errorf("%w: empty value", domain.ErrInvalidDateTime))
	}

	zone := strings.TrimSpace(tz)
	if zone == "" {
		return time.Time{}, domain.NewValidationError("resolve restore point", "", fmt.Errorf("%w: empty timezone", domain.ErrInvalidTimezone))
	}

	if isUTC(zone) {
		naive, err := parseNaive(value, time.UTC)
		if err != nil {
			return time.Time{}, err
		}
		return naive, nil
	}

	loc, err := time.LoadLocation(zone)
	if err != nil {
		return time.Time{}, domain.NewValidationError("resolve restore point", "", fmt.Errorf("%w %q: %v", domain.ErrInvalidTimezone, zone, err))
	}

	local, err := parseNaive(value, loc)
	if err != nil {
		return time.Time{}, err
	}
	return local.UTC(), nil
}

func parseNaive(value string, loc *time.Location) (time.Time, error) {
	for _, layout := range localLayouts {
		t, err := time.ParseInLocation(layout, value, loc)
		if err != nil {
			continue
		}
		// Wall times skipped by a daylight saving jump are normalized by
		// the time package; they do not exist in loc.
		wall, _ := time.ParseInLocation(layout, value, time.UTC)
		if t.Day() != wall.Day() || t.Hour() != wall.Hour() || t.Minute() != wall.Minute() {
			return time.Time{}, domain.NewValidationError("resolve restore point", "",
				fmt.Errorf("%w %q: wall time does not exist in %s", domain.ErrInvalidDateTime, value, loc))
		}
		return t, nil
	}
	return time.Time{}, domain.NewValidationError("resolve restore point", "",
		fmt.Errorf("%w %q (expected YYYY-MM-DD HH:MM[:SS])", domain.ErrInvalidDateTime, value))
}
