package engine

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ParseDuration reads moderator-facing duration strings such as "30m",
// "1h30m" or "1d2h30m15s". Days are accepted on top of the usual units. The
// result must be positive.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return 0, fmt.Errorf("duration is empty")
	}

	var total time.Duration
	var num strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			num.WriteRune(r)
			continue
		}
		if num.Len() == 0 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		n, err := strconv.Atoi(num.String())
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		num.Reset()
		switch r {
		case 'd':
			total += time.Duration(n) * 24 * time.Hour
		case 'h':
			total += time.Duration(n) * time.Hour
		case 'm':
			total += time.Duration(n) * time.Minute
		case 's':
			total += time.Duration(n) * time.Second
		default:
			return 0, fmt.Errorf("invalid duration unit %q", string(r))
		}
	}
	if num.Len() > 0 {
		return 0, fmt.Errorf("duration %q is missing a unit", s)
	}
	if total <= 0 {
		return 0, fmt.Errorf("duration must be positive")
	}
	return total, nil
}

// FormatDuration renders a duration in the largest sensible unit for
// user-facing messages.
func FormatDuration(d time.Duration) string {
	seconds := int64(d.Seconds())
	switch {
	case seconds < 60:
		return plural(seconds, "second")
	case seconds < 3600:
		return plural(seconds/60, "minute")
	case seconds < 86400:
		return plural(seconds/3600, "hour")
	default:
		return plural(seconds/86400, "day")
	}
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %s%s", n, unit, "s")
}
