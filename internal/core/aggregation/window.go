package aggregation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// intervalPattern accepts the PostgreSQL interval input forms plan files use:
// one or more "<n> <unit>" parts with optional fractions, hh:mm[:ss] times,
// and a trailing "ago", e.g. "1 month", "1.5 hours", "1 day 01:00:00".
var intervalPattern = regexp.MustCompile(
	`^(\s*(\d+(\.\d+)?\s*(microseconds?|us|milliseconds?|ms|seconds?|secs?|s|minutes?|mins?|m|hours?|hrs?|h|days?|d|weeks?|w|months?|mons?|years?|yrs?|y|decades?|centuries|century|millennium|millennia)|\d+:\d{2}(:\d{2}(\.\d+)?)?))+(\s+ago)?\s*$`,
)

// ParseWindow validates a window string. It returns the trimmed window, which
// is either WindowAll or a PostgreSQL interval.
func ParseWindow(s string) (string, error) {
	w := strings.TrimSpace(s)
	if w == "" {
		return "", fmt.Errorf("window must not be empty")
	}
	if w == WindowAll {
		return w, nil
	}
	if !intervalPattern.MatchString(strings.ToLower(w)) {
		return "", fmt.Errorf("invalid window %q (use %q, \"<n> <unit>\" parts such as \"1 month\" or \"1.5 hours\", or hh:mm:ss)", s, WindowAll)
	}
	return w, nil
}

// ParseReferenceDate validates a YYYY-MM-DD reference date.
func ParseReferenceDate(s string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid reference date %q: %w", s, err)
	}
	return d, nil
}

// WindowLabel is the window as it appears in column names: spaces removed.
func WindowLabel(window string) string {
	return strings.ReplaceAll(window, " ", "")
}
