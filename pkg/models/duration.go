package models

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxDurationSeconds is the longest duration ParseDuration accepts.
const MaxDurationSeconds = 24 * 60 * 60

// ParseDuration converts a textual duration into whole seconds. It accepts a
// bare number of seconds ("185"), "m:ss" ("3:05") and "h:mm:ss" ("1:02:03").
// Minutes are not bounded in the two part form so "75:00" is 4500 seconds.
// Anything longer than MaxDurationSeconds is rejected.
func ParseDuration(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("invalid duration %q", s)
	}

	total := 0
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		// every part after the first is a base-60 digit
		if i > 0 && n >= 60 {
			return 0, fmt.Errorf("invalid duration %q", s)
		}
		if n > MaxDurationSeconds {
			return 0, fmt.Errorf("duration %q is too long", s)
		}
		total = total*60 + n
		if total > MaxDurationSeconds {
			return 0, fmt.Errorf("duration %q is too long", s)
		}
	}
	return total, nil
}

// FormatDuration renders seconds as "m:ss", or "h:mm:ss" from one hour on.
// Negative values are treated as zero.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
