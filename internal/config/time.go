package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var relativeUnit = regexp.MustCompile(`(\d+)([wdhms])`)

var absoluteLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimeRef resolves a --since/--until argument against now. It accepts
// an absolute timestamp or a relative age such as "90m", "1d2h" or "1w"
// counted back from now.
func ParseTimeRef(s string, now time.Time) (time.Time, error) {
	input := strings.TrimSpace(s)
	if input == "" {
		return time.Time{}, fmt.Errorf("time reference is empty")
	}

	for _, layout := range absoluteLayouts {
		if t, err := time.Parse(layout, input); err == nil {
			return t, nil
		}
	}

	d, err := parseAge(input)
	if err != nil {
		return time.Time{}, err
	}
	return now.Add(-d), nil
}

// TimeRange is an inclusive filter on entry timestamps. Zero bounds are
// open. Entries without a timestamp always pass.
type TimeRange struct {
	Since time.Time
	Until time.Time
}

// Contains reports whether t falls inside the range.
func (r TimeRange) Contains(t time.Time) bool {
	if t.IsZero() {
		return true
	}
	if !r.Since.IsZero() && t.Before(r.Since) {
		return false
	}
	if !r.Until.IsZero() && t.After(r.Until) {
		return false
	}
	return true
}

func parseAge(input string) (time.Duration, error) {
	if d, err := time.ParseDuration(input); err == nil {
		if d < 0 {
			return 0, fmt.Errorf("relative time must not be negative: %s", input)
		}
		return d, nil
	}

	matches := relativeUnit.FindAllStringSubmatchIndex(input, -1)
	if len(matches) == 0 {
		return 0, fmt.Errorf("invalid time reference: %s", input)
	}

	var total time.Duration
	consumed := 0
	for _, m := range matches {
		if m[0] != consumed {
			return 0, fmt.Errorf("invalid time reference: %s", input)
		}
		consumed = m[1]

		value, err := strconv.ParseInt(input[m[2]:m[3]], 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid time reference: %s", input)
		}
		unit := time.Second
		switch input[m[4]:m[5]] {
		case "w":
			unit = 7 * 24 * time.Hour
		case "d":
			unit = 24 * time.Hour
		case "h":
			unit = time.Hour
		case "m":
			unit = time.Minute
		}
		total += time.Duration(value) * unit
	}
	if consumed != len(input) {
		return 0, fmt.Errorf("invalid time reference: %s", input)
	}
	return total, nil
}
