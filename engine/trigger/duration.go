package trigger

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// naturalLanguageDurationPattern is the compact grammar parseDelay falls
// back to: an optional count of weeks, days, hours, minutes, and seconds,
// each with its own single-letter unit, in that fixed order (spec.md
// §4.8).
var naturalLanguageDurationPattern = regexp.MustCompile(`^(\d+w)?(\d+d)?(\d+h)?(\d+m)?(\d+s)?$`)

const (
	secondsPerWeek   = 7 * secondsPerDay
	secondsPerDay    = 24 * secondsPerHour
	secondsPerHour   = 3600
	secondsPerMinute = 60
)

// ParseDelay implements parseDelay (spec.md §4.8): nil/empty yields nil,
// an already-parsed time.Time passes through, a string parsable as an
// absolute RFC3339 date is accepted unless it resolves to the past (in
// which case it is elided to nil), otherwise it falls through to the
// natural-language duration grammar. now is injected for testability.
func ParseDelay(value any, now time.Time) *time.Time {
	switch v := value.(type) {
	case nil:
		return nil
	case time.Time:
		return &v
	case *time.Time:
		return v
	case string:
		if v == "" {
			return nil
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			if !t.After(now) {
				return nil
			}
			return &t
		}
		return parseNaturalLanguageDuration(v, now)
	default:
		return nil
	}
}

// parseNaturalLanguageDuration implements spec.md §4.8's regex-driven
// grammar. A string matching the pattern with no groups present (e.g.
// "") yields nil, since nothing was actually specified.
func parseNaturalLanguageDuration(s string, now time.Time) *time.Time {
	match := naturalLanguageDurationPattern.FindStringSubmatch(s)
	if match == nil {
		return nil
	}
	matched := false
	total := time.Duration(0)
	units := []struct {
		group string
		unit  time.Duration
	}{
		{match[1], time.Hour * 24 * 7},
		{match[2], time.Hour * 24},
		{match[3], time.Hour},
		{match[4], time.Minute},
		{match[5], time.Second},
	}
	for _, u := range units {
		if u.group == "" {
			continue
		}
		matched = true
		n, err := strconv.Atoi(strings.TrimSuffix(u.group, u.group[len(u.group)-1:]))
		if err != nil {
			continue
		}
		total += time.Duration(n) * u.unit
	}
	if !matched {
		return nil
	}
	result := now.Add(total)
	return &result
}

// StringifyDuration implements stringifyDuration (spec.md §4.8): for
// positive seconds, decomposes into weeks/days/hours/minutes/seconds and
// concatenates only the non-zero components in that fixed order. Returns
// nil for seconds <= 0.
func StringifyDuration(seconds int64) *string {
	if seconds <= 0 {
		return nil
	}
	remaining := seconds
	var b strings.Builder
	appendUnit := func(amount int64, suffix string) {
		if amount == 0 {
			return
		}
		b.WriteString(strconv.FormatInt(amount, 10))
		b.WriteString(suffix)
	}
	weeks := remaining / secondsPerWeek
	remaining %= secondsPerWeek
	days := remaining / secondsPerDay
	remaining %= secondsPerDay
	hours := remaining / secondsPerHour
	remaining %= secondsPerHour
	minutes := remaining / secondsPerMinute
	remaining %= secondsPerMinute
	secs := remaining
	appendUnit(weeks, "w")
	appendUnit(days, "d")
	appendUnit(hours, "h")
	appendUnit(minutes, "m")
	appendUnit(secs, "s")
	out := b.String()
	return &out
}
