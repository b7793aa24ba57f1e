package schedule

import (
	"strconv"
	"strings"
	"time"

	errorvalues "github.com/limbo/routinely/internal/error_values"
	"github.com/limbo/routinely/pkg/entity"
)

// Canonical time-of-day buckets, in ordering used by range tags.
// Night wraps over midnight.
var bucketNames = [4]string{"morning", "afternoon", "evening", "night"}

const (
	bucketMorning = iota
	bucketAfternoon
	bucketEvening
	bucketNight
)

// BucketOf maps an hour (0-23) to its bucket index: morning [6,12),
// afternoon [12,18), evening [18,22), night [22,6).
func BucketOf(hour int) int {
	switch {
	case hour >= 6 && hour < 12:
		return bucketMorning
	case hour >= 12 && hour < 18:
		return bucketAfternoon
	case hour >= 18 && hour < 22:
		return bucketEvening
	default:
		return bucketNight
	}
}

// Matcher decides reminder eligibility from habit config and wall time.
// Pure, no I/O; safe to share between concurrent ticks.
type Matcher struct {
	// EmptyWindowsMatch keeps the permissive "no windows means any time"
	// behaviour. Configurable because it is debatable whether that default
	// was ever intended.
	EmptyWindowsMatch bool
}

func NewMatcher(emptyWindowsMatch bool) *Matcher {
	return &Matcher{EmptyWindowsMatch: emptyWindowsMatch}
}

// IsDue reports whether habit should get a reminder at the given hour and
// weekday. Malformed window tags are skipped; use ValidateWindows to
// surface them.
func (m *Matcher) IsDue(h *entity.Habit, hour int, weekday time.Weekday) bool {
	if !h.Reminder.Enabled {
		return false
	}
	// Habits scheduled fewer than 7 times a week are additionally gated
	// by their weekday allow-list. Daily habits skip the gate.
	if h.Reminder.TimesPerWeek < 7 && len(h.Reminder.Weekdays) > 0 {
		allowed := false
		for _, wd := range h.Reminder.Weekdays {
			if wd == int(weekday) {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}
	if len(h.Reminder.Windows) == 0 {
		return m.EmptyWindowsMatch
	}
	for _, tag := range h.Reminder.Windows {
		ok, err := matchWindow(tag, hour)
		if err != nil {
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

// ValidateWindows checks every tag of a reminder config. Used on habit
// create/update so malformed tags are rejected before they reach a tick.
func ValidateWindows(windows []string) error {
	for _, tag := range windows {
		if _, err := matchWindow(tag, 0); err != nil {
			return err
		}
	}
	return nil
}

func matchWindow(tag string, hour int) (bool, error) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return false, errorvalues.ErrInvalidWindow
	}
	if tag == "any" {
		return true, nil
	}
	if idx, ok := bucketIndex(tag); ok {
		return BucketOf(hour) == idx, nil
	}
	if strings.Contains(tag, ":") {
		return matchClockTag(tag, hour)
	}
	if strings.Contains(tag, "-") {
		return matchRangeTag(tag, hour)
	}
	return false, errorvalues.ErrInvalidWindow
}

// matchClockTag handles explicit "HH:MM" tags. Only the hour is compared:
// the tick cadence is hourly, minute precision would never fire.
func matchClockTag(tag string, hour int) (bool, error) {
	parts := strings.Split(tag, ":")
	if len(parts) != 2 {
		return false, errorvalues.ErrInvalidWindow
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return false, errorvalues.ErrInvalidWindow
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return false, errorvalues.ErrInvalidWindow
	}
	return hour == h, nil
}

// matchRangeTag handles "start-end" bucket ranges, inclusive over the
// canonical ordering. "evening-morning" wraps through night.
func matchRangeTag(tag string, hour int) (bool, error) {
	parts := strings.Split(tag, "-")
	if len(parts) != 2 {
		return false, errorvalues.ErrInvalidWindow
	}
	start, ok := bucketIndex(parts[0])
	if !ok {
		return false, errorvalues.ErrInvalidWindow
	}
	end, ok := bucketIndex(parts[1])
	if !ok {
		return false, errorvalues.ErrInvalidWindow
	}
	cur := BucketOf(hour)
	if start <= end {
		return cur >= start && cur <= end, nil
	}
	return cur >= start || cur <= end, nil
}

func bucketIndex(name string) (int, bool) {
	for i, b := range bucketNames {
		if b == name {
			return i, true
		}
	}
	return 0, false
}
