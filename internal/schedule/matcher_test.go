package schedule_test

import (
	"testing"
	"time"

	errorvalues "github.com/limbo/routinely/internal/error_values"
	"github.com/limbo/routinely/internal/schedule"
	"github.com/limbo/routinely/pkg/entity"
	"github.com/stretchr/testify/assert"
)

func habitWith(windows []string) *entity.Habit {
	return &entity.Habit{
		Active: true,
		Reminder: entity.ReminderConfig{
			Enabled:      true,
			Windows:      windows,
			TimesPerWeek: 7,
		},
	}
}

func TestIsDueDisabled(t *testing.T) {
	m := schedule.NewMatcher(true)
	h := habitWith([]string{"any"})
	h.Reminder.Enabled = false
	for hour := 0; hour < 24; hour++ {
		for wd := time.Sunday; wd <= time.Saturday; wd++ {
			assert.False(t, m.IsDue(h, hour, wd))
		}
	}
}

func TestIsDueAnyWindow(t *testing.T) {
	m := schedule.NewMatcher(true)
	h := habitWith([]string{"any"})
	for hour := 0; hour < 24; hour++ {
		for wd := time.Sunday; wd <= time.Saturday; wd++ {
			assert.True(t, m.IsDue(h, hour, wd))
		}
	}
}

func TestIsDueWindows(t *testing.T) {
	m := schedule.NewMatcher(true)
	testCases := []struct {
		Desc     string
		Windows  []string
		Hour     int
		Expected bool
	}{
		{Desc: "morning hit", Windows: []string{"morning"}, Hour: 8, Expected: true},
		{Desc: "morning lower bound", Windows: []string{"morning"}, Hour: 6, Expected: true},
		{Desc: "morning upper bound exclusive", Windows: []string{"morning"}, Hour: 12, Expected: false},
		{Desc: "afternoon hit", Windows: []string{"afternoon"}, Hour: 15, Expected: true},
		{Desc: "evening hit", Windows: []string{"evening"}, Hour: 19, Expected: true},
		{Desc: "night late side", Windows: []string{"night"}, Hour: 23, Expected: true},
		{Desc: "night early side wraps", Windows: []string{"night"}, Hour: 3, Expected: true},
		{Desc: "night miss", Windows: []string{"night"}, Hour: 12, Expected: false},
		{Desc: "explicit time hit", Windows: []string{"14:00"}, Hour: 14, Expected: true},
		{Desc: "explicit time minute ignored", Windows: []string{"14:45"}, Hour: 14, Expected: true},
		{Desc: "explicit time miss", Windows: []string{"14:00"}, Hour: 15, Expected: false},
		{Desc: "range morning-evening covers afternoon", Windows: []string{"morning-evening"}, Hour: 13, Expected: true},
		{Desc: "range morning-evening covers morning", Windows: []string{"morning-evening"}, Hour: 7, Expected: true},
		{Desc: "range morning-evening covers evening", Windows: []string{"morning-evening"}, Hour: 20, Expected: true},
		{Desc: "range morning-evening excludes night", Windows: []string{"morning-evening"}, Hour: 23, Expected: false},
		{Desc: "range wraps evening-morning", Windows: []string{"evening-morning"}, Hour: 2, Expected: true},
		{Desc: "range wraps excludes afternoon", Windows: []string{"evening-morning"}, Hour: 14, Expected: false},
		{Desc: "or across tags", Windows: []string{"9:00", "evening"}, Hour: 19, Expected: true},
		{Desc: "or across tags miss", Windows: []string{"9:00", "evening"}, Hour: 13, Expected: false},
		{Desc: "malformed tag skipped", Windows: []string{"brunch", "afternoon"}, Hour: 13, Expected: true},
		{Desc: "only malformed tags", Windows: []string{"brunch"}, Hour: 13, Expected: false},
	}
	for _, tc := range testCases {
		t.Run(tc.Desc, func(t *testing.T) {
			assert.Equal(t, tc.Expected, m.IsDue(habitWith(tc.Windows), tc.Hour, time.Monday))
		})
	}
}

func TestIsDueEmptyWindows(t *testing.T) {
	h := habitWith(nil)
	assert.True(t, schedule.NewMatcher(true).IsDue(h, 4, time.Friday))
	assert.False(t, schedule.NewMatcher(false).IsDue(h, 4, time.Friday))
}

func TestIsDueWeekdayGate(t *testing.T) {
	m := schedule.NewMatcher(true)
	h := habitWith([]string{"any"})
	h.Reminder.TimesPerWeek = 3
	h.Reminder.Weekdays = []int{int(time.Monday), int(time.Wednesday), int(time.Friday)}
	assert.True(t, m.IsDue(h, 10, time.Monday))
	assert.False(t, m.IsDue(h, 10, time.Tuesday))

	// Daily habits short-circuit the weekday gate.
	h.Reminder.TimesPerWeek = 7
	assert.True(t, m.IsDue(h, 10, time.Tuesday))

	// Sub-daily habit without an allow-list has nothing to gate on.
	h.Reminder.TimesPerWeek = 3
	h.Reminder.Weekdays = nil
	assert.True(t, m.IsDue(h, 10, time.Tuesday))
}

func TestValidateWindows(t *testing.T) {
	testCases := []struct {
		Desc    string
		Windows []string
		Error   error
	}{
		{Desc: "valid mix", Windows: []string{"any", "morning", "morning-evening", "07:30"}, Error: nil},
		{Desc: "empty set", Windows: nil, Error: nil},
		{Desc: "unknown bucket", Windows: []string{"brunch"}, Error: errorvalues.ErrInvalidWindow},
		{Desc: "bad hour", Windows: []string{"25:00"}, Error: errorvalues.ErrInvalidWindow},
		{Desc: "bad minute", Windows: []string{"10:75"}, Error: errorvalues.ErrInvalidWindow},
		{Desc: "bad range side", Windows: []string{"morning-noon"}, Error: errorvalues.ErrInvalidWindow},
		{Desc: "blank tag", Windows: []string{" "}, Error: errorvalues.ErrInvalidWindow},
	}
	for _, tc := range testCases {
		t.Run(tc.Desc, func(t *testing.T) {
			err := schedule.ValidateWindows(tc.Windows)
			if tc.Error != nil {
				assert.ErrorIs(t, err, tc.Error)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBucketOf(t *testing.T) {
	expected := map[int]int{5: 3, 6: 0, 11: 0, 12: 1, 17: 1, 18: 2, 21: 2, 22: 3, 0: 3}
	for hour, bucket := range expected {
		assert.Equal(t, bucket, schedule.BucketOf(hour), "hour %d", hour)
	}
}
