package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/limbo/routinely/pkg/entity"
)

// Streak math over the completion log. Everything here is a pure function
// of its inputs: recomputing from scratch always gives the same answer, so
// habit stats can be rebuilt at any time.

type Streaks struct {
	Current int
	Best    int
}

// ComputeStreaks walks the completed days of the log. The current streak
// counts consecutive completed days ending at today, except that an
// incomplete today does not break a run ending yesterday: the streak stays
// "current" until the day has fully elapsed.
func ComputeStreaks(events []entity.CompletionEvent, today time.Time) Streaks {
	completed := make(map[time.Time]struct{}, len(events))
	for _, ev := range events {
		if ev.Completed {
			completed[entity.DayOf(ev.Day)] = struct{}{}
		}
	}

	day := entity.DayOf(today)
	if _, ok := completed[day]; !ok {
		day = day.AddDate(0, 0, -1)
	}
	current := 0
	for {
		if _, ok := completed[day]; !ok {
			break
		}
		current++
		day = day.AddDate(0, 0, -1)
	}

	days := make([]time.Time, 0, len(completed))
	for d := range completed {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	best, run := 0, 0
	for i, d := range days {
		if i > 0 && days[i-1].AddDate(0, 0, 1).Equal(d) {
			run++
		} else {
			run = 1
		}
		if run > best {
			best = run
		}
	}
	return Streaks{Current: current, Best: best}
}

// SuccessRate is completed over attempted as a percentage, one decimal
// place. Zero attempts give 0, never a division by zero.
func SuccessRate(events []entity.CompletionEvent) float64 {
	if len(events) == 0 {
		return 0
	}
	completed := 0
	for _, ev := range events {
		if ev.Completed {
			completed++
		}
	}
	rate := float64(completed) / float64(len(events)) * 100
	return math.Round(rate*10) / 10
}
