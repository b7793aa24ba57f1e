package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/limbo/routinely/pkg/entity"
)

// In-memory reduction over a caller-bounded slice of completion events
// (e.g. the last 30 or 90 days). No querying happens here; the caller
// decides the window.

type TimeOfDayPattern struct {
	ModalHour      int     `json:"modal_hour"`
	TotalMinutes   int     `json:"total_minutes"`
	AverageMinutes float64 `json:"average_minutes"`
}

type DayCount struct {
	Day       time.Time `json:"day"`
	Completed int       `json:"completed"`
}

type WeekRate struct {
	Year        int     `json:"year"`
	Week        int     `json:"week"`
	SuccessRate float64 `json:"success_rate"`
}

type HistogramBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type MoodPoint struct {
	Day          time.Time `json:"day"`
	Mood         float64   `json:"mood"`
	Productivity float64   `json:"productivity"`
}

type Report struct {
	WeeklyAverage         float64           `json:"weekly_average"`
	MostProductiveWeekday time.Weekday      `json:"most_productive_weekday"`
	TimeOfDay             TimeOfDayPattern  `json:"time_of_day"`
	DailyTrend            []DayCount        `json:"daily_trend"`
	WeeklySuccessRates    []WeekRate        `json:"weekly_success_rates"`
	TimeSpentHistogram    []HistogramBucket `json:"time_spent_histogram"`
	MoodProductivity      []MoodPoint       `json:"mood_productivity"`
}

// Minute boundaries for the time-spent histogram. The last bucket is
// open-ended.
var histogramBounds = []struct {
	Label string
	Max   int
}{
	{"0-5", 5},
	{"6-15", 15},
	{"16-30", 30},
	{"31-60", 60},
	{"60+", math.MaxInt},
}

// Analyze reduces a bounded event window into the analytics report.
// Deterministic: weekday and modal-hour ties resolve to the earliest
// candidate in fixed Sun-Sat / 0-23 iteration order.
func Analyze(events []entity.CompletionEvent) *Report {
	r := &Report{
		TimeSpentHistogram: make([]HistogramBucket, len(histogramBounds)),
	}
	for i, b := range histogramBounds {
		r.TimeSpentHistogram[i].Label = b.Label
	}

	var weekdayCounts [7]int
	var hourCounts [24]int
	weeks := make(map[string]*weekAgg)
	dayCounts := make(map[time.Time]int)
	moodAgg := make(map[time.Time]*moodDay)
	totalCompleted := 0
	totalMinutes := 0

	for _, ev := range events {
		day := entity.DayOf(ev.Day)
		wk := isoWeekKey(day)
		agg, ok := weeks[wk]
		if !ok {
			year, week := day.ISOWeek()
			agg = &weekAgg{Year: year, Week: week}
			weeks[wk] = agg
		}
		agg.Attempted++

		if !ev.Completed {
			continue
		}
		agg.Completed++
		totalCompleted++
		totalMinutes += ev.MinutesSpent
		weekdayCounts[int(day.Weekday())]++
		hourCounts[ev.CompletedAt.Hour()]++
		dayCounts[day] += max(ev.Count, 1)

		for i, b := range histogramBounds {
			if ev.MinutesSpent <= b.Max {
				r.TimeSpentHistogram[i].Count++
				break
			}
		}
		if ev.Mood != nil || ev.Productivity != nil {
			md, ok := moodAgg[day]
			if !ok {
				md = &moodDay{}
				moodAgg[day] = md
			}
			md.Add(ev)
		}
	}

	if len(weeks) > 0 {
		r.WeeklyAverage = math.Round(float64(totalCompleted)/float64(len(weeks))*10) / 10
	}
	r.MostProductiveWeekday = bestWeekday(weekdayCounts)
	r.TimeOfDay = timeOfDay(hourCounts, totalCompleted, totalMinutes)
	r.DailyTrend = dailyTrend(dayCounts)
	r.WeeklySuccessRates = weekRates(weeks)
	r.MoodProductivity = moodTrend(moodAgg)
	return r
}

type weekAgg struct {
	Year      int
	Week      int
	Attempted int
	Completed int
}

type moodDay struct {
	moodSum, moodN int
	prodSum, prodN int
}

func (md *moodDay) Add(ev entity.CompletionEvent) {
	if ev.Mood != nil {
		md.moodSum += *ev.Mood
		md.moodN++
	}
	if ev.Productivity != nil {
		md.prodSum += *ev.Productivity
		md.prodN++
	}
}

func isoWeekKey(day time.Time) string {
	year, week := day.ISOWeek()
	return fmt.Sprintf("%d-%02d", year, week)
}

func bestWeekday(counts [7]int) time.Weekday {
	best := time.Sunday
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		if counts[int(wd)] > counts[int(best)] {
			best = wd
		}
	}
	return best
}

func timeOfDay(hourCounts [24]int, totalCompleted, totalMinutes int) TimeOfDayPattern {
	p := TimeOfDayPattern{TotalMinutes: totalMinutes}
	for h := 1; h < 24; h++ {
		if hourCounts[h] > hourCounts[p.ModalHour] {
			p.ModalHour = h
		}
	}
	if totalCompleted > 0 {
		p.AverageMinutes = math.Round(float64(totalMinutes)/float64(totalCompleted)*10) / 10
	}
	return p
}

func dailyTrend(dayCounts map[time.Time]int) []DayCount {
	trend := make([]DayCount, 0, len(dayCounts))
	for day, n := range dayCounts {
		trend = append(trend, DayCount{Day: day, Completed: n})
	}
	sort.Slice(trend, func(i, j int) bool { return trend[i].Day.Before(trend[j].Day) })
	return trend
}

func weekRates(weeks map[string]*weekAgg) []WeekRate {
	rates := make([]WeekRate, 0, len(weeks))
	for _, agg := range weeks {
		rate := float64(agg.Completed) / float64(agg.Attempted) * 100
		rates = append(rates, WeekRate{
			Year:        agg.Year,
			Week:        agg.Week,
			SuccessRate: math.Round(rate*10) / 10,
		})
	}
	sort.Slice(rates, func(i, j int) bool {
		if rates[i].Year != rates[j].Year {
			return rates[i].Year < rates[j].Year
		}
		return rates[i].Week < rates[j].Week
	})
	return rates
}

func moodTrend(moodAgg map[time.Time]*moodDay) []MoodPoint {
	points := make([]MoodPoint, 0, len(moodAgg))
	for day, md := range moodAgg {
		p := MoodPoint{Day: day}
		if md.moodN > 0 {
			p.Mood = math.Round(float64(md.moodSum)/float64(md.moodN)*10) / 10
		}
		if md.prodN > 0 {
			p.Productivity = math.Round(float64(md.prodSum)/float64(md.prodN)*10) / 10
		}
		points = append(points, p)
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Day.Before(points[j].Day) })
	return points
}
