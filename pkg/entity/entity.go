package entity

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	XP           int       `json:"xp"`
	Level        int       `json:"level"`
}

// LevelForXP is recomputed on every XP change. Levels never go down
// because XP never decreases.
func LevelForXP(xp int) int {
	return xp/1000 + 1
}

// ReminderConfig describes when a habit wants to be reminded. Windows hold
// time-of-day tags ("morning", "any", "morning-evening", "18:00"); Weekdays
// is the allow-list applied only when TimesPerWeek < 7.
type ReminderConfig struct {
	Enabled      bool     `json:"enabled"`
	Windows      []string `json:"windows"`
	Weekdays     []int    `json:"weekdays"`
	TimesPerWeek int      `json:"times_per_week"`
}

type HabitStats struct {
	TotalCompletions int     `json:"total_completions"`
	CurrentStreak    int     `json:"current_streak"`
	BestStreak       int     `json:"best_streak"`
	SuccessRate      float64 `json:"success_rate"`
	TotalMinutes     int     `json:"total_minutes"`
}

type Habit struct {
	ID            uuid.UUID      `json:"id"`
	UserID        uuid.UUID      `json:"uid"`
	Collaborators []uuid.UUID    `json:"collaborators,omitempty"`
	Title         string         `json:"title"`
	Description   string         `json:"desc"`
	Category      string         `json:"category"`
	Active        bool           `json:"active"`
	Reminder      ReminderConfig `json:"reminder"`
	Stats         HabitStats     `json:"stats"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// SharedWith reports whether uid may record completions on the habit.
// Collaborators never become owners; reminders still go to UserID.
func (h *Habit) SharedWith(uid uuid.UUID) bool {
	if h.UserID == uid {
		return true
	}
	for _, c := range h.Collaborators {
		if c == uid {
			return true
		}
	}
	return false
}

// CompletionEvent is one habit's record for one calendar day. Repeated
// completions on the same day bump Count on the same row, they never
// create a second one.
type CompletionEvent struct {
	ID           int64     `json:"id"`
	HabitID      uuid.UUID `json:"habit_id"`
	UserID       uuid.UUID `json:"user_id"`
	Day          time.Time `json:"day"`
	Completed    bool      `json:"completed"`
	Count        int       `json:"count"`
	Mood         *int      `json:"mood,omitempty"`
	Productivity *int      `json:"productivity,omitempty"`
	MinutesSpent int       `json:"minutes_spent"`
	Note         string    `json:"note,omitempty"`
	CompletedAt  time.Time `json:"completed_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// LedgerEntry marks that a reminder for HabitID already went out on SentOn.
// One row per (habit, day), enforced by the database.
type LedgerEntry struct {
	ID        int64     `json:"id"`
	HabitID   uuid.UUID `json:"habit_id"`
	UserID    uuid.UUID `json:"user_id"`
	SentOn    time.Time `json:"sent_on"`
	Channel   string    `json:"channel"`
	CreatedAt time.Time `json:"created_at"`
}

type FailureSample struct {
	HabitID string `json:"habit_id"`
	Reason  string `json:"reason"`
}

// TickReport aggregates one dispatch run. Partial failures live in the
// counters, never in an error return.
type TickReport struct {
	RanAt    time.Time       `json:"ran_at"`
	Eligible int             `json:"eligible"`
	Deduped  int             `json:"deduped"`
	Sent     int             `json:"sent"`
	Failed   int             `json:"failed"`
	Orphaned int             `json:"orphaned"`
	Skipped  int             `json:"skipped"`
	Failures []FailureSample `json:"failures,omitempty"`
}

// DayOf truncates t to its calendar day in UTC. Every day-keyed row
// (completions, ledger entries) stores this form.
func DayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
