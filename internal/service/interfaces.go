package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/limbo/routinely/internal/analytics"
	"github.com/limbo/routinely/pkg/entity"
)

type RegisterRequest struct {
	Name     string `validate:"required,alphanum_underscore,min=3,max=100"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8,max=72"`
}

type ReminderOpts struct {
	Enabled      bool
	Windows      []string `validate:"dive,reminder_window"`
	Weekdays     []int    `validate:"dive,min=0,max=6"`
	TimesPerWeek int      `validate:"min=0,max=7"`
}

type CreateHabitRequest struct {
	Title       string `validate:"required,min=1,max=200"`
	Description string `validate:"max=2000"`
	Category    string `validate:"max=100"`
	Reminder    ReminderOpts
}

type PaginationOpts struct {
	Limit  int
	Offset int
}

type CompletionOpts struct {
	Mood         *int   `validate:"omitempty,min=1,max=5"`
	Productivity *int   `validate:"omitempty,min=1,max=5"`
	MinutesSpent int    `validate:"min=0,max=1440"`
	Note         string `validate:"max=2000"`
}

type UserServiceI interface {
	// Validates user's credentials, creates new row in database. Returns user's data with ID
	Register(ctx context.Context, req *RegisterRequest) (*entity.User, error)
	// Compares given credentials. If ok, give back user's data with ID.
	Login(ctx context.Context, name, password string) (*entity.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error)
	GetByName(ctx context.Context, name string) (*entity.User, error)
	DeleteAccount(ctx context.Context, id uuid.UUID, password string) error
}

type HabitsServiceI interface {
	CreateHabit(ctx context.Context, uid uuid.UUID, req *CreateHabitRequest) (*entity.Habit, error)
	GetHabit(ctx context.Context, habitID, userID uuid.UUID) (*entity.Habit, error)
	GetUserHabits(ctx context.Context, uid uuid.UUID, pagination PaginationOpts) ([]*entity.Habit, error)
	UpdateHabit(ctx context.Context, habitID, userID uuid.UUID, req *CreateHabitRequest) (*entity.Habit, error)
	DeleteHabit(ctx context.Context, habitID, userID uuid.UUID) error
}

type CompletionServiceI interface {
	// Upserts the day's completion, recomputes streaks and success rate,
	// awards XP to the acting user
	Record(ctx context.Context, habitID, userID uuid.UUID, day time.Time, opts *CompletionOpts) (*entity.CompletionEvent, error)
	// Removes the day's completion and recomputes stats
	Uncheck(ctx context.Context, habitID, userID uuid.UUID, day time.Time) error
	History(ctx context.Context, habitID, userID uuid.UUID, from, to time.Time) ([]entity.CompletionEvent, error)
	Stats(ctx context.Context, habitID, userID uuid.UUID) (*entity.HabitStats, error)
	// Analytics over the last windowDays of the completion log
	Analytics(ctx context.Context, habitID, userID uuid.UUID, windowDays int) (*analytics.Report, error)
}

type DispatchServiceI interface {
	// One reminder evaluation-and-dispatch pass. Partial failures land in
	// the report; an error return means the tick could not run at all
	RunTick(ctx context.Context, now time.Time) (*entity.TickReport, error)
}
