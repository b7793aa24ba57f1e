package service

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/limbo/routinely/internal/analytics"
	errorvalues "github.com/limbo/routinely/internal/error_values"
	"github.com/limbo/routinely/internal/repository"
	"github.com/limbo/routinely/pkg/entity"
)

// XP awarded per recorded completion. Flat, leveling derives from the
// running total.
const completionXP = 10

type CompletionService struct {
	habitsRepo      repository.HabitsRepositoryI
	completionsRepo repository.CompletionsRepositoryI
	usersRepo       repository.UsersRepositoryI
	now             func() time.Time
}

func NewCompletionService(habitsRepo repository.HabitsRepositoryI, completionsRepo repository.CompletionsRepositoryI, usersRepo repository.UsersRepositoryI) *CompletionService {
	if habitsRepo == nil || completionsRepo == nil || usersRepo == nil {
		log.Fatal("on completion service provided nil repos")
	}
	return &CompletionService{
		habitsRepo:      habitsRepo,
		completionsRepo: completionsRepo,
		usersRepo:       usersRepo,
		now:             time.Now,
	}
}

// WithClock swaps the wall clock, tests only.
func (serv *CompletionService) WithClock(now func() time.Time) *CompletionService {
	serv.now = now
	return serv
}

func (serv *CompletionService) Record(ctx context.Context, habitID, userID uuid.UUID, day time.Time, opts *CompletionOpts) (*entity.CompletionEvent, error) {
	if opts == nil {
		opts = &CompletionOpts{}
	}
	if err := validate.Struct(*opts); err != nil {
		if validationError, ok := err.(validator.ValidationErrors); ok {
			joined := errors.New("validation error: ")
			for _, fieldErr := range validationError {
				joined = errors.Join(joined, fieldErr)
			}
			return nil, joined
		}
		return nil, errors.New("validation unexpected error: " + err.Error())
	}
	habit, err := serv.getSharedHabit(ctx, habitID, userID)
	if err != nil {
		return nil, err
	}
	day = entity.DayOf(day)
	if day.After(entity.DayOf(serv.now())) {
		return nil, errorvalues.ErrCompletionInFuture
	}
	event, err := serv.completionsRepo.Upsert(ctx, &entity.CompletionEvent{
		HabitID:      habitID,
		UserID:       userID,
		Day:          day,
		Completed:    true,
		Mood:         opts.Mood,
		Productivity: opts.Productivity,
		MinutesSpent: opts.MinutesSpent,
		Note:         opts.Note,
		CompletedAt:  serv.now(),
	})
	if err != nil {
		if errors.Is(err, errorvalues.ErrHabitNotFound) {
			return nil, err
		}
		return nil, errors.New("repository error: " + err.Error())
	}
	if err = serv.recomputeStats(ctx, habit); err != nil {
		return nil, err
	}
	// XP is a flat award per recording action; failures here shouldn't
	// lose the completion itself.
	if _, err = serv.usersRepo.AddXP(ctx, userID, completionXP); err != nil {
		slog.Warn("awarding xp failed", slog.String("uid", userID.String()), slog.String("error", err.Error()))
	}
	return event, nil
}

func (serv *CompletionService) Uncheck(ctx context.Context, habitID, userID uuid.UUID, day time.Time) error {
	habit, err := serv.getSharedHabit(ctx, habitID, userID)
	if err != nil {
		return err
	}
	day = entity.DayOf(day)
	// Past days are immutable once elapsed; only today can be unchecked.
	if !day.Equal(entity.DayOf(serv.now())) {
		return errorvalues.ErrCompletionNotFound
	}
	err = serv.completionsRepo.Delete(ctx, habitID, day)
	if err != nil {
		if errors.Is(err, errorvalues.ErrCompletionNotFound) {
			return err
		}
		return errors.New("repository error: " + err.Error())
	}
	return serv.recomputeStats(ctx, habit)
}

func (serv *CompletionService) History(ctx context.Context, habitID, userID uuid.UUID, from, to time.Time) ([]entity.CompletionEvent, error) {
	if _, err := serv.getSharedHabit(ctx, habitID, userID); err != nil {
		return nil, err
	}
	events, err := serv.completionsRepo.GetByHabitAndDateRange(ctx, habitID, entity.DayOf(from), entity.DayOf(to))
	if err != nil {
		return nil, errors.New("repository error: " + err.Error())
	}
	return events, nil
}

func (serv *CompletionService) Stats(ctx context.Context, habitID, userID uuid.UUID) (*entity.HabitStats, error) {
	if _, err := serv.getSharedHabit(ctx, habitID, userID); err != nil {
		return nil, err
	}
	events, err := serv.completionsRepo.GetByHabit(ctx, habitID)
	if err != nil {
		return nil, errors.New("repository error: " + err.Error())
	}
	stats := statsFromLog(events, serv.now())
	return &stats, nil
}

func (serv *CompletionService) Analytics(ctx context.Context, habitID, userID uuid.UUID, windowDays int) (*analytics.Report, error) {
	if _, err := serv.getSharedHabit(ctx, habitID, userID); err != nil {
		return nil, err
	}
	if windowDays <= 0 {
		windowDays = 30
	}
	to := entity.DayOf(serv.now())
	from := to.AddDate(0, 0, -windowDays+1)
	events, err := serv.completionsRepo.GetByHabitAndDateRange(ctx, habitID, from, to)
	if err != nil {
		return nil, errors.New("repository error: " + err.Error())
	}
	return analytics.Analyze(events), nil
}

func (serv *CompletionService) getSharedHabit(ctx context.Context, habitID, userID uuid.UUID) (*entity.Habit, error) {
	habit, err := serv.habitsRepo.GetByID(ctx, habitID)
	if err != nil {
		if errors.Is(err, errorvalues.ErrHabitNotFound) {
			return nil, err
		}
		return nil, errors.New("repository error: " + err.Error())
	}
	if !habit.SharedWith(userID) {
		return nil, errorvalues.ErrWrongOwner
	}
	return habit, nil
}

// recomputeStats rebuilds the derived block from the full log. The log is
// the source of truth; stats can always be regenerated from scratch.
func (serv *CompletionService) recomputeStats(ctx context.Context, habit *entity.Habit) error {
	events, err := serv.completionsRepo.GetByHabit(ctx, habit.ID)
	if err != nil {
		return errors.New("repository error: " + err.Error())
	}
	stats := statsFromLog(events, serv.now())
	if err = serv.habitsRepo.UpdateStats(ctx, habit.ID, stats); err != nil {
		return errors.New("repository error: " + err.Error())
	}
	habit.Stats = stats
	return nil
}

func statsFromLog(events []entity.CompletionEvent, now time.Time) entity.HabitStats {
	streaks := analytics.ComputeStreaks(events, now)
	stats := entity.HabitStats{
		CurrentStreak: streaks.Current,
		BestStreak:    streaks.Best,
		SuccessRate:   analytics.SuccessRate(events),
	}
	for _, ev := range events {
		if ev.Completed {
			stats.TotalCompletions++
			stats.TotalMinutes += ev.MinutesSpent
		}
	}
	return stats
}
