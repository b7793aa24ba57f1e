package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	errorvalues "github.com/limbo/routinely/internal/error_values"
	"github.com/limbo/routinely/internal/repository"
	"github.com/limbo/routinely/internal/service"
	"github.com/limbo/routinely/pkg/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var recordNow = time.Date(2025, 6, 16, 9, 0, 0, 0, time.UTC)

type fakeCompletionHabits struct {
	repository.HabitsRepositoryI
	habit     *entity.Habit
	lastStats *entity.HabitStats
}

func (f *fakeCompletionHabits) GetByID(ctx context.Context, id uuid.UUID) (*entity.Habit, error) {
	if f.habit == nil || f.habit.ID != id {
		return nil, errorvalues.ErrHabitNotFound
	}
	copied := *f.habit
	return &copied, nil
}

func (f *fakeCompletionHabits) UpdateStats(ctx context.Context, id uuid.UUID, stats entity.HabitStats) error {
	if f.habit == nil || f.habit.ID != id {
		return errorvalues.ErrHabitNotFound
	}
	f.lastStats = &stats
	return nil
}

type fakeCompletionsRepo struct {
	repository.CompletionsRepositoryI
	byDay     map[time.Time]*entity.CompletionEvent
	lastFrom  time.Time
	lastTo    time.Time
	rangeUsed bool
}

func newFakeCompletionsRepo() *fakeCompletionsRepo {
	return &fakeCompletionsRepo{byDay: make(map[time.Time]*entity.CompletionEvent)}
}

func (f *fakeCompletionsRepo) Upsert(ctx context.Context, ev *entity.CompletionEvent) (*entity.CompletionEvent, error) {
	if existing, ok := f.byDay[ev.Day]; ok {
		existing.Count++
		existing.Completed = ev.Completed
		existing.MinutesSpent += ev.MinutesSpent
		existing.CompletedAt = ev.CompletedAt
		copied := *existing
		return &copied, nil
	}
	stored := *ev
	stored.ID = int64(len(f.byDay) + 1)
	stored.Count = 1
	f.byDay[ev.Day] = &stored
	copied := stored
	return &copied, nil
}

func (f *fakeCompletionsRepo) Delete(ctx context.Context, habitID uuid.UUID, day time.Time) error {
	if _, ok := f.byDay[day]; !ok {
		return errorvalues.ErrCompletionNotFound
	}
	delete(f.byDay, day)
	return nil
}

func (f *fakeCompletionsRepo) GetByHabit(ctx context.Context, habitID uuid.UUID) ([]entity.CompletionEvent, error) {
	result := make([]entity.CompletionEvent, 0, len(f.byDay))
	for _, ev := range f.byDay {
		result = append(result, *ev)
	}
	return result, nil
}

func (f *fakeCompletionsRepo) GetByHabitAndDateRange(ctx context.Context, habitID uuid.UUID, from, to time.Time) ([]entity.CompletionEvent, error) {
	f.rangeUsed = true
	f.lastFrom, f.lastTo = from, to
	result := make([]entity.CompletionEvent, 0, len(f.byDay))
	for day, ev := range f.byDay {
		if !day.Before(from) && !day.After(to) {
			result = append(result, *ev)
		}
	}
	return result, nil
}

type fakeXPUsers struct {
	repository.UsersRepositoryI
	awarded map[uuid.UUID]int
}

func (f *fakeXPUsers) AddXP(ctx context.Context, uid uuid.UUID, amount int) (*entity.User, error) {
	if f.awarded == nil {
		f.awarded = make(map[uuid.UUID]int)
	}
	f.awarded[uid] += amount
	return &entity.User{ID: uid, XP: f.awarded[uid], Level: entity.LevelForXP(f.awarded[uid])}, nil
}

func recorderFixture(t *testing.T) (*service.CompletionService, *fakeCompletionHabits, *fakeCompletionsRepo, *fakeXPUsers, *entity.Habit) {
	t.Helper()
	owner := uuid.New()
	habit := &entity.Habit{
		ID:            uuid.New(),
		UserID:        owner,
		Collaborators: []uuid.UUID{uuid.New()},
		Title:         "meditate",
		Active:        true,
	}
	habitsRepo := &fakeCompletionHabits{habit: habit}
	completionsRepo := newFakeCompletionsRepo()
	usersRepo := &fakeXPUsers{}
	serv := service.NewCompletionService(habitsRepo, completionsRepo, usersRepo).
		WithClock(func() time.Time { return recordNow })
	return serv, habitsRepo, completionsRepo, usersRepo, habit
}

func TestRecordCompletion(t *testing.T) {
	serv, habitsRepo, _, usersRepo, habit := recorderFixture(t)
	ctx := context.Background()

	event, err := serv.Record(ctx, habit.ID, habit.UserID, recordNow, &service.CompletionOpts{MinutesSpent: 20})
	require.NoError(t, err)
	assert.True(t, event.Completed)
	assert.Equal(t, 1, event.Count)
	assert.Equal(t, entity.DayOf(recordNow), event.Day)

	// Stats recomputed synchronously from the log.
	require.NotNil(t, habitsRepo.lastStats)
	assert.Equal(t, 1, habitsRepo.lastStats.TotalCompletions)
	assert.Equal(t, 1, habitsRepo.lastStats.CurrentStreak)
	assert.Equal(t, 1, habitsRepo.lastStats.BestStreak)
	assert.Equal(t, 100.0, habitsRepo.lastStats.SuccessRate)
	assert.Equal(t, 20, habitsRepo.lastStats.TotalMinutes)

	// Flat XP award per recording action.
	assert.Equal(t, 10, usersRepo.awarded[habit.UserID])
}

func TestRecordSameDayTwiceKeepsOneEvent(t *testing.T) {
	serv, habitsRepo, completionsRepo, _, habit := recorderFixture(t)
	ctx := context.Background()

	_, err := serv.Record(ctx, habit.ID, habit.UserID, recordNow, &service.CompletionOpts{MinutesSpent: 10})
	require.NoError(t, err)
	event, err := serv.Record(ctx, habit.ID, habit.UserID, recordNow, &service.CompletionOpts{MinutesSpent: 15})
	require.NoError(t, err)

	assert.Equal(t, 2, event.Count)
	assert.Len(t, completionsRepo.byDay, 1)
	// Streak stays at one: two completions, one calendar day.
	assert.Equal(t, 1, habitsRepo.lastStats.CurrentStreak)
	assert.Equal(t, 25, habitsRepo.lastStats.TotalMinutes)
}

func TestRecordStreakAcrossDays(t *testing.T) {
	serv, habitsRepo, _, _, habit := recorderFixture(t)
	ctx := context.Background()

	for daysAgo := 3; daysAgo >= 1; daysAgo-- {
		_, err := serv.Record(ctx, habit.ID, habit.UserID, recordNow.AddDate(0, 0, -daysAgo), nil)
		require.NoError(t, err)
	}
	// Today not yet completed: the run ending yesterday is still current.
	assert.Equal(t, 3, habitsRepo.lastStats.CurrentStreak)
	assert.GreaterOrEqual(t, habitsRepo.lastStats.BestStreak, 3)
}

func TestRecordRejectsFutureDay(t *testing.T) {
	serv, _, _, _, habit := recorderFixture(t)
	_, err := serv.Record(context.Background(), habit.ID, habit.UserID, recordNow.AddDate(0, 0, 2), nil)
	assert.ErrorIs(t, err, errorvalues.ErrCompletionInFuture)
}

func TestRecordOwnership(t *testing.T) {
	serv, _, _, _, habit := recorderFixture(t)
	ctx := context.Background()

	_, err := serv.Record(ctx, habit.ID, uuid.New(), recordNow, nil)
	assert.ErrorIs(t, err, errorvalues.ErrWrongOwner)

	// Collaborators may record; the habit owner keeps the stats.
	_, err = serv.Record(ctx, habit.ID, habit.Collaborators[0], recordNow, nil)
	assert.NoError(t, err)

	_, err = serv.Record(ctx, uuid.New(), habit.UserID, recordNow, nil)
	assert.ErrorIs(t, err, errorvalues.ErrHabitNotFound)
}

func TestRecordValidatesOpts(t *testing.T) {
	serv, _, _, _, habit := recorderFixture(t)
	bad := 9
	_, err := serv.Record(context.Background(), habit.ID, habit.UserID, recordNow, &service.CompletionOpts{Mood: &bad})
	assert.Error(t, err)
}

func TestUncheckOnlyToday(t *testing.T) {
	serv, _, completionsRepo, _, habit := recorderFixture(t)
	ctx := context.Background()

	_, err := serv.Record(ctx, habit.ID, habit.UserID, recordNow.AddDate(0, 0, -1), nil)
	require.NoError(t, err)
	_, err = serv.Record(ctx, habit.ID, habit.UserID, recordNow, nil)
	require.NoError(t, err)

	// Elapsed days are immutable.
	err = serv.Uncheck(ctx, habit.ID, habit.UserID, recordNow.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, errorvalues.ErrCompletionNotFound)
	assert.Len(t, completionsRepo.byDay, 2)

	require.NoError(t, serv.Uncheck(ctx, habit.ID, habit.UserID, recordNow))
	assert.Len(t, completionsRepo.byDay, 1)
}

func TestAnalyticsUsesBoundedWindow(t *testing.T) {
	serv, _, completionsRepo, _, habit := recorderFixture(t)
	ctx := context.Background()

	_, err := serv.Record(ctx, habit.ID, habit.UserID, recordNow, nil)
	require.NoError(t, err)

	report, err := serv.Analytics(ctx, habit.ID, habit.UserID, 30)
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.True(t, completionsRepo.rangeUsed)
	assert.Equal(t, entity.DayOf(recordNow), completionsRepo.lastTo)
	assert.Equal(t, entity.DayOf(recordNow).AddDate(0, 0, -29), completionsRepo.lastFrom)
}

func TestStatsFromEmptyLog(t *testing.T) {
	serv, _, _, _, habit := recorderFixture(t)
	stats, err := serv.Stats(context.Background(), habit.ID, habit.UserID)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalCompletions)
	assert.Zero(t, stats.CurrentStreak)
	assert.Zero(t, stats.SuccessRate)
}
