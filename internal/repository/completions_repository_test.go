package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	errorvalues "github.com/limbo/routinely/internal/error_values"
	"github.com/limbo/routinely/internal/repository"
	"github.com/limbo/routinely/pkg/entity"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upsertQuery = regexp.QuoteMeta(`INSERT INTO completions
		(habit_id, user_id, day, completed, count, mood, productivity, minutes_spent, note, completed_at)
		VALUES ($1, $2, $3, $4, 1, $5, $6, $7, $8, $9)
		ON CONFLICT (habit_id, user_id, day) DO UPDATE SET
			completed = EXCLUDED.completed,
			count = completions.count + 1,
			mood = COALESCE(EXCLUDED.mood, completions.mood),
			productivity = COALESCE(EXCLUDED.productivity, completions.productivity),
			minutes_spent = completions.minutes_spent + EXCLUDED.minutes_spent,
			note = EXCLUDED.note,
			completed_at = EXCLUDED.completed_at
		RETURNING id, count, minutes_spent, created_at;`)

func TestUpsertCompletion(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	completionsRepo := repository.NewCompletionsRepoWithConn(mock)
	now := time.Now()
	ev := &entity.CompletionEvent{
		HabitID:      uuid.New(),
		UserID:       uuid.New(),
		Day:          entity.DayOf(now),
		Completed:    true,
		MinutesSpent: 25,
		Note:         "went well",
		CompletedAt:  now,
	}
	args := []any{ev.HabitID, ev.UserID, ev.Day, ev.Completed, ev.Mood, ev.Productivity, ev.MinutesSpent, ev.Note, ev.CompletedAt}
	testCases := []struct {
		Desc          string
		Error         error
		ExpectedCount int
		MockPrepFunc  func()
	}{
		{
			Desc:          "first completion of the day",
			ExpectedCount: 1,
			MockPrepFunc: func() {
				mock.ExpectQuery(upsertQuery).WithArgs(args...).
					WillReturnRows(pgxmock.NewRows([]string{"id", "count", "minutes_spent", "created_at"}).
						AddRow(int64(1), 1, 25, now))
			},
		},
		{
			Desc:          "repeat completion bumps count",
			ExpectedCount: 2,
			MockPrepFunc: func() {
				mock.ExpectQuery(upsertQuery).WithArgs(args...).
					WillReturnRows(pgxmock.NewRows([]string{"id", "count", "minutes_spent", "created_at"}).
						AddRow(int64(1), 2, 50, now))
			},
		},
		{
			Desc:  "fk violation",
			Error: errorvalues.ErrHabitNotFound,
			MockPrepFunc: func() {
				mock.ExpectQuery(upsertQuery).WithArgs(args...).
					WillReturnError(&pgconn.PgError{Code: "23503"})
			},
		},
		{
			Desc:  "db error",
			Error: errors.New("upserting completion error: db error"),
			MockPrepFunc: func() {
				mock.ExpectQuery(upsertQuery).WithArgs(args...).
					WillReturnError(errors.New("db error"))
			},
		},
	}
	ctx := context.Background()
	for _, tc := range testCases {
		t.Run(tc.Desc, func(t *testing.T) {
			tc.MockPrepFunc()
			result, err := completionsRepo.Upsert(ctx, ev)
			if tc.Error != nil {
				assert.EqualError(t, err, tc.Error.Error())
			} else {
				assert.NoError(t, err)
				require.NotNil(t, result)
				assert.Equal(t, tc.ExpectedCount, result.Count)
			}
		})
	}
}

func TestDeleteCompletion(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	completionsRepo := repository.NewCompletionsRepoWithConn(mock)
	query := regexp.QuoteMeta(`DELETE FROM completions WHERE habit_id = $1 AND day = $2;`)
	habitID := uuid.New()
	day := entity.DayOf(time.Now())
	testCases := []struct {
		Desc         string
		Error        error
		MockPrepFunc func()
	}{
		{
			Desc: "successful",
			MockPrepFunc: func() {
				mock.ExpectExec(query).WithArgs(habitID, day).WillReturnResult(pgxmock.NewResult("DELETE", 1))
			},
		},
		{
			Desc:  "completion not found",
			Error: errorvalues.ErrCompletionNotFound,
			MockPrepFunc: func() {
				mock.ExpectExec(query).WithArgs(habitID, day).WillReturnResult(pgxmock.NewResult("DELETE", 0))
			},
		},
		{
			Desc:  "db error",
			Error: errors.New("deleting completion error: db error"),
			MockPrepFunc: func() {
				mock.ExpectExec(query).WithArgs(habitID, day).WillReturnError(errors.New("db error"))
			},
		},
	}
	ctx := context.Background()
	for _, tc := range testCases {
		t.Run(tc.Desc, func(t *testing.T) {
			tc.MockPrepFunc()
			err := completionsRepo.Delete(ctx, habitID, day)
			if tc.Error != nil {
				assert.EqualError(t, err, tc.Error.Error())
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGetCompletionsByHabit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	completionsRepo := repository.NewCompletionsRepoWithConn(mock)
	query := regexp.QuoteMeta(`SELECT id, habit_id, user_id, day, completed, count, mood, productivity, minutes_spent, note, completed_at, created_at
		FROM completions WHERE habit_id = $1 ORDER BY day;`)
	habitID := uuid.New()
	userID := uuid.New()
	now := time.Now()
	returned := []entity.CompletionEvent{
		{ID: 1, HabitID: habitID, UserID: userID, Day: entity.DayOf(now.AddDate(0, 0, -1)), Completed: true, Count: 1, MinutesSpent: 10, CompletedAt: now.AddDate(0, 0, -1), CreatedAt: now.AddDate(0, 0, -1)},
		{ID: 2, HabitID: habitID, UserID: userID, Day: entity.DayOf(now), Completed: true, Count: 2, MinutesSpent: 20, CompletedAt: now, CreatedAt: now},
	}
	testCases := []struct {
		Desc         string
		Error        error
		Result       []entity.CompletionEvent
		MockPrepFunc func()
	}{
		{
			Desc:   "success",
			Result: returned,
			MockPrepFunc: func() {
				rows := pgxmock.NewRows([]string{"id", "habit_id", "user_id", "day", "completed", "count", "mood", "productivity", "minutes_spent", "note", "completed_at", "created_at"})
				for _, ev := range returned {
					rows.AddRow(ev.ID, ev.HabitID, ev.UserID, ev.Day, ev.Completed, ev.Count, ev.Mood, ev.Productivity, ev.MinutesSpent, ev.Note, ev.CompletedAt, ev.CreatedAt)
				}
				mock.ExpectQuery(query).WithArgs(habitID).WillReturnRows(rows)
			},
		},
		{
			Desc:  "db error",
			Error: errors.New("getting completion log error: db error"),
			MockPrepFunc: func() {
				mock.ExpectQuery(query).WithArgs(habitID).WillReturnError(errors.New("db error"))
			},
		},
	}
	ctx := context.Background()
	for _, tc := range testCases {
		t.Run(tc.Desc, func(t *testing.T) {
			tc.MockPrepFunc()
			result, err := completionsRepo.GetByHabit(ctx, habitID)
			if tc.Error != nil {
				assert.EqualError(t, err, tc.Error.Error())
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.Result, result)
			}
		})
	}
}
