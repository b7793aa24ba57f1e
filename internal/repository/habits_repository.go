package repository

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	errorvalues "github.com/limbo/routinely/internal/error_values"
	"github.com/limbo/routinely/pkg/cleanup"
	"github.com/limbo/routinely/pkg/entity"
)

const habitColumns = `id, user_id, collaborators, title, description, category, active,
	reminder_enabled, reminder_windows, reminder_weekdays, times_per_week,
	total_completions, current_streak, best_streak, success_rate, total_minutes,
	created_at, updated_at`

type HabitsRepository struct {
	conn PgConnection
}

func NewHabitsRepo(cfg DBConfig) *HabitsRepository {
	pool, err := pgxpool.New(context.Background(), cfg.ConnString())
	if err != nil {
		log.Fatal("creating connection for habitsRepo error: " + err.Error())
	}
	err = pool.Ping(context.Background())
	if err != nil {
		log.Fatal("error while pinging connection for habitsRepo: " + err.Error())
	}
	cleanup.Register(&cleanup.Job{
		Name: "closing habitsRepo pgxpool",
		F: func() error {
			pool.Close()
			return nil
		},
	})
	return &HabitsRepository{
		conn: pool,
	}
}

func NewHabitsRepoWithConn(conn PgConnection) *HabitsRepository {
	err := conn.Ping(context.Background())
	if err != nil {
		log.Fatal("error while pinging connection for habitsRepo: " + err.Error())
	}
	return &HabitsRepository{
		conn: conn,
	}
}

func (hr *HabitsRepository) Create(ctx context.Context, habit *entity.Habit) (uuid.UUID, error) {
	var id uuid.UUID
	row := hr.conn.QueryRow(ctx, `INSERT INTO habits
		(user_id, collaborators, title, description, category, active, reminder_enabled, reminder_windows, reminder_weekdays, times_per_week)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10) RETURNING id;`,
		habit.UserID,
		habit.Collaborators,
		habit.Title,
		habit.Description,
		habit.Category,
		habit.Active,
		habit.Reminder.Enabled,
		habit.Reminder.Windows,
		habit.Reminder.Weekdays,
		habit.Reminder.TimesPerWeek,
	)
	if err := row.Scan(&id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			// Unique violation
			case "23505":
				return uuid.UUID{}, errorvalues.ErrUserHasHabit
			// FK violation
			case "23503":
				return uuid.UUID{}, errorvalues.ErrUserNotFound
			}
		}
		return uuid.UUID{}, errors.New("creating habit db error: " + err.Error())
	}
	return id, nil
}

func (hr *HabitsRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Habit, error) {
	row := hr.conn.QueryRow(ctx, `SELECT `+habitColumns+` FROM habits WHERE id = $1;`, id)
	habit, err := scanHabit(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorvalues.ErrHabitNotFound
		}
		return nil, errors.New("getting habit by id error: " + err.Error())
	}
	return habit, nil
}

func (hr *HabitsRepository) GetByUserID(ctx context.Context, uid uuid.UUID, limit, offset int) ([]*entity.Habit, error) {
	rows, err := hr.conn.Query(ctx, `SELECT `+habitColumns+`
		FROM habits WHERE user_id = $1 ORDER BY created_at LIMIT $2 OFFSET $3;`, uid, limit, offset)
	if err != nil {
		return nil, errors.New("getting habits by uid error: " + err.Error())
	}
	return collectHabits(rows)
}

func (hr *HabitsRepository) ListDueCandidates(ctx context.Context) ([]*entity.Habit, error) {
	rows, err := hr.conn.Query(ctx, `SELECT `+habitColumns+`
		FROM habits WHERE active = TRUE AND reminder_enabled = TRUE;`)
	if err != nil {
		return nil, errors.New("getting due candidates error: " + err.Error())
	}
	return collectHabits(rows)
}

func (hr *HabitsRepository) Update(ctx context.Context, habit *entity.Habit) error {
	ct, err := hr.conn.Exec(ctx, `UPDATE habits SET title = $1, description = $2, category = $3, active = $4,
		reminder_enabled = $5, reminder_windows = $6, reminder_weekdays = $7, times_per_week = $8, updated_at = NOW()
		WHERE id = $9;`,
		habit.Title, habit.Description, habit.Category, habit.Active,
		habit.Reminder.Enabled, habit.Reminder.Windows, habit.Reminder.Weekdays, habit.Reminder.TimesPerWeek,
		habit.ID,
	)
	if err != nil {
		return errors.New("error updating habit: " + err.Error())
	}
	if ct.RowsAffected() == 0 {
		return errorvalues.ErrHabitNotFound
	}
	return nil
}

func (hr *HabitsRepository) UpdateStats(ctx context.Context, id uuid.UUID, stats entity.HabitStats) error {
	ct, err := hr.conn.Exec(ctx, `UPDATE habits SET total_completions = $1, current_streak = $2, best_streak = $3,
		success_rate = $4, total_minutes = $5, updated_at = NOW() WHERE id = $6;`,
		stats.TotalCompletions, stats.CurrentStreak, stats.BestStreak, stats.SuccessRate, stats.TotalMinutes, id,
	)
	if err != nil {
		return errors.New("error updating habit stats: " + err.Error())
	}
	if ct.RowsAffected() == 0 {
		return errorvalues.ErrHabitNotFound
	}
	return nil
}

func (hr *HabitsRepository) DisableReminder(ctx context.Context, id uuid.UUID) error {
	ct, err := hr.conn.Exec(ctx, `UPDATE habits SET reminder_enabled = FALSE, updated_at = NOW() WHERE id = $1;`, id)
	if err != nil {
		return errors.New("error disabling reminder: " + err.Error())
	}
	if ct.RowsAffected() == 0 {
		return errorvalues.ErrHabitNotFound
	}
	return nil
}

func (hr *HabitsRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ct, err := hr.conn.Exec(ctx, `DELETE FROM habits WHERE id = $1;`, id)
	if err != nil {
		return errors.New("error deleting habit: " + err.Error())
	}
	if ct.RowsAffected() == 0 {
		return errorvalues.ErrHabitNotFound
	}
	return nil
}

func scanHabit(row pgx.Row) (*entity.Habit, error) {
	var h entity.Habit
	err := row.Scan(
		&h.ID, &h.UserID, &h.Collaborators, &h.Title, &h.Description, &h.Category, &h.Active,
		&h.Reminder.Enabled, &h.Reminder.Windows, &h.Reminder.Weekdays, &h.Reminder.TimesPerWeek,
		&h.Stats.TotalCompletions, &h.Stats.CurrentStreak, &h.Stats.BestStreak, &h.Stats.SuccessRate, &h.Stats.TotalMinutes,
		&h.CreatedAt, &h.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func collectHabits(rows pgx.Rows) ([]*entity.Habit, error) {
	defer rows.Close()
	habits := make([]*entity.Habit, 0)
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, errors.New("unmarshalling habit error: " + err.Error())
		}
		habits = append(habits, h)
	}
	if rows.Err() != nil {
		return nil, errors.New("unexpected error after scanning habits: " + rows.Err().Error())
	}
	return habits, nil
}
