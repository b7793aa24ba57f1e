package repository

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	errorvalues "github.com/limbo/routinely/internal/error_values"
	"github.com/limbo/routinely/pkg/cleanup"
	"github.com/limbo/routinely/pkg/entity"
)

type CompletionsRepository struct {
	conn PgConnection
}

func NewCompletionsRepo(cfg DBConfig) *CompletionsRepository {
	pool, err := pgxpool.New(context.Background(), cfg.ConnString())
	if err != nil {
		log.Fatal("creating connection for completionsRepo error: " + err.Error())
	}
	err = pool.Ping(context.Background())
	if err != nil {
		log.Fatal("error while pinging connection for completionsRepo: " + err.Error())
	}
	cleanup.Register(&cleanup.Job{
		Name: "closing completionsRepo pgxpool",
		F: func() error {
			pool.Close()
			return nil
		},
	})
	return &CompletionsRepository{
		conn: pool,
	}
}

func NewCompletionsRepoWithConn(conn PgConnection) *CompletionsRepository {
	err := conn.Ping(context.Background())
	if err != nil {
		log.Fatal("error while pinging connection for completionsRepo: " + err.Error())
	}
	return &CompletionsRepository{
		conn: conn,
	}
}

// Upsert keeps the one-row-per-day invariant in the database itself:
// a conflict on (habit_id, user_id, day) bumps the occurrence count and
// overwrites the optional fields with the latest values.
func (cr *CompletionsRepository) Upsert(ctx context.Context, ev *entity.CompletionEvent) (*entity.CompletionEvent, error) {
	if ev == nil {
		return nil, errors.New("completion event is nil")
	}
	out := *ev
	row := cr.conn.QueryRow(ctx, `INSERT INTO completions
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
		RETURNING id, count, minutes_spent, created_at;`,
		ev.HabitID,
		ev.UserID,
		ev.Day,
		ev.Completed,
		ev.Mood,
		ev.Productivity,
		ev.MinutesSpent,
		ev.Note,
		ev.CompletedAt,
	)
	if err := row.Scan(&out.ID, &out.Count, &out.MinutesSpent, &out.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			// FK violation
			case "23503":
				return nil, errorvalues.ErrHabitNotFound
			}
		}
		return nil, errors.New("upserting completion error: " + err.Error())
	}
	return &out, nil
}

func (cr *CompletionsRepository) Delete(ctx context.Context, habitID uuid.UUID, day time.Time) error {
	ct, err := cr.conn.Exec(ctx, `DELETE FROM completions WHERE habit_id = $1 AND day = $2;`, habitID, day)
	if err != nil {
		return errors.New("deleting completion error: " + err.Error())
	}
	if ct.RowsAffected() == 0 {
		return errorvalues.ErrCompletionNotFound
	}
	return nil
}

const completionColumns = `id, habit_id, user_id, day, completed, count, mood, productivity, minutes_spent, note, completed_at, created_at`

func (cr *CompletionsRepository) GetByHabitAndDateRange(ctx context.Context, habitID uuid.UUID, from, to time.Time) ([]entity.CompletionEvent, error) {
	rows, err := cr.conn.Query(ctx, `SELECT `+completionColumns+`
		FROM completions WHERE habit_id = $1 AND day >= $2 AND day <= $3 ORDER BY day;`,
		habitID,
		from,
		to,
	)
	if err != nil {
		return nil, errors.New("getting completions for period error: " + err.Error())
	}
	return collectCompletions(rows)
}

func (cr *CompletionsRepository) GetByHabit(ctx context.Context, habitID uuid.UUID) ([]entity.CompletionEvent, error) {
	rows, err := cr.conn.Query(ctx, `SELECT `+completionColumns+`
		FROM completions WHERE habit_id = $1 ORDER BY day;`, habitID)
	if err != nil {
		return nil, errors.New("getting completion log error: " + err.Error())
	}
	return collectCompletions(rows)
}

func collectCompletions(rows pgx.Rows) ([]entity.CompletionEvent, error) {
	defer rows.Close()
	result := make([]entity.CompletionEvent, 0, 8)
	for rows.Next() {
		ev := entity.CompletionEvent{}
		err := rows.Scan(&ev.ID, &ev.HabitID, &ev.UserID, &ev.Day, &ev.Completed, &ev.Count,
			&ev.Mood, &ev.Productivity, &ev.MinutesSpent, &ev.Note, &ev.CompletedAt, &ev.CreatedAt)
		if err != nil {
			return nil, errors.New("completion row parsing error: " + err.Error())
		}
		result = append(result, ev)
	}
	if rows.Err() != nil {
		return nil, errors.New("unexpected completion rows error: " + rows.Err().Error())
	}
	return result, nil
}
