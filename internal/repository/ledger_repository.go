package repository

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	errorvalues "github.com/limbo/routinely/internal/error_values"
	"github.com/limbo/routinely/pkg/cleanup"
	"github.com/limbo/routinely/pkg/entity"
)

// The reminder ledger carries a UNIQUE (habit_id, sent_on) constraint.
// That constraint, not the Exists pre-check, is what makes dedup hold
// under overlapping ticks.

type LedgerRepository struct {
	conn PgConnection
}

func NewLedgerRepo(cfg DBConfig) *LedgerRepository {
	pool, err := pgxpool.New(context.Background(), cfg.ConnString())
	if err != nil {
		log.Fatal("creating connection for ledgerRepo error: " + err.Error())
	}
	err = pool.Ping(context.Background())
	if err != nil {
		log.Fatal("error while pinging connection for ledgerRepo: " + err.Error())
	}
	cleanup.Register(&cleanup.Job{
		Name: "closing ledgerRepo pgxpool",
		F: func() error {
			pool.Close()
			return nil
		},
	})
	return &LedgerRepository{
		conn: pool,
	}
}

func NewLedgerRepoWithConn(conn PgConnection) *LedgerRepository {
	err := conn.Ping(context.Background())
	if err != nil {
		log.Fatal("error while pinging connection for ledgerRepo: " + err.Error())
	}
	return &LedgerRepository{
		conn: conn,
	}
}

func (lr *LedgerRepository) Exists(ctx context.Context, habitID uuid.UUID, day time.Time) (bool, error) {
	var exists bool
	row := lr.conn.QueryRow(
		ctx,
		`SELECT EXISTS(SELECT 1 FROM reminder_ledger WHERE habit_id = $1 AND sent_on = $2);`,
		habitID,
		day,
	)
	err := row.Scan(&exists)
	if err != nil {
		return false, errors.New("inspecting ledger error: " + err.Error())
	}
	return exists, nil
}

func (lr *LedgerRepository) Create(ctx context.Context, entry *entity.LedgerEntry) error {
	if entry == nil {
		return errors.New("ledger entry is nil")
	}
	_, err := lr.conn.Exec(
		ctx,
		`INSERT INTO reminder_ledger (habit_id, user_id, sent_on, channel) VALUES ($1, $2, $3, $4);`,
		entry.HabitID,
		entry.UserID,
		entry.SentOn,
		entry.Channel,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			// Unique violation
			case "23505":
				return errorvalues.ErrReminderAlreadySent
			// FK violation
			case "23503":
				return errorvalues.ErrHabitNotFound
			}
		}
		return errors.New("creating ledger entry error: " + err.Error())
	}
	return nil
}

func (lr *LedgerRepository) CountOn(ctx context.Context, day time.Time) (int, error) {
	row := lr.conn.QueryRow(ctx, `SELECT COUNT(*) FROM reminder_ledger WHERE sent_on = $1;`, day)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, errors.New("error counting ledger entries: " + err.Error())
	}
	return count, nil
}

func (lr *LedgerRepository) ListRecent(ctx context.Context, limit int) ([]entity.LedgerEntry, error) {
	rows, err := lr.conn.Query(
		ctx,
		`SELECT id, habit_id, user_id, sent_on, channel, created_at FROM reminder_ledger
		ORDER BY created_at DESC LIMIT $1;`,
		limit,
	)
	if err != nil {
		return nil, errors.New("listing recent ledger entries error: " + err.Error())
	}
	defer rows.Close()
	result := make([]entity.LedgerEntry, 0, limit)
	for rows.Next() {
		entry := entity.LedgerEntry{}
		err = rows.Scan(&entry.ID, &entry.HabitID, &entry.UserID, &entry.SentOn, &entry.Channel, &entry.CreatedAt)
		if err != nil {
			return nil, errors.New("ledger row parsing error: " + err.Error())
		}
		result = append(result, entry)
	}
	if rows.Err() != nil {
		return nil, errors.New("unexpected ledger rows error: " + rows.Err().Error())
	}
	return result, nil
}
