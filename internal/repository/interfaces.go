package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/limbo/routinely/pkg/entity"
)

type UsersRepositoryI interface {
	// Creates new user in database
	Create(ctx context.Context, user *entity.User) error
	// Looks up user by name. Can be used for login
	FindByName(ctx context.Context, name string) (*entity.User, error)
	// Looks up user by uid. Can be used for authorization middleware
	FindByID(ctx context.Context, uid uuid.UUID) (*entity.User, error)
	// Batched lookup for the dispatcher. Missing ids are simply absent
	// from the returned map, never an error
	ResolveByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entity.User, error)
	// Adds XP and recomputes level in one statement, returns the new totals
	AddXP(ctx context.Context, uid uuid.UUID, amount int) (*entity.User, error)
	// Deletes user
	Delete(ctx context.Context, uid uuid.UUID) error
}

type HabitsRepositoryI interface {
	// Creates new habit. Title, UserID and reminder config are taken from habit
	Create(ctx context.Context, habit *entity.Habit) (uuid.UUID, error)
	// Searches habit with given id
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Habit, error)
	// Lists habits owned by user with uid. Requires pagination params provided
	GetByUserID(ctx context.Context, uid uuid.UUID, limit, offset int) ([]*entity.Habit, error)
	// Lists every active habit with reminders enabled, tick input set
	ListDueCandidates(ctx context.Context) ([]*entity.Habit, error)
	// Updates habit by ID (ID in habit is necessary)
	Update(ctx context.Context, habit *entity.Habit) error
	// Overwrites the derived stats block only
	UpdateStats(ctx context.Context, id uuid.UUID, stats entity.HabitStats) error
	// Turns the reminder flag off, used for orphan self-healing
	DisableReminder(ctx context.Context, id uuid.UUID) error
	// Deletes habit with id
	Delete(ctx context.Context, id uuid.UUID) error
}

type CompletionsRepositoryI interface {
	// Inserts or updates the single row for (habit, user, day). A repeat
	// on the same day bumps count and overwrites the optional fields
	Upsert(ctx context.Context, ev *entity.CompletionEvent) (*entity.CompletionEvent, error)
	// Removes the row for (habit, day) (uncheck)
	Delete(ctx context.Context, habitID uuid.UUID, day time.Time) error
	// Provides events of habitID for a period, oldest first
	GetByHabitAndDateRange(ctx context.Context, habitID uuid.UUID, from, to time.Time) ([]entity.CompletionEvent, error)
	// Full log for habitID, oldest first. Streak recomputation input
	GetByHabit(ctx context.Context, habitID uuid.UUID) ([]entity.CompletionEvent, error)
}

type LedgerRepositoryI interface {
	// Inspects if a reminder already went out for (habit, day)
	Exists(ctx context.Context, habitID uuid.UUID, day time.Time) (bool, error)
	// Inserts the dedup marker. Duplicate key comes back as
	// errorvalues.ErrReminderAlreadySent, never as an overwrite
	Create(ctx context.Context, entry *entity.LedgerEntry) error
	// Count of markers written for one day, status endpoint input
	CountOn(ctx context.Context, day time.Time) (int, error)
	// Most recent markers, newest first
	ListRecent(ctx context.Context, limit int) ([]entity.LedgerEntry, error)
}

type DBConfig interface {
	ConnString() string
}

type PgConnection interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PGCfg struct {
	Address  string
	Username string
	Password string
	DB       string
}

func (pgcfg *PGCfg) ConnString() string {
	return fmt.Sprintf("postgresql://%s:%s@%s/%s", pgcfg.Username, pgcfg.Password, pgcfg.Address, pgcfg.DB)
}
