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

type UsersRepository struct {
	conn PgConnection
}

func NewUsersRepo(cfg DBConfig) *UsersRepository {
	pool, err := pgxpool.New(context.Background(), cfg.ConnString())
	if err != nil {
		log.Fatal("creating connection for usersRepo error: " + err.Error())
	}
	err = pool.Ping(context.Background())
	if err != nil {
		log.Fatal("error while pinging connection for usersRepo: " + err.Error())
	}
	cleanup.Register(&cleanup.Job{
		Name: "closing usersRepo pgxpool",
		F: func() error {
			pool.Close()
			return nil
		},
	})
	return &UsersRepository{
		conn: pool,
	}
}

func NewUsersRepoWithConn(conn PgConnection) *UsersRepository {
	err := conn.Ping(context.Background())
	if err != nil {
		log.Fatal("error while pinging connection for usersRepo: " + err.Error())
	}
	return &UsersRepository{
		conn: conn,
	}
}

func (ur *UsersRepository) Create(ctx context.Context, user *entity.User) error {
	if user == nil {
		return errors.New("user is nil")
	}
	_, err := ur.conn.Exec(ctx, `INSERT INTO users (name, email, password_hash) VALUES ($1, $2, $3);`,
		user.Name,
		user.Email,
		user.PasswordHash,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			// Unique violation
			case "23505":
				return errorvalues.ErrUserExists
			}
		}
		return errors.New("creating user db error: " + err.Error())
	}
	return nil
}

func (ur *UsersRepository) FindByName(ctx context.Context, name string) (*entity.User, error) {
	var user entity.User
	row := ur.conn.QueryRow(ctx, `SELECT id, name, email, password_hash, xp, level FROM users WHERE name = $1;`, name)
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.XP, &user.Level); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorvalues.ErrUserNotFound
		}
		return nil, errors.New("searching user by name error: " + err.Error())
	}
	return &user, nil
}

func (ur *UsersRepository) FindByID(ctx context.Context, uid uuid.UUID) (*entity.User, error) {
	var user entity.User
	user.ID = uid
	row := ur.conn.QueryRow(ctx, `SELECT name, email, password_hash, xp, level FROM users WHERE id = $1;`, uid)
	if err := row.Scan(&user.Name, &user.Email, &user.PasswordHash, &user.XP, &user.Level); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorvalues.ErrUserNotFound
		}
		return nil, errors.New("searching user by id error: " + err.Error())
	}
	return &user, nil
}

func (ur *UsersRepository) ResolveByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entity.User, error) {
	result := make(map[uuid.UUID]*entity.User, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	rows, err := ur.conn.Query(ctx, `SELECT id, name, email, xp, level FROM users WHERE id = ANY($1);`, ids)
	if err != nil {
		return nil, errors.New("resolving users batch error: " + err.Error())
	}
	defer rows.Close()
	for rows.Next() {
		u := entity.User{}
		err = rows.Scan(&u.ID, &u.Name, &u.Email, &u.XP, &u.Level)
		if err != nil {
			return nil, errors.New("unmarshalling resolved user error: " + err.Error())
		}
		result[u.ID] = &u
	}
	if rows.Err() != nil {
		return nil, errors.New("unexpected error after scanning users: " + rows.Err().Error())
	}
	return result, nil
}

func (ur *UsersRepository) AddXP(ctx context.Context, uid uuid.UUID, amount int) (*entity.User, error) {
	var user entity.User
	user.ID = uid
	row := ur.conn.QueryRow(ctx, `UPDATE users SET xp = xp + $1, level = (xp + $1) / 1000 + 1
		WHERE id = $2 RETURNING name, email, xp, level;`, amount, uid)
	if err := row.Scan(&user.Name, &user.Email, &user.XP, &user.Level); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errorvalues.ErrUserNotFound
		}
		return nil, errors.New("adding xp error: " + err.Error())
	}
	return &user, nil
}

func (ur *UsersRepository) Delete(ctx context.Context, uid uuid.UUID) error {
	ct, err := ur.conn.Exec(ctx, `DELETE FROM users WHERE id = $1;`, uid)
	if err != nil {
		return errors.New("error deleting user: " + err.Error())
	}
	if ct.RowsAffected() == 0 {
		return errorvalues.ErrUserNotFound
	}
	return nil
}
