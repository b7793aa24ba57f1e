package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	errorvalues "github.com/limbo/routinely/internal/error_values"
	"github.com/limbo/routinely/internal/repository"
	"github.com/limbo/routinely/pkg/entity"
	"github.com/pashagolub/pgxmock/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsersCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	usersRepo := repository.NewUsersRepoWithConn(mock)
	query := regexp.QuoteMeta(`INSERT INTO users (name, email, password_hash) VALUES ($1, $2, $3);`)
	user := &entity.User{
		Name:         "test_name",
		Email:        "test@example.com",
		PasswordHash: "hash",
	}
	testCases := []struct {
		Desc         string
		User         *entity.User
		Error        error
		MockPrepFunc func()
	}{
		{
			Desc:  "successful",
			User:  user,
			Error: nil,
			MockPrepFunc: func() {
				mock.ExpectExec(query).
					WithArgs(user.Name, user.Email, user.PasswordHash).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			Desc:  "duplicate name",
			User:  user,
			Error: errorvalues.ErrUserExists,
			MockPrepFunc: func() {
				mock.ExpectExec(query).
					WithArgs(user.Name, user.Email, user.PasswordHash).
					WillReturnError(&pgconn.PgError{Code: "23505"})
			},
		},
		{
			Desc:         "nil user",
			User:         nil,
			Error:        errors.New("user is nil"),
			MockPrepFunc: func() {},
		},
		{
			Desc:  "db error",
			User:  user,
			Error: errors.New("creating user db error: db error"),
			MockPrepFunc: func() {
				mock.ExpectExec(query).
					WithArgs(user.Name, user.Email, user.PasswordHash).
					WillReturnError(errors.New("db error"))
			},
		},
	}
	ctx := context.Background()
	for _, tc := range testCases {
		t.Run(tc.Desc, func(t *testing.T) {
			tc.MockPrepFunc()
			err := usersRepo.Create(ctx, tc.User)
			if tc.Error != nil {
				assert.EqualError(t, err, tc.Error.Error())
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestUsersFindByName(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	usersRepo := repository.NewUsersRepoWithConn(mock)
	query := regexp.QuoteMeta(`SELECT id, name, email, password_hash, xp, level FROM users WHERE name = $1;`)
	expected := &entity.User{
		ID:           uuid.New(),
		Name:         "test_name",
		Email:        "test@example.com",
		PasswordHash: "hash",
		XP:           120,
		Level:        1,
	}
	testCases := []struct {
		Desc         string
		Error        error
		MockPrepFunc func()
	}{
		{
			Desc: "successful",
			MockPrepFunc: func() {
				mock.ExpectQuery(query).
					WithArgs(expected.Name).
					WillReturnRows(pgxmock.NewRows([]string{"id", "name", "email", "password_hash", "xp", "level"}).
						AddRow(expected.ID, expected.Name, expected.Email, expected.PasswordHash, expected.XP, expected.Level))
			},
		},
		{
			Desc:  "unexist user",
			Error: errorvalues.ErrUserNotFound,
			MockPrepFunc: func() {
				mock.ExpectQuery(query).
					WithArgs(expected.Name).
					WillReturnError(pgx.ErrNoRows)
			},
		},
	}
	ctx := context.Background()
	for _, tc := range testCases {
		t.Run(tc.Desc, func(t *testing.T) {
			tc.MockPrepFunc()
			user, err := usersRepo.FindByName(ctx, expected.Name)
			if tc.Error != nil {
				assert.EqualError(t, err, tc.Error.Error())
			} else {
				assert.NoError(t, err)
				assert.Equal(t, expected, user)
			}
		})
	}
}

func TestUsersResolveByIDs(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	usersRepo := repository.NewUsersRepoWithConn(mock)
	query := regexp.QuoteMeta(`SELECT id, name, email, xp, level FROM users WHERE id = ANY($1);`)
	first := &entity.User{ID: uuid.New(), Name: "first", Email: "first@example.com", XP: 40, Level: 1}
	missing := uuid.New()
	ids := []uuid.UUID{first.ID, missing}
	t.Run("missing ids are absent, not errors", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(ids).
			WillReturnRows(pgxmock.NewRows([]string{"id", "name", "email", "xp", "level"}).
				AddRow(first.ID, first.Name, first.Email, first.XP, first.Level))
		result, err := usersRepo.ResolveByIDs(context.Background(), ids)
		require.NoError(t, err)
		assert.Len(t, result, 1)
		assert.Equal(t, first, result[first.ID])
		assert.NotContains(t, result, missing)
	})
	t.Run("empty input skips the query", func(t *testing.T) {
		result, err := usersRepo.ResolveByIDs(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, result)
	})
}

func TestUsersAddXP(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	usersRepo := repository.NewUsersRepoWithConn(mock)
	query := regexp.QuoteMeta(`UPDATE users SET xp = xp + $1, level = (xp + $1) / 1000 + 1
		WHERE id = $2 RETURNING name, email, xp, level;`)
	uid := uuid.New()
	t.Run("xp and level returned", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(10, uid).
			WillReturnRows(pgxmock.NewRows([]string{"name", "email", "xp", "level"}).
				AddRow("test_name", "test@example.com", 1010, 2))
		user, err := usersRepo.AddXP(context.Background(), uid, 10)
		require.NoError(t, err)
		assert.Equal(t, 1010, user.XP)
		assert.Equal(t, 2, user.Level)
	})
	t.Run("unexist user", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(10, uid).
			WillReturnError(pgx.ErrNoRows)
		_, err := usersRepo.AddXP(context.Background(), uid, 10)
		assert.ErrorIs(t, err, errorvalues.ErrUserNotFound)
	})
}
