package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"go-books-api/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userRowColumns = []string{"id", "email", "username", "password_hash", "role", "is_active", "is_verified", "created_at"}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestUserRepository_CreateUser(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta(`INSERT INTO users (email, username, password_hash, role, is_active, is_verified) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`)

	t.Run("success", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db)
		createdAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

		mock.ExpectQuery(query).
			WithArgs("a@x.com", "a", "hash", "USER", true, false).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(42, createdAt))

		user := &model.User{Email: "a@x.com", Username: "a", PasswordHash: "hash", Role: model.RoleUser, IsActive: true}
		err := repo.CreateUser(ctx, user)

		require.NoError(t, err)
		assert.Equal(t, 42, user.ID)
		assert.Equal(t, createdAt, user.CreatedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db)

		mock.ExpectQuery(query).WillReturnError(&pq.Error{Code: "23505"})

		err := repo.CreateUser(ctx, &model.User{Email: "a@x.com", Username: "a", Role: model.RoleUser})

		assert.ErrorIs(t, err, ErrDuplicateUser)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_GetUserByEmail(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta(`SELECT id, email, username, password_hash, role, is_active, is_verified, created_at FROM users WHERE email = $1`)

	t.Run("found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db)
		createdAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

		mock.ExpectQuery(query).WithArgs("a@x.com").
			WillReturnRows(sqlmock.NewRows(userRowColumns).AddRow(1, "a@x.com", "a", "hash", "ADMIN", true, true, createdAt))

		user, err := repo.GetUserByEmail(ctx, "a@x.com")

		require.NoError(t, err)
		assert.Equal(t, &model.User{
			ID: 1, Email: "a@x.com", Username: "a", PasswordHash: "hash",
			Role: model.RoleAdmin, IsActive: true, IsVerified: true, CreatedAt: createdAt,
		}, user)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db)

		mock.ExpectQuery(query).WithArgs("nobody@x.com").WillReturnRows(sqlmock.NewRows(userRowColumns))

		user, err := repo.GetUserByEmail(ctx, "nobody@x.com")

		assert.Nil(t, user)
		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUserRepository_GetAllUsers(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	createdAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users ORDER BY id`)).
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(1, "a@x.com", "a", "h1", "USER", true, false, createdAt).
			AddRow(2, "b@x.com", "b", "h2", "ADMIN", true, true, createdAt))

	users, err := repo.GetAllUsers(context.Background())

	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, model.RoleUser, users[0].Role)
	assert.Equal(t, "b@x.com", users[1].Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("builds a sorted statement from allowed fields", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db)

		mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET is_verified = $1, role = $2 WHERE id = $3`)).
			WithArgs(true, "ADMIN", 7).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateUser(ctx, 7, model.UserFields{"role": model.RoleAdmin, "is_verified": true})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing user", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db)

		mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET password_hash = $1 WHERE id = $2`)).
			WithArgs("newhash", 99).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateUser(ctx, 99, model.UserFields{"password_hash": "newhash"})

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("field outside the allow-list never reaches the database", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewUserRepository(db)

		err := repo.UpdateUser(ctx, 1, model.UserFields{"email": "evil@x.com"})

		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
