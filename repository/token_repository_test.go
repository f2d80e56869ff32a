package repository

import (
	"context"
	"errors"
	"go-books-api/model"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlacklistRepository_Insert(t *testing.T) {
	query := regexp.QuoteMeta(`INSERT INTO blacklisted_tokens (token_hash, expires_at) VALUES ($1, $2) ON CONFLICT (token_hash) DO NOTHING RETURNING id, blacklisted_at`)
	expiresAt := time.Date(2026, 1, 1, 12, 15, 0, 0, time.UTC)

	t.Run("new entry", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBlacklistRepository(db)
		blacklistedAt := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

		mock.ExpectQuery(query).
			WithArgs(hashToken("tok"), expiresAt).
			WillReturnRows(sqlmock.NewRows([]string{"id", "blacklisted_at"}).AddRow(5, blacklistedAt))

		entry := &model.BlacklistedToken{Token: "tok", ExpiresAt: expiresAt}
		inserted, err := repo.Insert(context.Background(), entry)
		require.NoError(t, err)
		assert.True(t, inserted)
		assert.Equal(t, 5, entry.ID)
		assert.Equal(t, blacklistedAt, entry.BlacklistedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBlacklistRepository(db)
		mock.ExpectQuery(query).WillReturnError(errors.New("connection reset"))

		inserted, err := repo.Insert(context.Background(), &model.BlacklistedToken{Token: "tok", ExpiresAt: expiresAt})

		assert.Error(t, err)
		assert.False(t, inserted)
	})

	t.Run("already blacklisted", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBlacklistRepository(db)

		mock.ExpectQuery(query).
			WithArgs(hashToken("tok"), expiresAt).
			WillReturnRows(sqlmock.NewRows([]string{"id", "blacklisted_at"}))

		entry := &model.BlacklistedToken{Token: "tok", ExpiresAt: expiresAt}
		inserted, err := repo.Insert(context.Background(), entry)
		require.NoError(t, err)
		assert.False(t, inserted)
		assert.Zero(t, entry.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBlacklistRepository_Exists(t *testing.T) {
	query := regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM blacklisted_tokens WHERE token_hash = $1)`)

	t.Run("present", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBlacklistRepository(db)
		mock.ExpectQuery(query).WithArgs(hashToken("tok")).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		exists, err := repo.Exists(context.Background(), "tok")

		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("query error", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewBlacklistRepository(db)
		mock.ExpectQuery(query).WillReturnError(errors.New("connection reset"))

		exists, err := repo.Exists(context.Background(), "tok")

		assert.Error(t, err)
		assert.False(t, exists)
	})
}

func TestBlacklistRepository_PurgeExpired(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBlacklistRepository(db)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM blacklisted_tokens WHERE expires_at < $1`)).
		WithArgs(now).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.PurgeExpired(context.Background(), now)

	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHashToken(t *testing.T) {
	assert.Len(t, hashToken("tok"), 64)
	assert.Equal(t, hashToken("tok"), hashToken("tok"))
	assert.NotEqual(t, hashToken("tok"), hashToken("tok2"))
}
