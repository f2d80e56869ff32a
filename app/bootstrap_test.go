package app_test

import (
	"context"
	"go-books-api/app"
	"go-books-api/config"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockedApp(t *testing.T) (*app.App, sqlmock.Sqlmock) {
	t.Helper()
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	cfg := &config.Config{}
	cfg.JWT = config.JWTConfig{SecretKey: "wiring-secret", Algorithm: "HS256", AccessTTLMinutes: 15, RefreshTTLDays: 7}
	cfg.Password.BcryptCost = 4

	application, err := app.New(cfg, database, nil, &captureSender{bodies: make(chan string, 1)})
	require.NoError(t, err)
	return application, mock
}

func TestApp_EnsureAdmin(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the configured admin", func(t *testing.T) {
		a, mock := newMockedApp(t)
		mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE email = $1`)).
			WithArgs("root@x.com").
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
			WithArgs("root@x.com", "root", sqlmock.AnyArg(), "ADMIN", true, true).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))

		err := a.EnsureAdmin(ctx, config.AdminConfig{Email: "root@x.com", Username: "root", Password: "root-pw"})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("disabled without an email", func(t *testing.T) {
		a, mock := newMockedApp(t)

		require.NoError(t, a.EnsureAdmin(ctx, config.AdminConfig{}))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
