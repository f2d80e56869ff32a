package repository

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"go-books-api/logger"
	"go-books-api/model"
	"time"

	"github.com/sirupsen/logrus"
)

// IBlacklistRepository defines the contract for revoked token storage.
type IBlacklistRepository interface {
	Insert(ctx context.Context, entry *model.BlacklistedToken) (bool, error)
	Exists(ctx context.Context, token string) (bool, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// BlacklistRepository implements IBlacklistRepository on PostgreSQL. Tokens
// are stored as SHA-256 digests; the raw bearer string never hits the table.
type BlacklistRepository struct {
	DB *sql.DB
}

func NewBlacklistRepository(db *sql.DB) *BlacklistRepository {
	return &BlacklistRepository{DB: db}
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Insert records entry.Token as revoked and fills in ID and BlacklistedAt. It
// reports false, without error, if the token was already blacklisted; callers
// that need a token to be used once rely on exactly one insert winning.
func (r *BlacklistRepository) Insert(ctx context.Context, entry *model.BlacklistedToken) (bool, error) {
	log := logger.Log.WithField("expires_at", entry.ExpiresAt)
	log.Info("Executing query to blacklist a token")

	query := `INSERT INTO blacklisted_tokens (token_hash, expires_at) VALUES ($1, $2) ON CONFLICT (token_hash) DO NOTHING RETURNING id, blacklisted_at`
	err := r.DB.QueryRowContext(ctx, query, hashToken(entry.Token), entry.ExpiresAt).Scan(&entry.ID, &entry.BlacklistedAt)
	if errors.Is(err, sql.ErrNoRows) {
		log.Debug("Token was already blacklisted")
		return false, nil
	}
	if err != nil {
		log.WithError(err).Error("Failed to execute blacklist token query")
		return false, err
	}
	return true, nil
}

func (r *BlacklistRepository) Exists(ctx context.Context, token string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM blacklisted_tokens WHERE token_hash = $1)`
	if err := r.DB.QueryRowContext(ctx, query, hashToken(token)).Scan(&exists); err != nil {
		logger.Log.WithError(err).Error("Failed to execute blacklist lookup query")
		return false, err
	}
	return exists, nil
}

// PurgeExpired deletes entries whose underlying token has expired.
func (r *BlacklistRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	log := logger.Log.WithField("now", now)

	res, err := r.DB.ExecContext(ctx, `DELETE FROM blacklisted_tokens WHERE expires_at < $1`, now)
	if err != nil {
		log.WithError(err).Error("Failed to execute purge blacklist query")
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	log.WithFields(logrus.Fields{"purged": n}).Info("Purged expired blacklist entries")
	return n, nil
}
