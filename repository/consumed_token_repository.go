package repository

import (
	"context"
	"go-books-api/logger"
	"time"

	"github.com/redis/go-redis/v9"
)

// ICacheClient is the subset of the Redis client the repositories rely on.
// *redis.Client satisfies it; tests substitute a mock.
type ICacheClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// IConsumedTokenRepository tracks action tokens that have already been used.
type IConsumedTokenRepository interface {
	MarkConsumed(ctx context.Context, tokenID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, tokenID string) error
}

type ConsumedTokenRepository struct {
	client ICacheClient
}

func NewConsumedTokenRepository(client ICacheClient) *ConsumedTokenRepository {
	return &ConsumedTokenRepository{client: client}
}

func consumedKey(tokenID string) string {
	return "consumed_token:" + tokenID
}

// MarkConsumed records tokenID and reports whether this call was the first.
// Entries expire after ttl, by which time the token itself is too old to use.
func (r *ConsumedTokenRepository) MarkConsumed(ctx context.Context, tokenID string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, consumedKey(tokenID), time.Now().Unix(), ttl).Result()
	if err != nil {
		logger.Log.WithError(err).WithField("token_id", tokenID).Error("Failed to mark action token as consumed")
		return false, err
	}
	return ok, nil
}

// Release forgets tokenID so the token can be used again. It undoes a
// MarkConsumed whose follow-up write failed.
func (r *ConsumedTokenRepository) Release(ctx context.Context, tokenID string) error {
	if err := r.client.Del(ctx, consumedKey(tokenID)).Err(); err != nil {
		logger.Log.WithError(err).WithField("token_id", tokenID).Error("Failed to release consumed action token")
		return err
	}
	return nil
}
