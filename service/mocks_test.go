package service

import (
	"context"
	"go-books-api/config"
	"go-books-api/model"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockUserRepo struct{ mock.Mock }

func (m *mockUserRepo) CreateUser(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepo) getUser(args mock.Arguments) (*model.User, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return m.getUser(m.Called(ctx, email))
}

func (m *mockUserRepo) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return m.getUser(m.Called(ctx, username))
}

func (m *mockUserRepo) GetUserByID(ctx context.Context, id int) (*model.User, error) {
	return m.getUser(m.Called(ctx, id))
}

func (m *mockUserRepo) GetAllUsers(ctx context.Context) ([]*model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.User), args.Error(1)
}

func (m *mockUserRepo) UpdateUser(ctx context.Context, id int, fields model.UserFields) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

// memBlacklist is an in-memory IBlacklistRepository.
type memBlacklist struct {
	mu      sync.Mutex
	entries map[string]time.Time
	purges  int
}

func newMemBlacklist() *memBlacklist {
	return &memBlacklist{entries: map[string]time.Time{}}
}

func (b *memBlacklist) Insert(_ context.Context, entry *model.BlacklistedToken) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.entries[entry.Token]; ok {
		return false, nil
	}
	b.entries[entry.Token] = entry.ExpiresAt
	return true, nil
}

func (b *memBlacklist) Exists(_ context.Context, token string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.entries[token]
	return ok, nil
}

func (b *memBlacklist) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.purges++
	var n int64
	for token, exp := range b.entries {
		if exp.Before(now) {
			delete(b.entries, token)
			n++
		}
	}
	return n, nil
}

func (b *memBlacklist) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

func (b *memBlacklist) purgeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.purges
}

// memConsumed is an in-memory IConsumedTokenRepository that remembers the
// TTL each marker was given.
type memConsumed struct {
	mu   sync.Mutex
	ids  map[string]bool
	ttls map[string]time.Duration
}

func newMemConsumed() *memConsumed {
	return &memConsumed{ids: map[string]bool{}, ttls: map[string]time.Duration{}}
}

func (c *memConsumed) MarkConsumed(_ context.Context, id string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ids[id] {
		return false, nil
	}
	c.ids[id] = true
	c.ttls[id] = ttl
	return true, nil
}

func (c *memConsumed) Release(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.ids, id)
	delete(c.ttls, id)
	return nil
}

type sentMail struct {
	to      []string
	subject string
	body    string
}

// recordingMailer captures dispatched messages instead of sending them.
type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

func (r *recordingMailer) Dispatch(addresses []string, subject, htmlBody string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentMail{to: addresses, subject: subject, body: htmlBody})
}

var testJWTConfig = config.JWTConfig{
	SecretKey:           "test-secret",
	Algorithm:           "HS256",
	AccessTTLMinutes:    15,
	RefreshTTLDays:      7,
	VerifyMaxAgeMinutes: 60,
	ResetMaxAgeMinutes:  60,
}

// fixedNow is whole seconds so it survives the trip through NumericDate.
var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestTokenService(t *testing.T) (*TokenService, *memBlacklist, *memConsumed) {
	t.Helper()
	blacklist := newMemBlacklist()
	consumed := newMemConsumed()
	tokens, err := NewTokenService(testJWTConfig, blacklist, consumed)
	require.NoError(t, err)
	return tokens, blacklist, consumed
}
