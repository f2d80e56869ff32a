package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"go-books-api/config"
	"go-books-api/logger"
	"go-books-api/model"
	"go-books-api/repository"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Purposes of action tokens. Each purpose signs with its own derived key.
const (
	PurposeEmailVerification = "email-verification"
	PurposePasswordReset     = "password-reset"
)

// actionTokenSkew is how far in the future an action token's iat may be.
const actionTokenSkew = time.Minute

// ActionPayload is the verified content of an action token.
type ActionPayload struct {
	ID       string
	Data     map[string]string
	IssuedAt time.Time
}

// TokenService mints and verifies access, refresh and action tokens and keeps
// the revocation list. Secret, algorithm and lifetimes are fixed at construction.
type TokenService struct {
	cfg       config.JWTConfig
	method    jwt.SigningMethod
	key       []byte
	blacklist repository.IBlacklistRepository
	consumed  repository.IConsumedTokenRepository
	now       func() time.Time
}

func NewTokenService(cfg config.JWTConfig, blacklist repository.IBlacklistRepository, consumed repository.IConsumedTokenRepository) (*TokenService, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("token service requires a secret key")
	}
	method, ok := jwt.GetSigningMethod(cfg.Algorithm).(*jwt.SigningMethodHMAC)
	if !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q", cfg.Algorithm)
	}
	if cfg.AccessTTLMinutes <= 0 {
		cfg.AccessTTLMinutes = 15
	}
	return &TokenService{
		cfg:       cfg,
		method:    method,
		key:       []byte(cfg.SecretKey),
		blacklist: blacklist,
		consumed:  consumed,
		now:       time.Now,
	}, nil
}

func (s *TokenService) sign(claims jwt.Claims, key []byte) (string, error) {
	tokenString, err := jwt.NewWithClaims(s.method, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token string: %w", err)
	}
	return tokenString, nil
}

func (s *TokenService) issue(subject, tokenType string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := &model.AppClaims{
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	tokenString, err := s.sign(claims, s.key)
	if err != nil {
		logger.Log.WithError(err).WithField("subject", subject).Error("Failed to sign JWT")
		return "", err
	}
	return tokenString, nil
}

// IssueAccessToken returns a short-lived token whose subject is the user's email.
func (s *TokenService) IssueAccessToken(subject string) (string, error) {
	return s.issue(subject, "", s.cfg.AccessTTL())
}

// IssueRefreshToken returns a long-lived token typed "refresh".
func (s *TokenService) IssueRefreshToken(subject string) (string, error) {
	return s.issue(subject, model.TokenTypeRefresh, s.cfg.RefreshTTL())
}

func (s *TokenService) parser(opts ...jwt.ParserOption) *jwt.Parser {
	opts = append(opts,
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	return jwt.NewParser(opts...)
}

func (s *TokenService) parse(tokenString string) (*model.AppClaims, error) {
	claims := &model.AppClaims{}
	token, err := s.parser(jwt.WithExpirationRequired()).ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParseAccessToken verifies signature and expiry and rejects refresh tokens.
func (s *TokenService) ParseAccessToken(tokenString string) (*model.AppClaims, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != "" {
		return nil, fmt.Errorf("%w: unexpected token type %q", ErrInvalidToken, claims.Type)
	}
	return claims, nil
}

// VerifyRefreshToken returns the subject of a valid refresh token.
func (s *TokenService) VerifyRefreshToken(tokenString string) (string, error) {
	claims, err := s.parse(tokenString)
	if err != nil {
		return "", err
	}
	if claims.Type != model.TokenTypeRefresh {
		return "", fmt.Errorf("%w: not a refresh token", ErrInvalidToken)
	}
	return claims.Subject, nil
}

func (s *TokenService) actionKey(purpose string) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte("action-token." + purpose))
	return mac.Sum(nil)
}

// IssueActionToken signs payload for an out-of-band action such as an emailed
// link. The token has no expiry of its own; see DecodeActionToken.
func (s *TokenService) IssueActionToken(purpose string, payload map[string]string) (string, error) {
	claims := &model.ActionClaims{
		Data: payload,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(s.now()),
			ID:       uuid.NewString(),
		},
	}
	return s.sign(claims, s.actionKey(purpose))
}

// DecodeActionToken verifies an action token issued for purpose no more than
// maxAge ago. Failures are logged and reported as ErrInvalidToken.
func (s *TokenService) DecodeActionToken(purpose, tokenString string, maxAge time.Duration) (*ActionPayload, error) {
	log := logger.Log.WithField("purpose", purpose)

	claims := &model.ActionClaims{}
	_, err := s.parser().ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return s.actionKey(purpose), nil
	})
	if err != nil {
		log.WithError(err).Warn("Failed to decode action token")
		return nil, ErrInvalidToken
	}
	if claims.IssuedAt == nil || claims.ID == "" {
		log.Warn("Action token is missing iat or jti")
		return nil, ErrInvalidToken
	}

	age := s.now().Sub(claims.IssuedAt.Time)
	if age > maxAge || age < -actionTokenSkew {
		log.WithFields(logrus.Fields{"age": age, "max_age": maxAge}).Warn("Action token is too old")
		return nil, ErrInvalidToken
	}

	return &ActionPayload{ID: claims.ID, Data: claims.Data, IssuedAt: claims.IssuedAt.Time}, nil
}

// ConsumeActionToken marks the token as used. A second call for the same token
// fails with ErrInvalidToken. The marker outlives every moment at which
// DecodeActionToken would still accept the token.
func (s *TokenService) ConsumeActionToken(ctx context.Context, payload *ActionPayload, maxAge time.Duration) error {
	first, err := s.consumed.MarkConsumed(ctx, payload.ID, maxAge+actionTokenSkew)
	if err != nil {
		return fmt.Errorf("could not record consumed token: %w", err)
	}
	if !first {
		logger.Log.WithField("token_id", payload.ID).Warn("Action token replayed")
		return fmt.Errorf("%w: token already used", ErrInvalidToken)
	}
	return nil
}

// ReleaseActionToken makes a consumed token usable again.
func (s *TokenService) ReleaseActionToken(ctx context.Context, payload *ActionPayload) error {
	if err := s.consumed.Release(ctx, payload.ID); err != nil {
		return fmt.Errorf("could not release consumed token: %w", err)
	}
	return nil
}

// Revoke blacklists tokenString and reports whether this call did it. The
// entry is kept until the token would have expired anyway.
func (s *TokenService) Revoke(ctx context.Context, tokenString string) (bool, error) {
	expiresAt := s.now().Add(s.cfg.RefreshTTL())
	claims := &model.AppClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err == nil && claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	inserted, err := s.blacklist.Insert(ctx, &model.BlacklistedToken{Token: tokenString, ExpiresAt: expiresAt})
	if err != nil {
		return false, fmt.Errorf("could not blacklist token: %w", err)
	}
	return inserted, nil
}

// Blacklist revokes tokenString. Blacklisting twice is harmless.
func (s *TokenService) Blacklist(ctx context.Context, tokenString string) error {
	_, err := s.Revoke(ctx, tokenString)
	return err
}

func (s *TokenService) IsBlacklisted(ctx context.Context, tokenString string) (bool, error) {
	blacklisted, err := s.blacklist.Exists(ctx, tokenString)
	if err != nil {
		return false, fmt.Errorf("could not check token blacklist: %w", err)
	}
	return blacklisted, nil
}

// PurgeExpiredBlacklist drops entries for tokens that expired before now.
func (s *TokenService) PurgeExpiredBlacklist(ctx context.Context, now time.Time) (int64, error) {
	n, err := s.blacklist.PurgeExpired(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("could not purge token blacklist: %w", err)
	}
	return n, nil
}

// RunBlacklistJanitor purges expired blacklist entries every interval until
// ctx is cancelled.
func (s *TokenService) RunBlacklistJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("Blacklist janitor stopped")
			return
		case <-ticker.C:
			if _, err := s.PurgeExpiredBlacklist(ctx, s.now()); err != nil {
				logger.Log.WithError(err).Warn("Blacklist purge failed")
			}
		}
	}
}
