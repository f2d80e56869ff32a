package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"go-books-api/logger"
	"go-books-api/mail"
	"go-books-api/model"
	"go-books-api/repository"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	passwordvalidator "github.com/wagslane/go-password-validator"
	"golang.org/x/crypto/bcrypt"
)

// MailDispatcher hands a message off for background delivery.
type MailDispatcher interface {
	Dispatch(addresses []string, subject, htmlBody string)
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// AuthConfig holds the account flow settings taken from config at startup.
type AuthConfig struct {
	Domain       string
	BcryptCost   int
	MinEntropy   float64
	VerifyMaxAge time.Duration
	ResetMaxAge  time.Duration
}

// AuthService runs the account flows: signup, email verification, login,
// refresh, logout and password reset.
type AuthService struct {
	users  repository.IUserRepository
	tokens *TokenService
	mailer MailDispatcher
	cfg    AuthConfig
}

func NewAuthService(users repository.IUserRepository, tokens *TokenService, mailer MailDispatcher, cfg AuthConfig) *AuthService {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.VerifyMaxAge <= 0 {
		cfg.VerifyMaxAge = time.Hour
	}
	if cfg.ResetMaxAge <= 0 {
		cfg.ResetMaxAge = time.Hour
	}
	cfg.Domain = strings.TrimRight(cfg.Domain, "/")
	return &AuthService{users: users, tokens: tokens, mailer: mailer, cfg: cfg}
}

func (s *AuthService) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to hash password")
		return "", err
	}
	return string(bytes), nil
}

func (s *AuthService) CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePassword enforces the minimum entropy policy. A zero policy accepts
// any non-empty password.
func (s *AuthService) ValidatePassword(password string) error {
	if s.cfg.MinEntropy <= 0 {
		return nil
	}
	if err := passwordvalidator.Validate(password, s.cfg.MinEntropy); err != nil {
		return fmt.Errorf("%w: %v", ErrWeakPassword, err)
	}
	return nil
}

func (s *AuthService) issuePair(subject string) (*TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(subject)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokens.IssueRefreshToken(subject)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

func (s *AuthService) taken(ctx context.Context, lookup func(context.Context, string) (*model.User, error), value string) (bool, error) {
	_, err := lookup(ctx, value)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	default:
		return false, err
	}
}

// Signup creates an unverified account and mails a verification link. The
// account is returned even if the email cannot be sent.
func (s *AuthService) Signup(ctx context.Context, email, username, password string, role model.Role) (*model.User, error) {
	if role == "" {
		role = model.RoleUser
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	log := logger.Log.WithFields(logrus.Fields{"email": email, "username": username})

	for _, check := range []struct {
		lookup func(context.Context, string) (*model.User, error)
		value  string
	}{
		{s.users.GetUserByEmail, email},
		{s.users.GetUserByUsername, username},
	} {
		taken, err := s.taken(ctx, check.lookup, check.value)
		if err != nil {
			return nil, fmt.Errorf("could not check existing users: %w", err)
		}
		if taken {
			return nil, ErrUserAlreadyExists
		}
	}

	if err := s.ValidatePassword(password); err != nil {
		return nil, err
	}
	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("could not hash password: %w", err)
	}

	user := &model.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
		IsVerified:   false,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("could not create user: %w", err)
	}
	log.WithField("user_id", user.ID).Info("User signed up")

	s.sendVerificationEmail(user)
	return user, nil
}

func (s *AuthService) sendVerificationEmail(user *model.User) {
	log := logger.Log.WithField("user_id", user.ID)

	token, err := s.tokens.IssueActionToken(PurposeEmailVerification, map[string]string{"email": user.Email})
	if err != nil {
		log.WithError(err).Error("Could not issue verification token")
		return
	}
	body, err := mail.RenderVerificationEmail(user.Username, s.cfg.Domain+"/auth/verify/"+token)
	if err != nil {
		log.WithError(err).Error("Could not render verification email")
		return
	}
	s.mailer.Dispatch([]string{user.Email}, mail.VerificationSubject, body)
}

// release hands a consumed action token back after the write it guarded failed,
// so the emailed link keeps working.
func (s *AuthService) release(ctx context.Context, payload *ActionPayload) {
	if err := s.tokens.ReleaseActionToken(ctx, payload); err != nil {
		logger.Log.WithError(err).WithField("token_id", payload.ID).Error("Action token stays consumed after failed update")
	}
}

// EnsureAdmin creates a verified ADMIN account unless a user with email
// already exists, in which case that user is returned unchanged.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, username, password string) (*model.User, error) {
	log := logger.Log.WithFields(logrus.Fields{"email": email, "username": username})

	existing, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		log.WithField("user_id", existing.ID).Info("Bootstrap admin already present")
		return existing, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("could not check existing users: %w", err)
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("could not hash password: %w", err)
	}
	user := &model.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
		IsActive:     true,
		IsVerified:   true,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUser) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("could not create admin: %w", err)
	}
	log.WithField("user_id", user.ID).Info("Bootstrap admin created")
	return user, nil
}

// VerifyEmail marks the account named by the token as verified. Verifying an
// already verified account succeeds without consuming the token.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	payload, err := s.tokens.DecodeActionToken(PurposeEmailVerification, token, s.cfg.VerifyMaxAge)
	if err != nil {
		return err
	}
	email := payload.Data["email"]
	if email == "" {
		return ErrInvalidToken
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	}
	if user.IsVerified {
		return nil
	}

	if err := s.tokens.ConsumeActionToken(ctx, payload, s.cfg.VerifyMaxAge); err != nil {
		return err
	}
	if err := s.users.UpdateUser(ctx, user.ID, model.UserFields{"is_verified": true}); err != nil {
		s.release(ctx, payload)
		return fmt.Errorf("could not verify user: %w", err)
	}
	logger.Log.WithField("user_id", user.ID).Info("Email verified")
	return nil
}

// Login checks the credentials and issues a fresh token pair.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.CheckPasswordHash(password, user.PasswordHash) {
		logger.Log.WithField("user_id", user.ID).Warn("Login failed: wrong password")
		return nil, ErrInvalidCredentials
	}
	return s.issuePair(user.Email)
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// revoked before the new pair is issued; of several concurrent calls with the
// same token only the one that revokes it succeeds.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	subject, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	revoked, err := s.tokens.Revoke(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if !revoked {
		logger.Log.WithField("user_id", user.ID).Warn("Refresh token reused")
		return nil, fmt.Errorf("%w: token has been revoked", ErrInvalidToken)
	}
	return s.issuePair(user.Email)
}

// Logout revokes the access token and, if given, a refresh token belonging to
// the same user.
func (s *AuthService) Logout(ctx context.Context, user *model.User, accessToken, refreshToken string) error {
	if refreshToken != "" {
		subject, err := s.tokens.VerifyRefreshToken(refreshToken)
		if err != nil {
			return err
		}
		if subject != user.Email {
			return fmt.Errorf("%w: refresh token belongs to another user", ErrInvalidToken)
		}
	}

	if err := s.tokens.Blacklist(ctx, accessToken); err != nil {
		return err
	}
	if refreshToken != "" {
		if err := s.tokens.Blacklist(ctx, refreshToken); err != nil {
			return err
		}
	}
	logger.Log.WithField("user_id", user.ID).Info("User logged out")
	return nil
}

// RequestPasswordReset mails a reset link if the account exists. The caller
// gets the same answer either way.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			logger.Log.Info("Password reset requested for unknown email")
			return nil
		}
		return err
	}

	token, err := s.tokens.IssueActionToken(PurposePasswordReset, map[string]string{"email": user.Email})
	if err != nil {
		return err
	}
	body, err := mail.RenderPasswordResetEmail(s.cfg.Domain + "/auth/password-reset-confirm/" + token)
	if err != nil {
		return err
	}
	s.mailer.Dispatch([]string{user.Email}, mail.PasswordResetSubject, body)
	logger.Log.WithField("user_id", user.ID).Info("Password reset link dispatched")
	return nil
}

// ConfirmPasswordReset sets a new password using a reset token. Each token
// works once.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, newPassword, confirmPassword string) error {
	if newPassword != confirmPassword {
		return ErrPasswordMismatch
	}

	payload, err := s.tokens.DecodeActionToken(PurposePasswordReset, token, s.cfg.ResetMaxAge)
	if err != nil {
		return err
	}
	email := payload.Data["email"]
	if email == "" {
		return ErrInvalidToken
	}

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: account no longer exists", ErrInvalidToken)
		}
		return err
	}

	if err := s.ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, err := s.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("could not hash password: %w", err)
	}
	if err := s.tokens.ConsumeActionToken(ctx, payload, s.cfg.ResetMaxAge); err != nil {
		return err
	}
	if err := s.users.UpdateUser(ctx, user.ID, model.UserFields{"password_hash": hash}); err != nil {
		s.release(ctx, payload)
		return fmt.Errorf("could not update password: %w", err)
	}
	logger.Log.WithField("user_id", user.ID).Info("Password reset")
	return nil
}
