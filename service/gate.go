package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"go-books-api/model"
	"go-books-api/repository"
)

// AuthGate resolves the caller behind a bearer token and checks what the
// caller may do. It never mutates state.
type AuthGate struct {
	tokens *TokenService
	users  repository.IUserRepository
}

func NewAuthGate(tokens *TokenService, users repository.IUserRepository) *AuthGate {
	return &AuthGate{tokens: tokens, users: users}
}

// ResolveIdentity returns the user an access token was issued to, provided the
// token is valid, not revoked, and the user still exists.
func (g *AuthGate) ResolveIdentity(ctx context.Context, token string) (*model.User, error) {
	claims, err := g.tokens.ParseAccessToken(token)
	if err != nil {
		return nil, err
	}

	blacklisted, err := g.tokens.IsBlacklisted(ctx, token)
	if err != nil {
		return nil, err
	}
	if blacklisted {
		return nil, fmt.Errorf("%w: token has been blacklisted", ErrInvalidToken)
	}

	user, err := g.users.GetUserByEmail(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: unknown subject", ErrInvalidToken)
		}
		return nil, err
	}
	return user, nil
}

func RequireActive(user *model.User) error {
	if !user.IsActive {
		return ErrInactiveUser
	}
	return nil
}

// RequireRole passes verified users whose role is in allowed.
func RequireRole(user *model.User, allowed ...model.Role) error {
	if !user.IsVerified {
		return fmt.Errorf("%w: unverified user", ErrInsufficientPermission)
	}
	for _, role := range allowed {
		if user.Role == role {
			return nil
		}
	}
	return ErrInsufficientPermission
}
