package handler

import (
	"context"
	"go-books-api/common"
	"go-books-api/model"
	"go-books-api/service"
	"net/http"
	"strings"
)

type contextKey string

const (
	UserKey  contextKey = "user"
	TokenKey contextKey = "token"
)

// UserFromContext returns the user resolved by Authenticate.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(UserKey).(*model.User)
	return user, ok && user != nil
}

// TokenFromContext returns the raw bearer token accepted by Authenticate.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok && token != ""
}

// AuthMiddleware turns the service-level AuthGate into HTTP middleware.
// Compose as Authenticate -> RequireActive -> RequireRoles.
type AuthMiddleware struct {
	gate *service.AuthGate
}

func NewAuthMiddleware(gate *service.AuthGate) *AuthMiddleware {
	return &AuthMiddleware{gate: gate}
}

func bearerToken(r *http.Request) (string, *common.AppError) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", common.NewAppError(http.StatusUnauthorized, "Authorization header is required", nil)
	}

	headerParts := strings.Split(authHeader, " ")
	if len(headerParts) != 2 || strings.ToLower(headerParts[0]) != "bearer" || headerParts[1] == "" {
		return "", common.NewAppError(http.StatusUnauthorized, "Invalid authorization header format", nil)
	}
	return headerParts[1], nil
}

func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, appErr := bearerToken(r)
		if appErr != nil {
			appErr.Send(w)
			return
		}

		user, err := m.gate.ResolveIdentity(r.Context(), token)
		if err != nil {
			serviceError(err, "Could not validate credentials").Send(w)
			return
		}

		ctx := context.WithValue(r.Context(), UserKey, user)
		ctx = context.WithValue(ctx, TokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) RequireActive(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			common.NewAppError(http.StatusUnauthorized, "Could not validate credentials", nil).Send(w)
			return
		}
		if err := service.RequireActive(user); err != nil {
			serviceError(err, "Inactive user").Send(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m *AuthMiddleware) RequireRoles(roles ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				common.NewAppError(http.StatusUnauthorized, "Could not validate credentials", nil).Send(w)
				return
			}
			if err := service.RequireRole(user, roles...); err != nil {
				serviceError(err, "Not enough permissions").Send(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Protect wraps h in the full chain: authenticate, require an active account
// and, when roles are given, require one of them.
func (m *AuthMiddleware) Protect(h http.Handler, roles ...model.Role) http.Handler {
	if len(roles) > 0 {
		h = m.RequireRoles(roles...)(h)
	}
	return m.Authenticate(m.RequireActive(h))
}
