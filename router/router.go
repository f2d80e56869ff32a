package router

import (
	_ "go-books-api/docs"
	"go-books-api/handler"
	"go-books-api/model"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// NewRouter registers every route. Handlers may be nil in tests that only hit
// /health.
func NewRouter(authHandler *handler.AuthHandler, userHandler *handler.UserHandler, auth *handler.AuthMiddleware) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handler.HealthCheck)
	mux.Handle("GET /swagger/", httpSwagger.WrapHandler)

	if authHandler != nil {
		mux.Handle("POST /auth/token", handler.ErrorHandlingMiddleware(authHandler.Login))
		mux.Handle("POST /auth/token/refresh", handler.ErrorHandlingMiddleware(authHandler.Refresh))
		mux.Handle("POST /auth/create_users", handler.ErrorHandlingMiddleware(authHandler.Signup))
		mux.Handle("GET /auth/verify/{token}", handler.ErrorHandlingMiddleware(authHandler.VerifyEmail))
		mux.Handle("POST /auth/password-reset", handler.ErrorHandlingMiddleware(authHandler.RequestPasswordReset))
		mux.Handle("POST /auth/password-reset-confirm/{token}", handler.ErrorHandlingMiddleware(authHandler.ConfirmPasswordReset))

		mux.Handle("POST /auth/logout", auth.Authenticate(handler.ErrorHandlingMiddleware(authHandler.Logout)))
		mux.Handle("POST /auth/create_admin_users", auth.Protect(handler.ErrorHandlingMiddleware(authHandler.SignupAdmin), model.RoleAdmin))
		mux.Handle("GET /auth/users/me", auth.Protect(handler.ErrorHandlingMiddleware(authHandler.Me), model.RoleUser, model.RoleAdmin))
	}

	if userHandler != nil {
		mux.Handle("GET /auth/users", auth.Protect(handler.ErrorHandlingMiddleware(userHandler.ListUsers), model.RoleAdmin))
		mux.Handle("PATCH /auth/users/{id}/role", auth.Protect(handler.ErrorHandlingMiddleware(userHandler.UpdateUserRole), model.RoleAdmin))
	}

	return handler.RequestLogger(mux)
}
