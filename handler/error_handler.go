package handler

import (
	"errors"
	"go-books-api/common"
	"go-books-api/service"
	"net/http"
)

func ErrorHandlingMiddleware(next func(http.ResponseWriter, *http.Request) *common.AppError) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := next(w, r); err != nil {
			err.Send(w)
		}
	}
}

// serviceError maps service errors onto HTTP responses. Anything unknown is a
// 500 carrying fallback as its message so internals are not leaked.
func serviceError(err error, fallback string) *common.AppError {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return common.NewAppError(http.StatusUnauthorized, "Incorrect username or password", err)
	case errors.Is(err, service.ErrInvalidToken):
		return common.NewAppError(http.StatusUnauthorized, "Could not validate credentials", err)
	case errors.Is(err, service.ErrInsufficientPermission):
		return common.NewAppError(http.StatusForbidden, "Not enough permissions", err)
	case errors.Is(err, service.ErrUserAlreadyExists):
		return common.NewAppError(http.StatusBadRequest, "User with this email or username already exists", err)
	case errors.Is(err, service.ErrUserNotFound):
		return common.NewAppError(http.StatusNotFound, "User not found", err)
	case errors.Is(err, service.ErrInactiveUser):
		return common.NewAppError(http.StatusBadRequest, "Inactive user", err)
	case errors.Is(err, service.ErrPasswordMismatch):
		return common.NewAppError(http.StatusBadRequest, "Passwords do not match", err)
	case errors.Is(err, service.ErrWeakPassword):
		return common.NewAppError(http.StatusBadRequest, err.Error(), err)
	case errors.Is(err, service.ErrInvalidRole):
		return common.NewAppError(http.StatusBadRequest, "Invalid role specified", err)
	default:
		return common.NewAppError(http.StatusInternalServerError, fallback, err)
	}
}
