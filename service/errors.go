package service

import "errors"

var (
	ErrInvalidToken           = errors.New("invalid or expired token")
	ErrInsufficientPermission = errors.New("not enough permissions")
	ErrUserAlreadyExists      = errors.New("user with this email or username already exists")
	ErrUserNotFound           = errors.New("user not found")
	ErrInvalidCredentials     = errors.New("incorrect username or password")
	ErrInactiveUser           = errors.New("inactive user")
	ErrPasswordMismatch       = errors.New("passwords do not match")
	ErrWeakPassword           = errors.New("password does not meet the strength policy")
	ErrInvalidRole            = errors.New("invalid role specified")
)
