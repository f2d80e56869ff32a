// file: model/request.go

package model

// SignupRequest defines the payload for creating a new user.
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,max=50"`
	Password string `json:"password" validate:"required,max=72"`
}

// LoginRequest defines the payload for user authentication.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest optionally names a refresh token to revoke together with the
// access token presented in the Authorization header.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type PasswordResetConfirmRequest struct {
	NewPassword        string `json:"new_password" validate:"required,max=72"`
	ConfirmNewPassword string `json:"confirm_new_password" validate:"required,max=72"`
}

// UpdateUserRoleRequest defines the payload for updating a user's role.
type UpdateUserRoleRequest struct {
	Role Role `json:"role" validate:"required,oneof=USER ADMIN"`
}

// MessageResponse is the body of endpoints that only report an outcome.
type MessageResponse struct {
	Message string `json:"message"`
}
