package handler

import (
	"encoding/json"
	"errors"
	"go-books-api/common"
	"go-books-api/logger"
	"go-books-api/model"
	"go-books-api/service"
	"io"
	"net/http"
)

// AuthHandler exposes the account flows over HTTP.
type AuthHandler struct {
	service *service.AuthService
}

func NewAuthHandler(s *service.AuthService) *AuthHandler {
	return &AuthHandler{service: s}
}

// Login godoc
// @Summary      Log in
// @Description  Exchanges email and password for an access and refresh token pair.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        credentials body model.LoginRequest true "User credentials"
// @Success      200  {object}  service.TokenPair
// @Failure      400  {object}  common.AppError "Invalid request body"
// @Failure      401  {object}  common.AppError "Incorrect username or password"
// @Router       /auth/token [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.LoginRequest
	if err := common.ValidateAndDecode(r, &req); err != nil {
		return err
	}

	pair, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		return serviceError(err, "Could not log in")
	}

	common.WriteJSON(w, http.StatusOK, pair)
	return nil
}

// Refresh godoc
// @Summary      Refresh tokens
// @Description  Exchanges a refresh token for a new pair. The old refresh token stops working.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body body model.RefreshRequest true "Refresh token"
// @Success      200  {object}  service.TokenPair
// @Failure      401  {object}  common.AppError "Invalid refresh token"
// @Failure      404  {object}  common.AppError "User not found"
// @Router       /auth/token/refresh [post]
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.RefreshRequest
	if err := common.ValidateAndDecode(r, &req); err != nil {
		return err
	}

	pair, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		return serviceError(err, "Could not refresh token")
	}

	common.WriteJSON(w, http.StatusOK, pair)
	return nil
}

// Signup godoc
// @Summary      Create a user
// @Description  Creates an unverified user and emails a verification link.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        user body model.SignupRequest true "New user"
// @Success      201  {object}  model.User
// @Failure      400  {object}  common.AppError "Validation failed or user exists"
// @Router       /auth/create_users [post]
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) *common.AppError {
	return h.signup(w, r, model.RoleUser)
}

// SignupAdmin godoc
// @Summary      Create an admin
// @Description  Creates an unverified ADMIN user and emails a verification link. Admin only.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        user body model.SignupRequest true "New admin"
// @Success      201  {object}  model.User
// @Failure      400  {object}  common.AppError "Validation failed or user exists"
// @Failure      401  {object}  common.AppError "Not authenticated"
// @Failure      403  {object}  common.AppError "Not enough permissions"
// @Router       /auth/create_admin_users [post]
func (h *AuthHandler) SignupAdmin(w http.ResponseWriter, r *http.Request) *common.AppError {
	return h.signup(w, r, model.RoleAdmin)
}

func (h *AuthHandler) signup(w http.ResponseWriter, r *http.Request, role model.Role) *common.AppError {
	var req model.SignupRequest
	if err := common.ValidateAndDecode(r, &req); err != nil {
		return err
	}

	user, err := h.service.Signup(r.Context(), req.Email, req.Username, req.Password, role)
	if err != nil {
		return serviceError(err, "Could not create user")
	}

	common.WriteJSON(w, http.StatusCreated, user)
	return nil
}

// VerifyEmail godoc
// @Summary      Verify email
// @Description  Marks the account named by the emailed token as verified.
// @Tags         auth
// @Produce      json
// @Param        token path string true "Verification token"
// @Success      200  {object}  model.MessageResponse
// @Failure      401  {object}  common.AppError "Invalid or expired token"
// @Failure      404  {object}  common.AppError "User not found"
// @Router       /auth/verify/{token} [get]
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) *common.AppError {
	if err := h.service.VerifyEmail(r.Context(), r.PathValue("token")); err != nil {
		return serviceError(err, "Error occurred during verification")
	}

	common.WriteJSON(w, http.StatusOK, model.MessageResponse{Message: "Account verified successfully"})
	return nil
}

// RequestPasswordReset godoc
// @Summary      Request a password reset
// @Description  Emails a reset link if the account exists. The answer is the same either way.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body body model.PasswordResetRequest true "Account email"
// @Success      200  {object}  model.MessageResponse
// @Failure      400  {object}  common.AppError "Invalid request body"
// @Router       /auth/password-reset [post]
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.PasswordResetRequest
	if err := common.ValidateAndDecode(r, &req); err != nil {
		return err
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		return serviceError(err, "Could not process password reset")
	}

	common.WriteJSON(w, http.StatusOK, model.MessageResponse{Message: "Please check your email for instructions to reset your password"})
	return nil
}

// ConfirmPasswordReset godoc
// @Summary      Confirm a password reset
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        token path string true "Reset token"
// @Param        body body model.PasswordResetConfirmRequest true "New password"
// @Success      200  {object}  model.MessageResponse
// @Failure      400  {object}  common.AppError "Passwords do not match"
// @Failure      401  {object}  common.AppError "Invalid or expired token"
// @Router       /auth/password-reset-confirm/{token} [post]
func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) *common.AppError {
	var req model.PasswordResetConfirmRequest
	if err := common.ValidateAndDecode(r, &req); err != nil {
		return err
	}

	err := h.service.ConfirmPasswordReset(r.Context(), r.PathValue("token"), req.NewPassword, req.ConfirmNewPassword)
	if err != nil {
		return serviceError(err, "Error occurred during password reset")
	}

	common.WriteJSON(w, http.StatusOK, model.MessageResponse{Message: "Password reset successfully"})
	return nil
}

// Logout godoc
// @Summary      Log out
// @Description  Blacklists the bearer token and, if supplied, the refresh token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body model.LogoutRequest false "Refresh token to revoke"
// @Success      200  {object}  model.MessageResponse
// @Failure      401  {object}  common.AppError "Invalid or missing token"
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) *common.AppError {
	user, ok := UserFromContext(r.Context())
	token, tokenOK := TokenFromContext(r.Context())
	if !ok || !tokenOK {
		return common.NewAppError(http.StatusUnauthorized, "Could not validate credentials", nil)
	}

	var req model.LogoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return common.NewAppError(http.StatusBadRequest, "Invalid request body", err)
	}

	if err := h.service.Logout(r.Context(), user, token, req.RefreshToken); err != nil {
		return serviceError(err, "Could not log out")
	}

	common.WriteJSON(w, http.StatusOK, model.MessageResponse{Message: "Successfully logged out"})
	return nil
}

// Me godoc
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  model.User
// @Failure      401  {object}  common.AppError "Invalid or missing token"
// @Failure      403  {object}  common.AppError "Unverified user"
// @Router       /auth/users/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) *common.AppError {
	user, ok := UserFromContext(r.Context())
	if !ok {
		return common.NewAppError(http.StatusUnauthorized, "Could not validate credentials", nil)
	}

	logger.Log.WithField("user_id", user.ID).Debug("Identity requested")
	common.WriteJSON(w, http.StatusOK, user)
	return nil
}
