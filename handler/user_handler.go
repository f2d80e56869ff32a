package handler

import (
	"go-books-api/common"
	"go-books-api/model"
	"go-books-api/service"
	"net/http"
	"strconv"
)

type UserHandler struct {
	service *service.UserService
}

func NewUserHandler(s *service.UserService) *UserHandler {
	return &UserHandler{service: s}
}

// ListUsers godoc
// @Summary      List users
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   model.User
// @Failure      403  {object}  common.AppError "Admin privileges required"
// @Router       /auth/users [get]
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) *common.AppError {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		return common.NewAppError(http.StatusInternalServerError, "Could not retrieve users", err)
	}

	common.WriteJSON(w, http.StatusOK, users)
	return nil
}

// UpdateUserRole godoc
// @Summary      Change a user's role
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path int true "User ID"
// @Param        body body model.UpdateUserRoleRequest true "New role"
// @Success      200  {object}  model.MessageResponse
// @Failure      400  {object}  common.AppError "Invalid user ID or role"
// @Failure      403  {object}  common.AppError "Admin privileges required"
// @Failure      404  {object}  common.AppError "User not found"
// @Router       /auth/users/{id}/role [patch]
func (h *UserHandler) UpdateUserRole(w http.ResponseWriter, r *http.Request) *common.AppError {
	userID, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		return common.NewAppError(http.StatusBadRequest, "Invalid user ID in URL path", err)
	}

	var req model.UpdateUserRoleRequest
	if appErr := common.ValidateAndDecode(r, &req); appErr != nil {
		return appErr
	}

	if err := h.service.UpdateUserRole(r.Context(), userID, req.Role); err != nil {
		return serviceError(err, "Could not update user role")
	}

	common.WriteJSON(w, http.StatusOK, model.MessageResponse{Message: "User role updated successfully"})
	return nil
}
