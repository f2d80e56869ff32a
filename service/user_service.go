package service

import (
	"context"
	"database/sql"
	"errors"
	"go-books-api/logger"
	"go-books-api/model"
	"go-books-api/repository"

	"github.com/sirupsen/logrus"
)

// UserService handles user administration.
type UserService struct {
	userRepo repository.IUserRepository
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repository.IUserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// UpdateUserRole validates the role and calls the repository to update it.
func (s *UserService) UpdateUserRole(ctx context.Context, userID int, newRole model.Role) error {
	if !newRole.Valid() {
		return ErrInvalidRole
	}

	err := s.userRepo.UpdateUser(ctx, userID, model.UserFields{"role": newRole})
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	if err != nil {
		return err
	}

	logger.Log.WithFields(logrus.Fields{"user_id": userID, "role": newRole}).Info("User role updated")
	return nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]*model.User, error) {
	return s.userRepo.GetAllUsers(ctx)
}
