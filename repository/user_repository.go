package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"go-books-api/logger"
	"go-books-api/model"
	"sort"
	"strings"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// ErrDuplicateUser is returned when the email or username is already taken.
var ErrDuplicateUser = errors.New("user with this email or username already exists")

// IUserRepository defines the contract for user database operations.
type IUserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUserByID(ctx context.Context, id int) (*model.User, error)
	GetAllUsers(ctx context.Context) ([]*model.User, error)
	UpdateUser(ctx context.Context, id int, fields model.UserFields) error
}

type UserRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{DB: db}
}

const userColumns = `id, email, username, password_hash, role, is_active, is_verified, created_at`

func scanUser(row interface{ Scan(...interface{}) error }) (*model.User, error) {
	user := &model.User{}
	var role string
	err := row.Scan(&user.ID, &user.Email, &user.Username, &user.PasswordHash, &role, &user.IsActive, &user.IsVerified, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	user.Role = model.Role(role)
	return user, nil
}

// CreateUser inserts the user and fills in the generated id and created_at.
func (r *UserRepository) CreateUser(ctx context.Context, user *model.User) error {
	log := logger.Log.WithFields(logrus.Fields{
		"email":    user.Email,
		"username": user.Username,
		"role":     user.Role,
	})
	log.Info("Executing query to create a new user")

	query := `INSERT INTO users (email, username, password_hash, role, is_active, is_verified) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`
	err := r.DB.QueryRowContext(ctx, query, user.Email, user.Username, user.PasswordHash, string(user.Role), user.IsActive, user.IsVerified).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			log.Info("User already exists")
			return ErrDuplicateUser
		}
		log.WithError(err).Error("Failed to execute create user query")
		return err
	}
	return nil
}

func (r *UserRepository) getUserBy(ctx context.Context, column string, value interface{}) (*model.User, error) {
	log := logger.Log.WithField(column, value)
	log.Debug("Executing query to get user")

	query := fmt.Sprintf(`SELECT %s FROM users WHERE %s = $1`, userColumns, column)
	user, err := scanUser(r.DB.QueryRowContext(ctx, query, value))
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.WithError(err).Error("Failed to execute get user query")
		}
		return nil, err // sql.ErrNoRows if not found
	}
	return user, nil
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getUserBy(ctx, "email", email)
}

func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getUserBy(ctx, "username", username)
}

func (r *UserRepository) GetUserByID(ctx context.Context, id int) (*model.User, error) {
	return r.getUserBy(ctx, "id", id)
}

// GetAllUsers retrieves all users ordered by id. For admin use only.
func (r *UserRepository) GetAllUsers(ctx context.Context) ([]*model.User, error) {
	log := logger.Log
	log.Info("Executing query to get all users")

	rows, err := r.DB.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		log.WithError(err).Error("Failed to execute query for all users")
		return nil, err
	}
	defer rows.Close()

	users := []*model.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			log.WithError(err).Error("Failed to scan user row")
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UpdateUser applies a partial update. Field names are checked against the
// model's allow-list before any SQL is built; columns are emitted in sorted
// order so the statement is stable.
func (r *UserRepository) UpdateUser(ctx context.Context, id int, fields model.UserFields) error {
	var scratch model.User
	if err := fields.Apply(&scratch); err != nil {
		return err
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	sets := make([]string, 0, len(names))
	args := make([]interface{}, 0, len(names)+1)
	for i, name := range names {
		column, err := fields.Column(name)
		if err != nil {
			return err
		}
		sets = append(sets, fmt.Sprintf("%s = $%d", column, i+1))
		value := fields[name]
		if role, ok := value.(model.Role); ok {
			value = string(role)
		}
		args = append(args, value)
	}
	args = append(args, id)

	log := logger.Log.WithFields(logrus.Fields{
		"user_id": id,
		"fields":  names,
	})
	log.Info("Executing query to update user")

	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		log.WithError(err).Error("Failed to execute update user query")
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
