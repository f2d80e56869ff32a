package model

import (
	"fmt"
	"time"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type User struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	IsVerified   bool      `json:"is_verified"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserFields is a partial update keyed by column name. Only keys present in
// the allow-list below are accepted.
type UserFields map[string]interface{}

type userField struct {
	column string
	set    func(u *User, v interface{}) error
}

var mutableUserFields = map[string]userField{
	"password_hash": {column: "password_hash", set: func(u *User, v interface{}) error {
		s, ok := v.(string)
		if !ok || s == "" {
			return fmt.Errorf("password_hash must be a non-empty string, got %T", v)
		}
		u.PasswordHash = s
		return nil
	}},
	"is_verified": {column: "is_verified", set: func(u *User, v interface{}) error {
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("is_verified must be a bool, got %T", v)
		}
		u.IsVerified = b
		return nil
	}},
	"is_active": {column: "is_active", set: func(u *User, v interface{}) error {
		b, ok := v.(bool)
		if !ok {
			return fmt.Errorf("is_active must be a bool, got %T", v)
		}
		u.IsActive = b
		return nil
	}},
	"role": {column: "role", set: func(u *User, v interface{}) error {
		r, ok := v.(Role)
		if !ok || !r.Valid() {
			return fmt.Errorf("role must be a valid Role, got %v", v)
		}
		u.Role = r
		return nil
	}},
}

// Column returns the database column for an updatable field.
func (f UserFields) Column(name string) (string, error) {
	field, ok := mutableUserFields[name]
	if !ok {
		return "", fmt.Errorf("field %q is not updatable", name)
	}
	return field.column, nil
}

// Apply validates every field against the allow-list and, only if all of them
// pass, writes them onto u.
func (f UserFields) Apply(u *User) error {
	if len(f) == 0 {
		return fmt.Errorf("no fields to update")
	}
	staged := *u
	for name, value := range f {
		field, ok := mutableUserFields[name]
		if !ok {
			return fmt.Errorf("field %q is not updatable", name)
		}
		if err := field.set(&staged, value); err != nil {
			return err
		}
	}
	*u = staged
	return nil
}
