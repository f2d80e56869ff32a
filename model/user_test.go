package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserFields_Apply(t *testing.T) {
	t.Run("applies allowed fields", func(t *testing.T) {
		u := &User{Role: RoleUser}
		err := UserFields{"is_verified": true, "role": RoleAdmin, "password_hash": "h"}.Apply(u)

		require.NoError(t, err)
		assert.True(t, u.IsVerified)
		assert.Equal(t, RoleAdmin, u.Role)
		assert.Equal(t, "h", u.PasswordHash)
	})

	t.Run("rejects fields outside the allow-list", func(t *testing.T) {
		u := &User{Email: "a@x.com"}
		err := UserFields{"email": "b@x.com"}.Apply(u)

		assert.Error(t, err)
		assert.Equal(t, "a@x.com", u.Email)
	})

	t.Run("bad value leaves user untouched", func(t *testing.T) {
		u := &User{}
		err := UserFields{"is_active": true, "role": Role("ROOT")}.Apply(u)

		assert.Error(t, err)
		assert.False(t, u.IsActive)
		assert.Equal(t, Role(""), u.Role)
	})

	t.Run("empty update", func(t *testing.T) {
		assert.Error(t, UserFields{}.Apply(&User{}))
	})
}

func TestUserFields_Column(t *testing.T) {
	col, err := UserFields{}.Column("is_verified")
	require.NoError(t, err)
	assert.Equal(t, "is_verified", col)

	_, err = UserFields{}.Column("id")
	assert.Error(t, err)
}
