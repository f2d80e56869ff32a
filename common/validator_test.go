package common

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signupPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,max=5"`
}

func TestValidateAndDecode(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"email":"a@x.com","username":"a"}`, false},
		{"malformed json", `{"email":`, true},
		{"bad email", `{"email":"nope","username":"a"}`, true},
		{"missing username", `{"email":"a@x.com"}`, true},
		{"username too long", `{"email":"a@x.com","username":"abcdef"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var payload signupPayload

			appErr := ValidateAndDecode(req, &payload)

			if tt.wantErr {
				require.NotNil(t, appErr)
				assert.Equal(t, http.StatusBadRequest, appErr.Code)
				return
			}
			assert.Nil(t, appErr)
			assert.Equal(t, "a@x.com", payload.Email)
		})
	}
}

func TestAppError_Send(t *testing.T) {
	rr := httptest.NewRecorder()

	NewAppError(http.StatusUnauthorized, "Could not validate credentials", nil).Send(rr)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Bearer", rr.Header().Get("WWW-Authenticate"))
	assert.Equal(t, "application/json; charset=utf-8", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"code":401,"message":"Could not validate credentials"}`, rr.Body.String())
}
