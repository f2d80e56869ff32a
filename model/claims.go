package model

import "github.com/golang-jwt/jwt/v5"

// TokenTypeRefresh marks refresh tokens. Access tokens carry no type.
const TokenTypeRefresh = "refresh"

type AppClaims struct {
	Type string `json:"type,omitempty"`
	jwt.RegisteredClaims
}

// ActionClaims back the URL-safe links sent by email. They carry no exp claim;
// the reader decides the maximum age.
type ActionClaims struct {
	Data map[string]string `json:"data"`
	jwt.RegisteredClaims
}
