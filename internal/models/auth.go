package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// StaffLoginRequest holds credentials for authenticating a staff or admin user.
type StaffLoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// CamperLoginRequest authenticates a camper by access code.
type CamperLoginRequest struct {
	Code      string `json:"code" validate:"required,len=6"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the issued token and identity info.
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	ExpiresIn   int64        `json:"expires_in"`
	IssuedAt    time.Time    `json:"issued_at"`
	Identity    IdentityInfo `json:"identity"`
}

// IdentityInfo describes the authenticated principal in responses.
type IdentityInfo struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Role     UserRole `json:"role"`
	BunkID   string   `json:"bunk_id,omitempty"`
	BunkName string   `json:"bunk_name,omitempty"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	Name   string   `json:"name"`
	BunkID string   `json:"bunk_id,omitempty"`
	jwt.RegisteredClaims
}
