package models

import (
	"time"

	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/constants"
)

// TokenRecord is the server-side half of a bearer token. Only the digest of
// the random secret is stored; the raw secret is discarded at issue time.
//
// Blacklisted is monotonic: once true it never goes back to false.
type TokenRecord struct {
	ID          string    `json:"id" db:"token_id" validate:"required"`
	TokenHash   string    `json:"-" db:"token_hash" validate:"required,len=64,hexadecimal"`
	UserID      string    `json:"userId" db:"user_id" validate:"required"`
	Purpose     string    `json:"purpose" db:"purpose" validate:"required,token_purpose"`
	ExpiresAt   time.Time `json:"expiresAt" db:"expires_at" validate:"required"`
	Blacklisted bool      `json:"blacklisted" db:"blacklisted"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// TableName returns the database table name for the TokenRecord model.
func (t *TokenRecord) TableName() string {
	return constants.TableTokens
}

// IsExpired reports whether the record is past its expiry at the given instant.
func (t *TokenRecord) IsExpired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

// RefreshRequest carries a refresh token for logout and rotation.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// ForgotPasswordRequest is the body of the forgot-password endpoint.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

// ResetPasswordRequest is the body of the reset-password endpoint.
type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

// VerifyEmailRequest is the body of the verify-email endpoint.
type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required"`
}
