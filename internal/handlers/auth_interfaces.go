// Package handlers provides HTTP request handlers for the hyperauth API.
package handlers

import (
	"context"

	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/models"
)

// AuthServiceInterface defines the methods required from the authentication service.
// Every error returned carries a utils.Kind that decides the response status.
type AuthServiceInterface interface {
	// Register creates an account and returns it without the password digest.
	Register(ctx context.Context, reg *models.UserRegistration) (*models.User, error)

	// Login exchanges credentials for an access and refresh token pair.
	Login(ctx context.Context, creds *models.UserCredentials) (*models.TokenPair, error)

	// Logout revokes a refresh token. Already revoked tokens succeed.
	Logout(ctx context.Context, refreshToken string) error

	// RefreshTokens consumes a refresh token and returns a new pair.
	RefreshTokens(ctx context.Context, refreshToken string) (*models.TokenPair, error)

	// ForgotPassword sends a reset token. It succeeds for unknown emails.
	ForgotPassword(ctx context.Context, email string) error

	// ResetPassword consumes a reset token and replaces the password.
	ResetPassword(ctx context.Context, token, newPassword string) error

	// SendVerificationEmail sends a verification token to the user.
	SendVerificationEmail(ctx context.Context, userID string) error

	// VerifyEmail consumes a verification token and marks the email verified.
	VerifyEmail(ctx context.Context, token string) error
}
