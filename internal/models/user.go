package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/constants"
)

// User represents a registered account.
// The password digest never leaves the server: it is excluded from JSON and
// blanked by Sanitize before a user is handed to a response.
type User struct {
	ID           string    `json:"id" db:"user_id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	Verified     bool      `json:"verified" db:"verified"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// NewUser creates a user with a fresh identifier and the default role.
// The password digest is set by the caller after hashing.
func NewUser(email, name string) *User {
	now := time.Now().UTC()
	return &User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		Role:      constants.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TableName returns the database table name for the User model.
func (u *User) TableName() string {
	return constants.TableUsers
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == constants.RoleAdmin
}

// Sanitize returns a copy without the password digest.
func (u *User) Sanitize() *User {
	sanitized := *u
	sanitized.PasswordHash = ""
	return &sanitized
}

// UserRegistration is the body of the register endpoint.
type UserRegistration struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=128"`
	Name     string `json:"name" validate:"required,notblank,max=100"`
}

// UserCredentials is the body of the login endpoint. The password has no
// length rule so that a wrong password is an authentication failure and not
// a validation failure.
type UserCredentials struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=128"`
}

// UserCreate is the admin body for creating a user directly.
type UserCreate struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=128"`
	Name     string `json:"name" validate:"required,notblank,max=100"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
}

// UserUpdate holds the mutable profile fields. Nil means unchanged.
type UserUpdate struct {
	Name  *string `json:"name" validate:"omitempty,notblank,max=100"`
	Email *string `json:"email" validate:"omitempty,email,max=255"`
}
