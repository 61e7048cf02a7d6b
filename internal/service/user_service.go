package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/auth"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/models"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/utils"
)

// UserRepository is the user collection as seen by account management.
type UserRepository interface {
	UserStore
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
}

// TokenRevoker revokes every active token of a user.
type TokenRevoker interface {
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)
}

// UserService handles user-related operations
type UserService struct {
	users  UserRepository
	tokens TokenRevoker
	hasher *auth.PasswordHasher
}

// NewUserService creates a new UserService
func NewUserService(users UserRepository, tokens TokenRevoker, hasher *auth.PasswordHasher) *UserService {
	return &UserService{
		users:  users,
		tokens: tokens,
		hasher: hasher,
	}
}

// GetCurrentUser returns the authenticated user
func (s *UserService) GetCurrentUser(ctx context.Context, actorID string) (*models.User, error) {
	user, err := s.users.FindByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return user.Sanitize(), nil
}

// GetUser returns a user to its owner or to an admin
func (s *UserService) GetUser(ctx context.Context, actorID, id string) (*models.User, error) {
	if err := s.authorize(ctx, actorID, id); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return user.Sanitize(), nil
}

// CreateUser lets an admin create an account directly
func (s *UserService) CreateUser(ctx context.Context, actorID string, req *models.UserCreate) (*models.User, error) {
	actor, err := s.users.FindByID(ctx, actorID)
	if err != nil {
		if utils.IsNotFoundError(err) {
			return nil, utils.NewForbiddenError("")
		}
		return nil, err
	}
	if !actor.IsAdmin() {
		return nil, utils.NewForbiddenError("")
	}

	email := utils.NormalizeEmail(req.Email)
	if err := s.ensureEmailFree(ctx, email); err != nil {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, utils.NewInternalServerError(err)
	}

	user := models.NewUser(email, strings.TrimSpace(req.Name))
	user.PasswordHash = passwordHash
	if req.Role != "" {
		user.Role = req.Role
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	log.Info().
		Str("user_id", user.ID).
		Str("created_by", actorID).
		Str("role", user.Role).
		Msg("User created")

	return user.Sanitize(), nil
}

// UpdateUser changes the profile fields that are set in the update.
// Changing the email clears the verified flag.
func (s *UserService) UpdateUser(ctx context.Context, actorID, id string, update *models.UserUpdate) (*models.User, error) {
	if err := s.authorize(ctx, actorID, id); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := false

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name != user.Name {
			user.Name = name
			changes = true
		}
	}

	if update.Email != nil {
		email := utils.NormalizeEmail(*update.Email)
		if email != user.Email {
			if err := s.ensureEmailFree(ctx, email); err != nil {
				return nil, err
			}
			user.Email = email
			user.Verified = false
			changes = true
		}
	}

	if !changes {
		return user.Sanitize(), nil
	}

	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	return user.Sanitize(), nil
}

// DeleteUser revokes the user's tokens and removes the account
func (s *UserService) DeleteUser(ctx context.Context, actorID, id string) error {
	if err := s.authorize(ctx, actorID, id); err != nil {
		return err
	}

	if _, err := s.users.FindByID(ctx, id); err != nil {
		return err
	}

	revoked, err := s.tokens.RevokeAllForUser(ctx, id)
	if err != nil {
		return err
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}

	log.Info().
		Str("user_id", id).
		Str("deleted_by", actorID).
		Int64("tokens_revoked", revoked).
		Msg("User deleted")

	return nil
}

// authorize lets users act on themselves and admins act on anyone
func (s *UserService) authorize(ctx context.Context, actorID, targetID string) error {
	if actorID == targetID {
		return nil
	}

	actor, err := s.users.FindByID(ctx, actorID)
	if err != nil {
		if utils.IsNotFoundError(err) {
			return utils.NewForbiddenError("")
		}
		return err
	}

	if !actor.IsAdmin() {
		return utils.NewForbiddenError("")
	}
	return nil
}

func (s *UserService) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return utils.NewDuplicateEmailError()
	}
	if utils.IsNotFoundError(err) {
		return nil
	}
	return err
}
