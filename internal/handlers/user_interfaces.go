package handlers

import (
	"context"

	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/models"
)

// UserServiceInterface defines the methods required from the user service.
// actorID is always the authenticated caller.
type UserServiceInterface interface {
	GetCurrentUser(ctx context.Context, actorID string) (*models.User, error)
	GetUser(ctx context.Context, actorID, id string) (*models.User, error)
	CreateUser(ctx context.Context, actorID string, req *models.UserCreate) (*models.User, error)
	UpdateUser(ctx context.Context, actorID, id string, update *models.UserUpdate) (*models.User, error)
	DeleteUser(ctx context.Context, actorID, id string) error
}
