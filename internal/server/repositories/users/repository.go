// Package users persists account and profile rows for the auth and profile
// services.
package users

import (
	"context"

	"github.com/simvex/simvex-server/internal/server/models"
)

type Repository interface {
	// Create inserts the user and an initial profile row in one
	// transaction. A taken email or personal id yields common.ErrorConflict.
	Create(ctx context.Context, user *models.User, nickname string) (*models.User, error)

	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)

	UpdateLastLogin(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateProfile(ctx context.Context, userID string, update models.ProfileUpdate) (*models.Profile, error)
}
