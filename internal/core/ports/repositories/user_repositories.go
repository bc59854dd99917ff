package repositories

import (
	"context"

	"github.com/messmate/messmate_backend/internal/core/domain"
)

// UserRepositoryFacade is the user repository surface.
type UserRepositoryFacade interface {
	SaveUser(ctx context.Context, user domain.User) error
	FindUserByID(ctx context.Context, userID string) (*domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
}
