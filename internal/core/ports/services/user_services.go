package services

import (
	"context"

	"github.com/messmate/messmate_backend/internal/core/domain"
	"github.com/messmate/messmate_backend/internal/dto"
)

// UserSvcFacade is the thin user/auth collaborator. Identity resolution beyond
// this boundary (sessions, OAuth) is out of scope.
type UserSvcFacade interface {
	Register(ctx context.Context, req dto.RegisterRequest) (*domain.User, error)
	// Authenticate verifies credentials and returns the user, or
	// apperrors.ErrUnauthorized on any mismatch.
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	FindUserByID(ctx context.Context, userID string) (*domain.User, error)
}
