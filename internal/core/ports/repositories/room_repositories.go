package repositories

import (
	"context"

	"github.com/messmate/messmate_backend/internal/core/domain"
)

// RoomReader provides read access to rooms and memberships.
type RoomReader interface {
	FindRoomByID(ctx context.Context, roomID string) (*domain.Room, error)
	ListRoomsByUserID(ctx context.Context, userID string) ([]domain.Room, error)
	FindUserRoomRole(ctx context.Context, userID, roomID string) (*domain.UserRoom, error)
	ListUsersByRoomID(ctx context.Context, roomID string, includeRemoved bool) ([]domain.UserRoom, error)
}

// RoomWriter provides write access to rooms and memberships.
type RoomWriter interface {
	SaveRoom(ctx context.Context, room domain.Room) error
	UpdateRoomSettings(ctx context.Context, room domain.Room) error
	AddUserToRoom(ctx context.Context, membership domain.UserRoom) error
}

// RoomRepositoryFacade is the full room repository surface.
type RoomRepositoryFacade interface {
	RoomReader
	RoomWriter
}
