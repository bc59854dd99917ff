package services

import (
	"context"

	"github.com/messmate/messmate_backend/internal/core/domain"
	"github.com/messmate/messmate_backend/internal/dto"
)

// RoomAuthorizerSvc is the single authorization gate consulted before any
// room-scoped command. It returns apperrors.ErrForbidden when the user is not a
// member or lacks the required role.
type RoomAuthorizerSvc interface {
	AuthorizeUserAction(ctx context.Context, userID, roomID string, requiredRole domain.UserRoomRole) error
}

// RoomReaderSvc provides read access to rooms and memberships.
type RoomReaderSvc interface {
	FindRoomByID(ctx context.Context, roomID string) (*domain.Room, error)
	ListUserRooms(ctx context.Context, userID string) ([]domain.Room, error)
	ListRoomMembers(ctx context.Context, roomID, requestingUserID string) ([]domain.UserRoom, error)
}

// RoomSvcFacade is the full room service surface.
type RoomSvcFacade interface {
	RoomAuthorizerSvc
	RoomReaderSvc
	CreateRoom(ctx context.Context, req dto.CreateRoomRequest, creatorUserID string) (*domain.Room, error)
	UpdateRoomSettings(ctx context.Context, roomID string, req dto.UpdateRoomSettingsRequest, actorID string) (*domain.Room, error)
	AddUserToRoom(ctx context.Context, addingUserID, targetUserID, roomID string, role domain.UserRoomRole) error
	RemoveUserFromRoom(ctx context.Context, removingUserID, targetUserID, roomID string) error
}
