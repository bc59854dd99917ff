package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/messmate/messmate_backend/internal/apperrors"
	"github.com/messmate/messmate_backend/internal/core/domain"
	portsrepo "github.com/messmate/messmate_backend/internal/core/ports/repositories"
	portssvc "github.com/messmate/messmate_backend/internal/core/ports/services"
	"github.com/messmate/messmate_backend/internal/dto"
	"github.com/messmate/messmate_backend/internal/platform/cache"
)

// roomService implements the RoomSvcFacade interface.
type roomService struct {
	BaseService
	roomRepo portsrepo.RoomRepositoryFacade
	cache    cache.Cache
}

// NewRoomService creates a new room service with the provided dependencies.
func NewRoomService(roomRepo portsrepo.RoomRepositoryFacade, derivedCache cache.Cache) portssvc.RoomSvcFacade {
	if derivedCache == nil {
		derivedCache = cache.Noop{}
	}
	return &roomService{
		roomRepo: roomRepo,
		cache:    derivedCache,
	}
}

var _ portssvc.RoomSvcFacade = (*roomService)(nil)

// AuthorizeUserAction checks if a user has required permissions for a room.
// This is the single authorization gate consulted by every room-scoped command.
func (s *roomService) AuthorizeUserAction(ctx context.Context, userID, roomID string, requiredRole domain.UserRoomRole) error {
	membership, err := s.roomRepo.FindUserRoomRole(ctx, userID, roomID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.LogDebug(ctx, "User not a member of room",
				slog.String("user_id", userID),
				slog.String("room_id", roomID))
			return apperrors.ErrForbidden
		}
		s.LogError(ctx, err, "Failed to find user room role",
			slog.String("user_id", userID),
			slog.String("room_id", roomID))
		return err
	}

	if !domain.HasRequiredRole(membership.Role, requiredRole) {
		s.LogDebug(ctx, "User does not have required role",
			slog.String("user_id", userID),
			slog.String("room_id", roomID),
			slog.String("user_role", string(membership.Role)),
			slog.String("required_role", string(requiredRole)))
		return apperrors.ErrForbidden
	}

	return nil
}

// FindRoomByID retrieves a room by its ID.
func (s *roomService) FindRoomByID(ctx context.Context, roomID string) (*domain.Room, error) {
	room, err := s.roomRepo.FindRoomByID(ctx, roomID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to find room by ID", slog.String("room_id", roomID))
		}
		return nil, err
	}
	return room, nil
}

// ListUserRooms retrieves all rooms a user belongs to.
func (s *roomService) ListUserRooms(ctx context.Context, userID string) ([]domain.Room, error) {
	rooms, err := s.roomRepo.ListRoomsByUserID(ctx, userID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list rooms for user", slog.String("user_id", userID))
		return nil, err
	}
	if rooms == nil {
		return []domain.Room{}, nil
	}
	return rooms, nil
}

// ListRoomMembers retrieves the current members of a room.
func (s *roomService) ListRoomMembers(ctx context.Context, roomID, requestingUserID string) ([]domain.UserRoom, error) {
	if err := s.AuthorizeUserAction(ctx, requestingUserID, roomID, domain.RoleMember); err != nil {
		return nil, err
	}
	members, err := s.roomRepo.ListUsersByRoomID(ctx, roomID, false)
	if err != nil {
		s.LogError(ctx, err, "Failed to list room members", slog.String("room_id", roomID))
		return nil, err
	}
	return members, nil
}

// CreateRoom creates a new room and adds the creator as its admin.
func (s *roomService) CreateRoom(ctx context.Context, req dto.CreateRoomRequest, creatorUserID string) (*domain.Room, error) {
	now := time.Now().UTC()

	periodMode := domain.PeriodModeMonthly
	if req.PeriodMode != "" {
		periodMode = domain.PeriodMode(req.PeriodMode)
	}
	carryPolicy := domain.CarryBalance
	if req.CarryPolicy != "" {
		carryPolicy = domain.CarryPolicy(req.CarryPolicy)
	}

	room := domain.Room{
		RoomID:      uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		PeriodMode:  periodMode,
		CarryPolicy: carryPolicy,
		IsActive:    true,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     creatorUserID,
			LastUpdatedAt: now,
			LastUpdatedBy: creatorUserID,
		},
	}

	if err := s.roomRepo.SaveRoom(ctx, room); err != nil {
		s.LogError(ctx, err, "Failed to save room", slog.String("room_id", room.RoomID))
		return nil, err
	}

	membership := domain.UserRoom{
		UserID:   creatorUserID,
		RoomID:   room.RoomID,
		Role:     domain.RoleAdmin,
		JoinedAt: now,
	}
	if err := s.roomRepo.AddUserToRoom(ctx, membership); err != nil {
		s.LogError(ctx, err, "Failed to add creator as admin to new room",
			slog.String("room_id", room.RoomID),
			slog.String("user_id", creatorUserID))
		return nil, err
	}

	s.LogInfo(ctx, "Room created successfully",
		slog.String("room_id", room.RoomID),
		slog.String("creator_id", creatorUserID))
	return &room, nil
}

// UpdateRoomSettings changes a room's name, period mode or carry policy.
// Requires the admin role.
func (s *roomService) UpdateRoomSettings(ctx context.Context, roomID string, req dto.UpdateRoomSettingsRequest, actorID string) (*domain.Room, error) {
	if err := s.AuthorizeUserAction(ctx, actorID, roomID, domain.RoleAdmin); err != nil {
		return nil, err
	}

	room, err := s.roomRepo.FindRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		room.Name = *req.Name
	}
	if req.Description != nil {
		room.Description = *req.Description
	}
	if req.PeriodMode != nil {
		room.PeriodMode = domain.PeriodMode(*req.PeriodMode)
	}
	if req.CarryPolicy != nil {
		room.CarryPolicy = domain.CarryPolicy(*req.CarryPolicy)
	}
	room.LastUpdatedAt = time.Now().UTC()
	room.LastUpdatedBy = actorID

	if err := s.roomRepo.UpdateRoomSettings(ctx, *room); err != nil {
		s.LogError(ctx, err, "Failed to update room settings", slog.String("room_id", roomID))
		return nil, err
	}

	// Settings influence derived data (carry policy, period mode), so drop the
	// room's cached aggregates.
	s.cache.Invalidate(ctx, cache.RoomTag(roomID))

	s.LogInfo(ctx, "Room settings updated", slog.String("room_id", roomID))
	return room, nil
}

// AddUserToRoom adds a user to a room with a specific role. Self-assignment is
// permitted only for the room creator bootstrapping; everyone else needs admin.
func (s *roomService) AddUserToRoom(ctx context.Context, addingUserID, targetUserID, roomID string, role domain.UserRoomRole) error {
	if err := s.AuthorizeUserAction(ctx, addingUserID, roomID, domain.RoleAdmin); err != nil {
		s.LogWarn(ctx, "User not authorized to add members to room",
			slog.String("adding_user_id", addingUserID),
			slog.String("room_id", roomID))
		return err
	}

	membership := domain.UserRoom{
		UserID:   targetUserID,
		RoomID:   roomID,
		Role:     role,
		JoinedAt: time.Now().UTC(),
	}
	if err := s.roomRepo.AddUserToRoom(ctx, membership); err != nil {
		s.LogError(ctx, err, "Failed to add user to room",
			slog.String("target_user_id", targetUserID),
			slog.String("room_id", roomID))
		return err
	}

	// Member count feeds group summaries.
	s.cache.Invalidate(ctx, cache.RoomTag(roomID))

	s.LogInfo(ctx, "User added to room",
		slog.String("target_user_id", targetUserID),
		slog.String("room_id", roomID),
		slog.String("role", string(role)))
	return nil
}

// RemoveUserFromRoom marks a membership as removed. The user's ledger rows are
// retained for historical reconciliation.
func (s *roomService) RemoveUserFromRoom(ctx context.Context, removingUserID, targetUserID, roomID string) error {
	if err := s.AuthorizeUserAction(ctx, removingUserID, roomID, domain.RoleAdmin); err != nil {
		return err
	}

	membership := domain.UserRoom{
		UserID:   targetUserID,
		RoomID:   roomID,
		Role:     domain.RoleRemoved,
		JoinedAt: time.Now().UTC(),
	}
	if err := s.roomRepo.AddUserToRoom(ctx, membership); err != nil {
		s.LogError(ctx, err, "Failed to remove user from room",
			slog.String("target_user_id", targetUserID),
			slog.String("room_id", roomID))
		return err
	}

	s.cache.Invalidate(ctx, cache.RoomTag(roomID), cache.UserTag(roomID, targetUserID))

	s.LogInfo(ctx, "User removed from room",
		slog.String("target_user_id", targetUserID),
		slog.String("room_id", roomID))
	return nil
}
