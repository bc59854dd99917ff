package dto

import (
	"time"

	"github.com/messmate/messmate_backend/internal/core/domain"
)

// CreateRoomRequest is the payload for creating a room.
type CreateRoomRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Description string `json:"description" binding:"max=500"`
	PeriodMode  string `json:"periodMode" binding:"omitempty,oneof=MONTHLY MANUAL"`
	CarryPolicy string `json:"carryPolicy" binding:"omitempty,carrypolicy"`
}

// UpdateRoomSettingsRequest changes a room's period mode or carry policy.
type UpdateRoomSettingsRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	PeriodMode  *string `json:"periodMode" binding:"omitempty,oneof=MONTHLY MANUAL"`
	CarryPolicy *string `json:"carryPolicy" binding:"omitempty,carrypolicy"`
}

// AddMemberRequest adds a user to a room with a role.
type AddMemberRequest struct {
	UserID string `json:"userID" binding:"required,uuid"`
	Role   string `json:"role" binding:"required,oneof=ADMIN MANAGER MEMBER"`
}

// RoomResponse is the API shape of a room.
type RoomResponse struct {
	RoomID      string    `json:"roomID"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PeriodMode  string    `json:"periodMode"`
	CarryPolicy string    `json:"carryPolicy"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ToRoomResponse maps a domain room to its API shape.
func ToRoomResponse(r domain.Room) RoomResponse {
	return RoomResponse{
		RoomID:      r.RoomID,
		Name:        r.Name,
		Description: r.Description,
		PeriodMode:  string(r.PeriodMode),
		CarryPolicy: string(r.CarryPolicy),
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt,
	}
}

// MemberResponse is the API shape of a room membership.
type MemberResponse struct {
	UserID   string    `json:"userID"`
	UserName string    `json:"userName"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

// ToMemberResponse maps a membership to its API shape.
func ToMemberResponse(m domain.UserRoom) MemberResponse {
	return MemberResponse{
		UserID:   m.UserID,
		UserName: m.UserName,
		Role:     string(m.Role),
		JoinedAt: m.JoinedAt,
	}
}
