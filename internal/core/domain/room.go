package domain

import "time"

// PeriodMode controls how accounting periods are opened for a room.
type PeriodMode string

const (
	// PeriodModeMonthly rooms get a fresh period auto-created each calendar month.
	PeriodModeMonthly PeriodMode = "MONTHLY"
	// PeriodModeManual rooms only get periods through an explicit start action.
	PeriodModeManual PeriodMode = "MANUAL"
)

// CarryPolicy selects which figure is carried into a restarted period's opening balance.
type CarryPolicy string

const (
	// CarryBalance carries the gross credited balance.
	CarryBalance CarryPolicy = "BALANCE"
	// CarryAvailable carries the balance net of imputed meal spend.
	CarryAvailable CarryPolicy = "AVAILABLE"
)

// Room represents a shared household whose meals, expenses and transfers are tracked together.
type Room struct {
	RoomID      string      `json:"roomID"` // Primary Key (UUID)
	Name        string      `json:"name"`
	Description string      `json:"description"`
	PeriodMode  PeriodMode  `json:"periodMode"`
	CarryPolicy CarryPolicy `json:"carryPolicy"`
	IsActive    bool        `json:"isActive"`
	AuditFields
}

// UserRoomRole defines the possible roles a user can have within a room.
type UserRoomRole string

const (
	RoleAdmin   UserRoomRole = "ADMIN"
	RoleManager UserRoomRole = "MANAGER" // Can run period lifecycle and edit others' ledger rows
	RoleMember  UserRoomRole = "MEMBER"
	RoleRemoved UserRoomRole = "REMOVED" // For users who have been removed from the room
)

// UserRoom represents the membership of a User in a Room.
type UserRoom struct {
	UserID   string       `json:"userID"`   // FK -> users.user_id
	UserName string       `json:"userName"` // Display name of the user
	RoomID   string       `json:"roomID"`   // FK -> rooms.room_id
	Role     UserRoomRole `json:"role"`
	JoinedAt time.Time    `json:"joinedAt"`
}

// HasRequiredRole reports whether role meets or exceeds requiredRole in the
// ADMIN > MANAGER > MEMBER hierarchy. REMOVED never qualifies.
func HasRequiredRole(role, requiredRole UserRoomRole) bool {
	switch requiredRole {
	case RoleMember:
		return role == RoleMember || role == RoleManager || role == RoleAdmin
	case RoleManager:
		return role == RoleManager || role == RoleAdmin
	case RoleAdmin:
		return role == RoleAdmin
	default:
		return false
	}
}
