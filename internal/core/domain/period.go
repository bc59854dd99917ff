package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PeriodStatus indicates where a period sits in its lifecycle.
type PeriodStatus string

const (
	PeriodActive   PeriodStatus = "ACTIVE"
	PeriodEnded    PeriodStatus = "ENDED"
	PeriodLocked   PeriodStatus = "LOCKED"
	PeriodArchived PeriodStatus = "ARCHIVED"
)

// periodTransitions lists the allowed status transitions. Unlock targets are
// validated separately because the caller supplies the target status.
var periodTransitions = map[PeriodStatus][]PeriodStatus{
	PeriodActive: {PeriodEnded},
	PeriodEnded:  {PeriodLocked, PeriodArchived},
	PeriodLocked: {PeriodEnded, PeriodArchived},
}

// CanTransition reports whether a period may move from one status to another.
func CanTransition(from, to PeriodStatus) bool {
	for _, t := range periodTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Period represents a bounded accounting window for a room. All meal-rate and
// balance math is scoped to a period once one exists.
type Period struct {
	PeriodID       string          `json:"periodID"` // Primary Key (UUID)
	RoomID         string          `json:"roomID"`   // FK -> rooms.room_id
	Name           string          `json:"name"`
	Status         PeriodStatus    `json:"status"`
	StartDate      time.Time       `json:"startDate"`
	EndDate        *time.Time      `json:"endDate"` // Nil while the period is open
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	CarryForward   bool            `json:"carryForward"` // Opening balance was carried from a prior period
	Notes          string          `json:"notes"`
	AuditFields
}

// IsLocked reports whether ledger rows scoped to this period are immutable.
func (p Period) IsLocked() bool {
	return p.Status == PeriodLocked || p.Status == PeriodArchived
}
