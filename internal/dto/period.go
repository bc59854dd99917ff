package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// StartPeriodRequest is the payload for explicitly starting a period.
type StartPeriodRequest struct {
	Name           string          `json:"name" binding:"required,min=1,max=100"`
	StartDate      time.Time       `json:"startDate" binding:"required"`
	EndDate        *time.Time      `json:"endDate"`
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	CarryForward   bool            `json:"carryForward"`
	Notes          string          `json:"notes" binding:"max=1000"`
}

// EndPeriodRequest closes a period. PeriodID defaults to the room's ACTIVE
// period and EndDate defaults to now.
type EndPeriodRequest struct {
	PeriodID *string    `json:"periodID" binding:"omitempty,uuid"`
	EndDate  *time.Time `json:"endDate"`
}

// UnlockPeriodRequest reverts a locking mistake; TargetStatus is normally ENDED.
type UnlockPeriodRequest struct {
	TargetStatus string `json:"targetStatus" binding:"required,oneof=ENDED ARCHIVED"`
}

// RestartPeriodRequest archives a period and opens its successor.
type RestartPeriodRequest struct {
	NewName              string `json:"newName" binding:"omitempty,min=1,max=100"`
	WithCarryForwardData bool   `json:"withCarryForwardData"`
}
