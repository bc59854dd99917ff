package services

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/messmate/messmate_backend/internal/core/domain"
)

// SummarySvcFacade is the financial aggregation engine. Results are pure
// functions of ledger state: empty scopes yield zero-valued summaries and no
// division ever raises on a zero denominator. A nil periodID means room-wide
// scope. Every read checks that requestingUserID is a member of the room.
type SummarySvcFacade interface {
	CalculateMealRate(ctx context.Context, roomID string, periodID *string, requestingUserID string) (*domain.MealRateSummary, error)
	CalculateBalance(ctx context.Context, userID, roomID string, periodID *string, requestingUserID string) (decimal.Decimal, error)
	CalculateUserMealCount(ctx context.Context, userID, roomID string, periodID *string, requestingUserID string) (int64, error)
	CalculateAvailableBalance(ctx context.Context, userID, roomID string, periodID *string, requestingUserID string) (*domain.AvailableBalance, error)
	GetGroupBalanceSummary(ctx context.Context, roomID, requestingUserID string, detailed bool) (*domain.GroupBalanceSummary, error)
	// CalculateClosingBalance returns the period's closing figure under the
	// given carry policy; used by period restart and monthly rollover.
	CalculateClosingBalance(ctx context.Context, roomID, periodID string, policy domain.CarryPolicy) (decimal.Decimal, error)
	// BuildPeriodSummary assembles the full financial picture of one period.
	// Authorization and ownership checks belong to the caller.
	BuildPeriodSummary(ctx context.Context, room domain.Room, period domain.Period) (*domain.PeriodSummary, error)
}
