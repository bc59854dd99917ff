package repositories

import (
	"context"

	"github.com/shopspring/decimal"
)

// TransactionTotals splits a scope's transaction volume into deposits
// (sender == target) and member-to-member transfers.
type TransactionTotals struct {
	Deposited   decimal.Decimal
	Transferred decimal.Decimal
}

// SummaryRepositoryFacade exposes the aggregate queries behind the financial
// aggregation engine. A nil periodID means room-wide scope. Empty scopes yield
// zero values, never errors.
type SummaryRepositoryFacade interface {
	// GetMealStats returns the meal count and extra-expense total for a scope.
	GetMealStats(ctx context.Context, roomID string, periodID *string) (totalMeals int64, totalExpenses decimal.Decimal, err error)
	// GetUserBalance sums transaction amounts credited to userID in the scope.
	GetUserBalance(ctx context.Context, userID, roomID string, periodID *string) (decimal.Decimal, error)
	// GetUserMealCount counts the user's meal rows in the scope.
	GetUserMealCount(ctx context.Context, userID, roomID string, periodID *string) (int64, error)
	// GetBalancesByUser returns per-user credited totals for the whole room scope.
	GetBalancesByUser(ctx context.Context, roomID string, periodID *string) (map[string]decimal.Decimal, error)
	// GetMealCountsByUser returns per-user meal counts for the whole room scope.
	GetMealCountsByUser(ctx context.Context, roomID string, periodID *string) (map[string]int64, error)
	// GetTransactionTotals returns the deposit/transfer volume split for a scope.
	GetTransactionTotals(ctx context.Context, roomID string, periodID *string) (TransactionTotals, error)
}
