package domain

import "github.com/shopspring/decimal"

// MealRateSummary is the group-wide rate figure for a (room, period) scope.
type MealRateSummary struct {
	MealRate      decimal.Decimal `json:"mealRate"`
	TotalMeals    int64           `json:"totalMeals"`
	TotalExpenses decimal.Decimal `json:"totalExpenses"`
}

// AvailableBalance is what a single member sees as "what I can still spend".
type AvailableBalance struct {
	UserID           string          `json:"userID"`
	Balance          decimal.Decimal `json:"balance"`
	MealCount        int64           `json:"mealCount"`
	MealRate         decimal.Decimal `json:"mealRate"`
	TotalSpent       decimal.Decimal `json:"totalSpent"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
}

// MemberBalance is one row of the detailed group breakdown.
type MemberBalance struct {
	UserID           string          `json:"userID"`
	UserName         string          `json:"userName"`
	Role             UserRoomRole    `json:"role"`
	Balance          decimal.Decimal `json:"balance"`
	MealCount        int64           `json:"mealCount"`
	TotalSpent       decimal.Decimal `json:"totalSpent"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
}

// GroupBalanceSummary aggregates rate and balance figures for a whole room.
// Members is only populated when a detailed summary was requested.
type GroupBalanceSummary struct {
	RoomID           string          `json:"roomID"`
	PeriodID         *string         `json:"periodID"`
	MealRate         decimal.Decimal `json:"mealRate"`
	TotalMeals       int64           `json:"totalMeals"`
	TotalExpenses    decimal.Decimal `json:"totalExpenses"`
	TotalDeposited   decimal.Decimal `json:"totalDeposited"`   // Self-credits only
	TotalTransferred decimal.Decimal `json:"totalTransferred"` // Member-to-member movements only
	MemberCount      int             `json:"memberCount"`
	Members          []MemberBalance `json:"members,omitempty"`
}

// PeriodSummary is the full financial picture of one period, including the
// carry figures shown when closing or restarting it.
type PeriodSummary struct {
	Period         Period          `json:"period"`
	MealRate       decimal.Decimal `json:"mealRate"`
	TotalMeals     int64           `json:"totalMeals"`
	TotalExpenses  decimal.Decimal `json:"totalExpenses"`
	TotalCredits   decimal.Decimal `json:"totalCredits"` // All transaction credits in the period
	OpeningBalance decimal.Decimal `json:"openingBalance"`
	ClosingBalance decimal.Decimal `json:"closingBalance"` // Opening + credits - imputed meal spend
	MemberCount    int             `json:"memberCount"`
}
