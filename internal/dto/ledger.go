package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateMealRequest records meals for a member. UserID defaults to the caller;
// recording for someone else requires the manager role. Count > 1 records the
// same meal type that many times (e.g. guest meals).
type CreateMealRequest struct {
	UserID string    `json:"userID" binding:"omitempty,uuid"`
	Date   time.Time `json:"date" binding:"required"`
	Type   string    `json:"type" binding:"required,oneof=BREAKFAST LUNCH DINNER GUEST"`
	Count  int       `json:"count" binding:"omitempty,min=1,max=20"`
}

// CreateExpenseRequest records a shared expense.
type CreateExpenseRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Description string          `json:"description" binding:"required,max=500"`
	Category    string          `json:"category" binding:"omitempty,oneof=GROCERY UTILITY OTHER"`
	Date        time.Time       `json:"date" binding:"required"`
}

// UpdateExpenseRequest edits a shared expense.
type UpdateExpenseRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	Description *string          `json:"description" binding:"omitempty,max=500"`
	Category    *string          `json:"category" binding:"omitempty,oneof=GROCERY UTILITY OTHER"`
	Date        *time.Time       `json:"date"`
}

// CreateShoppingItemRequest adds an item to the room's shopping list.
type CreateShoppingItemRequest struct {
	Name          string          `json:"name" binding:"required,max=200"`
	Quantity      string          `json:"quantity" binding:"max=50"`
	EstimatedCost decimal.Decimal `json:"estimatedCost"`
	Recurring     bool            `json:"recurring"`
	Date          time.Time       `json:"date" binding:"required"`
}

// UpdateShoppingItemRequest edits a shopping item, typically to mark it purchased.
type UpdateShoppingItemRequest struct {
	Name          *string          `json:"name" binding:"omitempty,max=200"`
	Quantity      *string          `json:"quantity" binding:"omitempty,max=50"`
	EstimatedCost *decimal.Decimal `json:"estimatedCost"`
	Purchased     *bool            `json:"purchased"`
	Recurring     *bool            `json:"recurring"`
}

// CreateTransactionRequest records a monetary movement. Omitting TargetID
// records a deposit (sender credits themselves).
type CreateTransactionRequest struct {
	TargetID    string          `json:"targetID" binding:"omitempty,uuid"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	Type        string          `json:"type" binding:"required,oneof=DEPOSIT TRANSFER ADJUSTMENT"`
	Description string          `json:"description" binding:"max=500"`
}

// UpdateTransactionRequest edits a transaction; the previous state is
// snapshotted into the audit trail.
type UpdateTransactionRequest struct {
	Amount      *decimal.Decimal `json:"amount"`
	Type        *string          `json:"type" binding:"omitempty,oneof=DEPOSIT TRANSFER ADJUSTMENT"`
	Description *string          `json:"description" binding:"omitempty,max=500"`
}
