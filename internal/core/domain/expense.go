package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseCategory groups extra expenses for reporting.
type ExpenseCategory string

const (
	ExpenseGrocery ExpenseCategory = "GROCERY"
	ExpenseUtility ExpenseCategory = "UTILITY"
	ExpenseOther   ExpenseCategory = "OTHER"
)

// ExtraExpense is a shared cost that feeds the meal rate numerator.
// Amounts are signed; a negative amount is a correction and is preserved as-is.
type ExtraExpense struct {
	ExpenseID   string          `json:"expenseID"` // Primary Key (UUID)
	RoomID      string          `json:"roomID"`    // FK -> rooms.room_id
	PeriodID    *string         `json:"periodID"`
	UserID      string          `json:"userID"` // The member who paid
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Category    ExpenseCategory `json:"category"`
	Date        time.Time       `json:"date"`
	AuditFields
}
