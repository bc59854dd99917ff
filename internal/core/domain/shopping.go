package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ShoppingItem is a planned or completed bazar entry. Items never enter the
// meal-rate math; purchased items are usually mirrored by an ExtraExpense.
type ShoppingItem struct {
	ItemID        string          `json:"itemID"` // Primary Key (UUID)
	RoomID        string          `json:"roomID"` // FK -> rooms.room_id
	PeriodID      *string         `json:"periodID"`
	UserID        string          `json:"userID"` // The member responsible for buying
	Name          string          `json:"name"`
	Quantity      string          `json:"quantity"` // Free text, e.g. "2 kg"
	EstimatedCost decimal.Decimal `json:"estimatedCost"`
	Purchased     bool            `json:"purchased"`
	Recurring     bool            `json:"recurring"` // Re-seeded into the next period on restart
	Date          time.Time       `json:"date"`
	AuditFields
}
