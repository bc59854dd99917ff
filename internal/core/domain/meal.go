package domain

import "time"

// MealType identifies which meal of the day a row records.
type MealType string

const (
	MealBreakfast MealType = "BREAKFAST"
	MealLunch     MealType = "LUNCH"
	MealDinner    MealType = "DINNER"
	MealGuest     MealType = "GUEST"
)

// Meal is a single consumed meal unit. The meal rate divides period expenses by
// the count of these rows, so one row is exactly one meal.
type Meal struct {
	MealID   string    `json:"mealID"` // Primary Key (UUID)
	RoomID   string    `json:"roomID"` // FK -> rooms.room_id
	PeriodID *string   `json:"periodID"`
	UserID   string    `json:"userID"` // The member who ate the meal
	Date     time.Time `json:"date"`
	Type     MealType  `json:"type"`
	AuditFields
}
