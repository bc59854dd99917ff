package repositories

import (
	"context"

	"github.com/messmate/messmate_backend/internal/core/domain"
)

// Every ledger write re-validates the target period's lock status inside the
// same store transaction as the mutation; a locked or archived period surfaces
// as apperrors.ErrConflict and nothing is written.

// MealRepositoryFacade is the meal ledger surface.
type MealRepositoryFacade interface {
	SaveMeal(ctx context.Context, meal domain.Meal) error
	SaveMeals(ctx context.Context, meals []domain.Meal) error
	FindMealByID(ctx context.Context, mealID string) (*domain.Meal, error)
	ListMeals(ctx context.Context, roomID string, periodID *string, userID *string) ([]domain.Meal, error)
	DeleteMeal(ctx context.Context, meal domain.Meal) error
}

// ExpenseRepositoryFacade is the extra-expense ledger surface.
type ExpenseRepositoryFacade interface {
	SaveExpense(ctx context.Context, expense domain.ExtraExpense) error
	FindExpenseByID(ctx context.Context, expenseID string) (*domain.ExtraExpense, error)
	ListExpenses(ctx context.Context, roomID string, periodID *string) ([]domain.ExtraExpense, error)
	UpdateExpense(ctx context.Context, expense domain.ExtraExpense) error
	DeleteExpense(ctx context.Context, expense domain.ExtraExpense) error
}

// ShoppingRepositoryFacade is the shopping-list surface.
type ShoppingRepositoryFacade interface {
	SaveItem(ctx context.Context, item domain.ShoppingItem) error
	FindItemByID(ctx context.Context, itemID string) (*domain.ShoppingItem, error)
	ListItems(ctx context.Context, roomID string, periodID *string) ([]domain.ShoppingItem, error)
	UpdateItem(ctx context.Context, item domain.ShoppingItem) error
	DeleteItem(ctx context.Context, item domain.ShoppingItem) error
	// ListRecurringItems returns the recurring items of a period for re-seeding
	// into a restarted period.
	ListRecurringItems(ctx context.Context, periodID string) ([]domain.ShoppingItem, error)
}

// TransactionRepositoryFacade is the account-transaction surface. Each mutation
// appends its TransactionHistory row in the same store transaction, so a crash
// can never leave one without the other.
type TransactionRepositoryFacade interface {
	SaveTransaction(ctx context.Context, txn domain.AccountTransaction) error
	FindTransactionByID(ctx context.Context, transactionID string) (*domain.AccountTransaction, error)
	ListTransactions(ctx context.Context, roomID string, periodID *string) ([]domain.AccountTransaction, error)
	// UpdateTransaction persists txn and appends an UPDATE history row
	// snapshotting prev.
	UpdateTransaction(ctx context.Context, txn domain.AccountTransaction, prev domain.AccountTransaction, actorID string) error
	// DeleteTransaction removes txn and appends a DELETE history row
	// snapshotting it.
	DeleteTransaction(ctx context.Context, txn domain.AccountTransaction, actorID string) error
	ListHistory(ctx context.Context, transactionID string) ([]domain.TransactionHistory, error)
}
