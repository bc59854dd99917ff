package services

import (
	"context"

	"github.com/messmate/messmate_backend/internal/core/domain"
	"github.com/messmate/messmate_backend/internal/dto"
)

// MealSvcFacade records and lists meals.
type MealSvcFacade interface {
	CreateMeals(ctx context.Context, roomID string, req dto.CreateMealRequest, actorID string) ([]domain.Meal, error)
	ListMeals(ctx context.Context, roomID string, periodID *string, userID *string, requestingUserID string) ([]domain.Meal, error)
	DeleteMeal(ctx context.Context, roomID, mealID, actorID string) error
}

// ExpenseSvcFacade manages extra expenses.
type ExpenseSvcFacade interface {
	CreateExpense(ctx context.Context, roomID string, req dto.CreateExpenseRequest, actorID string) (*domain.ExtraExpense, error)
	ListExpenses(ctx context.Context, roomID string, periodID *string, requestingUserID string) ([]domain.ExtraExpense, error)
	UpdateExpense(ctx context.Context, roomID, expenseID string, req dto.UpdateExpenseRequest, actorID string) (*domain.ExtraExpense, error)
	DeleteExpense(ctx context.Context, roomID, expenseID, actorID string) error
}

// ShoppingSvcFacade manages the shopping list.
type ShoppingSvcFacade interface {
	CreateItem(ctx context.Context, roomID string, req dto.CreateShoppingItemRequest, actorID string) (*domain.ShoppingItem, error)
	ListItems(ctx context.Context, roomID string, periodID *string, requestingUserID string) ([]domain.ShoppingItem, error)
	UpdateItem(ctx context.Context, roomID, itemID string, req dto.UpdateShoppingItemRequest, actorID string) (*domain.ShoppingItem, error)
	DeleteItem(ctx context.Context, roomID, itemID, actorID string) error
}

// TransactionSvcFacade manages account transactions and their audit trail.
type TransactionSvcFacade interface {
	CreateTransaction(ctx context.Context, roomID string, req dto.CreateTransactionRequest, actorID string) (*domain.AccountTransaction, error)
	ListTransactions(ctx context.Context, roomID string, periodID *string, requestingUserID string) ([]domain.AccountTransaction, error)
	UpdateTransaction(ctx context.Context, roomID, transactionID string, req dto.UpdateTransactionRequest, actorID string) (*domain.AccountTransaction, error)
	DeleteTransaction(ctx context.Context, roomID, transactionID, actorID string) error
	ListHistory(ctx context.Context, roomID, transactionID, requestingUserID string) ([]domain.TransactionHistory, error)
}
