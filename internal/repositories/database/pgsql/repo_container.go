package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"

	portsrepo "github.com/messmate/messmate_backend/internal/core/ports/repositories"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		RoomRepo:        newPgxRoomRepository(dbPool),
		UserRepo:        newPgxUserRepository(dbPool),
		PeriodRepo:      newPgxPeriodRepository(dbPool),
		MealRepo:        newPgxMealRepository(dbPool),
		ExpenseRepo:     newPgxExpenseRepository(dbPool),
		ShoppingRepo:    newPgxShoppingRepository(dbPool),
		TransactionRepo: newPgxTransactionRepository(dbPool),
		SummaryRepo:     newSummaryRepository(dbPool),
	}
}
