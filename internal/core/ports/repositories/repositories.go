package repositories

// RepositoryProvider bundles every repository implementation so services can be
// wired from a single value.
type RepositoryProvider struct {
	RoomRepo        RoomRepositoryFacade
	UserRepo        UserRepositoryFacade
	PeriodRepo      PeriodRepositoryFacade
	MealRepo        MealRepositoryFacade
	ExpenseRepo     ExpenseRepositoryFacade
	ShoppingRepo    ShoppingRepositoryFacade
	TransactionRepo TransactionRepositoryFacade
	SummaryRepo     SummaryRepositoryFacade
}
