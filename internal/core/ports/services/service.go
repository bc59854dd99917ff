package services

// ServiceContainer bundles every service facade for route registration.
type ServiceContainer struct {
	User        UserSvcFacade
	Room        RoomSvcFacade
	Period      PeriodSvcFacade
	Summary     SummarySvcFacade
	Meal        MealSvcFacade
	Expense     ExpenseSvcFacade
	Shopping    ShoppingSvcFacade
	Transaction TransactionSvcFacade
}
