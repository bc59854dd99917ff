package services

import (
	"time"

	portsrepo "github.com/messmate/messmate_backend/internal/core/ports/repositories"
	portssvc "github.com/messmate/messmate_backend/internal/core/ports/services"
	"github.com/messmate/messmate_backend/internal/platform/cache"
)

type containerConfig struct {
	notifier portssvc.Notifier
	cacheTTL time.Duration
}

// ContainerOption customizes the service container wiring.
type ContainerOption func(*containerConfig)

// WithNotifier swaps the period lifecycle notifier.
func WithNotifier(n portssvc.Notifier) ContainerOption {
	return func(c *containerConfig) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithCacheTTL overrides the derived-data cache TTL for all services.
func WithCacheTTL(ttl time.Duration) ContainerOption {
	return func(c *containerConfig) { c.cacheTTL = ttl }
}

// NewServiceContainer wires every service facade against the repository
// provider and the derived-data cache. Pass a nil cache to run without one;
// services fall back to direct computation.
func NewServiceContainer(repos *portsrepo.RepositoryProvider, derivedCache cache.Cache, options ...ContainerOption) *portssvc.ServiceContainer {
	if derivedCache == nil {
		derivedCache = cache.Noop{}
	}

	cfg := containerConfig{notifier: NewLogNotifier()}
	for _, opt := range options {
		opt(&cfg)
	}

	roomSvc := NewRoomService(repos.RoomRepo, derivedCache)

	summaryOptions := []SummaryServiceOption{WithSummaryAuthorizer(roomSvc)}
	if cfg.cacheTTL > 0 {
		summaryOptions = append(summaryOptions, WithSummaryCacheTTL(cfg.cacheTTL))
	}
	summarySvc := NewSummaryService(repos.SummaryRepo, repos.PeriodRepo, repos.RoomRepo, derivedCache, summaryOptions...)

	periodOptions := []PeriodServiceOption{WithPeriodNotifier(cfg.notifier)}
	if cfg.cacheTTL > 0 {
		periodOptions = append(periodOptions, WithPeriodCacheTTL(cfg.cacheTTL))
	}
	periodSvc := NewPeriodService(repos.PeriodRepo, repos.ShoppingRepo, roomSvc, summarySvc, derivedCache, periodOptions...)

	return &portssvc.ServiceContainer{
		User:        NewUserService(repos.UserRepo),
		Room:        roomSvc,
		Period:      periodSvc,
		Summary:     summarySvc,
		Meal:        NewMealService(repos.MealRepo, repos.PeriodRepo, roomSvc, derivedCache),
		Expense:     NewExpenseService(repos.ExpenseRepo, repos.PeriodRepo, roomSvc, derivedCache),
		Shopping:    NewShoppingService(repos.ShoppingRepo, repos.PeriodRepo, roomSvc),
		Transaction: NewTransactionService(repos.TransactionRepo, repos.PeriodRepo, roomSvc, derivedCache),
	}
}
