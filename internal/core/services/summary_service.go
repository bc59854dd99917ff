package services

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/messmate/messmate_backend/internal/apperrors"
	"github.com/messmate/messmate_backend/internal/core/domain"
	portsrepo "github.com/messmate/messmate_backend/internal/core/ports/repositories"
	portssvc "github.com/messmate/messmate_backend/internal/core/ports/services"
	"github.com/messmate/messmate_backend/internal/platform/cache"
)

// mealRatePrecision is the decimal scale the per-meal rate is rounded to.
const mealRatePrecision = 4

// summaryService implements the SummarySvcFacade interface. All operations are
// pure functions of ledger state; wall-clock time never enters the math.
type summaryService struct {
	BaseService
	summaryRepo portsrepo.SummaryRepositoryFacade
	periodRepo  portsrepo.PeriodReader
	roomRepo    portsrepo.RoomReader
	cache       cache.Cache
	cacheTTL    time.Duration
}

// SummaryServiceOption is a functional option for configuring the summary service.
type SummaryServiceOption func(*summaryService)

// WithSummaryAuthorizer sets the room authorizer for the summary service.
func WithSummaryAuthorizer(authorizer portssvc.RoomAuthorizerSvc) SummaryServiceOption {
	return func(s *summaryService) { s.RoomAuthorizer = authorizer }
}

// WithSummaryCacheTTL sets the TTL for cached aggregates.
func WithSummaryCacheTTL(ttl time.Duration) SummaryServiceOption {
	return func(s *summaryService) { s.cacheTTL = ttl }
}

// NewSummaryService creates the financial aggregation engine.
func NewSummaryService(
	summaryRepo portsrepo.SummaryRepositoryFacade,
	periodRepo portsrepo.PeriodReader,
	roomRepo portsrepo.RoomReader,
	derivedCache cache.Cache,
	options ...SummaryServiceOption,
) portssvc.SummarySvcFacade {
	if derivedCache == nil {
		derivedCache = cache.Noop{}
	}
	svc := &summaryService{
		summaryRepo: summaryRepo,
		periodRepo:  periodRepo,
		roomRepo:    roomRepo,
		cache:       derivedCache,
		cacheTTL:    5 * time.Minute,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.SummarySvcFacade = (*summaryService)(nil)

// authorizeMember rejects readers who are not members of the room. A service
// built without an authorizer skips the check; internal callers reach the
// unexported compute paths directly.
func (s *summaryService) authorizeMember(ctx context.Context, requestingUserID, roomID string) error {
	if s.RoomAuthorizer == nil {
		return nil
	}
	return s.AuthorizeUser(ctx, requestingUserID, roomID, domain.RoleMember)
}

// CalculateMealRate returns total meals, total expenses and their quotient for
// the scope. A scope with zero meals yields a zero rate, never an error.
func (s *summaryService) CalculateMealRate(ctx context.Context, roomID string, periodID *string, requestingUserID string) (*domain.MealRateSummary, error) {
	if err := s.authorizeMember(ctx, requestingUserID, roomID); err != nil {
		return nil, err
	}
	summary, err := s.mealRateSummary(ctx, roomID, periodID)
	if err != nil {
		s.LogError(ctx, err, "Failed to calculate meal rate", slog.String("room_id", roomID))
		return nil, err
	}
	return &summary, nil
}

func (s *summaryService) mealRateSummary(ctx context.Context, roomID string, periodID *string) (domain.MealRateSummary, error) {
	key := cache.Key{RoomID: roomID, PeriodID: deref(periodID), Kind: cache.KindMealRate}
	return cache.GetOrCompute(ctx, s.cache, key, s.cacheTTL, func(ctx context.Context) (domain.MealRateSummary, error) {
		totalMeals, totalExpenses, err := s.summaryRepo.GetMealStats(ctx, roomID, periodID)
		if err != nil {
			return domain.MealRateSummary{}, err
		}
		return domain.MealRateSummary{
			MealRate:      mealRate(totalExpenses, totalMeals),
			TotalMeals:    totalMeals,
			TotalExpenses: totalExpenses,
		}, nil
	})
}

// CalculateBalance sums transaction amounts credited to the user in the scope.
// Transactions where the user is sender-only do not affect the result.
func (s *summaryService) CalculateBalance(ctx context.Context, userID, roomID string, periodID *string, requestingUserID string) (decimal.Decimal, error) {
	if err := s.authorizeMember(ctx, requestingUserID, roomID); err != nil {
		return decimal.Zero, err
	}
	return s.userBalance(ctx, userID, roomID, periodID)
}

func (s *summaryService) userBalance(ctx context.Context, userID, roomID string, periodID *string) (decimal.Decimal, error) {
	key := cache.Key{RoomID: roomID, PeriodID: deref(periodID), UserID: userID, Kind: cache.KindBalance}
	return cache.GetOrCompute(ctx, s.cache, key, s.cacheTTL, func(ctx context.Context) (decimal.Decimal, error) {
		return s.summaryRepo.GetUserBalance(ctx, userID, roomID, periodID)
	})
}

// CalculateUserMealCount counts the user's meal rows in the scope.
func (s *summaryService) CalculateUserMealCount(ctx context.Context, userID, roomID string, periodID *string, requestingUserID string) (int64, error) {
	if err := s.authorizeMember(ctx, requestingUserID, roomID); err != nil {
		return 0, err
	}
	return s.userMealCount(ctx, userID, roomID, periodID)
}

func (s *summaryService) userMealCount(ctx context.Context, userID, roomID string, periodID *string) (int64, error) {
	key := cache.Key{RoomID: roomID, PeriodID: deref(periodID), UserID: userID, Kind: cache.KindMealCount}
	return cache.GetOrCompute(ctx, s.cache, key, s.cacheTTL, func(ctx context.Context) (int64, error) {
		return s.summaryRepo.GetUserMealCount(ctx, userID, roomID, periodID)
	})
}

// CalculateAvailableBalance is the figure a member sees as spendable:
// balance minus mealCount times mealRate, exactly. The three inputs are
// independent and fetched concurrently.
func (s *summaryService) CalculateAvailableBalance(ctx context.Context, userID, roomID string, periodID *string, requestingUserID string) (*domain.AvailableBalance, error) {
	if err := s.authorizeMember(ctx, requestingUserID, roomID); err != nil {
		return nil, err
	}

	key := cache.Key{RoomID: roomID, PeriodID: deref(periodID), UserID: userID, Kind: cache.KindAvailable}
	result, err := cache.GetOrCompute(ctx, s.cache, key, s.cacheTTL, func(ctx context.Context) (domain.AvailableBalance, error) {
		var (
			balance   decimal.Decimal
			mealCount int64
			rate      domain.MealRateSummary
		)

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			balance, err = s.userBalance(gctx, userID, roomID, periodID)
			return err
		})
		g.Go(func() error {
			var err error
			mealCount, err = s.userMealCount(gctx, userID, roomID, periodID)
			return err
		})
		g.Go(func() error {
			var err error
			rate, err = s.mealRateSummary(gctx, roomID, periodID)
			return err
		})
		if err := g.Wait(); err != nil {
			return domain.AvailableBalance{}, err
		}

		totalSpent := rate.MealRate.Mul(decimal.NewFromInt(mealCount))
		return domain.AvailableBalance{
			UserID:           userID,
			Balance:          balance,
			MealCount:        mealCount,
			MealRate:         rate.MealRate,
			TotalSpent:       totalSpent,
			AvailableBalance: balance.Sub(totalSpent),
		}, nil
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to calculate available balance",
			slog.String("room_id", roomID), slog.String("user_id", userID))
		return nil, err
	}
	return &result, nil
}

// GetGroupBalanceSummary aggregates the room's rate and transaction volume,
// plus a per-member breakdown when detailed. The scope is the room's current
// active period, falling back to room-wide when none exists. Independent
// queries run concurrently and are merged at the end.
func (s *summaryService) GetGroupBalanceSummary(ctx context.Context, roomID, requestingUserID string, detailed bool) (*domain.GroupBalanceSummary, error) {
	if err := s.authorizeMember(ctx, requestingUserID, roomID); err != nil {
		return nil, err
	}

	// The active period is resolved from the store, never from the cache: scope
	// selection is a lifecycle decision.
	var periodID *string
	if active, err := s.periodRepo.FindActivePeriod(ctx, roomID); err == nil {
		periodID = &active.PeriodID
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	kind := cache.KindGroupSummary
	if detailed {
		kind = cache.KindGroupDetail
	}
	key := cache.Key{RoomID: roomID, PeriodID: deref(periodID), Kind: kind}

	summary, err := cache.GetOrCompute(ctx, s.cache, key, s.cacheTTL, func(ctx context.Context) (domain.GroupBalanceSummary, error) {
		return s.computeGroupSummary(ctx, roomID, periodID, detailed)
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to build group balance summary", slog.String("room_id", roomID))
		return nil, err
	}
	return &summary, nil
}

func (s *summaryService) computeGroupSummary(ctx context.Context, roomID string, periodID *string, detailed bool) (domain.GroupBalanceSummary, error) {
	var (
		totalMeals    int64
		totalExpenses decimal.Decimal
		txnTotals     portsrepo.TransactionTotals
		members       []domain.UserRoom
		balances      map[string]decimal.Decimal
		mealCounts    map[string]int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		totalMeals, totalExpenses, err = s.summaryRepo.GetMealStats(gctx, roomID, periodID)
		return err
	})
	g.Go(func() error {
		var err error
		txnTotals, err = s.summaryRepo.GetTransactionTotals(gctx, roomID, periodID)
		return err
	})
	g.Go(func() error {
		var err error
		members, err = s.roomRepo.ListUsersByRoomID(gctx, roomID, false)
		return err
	})
	if detailed {
		g.Go(func() error {
			var err error
			balances, err = s.summaryRepo.GetBalancesByUser(gctx, roomID, periodID)
			return err
		})
		g.Go(func() error {
			var err error
			mealCounts, err = s.summaryRepo.GetMealCountsByUser(gctx, roomID, periodID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return domain.GroupBalanceSummary{}, err
	}

	rate := mealRate(totalExpenses, totalMeals)
	summary := domain.GroupBalanceSummary{
		RoomID:           roomID,
		PeriodID:         periodID,
		MealRate:         rate,
		TotalMeals:       totalMeals,
		TotalExpenses:    totalExpenses,
		TotalDeposited:   txnTotals.Deposited,
		TotalTransferred: txnTotals.Transferred,
		MemberCount:      len(members),
	}

	if detailed {
		rows := make([]domain.MemberBalance, 0, len(members))
		for _, m := range members {
			balance := balances[m.UserID]
			count := mealCounts[m.UserID]
			totalSpent := rate.Mul(decimal.NewFromInt(count))
			rows = append(rows, domain.MemberBalance{
				UserID:           m.UserID,
				UserName:         m.UserName,
				Role:             m.Role,
				Balance:          balance,
				MealCount:        count,
				TotalSpent:       totalSpent,
				AvailableBalance: balance.Sub(totalSpent),
			})
		}
		sort.Slice(rows, func(i, j int) bool { return rows[i].UserName < rows[j].UserName })
		summary.Members = rows
	}

	return summary, nil
}

// CalculateClosingBalance computes the figure carried out of a period:
// opening balance plus all credits, minus the imputed group meal spend when the
// policy is AVAILABLE.
func (s *summaryService) CalculateClosingBalance(ctx context.Context, roomID, periodID string, policy domain.CarryPolicy) (decimal.Decimal, error) {
	period, err := s.periodRepo.FindPeriodByID(ctx, periodID)
	if err != nil {
		return decimal.Zero, err
	}

	totals, err := s.summaryRepo.GetTransactionTotals(ctx, roomID, &periodID)
	if err != nil {
		return decimal.Zero, err
	}
	closing := period.OpeningBalance.Add(totals.Deposited).Add(totals.Transferred)

	if policy == domain.CarryAvailable {
		totalMeals, totalExpenses, err := s.summaryRepo.GetMealStats(ctx, roomID, &periodID)
		if err != nil {
			return decimal.Zero, err
		}
		spent := mealRate(totalExpenses, totalMeals).Mul(decimal.NewFromInt(totalMeals))
		closing = closing.Sub(spent)
	}

	return closing, nil
}

// BuildPeriodSummary assembles one period's full financial picture. The caller
// has already checked authorization and room ownership.
func (s *summaryService) BuildPeriodSummary(ctx context.Context, room domain.Room, period domain.Period) (*domain.PeriodSummary, error) {
	var (
		totalMeals    int64
		totalExpenses decimal.Decimal
		txnTotals     portsrepo.TransactionTotals
		members       []domain.UserRoom
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		totalMeals, totalExpenses, err = s.summaryRepo.GetMealStats(gctx, room.RoomID, &period.PeriodID)
		return err
	})
	g.Go(func() error {
		var err error
		txnTotals, err = s.summaryRepo.GetTransactionTotals(gctx, room.RoomID, &period.PeriodID)
		return err
	})
	g.Go(func() error {
		var err error
		members, err = s.roomRepo.ListUsersByRoomID(gctx, room.RoomID, false)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rate := mealRate(totalExpenses, totalMeals)
	totalCredits := txnTotals.Deposited.Add(txnTotals.Transferred)
	closing := period.OpeningBalance.Add(totalCredits)
	if room.CarryPolicy == domain.CarryAvailable {
		closing = closing.Sub(rate.Mul(decimal.NewFromInt(totalMeals)))
	}

	return &domain.PeriodSummary{
		Period:         period,
		MealRate:       rate,
		TotalMeals:     totalMeals,
		TotalExpenses:  totalExpenses,
		TotalCredits:   totalCredits,
		OpeningBalance: period.OpeningBalance,
		ClosingBalance: closing,
		MemberCount:    len(members),
	}, nil
}

// mealRate divides expenses by meal count, returning zero for an empty scope.
func mealRate(totalExpenses decimal.Decimal, totalMeals int64) decimal.Decimal {
	if totalMeals <= 0 {
		return decimal.Zero
	}
	return totalExpenses.DivRound(decimal.NewFromInt(totalMeals), mealRatePrecision)
}

// deref unwraps an optional period ID for cache key construction.
func deref(periodID *string) string {
	if periodID == nil {
		return ""
	}
	return *periodID
}
