package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/messmate/messmate_backend/internal/apperrors"
	"github.com/messmate/messmate_backend/internal/core/domain"
	portsrepo "github.com/messmate/messmate_backend/internal/core/ports/repositories"
	portssvc "github.com/messmate/messmate_backend/internal/core/ports/services"
	"github.com/messmate/messmate_backend/internal/core/services"
	"github.com/messmate/messmate_backend/internal/platform/cache"
)

// --- Mock SummaryRepository ---
type MockSummaryRepository struct {
	mock.Mock
	GetMealStatsFn         func(ctx context.Context, roomID string, periodID *string) (int64, decimal.Decimal, error)
	GetUserBalanceFn       func(ctx context.Context, userID, roomID string, periodID *string) (decimal.Decimal, error)
	GetUserMealCountFn     func(ctx context.Context, userID, roomID string, periodID *string) (int64, error)
	GetBalancesByUserFn    func(ctx context.Context, roomID string, periodID *string) (map[string]decimal.Decimal, error)
	GetMealCountsByUserFn  func(ctx context.Context, roomID string, periodID *string) (map[string]int64, error)
	GetTransactionTotalsFn func(ctx context.Context, roomID string, periodID *string) (portsrepo.TransactionTotals, error)
}

func (m *MockSummaryRepository) GetMealStats(ctx context.Context, roomID string, periodID *string) (int64, decimal.Decimal, error) {
	if m.GetMealStatsFn != nil {
		return m.GetMealStatsFn(ctx, roomID, periodID)
	}
	args := m.Called(ctx, roomID, periodID)
	return args.Get(0).(int64), args.Get(1).(decimal.Decimal), args.Error(2)
}

func (m *MockSummaryRepository) GetUserBalance(ctx context.Context, userID, roomID string, periodID *string) (decimal.Decimal, error) {
	if m.GetUserBalanceFn != nil {
		return m.GetUserBalanceFn(ctx, userID, roomID, periodID)
	}
	args := m.Called(ctx, userID, roomID, periodID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockSummaryRepository) GetUserMealCount(ctx context.Context, userID, roomID string, periodID *string) (int64, error) {
	if m.GetUserMealCountFn != nil {
		return m.GetUserMealCountFn(ctx, userID, roomID, periodID)
	}
	args := m.Called(ctx, userID, roomID, periodID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSummaryRepository) GetBalancesByUser(ctx context.Context, roomID string, periodID *string) (map[string]decimal.Decimal, error) {
	if m.GetBalancesByUserFn != nil {
		return m.GetBalancesByUserFn(ctx, roomID, periodID)
	}
	args := m.Called(ctx, roomID, periodID)
	var balances map[string]decimal.Decimal
	if args.Get(0) != nil {
		balances = args.Get(0).(map[string]decimal.Decimal)
	}
	return balances, args.Error(1)
}

func (m *MockSummaryRepository) GetMealCountsByUser(ctx context.Context, roomID string, periodID *string) (map[string]int64, error) {
	if m.GetMealCountsByUserFn != nil {
		return m.GetMealCountsByUserFn(ctx, roomID, periodID)
	}
	args := m.Called(ctx, roomID, periodID)
	var counts map[string]int64
	if args.Get(0) != nil {
		counts = args.Get(0).(map[string]int64)
	}
	return counts, args.Error(1)
}

func (m *MockSummaryRepository) GetTransactionTotals(ctx context.Context, roomID string, periodID *string) (portsrepo.TransactionTotals, error) {
	if m.GetTransactionTotalsFn != nil {
		return m.GetTransactionTotalsFn(ctx, roomID, periodID)
	}
	args := m.Called(ctx, roomID, periodID)
	return args.Get(0).(portsrepo.TransactionTotals), args.Error(1)
}

var _ portsrepo.SummaryRepositoryFacade = (*MockSummaryRepository)(nil)

// --- Mock RoomRepository (reader side only) ---
type MockRoomRepository struct {
	mock.Mock
	FindRoomByIDFn      func(ctx context.Context, roomID string) (*domain.Room, error)
	ListUsersByRoomIDFn func(ctx context.Context, roomID string, includeRemoved bool) ([]domain.UserRoom, error)
}

func (m *MockRoomRepository) FindRoomByID(ctx context.Context, roomID string) (*domain.Room, error) {
	if m.FindRoomByIDFn != nil {
		return m.FindRoomByIDFn(ctx, roomID)
	}
	args := m.Called(ctx, roomID)
	var room *domain.Room
	if args.Get(0) != nil {
		room = args.Get(0).(*domain.Room)
	}
	return room, args.Error(1)
}

func (m *MockRoomRepository) ListRoomsByUserID(ctx context.Context, userID string) ([]domain.Room, error) {
	args := m.Called(ctx, userID)
	var rooms []domain.Room
	if args.Get(0) != nil {
		rooms = args.Get(0).([]domain.Room)
	}
	return rooms, args.Error(1)
}

func (m *MockRoomRepository) FindUserRoomRole(ctx context.Context, userID, roomID string) (*domain.UserRoom, error) {
	args := m.Called(ctx, userID, roomID)
	var membership *domain.UserRoom
	if args.Get(0) != nil {
		membership = args.Get(0).(*domain.UserRoom)
	}
	return membership, args.Error(1)
}

func (m *MockRoomRepository) ListUsersByRoomID(ctx context.Context, roomID string, includeRemoved bool) ([]domain.UserRoom, error) {
	if m.ListUsersByRoomIDFn != nil {
		return m.ListUsersByRoomIDFn(ctx, roomID, includeRemoved)
	}
	args := m.Called(ctx, roomID, includeRemoved)
	var members []domain.UserRoom
	if args.Get(0) != nil {
		members = args.Get(0).([]domain.UserRoom)
	}
	return members, args.Error(1)
}

var _ portsrepo.RoomReader = (*MockRoomRepository)(nil)

// --- Test Suite ---
type SummaryServiceTestSuite struct {
	suite.Suite
	summaryRepo *MockSummaryRepository
	periodRepo  *MockPeriodRepository
	roomRepo    *MockRoomRepository
	roomSvc     *MockRoomService
	service     portssvc.SummarySvcFacade

	ctx    context.Context
	roomID string
	userID string
}

func (s *SummaryServiceTestSuite) SetupTest() {
	s.summaryRepo = &MockSummaryRepository{}
	s.periodRepo = &MockPeriodRepository{}
	s.roomRepo = &MockRoomRepository{}
	s.roomSvc = &MockRoomService{}

	s.ctx = context.Background()
	s.roomID = uuid.NewString()
	s.userID = uuid.NewString()

	s.roomSvc.AuthorizeUserActionFn = func(ctx context.Context, userID, roomID string, requiredRole domain.UserRoomRole) error {
		return nil
	}
	s.periodRepo.FindActivePeriodFn = func(ctx context.Context, roomID string) (*domain.Period, error) {
		return nil, apperrors.ErrNotFound
	}

	s.service = services.NewSummaryService(s.summaryRepo, s.periodRepo, s.roomRepo, cache.Noop{},
		services.WithSummaryAuthorizer(s.roomSvc))
}

func (s *SummaryServiceTestSuite) TestCalculateMealRate() {
	s.summaryRepo.GetMealStatsFn = func(ctx context.Context, roomID string, periodID *string) (int64, decimal.Decimal, error) {
		return 45, decimal.RequireFromString("3000"), nil
	}

	summary, err := s.service.CalculateMealRate(s.ctx, s.roomID, nil, s.userID)

	s.Require().NoError(err)
	s.Equal(int64(45), summary.TotalMeals)
	s.True(summary.TotalExpenses.Equal(decimal.RequireFromString("3000")))
	s.True(summary.MealRate.Equal(decimal.RequireFromString("66.6667")), "3000/45 rounded to 4 places, got %s", summary.MealRate)
}

func (s *SummaryServiceTestSuite) TestCalculateMealRate_ZeroMeals() {
	s.summaryRepo.GetMealStatsFn = func(ctx context.Context, roomID string, periodID *string) (int64, decimal.Decimal, error) {
		return 0, decimal.RequireFromString("500"), nil
	}

	summary, err := s.service.CalculateMealRate(s.ctx, s.roomID, nil, s.userID)

	s.Require().NoError(err)
	s.True(summary.MealRate.IsZero(), "zero meals must yield a zero rate, not an error")
	s.Equal(int64(0), summary.TotalMeals)
}

func (s *SummaryServiceTestSuite) TestCalculateAvailableBalance() {
	s.summaryRepo.GetUserBalanceFn = func(ctx context.Context, userID, roomID string, periodID *string) (decimal.Decimal, error) {
		return decimal.RequireFromString("2000"), nil
	}
	s.summaryRepo.GetUserMealCountFn = func(ctx context.Context, userID, roomID string, periodID *string) (int64, error) {
		return 12, nil
	}
	s.summaryRepo.GetMealStatsFn = func(ctx context.Context, roomID string, periodID *string) (int64, decimal.Decimal, error) {
		return 40, decimal.RequireFromString("1000"), nil
	}

	result, err := s.service.CalculateAvailableBalance(s.ctx, s.userID, s.roomID, nil, s.userID)

	s.Require().NoError(err)
	s.True(result.Balance.Equal(decimal.RequireFromString("2000")))
	s.Equal(int64(12), result.MealCount)
	s.True(result.MealRate.Equal(decimal.RequireFromString("25")))
	s.True(result.TotalSpent.Equal(decimal.RequireFromString("300")))
	s.True(result.AvailableBalance.Equal(decimal.RequireFromString("1700")), "balance - mealCount*rate, got %s", result.AvailableBalance)
}

func (s *SummaryServiceTestSuite) TestReadPaths_NonMemberRejected() {
	outsider := uuid.NewString()
	s.roomSvc.AuthorizeUserActionFn = func(ctx context.Context, userID, roomID string, requiredRole domain.UserRoomRole) error {
		s.Equal(outsider, userID, "the requester is authorized, not the queried member")
		s.Equal(domain.RoleMember, requiredRole)
		return apperrors.ErrForbidden
	}
	statsQueried := false
	s.summaryRepo.GetMealStatsFn = func(ctx context.Context, roomID string, periodID *string) (int64, decimal.Decimal, error) {
		statsQueried = true
		return 30, decimal.RequireFromString("1500"), nil
	}
	balanceQueried := false
	s.summaryRepo.GetUserBalanceFn = func(ctx context.Context, userID, roomID string, periodID *string) (decimal.Decimal, error) {
		balanceQueried = true
		return decimal.RequireFromString("200"), nil
	}

	_, err := s.service.CalculateMealRate(s.ctx, s.roomID, nil, outsider)
	s.ErrorIs(err, apperrors.ErrForbidden)

	_, err = s.service.CalculateBalance(s.ctx, s.userID, s.roomID, nil, outsider)
	s.ErrorIs(err, apperrors.ErrForbidden)

	_, err = s.service.CalculateUserMealCount(s.ctx, s.userID, s.roomID, nil, outsider)
	s.ErrorIs(err, apperrors.ErrForbidden)

	_, err = s.service.CalculateAvailableBalance(s.ctx, s.userID, s.roomID, nil, outsider)
	s.ErrorIs(err, apperrors.ErrForbidden)

	_, err = s.service.GetGroupBalanceSummary(s.ctx, s.roomID, outsider, false)
	s.ErrorIs(err, apperrors.ErrForbidden)

	s.False(statsQueried, "no aggregate is computed for an outsider")
	s.False(balanceQueried)
}

func (s *SummaryServiceTestSuite) TestGetGroupBalanceSummary_ScopedToActivePeriod() {
	active := domain.Period{PeriodID: uuid.NewString(), RoomID: s.roomID, Status: domain.PeriodActive}
	s.periodRepo.FindActivePeriodFn = func(ctx context.Context, roomID string) (*domain.Period, error) {
		return &active, nil
	}

	var statsScope *string
	s.summaryRepo.GetMealStatsFn = func(ctx context.Context, roomID string, periodID *string) (int64, decimal.Decimal, error) {
		statsScope = periodID
		return 0, decimal.Zero, nil
	}
	s.summaryRepo.GetTransactionTotalsFn = func(ctx context.Context, roomID string, periodID *string) (portsrepo.TransactionTotals, error) {
		return portsrepo.TransactionTotals{Deposited: decimal.Zero, Transferred: decimal.Zero}, nil
	}
	s.roomRepo.ListUsersByRoomIDFn = func(ctx context.Context, roomID string, includeRemoved bool) ([]domain.UserRoom, error) {
		return nil, nil
	}

	summary, err := s.service.GetGroupBalanceSummary(s.ctx, s.roomID, s.userID, false)

	s.Require().NoError(err)
	s.Require().NotNil(statsScope)
	s.Equal(active.PeriodID, *statsScope, "aggregates must be scoped to the active period")
	s.Require().NotNil(summary.PeriodID)
	s.Equal(active.PeriodID, *summary.PeriodID)
}

func (s *SummaryServiceTestSuite) TestGetGroupBalanceSummary_Detailed() {
	alice := uuid.NewString()
	bob := uuid.NewString()

	s.summaryRepo.GetMealStatsFn = func(ctx context.Context, roomID string, periodID *string) (int64, decimal.Decimal, error) {
		return 20, decimal.RequireFromString("500"), nil
	}
	s.summaryRepo.GetTransactionTotalsFn = func(ctx context.Context, roomID string, periodID *string) (portsrepo.TransactionTotals, error) {
		return portsrepo.TransactionTotals{
			Deposited:   decimal.RequireFromString("900"),
			Transferred: decimal.RequireFromString("100"),
		}, nil
	}
	s.roomRepo.ListUsersByRoomIDFn = func(ctx context.Context, roomID string, includeRemoved bool) ([]domain.UserRoom, error) {
		s.False(includeRemoved, "removed members do not appear in summaries")
		return []domain.UserRoom{
			{UserID: bob, UserName: "Bob", RoomID: roomID, Role: domain.RoleMember},
			{UserID: alice, UserName: "Alice", RoomID: roomID, Role: domain.RoleManager},
		}, nil
	}
	s.summaryRepo.GetBalancesByUserFn = func(ctx context.Context, roomID string, periodID *string) (map[string]decimal.Decimal, error) {
		return map[string]decimal.Decimal{
			alice: decimal.RequireFromString("600"),
			bob:   decimal.RequireFromString("400"),
		}, nil
	}
	s.summaryRepo.GetMealCountsByUserFn = func(ctx context.Context, roomID string, periodID *string) (map[string]int64, error) {
		return map[string]int64{alice: 8, bob: 12}, nil
	}

	summary, err := s.service.GetGroupBalanceSummary(s.ctx, s.roomID, s.userID, true)

	s.Require().NoError(err)
	s.True(summary.MealRate.Equal(decimal.RequireFromString("25")))
	s.True(summary.TotalDeposited.Equal(decimal.RequireFromString("900")))
	s.True(summary.TotalTransferred.Equal(decimal.RequireFromString("100")))
	s.Equal(2, summary.MemberCount)

	s.Require().Len(summary.Members, 2)
	s.Equal("Alice", summary.Members[0].UserName, "members sorted by name")
	s.True(summary.Members[0].TotalSpent.Equal(decimal.RequireFromString("200")))
	s.True(summary.Members[0].AvailableBalance.Equal(decimal.RequireFromString("400")))
	s.Equal("Bob", summary.Members[1].UserName)
	s.True(summary.Members[1].TotalSpent.Equal(decimal.RequireFromString("300")))
	s.True(summary.Members[1].AvailableBalance.Equal(decimal.RequireFromString("100")))
}

func (s *SummaryServiceTestSuite) TestCalculateClosingBalance_BalancePolicy() {
	periodID := uuid.NewString()
	s.periodRepo.FindPeriodByIDFn = func(ctx context.Context, id string) (*domain.Period, error) {
		return &domain.Period{
			PeriodID:       periodID,
			RoomID:         s.roomID,
			Status:         domain.PeriodEnded,
			OpeningBalance: decimal.RequireFromString("100"),
		}, nil
	}
	s.summaryRepo.GetTransactionTotalsFn = func(ctx context.Context, roomID string, pid *string) (portsrepo.TransactionTotals, error) {
		return portsrepo.TransactionTotals{
			Deposited:   decimal.RequireFromString("200"),
			Transferred: decimal.RequireFromString("50"),
		}, nil
	}

	closing, err := s.service.CalculateClosingBalance(s.ctx, s.roomID, periodID, domain.CarryBalance)

	s.Require().NoError(err)
	s.True(closing.Equal(decimal.RequireFromString("350")), "opening + deposits + transfers, got %s", closing)
}

func (s *SummaryServiceTestSuite) TestCalculateClosingBalance_AvailablePolicy() {
	periodID := uuid.NewString()
	s.periodRepo.FindPeriodByIDFn = func(ctx context.Context, id string) (*domain.Period, error) {
		return &domain.Period{
			PeriodID:       periodID,
			RoomID:         s.roomID,
			Status:         domain.PeriodEnded,
			OpeningBalance: decimal.RequireFromString("100"),
		}, nil
	}
	s.summaryRepo.GetTransactionTotalsFn = func(ctx context.Context, roomID string, pid *string) (portsrepo.TransactionTotals, error) {
		return portsrepo.TransactionTotals{
			Deposited:   decimal.RequireFromString("200"),
			Transferred: decimal.RequireFromString("50"),
		}, nil
	}
	s.summaryRepo.GetMealStatsFn = func(ctx context.Context, roomID string, pid *string) (int64, decimal.Decimal, error) {
		return 10, decimal.RequireFromString("250"), nil
	}

	closing, err := s.service.CalculateClosingBalance(s.ctx, s.roomID, periodID, domain.CarryAvailable)

	s.Require().NoError(err)
	// 100 + 200 + 50 - (250/10)*10 = 100
	s.True(closing.Equal(decimal.RequireFromString("100")), "available policy deducts imputed meal spend, got %s", closing)
}

func (s *SummaryServiceTestSuite) TestBuildPeriodSummary() {
	room := domain.Room{RoomID: s.roomID, CarryPolicy: domain.CarryAvailable}
	period := domain.Period{
		PeriodID:       uuid.NewString(),
		RoomID:         s.roomID,
		Status:         domain.PeriodEnded,
		StartDate:      time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
		OpeningBalance: decimal.Zero,
	}

	s.summaryRepo.GetMealStatsFn = func(ctx context.Context, roomID string, pid *string) (int64, decimal.Decimal, error) {
		return 10, decimal.RequireFromString("300"), nil
	}
	s.summaryRepo.GetTransactionTotalsFn = func(ctx context.Context, roomID string, pid *string) (portsrepo.TransactionTotals, error) {
		return portsrepo.TransactionTotals{Deposited: decimal.RequireFromString("500"), Transferred: decimal.Zero}, nil
	}
	s.roomRepo.ListUsersByRoomIDFn = func(ctx context.Context, roomID string, includeRemoved bool) ([]domain.UserRoom, error) {
		return []domain.UserRoom{{UserID: uuid.NewString()}, {UserID: uuid.NewString()}, {UserID: uuid.NewString()}}, nil
	}

	summary, err := s.service.BuildPeriodSummary(s.ctx, room, period)

	s.Require().NoError(err)
	s.True(summary.MealRate.Equal(decimal.RequireFromString("30")))
	s.True(summary.TotalCredits.Equal(decimal.RequireFromString("500")))
	s.True(summary.ClosingBalance.Equal(decimal.RequireFromString("200")), "0 + 500 - 10*30, got %s", summary.ClosingBalance)
	s.Equal(3, summary.MemberCount)
	s.Equal(period.PeriodID, summary.Period.PeriodID)
}

func TestSummaryServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SummaryServiceTestSuite))
}
