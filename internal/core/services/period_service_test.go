package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/messmate/messmate_backend/internal/apperrors"
	"github.com/messmate/messmate_backend/internal/core/domain"
	portssvc "github.com/messmate/messmate_backend/internal/core/ports/services"
	"github.com/messmate/messmate_backend/internal/core/services"
	"github.com/messmate/messmate_backend/internal/dto"
	"github.com/messmate/messmate_backend/internal/platform/cache"
)

// --- Mock PeriodRepository ---
type MockPeriodRepository struct {
	mock.Mock
	FindPeriodByIDFn     func(ctx context.Context, periodID string) (*domain.Period, error)
	FindActivePeriodFn   func(ctx context.Context, roomID string) (*domain.Period, error)
	ListPeriodsByRoomFn  func(ctx context.Context, roomID string, includeArchived bool) ([]domain.Period, error)
	SavePeriodFn         func(ctx context.Context, period domain.Period) error
	UpdatePeriodStatusFn func(ctx context.Context, periodID string, from, to domain.PeriodStatus, endDate *time.Time, actorID string, at time.Time) error
	RestartPeriodFn      func(ctx context.Context, sourcePeriodID string, newPeriod domain.Period, reseed []domain.ShoppingItem) error
	RolloverPeriodFn     func(ctx context.Context, stalePeriodID string, endDate time.Time, next domain.Period) error
	AdoptUnscopedRowsFn  func(ctx context.Context, roomID, periodID string) error
}

func (m *MockPeriodRepository) FindPeriodByID(ctx context.Context, periodID string) (*domain.Period, error) {
	if m.FindPeriodByIDFn != nil {
		return m.FindPeriodByIDFn(ctx, periodID)
	}
	args := m.Called(ctx, periodID)
	var period *domain.Period
	if args.Get(0) != nil {
		period = args.Get(0).(*domain.Period)
	}
	return period, args.Error(1)
}

func (m *MockPeriodRepository) FindActivePeriod(ctx context.Context, roomID string) (*domain.Period, error) {
	if m.FindActivePeriodFn != nil {
		return m.FindActivePeriodFn(ctx, roomID)
	}
	args := m.Called(ctx, roomID)
	var period *domain.Period
	if args.Get(0) != nil {
		period = args.Get(0).(*domain.Period)
	}
	return period, args.Error(1)
}

func (m *MockPeriodRepository) ListPeriodsByRoom(ctx context.Context, roomID string, includeArchived bool) ([]domain.Period, error) {
	if m.ListPeriodsByRoomFn != nil {
		return m.ListPeriodsByRoomFn(ctx, roomID, includeArchived)
	}
	args := m.Called(ctx, roomID, includeArchived)
	var periods []domain.Period
	if args.Get(0) != nil {
		periods = args.Get(0).([]domain.Period)
	}
	return periods, args.Error(1)
}

func (m *MockPeriodRepository) SavePeriod(ctx context.Context, period domain.Period) error {
	if m.SavePeriodFn != nil {
		return m.SavePeriodFn(ctx, period)
	}
	args := m.Called(ctx, period)
	return args.Error(0)
}

func (m *MockPeriodRepository) UpdatePeriodStatus(ctx context.Context, periodID string, from, to domain.PeriodStatus, endDate *time.Time, actorID string, at time.Time) error {
	if m.UpdatePeriodStatusFn != nil {
		return m.UpdatePeriodStatusFn(ctx, periodID, from, to, endDate, actorID, at)
	}
	args := m.Called(ctx, periodID, from, to, endDate, actorID, at)
	return args.Error(0)
}

func (m *MockPeriodRepository) RestartPeriod(ctx context.Context, sourcePeriodID string, newPeriod domain.Period, reseed []domain.ShoppingItem) error {
	if m.RestartPeriodFn != nil {
		return m.RestartPeriodFn(ctx, sourcePeriodID, newPeriod, reseed)
	}
	args := m.Called(ctx, sourcePeriodID, newPeriod, reseed)
	return args.Error(0)
}

func (m *MockPeriodRepository) RolloverPeriod(ctx context.Context, stalePeriodID string, endDate time.Time, next domain.Period) error {
	if m.RolloverPeriodFn != nil {
		return m.RolloverPeriodFn(ctx, stalePeriodID, endDate, next)
	}
	args := m.Called(ctx, stalePeriodID, endDate, next)
	return args.Error(0)
}

func (m *MockPeriodRepository) AdoptUnscopedRows(ctx context.Context, roomID, periodID string) error {
	if m.AdoptUnscopedRowsFn != nil {
		return m.AdoptUnscopedRowsFn(ctx, roomID, periodID)
	}
	args := m.Called(ctx, roomID, periodID)
	return args.Error(0)
}

// --- Mock ShoppingRepository ---
type MockShoppingRepository struct {
	mock.Mock
	SaveItemFn           func(ctx context.Context, item domain.ShoppingItem) error
	FindItemByIDFn       func(ctx context.Context, itemID string) (*domain.ShoppingItem, error)
	ListItemsFn          func(ctx context.Context, roomID string, periodID *string) ([]domain.ShoppingItem, error)
	UpdateItemFn         func(ctx context.Context, item domain.ShoppingItem) error
	DeleteItemFn         func(ctx context.Context, item domain.ShoppingItem) error
	ListRecurringItemsFn func(ctx context.Context, periodID string) ([]domain.ShoppingItem, error)
}

func (m *MockShoppingRepository) SaveItem(ctx context.Context, item domain.ShoppingItem) error {
	if m.SaveItemFn != nil {
		return m.SaveItemFn(ctx, item)
	}
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockShoppingRepository) FindItemByID(ctx context.Context, itemID string) (*domain.ShoppingItem, error) {
	if m.FindItemByIDFn != nil {
		return m.FindItemByIDFn(ctx, itemID)
	}
	args := m.Called(ctx, itemID)
	var item *domain.ShoppingItem
	if args.Get(0) != nil {
		item = args.Get(0).(*domain.ShoppingItem)
	}
	return item, args.Error(1)
}

func (m *MockShoppingRepository) ListItems(ctx context.Context, roomID string, periodID *string) ([]domain.ShoppingItem, error) {
	if m.ListItemsFn != nil {
		return m.ListItemsFn(ctx, roomID, periodID)
	}
	args := m.Called(ctx, roomID, periodID)
	var items []domain.ShoppingItem
	if args.Get(0) != nil {
		items = args.Get(0).([]domain.ShoppingItem)
	}
	return items, args.Error(1)
}

func (m *MockShoppingRepository) UpdateItem(ctx context.Context, item domain.ShoppingItem) error {
	if m.UpdateItemFn != nil {
		return m.UpdateItemFn(ctx, item)
	}
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockShoppingRepository) DeleteItem(ctx context.Context, item domain.ShoppingItem) error {
	if m.DeleteItemFn != nil {
		return m.DeleteItemFn(ctx, item)
	}
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *MockShoppingRepository) ListRecurringItems(ctx context.Context, periodID string) ([]domain.ShoppingItem, error) {
	if m.ListRecurringItemsFn != nil {
		return m.ListRecurringItemsFn(ctx, periodID)
	}
	args := m.Called(ctx, periodID)
	var items []domain.ShoppingItem
	if args.Get(0) != nil {
		items = args.Get(0).([]domain.ShoppingItem)
	}
	return items, args.Error(1)
}

// --- Mock RoomService ---
type MockRoomService struct {
	mock.Mock
	AuthorizeUserActionFn func(ctx context.Context, userID, roomID string, requiredRole domain.UserRoomRole) error
	FindRoomByIDFn        func(ctx context.Context, roomID string) (*domain.Room, error)
	ListUserRoomsFn       func(ctx context.Context, userID string) ([]domain.Room, error)
	ListRoomMembersFn     func(ctx context.Context, roomID, requestingUserID string) ([]domain.UserRoom, error)
}

func (m *MockRoomService) AuthorizeUserAction(ctx context.Context, userID, roomID string, requiredRole domain.UserRoomRole) error {
	if m.AuthorizeUserActionFn != nil {
		return m.AuthorizeUserActionFn(ctx, userID, roomID, requiredRole)
	}
	args := m.Called(ctx, userID, roomID, requiredRole)
	return args.Error(0)
}

func (m *MockRoomService) FindRoomByID(ctx context.Context, roomID string) (*domain.Room, error) {
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

func (m *MockRoomService) ListUserRooms(ctx context.Context, userID string) ([]domain.Room, error) {
	if m.ListUserRoomsFn != nil {
		return m.ListUserRoomsFn(ctx, userID)
	}
	args := m.Called(ctx, userID)
	var rooms []domain.Room
	if args.Get(0) != nil {
		rooms = args.Get(0).([]domain.Room)
	}
	return rooms, args.Error(1)
}

func (m *MockRoomService) ListRoomMembers(ctx context.Context, roomID, requestingUserID string) ([]domain.UserRoom, error) {
	if m.ListRoomMembersFn != nil {
		return m.ListRoomMembersFn(ctx, roomID, requestingUserID)
	}
	args := m.Called(ctx, roomID, requestingUserID)
	var members []domain.UserRoom
	if args.Get(0) != nil {
		members = args.Get(0).([]domain.UserRoom)
	}
	return members, args.Error(1)
}

func (m *MockRoomService) CreateRoom(ctx context.Context, req dto.CreateRoomRequest, creatorUserID string) (*domain.Room, error) {
	args := m.Called(ctx, req, creatorUserID)
	var room *domain.Room
	if args.Get(0) != nil {
		room = args.Get(0).(*domain.Room)
	}
	return room, args.Error(1)
}

func (m *MockRoomService) UpdateRoomSettings(ctx context.Context, roomID string, req dto.UpdateRoomSettingsRequest, actorID string) (*domain.Room, error) {
	args := m.Called(ctx, roomID, req, actorID)
	var room *domain.Room
	if args.Get(0) != nil {
		room = args.Get(0).(*domain.Room)
	}
	return room, args.Error(1)
}

func (m *MockRoomService) AddUserToRoom(ctx context.Context, addingUserID, targetUserID, roomID string, role domain.UserRoomRole) error {
	args := m.Called(ctx, addingUserID, targetUserID, roomID, role)
	return args.Error(0)
}

func (m *MockRoomService) RemoveUserFromRoom(ctx context.Context, removingUserID, targetUserID, roomID string) error {
	args := m.Called(ctx, removingUserID, targetUserID, roomID)
	return args.Error(0)
}

var _ portssvc.RoomSvcFacade = (*MockRoomService)(nil)

// --- Mock SummaryService ---
type MockSummaryService struct {
	mock.Mock
	CalculateClosingBalanceFn func(ctx context.Context, roomID, periodID string, policy domain.CarryPolicy) (decimal.Decimal, error)
	BuildPeriodSummaryFn      func(ctx context.Context, room domain.Room, period domain.Period) (*domain.PeriodSummary, error)
}

func (m *MockSummaryService) CalculateMealRate(ctx context.Context, roomID string, periodID *string, requestingUserID string) (*domain.MealRateSummary, error) {
	args := m.Called(ctx, roomID, periodID, requestingUserID)
	var summary *domain.MealRateSummary
	if args.Get(0) != nil {
		summary = args.Get(0).(*domain.MealRateSummary)
	}
	return summary, args.Error(1)
}

func (m *MockSummaryService) CalculateBalance(ctx context.Context, userID, roomID string, periodID *string, requestingUserID string) (decimal.Decimal, error) {
	args := m.Called(ctx, userID, roomID, periodID, requestingUserID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockSummaryService) CalculateUserMealCount(ctx context.Context, userID, roomID string, periodID *string, requestingUserID string) (int64, error) {
	args := m.Called(ctx, userID, roomID, periodID, requestingUserID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSummaryService) CalculateAvailableBalance(ctx context.Context, userID, roomID string, periodID *string, requestingUserID string) (*domain.AvailableBalance, error) {
	args := m.Called(ctx, userID, roomID, periodID, requestingUserID)
	var balance *domain.AvailableBalance
	if args.Get(0) != nil {
		balance = args.Get(0).(*domain.AvailableBalance)
	}
	return balance, args.Error(1)
}

func (m *MockSummaryService) GetGroupBalanceSummary(ctx context.Context, roomID, requestingUserID string, detailed bool) (*domain.GroupBalanceSummary, error) {
	args := m.Called(ctx, roomID, requestingUserID, detailed)
	var summary *domain.GroupBalanceSummary
	if args.Get(0) != nil {
		summary = args.Get(0).(*domain.GroupBalanceSummary)
	}
	return summary, args.Error(1)
}

func (m *MockSummaryService) CalculateClosingBalance(ctx context.Context, roomID, periodID string, policy domain.CarryPolicy) (decimal.Decimal, error) {
	if m.CalculateClosingBalanceFn != nil {
		return m.CalculateClosingBalanceFn(ctx, roomID, periodID, policy)
	}
	args := m.Called(ctx, roomID, periodID, policy)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockSummaryService) BuildPeriodSummary(ctx context.Context, room domain.Room, period domain.Period) (*domain.PeriodSummary, error) {
	if m.BuildPeriodSummaryFn != nil {
		return m.BuildPeriodSummaryFn(ctx, room, period)
	}
	args := m.Called(ctx, room, period)
	var summary *domain.PeriodSummary
	if args.Get(0) != nil {
		summary = args.Get(0).(*domain.PeriodSummary)
	}
	return summary, args.Error(1)
}

var _ portssvc.SummarySvcFacade = (*MockSummaryService)(nil)

// recordingNotifier captures lifecycle events for assertions.
type recordingNotifier struct {
	events []portssvc.PeriodEvent
}

func (n *recordingNotifier) PeriodChanged(_ context.Context, _, _ string, event portssvc.PeriodEvent) {
	n.events = append(n.events, event)
}

// --- Test Suite ---
type PeriodServiceTestSuite struct {
	suite.Suite
	periodRepo   *MockPeriodRepository
	shoppingRepo *MockShoppingRepository
	roomSvc      *MockRoomService
	summarySvc   *MockSummaryService
	notifier     *recordingNotifier
	service      portssvc.PeriodSvcFacade

	ctx     context.Context
	roomID  string
	actorID string
	now     time.Time
}

func (s *PeriodServiceTestSuite) SetupTest() {
	s.periodRepo = &MockPeriodRepository{}
	s.shoppingRepo = &MockShoppingRepository{}
	s.roomSvc = &MockRoomService{}
	s.summarySvc = &MockSummaryService{}
	s.notifier = &recordingNotifier{}

	s.ctx = context.Background()
	s.roomID = uuid.NewString()
	s.actorID = uuid.NewString()
	s.now = time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

	// Default collaborators: the actor passes every role check, the room is a
	// MANUAL-mode room, and there is no active period.
	s.roomSvc.AuthorizeUserActionFn = func(ctx context.Context, userID, roomID string, requiredRole domain.UserRoomRole) error {
		return nil
	}
	s.roomSvc.FindRoomByIDFn = func(ctx context.Context, roomID string) (*domain.Room, error) {
		return &domain.Room{
			RoomID:      roomID,
			Name:        "Test Mess",
			PeriodMode:  domain.PeriodModeManual,
			CarryPolicy: domain.CarryBalance,
			IsActive:    true,
		}, nil
	}
	s.periodRepo.FindActivePeriodFn = func(ctx context.Context, roomID string) (*domain.Period, error) {
		return nil, apperrors.ErrNotFound
	}

	s.service = services.NewPeriodService(
		s.periodRepo,
		s.shoppingRepo,
		s.roomSvc,
		s.summarySvc,
		cache.Noop{},
		services.WithPeriodClock(func() time.Time { return s.now }),
		services.WithPeriodNotifier(s.notifier),
	)
}

func (s *PeriodServiceTestSuite) TestStartPeriod_Success() {
	var saved domain.Period
	s.periodRepo.SavePeriodFn = func(ctx context.Context, period domain.Period) error {
		saved = period
		return nil
	}

	req := dto.StartPeriodRequest{
		Name:           "March 2025",
		StartDate:      time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		OpeningBalance: decimal.RequireFromString("100.555"),
	}
	period, err := s.service.StartPeriod(s.ctx, s.roomID, req, s.actorID)

	s.Require().NoError(err)
	s.Equal(domain.PeriodActive, period.Status)
	s.Equal(s.roomID, saved.RoomID)
	s.Equal("March 2025", saved.Name)
	s.True(saved.OpeningBalance.Equal(decimal.RequireFromString("100.56")), "opening balance should be rounded to 2 places, got %s", saved.OpeningBalance)
	s.Equal(s.actorID, saved.CreatedBy)
	s.Equal([]portssvc.PeriodEvent{portssvc.PeriodStarted}, s.notifier.events)
}

func (s *PeriodServiceTestSuite) TestStartPeriod_ActiveAlreadyExists() {
	s.periodRepo.FindActivePeriodFn = func(ctx context.Context, roomID string) (*domain.Period, error) {
		return &domain.Period{PeriodID: uuid.NewString(), RoomID: roomID, Status: domain.PeriodActive}, nil
	}

	req := dto.StartPeriodRequest{Name: "March 2025", StartDate: s.now}
	_, err := s.service.StartPeriod(s.ctx, s.roomID, req, s.actorID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrConflict)
	s.Empty(s.notifier.events)
}

func (s *PeriodServiceTestSuite) TestStartPeriod_EndBeforeStart() {
	start := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	end := start.Add(-24 * time.Hour)
	req := dto.StartPeriodRequest{Name: "Backwards", StartDate: start, EndDate: &end}

	_, err := s.service.StartPeriod(s.ctx, s.roomID, req, s.actorID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *PeriodServiceTestSuite) TestStartPeriod_RequiresManager() {
	s.roomSvc.AuthorizeUserActionFn = func(ctx context.Context, userID, roomID string, requiredRole domain.UserRoomRole) error {
		if requiredRole == domain.RoleManager {
			return apperrors.ErrForbidden
		}
		return nil
	}

	req := dto.StartPeriodRequest{Name: "March 2025", StartDate: s.now}
	_, err := s.service.StartPeriod(s.ctx, s.roomID, req, s.actorID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrForbidden)
}

func (s *PeriodServiceTestSuite) TestEndPeriod_DefaultsToActivePeriod() {
	active := domain.Period{
		PeriodID:  uuid.NewString(),
		RoomID:    s.roomID,
		Status:    domain.PeriodActive,
		StartDate: time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
	}
	s.periodRepo.FindActivePeriodFn = func(ctx context.Context, roomID string) (*domain.Period, error) {
		return &active, nil
	}

	var gotFrom, gotTo domain.PeriodStatus
	var gotEndDate *time.Time
	s.periodRepo.UpdatePeriodStatusFn = func(ctx context.Context, periodID string, from, to domain.PeriodStatus, endDate *time.Time, actorID string, at time.Time) error {
		gotFrom, gotTo, gotEndDate = from, to, endDate
		return nil
	}

	period, err := s.service.EndPeriod(s.ctx, s.roomID, s.actorID, nil, nil)

	s.Require().NoError(err)
	s.Equal(domain.PeriodActive, gotFrom)
	s.Equal(domain.PeriodEnded, gotTo)
	s.Require().NotNil(gotEndDate)
	s.True(gotEndDate.Equal(s.now), "end date should default to now")
	s.Equal(domain.PeriodEnded, period.Status)
	s.Equal([]portssvc.PeriodEvent{portssvc.PeriodEnded}, s.notifier.events)
}

func (s *PeriodServiceTestSuite) TestEndPeriod_EndDateBeforeStart() {
	active := domain.Period{
		PeriodID:  uuid.NewString(),
		RoomID:    s.roomID,
		Status:    domain.PeriodActive,
		StartDate: time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
	}
	s.periodRepo.FindActivePeriodFn = func(ctx context.Context, roomID string) (*domain.Period, error) {
		return &active, nil
	}

	endDate := active.StartDate.Add(-time.Hour)
	_, err := s.service.EndPeriod(s.ctx, s.roomID, s.actorID, &endDate, nil)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *PeriodServiceTestSuite) TestEndPeriod_NotActive() {
	ended := domain.Period{PeriodID: uuid.NewString(), RoomID: s.roomID, Status: domain.PeriodEnded}
	s.periodRepo.FindPeriodByIDFn = func(ctx context.Context, periodID string) (*domain.Period, error) {
		return &ended, nil
	}

	_, err := s.service.EndPeriod(s.ctx, s.roomID, s.actorID, nil, &ended.PeriodID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrConflict)
}

func (s *PeriodServiceTestSuite) TestLockPeriod_FromEnded() {
	ended := domain.Period{PeriodID: uuid.NewString(), RoomID: s.roomID, Status: domain.PeriodEnded}
	s.periodRepo.FindPeriodByIDFn = func(ctx context.Context, periodID string) (*domain.Period, error) {
		return &ended, nil
	}
	s.periodRepo.UpdatePeriodStatusFn = func(ctx context.Context, periodID string, from, to domain.PeriodStatus, endDate *time.Time, actorID string, at time.Time) error {
		s.Equal(domain.PeriodEnded, from)
		s.Equal(domain.PeriodLocked, to)
		return nil
	}

	period, err := s.service.LockPeriod(s.ctx, s.roomID, s.actorID, ended.PeriodID)

	s.Require().NoError(err)
	s.Equal(domain.PeriodLocked, period.Status)
	s.Equal([]portssvc.PeriodEvent{portssvc.PeriodLocked}, s.notifier.events)
}

func (s *PeriodServiceTestSuite) TestLockPeriod_FromActiveRejected() {
	active := domain.Period{PeriodID: uuid.NewString(), RoomID: s.roomID, Status: domain.PeriodActive}
	s.periodRepo.FindPeriodByIDFn = func(ctx context.Context, periodID string) (*domain.Period, error) {
		return &active, nil
	}

	_, err := s.service.LockPeriod(s.ctx, s.roomID, s.actorID, active.PeriodID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrConflict)
	s.Empty(s.notifier.events)
}

func (s *PeriodServiceTestSuite) TestUnlockPeriod_BackToEnded() {
	locked := domain.Period{PeriodID: uuid.NewString(), RoomID: s.roomID, Status: domain.PeriodLocked}
	s.periodRepo.FindPeriodByIDFn = func(ctx context.Context, periodID string) (*domain.Period, error) {
		return &locked, nil
	}
	s.periodRepo.UpdatePeriodStatusFn = func(ctx context.Context, periodID string, from, to domain.PeriodStatus, endDate *time.Time, actorID string, at time.Time) error {
		s.Equal(domain.PeriodLocked, from)
		s.Equal(domain.PeriodEnded, to)
		return nil
	}

	period, err := s.service.UnlockPeriod(s.ctx, s.roomID, s.actorID, locked.PeriodID, domain.PeriodEnded)

	s.Require().NoError(err)
	s.Equal(domain.PeriodEnded, period.Status)
	s.Equal([]portssvc.PeriodEvent{portssvc.PeriodUnlocked}, s.notifier.events)
}

func (s *PeriodServiceTestSuite) TestUnlockPeriod_NotLocked() {
	ended := domain.Period{PeriodID: uuid.NewString(), RoomID: s.roomID, Status: domain.PeriodEnded}
	s.periodRepo.FindPeriodByIDFn = func(ctx context.Context, periodID string) (*domain.Period, error) {
		return &ended, nil
	}

	_, err := s.service.UnlockPeriod(s.ctx, s.roomID, s.actorID, ended.PeriodID, domain.PeriodEnded)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrConflict)
}

func (s *PeriodServiceTestSuite) TestUnlockPeriod_InvalidTarget() {
	locked := domain.Period{PeriodID: uuid.NewString(), RoomID: s.roomID, Status: domain.PeriodLocked}
	s.periodRepo.FindPeriodByIDFn = func(ctx context.Context, periodID string) (*domain.Period, error) {
		return &locked, nil
	}

	_, err := s.service.UnlockPeriod(s.ctx, s.roomID, s.actorID, locked.PeriodID, domain.PeriodActive)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *PeriodServiceTestSuite) TestArchivePeriod_FromEnded() {
	ended := domain.Period{PeriodID: uuid.NewString(), RoomID: s.roomID, Status: domain.PeriodEnded}
	s.periodRepo.FindPeriodByIDFn = func(ctx context.Context, periodID string) (*domain.Period, error) {
		return &ended, nil
	}
	s.periodRepo.UpdatePeriodStatusFn = func(ctx context.Context, periodID string, from, to domain.PeriodStatus, endDate *time.Time, actorID string, at time.Time) error {
		s.Equal(domain.PeriodArchived, to)
		return nil
	}

	period, err := s.service.ArchivePeriod(s.ctx, s.roomID, s.actorID, ended.PeriodID)

	s.Require().NoError(err)
	s.Equal(domain.PeriodArchived, period.Status)
}

func (s *PeriodServiceTestSuite) TestRestartPeriod_WithCarryForward() {
	source := domain.Period{PeriodID: uuid.NewString(), RoomID: s.roomID, Status: domain.PeriodEnded}
	s.periodRepo.FindPeriodByIDFn = func(ctx context.Context, periodID string) (*domain.Period, error) {
		return &source, nil
	}
	s.summarySvc.CalculateClosingBalanceFn = func(ctx context.Context, roomID, periodID string, policy domain.CarryPolicy) (decimal.Decimal, error) {
		s.Equal(source.PeriodID, periodID)
		s.Equal(domain.CarryBalance, policy)
		return decimal.RequireFromString("120.50"), nil
	}
	recurring := domain.ShoppingItem{
		ItemID:    uuid.NewString(),
		RoomID:    s.roomID,
		PeriodID:  &source.PeriodID,
		Name:      "Rice 5kg",
		Purchased: true,
		Recurring: true,
	}
	s.shoppingRepo.ListRecurringItemsFn = func(ctx context.Context, periodID string) ([]domain.ShoppingItem, error) {
		return []domain.ShoppingItem{recurring}, nil
	}

	var newPeriod domain.Period
	var reseeded []domain.ShoppingItem
	s.periodRepo.RestartPeriodFn = func(ctx context.Context, sourcePeriodID string, np domain.Period, reseed []domain.ShoppingItem) error {
		s.Equal(source.PeriodID, sourcePeriodID)
		newPeriod, reseeded = np, reseed
		return nil
	}

	period, err := s.service.RestartPeriod(s.ctx, s.roomID, s.actorID, source.PeriodID, dto.RestartPeriodRequest{
		NewName:              "April 2025",
		WithCarryForwardData: true,
	})

	s.Require().NoError(err)
	s.Equal("April 2025", period.Name)
	s.Equal(domain.PeriodActive, newPeriod.Status)
	s.True(newPeriod.OpeningBalance.Equal(decimal.RequireFromString("120.50")))
	s.True(newPeriod.CarryForward)

	s.Require().Len(reseeded, 1)
	s.NotEqual(recurring.ItemID, reseeded[0].ItemID, "reseeded item should get a fresh ID")
	s.Require().NotNil(reseeded[0].PeriodID)
	s.Equal(newPeriod.PeriodID, *reseeded[0].PeriodID)
	s.False(reseeded[0].Purchased, "reseeded item should start unpurchased")
	s.True(reseeded[0].Recurring)

	s.Equal([]portssvc.PeriodEvent{portssvc.PeriodRestarted}, s.notifier.events)
}

func (s *PeriodServiceTestSuite) TestRestartPeriod_WithoutCarryForward() {
	source := domain.Period{
		PeriodID:       uuid.NewString(),
		RoomID:         s.roomID,
		Status:         domain.PeriodLocked,
		OpeningBalance: decimal.RequireFromString("500"),
	}
	s.periodRepo.FindPeriodByIDFn = func(ctx context.Context, periodID string) (*domain.Period, error) {
		return &source, nil
	}

	var newPeriod domain.Period
	s.periodRepo.RestartPeriodFn = func(ctx context.Context, sourcePeriodID string, np domain.Period, reseed []domain.ShoppingItem) error {
		newPeriod = np
		s.Empty(reseed)
		return nil
	}

	_, err := s.service.RestartPeriod(s.ctx, s.roomID, s.actorID, source.PeriodID, dto.RestartPeriodRequest{})

	s.Require().NoError(err)
	s.True(newPeriod.OpeningBalance.IsZero(), "fresh restart starts from zero")
	s.False(newPeriod.CarryForward)
	s.Equal("March 2025", newPeriod.Name, "name defaults to the current month")
}

func (s *PeriodServiceTestSuite) TestRestartPeriod_SourceStillActive() {
	source := domain.Period{PeriodID: uuid.NewString(), RoomID: s.roomID, Status: domain.PeriodActive}
	s.periodRepo.FindPeriodByIDFn = func(ctx context.Context, periodID string) (*domain.Period, error) {
		return &source, nil
	}

	_, err := s.service.RestartPeriod(s.ctx, s.roomID, s.actorID, source.PeriodID, dto.RestartPeriodRequest{})

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrConflict)
}

func (s *PeriodServiceTestSuite) TestRestartPeriod_AnotherActiveExists() {
	source := domain.Period{PeriodID: uuid.NewString(), RoomID: s.roomID, Status: domain.PeriodEnded}
	s.periodRepo.FindPeriodByIDFn = func(ctx context.Context, periodID string) (*domain.Period, error) {
		return &source, nil
	}
	s.periodRepo.FindActivePeriodFn = func(ctx context.Context, roomID string) (*domain.Period, error) {
		return &domain.Period{PeriodID: uuid.NewString(), RoomID: roomID, Status: domain.PeriodActive}, nil
	}

	_, err := s.service.RestartPeriod(s.ctx, s.roomID, s.actorID, source.PeriodID, dto.RestartPeriodRequest{})

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrConflict)
}

func (s *PeriodServiceTestSuite) TestEnsureMonthlyPeriod_CreatesFirstPeriod() {
	s.roomSvc.FindRoomByIDFn = func(ctx context.Context, roomID string) (*domain.Room, error) {
		return &domain.Room{
			RoomID:      roomID,
			PeriodMode:  domain.PeriodModeMonthly,
			AuditFields: domain.AuditFields{CreatedBy: s.actorID},
		}, nil
	}

	var saved domain.Period
	s.periodRepo.SavePeriodFn = func(ctx context.Context, period domain.Period) error {
		saved = period
		return nil
	}
	var adoptedPeriodID string
	s.periodRepo.AdoptUnscopedRowsFn = func(ctx context.Context, roomID, periodID string) error {
		adoptedPeriodID = periodID
		return nil
	}

	s.service.EnsureMonthlyPeriod(s.ctx, s.roomID, s.actorID)

	s.Equal("March 2025", saved.Name)
	s.Equal(domain.PeriodActive, saved.Status)
	s.True(saved.StartDate.Equal(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)))
	s.Equal(saved.PeriodID, adoptedPeriodID, "pre-period rows should be adopted into the new period")
	s.Equal([]portssvc.PeriodEvent{portssvc.PeriodStarted}, s.notifier.events)
}

func (s *PeriodServiceTestSuite) TestEnsureMonthlyPeriod_CurrentMonthAlreadyOpen() {
	s.roomSvc.FindRoomByIDFn = func(ctx context.Context, roomID string) (*domain.Room, error) {
		return &domain.Room{RoomID: roomID, PeriodMode: domain.PeriodModeMonthly}, nil
	}
	s.periodRepo.FindActivePeriodFn = func(ctx context.Context, roomID string) (*domain.Period, error) {
		return &domain.Period{
			PeriodID:  uuid.NewString(),
			RoomID:    roomID,
			Status:    domain.PeriodActive,
			StartDate: time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		}, nil
	}

	saveCalled := false
	s.periodRepo.SavePeriodFn = func(ctx context.Context, period domain.Period) error {
		saveCalled = true
		return nil
	}

	s.service.EnsureMonthlyPeriod(s.ctx, s.roomID, s.actorID)

	s.False(saveCalled, "an open current-month period must not be duplicated")
	s.Empty(s.notifier.events)
}

func (s *PeriodServiceTestSuite) TestEnsureMonthlyPeriod_ManualRoomUntouched() {
	lookedUp := false
	s.periodRepo.FindActivePeriodFn = func(ctx context.Context, roomID string) (*domain.Period, error) {
		lookedUp = true
		return nil, apperrors.ErrNotFound
	}

	s.service.EnsureMonthlyPeriod(s.ctx, s.roomID, s.actorID)

	s.False(lookedUp, "manual rooms never auto-create periods")
}

func (s *PeriodServiceTestSuite) TestEnsureMonthlyPeriod_NonMemberIgnored() {
	outsider := uuid.NewString()
	s.roomSvc.AuthorizeUserActionFn = func(ctx context.Context, userID, roomID string, requiredRole domain.UserRoomRole) error {
		s.Equal(outsider, userID)
		s.Equal(domain.RoleMember, requiredRole)
		return apperrors.ErrForbidden
	}
	roomLoaded := false
	s.roomSvc.FindRoomByIDFn = func(ctx context.Context, roomID string) (*domain.Room, error) {
		roomLoaded = true
		return &domain.Room{RoomID: roomID, PeriodMode: domain.PeriodModeMonthly}, nil
	}
	saveCalled := false
	s.periodRepo.SavePeriodFn = func(ctx context.Context, period domain.Period) error {
		saveCalled = true
		return nil
	}

	s.service.EnsureMonthlyPeriod(s.ctx, s.roomID, outsider)

	s.False(roomLoaded, "outsiders must not reach the room at all")
	s.False(saveCalled)
	s.Empty(s.notifier.events)
}

func (s *PeriodServiceTestSuite) TestEnsureMonthlyPeriod_RollsOverStalePeriod() {
	s.roomSvc.FindRoomByIDFn = func(ctx context.Context, roomID string) (*domain.Room, error) {
		return &domain.Room{
			RoomID:      roomID,
			PeriodMode:  domain.PeriodModeMonthly,
			CarryPolicy: domain.CarryAvailable,
			AuditFields: domain.AuditFields{CreatedBy: s.actorID},
		}, nil
	}
	stale := domain.Period{
		PeriodID:  uuid.NewString(),
		RoomID:    s.roomID,
		Status:    domain.PeriodActive,
		StartDate: time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
	}
	s.periodRepo.FindActivePeriodFn = func(ctx context.Context, roomID string) (*domain.Period, error) {
		return &stale, nil
	}
	s.summarySvc.CalculateClosingBalanceFn = func(ctx context.Context, roomID, periodID string, policy domain.CarryPolicy) (decimal.Decimal, error) {
		s.Equal(stale.PeriodID, periodID)
		s.Equal(domain.CarryAvailable, policy)
		return decimal.RequireFromString("75"), nil
	}

	monthStart := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	var endedAt time.Time
	var next domain.Period
	s.periodRepo.RolloverPeriodFn = func(ctx context.Context, stalePeriodID string, endDate time.Time, np domain.Period) error {
		s.Equal(stale.PeriodID, stalePeriodID)
		endedAt, next = endDate, np
		return nil
	}

	s.service.EnsureMonthlyPeriod(s.ctx, s.roomID, s.actorID)

	s.True(endedAt.Before(monthStart), "stale period ends just before the month boundary")
	s.Equal("March 2025", next.Name)
	s.True(next.StartDate.Equal(monthStart))
	s.True(next.OpeningBalance.Equal(decimal.RequireFromString("75")), "closing balance carries into the new month")
	s.True(next.CarryForward)
	s.Equal([]portssvc.PeriodEvent{portssvc.PeriodEnded, portssvc.PeriodStarted}, s.notifier.events)
}

func (s *PeriodServiceTestSuite) TestEnsureMonthlyPeriod_FailedRolloverKeepsCarryForward() {
	s.roomSvc.FindRoomByIDFn = func(ctx context.Context, roomID string) (*domain.Room, error) {
		return &domain.Room{
			RoomID:      roomID,
			PeriodMode:  domain.PeriodModeMonthly,
			CarryPolicy: domain.CarryBalance,
			AuditFields: domain.AuditFields{CreatedBy: s.actorID},
		}, nil
	}
	stale := domain.Period{
		PeriodID:  uuid.NewString(),
		RoomID:    s.roomID,
		Status:    domain.PeriodActive,
		StartDate: time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC),
	}
	s.periodRepo.FindActivePeriodFn = func(ctx context.Context, roomID string) (*domain.Period, error) {
		return &stale, nil
	}
	closing := decimal.RequireFromString("500.00")
	s.summarySvc.CalculateClosingBalanceFn = func(ctx context.Context, roomID, periodID string, policy domain.CarryPolicy) (decimal.Decimal, error) {
		return closing, nil
	}

	saveCalled := false
	s.periodRepo.SavePeriodFn = func(ctx context.Context, period domain.Period) error {
		saveCalled = true
		return nil
	}
	attempts := 0
	var next domain.Period
	s.periodRepo.RolloverPeriodFn = func(ctx context.Context, stalePeriodID string, endDate time.Time, np domain.Period) error {
		attempts++
		if attempts == 1 {
			return errors.New("connection reset by peer")
		}
		next = np
		return nil
	}

	s.service.EnsureMonthlyPeriod(s.ctx, s.roomID, s.actorID)

	s.False(saveCalled, "a failed rollover must not open a period outside the transaction")
	s.Empty(s.notifier.events, "nothing to announce when the rollover did not land")

	// The stale period is still ACTIVE, so the next call retries the rollover
	// and the carried balance is intact.
	s.service.EnsureMonthlyPeriod(s.ctx, s.roomID, s.actorID)

	s.Equal(2, attempts)
	s.True(next.OpeningBalance.Equal(closing), "carried balance survives a failed first attempt, got %s", next.OpeningBalance)
	s.True(next.CarryForward)
	s.Equal([]portssvc.PeriodEvent{portssvc.PeriodEnded, portssvc.PeriodStarted}, s.notifier.events)
}

func (s *PeriodServiceTestSuite) TestGetPeriod_WrongRoom() {
	other := domain.Period{PeriodID: uuid.NewString(), RoomID: uuid.NewString(), Status: domain.PeriodEnded}
	s.periodRepo.FindPeriodByIDFn = func(ctx context.Context, periodID string) (*domain.Period, error) {
		return &other, nil
	}

	_, err := s.service.GetPeriod(s.ctx, other.PeriodID, s.roomID, s.actorID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrForbidden)
}

func (s *PeriodServiceTestSuite) TestGetPeriods_EmptyListNotNil() {
	s.periodRepo.ListPeriodsByRoomFn = func(ctx context.Context, roomID string, includeArchived bool) ([]domain.Period, error) {
		return nil, nil
	}

	periods, err := s.service.GetPeriods(s.ctx, s.roomID, s.actorID, false)

	s.Require().NoError(err)
	s.NotNil(periods)
	s.Empty(periods)
}

func (s *PeriodServiceTestSuite) TestCalculatePeriodSummary_Delegates() {
	period := domain.Period{PeriodID: uuid.NewString(), RoomID: s.roomID, Status: domain.PeriodEnded}
	s.periodRepo.FindPeriodByIDFn = func(ctx context.Context, periodID string) (*domain.Period, error) {
		return &period, nil
	}
	want := &domain.PeriodSummary{
		Period:     period,
		MealRate:   decimal.RequireFromString("42.5"),
		TotalMeals: 80,
	}
	s.summarySvc.BuildPeriodSummaryFn = func(ctx context.Context, room domain.Room, p domain.Period) (*domain.PeriodSummary, error) {
		s.Equal(period.PeriodID, p.PeriodID)
		return want, nil
	}

	summary, err := s.service.CalculatePeriodSummary(s.ctx, period.PeriodID, s.roomID, s.actorID)

	s.Require().NoError(err)
	s.Equal(int64(80), summary.TotalMeals)
	s.True(summary.MealRate.Equal(want.MealRate))
}

func TestPeriodServiceTestSuite(t *testing.T) {
	suite.Run(t, new(PeriodServiceTestSuite))
}
