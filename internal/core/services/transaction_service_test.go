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
	portssvc "github.com/messmate/messmate_backend/internal/core/ports/services"
	"github.com/messmate/messmate_backend/internal/core/services"
	"github.com/messmate/messmate_backend/internal/dto"
	"github.com/messmate/messmate_backend/internal/platform/cache"
)

// --- Mock TransactionRepository ---
type MockTransactionRepository struct {
	mock.Mock
	SaveTransactionFn     func(ctx context.Context, txn domain.AccountTransaction) error
	FindTransactionByIDFn func(ctx context.Context, transactionID string) (*domain.AccountTransaction, error)
	ListTransactionsFn    func(ctx context.Context, roomID string, periodID *string) ([]domain.AccountTransaction, error)
	UpdateTransactionFn   func(ctx context.Context, txn domain.AccountTransaction, prev domain.AccountTransaction, actorID string) error
	DeleteTransactionFn   func(ctx context.Context, txn domain.AccountTransaction, actorID string) error
	ListHistoryFn         func(ctx context.Context, transactionID string) ([]domain.TransactionHistory, error)
}

func (m *MockTransactionRepository) SaveTransaction(ctx context.Context, txn domain.AccountTransaction) error {
	if m.SaveTransactionFn != nil {
		return m.SaveTransactionFn(ctx, txn)
	}
	args := m.Called(ctx, txn)
	return args.Error(0)
}

func (m *MockTransactionRepository) FindTransactionByID(ctx context.Context, transactionID string) (*domain.AccountTransaction, error) {
	if m.FindTransactionByIDFn != nil {
		return m.FindTransactionByIDFn(ctx, transactionID)
	}
	args := m.Called(ctx, transactionID)
	var txn *domain.AccountTransaction
	if args.Get(0) != nil {
		txn = args.Get(0).(*domain.AccountTransaction)
	}
	return txn, args.Error(1)
}

func (m *MockTransactionRepository) ListTransactions(ctx context.Context, roomID string, periodID *string) ([]domain.AccountTransaction, error) {
	if m.ListTransactionsFn != nil {
		return m.ListTransactionsFn(ctx, roomID, periodID)
	}
	args := m.Called(ctx, roomID, periodID)
	var txns []domain.AccountTransaction
	if args.Get(0) != nil {
		txns = args.Get(0).([]domain.AccountTransaction)
	}
	return txns, args.Error(1)
}

func (m *MockTransactionRepository) UpdateTransaction(ctx context.Context, txn domain.AccountTransaction, prev domain.AccountTransaction, actorID string) error {
	if m.UpdateTransactionFn != nil {
		return m.UpdateTransactionFn(ctx, txn, prev, actorID)
	}
	args := m.Called(ctx, txn, prev, actorID)
	return args.Error(0)
}

func (m *MockTransactionRepository) DeleteTransaction(ctx context.Context, txn domain.AccountTransaction, actorID string) error {
	if m.DeleteTransactionFn != nil {
		return m.DeleteTransactionFn(ctx, txn, actorID)
	}
	args := m.Called(ctx, txn, actorID)
	return args.Error(0)
}

func (m *MockTransactionRepository) ListHistory(ctx context.Context, transactionID string) ([]domain.TransactionHistory, error) {
	if m.ListHistoryFn != nil {
		return m.ListHistoryFn(ctx, transactionID)
	}
	args := m.Called(ctx, transactionID)
	var history []domain.TransactionHistory
	if args.Get(0) != nil {
		history = args.Get(0).([]domain.TransactionHistory)
	}
	return history, args.Error(1)
}

// --- Test Suite ---
type TransactionServiceTestSuite struct {
	suite.Suite
	txnRepo    *MockTransactionRepository
	periodRepo *MockPeriodRepository
	roomSvc    *MockRoomService
	service    portssvc.TransactionSvcFacade

	ctx      context.Context
	roomID   string
	actorID  string
	memberID string
	activeID string
}

func (s *TransactionServiceTestSuite) SetupTest() {
	s.txnRepo = &MockTransactionRepository{}
	s.periodRepo = &MockPeriodRepository{}
	s.roomSvc = &MockRoomService{}

	s.ctx = context.Background()
	s.roomID = uuid.NewString()
	s.actorID = uuid.NewString()
	s.memberID = uuid.NewString()
	s.activeID = uuid.NewString()

	// Defaults: everyone is a member, the actor is also a manager, and the room
	// has one ACTIVE period.
	s.roomSvc.AuthorizeUserActionFn = func(ctx context.Context, userID, roomID string, requiredRole domain.UserRoomRole) error {
		return nil
	}
	s.periodRepo.FindActivePeriodFn = func(ctx context.Context, roomID string) (*domain.Period, error) {
		return &domain.Period{PeriodID: s.activeID, RoomID: roomID, Status: domain.PeriodActive}, nil
	}
	s.periodRepo.FindPeriodByIDFn = func(ctx context.Context, periodID string) (*domain.Period, error) {
		return &domain.Period{PeriodID: periodID, RoomID: s.roomID, Status: domain.PeriodActive}, nil
	}

	s.service = services.NewTransactionService(s.txnRepo, s.periodRepo, s.roomSvc, cache.Noop{})
}

func (s *TransactionServiceTestSuite) TestCreateTransaction_Deposit() {
	var saved domain.AccountTransaction
	s.txnRepo.SaveTransactionFn = func(ctx context.Context, txn domain.AccountTransaction) error {
		saved = txn
		return nil
	}

	req := dto.CreateTransactionRequest{
		Amount: decimal.RequireFromString("250.555"),
		Type:   "DEPOSIT",
	}
	txn, err := s.service.CreateTransaction(s.ctx, s.roomID, req, s.actorID)

	s.Require().NoError(err)
	s.Equal(s.actorID, saved.SenderID)
	s.Equal(s.actorID, saved.TargetID, "omitted target defaults to the sender")
	s.True(saved.IsDeposit())
	s.True(saved.Amount.Equal(decimal.RequireFromString("250.56")), "amount rounded to 2 places, got %s", saved.Amount)
	s.Require().NotNil(saved.PeriodID)
	s.Equal(s.activeID, *saved.PeriodID, "new transactions are scoped to the active period")
	s.Equal(domain.TxnDeposit, txn.Type)
}

func (s *TransactionServiceTestSuite) TestCreateTransaction_DepositToOtherRejected() {
	req := dto.CreateTransactionRequest{
		TargetID: s.memberID,
		Amount:   decimal.RequireFromString("100"),
		Type:     "DEPOSIT",
	}
	_, err := s.service.CreateTransaction(s.ctx, s.roomID, req, s.actorID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *TransactionServiceTestSuite) TestCreateTransaction_TransferToSelfRejected() {
	req := dto.CreateTransactionRequest{
		TargetID: s.actorID,
		Amount:   decimal.RequireFromString("100"),
		Type:     "TRANSFER",
	}
	_, err := s.service.CreateTransaction(s.ctx, s.roomID, req, s.actorID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *TransactionServiceTestSuite) TestCreateTransaction_AdjustmentNeedsManager() {
	s.roomSvc.AuthorizeUserActionFn = func(ctx context.Context, userID, roomID string, requiredRole domain.UserRoomRole) error {
		if requiredRole == domain.RoleManager {
			return apperrors.ErrForbidden
		}
		return nil
	}
	saveCalled := false
	s.txnRepo.SaveTransactionFn = func(ctx context.Context, txn domain.AccountTransaction) error {
		saveCalled = true
		return nil
	}

	req := dto.CreateTransactionRequest{
		TargetID: s.memberID,
		Amount:   decimal.RequireFromString("-50"),
		Type:     "ADJUSTMENT",
	}
	_, err := s.service.CreateTransaction(s.ctx, s.roomID, req, s.actorID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrForbidden)
	s.False(saveCalled)
}

func (s *TransactionServiceTestSuite) TestCreateTransaction_TargetNotMember() {
	outsider := uuid.NewString()
	s.roomSvc.AuthorizeUserActionFn = func(ctx context.Context, userID, roomID string, requiredRole domain.UserRoomRole) error {
		if userID == outsider {
			return apperrors.ErrForbidden
		}
		return nil
	}

	req := dto.CreateTransactionRequest{
		TargetID: outsider,
		Amount:   decimal.RequireFromString("100"),
		Type:     "TRANSFER",
	}
	_, err := s.service.CreateTransaction(s.ctx, s.roomID, req, s.actorID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrValidation, "a target outside the room is a validation failure, not an authorization one")
}

func (s *TransactionServiceTestSuite) TestUpdateTransaction_SnapshotsPreviousState() {
	periodID := s.activeID
	prev := domain.AccountTransaction{
		TransactionID: uuid.NewString(),
		RoomID:        s.roomID,
		PeriodID:      &periodID,
		SenderID:      s.actorID,
		TargetID:      s.actorID,
		Amount:        decimal.RequireFromString("100"),
		Type:          domain.TxnDeposit,
		Description:   "initial",
	}
	s.txnRepo.FindTransactionByIDFn = func(ctx context.Context, transactionID string) (*domain.AccountTransaction, error) {
		p := prev
		return &p, nil
	}

	var gotTxn, gotPrev domain.AccountTransaction
	var gotActor string
	s.txnRepo.UpdateTransactionFn = func(ctx context.Context, txn domain.AccountTransaction, previous domain.AccountTransaction, actorID string) error {
		gotTxn, gotPrev, gotActor = txn, previous, actorID
		return nil
	}

	newAmount := decimal.RequireFromString("150")
	updated, err := s.service.UpdateTransaction(s.ctx, s.roomID, prev.TransactionID, dto.UpdateTransactionRequest{Amount: &newAmount}, s.actorID)

	s.Require().NoError(err)
	s.True(gotPrev.Amount.Equal(decimal.RequireFromString("100")), "audit snapshot must hold the pre-edit amount")
	s.True(gotTxn.Amount.Equal(newAmount))
	s.Equal(s.actorID, gotActor)
	s.True(updated.Amount.Equal(newAmount))
	s.Equal("initial", updated.Description, "unset fields keep their previous values")
}

func (s *TransactionServiceTestSuite) TestUpdateTransaction_LockedPeriod() {
	lockedID := uuid.NewString()
	prev := domain.AccountTransaction{
		TransactionID: uuid.NewString(),
		RoomID:        s.roomID,
		PeriodID:      &lockedID,
		SenderID:      s.actorID,
		TargetID:      s.actorID,
		Amount:        decimal.RequireFromString("100"),
		Type:          domain.TxnDeposit,
	}
	s.txnRepo.FindTransactionByIDFn = func(ctx context.Context, transactionID string) (*domain.AccountTransaction, error) {
		return &prev, nil
	}
	s.periodRepo.FindPeriodByIDFn = func(ctx context.Context, periodID string) (*domain.Period, error) {
		return &domain.Period{PeriodID: periodID, RoomID: s.roomID, Status: domain.PeriodLocked}, nil
	}

	newAmount := decimal.RequireFromString("1")
	_, err := s.service.UpdateTransaction(s.ctx, s.roomID, prev.TransactionID, dto.UpdateTransactionRequest{Amount: &newAmount}, s.actorID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrConflict)
}

func (s *TransactionServiceTestSuite) TestUpdateTransaction_OthersRowNeedsManager() {
	prev := domain.AccountTransaction{
		TransactionID: uuid.NewString(),
		RoomID:        s.roomID,
		SenderID:      s.memberID,
		TargetID:      s.memberID,
		Amount:        decimal.RequireFromString("100"),
		Type:          domain.TxnDeposit,
	}
	s.txnRepo.FindTransactionByIDFn = func(ctx context.Context, transactionID string) (*domain.AccountTransaction, error) {
		return &prev, nil
	}
	s.roomSvc.AuthorizeUserActionFn = func(ctx context.Context, userID, roomID string, requiredRole domain.UserRoomRole) error {
		if requiredRole == domain.RoleManager {
			return apperrors.ErrForbidden
		}
		return nil
	}

	newAmount := decimal.RequireFromString("1")
	_, err := s.service.UpdateTransaction(s.ctx, s.roomID, prev.TransactionID, dto.UpdateTransactionRequest{Amount: &newAmount}, s.actorID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrForbidden)
}

func (s *TransactionServiceTestSuite) TestDeleteTransaction_SnapshotsRow() {
	periodID := s.activeID
	txn := domain.AccountTransaction{
		TransactionID: uuid.NewString(),
		RoomID:        s.roomID,
		PeriodID:      &periodID,
		SenderID:      s.actorID,
		TargetID:      s.actorID,
		Amount:        decimal.RequireFromString("100"),
		Type:          domain.TxnDeposit,
	}
	s.txnRepo.FindTransactionByIDFn = func(ctx context.Context, transactionID string) (*domain.AccountTransaction, error) {
		return &txn, nil
	}

	var deleted domain.AccountTransaction
	var gotActor string
	s.txnRepo.DeleteTransactionFn = func(ctx context.Context, t domain.AccountTransaction, actorID string) error {
		deleted, gotActor = t, actorID
		return nil
	}

	err := s.service.DeleteTransaction(s.ctx, s.roomID, txn.TransactionID, s.actorID)

	s.Require().NoError(err)
	s.Equal(txn.TransactionID, deleted.TransactionID)
	s.True(deleted.Amount.Equal(txn.Amount), "the deleted row is handed to the repository for its audit snapshot")
	s.Equal(s.actorID, gotActor)
}

func (s *TransactionServiceTestSuite) TestListHistory_WrongRoom() {
	txn := domain.AccountTransaction{
		TransactionID: uuid.NewString(),
		RoomID:        uuid.NewString(),
		SenderID:      s.actorID,
		TargetID:      s.actorID,
		Type:          domain.TxnDeposit,
	}
	s.txnRepo.FindTransactionByIDFn = func(ctx context.Context, transactionID string) (*domain.AccountTransaction, error) {
		return &txn, nil
	}

	_, err := s.service.ListHistory(s.ctx, s.roomID, txn.TransactionID, s.actorID)

	s.Require().Error(err)
	s.ErrorIs(err, apperrors.ErrForbidden)
}

func (s *TransactionServiceTestSuite) TestListHistory_OrderedTrail() {
	periodID := s.activeID
	txn := domain.AccountTransaction{
		TransactionID: uuid.NewString(),
		RoomID:        s.roomID,
		PeriodID:      &periodID,
		SenderID:      s.actorID,
		TargetID:      s.actorID,
		Type:          domain.TxnDeposit,
	}
	s.txnRepo.FindTransactionByIDFn = func(ctx context.Context, transactionID string) (*domain.AccountTransaction, error) {
		return &txn, nil
	}
	base := time.Date(2025, time.March, 1, 10, 0, 0, 0, time.UTC)
	s.txnRepo.ListHistoryFn = func(ctx context.Context, transactionID string) ([]domain.TransactionHistory, error) {
		return []domain.TransactionHistory{
			{HistoryID: uuid.NewString(), TransactionID: transactionID, Action: domain.HistoryUpdate, CreatedAt: base.Add(time.Hour)},
			{HistoryID: uuid.NewString(), TransactionID: transactionID, Action: domain.HistoryCreate, CreatedAt: base},
		}, nil
	}

	history, err := s.service.ListHistory(s.ctx, s.roomID, txn.TransactionID, s.actorID)

	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(domain.HistoryUpdate, history[0].Action, "trail is returned newest first")
	s.Equal(domain.HistoryCreate, history[1].Action)
}

func TestTransactionServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TransactionServiceTestSuite))
}
