package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/messmate/messmate_backend/internal/apperrors"
	"github.com/messmate/messmate_backend/internal/core/domain"
	portsrepo "github.com/messmate/messmate_backend/internal/core/ports/repositories"
	portssvc "github.com/messmate/messmate_backend/internal/core/ports/services"
	"github.com/messmate/messmate_backend/internal/dto"
	"github.com/messmate/messmate_backend/internal/platform/cache"
	"github.com/messmate/messmate_backend/internal/utils"
)

// transactionService implements the TransactionSvcFacade interface.
type transactionService struct {
	BaseService
	txnRepo    portsrepo.TransactionRepositoryFacade
	periodRepo portsrepo.PeriodReader
	cache      cache.Cache
}

// NewTransactionService creates a new account-transaction service.
func NewTransactionService(
	txnRepo portsrepo.TransactionRepositoryFacade,
	periodRepo portsrepo.PeriodReader,
	authorizer portssvc.RoomAuthorizerSvc,
	derivedCache cache.Cache,
) portssvc.TransactionSvcFacade {
	if derivedCache == nil {
		derivedCache = cache.Noop{}
	}
	svc := &transactionService{
		txnRepo:    txnRepo,
		periodRepo: periodRepo,
		cache:      derivedCache,
	}
	svc.RoomAuthorizer = authorizer
	return svc
}

var _ portssvc.TransactionSvcFacade = (*transactionService)(nil)

// CreateTransaction records a monetary movement. An omitted target makes the
// transaction a deposit (sender credits themselves). Adjustments require the
// manager role; the repository appends the CREATE history row in the same
// store transaction as the insert.
func (s *transactionService) CreateTransaction(ctx context.Context, roomID string, req dto.CreateTransactionRequest, actorID string) (*domain.AccountTransaction, error) {
	txnType := domain.TransactionType(req.Type)
	requiredRole := domain.RoleMember
	if txnType == domain.TxnAdjustment {
		requiredRole = domain.RoleManager
	}
	if err := s.AuthorizeUser(ctx, actorID, roomID, requiredRole); err != nil {
		return nil, err
	}

	targetID := req.TargetID
	if targetID == "" {
		targetID = actorID
	}
	if txnType == domain.TxnDeposit && targetID != actorID {
		return nil, fmt.Errorf("%w: a deposit credits the sender", apperrors.ErrValidation)
	}
	if txnType == domain.TxnTransfer && targetID == actorID {
		return nil, fmt.Errorf("%w: a transfer needs a distinct target", apperrors.ErrValidation)
	}
	if err := s.AuthorizeUser(ctx, targetID, roomID, domain.RoleMember); err != nil {
		return nil, fmt.Errorf("%w: target is not a member of this room", apperrors.ErrValidation)
	}

	periodID, err := currentPeriodID(ctx, s.periodRepo, roomID)
	if err != nil {
		return nil, err
	}
	if err := ensurePeriodMutable(ctx, s.periodRepo, periodID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	txn := domain.AccountTransaction{
		TransactionID: uuid.NewString(),
		RoomID:        roomID,
		PeriodID:      periodID,
		SenderID:      actorID,
		TargetID:      targetID,
		Amount:        utils.RoundMoney(req.Amount),
		Type:          txnType,
		Description:   req.Description,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actorID,
			LastUpdatedAt: now,
			LastUpdatedBy: actorID,
		},
	}

	if err := s.txnRepo.SaveTransaction(ctx, txn); err != nil {
		s.LogError(ctx, err, "Failed to save transaction", slog.String("room_id", roomID))
		return nil, err
	}

	s.invalidate(ctx, txn)
	s.LogInfo(ctx, "Transaction recorded",
		slog.String("transaction_id", txn.TransactionID),
		slog.String("type", string(txn.Type)),
		slog.String("amount", txn.Amount.String()))
	return &txn, nil
}

// ListTransactions lists transactions in a scope.
func (s *transactionService) ListTransactions(ctx context.Context, roomID string, periodID *string, requestingUserID string) ([]domain.AccountTransaction, error) {
	if err := s.AuthorizeUser(ctx, requestingUserID, roomID, domain.RoleMember); err != nil {
		return nil, err
	}
	txns, err := s.txnRepo.ListTransactions(ctx, roomID, periodID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list transactions", slog.String("room_id", roomID))
		return nil, err
	}
	if txns == nil {
		return []domain.AccountTransaction{}, nil
	}
	return txns, nil
}

// UpdateTransaction edits a transaction. The pre-edit state is snapshotted
// into the audit trail atomically with the update.
func (s *transactionService) UpdateTransaction(ctx context.Context, roomID, transactionID string, req dto.UpdateTransactionRequest, actorID string) (*domain.AccountTransaction, error) {
	prev, err := s.ownedTransaction(ctx, roomID, transactionID)
	if err != nil {
		return nil, err
	}
	if err := canEditRow(ctx, s.RoomAuthorizer, actorID, prev.SenderID, roomID); err != nil {
		return nil, err
	}
	if err := ensurePeriodMutable(ctx, s.periodRepo, prev.PeriodID); err != nil {
		return nil, err
	}

	txn := *prev
	if req.Amount != nil {
		txn.Amount = utils.RoundMoney(*req.Amount)
	}
	if req.Type != nil {
		txn.Type = domain.TransactionType(*req.Type)
	}
	if req.Description != nil {
		txn.Description = *req.Description
	}
	if txn.Type == domain.TxnDeposit && !txn.IsDeposit() {
		return nil, fmt.Errorf("%w: a deposit credits the sender", apperrors.ErrValidation)
	}
	txn.LastUpdatedAt = time.Now().UTC()
	txn.LastUpdatedBy = actorID

	if err := s.txnRepo.UpdateTransaction(ctx, txn, *prev, actorID); err != nil {
		s.LogError(ctx, err, "Failed to update transaction", slog.String("transaction_id", transactionID))
		return nil, err
	}

	s.invalidate(ctx, txn)
	s.LogInfo(ctx, "Transaction updated", slog.String("transaction_id", transactionID))
	return &txn, nil
}

// DeleteTransaction removes a transaction, snapshotting it into the audit
// trail atomically with the delete.
func (s *transactionService) DeleteTransaction(ctx context.Context, roomID, transactionID, actorID string) error {
	txn, err := s.ownedTransaction(ctx, roomID, transactionID)
	if err != nil {
		return err
	}
	if err := canEditRow(ctx, s.RoomAuthorizer, actorID, txn.SenderID, roomID); err != nil {
		return err
	}
	if err := ensurePeriodMutable(ctx, s.periodRepo, txn.PeriodID); err != nil {
		return err
	}

	if err := s.txnRepo.DeleteTransaction(ctx, *txn, actorID); err != nil {
		s.LogError(ctx, err, "Failed to delete transaction", slog.String("transaction_id", transactionID))
		return err
	}

	s.invalidate(ctx, *txn)
	s.LogInfo(ctx, "Transaction deleted", slog.String("transaction_id", transactionID))
	return nil
}

// ListHistory returns the audit trail of one transaction, newest first.
func (s *transactionService) ListHistory(ctx context.Context, roomID, transactionID, requestingUserID string) ([]domain.TransactionHistory, error) {
	if _, err := s.ownedTransaction(ctx, roomID, transactionID); err != nil {
		return nil, err
	}
	if err := s.AuthorizeUser(ctx, requestingUserID, roomID, domain.RoleMember); err != nil {
		return nil, err
	}
	history, err := s.txnRepo.ListHistory(ctx, transactionID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list transaction history", slog.String("transaction_id", transactionID))
		return nil, err
	}
	if history == nil {
		return []domain.TransactionHistory{}, nil
	}
	return history, nil
}

func (s *transactionService) ownedTransaction(ctx context.Context, roomID, transactionID string) (*domain.AccountTransaction, error) {
	txn, err := s.txnRepo.FindTransactionByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.RoomID != roomID {
		return nil, fmt.Errorf("%w: transaction does not belong to this room", apperrors.ErrForbidden)
	}
	return txn, nil
}

func (s *transactionService) invalidate(ctx context.Context, txn domain.AccountTransaction) {
	tags := []string{
		cache.RoomTag(txn.RoomID),
		cache.UserTag(txn.RoomID, txn.TargetID),
	}
	if txn.PeriodID != nil {
		tags = append(tags, cache.PeriodTag(*txn.PeriodID))
	}
	s.cache.Invalidate(ctx, tags...)
}
