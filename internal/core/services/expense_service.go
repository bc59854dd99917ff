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

// expenseService implements the ExpenseSvcFacade interface.
type expenseService struct {
	BaseService
	expenseRepo portsrepo.ExpenseRepositoryFacade
	periodRepo  portsrepo.PeriodReader
	cache       cache.Cache
}

// NewExpenseService creates a new expense service.
func NewExpenseService(
	expenseRepo portsrepo.ExpenseRepositoryFacade,
	periodRepo portsrepo.PeriodReader,
	authorizer portssvc.RoomAuthorizerSvc,
	derivedCache cache.Cache,
) portssvc.ExpenseSvcFacade {
	if derivedCache == nil {
		derivedCache = cache.Noop{}
	}
	svc := &expenseService{
		expenseRepo: expenseRepo,
		periodRepo:  periodRepo,
		cache:       derivedCache,
	}
	svc.RoomAuthorizer = authorizer
	return svc
}

var _ portssvc.ExpenseSvcFacade = (*expenseService)(nil)

// CreateExpense records a shared expense against the room's active period.
func (s *expenseService) CreateExpense(ctx context.Context, roomID string, req dto.CreateExpenseRequest, actorID string) (*domain.ExtraExpense, error) {
	if err := s.AuthorizeUser(ctx, actorID, roomID, domain.RoleMember); err != nil {
		return nil, err
	}

	periodID, err := currentPeriodID(ctx, s.periodRepo, roomID)
	if err != nil {
		return nil, err
	}
	if err := ensurePeriodMutable(ctx, s.periodRepo, periodID); err != nil {
		return nil, err
	}

	category := domain.ExpenseCategory(req.Category)
	if category == "" {
		category = domain.ExpenseOther
	}

	now := time.Now().UTC()
	expense := domain.ExtraExpense{
		ExpenseID:   uuid.NewString(),
		RoomID:      roomID,
		PeriodID:    periodID,
		UserID:      actorID,
		Amount:      utils.RoundMoney(req.Amount),
		Description: req.Description,
		Category:    category,
		Date:        req.Date,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actorID,
			LastUpdatedAt: now,
			LastUpdatedBy: actorID,
		},
	}

	if err := s.expenseRepo.SaveExpense(ctx, expense); err != nil {
		s.LogError(ctx, err, "Failed to save expense", slog.String("room_id", roomID))
		return nil, err
	}

	s.invalidate(ctx, roomID, periodID)
	s.LogInfo(ctx, "Expense recorded",
		slog.String("expense_id", expense.ExpenseID),
		slog.String("room_id", roomID),
		slog.String("amount", expense.Amount.String()))
	return &expense, nil
}

// ListExpenses lists expenses in a scope.
func (s *expenseService) ListExpenses(ctx context.Context, roomID string, periodID *string, requestingUserID string) ([]domain.ExtraExpense, error) {
	if err := s.AuthorizeUser(ctx, requestingUserID, roomID, domain.RoleMember); err != nil {
		return nil, err
	}
	expenses, err := s.expenseRepo.ListExpenses(ctx, roomID, periodID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list expenses", slog.String("room_id", roomID))
		return nil, err
	}
	if expenses == nil {
		return []domain.ExtraExpense{}, nil
	}
	return expenses, nil
}

// UpdateExpense edits an expense. Owners edit their own rows, managers anyone's.
func (s *expenseService) UpdateExpense(ctx context.Context, roomID, expenseID string, req dto.UpdateExpenseRequest, actorID string) (*domain.ExtraExpense, error) {
	expense, err := s.ownedExpense(ctx, roomID, expenseID)
	if err != nil {
		return nil, err
	}
	if err := canEditRow(ctx, s.RoomAuthorizer, actorID, expense.UserID, roomID); err != nil {
		return nil, err
	}
	if err := ensurePeriodMutable(ctx, s.periodRepo, expense.PeriodID); err != nil {
		return nil, err
	}

	if req.Amount != nil {
		expense.Amount = utils.RoundMoney(*req.Amount)
	}
	if req.Description != nil {
		expense.Description = *req.Description
	}
	if req.Category != nil {
		expense.Category = domain.ExpenseCategory(*req.Category)
	}
	if req.Date != nil {
		expense.Date = *req.Date
	}
	expense.LastUpdatedAt = time.Now().UTC()
	expense.LastUpdatedBy = actorID

	if err := s.expenseRepo.UpdateExpense(ctx, *expense); err != nil {
		s.LogError(ctx, err, "Failed to update expense", slog.String("expense_id", expenseID))
		return nil, err
	}

	s.invalidate(ctx, roomID, expense.PeriodID)
	s.LogInfo(ctx, "Expense updated", slog.String("expense_id", expenseID))
	return expense, nil
}

// DeleteExpense removes an expense. Owners delete their own rows, managers anyone's.
func (s *expenseService) DeleteExpense(ctx context.Context, roomID, expenseID, actorID string) error {
	expense, err := s.ownedExpense(ctx, roomID, expenseID)
	if err != nil {
		return err
	}
	if err := canEditRow(ctx, s.RoomAuthorizer, actorID, expense.UserID, roomID); err != nil {
		return err
	}
	if err := ensurePeriodMutable(ctx, s.periodRepo, expense.PeriodID); err != nil {
		return err
	}

	if err := s.expenseRepo.DeleteExpense(ctx, *expense); err != nil {
		s.LogError(ctx, err, "Failed to delete expense", slog.String("expense_id", expenseID))
		return err
	}

	s.invalidate(ctx, roomID, expense.PeriodID)
	s.LogInfo(ctx, "Expense deleted", slog.String("expense_id", expenseID))
	return nil
}

func (s *expenseService) ownedExpense(ctx context.Context, roomID, expenseID string) (*domain.ExtraExpense, error) {
	expense, err := s.expenseRepo.FindExpenseByID(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if expense.RoomID != roomID {
		return nil, fmt.Errorf("%w: expense does not belong to this room", apperrors.ErrForbidden)
	}
	return expense, nil
}

func (s *expenseService) invalidate(ctx context.Context, roomID string, periodID *string) {
	tags := []string{cache.RoomTag(roomID)}
	if periodID != nil {
		tags = append(tags, cache.PeriodTag(*periodID))
	}
	s.cache.Invalidate(ctx, tags...)
}
