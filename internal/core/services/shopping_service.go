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
	"github.com/messmate/messmate_backend/internal/utils"
)

// shoppingService implements the ShoppingSvcFacade interface. Shopping items
// are planning data only; they never touch the derived-data cache because no
// financial aggregate reads them.
type shoppingService struct {
	BaseService
	shoppingRepo portsrepo.ShoppingRepositoryFacade
	periodRepo   portsrepo.PeriodReader
}

// NewShoppingService creates a new shopping list service.
func NewShoppingService(
	shoppingRepo portsrepo.ShoppingRepositoryFacade,
	periodRepo portsrepo.PeriodReader,
	authorizer portssvc.RoomAuthorizerSvc,
) portssvc.ShoppingSvcFacade {
	svc := &shoppingService{
		shoppingRepo: shoppingRepo,
		periodRepo:   periodRepo,
	}
	svc.RoomAuthorizer = authorizer
	return svc
}

var _ portssvc.ShoppingSvcFacade = (*shoppingService)(nil)

// CreateItem adds an item to the room's shopping list.
func (s *shoppingService) CreateItem(ctx context.Context, roomID string, req dto.CreateShoppingItemRequest, actorID string) (*domain.ShoppingItem, error) {
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

	now := time.Now().UTC()
	item := domain.ShoppingItem{
		ItemID:        uuid.NewString(),
		RoomID:        roomID,
		PeriodID:      periodID,
		UserID:        actorID,
		Name:          req.Name,
		Quantity:      req.Quantity,
		EstimatedCost: utils.RoundMoney(req.EstimatedCost),
		Purchased:     false,
		Recurring:     req.Recurring,
		Date:          req.Date,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actorID,
			LastUpdatedAt: now,
			LastUpdatedBy: actorID,
		},
	}

	if err := s.shoppingRepo.SaveItem(ctx, item); err != nil {
		s.LogError(ctx, err, "Failed to save shopping item", slog.String("room_id", roomID))
		return nil, err
	}

	s.LogInfo(ctx, "Shopping item added",
		slog.String("item_id", item.ItemID), slog.String("room_id", roomID))
	return &item, nil
}

// ListItems lists shopping items in a scope.
func (s *shoppingService) ListItems(ctx context.Context, roomID string, periodID *string, requestingUserID string) ([]domain.ShoppingItem, error) {
	if err := s.AuthorizeUser(ctx, requestingUserID, roomID, domain.RoleMember); err != nil {
		return nil, err
	}
	items, err := s.shoppingRepo.ListItems(ctx, roomID, periodID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list shopping items", slog.String("room_id", roomID))
		return nil, err
	}
	if items == nil {
		return []domain.ShoppingItem{}, nil
	}
	return items, nil
}

// UpdateItem edits a shopping item. Owners edit their own rows, managers anyone's.
func (s *shoppingService) UpdateItem(ctx context.Context, roomID, itemID string, req dto.UpdateShoppingItemRequest, actorID string) (*domain.ShoppingItem, error) {
	item, err := s.ownedItem(ctx, roomID, itemID)
	if err != nil {
		return nil, err
	}
	if err := canEditRow(ctx, s.RoomAuthorizer, actorID, item.UserID, roomID); err != nil {
		return nil, err
	}
	if err := ensurePeriodMutable(ctx, s.periodRepo, item.PeriodID); err != nil {
		return nil, err
	}

	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.Quantity != nil {
		item.Quantity = *req.Quantity
	}
	if req.EstimatedCost != nil {
		item.EstimatedCost = utils.RoundMoney(*req.EstimatedCost)
	}
	if req.Purchased != nil {
		item.Purchased = *req.Purchased
	}
	if req.Recurring != nil {
		item.Recurring = *req.Recurring
	}
	item.LastUpdatedAt = time.Now().UTC()
	item.LastUpdatedBy = actorID

	if err := s.shoppingRepo.UpdateItem(ctx, *item); err != nil {
		s.LogError(ctx, err, "Failed to update shopping item", slog.String("item_id", itemID))
		return nil, err
	}

	s.LogInfo(ctx, "Shopping item updated", slog.String("item_id", itemID))
	return item, nil
}

// DeleteItem removes a shopping item. Owners delete their own rows, managers anyone's.
func (s *shoppingService) DeleteItem(ctx context.Context, roomID, itemID, actorID string) error {
	item, err := s.ownedItem(ctx, roomID, itemID)
	if err != nil {
		return err
	}
	if err := canEditRow(ctx, s.RoomAuthorizer, actorID, item.UserID, roomID); err != nil {
		return err
	}
	if err := ensurePeriodMutable(ctx, s.periodRepo, item.PeriodID); err != nil {
		return err
	}

	if err := s.shoppingRepo.DeleteItem(ctx, *item); err != nil {
		s.LogError(ctx, err, "Failed to delete shopping item", slog.String("item_id", itemID))
		return err
	}

	s.LogInfo(ctx, "Shopping item deleted", slog.String("item_id", itemID))
	return nil
}

func (s *shoppingService) ownedItem(ctx context.Context, roomID, itemID string) (*domain.ShoppingItem, error) {
	item, err := s.shoppingRepo.FindItemByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.RoomID != roomID {
		return nil, fmt.Errorf("%w: item does not belong to this room", apperrors.ErrForbidden)
	}
	return item, nil
}
