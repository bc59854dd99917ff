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
)

// mealService implements the MealSvcFacade interface.
type mealService struct {
	BaseService
	mealRepo   portsrepo.MealRepositoryFacade
	periodRepo portsrepo.PeriodReader
	cache      cache.Cache
}

// NewMealService creates a new meal service.
func NewMealService(
	mealRepo portsrepo.MealRepositoryFacade,
	periodRepo portsrepo.PeriodReader,
	authorizer portssvc.RoomAuthorizerSvc,
	derivedCache cache.Cache,
) portssvc.MealSvcFacade {
	if derivedCache == nil {
		derivedCache = cache.Noop{}
	}
	svc := &mealService{
		mealRepo:   mealRepo,
		periodRepo: periodRepo,
		cache:      derivedCache,
	}
	svc.RoomAuthorizer = authorizer
	return svc
}

var _ portssvc.MealSvcFacade = (*mealService)(nil)

// CreateMeals records count meal rows for a member in the room's active
// period. Recording for someone else requires the manager role.
func (s *mealService) CreateMeals(ctx context.Context, roomID string, req dto.CreateMealRequest, actorID string) ([]domain.Meal, error) {
	userID := req.UserID
	if userID == "" {
		userID = actorID
	}
	if err := canEditRow(ctx, s.RoomAuthorizer, actorID, userID, roomID); err != nil {
		return nil, err
	}

	periodID, err := currentPeriodID(ctx, s.periodRepo, roomID)
	if err != nil {
		return nil, err
	}
	if err := ensurePeriodMutable(ctx, s.periodRepo, periodID); err != nil {
		return nil, err
	}

	count := req.Count
	if count == 0 {
		count = 1
	}

	now := time.Now().UTC()
	meals := make([]domain.Meal, count)
	for i := range meals {
		meals[i] = domain.Meal{
			MealID:   uuid.NewString(),
			RoomID:   roomID,
			PeriodID: periodID,
			UserID:   userID,
			Date:     req.Date,
			Type:     domain.MealType(req.Type),
			AuditFields: domain.AuditFields{
				CreatedAt:     now,
				CreatedBy:     actorID,
				LastUpdatedAt: now,
				LastUpdatedBy: actorID,
			},
		}
	}

	if err := s.mealRepo.SaveMeals(ctx, meals); err != nil {
		s.LogError(ctx, err, "Failed to save meals",
			slog.String("room_id", roomID), slog.String("user_id", userID))
		return nil, err
	}

	s.invalidate(ctx, roomID, periodID, userID)
	s.LogInfo(ctx, "Meals recorded",
		slog.String("room_id", roomID),
		slog.String("user_id", userID),
		slog.Int("count", count))
	return meals, nil
}

// ListMeals lists meals in a scope, optionally filtered to one member.
func (s *mealService) ListMeals(ctx context.Context, roomID string, periodID *string, userID *string, requestingUserID string) ([]domain.Meal, error) {
	if err := s.AuthorizeUser(ctx, requestingUserID, roomID, domain.RoleMember); err != nil {
		return nil, err
	}
	meals, err := s.mealRepo.ListMeals(ctx, roomID, periodID, userID)
	if err != nil {
		s.LogError(ctx, err, "Failed to list meals", slog.String("room_id", roomID))
		return nil, err
	}
	if meals == nil {
		return []domain.Meal{}, nil
	}
	return meals, nil
}

// DeleteMeal removes one meal row. Owners delete their own rows, managers anyone's.
func (s *mealService) DeleteMeal(ctx context.Context, roomID, mealID, actorID string) error {
	meal, err := s.mealRepo.FindMealByID(ctx, mealID)
	if err != nil {
		return err
	}
	if meal.RoomID != roomID {
		return fmt.Errorf("%w: meal does not belong to this room", apperrors.ErrForbidden)
	}
	if err := canEditRow(ctx, s.RoomAuthorizer, actorID, meal.UserID, roomID); err != nil {
		return err
	}
	if err := ensurePeriodMutable(ctx, s.periodRepo, meal.PeriodID); err != nil {
		return err
	}

	if err := s.mealRepo.DeleteMeal(ctx, *meal); err != nil {
		s.LogError(ctx, err, "Failed to delete meal", slog.String("meal_id", mealID))
		return err
	}

	s.invalidate(ctx, roomID, meal.PeriodID, meal.UserID)
	s.LogInfo(ctx, "Meal deleted", slog.String("meal_id", mealID))
	return nil
}

func (s *mealService) invalidate(ctx context.Context, roomID string, periodID *string, userID string) {
	tags := []string{cache.RoomTag(roomID), cache.UserTag(roomID, userID)}
	if periodID != nil {
		tags = append(tags, cache.PeriodTag(*periodID))
	}
	s.cache.Invalidate(ctx, tags...)
}
