package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/messmate/messmate_backend/internal/apperrors"
	"github.com/messmate/messmate_backend/internal/core/domain"
	portsrepo "github.com/messmate/messmate_backend/internal/core/ports/repositories"
)

// currentPeriodID resolves the room's active period for scoping a new ledger
// row. Nil is legal only while the room has never had a period.
func currentPeriodID(ctx context.Context, periodRepo portsrepo.PeriodReader, roomID string) (*string, error) {
	active, err := periodRepo.FindActivePeriod(ctx, roomID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &active.PeriodID, nil
}

// ensurePeriodMutable rejects mutations against locked or archived periods.
// This is the service-level check; repositories re-validate inside the store
// transaction so a concurrent lock cannot slip a write through.
func ensurePeriodMutable(ctx context.Context, periodRepo portsrepo.PeriodReader, periodID *string) error {
	if periodID == nil {
		return nil
	}
	period, err := periodRepo.FindPeriodByID(ctx, *periodID)
	if err != nil {
		return err
	}
	if period.IsLocked() {
		return fmt.Errorf("%w: period %s is locked", apperrors.ErrConflict, period.PeriodID)
	}
	return nil
}

// canEditRow reports whether the actor may mutate a ledger row: owners edit
// their own rows, managers edit anyone's.
func canEditRow(ctx context.Context, authorizer interface {
	AuthorizeUserAction(ctx context.Context, userID, roomID string, requiredRole domain.UserRoomRole) error
}, actorID, ownerID, roomID string) error {
	if actorID == ownerID {
		return authorizer.AuthorizeUserAction(ctx, actorID, roomID, domain.RoleMember)
	}
	return authorizer.AuthorizeUserAction(ctx, actorID, roomID, domain.RoleManager)
}
