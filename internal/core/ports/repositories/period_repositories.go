package repositories

import (
	"context"
	"time"

	"github.com/messmate/messmate_backend/internal/core/domain"
)

// PeriodReader provides read access to periods.
type PeriodReader interface {
	FindPeriodByID(ctx context.Context, periodID string) (*domain.Period, error)
	// FindActivePeriod returns the room's single ACTIVE period, or
	// apperrors.ErrNotFound when the room has none.
	FindActivePeriod(ctx context.Context, roomID string) (*domain.Period, error)
	ListPeriodsByRoom(ctx context.Context, roomID string, includeArchived bool) ([]domain.Period, error)
}

// PeriodWriter provides the transactional lifecycle mutations. The
// single-ACTIVE-per-room invariant is enforced by the store (partial unique
// index); SavePeriod surfaces a violation as apperrors.ErrConflict.
type PeriodWriter interface {
	SavePeriod(ctx context.Context, period domain.Period) error
	// UpdatePeriodStatus moves a period from one status to another atomically.
	// The update is conditional on the current status so concurrent transitions
	// cannot both apply; a missed condition surfaces as apperrors.ErrConflict.
	UpdatePeriodStatus(ctx context.Context, periodID string, from, to domain.PeriodStatus, endDate *time.Time, actorID string, at time.Time) error
	// RestartPeriod archives the source period and creates the new ACTIVE one in
	// a single transaction, optionally re-seeding the given shopping items.
	RestartPeriod(ctx context.Context, sourcePeriodID string, newPeriod domain.Period, reseed []domain.ShoppingItem) error
	// RolloverPeriod ends the stale ACTIVE period at endDate and inserts its
	// successor in a single transaction: either both land or neither does. A
	// stale period that is no longer ACTIVE surfaces as apperrors.ErrConflict.
	RolloverPeriod(ctx context.Context, stalePeriodID string, endDate time.Time, next domain.Period) error
	// AdoptUnscopedRows attaches the room's period-less ledger rows to periodID.
	AdoptUnscopedRows(ctx context.Context, roomID, periodID string) error
}

// PeriodRepositoryFacade is the full period repository surface.
type PeriodRepositoryFacade interface {
	PeriodReader
	PeriodWriter
}
