package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/messmate/messmate_backend/internal/apperrors"
	"github.com/messmate/messmate_backend/internal/core/domain"
	portsrepo "github.com/messmate/messmate_backend/internal/core/ports/repositories"
	portssvc "github.com/messmate/messmate_backend/internal/core/ports/services"
	"github.com/messmate/messmate_backend/internal/dto"
	"github.com/messmate/messmate_backend/internal/platform/cache"
	"github.com/messmate/messmate_backend/internal/utils"
)

// periodService implements the PeriodSvcFacade interface. Every transition is a
// single atomic store operation; the cache invalidation and notifier call run
// after the transition commits and before the call returns, so no reader can
// observe the new status alongside stale aggregates.
type periodService struct {
	BaseService
	periodRepo   portsrepo.PeriodRepositoryFacade
	shoppingRepo portsrepo.ShoppingRepositoryFacade
	roomSvc      portssvc.RoomReaderSvc
	summarySvc   portssvc.SummarySvcFacade
	cache        cache.Cache
	notifier     portssvc.Notifier
	cacheTTL     time.Duration
	now          func() time.Time
}

// PeriodServiceOption is a functional option for configuring the period service.
type PeriodServiceOption func(*periodService)

// WithPeriodNotifier sets the lifecycle change notifier.
func WithPeriodNotifier(n portssvc.Notifier) PeriodServiceOption {
	return func(s *periodService) { s.notifier = n }
}

// WithPeriodClock overrides the wall clock; used by tests.
func WithPeriodClock(now func() time.Time) PeriodServiceOption {
	return func(s *periodService) { s.now = now }
}

// WithPeriodCacheTTL sets the TTL for cached period summaries.
func WithPeriodCacheTTL(ttl time.Duration) PeriodServiceOption {
	return func(s *periodService) { s.cacheTTL = ttl }
}

// NewPeriodService creates a new period lifecycle service.
func NewPeriodService(
	periodRepo portsrepo.PeriodRepositoryFacade,
	shoppingRepo portsrepo.ShoppingRepositoryFacade,
	roomSvc portssvc.RoomSvcFacade,
	summarySvc portssvc.SummarySvcFacade,
	derivedCache cache.Cache,
	options ...PeriodServiceOption,
) portssvc.PeriodSvcFacade {
	if derivedCache == nil {
		derivedCache = cache.Noop{}
	}
	svc := &periodService{
		periodRepo:   periodRepo,
		shoppingRepo: shoppingRepo,
		roomSvc:      roomSvc,
		summarySvc:   summarySvc,
		cache:        derivedCache,
		cacheTTL:     5 * time.Minute,
		now:          time.Now,
	}
	svc.RoomAuthorizer = roomSvc
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.PeriodSvcFacade = (*periodService)(nil)

// EnsureMonthlyPeriod opens the current month's period for MONTHLY rooms when
// none is active yet. It is idempotent and never returns an error: failures are
// logged so read paths are never blocked, but they are observable. Requests
// from outside the room's membership do nothing.
func (s *periodService) EnsureMonthlyPeriod(ctx context.Context, roomID, requestingUserID string) {
	if err := s.AuthorizeUser(ctx, requestingUserID, roomID, domain.RoleMember); err != nil {
		return
	}

	room, err := s.roomSvc.FindRoomByID(ctx, roomID)
	if err != nil {
		s.LogWarn(ctx, "Monthly period check could not load room",
			slog.String("room_id", roomID), slog.String("error", err.Error()))
		return
	}
	if room.PeriodMode != domain.PeriodModeMonthly {
		return
	}

	now := s.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	active, err := s.periodRepo.FindActivePeriod(ctx, roomID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		s.LogWarn(ctx, "Monthly period check could not read active period",
			slog.String("room_id", roomID), slog.String("error", err.Error()))
		return
	}

	if active != nil {
		if !active.StartDate.Before(monthStart) {
			return // Current month's period is already open.
		}
		// The active period belongs to a previous month: roll it over by ending
		// it at the month boundary and carrying the closing balance forward.
		if err := s.rolloverPeriod(ctx, room, active, monthStart); err != nil {
			s.LogWarn(ctx, "Monthly period rollover failed",
				slog.String("room_id", roomID),
				slog.String("period_id", active.PeriodID),
				slog.String("error", err.Error()))
		}
		return
	}

	// No period at all: open the room's first (or next) monthly period.
	period := domain.Period{
		PeriodID:       uuid.NewString(),
		RoomID:         roomID,
		Name:           monthStart.Format("January 2006"),
		Status:         domain.PeriodActive,
		StartDate:      monthStart,
		OpeningBalance: decimal.Zero,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     room.CreatedBy,
			LastUpdatedAt: now,
			LastUpdatedBy: room.CreatedBy,
		},
	}
	if err := s.periodRepo.SavePeriod(ctx, period); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return // Another request created it concurrently; that is the point of the constraint.
		}
		s.LogWarn(ctx, "Monthly period auto-creation failed",
			slog.String("room_id", roomID), slog.String("error", err.Error()))
		return
	}

	// Rows recorded before the room had any period become part of its first one.
	if err := s.periodRepo.AdoptUnscopedRows(ctx, roomID, period.PeriodID); err != nil {
		s.LogWarn(ctx, "Failed to adopt unscoped ledger rows into new period",
			slog.String("room_id", roomID),
			slog.String("period_id", period.PeriodID),
			slog.String("error", err.Error()))
	}

	s.invalidateAndNotify(ctx, roomID, period.PeriodID, portssvc.PeriodStarted)
	s.LogInfo(ctx, "Monthly period auto-created",
		slog.String("room_id", roomID),
		slog.String("period_id", period.PeriodID),
		slog.String("name", period.Name))
}

// rolloverPeriod ends a stale monthly period at the month boundary and opens
// the current month's period with the carried closing balance. Both writes run
// in one store transaction, so the carried balance cannot be lost to a partial
// failure: either the stale period stays ACTIVE and the next attempt rolls it
// over again, or the new period opens with the closing balance in place.
func (s *periodService) rolloverPeriod(ctx context.Context, room *domain.Room, stale *domain.Period, monthStart time.Time) error {
	opening, err := s.summarySvc.CalculateClosingBalance(ctx, room.RoomID, stale.PeriodID, room.CarryPolicy)
	if err != nil {
		return err
	}

	endDate := monthStart.Add(-time.Second)
	now := s.now().UTC()
	next := domain.Period{
		PeriodID:       uuid.NewString(),
		RoomID:         room.RoomID,
		Name:           monthStart.Format("January 2006"),
		Status:         domain.PeriodActive,
		StartDate:      monthStart,
		OpeningBalance: utils.RoundMoney(opening),
		CarryForward:   true,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     room.CreatedBy,
			LastUpdatedAt: now,
			LastUpdatedBy: room.CreatedBy,
		},
	}
	if err := s.periodRepo.RolloverPeriod(ctx, stale.PeriodID, endDate, next); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil // Another request already rolled the period over.
		}
		return err
	}

	s.invalidateAndNotify(ctx, room.RoomID, stale.PeriodID, portssvc.PeriodEnded)
	s.invalidateAndNotify(ctx, room.RoomID, next.PeriodID, portssvc.PeriodStarted)
	return nil
}

// StartPeriod explicitly opens a period. Fails with ErrConflict when the room
// already has an ACTIVE period, with ErrForbidden when the actor is not at
// least a manager.
func (s *periodService) StartPeriod(ctx context.Context, roomID string, req dto.StartPeriodRequest, actorID string) (*domain.Period, error) {
	if err := s.AuthorizeUser(ctx, actorID, roomID, domain.RoleManager); err != nil {
		return nil, err
	}

	if req.EndDate != nil && req.EndDate.Before(req.StartDate) {
		return nil, fmt.Errorf("%w: end date must not be before start date", apperrors.ErrValidation)
	}

	if _, err := s.periodRepo.FindActivePeriod(ctx, roomID); err == nil {
		return nil, fmt.Errorf("%w: an active period already exists for this room", apperrors.ErrConflict)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	now := s.now().UTC()
	period := domain.Period{
		PeriodID:       uuid.NewString(),
		RoomID:         roomID,
		Name:           req.Name,
		Status:         domain.PeriodActive,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate,
		OpeningBalance: utils.RoundMoney(req.OpeningBalance),
		CarryForward:   req.CarryForward,
		Notes:          req.Notes,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actorID,
			LastUpdatedAt: now,
			LastUpdatedBy: actorID,
		},
	}

	// The store's unique-active constraint is the real guard; the read above
	// only produces a friendlier error in the common case. A concurrent start
	// still loses here with ErrConflict.
	if err := s.periodRepo.SavePeriod(ctx, period); err != nil {
		s.LogError(ctx, err, "Failed to start period", slog.String("room_id", roomID))
		return nil, err
	}

	s.invalidateAndNotify(ctx, roomID, period.PeriodID, portssvc.PeriodStarted)
	s.LogInfo(ctx, "Period started",
		slog.String("room_id", roomID),
		slog.String("period_id", period.PeriodID),
		slog.String("name", period.Name))
	return &period, nil
}

// EndPeriod transitions ACTIVE -> ENDED, defaulting to the room's current
// active period and an end date of now.
func (s *periodService) EndPeriod(ctx context.Context, roomID string, actorID string, endDate *time.Time, periodID *string) (*domain.Period, error) {
	if err := s.AuthorizeUser(ctx, actorID, roomID, domain.RoleManager); err != nil {
		return nil, err
	}

	var period *domain.Period
	var err error
	if periodID != nil {
		period, err = s.ownedPeriod(ctx, *periodID, roomID)
	} else {
		period, err = s.periodRepo.FindActivePeriod(ctx, roomID)
	}
	if err != nil {
		return nil, err
	}

	if period.Status != domain.PeriodActive {
		return nil, fmt.Errorf("%w: period status is %s, expected %s", apperrors.ErrConflict, period.Status, domain.PeriodActive)
	}

	now := s.now().UTC()
	if endDate == nil {
		endDate = &now
	}
	if endDate.Before(period.StartDate) {
		return nil, fmt.Errorf("%w: end date must not be before start date", apperrors.ErrValidation)
	}

	if err := s.periodRepo.UpdatePeriodStatus(ctx, period.PeriodID, domain.PeriodActive, domain.PeriodEnded, endDate, actorID, now); err != nil {
		return nil, err
	}

	period.Status = domain.PeriodEnded
	period.EndDate = endDate
	period.LastUpdatedAt = now
	period.LastUpdatedBy = actorID

	s.invalidateAndNotify(ctx, roomID, period.PeriodID, portssvc.PeriodEnded)
	s.LogInfo(ctx, "Period ended",
		slog.String("room_id", roomID),
		slog.String("period_id", period.PeriodID))
	return period, nil
}

// LockPeriod transitions ENDED -> LOCKED. From then on the ledger store rejects
// every mutation scoped to the period.
func (s *periodService) LockPeriod(ctx context.Context, roomID, actorID, periodID string) (*domain.Period, error) {
	return s.transition(ctx, roomID, actorID, periodID, domain.PeriodLocked, portssvc.PeriodLocked)
}

// UnlockPeriod transitions LOCKED -> targetStatus (normally ENDED). Used to
// correct locking mistakes.
func (s *periodService) UnlockPeriod(ctx context.Context, roomID, actorID, periodID string, targetStatus domain.PeriodStatus) (*domain.Period, error) {
	if err := s.AuthorizeUser(ctx, actorID, roomID, domain.RoleManager); err != nil {
		return nil, err
	}

	period, err := s.ownedPeriod(ctx, periodID, roomID)
	if err != nil {
		return nil, err
	}
	if period.Status != domain.PeriodLocked {
		return nil, fmt.Errorf("%w: period status is %s, expected %s", apperrors.ErrConflict, period.Status, domain.PeriodLocked)
	}
	if !domain.CanTransition(domain.PeriodLocked, targetStatus) {
		return nil, fmt.Errorf("%w: cannot unlock into status %s", apperrors.ErrValidation, targetStatus)
	}

	now := s.now().UTC()
	if err := s.periodRepo.UpdatePeriodStatus(ctx, periodID, domain.PeriodLocked, targetStatus, period.EndDate, actorID, now); err != nil {
		return nil, err
	}

	period.Status = targetStatus
	period.LastUpdatedAt = now
	period.LastUpdatedBy = actorID

	s.invalidateAndNotify(ctx, roomID, periodID, portssvc.PeriodUnlocked)
	s.LogInfo(ctx, "Period unlocked",
		slog.String("room_id", roomID),
		slog.String("period_id", periodID),
		slog.String("target_status", string(targetStatus)))
	return period, nil
}

// ArchivePeriod marks an ENDED or LOCKED period ARCHIVED. Archived periods are
// excluded from default listings but remain queryable.
func (s *periodService) ArchivePeriod(ctx context.Context, roomID, actorID, periodID string) (*domain.Period, error) {
	return s.transition(ctx, roomID, actorID, periodID, domain.PeriodArchived, portssvc.PeriodArchived)
}

// transition performs an authorized, state-checked status transition.
func (s *periodService) transition(ctx context.Context, roomID, actorID, periodID string, to domain.PeriodStatus, event portssvc.PeriodEvent) (*domain.Period, error) {
	if err := s.AuthorizeUser(ctx, actorID, roomID, domain.RoleManager); err != nil {
		return nil, err
	}

	period, err := s.ownedPeriod(ctx, periodID, roomID)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(period.Status, to) {
		return nil, fmt.Errorf("%w: cannot transition period from %s to %s", apperrors.ErrConflict, period.Status, to)
	}

	now := s.now().UTC()
	if err := s.periodRepo.UpdatePeriodStatus(ctx, periodID, period.Status, to, period.EndDate, actorID, now); err != nil {
		return nil, err
	}

	period.Status = to
	period.LastUpdatedAt = now
	period.LastUpdatedBy = actorID

	s.invalidateAndNotify(ctx, roomID, periodID, event)
	s.LogInfo(ctx, "Period transitioned",
		slog.String("room_id", roomID),
		slog.String("period_id", periodID),
		slog.String("status", string(to)))
	return period, nil
}

// RestartPeriod archives the source period and opens a new ACTIVE one. With
// carry-forward, the new opening balance is the source's closing balance under
// the room's carry policy and recurring shopping items are re-seeded.
func (s *periodService) RestartPeriod(ctx context.Context, roomID, actorID, periodID string, req dto.RestartPeriodRequest) (*domain.Period, error) {
	if err := s.AuthorizeUser(ctx, actorID, roomID, domain.RoleManager); err != nil {
		return nil, err
	}

	room, err := s.roomSvc.FindRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	source, err := s.ownedPeriod(ctx, periodID, roomID)
	if err != nil {
		return nil, err
	}
	if source.Status == domain.PeriodActive {
		return nil, fmt.Errorf("%w: cannot restart an active period, end it first", apperrors.ErrConflict)
	}

	if _, err := s.periodRepo.FindActivePeriod(ctx, roomID); err == nil {
		return nil, fmt.Errorf("%w: an active period already exists for this room", apperrors.ErrConflict)
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	opening := decimal.Zero
	carryForward := false
	var reseed []domain.ShoppingItem
	now := s.now().UTC()

	if req.WithCarryForwardData {
		opening, err = s.summarySvc.CalculateClosingBalance(ctx, roomID, periodID, room.CarryPolicy)
		if err != nil {
			return nil, err
		}
		carryForward = true

		recurring, err := s.shoppingRepo.ListRecurringItems(ctx, periodID)
		if err != nil {
			return nil, err
		}
		reseed = recurring
	}

	name := req.NewName
	if name == "" {
		name = now.Format("January 2006")
	}

	next := domain.Period{
		PeriodID:       uuid.NewString(),
		RoomID:         roomID,
		Name:           name,
		Status:         domain.PeriodActive,
		StartDate:      now,
		OpeningBalance: utils.RoundMoney(opening),
		CarryForward:   carryForward,
		AuditFields: domain.AuditFields{
			CreatedAt:     now,
			CreatedBy:     actorID,
			LastUpdatedAt: now,
			LastUpdatedBy: actorID,
		},
	}

	for i := range reseed {
		reseed[i].ItemID = uuid.NewString()
		reseed[i].PeriodID = &next.PeriodID
		reseed[i].Purchased = false
		reseed[i].Date = now
		reseed[i].AuditFields = next.AuditFields
	}

	// Archive-and-create is one store transaction; a concurrent restart or
	// start loses on the unique-active constraint.
	if err := s.periodRepo.RestartPeriod(ctx, periodID, next, reseed); err != nil {
		s.LogError(ctx, err, "Failed to restart period",
			slog.String("room_id", roomID),
			slog.String("source_period_id", periodID))
		return nil, err
	}

	s.cache.Invalidate(ctx, cache.RoomTag(roomID), cache.PeriodTag(periodID), cache.PeriodTag(next.PeriodID))
	if s.notifier != nil {
		s.notifier.PeriodChanged(ctx, roomID, next.PeriodID, portssvc.PeriodRestarted)
	}

	s.LogInfo(ctx, "Period restarted",
		slog.String("room_id", roomID),
		slog.String("source_period_id", periodID),
		slog.String("period_id", next.PeriodID),
		slog.String("opening_balance", next.OpeningBalance.String()),
		slog.Int("reseeded_items", len(reseed)))
	return &next, nil
}

// GetPeriods lists a room's periods, excluding archived ones unless asked.
func (s *periodService) GetPeriods(ctx context.Context, roomID, requestingUserID string, includeArchived bool) ([]domain.Period, error) {
	if err := s.AuthorizeUser(ctx, requestingUserID, roomID, domain.RoleMember); err != nil {
		return nil, err
	}
	periods, err := s.periodRepo.ListPeriodsByRoom(ctx, roomID, includeArchived)
	if err != nil {
		s.LogError(ctx, err, "Failed to list periods", slog.String("room_id", roomID))
		return nil, err
	}
	if periods == nil {
		return []domain.Period{}, nil
	}
	return periods, nil
}

// GetPeriod returns one period, failing with ErrForbidden when it does not
// belong to the given room.
func (s *periodService) GetPeriod(ctx context.Context, periodID, roomID, requestingUserID string) (*domain.Period, error) {
	if err := s.AuthorizeUser(ctx, requestingUserID, roomID, domain.RoleMember); err != nil {
		return nil, err
	}
	return s.ownedPeriod(ctx, periodID, roomID)
}

// CalculatePeriodSummary returns the period's full financial picture, cached
// under the period tag so any lifecycle transition or ledger write drops it.
func (s *periodService) CalculatePeriodSummary(ctx context.Context, periodID, roomID, requestingUserID string) (*domain.PeriodSummary, error) {
	if err := s.AuthorizeUser(ctx, requestingUserID, roomID, domain.RoleMember); err != nil {
		return nil, err
	}

	period, err := s.ownedPeriod(ctx, periodID, roomID)
	if err != nil {
		return nil, err
	}

	room, err := s.roomSvc.FindRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}

	key := cache.Key{RoomID: roomID, PeriodID: periodID, Kind: cache.KindPeriodSummary}
	summary, err := cache.GetOrCompute(ctx, s.cache, key, s.cacheTTL, func(ctx context.Context) (domain.PeriodSummary, error) {
		built, err := s.summarySvc.BuildPeriodSummary(ctx, *room, *period)
		if err != nil {
			return domain.PeriodSummary{}, err
		}
		return *built, nil
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// ownedPeriod loads a period and verifies room ownership.
func (s *periodService) ownedPeriod(ctx context.Context, periodID, roomID string) (*domain.Period, error) {
	period, err := s.periodRepo.FindPeriodByID(ctx, periodID)
	if err != nil {
		return nil, err
	}
	if period.RoomID != roomID {
		return nil, fmt.Errorf("%w: period does not belong to this room", apperrors.ErrForbidden)
	}
	return period, nil
}

// invalidateAndNotify drops the room's and period's cached aggregates and fires
// the lifecycle side channel.
func (s *periodService) invalidateAndNotify(ctx context.Context, roomID, periodID string, event portssvc.PeriodEvent) {
	s.cache.Invalidate(ctx, cache.RoomTag(roomID), cache.PeriodTag(periodID))
	if s.notifier != nil {
		s.notifier.PeriodChanged(ctx, roomID, periodID, event)
	}
}
