package services

import (
	"context"
	"time"

	"github.com/messmate/messmate_backend/internal/core/domain"
	"github.com/messmate/messmate_backend/internal/dto"
)

// PeriodSvcFacade is the period lifecycle manager. Every transition is atomic
// against the store, invalidates the derived-data cache for the affected room
// and period, and fires the change notifier before returning.
type PeriodSvcFacade interface {
	// EnsureMonthlyPeriod opens the current calendar month's period for rooms in
	// MONTHLY mode if none is active yet. Only room members can trigger it;
	// anyone else is ignored. Idempotent and silent: failures are logged, never
	// returned, so read paths are not blocked.
	EnsureMonthlyPeriod(ctx context.Context, roomID, requestingUserID string)
	StartPeriod(ctx context.Context, roomID string, req dto.StartPeriodRequest, actorID string) (*domain.Period, error)
	EndPeriod(ctx context.Context, roomID string, actorID string, endDate *time.Time, periodID *string) (*domain.Period, error)
	LockPeriod(ctx context.Context, roomID, actorID, periodID string) (*domain.Period, error)
	UnlockPeriod(ctx context.Context, roomID, actorID, periodID string, targetStatus domain.PeriodStatus) (*domain.Period, error)
	ArchivePeriod(ctx context.Context, roomID, actorID, periodID string) (*domain.Period, error)
	RestartPeriod(ctx context.Context, roomID, actorID, periodID string, req dto.RestartPeriodRequest) (*domain.Period, error)
	GetPeriods(ctx context.Context, roomID, requestingUserID string, includeArchived bool) ([]domain.Period, error)
	GetPeriod(ctx context.Context, periodID, roomID, requestingUserID string) (*domain.Period, error)
	CalculatePeriodSummary(ctx context.Context, periodID, roomID, requestingUserID string) (*domain.PeriodSummary, error)
}

// PeriodEvent names a lifecycle transition for the invalidation side channel.
type PeriodEvent string

const (
	PeriodStarted   PeriodEvent = "period.started"
	PeriodEnded     PeriodEvent = "period.ended"
	PeriodLocked    PeriodEvent = "period.locked"
	PeriodUnlocked  PeriodEvent = "period.unlocked"
	PeriodArchived  PeriodEvent = "period.archived"
	PeriodRestarted PeriodEvent = "period.restarted"
)

// Notifier is the hook point for upstream caches or static-regeneration
// mechanisms that need to observe successful lifecycle transitions.
type Notifier interface {
	PeriodChanged(ctx context.Context, roomID, periodID string, event PeriodEvent)
}
