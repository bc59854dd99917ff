package pgsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/messmate/messmate_backend/internal/apperrors"
	"github.com/messmate/messmate_backend/internal/core/domain"
)

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	Pool *pgxpool.Pool
}

// Begin starts a new database transaction
func (r *BaseRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// Commit commits a transaction
func (r *BaseRepository) Commit(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Rollback rolls back a transaction
func (r *BaseRepository) Rollback(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// guardPeriodMutable re-validates the target period's lock status inside the
// write transaction. FOR SHARE blocks a concurrent lock transition until this
// transaction completes, so the service-level pre-check cannot be raced.
func guardPeriodMutable(ctx context.Context, tx pgx.Tx, periodID *string) error {
	if periodID == nil {
		return nil
	}
	var status domain.PeriodStatus
	err := tx.QueryRow(ctx, `SELECT status FROM periods WHERE period_id = $1 FOR SHARE`, *periodID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: period %s", apperrors.ErrNotFound, *periodID)
		}
		return fmt.Errorf("failed to check period status: %w", err)
	}
	if status == domain.PeriodLocked || status == domain.PeriodArchived {
		return fmt.Errorf("%w: period %s is %s", apperrors.ErrConflict, *periodID, status)
	}
	return nil
}
