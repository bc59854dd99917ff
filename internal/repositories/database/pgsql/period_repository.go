package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/messmate/messmate_backend/internal/apperrors"
	"github.com/messmate/messmate_backend/internal/core/domain"
	portsrepo "github.com/messmate/messmate_backend/internal/core/ports/repositories"
)

type PgxPeriodRepository struct {
	BaseRepository
}

// newPgxPeriodRepository creates a new repository for period data.
func newPgxPeriodRepository(pool *pgxpool.Pool) portsrepo.PeriodRepositoryFacade {
	return &PgxPeriodRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.PeriodRepositoryFacade = (*PgxPeriodRepository)(nil)

var FULL_PERIOD_SELECT_QUERY = `
SELECT
	p.period_id, p.room_id, p.name, p.status, p.start_date, p.end_date,
	p.opening_balance, p.carry_forward, p.notes,
	p.created_at, p.created_by, p.last_updated_at, p.last_updated_by
FROM periods p
`

const insertPeriodQuery = `
	INSERT INTO periods (
		period_id, room_id, name, status, start_date, end_date,
		opening_balance, carry_forward, notes,
		created_at, created_by, last_updated_at, last_updated_by
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
`

func (r *PgxPeriodRepository) getPeriods(ctx context.Context, filterQuery string, args ...any) ([]domain.Period, error) {
	query := FULL_PERIOD_SELECT_QUERY + filterQuery
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query periods: %w", err)
	}
	defer rows.Close()
	periods, err := pgx.CollectRows(rows, pgx.RowToStructByName[domain.Period])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []domain.Period{}, nil
		}
		return nil, fmt.Errorf("failed to collect period rows: %w", err)
	}
	return periods, nil
}

func periodInsertArgs(p domain.Period) []any {
	return []any{
		p.PeriodID,
		p.RoomID,
		p.Name,
		p.Status,
		p.StartDate,
		p.EndDate,
		p.OpeningBalance,
		p.CarryForward,
		p.Notes,
		p.CreatedAt,
		p.CreatedBy,
		p.LastUpdatedAt,
		p.LastUpdatedBy,
	}
}

// SavePeriod inserts a period. The partial unique index on (room_id) for
// ACTIVE rows makes a concurrent second active period a 23505, which surfaces
// as ErrConflict.
func (r *PgxPeriodRepository) SavePeriod(ctx context.Context, period domain.Period) error {
	_, err := r.Pool.Exec(ctx, insertPeriodQuery, periodInsertArgs(period)...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return fmt.Errorf("%w: room %s already has an active period", apperrors.ErrConflict, period.RoomID)
		}
		return fmt.Errorf("failed to save period %s: %w", period.PeriodID, err)
	}
	return nil
}

func (r *PgxPeriodRepository) FindPeriodByID(ctx context.Context, periodID string) (*domain.Period, error) {
	periods, err := r.getPeriods(ctx, `WHERE p.period_id = $1`, periodID)
	if err != nil {
		return nil, err
	}
	if len(periods) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return &periods[0], nil
}

func (r *PgxPeriodRepository) FindActivePeriod(ctx context.Context, roomID string) (*domain.Period, error) {
	periods, err := r.getPeriods(ctx, `WHERE p.room_id = $1 AND p.status = $2`, roomID, domain.PeriodActive)
	if err != nil {
		return nil, err
	}
	if len(periods) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return &periods[0], nil
}

func (r *PgxPeriodRepository) ListPeriodsByRoom(ctx context.Context, roomID string, includeArchived bool) ([]domain.Period, error) {
	filter := `WHERE p.room_id = $1`
	args := []any{roomID}
	if !includeArchived {
		filter += ` AND p.status != $2`
		args = append(args, domain.PeriodArchived)
	}
	filter += ` ORDER BY p.start_date DESC;`
	return r.getPeriods(ctx, filter, args...)
}

// UpdatePeriodStatus applies a status transition conditional on the current
// status. Zero rows affected means another caller won the transition.
func (r *PgxPeriodRepository) UpdatePeriodStatus(ctx context.Context, periodID string, from, to domain.PeriodStatus, endDate *time.Time, actorID string, at time.Time) error {
	query := `
		UPDATE periods
		SET status = $3, end_date = COALESCE($4, end_date),
			last_updated_at = $5, last_updated_by = $6
		WHERE period_id = $1 AND status = $2;
	`
	result, err := r.Pool.Exec(ctx, query, periodID, from, to, endDate, at, actorID)
	if err != nil {
		return fmt.Errorf("failed to update status of period %s: %w", periodID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: period %s is not %s", apperrors.ErrConflict, periodID, from)
	}
	return nil
}

// RestartPeriod archives the source period and inserts the new active one in a
// single transaction, re-seeding any carried shopping items. Either everything
// lands or nothing does.
func (r *PgxPeriodRepository) RestartPeriod(ctx context.Context, sourcePeriodID string, newPeriod domain.Period, reseed []domain.ShoppingItem) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	archive := `
		UPDATE periods
		SET status = $2, last_updated_at = $3, last_updated_by = $4
		WHERE period_id = $1 AND status != $5;
	`
	result, err := tx.Exec(ctx, archive,
		sourcePeriodID, domain.PeriodArchived,
		newPeriod.CreatedAt, newPeriod.CreatedBy, domain.PeriodActive)
	if err != nil {
		return fmt.Errorf("failed to archive period %s: %w", sourcePeriodID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: period %s cannot be restarted", apperrors.ErrConflict, sourcePeriodID)
	}

	if _, err := tx.Exec(ctx, insertPeriodQuery, periodInsertArgs(newPeriod)...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return fmt.Errorf("%w: room %s already has an active period", apperrors.ErrConflict, newPeriod.RoomID)
		}
		return fmt.Errorf("failed to save restarted period: %w", err)
	}

	for _, item := range reseed {
		if err := insertShoppingItem(ctx, tx, item); err != nil {
			return err
		}
	}

	return r.Commit(ctx, tx)
}

// RolloverPeriod ends a stale period and inserts its successor in a single
// transaction, so the room is never observable without an ACTIVE period
// between the two writes.
func (r *PgxPeriodRepository) RolloverPeriod(ctx context.Context, stalePeriodID string, endDate time.Time, next domain.Period) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	end := `
		UPDATE periods
		SET status = $2, end_date = $3, last_updated_at = $4, last_updated_by = $5
		WHERE period_id = $1 AND status = $6;
	`
	result, err := tx.Exec(ctx, end,
		stalePeriodID, domain.PeriodEnded, endDate,
		next.CreatedAt, next.CreatedBy, domain.PeriodActive)
	if err != nil {
		return fmt.Errorf("failed to end period %s: %w", stalePeriodID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: period %s is not %s", apperrors.ErrConflict, stalePeriodID, domain.PeriodActive)
	}

	if _, err := tx.Exec(ctx, insertPeriodQuery, periodInsertArgs(next)...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return fmt.Errorf("%w: room %s already has an active period", apperrors.ErrConflict, next.RoomID)
		}
		return fmt.Errorf("failed to save rolled-over period: %w", err)
	}

	return r.Commit(ctx, tx)
}

// AdoptUnscopedRows attaches a room's period-less ledger rows to periodID.
// Runs once, when the room's first period is created.
func (r *PgxPeriodRepository) AdoptUnscopedRows(ctx context.Context, roomID, periodID string) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	for _, table := range []string{"meals", "extra_expenses", "shopping_items", "account_transactions"} {
		query := fmt.Sprintf(`UPDATE %s SET period_id = $1 WHERE room_id = $2 AND period_id IS NULL;`, table)
		if _, err := tx.Exec(ctx, query, periodID, roomID); err != nil {
			return fmt.Errorf("failed to adopt %s rows for room %s: %w", table, roomID, err)
		}
	}

	return r.Commit(ctx, tx)
}
