package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/messmate/messmate_backend/internal/apperrors"
	"github.com/messmate/messmate_backend/internal/core/domain"
	portsrepo "github.com/messmate/messmate_backend/internal/core/ports/repositories"
)

type PgxExpenseRepository struct {
	BaseRepository
}

// newPgxExpenseRepository creates a new repository for extra-expense data.
func newPgxExpenseRepository(pool *pgxpool.Pool) portsrepo.ExpenseRepositoryFacade {
	return &PgxExpenseRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.ExpenseRepositoryFacade = (*PgxExpenseRepository)(nil)

var FULL_EXPENSE_SELECT_QUERY = `
SELECT
	e.expense_id, e.room_id, e.period_id, e.user_id, e.amount, e.description,
	e.category, e.date,
	e.created_at, e.created_by, e.last_updated_at, e.last_updated_by
FROM extra_expenses e
`

func (r *PgxExpenseRepository) getExpenses(ctx context.Context, filterQuery string, args ...any) ([]domain.ExtraExpense, error) {
	query := FULL_EXPENSE_SELECT_QUERY + filterQuery
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()
	expenses, err := pgx.CollectRows(rows, pgx.RowToStructByName[domain.ExtraExpense])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []domain.ExtraExpense{}, nil
		}
		return nil, fmt.Errorf("failed to collect expense rows: %w", err)
	}
	return expenses, nil
}

func (r *PgxExpenseRepository) SaveExpense(ctx context.Context, expense domain.ExtraExpense) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if err := guardPeriodMutable(ctx, tx, expense.PeriodID); err != nil {
		return err
	}

	query := `
		INSERT INTO extra_expenses (
			expense_id, room_id, period_id, user_id, amount, description,
			category, date,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`
	_, err = tx.Exec(ctx, query,
		expense.ExpenseID,
		expense.RoomID,
		expense.PeriodID,
		expense.UserID,
		expense.Amount,
		expense.Description,
		expense.Category,
		expense.Date,
		expense.CreatedAt,
		expense.CreatedBy,
		expense.LastUpdatedAt,
		expense.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save expense %s: %w", expense.ExpenseID, err)
	}

	return r.Commit(ctx, tx)
}

func (r *PgxExpenseRepository) FindExpenseByID(ctx context.Context, expenseID string) (*domain.ExtraExpense, error) {
	expenses, err := r.getExpenses(ctx, `WHERE e.expense_id = $1`, expenseID)
	if err != nil {
		return nil, err
	}
	if len(expenses) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return &expenses[0], nil
}

func (r *PgxExpenseRepository) ListExpenses(ctx context.Context, roomID string, periodID *string) ([]domain.ExtraExpense, error) {
	filter := `WHERE e.room_id = $1`
	args := []any{roomID}
	if periodID != nil {
		args = append(args, *periodID)
		filter += fmt.Sprintf(` AND e.period_id = $%d`, len(args))
	}
	filter += ` ORDER BY e.date DESC, e.created_at DESC;`
	return r.getExpenses(ctx, filter, args...)
}

func (r *PgxExpenseRepository) UpdateExpense(ctx context.Context, expense domain.ExtraExpense) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if err := guardPeriodMutable(ctx, tx, expense.PeriodID); err != nil {
		return err
	}

	query := `
		UPDATE extra_expenses
		SET amount = $2, description = $3, category = $4, date = $5,
			last_updated_at = $6, last_updated_by = $7
		WHERE expense_id = $1;
	`
	result, err := tx.Exec(ctx, query,
		expense.ExpenseID,
		expense.Amount,
		expense.Description,
		expense.Category,
		expense.Date,
		expense.LastUpdatedAt,
		expense.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update expense %s: %w", expense.ExpenseID, err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return r.Commit(ctx, tx)
}

func (r *PgxExpenseRepository) DeleteExpense(ctx context.Context, expense domain.ExtraExpense) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if err := guardPeriodMutable(ctx, tx, expense.PeriodID); err != nil {
		return err
	}

	result, err := tx.Exec(ctx, `DELETE FROM extra_expenses WHERE expense_id = $1;`, expense.ExpenseID)
	if err != nil {
		return fmt.Errorf("failed to delete expense %s: %w", expense.ExpenseID, err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return r.Commit(ctx, tx)
}
