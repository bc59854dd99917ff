package pgsql

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	portsrepo "github.com/messmate/messmate_backend/internal/core/ports/repositories"
)

// summaryRepository implements the aggregate queries behind the financial
// aggregation engine. Each query takes an optional period scope; a nil
// periodID aggregates over the whole room. Empty scopes yield zeros.
type summaryRepository struct {
	BaseRepository
}

// newSummaryRepository creates a new summary repository.
func newSummaryRepository(pool *pgxpool.Pool) portsrepo.SummaryRepositoryFacade {
	return &summaryRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.SummaryRepositoryFacade = (*summaryRepository)(nil)

// periodFilter appends the optional period scope to a query. Both branches are
// parameterized the same way so callers always pass the same arg list.
func periodFilter(column string, periodID *string, argPos int) (string, []any) {
	if periodID == nil {
		return "", nil
	}
	return fmt.Sprintf(" AND %s = $%d", column, argPos), []any{*periodID}
}

// GetMealStats returns the meal count and extra-expense total for a scope in
// one round trip.
func (r *summaryRepository) GetMealStats(ctx context.Context, roomID string, periodID *string) (int64, decimal.Decimal, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM meals m WHERE m.room_id = $1%s),
			(SELECT COALESCE(SUM(e.amount), 0) FROM extra_expenses e WHERE e.room_id = $1%s);
	`
	args := []any{roomID}
	scope := ""
	if periodID != nil {
		scope = " AND period_id = $2"
		args = append(args, *periodID)
	}
	// The same scope clause applies to both subqueries; column prefixes are
	// omitted so it binds to whichever table the subquery scans.
	query = fmt.Sprintf(query, scope, scope)

	var totalMeals int64
	var totalExpenses decimal.Decimal
	if err := r.Pool.QueryRow(ctx, query, args...).Scan(&totalMeals, &totalExpenses); err != nil {
		return 0, decimal.Zero, fmt.Errorf("failed to query meal stats for room %s: %w", roomID, err)
	}
	return totalMeals, totalExpenses, nil
}

// GetUserBalance sums transaction amounts credited to the user in the scope.
// Only the target side of a transaction accrues balance.
func (r *summaryRepository) GetUserBalance(ctx context.Context, userID, roomID string, periodID *string) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(t.amount), 0)
		FROM account_transactions t
		WHERE t.room_id = $1 AND t.target_id = $2
	`
	args := []any{roomID, userID}
	scope, scopeArgs := periodFilter("t.period_id", periodID, 3)
	query += scope + ";"
	args = append(args, scopeArgs...)

	var balance decimal.Decimal
	if err := r.Pool.QueryRow(ctx, query, args...).Scan(&balance); err != nil {
		return decimal.Zero, fmt.Errorf("failed to query balance of user %s: %w", userID, err)
	}
	return balance, nil
}

// GetUserMealCount counts the user's meal rows in the scope.
func (r *summaryRepository) GetUserMealCount(ctx context.Context, userID, roomID string, periodID *string) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM meals m
		WHERE m.room_id = $1 AND m.user_id = $2
	`
	args := []any{roomID, userID}
	scope, scopeArgs := periodFilter("m.period_id", periodID, 3)
	query += scope + ";"
	args = append(args, scopeArgs...)

	var count int64
	if err := r.Pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to query meal count of user %s: %w", userID, err)
	}
	return count, nil
}

// GetBalancesByUser returns per-user credited totals for the scope.
func (r *summaryRepository) GetBalancesByUser(ctx context.Context, roomID string, periodID *string) (map[string]decimal.Decimal, error) {
	query := `
		SELECT t.target_id, COALESCE(SUM(t.amount), 0)
		FROM account_transactions t
		WHERE t.room_id = $1
	`
	args := []any{roomID}
	scope, scopeArgs := periodFilter("t.period_id", periodID, 2)
	query += scope + " GROUP BY t.target_id;"
	args = append(args, scopeArgs...)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query balances for room %s: %w", roomID, err)
	}
	defer rows.Close()

	balances := make(map[string]decimal.Decimal)
	for rows.Next() {
		var userID string
		var balance decimal.Decimal
		if err := rows.Scan(&userID, &balance); err != nil {
			return nil, fmt.Errorf("failed to scan balance row: %w", err)
		}
		balances[userID] = balance
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating balance rows: %w", err)
	}
	return balances, nil
}

// GetMealCountsByUser returns per-user meal counts for the scope.
func (r *summaryRepository) GetMealCountsByUser(ctx context.Context, roomID string, periodID *string) (map[string]int64, error) {
	query := `
		SELECT m.user_id, COUNT(*)
		FROM meals m
		WHERE m.room_id = $1
	`
	args := []any{roomID}
	scope, scopeArgs := periodFilter("m.period_id", periodID, 2)
	query += scope + " GROUP BY m.user_id;"
	args = append(args, scopeArgs...)

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query meal counts for room %s: %w", roomID, err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var userID string
		var count int64
		if err := rows.Scan(&userID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan meal count row: %w", err)
		}
		counts[userID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating meal count rows: %w", err)
	}
	return counts, nil
}

// GetTransactionTotals splits the scope's transaction volume into deposits
// (sender credits themselves) and member-to-member transfers.
func (r *summaryRepository) GetTransactionTotals(ctx context.Context, roomID string, periodID *string) (portsrepo.TransactionTotals, error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN t.sender_id = t.target_id THEN t.amount ELSE 0 END), 0) AS deposited,
			COALESCE(SUM(CASE WHEN t.sender_id != t.target_id THEN t.amount ELSE 0 END), 0) AS transferred
		FROM account_transactions t
		WHERE t.room_id = $1
	`
	args := []any{roomID}
	scope, scopeArgs := periodFilter("t.period_id", periodID, 2)
	query += scope + ";"
	args = append(args, scopeArgs...)

	var totals portsrepo.TransactionTotals
	if err := r.Pool.QueryRow(ctx, query, args...).Scan(&totals.Deposited, &totals.Transferred); err != nil {
		return portsrepo.TransactionTotals{}, fmt.Errorf("failed to query transaction totals for room %s: %w", roomID, err)
	}
	return totals, nil
}
