package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/messmate/messmate_backend/internal/apperrors"
	"github.com/messmate/messmate_backend/internal/core/domain"
	portsrepo "github.com/messmate/messmate_backend/internal/core/ports/repositories"
)

type PgxTransactionRepository struct {
	BaseRepository
}

// newPgxTransactionRepository creates a new repository for account transactions
// and their audit trail.
func newPgxTransactionRepository(pool *pgxpool.Pool) portsrepo.TransactionRepositoryFacade {
	return &PgxTransactionRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.TransactionRepositoryFacade = (*PgxTransactionRepository)(nil)

var FULL_TRANSACTION_SELECT_QUERY = `
SELECT
	t.transaction_id, t.room_id, t.period_id, t.sender_id, t.target_id,
	t.amount, t.type, t.description,
	t.created_at, t.created_by, t.last_updated_at, t.last_updated_by
FROM account_transactions t
`

func (r *PgxTransactionRepository) getTransactions(ctx context.Context, filterQuery string, args ...any) ([]domain.AccountTransaction, error) {
	query := FULL_TRANSACTION_SELECT_QUERY + filterQuery
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()
	txns, err := pgx.CollectRows(rows, pgx.RowToStructByName[domain.AccountTransaction])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []domain.AccountTransaction{}, nil
		}
		return nil, fmt.Errorf("failed to collect transaction rows: %w", err)
	}
	return txns, nil
}

// insertHistory appends an audit row snapshotting the given transaction state.
// Always called inside the mutation's own store transaction.
func insertHistory(ctx context.Context, tx pgx.Tx, txn domain.AccountTransaction, action domain.HistoryAction, actorID string, at time.Time) error {
	query := `
		INSERT INTO transaction_histories (
			history_id, transaction_id, action, amount, type, description,
			actor_id, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	_, err := tx.Exec(ctx, query,
		uuid.NewString(),
		txn.TransactionID,
		action,
		txn.Amount,
		txn.Type,
		txn.Description,
		actorID,
		at,
	)
	if err != nil {
		return fmt.Errorf("failed to save history for transaction %s: %w", txn.TransactionID, err)
	}
	return nil
}

// SaveTransaction inserts the transaction and its CREATE audit row atomically.
func (r *PgxTransactionRepository) SaveTransaction(ctx context.Context, txn domain.AccountTransaction) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if err := guardPeriodMutable(ctx, tx, txn.PeriodID); err != nil {
		return err
	}

	query := `
		INSERT INTO account_transactions (
			transaction_id, room_id, period_id, sender_id, target_id,
			amount, type, description,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`
	_, err = tx.Exec(ctx, query,
		txn.TransactionID,
		txn.RoomID,
		txn.PeriodID,
		txn.SenderID,
		txn.TargetID,
		txn.Amount,
		txn.Type,
		txn.Description,
		txn.CreatedAt,
		txn.CreatedBy,
		txn.LastUpdatedAt,
		txn.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save transaction %s: %w", txn.TransactionID, err)
	}

	if err := insertHistory(ctx, tx, txn, domain.HistoryCreate, txn.CreatedBy, txn.CreatedAt); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

func (r *PgxTransactionRepository) FindTransactionByID(ctx context.Context, transactionID string) (*domain.AccountTransaction, error) {
	txns, err := r.getTransactions(ctx, `WHERE t.transaction_id = $1`, transactionID)
	if err != nil {
		return nil, err
	}
	if len(txns) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return &txns[0], nil
}

func (r *PgxTransactionRepository) ListTransactions(ctx context.Context, roomID string, periodID *string) ([]domain.AccountTransaction, error) {
	filter := `WHERE t.room_id = $1`
	args := []any{roomID}
	if periodID != nil {
		args = append(args, *periodID)
		filter += fmt.Sprintf(` AND t.period_id = $%d`, len(args))
	}
	filter += ` ORDER BY t.created_at DESC;`
	return r.getTransactions(ctx, filter, args...)
}

// UpdateTransaction persists txn and appends an UPDATE audit row snapshotting
// the pre-edit state, atomically.
func (r *PgxTransactionRepository) UpdateTransaction(ctx context.Context, txn domain.AccountTransaction, prev domain.AccountTransaction, actorID string) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if err := guardPeriodMutable(ctx, tx, txn.PeriodID); err != nil {
		return err
	}

	query := `
		UPDATE account_transactions
		SET amount = $2, type = $3, description = $4,
			last_updated_at = $5, last_updated_by = $6
		WHERE transaction_id = $1;
	`
	result, err := tx.Exec(ctx, query,
		txn.TransactionID,
		txn.Amount,
		txn.Type,
		txn.Description,
		txn.LastUpdatedAt,
		txn.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction %s: %w", txn.TransactionID, err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	if err := insertHistory(ctx, tx, prev, domain.HistoryUpdate, actorID, txn.LastUpdatedAt); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

// DeleteTransaction removes txn and appends a DELETE audit row snapshotting it,
// atomically. History rows reference the transaction without a foreign key so
// the trail outlives the row it describes.
func (r *PgxTransactionRepository) DeleteTransaction(ctx context.Context, txn domain.AccountTransaction, actorID string) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if err := guardPeriodMutable(ctx, tx, txn.PeriodID); err != nil {
		return err
	}

	result, err := tx.Exec(ctx, `DELETE FROM account_transactions WHERE transaction_id = $1;`, txn.TransactionID)
	if err != nil {
		return fmt.Errorf("failed to delete transaction %s: %w", txn.TransactionID, err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	if err := insertHistory(ctx, tx, txn, domain.HistoryDelete, actorID, time.Now().UTC()); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

func (r *PgxTransactionRepository) ListHistory(ctx context.Context, transactionID string) ([]domain.TransactionHistory, error) {
	query := `
		SELECT h.history_id, h.transaction_id, h.action, h.amount, h.type,
			h.description, h.actor_id, COALESCE(u.name, '') AS actor_name, h.created_at
		FROM transaction_histories h
		LEFT JOIN users u ON h.actor_id = u.user_id
		WHERE h.transaction_id = $1
		ORDER BY h.created_at DESC;
	`
	rows, err := r.Pool.Query(ctx, query, transactionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history of transaction %s: %w", transactionID, err)
	}
	defer rows.Close()

	history, err := pgx.CollectRows(rows, pgx.RowToStructByName[domain.TransactionHistory])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []domain.TransactionHistory{}, nil
		}
		return nil, fmt.Errorf("failed to collect history rows: %w", err)
	}
	return history, nil
}
