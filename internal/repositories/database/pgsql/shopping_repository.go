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

type PgxShoppingRepository struct {
	BaseRepository
}

// newPgxShoppingRepository creates a new repository for shopping list data.
func newPgxShoppingRepository(pool *pgxpool.Pool) portsrepo.ShoppingRepositoryFacade {
	return &PgxShoppingRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.ShoppingRepositoryFacade = (*PgxShoppingRepository)(nil)

var FULL_SHOPPING_SELECT_QUERY = `
SELECT
	s.item_id, s.room_id, s.period_id, s.user_id, s.name, s.quantity,
	s.estimated_cost, s.purchased, s.recurring, s.date,
	s.created_at, s.created_by, s.last_updated_at, s.last_updated_by
FROM shopping_items s
`

const insertShoppingItemQuery = `
	INSERT INTO shopping_items (
		item_id, room_id, period_id, user_id, name, quantity,
		estimated_cost, purchased, recurring, date,
		created_at, created_by, last_updated_at, last_updated_by
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14);
`

// insertShoppingItem is shared with the period repository, which re-seeds
// recurring items inside the restart transaction.
func insertShoppingItem(ctx context.Context, tx pgx.Tx, item domain.ShoppingItem) error {
	_, err := tx.Exec(ctx, insertShoppingItemQuery,
		item.ItemID,
		item.RoomID,
		item.PeriodID,
		item.UserID,
		item.Name,
		item.Quantity,
		item.EstimatedCost,
		item.Purchased,
		item.Recurring,
		item.Date,
		item.CreatedAt,
		item.CreatedBy,
		item.LastUpdatedAt,
		item.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save shopping item %s: %w", item.ItemID, err)
	}
	return nil
}

func (r *PgxShoppingRepository) getItems(ctx context.Context, filterQuery string, args ...any) ([]domain.ShoppingItem, error) {
	query := FULL_SHOPPING_SELECT_QUERY + filterQuery
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query shopping items: %w", err)
	}
	defer rows.Close()
	items, err := pgx.CollectRows(rows, pgx.RowToStructByName[domain.ShoppingItem])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []domain.ShoppingItem{}, nil
		}
		return nil, fmt.Errorf("failed to collect shopping item rows: %w", err)
	}
	return items, nil
}

func (r *PgxShoppingRepository) SaveItem(ctx context.Context, item domain.ShoppingItem) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if err := guardPeriodMutable(ctx, tx, item.PeriodID); err != nil {
		return err
	}
	if err := insertShoppingItem(ctx, tx, item); err != nil {
		return err
	}

	return r.Commit(ctx, tx)
}

func (r *PgxShoppingRepository) FindItemByID(ctx context.Context, itemID string) (*domain.ShoppingItem, error) {
	items, err := r.getItems(ctx, `WHERE s.item_id = $1`, itemID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return &items[0], nil
}

func (r *PgxShoppingRepository) ListItems(ctx context.Context, roomID string, periodID *string) ([]domain.ShoppingItem, error) {
	filter := `WHERE s.room_id = $1`
	args := []any{roomID}
	if periodID != nil {
		args = append(args, *periodID)
		filter += fmt.Sprintf(` AND s.period_id = $%d`, len(args))
	}
	filter += ` ORDER BY s.purchased, s.date DESC;`
	return r.getItems(ctx, filter, args...)
}

func (r *PgxShoppingRepository) ListRecurringItems(ctx context.Context, periodID string) ([]domain.ShoppingItem, error) {
	return r.getItems(ctx, `WHERE s.period_id = $1 AND s.recurring = true ORDER BY s.created_at;`, periodID)
}

func (r *PgxShoppingRepository) UpdateItem(ctx context.Context, item domain.ShoppingItem) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if err := guardPeriodMutable(ctx, tx, item.PeriodID); err != nil {
		return err
	}

	query := `
		UPDATE shopping_items
		SET name = $2, quantity = $3, estimated_cost = $4, purchased = $5,
			recurring = $6, last_updated_at = $7, last_updated_by = $8
		WHERE item_id = $1;
	`
	result, err := tx.Exec(ctx, query,
		item.ItemID,
		item.Name,
		item.Quantity,
		item.EstimatedCost,
		item.Purchased,
		item.Recurring,
		item.LastUpdatedAt,
		item.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update shopping item %s: %w", item.ItemID, err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return r.Commit(ctx, tx)
}

func (r *PgxShoppingRepository) DeleteItem(ctx context.Context, item domain.ShoppingItem) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if err := guardPeriodMutable(ctx, tx, item.PeriodID); err != nil {
		return err
	}

	result, err := tx.Exec(ctx, `DELETE FROM shopping_items WHERE item_id = $1;`, item.ItemID)
	if err != nil {
		return fmt.Errorf("failed to delete shopping item %s: %w", item.ItemID, err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return r.Commit(ctx, tx)
}
