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

type PgxMealRepository struct {
	BaseRepository
}

// newPgxMealRepository creates a new repository for meal data.
func newPgxMealRepository(pool *pgxpool.Pool) portsrepo.MealRepositoryFacade {
	return &PgxMealRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.MealRepositoryFacade = (*PgxMealRepository)(nil)

var FULL_MEAL_SELECT_QUERY = `
SELECT
	m.meal_id, m.room_id, m.period_id, m.user_id, m.date, m.type,
	m.created_at, m.created_by, m.last_updated_at, m.last_updated_by
FROM meals m
`

func (r *PgxMealRepository) getMeals(ctx context.Context, filterQuery string, args ...any) ([]domain.Meal, error) {
	query := FULL_MEAL_SELECT_QUERY + filterQuery
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query meals: %w", err)
	}
	defer rows.Close()
	meals, err := pgx.CollectRows(rows, pgx.RowToStructByName[domain.Meal])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []domain.Meal{}, nil
		}
		return nil, fmt.Errorf("failed to collect meal rows: %w", err)
	}
	return meals, nil
}

func (r *PgxMealRepository) SaveMeal(ctx context.Context, meal domain.Meal) error {
	return r.SaveMeals(ctx, []domain.Meal{meal})
}

// SaveMeals inserts a batch of meal rows in one transaction, re-validating the
// target period's lock status inside it.
func (r *PgxMealRepository) SaveMeals(ctx context.Context, meals []domain.Meal) error {
	if len(meals) == 0 {
		return nil
	}

	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if err := guardPeriodMutable(ctx, tx, meals[0].PeriodID); err != nil {
		return err
	}

	query := `
		INSERT INTO meals (
			meal_id, room_id, period_id, user_id, date, type,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	batch := &pgx.Batch{}
	for _, m := range meals {
		batch.Queue(query,
			m.MealID, m.RoomID, m.PeriodID, m.UserID, m.Date, m.Type,
			m.CreatedAt, m.CreatedBy, m.LastUpdatedAt, m.LastUpdatedBy)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to save meals: %w", err)
	}

	return r.Commit(ctx, tx)
}

func (r *PgxMealRepository) FindMealByID(ctx context.Context, mealID string) (*domain.Meal, error) {
	meals, err := r.getMeals(ctx, `WHERE m.meal_id = $1`, mealID)
	if err != nil {
		return nil, err
	}
	if len(meals) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return &meals[0], nil
}

func (r *PgxMealRepository) ListMeals(ctx context.Context, roomID string, periodID *string, userID *string) ([]domain.Meal, error) {
	filter := `WHERE m.room_id = $1`
	args := []any{roomID}
	if periodID != nil {
		args = append(args, *periodID)
		filter += fmt.Sprintf(` AND m.period_id = $%d`, len(args))
	}
	if userID != nil {
		args = append(args, *userID)
		filter += fmt.Sprintf(` AND m.user_id = $%d`, len(args))
	}
	filter += ` ORDER BY m.date DESC, m.created_at DESC;`
	return r.getMeals(ctx, filter, args...)
}

func (r *PgxMealRepository) DeleteMeal(ctx context.Context, meal domain.Meal) error {
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer r.Rollback(ctx, tx)

	if err := guardPeriodMutable(ctx, tx, meal.PeriodID); err != nil {
		return err
	}

	result, err := tx.Exec(ctx, `DELETE FROM meals WHERE meal_id = $1;`, meal.MealID)
	if err != nil {
		return fmt.Errorf("failed to delete meal %s: %w", meal.MealID, err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return r.Commit(ctx, tx)
}
