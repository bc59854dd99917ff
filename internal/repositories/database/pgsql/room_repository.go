package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/messmate/messmate_backend/internal/apperrors"
	"github.com/messmate/messmate_backend/internal/core/domain"
	portsrepo "github.com/messmate/messmate_backend/internal/core/ports/repositories"
)

type PgxRoomRepository struct {
	BaseRepository
}

// newPgxRoomRepository creates a new repository for room data.
func newPgxRoomRepository(pool *pgxpool.Pool) portsrepo.RoomRepositoryFacade {
	return &PgxRoomRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.RoomRepositoryFacade = (*PgxRoomRepository)(nil)

var FULL_ROOM_SELECT_QUERY = `
SELECT
	r.room_id, r.name, r.description, r.period_mode, r.carry_policy, r.is_active,
	r.created_at, r.created_by, r.last_updated_at, r.last_updated_by
FROM rooms r
`

func (r *PgxRoomRepository) getRooms(ctx context.Context, filterQuery string, args ...any) ([]domain.Room, error) {
	query := FULL_ROOM_SELECT_QUERY + filterQuery
	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rooms: %w", err)
	}
	defer rows.Close()
	rooms, err := pgx.CollectRows(rows, pgx.RowToStructByName[domain.Room])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []domain.Room{}, nil
		}
		return nil, fmt.Errorf("failed to collect room rows: %w", err)
	}
	return rooms, nil
}

func (r *PgxRoomRepository) SaveRoom(ctx context.Context, room domain.Room) error {
	query := `
		INSERT INTO rooms (
			room_id, name, description, period_mode, carry_policy, is_active,
			created_at, created_by, last_updated_at, last_updated_by
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	_, err := r.Pool.Exec(ctx, query,
		room.RoomID,
		room.Name,
		room.Description,
		room.PeriodMode,
		room.CarryPolicy,
		room.IsActive,
		room.CreatedAt,
		room.CreatedBy,
		room.LastUpdatedAt,
		room.LastUpdatedBy,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return fmt.Errorf("%w: room %s", apperrors.ErrDuplicate, room.RoomID)
		}
		return fmt.Errorf("failed to save room %s: %w", room.RoomID, err)
	}
	return nil
}

func (r *PgxRoomRepository) UpdateRoomSettings(ctx context.Context, room domain.Room) error {
	query := `
		UPDATE rooms
		SET name = $2, description = $3, period_mode = $4, carry_policy = $5,
			is_active = $6, last_updated_at = $7, last_updated_by = $8
		WHERE room_id = $1;
	`
	result, err := r.Pool.Exec(ctx, query,
		room.RoomID,
		room.Name,
		room.Description,
		room.PeriodMode,
		room.CarryPolicy,
		room.IsActive,
		room.LastUpdatedAt,
		room.LastUpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to update room %s: %w", room.RoomID, err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *PgxRoomRepository) FindRoomByID(ctx context.Context, roomID string) (*domain.Room, error) {
	rooms, err := r.getRooms(ctx, `WHERE r.room_id = $1`, roomID)
	if err != nil {
		return nil, err
	}
	if len(rooms) == 0 {
		return nil, apperrors.ErrNotFound
	}
	return &rooms[0], nil
}

func (r *PgxRoomRepository) ListRoomsByUserID(ctx context.Context, userID string) ([]domain.Room, error) {
	filter := `
		JOIN user_rooms ur ON r.room_id = ur.room_id
		WHERE ur.user_id = $1 AND ur.role != $2 AND r.is_active = true
		ORDER BY r.name;
	`
	return r.getRooms(ctx, filter, userID, domain.RoleRemoved)
}

func (r *PgxRoomRepository) AddUserToRoom(ctx context.Context, membership domain.UserRoom) error {
	query := `
		INSERT INTO user_rooms (user_id, room_id, role, joined_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, room_id) DO UPDATE SET role = EXCLUDED.role;
	` // Upsert: add the user or update their role if they already exist
	_, err := r.Pool.Exec(ctx, query,
		membership.UserID,
		membership.RoomID,
		membership.Role,
		membership.JoinedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign_key_violation
			return fmt.Errorf("%w: user or room does not exist", apperrors.ErrValidation)
		}
		return fmt.Errorf("failed to add user %s to room %s: %w", membership.UserID, membership.RoomID, err)
	}
	return nil
}

func (r *PgxRoomRepository) FindUserRoomRole(ctx context.Context, userID, roomID string) (*domain.UserRoom, error) {
	query := `
		SELECT ur.user_id, u.name AS user_name, ur.room_id, ur.role, ur.joined_at
		FROM user_rooms ur
		JOIN users u ON ur.user_id = u.user_id
		WHERE ur.user_id = $1 AND ur.room_id = $2;
	`
	var ur domain.UserRoom
	err := r.Pool.QueryRow(ctx, query, userID, roomID).Scan(
		&ur.UserID,
		&ur.UserName,
		&ur.RoomID,
		&ur.Role,
		&ur.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find role of user %s in room %s: %w", userID, roomID, err)
	}
	return &ur, nil
}

func (r *PgxRoomRepository) ListUsersByRoomID(ctx context.Context, roomID string, includeRemoved bool) ([]domain.UserRoom, error) {
	query := `
		SELECT ur.user_id, u.name AS user_name, ur.room_id, ur.role, ur.joined_at
		FROM user_rooms ur
		JOIN users u ON ur.user_id = u.user_id
		WHERE ur.room_id = $1
	`
	args := []any{roomID}
	if !includeRemoved {
		query += ` AND ur.role != $2`
		args = append(args, domain.RoleRemoved)
	}
	query += ` ORDER BY ur.joined_at;`

	rows, err := r.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query members of room %s: %w", roomID, err)
	}
	defer rows.Close()

	members, err := pgx.CollectRows(rows, pgx.RowToStructByName[domain.UserRoom])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []domain.UserRoom{}, nil
		}
		return nil, fmt.Errorf("failed to collect membership rows: %w", err)
	}
	return members, nil
}
