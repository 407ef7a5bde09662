package repository

import (
	"context"
	"errors"
	"time"

	"cypher_arena/internal/apperr"
	"cypher_arena/internal/domain"
	"cypher_arena/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RoomRepository struct {
	db *pgxpool.Pool
}

func NewRoomRepository(db *pgxpool.Pool) *RoomRepository {
	return &RoomRepository{db: db}
}

// Create inserts an active room. The partial unique index on active codes
// turns a collision into store.ErrCodeTaken.
func (r *RoomRepository) Create(ctx context.Context, code, hostID string) (domain.Room, error) {
	room := domain.Room{ID: uuid.NewString(), Code: code, HostID: hostID, Active: true}
	err := r.db.QueryRow(ctx,
		`INSERT INTO rooms (id, code, host_id, is_active)
		 VALUES ($1, $2, $3, TRUE)
		 RETURNING created_at`,
		room.ID, room.Code, room.HostID,
	).Scan(&room.CreatedAt)
	if isUniqueViolation(err) {
		return domain.Room{}, store.ErrCodeTaken
	}
	if err != nil {
		return domain.Room{}, err
	}
	return room, nil
}

func (r *RoomRepository) GetActiveByCode(ctx context.Context, code string) (domain.Room, error) {
	var room domain.Room
	err := r.db.QueryRow(ctx,
		`SELECT id, code, host_id, is_active, created_at
		 FROM rooms
		 WHERE code = $1 AND is_active`,
		code,
	).Scan(&room.ID, &room.Code, &room.HostID, &room.Active, &room.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Room{}, apperr.NotFound("room", code)
	}
	return room, err
}

func (r *RoomRepository) Deactivate(ctx context.Context, roomID string) error {
	tag, err := r.db.Exec(ctx, `UPDATE rooms SET is_active = FALSE WHERE id = $1`, roomID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("room", roomID)
	}
	return nil
}

// Sweep deactivates active rooms older than cutoff with no members left.
func (r *RoomRepository) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE rooms SET is_active = FALSE
		 WHERE is_active
		   AND created_at < $1
		   AND NOT EXISTS (SELECT 1 FROM room_members m WHERE m.room_id = rooms.id)`,
		cutoff,
	)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
