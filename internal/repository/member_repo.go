package repository

import (
	"context"
	"errors"
	"fmt"

	"cypher_arena/internal/apperr"
	"cypher_arena/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MemberRepository struct {
	db *pgxpool.Pool
}

func NewMemberRepository(db *pgxpool.Pool) *MemberRepository {
	return &MemberRepository{db: db}
}

const memberColumns = `m.room_id, m.player_id, COALESCE(p.username, ''), m.status, m.updated_at`

func scanMember(row pgx.Row) (domain.RoomMember, error) {
	var (
		m      domain.RoomMember
		status string
	)
	if err := row.Scan(&m.RoomID, &m.PlayerID, &m.Username, &status, &m.UpdatedAt); err != nil {
		return domain.RoomMember{}, err
	}
	m.Status = domain.MemberStatus(status)
	return m, nil
}

// Upsert inserts or replaces the membership row.
func (r *MemberRepository) Upsert(ctx context.Context, roomID, playerID string, status domain.MemberStatus) (domain.RoomMember, error) {
	if !status.Valid() {
		return domain.RoomMember{}, fmt.Errorf("invalid member status %q", status)
	}
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM rooms WHERE id = $1)`, roomID).Scan(&exists); err != nil {
		return domain.RoomMember{}, err
	}
	if !exists {
		return domain.RoomMember{}, apperr.NotFound("room", roomID)
	}
	if _, err := r.db.Exec(ctx,
		`INSERT INTO room_members (room_id, player_id, status, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (room_id, player_id) DO UPDATE SET
			status = excluded.status, updated_at = excluded.updated_at`,
		roomID, playerID, string(status),
	); err != nil {
		return domain.RoomMember{}, err
	}
	return r.Get(ctx, roomID, playerID)
}

func (r *MemberRepository) Delete(ctx context.Context, roomID, playerID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM room_members WHERE room_id = $1 AND player_id = $2`, roomID, playerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("room member", playerID)
	}
	return nil
}

func (r *MemberRepository) Get(ctx context.Context, roomID, playerID string) (domain.RoomMember, error) {
	m, err := scanMember(r.db.QueryRow(ctx,
		`SELECT `+memberColumns+`
		 FROM room_members m
		 LEFT JOIN players p ON p.id = m.player_id
		 WHERE m.room_id = $1 AND m.player_id = $2`,
		roomID, playerID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.RoomMember{}, apperr.NotFound("room member", playerID)
	}
	return m, err
}

// ListByRoom returns the room's members ordered by player id.
func (r *MemberRepository) ListByRoom(ctx context.Context, roomID string) ([]domain.RoomMember, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+memberColumns+`
		 FROM room_members m
		 LEFT JOIN players p ON p.id = m.player_id
		 WHERE m.room_id = $1
		 ORDER BY m.player_id`,
		roomID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RoomMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MemberRepository) SetStatus(ctx context.Context, roomID, playerID string, status domain.MemberStatus) (domain.RoomMember, error) {
	if !status.Valid() {
		return domain.RoomMember{}, fmt.Errorf("invalid member status %q", status)
	}
	tag, err := r.db.Exec(ctx,
		`UPDATE room_members SET status = $3, updated_at = now()
		 WHERE room_id = $1 AND player_id = $2`,
		roomID, playerID, string(status),
	)
	if err != nil {
		return domain.RoomMember{}, err
	}
	if tag.RowsAffected() == 0 {
		return domain.RoomMember{}, apperr.NotFound("room member", playerID)
	}
	return r.Get(ctx, roomID, playerID)
}

// CompareAndSetStatus is a conditional update; the row count says whether
// the member was still in status from.
func (r *MemberRepository) CompareAndSetStatus(ctx context.Context, roomID, playerID string, from, to domain.MemberStatus) (bool, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE room_members SET status = $4, updated_at = now()
		 WHERE room_id = $1 AND player_id = $2 AND status = $3`,
		roomID, playerID, string(from), string(to),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
