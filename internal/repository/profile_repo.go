package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cypher_arena/internal/cipher"
	"cypher_arena/internal/profile"
	"cypher_arena/internal/scoring"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var _ profile.Store = (*ProfileRepository)(nil)

// ProfileRepository stores lifetime stats and achievements for players
// who duel through the server.
type ProfileRepository struct {
	db *pgxpool.Pool
}

func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// LoadStats returns the zero Lifetime for a player with no row yet.
func (r *ProfileRepository) LoadStats(ctx context.Context, playerID string) (scoring.Lifetime, error) {
	var (
		l         scoring.Lifetime
		fastestMs int64
		schemes   []byte
	)
	err := r.db.QueryRow(ctx,
		`SELECT wins, losses, sessions, points, decodes, best_combo, fastest_ms, longest_rot13, scheme_sessions
		 FROM player_stats
		 WHERE player_id = $1`,
		playerID,
	).Scan(&l.Wins, &l.Losses, &l.Sessions, &l.Points, &l.Decodes, &l.BestCombo, &fastestMs, &l.LongestROT13Streak, &schemes)
	if errors.Is(err, pgx.ErrNoRows) {
		return scoring.Lifetime{}, nil
	}
	if err != nil {
		return scoring.Lifetime{}, err
	}
	l.FastestDecode = time.Duration(fastestMs) * time.Millisecond
	if len(schemes) > 0 {
		var m map[cipher.Scheme]int
		if err := json.Unmarshal(schemes, &m); err != nil {
			return scoring.Lifetime{}, fmt.Errorf("scheme_sessions: %w", err)
		}
		if len(m) > 0 {
			l.SchemeSessions = m
		}
	}
	return l, nil
}

func (r *ProfileRepository) SaveStats(ctx context.Context, playerID string, l scoring.Lifetime) error {
	schemes, err := json.Marshal(l.SchemeSessions)
	if err != nil {
		return err
	}
	if l.SchemeSessions == nil {
		schemes = []byte("{}")
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO player_stats (player_id, wins, losses, sessions, points, decodes, best_combo, fastest_ms, longest_rot13, scheme_sessions, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
		 ON CONFLICT (player_id) DO UPDATE SET
			wins = excluded.wins, losses = excluded.losses, sessions = excluded.sessions,
			points = excluded.points, decodes = excluded.decodes, best_combo = excluded.best_combo,
			fastest_ms = excluded.fastest_ms, longest_rot13 = excluded.longest_rot13,
			scheme_sessions = excluded.scheme_sessions, updated_at = excluded.updated_at`,
		playerID, l.Wins, l.Losses, l.Sessions, l.Points, l.Decodes, l.BestCombo,
		l.FastestDecode.Milliseconds(), l.LongestROT13Streak, schemes,
	)
	return err
}

func (r *ProfileRepository) Unlocked(ctx context.Context, playerID string) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT achievement_id FROM achievements
		 WHERE player_id = $1
		 ORDER BY unlocked_at, achievement_id`,
		playerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ProfileRepository) Unlock(ctx context.Context, playerID string, ids []string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, id := range ids {
		if _, err := tx.Exec(ctx,
			`INSERT INTO achievements (player_id, achievement_id)
			 VALUES ($1, $2)
			 ON CONFLICT (player_id, achievement_id) DO NOTHING`,
			playerID, id,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// LeaderboardEntry is one ranked row of the public leaderboard.
type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	PlayerID  string `json:"player_id"`
	Username  string `json:"username"`
	Wins      int    `json:"wins"`
	Losses    int    `json:"losses"`
	Points    int    `json:"points"`
	BestCombo int    `json:"best_combo"`
}

// Leaderboard ranks players by wins, then points.
func (r *ProfileRepository) Leaderboard(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	rows, err := r.db.Query(ctx,
		`SELECT s.player_id, COALESCE(p.username, ''), s.wins, s.losses, s.points, s.best_combo
		 FROM player_stats s
		 LEFT JOIN players p ON p.id = s.player_id
		 ORDER BY s.wins DESC, s.points DESC, s.player_id
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeaderboardEntry
	for rows.Next() {
		e := LeaderboardEntry{Rank: len(out) + 1}
		if err := rows.Scan(&e.PlayerID, &e.Username, &e.Wins, &e.Losses, &e.Points, &e.BestCombo); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
