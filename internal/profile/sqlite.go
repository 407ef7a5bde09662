package profile

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cypher_arena/internal/cipher"
	"cypher_arena/internal/scoring"

	_ "modernc.org/sqlite" // SQLite driver.
)

// SQLiteStore is the offline profile kept next to the terminal client.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path and applies migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One connection keeps :memory: databases alive across calls.
	db.SetMaxOpenConns(1)
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS player_stats (
			player_id TEXT PRIMARY KEY,
			wins INTEGER NOT NULL,
			losses INTEGER NOT NULL,
			sessions INTEGER NOT NULL,
			points INTEGER NOT NULL,
			decodes INTEGER NOT NULL,
			best_combo INTEGER NOT NULL,
			fastest_ms INTEGER NOT NULL,
			longest_rot13 INTEGER NOT NULL,
			scheme_sessions TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS achievements (
			player_id TEXT NOT NULL,
			achievement_id TEXT NOT NULL,
			unlocked_at TEXT NOT NULL,
			PRIMARY KEY (player_id, achievement_id)
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) LoadStats(ctx context.Context, playerID string) (scoring.Lifetime, error) {
	var (
		l          scoring.Lifetime
		fastestMs  int64
		schemesRaw string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT wins, losses, sessions, points, decodes, best_combo, fastest_ms, longest_rot13, scheme_sessions
		 FROM player_stats WHERE player_id = ?`, playerID,
	).Scan(&l.Wins, &l.Losses, &l.Sessions, &l.Points, &l.Decodes, &l.BestCombo, &fastestMs, &l.LongestROT13Streak, &schemesRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return scoring.Lifetime{}, nil
	}
	if err != nil {
		return scoring.Lifetime{}, err
	}
	l.FastestDecode = time.Duration(fastestMs) * time.Millisecond
	if schemesRaw != "" {
		var m map[cipher.Scheme]int
		if err := json.Unmarshal([]byte(schemesRaw), &m); err != nil {
			return scoring.Lifetime{}, fmt.Errorf("scheme_sessions: %w", err)
		}
		l.SchemeSessions = m
	}
	return l, nil
}

func (s *SQLiteStore) SaveStats(ctx context.Context, playerID string, l scoring.Lifetime) error {
	schemes, err := json.Marshal(l.SchemeSessions)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO player_stats (player_id, wins, losses, sessions, points, decodes, best_combo, fastest_ms, longest_rot13, scheme_sessions, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(player_id) DO UPDATE SET
			wins = excluded.wins, losses = excluded.losses, sessions = excluded.sessions,
			points = excluded.points, decodes = excluded.decodes, best_combo = excluded.best_combo,
			fastest_ms = excluded.fastest_ms, longest_rot13 = excluded.longest_rot13,
			scheme_sessions = excluded.scheme_sessions, updated_at = excluded.updated_at`,
		playerID, l.Wins, l.Losses, l.Sessions, l.Points, l.Decodes, l.BestCombo,
		l.FastestDecode.Milliseconds(), l.LongestROT13Streak, string(schemes),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLiteStore) Unlocked(ctx context.Context, playerID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT achievement_id FROM achievements WHERE player_id = ? ORDER BY unlocked_at, achievement_id`, playerID)
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

func (s *SQLiteStore) Unlock(ctx context.Context, playerID string, ids []string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, id := range ids {
		if _, err = tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO achievements (player_id, achievement_id, unlocked_at) VALUES (?, ?, ?)`,
			playerID, id, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}
