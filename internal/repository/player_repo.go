package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cypher_arena/internal/apperr"
	"cypher_arena/internal/domain"
	"cypher_arena/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PlayerRepository struct {
	db *pgxpool.Pool
}

func NewPlayerRepository(db *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{db: db}
}

func (r *PlayerRepository) Create(ctx context.Context, username string) (domain.Player, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.Player{}, fmt.Errorf("username is empty")
	}
	p := domain.Player{ID: uuid.NewString(), Username: username}
	err := r.db.QueryRow(ctx,
		`INSERT INTO players (id, username)
		 VALUES ($1, $2)
		 RETURNING created_at`,
		p.ID, p.Username,
	).Scan(&p.CreatedAt)
	if isUniqueViolation(err) {
		return domain.Player{}, store.ErrUsernameTaken
	}
	if err != nil {
		return domain.Player{}, err
	}
	return p, nil
}

func (r *PlayerRepository) GetByID(ctx context.Context, id string) (domain.Player, error) {
	return r.scanOne(ctx, id, `SELECT id, username, created_at FROM players WHERE id = $1`, id)
}

func (r *PlayerRepository) GetByUsername(ctx context.Context, username string) (domain.Player, error) {
	return r.scanOne(ctx, username, `SELECT id, username, created_at FROM players WHERE username = $1`, username)
}

func (r *PlayerRepository) scanOne(ctx context.Context, key, query string, arg any) (domain.Player, error) {
	var p domain.Player
	err := r.db.QueryRow(ctx, query, arg).Scan(&p.ID, &p.Username, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Player{}, apperr.NotFound("player", key)
	}
	return p, err
}
