package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cypher_arena/internal/apperr"
	"cypher_arena/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MatchRepository struct {
	db *pgxpool.Pool
}

func NewMatchRepository(db *pgxpool.Pool) *MatchRepository {
	return &MatchRepository{db: db}
}

const matchColumns = `id, room_id, player1_id, player2_id, player1_hp, player2_hp,
	current_question, current_round, status, COALESCE(winner_id, ''), created_at`

func scanMatch(row pgx.Row) (domain.Match, error) {
	var (
		m        domain.Match
		question []byte
		status   string
	)
	if err := row.Scan(&m.ID, &m.RoomID, &m.Player1ID, &m.Player2ID, &m.Player1HP, &m.Player2HP,
		&question, &m.CurrentRound, &status, &m.WinnerID, &m.CreatedAt); err != nil {
		return domain.Match{}, err
	}
	m.Status = domain.MatchStatus(status)
	if len(question) > 0 && string(question) != "null" {
		var q domain.Question
		if err := json.Unmarshal(question, &q); err != nil {
			return domain.Match{}, fmt.Errorf("current_question: %w", err)
		}
		m.CurrentQuestion = &q
	}
	return m, nil
}

func encodeQuestion(q *domain.Question) ([]byte, error) {
	if q == nil {
		return nil, nil
	}
	return json.Marshal(q)
}

func (r *MatchRepository) Create(ctx context.Context, m domain.Match) (domain.Match, error) {
	if m.Player1ID == "" || m.Player2ID == "" || m.Player1ID == m.Player2ID {
		return domain.Match{}, fmt.Errorf("match needs two distinct players")
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Status == "" {
		m.Status = domain.MatchActive
	}
	question, err := encodeQuestion(m.CurrentQuestion)
	if err != nil {
		return domain.Match{}, err
	}
	var winner *string
	if m.WinnerID != "" {
		winner = &m.WinnerID
	}
	return scanMatch(r.db.QueryRow(ctx,
		`INSERT INTO matches (id, room_id, player1_id, player2_id, player1_hp, player2_hp,
			current_question, current_round, status, winner_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+matchColumns,
		m.ID, m.RoomID, m.Player1ID, m.Player2ID, m.Player1HP, m.Player2HP,
		question, m.CurrentRound, string(m.Status), winner,
	))
}

func (r *MatchRepository) GetByID(ctx context.Context, id string) (domain.Match, error) {
	m, err := scanMatch(r.db.QueryRow(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Match{}, apperr.NotFound("match", id)
	}
	return m, err
}

// Update writes the fields set in p in a single statement and returns the
// row after the write.
func (r *MatchRepository) Update(ctx context.Context, id string, p domain.MatchPatch) (domain.Match, error) {
	if p.Empty() {
		return r.GetByID(ctx, id)
	}
	var (
		sets []string
		args = []any{id}
	)
	set := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if p.Player1HP != nil {
		set("player1_hp", *p.Player1HP)
	}
	if p.Player2HP != nil {
		set("player2_hp", *p.Player2HP)
	}
	if p.CurrentQuestion != nil {
		q, err := encodeQuestion(p.CurrentQuestion)
		if err != nil {
			return domain.Match{}, err
		}
		set("current_question", q)
	}
	if p.CurrentRound != nil {
		set("current_round", *p.CurrentRound)
	}
	if p.Status != nil {
		set("status", string(*p.Status))
	}
	if p.WinnerID != nil {
		var winner *string
		if *p.WinnerID != "" {
			winner = p.WinnerID
		}
		set("winner_id", winner)
	}

	m, err := scanMatch(r.db.QueryRow(ctx,
		`UPDATE matches SET `+strings.Join(sets, ", ")+`
		 WHERE id = $1
		 RETURNING `+matchColumns,
		args...,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Match{}, apperr.NotFound("match", id)
	}
	return m, err
}
