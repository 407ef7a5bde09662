package handlers

import (
	"context"

	"cypher_arena/internal/repository"
	"cypher_arena/internal/scoring"
	"cypher_arena/internal/service"
	"cypher_arena/internal/store"
)

// Profiles is the read side of the player profile store.
type Profiles interface {
	LoadStats(ctx context.Context, playerID string) (scoring.Lifetime, error)
	Unlocked(ctx context.Context, playerID string) ([]string, error)
	Leaderboard(ctx context.Context, limit int) ([]repository.LeaderboardEntry, error)
}

type Handler struct {
	Store    store.Store
	Profiles Profiles
	Tokens   *service.Tokens
}

func NewHandler(st store.Store, profiles Profiles, tokens *service.Tokens) *Handler {
	return &Handler{Store: st, Profiles: profiles, Tokens: tokens}
}
