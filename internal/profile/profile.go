// Package profile persists lifetime stats and achievement unlocks and
// records finished sessions against them.
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"cypher_arena/internal/logger"
	"cypher_arena/internal/scoring"
)

// Store holds one profile per player id. Unlock is append-only: ids that
// are already unlocked are ignored.
type Store interface {
	LoadStats(ctx context.Context, playerID string) (scoring.Lifetime, error)
	SaveStats(ctx context.Context, playerID string, l scoring.Lifetime) error
	Unlocked(ctx context.Context, playerID string) ([]string, error)
	Unlock(ctx context.Context, playerID string, ids []string) error
}

// Result of recording a session.
type Result struct {
	Lifetime scoring.Lifetime
	Unlocked []scoring.Achievement
}

// Recorder folds finished sessions into a player's profile.
type Recorder struct {
	store Store
	rules scoring.Rules
	log   *slog.Logger
}

func NewRecorder(store Store, rules scoring.Rules) *Recorder {
	return &Recorder{store: store, rules: rules, log: logger.For("profile")}
}

// Finish loads the lifetime stats, records s, evaluates achievements, and
// persists both. It returns the achievements unlocked by this session.
func (r *Recorder) Finish(ctx context.Context, playerID string, s scoring.Summary) (Result, error) {
	life, err := r.store.LoadStats(ctx, playerID)
	if err != nil {
		return Result{}, fmt.Errorf("load stats: %w", err)
	}
	life = life.Record(s)

	unlocked, err := r.store.Unlocked(ctx, playerID)
	if err != nil {
		return Result{}, fmt.Errorf("load achievements: %w", err)
	}
	fresh := scoring.Evaluate(r.rules, life, s, unlocked)

	if err := r.store.SaveStats(ctx, playerID, life); err != nil {
		return Result{}, fmt.Errorf("save stats: %w", err)
	}
	if len(fresh) > 0 {
		ids := make([]string, 0, len(fresh))
		for _, a := range fresh {
			ids = append(ids, a.ID)
		}
		if err := r.store.Unlock(ctx, playerID, ids); err != nil {
			return Result{}, fmt.Errorf("save achievements: %w", err)
		}
		r.log.Info("achievements unlocked", "player_id", playerID, "ids", ids)
	}
	return Result{Lifetime: life, Unlocked: fresh}, nil
}

// MemoryStore keeps profiles in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	stats    map[string]scoring.Lifetime
	unlocked map[string][]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		stats:    make(map[string]scoring.Lifetime),
		unlocked: make(map[string][]string),
	}
}

func (m *MemoryStore) LoadStats(_ context.Context, playerID string) (scoring.Lifetime, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats[playerID], nil
}

func (m *MemoryStore) SaveStats(_ context.Context, playerID string, l scoring.Lifetime) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats[playerID] = l
	return nil
}

func (m *MemoryStore) Unlocked(_ context.Context, playerID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.unlocked[playerID]), nil
}

func (m *MemoryStore) Unlock(_ context.Context, playerID string, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if !slices.Contains(m.unlocked[playerID], id) {
			m.unlocked[playerID] = append(m.unlocked[playerID], id)
		}
	}
	return nil
}
