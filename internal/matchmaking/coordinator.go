// Package matchmaking pairs players inside a room and creates the shared
// match record.
//
// Creation is first-writer-wins and asymmetric. A searching player only
// considers opponents whose id sorts after its own, claims itself and then
// the opponent with a compare-and-set on the member status, and writes the
// match as player1. The opponent never creates a match for that pairing;
// it learns about the match from the insert notification on the room's
// match channel.
package matchmaking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"cypher_arena/internal/apperr"
	"cypher_arena/internal/domain"
	"cypher_arena/internal/logger"
	"cypher_arena/internal/realtime"
	"cypher_arena/internal/store"

	"github.com/jonboulle/clockwork"
)

const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6
	codeAttempts = 10

	// OpponentPlaceholder is shown when the opponent's name is unknown.
	OpponentPlaceholder = "Opponent"
)

// ErrNotInRoom is returned by room-scoped calls before CreateRoom/JoinRoom.
var ErrNotInRoom = errors.New("not in a room")

type Coordinator struct {
	store      store.Store
	bus        realtime.Bus
	player     domain.Player
	startingHP int
	poll       time.Duration
	clock      clockwork.Clock
	log        *slog.Logger

	mu   sync.Mutex
	rng  *rand.Rand
	room *domain.Room
}

type Option func(*Coordinator)

// WithPollInterval sets how often Search retries FindMatch.
func WithPollInterval(d time.Duration) Option {
	return func(c *Coordinator) { c.poll = d }
}

func WithClock(clock clockwork.Clock) Option {
	return func(c *Coordinator) { c.clock = clock }
}

// WithRand makes room codes reproducible.
func WithRand(r *rand.Rand) Option {
	return func(c *Coordinator) { c.rng = r }
}

// WithStartingHP sets the HP both players start a match with.
func WithStartingHP(hp int) Option {
	return func(c *Coordinator) { c.startingHP = hp }
}

func New(st store.Store, bus realtime.Bus, player domain.Player, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:      st,
		bus:        bus,
		player:     player,
		startingHP: 6,
		poll:       1500 * time.Millisecond,
		clock:      clockwork.NewRealClock(),
		log:        logger.For("matchmaking").With("player_id", player.ID),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return c
}

func (c *Coordinator) Player() domain.Player { return c.player }

// Room returns the room the player is in.
func (c *Coordinator) Room() (domain.Room, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.room == nil {
		return domain.Room{}, false
	}
	return *c.room, true
}

func (c *Coordinator) currentRoom() (domain.Room, error) {
	r, ok := c.Room()
	if !ok {
		return domain.Room{}, ErrNotInRoom
	}
	return r, nil
}

func (c *Coordinator) newCode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var b strings.Builder
	for i := 0; i < codeLength; i++ {
		b.WriteByte(codeAlphabet[c.rng.IntN(len(codeAlphabet))])
	}
	return b.String()
}

// NormalizeCode upper-cases and trims a code typed by a player.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// CreateRoom opens a room with a fresh code and joins it.
func (c *Coordinator) CreateRoom(ctx context.Context) (domain.Room, error) {
	for i := 0; i < codeAttempts; i++ {
		room, err := c.store.CreateRoom(ctx, c.newCode(), c.player.ID)
		if errors.Is(err, store.ErrCodeTaken) {
			continue
		}
		if err != nil {
			return domain.Room{}, fmt.Errorf("create room: %w", err)
		}
		if err := c.enter(ctx, room); err != nil {
			return domain.Room{}, err
		}
		c.log.Info("room created", "code", room.Code)
		return room, nil
	}
	return domain.Room{}, fmt.Errorf("create room: no free code after %d attempts", codeAttempts)
}

// JoinRoom enters an existing room. Codes are case-insensitive; an unknown
// code yields an *apperr.NotFoundError.
func (c *Coordinator) JoinRoom(ctx context.Context, code string) (domain.Room, error) {
	room, err := c.store.RoomByCode(ctx, NormalizeCode(code))
	if err != nil {
		return domain.Room{}, err
	}
	if err := c.enter(ctx, room); err != nil {
		return domain.Room{}, err
	}
	c.log.Info("room joined", "code", room.Code)
	return room, nil
}

func (c *Coordinator) enter(ctx context.Context, room domain.Room) error {
	if _, err := c.store.AddMember(ctx, room.ID, c.player.ID, domain.StatusIdle); err != nil {
		return fmt.Errorf("join room: %w", err)
	}
	c.mu.Lock()
	c.room = &room
	c.mu.Unlock()
	return nil
}

// LeaveRoom deletes the membership row.
func (c *Coordinator) LeaveRoom(ctx context.Context) error {
	room, err := c.currentRoom()
	if err != nil {
		return err
	}
	if err := c.store.RemoveMember(ctx, room.ID, c.player.ID); err != nil && !apperr.IsNotFound(err) {
		return fmt.Errorf("leave room: %w", err)
	}
	c.mu.Lock()
	c.room = nil
	c.mu.Unlock()
	return nil
}

func (c *Coordinator) Members(ctx context.Context) ([]domain.RoomMember, error) {
	room, err := c.currentRoom()
	if err != nil {
		return nil, err
	}
	return c.store.Members(ctx, room.ID)
}

func (c *Coordinator) SetStatus(ctx context.Context, status domain.MemberStatus) error {
	room, err := c.currentRoom()
	if err != nil {
		return err
	}
	_, err = c.store.SetMemberStatus(ctx, room.ID, c.player.ID, status)
	return err
}

// FindMatch makes one matchmaking attempt. It marks the player searching,
// and creates a match with the first eligible searching opponent. It
// returns nil without error while there is nobody to pair with, or when
// another player has already claimed this one.
func (c *Coordinator) FindMatch(ctx context.Context) (*domain.Match, error) {
	room, err := c.currentRoom()
	if err != nil {
		return nil, err
	}
	self, err := c.store.Member(ctx, room.ID, c.player.ID)
	if err != nil {
		return nil, err
	}
	switch self.Status {
	case domain.StatusInMatch:
		return nil, nil
	case domain.StatusIdle:
		if _, err := c.store.SetMemberStatus(ctx, room.ID, c.player.ID, domain.StatusSearching); err != nil {
			return nil, err
		}
	}

	members, err := c.store.Members(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if m.PlayerID <= c.player.ID || m.Status != domain.StatusSearching {
			continue
		}
		match, claimed, err := c.claim(ctx, room, m.PlayerID)
		if err != nil {
			return nil, err
		}
		if !claimed {
			// Someone with a lower id took us first.
			return nil, nil
		}
		if match != nil {
			return match, nil
		}
	}
	return nil, nil
}

// claim flips self then opponent to in_match and writes the match. claimed
// is false when self could no longer be claimed. A nil match with claimed
// set means the opponent was gone; self is back to searching.
func (c *Coordinator) claim(ctx context.Context, room domain.Room, opponentID string) (*domain.Match, bool, error) {
	ok, err := c.store.CompareAndSetMemberStatus(ctx, room.ID, c.player.ID, domain.StatusSearching, domain.StatusInMatch)
	if err != nil || !ok {
		return nil, false, err
	}
	ok, err = c.store.CompareAndSetMemberStatus(ctx, room.ID, opponentID, domain.StatusSearching, domain.StatusInMatch)
	if err != nil || !ok {
		c.revert(ctx, room, c.player.ID)
		return nil, true, err
	}

	m, err := c.store.CreateMatch(ctx, domain.Match{
		RoomID:       room.ID,
		Player1ID:    c.player.ID,
		Player2ID:    opponentID,
		Player1HP:    c.startingHP,
		Player2HP:    c.startingHP,
		CurrentRound: 0,
		Status:       domain.MatchActive,
	})
	if err != nil {
		c.revert(ctx, room, c.player.ID)
		c.revert(ctx, room, opponentID)
		return nil, true, fmt.Errorf("create match: %w", err)
	}
	c.log.Info("match created", "match_id", m.ID, "opponent_id", opponentID)
	return &m, true, nil
}

func (c *Coordinator) revert(ctx context.Context, room domain.Room, playerID string) {
	if _, err := c.store.CompareAndSetMemberStatus(ctx, room.ID, playerID, domain.StatusInMatch, domain.StatusSearching); err != nil {
		c.log.Warn("failed to revert member status", "member_id", playerID, "error", err)
	}
}

// Search repeats FindMatch every poll interval until this player creates a
// match or is attached to one by an insert notification. Cancelling ctx
// returns the player to idle.
func (c *Coordinator) Search(ctx context.Context) (domain.Match, error) {
	room, err := c.currentRoom()
	if err != nil {
		return domain.Match{}, err
	}
	found := make(chan domain.Match, 1)
	sub, err := c.bus.Subscribe(ctx, store.RoomMatchesChannel(room.ID), func(msg realtime.Message) {
		if m, ok := c.matchFromInsert(msg); ok {
			select {
			case found <- m:
			default:
			}
		}
	})
	if err != nil {
		return domain.Match{}, err
	}
	defer sub.Close()

	ticker := c.clock.NewTicker(c.poll)
	defer ticker.Stop()
	for {
		m, err := c.FindMatch(ctx)
		if err != nil {
			return domain.Match{}, err
		}
		if m != nil {
			return *m, nil
		}
		select {
		case m := <-found:
			c.log.Info("attached to match", "match_id", m.ID)
			return m, nil
		case <-ticker.Chan():
		case <-ctx.Done():
			c.backToIdle(room)
			return domain.Match{}, ctx.Err()
		}
	}
}

func (c *Coordinator) backToIdle(room domain.Room) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := c.store.CompareAndSetMemberStatus(ctx, room.ID, c.player.ID, domain.StatusSearching, domain.StatusIdle); err != nil {
		c.log.Warn("failed to stop searching", "error", err)
	}
}

func (c *Coordinator) matchFromInsert(msg realtime.Message) (domain.Match, bool) {
	if msg.Event != realtime.EventChange {
		return domain.Match{}, false
	}
	var ch realtime.Change
	if err := msg.Decode(&ch); err != nil || ch.Type != realtime.Insert || ch.Table != realtime.TableMatches {
		return domain.Match{}, false
	}
	var m domain.Match
	if err := ch.DecodeNew(&m); err != nil {
		c.log.Warn("malformed match insert", "error", err)
		return domain.Match{}, false
	}
	if !m.Involves(c.player.ID) || m.Finished() {
		return domain.Match{}, false
	}
	return m, true
}

// Release returns the player to idle after a match.
func (c *Coordinator) Release(ctx context.Context) error {
	return c.SetStatus(ctx, domain.StatusIdle)
}

// OpponentName resolves the opponent's username from room membership,
// falling back to the player record and then to a placeholder.
func (c *Coordinator) OpponentName(ctx context.Context, m domain.Match) string {
	oppID := m.OpponentOf(c.player.ID)
	if room, ok := c.Room(); ok {
		if mem, err := c.store.Member(ctx, room.ID, oppID); err == nil && mem.Username != "" {
			return mem.Username
		}
	}
	if p, err := c.store.PlayerByID(ctx, oppID); err == nil && p.Username != "" {
		return p.Username
	}
	return OpponentPlaceholder
}
