package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"cypher_arena/internal/apperr"
	"cypher_arena/internal/domain"

	"github.com/google/uuid"
)

type memberKey struct{ room, player string }

// MemoryStore keeps every record in process memory. It is the store of
// local duels and of tests.
type MemoryStore struct {
	mu      sync.Mutex
	now     func() time.Time
	players map[string]domain.Player
	rooms   map[string]domain.Room
	members map[memberKey]domain.RoomMember
	matches map[string]domain.Match
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:     time.Now,
		players: make(map[string]domain.Player),
		rooms:   make(map[string]domain.Room),
		members: make(map[memberKey]domain.RoomMember),
		matches: make(map[string]domain.Match),
	}
}

// SetClock overrides the creation timestamp source.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *MemoryStore) CreatePlayer(_ context.Context, username string) (domain.Player, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.Player{}, fmt.Errorf("username is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.players {
		if p.Username == username {
			return domain.Player{}, ErrUsernameTaken
		}
	}
	p := domain.Player{ID: uuid.NewString(), Username: username, CreatedAt: s.now()}
	s.players[p.ID] = p
	return p, nil
}

func (s *MemoryStore) PlayerByID(_ context.Context, id string) (domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[id]
	if !ok {
		return domain.Player{}, apperr.NotFound("player", id)
	}
	return p, nil
}

func (s *MemoryStore) PlayerByUsername(_ context.Context, username string) (domain.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.players {
		if p.Username == username {
			return p, nil
		}
	}
	return domain.Player{}, apperr.NotFound("player", username)
}

func (s *MemoryStore) CreateRoom(_ context.Context, code, hostID string) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rooms {
		if r.Code == code && r.Active {
			return domain.Room{}, ErrCodeTaken
		}
	}
	r := domain.Room{ID: uuid.NewString(), Code: code, HostID: hostID, Active: true, CreatedAt: s.now()}
	s.rooms[r.ID] = r
	return r, nil
}

func (s *MemoryStore) RoomByCode(_ context.Context, code string) (domain.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rooms {
		if r.Code == code && r.Active {
			return r, nil
		}
	}
	return domain.Room{}, apperr.NotFound("room", code)
}

func (s *MemoryStore) DeactivateRoom(_ context.Context, roomID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return apperr.NotFound("room", roomID)
	}
	r.Active = false
	s.rooms[roomID] = r
	return nil
}

func (s *MemoryStore) SweepRooms(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	occupied := make(map[string]bool)
	for k := range s.members {
		occupied[k.room] = true
	}
	n := 0
	for id, r := range s.rooms {
		if r.Active && r.CreatedAt.Before(cutoff) && !occupied[id] {
			r.Active = false
			s.rooms[id] = r
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) AddMember(_ context.Context, roomID, playerID string, status domain.MemberStatus) (domain.RoomMember, error) {
	if !status.Valid() {
		return domain.RoomMember{}, fmt.Errorf("invalid member status %q", status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[roomID]; !ok {
		return domain.RoomMember{}, apperr.NotFound("room", roomID)
	}
	m := domain.RoomMember{
		RoomID:    roomID,
		PlayerID:  playerID,
		Username:  s.players[playerID].Username,
		Status:    status,
		UpdatedAt: s.now(),
	}
	s.members[memberKey{roomID, playerID}] = m
	return m, nil
}

func (s *MemoryStore) RemoveMember(_ context.Context, roomID, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memberKey{roomID, playerID}
	if _, ok := s.members[k]; !ok {
		return apperr.NotFound("room member", playerID)
	}
	delete(s.members, k)
	return nil
}

func (s *MemoryStore) Member(_ context.Context, roomID, playerID string) (domain.RoomMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[memberKey{roomID, playerID}]
	if !ok {
		return domain.RoomMember{}, apperr.NotFound("room member", playerID)
	}
	return m, nil
}

// Members are ordered by player id.
func (s *MemoryStore) Members(_ context.Context, roomID string) ([]domain.RoomMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.RoomMember
	for k, m := range s.members {
		if k.room == roomID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out, nil
}

func (s *MemoryStore) SetMemberStatus(_ context.Context, roomID, playerID string, status domain.MemberStatus) (domain.RoomMember, error) {
	if !status.Valid() {
		return domain.RoomMember{}, fmt.Errorf("invalid member status %q", status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memberKey{roomID, playerID}
	m, ok := s.members[k]
	if !ok {
		return domain.RoomMember{}, apperr.NotFound("room member", playerID)
	}
	m.Status = status
	m.UpdatedAt = s.now()
	s.members[k] = m
	return m, nil
}

func (s *MemoryStore) CompareAndSetMemberStatus(_ context.Context, roomID, playerID string, from, to domain.MemberStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := memberKey{roomID, playerID}
	m, ok := s.members[k]
	if !ok || m.Status != from {
		return false, nil
	}
	m.Status = to
	m.UpdatedAt = s.now()
	s.members[k] = m
	return true, nil
}

func (s *MemoryStore) CreateMatch(_ context.Context, m domain.Match) (domain.Match, error) {
	if m.Player1ID == "" || m.Player2ID == "" || m.Player1ID == m.Player2ID {
		return domain.Match{}, fmt.Errorf("match needs two distinct players")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Status == "" {
		m.Status = domain.MatchActive
	}
	m.CreatedAt = s.now()
	if m.CurrentQuestion != nil {
		q := *m.CurrentQuestion
		m.CurrentQuestion = &q
	}
	s.matches[m.ID] = m
	return m, nil
}

func (s *MemoryStore) MatchByID(_ context.Context, id string) (domain.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return domain.Match{}, apperr.NotFound("match", id)
	}
	return m, nil
}

func (s *MemoryStore) UpdateMatch(_ context.Context, id string, p domain.MatchPatch) (domain.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.matches[id]
	if !ok {
		return domain.Match{}, apperr.NotFound("match", id)
	}
	m = p.Apply(m)
	s.matches[id] = m
	return m, nil
}
