package repository

import (
	"context"
	"time"

	"cypher_arena/internal/domain"
	"cypher_arena/internal/store"

	"github.com/jackc/pgx/v5/pgxpool"
)

var _ store.Store = (*Store)(nil)

// Store is the Postgres record store. It composes the per-table
// repositories behind the store.Store interface.
type Store struct {
	Players    *PlayerRepository
	Rooms      *RoomRepository
	MemberRepo *MemberRepository
	Matches    *MatchRepository
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{
		Players:    NewPlayerRepository(db),
		Rooms:      NewRoomRepository(db),
		MemberRepo: NewMemberRepository(db),
		Matches:    NewMatchRepository(db),
	}
}

func (s *Store) CreatePlayer(ctx context.Context, username string) (domain.Player, error) {
	return s.Players.Create(ctx, username)
}

func (s *Store) PlayerByID(ctx context.Context, id string) (domain.Player, error) {
	return s.Players.GetByID(ctx, id)
}

func (s *Store) PlayerByUsername(ctx context.Context, username string) (domain.Player, error) {
	return s.Players.GetByUsername(ctx, username)
}

func (s *Store) CreateRoom(ctx context.Context, code, hostID string) (domain.Room, error) {
	return s.Rooms.Create(ctx, code, hostID)
}

func (s *Store) RoomByCode(ctx context.Context, code string) (domain.Room, error) {
	return s.Rooms.GetActiveByCode(ctx, code)
}

func (s *Store) DeactivateRoom(ctx context.Context, roomID string) error {
	return s.Rooms.Deactivate(ctx, roomID)
}

func (s *Store) SweepRooms(ctx context.Context, cutoff time.Time) (int, error) {
	return s.Rooms.Sweep(ctx, cutoff)
}

func (s *Store) AddMember(ctx context.Context, roomID, playerID string, status domain.MemberStatus) (domain.RoomMember, error) {
	return s.MemberRepo.Upsert(ctx, roomID, playerID, status)
}

func (s *Store) RemoveMember(ctx context.Context, roomID, playerID string) error {
	return s.MemberRepo.Delete(ctx, roomID, playerID)
}

func (s *Store) Member(ctx context.Context, roomID, playerID string) (domain.RoomMember, error) {
	return s.MemberRepo.Get(ctx, roomID, playerID)
}

func (s *Store) Members(ctx context.Context, roomID string) ([]domain.RoomMember, error) {
	return s.MemberRepo.ListByRoom(ctx, roomID)
}

func (s *Store) SetMemberStatus(ctx context.Context, roomID, playerID string, status domain.MemberStatus) (domain.RoomMember, error) {
	return s.MemberRepo.SetStatus(ctx, roomID, playerID, status)
}

func (s *Store) CompareAndSetMemberStatus(ctx context.Context, roomID, playerID string, from, to domain.MemberStatus) (bool, error) {
	return s.MemberRepo.CompareAndSetStatus(ctx, roomID, playerID, from, to)
}

func (s *Store) CreateMatch(ctx context.Context, m domain.Match) (domain.Match, error) {
	return s.Matches.Create(ctx, m)
}

func (s *Store) MatchByID(ctx context.Context, id string) (domain.Match, error) {
	return s.Matches.GetByID(ctx, id)
}

func (s *Store) UpdateMatch(ctx context.Context, id string, p domain.MatchPatch) (domain.Match, error) {
	return s.Matches.Update(ctx, id, p)
}
