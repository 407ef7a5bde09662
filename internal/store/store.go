// Package store defines the record store both duel peers reconcile
// against, an in-memory implementation, and a decorator that turns writes
// into row-change notifications on the bus.
package store

import (
	"context"
	"errors"
	"time"

	"cypher_arena/internal/apperr"
	"cypher_arena/internal/domain"
)

// ErrCodeTaken is returned by CreateRoom when the code is already in use.
var ErrCodeTaken = errors.New("room code already in use")

// ErrUsernameTaken is returned by CreatePlayer for a duplicate username.
var ErrUsernameTaken = errors.New("username already taken")

// Store is CRUD over players, rooms, room members and matches. Lookups of
// missing records return an *apperr.NotFoundError. Concurrent writes to a
// match resolve last-write-wins per field.
type Store interface {
	CreatePlayer(ctx context.Context, username string) (domain.Player, error)
	PlayerByID(ctx context.Context, id string) (domain.Player, error)
	PlayerByUsername(ctx context.Context, username string) (domain.Player, error)

	CreateRoom(ctx context.Context, code, hostID string) (domain.Room, error)
	RoomByCode(ctx context.Context, code string) (domain.Room, error)
	DeactivateRoom(ctx context.Context, roomID string) error
	// SweepRooms deactivates active rooms created before cutoff that have
	// no members left. It returns how many rooms it closed.
	SweepRooms(ctx context.Context, cutoff time.Time) (int, error)

	// AddMember inserts or replaces the membership row.
	AddMember(ctx context.Context, roomID, playerID string, status domain.MemberStatus) (domain.RoomMember, error)
	RemoveMember(ctx context.Context, roomID, playerID string) error
	Member(ctx context.Context, roomID, playerID string) (domain.RoomMember, error)
	Members(ctx context.Context, roomID string) ([]domain.RoomMember, error)
	SetMemberStatus(ctx context.Context, roomID, playerID string, status domain.MemberStatus) (domain.RoomMember, error)
	// CompareAndSetMemberStatus moves a member from one status to another
	// only if it currently has status from. It reports whether it did.
	CompareAndSetMemberStatus(ctx context.Context, roomID, playerID string, from, to domain.MemberStatus) (bool, error)

	CreateMatch(ctx context.Context, m domain.Match) (domain.Match, error)
	MatchByID(ctx context.Context, id string) (domain.Match, error)
	// UpdateMatch writes only the fields set in p and returns the record
	// after the write.
	UpdateMatch(ctx context.Context, id string, p domain.MatchPatch) (domain.Match, error)
}

// RegisterPlayer returns the player with username, creating it when
// missing.
func RegisterPlayer(ctx context.Context, s Store, username string) (domain.Player, error) {
	p, err := s.PlayerByUsername(ctx, username)
	if err == nil {
		return p, nil
	}
	if !apperr.IsNotFound(err) {
		return domain.Player{}, err
	}
	p, err = s.CreatePlayer(ctx, username)
	if errors.Is(err, ErrUsernameTaken) {
		return s.PlayerByUsername(ctx, username)
	}
	return p, err
}
