package domain

import "time"

// MemberStatus is a player's matchmaking state within a room.
type MemberStatus string

const (
	StatusIdle      MemberStatus = "idle"
	StatusSearching MemberStatus = "searching"
	StatusInMatch   MemberStatus = "in_match"
)

func (s MemberStatus) Valid() bool {
	switch s {
	case StatusIdle, StatusSearching, StatusInMatch:
		return true
	}
	return false
}

// Room groups players who can be paired with each other. Code is the short
// human-readable handle players share.
type Room struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	HostID    string    `db:"host_id" json:"host_id"`
	Active    bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// RoomMember is transient signalling state; the row is deleted when the
// player leaves the room. Username is denormalised for display.
type RoomMember struct {
	RoomID    string       `db:"room_id" json:"room_id"`
	PlayerID  string       `db:"player_id" json:"player_id"`
	Username  string       `db:"username" json:"username,omitempty"`
	Status    MemberStatus `db:"status" json:"status"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}
