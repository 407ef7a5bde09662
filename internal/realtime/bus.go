// Package realtime is the message bus between duel peers: best-effort
// broadcasts on named channels plus row-change notifications published by
// the record store.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
)

// Message is one delivery on a channel.
type Message struct {
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Decode unmarshals the payload into v.
func (m Message) Decode(v any) error {
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("decode %s/%s payload: %w", m.Channel, m.Event, err)
	}
	return nil
}

type Handler func(Message)

type Subscription interface {
	Close() error
}

// Bus delivers messages at most once per subscriber, in no guaranteed order
// across publishers. Handlers of one subscription run sequentially.
type Bus interface {
	Subscribe(ctx context.Context, channel string, h Handler) (Subscription, error)
	Publish(ctx context.Context, channel, event string, payload any) error
}

// EventChange is the event name of row-change notifications.
const EventChange = "change"

// Broadcast event names.
const (
	EventAnswer = "answer"
	EventChat   = "chat"
)

type ChangeType string

const (
	Insert ChangeType = "insert"
	Update ChangeType = "update"
	Delete ChangeType = "delete"
)

// Change is a row-level notification.
type Change struct {
	Type  ChangeType      `json:"type"`
	Table string          `json:"table"`
	Old   json.RawMessage `json:"old,omitempty"`
	New   json.RawMessage `json:"new,omitempty"`
}

// NewChange marshals the old and new rows. Either may be nil.
func NewChange(typ ChangeType, table string, oldRow, newRow any) (Change, error) {
	c := Change{Type: typ, Table: table}
	var err error
	if oldRow != nil {
		if c.Old, err = json.Marshal(oldRow); err != nil {
			return Change{}, err
		}
	}
	if newRow != nil {
		if c.New, err = json.Marshal(newRow); err != nil {
			return Change{}, err
		}
	}
	return c, nil
}

func (c Change) DecodeNew(v any) error {
	if len(c.New) == 0 {
		return fmt.Errorf("%s %s change has no new row", c.Table, c.Type)
	}
	return json.Unmarshal(c.New, v)
}

func (c Change) DecodeOld(v any) error {
	if len(c.Old) == 0 {
		return fmt.Errorf("%s %s change has no old row", c.Table, c.Type)
	}
	return json.Unmarshal(c.Old, v)
}

// Table names carried in Change.Table.
const (
	TablePlayers     = "players"
	TableRooms       = "rooms"
	TableRoomMembers = "room_members"
	TableMatches     = "matches"
)

// TableChannel carries every change of a table.
func TableChannel(table string) string {
	return "table:" + table
}

// RowChannel carries changes of the rows where column equals value.
func RowChannel(table, column, value string) string {
	return "table:" + table + ":" + column + "=" + value
}

// MatchChannel carries broadcasts between the two peers of a match.
func MatchChannel(matchID string) string {
	return "match:" + matchID
}

// RoomChannel carries broadcasts between members of a room.
func RoomChannel(code string) string {
	return "room:" + code
}
