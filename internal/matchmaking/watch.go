package matchmaking

import (
	"context"
	"strings"
	"sync"

	"cypher_arena/internal/domain"
	"cypher_arena/internal/realtime"
	"cypher_arena/internal/store"
)

// Event is something that happened in the room.
type Event interface{ isRoomEvent() }

// MembersChanged carries the refreshed member list after any membership
// row changed.
type MembersChanged struct{ Members []domain.RoomMember }

// MatchFound reports a new match that involves the local player.
type MatchFound struct{ Match domain.Match }

type ChatMessage struct {
	Username string `json:"username"`
	Message  string `json:"message"`
}

func (MembersChanged) isRoomEvent() {}
func (MatchFound) isRoomEvent()     {}
func (ChatMessage) isRoomEvent()    {}

// Watch subscribes to the room's member, match and chat channels and
// delivers events until ctx is done. The returned channel is closed after
// the subscriptions are.
func (c *Coordinator) Watch(ctx context.Context) (<-chan Event, error) {
	room, err := c.currentRoom()
	if err != nil {
		return nil, err
	}
	out := make(chan Event, 32)
	var (
		mu     sync.Mutex
		closed bool
	)
	emit := func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case out <- ev:
		case <-ctx.Done():
		}
	}

	var subs []realtime.Subscription
	closeAll := func() {
		for _, s := range subs {
			_ = s.Close()
		}
	}
	watches := []struct {
		channel string
		handle  realtime.Handler
	}{
		{store.MembersChannel(room.ID), func(msg realtime.Message) {
			if msg.Event != realtime.EventChange {
				return
			}
			members, err := c.store.Members(ctx, room.ID)
			if err != nil {
				c.log.Warn("failed to refresh members", "error", err)
				return
			}
			emit(MembersChanged{Members: members})
		}},
		{store.RoomMatchesChannel(room.ID), func(msg realtime.Message) {
			if m, ok := c.matchFromInsert(msg); ok {
				emit(MatchFound{Match: m})
			}
		}},
		{realtime.RoomChannel(room.Code), func(msg realtime.Message) {
			if msg.Event != realtime.EventChat {
				return
			}
			var chat ChatMessage
			if err := msg.Decode(&chat); err != nil {
				return
			}
			emit(chat)
		}},
	}
	for _, w := range watches {
		sub, err := c.bus.Subscribe(ctx, w.channel, w.handle)
		if err != nil {
			closeAll()
			return nil, err
		}
		subs = append(subs, sub)
	}

	go func() {
		<-ctx.Done()
		closeAll()
		mu.Lock()
		closed = true
		close(out)
		mu.Unlock()
	}()
	return out, nil
}

// SendChat broadcasts a chat line to the room. Blank lines are dropped.
func (c *Coordinator) SendChat(ctx context.Context, text string) error {
	room, err := c.currentRoom()
	if err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return c.bus.Publish(ctx, realtime.RoomChannel(room.Code), realtime.EventChat,
		ChatMessage{Username: c.player.Username, Message: text})
}
