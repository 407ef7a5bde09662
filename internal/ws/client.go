package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"cypher_arena/internal/realtime"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 30 * time.Second
	pingPeriod = 25 * time.Second

	maxSubscriptions = 16
)

// Client is one relay connection. It mirrors the bus channels it
// subscribed to and publishes broadcasts on behalf of its player.
type Client struct {
	PlayerID string
	Conn     *websocket.Conn
	Send     chan []byte
	Hub      *Hub

	log  *slog.Logger
	mu   sync.Mutex
	subs map[string]realtime.Subscription
	done chan struct{}
}

func NewClient(playerID string, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		PlayerID: playerID,
		Conn:     conn,
		Send:     make(chan []byte, 256),
		Hub:      hub,
		log:      hub.log.With("player_id", playerID),
		subs:     make(map[string]realtime.Subscription),
		done:     make(chan struct{}),
	}
}

// Run blocks until the connection closes.
func (c *Client) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.Hub.Register(c)
	go c.writePump()
	c.queue(Frame{Type: MsgReady})

	c.readPump(ctx)

	c.mu.Lock()
	for ch, sub := range c.subs {
		_ = sub.Close()
		delete(c.subs, ch)
	}
	c.mu.Unlock()
	c.Hub.Unregister(c)
	close(c.done)
}

func (c *Client) readPump(ctx context.Context) {
	c.Conn.SetReadLimit(4096)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("ws read error", "error", err)
			}
			return
		}
		c.HandleMessage(ctx, msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Debug("ws write error", "error", err)
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// queue drops the frame when the client is not keeping up.
func (c *Client) queue(f Frame) {
	b, err := json.Marshal(f)
	if err != nil {
		return
	}
	select {
	case c.Send <- b:
	default:
		c.log.Warn("ws send buffer full, dropping frame", "type", f.Type, "channel", f.Channel)
	}
}

func (c *Client) HandleMessage(ctx context.Context, raw []byte) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		c.queue(errorFrame("malformed frame"))
		return
	}
	switch f.Type {
	case MsgPing:
		c.queue(Frame{Type: MsgPong})
	case MsgSubscribe:
		c.subscribe(ctx, f.Channel)
	case MsgUnsubscribe:
		c.unsubscribe(f.Channel)
	case MsgPublish:
		c.publish(ctx, f)
	default:
		c.queue(errorFrame("unknown frame type " + f.Type))
	}
}

// readable channels: broadcasts and row changes.
func readable(channel string) bool {
	return writable(channel) || strings.HasPrefix(channel, "table:")
}

// writable channels: broadcasts only. Records change through the store.
func writable(channel string) bool {
	return strings.HasPrefix(channel, "match:") || strings.HasPrefix(channel, "room:")
}

func (c *Client) subscribe(ctx context.Context, channel string) {
	if !readable(channel) {
		c.queue(errorFrame("channel not allowed"))
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.subs[channel]; ok {
		c.queue(Frame{Type: MsgSubscribed, Channel: channel})
		return
	}
	if len(c.subs) >= maxSubscriptions {
		c.queue(errorFrame("too many subscriptions"))
		return
	}
	sub, err := c.Hub.bus.Subscribe(ctx, channel, func(m realtime.Message) {
		c.queue(Frame{Type: MsgMessage, Channel: m.Channel, Event: m.Event, Payload: m.Payload})
	})
	if err != nil {
		c.log.Warn("relay subscribe failed", "op", "subscribe", "channel", channel, "error", err)
		c.queue(errorFrame("subscribe failed"))
		return
	}
	c.subs[channel] = sub
	c.queue(Frame{Type: MsgSubscribed, Channel: channel})
}

func (c *Client) unsubscribe(channel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sub, ok := c.subs[channel]; ok {
		_ = sub.Close()
		delete(c.subs, channel)
	}
}

func (c *Client) publish(ctx context.Context, f Frame) {
	if !writable(f.Channel) {
		c.queue(errorFrame("channel not allowed"))
		return
	}
	switch f.Event {
	case realtime.EventAnswer:
		var a answerIdentity
		if err := json.Unmarshal(f.Payload, &a); err != nil || a.PlayerID != c.PlayerID {
			c.queue(errorFrame("answer must carry your player id"))
			return
		}
	case realtime.EventChat:
	default:
		c.queue(errorFrame("event not allowed"))
		return
	}
	if len(f.Payload) == 0 {
		f.Payload = json.RawMessage("null")
	}
	if err := c.Hub.bus.Publish(ctx, f.Channel, f.Event, f.Payload); err != nil {
		c.log.Warn("relay publish failed", "op", "publish", "channel", f.Channel, "error", err)
		c.queue(errorFrame("publish failed"))
	}
}
