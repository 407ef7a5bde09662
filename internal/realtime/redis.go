package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"cypher_arena/internal/apperr"
	"cypher_arena/internal/logger"
	"cypher_arena/internal/metrics"

	redis "github.com/redis/go-redis/v9"
)

// RedisBus relays messages over Redis Pub/Sub. Payloads travel inside a
// JSON envelope carrying the event name.
type RedisBus struct {
	client *redis.Client
	log    *slog.Logger
}

type envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// DialRedis connects and pings. The caller owns the client.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, apperr.Transport("redis ping", err)
	}
	return client, nil
}

func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client, log: logger.For("bus")}
}

func (b *RedisBus) Publish(ctx context.Context, channel, event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return apperr.Transport("publish "+channel, err)
	}
	data, err := json.Marshal(envelope{Event: event, Payload: raw})
	if err != nil {
		return apperr.Transport("publish "+channel, err)
	}
	if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
		metrics.TransportErrors.WithLabelValues("publish").Inc()
		return apperr.Transport("publish "+channel, err)
	}
	return nil
}

type redisSub struct {
	ps *redis.PubSub
}

func (s *redisSub) Close() error { return s.ps.Close() }

// Subscribe waits for Redis to confirm the subscription before returning,
// so messages published afterwards are not missed.
func (b *RedisBus) Subscribe(ctx context.Context, channel string, h Handler) (Subscription, error) {
	ps := b.client.Subscribe(ctx, channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		metrics.TransportErrors.WithLabelValues("subscribe").Inc()
		return nil, apperr.Transport("subscribe "+channel, err)
	}
	ch := ps.Channel()
	go func() {
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var env envelope
				if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
					b.log.Warn("dropping malformed message", "channel", msg.Channel, "error", err)
					continue
				}
				h(Message{Channel: msg.Channel, Event: env.Event, Payload: env.Payload})
			case <-ctx.Done():
				_ = ps.Close()
				return
			}
		}
	}()
	return &redisSub{ps: ps}, nil
}
