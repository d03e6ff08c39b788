package relay

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/notewave/notewave/pkg/logger"
)

// BusMessage wraps a relayed event for cross-instance delivery. Origin lets
// the publishing instance skip its own messages on the subscribe side.
type BusMessage struct {
	Origin string `json:"origin"`
	Event  Event  `json:"event"`
}

// Bus fans relay events out across service instances via Redis pub/sub.
// Same contract as the in-process relay: fire-and-forget, at-most-once.
type Bus struct {
	rdb *redis.Client
}

// NewBus verifies connectivity and returns the bus.
func NewBus(ctx context.Context, rdb *redis.Client) (*Bus, error) {
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Bus{rdb: rdb}, nil
}

// Publish sends the message on the note's channel.
func (b *Bus) Publish(ctx context.Context, m BusMessage) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, channel(m.Event.NoteID), raw).Err()
}

// Subscribe listens on all note channels and invokes fn per message until
// ctx is done.
func (b *Bus) Subscribe(ctx context.Context, fn func(BusMessage)) {
	pubsub := b.rdb.PSubscribe(ctx, channel("*"))
	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			_ = pubsub.Close()
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var m BusMessage
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				logger.Warnf("relay: bad bus payload: %v", err)
				continue
			}
			if m.Event.NoteID != "" {
				fn(m)
			}
		}
	}
}

// channel namespaces pub/sub per note.
func channel(noteID string) string { return "relay:note:" + noteID }
