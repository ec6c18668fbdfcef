// Package realtime fans booking events out over Redis pub/sub so that
// connected calendar views can refresh without polling. Subscribers
// listen on a per-room channel.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Publisher pushes JSON-encoded events to room channels.
type Publisher struct {
	rdb *redis.Client
	log *zap.Logger
}

// New wraps an existing Redis client. A nil client yields a publisher
// whose PublishRoomEvent is a no-op, which keeps local setups without
// Redis working.
func New(rdb *redis.Client, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{rdb: rdb, log: log}
}

// Channel returns the pub/sub channel name for a room.
func Channel(roomID uint64) string {
	return fmt.Sprintf("room:%d", roomID)
}

// PublishRoomEvent serializes the event and publishes it to the room's
// channel. Delivery is best effort.
func (p *Publisher) PublishRoomEvent(ctx context.Context, roomID uint64, event any) error {
	if p.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode room event: %w", err)
	}
	if err := p.rdb.Publish(ctx, Channel(roomID), payload).Err(); err != nil {
		p.log.Warn("room event publish failed", zap.Uint64("room_id", roomID), zap.Error(err))
		return err
	}
	return nil
}
