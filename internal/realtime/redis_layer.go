package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const channelPrefix = "notify:"

// ChannelFor returns the Redis channel that carries userID's messages.
func ChannelFor(userID string) string { return channelPrefix + GroupName(userID) }

// userFromChannel is the inverse of ChannelFor.
func userFromChannel(ch string) (string, bool) {
	rest, ok := strings.CutPrefix(ch, channelPrefix+"user_")
	if !ok || rest == "" {
		return "", false
	}
	return rest, true
}

// RedisLayer is a Layer that publishes through Redis so every server
// instance can deliver to the connections it holds. Run must be active on
// each instance for messages to reach local clients.
type RedisLayer struct {
	rdb redis.UniversalClient
	hub *Hub
	log zerolog.Logger
}

// NewRedisLayer wires rdb to the local hub.
func NewRedisLayer(rdb redis.UniversalClient, hub *Hub, lg zerolog.Logger) *RedisLayer {
	return &RedisLayer{rdb: rdb, hub: hub, log: lg.With().Str("component", "realtime.redis").Logger()}
}

// GroupSend publishes msg on the user's channel.
func (l *RedisLayer) GroupSend(ctx context.Context, userID string, msg Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := l.rdb.Publish(ctx, ChannelFor(userID), b).Err(); err != nil {
		deliveries.WithLabelValues(msg.Type, outcomePublishError).Inc()
		return fmt.Errorf("redis publish: %w", err)
	}
	deliveries.WithLabelValues(msg.Type, outcomePublished).Inc()
	return nil
}

// Run subscribes to every user channel and forwards frames to the local hub
// until ctx is cancelled. It returns an error if the subscription cannot be
// established.
func (l *RedisLayer) Run(ctx context.Context) error {
	ps := l.rdb.PSubscribe(ctx, channelPrefix+"*")
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("redis psubscribe: %w", err)
	}
	l.log.Info().Str("pattern", channelPrefix+"*").Msg("redis channel layer subscribed")

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			l.forward(m.Channel, []byte(m.Payload))
		}
	}
}

func (l *RedisLayer) forward(channel string, payload []byte) {
	userID, ok := userFromChannel(channel)
	if !ok {
		l.log.Warn().Str("channel", channel).Msg("ignoring message on unexpected channel")
		return
	}
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		l.log.Warn().Err(err).Str("channel", channel).Msg("ignoring malformed frame")
		return
	}
	l.hub.deliver(userID, msg.Type, payload)
}

var _ Layer = (*RedisLayer)(nil)
