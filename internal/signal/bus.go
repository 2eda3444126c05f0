// Package signal notifies peer systems of skill lifecycle events over
// Redis Streams. The channel set a bus may publish to is fixed at
// construction time: callers hand in an immutable Config snapshot instead
// of mutating process-wide state.
package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/lorekeep/skillforge/internal/skill"
)

const streamPrefix = "skillforge:events:"

// Config is the immutable per-bus configuration. Channels lists the stream
// suffixes events are fanned out to; an empty list means the default
// channel only.
type Config struct {
	Channels  []string
	MaxStream int64 // per-stream length cap, 0 for unbounded
}

// DefaultChannel receives every lifecycle event.
const DefaultChannel = "lifecycle"

// Bus publishes skill lifecycle events to Redis Streams.
type Bus struct {
	rdb      *redis.Client
	channels []string
	maxLen   int64
	logger   *zap.Logger
}

// NewBus connects to Redis and snapshots the configuration. The returned
// bus never changes its channel set.
func NewBus(redisURL string, cfg Config, logger *zap.Logger) (*Bus, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	channels := make([]string, 0, len(cfg.Channels)+1)
	channels = append(channels, DefaultChannel)
	for _, c := range cfg.Channels {
		if c != "" && c != DefaultChannel {
			channels = append(channels, c)
		}
	}
	return &Bus{rdb: rdb, channels: channels, maxLen: cfg.MaxStream, logger: logger}, nil
}

// Publish fans one lifecycle event out to every configured channel.
// Implements the service layer's Publisher contract.
func (b *Bus) Publish(ctx context.Context, ev skill.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	for _, ch := range b.channels {
		args := &redis.XAddArgs{
			Stream: streamPrefix + ch,
			Values: map[string]interface{}{"data": string(data)},
		}
		if b.maxLen > 0 {
			args.MaxLen = b.maxLen
			args.Approx = true
		}
		if _, err := b.rdb.XAdd(ctx, args).Result(); err != nil {
			return fmt.Errorf("publish to %s: %w", ch, err)
		}
	}

	b.logger.Debug("lifecycle event published",
		zap.String("type", string(ev.Type)),
		zap.String("skill", ev.SkillID),
		zap.Int("channels", len(b.channels)))
	return nil
}

// Subscribe listens for lifecycle events on one channel. Returns a channel
// that emits events; cancel the context to stop.
func (b *Bus) Subscribe(ctx context.Context, channel string) <-chan skill.Event {
	out := make(chan skill.Event, 16)
	stream := streamPrefix + channel

	go func() {
		defer close(out)
		lastID := "$"

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			results, err := b.rdb.XRead(ctx, &redis.XReadArgs{
				Streams: []string{stream, lastID},
				Count:   10,
				Block:   time.Second * 2,
			}).Result()

			if err != nil {
				if err == context.Canceled || err == context.DeadlineExceeded {
					return
				}
				continue
			}

			for _, r := range results {
				for _, msg := range r.Messages {
					lastID = msg.ID
					data, ok := msg.Values["data"].(string)
					if !ok {
						continue
					}
					var ev skill.Event
					if json.Unmarshal([]byte(data), &ev) == nil {
						out <- ev
					}
				}
			}
		}
	}()

	return out
}

// Close shuts down the Redis connection.
func (b *Bus) Close() error {
	return b.rdb.Close()
}
