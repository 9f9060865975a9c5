// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ManuGH/vpspool/internal/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultChannel is the pub/sub channel used when none is configured.
const DefaultChannel = "vpspool:events"

// historyLen caps the recent-events list kept next to the channel.
const historyLen = 200

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string // host:port
	Password string
	DB       int
	Channel  string
}

// RedisPublisher PUBLISHes events as JSON and keeps a capped history list
// under "<channel>:recent" for operators that were not subscribed.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	logger  zerolog.Logger
}

// NewRedisPublisher connects to Redis and verifies the connection.
func NewRedisPublisher(config RedisConfig, logger zerolog.Logger) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     4,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info().
		Str("addr", config.Addr).
		Int("db", config.DB).
		Msg("connected to Redis for notifications")

	return newRedisPublisher(client, config.Channel, logger), nil
}

func newRedisPublisher(client *redis.Client, channel string, logger zerolog.Logger) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisPublisher{client: client, channel: channel, logger: logger}
}

// Publish sends ev to the channel and appends it to the history list.
func (p *RedisPublisher) Publish(ctx context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	historyKey := p.channel + ":recent"
	_, err = p.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Publish(ctx, p.channel, payload)
		pipe.LPush(ctx, historyKey, payload)
		pipe.LTrim(ctx, historyKey, 0, historyLen-1)
		return nil
	})
	if err != nil {
		metrics.RecordNotification("redis", "error")
		p.logger.Warn().Err(err).Str("event", "notify.publish_failed").Str("kind", string(ev.Kind)).Msg("redis publish failed")
		return err
	}
	metrics.RecordNotification("redis", "ok")
	return nil
}

// Recent returns up to n most recent events, newest first.
func (p *RedisPublisher) Recent(ctx context.Context, n int) ([]Event, error) {
	if n <= 0 {
		n = historyLen
	}
	raw, err := p.client.LRange(ctx, p.channel+":recent", 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Event, 0, len(raw))
	for _, item := range raw {
		var ev Event
		if err := json.Unmarshal([]byte(item), &ev); err != nil {
			p.logger.Debug().Err(err).Msg("skipping undecodable history entry")
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// Ping reports Redis reachability for health checks.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close releases the Redis connection pool.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
