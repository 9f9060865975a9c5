// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniRedis(t *testing.T) (*miniredis.Miniredis, *RedisPublisher) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, newRedisPublisher(client, "", zerolog.Nop())
}

func TestRedisPublisher_PublishDeliversToSubscribers(t *testing.T) {
	mr, pub := setupMiniRedis(t)
	ctx := context.Background()

	sub := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = sub.Close() }()
	ps := sub.Subscribe(ctx, DefaultChannel)
	defer func() { _ = ps.Close() }()
	_, err := ps.Receive(ctx) // subscription confirmation
	require.NoError(t, err)

	ev := Event{Kind: KindFailoverFailed, SessionID: "s1", FailoverID: "f1", Message: "no node available", At: time.Unix(1700000000, 0).UTC()}
	require.NoError(t, pub.Publish(ctx, ev))

	select {
	case msg := <-ps.Channel():
		var got Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, ev.Kind, got.Kind)
		assert.Equal(t, ev.FailoverID, got.FailoverID)
		assert.Equal(t, ev.Message, got.Message)
		assert.True(t, ev.At.Equal(got.At))
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestRedisPublisher_HistoryIsCapped(t *testing.T) {
	_, pub := setupMiniRedis(t)
	ctx := context.Background()

	for i := 0; i < historyLen+10; i++ {
		require.NoError(t, pub.Publish(ctx, Event{Kind: KindNodeOffline, NodeID: fmt.Sprintf("n%d", i)}))
	}

	recent, err := pub.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, recent, historyLen)
	assert.Equal(t, fmt.Sprintf("n%d", historyLen+9), recent[0].NodeID)

	top, err := pub.Recent(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, top, 3)
}

func TestRedisPublisher_ErrorWhenServerGone(t *testing.T) {
	mr, pub := setupMiniRedis(t)
	mr.Close()

	err := pub.Publish(context.Background(), Event{Kind: KindNodeOffline})
	assert.Error(t, err)
	assert.Error(t, pub.Ping(context.Background()))
}

func TestNewRedisPublisher_ConnectFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisPublisher(RedisConfig{Addr: addr}, zerolog.Nop())
	assert.Error(t, err)
}

func TestLogAndNopPublishers(t *testing.T) {
	assert.NoError(t, NewLogPublisher(zerolog.Nop()).Publish(context.Background(), Event{Kind: KindNodeOffline}))
	assert.NoError(t, Nop{}.Publish(context.Background(), Event{}))
}
