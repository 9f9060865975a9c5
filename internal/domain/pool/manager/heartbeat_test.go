// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"testing"
	"time"

	"github.com/ManuGH/vpspool/internal/domain/pool/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeartbeat_ScoresExampleNode(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	n, err := h.m.RegisterNode(ctx, RegisterRequest{Name: "N1", BaseURL: "http://n1", MaxSessions: 10, Token: "tok"})
	require.NoError(t, err)

	h.clock.Add(5 * time.Second)
	res, err := h.m.Heartbeat(ctx, n.ID, "tok", Gauges{CPULoad: 0.2, MemoryLoad: 0.1, SessionCount: 2, AvgLatencyMS: 20})
	require.NoError(t, err)

	assert.InDelta(t, 86.6, res.HealthScore, 1e-9)
	assert.Equal(t, model.NodeHealthy, res.Status)

	stored := h.node(t, n.ID)
	assert.Equal(t, testEpoch.Add(5*time.Second), stored.LastHeartbeatAt)
	assert.Equal(t, 2, stored.CurrentSessions)
	assert.InDelta(t, 0.2, stored.CPULoad, 1e-9)
	assert.InDelta(t, 20.0, stored.AvgLatencyMS, 1e-9)
}

func TestHeartbeat_RejectsBadTokenWithoutWriting(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	n := h.addNode(t, "a", "eu", 10)
	before := h.node(t, n.ID)

	h.clock.Add(time.Minute)
	_, err := h.m.Heartbeat(ctx, n.ID, "wrong", Gauges{CPULoad: 1, MemoryLoad: 1})
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = h.m.Heartbeat(ctx, n.ID, "", Gauges{})
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = h.m.Heartbeat(ctx, "unknown", "tok-a", Gauges{})
	require.ErrorIs(t, err, ErrUnauthorized)

	assert.Equal(t, before, h.node(t, n.ID))
}

func TestAuthenticateNode(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	n := h.addNode(t, "a", "eu", 10)

	require.NoError(t, h.m.AuthenticateNode(ctx, n.ID, "tok-a"))
	require.ErrorIs(t, h.m.AuthenticateNode(ctx, n.ID, "tok-b"), ErrUnauthorized)
	require.ErrorIs(t, h.m.AuthenticateNode(ctx, "missing", "tok-a"), ErrUnauthorized)
}

func TestHeartbeat_StatusBands(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	n := h.addNode(t, "a", "eu", 10)

	tests := []struct {
		name  string
		g     Gauges
		want  model.NodeStatus
		score float64
	}{
		{"idle", Gauges{}, model.NodeHealthy, 100},
		{"exactly healthy", Gauges{CPULoad: 1}, model.NodeHealthy, 70},
		{"degraded", Gauges{CPULoad: 1, MemoryLoad: 0.5}, model.NodeDegraded, 55},
		{"saturated", Gauges{CPULoad: 1, MemoryLoad: 1, SessionCount: 10, AvgLatencyMS: 5000}, model.NodeOffline, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h.m.Heartbeat(ctx, n.ID, n.Token, tt.g)
			require.NoError(t, err)
			assert.InDelta(t, tt.score, res.HealthScore, 1e-9)
			assert.Equal(t, tt.want, res.Status)
		})
	}
}

func TestHeartbeat_DuplicatePayloadIsLastWriteWins(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	n := h.addNode(t, "a", "eu", 10)
	g := Gauges{CPULoad: 0.5, MemoryLoad: 0.5, SessionCount: 3, AvgLatencyMS: 10}

	first, err := h.m.Heartbeat(ctx, n.ID, n.Token, g)
	require.NoError(t, err)
	h.clock.Add(time.Second)
	second, err := h.m.Heartbeat(ctx, n.ID, n.Token, g)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	stored := h.node(t, n.ID)
	assert.Equal(t, 3, stored.CurrentSessions)
	assert.Equal(t, testEpoch.Add(time.Second), stored.LastHeartbeatAt)
}

func TestHeartbeat_NegativeSessionCount(t *testing.T) {
	h := newHarness(t)
	n := h.addNode(t, "a", "eu", 10)

	res, err := h.m.Heartbeat(context.Background(), n.ID, n.Token, Gauges{SessionCount: -4})
	require.NoError(t, err)
	assert.Equal(t, 100.0, res.HealthScore)
	assert.Zero(t, h.node(t, n.ID).CurrentSessions)
}
