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

func candidate(id string, score float64, sessions int, hb time.Time) *model.Node {
	return &model.Node{
		ID: id, Region: "eu", MaxSessions: 10, CurrentSessions: sessions,
		HealthScore: score, Status: model.NodeHealthy, IsActive: true, LastHeartbeatAt: hb,
	}
}

func ids(nodes []*model.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

func TestRankCandidates_Order(t *testing.T) {
	older := testEpoch
	newer := testEpoch.Add(time.Second)

	nodes := []*model.Node{
		candidate("e", 80, 1, newer),
		candidate("d", 80, 1, newer),
		candidate("c", 80, 1, older),
		candidate("b", 80, 0, older),
		candidate("a", 90, 5, older),
	}

	assert.Equal(t, []string{"a", "b", "d", "e", "c"}, ids(rankCandidates(nodes, "", "")))
}

func TestRankCandidates_Filters(t *testing.T) {
	full := candidate("full", 99, 10, testEpoch)
	offline := candidate("offline", 99, 0, testEpoch)
	offline.Status = model.NodeOffline
	inactive := candidate("inactive", 99, 0, testEpoch)
	inactive.IsActive = false
	us := candidate("us", 99, 0, testEpoch)
	us.Region = "us"
	degraded := candidate("degraded", 40, 0, testEpoch)
	degraded.Status = model.NodeDegraded
	excluded := candidate("excluded", 99, 0, testEpoch)

	got := rankCandidates([]*model.Node{full, offline, inactive, us, degraded, excluded}, "eu", "excluded")
	assert.Equal(t, []string{"degraded"}, ids(got))
}

func TestSelectBest_SkipsFullNodeEvenWithBestScore(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	n1 := h.addNode(t, "n1", "eu", 10)
	n2 := h.addNode(t, "n2", "eu", 10)

	_, err := h.m.Heartbeat(ctx, n1.ID, n1.Token, Gauges{CPULoad: 0.8, SessionCount: 2})
	require.NoError(t, err)
	_, err = h.m.Heartbeat(ctx, n2.ID, n2.Token, Gauges{SessionCount: 10})
	require.NoError(t, err)
	require.Greater(t, h.node(t, n2.ID).HealthScore, h.node(t, n1.ID).HealthScore)

	best, err := h.m.SelectBest(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, n1.ID, best.ID)
}

func TestSelectBest_ExcludeOnlyCandidate(t *testing.T) {
	h := newHarness(t)
	n := h.addNode(t, "only", "eu", 10)

	_, err := h.m.SelectBest(context.Background(), "", n.ID)
	require.ErrorIs(t, err, ErrNoNodeAvailable)

	best, err := h.m.SelectBest(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, n.ID, best.ID)
}

func TestSelectBest_StrictRegion(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	eu := h.addNode(t, "eu1", "eu", 10)

	_, err := h.m.SelectBest(ctx, "us", "")
	require.ErrorIs(t, err, ErrNoNodeAvailable)

	best, err := h.m.SelectBest(ctx, "eu", "")
	require.NoError(t, err)
	assert.Equal(t, eu.ID, best.ID)
}

func TestSelectBest_NewNodeNotSelectable(t *testing.T) {
	h := newHarness(t)
	_, err := h.m.RegisterNode(context.Background(), RegisterRequest{Name: "n", BaseURL: "http://n", MaxSessions: 1, Token: "t"})
	require.NoError(t, err)

	_, err = h.m.SelectBest(context.Background(), "", "")
	require.ErrorIs(t, err, ErrNoNodeAvailable)
}
